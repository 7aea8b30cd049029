package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	aguievents "github.com/ag-ui-protocol/ag-ui/sdks/community/go/pkg/core/events"

	"github.com/bigduu/conductor/agent"
	"github.com/bigduu/conductor/agui"
	"github.com/bigduu/conductor/engine"
	"github.com/bigduu/conductor/event"
)

// Server routes HTTP requests to the engine.
type Server struct {
	engine *engine.Engine
	logger zerolog.Logger
}

// NewServer creates a Server around the engine.
func NewServer(eng *engine.Engine, logger zerolog.Logger) *Server {
	return &Server{engine: eng, logger: logger}
}

// Routes builds the HTTP mux.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/conversations/{id}/messages", s.handleMessage)
	mux.HandleFunc("POST /v1/approvals/{id}", s.handleApproval)
	mux.HandleFunc("POST /v1/clarifications/{id}", s.handleClarification)
	mux.HandleFunc("GET /v1/conversations", s.handleConversations)
	mux.HandleFunc("GET /v1/tools", s.handleTools)
	mux.HandleFunc("POST /v1/agui", s.handleAGUI)
	mux.HandleFunc("GET /healthz", handleHealth)
	return corsMiddleware(mux)
}

// messageRequest is the body of POST /v1/conversations/{id}/messages.
type messageRequest struct {
	Message string `json:"message"`
}

// eventPayload is the SSE wire shape for engine events.
type eventPayload struct {
	Type       string    `json:"type"`
	MessageID  string    `json:"messageId,omitempty"`
	Delta      string    `json:"delta,omitempty"`
	Response   any       `json:"response,omitempty"`
	ToolCall   any       `json:"toolCall,omitempty"`
	ToolResult any       `json:"toolResult,omitempty"`
	RequestID  string    `json:"requestId,omitempty"`
	Question   string    `json:"question,omitempty"`
	Options    []string  `json:"options,omitempty"`
	From       string    `json:"from,omitempty"`
	To         string    `json:"to,omitempty"`
	Step       int       `json:"step,omitempty"`
	Error      string    `json:"error,omitempty"`
	Message    string    `json:"message,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

func toPayload(ev event.Event) eventPayload {
	p := eventPayload{
		Type:      string(ev.Type),
		MessageID: ev.MessageID,
		Delta:     ev.Delta,
		RequestID: ev.RequestID,
		Question:  ev.Question,
		Options:   ev.Choices,
		From:      ev.From,
		To:        ev.To,
		Step:      ev.Step,
		Message:   ev.Message,
		Timestamp: ev.Timestamp,
	}
	if ev.Response != nil {
		p.Response = ev.Response
	}
	if ev.ToolCall != nil {
		p.ToolCall = ev.ToolCall
	}
	if ev.ToolResult != nil {
		p.ToolResult = ev.ToolResult
	}
	if ev.Error != nil {
		p.Error = ev.Error.Error()
	}
	return p
}

// handleMessage runs one agent turn and streams engine events as SSE.
func (s *Server) handleMessage(w http.ResponseWriter, r *http.Request) {
	conversationID := r.PathValue("id")

	var req messageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	logger := s.logger.With().Str("conversation_id", conversationID).Logger()

	events, err := s.engine.ProcessMessage(r.Context(), conversationID, req.Message)
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, engine.ErrConversationBusy) {
			status = http.StatusConflict
		}
		logger.Warn().Err(err).Msg("Message rejected")
		writeError(w, status, err.Error())
		return
	}

	flusher, ok := beginSSE(w)
	if !ok {
		logger.Error().Msg("Streaming not supported")
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	for ev := range events {
		if err := writeSSE(w, flusher, string(ev.Type), toPayload(ev)); err != nil {
			logger.Debug().Err(err).Msg("Client disconnected")
			// Keep draining; the engine persists the turn regardless.
			for range events {
			}
			return
		}
	}
}

// decisionRequest is the body of POST /v1/approvals/{id}.
type decisionRequest struct {
	Approved bool   `json:"approved"`
	Reason   string `json:"reason,omitempty"`
}

func (s *Server) handleApproval(w http.ResponseWriter, r *http.Request) {
	requestID := r.PathValue("id")

	var req decisionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	if err := s.engine.SubmitApproval(requestID, req.Approved, req.Reason); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, agent.ErrNoPendingRequest) {
			status = http.StatusNotFound
		}
		writeError(w, status, err.Error())
		return
	}

	s.logger.Info().Str("request_id", requestID).Bool("approved", req.Approved).Msg("Approval submitted")
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// answerRequest is the body of POST /v1/clarifications/{id}.
type answerRequest struct {
	Answer    string `json:"answer,omitempty"`
	Cancelled bool   `json:"cancelled,omitempty"`
}

func (s *Server) handleClarification(w http.ResponseWriter, r *http.Request) {
	requestID := r.PathValue("id")

	var req answerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	var err error
	if req.Cancelled {
		err = s.engine.CancelClarification(requestID)
	} else {
		err = s.engine.SubmitClarification(requestID, req.Answer)
	}
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, agent.ErrNoPendingRequest) {
			status = http.StatusNotFound
		}
		writeError(w, status, err.Error())
		return
	}

	s.logger.Info().Str("request_id", requestID).Msg("Clarification submitted")
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleConversations(w http.ResponseWriter, r *http.Request) {
	conversations, err := s.engine.Conversations(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, conversations)
}

// toolInfo is the wire shape of a registered tool.
type toolInfo struct {
	Name             string          `json:"name"`
	Description      string          `json:"description"`
	Parameters       json.RawMessage `json:"parameters,omitempty"`
	RequiresApproval bool            `json:"requiresApproval"`
}

func (s *Server) handleTools(w http.ResponseWriter, _ *http.Request) {
	tools := s.engine.Registry().Tools()
	infos := make([]toolInfo, len(tools))
	for i, t := range tools {
		infos[i] = toolInfo{
			Name:             t.Name,
			Description:      t.Description,
			Parameters:       t.Parameters,
			RequiresApproval: t.RequiresApproval,
		}
	}
	writeJSON(w, http.StatusOK, infos)
}

// handleAGUI runs a turn for an AG-UI frontend, streaming protocol
// events as SSE. The thread ID keys the conversation; the latest user
// message in the input becomes the turn's message.
func (s *Server) handleAGUI(w http.ResponseWriter, r *http.Request) {
	var input agui.RunAgentInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	prepared, err := input.Prepare()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	mapper := agui.NewMapper(prepared.ThreadID, prepared.RunID)
	logger := s.logger.With().
		Str("thread_id", mapper.ThreadID()).
		Str("run_id", mapper.RunID()).
		Logger()

	text := prepared.LastUserText()
	if text == "" {
		writeError(w, http.StatusBadRequest, "no user message in input")
		return
	}

	events, err := s.engine.ProcessMessage(r.Context(), mapper.ThreadID(), text)
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, engine.ErrConversationBusy) {
			status = http.StatusConflict
		}
		logger.Warn().Err(err).Msg("AG-UI run rejected")
		writeError(w, status, err.Error())
		return
	}

	flusher, ok := beginSSE(w)
	if !ok {
		logger.Error().Msg("Streaming not supported")
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	var sent int
	for ev := range mapper.MapStream(events) {
		if err := writeAGUIEvent(w, flusher, ev); err != nil {
			logger.Debug().Err(err).Msg("Client disconnected")
			for range events {
			}
			return
		}
		sent++
	}
	logger.Info().Int("events_sent", sent).Msg("AG-UI run completed")
}

// beginSSE sets the SSE headers and returns the flusher.
func beginSSE(w http.ResponseWriter) (http.Flusher, bool) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, false
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	return flusher, true
}

// writeSSE writes one event in SSE format: event: TYPE\ndata: {json}\n\n.
func writeSSE(w http.ResponseWriter, flusher http.Flusher, eventType string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("serialize event: %w", err)
	}
	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", eventType, data); err != nil {
		return fmt.Errorf("write event: %w", err)
	}
	flusher.Flush()
	return nil
}

// writeAGUIEvent writes an AG-UI protocol event in SSE format.
func writeAGUIEvent(w http.ResponseWriter, flusher http.Flusher, ev aguievents.Event) error {
	data, err := ev.ToJSON()
	if err != nil {
		return fmt.Errorf("serialize event: %w", err)
	}
	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Type(), data); err != nil {
		return fmt.Errorf("write event: %w", err)
	}
	flusher.Flush()
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// corsMiddleware adds CORS headers for cross-origin frontends.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
