// Command conductord serves a conductor engine over HTTP.
//
// Conversations stream as Server-Sent Events; approval decisions and
// clarification answers arrive as plain POSTs while the stream stays
// open. An AG-UI endpoint serves protocol-compatible frontends.
//
// Routes:
//
//	POST /v1/conversations/{id}/messages - run a turn, stream engine events
//	POST /v1/approvals/{id}              - submit an approval decision
//	POST /v1/clarifications/{id}         - submit a clarification answer
//	GET  /v1/tools                       - list registered tools
//	POST /v1/agui                        - AG-UI protocol run over SSE
//	GET  /healthz                        - health check
//
// Configuration is environment-first (.env supported); flags override
// the address and paths:
//
//	-addr      listen address (default ":8080", env CONDUCTOR_ADDR)
//	-store     conversation store directory, empty = in-memory (env CONDUCTOR_STORE)
//	-model     default model, e.g. "anthropic/claude-sonnet-4-5" (env CONDUCTOR_MODEL)
//	-workspace root directory for the file tools (env CONDUCTOR_WORKSPACE)
package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/bigduu/conductor/agent"
	"github.com/bigduu/conductor/client"
	"github.com/bigduu/conductor/engine"
	"github.com/bigduu/conductor/store"
	"github.com/bigduu/conductor/tool"
)

func main() {
	cfg := LoadConfig()

	addr := flag.String("addr", cfg.Addr, "listen address")
	storeDir := flag.String("store", cfg.StoreDir, "conversation store directory (empty = in-memory)")
	model := flag.String("model", cfg.Model, "default model, provider-qualified")
	workspace := flag.String("workspace", cfg.Workspace, "root directory for file tools")
	flag.Parse()

	cfg.Addr = *addr
	cfg.StoreDir = *storeDir
	cfg.Model = *model
	cfg.Workspace = *workspace

	logger := newLogger(cfg.LogLevel)

	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("Invalid configuration")
	}

	eng, err := buildEngine(cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Engine setup failed")
	}

	server := &http.Server{
		Addr:         cfg.Addr,
		Handler:      NewServer(eng, logger).Routes(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 0, // SSE streams have no write deadline
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		logger.Info().Msg("Shutting down")
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			logger.Error().Err(err).Msg("Shutdown error")
		}
	}()

	logger.Info().
		Str("addr", cfg.Addr).
		Str("model", cfg.Model).
		Str("workspace", cfg.Workspace).
		Msg("conductord listening")

	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		logger.Fatal().Err(err).Msg("Server error")
	}
	logger.Info().Msg("Server stopped")
}

func newLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}

	var logger zerolog.Logger
	if fi, err := os.Stderr.Stat(); err == nil && fi.Mode()&os.ModeCharDevice != 0 {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr})
	} else {
		logger = zerolog.New(os.Stderr)
	}
	return logger.Level(lvl).With().Timestamp().Logger()
}

func buildEngine(cfg *Config, logger zerolog.Logger) (*engine.Engine, error) {
	llm := client.New(client.Config{
		APIKeys: client.APIKeys{
			Anthropic: cfg.AnthropicKey,
			OpenAI:    cfg.OpenAIKey,
			Google:    cfg.GoogleKey,
		},
		DefaultModel: cfg.Model,
	})

	registry := tool.NewRegistry(tool.WithValidation())
	registry.Add(tool.FileTools(cfg.Workspace)...)
	registry.Add(tool.HTTPFetch())
	logger.Info().Int("tools", registry.Count()).Str("workspace", cfg.Workspace).Msg("Built-in tools registered")

	var adapter store.Adapter
	if cfg.StoreDir != "" {
		fileAdapter, err := store.NewFileAdapter(cfg.StoreDir, store.WithLogger(logger))
		if err != nil {
			return nil, err
		}
		adapter = fileAdapter
		logger.Info().Str("dir", cfg.StoreDir).Msg("Using file store")
	} else {
		adapter = store.NewMemoryAdapter()
		logger.Info().Msg("Using in-memory store")
	}

	return engine.New(engine.Config{
		Client:          llm,
		Registry:        registry,
		Store:           adapter,
		Logger:          logger,
		SystemPrompt:    cfg.SystemPrompt,
		ApprovalTimeout: cfg.ApprovalTimeout,
		RunOptions: []agent.Option{
			agent.WithMaxSteps(cfg.MaxSteps),
			agent.WithTimeout(cfg.Timeout),
		},
	})
}
