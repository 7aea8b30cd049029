package agent

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ai "github.com/bigduu/conductor"
	"github.com/bigduu/conductor/composition"
)

func TestApprovalBroker_Approve(t *testing.T) {
	broker := NewApprovalBroker()
	req := ApprovalRequest{
		ID:   "call_1",
		Call: ai.ToolCall{ID: "call_1", Name: "delete_file"},
	}

	done := make(chan struct{})
	var dec ApprovalDecision
	var err error
	go func() {
		defer close(done)
		dec, err = broker.Request(context.Background(), req)
	}()

	require.Eventually(t, func() bool { return broker.HasPending("call_1") },
		time.Second, 5*time.Millisecond)
	require.NoError(t, broker.Approve("call_1"))

	<-done
	require.NoError(t, err)
	assert.True(t, dec.Approved)
	assert.Equal(t, 0, broker.PendingCount())
}

func TestApprovalBroker_Reject(t *testing.T) {
	broker := NewApprovalBroker()
	req := ApprovalRequest{
		ID:   "call_2",
		Call: ai.ToolCall{ID: "call_2", Name: "delete_file"},
	}

	done := make(chan struct{})
	var dec ApprovalDecision
	var err error
	go func() {
		defer close(done)
		dec, err = broker.Request(context.Background(), req)
	}()

	require.Eventually(t, func() bool { return broker.HasPending("call_2") },
		time.Second, 5*time.Millisecond)
	require.NoError(t, broker.Reject("call_2", "too risky"))

	<-done
	require.NoError(t, err)
	assert.False(t, dec.Approved)
	assert.Equal(t, "too risky", dec.Reason)
}

func TestApprovalBroker_Timeout(t *testing.T) {
	broker := NewApprovalBroker(WithApprovalTimeout(20 * time.Millisecond))
	req := ApprovalRequest{
		ID:   "call_3",
		Call: ai.ToolCall{ID: "call_3", Name: "delete_file"},
	}

	_, err := broker.Request(context.Background(), req)

	require.Error(t, err)
	var timeoutErr *composition.ApprovalTimeoutError
	require.ErrorAs(t, err, &timeoutErr)
	assert.Equal(t, "delete_file", timeoutErr.Tool)
	assert.Equal(t, 0, broker.PendingCount())
}

func TestApprovalBroker_ApproveOnce(t *testing.T) {
	broker := NewApprovalBroker()
	req := ApprovalRequest{
		ID:   "call_4",
		Call: ai.ToolCall{ID: "call_4", Name: "delete_file"},
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = broker.Request(context.Background(), req)
	}()

	require.Eventually(t, func() bool { return broker.HasPending("call_4") },
		time.Second, 5*time.Millisecond)
	require.NoError(t, broker.Approve("call_4"))
	<-done

	err := broker.Reject("call_4", "changed my mind")
	assert.ErrorIs(t, err, ErrNoPendingRequest)
}

func TestApprovalBroker_UnknownRequest(t *testing.T) {
	broker := NewApprovalBroker()

	err := broker.Approve("nope")

	assert.ErrorIs(t, err, ErrNoPendingRequest)
}

func TestApprovalBroker_ContextCancelled(t *testing.T) {
	broker := NewApprovalBroker()
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	var err error
	go func() {
		defer close(done)
		_, err = broker.Request(ctx, ApprovalRequest{
			ID:   "call_5",
			Call: ai.ToolCall{ID: "call_5", Name: "delete_file"},
		})
	}()

	require.Eventually(t, func() bool { return broker.HasPending("call_5") },
		time.Second, 5*time.Millisecond)
	cancel()

	<-done
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, broker.PendingCount())
}

func TestApprovalBroker_OnRequest(t *testing.T) {
	seen := make(chan ApprovalRequest, 1)
	broker := NewApprovalBroker(WithOnRequest(func(req ApprovalRequest) {
		seen <- req
	}))

	go func() {
		_, _ = broker.Request(context.Background(), ApprovalRequest{
			ID:             "call_6",
			ConversationID: "conv_1",
			Call:           ai.ToolCall{ID: "call_6", Name: "delete_file"},
		})
	}()

	select {
	case req := <-seen:
		assert.Equal(t, "call_6", req.ID)
		assert.Equal(t, "conv_1", req.ConversationID)
		assert.Equal(t, "delete_file", req.Call.Name)
	case <-time.After(time.Second):
		t.Fatal("onRequest was not invoked")
	}
	require.NoError(t, broker.Approve("call_6"))
}

func TestApprovalBroker_DuplicatePending(t *testing.T) {
	broker := NewApprovalBroker()
	req := ApprovalRequest{
		ID:   "call_7",
		Call: ai.ToolCall{ID: "call_7", Name: "delete_file"},
	}

	go func() {
		_, _ = broker.Request(context.Background(), req)
	}()
	require.Eventually(t, func() bool { return broker.HasPending("call_7") },
		time.Second, 5*time.Millisecond)

	_, err := broker.Request(context.Background(), req)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "already pending")
	require.NoError(t, broker.Approve("call_7"))
}
