package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/codeready-toolchain/taskcore/pkg/corerr"
	"github.com/codeready-toolchain/taskcore/pkg/domain"
)

// SSEHub dispatches tasks to agents that hold open a Server-Sent Events
// stream, one buffered channel per agentId.
type SSEHub struct {
	mu                sync.RWMutex
	streams           map[string]chan DispatchPayload
	heartbeatInterval time.Duration
}

// NewSSEHub constructs an empty hub. heartbeatInterval is the cadence at
// which every open stream receives a heartbeat event (spec §6); <=0 falls
// back to a 30s default.
func NewSSEHub(heartbeatInterval time.Duration) *SSEHub {
	return &SSEHub{
		streams:           make(map[string]chan DispatchPayload),
		heartbeatInterval: heartbeatIntervalOrDefault(heartbeatInterval),
	}
}

// HandleSSE streams dispatch events to agentID, interleaved with periodic
// heartbeat events, until the request context is cancelled (the agent
// disconnects).
func (h *SSEHub) HandleSSE(w http.ResponseWriter, r *http.Request, agentID string) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	ch := make(chan DispatchPayload, 16)
	h.mu.Lock()
	h.streams[agentID] = ch
	h.mu.Unlock()
	defer func() {
		h.mu.Lock()
		delete(h.streams, agentID)
		h.mu.Unlock()
	}()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ticker := time.NewTicker(h.heartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
			fmt.Fprintf(w, "event: %s\ndata: {}\n\n", FrameHeartbeat)
			flusher.Flush()
		case payload := <-ch:
			data, err := json.Marshal(payload)
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", FrameRequest, data)
			flusher.Flush()
		}
	}
}

// Dispatch implements orchestrator.Dispatcher by enqueueing the payload on
// the agent's stream channel. Returns TransportFailure if the agent has no
// open stream or its buffer is full.
func (h *SSEHub) Dispatch(_ context.Context, a *domain.Agent, t *domain.AtomicTask) error {
	h.mu.RLock()
	ch, ok := h.streams[a.ID]
	h.mu.RUnlock()
	if !ok {
		return corerr.TransportFailure("no sse stream open for agent "+a.ID, nil)
	}
	select {
	case ch <- newPayload(t, nil):
		return nil
	default:
		return corerr.TransportFailure("sse stream buffer full for agent "+a.ID, nil)
	}
}
