package transport

import (
	"context"
	"encoding/json"
	"io"
	"sync"
	"time"

	"github.com/codeready-toolchain/taskcore/pkg/corerr"
	"github.com/codeready-toolchain/taskcore/pkg/domain"
)

// stdioFrame is the bare {type} line written for heartbeats; dispatch
// itself writes a raw DispatchPayload with no envelope, per spec §6's
// "line-delimited JSON ... responses carry the taskId".
type stdioFrame struct {
	Type FrameType `json:"type"`
}

// StdioHub dispatches tasks to locally-spawned agent subprocesses over their
// stdin, one newline-delimited JSON payload per dispatch, and writes a
// heartbeat line to every registered pipe on a fixed cadence.
type StdioHub struct {
	mu      sync.RWMutex
	writers map[string]io.Writer
	stop    chan struct{}
}

// NewStdioHub constructs an empty hub and starts its heartbeat loop.
// heartbeatInterval is the cadence at which every registered pipe receives
// a heartbeat line (spec §6); <=0 falls back to a 30s default. Call Stop to
// release the loop on shutdown.
func NewStdioHub(heartbeatInterval time.Duration) *StdioHub {
	h := &StdioHub{
		writers: make(map[string]io.Writer),
		stop:    make(chan struct{}),
	}
	go h.heartbeatLoop(heartbeatIntervalOrDefault(heartbeatInterval))
	return h
}

// Stop releases the heartbeat loop. It is not idempotent: a second call
// panics on the already-closed stop channel.
func (h *StdioHub) Stop() {
	close(h.stop)
}

func (h *StdioHub) heartbeatLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-h.stop:
			return
		case <-ticker.C:
			h.broadcastHeartbeat()
		}
	}
}

func (h *StdioHub) broadcastHeartbeat() {
	line, err := json.Marshal(stdioFrame{Type: FrameHeartbeat})
	if err != nil {
		return
	}
	line = append(line, '\n')

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, w := range h.writers {
		_, _ = w.Write(line) // best effort; a dead pipe is reaped by Unregister on process exit
	}
}

// Register associates agentID with the stdin pipe of its spawned process.
// Callers own the writer's lifecycle (closing it on process exit).
func (h *StdioHub) Register(agentID string, w io.Writer) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.writers[agentID] = w
}

// Unregister drops agentID's stdin pipe, e.g. once its process exits.
func (h *StdioHub) Unregister(agentID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.writers, agentID)
}

func (h *StdioHub) Dispatch(_ context.Context, a *domain.Agent, t *domain.AtomicTask) error {
	h.mu.RLock()
	w, ok := h.writers[a.ID]
	h.mu.RUnlock()
	if !ok {
		return corerr.TransportFailure("no stdio pipe registered for agent "+a.ID, nil)
	}

	data, err := json.Marshal(newPayload(t, nil))
	if err != nil {
		return corerr.Internal("marshal dispatch payload", err)
	}
	data = append(data, '\n')
	if _, err := w.Write(data); err != nil {
		return corerr.TransportFailure("stdio write to agent "+a.ID+" failed", err)
	}
	return nil
}
