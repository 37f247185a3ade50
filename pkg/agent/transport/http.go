package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/codeready-toolchain/taskcore/pkg/corerr"
	"github.com/codeready-toolchain/taskcore/pkg/domain"
)

// HTTPDispatcher implements the http transport's two shapes (spec §6):
// an authenticated POST to an agent's HTTPEndpoint for agents with a push
// channel, and a queue drained by Poll at pollingInterval for agents that
// have none.
type HTTPDispatcher struct {
	Client *http.Client

	mu      sync.Mutex
	pending map[string][]DispatchPayload
	sink    HeartbeatSink
}

// NewHTTPDispatcher constructs a dispatcher with a bounded-timeout client.
// sink may be nil; when set, every Poll call records the polling agent as
// live (spec §4.11's lastHeartbeat), since a poll-model agent has no other
// channel on which to emit one.
func NewHTTPDispatcher(timeout time.Duration, sink HeartbeatSink) *HTTPDispatcher {
	return &HTTPDispatcher{
		Client:  &http.Client{Timeout: timeout},
		pending: make(map[string][]DispatchPayload),
		sink:    sink,
	}
}

// Dispatch pushes the task to a.HTTPEndpoint when the agent advertises one;
// otherwise it queues the payload for the agent's next Poll (spec §6:
// "polling at pollingInterval for agents without a push channel").
func (d *HTTPDispatcher) Dispatch(ctx context.Context, a *domain.Agent, t *domain.AtomicTask) error {
	payload := newPayload(t, nil)
	if a.HTTPEndpoint == "" {
		d.mu.Lock()
		d.pending[a.ID] = append(d.pending[a.ID], payload)
		d.mu.Unlock()
		return nil
	}
	return d.push(ctx, a, payload)
}

func (d *HTTPDispatcher) push(ctx context.Context, a *domain.Agent, payload DispatchPayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return corerr.Internal("marshal dispatch payload", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.HTTPEndpoint, bytes.NewReader(body))
	if err != nil {
		return corerr.TransportFailure("build dispatch request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if a.HTTPAuthToken != "" {
		req.Header.Set("Authorization", "Bearer "+a.HTTPAuthToken)
	}

	resp, err := d.Client.Do(req)
	if err != nil {
		return corerr.TransportFailure("http dispatch to "+a.HTTPEndpoint+" failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return corerr.TransportFailure(fmt.Sprintf("agent %s rejected dispatch with status %d", a.ID, resp.StatusCode), nil)
	}
	return nil
}

// Poll drains and returns agentID's queued dispatches. A poll-model agent
// is expected to call this at least every pollingInterval (spec §6); each
// call both delivers pending work and doubles as that agent's heartbeat.
func (d *HTTPDispatcher) Poll(agentID string) []DispatchPayload {
	d.mu.Lock()
	out := d.pending[agentID]
	delete(d.pending, agentID)
	d.mu.Unlock()

	if d.sink != nil {
		_ = d.sink.Heartbeat(agentID, time.Now())
	}
	return out
}
