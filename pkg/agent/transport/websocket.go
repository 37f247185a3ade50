package transport

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/codeready-toolchain/taskcore/pkg/corerr"
	"github.com/codeready-toolchain/taskcore/pkg/domain"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// wsConn pairs a connection with the mutex gorilla/websocket requires around
// concurrent writers: Dispatch and the per-connection heartbeat loop both
// write from different goroutines.
type wsConn struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *wsConn) writeEnvelope(e Envelope) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteJSON(e)
}

// WSHub manages one websocket connection per agent session, keyed by
// sessionId, and dispatches tasks by writing an Envelope onto the matching
// connection.
type WSHub struct {
	mu                sync.RWMutex
	conns             map[string]*wsConn
	heartbeatInterval time.Duration
	log               *slog.Logger
}

// NewWSHub constructs an empty hub. heartbeatInterval is the cadence at
// which every open connection is sent a heartbeat frame (spec §6: "All
// transports send a heartbeat at least every pollingInterval ms"); <=0
// falls back to a 30s default.
func NewWSHub(log *slog.Logger, heartbeatInterval time.Duration) *WSHub {
	if log == nil {
		log = slog.Default()
	}
	return &WSHub{
		conns:             make(map[string]*wsConn),
		heartbeatInterval: heartbeatIntervalOrDefault(heartbeatInterval),
		log:               log,
	}
}

// HandleWS upgrades the HTTP request to a websocket, registers the
// connection under sessionID, and sends heartbeat frames until the
// connection closes.
func (h *WSHub) HandleWS(w http.ResponseWriter, r *http.Request, sessionID string) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Error("websocket upgrade failed", "sessionId", sessionID, "error", err)
		return
	}

	wc := &wsConn{conn: conn}
	h.mu.Lock()
	h.conns[sessionID] = wc
	h.mu.Unlock()

	defer func() {
		h.mu.Lock()
		delete(h.conns, sessionID)
		h.mu.Unlock()
		conn.Close()
	}()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
					h.log.Warn("websocket read error", "sessionId", sessionID, "error", err)
				}
				return
			}
		}
	}()

	ticker := time.NewTicker(h.heartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if err := wc.writeEnvelope(Envelope{Type: FrameHeartbeat, ID: uuid.NewString()}); err != nil {
				h.log.Warn("websocket heartbeat write failed", "sessionId", sessionID, "error", err)
				return
			}
		}
	}
}

// Dispatch implements orchestrator.Dispatcher by writing a request-typed
// envelope to the agent's registered connection.
func (h *WSHub) Dispatch(_ context.Context, a *domain.Agent, t *domain.AtomicTask) error {
	h.mu.RLock()
	wc, ok := h.conns[a.SessionID]
	h.mu.RUnlock()
	if !ok {
		return corerr.TransportFailure("no websocket connection registered for session "+a.SessionID, nil)
	}
	payload := newPayload(t, nil)
	env := Envelope{Type: FrameRequest, ID: uuid.NewString(), Payload: &payload}
	if err := wc.writeEnvelope(env); err != nil {
		return corerr.TransportFailure("websocket write failed", err)
	}
	return nil
}
