// Package transport implements the four agent dispatch transports named in
// spec §6 (stdio, sse, websocket, http). Each one satisfies
// orchestrator.Dispatcher over a common wire payload.
package transport

import (
	"time"

	"github.com/codeready-toolchain/taskcore/pkg/domain"
)

// DispatchPayload is the wire shape every transport sends to an agent
// (spec §6: "a common dispatch contract {taskId, task, deadline}").
type DispatchPayload struct {
	TaskID   string             `json:"taskId"`
	Task     *domain.AtomicTask `json:"task"`
	Deadline *time.Time         `json:"deadline,omitempty"`
}

func newPayload(t *domain.AtomicTask, deadline *time.Time) DispatchPayload {
	return DispatchPayload{TaskID: t.ID, Task: t, Deadline: deadline}
}

// FrameType discriminates the kind of envelope a push transport puts on the
// wire (spec §6: websocket frames are "{type∈{request,response,heartbeat},
// id, payload}"). stdio/sse reuse the same discriminator for their own
// heartbeat lines/events so all three push transports share one vocabulary.
type FrameType string

const (
	FrameRequest   FrameType = "request"
	FrameResponse  FrameType = "response"
	FrameHeartbeat FrameType = "heartbeat"
)

// Envelope wraps a DispatchPayload with the type/id discriminator spec §6
// requires of every websocket frame. Payload is empty on heartbeat frames.
type Envelope struct {
	Type    FrameType        `json:"type"`
	ID      string           `json:"id"`
	Payload *DispatchPayload `json:"payload,omitempty"`
}

// HeartbeatSink records that a transport has observed an agent as live,
// feeding spec §4.11's lastHeartbeat so AgentOrchestrator.SweepHeartbeats
// can tell a connected agent from a stale one. Satisfied by
// *registry.Registry.
type HeartbeatSink interface {
	Heartbeat(agentID string, at time.Time) error
}

const defaultHeartbeatInterval = 30 * time.Second

func heartbeatIntervalOrDefault(d time.Duration) time.Duration {
	if d <= 0 {
		return defaultHeartbeatInterval
	}
	return d
}
