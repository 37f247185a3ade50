package bridge

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"

	"github.com/codeready-toolchain/taskcore/pkg/domain"
)

// NATSPublisher publishes agent/task status deltas to subjects under a
// configurable prefix, the concrete streaming adapter for EventPublisher
// (spec §4.12 ambient detail: grounded in the teacher's pkg/events
// persist-then-notify seam, minus the database leg since IntegrationBridge
// events are transient by nature).
type NATSPublisher struct {
	conn   *nats.Conn
	prefix string
}

// NewNATSPublisher wraps an established NATS connection. prefix namespaces
// subjects, e.g. "taskcore" yields "taskcore.agent.status".
func NewNATSPublisher(conn *nats.Conn, prefix string) *NATSPublisher {
	if prefix == "" {
		prefix = "taskcore"
	}
	return &NATSPublisher{conn: conn, prefix: prefix}
}

type agentStatusEvent struct {
	AgentID string             `json:"agentId"`
	Status  domain.AgentStatus `json:"status"`
	Source  Source             `json:"source"`
}

type taskStatusEvent struct {
	AgentID string        `json:"agentId"`
	TaskID  string        `json:"taskId"`
	Status  domain.Status `json:"status"`
	Source  Source        `json:"source"`
}

func (p *NATSPublisher) PublishAgentStatusChanged(_ context.Context, agentID string, status domain.AgentStatus, source Source) error {
	data, err := json.Marshal(agentStatusEvent{AgentID: agentID, Status: status, Source: source})
	if err != nil {
		return fmt.Errorf("marshal agent status event: %w", err)
	}
	return p.conn.Publish(p.prefix+".agent.status", data)
}

func (p *NATSPublisher) PublishTaskStatusChanged(_ context.Context, agentID, taskID string, status domain.Status, source Source) error {
	data, err := json.Marshal(taskStatusEvent{AgentID: agentID, TaskID: taskID, Status: status, Source: source})
	if err != nil {
		return fmt.Errorf("marshal task status event: %w", err)
	}
	return p.conn.Publish(p.prefix+".task.status", data)
}
