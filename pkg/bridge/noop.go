package bridge

import (
	"context"

	"github.com/codeready-toolchain/taskcore/pkg/domain"
)

// NoopPublisher discards every event. It is the default EventPublisher when
// streaming is disabled (spec §4.12 ambient detail: "eventPublisher may be
// nil / streaming disabled").
type NoopPublisher struct{}

func (NoopPublisher) PublishAgentStatusChanged(context.Context, string, domain.AgentStatus, Source) error {
	return nil
}

func (NoopPublisher) PublishTaskStatusChanged(context.Context, string, string, domain.Status, Source) error {
	return nil
}
