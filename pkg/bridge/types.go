// Package bridge implements IntegrationBridge (spec §4.12, C12): it
// maintains bidirectional consistency between the AgentRegistry view
// (source of truth for identity and capability) and the AgentOrchestrator
// view (source of truth for task load and dispatch status), since neither
// view is allowed to mutate the other's state directly.
package bridge

import (
	"context"

	"github.com/codeready-toolchain/taskcore/pkg/domain"
)

type mutableStore interface {
	GetAgent(id string) (*domain.Agent, error)
	GetAllAgents() []*domain.Agent
	UpdateAgent(a *domain.Agent) error
}

// IdentityStore is the Registry side: authoritative on capabilities,
// transport, and session identity.
type IdentityStore interface {
	mutableStore
	Register(a *domain.Agent) error
}

// LoadStore is the Orchestrator side: authoritative on currentTasks and
// load-derived status.
type LoadStore interface {
	mutableStore
	Register(a *domain.Agent) error
}

// Source names which side initiated a propagation, so the bridge knows
// which view to read from and which to write (spec §4.12: "push a single
// delta in the opposite direction").
type Source string

const (
	SourceRegistry     Source = "registry"
	SourceOrchestrator Source = "orchestrator"
)

// EventPublisher is the optional streaming seam a Bridge notifies after
// every propagation, mirroring the teacher's "eventPublisher may be nil"
// pattern. A nil EventPublisher disables streaming entirely.
type EventPublisher interface {
	PublishAgentStatusChanged(ctx context.Context, agentID string, status domain.AgentStatus, source Source) error
	PublishTaskStatusChanged(ctx context.Context, agentID, taskID string, status domain.Status, source Source) error
}
