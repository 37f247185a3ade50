// Package orchestrator implements AgentOrchestrator (spec §4.11, C11): it
// matches ready tasks to registered agents, mutates task/agent state under
// AccessManager locks, and dispatches over the agent's transport.
package orchestrator

import (
	"context"
	"time"

	"github.com/codeready-toolchain/taskcore/pkg/access"
	"github.com/codeready-toolchain/taskcore/pkg/domain"
)

// TaskStore is the narrow slice of StorageEngine the orchestrator needs.
type TaskStore interface {
	GetTask(id string) (*domain.AtomicTask, error)
	UpdateTask(t *domain.AtomicTask) error
}

// AgentStore is the narrow slice of AgentRegistry the orchestrator needs.
type AgentStore interface {
	GetAllAgents() []*domain.Agent
	GetAgent(id string) (*domain.Agent, error)
	UpdateAgentStatus(id string, status domain.AgentStatus) error
	UpdateAgent(a *domain.Agent) error
	StaleAgents(now time.Time, heartbeatInterval time.Duration) []*domain.Agent
}

// Locker is the narrow slice of AccessManager the orchestrator needs.
// Satisfied by *access.Manager.
type Locker interface {
	Acquire(ctx context.Context, resource, holder string, mode access.Mode, opts ...access.Option) (*access.Lock, error)
	Release(lockID string) error
}

// Dispatcher sends a task to an agent over whatever transport the agent
// declares, per spec §6.
type Dispatcher interface {
	Dispatch(ctx context.Context, a *domain.Agent, t *domain.AtomicTask) error
}

// AssignmentResult records the outcome of one Assign call.
type AssignmentResult struct {
	TaskID  string
	AgentID string
}

// requiredCapability maps a task's declared type to the capability an agent
// must advertise to be eligible (spec §4.11 step 1: "capability superset").
// TaskTypeResearch and TaskTypeReview have no dedicated capability in the
// closed enum (spec §9 redesign note) and fall back to CapabilityGeneral.
func requiredCapability(t *domain.AtomicTask) domain.Capability {
	switch t.Type {
	case domain.TaskTypeDevelopment:
		return domain.CapabilityBackend
	case domain.TaskTypeTesting:
		return domain.CapabilityTesting
	case domain.TaskTypeDocumentation:
		return domain.CapabilityDocumentation
	case domain.TaskTypeRefactoring:
		return domain.CapabilityRefactoring
	case domain.TaskTypeDebugging:
		return domain.CapabilityDebugging
	case domain.TaskTypeDeployment:
		return domain.CapabilityDevops
	default:
		return domain.CapabilityGeneral
	}
}
