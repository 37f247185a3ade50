package bridge

import (
	"context"
	"sync"
	"time"

	"github.com/codeready-toolchain/taskcore/pkg/corerr"
	"github.com/codeready-toolchain/taskcore/pkg/domain"
)

// Bridge is the concrete IntegrationBridge.
type Bridge struct {
	identity IdentityStore
	load     LoadStore
	pub      EventPublisher

	mu         sync.Mutex
	inProgress map[string]bool
}

// New constructs a Bridge. pub may be nil to disable event streaming.
func New(identity IdentityStore, load LoadStore, pub EventPublisher) *Bridge {
	return &Bridge{
		identity:   identity,
		load:       load,
		pub:        pub,
		inProgress: make(map[string]bool),
	}
}

// enter claims the per-agent in-progress guard, returning false if a cross-
// view write for agentID is already underway (spec §4.12: "guarded by a
// per-agent in-progress set to prevent circular re-entry").
func (b *Bridge) enter(agentID string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.inProgress[agentID] {
		return false
	}
	b.inProgress[agentID] = true
	return true
}

func (b *Bridge) exit(agentID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.inProgress, agentID)
}

// RegisterAgent performs a non-reentrant two-sided write: the unified agent
// record lands in both the Registry and the Orchestrator's load-tracking
// view (spec §4.12: "registerAgent(unified) performs a non-reentrant
// two-sided write").
func (b *Bridge) RegisterAgent(_ context.Context, unified *domain.Agent) error {
	if !b.enter(unified.ID) {
		return corerr.Conflict("registration for agent " + unified.ID + " already in progress")
	}
	defer b.exit(unified.ID)

	if unified.LastSeen.IsZero() {
		unified.LastSeen = time.Now()
	}

	if err := b.identity.Register(unified); err != nil {
		return err
	}

	loadView := *unified
	loadView.CurrentTasks = nil
	if err := b.load.Register(&loadView); err != nil {
		return err
	}
	return nil
}

// PropagateStatusChange pushes a single status delta from source's view to
// the other view. Idempotent: writing the same status twice leaves the
// target unchanged on the second call (spec §4.12).
func (b *Bridge) PropagateStatusChange(ctx context.Context, agentID string, newStatus domain.AgentStatus, source Source) error {
	if !b.enter(agentID) {
		return corerr.Conflict("propagation for agent " + agentID + " already in progress")
	}
	defer b.exit(agentID)

	target, err := b.opposite(source)
	if err != nil {
		return err
	}

	a, err := target.GetAgent(agentID)
	if err != nil {
		return err
	}
	if a.Status == newStatus {
		return nil
	}
	a.Status = newStatus
	if err := target.UpdateAgent(a); err != nil {
		return err
	}

	if b.pub != nil {
		_ = b.pub.PublishAgentStatusChanged(ctx, agentID, newStatus, source)
	}
	return nil
}

// PropagateTaskStatusChange pushes a single task-status delta from source's
// view to the other view, adding or removing taskID from the target
// agent's currentTasks depending on whether status is terminal (spec §4.12).
func (b *Bridge) PropagateTaskStatusChange(ctx context.Context, agentID, taskID string, status domain.Status, source Source) error {
	if !b.enter(agentID) {
		return corerr.Conflict("propagation for agent " + agentID + " already in progress")
	}
	defer b.exit(agentID)

	target, err := b.opposite(source)
	if err != nil {
		return err
	}

	a, err := target.GetAgent(agentID)
	if err != nil {
		return err
	}

	if status.IsTerminal() {
		a.CurrentTasks = removeTask(a.CurrentTasks, taskID)
	} else if !containsTask(a.CurrentTasks, taskID) {
		a.CurrentTasks = append(a.CurrentTasks, taskID)
	}
	if err := target.UpdateAgent(a); err != nil {
		return err
	}

	if b.pub != nil {
		_ = b.pub.PublishTaskStatusChanged(ctx, agentID, taskID, status, source)
	}
	return nil
}

// SynchronizeAgents reconciles every agent known to the Registry against its
// Orchestrator counterpart: Registry wins on identity/capability fields,
// Orchestrator wins on currentTasks and load-derived status (spec §4.12).
// Agents present only in the Registry are mirrored into the load view.
func (b *Bridge) SynchronizeAgents(_ context.Context) error {
	for _, idA := range b.identity.GetAllAgents() {
		loadA, err := b.load.GetAgent(idA.ID)
		if err != nil {
			mirrored := *idA
			_ = b.load.Register(&mirrored)
			continue
		}

		reconciled := *idA
		reconciled.CurrentTasks = loadA.CurrentTasks
		reconciled.Status = deriveStatus(&reconciled)

		if err := b.identity.UpdateAgent(&reconciled); err != nil {
			continue
		}
		_ = b.load.UpdateAgent(&reconciled)
	}
	return nil
}

func (b *Bridge) opposite(source Source) (mutableStore, error) {
	switch source {
	case SourceRegistry:
		return b.load, nil
	case SourceOrchestrator:
		return b.identity, nil
	default:
		return nil, corerr.Validation("unknown propagation source "+string(source), nil)
	}
}

// deriveStatus computes an agent's status from its reconciled load, per the
// Agent invariant in pkg/domain: busy iff at capacity, available otherwise,
// unless it was already offline/error.
func deriveStatus(a *domain.Agent) domain.AgentStatus {
	if a.Status == domain.AgentOffline || a.Status == domain.AgentError {
		return a.Status
	}
	if a.MaxConcurrentTasks > 0 && len(a.CurrentTasks) >= a.MaxConcurrentTasks {
		return domain.AgentBusy
	}
	return domain.AgentAvailable
}

func removeTask(tasks []string, taskID string) []string {
	out := tasks[:0]
	for _, t := range tasks {
		if t != taskID {
			out = append(out, t)
		}
	}
	return out
}

func containsTask(tasks []string, taskID string) bool {
	for _, t := range tasks {
		if t == taskID {
			return true
		}
	}
	return false
}
