// Package registry implements AgentRegistry (spec §4.10, C10): the
// authoritative agent list with capabilities, transports, and load,
// indexed by sessionId for transport-level lookup.
package registry

import (
	"sync"
	"time"

	"github.com/codeready-toolchain/taskcore/pkg/corerr"
	"github.com/codeready-toolchain/taskcore/pkg/domain"
)

// Registry is the concrete AgentRegistry. A single RWMutex guards both maps
// since registry mutation is rare relative to lookups (spec §5: "AgentRegistry
// and AgentOrchestrator maps are each single-writer").
type Registry struct {
	mu          sync.RWMutex
	agents      map[string]*domain.Agent
	bySessionID map[string]string // sessionId -> agentId
}

// New constructs an empty Registry.
func New() *Registry {
	return &Registry{
		agents:      make(map[string]*domain.Agent),
		bySessionID: make(map[string]string),
	}
}

// Register adds a new agent, or updates an existing one in place when the
// incoming registration carries the same agentId and a newer LastSeen
// (spec §4.10: "rejects duplicate agentId unless the incoming registration
// updates").
func (r *Registry) Register(a *domain.Agent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, found := r.agents[a.ID]
	if found && !a.LastSeen.After(existing.LastSeen) {
		return corerr.Conflict("agent " + a.ID + " already registered with a newer or equal lastSeen")
	}

	if a.RegisteredAt.IsZero() {
		a.RegisteredAt = time.Now()
	}
	r.agents[a.ID] = a
	if a.SessionID != "" {
		r.bySessionID[a.SessionID] = a.ID
	}
	return nil
}

// Deregister removes an agent from the registry.
func (r *Registry) Deregister(agentID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.agents[agentID]
	if !ok {
		return corerr.NotFound("agent " + agentID + " not found")
	}
	delete(r.agents, agentID)
	if a.SessionID != "" {
		delete(r.bySessionID, a.SessionID)
	}
	return nil
}

// GetAgent returns a copy of the agent record.
func (r *Registry) GetAgent(agentID string) (*domain.Agent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.agents[agentID]
	if !ok {
		return nil, corerr.NotFound("agent " + agentID + " not found")
	}
	cp := *a
	return &cp, nil
}

// GetBySessionID resolves a transport-level sessionId to its agent.
func (r *Registry) GetBySessionID(sessionID string) (*domain.Agent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	agentID, ok := r.bySessionID[sessionID]
	if !ok {
		return nil, corerr.NotFound("no agent registered for session " + sessionID)
	}
	cp := *r.agents[agentID]
	return &cp, nil
}

// GetAllAgents returns a snapshot slice of every registered agent.
func (r *Registry) GetAllAgents() []*domain.Agent {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*domain.Agent, 0, len(r.agents))
	for _, a := range r.agents {
		cp := *a
		out = append(out, &cp)
	}
	return out
}

// UpdateAgentStatus transitions an agent's status.
func (r *Registry) UpdateAgentStatus(agentID string, status domain.AgentStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.agents[agentID]
	if !ok {
		return corerr.NotFound("agent " + agentID + " not found")
	}
	a.Status = status
	return nil
}

// UpdateAgent replaces a previously registered agent's full record, used by
// the orchestrator after mutating status/currentTasks (spec §4.11 step 4).
func (r *Registry) UpdateAgent(a *domain.Agent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.agents[a.ID]; !ok {
		return corerr.NotFound("agent " + a.ID + " not found")
	}
	r.agents[a.ID] = a
	if a.SessionID != "" {
		r.bySessionID[a.SessionID] = a.ID
	}
	return nil
}

// Heartbeat refreshes an agent's liveness timestamps.
func (r *Registry) Heartbeat(agentID string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.agents[agentID]
	if !ok {
		return corerr.NotFound("agent " + agentID + " not found")
	}
	a.LastSeen = at
	a.LastHeartbeat = at
	return nil
}

// StaleAgents returns every agent whose LastHeartbeat is older than
// 2*heartbeatInterval relative to now (spec §4.11 heartbeat timeout rule),
// for the orchestrator's heartbeat sweep.
func (r *Registry) StaleAgents(now time.Time, heartbeatInterval time.Duration) []*domain.Agent {
	r.mu.RLock()
	defer r.mu.RUnlock()
	threshold := 2 * heartbeatInterval
	var out []*domain.Agent
	for _, a := range r.agents {
		if a.Status == domain.AgentOffline {
			continue
		}
		if now.Sub(a.LastHeartbeat) > threshold {
			cp := *a
			out = append(out, &cp)
		}
	}
	return out
}
