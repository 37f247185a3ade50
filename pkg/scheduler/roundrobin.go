package scheduler

import "github.com/codeready-toolchain/taskcore/pkg/domain"

// roundRobin assigns each scheduled task to the least-loaded agent with
// spare capacity, breaking ties round-robin; it does not check the agent's
// capabilities against the task (see assign). It tracks a
// running "assigned" count per agent so a single Schedule call spreads
// several tasks across agents instead of piling them on whichever agent
// looked least loaded before any assignment happened.
type roundRobin struct {
	agents   []*domain.Agent
	assigned map[string]int
	cursor   int
}

func newRoundRobin(agents []*domain.Agent) *roundRobin {
	assigned := make(map[string]int, len(agents))
	for _, a := range agents {
		assigned[a.ID] = 0
	}
	return &roundRobin{agents: agents, assigned: assigned}
}

// assign picks the least-loaded agent among those with spare capacity,
// regardless of task capability requirements (capability matching is the
// AgentOrchestrator's job, spec §4.11 step 1; the scheduler only produces a
// provisional assignment hint).
func (r *roundRobin) assign(_ *domain.AtomicTask) (string, bool) {
	if len(r.agents) == 0 {
		return "", false
	}

	best := -1
	bestLoad := 2.0 // Load() is in [0,1]; anything is better than 2.0
	n := len(r.agents)
	for i := 0; i < n; i++ {
		idx := (r.cursor + i) % n
		a := r.agents[idx]
		projected := a.Load() + float64(r.assigned[a.ID])/float64(maxInt(a.MaxConcurrentTasks, 1))
		if len(a.CurrentTasks)+r.assigned[a.ID] >= a.MaxConcurrentTasks {
			continue
		}
		if projected < bestLoad {
			bestLoad = projected
			best = idx
		}
	}
	if best == -1 {
		return "", false
	}
	r.assigned[r.agents[best].ID]++
	r.cursor = (best + 1) % n
	return r.agents[best].ID, true
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
