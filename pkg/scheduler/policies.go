package scheduler

import (
	"math"
	"sort"
	"time"

	"github.com/codeready-toolchain/taskcore/pkg/domain"
)

// priorityFirst orders by (priority desc, createdAt asc), tie-broken by
// taskId (spec §4.9).
func priorityFirst(tasks []*domain.AtomicTask) []*domain.AtomicTask {
	return stableByID(tasks, func(a, b *domain.AtomicTask) bool {
		if a.Priority.Rank() != b.Priority.Rank() {
			return a.Priority.Rank() > b.Priority.Rank()
		}
		return a.Metadata.CreatedAt.Before(b.Metadata.CreatedAt)
	})
}

// earliestDeadline orders by deadline asc; tasks absent from deadlines
// sort after every task with a known deadline (spec §4.9: "absent deadline
// >> infinity").
func earliestDeadline(tasks []*domain.AtomicTask, deadlines map[string]time.Time) []*domain.AtomicTask {
	deadlineOf := func(t *domain.AtomicTask) time.Time {
		if d, ok := deadlines[t.ID]; ok {
			return d
		}
		return time.Unix(1<<62, 0)
	}
	return stableByID(tasks, func(a, b *domain.AtomicTask) bool {
		return deadlineOf(a).Before(deadlineOf(b))
	})
}

// criticalPathFirst prefers tasks on the current critical path, then falls
// back to priorityFirst ordering (spec §4.9).
func criticalPathFirst(tasks []*domain.AtomicTask, graph *domain.DependencyGraph) []*domain.AtomicTask {
	onCP := func(t *domain.AtomicTask) bool {
		if graph == nil {
			return false
		}
		n, ok := graph.Nodes[t.ID]
		return ok && n.CriticalPath
	}
	return stableByID(tasks, func(a, b *domain.AtomicTask) bool {
		aCP, bCP := onCP(a), onCP(b)
		if aCP != bCP {
			return aCP
		}
		if a.Priority.Rank() != b.Priority.Rank() {
			return a.Priority.Rank() > b.Priority.Rank()
		}
		return a.Metadata.CreatedAt.Before(b.Metadata.CreatedAt)
	})
}

// resourceBalanced orders tasks by ascending estimated hours (so the
// lightest work is assigned first, spreading load fastest); actual agent
// assignment happens in roundRobin.assign, which picks the least-loaded
// agent with spare capacity, round-robin among ties, without checking
// capabilities.
func resourceBalanced(tasks []*domain.AtomicTask, _ []*domain.Agent) []*domain.AtomicTask {
	return stableByID(tasks, func(a, b *domain.AtomicTask) bool {
		return a.EstimatedHours < b.EstimatedHours
	})
}

// shortestJob orders by estimatedHours asc (spec §4.9).
func shortestJob(tasks []*domain.AtomicTask) []*domain.AtomicTask {
	return stableByID(tasks, func(a, b *domain.AtomicTask) bool {
		return a.EstimatedHours < b.EstimatedHours
	})
}

// hybridOptimal combines priority, critical-path membership, job length,
// and resource balance into a single weighted score (spec §4.9:
// "0.4*priority + 0.3*criticalPath + 0.2*shortestJob + 0.1*resourceBalance"),
// deterministic tie-break by taskId.
func hybridOptimal(tasks []*domain.AtomicTask, graph *domain.DependencyGraph, agents []*domain.Agent) []*domain.AtomicTask {
	maxHours := 0.0
	for _, t := range tasks {
		if t.EstimatedHours > maxHours {
			maxHours = t.EstimatedHours
		}
	}
	avgLoad := averageAgentLoad(agents)

	score := func(t *domain.AtomicTask) float64 {
		priorityScore := float64(t.Priority.Rank()) / 3.0

		cpScore := 0.0
		if graph != nil {
			if n, ok := graph.Nodes[t.ID]; ok && n.CriticalPath {
				cpScore = 1.0
			}
		}

		shortestScore := 1.0
		if maxHours > 0 {
			shortestScore = 1.0 - (t.EstimatedHours / maxHours)
		}

		// resourceScore rewards tasks when the roster has below-average
		// load overall (a coarse, task-independent resource signal — the
		// per-task agent pick itself happens in roundRobin.assign).
		resourceScore := 1.0 - avgLoad

		return 0.4*priorityScore + 0.3*cpScore + 0.2*shortestScore + 0.1*resourceScore
	}

	scored := make([]*domain.AtomicTask, len(tasks))
	copy(scored, tasks)
	sort.SliceStable(scored, func(i, j int) bool {
		si, sj := score(scored[i]), score(scored[j])
		if math.Abs(si-sj) > 1e-9 {
			return si > sj
		}
		return scored[i].ID < scored[j].ID
	})
	return scored
}

func averageAgentLoad(agents []*domain.Agent) float64 {
	if len(agents) == 0 {
		return 0
	}
	var sum float64
	for _, a := range agents {
		sum += a.Load()
	}
	return sum / float64(len(agents))
}
