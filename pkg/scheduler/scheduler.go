// Package scheduler implements TaskScheduler (spec §4.9, C9): producing an
// execution plan for a ready task set under one of six pluggable policies.
// Scoring and sorting are pure functions over DAG/agent-roster snapshots —
// no goroutines, no channels — so Schedule is deterministic and idempotent
// given fixed input (spec §4.9: "re-invocation must yield identical output
// modulo timestamps"), matching the teacher's preference for synchronous,
// testable scoring functions ahead of any concurrent dispatch.
package scheduler

import (
	"sort"
	"time"

	"github.com/codeready-toolchain/taskcore/pkg/config"
	"github.com/codeready-toolchain/taskcore/pkg/domain"
)

// Entry is one task's assignment in a Schedule (spec §4.9).
type Entry struct {
	AgentID          string
	ScheduledAt      time.Time
	ExpectedDuration time.Duration
}

// Schedule maps taskId -> assignment (spec §4.9).
type Schedule map[string]Entry

// Input bundles everything a policy needs. Graph and Agents are optional:
// policies that don't need them (priority_first, shortest_job) simply
// ignore a nil value.
type Input struct {
	Ready     []*domain.AtomicTask
	Graph     *domain.DependencyGraph // for critical_path
	Agents    []*domain.Agent         // for resource_balanced, hybrid_optimal
	Deadlines map[string]time.Time    // for earliest_deadline; absent entries treated as +Inf
	Now       time.Time
}

// Scheduler is the concrete TaskScheduler.
type Scheduler struct{}

// New constructs a Scheduler.
func New() *Scheduler { return &Scheduler{} }

// Schedule produces an execution plan for in.Ready under policy (spec
// §4.9). The result's key set always equals the ready set, regardless of
// policy or agent availability — an unassignable task still gets a
// scheduledAt/expectedDuration slot with an empty AgentID.
func (s *Scheduler) Schedule(policy config.SchedulerPolicy, in Input) Schedule {
	order := s.order(policy, in)

	out := make(Schedule, len(order))
	rr := newRoundRobin(in.Agents)
	for _, t := range order {
		entry := Entry{
			ScheduledAt:      in.Now,
			ExpectedDuration: hoursToDuration(t.EstimatedHours),
		}
		if needsAgentAssignment(policy) {
			if agentID, ok := rr.assign(t); ok {
				entry.AgentID = agentID
			}
		}
		out[t.ID] = entry
	}
	return out
}

func needsAgentAssignment(policy config.SchedulerPolicy) bool {
	return policy == config.PolicyResourceBalanced || policy == config.PolicyHybridOptimal
}

// order dispatches to the policy-specific ordering function (spec §4.9).
func (s *Scheduler) order(policy config.SchedulerPolicy, in Input) []*domain.AtomicTask {
	switch policy {
	case config.PolicyPriorityFirst:
		return priorityFirst(in.Ready)
	case config.PolicyEarliestDeadline:
		return earliestDeadline(in.Ready, in.Deadlines)
	case config.PolicyCriticalPath:
		return criticalPathFirst(in.Ready, in.Graph)
	case config.PolicyResourceBalanced:
		return resourceBalanced(in.Ready, in.Agents)
	case config.PolicyShortestJob:
		return shortestJob(in.Ready)
	case config.PolicyHybridOptimal:
		return hybridOptimal(in.Ready, in.Graph, in.Agents)
	default:
		return priorityFirst(in.Ready)
	}
}

func hoursToDuration(hours float64) time.Duration {
	return time.Duration(hours * float64(time.Hour))
}

func stableByID(tasks []*domain.AtomicTask, less func(a, b *domain.AtomicTask) bool) []*domain.AtomicTask {
	out := make([]*domain.AtomicTask, len(tasks))
	copy(out, tasks)
	sort.SliceStable(out, func(i, j int) bool {
		if less(out[i], out[j]) {
			return true
		}
		if less(out[j], out[i]) {
			return false
		}
		return out[i].ID < out[j].ID
	})
	return out
}
