package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/codeready-toolchain/taskcore/pkg/access"
	"github.com/codeready-toolchain/taskcore/pkg/config"
	"github.com/codeready-toolchain/taskcore/pkg/corerr"
	"github.com/codeready-toolchain/taskcore/pkg/domain"
	"github.com/codeready-toolchain/taskcore/pkg/scheduler"
)

const holderOrchestrator = "orchestrator"

// Policies is the narrow slice of TaskScheduler the orchestrator needs to
// apply the configured policy's agent-selection rule (spec §4.11 step 2).
// Satisfied by *scheduler.Scheduler.
type Policies interface {
	Schedule(policy config.SchedulerPolicy, in scheduler.Input) scheduler.Schedule
}

// GraphProvider supplies the current DependencyGraph for a project so
// critical_path/hybrid_optimal scoring can see which tasks sit on the
// critical path. A nil provider (or one returning nil) degrades those
// policies to their non-critical-path fallback ordering.
type GraphProvider interface {
	DependencyGraph(projectID string) *domain.DependencyGraph
}

// Orchestrator is the concrete AgentOrchestrator (spec §4.11, C11).
type Orchestrator struct {
	tasks             TaskStore
	agents            AgentStore
	locks             Locker
	transports        map[domain.TransportType]Dispatcher
	heartbeatInterval time.Duration
	scheduler         Policies
	policy            config.SchedulerPolicy
	graphs            GraphProvider
	log               *slog.Logger
}

// New constructs an Orchestrator. transports maps each declared
// domain.TransportType to the Dispatcher that serves it (spec §6: stdio,
// sse, websocket, http). sched and policy wire the configured
// TaskScheduler policy into agent selection (spec §4.11 step 2); graphs
// may be nil, in which case critical_path/hybrid_optimal scoring falls
// back to their non-critical-path ordering.
func New(tasks TaskStore, agents AgentStore, locks Locker, transports map[domain.TransportType]Dispatcher, heartbeatInterval time.Duration, sched Policies, policy config.SchedulerPolicy, graphs GraphProvider, log *slog.Logger) *Orchestrator {
	if log == nil {
		log = slog.Default()
	}
	if !policy.IsValid() {
		policy = config.PolicyHybridOptimal
	}
	return &Orchestrator{
		tasks:             tasks,
		agents:            agents,
		locks:             locks,
		transports:        transports,
		heartbeatInterval: heartbeatInterval,
		scheduler:         sched,
		policy:            policy,
		graphs:            graphs,
		log:               log,
	}
}

// Assign matches taskID to a capable available agent chosen by selectAgent
// (the scheduler's suggested agent if it qualifies, else the least-loaded
// one), mutates both records under AccessManager write locks, and dispatches the
// task over the agent's transport (spec §4.11 steps 1-5). On dispatch
// failure both mutations are rolled back.
func (o *Orchestrator) Assign(ctx context.Context, taskID string) (*AssignmentResult, error) {
	task, err := o.tasks.GetTask(taskID)
	if err != nil {
		return nil, err
	}

	candidate, err := o.selectAgent(task)
	if err != nil {
		return nil, err
	}

	taskLock, err := o.locks.Acquire(ctx, "task:"+task.ID, holderOrchestrator, access.ModeWrite)
	if err != nil {
		return nil, err
	}
	defer o.locks.Release(taskLock.ID)

	agentLock, err := o.locks.Acquire(ctx, "agent:"+candidate.ID, holderOrchestrator, access.ModeWrite)
	if err != nil {
		return nil, err
	}
	defer o.locks.Release(agentLock.ID)

	// Re-read under lock: the candidate snapshot used for selection may be
	// stale by the time both locks are held.
	agent, err := o.agents.GetAgent(candidate.ID)
	if err != nil {
		return nil, err
	}
	if agent.Status != domain.AgentAvailable && agent.Status != domain.AgentOnline {
		return nil, corerr.Conflict("agent " + agent.ID + " is no longer available")
	}
	if len(agent.CurrentTasks) >= agent.MaxConcurrentTasks {
		return nil, corerr.Conflict("agent " + agent.ID + " has no spare capacity")
	}

	prevTaskStatus, prevAssigned := task.Status, task.AssignedAgent
	prevAgentTasks := append([]string(nil), agent.CurrentTasks...)
	prevAgentStatus := agent.Status

	task.Status = domain.StatusInProgress
	task.AssignedAgent = agent.ID
	agent.CurrentTasks = append(agent.CurrentTasks, task.ID)
	if len(agent.CurrentTasks) >= agent.MaxConcurrentTasks {
		agent.Status = domain.AgentBusy
	}

	if err := o.tasks.UpdateTask(task); err != nil {
		return nil, err
	}
	if err := o.agents.UpdateAgent(agent); err != nil {
		task.Status, task.AssignedAgent = prevTaskStatus, prevAssigned
		_ = o.tasks.UpdateTask(task)
		return nil, err
	}

	dispatcher, ok := o.transports[agent.TransportType]
	if !ok {
		o.rollback(task, agent, prevTaskStatus, prevAssigned, prevAgentTasks, prevAgentStatus)
		return nil, corerr.TransportFailure(fmt.Sprintf("no dispatcher registered for transport %q", agent.TransportType), nil)
	}
	if err := dispatcher.Dispatch(ctx, agent, task); err != nil {
		o.rollback(task, agent, prevTaskStatus, prevAssigned, prevAgentTasks, prevAgentStatus)
		return nil, corerr.TransportFailure(fmt.Sprintf("dispatch to agent %q failed", agent.ID), err)
	}

	return &AssignmentResult{TaskID: task.ID, AgentID: agent.ID}, nil
}

// rollback undoes the task/agent mutations made before a failed dispatch
// (spec §4.11 step 5: "On dispatch failure, roll back both mutations").
func (o *Orchestrator) rollback(task *domain.AtomicTask, agent *domain.Agent, prevTaskStatus domain.Status, prevAssigned string, prevAgentTasks []string, prevAgentStatus domain.AgentStatus) {
	task.Status = prevTaskStatus
	task.AssignedAgent = prevAssigned
	agent.CurrentTasks = prevAgentTasks
	agent.Status = prevAgentStatus
	if err := o.tasks.UpdateTask(task); err != nil {
		o.log.Error("rollback: restore task failed", "taskId", task.ID, "error", err)
	}
	if err := o.agents.UpdateAgent(agent); err != nil {
		o.log.Error("rollback: restore agent failed", "agentId", agent.ID, "error", err)
	}
}

// selectAgent filters agents by status and capability superset, then
// applies the configured scheduler policy's agent-selection rule (spec
// §4.11 step 1-2): TaskScheduler.Schedule is asked to place this single
// task against the eligible roster, and its suggested AgentID is used
// when it names one of the eligible agents. Policies that don't produce
// an agent assignment of their own (priority_first, earliest_deadline,
// critical_path, shortest_job) fall back to the least-loaded eligible
// agent, tie-broken by agentId.
func (o *Orchestrator) selectAgent(task *domain.AtomicTask) (*domain.Agent, error) {
	required := []domain.Capability{requiredCapability(task)}
	eligible := make(map[string]*domain.Agent)
	var eligibleList []*domain.Agent
	for _, a := range o.agents.GetAllAgents() {
		if a.Status != domain.AgentAvailable && a.Status != domain.AgentOnline {
			continue
		}
		if len(a.CurrentTasks) >= a.MaxConcurrentTasks {
			continue
		}
		if !a.HasCapabilities(required) {
			continue
		}
		eligible[a.ID] = a
		eligibleList = append(eligibleList, a)
	}
	if len(eligibleList) == 0 {
		return nil, corerr.NotFound(fmt.Sprintf("no available agent with capability %q for task %q", required[0], task.ID))
	}

	if o.scheduler != nil {
		var graph *domain.DependencyGraph
		if o.graphs != nil {
			graph = o.graphs.DependencyGraph(task.ProjectID)
		}
		plan := o.scheduler.Schedule(o.policy, scheduler.Input{
			Ready:  []*domain.AtomicTask{task},
			Graph:  graph,
			Agents: eligibleList,
			Now:    time.Now(),
		})
		if entry, ok := plan[task.ID]; ok && entry.AgentID != "" {
			if agent, ok := eligible[entry.AgentID]; ok {
				return agent, nil
			}
		}
	}

	sort.Slice(eligibleList, func(i, j int) bool {
		li, lj := eligibleList[i].Load(), eligibleList[j].Load()
		if li != lj {
			return li < lj
		}
		return eligibleList[i].ID < eligibleList[j].ID
	})
	return eligibleList[0], nil
}

// SweepHeartbeats marks every agent whose last heartbeat exceeds
// 2*heartbeatInterval as offline and re-queues its current tasks to pending
// (spec §4.11 heartbeat timeout rule). Returns the requeued task IDs.
func (o *Orchestrator) SweepHeartbeats(ctx context.Context, now time.Time) ([]string, error) {
	stale := o.agents.StaleAgents(now, o.heartbeatInterval)
	var requeued []string
	for _, a := range stale {
		agentLock, err := o.locks.Acquire(ctx, "agent:"+a.ID, holderOrchestrator, access.ModeWrite)
		if err != nil {
			o.log.Error("sweep: lock agent failed", "agentId", a.ID, "error", err)
			continue
		}

		current, err := o.agents.GetAgent(a.ID)
		if err != nil {
			o.locks.Release(agentLock.ID)
			continue
		}
		tasks := current.CurrentTasks
		current.Status = domain.AgentOffline
		current.CurrentTasks = nil
		if err := o.agents.UpdateAgent(current); err != nil {
			o.log.Error("sweep: mark offline failed", "agentId", a.ID, "error", err)
		}
		o.locks.Release(agentLock.ID)

		for _, taskID := range tasks {
			if err := o.requeueTask(ctx, taskID); err != nil {
				o.log.Error("sweep: requeue task failed", "taskId", taskID, "error", err)
				continue
			}
			requeued = append(requeued, taskID)
		}
	}
	return requeued, nil
}

func (o *Orchestrator) requeueTask(ctx context.Context, taskID string) error {
	taskLock, err := o.locks.Acquire(ctx, "task:"+taskID, holderOrchestrator, access.ModeWrite)
	if err != nil {
		return err
	}
	defer o.locks.Release(taskLock.ID)

	task, err := o.tasks.GetTask(taskID)
	if err != nil {
		return err
	}
	task.Status = domain.StatusPending
	task.AssignedAgent = ""
	return o.tasks.UpdateTask(task)
}
