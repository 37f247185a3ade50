package orchestrator

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeready-toolchain/taskcore/pkg/access"
	"github.com/codeready-toolchain/taskcore/pkg/config"
	"github.com/codeready-toolchain/taskcore/pkg/corerr"
	"github.com/codeready-toolchain/taskcore/pkg/domain"
	"github.com/codeready-toolchain/taskcore/pkg/scheduler"
)

type memTasks struct {
	mu    sync.Mutex
	tasks map[string]*domain.AtomicTask
}

func newMemTasks(tasks ...*domain.AtomicTask) *memTasks {
	m := &memTasks{tasks: make(map[string]*domain.AtomicTask)}
	for _, t := range tasks {
		m.tasks[t.ID] = t
	}
	return m
}

func (m *memTasks) GetTask(id string) (*domain.AtomicTask, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[id]
	if !ok {
		return nil, corerr.NotFound("task " + id + " not found")
	}
	cp := *t
	return &cp, nil
}

func (m *memTasks) UpdateTask(t *domain.AtomicTask) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *t
	m.tasks[t.ID] = &cp
	return nil
}

type memAgents struct {
	mu     sync.Mutex
	agents map[string]*domain.Agent
}

func newMemAgents(agents ...*domain.Agent) *memAgents {
	m := &memAgents{agents: make(map[string]*domain.Agent)}
	for _, a := range agents {
		m.agents[a.ID] = a
	}
	return m
}

func (m *memAgents) GetAllAgents() []*domain.Agent {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*domain.Agent, 0, len(m.agents))
	for _, a := range m.agents {
		cp := *a
		out = append(out, &cp)
	}
	return out
}

func (m *memAgents) GetAgent(id string) (*domain.Agent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.agents[id]
	if !ok {
		return nil, corerr.NotFound("agent " + id + " not found")
	}
	cp := *a
	return &cp, nil
}

func (m *memAgents) UpdateAgentStatus(id string, status domain.AgentStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.agents[id]
	if !ok {
		return corerr.NotFound("agent " + id + " not found")
	}
	a.Status = status
	return nil
}

func (m *memAgents) UpdateAgent(a *domain.Agent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.agents[a.ID]; !ok {
		return corerr.NotFound("agent " + a.ID + " not found")
	}
	cp := *a
	m.agents[a.ID] = &cp
	return nil
}

func (m *memAgents) StaleAgents(now time.Time, heartbeatInterval time.Duration) []*domain.Agent {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.Agent
	for _, a := range m.agents {
		if a.Status == domain.AgentOffline {
			continue
		}
		if now.Sub(a.LastHeartbeat) > 2*heartbeatInterval {
			cp := *a
			out = append(out, &cp)
		}
	}
	return out
}

type fakeDispatcher struct {
	fail bool
}

func (f *fakeDispatcher) Dispatch(_ context.Context, _ *domain.Agent, _ *domain.AtomicTask) error {
	if f.fail {
		return errors.New("dispatch refused")
	}
	return nil
}

func testLocks(t *testing.T) *access.Manager {
	t.Helper()
	m, err := access.New(config.AccessConfig{DefaultLockTimeout: time.Second}, "")
	require.NoError(t, err)
	return m
}

func TestAssign_HappyPath(t *testing.T) {
	task := &domain.AtomicTask{ID: "T1", Type: domain.TaskTypeDevelopment, Status: domain.StatusPending}
	agent := &domain.Agent{ID: "A1", Status: domain.AgentAvailable, MaxConcurrentTasks: 2, Capabilities: []domain.Capability{domain.CapabilityBackend}, TransportType: domain.TransportHTTP}

	tasks := newMemTasks(task)
	agents := newMemAgents(agent)
	o := New(tasks, agents, testLocks(t), map[domain.TransportType]Dispatcher{domain.TransportHTTP: &fakeDispatcher{}}, 15*time.Second, scheduler.New(), config.PolicyPriorityFirst, nil, nil)

	res, err := o.Assign(context.Background(), "T1")
	require.NoError(t, err)
	assert.Equal(t, "A1", res.AgentID)

	gotTask, _ := tasks.GetTask("T1")
	assert.Equal(t, domain.StatusInProgress, gotTask.Status)
	assert.Equal(t, "A1", gotTask.AssignedAgent)

	gotAgent, _ := agents.GetAgent("A1")
	assert.Contains(t, gotAgent.CurrentTasks, "T1")
}

func TestAssign_NoEligibleAgentCapability(t *testing.T) {
	task := &domain.AtomicTask{ID: "T1", Type: domain.TaskTypeDevelopment, Status: domain.StatusPending}
	agent := &domain.Agent{ID: "A1", Status: domain.AgentAvailable, MaxConcurrentTasks: 1, Capabilities: []domain.Capability{domain.CapabilityFrontend}, TransportType: domain.TransportHTTP}

	o := New(newMemTasks(task), newMemAgents(agent), testLocks(t), map[domain.TransportType]Dispatcher{domain.TransportHTTP: &fakeDispatcher{}}, 15*time.Second, scheduler.New(), config.PolicyPriorityFirst, nil, nil)
	_, err := o.Assign(context.Background(), "T1")
	require.Error(t, err)
	kind, ok := corerr.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, corerr.KindNotFound, kind)
}

func TestAssign_RollsBackOnDispatchFailure(t *testing.T) {
	task := &domain.AtomicTask{ID: "T1", Type: domain.TaskTypeDevelopment, Status: domain.StatusPending}
	agent := &domain.Agent{ID: "A1", Status: domain.AgentAvailable, MaxConcurrentTasks: 2, Capabilities: []domain.Capability{domain.CapabilityBackend}, TransportType: domain.TransportHTTP}

	tasks := newMemTasks(task)
	agents := newMemAgents(agent)
	o := New(tasks, agents, testLocks(t), map[domain.TransportType]Dispatcher{domain.TransportHTTP: &fakeDispatcher{fail: true}}, 15*time.Second, scheduler.New(), config.PolicyPriorityFirst, nil, nil)

	_, err := o.Assign(context.Background(), "T1")
	require.Error(t, err)

	gotTask, _ := tasks.GetTask("T1")
	assert.Equal(t, domain.StatusPending, gotTask.Status)
	assert.Empty(t, gotTask.AssignedAgent)

	gotAgent, _ := agents.GetAgent("A1")
	assert.NotContains(t, gotAgent.CurrentTasks, "T1")
	assert.Equal(t, domain.AgentAvailable, gotAgent.Status)
}

func TestSweepHeartbeats_RequeuesTasksFromStaleAgent(t *testing.T) {
	task := &domain.AtomicTask{ID: "T1", Status: domain.StatusInProgress, AssignedAgent: "A1"}
	agent := &domain.Agent{
		ID: "A1", Status: domain.AgentBusy, MaxConcurrentTasks: 1,
		CurrentTasks:  []string{"T1"},
		LastHeartbeat: time.Now().Add(-time.Hour),
	}

	tasks := newMemTasks(task)
	agents := newMemAgents(agent)
	o := New(tasks, agents, testLocks(t), nil, 15*time.Second, scheduler.New(), config.PolicyPriorityFirst, nil, nil)

	requeued, err := o.SweepHeartbeats(context.Background(), time.Now())
	require.NoError(t, err)
	assert.Equal(t, []string{"T1"}, requeued)

	gotTask, _ := tasks.GetTask("T1")
	assert.Equal(t, domain.StatusPending, gotTask.Status)
	assert.Empty(t, gotTask.AssignedAgent)

	gotAgent, _ := agents.GetAgent("A1")
	assert.Equal(t, domain.AgentOffline, gotAgent.Status)
	assert.Empty(t, gotAgent.CurrentTasks)
}

// fakeScheduler is a stub Policies implementation that always names a
// single fixed agent as the plan's choice, regardless of load, letting a
// test tell the scheduler's suggestion apart from the least-loaded
// fallback (spec §4.11 step 2: "Apply scheduler policy's agent-selection
// rule").
type fakeScheduler struct {
	agentID string
	calls   int
}

func (f *fakeScheduler) Schedule(_ config.SchedulerPolicy, in scheduler.Input) scheduler.Schedule {
	f.calls++
	out := make(scheduler.Schedule, len(in.Ready))
	for _, task := range in.Ready {
		out[task.ID] = scheduler.Entry{AgentID: f.agentID, ScheduledAt: in.Now}
	}
	return out
}

// TestAssign_UsesSchedulerSuggestedAgentOverLeastLoaded proves selectAgent
// defers to the configured TaskScheduler's placement instead of always
// picking the least-loaded agent: A2 carries more load than A1 but is the
// scheduler's pick, so Assign must still land on A2.
func TestAssign_UsesSchedulerSuggestedAgentOverLeastLoaded(t *testing.T) {
	task := &domain.AtomicTask{ID: "T1", Type: domain.TaskTypeDevelopment, Status: domain.StatusPending}
	a1 := &domain.Agent{ID: "A1", Status: domain.AgentAvailable, MaxConcurrentTasks: 4, Capabilities: []domain.Capability{domain.CapabilityBackend}, TransportType: domain.TransportHTTP}
	a2 := &domain.Agent{ID: "A2", Status: domain.AgentAvailable, MaxConcurrentTasks: 4, CurrentTasks: []string{"X1", "X2"}, Capabilities: []domain.Capability{domain.CapabilityBackend}, TransportType: domain.TransportHTTP}

	tasks := newMemTasks(task)
	agents := newMemAgents(a1, a2)
	sched := &fakeScheduler{agentID: "A2"}
	o := New(tasks, agents, testLocks(t), map[domain.TransportType]Dispatcher{domain.TransportHTTP: &fakeDispatcher{}}, 15*time.Second, sched, config.PolicyHybridOptimal, nil, nil)

	res, err := o.Assign(context.Background(), "T1")
	require.NoError(t, err)
	assert.Equal(t, "A2", res.AgentID)
	assert.Equal(t, 1, sched.calls)
}

// TestAssign_IgnoresSchedulerSuggestionOutsideEligibleSet falls back to the
// least-loaded eligible agent when the scheduler names an agent that isn't
// in the eligible roster (wrong capability, over capacity, or simply
// absent from the plan).
func TestAssign_IgnoresSchedulerSuggestionOutsideEligibleSet(t *testing.T) {
	task := &domain.AtomicTask{ID: "T1", Type: domain.TaskTypeDevelopment, Status: domain.StatusPending}
	agent := &domain.Agent{ID: "A1", Status: domain.AgentAvailable, MaxConcurrentTasks: 2, Capabilities: []domain.Capability{domain.CapabilityBackend}, TransportType: domain.TransportHTTP}

	tasks := newMemTasks(task)
	agents := newMemAgents(agent)
	sched := &fakeScheduler{agentID: "does-not-exist"}
	o := New(tasks, agents, testLocks(t), map[domain.TransportType]Dispatcher{domain.TransportHTTP: &fakeDispatcher{}}, 15*time.Second, sched, config.PolicyHybridOptimal, nil, nil)

	res, err := o.Assign(context.Background(), "T1")
	require.NoError(t, err)
	assert.Equal(t, "A1", res.AgentID)
}
