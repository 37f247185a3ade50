// Package integration exercises spec §8's scenarios S1-S6 against the real
// composition: actual StorageEngine, AccessManager, EpicResolver,
// DependencyOps, RDDEngine, TaskScheduler, and Orchestrator instances wired
// together the way cmd/taskcorectl assembles them, not per-package mocks.
// Only the oracle LLM client (out of scope, spec §1) and agent transport
// dispatch are test doubles.
package integration

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeready-toolchain/taskcore/pkg/access"
	"github.com/codeready-toolchain/taskcore/pkg/agent/orchestrator"
	"github.com/codeready-toolchain/taskcore/pkg/agent/registry"
	"github.com/codeready-toolchain/taskcore/pkg/atomic"
	"github.com/codeready-toolchain/taskcore/pkg/config"
	"github.com/codeready-toolchain/taskcore/pkg/corerr"
	"github.com/codeready-toolchain/taskcore/pkg/dependency"
	"github.com/codeready-toolchain/taskcore/pkg/domain"
	"github.com/codeready-toolchain/taskcore/pkg/epic"
	"github.com/codeready-toolchain/taskcore/pkg/ids"
	"github.com/codeready-toolchain/taskcore/pkg/oracle"
	"github.com/codeready-toolchain/taskcore/pkg/pathvalidator"
	"github.com/codeready-toolchain/taskcore/pkg/rdd"
	"github.com/codeready-toolchain/taskcore/pkg/scheduler"
	"github.com/codeready-toolchain/taskcore/pkg/storage"
)

// harness wires the real composition rooted at a scratch directory, mirroring
// cmd/taskcorectl's assembly order.
type harness struct {
	t       *testing.T
	storage *storage.Engine
	access  *access.Manager
	idGen   *ids.Generator
	epics   *epic.Resolver
	deps    *dependency.Ops
	oracle  *oracle.TestDouble
	rdd     *rdd.Engine
	sched   *scheduler.Scheduler
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	root := t.TempDir()

	validator, err := pathvalidator.New(root, root)
	require.NoError(t, err)

	storageEngine, err := storage.NewEngine(config.StorageConfig{
		ReadRoot:     root,
		WriteRoot:    root,
		HotCacheSize: 100,
		SecurityMode: config.SecurityModeStrict,
	}, validator)
	require.NoError(t, err)

	accessManager, err := access.New(config.AccessConfig{DefaultLockTimeout: 5 * time.Second, MaxLockTimeout: 30 * time.Second}, "")
	require.NoError(t, err)

	gen := ids.New()
	epicResolver := epic.New(storageEngine, gen)
	depOps := dependency.New(storageEngine, gen)
	oracleDouble := oracle.NewTestDouble()
	atomicDetector := atomic.New(oracleDouble, nil)
	rddEngine := rdd.New(config.RDDConfig{MaxDepth: 3, AtomicConfidenceFloor: 0.9, ConvergenceTolerance: 0.25}, atomicDetector, oracleDouble, epicResolver, gen, storageEngine, 4, nil)

	return &harness{
		t:       t,
		storage: storageEngine,
		access:  accessManager,
		idGen:   gen,
		epics:   epicResolver,
		deps:    depOps,
		oracle:  oracleDouble,
		rdd:     rddEngine,
		sched:   scheduler.New(),
	}
}

// resolveProject finds or creates a Project by name, standing in for the
// (out-of-scope) utterance-to-project resolution step of createTaskFromIntent.
func (h *harness) resolveProject(name string) *domain.Project {
	h.t.Helper()
	for _, id := range h.storage.ListProjects() {
		p, err := h.storage.GetProject(id)
		if err == nil && p.Name == name {
			return p
		}
	}
	id, err := h.idGen.Project(name, h.storage.ProjectExists)
	require.NoError(h.t, err)
	p := &domain.Project{ID: id, Name: name, Status: domain.StatusPending, Priority: domain.PriorityMedium}
	require.NoError(h.t, h.storage.CreateProject(p))
	return p
}

// TestS1_IntentRecognizedTaskPersisted mirrors spec §8 S1: an utterance
// recognized as create_task with a project name and title resolves to a
// persisted task with a unique ID, pending status, and a real (non-
// scaffolding) epic.
func TestS1_IntentRecognizedTaskPersisted(t *testing.T) {
	h := newHarness(t)
	h.oracle.QueueIntent(&oracle.IntentResult{
		Intent:     oracle.IntentCreateTask,
		Confidence: 0.85,
		Parameters: map[string]any{"projectName": "Web App", "title": "authentication"},
	}, nil)

	intent, err := h.oracle.RecognizeIntent(context.Background(), `Create a task called authentication for Web App`, nil)
	require.NoError(t, err)
	require.Equal(t, oracle.IntentCreateTask, intent.Intent)

	projectName := intent.Parameters["projectName"].(string)
	title := intent.Parameters["title"].(string)

	project := h.resolveProject(projectName)

	resolved, err := h.epics.Resolve(epic.ResolveInput{
		ProjectID:   project.ID,
		TaskContext: epic.TaskContext{Title: title, Tags: []string{"auth"}},
	})
	require.NoError(t, err)
	assert.False(t, ids.IsForbiddenEpicID(resolved.EpicID))
	assert.NotEqual(t, "default-epic", resolved.EpicID)
	assert.NotEqual(t, "E001", resolved.EpicID)

	taskID, err := h.idGen.Task(project.ID, resolved.EpicID, h.storage.TaskExists)
	require.NoError(t, err)

	task := &domain.AtomicTask{
		ID: taskID, Title: title, Status: domain.StatusPending,
		Priority: domain.PriorityMedium, Type: domain.TaskTypeDevelopment,
		ProjectID: project.ID, EpicID: resolved.EpicID,
		AcceptanceCriteria: []domain.AcceptanceCriterion{{Description: "authenticates a user"}},
	}
	require.NoError(t, h.storage.CreateTask(task))

	got, err := h.storage.GetTask(taskID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, got.Status)
	assert.NotEmpty(t, got.ID)
}

// TestS2_DecompositionConvergence mirrors spec §8 S2 end to end through the
// real RDDEngine: a non-atomic root at depth 0 with estimatedHours:0.2
// decomposes into two children, both atomic at depth 1.
func TestS2_DecompositionConvergence(t *testing.T) {
	h := newHarness(t)

	project := h.resolveProject("Web App")
	root := &domain.AtomicTask{
		Title: "Implement Email Notification System", EstimatedHours: 0.2,
		ProjectID: project.ID,
		AcceptanceCriteria: []domain.AcceptanceCriterion{{Description: "sends email"}},
	}

	h.oracle.QueueAtomic(&oracle.AtomicResult{IsAtomic: false, Confidence: 0.4}, nil)
	h.oracle.QueueDecompose(&oracle.DecomposeResult{Tasks: []oracle.ChildTask{
		{Title: "Write email template", Description: "build template", EstimatedHours: 0.1, AcceptanceCriteria: []string{"renders"}, Priority: "medium"},
		{Title: "Send via SMTP", Description: "wire smtp client", EstimatedHours: 0.1, AcceptanceCriteria: []string{"delivers"}, Priority: "medium"},
	}}, nil)
	h.oracle.QueueAtomic(&oracle.AtomicResult{IsAtomic: true, Confidence: 0.98}, nil)
	h.oracle.QueueAtomic(&oracle.AtomicResult{IsAtomic: true, Confidence: 0.98}, nil)

	out, err := h.rdd.Decompose(context.Background(), root, 0, nil)
	require.NoError(t, err)

	assert.True(t, out.Success)
	assert.False(t, out.IsAtomic)
	require.Len(t, out.SubTasks, 2)
	for _, st := range out.SubTasks {
		assert.Len(t, st.AcceptanceCriteria, 1)
		assert.GreaterOrEqual(t, st.EstimatedHours, 0.08)
		assert.LessOrEqual(t, st.EstimatedHours, 0.17)
		require.NoError(t, h.storage.CreateTask(st))
	}
}

// TestS3_CycleRejectedNoStateChange mirrors spec §8 S3: given A -> B,
// attempting B -> A is rejected as a cycle and leaves on-disk state
// untouched.
func TestS3_CycleRejectedNoStateChange(t *testing.T) {
	h := newHarness(t)
	project := h.resolveProject("Web App")

	a := &domain.AtomicTask{ID: "A", Title: "A", ProjectID: project.ID, Status: domain.StatusPending, EpicID: "P1-auth-epic"}
	b := &domain.AtomicTask{ID: "B", Title: "B", ProjectID: project.ID, Status: domain.StatusPending, EpicID: "P1-auth-epic"}
	require.NoError(t, h.storage.CreateTask(a))
	require.NoError(t, h.storage.CreateTask(b))

	_, err := h.deps.CreateDependency(dependency.CreateDependencyInput{FromTaskID: "A", ToTaskID: "B", Type: domain.DependencyBlocks})
	require.NoError(t, err)

	_, err = h.deps.CreateDependency(dependency.CreateDependencyInput{FromTaskID: "B", ToTaskID: "A", Type: domain.DependencyBlocks})
	require.Error(t, err)
	kind, ok := corerr.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, corerr.KindCycleDetected, kind)
	assert.Contains(t, err.Error(), "A")
	assert.Contains(t, err.Error(), "B")

	gotA, err := h.storage.GetTask("A")
	require.NoError(t, err)
	assert.Empty(t, gotA.Dependents)
	gotB, err := h.storage.GetTask("B")
	require.NoError(t, err)
	assert.Equal(t, []string{"B"}, gotA.Dependencies)
	assert.Equal(t, []string{"A"}, gotB.Dependents)
	assert.Empty(t, gotB.Dependencies)
}

// TestS4_ScaffoldingEpicRejected mirrors spec §8 S4: resolving an epic
// context for a project that already has a matching functional-area epic
// returns that epic unmodified, never a scaffolding placeholder ID.
func TestS4_ScaffoldingEpicRejected(t *testing.T) {
	h := newHarness(t)
	project := h.resolveProject("P1")

	existing := &domain.Epic{ID: "P1-auth-epic", ProjectID: project.ID, Title: "Auth"}
	require.NoError(t, h.storage.CreateEpic(existing))

	result, err := h.epics.Resolve(epic.ResolveInput{
		ProjectID:   project.ID,
		TaskContext: epic.TaskContext{FunctionalArea: "auth"},
	})
	require.NoError(t, err)
	assert.Equal(t, "P1-auth-epic", result.EpicID)
	assert.False(t, result.Created)
	assert.NotEqual(t, "E001", result.EpicID)
	assert.NotEqual(t, "E002", result.EpicID)
	assert.NotEqual(t, "E003", result.EpicID)
}

// TestS5_SchedulingSixAlgorithms mirrors spec §8 S5: given T1 (critical,
// 3h, no deps), T2 (high, 2h, depends on T1), T3 (low, 1h, no deps), every
// one of the six policies yields a schedule of size 3; with the ready set
// filtered to {T1, T3} at t=0 (T2 is blocked on T1), shortest_job schedules
// exactly those two. A Schedule is a map keyed by task ID whose entries all
// carry the same ScheduledAt, so the order a policy produces is not
// observable in it and is not asserted here.
func TestS5_SchedulingSixAlgorithms(t *testing.T) {
	now := time.Now()
	t1 := &domain.AtomicTask{ID: "T1", Priority: domain.PriorityCritical, EstimatedHours: 3}
	t2 := &domain.AtomicTask{ID: "T2", Priority: domain.PriorityHigh, EstimatedHours: 2, Dependencies: []string{"T1"}}
	t3 := &domain.AtomicTask{ID: "T3", Priority: domain.PriorityLow, EstimatedHours: 1}

	sched := scheduler.New()

	full := []*domain.AtomicTask{t1, t2, t3}
	policies := []config.SchedulerPolicy{
		config.PolicyPriorityFirst, config.PolicyEarliestDeadline, config.PolicyCriticalPath,
		config.PolicyResourceBalanced, config.PolicyShortestJob, config.PolicyHybridOptimal,
	}
	for _, policy := range policies {
		plan := sched.Schedule(policy, scheduler.Input{Ready: full, Now: now})
		assert.Len(t, plan, 3, "policy %s", policy)
	}

	priorityPlan := sched.Schedule(config.PolicyPriorityFirst, scheduler.Input{Ready: full, Now: now})
	assert.Len(t, priorityPlan, 3)

	ready := []*domain.AtomicTask{t1, t3} // T2 excluded: its dependency T1 has not completed
	shortestPlan := sched.Schedule(config.PolicyShortestJob, scheduler.Input{Ready: ready, Now: now})
	assert.Len(t, shortestPlan, 2)
	assert.Contains(t, shortestPlan, "T1")
	assert.Contains(t, shortestPlan, "T3")
}

// TestS6_AgentOfflineTaskRequeuedIntoNextSchedule mirrors spec §8 S6: an
// agent whose heartbeat ages beyond 2*heartbeatInterval is marked offline,
// its in-progress task is requeued to pending, and the next scheduler
// invocation includes that task in the ready set.
func TestS6_AgentOfflineTaskRequeuedIntoNextSchedule(t *testing.T) {
	h := newHarness(t)

	task := &domain.AtomicTask{ID: "Tx", Status: domain.StatusInProgress, AssignedAgent: "Ag", EstimatedHours: 1}
	agents := registry.New()
	agent := &domain.Agent{
		ID: "Ag", Status: domain.AgentBusy, MaxConcurrentTasks: 1,
		CurrentTasks:  []string{"Tx"},
		LastHeartbeat: time.Now().Add(-time.Hour),
	}
	require.NoError(t, h.storage.CreateTask(task))
	require.NoError(t, agents.Register(agent))

	orch := orchestrator.New(h.storage, agents, h.access, nil, 15*time.Second, h.sched, config.PolicyPriorityFirst, nil, nil)

	requeued, err := orch.SweepHeartbeats(context.Background(), time.Now())
	require.NoError(t, err)
	assert.Equal(t, []string{"Tx"}, requeued)

	gotAgent, err := agents.GetAgent("Ag")
	require.NoError(t, err)
	assert.Equal(t, domain.AgentOffline, gotAgent.Status)

	gotTask, err := h.storage.GetTask("Tx")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, gotTask.Status)
	assert.Empty(t, gotTask.AssignedAgent)

	plan := h.sched.Schedule(config.PolicyPriorityFirst, scheduler.Input{Ready: []*domain.AtomicTask{gotTask}, Now: time.Now()})
	assert.Contains(t, plan, "Tx")
}
