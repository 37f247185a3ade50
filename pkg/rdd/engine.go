// Package rdd implements the Recursive Decomposition Engine (spec §4.8,
// C8): breaking a non-atomic task into an atomic set under depth and
// convergence invariants. Sibling decomposition calls at a given depth fan
// out under a bounded errgroup, and duplicate in-flight AtomicDetector
// calls for identical (title, description) fingerprints are collapsed via
// singleflight (SPEC_FULL.md DOMAIN STACK, grounded in
// theRebelliousNerd-codenerd's use of golang.org/x/sync).
package rdd

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/codeready-toolchain/taskcore/pkg/atomic"
	"github.com/codeready-toolchain/taskcore/pkg/config"
	"github.com/codeready-toolchain/taskcore/pkg/corerr"
	"github.com/codeready-toolchain/taskcore/pkg/domain"
	"github.com/codeready-toolchain/taskcore/pkg/epic"
	"github.com/codeready-toolchain/taskcore/pkg/ids"
	"github.com/codeready-toolchain/taskcore/pkg/oracle"
)

// TaskStore is the subset of StorageEngine RDDEngine needs to check task ID
// uniqueness (spec §4.4: "uniqueness is enforced by checking the index
// before emission").
type TaskStore interface {
	TaskExists(id string) bool
}

// Engine is the concrete RDDEngine.
type Engine struct {
	cfg      config.RDDConfig
	detector *atomic.Detector
	oracle   oracle.Client
	resolver *epic.Resolver
	gen      *ids.Generator
	store    TaskStore
	log      *slog.Logger

	// fanoutLimit bounds concurrent sibling decomposition calls per
	// session, matching the teacher's worker pool's bounded-concurrency
	// dispatch shape.
	fanoutLimit int

	sf singleflight.Group
}

// New constructs an Engine. fanoutLimit <= 0 defaults to 4.
func New(cfg config.RDDConfig, detector *atomic.Detector, oracleClient oracle.Client, resolver *epic.Resolver, gen *ids.Generator, store TaskStore, fanoutLimit int, log *slog.Logger) *Engine {
	if fanoutLimit <= 0 {
		fanoutLimit = 4
	}
	if log == nil {
		log = slog.Default()
	}
	return &Engine{
		cfg:         cfg,
		detector:    detector,
		oracle:      oracleClient,
		resolver:    resolver,
		gen:         gen,
		store:       store,
		fanoutLimit: fanoutLimit,
		log:         log,
	}
}

// Output is decomposeTask's return value (spec §4.8).
type Output struct {
	Success  bool
	IsAtomic bool
	Depth    int
	SubTasks []*domain.AtomicTask
	Warnings []string
}

// Session tracks per-invocation state shared across the recursive fan-out:
// the infinite-recursion safeguard's fingerprint set (spec §4.8).
type Session struct {
	mu   sync.Mutex
	seen map[string]bool
}

// NewSession constructs an empty decomposition session.
func NewSession() *Session { return &Session{seen: make(map[string]bool)} }

func (s *Session) markSeen(title, description string) (isNew bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := title + "\x00" + description
	if s.seen[key] {
		return false
	}
	s.seen[key] = true
	return true
}

// Decompose implements decomposeTask (spec §4.8):
//
//  1. depth >= MaxDepth forces termination: return {isAtomic: true}
//     without consulting the oracle (spec §8 boundary: "RDDEngine given a
//     task at depth == MAX_DEPTH returns isAtomic=true without calling the
//     oracle").
//  2. Consult AtomicDetector; confidence >= AtomicConfidenceFloor atomic
//     returns immediately with no children.
//  3. Otherwise request a decomposition from the oracle.
//  4. Each child is assigned an epic via EpicResolver, a fresh task ID,
//     inherits projectID, and recurses (fanned out, bounded).
//  5. Atomic leaves are collected into SubTasks. A child that reaches
//     MaxDepth is forced atomic by step 1 and collected as a leaf; its
//     atomicity is never checked, so no warning is recorded for it.
func (e *Engine) Decompose(ctx context.Context, task *domain.AtomicTask, depth int, sess *Session) (*Output, error) {
	if sess == nil {
		sess = NewSession()
	}

	if depth >= e.cfg.MaxDepth {
		return &Output{Success: true, IsAtomic: true, Depth: depth}, nil
	}

	atomicRes, err := e.detectAtomicDeduped(ctx, task)
	if err != nil {
		return nil, err
	}
	if atomicRes.IsAtomic && atomicRes.Confidence >= e.cfg.AtomicConfidenceFloor {
		return &Output{Success: true, IsAtomic: true, Depth: depth}, nil
	}

	decomp, err := e.oracle.DecomposeTask(ctx, oracle.DecomposeRequest{
		Title:          task.Title,
		Description:    task.Description,
		EstimatedHours: task.EstimatedHours,
	})
	if err != nil {
		return nil, corerr.OracleUnavailable("decomposeTask oracle call failed", err)
	}

	children := make([]*domain.AtomicTask, 0, len(decomp.Tasks))
	for _, c := range decomp.Tasks {
		if !sess.markSeen(c.Title, c.Description) {
			continue // exact duplicate fingerprint, coalesced (spec §4.8 safeguard)
		}
		child, err := e.materializeChild(task, c)
		if err != nil {
			return nil, err
		}
		children = append(children, child)
	}

	leaves, warnings, err := e.recurseChildren(ctx, children, depth+1, sess)
	if err != nil {
		return nil, err
	}

	if w := convergenceWarning(task.EstimatedHours, leaves, e.cfg.ConvergenceTolerance); w != "" {
		warnings = append(warnings, w)
	}

	return &Output{
		Success:  true,
		IsAtomic: false,
		Depth:    depth,
		SubTasks: leaves,
		Warnings: warnings,
	}, nil
}

// detectAtomicDeduped wraps the detector call in a singleflight keyed by
// the task's fingerprint, so concurrent siblings sharing an identical
// (title, description) collapse into a single oracle round trip.
func (e *Engine) detectAtomicDeduped(ctx context.Context, task *domain.AtomicTask) (*atomic.Result, error) {
	key := task.Title + "\x00" + task.Description
	v, err, _ := e.sf.Do(key, func() (any, error) {
		return e.detector.IsAtomic(ctx, atomic.Request{
			Title:              task.Title,
			Description:        task.Description,
			EstimatedHours:     task.EstimatedHours,
			AcceptanceCriteria: len(task.AcceptanceCriteria),
			FilePaths:          len(task.FilePaths),
		})
	})
	if err != nil {
		return nil, err
	}
	return v.(*atomic.Result), nil
}

// materializeChild assigns the child an epic and a task ID and inherits
// projectId from the parent (spec §4.8 step 4).
func (e *Engine) materializeChild(parent *domain.AtomicTask, c oracle.ChildTask) (*domain.AtomicTask, error) {
	resolved, err := e.resolver.Resolve(epic.ResolveInput{
		ProjectID:   parent.ProjectID,
		TaskContext: epic.TaskContext{Title: c.Title, Description: c.Description, Tags: c.Tags},
	})
	if err != nil {
		return nil, err
	}

	taskID, err := e.gen.Task(parent.ProjectID, resolved.EpicID, e.store.TaskExists)
	if err != nil {
		return nil, err
	}

	criteria := make([]domain.AcceptanceCriterion, 0, len(c.AcceptanceCriteria))
	for _, ac := range c.AcceptanceCriteria {
		criteria = append(criteria, domain.AcceptanceCriterion{Description: ac})
	}
	if len(criteria) == 0 {
		criteria = append(criteria, domain.AcceptanceCriterion{Description: c.Description})
	}

	priority := domain.Priority(c.Priority)
	if !priority.IsValid() {
		priority = parent.Priority
	}

	return &domain.AtomicTask{
		Title:              c.Title,
		Description:        c.Description,
		Status:             domain.StatusPending,
		Priority:           priority,
		Type:               parent.Type,
		EstimatedHours:     c.EstimatedHours,
		AcceptanceCriteria: criteria,
		Tags:               c.Tags,
		ID:                 taskID,
		EpicID:             resolved.EpicID,
		ProjectID:          parent.ProjectID,
	}, nil
}

// recurseChildren fans children out under a bounded errgroup (spec §5:
// "decomposition children are produced in the order returned by the
// oracle; persistence appends in that order" — the fan-out itself may run
// concurrently, but results are reassembled in the oracle's original
// order before being returned).
func (e *Engine) recurseChildren(ctx context.Context, children []*domain.AtomicTask, nextDepth int, sess *Session) ([]*domain.AtomicTask, []string, error) {
	results := make([][]*domain.AtomicTask, len(children))
	warningsPerChild := make([][]string, len(children))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.fanoutLimit)

	for i, child := range children {
		i, child := i, child
		g.Go(func() error {
			out, err := e.Decompose(gctx, child, nextDepth, sess)
			if err != nil {
				return err
			}
			if out.IsAtomic {
				results[i] = []*domain.AtomicTask{child}
			} else {
				results[i] = out.SubTasks
				warningsPerChild[i] = out.Warnings
				if nextDepth >= e.cfg.MaxDepth {
					warningsPerChild[i] = append(warningsPerChild[i], fmt.Sprintf("task %s still non-atomic at max depth %d, accepted as-is", child.ID, e.cfg.MaxDepth))
				}
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	var (
		leaves   []*domain.AtomicTask
		warnings []string
	)
	for i := range children {
		leaves = append(leaves, results[i]...)
		warnings = append(warnings, warningsPerChild[i]...)
	}
	return leaves, warnings, nil
}

// convergenceWarning reports the soft convergence invariant (spec §4.8):
// sum of subtask EstimatedHours should stay within +/-tolerance of the
// parent's estimate. Violations are recorded, never fatal.
func convergenceWarning(parentHours float64, leaves []*domain.AtomicTask, tolerance float64) string {
	if parentHours <= 0 {
		return ""
	}
	var sum float64
	for _, l := range leaves {
		sum += l.EstimatedHours
	}
	delta := math.Abs(sum-parentHours) / parentHours
	if delta > tolerance {
		return fmt.Sprintf("subtask hours sum %.2f deviates %.0f%% from parent estimate %.2f (tolerance %.0f%%)",
			sum, delta*100, parentHours, tolerance*100)
	}
	return ""
}
