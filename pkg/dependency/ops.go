package dependency

import (
	"fmt"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/codeready-toolchain/taskcore/pkg/corerr"
	"github.com/codeready-toolchain/taskcore/pkg/domain"
	"github.com/codeready-toolchain/taskcore/pkg/ids"
)

// graphCacheTTL bounds how long a generated dependency graph is served from
// cache before GenerateDependencyGraph recomputes it from the store.
const graphCacheTTL = 30 * time.Second

// Ops is the concrete DependencyOps component. graphCache memoizes
// GenerateDependencyGraph per project, since recomputation walks every task
// and edge in the project and is invalidated by every mutating call here.
type Ops struct {
	store      Store
	gen        *ids.Generator
	graphCache *gocache.Cache
}

// New constructs an Ops bound to store.
func New(store Store, gen *ids.Generator) *Ops {
	return &Ops{
		store:      store,
		gen:        gen,
		graphCache: gocache.New(graphCacheTTL, 2*graphCacheTTL),
	}
}

// CreateDependencyInput mirrors spec §4.5's createDependency payload.
type CreateDependencyInput struct {
	FromTaskID  string
	ToTaskID    string
	Type        domain.DependencyType
	Description string
	Critical    bool
}

// CreateDependency validates both tasks exist, rejects self-loops, runs a
// cycle check (DFS from ToTaskID, failing if FromTaskID is reached),
// persists the Dependency, and updates both tasks' dependency lists.
func (o *Ops) CreateDependency(in CreateDependencyInput) (*domain.Dependency, error) {
	if in.FromTaskID == in.ToTaskID {
		return nil, corerr.Validation("dependency cannot be a self-loop", nil)
	}

	from, err := o.store.GetTask(in.FromTaskID)
	if err != nil {
		return nil, err
	}
	to, err := o.store.GetTask(in.ToTaskID)
	if err != nil {
		return nil, err
	}

	if o.reaches(in.ToTaskID, in.FromTaskID, map[string]bool{}) {
		return nil, corerr.CycleDetected(fmt.Sprintf("adding %s -> %s would create a cycle", in.FromTaskID, in.ToTaskID))
	}

	id, err := o.gen.Dependency(in.FromTaskID, in.ToTaskID, o.store.DependencyExists)
	if err != nil {
		return nil, err
	}

	d := &domain.Dependency{
		ID:          id,
		FromTaskID:  in.FromTaskID,
		ToTaskID:    in.ToTaskID,
		Type:        in.Type,
		Description: in.Description,
		Critical:    in.Critical,
		CreatedAt:   time.Now(),
	}
	if err := o.store.CreateDependency(d); err != nil {
		return nil, err
	}

	from.Dependencies = appendUnique(from.Dependencies, in.ToTaskID)
	to.Dependents = appendUnique(to.Dependents, in.FromTaskID)
	if err := o.store.UpdateTask(from); err != nil {
		return nil, err
	}
	if err := o.store.UpdateTask(to); err != nil {
		return nil, err
	}

	o.graphCache.Delete(from.ProjectID)
	return d, nil
}

// reaches reports whether a DFS from `from` can reach `target` by walking
// task dependency edges (from -> task.Dependencies -> ...).
func (o *Ops) reaches(from, target string, visited map[string]bool) bool {
	if from == target {
		return true
	}
	if visited[from] {
		return false
	}
	visited[from] = true

	task, err := o.store.GetTask(from)
	if err != nil {
		return false
	}
	for _, dep := range task.Dependencies {
		if o.reaches(dep, target, visited) {
			return true
		}
	}
	return false
}

// DeleteDependency reverses CreateDependency's list updates and removes the
// Dependency entity.
func (o *Ops) DeleteDependency(id string) error {
	d, err := o.store.GetDependency(id)
	if err != nil {
		return err
	}

	from, err := o.store.GetTask(d.FromTaskID)
	if err == nil {
		from.Dependencies = remove(from.Dependencies, d.ToTaskID)
		if err := o.store.UpdateTask(from); err != nil {
			return err
		}
	}
	to, err := o.store.GetTask(d.ToTaskID)
	if err == nil {
		to.Dependents = remove(to.Dependents, d.FromTaskID)
		if err := o.store.UpdateTask(to); err != nil {
			return err
		}
	}

	if from != nil {
		o.graphCache.Delete(from.ProjectID)
	}
	return o.store.DeleteDependency(id)
}

func appendUnique(list []string, v string) []string {
	for _, x := range list {
		if x == v {
			return list
		}
	}
	return append(list, v)
}

func remove(list []string, v string) []string {
	out := list[:0:0]
	for _, x := range list {
		if x != v {
			out = append(out, x)
		}
	}
	return out
}
