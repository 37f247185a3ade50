package storage

import (
	"fmt"

	"github.com/codeready-toolchain/taskcore/pkg/corerr"
	"github.com/codeready-toolchain/taskcore/pkg/domain"
)

// DependencyExists satisfies pkg/ids.Existence for dependency ID generation.
func (e *Engine) DependencyExists(id string) bool {
	return e.exists(id)
}

func (e *Engine) CreateDependency(d *domain.Dependency) error {
	if e.exists(d.ID) {
		return corerr.Conflict(fmt.Sprintf("dependency %q already exists", d.ID))
	}
	d.FormatVersion = domain.FormatVersion
	return e.writeEntity(kindDependency, d.ID, d)
}

func (e *Engine) GetDependency(id string) (*domain.Dependency, error) {
	var d domain.Dependency
	if err := e.readEntity(kindDependency, id, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

func (e *Engine) DeleteDependency(id string) error {
	return e.deleteEntity(kindDependency, id)
}

// ListDependenciesForTask returns every dependency edge touching taskID,
// either as source or target.
func (e *Engine) ListDependenciesForTask(taskID string) ([]*domain.Dependency, error) {
	var out []*domain.Dependency
	for _, id := range e.index.list(kindDependency.dir + "/") {
		d, err := e.GetDependency(id)
		if err != nil {
			return nil, err
		}
		if d.FromTaskID == taskID || d.ToTaskID == taskID {
			out = append(out, d)
		}
	}
	return out, nil
}

// ListDependenciesForProject returns every dependency edge between two
// tasks that both belong to projectID.
func (e *Engine) ListDependenciesForProject(projectID string, tasksInProject map[string]bool) ([]*domain.Dependency, error) {
	var out []*domain.Dependency
	for _, id := range e.index.list(kindDependency.dir + "/") {
		d, err := e.GetDependency(id)
		if err != nil {
			return nil, err
		}
		if tasksInProject[d.FromTaskID] && tasksInProject[d.ToTaskID] {
			out = append(out, d)
		}
	}
	return out, nil
}
