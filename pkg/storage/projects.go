package storage

import (
	"fmt"

	"github.com/codeready-toolchain/taskcore/pkg/corerr"
	"github.com/codeready-toolchain/taskcore/pkg/domain"
)

// ProjectExists reports whether id is a known project ID. It satisfies
// pkg/ids.Existence for project ID generation.
func (e *Engine) ProjectExists(id string) bool {
	return e.exists(id)
}

// CreateProject persists a new project. The caller is responsible for
// assigning p.ID (see pkg/ids.Generator.Project) before calling.
func (e *Engine) CreateProject(p *domain.Project) error {
	if e.exists(p.ID) {
		return corerr.Conflict(fmt.Sprintf("project %q already exists", p.ID))
	}
	p.FormatVersion = domain.FormatVersion
	return e.writeEntity(kindProject, p.ID, p)
}

// GetProject loads a project by ID.
func (e *Engine) GetProject(id string) (*domain.Project, error) {
	var p domain.Project
	if err := e.readEntity(kindProject, id, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// UpdateProject overwrites an existing project in place. Metadata.Version
// and UpdatedAt are the caller's responsibility to bump.
func (e *Engine) UpdateProject(p *domain.Project) error {
	if !e.exists(p.ID) {
		return corerr.NotFound(fmt.Sprintf("project %q not found", p.ID))
	}
	return e.writeEntity(kindProject, p.ID, p)
}

// DeleteProject removes a project. It does not cascade to epics/tasks —
// callers orchestrate cascading deletes (spec §4.2 leaves cascade policy to
// callers; StorageEngine itself is a dumb per-entity store).
func (e *Engine) DeleteProject(id string) error {
	return e.deleteEntity(kindProject, id)
}

// ListProjects returns every known project ID.
func (e *Engine) ListProjects() []string {
	return e.index.list(kindProject.dir + "/")
}
