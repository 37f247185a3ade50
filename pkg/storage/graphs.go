package storage

import "github.com/codeready-toolchain/taskcore/pkg/domain"

// SaveDependencyGraph persists a project's derived DependencyGraph
// (recomputed by pkg/dependency and cached here so repeated reads don't
// re-run topological sort).
func (e *Engine) SaveDependencyGraph(g *domain.DependencyGraph) error {
	return e.writeEntity(kindGraph, g.ProjectID, g)
}

// LoadDependencyGraph loads the last-saved graph for projectID.
func (e *Engine) LoadDependencyGraph(projectID string) (*domain.DependencyGraph, error) {
	var g domain.DependencyGraph
	if err := e.readEntity(kindGraph, projectID, &g); err != nil {
		return nil, err
	}
	return &g, nil
}

// DeleteDependencyGraph removes a project's cached graph, forcing the next
// read to recompute it.
func (e *Engine) DeleteDependencyGraph(projectID string) error {
	return e.deleteEntity(kindGraph, projectID)
}
