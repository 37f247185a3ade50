// Package dependency implements DependencyOps (spec §4.5, C5):
// createDependency/deleteDependency with cycle detection, dependency-graph
// generation via Kahn's topological sort plus a simplified additive
// critical-path pass, and non-fatal project dependency validation.
package dependency

import "github.com/codeready-toolchain/taskcore/pkg/domain"

// Store is the subset of StorageEngine DependencyOps needs. It is
// satisfied by *storage.Engine; defined here as an interface so this
// package never imports pkg/storage directly (spec §9: arena+index DAG,
// components depend on narrow seams, not concrete stores).
type Store interface {
	GetTask(id string) (*domain.AtomicTask, error)
	UpdateTask(t *domain.AtomicTask) error
	ListTasksByProject(projectID string) ([]*domain.AtomicTask, error)

	DependencyExists(id string) bool
	CreateDependency(d *domain.Dependency) error
	GetDependency(id string) (*domain.Dependency, error)
	DeleteDependency(id string) error
	ListDependenciesForProject(projectID string, tasksInProject map[string]bool) ([]*domain.Dependency, error)

	SaveDependencyGraph(g *domain.DependencyGraph) error
}
