package storage

import (
	"fmt"
	"strings"

	"github.com/codeready-toolchain/taskcore/pkg/corerr"
	"github.com/codeready-toolchain/taskcore/pkg/domain"
)

// TaskExists satisfies pkg/ids.Existence for task ID generation.
func (e *Engine) TaskExists(id string) bool {
	return e.exists(id)
}

func (e *Engine) CreateTask(t *domain.AtomicTask) error {
	if e.exists(t.ID) {
		return corerr.Conflict(fmt.Sprintf("task %q already exists", t.ID))
	}
	t.FormatVersion = domain.FormatVersion
	return e.writeEntity(kindTask, t.ID, t)
}

func (e *Engine) GetTask(id string) (*domain.AtomicTask, error) {
	var t domain.AtomicTask
	if err := e.readEntity(kindTask, id, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

func (e *Engine) UpdateTask(t *domain.AtomicTask) error {
	if !e.exists(t.ID) {
		return corerr.NotFound(fmt.Sprintf("task %q not found", t.ID))
	}
	return e.writeEntity(kindTask, t.ID, t)
}

func (e *Engine) DeleteTask(id string) error {
	return e.deleteEntity(kindTask, id)
}

// allTasks loads every task currently indexed. Callers needing a filtered
// view go through ListTasksByEpic/SearchTasks/GetTasksByStatus/
// GetTasksByPriority, all of which scan this same set — StorageEngine keeps
// no secondary indices, matching its role as a simple per-entity store.
func (e *Engine) allTasks() ([]*domain.AtomicTask, error) {
	var out []*domain.AtomicTask
	for _, id := range e.index.list(kindTask.dir + "/") {
		t, err := e.GetTask(id)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

// ListTasksByProject returns every task whose ProjectID matches projectID.
func (e *Engine) ListTasksByProject(projectID string) ([]*domain.AtomicTask, error) {
	all, err := e.allTasks()
	if err != nil {
		return nil, err
	}
	var out []*domain.AtomicTask
	for _, t := range all {
		if t.ProjectID == projectID {
			out = append(out, t)
		}
	}
	return out, nil
}

// ListTasksByEpic returns every task whose EpicID matches epicID.
func (e *Engine) ListTasksByEpic(epicID string) ([]*domain.AtomicTask, error) {
	all, err := e.allTasks()
	if err != nil {
		return nil, err
	}
	var out []*domain.AtomicTask
	for _, t := range all {
		if t.EpicID == epicID {
			out = append(out, t)
		}
	}
	return out, nil
}

// SearchTasks returns every task whose title or description contains query,
// case-insensitively, optionally narrowed to a single project (spec §4.2:
// "searchTasks(query, projectId?)"). An empty projectID searches every
// project.
func (e *Engine) SearchTasks(query, projectID string) ([]*domain.AtomicTask, error) {
	all, err := e.allTasks()
	if err != nil {
		return nil, err
	}
	q := strings.ToLower(query)
	var out []*domain.AtomicTask
	for _, t := range all {
		if projectID != "" && t.ProjectID != projectID {
			continue
		}
		if strings.Contains(strings.ToLower(t.Title), q) || strings.Contains(strings.ToLower(t.Description), q) {
			out = append(out, t)
		}
	}
	return out, nil
}

// GetTasksByStatus returns every task with the given status.
func (e *Engine) GetTasksByStatus(status domain.Status) ([]*domain.AtomicTask, error) {
	all, err := e.allTasks()
	if err != nil {
		return nil, err
	}
	var out []*domain.AtomicTask
	for _, t := range all {
		if t.Status == status {
			out = append(out, t)
		}
	}
	return out, nil
}

// GetTasksByPriority returns every task with the given priority.
func (e *Engine) GetTasksByPriority(priority domain.Priority) ([]*domain.AtomicTask, error) {
	all, err := e.allTasks()
	if err != nil {
		return nil, err
	}
	var out []*domain.AtomicTask
	for _, t := range all {
		if t.Priority == priority {
			out = append(out, t)
		}
	}
	return out, nil
}
