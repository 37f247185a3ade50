package storage

import (
	"fmt"

	"github.com/codeready-toolchain/taskcore/pkg/corerr"
	"github.com/codeready-toolchain/taskcore/pkg/domain"
)

// EpicExists satisfies pkg/ids.Existence for epic ID generation.
func (e *Engine) EpicExists(id string) bool {
	return e.exists(id)
}

func (e *Engine) CreateEpic(epic *domain.Epic) error {
	if e.exists(epic.ID) {
		return corerr.Conflict(fmt.Sprintf("epic %q already exists", epic.ID))
	}
	epic.FormatVersion = domain.FormatVersion
	return e.writeEntity(kindEpic, epic.ID, epic)
}

func (e *Engine) GetEpic(id string) (*domain.Epic, error) {
	var epic domain.Epic
	if err := e.readEntity(kindEpic, id, &epic); err != nil {
		return nil, err
	}
	return &epic, nil
}

func (e *Engine) UpdateEpic(epic *domain.Epic) error {
	if !e.exists(epic.ID) {
		return corerr.NotFound(fmt.Sprintf("epic %q not found", epic.ID))
	}
	return e.writeEntity(kindEpic, epic.ID, epic)
}

func (e *Engine) DeleteEpic(id string) error {
	return e.deleteEntity(kindEpic, id)
}

// ListEpicsByProject returns every epic belonging to projectID. It loads
// each candidate epic to filter by ProjectID since the index does not carry
// foreign keys (spec §4.2 keeps the index minimal: id -> file metadata).
func (e *Engine) ListEpicsByProject(projectID string) ([]*domain.Epic, error) {
	var out []*domain.Epic
	for _, id := range e.index.list(kindEpic.dir + "/") {
		epic, err := e.GetEpic(id)
		if err != nil {
			return nil, err
		}
		if epic.ProjectID == projectID {
			out = append(out, epic)
		}
	}
	return out, nil
}
