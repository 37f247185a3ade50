package access

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// auditEntry is one line of the append-only audit trail persisted under
// <writeRoot>/audit/access.log (SPEC_FULL.md supplemented feature: makes
// lock history inspectable after a crash, serving invariant 8).
type auditEntry struct {
	Action     string    `json:"action"` // acquire | release | reap
	LockID     string    `json:"lockId"`
	Resource   string    `json:"resource"`
	Holder     string    `json:"holder"`
	Mode       string    `json:"mode"`
	AcquiredAt time.Time `json:"acquiredAt"`
	At         time.Time `json:"at"`
}

type auditLog struct {
	mu   sync.Mutex
	file *os.File
	enc  *json.Encoder
}

func openAuditLog(path string) (*auditLog, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create audit dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open audit file: %w", err)
	}
	return &auditLog{file: f, enc: json.NewEncoder(f)}, nil
}

func (a *auditLog) append(e auditEntry) {
	a.mu.Lock()
	defer a.mu.Unlock()
	// Best-effort: a failed audit write must never block or fail the lock
	// operation it is recording.
	_ = a.enc.Encode(e)
	_ = a.file.Sync()
}

func (a *auditLog) close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.file.Close()
}
