// Package storage implements the file-backed StorageEngine (spec §4.2, C2):
// YAML for Project/Epic, JSON for AtomicTask, Dependency, and
// DependencyGraph (AtomicTask files are gzip-compressed when compression is
// enabled), a file index that is rewritten in full on every mutation rather
// than appended to, atomic
// write-tmp-fsync-rename semantics, and a bounded in-memory hot-entity
// cache. Every path touching the filesystem is validated by a
// pathvalidator.Validator first.
package storage

import (
	"fmt"
	"path/filepath"
	"sync"

	"github.com/codeready-toolchain/taskcore/pkg/config"
	"github.com/codeready-toolchain/taskcore/pkg/corerr"
	"github.com/codeready-toolchain/taskcore/pkg/pathvalidator"
)

const indexFileName = ".file-index.json"

// Engine is the concrete StorageEngine. It is safe for concurrent use: the
// file index carries its own mutex and the hot cache is internally
// synchronized; callers needing cross-entity consistency still go through
// AccessManager (pkg/access), which StorageEngine does not itself implement.
type Engine struct {
	mu sync.Mutex // serializes index+file writes across every entity kind

	cfg       config.StorageConfig
	validator *pathvalidator.Validator
	index     *fileIndex
	cache     *hotCache
}

// NewEngine constructs an Engine rooted at cfg's read/write directories. It
// loads (or initializes) the on-disk file index under the write root.
func NewEngine(cfg config.StorageConfig, validator *pathvalidator.Validator) (*Engine, error) {
	idxPath := filepath.Join(cfg.WriteRoot, indexFileName)
	idx, err := loadIndex(idxPath)
	if err != nil {
		return nil, corerr.Corrupt("load file index", err)
	}
	return &Engine{
		cfg:       cfg,
		validator: validator,
		index:     idx,
		cache:     newHotCache(cfg.HotCacheSize),
	}, nil
}

// entityKind describes the on-disk layout for one entity kind, relative to
// the write root (spec §4.2: "<writeRoot>/<kind>/<id>.<ext>").
type entityKind struct {
	dir string
	ext string
	gz  bool // eligible for gzip compression when cfg.CompressionEnabled
}

var (
	kindProject    = entityKind{dir: "projects", ext: ".yaml"}
	kindEpic       = entityKind{dir: "epics", ext: ".yaml"}
	kindTask       = entityKind{dir: "tasks", ext: ".json", gz: true}
	kindDependency = entityKind{dir: "dependencies", ext: ".json"}
	kindGraph      = entityKind{dir: "graphs", ext: ".json"}
)

func (e *Engine) relPath(k entityKind, id string) string {
	ext := k.ext
	if k.gz && e.cfg.CompressionEnabled {
		ext += ".gz"
	}
	return filepath.Join(k.dir, id+ext)
}

// resolve validates rel against the write root (storage mutations always
// target the write root; reads of entities the engine itself created also
// go through the write root since that is where it persists them).
func (e *Engine) resolve(rel string) (string, error) {
	return e.validator.MustValidate(filepath.Join(e.cfg.WriteRoot, rel), pathvalidator.ModeWrite)
}

// Health reports whether the engine's write root and index are reachable,
// for the process health endpoint (SPEC_FULL.md ambient-detail expansion).
func (e *Engine) Health() error {
	if _, err := e.resolve(indexFileName); err != nil {
		return fmt.Errorf("storage health check: %w", err)
	}
	return nil
}

// exists reports whether id is present in the file index, regardless of kind.
func (e *Engine) exists(id string) bool {
	return e.index.has(id)
}
