package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/codeready-toolchain/taskcore/pkg/corerr"
)

// encode serializes v as YAML or JSON depending on k, then gzips it when the
// kind is compression-eligible and the engine has compression enabled.
func (e *Engine) encode(k entityKind, v any) ([]byte, error) {
	var (
		data []byte
		err  error
	)
	if k.ext == ".yaml" {
		data, err = yaml.Marshal(v)
	} else {
		data, err = json.MarshalIndent(v, "", "  ")
	}
	if err != nil {
		return nil, fmt.Errorf("marshal entity: %w", err)
	}
	if k.gz && e.cfg.CompressionEnabled {
		return compress(data)
	}
	return data, nil
}

func (e *Engine) decode(k entityKind, compressed bool, data []byte, out any) error {
	if compressed {
		raw, err := decompress(data)
		if err != nil {
			return corerr.Corrupt("decompress entity", err)
		}
		data = raw
	}
	if k.ext == ".yaml" {
		return yaml.Unmarshal(data, out)
	}
	return json.Unmarshal(data, out)
}

// writeEntity persists v under kind/id, updating the file index atomically.
func (e *Engine) writeEntity(k entityKind, id string, v any) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	rel := e.relPath(k, id)
	abs, err := e.resolve(rel)
	if err != nil {
		return err
	}

	data, err := e.encode(k, v)
	if err != nil {
		return corerr.Internal("encode entity", err)
	}
	if err := atomicWrite(abs, data); err != nil {
		return corerr.Internal("write entity file", err)
	}

	compressed := k.gz && e.cfg.CompressionEnabled
	if err := e.index.put(id, IndexEntry{
		FilePath:     rel,
		Size:         int64(len(data)),
		LastModified: time.Now(),
		Compressed:   compressed,
		Checksum:     checksum(data),
	}); err != nil {
		return corerr.Internal("persist file index", err)
	}

	e.cache.put(id, v)
	return nil
}

// readEntity loads kind/id into out, validating it against the recorded
// checksum before decoding (spec §4.2 corruption handling -> Corrupt).
func (e *Engine) readEntity(k entityKind, id string, out any) error {
	if cached, ok := e.cache.get(id); ok {
		return reassign(cached, out)
	}

	entry, ok := e.index.get(id)
	if !ok {
		return corerr.NotFound(fmt.Sprintf("entity %q not found", id))
	}

	abs, err := e.resolve(entry.FilePath)
	if err != nil {
		return err
	}

	data, err := os.ReadFile(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return corerr.NotFound(fmt.Sprintf("entity %q file missing", id))
		}
		return corerr.Internal("read entity file", err)
	}
	if entry.Checksum != "" && checksum(data) != entry.Checksum {
		return corerr.Corrupt(fmt.Sprintf("entity %q failed checksum verification", id), nil)
	}

	if err := e.decode(k, entry.Compressed, data, out); err != nil {
		return corerr.Corrupt(fmt.Sprintf("entity %q failed to decode", id), err)
	}

	e.cache.put(id, out)
	return nil
}

// deleteEntity removes id's file and index entry. Missing files are treated
// as already-deleted, matching idempotent delete semantics used throughout
// the core.
func (e *Engine) deleteEntity(k entityKind, id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	entry, ok := e.index.get(id)
	if !ok {
		return nil
	}
	abs, err := e.resolve(entry.FilePath)
	if err != nil {
		return err
	}
	if err := os.Remove(abs); err != nil && !os.IsNotExist(err) {
		return corerr.Internal("remove entity file", err)
	}
	if err := e.index.remove(id); err != nil {
		return corerr.Internal("persist file index", err)
	}
	e.cache.remove(id)
	return nil
}

// reassign round-trips through JSON to copy a cached value of unknown
// concrete type into out (a typed pointer). This is the same approach
// in-memory caches take when they cannot assume the caller's pointer type
// matches the stored value's exactly (defensive copy, avoids aliasing the
// cached struct across callers).
func reassign(cached any, out any) error {
	data, err := json.Marshal(cached)
	if err != nil {
		return corerr.Internal("reassign cached entity", err)
	}
	return json.Unmarshal(data, out)
}
