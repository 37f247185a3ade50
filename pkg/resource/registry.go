// Package resource implements ResourceManager / DisposableRegistry (spec
// §4.13, C13): deterministic, idempotent teardown of every long-lived
// resource a component owns — timers, transports, caches, file handles.
package resource

import (
	"log/slog"
	"sync"
)

// Disposable is implemented by anything the registry can tear down.
// Dispose must be safe to call more than once.
type Disposable interface {
	Dispose() error
}

// DisposableFunc adapts a plain func into a Disposable.
type DisposableFunc func() error

func (f DisposableFunc) Dispose() error { return f() }

// Registry tracks disposables in registration order and releases them in
// reverse on Shutdown (spec §4.13: "disposables are released in reverse
// registration order").
type Registry struct {
	mu       sync.Mutex
	entries  []entry
	disposed bool
	log      *slog.Logger
}

type entry struct {
	name string
	d    Disposable
	once sync.Once
}

// New constructs an empty Registry.
func New(log *slog.Logger) *Registry {
	if log == nil {
		log = slog.Default()
	}
	return &Registry{log: log}
}

// Register adds d under name. Registering after Shutdown disposes d
// immediately (there is nothing left to hold it).
func (r *Registry) Register(name string, d Disposable) {
	r.mu.Lock()
	if r.disposed {
		r.mu.Unlock()
		if err := d.Dispose(); err != nil {
			r.log.Error("dispose after shutdown failed", "resource", name, "error", err)
		}
		return
	}
	r.entries = append(r.entries, entry{name: name, d: d})
	r.mu.Unlock()
}

// Shutdown releases every registered disposable in reverse registration
// order. Each dispose() is idempotent and errors are logged, never
// rethrown (spec §4.13). Safe to call more than once.
func (r *Registry) Shutdown() {
	r.mu.Lock()
	entries := r.entries
	r.disposed = true
	r.mu.Unlock()

	for i := len(entries) - 1; i >= 0; i-- {
		name, d := entries[i].name, entries[i].d
		entries[i].once.Do(func() {
			if err := d.Dispose(); err != nil {
				r.log.Error("dispose failed", "resource", name, "error", err)
			}
		})
	}
}
