// Package di implements the DI container called for by spec §9's redesign
// note: "replace pervasive singletons and isInitializing guards with a DI
// container that resolves services by token, supports singleton/transient/
// scoped lifecycles, detects cycles at registration, and exposes a
// disposable teardown."
package di

import (
	"fmt"
	"sync"

	"github.com/codeready-toolchain/taskcore/pkg/resource"
)

// Token names a registered service.
type Token string

// Lifecycle controls how many instances Resolve produces.
type Lifecycle int

const (
	// Singleton: one instance for the life of the Container.
	Singleton Lifecycle = iota
	// Transient: a fresh instance on every Resolve.
	Transient
	// Scoped: one instance per Scope, discarded when the Scope ends.
	Scoped
)

// Factory builds a service instance, resolving its own dependencies through
// r (the Container or an active Scope).
type Factory func(r Resolver) (any, error)

// Resolver is the subset of Container/Scope a Factory needs.
type Resolver interface {
	Resolve(token Token) (any, error)
}

type registration struct {
	token     Token
	lifecycle Lifecycle
	deps      []Token
	factory   Factory

	mu       sync.Mutex
	instance any
	built    bool
}

// Container is the concrete DI container: token-keyed registration, cycle
// detection at registration time, and disposable teardown of every
// singleton it ever built.
type Container struct {
	mu    sync.Mutex
	regs  map[Token]*registration
	res   *resource.Registry
}

// New constructs an empty Container. disposables is where singleton
// instances implementing resource.Disposable are registered for teardown;
// pass nil to skip automatic disposal tracking.
func New(disposables *resource.Registry) *Container {
	return &Container{regs: make(map[Token]*registration), res: disposables}
}

// Register adds token with the given lifecycle, declared dependencies, and
// factory. Returns an error if doing so would create a dependency cycle
// (spec §9: "detects cycles at registration") or if token is already
// registered.
func (c *Container) Register(token Token, lifecycle Lifecycle, deps []Token, factory Factory) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.regs[token]; exists {
		return fmt.Errorf("di: token %q already registered", token)
	}

	c.regs[token] = &registration{token: token, lifecycle: lifecycle, deps: deps, factory: factory}

	if cyclePath, ok := c.findCycle(token); ok {
		delete(c.regs, token)
		return fmt.Errorf("di: registering %q would create a dependency cycle: %v", token, cyclePath)
	}
	return nil
}

// findCycle runs a DFS from start over the registered deps graph. Must be
// called with c.mu held.
func (c *Container) findCycle(start Token) ([]Token, bool) {
	visiting := make(map[Token]bool)
	var path []Token

	var visit func(t Token) ([]Token, bool)
	visit = func(t Token) ([]Token, bool) {
		if visiting[t] {
			return append(append([]Token{}, path...), t), true
		}
		reg, ok := c.regs[t]
		if !ok {
			return nil, false
		}
		visiting[t] = true
		path = append(path, t)
		defer func() {
			path = path[:len(path)-1]
			visiting[t] = false
		}()
		for _, dep := range reg.deps {
			if cyclePath, found := visit(dep); found {
				return cyclePath, true
			}
		}
		return nil, false
	}
	return visit(start)
}

// Resolve produces or returns a cached instance for token, per its
// registered lifecycle. Scoped tokens resolved directly on the Container
// (outside any Scope) behave as Transient.
func (c *Container) Resolve(token Token) (any, error) {
	reg, err := c.lookup(token)
	if err != nil {
		return nil, err
	}

	switch reg.lifecycle {
	case Singleton:
		return c.resolveSingleton(reg)
	default:
		return c.build(reg)
	}
}

func (c *Container) lookup(token Token) (*registration, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	reg, ok := c.regs[token]
	if !ok {
		return nil, fmt.Errorf("di: token %q not registered", token)
	}
	return reg, nil
}

func (c *Container) resolveSingleton(reg *registration) (any, error) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	if reg.built {
		return reg.instance, nil
	}
	instance, err := reg.factory(c)
	if err != nil {
		return nil, err
	}
	reg.instance = instance
	reg.built = true
	if d, ok := instance.(resource.Disposable); ok && c.res != nil {
		c.res.Register(string(reg.token), d)
	}
	return instance, nil
}

func (c *Container) build(reg *registration) (any, error) {
	return reg.factory(c)
}

// NewScope begins a scoped resolution context bound to c.
func (c *Container) NewScope() *Scope {
	return &Scope{container: c, cache: make(map[Token]any)}
}
