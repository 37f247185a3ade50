// Package access implements AccessManager (spec §4.3, C3): a per-resource
// read/write lock table with an append-only audit trail, deadlock
// detection over a wait-for graph, acquire timeouts, and periodic reaping
// of locks whose holder has disappeared.
package access

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/codeready-toolchain/taskcore/pkg/config"
	"github.com/codeready-toolchain/taskcore/pkg/corerr"
)

// Mode is the lock mode: read locks compose, write locks are exclusive.
type Mode string

const (
	ModeRead  Mode = "read"
	ModeWrite Mode = "write"
)

// Lock is one entry in the lock table (spec §4.3: "{id, resource, holder,
// mode, acquiredAt, timeout, metadata}").
type Lock struct {
	ID         string
	Resource   string
	Holder     string
	Mode       Mode
	AcquiredAt time.Time
	Timeout    time.Duration
	Metadata   map[string]string
}

type waiter struct {
	holder   string
	resource string
	mode     Mode
	done     chan struct{}
	lock     *Lock
	err      error
}

// Manager is the concrete AccessManager. Lock-table operations run under a
// single mutex and are intended to be constant time (spec §5).
type Manager struct {
	mu sync.Mutex

	cfg config.AccessConfig

	// held maps resource -> currently granted locks on it. A resource can
	// have either exactly one write lock or any number of read locks.
	held map[string][]*Lock

	// waiting maps resource -> waiters blocked trying to acquire it, used
	// both for FIFO wakeup and for wait-for graph construction.
	waiting map[string][]*waiter

	// holderWaitingFor maps a blocked holder to the resource it is waiting
	// on, the edge set for deadlock detection.
	holderWaitingFor map[string]string

	audit *auditLog

	stopCleanup func()
}

// New constructs a Manager. auditPath is the append-only JSONL file under
// the write root (empty disables persistence).
func New(cfg config.AccessConfig, auditPath string) (*Manager, error) {
	var (
		al  *auditLog
		err error
	)
	if cfg.AuditEnabled && auditPath != "" {
		al, err = openAuditLog(auditPath)
		if err != nil {
			return nil, fmt.Errorf("open audit log: %w", err)
		}
	}

	m := &Manager{
		cfg:              cfg,
		held:             make(map[string][]*Lock),
		waiting:          make(map[string][]*waiter),
		holderWaitingFor: make(map[string]string),
		audit:            al,
	}
	return m, nil
}

// Acquire blocks until resource can be granted to holder in mode, ctx is
// cancelled, or the acquire timeout elapses, whichever comes first. The
// timeout is cfg.DefaultLockTimeout unless an Option overrides it; Acquire
// does not itself cap it at cfg.MaxLockTimeout (see WithBoundedTimeout).
func (m *Manager) Acquire(ctx context.Context, resource, holder string, mode Mode, opts ...Option) (*Lock, error) {
	o := defaultOptions(m.cfg)
	for _, apply := range opts {
		apply(&o)
	}

	m.mu.Lock()
	if m.tryGrantLocked(resource, holder, mode, o) {
		lock := m.grantLocked(resource, holder, mode, o)
		m.mu.Unlock()
		m.record("acquire", lock)
		return lock, nil
	}

	w := &waiter{holder: holder, resource: resource, mode: mode, done: make(chan struct{})}
	m.waiting[resource] = append(m.waiting[resource], w)
	m.holderWaitingFor[holder] = resource
	m.mu.Unlock()

	timer := time.NewTimer(o.timeout)
	defer timer.Stop()

	select {
	case <-w.done:
		if w.err != nil {
			return nil, w.err
		}
		m.record("acquire", w.lock)
		return w.lock, nil
	case <-timer.C:
		m.removeWaiterLocked(w)
		return nil, corerr.LockTimeout(fmt.Sprintf("acquire %q timed out after %s", resource, o.timeout))
	case <-ctx.Done():
		m.removeWaiterLocked(w)
		return nil, corerr.Cancelled(fmt.Sprintf("acquire %q cancelled", resource))
	}
}

func (m *Manager) removeWaiterLocked(w *waiter) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.holderWaitingFor, w.holder)
	ws := m.waiting[w.resource]
	for i, cand := range ws {
		if cand == w {
			m.waiting[w.resource] = append(ws[:i], ws[i+1:]...)
			break
		}
	}
}

// tryGrantLocked reports whether resource can be granted to mode right now,
// given currently held locks. Must be called with m.mu held.
func (m *Manager) tryGrantLocked(resource, holder string, mode Mode, o options) bool {
	current := m.held[resource]
	if len(current) == 0 {
		return true
	}
	if mode == ModeRead {
		for _, l := range current {
			if l.Mode == ModeWrite {
				return false
			}
		}
		return true
	}
	return false
}

func (m *Manager) grantLocked(resource, holder string, mode Mode, o options) *Lock {
	lock := &Lock{
		ID:         uuid.NewString(),
		Resource:   resource,
		Holder:     holder,
		Mode:       mode,
		AcquiredAt: time.Now(),
		Timeout:    o.timeout,
		Metadata:   o.metadata,
	}
	m.held[resource] = append(m.held[resource], lock)
	return lock
}

// Release releases a previously granted lock and wakes the next compatible
// waiter(s), if any.
func (m *Manager) Release(lockID string) error {
	m.mu.Lock()
	var (
		found    *Lock
		resource string
	)
	for res, locks := range m.held {
		for i, l := range locks {
			if l.ID == lockID {
				found = l
				resource = res
				m.held[res] = append(locks[:i], locks[i+1:]...)
				break
			}
		}
		if found != nil {
			break
		}
	}
	if found == nil {
		m.mu.Unlock()
		return corerr.NotFound(fmt.Sprintf("lock %q not found", lockID))
	}
	m.wakeWaitersLocked(resource)
	m.mu.Unlock()

	m.record("release", found)
	return nil
}

// wakeWaitersLocked grants the resource to as many compatible queued
// waiters as possible, in FIFO order. Must be called with m.mu held.
func (m *Manager) wakeWaitersLocked(resource string) {
	ws := m.waiting[resource]
	var remaining []*waiter
	for i, w := range ws {
		if m.tryGrantLocked(resource, w.holder, w.mode, defaultOptions(m.cfg)) {
			lock := m.grantLocked(resource, w.holder, w.mode, defaultOptions(m.cfg))
			delete(m.holderWaitingFor, w.holder)
			w.lock = lock
			close(w.done)
			if w.mode == ModeWrite {
				// A write grant must stop here: nothing else may hold
				// this resource concurrently.
				remaining = append(remaining, ws[i+1:]...)
				m.waiting[resource] = remaining
				return
			}
		} else {
			remaining = append(remaining, w)
		}
	}
	m.waiting[resource] = remaining
}

// DetectDeadlocks walks the wait-for graph once: holder A waits for
// resource R held (exclusively, or for write contention) by holder B, and B
// is itself waiting on a resource that traces back to A. On finding a
// cycle, one waiting acquirer in it is failed with Deadlock, which breaks
// the cycle: the first member reached while ranging over holderWaitingFor.
// Which member that is follows map iteration order; block times are not
// tracked, so it is not necessarily the most recently blocked acquirer.
func (m *Manager) DetectDeadlocks() {
	m.mu.Lock()
	defer m.mu.Unlock()

	holderOf := make(map[string][]string) // resource -> holders currently holding it
	for res, locks := range m.held {
		for _, l := range locks {
			holderOf[res] = append(holderOf[res], l.Holder)
		}
	}

	for holder, resource := range m.holderWaitingFor {
		visited := map[string]bool{holder: true}
		if m.cyclesBackTo(holder, resource, holderOf, visited) {
			m.failWaiterLocked(holder, resource)
		}
	}
}

func (m *Manager) cyclesBackTo(origin, resource string, holderOf map[string][]string, visited map[string]bool) bool {
	for _, h := range holderOf[resource] {
		if h == origin {
			return true
		}
		if visited[h] {
			continue
		}
		visited[h] = true
		next, waiting := m.holderWaitingFor[h]
		if !waiting {
			continue
		}
		if m.cyclesBackTo(origin, next, holderOf, visited) {
			return true
		}
	}
	return false
}

func (m *Manager) failWaiterLocked(holder, resource string) {
	ws := m.waiting[resource]
	for i, w := range ws {
		if w.holder == holder {
			w.err = corerr.Deadlock(fmt.Sprintf("deadlock detected involving holder %q on %q", holder, resource))
			close(w.done)
			m.waiting[resource] = append(ws[:i], ws[i+1:]...)
			delete(m.holderWaitingFor, holder)
			return
		}
	}
}

// CleanupStaleLocks reaps every held lock whose holder is reported gone by
// isAlive. Used by the periodic cleanup scheduler (see Scheduler).
func (m *Manager) CleanupStaleLocks(isAlive func(holder string) bool) {
	m.mu.Lock()
	var reaped []*Lock
	for res, locks := range m.held {
		var kept []*Lock
		for _, l := range locks {
			if isAlive(l.Holder) {
				kept = append(kept, l)
			} else {
				reaped = append(reaped, l)
			}
		}
		if len(kept) == 0 {
			delete(m.held, res)
		} else {
			m.held[res] = kept
		}
	}
	for _, l := range reaped {
		m.wakeWaitersLocked(l.Resource)
	}
	m.mu.Unlock()

	for _, l := range reaped {
		m.record("reap", l)
	}
}

func (m *Manager) record(action string, l *Lock) {
	if m.audit == nil || l == nil {
		return
	}
	m.audit.append(auditEntry{
		Action:     action,
		LockID:     l.ID,
		Resource:   l.Resource,
		Holder:     l.Holder,
		Mode:       string(l.Mode),
		AcquiredAt: l.AcquiredAt,
		At:         time.Now(),
	})
}

// Close flushes and closes the audit log, if one is open.
func (m *Manager) Close() error {
	if m.audit == nil {
		return nil
	}
	return m.audit.close()
}
