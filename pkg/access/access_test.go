package access

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/codeready-toolchain/taskcore/pkg/config"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	cfg := config.AccessConfig{
		DefaultLockTimeout:   200 * time.Millisecond,
		MaxLockTimeout:       time.Second,
		CleanupInterval:      time.Minute,
		DeadlockScanInterval: time.Minute,
		AuditEnabled:         true,
	}
	m, err := New(cfg, filepath.Join(t.TempDir(), "access.log"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Close() })
	return m
}

func TestAcquireRelease_WriteExclusive(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	lock, err := m.Acquire(ctx, "task:T1", "holder-a", ModeWrite)
	require.NoError(t, err)
	require.NotEmpty(t, lock.ID)

	require.NoError(t, m.Release(lock.ID))
}

func TestAcquire_ReadLocksCompose(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	l1, err := m.Acquire(ctx, "task:T1", "holder-a", ModeRead)
	require.NoError(t, err)
	l2, err := m.Acquire(ctx, "task:T1", "holder-b", ModeRead)
	require.NoError(t, err)

	require.NoError(t, m.Release(l1.ID))
	require.NoError(t, m.Release(l2.ID))
}

func TestAcquire_WriteBlocksUntilReleased(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	l1, err := m.Acquire(ctx, "task:T1", "holder-a", ModeWrite)
	require.NoError(t, err)

	acquired := make(chan struct{})
	go func() {
		l2, err := m.Acquire(ctx, "task:T1", "holder-b", ModeWrite, WithTimeout(time.Second))
		require.NoError(t, err)
		close(acquired)
		_ = m.Release(l2.ID)
	}()

	time.Sleep(30 * time.Millisecond)
	require.NoError(t, m.Release(l1.ID))

	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("second acquire never unblocked")
	}
}

func TestAcquire_TimesOut(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	_, err := m.Acquire(ctx, "task:T1", "holder-a", ModeWrite)
	require.NoError(t, err)

	_, err = m.Acquire(ctx, "task:T1", "holder-b", ModeWrite, WithTimeout(20*time.Millisecond))
	require.Error(t, err)
}

func TestAcquire_CancelledContext(t *testing.T) {
	m := newTestManager(t)
	ctx, cancel := context.WithCancel(context.Background())

	_, err := m.Acquire(context.Background(), "task:T1", "holder-a", ModeWrite)
	require.NoError(t, err)

	errCh := make(chan error, 1)
	go func() {
		_, err := m.Acquire(ctx, "task:T1", "holder-b", ModeWrite, WithTimeout(time.Second))
		errCh <- err
	}()
	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		require.Error(t, err)
	case <-time.After(time.Second):
		t.Fatal("acquire never returned after cancellation")
	}
}

func TestRelease_UnknownLock(t *testing.T) {
	m := newTestManager(t)
	require.Error(t, m.Release("nonexistent"))
}

func TestCleanupStaleLocks_ReapsDeadHolders(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	_, err := m.Acquire(ctx, "task:T1", "dead-holder", ModeWrite)
	require.NoError(t, err)

	m.CleanupStaleLocks(func(holder string) bool { return false })

	l2, err := m.Acquire(ctx, "task:T1", "holder-b", ModeWrite, WithTimeout(50*time.Millisecond))
	require.NoError(t, err)
	require.NoError(t, m.Release(l2.ID))
}

func TestDetectDeadlocks_BreaksCycle(t *testing.T) {
	m := newTestManager(t)

	_, err := m.Acquire(context.Background(), "task:A", "holder-1", ModeWrite)
	require.NoError(t, err)
	_, err = m.Acquire(context.Background(), "task:B", "holder-2", ModeWrite)
	require.NoError(t, err)

	err1Ch := make(chan error, 1)
	err2Ch := make(chan error, 1)
	go func() {
		_, err := m.Acquire(context.Background(), "task:B", "holder-1", ModeWrite, WithTimeout(time.Second))
		err1Ch <- err
	}()
	go func() {
		_, err := m.Acquire(context.Background(), "task:A", "holder-2", ModeWrite, WithTimeout(time.Second))
		err2Ch <- err
	}()

	time.Sleep(30 * time.Millisecond)
	m.DetectDeadlocks()

	select {
	case err := <-err1Ch:
		require.Error(t, err)
	case err := <-err2Ch:
		require.Error(t, err)
	case <-time.After(time.Second):
		t.Fatal("deadlock was never broken")
	}
}
