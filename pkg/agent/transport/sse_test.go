package transport

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeready-toolchain/taskcore/pkg/domain"
)

func TestSSEHub_DispatchWithoutOpenStreamFails(t *testing.T) {
	h := NewSSEHub(0)
	err := h.Dispatch(context.Background(), &domain.Agent{ID: "A1"}, &domain.AtomicTask{ID: "T1"})
	require.Error(t, err)
}

func TestSSEHub_DispatchDeliversOnOpenStream(t *testing.T) {
	h := NewSSEHub(0)
	ch := make(chan DispatchPayload, 1)
	h.mu.Lock()
	h.streams["A1"] = ch
	h.mu.Unlock()

	require.NoError(t, h.Dispatch(context.Background(), &domain.Agent{ID: "A1"}, &domain.AtomicTask{ID: "T1"}))
	payload := <-ch
	assert.Equal(t, "T1", payload.TaskID)
}
