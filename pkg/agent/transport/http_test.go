package transport

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeready-toolchain/taskcore/pkg/domain"
)

func TestHTTPDispatcher_PostsPayloadWithBearerAuth(t *testing.T) {
	var got DispatchPayload
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	d := NewHTTPDispatcher(time.Second, nil)
	agent := &domain.Agent{ID: "A1", HTTPEndpoint: srv.URL, HTTPAuthToken: "s3cr3t"}
	require.NoError(t, d.Dispatch(context.Background(), agent, &domain.AtomicTask{ID: "T1"}))
	assert.Equal(t, "T1", got.TaskID)
	assert.Equal(t, "Bearer s3cr3t", gotAuth)
}

func TestHTTPDispatcher_MissingEndpointQueuesForPoll(t *testing.T) {
	d := NewHTTPDispatcher(time.Second, nil)
	require.NoError(t, d.Dispatch(context.Background(), &domain.Agent{ID: "A1"}, &domain.AtomicTask{ID: "T1"}))

	queued := d.Poll("A1")
	require.Len(t, queued, 1)
	assert.Equal(t, "T1", queued[0].TaskID)
	assert.Empty(t, d.Poll("A1"))
}

type stubHeartbeatSink struct {
	agentID string
	at      time.Time
}

func (s *stubHeartbeatSink) Heartbeat(agentID string, at time.Time) error {
	s.agentID, s.at = agentID, at
	return nil
}

func TestHTTPDispatcher_PollRecordsHeartbeat(t *testing.T) {
	sink := &stubHeartbeatSink{}
	d := NewHTTPDispatcher(time.Second, sink)
	d.Poll("A1")
	assert.Equal(t, "A1", sink.agentID)
	assert.False(t, sink.at.IsZero())
}

func TestHTTPDispatcher_ErrorStatusFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	d := NewHTTPDispatcher(time.Second, nil)
	agent := &domain.Agent{ID: "A1", HTTPEndpoint: srv.URL}
	err := d.Dispatch(context.Background(), agent, &domain.AtomicTask{ID: "T1"})
	require.Error(t, err)
}
