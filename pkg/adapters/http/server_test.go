package http

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/aretw0/transito"
	"github.com/aretw0/transito/internal/testutil"
	"github.com/aretw0/transito/pkg/adapters/memory"
	"github.com/aretw0/transito/pkg/domain"
	"github.com/aretw0/transito/pkg/ports"
	"github.com/aretw0/transito/pkg/schema"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHandler(t *testing.T, adapter ports.Adapter, opts ...Option) (http.Handler, *transito.Machine) {
	t.Helper()
	m, err := transito.Bind(testutil.ExampleDefinition(t), adapter,
		transito.WithUnhandledEventPolicy(transito.UnhandledReject))
	require.NoError(t, err)
	return NewHandler(m, opts...), m
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decodeSnapshot(t *testing.T, w *httptest.ResponseRecorder) domain.Snapshot {
	t.Helper()
	var snap domain.Snapshot
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &snap), w.Body.String())
	return snap
}

func TestActorLifecycle(t *testing.T) {
	h, _ := newTestHandler(t, memory.NewStore())

	w := do(t, h, http.MethodPost, "/actors", `{"id":"a1","context":{"count":0}}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	snap := decodeSnapshot(t, w)
	assert.Equal(t, "a1", snap.ID)
	assert.Equal(t, "inactive", snap.State)

	w = do(t, h, http.MethodPost, "/actors", `{"id":"a1","context":{}}`)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = do(t, h, http.MethodPost, "/actors/a1/events/activate", `{"name":"Ada"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	snap = decodeSnapshot(t, w)
	assert.Equal(t, "active", snap.State)
	assert.Equal(t, "Ada", snap.Context["name"])
	assert.Equal(t, 1, testutil.Int(snap.Context["count"]))

	w = do(t, h, http.MethodGet, "/actors/a1", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "active", decodeSnapshot(t, w).State)

	w = do(t, h, http.MethodGet, "/actors", "")
	require.Equal(t, http.StatusOK, w.Code)
	var list ListResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	assert.Equal(t, []string{"a1"}, list.IDs)

	w = do(t, h, http.MethodDelete, "/actors/a1", "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = do(t, h, http.MethodGet, "/actors/a1", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCreateActor_GeneratesID(t *testing.T) {
	h, _ := newTestHandler(t, memory.NewStore())
	w := do(t, h, http.MethodPost, "/actors", `{"context":{}}`)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Len(t, decodeSnapshot(t, w).ID, 36)

	h, _ = newTestHandler(t, memory.NewStore(), WithIDGenerator(func() (string, error) { return "fixed", nil }))
	w = do(t, h, http.MethodPost, "/actors", `{"context":{}}`)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "fixed", decodeSnapshot(t, w).ID)
}

func TestSendEvent_StatusMapping(t *testing.T) {
	h, m := newTestHandler(t, memory.NewStore())
	_, err := m.CreateActor(context.Background(), "a1", map[string]any{})
	require.NoError(t, err)

	tests := []struct {
		name   string
		path   string
		body   string
		status int
	}{
		{"Unknown Actor", "/actors/missing/events/activate", `{"name":"x"}`, http.StatusNotFound},
		{"Unhandled Event Rejected", "/actors/a1/events/deactivate", "", http.StatusUnprocessableEntity},
		{"Malformed Payload", "/actors/a1/events/activate", `{"name":`, http.StatusBadRequest},
		{"Failed Entry Takes Error Branch", "/actors/a1/events/activate", "", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, h, http.MethodPost, tt.path, tt.body)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
		})
	}
}

func TestStatusCode(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{fmt.Errorf("%w: must not be empty", domain.ErrInvalidActorID), http.StatusBadRequest},
		{domain.ErrActorNotFound, http.StatusNotFound},
		{&domain.ActorAlreadyExistsError{ID: "x"}, http.StatusConflict},
		{fmt.Errorf("persist: %w", domain.ErrConcurrencyConflict), http.StatusConflict},
		{&domain.ActionError{State: "s", Err: errors.New("boom")}, http.StatusUnprocessableEntity},
		{&domain.UnhandledEventError{State: "s", Event: "e"}, http.StatusUnprocessableEntity},
		{&schema.AggregateError{Errors: []error{errors.New("bad")}}, http.StatusUnprocessableEntity},
		{errors.ErrUnsupported, http.StatusNotImplemented},
		{&domain.MachineCycleError{Path: []string{"a", "a"}}, http.StatusInternalServerError},
		{errors.New("disk on fire"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.status, StatusCode(tt.err), tt.err.Error())
	}
}

type bareAdapter struct{ ports.Adapter }

func TestListAndDelete_Unsupported(t *testing.T) {
	h, _ := newTestHandler(t, bareAdapter{memory.NewStore()})
	assert.Equal(t, http.StatusNotImplemented, do(t, h, http.MethodGet, "/actors", "").Code)
	assert.Equal(t, http.StatusNotImplemented, do(t, h, http.MethodDelete, "/actors/a1", "").Code)
}

func TestHealthGraphAndMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	counter := prometheus.NewCounter(prometheus.CounterOpts{Name: "transito_test_total", Help: "test"})
	reg.MustRegister(counter)
	counter.Inc()

	h, _ := newTestHandler(t, memory.NewStore(), WithMetrics(reg))

	w := do(t, h, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())

	w = do(t, h, http.MethodGet, "/graph", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `inactive -- "activate" --> activating`)

	w = do(t, h, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "transito_test_total 1")

	h, _ = newTestHandler(t, memory.NewStore())
	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodGet, "/metrics", "").Code)
}

func TestStreamActor(t *testing.T) {
	h, m := newTestHandler(t, memory.NewStore())
	_, err := m.CreateActor(context.Background(), "a1", map[string]any{})
	require.NoError(t, err)

	srv := httptest.NewServer(h)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/actors/a1/stream", nil)
	require.NoError(t, err)
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	lines := bufio.NewScanner(resp.Body)
	require.True(t, lines.Scan())
	require.Equal(t, "event: ping", lines.Text())

	// The ping is flushed after the subscription is registered.
	post, err := srv.Client().Post(srv.URL+"/actors/a1/events/activate", "application/json",
		bytes.NewReader([]byte(`{"name":"Ada"}`)))
	require.NoError(t, err)
	post.Body.Close()
	require.Equal(t, http.StatusOK, post.StatusCode)

	var data string
	for lines.Scan() {
		if after, ok := strings.CutPrefix(lines.Text(), "data: {"); ok {
			data = "{" + after
			break
		}
	}
	require.NotEmpty(t, data)

	var snap domain.Snapshot
	require.NoError(t, json.Unmarshal([]byte(data), &snap))
	assert.Equal(t, "active", snap.State)
}

func TestStreamManager_DropsWhenFull(t *testing.T) {
	sm := NewStreamManager()
	ch, cancel := sm.Subscribe("a1")

	for i := 0; i < 20; i++ {
		sm.Broadcast(&domain.Snapshot{ID: "a1", State: "s"})
	}
	sm.Broadcast(&domain.Snapshot{ID: "other", State: "s"})
	assert.Len(t, ch, 10)

	cancel()
	cancel()
	_, open := <-ch
	for open {
		_, open = <-ch
	}
}
