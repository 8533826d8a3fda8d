package resolver

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"playercache/internal/identity"
	"playercache/pkg/platform/sentinel"
)

func newTestClient(t *testing.T, handler http.Handler) *MojangClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewMojangClient(
		Config{APIBaseURL: srv.URL, SessionBaseURL: srv.URL, Timeout: time.Second},
		WithBatchDelay(0),
		WithClock(func() time.Time { return time.UnixMilli(5_000).UTC() }),
	)
}

func TestIDsForNames_BatchesAndFiltersInvalid(t *testing.T) {
	var requests atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("POST /profiles/minecraft", func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		var names []string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&names))
		assert.LessOrEqual(t, len(names), namesPerRequest)
		out := make([]profileRef, 0, len(names))
		for _, n := range names {
			id := uuid.NewSHA1(uuid.NameSpaceOID, []byte(n))
			out = append(out, profileRef{ID: compact(id), Name: n})
		}
		_ = json.NewEncoder(w).Encode(out)
	})
	c := newTestClient(t, mux)

	names := []string{"  padded  ", "x", "has space", "ünicode"}
	for i := range 12 {
		names = append(names, fmt.Sprintf("player_%d", i))
	}
	got, err := c.IDsForNames(context.Background(), names)
	require.NoError(t, err)

	assert.Len(t, got, 13)
	assert.Equal(t, uuid.NewSHA1(uuid.NameSpaceOID, []byte("padded")), got["padded"])
	assert.NotContains(t, got, "x")
	assert.EqualValues(t, 2, requests.Load())
}

func TestIDsForNames_ForbiddenMeansAbsent(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	got, err := c.IDsForNames(context.Background(), []string{"Nobody"})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestIDsForNames_ServerErrorIsRemoteFailure(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	_, err := c.IDsForNames(context.Background(), []string{"Somebody"})
	require.ErrorIs(t, err, sentinel.ErrRemote)
}

func TestIDsForNames_NoValidNamesMakesNoRequest(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		t.Error("unexpected request")
	}))
	got, err := c.IDsForNames(context.Background(), []string{"a", "way_too_long_for_a_player_name"})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestNamesForIDs(t *testing.T) {
	known := uuid.New()
	missing := uuid.New()
	mux := http.NewServeMux()
	mux.HandleFunc("GET /session/minecraft/profile/{id}", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("id") != compact(known) {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		_ = json.NewEncoder(w).Encode(sessionProfile{ID: compact(known), Name: "Alice"})
	})
	c := newTestClient(t, mux)

	got, err := c.NamesForIDs(context.Background(), []uuid.UUID{known, missing})
	require.NoError(t, err)
	assert.Equal(t, map[uuid.UUID]string{known: "Alice"}, got)
}

func TestNameHistory(t *testing.T) {
	id := uuid.New()
	mux := http.NewServeMux()
	mux.HandleFunc("GET /user/profiles/{id}/names", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, compact(id), r.PathValue("id"))
		_, _ = w.Write([]byte(`[{"name":"A"},{"name":"C","changedToAt":200},{"name":"B","changedToAt":100}]`))
	})
	c := newTestClient(t, mux)

	h, err := c.NameHistory(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, id, h.ID())
	assert.Equal(t, "A", h.FirstName())
	assert.Equal(t, []identity.NameChange{
		{NewName: "B", Date: time.UnixMilli(100).UTC()},
		{NewName: "C", Date: time.UnixMilli(200).UTC()},
	}, h.Changes())
	assert.Equal(t, time.UnixMilli(5_000).UTC(), h.CacheLoadTime())
}

func TestNameHistory_TwoOriginalNamesIsRemoteFailure(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`[{"name":"A"},{"name":"B"}]`))
	}))
	_, err := c.NameHistory(context.Background(), uuid.New())
	require.ErrorIs(t, err, sentinel.ErrRemote)
}

func TestNameHistory_NotFound(t *testing.T) {
	c := newTestClient(t, http.NotFoundHandler())
	_, err := c.NameHistory(context.Background(), uuid.New())
	require.ErrorIs(t, err, sentinel.ErrNotFound)
}

func TestProfile(t *testing.T) {
	id := uuid.New()
	mux := http.NewServeMux()
	mux.HandleFunc("GET /session/minecraft/profile/{id}", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "false", r.URL.Query().Get("unsigned"))
		_, _ = w.Write([]byte(`{"id":"` + r.PathValue("id") + `","name":"Alice","properties":[{"name":"textures","value":"dmFsdWU=","signature":"c2ln"}]}`))
	})
	c := newTestClient(t, mux)

	props, err := c.Profile(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, []identity.Property{{Name: "textures", Value: "dmFsdWU=", Signature: "c2ln"}}, props)
}

func TestProfile_MismatchedIDIsAbsent(t *testing.T) {
	other := strings.ReplaceAll(uuid.New().String(), "-", "")
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"id":"` + other + `","name":"Alice","properties":[]}`))
	}))
	_, err := c.Profile(context.Background(), uuid.New())
	require.ErrorIs(t, err, sentinel.ErrNotFound)
}

func TestCancelledContextStopsBatches(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	}))
	c.batchDelay = time.Hour
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	names := make([]string, 0, 20)
	for i := range 20 {
		names = append(names, fmt.Sprintf("player_%d", i))
	}
	_, err := c.IDsForNames(ctx, names)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}
