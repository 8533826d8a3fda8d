package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"playercache/internal/cache"
	"playercache/internal/events"
	"playercache/internal/identity"
	"playercache/internal/platform/workers"
	"playercache/internal/resolver/mocks"
	"playercache/pkg/platform/sentinel"
)

var testNow = time.UnixMilli(1_700_000_000_000).UTC()

type recordingSink struct {
	mu     sync.Mutex
	events []events.NameChanged
}

func (r *recordingSink) Emit(e events.NameChanged) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return true
}

func (r *recordingSink) emitted() []events.NameChanged {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]events.NameChanged(nil), r.events...)
}

// historyStore is a cache.Writer and cache.HistoryStore counting history
// writes.
type historyStore struct {
	mu        sync.Mutex
	histories map[uuid.UUID]identity.NameHistory
	upserts   int
}

func newHistoryStore() *historyStore {
	return &historyStore{histories: map[uuid.UUID]identity.NameHistory{}}
}

func (h *historyStore) UpsertIdentities(context.Context, ...identity.Record) error { return nil }

func (h *historyStore) UpsertNameHistory(_ context.Context, nh identity.NameHistory) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.upserts++
	h.histories[nh.ID()] = nh
	return nil
}

func (h *historyStore) NameHistory(_ context.Context, id uuid.UUID) (identity.NameHistory, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	nh, ok := h.histories[id]
	if !ok {
		return identity.NameHistory{}, sentinel.ErrNotFound
	}
	return nh, nil
}

func (h *historyStore) FindIDsEverNamed(context.Context, string) ([]uuid.UUID, error) {
	return nil, nil
}

func (h *historyStore) upsertCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.upserts
}

type staticDirectory []KnownPlayer

func (d staticDirectory) KnownPlayers(context.Context) ([]KnownPlayer, error) {
	return d, nil
}

type ServiceSuite struct {
	suite.Suite
	ctrl     *gomock.Controller
	resolver *mocks.MockResolver
	cache    *cache.Cache
	sink     *recordingSink
	svc      *Service
	ctx      context.Context
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.resolver = mocks.NewMockResolver(s.ctrl)
	s.cache = newCache()
	s.sink = &recordingSink{}
	s.ctx = context.Background()
	svc, err := New(s.cache,
		WithResolver(s.resolver),
		WithEvents(s.sink),
		WithLogger(discard()),
	)
	s.Require().NoError(err)
	s.svc = svc
}

func (s *ServiceSuite) TearDownTest() {
	s.svc.Close()
	s.ctrl.Finish()
}

func newCache(opts ...cache.Option) *cache.Cache {
	cfg := cache.Config{MemoryTTL: -1, ProfileTTL: time.Hour, ProfileLocalTTL: 10 * time.Minute}
	opts = append([]cache.Option{
		cache.WithClock(func() time.Time { return testNow }),
		cache.WithLogger(discard()),
	}, opts...)
	return cache.New(cfg, opts...)
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func (s *ServiceSuite) seed(name string) identity.Record {
	r := identity.NewRecord(uuid.New(), name, testNow.Add(-time.Hour), testNow)
	s.cache.Reconcile(s.ctx, []identity.Record{r}, false)
	return r
}

func (s *ServiceSuite) TestNew_RequiresCache() {
	_, err := New(nil)
	s.Error(err)
}

func (s *ServiceSuite) TestPlayerByName_CachedNeedsNoRemote() {
	want := s.seed("Alice")

	got, ok := s.svc.PlayerByName(s.ctx, "alice", true)
	s.Require().True(ok)
	s.Equal(want, got)
	s.Zero(s.svc.Stats().RemoteQueries)
}

func (s *ServiceSuite) TestPlayerByName_MissWithoutResolveIsAbsent() {
	_, ok := s.svc.PlayerByName(s.ctx, "Ghost", false)
	s.False(ok)
}

func (s *ServiceSuite) TestPlayerByName_ResolvesAndCaches() {
	id := uuid.New()
	s.resolver.EXPECT().IDsForNames(gomock.Any(), []string{"alice"}).
		Return(map[string]uuid.UUID{"Alice": id}, nil)

	got, ok := s.svc.PlayerByName(s.ctx, "alice", true)
	s.Require().True(ok)
	s.Equal(id, got.ID)
	s.Equal("Alice", got.Name)
	s.Equal(testNow, got.LastSeen)

	again, ok := s.svc.PlayerByName(s.ctx, "ALICE", true)
	s.Require().True(ok)
	s.Equal(got, again)
	s.EqualValues(1, s.svc.Stats().RemoteQueries)
}

func (s *ServiceSuite) TestPlayerByName_RemoteFailureIsAbsent() {
	s.resolver.EXPECT().IDsForNames(gomock.Any(), gomock.Any()).
		Return(nil, fmt.Errorf("fetch ids for names: %w", sentinel.ErrRemote))

	_, ok := s.svc.PlayerByName(s.ctx, "Alice", true)
	s.False(ok)
	_, ok = s.cache.PeekName("Alice")
	s.False(ok)
}

func (s *ServiceSuite) TestPlayerByNameOrID_ParsesIDs() {
	id := uuid.New()
	s.resolver.EXPECT().NamesForIDs(gomock.Any(), []uuid.UUID{id}).
		Return(map[uuid.UUID]string{id: "Bob"}, nil)

	got, ok := s.svc.PlayerByNameOrID(s.ctx, "  "+id.String()+" ", true)
	s.Require().True(ok)
	s.Equal("Bob", got.Name)
}

func (s *ServiceSuite) TestPlayerByID_UnknownRemotelyIsAbsent() {
	s.resolver.EXPECT().NamesForIDs(gomock.Any(), gomock.Any()).Return(map[uuid.UUID]string{}, nil)

	_, ok := s.svc.PlayerByID(s.ctx, uuid.New(), true)
	s.False(ok)
}

func (s *ServiceSuite) TestPlayersByNames_OneRemoteCallForMisses() {
	alice := s.seed("Alice")
	bob, carol := uuid.New(), uuid.New()
	s.resolver.EXPECT().IDsForNames(gomock.Any(), []string{"Bob", "Carol", "Nobody"}).
		Return(map[string]uuid.UUID{"Bob": bob, "Carol": carol}, nil)

	got := s.svc.PlayersByNames(s.ctx, []string{"alice", "Bob", "BOB", " Carol ", "Nobody", ""}, true)

	ids := make(map[uuid.UUID]string, len(got))
	for _, r := range got {
		ids[r.ID] = r.Name
	}
	s.Equal(map[uuid.UUID]string{alice.ID: "Alice", bob: "Bob", carol: "Carol"}, ids)
	_, ok := s.cache.PeekName("carol")
	s.True(ok)
}

func (s *ServiceSuite) TestSearchPlayers() {
	s.seed("Alice")
	s.seed("Malice")
	s.seed("Bob")

	got := s.svc.SearchPlayers(s.ctx, "LIC")
	s.Len(got, 2)
}

func (s *ServiceSuite) TestNameHistory_ResolvesAndCaches() {
	id := uuid.New()
	h := identity.NewNameHistory(id, "A", []identity.NameChange{{NewName: "B", Date: testNow.Add(-time.Hour)}}, testNow)
	s.resolver.EXPECT().NameHistory(gomock.Any(), id).Return(h, nil)

	got, ok := s.svc.NameHistory(s.ctx, id, true)
	s.Require().True(ok)
	s.Equal("B", got.CurrentName())

	cached, ok := s.svc.NameHistory(s.ctx, id, false)
	s.Require().True(ok)
	s.Equal(h, cached)
}

func (s *ServiceSuite) TestProfile_ResolvesThenServesFromMemory() {
	id := uuid.New()
	props := []identity.Property{{Name: "textures", Value: "v", Signature: "sig"}}
	s.resolver.EXPECT().Profile(gomock.Any(), id).Return(props, nil)

	got, ok := s.svc.Profile(s.ctx, id, true)
	s.Require().True(ok)
	s.Equal(props, got.Properties)
	s.Equal(identity.ProfileExpiration(id, testNow, time.Hour), got.Expiration)

	again, ok := s.svc.Profile(s.ctx, id, true)
	s.Require().True(ok)
	s.Equal(got.Properties, again.Properties)
}

func (s *ServiceSuite) TestProfile_AbsentRemotely() {
	id := uuid.New()
	s.resolver.EXPECT().Profile(gomock.Any(), id).Return(nil, fmt.Errorf("fetch profile: %w", sentinel.ErrNotFound))

	_, ok := s.svc.Profile(s.ctx, id, true)
	s.False(ok)
}

func (s *ServiceSuite) TestOnPlayerSeen_UnknownHistoryIsFetchedInBackground() {
	id := uuid.New()
	h := identity.NewNameHistory(id, "Alice", nil, testNow)
	s.resolver.EXPECT().NameHistory(gomock.Any(), id).Return(h, nil)

	s.svc.OnPlayerSeen(s.ctx, id, "Alice", testNow)

	r, ok := s.cache.Peek(id)
	s.Require().True(ok)
	s.Equal("Alice", r.Name)

	s.svc.pool.Wait()
	got, ok := s.svc.NameHistory(s.ctx, id, false)
	s.Require().True(ok)
	s.Equal("Alice", got.FirstName())
}

func (s *ServiceSuite) TestOnPlayerSeen_RemoteFailureStartsLocalHistory() {
	id := uuid.New()
	s.resolver.EXPECT().NameHistory(gomock.Any(), id).Return(identity.NameHistory{}, errors.New("boom"))

	s.svc.OnPlayerSeen(s.ctx, id, "Alice", testNow)
	s.svc.pool.Wait()

	got, ok := s.svc.NameHistory(s.ctx, id, false)
	s.Require().True(ok)
	s.Equal("Alice", got.FirstName())
	s.Empty(got.Changes())
}

func (s *ServiceSuite) TestOnPlayerSeen_AppendsNameChange() {
	id := uuid.New()
	s.cache.UpdateHistory(s.ctx, identity.NewNameHistory(id, "Alice", nil, testNow), false)

	s.svc.OnPlayerSeen(s.ctx, id, "Alicia", testNow)

	got, ok := s.svc.NameHistory(s.ctx, id, false)
	s.Require().True(ok)
	s.Equal([]identity.NameChange{{NewName: "Alicia", Date: testNow}}, got.Changes())
	s.Equal("Alicia", got.NameAt(testNow))

	emitted := s.sink.emitted()
	s.Require().Len(emitted, 1)
	s.Equal(events.NameChanged{ID: id, OldName: "Alice", NewName: "Alicia", At: testNow}, emitted[0])

	s.svc.OnPlayerSeen(s.ctx, id, "Alicia", testNow)
	s.Len(s.sink.emitted(), 1)
}

func (s *ServiceSuite) TestOnPlayerSeen_OutOfOrderSightingKeepsHistory() {
	id := uuid.New()
	renamed := testNow.Add(-time.Minute)
	s.cache.Reconcile(s.ctx, []identity.Record{identity.NewRecord(id, "Bob", renamed, testNow)}, false)
	s.cache.UpdateHistory(s.ctx, identity.NewNameHistory(id, "Alice", []identity.NameChange{
		{NewName: "Bob", Date: renamed},
	}, testNow), false)

	s.svc.OnPlayerSeen(s.ctx, id, "Alice", testNow.Add(-2*time.Minute))

	got, ok := s.svc.NameHistory(s.ctx, id, false)
	s.Require().True(ok)
	s.Equal([]identity.NameChange{{NewName: "Bob", Date: renamed}}, got.Changes())
	s.Equal("Bob", got.CurrentName())
	s.Empty(s.sink.emitted())
}

func (s *ServiceSuite) TestAsyncDispatchDoesNotWaitForBusyPool() {
	pool := workers.New(1, discard())
	defer pool.Close()
	svc, err := New(s.cache, WithResolver(s.resolver), WithLogger(discard()), WithPool(pool))
	s.Require().NoError(err)
	defer svc.Close()

	alice, bob := uuid.New(), uuid.New()
	release := make(chan struct{})
	s.resolver.EXPECT().IDsForNames(gomock.Any(), []string{"Alice"}).
		DoAndReturn(func(context.Context, []string) (map[string]uuid.UUID, error) {
			<-release
			return map[string]uuid.UUID{"Alice": alice}, nil
		})
	s.resolver.EXPECT().IDsForNames(gomock.Any(), []string{"Bob"}).
		Return(map[string]uuid.UUID{"Bob": bob}, nil)

	results := make(chan identity.Record, 2)
	record := func(r identity.Record, ok bool) {
		s.True(ok)
		results <- r
	}
	svc.PlayerByNameAsync(s.ctx, "Alice", record)

	dispatched := make(chan struct{})
	go func() {
		svc.PlayerByNameAsync(s.ctx, "Bob", record)
		close(dispatched)
	}()
	select {
	case <-dispatched:
	case <-time.After(500 * time.Millisecond):
		close(release)
		s.FailNow("dispatch blocked while the pool was busy")
	}

	close(release)
	got := map[uuid.UUID]bool{}
	for range 2 {
		select {
		case r := <-results:
			got[r.ID] = true
		case <-time.After(time.Second):
			s.FailNow("callback not invoked")
		}
	}
	s.Equal(map[uuid.UUID]bool{alice: true, bob: true}, got)
}

func (s *ServiceSuite) TestAsyncCallbackRunsThroughExecutor() {
	id := uuid.New()
	s.resolver.EXPECT().IDsForNames(gomock.Any(), []string{"Alice"}).Return(map[string]uuid.UUID{"Alice": id}, nil)

	executed := make(chan struct{}, 1)
	svc, err := New(s.cache,
		WithResolver(s.resolver),
		WithLogger(discard()),
		WithExecutor(ExecutorFunc(func(fn func()) {
			executed <- struct{}{}
			fn()
		})),
	)
	s.Require().NoError(err)
	defer svc.Close()

	results := make(chan identity.Record, 1)
	svc.PlayerByNameAsync(s.ctx, "Alice", func(r identity.Record, ok bool) {
		s.True(ok)
		results <- r
	})

	select {
	case r := <-results:
		s.Equal(id, r.ID)
	case <-time.After(time.Second):
		s.Fail("callback not invoked")
	}
	s.Len(executed, 1)
}

func TestOnPlayerSeen_WithoutResolverStartsHistory(t *testing.T) {
	c := newCache()
	svc, err := New(c, WithLogger(discard()))
	require.NoError(t, err)
	defer svc.Close()

	id := uuid.New()
	svc.OnPlayerSeen(context.Background(), id, "Alice", testNow)

	h, ok := svc.NameHistory(context.Background(), id, true)
	require.True(t, ok)
	assert.Equal(t, "Alice", h.FirstName())
	assert.Empty(t, h.Changes())
}

func TestOnPlayerSeen_StoreReloadResolvesMismatch(t *testing.T) {
	store := newHistoryStore()
	c := newCache(cache.WithStore(store))
	sink := &recordingSink{}
	svc, err := New(c, WithEvents(sink), WithLogger(discard()))
	require.NoError(t, err)
	defer svc.Close()

	ctx := context.Background()
	id := uuid.New()
	renamed := testNow.Add(-time.Minute)
	c.UpdateHistory(ctx, identity.NewNameHistory(id, "Alice", nil, testNow), false)
	store.histories[id] = identity.NewNameHistory(id, "Alice", []identity.NameChange{
		{NewName: "Alicia", Date: renamed},
	}, testNow)

	svc.OnPlayerSeen(ctx, id, "Alicia", testNow)

	assert.Zero(t, store.upsertCount())
	assert.Empty(t, sink.emitted())
	h, ok := svc.NameHistory(ctx, id, false)
	require.True(t, ok)
	assert.Equal(t, []identity.NameChange{{NewName: "Alicia", Date: renamed}}, h.Changes())
}

func TestImportKnownPlayers(t *testing.T) {
	c := newCache()
	fresh := identity.NewRecord(uuid.New(), "Fresh", testNow, testNow)
	stale := identity.NewRecord(uuid.New(), "Stale", testNow.Add(-48*time.Hour), testNow)
	c.Reconcile(context.Background(), []identity.Record{fresh, stale}, false)

	unknown := uuid.New()
	dir := staticDirectory{
		{ID: fresh.ID, Name: "Fresh", LastPlayed: testNow.Add(-time.Hour)},
		{ID: stale.ID, Name: "StaleRenamed", LastPlayed: testNow.Add(-time.Hour)},
		{ID: unknown, Name: "Newcomer", LastPlayed: testNow.Add(-2 * time.Hour)},
		{ID: uuid.Nil, Name: "Broken"},
		{ID: uuid.New(), Name: ""},
	}
	svc, err := New(c, WithDirectory(dir), WithLogger(discard()))
	require.NoError(t, err)
	defer svc.Close()

	n, err := svc.ImportKnownPlayers(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	r, ok := c.Peek(stale.ID)
	require.True(t, ok)
	assert.Equal(t, "StaleRenamed", r.Name)
	r, ok = c.Peek(fresh.ID)
	require.True(t, ok)
	assert.Equal(t, testNow, r.LastSeen)
	_, ok = c.PeekName("newcomer")
	assert.True(t, ok)
}

func TestImportKnownPlayers_NoDirectory(t *testing.T) {
	svc, err := New(newCache(), WithLogger(discard()))
	require.NoError(t, err)
	defer svc.Close()

	n, err := svc.ImportKnownPlayers(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}
