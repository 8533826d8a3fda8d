package app

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"playercache/internal/identity"
	"playercache/internal/platform/config"
	"playercache/internal/service"
	"playercache/internal/store/filestore"
)

var seen = time.UnixMilli(1_700_000_000_000).UTC()

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func fileConfig(t *testing.T) config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Storage.FilePath = filepath.Join(t.TempDir(), "players.dat")
	cfg.Resolver.Enabled = false
	return cfg
}

func sqlConfig(t *testing.T, filePath string) config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Storage.Backend = config.BackendSQL
	cfg.Storage.Driver = "sqlite3"
	cfg.Storage.DSN = filepath.Join(t.TempDir(), "players.db")
	cfg.Storage.FilePath = filePath
	cfg.Cache.MemoryTTL = 10 * time.Minute
	cfg.Resolver.Enabled = false
	return cfg
}

func writePlayerFile(t *testing.T, path string, records ...identity.Record) {
	t.Helper()
	files, err := filestore.Open(path)
	require.NoError(t, err)
	_, err = files.LoadAll(context.Background())
	require.NoError(t, err)
	require.NoError(t, files.UpsertIdentities(context.Background(), records...))
	files.Close()
}

func TestFileBackendSurvivesRestart(t *testing.T) {
	ctx := context.Background()
	cfg := fileConfig(t)
	id := uuid.New()

	a, err := New(ctx, cfg, WithLogger(quietLogger()))
	require.NoError(t, err)
	a.Service.OnPlayerSeen(ctx, id, "Steve", seen)
	a.Close()

	a, err = New(ctx, cfg, WithLogger(quietLogger()))
	require.NoError(t, err)
	defer a.Close()

	got, ok := a.Service.PlayerByName(ctx, "steve", false)
	require.True(t, ok)
	assert.Equal(t, id, got.ID)
	assert.True(t, seen.Equal(got.LastSeen))
	assert.False(t, a.Cache.HasProfileStore())
}

func TestSQLBackendMigratesPlayerFile(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "players.dat")
	alex := identity.NewRecord(uuid.New(), "Alex", seen, seen)
	writePlayerFile(t, path, alex)

	cfg := sqlConfig(t, path)
	a, err := New(ctx, cfg, WithLogger(quietLogger()))
	require.NoError(t, err)

	exists, err := filestore.Exists(path)
	require.NoError(t, err)
	assert.False(t, exists)
	assert.True(t, a.Cache.HasProfileStore())
	a.Close()

	// the records now live in the database
	a, err = New(ctx, cfg, WithLogger(quietLogger()))
	require.NoError(t, err)
	defer a.Close()
	got, ok := a.Service.PlayerByID(ctx, alex.ID, false)
	require.True(t, ok)
	assert.Equal(t, "Alex", got.Name)
}

func TestImportFileRejectsActiveFile(t *testing.T) {
	ctx := context.Background()
	cfg := fileConfig(t)
	a, err := New(ctx, cfg, WithLogger(quietLogger()))
	require.NoError(t, err)
	defer a.Close()

	_, err = a.ImportFile(ctx, cfg.Storage.FilePath)
	assert.Error(t, err)
}

func TestImportFileIntoDatabaseKeepsFile(t *testing.T) {
	ctx := context.Background()
	a, err := New(ctx, sqlConfig(t, ""), WithLogger(quietLogger()))
	require.NoError(t, err)
	defer a.Close()

	path := filepath.Join(t.TempDir(), "old.dat")
	writePlayerFile(t, path,
		identity.NewRecord(uuid.New(), "Herobrine", seen, seen),
		identity.NewRecord(uuid.New(), "Jeb_", seen, seen),
	)

	n, err := a.ImportFile(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	_, ok := a.Service.PlayerByName(ctx, "jeb_", false)
	assert.True(t, ok)

	exists, err := filestore.Exists(path)
	require.NoError(t, err)
	assert.True(t, exists)

	_, err = a.ImportFile(ctx, filepath.Join(t.TempDir(), "missing.dat"))
	assert.Error(t, err)
}

type directory []service.KnownPlayer

func (d directory) KnownPlayers(context.Context) ([]service.KnownPlayer, error) {
	return d, nil
}

func TestStartupImportsKnownPlayers(t *testing.T) {
	ctx := context.Background()
	id := uuid.New()
	a, err := New(ctx, fileConfig(t),
		WithLogger(quietLogger()),
		WithDirectory(directory{{ID: id, Name: "Dinnerbone", LastPlayed: seen}}),
	)
	require.NoError(t, err)
	defer a.Close()

	got, ok := a.Service.PlayerByID(ctx, id, false)
	require.True(t, ok)
	assert.Equal(t, "Dinnerbone", got.Name)
}

func TestHandlerRequiresAdminToken(t *testing.T) {
	ctx := context.Background()
	cfg := fileConfig(t)
	cfg.Server.JWTSigningKey = "test-signing-key"
	a, err := New(ctx, cfg, WithLogger(quietLogger()))
	require.NoError(t, err)
	defer a.Close()
	handler := a.Handler()

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/stats", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	token, err := IssueAdminToken(cfg, "ops", time.Hour)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, "/admin/stats", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestIssueAdminTokenNeedsKey(t *testing.T) {
	_, err := IssueAdminToken(config.Default(), "ops", time.Hour)
	assert.Error(t, err)
}
