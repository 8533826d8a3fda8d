package admin

import (
	"bytes"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/require"

	"playercache/internal/cache"
	"playercache/internal/identity"
)

var (
	aliceID = uuid.MustParse("0d3ab5d4-6e4a-4c4c-9a3b-1f0e0c6a7b21")
	bobID   = uuid.MustParse("7c9e6679-7425-40de-944b-e07fc1f90ae7")
	loaded  = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
)

func newGoldie(t *testing.T) *goldie.Goldie {
	return goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
}

func render(t *testing.T, fn func(*bytes.Buffer) error) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, fn(&buf))
	return buf.Bytes()
}

func TestWriteStats(t *testing.T) {
	stats := cache.Stats{
		IDLookups:      12,
		NameLookups:    40,
		HistoryLookups: 3,
		ProfileLookups: 7,
		StoreQueries:   9,
		ProfileQueries: 2,
		StoreUpdates:   15,
		RemoteQueries:  4,
	}
	g := newGoldie(t)
	g.Assert(t, "stats", render(t, func(b *bytes.Buffer) error { return WriteStats(b, stats, false) }))
	g.Assert(t, "stats_profiles", render(t, func(b *bytes.Buffer) error { return WriteStats(b, stats, true) }))
}

func TestWriteHistory(t *testing.T) {
	h := identity.NewNameHistory(aliceID, "Alice", []identity.NameChange{
		{NewName: "Alicia", Date: time.Date(2020, 5, 17, 9, 30, 0, 0, time.UTC)},
		{NewName: "Ally", Date: time.Date(2022, 11, 2, 18, 5, 0, 0, time.FixedZone("CET", 3600))},
	}, loaded)

	g := newGoldie(t)
	g.Assert(t, "history", render(t, func(b *bytes.Buffer) error { return WriteHistory(b, h, true) }))
	g.Assert(t, "history_unchanged", render(t, func(b *bytes.Buffer) error {
		return WriteHistory(b, identity.NewNameHistory(bobID, "Bob", nil, loaded), true)
	}))
	g.Assert(t, "unknown", render(t, func(b *bytes.Buffer) error { return WriteHistory(b, identity.NameHistory{}, false) }))
}

func TestWriteIDs(t *testing.T) {
	g := newGoldie(t)
	g.Assert(t, "ids", render(t, func(b *bytes.Buffer) error { return WriteIDs(b, "Alice", []uuid.UUID{aliceID, bobID}) }))
	g.Assert(t, "ids_none", render(t, func(b *bytes.Buffer) error { return WriteIDs(b, "Zed", nil) }))
}

func TestWriteSearch(t *testing.T) {
	records := []identity.Record{
		identity.NewRecord(aliceID, "Alice", loaded, loaded),
		identity.NewRecord(bobID, "Bobalice", loaded, loaded),
	}
	g := newGoldie(t)
	g.Assert(t, "search", render(t, func(b *bytes.Buffer) error { return WriteSearch(b, records) }))
	g.Assert(t, "search_none", render(t, func(b *bytes.Buffer) error { return WriteSearch(b, nil) }))
}
