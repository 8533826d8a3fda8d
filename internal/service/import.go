package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"playercache/internal/identity"
	"playercache/pkg/platform/sentinel"
)

// ImportKnownPlayers copies the host's local player list into the cache. A
// player is taken when unknown or when the host saw them more recently. It
// returns the number of players imported.
func (s *Service) ImportKnownPlayers(ctx context.Context) (int, error) {
	if s.directory == nil {
		return 0, nil
	}
	known, err := s.directory.KnownPlayers(ctx)
	if err != nil {
		return 0, fmt.Errorf("list known players: %w", err)
	}

	now := s.now(ctx)
	var batch []identity.Record
	for _, p := range known {
		if p.ID == uuid.Nil || p.Name == "" {
			continue
		}
		current, err := s.cache.LookupByID(ctx, p.ID)
		switch {
		case errors.Is(err, sentinel.ErrNotFound):
		case err != nil:
			continue
		case !current.LastSeen.Before(identity.Millis(p.LastPlayed)):
			continue
		}
		batch = append(batch, identity.NewRecord(p.ID, p.Name, p.LastPlayed, now))
	}
	s.cache.Reconcile(ctx, batch, true)
	if len(batch) > 0 {
		s.logger.InfoContext(ctx, "imported known players", "count", len(batch))
	}
	return len(batch), nil
}
