package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"playercache/internal/identity"
	"playercache/pkg/platform/sentinel"
	"playercache/pkg/platform/tx"
)

// UpsertProfile stores the property set of p with its last seen time.
func (s *Store) UpsertProfile(ctx context.Context, p identity.Profile) (err error) {
	ctx, span := s.start(ctx, "upsert_profile")
	defer func() { end(span, err) }()

	blob, err := identity.EncodeProperties(p.Properties)
	if err != nil {
		return err
	}
	if _, err = tx.Conn(ctx, s.db).ExecContext(ctx, s.q.upsertProfile, p.ID.String(), string(blob), p.LastSeen.UnixMilli()); err != nil {
		return fmt.Errorf("upsert profile: %w: %w", sentinel.ErrStore, err)
	}
	return nil
}

// Profile loads the stored profile for id. Its expiration is derived from the
// configured profile TTL; expired rows are still returned.
func (s *Store) Profile(ctx context.Context, id uuid.UUID) (p identity.Profile, err error) {
	ctx, span := s.start(ctx, "profile")
	defer func() { end(span, err) }()

	var (
		blob     string
		lastSeen int64
	)
	err = tx.Conn(ctx, s.db).QueryRowContext(ctx, s.q.profileByID, id.String()).Scan(&blob, &lastSeen)
	if errors.Is(err, sql.ErrNoRows) {
		return identity.Profile{}, fmt.Errorf("profile %s: %w", id, sentinel.ErrNotFound)
	}
	if err != nil {
		return identity.Profile{}, fmt.Errorf("get profile: %w: %w", sentinel.ErrStore, err)
	}
	props, err := identity.DecodeProperties([]byte(blob))
	if err != nil {
		return identity.Profile{}, fmt.Errorf("profile %s: %w", id, err)
	}
	return identity.NewProfile(id, props, time.UnixMilli(lastSeen), s.now(), s.ttl), nil
}

// DeleteExpiredProfiles removes profiles last seen before cutoff and returns
// how many were deleted.
func (s *Store) DeleteExpiredProfiles(ctx context.Context, cutoff time.Time) (n int64, err error) {
	ctx, span := s.start(ctx, "delete_expired_profiles")
	defer func() { end(span, err) }()

	res, err := tx.Conn(ctx, s.db).ExecContext(ctx, s.q.deleteProfiles, cutoff.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("delete expired profiles: %w: %w", sentinel.ErrStore, err)
	}
	n, err = res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete expired profiles: %w: %w", sentinel.ErrStore, err)
	}
	return n, nil
}

// ProfileTTL is the base profile lifetime the store was opened with.
func (s *Store) ProfileTTL() time.Duration {
	return s.ttl
}
