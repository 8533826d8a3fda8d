package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"playercache/internal/identity"
	"playercache/pkg/platform/sentinel"
	"playercache/pkg/platform/tx"
)

// UpsertIdentities writes every record in one transaction, overwriting name
// and last seen unconditionally.
func (s *Store) UpsertIdentities(ctx context.Context, records ...identity.Record) (err error) {
	if len(records) == 0 {
		return nil
	}
	ctx, span := s.start(ctx, "upsert_identities", attribute.Int("records", len(records)))
	defer func() { end(span, err) }()

	err = tx.RunInTx(ctx, s.db, func(ctx context.Context) error {
		stmt, err := tx.Conn(ctx, s.db).PrepareContext(ctx, s.q.upsertPlayer)
		if err != nil {
			return err
		}
		defer stmt.Close()
		for _, r := range records {
			if _, err := stmt.ExecContext(ctx, r.ID.String(), r.Name, r.LastSeen.UnixMilli()); err != nil {
				return fmt.Errorf("player %s: %w", r.ID, err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("upsert identities: %w: %w", sentinel.ErrStore, err)
	}
	return nil
}

// IdentityByID returns the stored record for id.
func (s *Store) IdentityByID(ctx context.Context, id uuid.UUID) (rec identity.Record, err error) {
	ctx, span := s.start(ctx, "identity_by_id")
	defer func() { end(span, err) }()

	var (
		name     string
		lastSeen int64
	)
	err = tx.Conn(ctx, s.db).QueryRowContext(ctx, s.q.playerByID, id.String()).Scan(&name, &lastSeen)
	if errors.Is(err, sql.ErrNoRows) {
		return identity.Record{}, fmt.Errorf("identity %s: %w", id, sentinel.ErrNotFound)
	}
	if err != nil {
		return identity.Record{}, fmt.Errorf("get identity by id: %w: %w", sentinel.ErrStore, err)
	}
	return identity.NewRecord(id, name, time.UnixMilli(lastSeen), s.now()), nil
}

// IdentityByName returns the record stored under exactly name. When several
// rows carry the name the one seen most recently wins.
func (s *Store) IdentityByName(ctx context.Context, name string) (rec identity.Record, err error) {
	ctx, span := s.start(ctx, "identity_by_name")
	defer func() { end(span, err) }()

	records, err := s.queryRecords(ctx, s.q.playersByName, name)
	if err != nil {
		return identity.Record{}, fmt.Errorf("get identity by name: %w", err)
	}
	if len(records) == 0 {
		return identity.Record{}, fmt.Errorf("identity %q: %w", name, sentinel.ErrNotFound)
	}
	best := records[0]
	for _, r := range records[1:] {
		if r.LastSeen.After(best.LastSeen) {
			best = r
		}
	}
	return best, nil
}

// SearchByPartialName matches fragment anywhere in the name, ignoring case,
// most recently seen first.
func (s *Store) SearchByPartialName(ctx context.Context, fragment string) (out []identity.Record, err error) {
	ctx, span := s.start(ctx, "search_by_partial_name")
	defer func() { end(span, err) }()

	pattern := "%" + escapeLike(strings.ToLower(fragment)) + "%"
	records, err := s.queryRecords(ctx, s.q.searchPlayers, pattern)
	if err != nil {
		return nil, fmt.Errorf("search identities: %w", err)
	}
	return records, nil
}

// CountIdentities returns the number of stored identity rows.
func (s *Store) CountIdentities(ctx context.Context) (n int, err error) {
	ctx, span := s.start(ctx, "count_identities")
	defer func() { end(span, err) }()

	if err = tx.Conn(ctx, s.db).QueryRowContext(ctx, s.q.countPlayers).Scan(&n); err != nil {
		return 0, fmt.Errorf("count identities: %w: %w", sentinel.ErrStore, err)
	}
	return n, nil
}

// queryRecords scans uuid, name, last_seen rows. Rows whose id does not parse
// are skipped.
func (s *Store) queryRecords(ctx context.Context, query string, args ...any) ([]identity.Record, error) {
	rows, err := tx.Conn(ctx, s.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", sentinel.ErrStore, err)
	}
	defer rows.Close()

	loadTime := s.now()
	var out []identity.Record
	for rows.Next() {
		var (
			rawID    string
			name     string
			lastSeen int64
		)
		if err := rows.Scan(&rawID, &name, &lastSeen); err != nil {
			return nil, fmt.Errorf("%w: %w", sentinel.ErrStore, err)
		}
		id, err := uuid.Parse(strings.TrimSpace(rawID))
		if err != nil {
			s.logger.WarnContext(ctx, "skipping row with invalid player id", "uuid", rawID, "error", err)
			continue
		}
		out = append(out, identity.NewRecord(id, name, time.UnixMilli(lastSeen), loadTime))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", sentinel.ErrStore, err)
	}
	return out, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
