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

// UpsertNameHistory writes the history row, refreshing its load time, and
// inserts changes whose date is not stored yet. Existing changes are kept.
func (s *Store) UpsertNameHistory(ctx context.Context, h identity.NameHistory) (err error) {
	changes := h.Changes()
	ctx, span := s.start(ctx, "upsert_name_history", attribute.Int("changes", len(changes)))
	defer func() { end(span, err) }()

	id := h.ID().String()
	err = tx.RunInTx(ctx, s.db, func(ctx context.Context) error {
		conn := tx.Conn(ctx, s.db)
		if _, err := conn.ExecContext(ctx, s.q.upsertHistory, id, h.FirstName(), h.CacheLoadTime().UnixMilli()); err != nil {
			return fmt.Errorf("history row: %w", err)
		}
		if len(changes) == 0 {
			return nil
		}
		return s.insertChanges(ctx, conn, id, changes)
	})
	if err != nil {
		return fmt.Errorf("upsert name history: %w: %w", sentinel.ErrStore, err)
	}
	return nil
}

func (s *Store) insertChanges(ctx context.Context, conn tx.DBTX, id string, changes []identity.NameChange) error {
	if s.dialect.postgres() {
		dates := make([]int64, len(changes))
		names := make([]string, len(changes))
		for i, c := range changes {
			dates[i] = c.Date.UnixMilli()
			names[i] = c.NewName
		}
		// single round trip via unnest
		if _, err := conn.ExecContext(ctx, s.q.insertChanges, id, s.dialect.array(dates), s.dialect.array(names)); err != nil {
			return fmt.Errorf("name changes batch: %w", err)
		}
		return nil
	}

	stmt, err := conn.PrepareContext(ctx, s.q.insertChange)
	if err != nil {
		return fmt.Errorf("prepare name change: %w", err)
	}
	defer stmt.Close()
	for _, c := range changes {
		if _, err := stmt.ExecContext(ctx, id, c.Date.UnixMilli(), c.NewName); err != nil {
			return fmt.Errorf("name change at %d: %w", c.Date.UnixMilli(), err)
		}
	}
	return nil
}

// NameHistory reassembles the stored history for id. Its load time is the
// time the history was last refreshed.
func (s *Store) NameHistory(ctx context.Context, id uuid.UUID) (h identity.NameHistory, err error) {
	ctx, span := s.start(ctx, "name_history")
	defer func() { end(span, err) }()

	conn := tx.Conn(ctx, s.db)
	var (
		firstName string
		refreshed int64
	)
	err = conn.QueryRowContext(ctx, s.q.historyByID, id.String()).Scan(&firstName, &refreshed)
	if errors.Is(err, sql.ErrNoRows) {
		return identity.NameHistory{}, fmt.Errorf("name history %s: %w", id, sentinel.ErrNotFound)
	}
	if err != nil {
		return identity.NameHistory{}, fmt.Errorf("get name history: %w: %w", sentinel.ErrStore, err)
	}

	rows, err := conn.QueryContext(ctx, s.q.changesByID, id.String())
	if err != nil {
		return identity.NameHistory{}, fmt.Errorf("get name changes: %w: %w", sentinel.ErrStore, err)
	}
	defer rows.Close()

	var changes []identity.NameChange
	for rows.Next() {
		var (
			date    int64
			newName string
		)
		if err := rows.Scan(&date, &newName); err != nil {
			return identity.NameHistory{}, fmt.Errorf("scan name change: %w: %w", sentinel.ErrStore, err)
		}
		changes = append(changes, identity.NameChange{NewName: newName, Date: time.UnixMilli(date)})
	}
	if err := rows.Err(); err != nil {
		return identity.NameHistory{}, fmt.Errorf("read name changes: %w: %w", sentinel.ErrStore, err)
	}
	return identity.NewNameHistory(id, firstName, changes, time.UnixMilli(refreshed)), nil
}

// FindIDsEverNamed returns every id that has held name as a first name, a
// later change or a current identity row, most recently associated first.
func (s *Store) FindIDsEverNamed(ctx context.Context, name string) (ids []uuid.UUID, err error) {
	ctx, span := s.start(ctx, "find_ids_ever_named")
	defer func() { end(span, err) }()

	rows, err := tx.Conn(ctx, s.db).QueryContext(ctx, s.q.idsEverNamed, name, name, name)
	if err != nil {
		return nil, fmt.Errorf("find ids ever named: %w: %w", sentinel.ErrStore, err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			rawID  string
			latest int64
		)
		if err := rows.Scan(&rawID, &latest); err != nil {
			return nil, fmt.Errorf("scan id: %w: %w", sentinel.ErrStore, err)
		}
		id, err := uuid.Parse(strings.TrimSpace(rawID))
		if err != nil {
			s.logger.WarnContext(ctx, "skipping row with invalid player id", "uuid", rawID, "error", err)
			continue
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("find ids ever named: %w: %w", sentinel.ErrStore, err)
	}
	return ids, nil
}
