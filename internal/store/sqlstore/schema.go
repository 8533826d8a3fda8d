package sqlstore

import (
	"context"
	"fmt"
	"regexp"

	"playercache/pkg/platform/tx"
)

// Tables names the four tables the store manages.
type Tables struct {
	Players     string
	Profiles    string
	NameHistory string
	NameChanges string
}

// DefaultTables returns the table names used when none are configured.
func DefaultTables() Tables {
	return Tables{
		Players:     "playeruuids",
		Profiles:    "playerprofiles",
		NameHistory: "namehistories",
		NameChanges: "namechanges",
	}
}

var identifier = regexp.MustCompile(`^[a-z_][a-z0-9_]{0,62}$`)

func (t Tables) withDefaults() Tables {
	def := DefaultTables()
	if t.Players == "" {
		t.Players = def.Players
	}
	if t.Profiles == "" {
		t.Profiles = def.Profiles
	}
	if t.NameHistory == "" {
		t.NameHistory = def.NameHistory
	}
	if t.NameChanges == "" {
		t.NameChanges = def.NameChanges
	}
	return t
}

func (t Tables) validate() error {
	for _, name := range []string{t.Players, t.Profiles, t.NameHistory, t.NameChanges} {
		if !identifier.MatchString(name) {
			return fmt.Errorf("invalid table name %q", name)
		}
	}
	seen := map[string]bool{}
	for _, name := range []string{t.Players, t.Profiles, t.NameHistory, t.NameChanges} {
		if seen[name] {
			return fmt.Errorf("table name %q used twice", name)
		}
		seen[name] = true
	}
	return nil
}

func schemaStatements(t Tables) []string {
	return []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			uuid CHAR(36) NOT NULL PRIMARY KEY,
			name VARCHAR(100) NOT NULL,
			last_seen BIGINT NOT NULL DEFAULT 0
		)`, t.Players),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %[1]s_name_idx ON %[1]s (name)`, t.Players),

		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			uuid CHAR(36) NOT NULL PRIMARY KEY,
			first_name VARCHAR(16) NOT NULL,
			refreshed BIGINT NOT NULL DEFAULT 0
		)`, t.NameHistory),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %[1]s_first_name_idx ON %[1]s (first_name)`, t.NameHistory),

		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			uuid CHAR(36) NOT NULL,
			changed_at BIGINT NOT NULL,
			new_name VARCHAR(16) NOT NULL,
			PRIMARY KEY (uuid, changed_at)
		)`, t.NameChanges),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %[1]s_new_name_idx ON %[1]s (new_name)`, t.NameChanges),

		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			uuid CHAR(36) NOT NULL PRIMARY KEY,
			properties TEXT NOT NULL,
			last_seen BIGINT NOT NULL DEFAULT 0
		)`, t.Profiles),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %[1]s_last_seen_idx ON %[1]s (last_seen)`, t.Profiles),
	}
}

// bootstrap creates missing tables and indexes, then upgrades name history
// tables created before the refreshed column existed.
func bootstrap(ctx context.Context, db tx.DBTX, d dialect, t Tables) error {
	for _, stmt := range schemaStatements(t) {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}

	ok, err := d.hasColumn(ctx, db, t.NameHistory, "refreshed")
	if err != nil {
		return err
	}
	if !ok {
		alter := fmt.Sprintf(`ALTER TABLE %s ADD COLUMN refreshed BIGINT NOT NULL DEFAULT 0`, t.NameHistory)
		if _, err := db.ExecContext(ctx, alter); err != nil {
			return fmt.Errorf("add refreshed column: %w", err)
		}
	}
	return nil
}
