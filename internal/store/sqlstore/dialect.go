package sqlstore

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/lib/pq"

	"playercache/pkg/platform/tx"
)

const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
	DriverPgx      = "pgx"
)

// dialect captures what differs between the supported drivers.
type dialect struct {
	name        string
	numbered    bool // $1, $2 placeholders instead of ?
	columnQuery string
	// array adapts a Go slice for an array parameter; nil when the dialect has no arrays.
	array func(v any) any
}

func dialectFor(driver string) (dialect, error) {
	switch driver {
	case DriverSQLite:
		return dialect{
			name:        DriverSQLite,
			columnQuery: `SELECT COUNT(*) FROM pragma_table_info(?) WHERE name = ?`,
		}, nil
	case DriverPostgres:
		return dialect{
			name:        DriverPostgres,
			numbered:    true,
			columnQuery: postgresColumnQuery,
			array:       func(v any) any { return pq.Array(v) },
		}, nil
	case DriverPgx:
		// pgx encodes Go slices as arrays natively.
		return dialect{
			name:        DriverPgx,
			numbered:    true,
			columnQuery: postgresColumnQuery,
			array:       func(v any) any { return v },
		}, nil
	default:
		return dialect{}, fmt.Errorf("unsupported sql driver %q", driver)
	}
}

const postgresColumnQuery = `SELECT COUNT(*) FROM information_schema.columns
	WHERE table_schema = current_schema() AND table_name = $1 AND column_name = $2`

func (d dialect) postgres() bool {
	return d.array != nil
}

// rebind rewrites ? placeholders to $n for dialects that need it. Queries
// never contain a literal question mark.
func (d dialect) rebind(query string) string {
	if !d.numbered {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (d dialect) hasColumn(ctx context.Context, db tx.DBTX, table, column string) (bool, error) {
	var n int
	if err := db.QueryRowContext(ctx, d.columnQuery, table, column).Scan(&n); err != nil {
		return false, fmt.Errorf("inspect column %s.%s: %w", table, column, err)
	}
	return n > 0, nil
}
