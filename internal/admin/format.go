package admin

import (
	"fmt"
	"io"

	"github.com/google/uuid"

	"playercache/internal/cache"
	"playercache/internal/identity"
)

const changeLayout = "2006-01-02 15:04"

type counterLine struct {
	label string
	value uint64
}

// WriteStats prints one counter per line. Profile counters are only shown
// when a profile backend is configured.
func WriteStats(w io.Writer, s cache.Stats, profiles bool) error {
	lines := []counterLine{
		{"id lookups", s.IDLookups},
		{"name lookups", s.NameLookups},
		{"name history lookups", s.HistoryLookups},
		{"remote queries", s.RemoteQueries},
		{"store updates", s.StoreUpdates},
		{"store queries", s.StoreQueries},
	}
	if profiles {
		lines = append(lines,
			counterLine{"profile lookups", s.ProfileLookups},
			counterLine{"profile store queries", s.ProfileQueries},
		)
	}
	for _, l := range lines {
		if _, err := fmt.Fprintf(w, "%s: %d\n", l.label, l.value); err != nil {
			return err
		}
	}
	return nil
}

func WritePlayer(w io.Writer, r identity.Record, ok bool) error {
	if !ok {
		_, err := fmt.Fprintln(w, "Unknown Account")
		return err
	}
	_, err := fmt.Fprintf(w, "Name: %s ID: %s\n", r.Name, r.ID)
	return err
}

// WriteHistory prints the first name and every change in UTC.
func WriteHistory(w io.Writer, h identity.NameHistory, ok bool) error {
	if !ok {
		_, err := fmt.Fprintln(w, "Unknown Account")
		return err
	}
	if _, err := fmt.Fprintf(w, "First name: %s\n", h.FirstName()); err != nil {
		return err
	}
	changes := h.Changes()
	if len(changes) == 0 {
		_, err := fmt.Fprintln(w, "(no name changes)")
		return err
	}
	for _, c := range changes {
		if _, err := fmt.Fprintf(w, "%s: change to %s\n", c.Date.UTC().Format(changeLayout), c.NewName); err != nil {
			return err
		}
	}
	return nil
}

func WriteIDs(w io.Writer, name string, ids []uuid.UUID) error {
	if len(ids) == 0 {
		_, err := fmt.Fprintf(w, "Nobody was ever named %s\n", name)
		return err
	}
	if _, err := fmt.Fprintf(w, "Players ever named %s:\n", name); err != nil {
		return err
	}
	for _, id := range ids {
		if _, err := fmt.Fprintf(w, "  %s\n", id); err != nil {
			return err
		}
	}
	return nil
}

func WriteSearch(w io.Writer, records []identity.Record) error {
	if len(records) == 0 {
		_, err := fmt.Fprintln(w, "No matching players")
		return err
	}
	for _, r := range records {
		if err := WritePlayer(w, r, true); err != nil {
			return err
		}
	}
	return nil
}
