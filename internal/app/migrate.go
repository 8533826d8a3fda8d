package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"playercache/internal/cache"
	"playercache/internal/store/filestore"
)

// ImportFile copies every record of the player file at path into w and loads
// them into c. The file itself is left untouched.
func ImportFile(ctx context.Context, path string, w cache.Writer, c *cache.Cache, logger *slog.Logger) (int, error) {
	exists, err := filestore.Exists(path)
	if err != nil {
		return 0, err
	}
	if !exists {
		return 0, fmt.Errorf("player file %s does not exist", path)
	}
	files, err := filestore.Open(path, filestore.WithLogger(logger))
	if err != nil {
		return 0, err
	}
	records, err := files.LoadAll(ctx)
	files.Close()
	if err != nil {
		return 0, fmt.Errorf("read player file: %w", err)
	}
	if len(records) == 0 {
		return 0, nil
	}
	if err := w.UpsertIdentities(ctx, records...); err != nil {
		return 0, fmt.Errorf("copy players: %w", err)
	}
	c.Reconcile(ctx, records, false)
	return len(records), nil
}

// MigrateFile is ImportFile followed by deleting the file. Any failure keeps
// the file so the migration is retried on the next start.
func MigrateFile(ctx context.Context, path string, w cache.Writer, c *cache.Cache, logger *slog.Logger) (int, error) {
	n, err := ImportFile(ctx, path, w, c, logger)
	if err != nil {
		return 0, err
	}
	if err := filestore.Remove(path); err != nil {
		return n, err
	}
	return n, nil
}

// ImportFile loads a player file into the active backend.
func (a *App) ImportFile(ctx context.Context, path string) (int, error) {
	var w cache.Writer
	switch {
	case a.sql != nil:
		w = a.sql
	case a.files != nil:
		if samePath(path, a.Config.Storage.FilePath) {
			return 0, errors.New("cannot import the active player file into itself")
		}
		w = a.files
	default:
		return 0, fmt.Errorf("no %s backend is open", a.Config.Storage.Backend)
	}
	return ImportFile(ctx, path, w, a.Cache, a.Logger)
}

func samePath(a, b string) bool {
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	if errA != nil || errB != nil {
		return a == b
	}
	return absA == absB
}
