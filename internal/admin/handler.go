// Package admin exposes the cache over an authenticated HTTP API and renders
// the text output shared with the command line.
package admin

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"playercache/internal/cache"
	"playercache/internal/identity"
	"playercache/pkg/platform/httputil"
	authmw "playercache/pkg/platform/middleware/auth"
	"playercache/pkg/platform/middleware/metadata"
	"playercache/pkg/platform/middleware/request"
	"playercache/pkg/platform/middleware/requesttime"
	"playercache/pkg/platform/sentinel"
)

// Service defines the façade operations the admin API needs.
type Service interface {
	Stats() cache.Stats
	PlayerByNameOrID(ctx context.Context, key string, resolve bool) (identity.Record, bool)
	NameHistory(ctx context.Context, id uuid.UUID, resolve bool) (identity.NameHistory, bool)
	IDsEverNamed(ctx context.Context, name string) []uuid.UUID
	SearchPlayers(ctx context.Context, fragment string) []identity.Record
}

// Handler serves the /admin routes.
type Handler struct {
	svc          Service
	logger       *slog.Logger
	jwtValidator authmw.JWTValidator
	profiles     bool
}

// New creates a Handler. A nil validator leaves the routes unauthenticated.
// profiles controls whether profile counters appear in text stats.
func New(svc Service, logger *slog.Logger, jwtValidator authmw.JWTValidator, profiles bool) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		svc:          svc,
		logger:       logger,
		jwtValidator: jwtValidator,
		profiles:     profiles,
	}
}

// Register mounts the admin routes under /admin.
func (h *Handler) Register(r chi.Router) {
	adminRouter := chi.NewRouter()
	adminRouter.Use(chimw.Recoverer)
	adminRouter.Use(request.RequestID)
	adminRouter.Use(metadata.ClientIP)
	adminRouter.Use(requesttime.Middleware)
	if h.jwtValidator != nil {
		adminRouter.Use(authmw.RequireAuth(h.jwtValidator, h.logger))
	}
	adminRouter.Get("/stats", h.handleStats)
	adminRouter.Get("/players/{key}", h.handlePlayer)
	adminRouter.Get("/players/{key}/history", h.handleHistory)
	adminRouter.Get("/names/{name}/ids", h.handleIDsEverNamed)
	adminRouter.Get("/search", h.handleSearch)

	r.Mount("/admin", adminRouter)
}

func (h *Handler) handleStats(w http.ResponseWriter, r *http.Request) {
	stats := h.svc.Stats()
	if wantsText(r) {
		h.writeText(w, r, func(buf *bytes.Buffer) error { return WriteStats(buf, stats, h.profiles) })
		return
	}
	httputil.WriteJSON(w, http.StatusOK, stats)
}

func (h *Handler) handlePlayer(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	player, ok := h.svc.PlayerByNameOrID(r.Context(), key, resolveParam(r))
	if wantsText(r) {
		h.writeText(w, r, func(buf *bytes.Buffer) error { return WritePlayer(buf, player, ok) })
		return
	}
	if !ok {
		httputil.WriteError(w, fmt.Errorf("player %q: %w", key, sentinel.ErrNotFound))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, NewPlayerResponse(player))
}

func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	raw := chi.URLParam(r, "key")
	id, err := uuid.Parse(raw)
	if err != nil {
		httputil.WriteError(w, fmt.Errorf("%w: illegal uuid %q", sentinel.ErrFormat, raw))
		return
	}
	history, ok := h.svc.NameHistory(r.Context(), id, resolveParam(r))
	if wantsText(r) {
		h.writeText(w, r, func(buf *bytes.Buffer) error { return WriteHistory(buf, history, ok) })
		return
	}
	if !ok {
		httputil.WriteError(w, fmt.Errorf("name history %s: %w", id, sentinel.ErrNotFound))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, NewHistoryResponse(history))
}

func (h *Handler) handleIDsEverNamed(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	ids := h.svc.IDsEverNamed(r.Context(), name)
	if wantsText(r) {
		h.writeText(w, r, func(buf *bytes.Buffer) error { return WriteIDs(buf, name, ids) })
		return
	}
	httputil.WriteJSON(w, http.StatusOK, NewIDsResponse(name, ids))
}

func (h *Handler) handleSearch(w http.ResponseWriter, r *http.Request) {
	fragment := strings.TrimSpace(r.URL.Query().Get("q"))
	if fragment == "" {
		httputil.WriteError(w, fmt.Errorf("%w: query parameter q is required", sentinel.ErrFormat))
		return
	}
	records := h.svc.SearchPlayers(r.Context(), fragment)
	if wantsText(r) {
		h.writeText(w, r, func(buf *bytes.Buffer) error { return WriteSearch(buf, records) })
		return
	}
	httputil.WriteJSON(w, http.StatusOK, NewSearchResponse(records))
}

func (h *Handler) writeText(w http.ResponseWriter, r *http.Request, render func(*bytes.Buffer) error) {
	var buf bytes.Buffer
	if err := render(&buf); err != nil {
		h.logger.ErrorContext(r.Context(), "failed to render text response", "error", err)
		httputil.WriteError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func wantsText(r *http.Request) bool {
	return r.URL.Query().Get("format") == "text"
}

func resolveParam(r *http.Request) bool {
	v, err := strconv.ParseBool(r.URL.Query().Get("resolve"))
	return err == nil && v
}
