package resolver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"playercache/internal/identity"
	"playercache/pkg/platform/sentinel"
)

const namesPerRequest = 10

// Config points the client at the Mojang API hosts.
type Config struct {
	APIBaseURL     string
	SessionBaseURL string
	Timeout        time.Duration
}

// DefaultConfig returns the public Mojang endpoints.
func DefaultConfig() Config {
	return Config{
		APIBaseURL:     "https://api.mojang.com",
		SessionBaseURL: "https://sessionserver.mojang.com",
		Timeout:        5 * time.Second,
	}
}

// MojangClient implements Resolver against the Mojang HTTP API.
type MojangClient struct {
	cfg        Config
	http       *http.Client
	logger     *slog.Logger
	batchDelay time.Duration
	now        func() time.Time
}

type Option func(*MojangClient)

func WithHTTPClient(c *http.Client) Option {
	return func(m *MojangClient) {
		if c != nil {
			m.http = c
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(m *MojangClient) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithBatchDelay sets the pause between consecutive name batches.
func WithBatchDelay(d time.Duration) Option {
	return func(m *MojangClient) {
		if d >= 0 {
			m.batchDelay = d
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(m *MojangClient) {
		if now != nil {
			m.now = now
		}
	}
}

func NewMojangClient(cfg Config, opts ...Option) *MojangClient {
	def := DefaultConfig()
	if cfg.APIBaseURL == "" {
		cfg.APIBaseURL = def.APIBaseURL
	}
	if cfg.SessionBaseURL == "" {
		cfg.SessionBaseURL = def.SessionBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	cfg.APIBaseURL = strings.TrimRight(cfg.APIBaseURL, "/")
	cfg.SessionBaseURL = strings.TrimRight(cfg.SessionBaseURL, "/")
	m := &MojangClient{
		cfg:        cfg,
		http:       &http.Client{Timeout: cfg.Timeout},
		logger:     slog.Default(),
		batchDelay: 100 * time.Millisecond,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

type profileRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type sessionProfile struct {
	ID           string              `json:"id"`
	Name         string              `json:"name"`
	Properties   []identity.Property `json:"properties"`
	Cause        string              `json:"cause"`
	ErrorMessage string              `json:"errorMessage"`
}

type nameEntry struct {
	Name        string `json:"name"`
	ChangedToAt *int64 `json:"changedToAt"`
}

// IDsForNames resolves names in batches. Names that can never exist remotely are
// dropped before any request is made.
func (m *MojangClient) IDsForNames(ctx context.Context, names []string) (map[string]uuid.UUID, error) {
	valid := make([]string, 0, len(names))
	for _, name := range names {
		name = strings.TrimSpace(name)
		if identity.ValidName(name) {
			valid = append(valid, name)
		}
	}
	out := make(map[string]uuid.UUID, len(valid))
	for start := 0; start < len(valid); start += namesPerRequest {
		if start > 0 {
			if err := m.pause(ctx); err != nil {
				return out, err
			}
		}
		batch := valid[start:min(start+namesPerRequest, len(valid))]
		body, err := json.Marshal(batch)
		if err != nil {
			return out, fmt.Errorf("encode names: %w", err)
		}
		var refs []profileRef
		found, err := m.do(ctx, http.MethodPost, m.cfg.APIBaseURL+"/profiles/minecraft", body, &refs)
		if err != nil {
			return out, fmt.Errorf("fetch ids for names: %w", err)
		}
		if !found {
			continue
		}
		for _, ref := range refs {
			id, err := uuid.Parse(ref.ID)
			if err != nil {
				m.logger.WarnContext(ctx, "skipping profile with invalid id", "name", ref.Name, "id", ref.ID)
				continue
			}
			out[ref.Name] = id
		}
	}
	return out, nil
}

// NamesForIDs looks up the current name of every id, one request per id.
func (m *MojangClient) NamesForIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]string, error) {
	out := make(map[uuid.UUID]string, len(ids))
	for _, id := range ids {
		var p sessionProfile
		found, err := m.do(ctx, http.MethodGet, m.cfg.SessionBaseURL+"/session/minecraft/profile/"+compact(id), nil, &p)
		if err != nil {
			return out, fmt.Errorf("fetch name for id: %w", err)
		}
		if !found || p.Name == "" {
			continue
		}
		if p.Cause != "" {
			return out, fmt.Errorf("fetch name for id: %w: %s", sentinel.ErrRemote, p.ErrorMessage)
		}
		out[id] = p.Name
	}
	return out, nil
}

// NameHistory fetches the full rename list. Exactly one entry may lack a change
// date; it is the original name.
func (m *MojangClient) NameHistory(ctx context.Context, id uuid.UUID) (identity.NameHistory, error) {
	loadTime := m.now()
	var entries []nameEntry
	found, err := m.do(ctx, http.MethodGet, m.cfg.APIBaseURL+"/user/profiles/"+compact(id)+"/names", nil, &entries)
	if err != nil {
		return identity.NameHistory{}, fmt.Errorf("fetch name history: %w", err)
	}
	if !found || len(entries) == 0 {
		return identity.NameHistory{}, fmt.Errorf("fetch name history: %w", sentinel.ErrNotFound)
	}
	var (
		firstName string
		haveFirst bool
		changes   []identity.NameChange
	)
	for _, e := range entries {
		if e.ChangedToAt == nil {
			if haveFirst {
				return identity.NameHistory{}, fmt.Errorf("fetch name history: %w: more than one original name", sentinel.ErrRemote)
			}
			firstName, haveFirst = e.Name, true
			continue
		}
		changes = append(changes, identity.NameChange{NewName: e.Name, Date: time.UnixMilli(*e.ChangedToAt)})
	}
	return identity.NewNameHistory(id, firstName, changes, loadTime), nil
}

// Profile fetches the signed textures and other properties of a player.
func (m *MojangClient) Profile(ctx context.Context, id uuid.UUID) ([]identity.Property, error) {
	var p sessionProfile
	found, err := m.do(ctx, http.MethodGet, m.cfg.SessionBaseURL+"/session/minecraft/profile/"+compact(id)+"?unsigned=false", nil, &p)
	if err != nil {
		return nil, fmt.Errorf("fetch profile: %w", err)
	}
	if !found || p.ID != compact(id) {
		return nil, fmt.Errorf("fetch profile: %w", sentinel.ErrNotFound)
	}
	return p.Properties, nil
}

// do performs one request and decodes a JSON answer into out. found is false
// when the service reports the entity as absent.
func (m *MojangClient) do(ctx context.Context, method, url string, body []byte, out any) (found bool, err error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return false, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := m.http.Do(req)
	if err != nil {
		return false, fmt.Errorf("%w: %w", sentinel.ErrRemote, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNoContent,
		resp.StatusCode == http.StatusNotFound,
		resp.StatusCode == http.StatusForbidden:
		return false, nil
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return false, fmt.Errorf("%w: unexpected status %d", sentinel.ErrRemote, resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return false, fmt.Errorf("%w: read body: %w", sentinel.ErrRemote, err)
	}
	if len(bytes.TrimSpace(data)) == 0 || bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return false, nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return false, fmt.Errorf("%w: decode body: %w", sentinel.ErrRemote, err)
	}
	return true, nil
}

func (m *MojangClient) pause(ctx context.Context) error {
	if m.batchDelay <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(m.batchDelay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func compact(id uuid.UUID) string {
	return strings.ReplaceAll(id.String(), "-", "")
}

var _ Resolver = (*MojangClient)(nil)

// IsAbsent reports whether err means the remote service has no such entity.
func IsAbsent(err error) bool {
	return errors.Is(err, sentinel.ErrNotFound)
}
