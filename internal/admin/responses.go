package admin

import (
	"time"

	"github.com/google/uuid"

	"playercache/internal/identity"
)

// PlayerResponse is the HTTP response DTO for one identity record.
type PlayerResponse struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	LastSeen time.Time `json:"last_seen"`
}

// NameChangeResponse is one entry of a name history.
type NameChangeResponse struct {
	Name string    `json:"name"`
	Date time.Time `json:"date"`
}

// HistoryResponse is the HTTP response DTO for a name history.
type HistoryResponse struct {
	ID        string               `json:"id"`
	FirstName string               `json:"first_name"`
	Changes   []NameChangeResponse `json:"changes"`
}

// IDsResponse lists every id that held a name.
type IDsResponse struct {
	Name string   `json:"name"`
	IDs  []string `json:"ids"`
}

// SearchResponse wraps the players matching a fragment.
type SearchResponse struct {
	Players []PlayerResponse `json:"players"`
	Total   int              `json:"total"`
}

func NewPlayerResponse(r identity.Record) PlayerResponse {
	return PlayerResponse{ID: r.ID.String(), Name: r.Name, LastSeen: r.LastSeen}
}

func NewHistoryResponse(h identity.NameHistory) HistoryResponse {
	changes := h.Changes()
	out := HistoryResponse{
		ID:        h.ID().String(),
		FirstName: h.FirstName(),
		Changes:   make([]NameChangeResponse, 0, len(changes)),
	}
	for _, c := range changes {
		out.Changes = append(out.Changes, NameChangeResponse{Name: c.NewName, Date: c.Date})
	}
	return out
}

func NewIDsResponse(name string, ids []uuid.UUID) IDsResponse {
	out := IDsResponse{Name: name, IDs: make([]string, 0, len(ids))}
	for _, id := range ids {
		out.IDs = append(out.IDs, id.String())
	}
	return out
}

func NewSearchResponse(records []identity.Record) SearchResponse {
	out := SearchResponse{Players: make([]PlayerResponse, 0, len(records)), Total: len(records)}
	for _, r := range records {
		out.Players = append(out.Players, NewPlayerResponse(r))
	}
	return out
}
