package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores, resolvers and the cache return
// these (optionally wrapped) so callers can tell absence apart from failure:
// - ErrNotFound: the backend answered and the entity does not exist
// - ErrFormat: a persisted file has an unsupported or corrupt layout (fatal at startup)
// - ErrInvalidState: API misuse, e.g. loading a store twice
// - ErrStore: durable backend I/O or query failure; the answer is unknown, not absent
// - ErrRemote: remote identity service failure
// - ErrUnavailable: dependency deliberately short-circuited (open breaker, closed pool)
var (
	ErrNotFound     = errors.New("not found")
	ErrFormat       = errors.New("invalid format")
	ErrInvalidState = errors.New("invalid state")
	ErrStore        = errors.New("store failure")
	ErrRemote       = errors.New("remote failure")
	ErrUnavailable  = errors.New("unavailable")
)
