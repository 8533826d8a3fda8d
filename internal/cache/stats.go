package cache

import "sync/atomic"

type counters struct {
	idLookups      atomic.Uint64
	nameLookups    atomic.Uint64
	historyLookups atomic.Uint64
	profileLookups atomic.Uint64
	storeQueries   atomic.Uint64
	profileQueries atomic.Uint64
	storeUpdates   atomic.Uint64
	remoteQueries  atomic.Uint64
}

// Stats is a point-in-time copy of the cache counters. Counters only grow
// for the lifetime of the process.
type Stats struct {
	IDLookups      uint64 `json:"id_lookups"`
	NameLookups    uint64 `json:"name_lookups"`
	HistoryLookups uint64 `json:"history_lookups"`
	ProfileLookups uint64 `json:"profile_lookups"`
	StoreQueries   uint64 `json:"store_queries"`
	ProfileQueries uint64 `json:"profile_queries"`
	StoreUpdates   uint64 `json:"store_updates"`
	RemoteQueries  uint64 `json:"remote_queries"`
}

// Lookups totals the logical lookups of every kind.
func (s Stats) Lookups() uint64 {
	return s.IDLookups + s.NameLookups + s.HistoryLookups + s.ProfileLookups
}

// Stats returns a snapshot of the counters.
func (c *Cache) Stats() Stats {
	return Stats{
		IDLookups:      c.counters.idLookups.Load(),
		NameLookups:    c.counters.nameLookups.Load(),
		HistoryLookups: c.counters.historyLookups.Load(),
		ProfileLookups: c.counters.profileLookups.Load(),
		StoreQueries:   c.counters.storeQueries.Load(),
		ProfileQueries: c.counters.profileQueries.Load(),
		StoreUpdates:   c.counters.storeUpdates.Load(),
		RemoteQueries:  c.counters.remoteQueries.Load(),
	}
}

// CountRemote records one call to the remote identity service.
func (c *Cache) CountRemote() {
	c.counters.remoteQueries.Add(1)
	c.metrics.IncRemoteQuery()
}

// CountRemoteFailure records a failed call to the remote identity service.
func (c *Cache) CountRemoteFailure() {
	c.metrics.IncRemoteError()
}
