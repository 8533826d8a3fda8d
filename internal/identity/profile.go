package identity

import (
	"encoding/binary"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
)

// Property is one signed profile attribute, such as a skin texture.
type Property struct {
	Name      string `yaml:"name" json:"name"`
	Value     string `yaml:"value" json:"value"`
	Signature string `yaml:"signature,omitempty" json:"signature,omitempty"`
}

// Profile is the property set for an id together with its expiration.
type Profile struct {
	ID            uuid.UUID
	Properties    []Property
	LastSeen      time.Time
	CacheLoadTime time.Time
	Expiration    time.Time
}

// NewProfile builds a profile expiring at lastSeen + baseTTL + jitter, where
// the jitter lies in [0, baseTTL) and depends only on id.
func NewProfile(id uuid.UUID, props []Property, lastSeen, cacheLoadTime time.Time, baseTTL time.Duration) Profile {
	lastSeen = Millis(lastSeen)
	return Profile{
		ID:            id,
		Properties:    uniqueProperties(props),
		LastSeen:      lastSeen,
		CacheLoadTime: Millis(cacheLoadTime),
		Expiration:    ProfileExpiration(id, lastSeen, baseTTL),
	}
}

// ProfileExpiration computes the jittered expiration for id.
func ProfileExpiration(id uuid.UUID, lastSeen time.Time, baseTTL time.Duration) time.Time {
	ttl := baseTTL.Milliseconds()
	if ttl <= 0 {
		return Millis(lastSeen)
	}
	rng := rand.New(rand.NewPCG(binary.BigEndian.Uint64(id[:8]), binary.BigEndian.Uint64(id[8:])))
	jitter := rng.Int64N(ttl)
	return Millis(lastSeen).Add(time.Duration(ttl+jitter) * time.Millisecond)
}

// ValidAt reports whether the profile may still be handed out at now.
func (p Profile) ValidAt(now time.Time) bool {
	return now.Before(p.Expiration)
}

// FreshAt reports whether the local copy is within ttl of being loaded.
func (p Profile) FreshAt(now time.Time, ttl time.Duration) bool {
	if ttl < 0 {
		return true
	}
	return p.CacheLoadTime.Add(ttl).After(now)
}

// Property returns the named property.
func (p Profile) Property(name string) (Property, bool) {
	for _, prop := range p.Properties {
		if prop.Name == name {
			return prop, true
		}
	}
	return Property{}, false
}

// WithLoadTime returns a copy of p stamped with a new cache load time.
func (p Profile) WithLoadTime(t time.Time) Profile {
	p.CacheLoadTime = Millis(t)
	return p
}

// uniqueProperties keeps the first position of each name and the last value.
func uniqueProperties(props []Property) []Property {
	out := make([]Property, 0, len(props))
	index := make(map[string]int, len(props))
	for _, prop := range props {
		if i, ok := index[prop.Name]; ok {
			out[i] = prop
			continue
		}
		index[prop.Name] = len(out)
		out = append(out, prop)
	}
	return out
}
