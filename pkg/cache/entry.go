package cache

import (
	"encoding/json"
	"time"
)

// Entry is a cached JSON value.
type Entry struct {
	// Data is the JSON-encoded value.
	Data json.RawMessage `json:"data"`

	// ETag is a strong validator over Data.
	ETag string `json:"etag"`

	// CachedAt is when the value was stored.
	CachedAt time.Time `json:"cached_at"`

	// Expires is when the entry becomes stale.
	Expires time.Time `json:"expires"`
}

// NewEntry encodes value into an entry valid for ttl.
func NewEntry(value any, ttl time.Duration) (*Entry, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	return &Entry{
		Data:     data,
		ETag:     ComputeETag(data),
		CachedAt: now,
		Expires:  now.Add(ttl),
	}, nil
}

// IsExpired returns true if the entry has expired.
func (e *Entry) IsExpired() bool {
	return time.Now().After(e.Expires)
}

// TTL returns the time until expiration, or 0 if already expired.
func (e *Entry) TTL() time.Duration {
	ttl := time.Until(e.Expires)
	if ttl < 0 {
		return 0
	}
	return ttl
}

// Decode unmarshals the cached value into dest.
func (e *Entry) Decode(dest any) error {
	return json.Unmarshal(e.Data, dest)
}
