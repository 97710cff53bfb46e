package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"strings"
)

// ComputeETag returns a strong ETag over data.
func ComputeETag(data []byte) string {
	sum := sha256.Sum256(data)
	return `"` + hex.EncodeToString(sum[:16]) + `"`
}

// NotModified reports whether the request's If-None-Match matches etag.
// Weak comparison is used, as for GET requests.
func NotModified(r *http.Request, etag string) bool {
	if r == nil || etag == "" {
		return false
	}
	header := r.Header.Get("If-None-Match")
	if header == "" {
		return false
	}

	want := strings.TrimPrefix(etag, "W/")
	for _, candidate := range strings.Split(header, ",") {
		candidate = strings.TrimSpace(candidate)
		if candidate == "*" || strings.TrimPrefix(candidate, "W/") == want {
			NotModifiedResponses.Inc()
			return true
		}
	}
	return false
}

// WriteHeaders sets the validator and freshness headers of entry on w.
func WriteHeaders(w http.ResponseWriter, entry *Entry) {
	if entry == nil {
		return
	}
	if entry.ETag != "" {
		w.Header().Set("ETag", entry.ETag)
	}
	if !entry.CachedAt.IsZero() {
		w.Header().Set("Last-Modified", entry.CachedAt.UTC().Format(http.TimeFormat))
	}
	w.Header().Set("Cache-Control", fmt.Sprintf("private, max-age=%d", int(entry.TTL().Seconds())))
}
