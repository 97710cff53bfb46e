package cache

import (
	"fmt"
	"sort"
	"strings"
)

const keyPrefix = "catalog"

// Key identifies a cached value.
type Key struct {
	// Store is the upstream store the value belongs to.
	Store string

	// Resource names the cached value, e.g. "products" or "report".
	Resource string

	// Params distinguish variants of a resource (e.g. {"handle": "shirt"}).
	Params map[string]string
}

// String generates a deterministic key.
// Format: catalog:<store>:<resource>[:k=v...] with params sorted by name.
//
// Example:
//
//	catalog:example:products:handle=shirt
func (k Key) String() string {
	parts := []string{keyPrefix, k.Store}

	if resource := strings.Trim(k.Resource, ":"); resource != "" {
		parts = append(parts, resource)
	}

	if len(k.Params) > 0 {
		names := make([]string, 0, len(k.Params))
		for name := range k.Params {
			names = append(names, name)
		}
		sort.Strings(names)

		for _, name := range names {
			parts = append(parts, fmt.Sprintf("%s=%s", name, k.Params[name]))
		}
	}

	return strings.Join(parts, ":")
}

// StorePattern matches every key of a store.
func StorePattern(store string) string {
	return fmt.Sprintf("%s:%s:*", keyPrefix, store)
}
