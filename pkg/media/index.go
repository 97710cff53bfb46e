package media

// Index maps lookup keys to asset URLs. Every asset added contributes its
// full id, scheme-stripped id, and numeric suffix; later additions win on
// key collisions. An Index is not safe for concurrent mutation; once built
// it is only read.
type Index struct {
	urls   map[string]string
	assets int
}

// NewIndex returns an empty index.
func NewIndex() *Index {
	return &Index{urls: make(map[string]string)}
}

// Add indexes url under every lookup key of canonicalID. Empty ids or URLs
// are ignored.
func (i *Index) Add(canonicalID, url string) {
	if canonicalID == "" || url == "" {
		return
	}
	for _, key := range LookupKeys(canonicalID) {
		i.urls[key] = url
	}
	i.assets++
}

// Get returns the URL stored under exactly key.
func (i *Index) Get(key string) (string, bool) {
	if i == nil {
		return "", false
	}
	url, ok := i.urls[key]
	return url, ok
}

// Lookup resolves id by trying it as-is, without its scheme, then by its
// numeric suffix, stopping at the first hit.
func (i *Index) Lookup(id string) (string, bool) {
	if i == nil {
		return "", false
	}
	for _, key := range LookupKeys(id) {
		if url, ok := i.urls[key]; ok {
			return url, true
		}
	}
	return "", false
}

// Len returns the number of keys.
func (i *Index) Len() int {
	if i == nil {
		return 0
	}
	return len(i.urls)
}

// Assets returns the number of assets added.
func (i *Index) Assets() int {
	if i == nil {
		return 0
	}
	return i.assets
}
