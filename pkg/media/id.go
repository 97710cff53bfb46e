package media

import "strings"

const schemeSeparator = "://"

// StripScheme removes the scheme prefix of a canonical id:
// "gid://shopify/MediaImage/42" becomes "shopify/MediaImage/42". Ids without
// a scheme are returned unchanged.
func StripScheme(id string) string {
	if i := strings.Index(id, schemeSeparator); i >= 0 {
		return id[i+len(schemeSeparator):]
	}
	return id
}

// NumericSuffix returns the trailing numeric path segment of id, or "" when
// the last segment is not all digits.
func NumericSuffix(id string) string {
	if q := strings.IndexByte(id, '?'); q >= 0 {
		id = id[:q]
	}
	seg := id[strings.LastIndexByte(id, '/')+1:]
	if seg == "" {
		return ""
	}
	for _, r := range seg {
		if r < '0' || r > '9' {
			return ""
		}
	}
	return seg
}

// LookupKeys returns the keys id is looked up under, in lookup order: the id
// as given, the id without its scheme, and its numeric suffix. Empty and
// repeated keys are dropped.
func LookupKeys(id string) []string {
	keys := make([]string, 0, 3)
	for _, k := range []string{id, StripScheme(id), NumericSuffix(id)} {
		if k == "" {
			continue
		}
		dup := false
		for _, existing := range keys {
			if existing == k {
				dup = true
				break
			}
		}
		if !dup {
			keys = append(keys, k)
		}
	}
	return keys
}

// Canonicalize turns id into a canonical id. Canonical ids are returned
// unchanged, "namespace/Type/42" gains the scheme, and a bare numeric id is
// placed under namespace and typ.
func Canonicalize(id, namespace, typ string) string {
	id = strings.TrimSpace(id)
	switch {
	case id == "":
		return ""
	case strings.Contains(id, schemeSeparator):
		return id
	case strings.Count(id, "/") >= 2:
		return "gid" + schemeSeparator + id
	case NumericSuffix(id) == id:
		return "gid" + schemeSeparator + namespace + "/" + typ + "/" + id
	default:
		return id
	}
}
