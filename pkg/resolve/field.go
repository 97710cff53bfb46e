package resolve

import "strings"

// Kind is the resolution class of a field.
type Kind string

const (
	// KindPlain fields are never rewritten.
	KindPlain Kind = "plain"

	// KindScalarRef fields hold a single media id.
	KindScalarRef Kind = "scalar-ref"

	// KindListRef fields hold a JSON array of media ids.
	KindListRef Kind = "list-ref"
)

// Metafield types that reference media.
const (
	TypeFileReference     = "file_reference"
	TypeListFileReference = "list.file_reference"
)

// Classify maps an upstream field type to its resolution kind.
func Classify(typ string) Kind {
	switch strings.TrimSpace(typ) {
	case TypeFileReference:
		return KindScalarRef
	case TypeListFileReference:
		return KindListRef
	default:
		return KindPlain
	}
}

// Field is a typed attribute whose value may reference media.
type Field struct {
	Namespace string `json:"namespace"`
	Key       string `json:"key"`
	Type      string `json:"type"`
	Value     string `json:"value"`
}

// Kind returns the resolution kind of the field type.
func (f Field) Kind() Kind {
	return Classify(f.Type)
}

// ResolvedField is a Field after resolution. OriginalValue always carries
// the raw payload; ResolvedValue has the same shape with ids replaced by URLs.
type ResolvedField struct {
	Namespace     string `json:"namespace"`
	Key           string `json:"key"`
	Type          string `json:"type"`
	ResolvedValue string `json:"value"`
	OriginalValue string `json:"originalValue"`
	Resolved      bool   `json:"processed"`

	// Misses counts ids that no source could resolve.
	Misses int `json:"-"`
}

// unresolved returns f unchanged with Resolved false.
func unresolved(f Field) ResolvedField {
	return ResolvedField{
		Namespace:     f.Namespace,
		Key:           f.Key,
		Type:          f.Type,
		ResolvedValue: f.Value,
		OriginalValue: f.Value,
	}
}
