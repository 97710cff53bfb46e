package pagination

import (
	"encoding/json"
	"fmt"

	"github.com/Sternrassler/catalog-feed/pkg/graphql"
)

// PageInfo is the standard connection page info.
type PageInfo struct {
	HasNextPage bool    `json:"hasNextPage"`
	EndCursor   *string `json:"endCursor"`
}

// Connection is a `{nodes, pageInfo}` connection payload.
type Connection[T any] struct {
	Nodes    []T      `json:"nodes"`
	PageInfo PageInfo `json:"pageInfo"`
}

// Page converts the connection to a Page.
func (c Connection[T]) Page() Page[T] {
	cursor := Cursor{HasNextPage: c.PageInfo.HasNextPage}
	if c.PageInfo.EndCursor != nil {
		cursor.EndCursor = *c.PageInfo.EndCursor
	}
	return Page[T]{Items: c.Nodes, Cursor: cursor}
}

// ConnectionAt returns an Extractor reading the connection under a
// top-level data field, e.g. "products".
func ConnectionAt[T any](field string) Extractor[T] {
	return func(env *graphql.Envelope) (Page[T], error) {
		var data map[string]json.RawMessage
		if err := env.Decode(&data); err != nil {
			return Page[T]{}, err
		}
		raw, ok := data[field]
		if !ok || string(raw) == "null" {
			return Page[T]{}, fmt.Errorf("response has no %q connection", field)
		}
		var conn Connection[T]
		if err := json.Unmarshal(raw, &conn); err != nil {
			return Page[T]{}, fmt.Errorf("decode %q connection: %w", field, err)
		}
		return conn.Page(), nil
	}
}
