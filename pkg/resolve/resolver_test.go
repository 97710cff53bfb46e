package resolve

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/Sternrassler/catalog-feed/pkg/graphql"
	"github.com/Sternrassler/catalog-feed/pkg/media"
	"github.com/google/go-cmp/cmp"
	"github.com/rs/zerolog"
)

type fakeFetcher struct {
	mu    sync.Mutex
	urls  map[string]string
	calls map[string]int
}

func newFakeFetcher(urls map[string]string) *fakeFetcher {
	return &fakeFetcher{urls: urls, calls: make(map[string]int)}
}

func (f *fakeFetcher) FetchMediaURL(_ context.Context, id string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[id]++
	if url, ok := f.urls[id]; ok {
		return url, nil
	}
	return "", errors.New("not found")
}

func (f *fakeFetcher) count(id string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[id]
}

func indexOf(pairs ...string) *media.Index {
	idx := media.NewIndex()
	for i := 0; i+1 < len(pairs); i += 2 {
		idx.Add(pairs[i], pairs[i+1])
	}
	return idx
}

func TestClassify(t *testing.T) {
	tests := []struct {
		typ  string
		want Kind
	}{
		{"file_reference", KindScalarRef},
		{"list.file_reference", KindListRef},
		{"single_line_text_field", KindPlain},
		{"list.single_line_text_field", KindPlain},
		{"", KindPlain},
	}

	for _, tt := range tests {
		t.Run(tt.typ, func(t *testing.T) {
			if got := Classify(tt.typ); got != tt.want {
				t.Errorf("Classify(%q) = %v, want %v", tt.typ, got, tt.want)
			}
		})
	}
}

func TestResolve_ScalarNumericSuffix(t *testing.T) {
	global := indexOf("gid://app/Media/42", "https://x/42.png")
	r := New(nil, zerolog.Nop())

	field := Field{Namespace: "custom", Key: "hero", Type: TypeFileReference, Value: "42"}
	got := r.Resolve(context.Background(), field, nil, global)

	want := ResolvedField{
		Namespace:     "custom",
		Key:           "hero",
		Type:          TypeFileReference,
		ResolvedValue: "https://x/42.png",
		OriginalValue: "42",
		Resolved:      true,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Resolve() mismatch (-want +got):\n%s", diff)
	}
}

func TestResolve_LocalBeforeGlobal(t *testing.T) {
	local := indexOf("gid://shopify/MediaImage/1", "https://local/1.png")
	global := indexOf("gid://shopify/MediaImage/1", "https://global/1.png")
	r := New(nil, zerolog.Nop())

	got := r.Resolve(context.Background(),
		Field{Type: TypeFileReference, Value: "gid://shopify/MediaImage/1"}, local, global)

	if got.ResolvedValue != "https://local/1.png" {
		t.Errorf("ResolvedValue = %q, want local URL", got.ResolvedValue)
	}
}

func TestResolve_ListElementwise(t *testing.T) {
	global := indexOf("gid://shopify/MediaImage/1", "https://x/1.png")
	r := New(nil, zerolog.Nop())

	field := Field{
		Namespace: "custom",
		Key:       "gallery",
		Type:      TypeListFileReference,
		Value:     `["gid://shopify/MediaImage/1","gid://shopify/MediaImage/2"]`,
	}
	got := r.Resolve(context.Background(), field, nil, global)

	want := ResolvedField{
		Namespace:     "custom",
		Key:           "gallery",
		Type:          TypeListFileReference,
		ResolvedValue: `["https://x/1.png","gid://shopify/MediaImage/2"]`,
		OriginalValue: field.Value,
		Resolved:      true,
		Misses:        1,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Resolve() mismatch (-want +got):\n%s", diff)
	}
}

func TestResolve_ListEmpty(t *testing.T) {
	r := New(nil, zerolog.Nop())
	got := r.Resolve(context.Background(), Field{Type: TypeListFileReference, Value: `[]`}, nil, nil)

	if !got.Resolved || got.ResolvedValue != "[]" {
		t.Errorf("Resolve(empty list) = %+v", got)
	}
}

func TestResolve_MalformedList(t *testing.T) {
	r := New(newFakeFetcher(nil), zerolog.Nop())

	for _, raw := range []string{`["a",`, `not json`, `{"a":1}`, `[1,2]`, `null`} {
		t.Run(raw, func(t *testing.T) {
			field := Field{Namespace: "custom", Key: "gallery", Type: TypeListFileReference, Value: raw}
			got := r.Resolve(context.Background(), field, nil, nil)

			want := ResolvedField{
				Namespace:     "custom",
				Key:           "gallery",
				Type:          TypeListFileReference,
				ResolvedValue: raw,
				OriginalValue: raw,
			}
			if diff := cmp.Diff(want, got); diff != "" {
				t.Errorf("Resolve() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestResolve_PlainUnchanged(t *testing.T) {
	fetcher := newFakeFetcher(nil)
	r := New(fetcher, zerolog.Nop())

	field := Field{Namespace: "custom", Key: "material", Type: "single_line_text_field", Value: "42"}
	got := r.Resolve(context.Background(), field, indexOf("gid://a/B/42", "https://x"), nil)

	if got.Resolved || got.ResolvedValue != "42" {
		t.Errorf("plain field was rewritten: %+v", got)
	}
	if r.Fetched() != 0 {
		t.Error("plain field must not trigger fetches")
	}
}

func TestResolve_DirectFetchMemoized(t *testing.T) {
	fetcher := newFakeFetcher(map[string]string{"77": "https://fetched/77.png"})
	r := New(fetcher, zerolog.Nop())
	ctx := context.Background()

	field := Field{Type: TypeFileReference, Value: "77"}
	for range 3 {
		got := r.Resolve(ctx, field, nil, nil)
		if got.ResolvedValue != "https://fetched/77.png" || !got.Resolved {
			t.Fatalf("Resolve() = %+v", got)
		}
	}

	list := Field{Type: TypeListFileReference, Value: `["77","88","88"]`}
	got := r.Resolve(ctx, list, nil, nil)
	if got.ResolvedValue != `["https://fetched/77.png","88","88"]` {
		t.Errorf("ResolvedValue = %s", got.ResolvedValue)
	}

	if n := fetcher.count("77"); n != 1 {
		t.Errorf("fetches for 77 = %d, want 1", n)
	}
	if n := fetcher.count("88"); n != 1 {
		t.Errorf("fetches for 88 = %d, want 1 (misses memoized)", n)
	}
}

func TestResolve_ScalarMissPassesThrough(t *testing.T) {
	r := New(newFakeFetcher(nil), zerolog.Nop())

	got := r.Resolve(context.Background(), Field{Type: TypeFileReference, Value: "gid://shopify/MediaImage/9"}, nil, nil)
	if got.Resolved {
		t.Error("Expected Resolved=false")
	}
	if got.ResolvedValue != "gid://shopify/MediaImage/9" || got.Misses != 1 {
		t.Errorf("Resolve() = %+v", got)
	}
}

func TestResolve_Idempotent(t *testing.T) {
	global := indexOf(
		"gid://shopify/MediaImage/1", "https://x/1.png",
		"gid://shopify/Video/2", "https://x/2.mp4",
	)
	r := New(newFakeFetcher(nil), zerolog.Nop())
	ctx := context.Background()

	fields := []Field{
		{Type: TypeFileReference, Value: "1"},
		{Type: TypeFileReference, Value: "missing"},
		{Type: TypeListFileReference, Value: `["shopify/Video/2","3"]`},
		{Type: TypeListFileReference, Value: `[`},
	}
	for _, f := range fields {
		first := r.Resolve(ctx, f, nil, global)
		second := r.Resolve(ctx, f, nil, global)
		if diff := cmp.Diff(first, second); diff != "" {
			t.Errorf("Resolve(%q) not idempotent (-first +second):\n%s", f.Value, diff)
		}
	}
}

// flakyFetcher fails each id once with err, then answers from urls.
type flakyFetcher struct {
	err   error
	urls  map[string]string
	calls map[string]int
}

func (f *flakyFetcher) FetchMediaURL(_ context.Context, id string) (string, error) {
	f.calls[id]++
	if f.calls[id] == 1 {
		return "", f.err
	}
	return f.urls[id], nil
}

func TestResolve_TransientFetchNotMemoized(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"throttled", fmt.Errorf("media node: %w", &graphql.QueryError{Errors: []graphql.Error{{Message: "Throttled", Extensions: map[string]any{"code": "THROTTLED"}}}})},
		{"transport", &graphql.TransportError{StatusCode: 502, Message: "bad gateway"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fetcher := &flakyFetcher{
				err:   tt.err,
				urls:  map[string]string{"5": "https://x/5.png"},
				calls: make(map[string]int),
			}
			r := New(fetcher, zerolog.Nop())
			field := Field{Namespace: "custom", Key: "hero", Type: TypeFileReference, Value: "5"}

			first := r.Resolve(context.Background(), field, nil, nil)
			if first.Resolved {
				t.Fatalf("first Resolve() = %+v, want unresolved", first)
			}

			second := r.Resolve(context.Background(), field, nil, nil)
			if !second.Resolved || second.ResolvedValue != "https://x/5.png" {
				t.Errorf("second Resolve() = %+v, want fetched URL", second)
			}
			if fetcher.calls["5"] != 2 {
				t.Errorf("fetch calls = %d, want 2", fetcher.calls["5"])
			}
		})
	}
}

func TestResolve_PermanentFetchMissMemoized(t *testing.T) {
	fetcher := &flakyFetcher{
		err:   fmt.Errorf("%w: gid://shopify/MediaImage/5", media.ErrNotFound),
		urls:  map[string]string{"5": "https://x/5.png"},
		calls: make(map[string]int),
	}
	r := New(fetcher, zerolog.Nop())
	field := Field{Namespace: "custom", Key: "hero", Type: TypeFileReference, Value: "5"}

	r.Resolve(context.Background(), field, nil, nil)
	got := r.Resolve(context.Background(), field, nil, nil)

	if got.Resolved {
		t.Errorf("Resolve() = %+v, want memoized miss", got)
	}
	if fetcher.calls["5"] != 1 {
		t.Errorf("fetch calls = %d, want 1", fetcher.calls["5"])
	}
}
