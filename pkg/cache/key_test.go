package cache

import "testing"

func TestKey_String(t *testing.T) {
	tests := []struct {
		name string
		key  Key
		want string
	}{
		{
			name: "resource only",
			key:  Key{Store: "example", Resource: "products"},
			want: "catalog:example:products",
		},
		{
			name: "with params",
			key: Key{
				Store:    "example",
				Resource: "products",
				Params:   map[string]string{"handle": "shirt"},
			},
			want: "catalog:example:products:handle=shirt",
		},
		{
			name: "params sorted",
			key: Key{
				Store:    "example",
				Resource: "report",
				Params:   map[string]string{"z": "1", "a": "2", "m": "3"},
			},
			want: "catalog:example:report:a=2:m=3:z=1",
		},
		{
			name: "resource colons trimmed",
			key:  Key{Store: "example", Resource: ":products:"},
			want: "catalog:example:products",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.key.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestKey_Deterministic(t *testing.T) {
	key := Key{Store: "s", Resource: "r", Params: map[string]string{"b": "2", "a": "1", "c": "3"}}
	first := key.String()
	for range 20 {
		if got := key.String(); got != first {
			t.Fatalf("String() not deterministic: %q vs %q", got, first)
		}
	}
}

func TestStorePattern(t *testing.T) {
	if got := StorePattern("example"); got != "catalog:example:*" {
		t.Errorf("StorePattern() = %q", got)
	}
}
