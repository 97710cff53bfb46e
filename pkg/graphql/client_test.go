package graphql

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/Sternrassler/catalog-feed/internal/testutil"
	"github.com/Sternrassler/catalog-feed/pkg/ratelimit"
	"github.com/rs/zerolog"
)

func newTestClient(t *testing.T, mock *testutil.MockUpstream) *Client {
	t.Helper()

	cfg := DefaultConfig("", "test-token")
	cfg.BaseURL = mock.URL()
	cfg.Timeout = 2 * time.Second

	client, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return client
}

func TestNew_Validation(t *testing.T) {
	tests := []struct {
		name        string
		config      Config
		expectError bool
		errorMsg    string
	}{
		{
			name:        "valid config",
			config:      DefaultConfig("shop.example.com", "token"),
			expectError: false,
		},
		{
			name:        "missing store domain",
			config:      DefaultConfig("", "token"),
			expectError: true,
			errorMsg:    "store domain is required",
		},
		{
			name:        "missing token",
			config:      DefaultConfig("shop.example.com", ""),
			expectError: true,
			errorMsg:    "access token is required",
		},
		{
			name: "missing api version",
			config: Config{
				StoreDomain: "shop.example.com",
				AccessToken: "token",
			},
			expectError: true,
			errorMsg:    "api version is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := New(tt.config)

			if tt.expectError {
				if err == nil {
					t.Errorf("Expected error but got nil")
					return
				}
				if tt.errorMsg != "" && err.Error() != tt.errorMsg {
					t.Errorf("Error message = %q, want %q", err.Error(), tt.errorMsg)
				}
				return
			}
			if err != nil {
				t.Errorf("Unexpected error: %v", err)
				return
			}
			if client == nil {
				t.Error("Client is nil")
			}
		})
	}
}

func TestNew_Endpoint(t *testing.T) {
	client, err := New(DefaultConfig("shop.example.com", "token"))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	want := "https://shop.example.com/admin/api/2024-10/graphql.json"
	if client.Endpoint() != want {
		t.Errorf("Endpoint() = %q, want %q", client.Endpoint(), want)
	}
}

func TestExecute_Success(t *testing.T) {
	mock := testutil.NewMockUpstream()
	defer mock.Close()

	mock.Enqueue("Shop", testutil.Data(map[string]any{"shop": map[string]any{"name": "Demo"}}))

	client := newTestClient(t, mock)
	env, err := client.Execute(context.Background(), `query Shop { shop { name } }`, nil)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if env.HasErrors() {
		t.Fatalf("Unexpected errors: %+v", env.Errors)
	}

	var out struct {
		Shop struct {
			Name string `json:"name"`
		} `json:"shop"`
	}
	if err := env.Decode(&out); err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if out.Shop.Name != "Demo" {
		t.Errorf("Shop.Name = %q, want Demo", out.Shop.Name)
	}
}

func TestExecute_SendsHeadersAndVariables(t *testing.T) {
	mock := testutil.NewMockUpstream()
	defer mock.Close()

	mock.Enqueue("Products", testutil.Data(map[string]any{}))

	client := newTestClient(t, mock)
	_, err := client.Execute(context.Background(),
		`query Products($first: Int!) { products(first: $first) { nodes { id } } }`,
		map[string]any{"first": 5})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	headers := mock.LastHeaders()
	if got := headers.Get("X-Shopify-Access-Token"); got != "test-token" {
		t.Errorf("token header = %q, want test-token", got)
	}
	if got := headers.Get("User-Agent"); got != "catalog-feed/0.1.0" {
		t.Errorf("User-Agent = %q", got)
	}

	reqs := mock.Requests()
	if len(reqs) != 1 {
		t.Fatalf("Expected 1 request, got %d", len(reqs))
	}
	if first, _ := reqs[0].Variables["first"].(float64); first != 5 {
		t.Errorf("first = %v, want 5", reqs[0].Variables["first"])
	}
}

func TestExecute_QueryErrorsReturnEnvelope(t *testing.T) {
	mock := testutil.NewMockUpstream()
	defer mock.Close()

	mock.Enqueue("Products", testutil.Throttled())

	client := newTestClient(t, mock)
	env, err := client.Execute(context.Background(), `query Products { products { nodes { id } } }`, nil)
	if err != nil {
		t.Fatalf("Execute() should not fail on application errors, got %v", err)
	}
	if !env.HasErrors() {
		t.Fatal("Expected envelope errors")
	}
	if !errors.Is(env.Err(), ErrThrottled) {
		t.Errorf("Expected ErrThrottled, got %v", env.Err())
	}
}

func TestExecute_TransportErrors(t *testing.T) {
	mock := testutil.NewMockUpstream()
	defer mock.Close()

	mock.Enqueue("Products", testutil.ServerError())
	mock.Enqueue("Products", testutil.MockResponse{StatusCode: 200, Body: "not json"})

	client := newTestClient(t, mock)
	query := `query Products { products { nodes { id } } }`

	_, err := client.Execute(context.Background(), query, nil)
	var te *TransportError
	if !errors.As(err, &te) {
		t.Fatalf("Expected TransportError for 500, got %v", err)
	}
	if te.StatusCode != 500 {
		t.Errorf("StatusCode = %d, want 500", te.StatusCode)
	}

	_, err = client.Execute(context.Background(), query, nil)
	if !errors.As(err, &te) {
		t.Fatalf("Expected TransportError for undecodable body, got %v", err)
	}
	if Classify(err) != ErrorClassTransport {
		t.Errorf("Classify() = %q, want transport", Classify(err))
	}
}

func TestExecute_NetworkError(t *testing.T) {
	mock := testutil.NewMockUpstream()
	client := newTestClient(t, mock)
	mock.Close()

	_, err := client.Execute(context.Background(), `query Shop { shop { name } }`, nil)
	var te *TransportError
	if !errors.As(err, &te) {
		t.Fatalf("Expected TransportError, got %v", err)
	}
	if te.Err == nil {
		t.Error("Expected wrapped network error")
	}
}

func TestExecute_FeedsCostTracker(t *testing.T) {
	mock := testutil.NewMockUpstream()
	defer mock.Close()

	mock.Enqueue("Shop", testutil.DataWithCost(map[string]any{}, 1954, 2000, 100))

	tracker := ratelimit.NewTracker(nil, "test", zerolog.New(os.Stderr).Level(zerolog.Disabled))

	cfg := DefaultConfig("", "test-token")
	cfg.BaseURL = mock.URL()
	cfg.Tracker = tracker
	client, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if _, err := client.Execute(context.Background(), `query Shop { shop { name } }`, nil); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	state, err := tracker.GetState(context.Background())
	if err != nil {
		t.Fatalf("GetState() error = %v", err)
	}
	if state == nil || state.CurrentlyAvailable != 1954 {
		t.Errorf("tracker state = %+v, want available 1954", state)
	}
}
