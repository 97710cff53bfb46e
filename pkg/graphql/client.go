// Package graphql provides the upstream GraphQL query executor with cost
// pacing, error classification, and metrics. It performs a single request per
// call and never retries; retry policy belongs to callers.
package graphql

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Sternrassler/catalog-feed/pkg/ratelimit"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Prometheus metrics for upstream query execution.
var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "catalog_graphql_requests_total",
		Help: "Total upstream GraphQL requests by operation and status",
	}, []string{"operation", "status"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "catalog_graphql_request_duration_seconds",
		Help:    "Upstream GraphQL request duration in seconds by operation",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10},
	}, []string{"operation"})

	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "catalog_graphql_errors_total",
		Help: "Total upstream GraphQL errors by class",
	}, []string{"class"})

	queryCost = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "catalog_graphql_query_cost",
		Help:    "Actual query cost reported by the upstream by operation",
		Buckets: []float64{1, 10, 50, 100, 250, 500, 1000},
	}, []string{"operation"})
)

// maxErrorBody bounds how much of a failed response body is kept in errors.
const maxErrorBody = 512

// Client executes GraphQL queries against one upstream store.
type Client struct {
	httpClient *http.Client
	tracker    *ratelimit.Tracker
	config     Config
	endpoint   string
	logger     zerolog.Logger
}

// Config holds the client configuration.
type Config struct {
	// StoreDomain is the upstream host, e.g. "example.myshopify.com".
	StoreDomain string

	// BaseURL overrides the scheme and host (used by tests and proxies).
	BaseURL string

	// APIVersion is the versioned path segment, e.g. "2024-10".
	APIVersion string

	// AccessToken is sent in TokenHeader on every request.
	AccessToken string

	// TokenHeader defaults to X-Shopify-Access-Token.
	TokenHeader string

	// UserAgent identifies this client to the upstream.
	UserAgent string

	// Timeout is the transport timeout per request.
	Timeout time.Duration

	// Tracker paces requests against the cost bucket (optional).
	Tracker *ratelimit.Tracker
}

// DefaultConfig returns a safe default configuration.
func DefaultConfig(storeDomain, accessToken string) Config {
	return Config{
		StoreDomain: storeDomain,
		APIVersion:  "2024-10",
		AccessToken: accessToken,
		TokenHeader: "X-Shopify-Access-Token",
		UserAgent:   "catalog-feed/0.1.0",
		Timeout:     30 * time.Second,
	}
}

// New creates a new GraphQL client.
func New(cfg Config) (*Client, error) {
	if cfg.StoreDomain == "" && cfg.BaseURL == "" {
		return nil, fmt.Errorf("store domain is required")
	}

	if cfg.AccessToken == "" {
		return nil, fmt.Errorf("access token is required")
	}

	if cfg.APIVersion == "" {
		return nil, fmt.Errorf("api version is required")
	}

	if cfg.TokenHeader == "" {
		cfg.TokenHeader = "X-Shopify-Access-Token"
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = "https://" + cfg.StoreDomain
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		tracker:  cfg.Tracker,
		config:   cfg,
		endpoint: fmt.Sprintf("%s/admin/api/%s/graphql.json", base, cfg.APIVersion),
		logger:   log.With().Str("component", "graphql-client").Logger(),
	}, nil
}

// Endpoint returns the resolved GraphQL endpoint URL.
func (c *Client) Endpoint() string {
	return c.endpoint
}

// Execute sends one query and returns the decoded envelope. Transport
// failures return *TransportError; application errors are left in the
// envelope for the caller to judge.
func (c *Client) Execute(ctx context.Context, query string, variables map[string]any) (*Envelope, error) {
	operation := OperationName(query)

	startTime := time.Now()
	defer func() {
		requestDuration.WithLabelValues(operation).Observe(time.Since(startTime).Seconds())
	}()

	// Step 1: Pace against the cost bucket
	if c.tracker != nil {
		if err := c.tracker.Wait(ctx); err != nil {
			return nil, &TransportError{Message: "waiting for cost budget", Err: err}
		}
	}

	// Step 2: Build request
	body, err := json.Marshal(Request{Query: query, Variables: variables})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set(c.config.TokenHeader, c.config.AccessToken)
	if c.config.UserAgent != "" {
		req.Header.Set("User-Agent", c.config.UserAgent)
	}

	c.logger.Debug().
		Str("operation", operation).
		Interface("variables", variables).
		Msg("Executing upstream query")

	// Step 3: Round trip
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error().Err(err).Str("operation", operation).Msg("HTTP request failed")
		errorsTotal.WithLabelValues(string(ErrorClassTransport)).Inc()
		requestsTotal.WithLabelValues(operation, "network_error").Inc()
		return nil, &TransportError{Message: "request failed", Err: err}
	}
	defer resp.Body.Close()

	status := strconv.Itoa(resp.StatusCode)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		errorsTotal.WithLabelValues(string(ErrorClassTransport)).Inc()
		requestsTotal.WithLabelValues(operation, status).Inc()
		c.logger.Warn().
			Str("operation", operation).
			Int("status", resp.StatusCode).
			Msg("Upstream returned non-success status")
		return nil, &TransportError{
			StatusCode: resp.StatusCode,
			Message:    strings.TrimSpace(resp.Status + " " + string(snippet)),
		}
	}

	// Step 4: Decode envelope
	var env Envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		errorsTotal.WithLabelValues(string(ErrorClassTransport)).Inc()
		requestsTotal.WithLabelValues(operation, "decode_error").Inc()
		return nil, &TransportError{StatusCode: resp.StatusCode, Message: "decode response", Err: err}
	}

	// Step 5: Feed cost report back into the tracker
	if env.Extensions != nil && env.Extensions.Cost != nil {
		cost := env.Extensions.Cost
		queryCost.WithLabelValues(operation).Observe(cost.ActualQueryCost)
		if c.tracker != nil {
			err := c.tracker.Update(ctx, ratelimit.Status{
				MaximumAvailable:   cost.ThrottleStatus.MaximumAvailable,
				CurrentlyAvailable: cost.ThrottleStatus.CurrentlyAvailable,
				RestoreRate:        cost.ThrottleStatus.RestoreRate,
			})
			if err != nil {
				c.logger.Warn().Err(err).Msg("Failed to update cost state")
			}
		}
	}

	if env.HasErrors() {
		class := (&QueryError{Errors: env.Errors}).Class()
		errorsTotal.WithLabelValues(string(class)).Inc()
		requestsTotal.WithLabelValues(operation, string(class)).Inc()
		c.logger.Warn().
			Str("operation", operation).
			Str("error_class", string(class)).
			Int("errors", len(env.Errors)).
			Msg("Upstream query returned errors")
		return &env, nil
	}

	requestsTotal.WithLabelValues(operation, status).Inc()
	return &env, nil
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}
