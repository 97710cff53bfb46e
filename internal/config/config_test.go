package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Setenv("STORE_DOMAIN", "example.myshopify.com")
	t.Setenv("ACCESS_TOKEN", "shpat_test")
	t.Setenv("API_KEY", "secret")
}

func TestLoad_Defaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "2024-10", cfg.Upstream.APIVersion)
	assert.Equal(t, "X-Shopify-Access-Token", cfg.Upstream.TokenHeader)
	assert.Equal(t, 30*time.Second, cfg.Upstream.Timeout)
	assert.Equal(t, 50, cfg.Schedule.PageSize)
	assert.Equal(t, 500*time.Millisecond, cfg.Schedule.PageDelay)
	assert.Equal(t, 2*time.Second, cfg.Schedule.ThrottleBackoff)
	assert.Equal(t, 1000, cfg.Schedule.MaxPages)
	assert.Equal(t, "shopify", cfg.Media.Namespace)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, time.Hour, cfg.Cache.TTL)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "example.myshopify.com", cfg.Store())
}

func TestLoad_Overrides(t *testing.T) {
	setRequired(t)
	t.Setenv("PAGE_SIZE", "100")
	t.Setenv("PAGE_DELAY", "0s")
	t.Setenv("FORCE_TWO_PHASE", "true")
	t.Setenv("EXPORT_S3_BUCKET", "feeds")

	cfg, err := Load()
	require.NoError(t, err)

	schedule := cfg.PaginationSchedule()
	assert.Equal(t, 100, schedule.PageSize)
	assert.Zero(t, schedule.PageDelay)
	assert.True(t, cfg.Catalog().ForceTwoPhase)
	assert.Equal(t, "feeds", cfg.S3().Bucket)
}

func TestLoad_MissingRequired(t *testing.T) {
	t.Setenv("STORE_DOMAIN", "")
	t.Setenv("UPSTREAM_BASE_URL", "")
	t.Setenv("ACCESS_TOKEN", "")
	t.Setenv("API_KEY", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "STORE_DOMAIN")
	assert.Contains(t, err.Error(), "ACCESS_TOKEN")
	assert.Contains(t, err.Error(), "API_KEY")
}

func TestValidate_PageSize(t *testing.T) {
	setRequired(t)
	t.Setenv("PAGE_SIZE", "500")

	_, err := Load()
	assert.ErrorContains(t, err, "PAGE_SIZE")
}

func TestConfig_GraphQL(t *testing.T) {
	setRequired(t)
	t.Setenv("UPSTREAM_BASE_URL", "http://localhost:9999")

	cfg, err := Load()
	require.NoError(t, err)

	gql := cfg.GraphQL()
	assert.Equal(t, "http://localhost:9999", gql.BaseURL)
	assert.Equal(t, "shpat_test", gql.AccessToken)
	assert.Equal(t, "2024-10", gql.APIVersion)
}
