package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	for _, k := range []string{"ADDR", "API_BASE", "DATA_DIR", "PACKAGE_BASE_URL", "PACKAGE_DIR", "MIN_ZOOM", "MAX_NATIVE_ZOOM", "STORE_BACKEND", "TLS_ENABLE", "PG_DB"} {
		t.Setenv(k, "")
	}
	c := Load()
	assert.Equal(t, ":8080", c.Addr)
	assert.Equal(t, "/api", c.APIBase)
	assert.Equal(t, 9, c.MinZoom)
	assert.Equal(t, 13, c.MaxNativeZoom)
	assert.Equal(t, "file", c.StoreBackend)
	assert.Equal(t, filepath.Join("data", "tiles"), c.TilesDir())
	assert.Equal(t, filepath.Join("data", "bundle"), c.PackageDir)
	assert.Equal(t, "sealevel", c.Postgres.DB)
	assert.False(t, c.TLSEnable)
	assert.Equal(t, time.Hour, c.CacheTTL)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("API_BASE", "/v1/")
	t.Setenv("DATA_DIR", "/srv/sealevel")
	t.Setenv("PACKAGE_BASE_URL", "https://cdn.example.com/packages/")
	t.Setenv("MAX_NATIVE_ZOOM", "12")
	t.Setenv("MIN_ZOOM", "oops")
	t.Setenv("REDIS_HOST", "cache")
	t.Setenv("REDIS_DB", "3")
	t.Setenv("ADMIN_ALLOW", " 10.0.0.0/8, ,::1")
	c := Load()
	assert.Equal(t, "/v1", c.APIBase)
	assert.Equal(t, "https://cdn.example.com/packages", c.PackageBaseURL)
	assert.Equal(t, "", c.PackageDir)
	assert.Equal(t, 12, c.MaxNativeZoom)
	assert.Equal(t, 9, c.MinZoom)
	assert.Equal(t, "cache:6379", c.Redis.Addr())
	assert.Equal(t, 3, c.Redis.DB)
	assert.Equal(t, []string{"10.0.0.0/8", "::1"}, c.AdminAllow)
	assert.Equal(t, "/srv/sealevel/packages", c.PackagesDir())
	assert.Equal(t, "/srv/sealevel/state/selection.json", c.SelectionFile())
}
