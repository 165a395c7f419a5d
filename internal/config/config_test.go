package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("CRAWL_MAX_DEPTH", "")
	cfg := Load()

	assert.Equal(t, 3, cfg.Crawl.MaxDepth)
	assert.Equal(t, 500, cfg.Crawl.MaxPages)
	assert.Equal(t, 3, cfg.Crawl.Concurrency)
	assert.True(t, cfg.Crawl.RespectRobots)
}

func TestLoadFileThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sitemapper.yaml")
	body := "http_addr: \":9090\"\ncrawl:\n  max_depth: 5\n  max_pages: 40\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	t.Setenv("CONFIG_FILE", path)
	t.Setenv("HTTP_ADDR", "")
	t.Setenv("CRAWL_MAX_PAGES", "25")
	t.Setenv("CRAWL_RESPECT_ROBOTS", "false")

	cfg := Load()
	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, 5, cfg.Crawl.MaxDepth)
	assert.Equal(t, 25, cfg.Crawl.MaxPages)
	assert.False(t, cfg.Crawl.RespectRobots)
	// untouched keys keep their defaults
	assert.Equal(t, 3, cfg.Crawl.StableSamples)
}

func TestGetenvIntFallsBackOnGarbage(t *testing.T) {
	t.Setenv("SITEMAPPER_TEST_INT", "abc")
	assert.Equal(t, 7, getenvInt("SITEMAPPER_TEST_INT", 7))
}
