package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kacperjurak/gos2pcore/pkg/cache"
)

func TestRun_StartFailureClosesCache(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("ENVIRONMENT", "test")
	t.Setenv("PORT", "-1")
	t.Setenv("CACHE_ENABLED", "true")
	t.Setenv("CACHE_PATH", dir)
	t.Setenv("S3_BUCKET", "")

	err := run()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "http server")

	// badger holds a directory lock until Close.
	c, err := cache.NewBadgerCache(cache.BadgerConfig{Path: dir})
	require.NoError(t, err)
	assert.NoError(t, c.Close())
}
