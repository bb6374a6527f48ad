package main

import (
	"path/filepath"
	"testing"

	"codeberg.org/mutker/usagemon/internal/errors"
	"codeberg.org/mutker/usagemon/internal/metrics"
	"codeberg.org/mutker/usagemon/internal/metrics/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenStoreBackends(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name string
		cfg  metrics.Config
	}{
		{name: "sqlite", cfg: metrics.Config{Backend: metrics.BackendSQLite, Path: filepath.Join(dir, "metrics.db")}},
		{name: "badger", cfg: metrics.Config{Backend: metrics.BackendBadger, Path: filepath.Join(dir, "badger")}},
		{name: "memory", cfg: metrics.Config{Backend: metrics.BackendMemory}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, err := openStore(tt.cfg)
			require.NoError(t, err)
			require.NotNil(t, store)
			assert.NoError(t, store.Close())
		})
	}
}

func TestOpenStoreBadgerType(t *testing.T) {
	store, err := openStore(metrics.Config{Backend: metrics.BackendBadger, Path: t.TempDir()})
	require.NoError(t, err)
	defer store.Close()

	_, ok := store.(*badger.Storage)
	assert.True(t, ok)
}

func TestOpenStoreUnknownBackend(t *testing.T) {
	_, err := openStore(metrics.Config{Backend: "redis"})
	assert.True(t, errors.HasCode(err, errors.ErrInvalidBackend))
}
