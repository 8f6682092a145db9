package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drivesim/recorder/internal/config"
	"github.com/drivesim/recorder/internal/storage/db"
	"github.com/drivesim/recorder/internal/storage/memory"
)

// Verify backends implement the interfaces.
var (
	_ Backend    = (*memory.Backend)(nil)
	_ Uploadable = (*memory.Backend)(nil)
	_ Backend    = (*db.Backend)(nil)
)

func TestNewBackend_Memory(t *testing.T) {
	b, err := NewBackend(config.StorageConfig{
		Type:   "memory",
		Memory: config.MemoryConfig{OutputDir: t.TempDir()},
	}, Dependencies{})
	require.NoError(t, err)

	_, ok := b.(*memory.Backend)
	assert.True(t, ok)
}

func TestNewBackend_DB(t *testing.T) {
	b, err := NewBackend(config.StorageConfig{Type: "db"}, Dependencies{})
	require.NoError(t, err)

	_, ok := b.(*db.Backend)
	assert.True(t, ok)
}

func TestNewBackend_Unknown(t *testing.T) {
	_, err := NewBackend(config.StorageConfig{Type: "carrier-pigeon"}, Dependencies{})
	assert.Error(t, err)
}
