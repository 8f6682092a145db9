package storage

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/drivesim/recorder/internal/config"
	"github.com/drivesim/recorder/internal/logging"
	"github.com/drivesim/recorder/internal/storage/db"
	"github.com/drivesim/recorder/internal/storage/memory"
)

// Dependencies holds injected dependencies for backends that need them.
// A nil DB lets the db backend establish its own connection.
type Dependencies struct {
	DB         *gorm.DB
	LogManager *logging.SlogManager

	// Directory where the db backend dumps its in-memory SQLite fallback.
	LocalDBDir string
}

// NewBackend creates a storage backend based on configuration.
func NewBackend(cfg config.StorageConfig, deps Dependencies) (Backend, error) {
	switch cfg.Type {
	case "memory":
		return memory.New(cfg.Memory), nil
	case "db":
		return db.New(db.Dependencies{
			DB:         deps.DB,
			LogManager: deps.LogManager,
			LocalDBDir: deps.LocalDBDir,
		}), nil
	default:
		return nil, fmt.Errorf("unknown storage type: %s", cfg.Type)
	}
}
