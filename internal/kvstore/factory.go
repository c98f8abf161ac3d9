// internal/kvstore/factory.go
package kvstore

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/infomapapp/parceldash/internal/config"
	"github.com/infomapapp/parceldash/internal/database"
	"github.com/infomapapp/parceldash/internal/kvstore/file"
	"github.com/infomapapp/parceldash/internal/kvstore/gormkv"
	"github.com/infomapapp/parceldash/internal/kvstore/memory"
)

// NewStore creates a storage backend based on configuration.
func NewStore(cfg config.StorageConfig, log zerolog.Logger) (Store, error) {
	switch cfg.Type {
	case "memory":
		return memory.New(), nil
	case "file":
		return file.New(cfg.File.Dir)
	case "sqlite":
		mgr := database.NewManager(log)
		db, err := mgr.GetSqliteDB(cfg.SQLite.Path)
		if err != nil {
			return nil, fmt.Errorf("opening sqlite storage: %w", err)
		}
		s := gormkv.New(db)
		if err := s.Init(); err != nil {
			return nil, err
		}
		return s, nil
	case "postgres":
		mgr := database.NewManager(log)
		if err := mgr.Connect(cfg); err != nil {
			return nil, fmt.Errorf("connecting postgres storage: %w", err)
		}
		s := gormkv.New(mgr.DB)
		if err := s.Init(); err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown storage type: %s", cfg.Type)
	}
}
