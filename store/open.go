package store

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"sitepulse/api/config"
	"sitepulse/api/database"
	"sitepulse/api/logger"
)

// Open connects the event store selected by STORE_DRIVER and applies its schema.
func Open(ctx context.Context, cfg *config.Config, log *logger.Logger) (EventStore, error) {
	switch cfg.Store.Driver {
	case "clickhouse":
		chClient, err := database.NewClickHouseDB(ctx, cfg, log)
		if err != nil {
			return nil, err
		}
		s, err := NewClickHouseStore(ctx, chClient, log)
		if err != nil {
			chClient.Close()
			return nil, err
		}
		return s, nil
	case "sqlite", "libsql", "postgres", "postgresql", "":
		dbClient, err := database.NewSQLDB(ctx, cfg.Store.Driver, cfg.Store.DatabaseURL, log)
		if err != nil {
			return nil, err
		}
		s, err := NewSQLStore(ctx, dbClient, log)
		if err != nil {
			dbClient.Close()
			return nil, err
		}
		return s, nil
	default:
		log.Error("unknown store driver", zap.String("driver", cfg.Store.Driver))
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedDriver, cfg.Store.Driver)
	}
}
