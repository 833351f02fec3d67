package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"
	_ "github.com/tursodatabase/libsql-client-go/libsql"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"sitepulse/api/logger"
)

// SQL dialects understood by the event store.
const (
	DialectPostgres = "postgres"
	DialectSQLite   = "sqlite"
)

type DBClient struct {
	DB      *sql.DB
	Dialect string
	log     *logger.Logger
}

// driverFor maps a STORE_DRIVER value and URL onto a database/sql driver name
// and the SQL dialect spoken by it.
func driverFor(driver, dbURL string) (string, string, error) {
	switch driver {
	case "postgres", "postgresql":
		return "postgres", DialectPostgres, nil
	case "libsql":
		return "libsql", DialectSQLite, nil
	case "sqlite", "":
		if strings.HasPrefix(dbURL, "libsql://") || strings.HasPrefix(dbURL, "wss://") {
			return "libsql", DialectSQLite, nil
		}
		return "sqlite", DialectSQLite, nil
	default:
		return "", "", fmt.Errorf("unsupported SQL driver %q", driver)
	}
}

// NewSQLDB opens a Postgres, SQLite or libsql connection pool.
func NewSQLDB(ctx context.Context, driver, dbURL string, log *logger.Logger) (*DBClient, error) {
	driverName, dialect, err := driverFor(driver, dbURL)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(driverName, dbURL)
	if err != nil {
		return nil, fmt.Errorf("error opening database connection: %w", err)
	}

	if driverName == "sqlite" {
		// One connection serializes writers and keeps :memory: databases alive.
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
		db.SetConnMaxLifetime(0)
	} else {
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(5 * time.Minute)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err = db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("error connecting to the database (ping failed): %w", err)
	}

	log.Info("connected to SQL event store", zap.String("driver", driverName))
	return &DBClient{DB: db, Dialect: dialect, log: log}, nil
}

func (c *DBClient) Close() error {
	if c.DB == nil {
		return nil
	}
	if err := c.DB.Close(); err != nil {
		return fmt.Errorf("close database connection: %w", err)
	}
	c.log.Info("SQL database connection closed")
	return nil
}
