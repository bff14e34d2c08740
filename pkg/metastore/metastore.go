// Package metastore opens the metadata database holding connection and
// dataset definitions. Postgres backs production deployments; SQLite
// serves single-node and development setups.
package metastore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // PostgreSQL driver
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	"github.com/querylens/querylens/pkg/config"
	"github.com/querylens/querylens/pkg/logger"
)

const (
	connectTimeout = 10 * time.Second
	retryAttempts  = 3
	retryDelay     = 1 * time.Second
)

// Open connects to the metadata database and verifies the connection
// with retries. The caller owns the returned DB and must Close it.
func Open(ctx context.Context, cfg config.StoreConfig) (*bun.DB, error) {
	var driver string
	switch cfg.Driver {
	case "postgres", "":
		driver = "pgx"
	case "sqlite":
		driver = sqliteshim.ShimName
	default:
		return nil, fmt.Errorf("unsupported metadata store driver %q", cfg.Driver)
	}

	var sqldb *sql.DB
	var lastErr error
	for attempt := 0; attempt < retryAttempts; attempt++ {
		if attempt > 0 {
			logger.Info("Retrying metadata store connection: attempt=%d/%d", attempt+1, retryAttempts)
			select {
			case <-time.After(retryDelay * time.Duration(attempt)):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		db, err := sql.Open(driver, cfg.DSN)
		if err != nil {
			lastErr = err
			continue
		}

		pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
		err = db.PingContext(pingCtx)
		cancel()
		if err != nil {
			lastErr = err
			db.Close()
			continue
		}

		sqldb = db
		break
	}
	if sqldb == nil {
		return nil, fmt.Errorf("connecting to metadata store after %d attempts: %w", retryAttempts, lastErr)
	}

	sqldb.SetMaxOpenConns(10)
	sqldb.SetMaxIdleConns(5)
	sqldb.SetConnMaxLifetime(time.Hour)

	logger.Info("Metadata store connected: driver=%s", driver)

	if driver == "pgx" {
		return bun.NewDB(sqldb, pgdialect.New()), nil
	}
	return bun.NewDB(sqldb, sqlitedialect.New()), nil
}
