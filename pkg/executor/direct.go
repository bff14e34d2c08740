package executor

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"
	_ "github.com/microsoft/go-mssqldb"

	"github.com/querylens/querylens/pkg/connections"
	"github.com/querylens/querylens/pkg/logger"
	"github.com/querylens/querylens/pkg/queryspec"
	"github.com/querylens/querylens/pkg/sqlgen"
)

// driverName maps a connection kind to its registered database/sql
// driver.
func driverName(kind connections.Kind) string {
	switch kind {
	case connections.KindMSSQL:
		return "sqlserver"
	case connections.KindSQLite:
		return "sqlite3"
	default:
		return "pgx"
	}
}

// dialectFor maps a connection kind to the generator dialect.
func dialectFor(kind connections.Kind) sqlgen.Dialect {
	switch kind {
	case connections.KindMSSQL:
		return sqlgen.DialectMSSQL
	case connections.KindSQLite:
		return sqlgen.DialectSQLite
	default:
		return sqlgen.DialectPostgres
	}
}

// directBackend runs generated statements over a database/sql driver.
// Every Run opens its own handle with per-request credentials and
// closes it on all exit paths.
type directBackend struct {
	maxRows int

	// openDB is swappable for tests that inject a mock handle.
	openDB func(driver, dsn string) (*sql.DB, error)
}

func newDirectBackend(maxRows int) *directBackend {
	return &directBackend{maxRows: maxRows, openDB: sql.Open}
}

func (b *directBackend) Run(ctx context.Context, conn *connections.Connection, cipher *connections.CredentialCipher, stmt *sqlgen.Statement) (*queryspec.QueryResult, error) {
	dsn, err := conn.DSN(cipher)
	if err != nil {
		return nil, err
	}

	db, err := b.openDB(driverName(conn.Kind), dsn)
	if err != nil {
		return nil, classify(err)
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			logger.Warn("closing backend handle for connection %s: %v", conn.ID, closeErr)
		}
	}()

	start := time.Now()
	rows, err := db.QueryContext(ctx, stmt.SQL, stmt.Args...)
	if err != nil {
		// QueryContext surfaces ctx expiry as a driver error; prefer
		// the deadline classification when the context is done.
		if ctx.Err() != nil {
			err = ctx.Err()
		}
		return nil, classify(err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, classify(err)
	}

	// Rows starts as an empty slice so empty results encode as [].
	result := &queryspec.QueryResult{Columns: columns, Rows: [][]interface{}{}}
	for rows.Next() {
		if len(result.Rows) >= b.maxRows {
			result.Truncated = true
			break
		}

		values := make([]interface{}, len(columns))
		scanTargets := make([]interface{}, len(columns))
		for i := range values {
			scanTargets[i] = &values[i]
		}
		if err := rows.Scan(scanTargets...); err != nil {
			return nil, classify(err)
		}
		for i, v := range values {
			if raw, ok := v.([]byte); ok {
				values[i] = string(raw)
			}
		}
		result.Rows = append(result.Rows, values)
	}
	if err := rows.Err(); err != nil {
		if ctx.Err() != nil {
			err = ctx.Err()
		}
		return nil, classify(err)
	}

	// Hitting the statement's own LIMIT means more rows may exist
	// beyond it; a result that fills the limit exactly is truncated.
	if stmt.Limit > 0 && len(result.Rows) == stmt.Limit {
		result.Truncated = true
	}

	result.ElapsedMs = time.Since(start).Milliseconds()
	return result, nil
}
