//go:build integration
// +build integration

package executor

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/querylens/querylens/pkg/connections"
	"github.com/querylens/querylens/pkg/datasets"
	"github.com/querylens/querylens/pkg/queryspec"
)

// setupPostgres starts a PostgreSQL container seeded with a small
// sales table and returns a connection record pointing at it.
func setupPostgres(t *testing.T, cipher *connections.CredentialCipher) (*connections.Connection, func()) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:15-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "testuser",
			"POSTGRES_PASSWORD": "testpass",
			"POSTGRES_DB":       "testdb",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	postgres, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)

	host, err := postgres.Host(ctx)
	require.NoError(t, err)
	port, err := postgres.MappedPort(ctx, "5432")
	require.NoError(t, err)

	dsn := fmt.Sprintf("postgres://testuser:testpass@%s:%d/testdb?sslmode=disable", host, port.Int())
	db, err := sql.Open("pgx", dsn)
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Exec(`CREATE TABLE sales (pais TEXT, vendas NUMERIC)`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO sales VALUES
		('Brasil', 1200), ('Brasil', 800), ('EUA', 4000), ('Alemanha', 2900)`)
	require.NoError(t, err)

	encrypted, err := cipher.Encrypt("testpass")
	require.NoError(t, err)

	conn := &connections.Connection{
		ID: "conn1", OrgID: "org1", Kind: connections.KindPostgres,
		Host: host, Port: port.Int(), Database: "testdb",
		Username: "testuser", SSLMode: "disable",
		EncryptedPassword: encrypted,
	}

	return conn, func() {
		_ = postgres.Terminate(ctx)
	}
}

func TestExecuteAgainstPostgres(t *testing.T) {
	cipher, err := connections.NewCredentialCipher("integration-key")
	require.NoError(t, err)

	conn, teardown := setupPostgres(t, cipher)
	defer teardown()

	exec := New(
		&fakeResolver{conn: conn},
		&fakeDatasetStore{ds: &datasets.Dataset{ID: "ds1", OrgID: "org1", ConnectionID: "conn1", SQL: "SELECT pais, vendas FROM sales"}},
		cipher,
		Options{},
	)

	res, err := exec.Execute(context.Background(), salesRequest())
	require.NoError(t, err)
	assert.Equal(t, []string{"pais", "vendas"}, res.Columns)
	require.Len(t, res.Rows, 3)
	assert.Equal(t, "Alemanha", res.Rows[0][0])
	assert.Equal(t, "Brasil", res.Rows[1][0])
	assert.Equal(t, "EUA", res.Rows[2][0])
}

func TestExecuteAgainstPostgresAuthFailure(t *testing.T) {
	cipher, err := connections.NewCredentialCipher("integration-key")
	require.NoError(t, err)

	conn, teardown := setupPostgres(t, cipher)
	defer teardown()

	badPassword, err := cipher.Encrypt("wrongpass")
	require.NoError(t, err)
	conn.EncryptedPassword = badPassword

	exec := New(
		&fakeResolver{conn: conn},
		&fakeDatasetStore{ds: &datasets.Dataset{ID: "ds1", OrgID: "org1", ConnectionID: "conn1", SQL: "SELECT pais, vendas FROM sales"}},
		cipher,
		Options{},
	)

	_, err = exec.Execute(context.Background(), salesRequest())
	require.Error(t, err)
	assert.Equal(t, queryspec.ErrCodeAuthFailed, queryspec.CodeOf(err))
}
