package metastore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/querylens/querylens/pkg/config"
)

func TestOpenSQLite(t *testing.T) {
	db, err := Open(context.Background(), config.StoreConfig{
		Driver: "sqlite",
		DSN:    "file::memory:?cache=shared",
	})
	require.NoError(t, err)
	defer db.Close()

	var one int
	err = db.NewSelect().ColumnExpr("1").Scan(context.Background(), &one)
	require.NoError(t, err)
	assert.Equal(t, 1, one)
}

func TestOpenUnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), config.StoreConfig{Driver: "oracle"})
	assert.Error(t, err)
}
