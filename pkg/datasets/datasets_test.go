package datasets

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	"github.com/querylens/querylens/pkg/queryspec"
)

func newTestStore(t *testing.T) *SQLStore {
	t.Helper()

	sqldb, err := sql.Open(sqliteshim.ShimName, "file::memory:")
	require.NoError(t, err)
	t.Cleanup(func() { sqldb.Close() })

	db := bun.NewDB(sqldb, sqlitedialect.New())
	store := NewSQLStore(db)
	require.NoError(t, store.Init(context.Background()))
	return store
}

func TestSQLStoreRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	ds := &Dataset{
		OrgID:        "org1",
		ConnectionID: "conn1",
		Name:         "sales",
		SQL:          "SELECT pais, vendas FROM sales",
		Fields: []queryspec.DataField{
			{Name: "pais", DataType: "text", Role: queryspec.RoleDimension},
			{Name: "vendas", DataType: "numeric", Role: queryspec.RoleMetric},
		},
	}
	require.NoError(t, store.Save(ctx, ds))
	require.NotEmpty(t, ds.ID)

	got, err := store.Get(ctx, "org1", ds.ID)
	require.NoError(t, err)
	assert.Equal(t, "SELECT pais, vendas FROM sales", got.SQL)
	assert.Len(t, got.Fields, 2)
}

func TestSQLStoreTenantIsolation(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	ds := &Dataset{OrgID: "org1", ConnectionID: "conn1", Name: "sales", SQL: "SELECT 1"}
	require.NoError(t, store.Save(ctx, ds))

	// Another tenant sees not-found, not forbidden.
	_, err := store.Get(ctx, "org2", ds.ID)
	require.Error(t, err)
	assert.Equal(t, queryspec.ErrCodeDatasetNotFound, queryspec.CodeOf(err))

	err = store.Delete(ctx, "org2", ds.ID)
	require.Error(t, err)
	assert.Equal(t, queryspec.ErrCodeDatasetNotFound, queryspec.CodeOf(err))

	// The owner still has it.
	_, err = store.Get(ctx, "org1", ds.ID)
	require.NoError(t, err)
}

func TestSQLStoreUpdateOnConflict(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	ds := &Dataset{OrgID: "org1", ConnectionID: "conn1", Name: "sales", SQL: "SELECT 1"}
	require.NoError(t, store.Save(ctx, ds))

	ds.SQL = "SELECT 2"
	require.NoError(t, store.Save(ctx, ds))

	got, err := store.Get(ctx, "org1", ds.ID)
	require.NoError(t, err)
	assert.Equal(t, "SELECT 2", got.SQL)
}

func TestSQLStoreListByConnection(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, &Dataset{OrgID: "org1", ConnectionID: "c1", Name: "a", SQL: "SELECT 1"}))
	require.NoError(t, store.Save(ctx, &Dataset{OrgID: "org1", ConnectionID: "c2", Name: "b", SQL: "SELECT 2"}))

	all, err := store.List(ctx, "org1", "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	c1, err := store.List(ctx, "org1", "c1")
	require.NoError(t, err)
	require.Len(t, c1, 1)
	assert.Equal(t, "a", c1[0].Name)
}
