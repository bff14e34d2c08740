package sqlgen

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/querylens/querylens/pkg/queryspec"
)

func TestGenerateGroupedAggregate(t *testing.T) {
	gen := NewGenerator(DialectPostgres)

	req := &queryspec.QueryRequest{
		OrgID:      "org1",
		DatasetRef: queryspec.DatasetRef{ConnectionID: "conn1", DatasetID: "ds1"},
		Dimensions: []queryspec.Dimension{{Field: "pais"}},
		Metrics:    []queryspec.Metric{{Field: "vendas", Aggregation: "sum"}},
		Limit:      100,
	}

	stmt, err := gen.Generate(req, "SELECT pais, vendas FROM sales")
	require.NoError(t, err)
	assert.Equal(t,
		`SELECT source."pais" AS "pais", SUM("vendas") AS "vendas" FROM (SELECT pais, vendas FROM sales) AS source GROUP BY 1 ORDER BY 1 LIMIT 100 OFFSET 0`,
		stmt.SQL)
	assert.Empty(t, stmt.Args)
}

func TestGenerateFiltersBindValues(t *testing.T) {
	gen := NewGenerator(DialectPostgres)

	req := &queryspec.QueryRequest{
		OrgID:      "org1",
		DatasetRef: queryspec.DatasetRef{ConnectionID: "conn1", DatasetID: "ds1"},
		Dimensions: []queryspec.Dimension{{Field: "region"}},
		Metrics:    []queryspec.Metric{{Field: "amount", Aggregation: "avg"}},
		Filters: []queryspec.Filter{
			{Field: "year", Operator: "gte", Value: 2023},
			{Field: "status", Operator: "neq", Value: "void"},
		},
		Limit: 50,
	}

	stmt, err := gen.Generate(req, "SELECT region, amount, year, status FROM orders")
	require.NoError(t, err)
	assert.Contains(t, stmt.SQL, `WHERE "year" >= $1 AND "status" <> $2`)
	assert.Equal(t, []interface{}{2023, "void"}, stmt.Args)
	// Filter values never appear in the SQL text.
	assert.NotContains(t, stmt.SQL, "2023")
	assert.NotContains(t, stmt.SQL, "void")
}

func TestGenerateAliasesAndCountDistinct(t *testing.T) {
	gen := NewGenerator(DialectPostgres)

	req := &queryspec.QueryRequest{
		OrgID:      "org1",
		DatasetRef: queryspec.DatasetRef{ConnectionID: "conn1", DatasetID: "ds1"},
		Dimensions: []queryspec.Dimension{{Field: "country", Alias: "pais"}},
		Metrics: []queryspec.Metric{
			{Field: "customer_id", Aggregation: "COUNT_DISTINCT", Alias: "customers"},
		},
		Limit: 10,
	}

	stmt, err := gen.Generate(req, "SELECT country, customer_id FROM sales")
	require.NoError(t, err)
	assert.Contains(t, stmt.SQL, `source."country" AS "pais"`)
	assert.Contains(t, stmt.SQL, `COUNT(DISTINCT "customer_id") AS "customers"`)
}

func TestGenerateOrderByAndPagination(t *testing.T) {
	gen := NewGenerator(DialectPostgres)

	req := &queryspec.QueryRequest{
		OrgID:      "org1",
		DatasetRef: queryspec.DatasetRef{ConnectionID: "conn1", DatasetID: "ds1"},
		Dimensions: []queryspec.Dimension{{Field: "month"}, {Field: "region"}},
		Metrics:    []queryspec.Metric{{Field: "total", Aggregation: "sum"}},
		OrderBy:    []queryspec.Sort{{Field: "total", Direction: "desc"}, {Field: "month", Direction: "asc"}},
		Limit:      25,
		Offset:     50,
	}

	stmt, err := gen.Generate(req, "SELECT month, region, total FROM rollup")
	require.NoError(t, err)
	assert.Contains(t, stmt.SQL, "GROUP BY 1, 2")
	assert.Contains(t, stmt.SQL, `ORDER BY "total" DESC, "month" ASC`)
	assert.Contains(t, stmt.SQL, "LIMIT 25 OFFSET 50")
}

func TestGenerateClampsLimitAndOffset(t *testing.T) {
	gen := NewGenerator(DialectPostgres)

	req := &queryspec.QueryRequest{
		OrgID:      "org1",
		DatasetRef: queryspec.DatasetRef{ConnectionID: "conn1", DatasetID: "ds1"},
		Metrics:    []queryspec.Metric{{Field: "total", Aggregation: "sum"}},
		Limit:      999999,
		Offset:     -5,
	}

	stmt, err := gen.Generate(req, "SELECT total FROM rollup")
	require.NoError(t, err)
	assert.Contains(t, stmt.SQL, "LIMIT 5000 OFFSET 0")
	assert.Equal(t, 5000, stmt.Limit)
	assert.NotContains(t, stmt.SQL, "GROUP BY")
}

func TestGenerateTrimsDatasetSemicolon(t *testing.T) {
	gen := NewGenerator(DialectSQLite)

	req := &queryspec.QueryRequest{
		OrgID:      "org1",
		DatasetRef: queryspec.DatasetRef{ConnectionID: "conn1", DatasetID: "ds1"},
		Metrics: []queryspec.Metric{{Field: "n", Aggregation: "count"}},
		Limit:   1,
	}

	stmt, err := gen.Generate(req, "SELECT n FROM t;\n")
	require.NoError(t, err)
	assert.Contains(t, stmt.SQL, "FROM (SELECT n FROM t) AS source")
}

func TestGenerateDialectPlaceholders(t *testing.T) {
	req := &queryspec.QueryRequest{
		OrgID:      "org1",
		DatasetRef: queryspec.DatasetRef{ConnectionID: "conn1", DatasetID: "ds1"},
		Metrics: []queryspec.Metric{{Field: "n", Aggregation: "count"}},
		Filters: []queryspec.Filter{{Field: "k", Operator: "eq", Value: "x"}},
		Limit:   1,
	}

	sqlite, err := NewGenerator(DialectSQLite).Generate(req, "SELECT n, k FROM t")
	require.NoError(t, err)
	assert.Contains(t, sqlite.SQL, `"k" = ?`)

	mssql, err := NewGenerator(DialectMSSQL).Generate(req, "SELECT n, k FROM t")
	require.NoError(t, err)
	assert.Contains(t, mssql.SQL, `"k" = @p1`)
	assert.Contains(t, mssql.SQL, "OFFSET 0 ROWS FETCH NEXT 1 ROWS ONLY")
}

func TestGenerateRejectsInvalidRequest(t *testing.T) {
	gen := NewGenerator(DialectPostgres)

	req := &queryspec.QueryRequest{
		OrgID:      "org1",
		DatasetRef: queryspec.DatasetRef{ConnectionID: "conn1", DatasetID: "ds1"},
		Metrics: []queryspec.Metric{{Field: `vendas"; DROP TABLE sales; --`, Aggregation: "sum"}},
		Limit:   10,
	}

	_, err := gen.Generate(req, "SELECT vendas FROM sales")
	require.Error(t, err)
	assert.Equal(t, queryspec.ErrCodeInvalidIdentifier, queryspec.CodeOf(err))
}
