// Package sqlgen turns a validated QueryRequest plus a dataset's
// stored SQL definition into one executable SELECT. It is a closed
// generator: it only ever assembles SELECT/aggregate/GROUP BY/ORDER
// BY/LIMIT tokens from allow-listed identifiers and a pre-vetted
// dataset definition, so it cannot emit writes or DDL.
package sqlgen

import (
	"fmt"
	"strings"

	"github.com/querylens/querylens/pkg/queryspec"
)

// Dialect controls placeholder style and pagination syntax for the
// target engine.
type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectSQLite   Dialect = "sqlite"
	DialectMSSQL    Dialect = "mssql"
)

// Statement is a generated query with its bound parameters. Filter
// values are never interpolated into SQL text. Limit is the effective
// row limit after clamping, the same value baked into the SQL; the
// executor compares returned row counts against it to flag truncation.
type Statement struct {
	SQL   string
	Args  []interface{}
	Limit int
}

// Generator builds statements for one dialect.
type Generator struct {
	dialect Dialect
}

// NewGenerator creates a generator for the given dialect.
func NewGenerator(dialect Dialect) *Generator {
	return &Generator{dialect: dialect}
}

// Generate produces the grounded statement for a validated request.
// The dataset's SQL is wrapped as a derived table; dimensions become
// quoted source columns, metrics become aggregate calls, and GROUP BY
// is emitted positionally to avoid alias-resolution differences
// between engines. Validation runs again here as a last line of
// defense, but callers are expected to have validated already.
func (g *Generator) Generate(req *queryspec.QueryRequest, datasetSQL string) (*Statement, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	var sb strings.Builder
	args := make([]interface{}, 0, len(req.Filters))

	sb.WriteString("SELECT ")

	selects := make([]string, 0, len(req.Dimensions)+len(req.Metrics))
	for _, d := range req.Dimensions {
		selects = append(selects, fmt.Sprintf(`source.%s AS %s`, quoteIdent(d.Field), quoteIdent(d.SelectAlias())))
	}
	for _, m := range req.Metrics {
		selects = append(selects, fmt.Sprintf(`%s AS %s`, aggExpr(m), quoteIdent(m.SelectAlias())))
	}
	sb.WriteString(strings.Join(selects, ", "))

	sb.WriteString(" FROM (")
	sb.WriteString(strings.TrimRight(strings.TrimSpace(datasetSQL), ";"))
	sb.WriteString(") AS source")

	if len(req.Filters) > 0 {
		sb.WriteString(" WHERE ")
		conds := make([]string, 0, len(req.Filters))
		for _, f := range req.Filters {
			args = append(args, f.Value)
			conds = append(conds, fmt.Sprintf("%s %s %s",
				quoteIdent(f.Field), queryspec.OperatorSQL(f.Operator), g.placeholder(len(args))))
		}
		sb.WriteString(strings.Join(conds, " AND "))
	}

	if len(req.Dimensions) > 0 {
		positions := make([]string, len(req.Dimensions))
		for i := range req.Dimensions {
			positions[i] = fmt.Sprintf("%d", i+1)
		}
		sb.WriteString(" GROUP BY ")
		sb.WriteString(strings.Join(positions, ", "))
	}

	sb.WriteString(" ORDER BY ")
	if len(req.OrderBy) > 0 {
		orders := make([]string, 0, len(req.OrderBy))
		for _, s := range req.OrderBy {
			dir := "ASC"
			if strings.EqualFold(s.Direction, "desc") {
				dir = "DESC"
			}
			orders = append(orders, quoteIdent(s.Field)+" "+dir)
		}
		sb.WriteString(strings.Join(orders, ", "))
	} else {
		sb.WriteString("1")
	}

	limit := queryspec.ClampLimit(req.Limit)
	offset := queryspec.ClampOffset(req.Offset)

	if g.dialect == DialectMSSQL {
		fmt.Fprintf(&sb, " OFFSET %d ROWS FETCH NEXT %d ROWS ONLY", offset, limit)
	} else {
		fmt.Fprintf(&sb, " LIMIT %d OFFSET %d", limit, offset)
	}

	return &Statement{SQL: sb.String(), Args: args, Limit: limit}, nil
}

// placeholder returns the bind marker for the n-th parameter (1-based).
func (g *Generator) placeholder(n int) string {
	switch g.dialect {
	case DialectPostgres:
		return fmt.Sprintf("$%d", n)
	case DialectMSSQL:
		return fmt.Sprintf("@p%d", n)
	default:
		return "?"
	}
}

// aggExpr renders a metric's aggregate call. count_distinct maps to
// COUNT(DISTINCT col); everything else is the upper-cased verb.
func aggExpr(m queryspec.Metric) string {
	agg := strings.ToLower(m.Aggregation)
	if agg == "count_distinct" {
		return fmt.Sprintf("COUNT(DISTINCT %s)", quoteIdent(m.Field))
	}
	return fmt.Sprintf("%s(%s)", strings.ToUpper(agg), quoteIdent(m.Field))
}

// quoteIdent double-quotes an already validated identifier.
func quoteIdent(name string) string {
	return `"` + name + `"`
}
