// Package aggregate implements in-process grouping and aggregation
// over record sets. It is the reference semantics for every path that
// cannot push aggregation to a backend: REST-backed sources and mock
// data both run through Apply, so their results are observably
// identical to each other and to backend-side SQL aggregation.
package aggregate

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/querylens/querylens/pkg/queryspec"
)

// Record is one raw row keyed by column name.
type Record = map[string]interface{}

type group struct {
	dims   []interface{}
	states []*aggState
}

type aggState struct {
	agg      string
	sum      float64
	count    int64
	min, max float64
	seen     bool
	distinct map[string]struct{}
}

// Apply filters, groups, aggregates, orders and paginates records per
// the request. Column order is dimensions then metrics, using the same
// alias resolution as the SQL path.
func Apply(records []Record, req *queryspec.QueryRequest) (*queryspec.QueryResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	columns := make([]string, 0, len(req.Dimensions)+len(req.Metrics))
	for _, d := range req.Dimensions {
		columns = append(columns, d.SelectAlias())
	}
	for _, m := range req.Metrics {
		columns = append(columns, m.SelectAlias())
	}

	groups := make(map[string]*group)
	order := make([]string, 0)

	for _, rec := range records {
		if !matchesFilters(rec, req.Filters) {
			continue
		}

		dims := make([]interface{}, len(req.Dimensions))
		keyParts := make([]string, len(req.Dimensions))
		for i, d := range req.Dimensions {
			dims[i] = rec[d.Field]
			keyParts[i] = fmt.Sprintf("%v", rec[d.Field])
		}
		key := strings.Join(keyParts, "\x00")

		g, ok := groups[key]
		if !ok {
			g = &group{dims: dims, states: make([]*aggState, len(req.Metrics))}
			for i, m := range req.Metrics {
				g.states[i] = &aggState{agg: strings.ToLower(m.Aggregation)}
			}
			groups[key] = g
			order = append(order, key)
		}

		for i, m := range req.Metrics {
			g.states[i].observe(rec[m.Field])
		}
	}

	rows := make([][]interface{}, 0, len(groups))
	for _, key := range order {
		g := groups[key]
		row := make([]interface{}, 0, len(columns))
		row = append(row, g.dims...)
		for _, st := range g.states {
			row = append(row, st.value())
		}
		rows = append(rows, row)
	}

	sortRows(rows, columns, req)

	offset := queryspec.ClampOffset(req.Offset)
	limit := queryspec.ClampLimit(req.Limit)
	if offset >= len(rows) {
		// Keep an empty slice so the wire shape stays [] and not null.
		rows = [][]interface{}{}
	} else {
		rows = rows[offset:]
		if len(rows) > limit {
			rows = rows[:limit]
		}
	}

	// A page that fills the effective limit exactly is truncated: more
	// rows may exist beyond it. Mirrors the SQL path's LIMIT semantics.
	truncated := len(rows) == limit

	return &queryspec.QueryResult{Columns: columns, Rows: rows, Truncated: truncated}, nil
}

// observe folds one raw value into the aggregation state. Non-numeric
// values still count for count/count_distinct but are skipped by the
// numeric aggregations.
func (s *aggState) observe(v interface{}) {
	if v == nil {
		return
	}

	s.count++
	if s.agg == "count_distinct" {
		if s.distinct == nil {
			s.distinct = make(map[string]struct{})
		}
		s.distinct[fmt.Sprintf("%v", v)] = struct{}{}
		return
	}

	n, ok := toFloat(v)
	if !ok {
		return
	}
	s.sum += n
	if !s.seen || n < s.min {
		s.min = n
	}
	if !s.seen || n > s.max {
		s.max = n
	}
	s.seen = true
}

func (s *aggState) value() interface{} {
	switch s.agg {
	case "count":
		return s.count
	case "count_distinct":
		return int64(len(s.distinct))
	case "sum":
		return s.sum
	case "avg":
		if s.count == 0 {
			return float64(0)
		}
		return s.sum / float64(s.count)
	case "min":
		if !s.seen {
			return float64(0)
		}
		return s.min
	case "max":
		if !s.seen {
			return float64(0)
		}
		return s.max
	}
	return nil
}

func matchesFilters(rec Record, filters []queryspec.Filter) bool {
	for _, f := range filters {
		if !matches(rec[f.Field], f.Operator, f.Value) {
			return false
		}
	}
	return true
}

func matches(have interface{}, op string, want interface{}) bool {
	if hn, ok1 := toFloat(have); ok1 {
		if wn, ok2 := toFloat(want); ok2 {
			return compare(op, floatCompare(hn, wn))
		}
	}
	if ht, ok1 := toTime(have); ok1 {
		if wt, ok2 := toTime(want); ok2 {
			return compare(op, ht.Compare(wt))
		}
	}
	return compare(op, strings.Compare(fmt.Sprintf("%v", have), fmt.Sprintf("%v", want)))
}

func floatCompare(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func compare(op string, cmp int) bool {
	switch strings.ToLower(op) {
	case "eq":
		return cmp == 0
	case "neq":
		return cmp != 0
	case "gt":
		return cmp > 0
	case "gte":
		return cmp >= 0
	case "lt":
		return cmp < 0
	case "lte":
		return cmp <= 0
	}
	return false
}

func sortRows(rows [][]interface{}, columns []string, req *queryspec.QueryRequest) {
	type sortKey struct {
		idx  int
		desc bool
	}

	keys := make([]sortKey, 0, len(req.OrderBy))
	for _, s := range req.OrderBy {
		for i, col := range columns {
			if col == s.Field {
				keys = append(keys, sortKey{idx: i, desc: strings.EqualFold(s.Direction, "desc")})
				break
			}
		}
	}
	if len(keys) == 0 {
		// Mirror the SQL default of ORDER BY 1 ascending.
		keys = append(keys, sortKey{idx: 0})
	}

	sort.SliceStable(rows, func(a, b int) bool {
		for _, k := range keys {
			cmp := compareValues(rows[a][k.idx], rows[b][k.idx])
			if cmp == 0 {
				continue
			}
			if k.desc {
				return cmp > 0
			}
			return cmp < 0
		}
		return false
	})
}

func compareValues(a, b interface{}) int {
	if an, ok1 := toFloat(a); ok1 {
		if bn, ok2 := toFloat(b); ok2 {
			return floatCompare(an, bn)
		}
	}
	return strings.Compare(fmt.Sprintf("%v", a), fmt.Sprintf("%v", b))
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	}
	return 0, false
}

func toTime(v interface{}) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case string:
		for _, layout := range []string{time.RFC3339, "2006-01-02"} {
			if parsed, err := time.Parse(layout, t); err == nil {
				return parsed, true
			}
		}
	}
	return time.Time{}, false
}
