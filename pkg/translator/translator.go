// Package translator is the only component that understands widget
// semantics. It turns a widget configuration into one query request,
// runs it through the cache and executor (or the mock source), and
// reshapes the normalized result into the widget's display shape.
package translator

import (
	"context"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/querylens/querylens/pkg/aggregate"
	"github.com/querylens/querylens/pkg/cache"
	"github.com/querylens/querylens/pkg/executor"
	"github.com/querylens/querylens/pkg/logger"
	"github.com/querylens/querylens/pkg/queryspec"
)

// PlaceholderLabel is shown when a widget is missing its metric or
// dimension selection.
const PlaceholderLabel = "select a metric"

// ScorecardData is a single labeled scalar.
type ScorecardData struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
}

// SeriesData is a labeled series for bar, line and pie widgets.
type SeriesData struct {
	Labels []string  `json:"labels"`
	Values []float64 `json:"values"`
}

// TableData is a plain row list.
type TableData struct {
	Columns []string        `json:"columns"`
	Rows    [][]interface{} `json:"rows"`
}

// WidgetData is the rendered output for one widget. Exactly one of
// Scorecard, Series or Table is set unless Placeholder is true. Stale
// marks a result that was superseded by a newer render of the same
// widget while this one was in flight; callers must discard it.
type WidgetData struct {
	Type        WidgetType     `json:"type"`
	Scorecard   *ScorecardData `json:"scorecard,omitempty"`
	Series      *SeriesData    `json:"series,omitempty"`
	Table       *TableData     `json:"table,omitempty"`
	Placeholder bool           `json:"placeholder,omitempty"`
	Stale       bool           `json:"stale,omitempty"`
	Generation  int64          `json:"generation"`
	Truncated   bool           `json:"truncated,omitempty"`
	ElapsedMs   int64          `json:"elapsed_ms"`
}

// Translator renders widgets. Generations are tracked per widget so a
// slow earlier request can never overwrite the result of a later one.
type Translator struct {
	runner executor.Runner
	cache  *cache.Cache
	mock   *MockSource

	mu   sync.Mutex
	gens map[string]*atomic.Int64
}

// New creates a Translator. cache may be nil to bypass result caching;
// mock may be nil to use the built-in demo data.
func New(runner executor.Runner, resultCache *cache.Cache, mock *MockSource) *Translator {
	if mock == nil {
		mock = NewMockSource(nil)
	}
	return &Translator{
		runner: runner,
		cache:  resultCache,
		mock:   mock,
		gens:   make(map[string]*atomic.Int64),
	}
}

// Render executes one widget and reshapes the result. Widgets without
// a bound connection run against the mock source with identical
// aggregation semantics.
func (t *Translator) Render(ctx context.Context, orgID string, w *Widget) (*WidgetData, error) {
	gen := t.nextGeneration(w.ID)

	req := w.buildRequest(orgID)
	if req == nil {
		return &WidgetData{Type: w.Type, Placeholder: true, Generation: gen,
			Scorecard: &ScorecardData{Label: PlaceholderLabel, Value: 0}}, nil
	}

	var (
		result *queryspec.QueryResult
		err    error
	)
	if t.isMock(w) {
		result, err = aggregate.Apply(t.mock.Records(), t.mockRequest(req))
	} else {
		result, err = t.execute(ctx, req)
	}
	if err != nil {
		return nil, err
	}

	data, err := t.reshape(w, result)
	if err != nil {
		return nil, err
	}
	data.Generation = gen
	data.Truncated = result.Truncated
	data.ElapsedMs = result.ElapsedMs

	if t.currentGeneration(w.ID) != gen {
		logger.Debug("widget %s generation %d superseded, dropping result", w.ID, gen)
		data.Stale = true
	}
	return data, nil
}

// isMock reports whether the widget runs against the mock source.
func (t *Translator) isMock(w *Widget) bool {
	return t.runner == nil || w.DatasetRef.ConnectionID == ""
}

// mockRequest relaxes the identity requirements for the mock path,
// which has no real org or dataset behind it.
func (t *Translator) mockRequest(req *queryspec.QueryRequest) *queryspec.QueryRequest {
	mocked := *req
	if mocked.OrgID == "" {
		mocked.OrgID = "demo"
	}
	if mocked.DatasetRef.ConnectionID == "" {
		mocked.DatasetRef.ConnectionID = "demo"
	}
	if mocked.DatasetRef.DatasetID == "" {
		mocked.DatasetRef.DatasetID = "demo"
	}
	return &mocked
}

// execute runs through the cache in front of the executor. A hit
// within TTL never touches the executor.
func (t *Translator) execute(ctx context.Context, req *queryspec.QueryRequest) (*queryspec.QueryResult, error) {
	if t.cache != nil {
		if cached, ok := t.cache.GetResult(ctx, req); ok {
			return cached, nil
		}
	}

	result, err := t.runner.Execute(ctx, req)
	if err != nil {
		return nil, err
	}

	if t.cache != nil {
		if storeErr := t.cache.StoreResult(ctx, req, result); storeErr != nil {
			logger.Warn("storing query result in cache: %v", storeErr)
		}
	}
	return result, nil
}

// reshape maps the normalized result onto the widget's display shape.
func (t *Translator) reshape(w *Widget, result *queryspec.QueryResult) (*WidgetData, error) {
	data := &WidgetData{Type: w.Type}

	switch w.Type {
	case WidgetScorecard:
		label := w.Title
		if label == "" && len(result.Columns) > 0 {
			label = result.Columns[len(result.Columns)-1]
		}
		value := 0.0
		if len(result.Rows) > 0 {
			value = toFloat(result.Rows[0][len(result.Columns)-1])
		}
		data.Scorecard = &ScorecardData{Label: label, Value: value}

	case WidgetBar, WidgetLine, WidgetPie:
		series := &SeriesData{
			Labels: make([]string, 0, len(result.Rows)),
			Values: make([]float64, 0, len(result.Rows)),
		}
		for _, row := range result.Rows {
			series.Labels = append(series.Labels, toString(row[0]))
			series.Values = append(series.Values, toFloat(row[len(row)-1]))
		}
		data.Series = series

	case WidgetTable:
		data.Table = &TableData{Columns: result.Columns, Rows: result.Rows}

	default:
		return nil, queryspec.NewError(queryspec.ErrCodeInternal, "unknown widget type %q", w.Type)
	}

	return data, nil
}

// nextGeneration issues a new monotonic generation for a widget.
func (t *Translator) nextGeneration(widgetID string) int64 {
	return t.generation(widgetID).Add(1)
}

// currentGeneration reads the latest issued generation for a widget.
func (t *Translator) currentGeneration(widgetID string) int64 {
	return t.generation(widgetID).Load()
}

func (t *Translator) generation(widgetID string) *atomic.Int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	g, ok := t.gens[widgetID]
	if !ok {
		g = new(atomic.Int64)
		t.gens[widgetID] = g
	}
	return g
}

func toFloat(v interface{}) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int32:
		return float64(n)
	case int64:
		return float64(n)
	case string:
		f, err := strconv.ParseFloat(n, 64)
		if err == nil {
			return f
		}
	}
	return 0
}

func toString(v interface{}) string {
	if s, ok := v.(string); ok {
		return s
	}
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(toFloat(v), 'f', -1, 64)
}
