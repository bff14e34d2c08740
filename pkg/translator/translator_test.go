package translator

import (
	"context"
	"runtime"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/querylens/querylens/pkg/aggregate"
	"github.com/querylens/querylens/pkg/cache"
	"github.com/querylens/querylens/pkg/queryspec"
)

// recordRunner simulates a real backend by running the in-process
// aggregation engine over a fixed record set. It counts executions so
// tests can prove when the cache short-circuited it.
type recordRunner struct {
	mu      sync.Mutex
	records []aggregate.Record
	calls   int
	block   chan struct{}
}

func (r *recordRunner) Execute(_ context.Context, req *queryspec.QueryRequest) (*queryspec.QueryResult, error) {
	r.mu.Lock()
	r.calls++
	block := r.block
	r.block = nil
	r.mu.Unlock()

	if block != nil {
		<-block
	}
	return aggregate.Apply(r.records, req)
}

func (r *recordRunner) callCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

func barWidget() *Widget {
	return &Widget{
		ID:          "w1",
		Type:        WidgetBar,
		Title:       "Vendas por país",
		DatasetRef:  queryspec.DatasetRef{ConnectionID: "conn1", DatasetID: "ds1"},
		Dimensions:  []string{"pais"},
		Metrics:     []string{"vendas"},
		Aggregation: "sum",
	}
}

func TestRenderMockAndRealParity(t *testing.T) {
	ctx := context.Background()

	// Real path: executor backed by the demo records.
	real := New(&recordRunner{records: DemoRecords()}, nil, nil)
	realData, err := real.Render(ctx, "org1", barWidget())
	require.NoError(t, err)

	// Mock path: same widget with no connection bound.
	w := barWidget()
	w.DatasetRef = queryspec.DatasetRef{}
	mock := New(nil, nil, nil)
	mockData, err := mock.Render(ctx, "org1", w)
	require.NoError(t, err)

	assert.Equal(t, realData.Series, mockData.Series)
	assert.Equal(t, []string{"Alemanha", "Brasil", "EUA"}, mockData.Series.Labels)
	assert.Equal(t, []float64{2900, 2000, 4000}, mockData.Series.Values)
}

func TestRenderScorecard(t *testing.T) {
	tr := New(&recordRunner{records: DemoRecords()}, nil, nil)

	w := barWidget()
	w.Type = WidgetScorecard
	w.Title = "Total de vendas"
	w.Dimensions = nil

	data, err := tr.Render(context.Background(), "org1", w)
	require.NoError(t, err)
	require.NotNil(t, data.Scorecard)
	assert.Equal(t, "Total de vendas", data.Scorecard.Label)
	assert.Equal(t, float64(8900), data.Scorecard.Value)
}

func TestRenderTableUsesAliasConvention(t *testing.T) {
	tr := New(&recordRunner{records: DemoRecords()}, nil, nil)

	w := barWidget()
	w.Type = WidgetTable

	data, err := tr.Render(context.Background(), "org1", w)
	require.NoError(t, err)
	require.NotNil(t, data.Table)
	assert.Equal(t, []string{"pais", "vendas_sum"}, data.Table.Columns)
	assert.Len(t, data.Table.Rows, 3)
}

func TestRenderPlaceholderStates(t *testing.T) {
	tr := New(nil, nil, nil)
	ctx := context.Background()

	noMetric := barWidget()
	noMetric.Metrics = nil
	data, err := tr.Render(ctx, "org1", noMetric)
	require.NoError(t, err)
	assert.True(t, data.Placeholder)
	assert.Equal(t, PlaceholderLabel, data.Scorecard.Label)
	assert.Zero(t, data.Scorecard.Value)

	noDimension := barWidget()
	noDimension.Dimensions = nil
	data, err = tr.Render(ctx, "org1", noDimension)
	require.NoError(t, err)
	assert.True(t, data.Placeholder)
}

func TestRenderDateRangeFilters(t *testing.T) {
	w := barWidget()
	w.DatasetRef = queryspec.DatasetRef{}
	w.DateRange = &DateRange{From: "2024-01-01", To: "2024-01-31"}

	tr := New(nil, nil, nil)
	data, err := tr.Render(context.Background(), "org1", w)
	require.NoError(t, err)
	assert.Equal(t, []string{"Brasil", "EUA"}, data.Series.Labels)
	assert.Equal(t, []float64{1200, 4000}, data.Series.Values)
}

func TestRenderDefaultAggregationIsSum(t *testing.T) {
	w := barWidget()
	w.DatasetRef = queryspec.DatasetRef{}
	w.Aggregation = ""

	tr := New(nil, nil, nil)
	data, err := tr.Render(context.Background(), "org1", w)
	require.NoError(t, err)
	assert.Equal(t, []float64{2900, 2000, 4000}, data.Series.Values)
}

func TestRenderCacheShortCircuitsExecutor(t *testing.T) {
	runner := &recordRunner{records: DemoRecords()}
	resultCache := cache.NewCache(cache.NewMemoryProvider(nil))
	t.Cleanup(func() { _ = resultCache.Close() })

	tr := New(runner, resultCache, nil)
	ctx := context.Background()

	first, err := tr.Render(ctx, "org1", barWidget())
	require.NoError(t, err)
	second, err := tr.Render(ctx, "org1", barWidget())
	require.NoError(t, err)

	assert.Equal(t, first.Series, second.Series)
	assert.Equal(t, 1, runner.callCount())
}

func TestRenderStaleGenerationIsFlagged(t *testing.T) {
	runner := &recordRunner{records: DemoRecords(), block: make(chan struct{})}
	tr := New(runner, nil, nil)
	ctx := context.Background()

	release := runner.block
	firstDone := make(chan *WidgetData, 1)
	go func() {
		data, err := tr.Render(ctx, "org1", barWidget())
		assert.NoError(t, err)
		firstDone <- data
	}()

	// Wait for the first render to reach the backend, then issue a
	// second render of the same widget.
	for runner.callCount() == 0 {
		runtime.Gosched()
	}
	second, err := tr.Render(ctx, "org1", barWidget())
	require.NoError(t, err)
	assert.False(t, second.Stale)

	close(release)
	first := <-firstDone
	assert.True(t, first.Stale)
}
