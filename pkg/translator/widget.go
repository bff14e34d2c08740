package translator

import (
	"fmt"
	"strings"

	"github.com/querylens/querylens/pkg/queryspec"
)

// WidgetType names a display widget. Each type implies a result shape:
// a scorecard is a single scalar, bar/line/pie are labeled series, and
// a table is a plain row list.
type WidgetType string

const (
	WidgetScorecard WidgetType = "scorecard"
	WidgetBar       WidgetType = "bar"
	WidgetLine      WidgetType = "line"
	WidgetPie       WidgetType = "pie"
	WidgetTable     WidgetType = "table"
)

// DateRange restricts a widget to records with Field between From and
// To, inclusive on both ends.
type DateRange struct {
	Field string `json:"field"`
	From  string `json:"from"`
	To    string `json:"to"`
}

// Widget is a dashboard tile's query configuration as authored in the
// UI. DatasetRef left empty means the widget runs against mock data.
type Widget struct {
	ID          string               `json:"id"`
	Type        WidgetType           `json:"type"`
	Title       string               `json:"title"`
	DatasetRef  queryspec.DatasetRef `json:"dataset_ref"`
	Dimensions  []string             `json:"dimensions"`
	Metrics     []string             `json:"metrics"`
	Aggregation string               `json:"aggregation"`
	DateRange   *DateRange           `json:"date_range,omitempty"`
	Limit       int                  `json:"limit"`
}

// MetricAlias is the display-column naming convention shared by every
// widget type: "<metric>_<aggregation>".
func MetricAlias(metric, agg string) string {
	return fmt.Sprintf("%s_%s", metric, strings.ToLower(agg))
}

// aggregation resolves the widget-declared verb, defaulting to sum.
func (w *Widget) aggregation() string {
	if w.Aggregation == "" {
		return "sum"
	}
	return strings.ToLower(w.Aggregation)
}

// needsDimension reports whether the widget type cannot render without
// a grouping column.
func (w *Widget) needsDimension() bool {
	switch w.Type {
	case WidgetBar, WidgetLine, WidgetPie:
		return true
	}
	return false
}

// buildRequest derives the one QueryRequest a widget issues. Scorecards
// aggregate a single metric with no grouping; series types group by
// their first dimension; tables carry every configured field. A nil
// return means the widget is underspecified and should render a
// placeholder instead of erroring.
func (w *Widget) buildRequest(orgID string) *queryspec.QueryRequest {
	if len(w.Metrics) == 0 {
		return nil
	}
	if w.needsDimension() && len(w.Dimensions) == 0 {
		return nil
	}

	agg := w.aggregation()
	req := &queryspec.QueryRequest{
		OrgID:      orgID,
		DatasetRef: w.DatasetRef,
		Limit:      w.Limit,
	}
	if req.Limit == 0 {
		req.Limit = queryspec.DefaultLimit
	}

	switch w.Type {
	case WidgetTable:
		for _, d := range w.Dimensions {
			req.Dimensions = append(req.Dimensions, queryspec.Dimension{Field: d})
		}
		for _, m := range w.Metrics {
			req.Metrics = append(req.Metrics, queryspec.Metric{
				Field: m, Aggregation: agg, Alias: MetricAlias(m, agg),
			})
		}
	case WidgetScorecard:
		req.Metrics = []queryspec.Metric{{
			Field: w.Metrics[0], Aggregation: agg, Alias: MetricAlias(w.Metrics[0], agg),
		}}
	default:
		req.Dimensions = []queryspec.Dimension{{Field: w.Dimensions[0]}}
		req.Metrics = []queryspec.Metric{{
			Field: w.Metrics[0], Aggregation: agg, Alias: MetricAlias(w.Metrics[0], agg),
		}}
	}

	if w.DateRange != nil {
		field := w.DateRange.Field
		if field == "" {
			field = "date"
		}
		if w.DateRange.From != "" {
			req.Filters = append(req.Filters, queryspec.Filter{Field: field, Operator: "gte", Value: w.DateRange.From})
		}
		if w.DateRange.To != "" {
			req.Filters = append(req.Filters, queryspec.Filter{Field: field, Operator: "lte", Value: w.DateRange.To})
		}
	}

	return req
}
