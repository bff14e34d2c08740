package queryspec

import (
	"regexp"
	"strings"
)

// identPattern is the whole identifier allow-list: letter/underscore
// start, alphanumeric/underscore rest. No quoting characters, no dots,
// no whitespace. Identifiers cannot be parameterized in standard SQL,
// so this check is the system's only injection defense for column and
// alias names.
var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// aggregations is the closed set of supported aggregation verbs.
var aggregations = map[string]struct{}{
	"sum":            {},
	"avg":            {},
	"min":            {},
	"max":            {},
	"count":          {},
	"count_distinct": {},
}

// filterOperators maps the filter operators the engine accepts to
// their SQL form. Anything outside this table is rejected before
// generation.
var filterOperators = map[string]string{
	"eq":  "=",
	"neq": "<>",
	"gt":  ">",
	"gte": ">=",
	"lt":  "<",
	"lte": "<=",
}

// ValidateIdentifier reports whether name is safe to splice into a
// generated statement as a quoted identifier.
func ValidateIdentifier(name string) bool {
	return identPattern.MatchString(name)
}

// ValidateAggregation reports whether agg is one of the six supported
// aggregation verbs, case-insensitively.
func ValidateAggregation(agg string) bool {
	_, ok := aggregations[strings.ToLower(agg)]
	return ok
}

// ValidateOperator reports whether op is a supported filter operator.
func ValidateOperator(op string) bool {
	_, ok := filterOperators[strings.ToLower(op)]
	return ok
}

// OperatorSQL returns the SQL comparison for a validated operator.
func OperatorSQL(op string) string {
	return filterOperators[strings.ToLower(op)]
}

// Validate checks every field, alias and aggregation in the request
// against the allow-lists. It runs before any SQL is assembled; a
// single failure aborts the whole request with no partial execution.
func (r *QueryRequest) Validate() error {
	if r.OrgID == "" || r.DatasetRef.DatasetID == "" {
		return NewError(ErrCodeMissingParams, "org_id and dataset_id are required")
	}

	if len(r.Dimensions) == 0 && len(r.Metrics) == 0 {
		return NewError(ErrCodeNoFields, "request needs at least one dimension or metric")
	}

	for _, d := range r.Dimensions {
		if !ValidateIdentifier(d.Field) {
			return NewError(ErrCodeInvalidIdentifier, "invalid dimension field %q", d.Field)
		}
		if d.Alias != "" && !ValidateIdentifier(d.Alias) {
			return NewError(ErrCodeInvalidIdentifier, "invalid dimension alias %q", d.Alias)
		}
	}

	for _, m := range r.Metrics {
		if !ValidateIdentifier(m.Field) {
			return NewError(ErrCodeInvalidIdentifier, "invalid metric field %q", m.Field)
		}
		if m.Alias != "" && !ValidateIdentifier(m.Alias) {
			return NewError(ErrCodeInvalidIdentifier, "invalid metric alias %q", m.Alias)
		}
		if !ValidateAggregation(m.Aggregation) {
			return NewError(ErrCodeInvalidAggregation, "unsupported aggregation %q", m.Aggregation)
		}
	}

	for _, f := range r.Filters {
		if !ValidateIdentifier(f.Field) {
			return NewError(ErrCodeInvalidIdentifier, "invalid filter field %q", f.Field)
		}
		if !ValidateOperator(f.Operator) {
			return NewError(ErrCodeInvalidIdentifier, "unsupported filter operator %q", f.Operator)
		}
	}

	for _, s := range r.OrderBy {
		if !ValidateIdentifier(s.Field) {
			return NewError(ErrCodeInvalidIdentifier, "invalid order field %q", s.Field)
		}
	}

	return nil
}

// SelectAlias resolves the output column name for a dimension.
func (d Dimension) SelectAlias() string {
	if d.Alias != "" {
		return d.Alias
	}
	return d.Field
}

// SelectAlias resolves the output column name for a metric.
func (m Metric) SelectAlias() string {
	if m.Alias != "" {
		return m.Alias
	}
	return m.Field
}
