package queryspec

// FieldRole describes how a field is used by a widget. The role is
// advisory and re-assignable by the user; it never changes the
// underlying column.
type FieldRole string

const (
	RoleDimension     FieldRole = "dimension"
	RoleMetric        FieldRole = "metric"
	RoleTimeDimension FieldRole = "time_dimension"
)

// DataField identifies one column in a connected source, as resolved
// from schema introspection.
type DataField struct {
	ID          string    `json:"id"`
	SourceTable string    `json:"source_table"`
	Name        string    `json:"name"`
	DataType    string    `json:"data_type"`
	Role        FieldRole `json:"role"`
}

// DatasetRef points at a stored dataset definition and the connection
// that owns it.
type DatasetRef struct {
	ConnectionID string `json:"connection_id"`
	DatasetID    string `json:"dataset_id"`
}

// Dimension is a grouping column selection.
type Dimension struct {
	Field string `json:"field"`
	Alias string `json:"alias"`
}

// Metric is a field combined with an aggregation function.
type Metric struct {
	Field       string `json:"field"`
	Alias       string `json:"alias"`
	Aggregation string `json:"agg"`
}

// Filter constrains rows before grouping. Values are always passed to
// the backend as bound parameters, never interpolated.
type Filter struct {
	Field    string      `json:"field"`
	Operator string      `json:"operator"`
	Value    interface{} `json:"value"`
}

// Sort orders the grouped output.
type Sort struct {
	Field     string `json:"field"`
	Direction string `json:"direction"`
}

// QueryRequest is the engine's sole input contract. It is constructed
// fresh per render or filter change and never persisted.
type QueryRequest struct {
	OrgID      string      `json:"org_id"`
	DatasetRef DatasetRef  `json:"dataset_ref"`
	Dimensions []Dimension `json:"dims"`
	Metrics    []Metric    `json:"metrics"`
	Filters    []Filter    `json:"filters,omitempty"`
	OrderBy    []Sort      `json:"order,omitempty"`
	Limit      int         `json:"limit"`
	Offset     int         `json:"offset"`
}

// QueryResult is the normalized shape every backend is mapped into.
// Rows are positional; Columns gives the header order and
// len(Rows[i]) == len(Columns) for all i.
type QueryResult struct {
	Columns   []string        `json:"columns"`
	Rows      [][]interface{} `json:"rows"`
	Truncated bool            `json:"truncated"`
	ElapsedMs int64           `json:"elapsed_ms"`
}

// Response is the wire shape of the query endpoint. Errors are carried
// in-body with HTTP 200; clients branch on ErrorCode presence.
type Response struct {
	Columns   []string        `json:"columns,omitempty"`
	Rows      [][]interface{} `json:"rows,omitempty"`
	Truncated bool            `json:"truncated,omitempty"`
	ErrorCode string          `json:"error_code,omitempty"`
	Message   string          `json:"message,omitempty"`
	ElapsedMs int64           `json:"elapsed_ms"`
}

const (
	// DefaultLimit is what the translator asks for when a widget does
	// not specify its own limit.
	DefaultLimit = 1000

	// MaxLimit is a hard resource ceiling, not a suggestion.
	MaxLimit = 5000
)

// ClampLimit forces a requested limit into [1, MaxLimit]. The clamp is
// applied server-side regardless of client input.
func ClampLimit(requested int) int {
	if requested < 1 {
		return 1
	}
	if requested > MaxLimit {
		return MaxLimit
	}
	return requested
}

// ClampOffset forces a requested offset to be non-negative.
func ClampOffset(requested int) int {
	if requested < 0 {
		return 0
	}
	return requested
}
