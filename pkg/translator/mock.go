package translator

import "github.com/querylens/querylens/pkg/aggregate"

// MockSource serves widgets that have no connection bound. It runs the
// same grouping and aggregation engine as the REST path, so a widget
// behaves identically in demo and real mode modulo the data itself.
type MockSource struct {
	records []aggregate.Record
}

// NewMockSource creates a mock source over records. A nil slice uses
// the built-in demo set.
func NewMockSource(records []aggregate.Record) *MockSource {
	if records == nil {
		records = DemoRecords()
	}
	return &MockSource{records: records}
}

// DemoRecords is the built-in demo sales data.
func DemoRecords() []aggregate.Record {
	return []aggregate.Record{
		{"pais": "Brasil", "vendas": 1200.0, "cliente": "acme", "date": "2024-01-10"},
		{"pais": "Brasil", "vendas": 800.0, "cliente": "globex", "date": "2024-02-01"},
		{"pais": "EUA", "vendas": 4000.0, "cliente": "acme", "date": "2024-01-20"},
		{"pais": "Alemanha", "vendas": 2900.0, "cliente": "initech", "date": "2024-03-05"},
	}
}

// Records exposes the backing record set.
func (m *MockSource) Records() []aggregate.Record {
	return m.records
}
