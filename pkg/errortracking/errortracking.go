// Package errortracking reports errors and panics to an external
// tracker. The query engine never surfaces stack traces to clients, so
// this is the only place they go.
package errortracking

import "context"

// Severity is the level attached to a captured event.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// Provider is implemented by error tracking backends.
type Provider interface {
	// CaptureError reports an error with additional context.
	CaptureError(ctx context.Context, err error, severity Severity, extra map[string]interface{})

	// CaptureMessage reports a bare message.
	CaptureMessage(ctx context.Context, message string, severity Severity, extra map[string]interface{})

	// CapturePanic reports a recovered panic with its stack.
	CapturePanic(ctx context.Context, recovered interface{}, stackTrace []byte, extra map[string]interface{})

	// Flush blocks up to timeout seconds until queued events are sent.
	Flush(timeout int) bool

	// Close releases provider resources.
	Close() error
}

// NoOpProvider discards every event. Used when tracking is disabled.
type NoOpProvider struct{}

// NewNoOpProvider creates a provider that discards all events.
func NewNoOpProvider() *NoOpProvider { return &NoOpProvider{} }

func (n *NoOpProvider) CaptureError(ctx context.Context, err error, severity Severity, extra map[string]interface{}) {
}

func (n *NoOpProvider) CaptureMessage(ctx context.Context, message string, severity Severity, extra map[string]interface{}) {
}

func (n *NoOpProvider) CapturePanic(ctx context.Context, recovered interface{}, stackTrace []byte, extra map[string]interface{}) {
}

func (n *NoOpProvider) Flush(timeout int) bool { return true }

func (n *NoOpProvider) Close() error { return nil }
