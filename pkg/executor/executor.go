// Package executor runs validated query requests against their
// backend and normalizes every backend into one result shape.
package executor

import (
	"context"
	"net/http"
	"time"

	"github.com/querylens/querylens/pkg/connections"
	"github.com/querylens/querylens/pkg/datasets"
	"github.com/querylens/querylens/pkg/logger"
	"github.com/querylens/querylens/pkg/queryspec"
	"github.com/querylens/querylens/pkg/sqlgen"
	"github.com/querylens/querylens/pkg/tracing"
)

// DefaultTimeout is the wall-clock ceiling per query. A backend that
// has not returned by then is abandoned and reported as TIMEOUT even
// if the underlying call eventually completes.
const DefaultTimeout = 15 * time.Second

// Runner is the execution contract callers depend on. Concrete backend
// types never leak past this interface.
type Runner interface {
	Execute(ctx context.Context, req *queryspec.QueryRequest) (*queryspec.QueryResult, error)
}

// Options configures an Executor.
type Options struct {
	Timeout    time.Duration
	MaxRows    int
	HTTPClient *http.Client
}

// Executor resolves the connection and dataset for a request,
// dispatches to the backend family for the connection kind, and
// enforces the timeout and row cap.
type Executor struct {
	resolver connections.Resolver
	store    datasets.Store
	cipher   *connections.CredentialCipher

	timeout time.Duration
	maxRows int

	direct *directBackend
	rest   *restBackend
}

// New creates an Executor.
func New(resolver connections.Resolver, store datasets.Store, cipher *connections.CredentialCipher, opts Options) *Executor {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.MaxRows <= 0 {
		opts.MaxRows = queryspec.MaxLimit
	}

	return &Executor{
		resolver: resolver,
		store:    store,
		cipher:   cipher,
		timeout:  opts.Timeout,
		maxRows:  opts.MaxRows,
		direct:   newDirectBackend(opts.MaxRows),
		rest:     newRESTBackend(opts.HTTPClient),
	}
}

// Execute implements Runner.
func (e *Executor) Execute(ctx context.Context, req *queryspec.QueryRequest) (*queryspec.QueryResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	conn, err := e.resolver.Resolve(ctx, req.OrgID, req.DatasetRef.ConnectionID)
	if err != nil {
		return nil, err
	}

	ds, err := e.store.Get(ctx, req.OrgID, req.DatasetRef.DatasetID)
	if err != nil {
		return nil, err
	}
	if ds.ConnectionID != conn.ID {
		return nil, queryspec.NewError(queryspec.ErrCodeDatasetNotFound, "dataset %s not found", ds.ID)
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	ctx, span := tracing.StartQuerySpan(ctx, req.OrgID, conn.ID, ds.ID)
	defer span.End()

	start := time.Now()

	var result *queryspec.QueryResult
	if conn.Kind.IsSQL() {
		stmt, genErr := sqlgen.NewGenerator(dialectFor(conn.Kind)).Generate(req, ds.SQL)
		if genErr != nil {
			return nil, genErr
		}
		result, err = e.direct.Run(ctx, conn, e.cipher, stmt)
	} else {
		result, err = e.rest.Run(ctx, conn, e.cipher, req, ds)
	}
	if err != nil {
		err = classify(err)
		tracing.RecordError(ctx, err)
		logger.Error("query on connection %s dataset %s failed: %v", conn.ID, ds.ID, err)
		return nil, err
	}

	result.ElapsedMs = time.Since(start).Milliseconds()
	logger.Debug("query on connection %s dataset %s returned %d rows in %dms",
		conn.ID, ds.ID, len(result.Rows), result.ElapsedMs)
	return result, nil
}
