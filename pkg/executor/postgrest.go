package executor

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/querylens/querylens/pkg/aggregate"
	"github.com/querylens/querylens/pkg/connections"
	"github.com/querylens/querylens/pkg/datasets"
	"github.com/querylens/querylens/pkg/queryspec"
)

// restFetchLimit bounds how many raw rows a REST source may return for
// one in-process aggregation pass.
const restFetchLimit = 50000

// restBackend serves REST meta-API sources (PostgREST). Positional
// GROUP BY and arbitrary aggregation are not available on that query
// surface, so filters and projection are pushed to the API and
// grouping/aggregation run in-process over the fetched rows, using the
// same engine as mock mode.
type restBackend struct {
	client *http.Client
}

func newRESTBackend(client *http.Client) *restBackend {
	if client == nil {
		client = &http.Client{}
	}
	return &restBackend{client: client}
}

// restOperators maps filter operators onto PostgREST's syntax.
var restOperators = map[string]string{
	"eq":  "eq",
	"neq": "neq",
	"gt":  "gt",
	"gte": "gte",
	"lt":  "lt",
	"lte": "lte",
}

func (b *restBackend) Run(ctx context.Context, conn *connections.Connection, cipher *connections.CredentialCipher, req *queryspec.QueryRequest, ds *datasets.Dataset) (*queryspec.QueryResult, error) {
	endpoint, err := b.buildURL(conn, req, ds)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, queryspec.WrapError(queryspec.ErrCodeInternal, err, "building request for connection %s", conn.ID)
	}
	httpReq.Header.Set("Accept", "application/json")

	token, err := conn.Token(cipher)
	if err != nil {
		return nil, err
	}
	if token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := b.client.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			err = ctx.Err()
		}
		return nil, classify(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<20))
	if err != nil {
		return nil, classify(err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, queryspec.NewError(queryspec.ErrCodeAuthFailed, "meta-API rejected the stored token (status %d)", resp.StatusCode)
	case resp.StatusCode >= 300:
		return nil, queryspec.NewError(queryspec.ErrCodeQueryFailed, "meta-API returned status %d: %s", resp.StatusCode, gjson.GetBytes(body, "message").String())
	}

	parsed := gjson.ParseBytes(body)
	if !parsed.IsArray() {
		return nil, queryspec.NewError(queryspec.ErrCodeQueryFailed, "meta-API returned a non-array payload")
	}

	records := make([]aggregate.Record, 0, len(parsed.Array()))
	for _, elem := range parsed.Array() {
		rec := make(aggregate.Record)
		elem.ForEach(func(key, value gjson.Result) bool {
			rec[key.String()] = value.Value()
			return true
		})
		records = append(records, rec)
	}

	// Filters were applied by the API; run only grouping, aggregation
	// and ordering locally.
	local := *req
	local.Filters = nil
	return aggregate.Apply(records, &local)
}

// buildURL assembles the PostgREST query. The dataset's definition is
// the relation (table or view) name for REST sources; raw SQL cannot
// be shipped to a meta-API.
func (b *restBackend) buildURL(conn *connections.Connection, req *queryspec.QueryRequest, ds *datasets.Dataset) (string, error) {
	relation := strings.TrimSpace(ds.SQL)
	if !queryspec.ValidateIdentifier(relation) {
		return "", queryspec.NewError(queryspec.ErrCodeUnsupportedSource, "dataset %s does not name a REST relation", ds.ID)
	}

	fields := make([]string, 0, len(req.Dimensions)+len(req.Metrics))
	seen := make(map[string]struct{})
	addField := func(name string) {
		if _, ok := seen[name]; ok {
			return
		}
		seen[name] = struct{}{}
		fields = append(fields, name)
	}
	for _, d := range req.Dimensions {
		addField(d.Field)
	}
	for _, m := range req.Metrics {
		addField(m.Field)
	}

	params := url.Values{}
	params.Set("select", strings.Join(fields, ","))
	params.Set("limit", fmt.Sprintf("%d", restFetchLimit))
	for _, f := range req.Filters {
		op, ok := restOperators[strings.ToLower(f.Operator)]
		if !ok {
			return "", queryspec.NewError(queryspec.ErrCodeInvalidIdentifier, "unsupported filter operator %q", f.Operator)
		}
		params.Add(f.Field, fmt.Sprintf("%s.%v", op, f.Value))
	}

	return strings.TrimRight(conn.BaseURL, "/") + "/" + relation + "?" + params.Encode(), nil
}
