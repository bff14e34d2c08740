package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/querylens/querylens/pkg/queryspec"
)

// ResultTTL is how long query results stay fresh. Within the TTL a hit
// is served without touching the executor; expiry triggers a fresh
// execution that overwrites the stale entry.
const ResultTTL = 300 * time.Second

// resultCacheKey is the canonicalized shape of a QueryRequest used for
// key derivation. Dimensions and metrics are sorted before hashing so
// that two structurally equal requests authored in different UI
// interaction order collapse to one entry. Connection and dataset
// identity are part of the key, which scopes entries per tenant.
type resultCacheKey struct {
	OrgID        string                `json:"org_id"`
	ConnectionID string                `json:"connection_id"`
	DatasetID    string                `json:"dataset_id"`
	Dimensions   []queryspec.Dimension `json:"dims"`
	Metrics      []queryspec.Metric    `json:"metrics"`
	Filters      []queryspec.Filter    `json:"filters,omitempty"`
	OrderBy      []queryspec.Sort      `json:"order,omitempty"`
	Limit        int                   `json:"limit"`
	Offset       int                   `json:"offset"`
}

// BuildResultKey derives the cache key for a query request.
func BuildResultKey(req *queryspec.QueryRequest) string {
	key := resultCacheKey{
		OrgID:        req.OrgID,
		ConnectionID: req.DatasetRef.ConnectionID,
		DatasetID:    req.DatasetRef.DatasetID,
		Dimensions:   append([]queryspec.Dimension(nil), req.Dimensions...),
		Metrics:      append([]queryspec.Metric(nil), req.Metrics...),
		Filters:      append([]queryspec.Filter(nil), req.Filters...),
		OrderBy:      append([]queryspec.Sort(nil), req.OrderBy...),
		Limit:        queryspec.ClampLimit(req.Limit),
		Offset:       queryspec.ClampOffset(req.Offset),
	}

	sort.Slice(key.Dimensions, func(i, j int) bool {
		return key.Dimensions[i].Field < key.Dimensions[j].Field
	})
	sort.Slice(key.Metrics, func(i, j int) bool {
		a, b := key.Metrics[i], key.Metrics[j]
		if a.Field != b.Field {
			return a.Field < b.Field
		}
		return strings.ToLower(a.Aggregation) < strings.ToLower(b.Aggregation)
	})
	sort.Slice(key.Filters, func(i, j int) bool {
		a, b := key.Filters[i], key.Filters[j]
		if a.Field != b.Field {
			return a.Field < b.Field
		}
		return a.Operator < b.Operator
	})

	for i := range key.Metrics {
		key.Metrics[i].Aggregation = strings.ToLower(key.Metrics[i].Aggregation)
	}

	data, err := json.Marshal(key)
	if err != nil {
		// Fallback to best-effort concatenation if JSON fails
		data = []byte(fmt.Sprintf("%+v", key))
	}

	sum := sha256.Sum256(data)
	return "query_result:" + hex.EncodeToString(sum[:])
}

// ResultTags returns the invalidation tags a cached result carries so
// dataset or connection changes can drop every dependent entry.
func ResultTags(req *queryspec.QueryRequest) []string {
	return []string{
		"dataset:" + req.DatasetRef.DatasetID,
		"connection:" + req.DatasetRef.ConnectionID,
		"org:" + req.OrgID,
	}
}

// GetResult looks up a cached QueryResult for the request.
func (c *Cache) GetResult(ctx context.Context, req *queryspec.QueryRequest) (*queryspec.QueryResult, bool) {
	var result queryspec.QueryResult
	if err := c.Get(ctx, BuildResultKey(req), &result); err != nil {
		return nil, false
	}
	return &result, true
}

// StoreResult caches a QueryResult under the request's canonical key.
func (c *Cache) StoreResult(ctx context.Context, req *queryspec.QueryRequest, result *queryspec.QueryResult) error {
	return c.SetWithTags(ctx, BuildResultKey(req), result, ResultTTL, ResultTags(req))
}
