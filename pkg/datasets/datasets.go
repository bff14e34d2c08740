// Package datasets stores named SQL dataset definitions. A dataset is
// the only place raw SQL enters the system: it is authored by a
// trusted editor, saved against a connection, and later wrapped as a
// derived table by the generator.
package datasets

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/querylens/querylens/pkg/queryspec"
)

// Dataset is one stored definition. SQL is the full SELECT text; Fields
// is the introspected column list widgets pick from.
type Dataset struct {
	bun.BaseModel `bun:"table:datasets,alias:d"`

	ID           string `bun:"id,pk" json:"id"`
	OrgID        string `bun:"org_id,notnull" json:"org_id"`
	ConnectionID string `bun:"connection_id,notnull" json:"connection_id"`
	Name         string `bun:"name,notnull" json:"name"`
	SQL          string `bun:"sql,notnull" json:"sql"`

	Fields []queryspec.DataField `bun:"fields,type:jsonb" json:"fields,omitempty"`

	CreatedAt time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp" json:"updated_at"`
}

// Store resolves dataset definitions within a tenant. A dataset owned
// by another org is indistinguishable from a missing one.
type Store interface {
	Get(ctx context.Context, orgID, datasetID string) (*Dataset, error)
}

// SQLStore is the bun-backed implementation.
type SQLStore struct {
	db *bun.DB
}

// NewSQLStore creates a SQLStore over db.
func NewSQLStore(db *bun.DB) *SQLStore {
	return &SQLStore{db: db}
}

// Init creates the backing table if missing.
func (s *SQLStore) Init(ctx context.Context) error {
	_, err := s.db.NewCreateTable().Model((*Dataset)(nil)).IfNotExists().Exec(ctx)
	return err
}

// Get implements Store.
func (s *SQLStore) Get(ctx context.Context, orgID, datasetID string) (*Dataset, error) {
	ds := new(Dataset)
	err := s.db.NewSelect().Model(ds).
		Where("d.id = ?", datasetID).
		Where("d.org_id = ?", orgID).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, queryspec.NewError(queryspec.ErrCodeDatasetNotFound, "dataset %s not found", datasetID)
	}
	if err != nil {
		return nil, queryspec.WrapError(queryspec.ErrCodeInternal, err, "loading dataset %s", datasetID)
	}
	return ds, nil
}

// Save inserts or updates a dataset within its tenant.
func (s *SQLStore) Save(ctx context.Context, ds *Dataset) error {
	if ds.ID == "" {
		ds.ID = uuid.NewString()
	}
	ds.UpdatedAt = time.Now()

	_, err := s.db.NewInsert().Model(ds).
		On("CONFLICT (id) DO UPDATE").
		Set("name = EXCLUDED.name").
		Set("sql = EXCLUDED.sql").
		Set("fields = EXCLUDED.fields").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return queryspec.WrapError(queryspec.ErrCodeInternal, err, "saving dataset %s", ds.ID)
	}
	return nil
}

// Delete removes a dataset within its tenant.
func (s *SQLStore) Delete(ctx context.Context, orgID, datasetID string) error {
	res, err := s.db.NewDelete().Model((*Dataset)(nil)).
		Where("id = ?", datasetID).
		Where("org_id = ?", orgID).
		Exec(ctx)
	if err != nil {
		return queryspec.WrapError(queryspec.ErrCodeInternal, err, "deleting dataset %s", datasetID)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return queryspec.NewError(queryspec.ErrCodeDatasetNotFound, "dataset %s not found", datasetID)
	}
	return nil
}

// List returns a tenant's datasets for a connection.
func (s *SQLStore) List(ctx context.Context, orgID, connectionID string) ([]*Dataset, error) {
	var out []*Dataset
	q := s.db.NewSelect().Model(&out).Where("d.org_id = ?", orgID)
	if connectionID != "" {
		q = q.Where("d.connection_id = ?", connectionID)
	}
	if err := q.Order("d.created_at ASC").Scan(ctx); err != nil {
		return nil, queryspec.WrapError(queryspec.ErrCodeInternal, err, "listing datasets for org %s", orgID)
	}
	return out, nil
}
