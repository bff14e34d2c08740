// Package connections stores tenant-owned data source definitions and
// the credential crypto that protects them.
package connections

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/querylens/querylens/pkg/queryspec"
)

// Resolver looks up a connection within a tenant. A connection owned
// by a different org is reported as not found, never as forbidden, so
// probing cannot distinguish "exists elsewhere" from "does not exist".
type Resolver interface {
	Resolve(ctx context.Context, orgID, connectionID string) (*Connection, error)
}

// Store is the bun-backed connection registry.
type Store struct {
	db *bun.DB
}

// NewStore creates a Store over db.
func NewStore(db *bun.DB) *Store {
	return &Store{db: db}
}

// Init creates the backing table if missing.
func (s *Store) Init(ctx context.Context) error {
	_, err := s.db.NewCreateTable().Model((*Connection)(nil)).IfNotExists().Exec(ctx)
	return err
}

// Resolve implements Resolver.
func (s *Store) Resolve(ctx context.Context, orgID, connectionID string) (*Connection, error) {
	conn := new(Connection)
	err := s.db.NewSelect().Model(conn).
		Where("c.id = ?", connectionID).
		Where("c.org_id = ?", orgID).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, queryspec.NewError(queryspec.ErrCodeConnectionFailed, "connection %s not found", connectionID)
	}
	if err != nil {
		return nil, queryspec.WrapError(queryspec.ErrCodeInternal, err, "loading connection %s", connectionID)
	}
	return conn, nil
}

// Create stores a new connection. Plaintext credentials on the way in
// are encrypted before they touch the database.
func (s *Store) Create(ctx context.Context, cipher *CredentialCipher, conn *Connection, password, token string) error {
	if conn.ID == "" {
		conn.ID = uuid.NewString()
	}

	var err error
	if conn.EncryptedPassword, err = cipher.Encrypt(password); err != nil {
		return err
	}
	if conn.EncryptedToken, err = cipher.Encrypt(token); err != nil {
		return err
	}

	_, err = s.db.NewInsert().Model(conn).Exec(ctx)
	if err != nil {
		return queryspec.WrapError(queryspec.ErrCodeInternal, err, "storing connection %s", conn.ID)
	}
	return nil
}

// Delete removes a connection within its tenant.
func (s *Store) Delete(ctx context.Context, orgID, connectionID string) error {
	res, err := s.db.NewDelete().Model((*Connection)(nil)).
		Where("id = ?", connectionID).
		Where("org_id = ?", orgID).
		Exec(ctx)
	if err != nil {
		return queryspec.WrapError(queryspec.ErrCodeInternal, err, "deleting connection %s", connectionID)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return queryspec.NewError(queryspec.ErrCodeConnectionFailed, "connection %s not found", connectionID)
	}
	return nil
}

// List returns all connections for a tenant.
func (s *Store) List(ctx context.Context, orgID string) ([]*Connection, error) {
	var conns []*Connection
	err := s.db.NewSelect().Model(&conns).
		Where("c.org_id = ?", orgID).
		Order("c.created_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, queryspec.WrapError(queryspec.ErrCodeInternal, err, "listing connections for org %s", orgID)
	}
	return conns, nil
}
