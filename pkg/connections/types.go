package connections

import (
	"fmt"
	"net/url"
	"time"

	"github.com/uptrace/bun"

	"github.com/querylens/querylens/pkg/queryspec"
)

// Kind is the family of a connection. SQL kinds execute generated
// statements directly; REST kinds go through a meta-API that does its
// own grounding server-side.
type Kind string

const (
	KindPostgres  Kind = "postgres"
	KindMSSQL     Kind = "mssql"
	KindSQLite    Kind = "sqlite"
	KindPostgREST Kind = "postgrest"
)

// IsSQL reports whether the kind executes SQL directly.
func (k Kind) IsSQL() bool {
	switch k {
	case KindPostgres, KindMSSQL, KindSQLite:
		return true
	}
	return false
}

// Connection is a stored, tenant-owned data source. Password and token
// fields hold AES-GCM ciphertext; they are decrypted per request and
// the plaintext is never persisted or cached.
type Connection struct {
	bun.BaseModel `bun:"table:connections,alias:c"`

	ID    string `bun:"id,pk" json:"id"`
	OrgID string `bun:"org_id,notnull" json:"org_id"`
	Name  string `bun:"name,notnull" json:"name"`
	Kind  Kind   `bun:"kind,notnull" json:"kind"`

	Host     string `bun:"host" json:"host,omitempty"`
	Port     int    `bun:"port" json:"port,omitempty"`
	Database string `bun:"database" json:"database,omitempty"`
	Username string `bun:"username" json:"username,omitempty"`
	SSLMode  string `bun:"ssl_mode" json:"ssl_mode,omitempty"`

	// EncryptedPassword and EncryptedToken are AES-GCM ciphertext.
	EncryptedPassword string `bun:"encrypted_password" json:"-"`

	// BaseURL and EncryptedToken apply to REST kinds.
	BaseURL        string `bun:"base_url" json:"base_url,omitempty"`
	EncryptedToken string `bun:"encrypted_token" json:"-"`

	CreatedAt time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp" json:"updated_at"`
}

// DSN materializes the driver connection string, decrypting the stored
// password with the supplied cipher. Callers must not retain the
// result beyond the query that needs it.
func (c *Connection) DSN(cipher *CredentialCipher) (string, error) {
	switch c.Kind {
	case KindSQLite:
		return c.Database, nil
	case KindPostgres, KindMSSQL:
	default:
		return "", queryspec.NewError(queryspec.ErrCodeUnsupportedSource, "connection kind %q has no DSN", c.Kind)
	}

	password, err := cipher.Decrypt(c.EncryptedPassword)
	if err != nil {
		return "", queryspec.WrapError(queryspec.ErrCodeAuthFailed, err, "decrypting credentials for connection %s", c.ID)
	}

	if c.Kind == KindMSSQL {
		u := &url.URL{
			Scheme: "sqlserver",
			User:   url.UserPassword(c.Username, password),
			Host:   fmt.Sprintf("%s:%d", c.Host, c.Port),
		}
		q := url.Values{}
		q.Set("database", c.Database)
		u.RawQuery = q.Encode()
		return u.String(), nil
	}

	sslMode := c.SSLMode
	if sslMode == "" {
		sslMode = "prefer"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		url.QueryEscape(c.Username), url.QueryEscape(password),
		c.Host, c.Port, c.Database, sslMode), nil
}

// Token decrypts the bearer token for REST kinds.
func (c *Connection) Token(cipher *CredentialCipher) (string, error) {
	token, err := cipher.Decrypt(c.EncryptedToken)
	if err != nil {
		return "", queryspec.WrapError(queryspec.ErrCodeAuthFailed, err, "decrypting token for connection %s", c.ID)
	}
	return token, nil
}
