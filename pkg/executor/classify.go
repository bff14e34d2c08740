package executor

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"net"
	"strings"
	"syscall"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/querylens/querylens/pkg/queryspec"
)

// classify maps a backend failure onto the error taxonomy. Each
// connectivity failure gets its own code so the UI can distinguish
// "check credentials" from "check network". Anything already
// classified passes through untouched.
func classify(err error) error {
	if err == nil {
		return nil
	}

	var engineErr *queryspec.EngineError
	if errors.As(err, &engineErr) {
		return err
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return queryspec.WrapError(queryspec.ErrCodeTimeout, err, "query exceeded the execution deadline")
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return queryspec.WrapError(queryspec.ErrCodeDNSError, err, "host lookup failed for %s", dnsErr.Name)
	}

	var recordErr tls.RecordHeaderError
	var certErr x509.CertificateInvalidError
	var unknownAuthErr x509.UnknownAuthorityError
	var hostErr x509.HostnameError
	if errors.As(err, &recordErr) || errors.As(err, &certErr) ||
		errors.As(err, &unknownAuthErr) || errors.As(err, &hostErr) ||
		strings.Contains(err.Error(), "tls:") {
		return queryspec.WrapError(queryspec.ErrCodeTLSHandshake, err, "TLS negotiation with the backend failed")
	}

	if isAuthFailure(err) {
		return queryspec.WrapError(queryspec.ErrCodeAuthFailed, err, "backend rejected the stored credentials")
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) || errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ECONNRESET) {
		return queryspec.WrapError(queryspec.ErrCodeConnectionFailed, err, "could not reach the backend")
	}

	return queryspec.WrapError(queryspec.ErrCodeQueryFailed, err, "backend reported an execution error")
}

// isAuthFailure detects credential rejection across the supported
// drivers. Postgres signals invalid_authorization_specification (28000)
// or invalid_password (28P01); SQL Server and generic sources are
// matched on message.
func isAuthFailure(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "28000" || pgErr.Code == "28P01"
	}

	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "login failed") ||
		strings.Contains(msg, "password authentication failed") ||
		strings.Contains(msg, "authentication failed")
}
