package identity

import (
	"context"
	"crypto/rand"
	"database/sql"
	"errors"
	"fmt"
	"io"

	"github.com/google/uuid"

	"github.com/georgemunganga/printa-catalog/internal/modules/catalog"
)

// Querier is the subset of *sql.DB, *sql.Conn and *sql.Tx the resolver
// and the store need. Passing a *sql.Tx keeps resolution inside the
// caller's transaction.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Resolution is the outcome of resolving an external id. When Existing is
// false the id is pending: it only becomes durable once the caller's root
// write commits.
type Resolution struct {
	InternalID string
	Existing   bool
}

// Rebinder rewrites "?" placeholders for the target SQL dialect.
type Rebinder func(query string) string

// Resolver maps external ids onto stable internal ids.
type Resolver struct {
	random io.Reader
	rebind Rebinder
}

// NewResolver returns a resolver drawing new ids from random. A nil reader
// falls back to crypto/rand and a nil rebinder leaves queries untouched.
func NewResolver(random io.Reader, rebind Rebinder) *Resolver {
	if random == nil {
		random = rand.Reader
	}
	if rebind == nil {
		rebind = func(q string) string { return q }
	}
	return &Resolver{random: random, rebind: rebind}
}

// Resolve returns the internal id stored for externalID in kind's root
// table, or a fresh random UUID when none exists yet.
func (r *Resolver) Resolve(ctx context.Context, q Querier, kind catalog.Kind, externalID string) (Resolution, error) {
	existing, err := Lookup(ctx, q, r.rebind, kind, externalID)
	switch {
	case err == nil:
		return Resolution{InternalID: existing, Existing: true}, nil
	case !errors.Is(err, catalog.ErrNotFound):
		return Resolution{}, err
	}

	id, err := uuid.NewRandomFromReader(r.random)
	if err != nil {
		return Resolution{}, fmt.Errorf("generate internal id: %w", err)
	}
	return Resolution{InternalID: id.String(), Existing: false}, nil
}

// Lookup reads the internal id for externalID. It returns
// catalog.ErrNotFound when the document has never been stored.
func Lookup(ctx context.Context, q Querier, rebind Rebinder, kind catalog.Kind, externalID string) (string, error) {
	if rebind == nil {
		rebind = func(s string) string { return s }
	}
	var id string
	err := q.QueryRowContext(ctx,
		rebind(`SELECT id FROM `+kind.Table("")+` WHERE external_id = ?`),
		externalID).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("%w: %s %s", catalog.ErrNotFound, kind, externalID)
	}
	if err != nil {
		return "", fmt.Errorf("lookup %s id: %w", kind, err)
	}
	return id, nil
}
