// Package store maps catalog aggregates onto a normalised relational
// schema. One Repository serves one document kind; templates and products
// share the implementation and differ only in their table family.
package store

import (
	"context"
	"crypto/rand"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/georgemunganga/printa-catalog/internal/modules/catalog"
	"github.com/georgemunganga/printa-catalog/internal/modules/identity"
	"github.com/georgemunganga/printa-catalog/internal/modules/ledger"
	"github.com/georgemunganga/printa-catalog/internal/platform/database"
	"github.com/georgemunganga/printa-catalog/internal/platform/observability"
)

// Execer is satisfied by *sql.DB, *sql.Conn and *sql.Tx.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

var _ catalog.Repository = (*Repository)(nil)

// Repository is the relational mapper for one document kind.
type Repository struct {
	db       *database.DB
	kind     catalog.Kind
	random   io.Reader
	resolver *identity.Resolver
	logger   *zap.Logger
	metrics  *observability.Metrics
	now      func() time.Time
	// initial is seeded into the ledger by Upsert for documents that have
	// no status yet. Empty leaves the ledger alone.
	initial catalog.Status
}

// Option configures a Repository.
type Option func(*Repository)

// WithLogger sets the logger; the default discards everything.
func WithLogger(logger *zap.Logger) Option {
	return func(r *Repository) { r.logger = observability.OrNop(logger) }
}

// WithMetrics records every operation into m.
func WithMetrics(m *observability.Metrics) Option {
	return func(r *Repository) { r.metrics = m }
}

// WithRandom sets the source used for internal ids and row ids. The
// reader must not be shared with concurrent users unless it is safe for
// concurrent use.
func WithRandom(random io.Reader) Option {
	return func(r *Repository) { r.random = random }
}

// WithClock overrides the time source used for ledger timestamps.
func WithClock(now func() time.Time) Option {
	return func(r *Repository) { r.now = now }
}

// WithInitialStatus makes Upsert record status for documents that have
// no ledger entry yet.
func WithInitialStatus(status catalog.Status) Option {
	return func(r *Repository) { r.initial = status }
}

// New returns the mapper for kind over db.
func New(db *database.DB, kind catalog.Kind, opts ...Option) (*Repository, error) {
	if db == nil {
		return nil, errors.New("store: nil database")
	}
	if !kind.Valid() {
		return nil, fmt.Errorf("store: unknown kind %q", kind)
	}
	r := &Repository{
		db:     db,
		kind:   kind,
		random: rand.Reader,
		logger: zap.NewNop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.initial != "" && !r.initial.Valid() {
		return nil, fmt.Errorf("store: %w: %q", catalog.ErrInvalidStatus, r.initial)
	}
	r.logger = r.logger.With(zap.String("kind", string(kind)))
	r.resolver = identity.NewResolver(r.random, db.Dialect.Rebind)
	return r, nil
}

func (r *Repository) Kind() catalog.Kind { return r.kind }

// EnsureSchema creates the repository's tables when missing.
func (r *Repository) EnsureSchema(ctx context.Context) error {
	return EnsureSchema(ctx, r.db, r.kind)
}

// Upsert writes agg in a single transaction: the identity is resolved,
// the root row is inserted or updated, every nested row is removed and the
// collections are written again. Either everything is committed or
// nothing is.
func (r *Repository) Upsert(ctx context.Context, agg *catalog.Aggregate) (_ string, retErr error) {
	start := time.Now()
	defer func() { r.observe("upsert", start, retErr) }()

	if agg == nil || strings.TrimSpace(agg.ExternalID) == "" {
		return "", fmt.Errorf("%w: missing id", catalog.ErrMalformedDocument)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return "", r.persistenceError("begin upsert", err)
	}
	defer tx.Rollback()

	res, err := r.resolver.Resolve(ctx, tx, r.kind, agg.ExternalID)
	if err != nil {
		return "", r.persistenceError("resolve identity", err)
	}
	id, err := r.upsertRoot(ctx, tx, res.InternalID, agg)
	if err != nil {
		return "", r.persistenceError("upsert root", err)
	}
	if res.Existing && id != res.InternalID {
		return "", fmt.Errorf("%w: %s resolved to %s but stored as %s",
			catalog.ErrIdentityConflict, agg.ExternalID, res.InternalID, id)
	}
	if err := r.clearNested(ctx, tx, id); err != nil {
		return "", err
	}
	if err := r.writeNested(ctx, tx, id, agg); err != nil {
		return "", err
	}
	if r.initial != "" {
		if err := ledger.Seed(ctx, tx, r.db.Dialect.Rebind, r.kind, id, r.initial, r.now()); err != nil {
			return "", r.persistenceError("seed status", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return "", r.persistenceError("commit upsert", err)
	}

	r.logger.Debug("document upserted",
		zap.String("external_id", agg.ExternalID),
		zap.String("internal_id", id),
		zap.Bool("existing", res.Existing),
		zap.Int("variants", len(agg.Variants)),
		zap.Int("images", len(agg.Images)))
	return id, nil
}

// upsertRoot inserts or updates the root row. The conflict clause makes a
// concurrent first insert of the same external id converge on one row.
func (r *Repository) upsertRoot(ctx context.Context, tx *sql.Tx, candidate string, agg *catalog.Aggregate) (string, error) {
	var id string
	err := tx.QueryRowContext(ctx, r.db.Dialect.Rebind(`
		INSERT INTO `+r.kind.Table("")+` (
			id, external_id, title, description, blueprint_id, print_provider_id,
			user_id, shop_id, visible, is_locked, reviewed, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (external_id) DO UPDATE SET
			title = excluded.title,
			description = excluded.description,
			blueprint_id = excluded.blueprint_id,
			print_provider_id = excluded.print_provider_id,
			user_id = excluded.user_id,
			shop_id = excluded.shop_id,
			visible = excluded.visible,
			is_locked = excluded.is_locked,
			reviewed = excluded.reviewed,
			created_at = excluded.created_at,
			updated_at = excluded.updated_at
		RETURNING id`),
		candidate, agg.ExternalID, agg.Title, agg.Description, agg.BlueprintID, agg.PrintProviderID,
		agg.UserID, agg.ShopID, agg.Visible, agg.IsLocked, agg.Reviewed,
		catalog.FormatTimestamp(agg.CreatedAt), catalog.FormatTimestamp(agg.UpdatedAt),
	).Scan(&id)
	return id, err
}

// clearNested removes grandchildren first, then every direct child row.
func (r *Repository) clearNested(ctx context.Context, q Execer, internalID string) error {
	t := r.kind.Table
	stmts := []struct{ op, query string }{
		{"clear " + placeholdersTable, `DELETE FROM ` + t(placeholdersTable) +
			` WHERE print_area_id IN (SELECT id FROM ` + t(printAreasTable) + ` WHERE doc_id = ?)`},
		{"clear " + viewFilesTable, `DELETE FROM ` + t(viewFilesTable) +
			` WHERE view_row_id IN (SELECT id FROM ` + t(viewsTable) + ` WHERE doc_id = ?)`},
	}
	for _, name := range directChildren {
		stmts = append(stmts, struct{ op, query string }{"clear " + name, `DELETE FROM ` + t(name) + ` WHERE doc_id = ?`})
	}
	for _, s := range stmts {
		if _, err := q.ExecContext(ctx, r.db.Dialect.Rebind(s.query), internalID); err != nil {
			return r.persistenceError(s.op, err)
		}
	}
	return nil
}

// Fetch rebuilds the aggregate stored under externalID over a single
// connection. Collections are read in full before their grandchildren are
// queried.
func (r *Repository) Fetch(ctx context.Context, externalID string) (_ *catalog.Aggregate, retErr error) {
	start := time.Now()
	defer func() { r.observe("fetch", start, retErr) }()

	conn, err := r.db.Conn(ctx)
	if err != nil {
		return nil, r.persistenceError("acquire connection", err)
	}
	defer conn.Close()

	agg, err := r.readRoot(ctx, conn, externalID)
	if err != nil {
		return nil, err
	}
	if err := r.readNested(ctx, conn, agg); err != nil {
		return nil, err
	}
	return agg, nil
}

func (r *Repository) readRoot(ctx context.Context, q identity.Querier, externalID string) (*catalog.Aggregate, error) {
	agg := &catalog.Aggregate{}
	var createdAt, updatedAt string
	err := q.QueryRowContext(ctx, r.db.Dialect.Rebind(`
		SELECT id, external_id, title, description, blueprint_id, print_provider_id,
		       user_id, shop_id, visible, is_locked, reviewed, created_at, updated_at
		FROM `+r.kind.Table("")+` WHERE external_id = ?`), externalID).Scan(
		&agg.InternalID, &agg.ExternalID, &agg.Title, &agg.Description, &agg.BlueprintID, &agg.PrintProviderID,
		&agg.UserID, &agg.ShopID, &agg.Visible, &agg.IsLocked, &agg.Reviewed, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s %s", catalog.ErrNotFound, r.kind, externalID)
	}
	if err != nil {
		return nil, r.persistenceError("read root", err)
	}
	agg.CreatedAt = r.timestamp(createdAt, "created_at", externalID)
	agg.UpdatedAt = r.timestamp(updatedAt, "updated_at", externalID)
	return agg, nil
}

func (r *Repository) timestamp(s, column, externalID string) time.Time {
	t, err := catalog.ParseTimestamp(s)
	if err != nil {
		r.logger.Warn("unreadable timestamp",
			zap.String("external_id", externalID), zap.String("column", column), zap.Error(err))
		return time.Time{}
	}
	return t
}

// Delete removes the document, its nested rows and its ledger entry. It
// reports false when no document had that internal id.
func (r *Repository) Delete(ctx context.Context, internalID string) (_ bool, retErr error) {
	start := time.Now()
	defer func() { r.observe("delete", start, retErr) }()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, r.persistenceError("begin delete", err)
	}
	defer tx.Rollback()

	deleted, err := r.deleteTx(ctx, tx, internalID)
	if err != nil || !deleted {
		return false, err
	}
	if err := tx.Commit(); err != nil {
		return false, r.persistenceError("commit delete", err)
	}
	r.logger.Debug("document deleted", zap.String("internal_id", internalID))
	return true, nil
}

// DeleteByExternalID is Delete keyed by the catalog id.
func (r *Repository) DeleteByExternalID(ctx context.Context, externalID string) (_ bool, retErr error) {
	start := time.Now()
	defer func() { r.observe("delete", start, retErr) }()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, r.persistenceError("begin delete", err)
	}
	defer tx.Rollback()

	id, err := identity.Lookup(ctx, tx, r.db.Dialect.Rebind, r.kind, externalID)
	if errors.Is(err, catalog.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, r.persistenceError("resolve identity", err)
	}
	deleted, err := r.deleteTx(ctx, tx, id)
	if err != nil || !deleted {
		return false, err
	}
	if err := tx.Commit(); err != nil {
		return false, r.persistenceError("commit delete", err)
	}
	r.logger.Debug("document deleted", zap.String("external_id", externalID), zap.String("internal_id", id))
	return true, nil
}

func (r *Repository) deleteTx(ctx context.Context, tx *sql.Tx, internalID string) (bool, error) {
	if err := r.clearNested(ctx, tx, internalID); err != nil {
		return false, err
	}
	if _, err := tx.ExecContext(ctx,
		r.db.Dialect.Rebind(`DELETE FROM `+r.kind.Table(statusTable)+` WHERE doc_id = ?`), internalID); err != nil {
		return false, r.persistenceError("clear status", err)
	}
	res, err := tx.ExecContext(ctx,
		r.db.Dialect.Rebind(`DELETE FROM `+r.kind.Table("")+` WHERE id = ?`), internalID)
	if err != nil {
		return false, r.persistenceError("delete root", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, r.persistenceError("delete root", err)
	}
	return n > 0, nil
}

// InternalID returns the stored internal id for externalID.
func (r *Repository) InternalID(ctx context.Context, externalID string) (string, error) {
	return identity.Lookup(ctx, r.db, r.db.Dialect.Rebind, r.kind, externalID)
}

// UpdateCore edits title, description and status in one transaction. The
// status is validated before anything is written.
func (r *Repository) UpdateCore(ctx context.Context, externalID string, update catalog.CoreUpdate) (retErr error) {
	start := time.Now()
	defer func() { r.observe("update_core", start, retErr) }()

	if update.Status != nil && !update.Status.Valid() {
		return fmt.Errorf("%w: %q", catalog.ErrInvalidStatus, *update.Status)
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return r.persistenceError("begin update", err)
	}
	defer tx.Rollback()

	id, err := identity.Lookup(ctx, tx, r.db.Dialect.Rebind, r.kind, externalID)
	if err != nil {
		return err
	}

	var sets []string
	var args []any
	if update.Title != nil {
		sets = append(sets, "title = ?")
		args = append(args, *update.Title)
	}
	if update.Description != nil {
		sets = append(sets, "description = ?")
		args = append(args, *update.Description)
	}
	if len(sets) > 0 {
		args = append(args, id)
		if _, err := tx.ExecContext(ctx, r.db.Dialect.Rebind(
			`UPDATE `+r.kind.Table("")+` SET `+strings.Join(sets, ", ")+` WHERE id = ?`), args...); err != nil {
			return r.persistenceError("update root", err)
		}
	}
	if update.Status != nil {
		if err := ledger.Write(ctx, tx, r.db.Dialect.Rebind, r.kind, id, *update.Status, r.now()); err != nil {
			return r.persistenceError("update status", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return r.persistenceError("commit update", err)
	}
	return nil
}

func (r *Repository) newRowID() (string, error) {
	id, err := uuid.NewRandomFromReader(r.random)
	if err != nil {
		return "", fmt.Errorf("generate row id: %w", err)
	}
	return id.String(), nil
}

func (r *Repository) persistenceError(op string, err error) error {
	var pe *catalog.PersistenceError
	if errors.As(err, &pe) {
		return err
	}
	r.logger.Error("persistence failure", zap.String("op", op), zap.Error(err))
	return &catalog.PersistenceError{Op: op, Kind: r.kind, Err: err}
}

func (r *Repository) observe(op string, start time.Time, err error) {
	outcome := observability.OutcomeOK
	switch {
	case err == nil:
	case errors.Is(err, catalog.ErrNotFound):
		outcome = observability.OutcomeNotFound
	default:
		outcome = observability.OutcomeError
	}
	r.metrics.ObserveOperation(string(r.kind), op, outcome, time.Since(start))
}
