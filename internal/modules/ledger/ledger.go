package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/georgemunganga/printa-catalog/internal/modules/catalog"
	"github.com/georgemunganga/printa-catalog/internal/modules/identity"
	"github.com/georgemunganga/printa-catalog/internal/platform/database"
	"github.com/georgemunganga/printa-catalog/internal/platform/observability"
)

type sqlLedger struct {
	db     *database.DB
	kind   catalog.Kind
	logger *zap.Logger
	now    func() time.Time
}

// New returns the ledger for kind, stored in the "<kind>_status" table.
func New(db *database.DB, kind catalog.Kind, logger *zap.Logger) catalog.StatusLedger {
	return &sqlLedger{
		db:     db,
		kind:   kind,
		logger: observability.OrNop(logger).With(zap.String("kind", string(kind))),
		now:    time.Now,
	}
}

func (l *sqlLedger) SetStatus(ctx context.Context, internalID string, status catalog.Status) error {
	if !status.Valid() {
		return fmt.Errorf("%w: %q", catalog.ErrInvalidStatus, status)
	}
	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var exists int
	err = tx.QueryRowContext(ctx,
		l.db.Dialect.Rebind(`SELECT 1 FROM `+l.kind.Table("")+` WHERE id = ?`), internalID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %s internal id %s", catalog.ErrNotFound, l.kind, internalID)
	}
	if err != nil {
		return fmt.Errorf("check %s: %w", l.kind, err)
	}
	if err := Write(ctx, tx, l.db.Dialect.Rebind, l.kind, internalID, status, l.now()); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	l.logger.Debug("status set", zap.String("internal_id", internalID), zap.String("status", string(status)))
	return nil
}

func (l *sqlLedger) SetStatusByExternalID(ctx context.Context, externalID string, status catalog.Status) error {
	if !status.Valid() {
		return fmt.Errorf("%w: %q", catalog.ErrInvalidStatus, status)
	}
	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	id, err := identity.Lookup(ctx, tx, l.db.Dialect.Rebind, l.kind, externalID)
	if err != nil {
		return err
	}
	if err := Write(ctx, tx, l.db.Dialect.Rebind, l.kind, id, status, l.now()); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	l.logger.Debug("status set", zap.String("external_id", externalID), zap.String("status", string(status)))
	return nil
}

func (l *sqlLedger) Status(ctx context.Context, internalID string) (catalog.Status, error) {
	var s string
	err := l.db.QueryRowContext(ctx,
		l.db.Dialect.Rebind(`SELECT status FROM `+l.kind.Table("status")+` WHERE doc_id = ?`), internalID).Scan(&s)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("%w: no status for %s %s", catalog.ErrNotFound, l.kind, internalID)
	}
	if err != nil {
		return "", err
	}
	return catalog.Status(s), nil
}

// MaxExternalIDWithStatus returns the lexically greatest external id in the
// given state. Catalog ids are hex object ids, so this is the newest one.
func (l *sqlLedger) MaxExternalIDWithStatus(ctx context.Context, status catalog.Status) (string, bool, error) {
	if !status.Valid() {
		return "", false, fmt.Errorf("%w: %q", catalog.ErrInvalidStatus, status)
	}
	var id sql.NullString
	err := l.db.QueryRowContext(ctx, l.db.Dialect.Rebind(`
		SELECT MAX(r.external_id)
		FROM `+l.kind.Table("")+` r
		JOIN `+l.kind.Table("status")+` s ON s.doc_id = r.id
		WHERE s.status = ?`), string(status)).Scan(&id)
	if err != nil {
		return "", false, err
	}
	return id.String, id.Valid, nil
}

func (l *sqlLedger) CountByStatus(ctx context.Context, status catalog.Status) (int, error) {
	if !status.Valid() {
		return 0, fmt.Errorf("%w: %q", catalog.ErrInvalidStatus, status)
	}
	var n int
	err := l.db.QueryRowContext(ctx,
		l.db.Dialect.Rebind(`SELECT COUNT(*) FROM `+l.kind.Table("status")+` WHERE status = ?`),
		string(status)).Scan(&n)
	return n, err
}

// Write upserts the ledger row for internalID using q, which is normally
// the caller's transaction. The status is validated before anything is
// written.
func Write(ctx context.Context, q identity.Querier, rebind identity.Rebinder, kind catalog.Kind, internalID string, status catalog.Status, at time.Time) error {
	if !status.Valid() {
		return fmt.Errorf("%w: %q", catalog.ErrInvalidStatus, status)
	}
	_, err := q.ExecContext(ctx, rebind(`
		INSERT INTO `+kind.Table("status")+` (doc_id, status, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT (doc_id) DO UPDATE SET status = excluded.status, updated_at = excluded.updated_at`),
		internalID, string(status), catalog.FormatTimestamp(at))
	if err != nil {
		return fmt.Errorf("write %s status: %w", kind, err)
	}
	return nil
}

// Seed writes status for internalID only when the document has no ledger
// row yet, so re-upserts keep whatever state the workflows set.
func Seed(ctx context.Context, q identity.Querier, rebind identity.Rebinder, kind catalog.Kind, internalID string, status catalog.Status, at time.Time) error {
	if !status.Valid() {
		return fmt.Errorf("%w: %q", catalog.ErrInvalidStatus, status)
	}
	_, err := q.ExecContext(ctx, rebind(`
		INSERT INTO `+kind.Table("status")+` (doc_id, status, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT (doc_id) DO NOTHING`),
		internalID, string(status), catalog.FormatTimestamp(at))
	if err != nil {
		return fmt.Errorf("seed %s status: %w", kind, err)
	}
	return nil
}
