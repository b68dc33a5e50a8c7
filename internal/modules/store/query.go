package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/georgemunganga/printa-catalog/internal/modules/catalog"
	"github.com/georgemunganga/printa-catalog/internal/platform/database"
)

// filterClause builds the FROM/WHERE part shared by List and Count.
func (r *Repository) filterClause(f catalog.ListFilter) (string, []any) {
	var b strings.Builder
	b.WriteString(` FROM ` + r.kind.Table("") + ` r LEFT JOIN ` + r.kind.Table(statusTable) + ` s ON s.doc_id = r.id`)
	var conds []string
	var args []any
	if search := strings.ToLower(strings.TrimSpace(f.Search)); search != "" {
		conds = append(conds, `(LOWER(r.title) LIKE ? OR LOWER(r.external_id) LIKE ?)`)
		pattern := "%" + search + "%"
		args = append(args, pattern, pattern)
	}
	if f.Status != "" {
		conds = append(conds, `s.status = ?`)
		args = append(args, string(f.Status))
	}
	if len(conds) > 0 {
		b.WriteString(` WHERE ` + strings.Join(conds, ` AND `))
	}
	return b.String(), args
}

// List returns summaries ordered newest first.
func (r *Repository) List(ctx context.Context, f catalog.ListFilter) (_ []*catalog.Summary, retErr error) {
	start := time.Now()
	defer func() { r.observe("list", start, retErr) }()

	if f.Status != "" && !f.Status.Valid() {
		return nil, fmt.Errorf("%w: %q", catalog.ErrInvalidStatus, f.Status)
	}
	from, args := r.filterClause(f)
	query := `SELECT r.external_id, r.title, r.description, COALESCE(s.status, ''), r.updated_at` +
		from + ` ORDER BY r.updated_at DESC, r.external_id DESC`
	switch {
	case f.Limit > 0:
		query += ` LIMIT ? OFFSET ?`
		args = append(args, f.Limit, max(f.Offset, 0))
	case f.Offset > 0 && r.db.Dialect == database.SQLite:
		query += ` LIMIT -1 OFFSET ?`
		args = append(args, f.Offset)
	case f.Offset > 0:
		query += ` OFFSET ?`
		args = append(args, f.Offset)
	}

	out := []*catalog.Summary{}
	err := r.scanRows(ctx, r.db, "list", query, func(rows *sql.Rows) error {
		s := &catalog.Summary{}
		var status, updatedAt string
		if err := rows.Scan(&s.ExternalID, &s.Title, &s.Description, &status, &updatedAt); err != nil {
			return err
		}
		s.Status = catalog.Status(status)
		s.UpdatedAt = r.timestamp(updatedAt, "updated_at", s.ExternalID)
		out = append(out, s)
		return nil
	}, args...)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Count returns how many documents match f, ignoring paging.
func (r *Repository) Count(ctx context.Context, f catalog.ListFilter) (_ int, retErr error) {
	start := time.Now()
	defer func() { r.observe("count", start, retErr) }()

	if f.Status != "" && !f.Status.Valid() {
		return 0, fmt.Errorf("%w: %q", catalog.ErrInvalidStatus, f.Status)
	}
	from, args := r.filterClause(f)
	var n int
	if err := r.db.QueryRowContext(ctx, r.db.Dialect.Rebind(`SELECT COUNT(*)`+from), args...).Scan(&n); err != nil {
		return 0, r.persistenceError("count", err)
	}
	return n, nil
}
