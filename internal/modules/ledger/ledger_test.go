package ledger_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/georgemunganga/printa-catalog/internal/modules/catalog"
	"github.com/georgemunganga/printa-catalog/internal/modules/ledger"
	"github.com/georgemunganga/printa-catalog/internal/modules/store"
	"github.com/georgemunganga/printa-catalog/internal/platform/database"
)

type fixture struct {
	db     *database.DB
	repo   *store.Repository
	ledger catalog.StatusLedger
}

func setup(t *testing.T, kind catalog.Kind, externalIDs ...string) (fixture, map[string]string) {
	t.Helper()
	ctx := context.Background()
	db, err := database.OpenMemory(ctx)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	repo, err := store.New(db, kind)
	require.NoError(t, err)
	require.NoError(t, repo.EnsureSchema(ctx))

	ids := map[string]string{}
	for _, ext := range externalIDs {
		id, err := repo.Upsert(ctx, &catalog.Aggregate{ExternalID: ext, Title: ext})
		require.NoError(t, err)
		ids[ext] = id
	}
	return fixture{db: db, repo: repo, ledger: ledger.New(db, kind, nil)}, ids
}

func TestSetStatusUpserts(t *testing.T) {
	ctx := context.Background()
	f, ids := setup(t, catalog.KindProduct, "p1")

	require.NoError(t, f.ledger.SetStatus(ctx, ids["p1"], catalog.StatusDraft))
	require.NoError(t, f.ledger.SetStatus(ctx, ids["p1"], catalog.StatusPublished))

	st, err := f.ledger.Status(ctx, ids["p1"])
	require.NoError(t, err)
	assert.Equal(t, catalog.StatusPublished, st)

	var rows int
	require.NoError(t, f.db.QueryRow(`SELECT COUNT(*) FROM product_status`).Scan(&rows))
	assert.Equal(t, 1, rows)
}

func TestInvalidStatusLeavesPriorEntry(t *testing.T) {
	ctx := context.Background()
	f, ids := setup(t, catalog.KindProduct, "p1")
	require.NoError(t, f.ledger.SetStatus(ctx, ids["p1"], catalog.StatusDraft))

	err := f.ledger.SetStatus(ctx, ids["p1"], catalog.Status("BOGUS"))
	require.ErrorIs(t, err, catalog.ErrInvalidStatus)
	err = f.ledger.SetStatusByExternalID(ctx, "p1", catalog.Status("bogus"))
	require.ErrorIs(t, err, catalog.ErrInvalidStatus)

	st, err := f.ledger.Status(ctx, ids["p1"])
	require.NoError(t, err)
	assert.Equal(t, catalog.StatusDraft, st)
}

func TestInvalidStatusWithoutPriorEntryWritesNothing(t *testing.T) {
	ctx := context.Background()
	f, ids := setup(t, catalog.KindTemplate, "t1")

	err := f.ledger.SetStatus(ctx, ids["t1"], catalog.Status("ARCHIVED"))
	require.ErrorIs(t, err, catalog.ErrInvalidStatus)
	_, err = f.ledger.Status(ctx, ids["t1"])
	require.ErrorIs(t, err, catalog.ErrNotFound)
}

func TestUnknownDocument(t *testing.T) {
	ctx := context.Background()
	f, _ := setup(t, catalog.KindProduct)

	err := f.ledger.SetStatus(ctx, "00000000-0000-0000-0000-000000000000", catalog.StatusDraft)
	require.ErrorIs(t, err, catalog.ErrNotFound)
	err = f.ledger.SetStatusByExternalID(ctx, "nope", catalog.StatusDraft)
	require.ErrorIs(t, err, catalog.ErrNotFound)
}

func TestMaxExternalIDWithStatus(t *testing.T) {
	ctx := context.Background()
	f, _ := setup(t, catalog.KindProduct, "67a1", "67b2", "67c3")

	_, ok, err := f.ledger.MaxExternalIDWithStatus(ctx, catalog.StatusDraft)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, f.ledger.SetStatusByExternalID(ctx, "67a1", catalog.StatusDraft))
	require.NoError(t, f.ledger.SetStatusByExternalID(ctx, "67b2", catalog.StatusDraft))
	require.NoError(t, f.ledger.SetStatusByExternalID(ctx, "67c3", catalog.StatusPublished))

	id, ok, err := f.ledger.MaxExternalIDWithStatus(ctx, catalog.StatusDraft)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "67b2", id)

	n, err := f.ledger.CountByStatus(ctx, catalog.StatusDraft)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	_, err = f.ledger.CountByStatus(ctx, "nope")
	require.ErrorIs(t, err, catalog.ErrInvalidStatus)
}

func TestStatusRemovedWithDocument(t *testing.T) {
	ctx := context.Background()
	f, ids := setup(t, catalog.KindTemplate, "t1")
	require.NoError(t, f.ledger.SetStatus(ctx, ids["t1"], catalog.StatusTemplate))

	deleted, err := f.repo.Delete(ctx, ids["t1"])
	require.NoError(t, err)
	require.True(t, deleted)

	_, err = f.ledger.Status(ctx, ids["t1"])
	require.ErrorIs(t, err, catalog.ErrNotFound)
}
