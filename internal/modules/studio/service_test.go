package studio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/georgemunganga/printa-catalog/internal/modules/artwork"
	"github.com/georgemunganga/printa-catalog/internal/modules/catalog"
	"github.com/georgemunganga/printa-catalog/internal/modules/generator"
	"github.com/georgemunganga/printa-catalog/internal/modules/ledger"
	"github.com/georgemunganga/printa-catalog/internal/modules/store"
	"github.com/georgemunganga/printa-catalog/internal/modules/transform"
	"github.com/georgemunganga/printa-catalog/internal/platform/database"
	"github.com/georgemunganga/printa-catalog/internal/platform/observability"
)

func templateDoc(id string) map[string]any {
	return map[string]any{
		"id":                id,
		"title":             "Fractal Case",
		"description":       "template copy",
		"blueprint_id":      421,
		"print_provider_id": 23,
		"shop_id":           20510104,
		"created_at":        "2025-02-04 08:01:19+00:00",
		"updated_at":        "2025-02-05 10:00:00+00:00",
		"tags":              []any{"Phone Cases"},
		"variants": []any{
			map[string]any{"id": 1, "sku": "ABC123", "cost": 1000, "price": 2000, "title": "iPhone 16", "is_enabled": true},
			map[string]any{"id": 2, "sku": "XYZ98765", "cost": 1000, "price": 2100, "title": "iPhone 16 Pro"},
			map[string]any{"id": 3, "sku": "", "cost": 1000, "title": "unpriced"},
		},
		"print_areas": []any{
			map[string]any{
				"variant_ids": []any{1, 2, 3},
				"placeholders": []any{
					map[string]any{"position": "front", "images": []any{
						map[string]any{"id": "old-front", "x": 0.5, "y": 0.5, "scale": 1, "angle": 0},
					}},
					map[string]any{"position": "back", "images": []any{
						map[string]any{"id": "old-back", "x": 0.5, "y": 0.5, "scale": 1, "angle": 0},
					}},
				},
			},
		},
		"sales_channel_properties": []any{map[string]any{"free_shipping": false}},
	}
}

type fakeCatalog struct {
	mu          sync.Mutex
	docs        map[string]map[string]any
	created     []catalog.CreatePayload
	published   []string
	unpublished []string
	deleted     []string
	uploads     []string
	deleteErr   map[string]error
	createErr   error
	shop        [][]map[string]any
	listErr     error
	listed      []int
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{docs: map[string]map[string]any{}, deleteErr: map[string]error{}}
}

func (f *fakeCatalog) FetchDocument(_ context.Context, id string) (map[string]any, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	doc, ok := f.docs[id]
	if !ok {
		return nil, fmt.Errorf("fetch %s: %w", id, catalog.ErrNotFound)
	}
	return doc, nil
}

func (f *fakeCatalog) CreateDocument(_ context.Context, payload catalog.CreatePayload) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return "", f.createErr
	}
	f.created = append(f.created, payload)
	return fmt.Sprintf("remote-%03d", len(f.created)), nil
}

func (f *fakeCatalog) DeleteDocument(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, id)
	return f.deleteErr[id]
}

func (f *fakeCatalog) PublishDocument(_ context.Context, id string, flags catalog.PublishFlags) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if flags != catalog.PublishAll() {
		return errors.New("unexpected publish flags")
	}
	f.published = append(f.published, id)
	return nil
}

func (f *fakeCatalog) UnpublishDocument(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.unpublished = append(f.unpublished, id)
	return nil
}

func (f *fakeCatalog) UploadImage(_ context.Context, name string, _ []byte) (catalog.ImageRef, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.uploads = append(f.uploads, name)
	return catalog.ImageRef{ID: "uploaded-art", FileName: name}, nil
}

// ListDocuments serves f.shop one slice per page.
func (f *fakeCatalog) ListDocuments(_ context.Context, page, limit int) (catalog.DocumentPage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listed = append(f.listed, page)
	if f.listErr != nil {
		return catalog.DocumentPage{}, f.listErr
	}
	if limit <= 0 || limit > 50 {
		return catalog.DocumentPage{}, fmt.Errorf("bad limit %d", limit)
	}
	out := catalog.DocumentPage{CurrentPage: page, LastPage: len(f.shop)}
	if page >= 1 && page <= len(f.shop) {
		out.Data = f.shop[page-1]
	}
	for _, p := range f.shop {
		out.Total += len(p)
	}
	return out, nil
}

type fakeArtist struct {
	prompt string
	err    error
}

func (a *fakeArtist) GenerateArtwork(_ context.Context, prompt string) (generator.Artwork, error) {
	a.prompt = prompt
	if a.err != nil {
		return generator.Artwork{}, a.err
	}
	return generator.Artwork{FileName: "painted.png", Data: []byte("PAINTED")}, nil
}

type fakeContent struct {
	brief  generator.Brief
	prompt string
}

func (c *fakeContent) GenerateDesignPrompt(context.Context) (string, error) {
	return "generated fractal prompt", nil
}

func (c *fakeContent) GenerateDescription(_ context.Context, b generator.Brief, prompt string) (string, error) {
	c.brief, c.prompt = b, prompt
	return "A hypnotic fractal case.", nil
}

func (c *fakeContent) GenerateTitle(_ context.Context, b generator.Brief, _ string) (string, error) {
	return "Phone case - Hypnotic Fractal", nil
}

func (c *fakeContent) GenerateBulletPoints(context.Context, generator.Brief, string) ([]string, error) {
	return []string{"one", "two", "three", "four", "five"}, nil
}

type fixture struct {
	svc       Service
	catalog   *fakeCatalog
	content   *fakeContent
	templates *store.Repository
	products  *store.Repository
	tplLedger catalog.StatusLedger
	prdLedger catalog.StatusLedger
	metrics   *observability.Metrics
	art       *artwork.Filesystem
}

func newFixture(t *testing.T, mutate ...func(*Deps)) *fixture {
	t.Helper()
	ctx := context.Background()
	db, err := database.OpenMemory(ctx)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	templates, err := store.New(db, catalog.KindTemplate)
	require.NoError(t, err)
	require.NoError(t, templates.EnsureSchema(ctx))
	products, err := store.New(db, catalog.KindProduct)
	require.NoError(t, err)
	require.NoError(t, products.EnsureSchema(ctx))

	art, err := artwork.NewFilesystem(t.TempDir())
	require.NoError(t, err)

	f := &fixture{
		catalog:   newFakeCatalog(),
		content:   &fakeContent{},
		templates: templates,
		products:  products,
		tplLedger: ledger.New(db, catalog.KindTemplate, nil),
		prdLedger: ledger.New(db, catalog.KindProduct, nil),
		metrics:   observability.NewMetrics(prometheus.NewRegistry()),
		art:       art,
	}
	deps := Deps{
		Templates:      templates,
		Products:       products,
		TemplateLedger: f.tplLedger,
		ProductLedger:  f.prdLedger,
		Catalog:        f.catalog,
		Content:        f.content,
		Artwork:        art,
		Metrics:        f.metrics,
		SKURand:        transform.NewSKURand(7),
		Brief:          generator.Brief{StoreName: "Amazon", ProductType: "phone case"},
		Workers:        3,
	}
	for _, m := range mutate {
		m(&deps)
	}
	f.svc = NewService(deps)
	return f
}

func (f *fixture) importTemplate(t *testing.T, id string) {
	t.Helper()
	f.catalog.docs[id] = templateDoc(id)
	_, err := f.svc.ImportTemplate(context.Background(), id)
	require.NoError(t, err)
}

func TestImportTemplate(t *testing.T) {
	f := newFixture(t)
	f.catalog.docs["tpl-1"] = templateDoc("tpl-1")

	tpl, err := f.svc.ImportTemplate(context.Background(), "tpl-1")
	require.NoError(t, err)
	assert.NotEmpty(t, tpl.InternalID)

	stored, err := f.templates.Fetch(context.Background(), "tpl-1")
	require.NoError(t, err)
	assert.Equal(t, tpl.InternalID, stored.InternalID)
	assert.Len(t, stored.Variants, 3)

	st, err := f.tplLedger.Status(context.Background(), tpl.InternalID)
	require.NoError(t, err)
	assert.Equal(t, catalog.StatusTemplate, st)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.Workflows().WithLabelValues(workflowImport, observability.OutcomeOK)))

	// Re-importing keeps the same internal id.
	again, err := f.svc.ImportTemplate(context.Background(), "tpl-1")
	require.NoError(t, err)
	assert.Equal(t, tpl.InternalID, again.InternalID)
}

func TestImportTemplateErrors(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.ImportTemplate(context.Background(), "missing")
	require.ErrorIs(t, err, catalog.ErrNotFound)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.Workflows().WithLabelValues(workflowImport, observability.OutcomeNotFound)))

	f.catalog.docs["bad"] = map[string]any{"title": "no id"}
	_, err = f.svc.ImportTemplate(context.Background(), "bad")
	require.ErrorIs(t, err, catalog.ErrMalformedDocument)
}

func TestGenerateProduct(t *testing.T) {
	f := newFixture(t)
	f.importTemplate(t, "tpl-1")

	product, err := f.svc.GenerateProduct(context.Background(), GenerateRequest{
		TemplateID:  "tpl-1",
		ProductType: "iphone 16 case",
		Tags:        []string{"Fractal"},
		Artwork:     &Upload{FileName: "art.png", Data: []byte("PNGDATA")},
	})
	require.NoError(t, err)
	assert.Equal(t, "remote-001", product.ExternalID)
	assert.Equal(t, "generated fractal prompt", f.content.prompt)
	assert.Equal(t, generator.Brief{StoreName: "Amazon", ProductType: "iphone 16 case"}, f.content.brief)

	stored, err := f.products.Fetch(context.Background(), "remote-001")
	require.NoError(t, err)
	assert.Equal(t, "Phone case - Hypnotic Fractal", stored.Title)
	assert.Equal(t, "A hypnotic fractal case.", stored.Description)
	assert.Equal(t, []string{"Fractal"}, stored.Tags)
	require.Len(t, stored.SalesChannelProperties, 1)
	assert.Equal(t, []string{"one", "two", "three", "four", "five"}, stored.SalesChannelProperties[0].BulletPoints)

	assert.Len(t, stored.Variants[0].SKU, 6)
	assert.NotEqual(t, "ABC123", stored.Variants[0].SKU)
	assert.Len(t, stored.Variants[1].SKU, 8)
	assert.Empty(t, stored.Variants[2].SKU)

	for _, area := range stored.PrintAreas {
		for _, ph := range area.Placeholders {
			for _, img := range ph.Images {
				assert.Equal(t, "uploaded-art", img.ID)
			}
		}
	}
	assert.Equal(t, []string{"art.png"}, f.catalog.uploads)

	rc, err := f.art.Get(context.Background(), artwork.Key("art.png", []byte("PNGDATA")))
	require.NoError(t, err)
	archived, _ := io.ReadAll(rc)
	_ = rc.Close()
	assert.Equal(t, "PNGDATA", string(archived))

	st, err := f.prdLedger.Status(context.Background(), stored.InternalID)
	require.NoError(t, err)
	assert.Equal(t, catalog.StatusDraft, st)

	require.Len(t, f.catalog.created, 1)
	assert.Len(t, f.catalog.created[0].Variants, 2)

	tpl, err := f.templates.Fetch(context.Background(), "tpl-1")
	require.NoError(t, err)
	assert.Equal(t, "Fractal Case", tpl.Title)
	assert.Equal(t, "ABC123", tpl.Variants[0].SKU)
}

func TestGenerateProductUnknownTemplate(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.GenerateProduct(context.Background(), GenerateRequest{TemplateID: "nope", DesignPrompt: "x"})
	require.ErrorIs(t, err, catalog.ErrNotFound)
	assert.Empty(t, f.catalog.created)
}

func TestGenerateProductRemoteFailureStoresNothing(t *testing.T) {
	f := newFixture(t)
	f.importTemplate(t, "tpl-1")
	f.catalog.createErr = errors.New("catalog down")

	_, err := f.svc.GenerateProduct(context.Background(), GenerateRequest{TemplateID: "tpl-1", DesignPrompt: "x"})
	require.Error(t, err)
	n, err := f.products.Count(context.Background(), catalog.ListFilter{})
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.Workflows().WithLabelValues(workflowGenerate, observability.OutcomeError)))
}

func TestGenerateProductPaintsMissingArtwork(t *testing.T) {
	artist := &fakeArtist{}
	f := newFixture(t, func(d *Deps) { d.Artist = artist })
	f.importTemplate(t, "tpl-1")

	product, err := f.svc.GenerateProduct(context.Background(), GenerateRequest{TemplateID: "tpl-1"})
	require.NoError(t, err)
	assert.Equal(t, "generated fractal prompt", artist.prompt)
	assert.Equal(t, []string{"painted.png"}, f.catalog.uploads)
	for _, ph := range product.PrintAreas[0].Placeholders {
		assert.Equal(t, "uploaded-art", ph.Images[0].ID)
	}

	rc, err := f.art.Get(context.Background(), artwork.Key("painted.png", []byte("PAINTED")))
	require.NoError(t, err)
	_ = rc.Close()

	// An explicit upload wins over painting.
	artist.prompt = ""
	_, err = f.svc.GenerateProduct(context.Background(), GenerateRequest{
		TemplateID: "tpl-1", DesignPrompt: "given", Artwork: &Upload{FileName: "mine.png", Data: []byte("MINE")},
	})
	require.NoError(t, err)
	assert.Empty(t, artist.prompt)
	assert.Equal(t, []string{"painted.png", "mine.png"}, f.catalog.uploads)
}

func TestGenerateProductArtworkFailureCreatesNothing(t *testing.T) {
	f := newFixture(t, func(d *Deps) { d.Artist = &fakeArtist{err: errors.New("image model down")} })
	f.importTemplate(t, "tpl-1")

	_, err := f.svc.GenerateProduct(context.Background(), GenerateRequest{TemplateID: "tpl-1", DesignPrompt: "x"})
	require.ErrorContains(t, err, "image model down")
	assert.Empty(t, f.catalog.created)
	assert.Empty(t, f.catalog.uploads)
}

func TestImportShop(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.importTemplate(t, "tpl-1")
	before, err := f.templates.InternalID(ctx, "tpl-1")
	require.NoError(t, err)

	f.catalog.shop = [][]map[string]any{
		{templateDoc("tpl-1"), templateDoc("tpl-2")},
		{{"id": "broken", "created_at": "yesterday"}, templateDoc("tpl-3")},
	}

	report, err := f.svc.ImportShop(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, report.Imported)
	assert.Equal(t, []string{"broken"}, report.Failures)
	assert.Equal(t, []int{1, 2}, f.catalog.listed)

	after, err := f.templates.InternalID(ctx, "tpl-1")
	require.NoError(t, err)
	assert.Equal(t, before, after)

	for _, id := range []string{"tpl-2", "tpl-3"} {
		doc, err := f.svc.Get(ctx, catalog.KindTemplate, id)
		require.NoError(t, err, id)
		assert.Equal(t, catalog.StatusTemplate, doc.Status)
	}
	n, err := f.templates.Count(ctx, catalog.ListFilter{})
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.Workflows().WithLabelValues(workflowImportAll, observability.OutcomeOK)))
}

func TestImportShopEmptyAndFailing(t *testing.T) {
	f := newFixture(t)
	report, err := f.svc.ImportShop(context.Background())
	require.NoError(t, err)
	assert.Zero(t, report.Imported)
	assert.Equal(t, []int{1}, f.catalog.listed)

	f.catalog.listErr = errors.New("catalog down")
	_, err = f.svc.ImportShop(context.Background())
	require.ErrorContains(t, err, "list page 1")
}

func TestPublishLatestDraft(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.PublishLatestDraft(ctx)
	require.ErrorIs(t, err, catalog.ErrNotFound)

	f.importTemplate(t, "tpl-1")
	for i := 0; i < 2; i++ {
		_, err := f.svc.GenerateProduct(ctx, GenerateRequest{TemplateID: "tpl-1", DesignPrompt: "x"})
		require.NoError(t, err)
	}

	id, err := f.svc.PublishLatestDraft(ctx)
	require.NoError(t, err)
	assert.Equal(t, "remote-002", id)
	assert.Equal(t, []string{"remote-002"}, f.catalog.published)

	listing, err := f.svc.List(ctx, catalog.KindProduct, catalog.ListFilter{Status: catalog.StatusPublished})
	require.NoError(t, err)
	require.Equal(t, 1, listing.Total)
	assert.Equal(t, "remote-002", listing.Items[0].ExternalID)

	id, err = f.svc.PublishLatestDraft(ctx)
	require.NoError(t, err)
	assert.Equal(t, "remote-001", id)

	require.NoError(t, f.svc.Unpublish(ctx, "remote-001"))
	assert.Equal(t, []string{"remote-001"}, f.catalog.unpublished)
	n, err := f.prdLedger.CountByStatus(ctx, catalog.StatusDraft)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestDeleteProductRemovesLocallyWhenRemoteFails(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.importTemplate(t, "tpl-1")
	_, err := f.svc.GenerateProduct(ctx, GenerateRequest{TemplateID: "tpl-1", DesignPrompt: "x"})
	require.NoError(t, err)

	f.catalog.deleteErr["remote-001"] = errors.New("gateway timeout")
	err = f.svc.DeleteProduct(ctx, "remote-001")
	require.Error(t, err)

	_, err = f.products.Fetch(ctx, "remote-001")
	require.ErrorIs(t, err, catalog.ErrNotFound)

	err = f.svc.DeleteProduct(ctx, "remote-001")
	require.ErrorIs(t, err, catalog.ErrNotFound)
}

func TestDeleteAllProducts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.importTemplate(t, "tpl-1")
	for i := 0; i < 5; i++ {
		_, err := f.svc.GenerateProduct(ctx, GenerateRequest{TemplateID: "tpl-1", DesignPrompt: "x"})
		require.NoError(t, err)
	}
	f.catalog.deleteErr["remote-003"] = errors.New("boom")
	f.catalog.deleteErr["remote-004"] = fmt.Errorf("gone: %w", catalog.ErrNotFound)

	report, err := f.svc.DeleteAllProducts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, report.Deleted)
	assert.Equal(t, []string{"remote-003"}, report.RemoteFailures)
	assert.Empty(t, report.LocalFailures)
	assert.Len(t, f.catalog.deleted, 5)

	n, err := f.products.Count(ctx, catalog.ListFilter{})
	require.NoError(t, err)
	assert.Zero(t, n)

	// Templates are untouched.
	n, err = f.templates.Count(ctx, catalog.ListFilter{})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

type fakeMockups struct{ invalidated []string }

func (m *fakeMockups) MockupURL(_ context.Context, id string) (string, error) {
	return "https://img/" + id + ".jpg", nil
}

func (m *fakeMockups) Invalidate(id string) { m.invalidated = append(m.invalidated, id) }

func TestGetUpdateDelete(t *testing.T) {
	mockups := &fakeMockups{}
	f := newFixture(t, func(d *Deps) { d.Mockups = mockups })
	ctx := context.Background()
	f.importTemplate(t, "tpl-1")
	_, err := f.svc.GenerateProduct(ctx, GenerateRequest{TemplateID: "tpl-1", DesignPrompt: "x"})
	require.NoError(t, err)

	doc, err := f.svc.Get(ctx, catalog.KindProduct, "remote-001")
	require.NoError(t, err)
	assert.Equal(t, catalog.StatusDraft, doc.Status)
	assert.Equal(t, "https://img/remote-001.jpg", doc.MockupURL)

	tplDoc, err := f.svc.Get(ctx, catalog.KindTemplate, "tpl-1")
	require.NoError(t, err)
	assert.Empty(t, tplDoc.MockupURL)
	assert.Equal(t, catalog.StatusTemplate, tplDoc.Status)

	title := "Edited"
	published := catalog.StatusPublished
	doc, err = f.svc.Update(ctx, catalog.KindProduct, "remote-001", catalog.CoreUpdate{Title: &title, Status: &published})
	require.NoError(t, err)
	assert.Equal(t, "Edited", doc.Title)
	assert.Equal(t, catalog.StatusPublished, doc.Status)

	bogus := catalog.Status("ARCHIVED")
	_, err = f.svc.Update(ctx, catalog.KindProduct, "remote-001", catalog.CoreUpdate{Status: &bogus})
	require.ErrorIs(t, err, catalog.ErrInvalidStatus)

	require.NoError(t, f.svc.Delete(ctx, catalog.KindTemplate, "tpl-1"))
	require.ErrorIs(t, f.svc.Delete(ctx, catalog.KindTemplate, "tpl-1"), catalog.ErrNotFound)
	assert.Empty(t, f.catalog.deleted)

	require.NoError(t, f.svc.Delete(ctx, catalog.KindProduct, "remote-001"))
	assert.Equal(t, []string{"remote-001"}, f.catalog.deleted)
	assert.Equal(t, []string{"remote-001"}, mockups.invalidated)
}
