package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/georgemunganga/printa-catalog/internal/modules/catalog"
	"github.com/georgemunganga/printa-catalog/internal/modules/studio"
)

type fakeStudio struct {
	studio.Service
	generated studio.GenerateRequest
	imported  string
	drafts    []string
	report    studio.DeleteReport
	shop      studio.ImportReport
}

func (f *fakeStudio) ImportShop(context.Context) (studio.ImportReport, error) {
	return f.shop, nil
}

func (f *fakeStudio) ImportTemplate(_ context.Context, id string) (*catalog.Aggregate, error) {
	f.imported = id
	return &catalog.Aggregate{ExternalID: id, Variants: make([]catalog.Variant, 3)}, nil
}

func (f *fakeStudio) GenerateProduct(_ context.Context, req studio.GenerateRequest) (*catalog.Aggregate, error) {
	f.generated = req
	return &catalog.Aggregate{ExternalID: "p-1", Title: "Phone case - Fractal"}, nil
}

func (f *fakeStudio) PublishLatestDraft(context.Context) (string, error) {
	if len(f.drafts) == 0 {
		return "", fmt.Errorf("%w: no draft products", catalog.ErrNotFound)
	}
	id := f.drafts[len(f.drafts)-1]
	f.drafts = f.drafts[:len(f.drafts)-1]
	return id, nil
}

func (f *fakeStudio) DeleteAllProducts(context.Context) (studio.DeleteReport, error) {
	return f.report, nil
}

func (f *fakeStudio) Get(_ context.Context, kind catalog.Kind, id string) (*studio.Document, error) {
	if id != "p-1" {
		return nil, catalog.ErrNotFound
	}
	return &studio.Document{Aggregate: &catalog.Aggregate{ExternalID: id, Title: string(kind)}, Status: catalog.StatusDraft}, nil
}

func TestRunRejectsUnknownCommands(t *testing.T) {
	assert.ErrorIs(t, run(context.Background(), nil, &bytes.Buffer{}), errUsage)
	assert.ErrorIs(t, run(context.Background(), []string{"frobnicate"}, &bytes.Buffer{}), errUsage)
}

func TestImportTemplateCommand(t *testing.T) {
	svc := &fakeStudio{}
	var out bytes.Buffer

	require.ErrorIs(t, importTemplate(context.Background(), svc, nil, &out), errUsage)
	require.NoError(t, importTemplate(context.Background(), svc, []string{"-id", "tpl-9"}, &out))
	assert.Equal(t, "tpl-9", svc.imported)
	assert.Equal(t, "imported template tpl-9 (3 variants)\n", out.String())
}

func TestImportShopCommand(t *testing.T) {
	svc := &fakeStudio{shop: studio.ImportReport{Imported: 4, Failures: []string{"p-9"}}}
	var out bytes.Buffer
	require.NoError(t, importShop(context.Background(), svc, nil, &out))
	assert.Equal(t, "imported 4 templates\n  import failed: p-9\n", out.String())
}

func TestGenerateProductCommand(t *testing.T) {
	svc := &fakeStudio{}
	art := filepath.Join(t.TempDir(), "design.png")
	require.NoError(t, os.WriteFile(art, []byte("PNG"), 0o600))

	var out bytes.Buffer
	err := generateProduct(context.Background(), svc, []string{
		"-template", "tpl-1", "-artwork", art, "-tags", " Fractal, ,Psychedelic ", "-type", "iphone case",
	}, &out)
	require.NoError(t, err)
	assert.Equal(t, "tpl-1", svc.generated.TemplateID)
	assert.Equal(t, "iphone case", svc.generated.ProductType)
	assert.Equal(t, []string{"Fractal", "Psychedelic"}, svc.generated.Tags)
	require.NotNil(t, svc.generated.Artwork)
	assert.Equal(t, "design.png", svc.generated.Artwork.FileName)
	assert.Equal(t, []byte("PNG"), svc.generated.Artwork.Data)
	assert.Contains(t, out.String(), "created draft p-1")

	err = generateProduct(context.Background(), svc, []string{"-template", "tpl-1", "-artwork", art + ".missing"}, &out)
	assert.ErrorContains(t, err, "read artwork")
}

func TestPublishDraftCommand(t *testing.T) {
	svc := &fakeStudio{drafts: []string{"p-1"}}
	var out bytes.Buffer

	require.NoError(t, publishDraft(context.Background(), svc, nil, &out))
	require.NoError(t, publishDraft(context.Background(), svc, nil, &out))
	assert.Equal(t, "published p-1\nno draft products to publish\n", out.String())
}

func TestDeleteAllProductsCommand(t *testing.T) {
	svc := &fakeStudio{report: studio.DeleteReport{Deleted: 2, RemoteFailures: []string{"p-2"}}}
	var out bytes.Buffer
	require.NoError(t, deleteAllProducts(context.Background(), svc, nil, &out))
	assert.Equal(t, "deleted 2 products\n  remote delete failed: p-2\n", out.String())

	svc.report.LocalFailures = []string{"p-3"}
	assert.Error(t, deleteAllProducts(context.Background(), svc, nil, &out))
}

func TestShowCommand(t *testing.T) {
	svc := &fakeStudio{}
	var out bytes.Buffer

	require.NoError(t, show(context.Background(), svc, []string{"-kind", "products", "-id", "p-1"}, &out))
	assert.Contains(t, out.String(), `"status": "DRAFT"`)
	assert.Contains(t, out.String(), `"title": "product"`)

	assert.ErrorIs(t, show(context.Background(), svc, []string{"-kind", "widget", "-id", "p-1"}, &out), errUsage)
	assert.ErrorIs(t, show(context.Background(), svc, []string{"-id", "nope"}, &out), catalog.ErrNotFound)
}
