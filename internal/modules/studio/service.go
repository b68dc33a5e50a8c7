// Package studio runs the catalog workflows: importing templates,
// generating and publishing products, and cleaning them up again.
package studio

import (
	"context"
	"math/rand/v2"

	"go.uber.org/zap"

	"github.com/georgemunganga/printa-catalog/internal/modules/artwork"
	"github.com/georgemunganga/printa-catalog/internal/modules/catalog"
	"github.com/georgemunganga/printa-catalog/internal/modules/generator"
	"github.com/georgemunganga/printa-catalog/internal/platform/observability"
)

// CatalogClient is the remote print-on-demand catalog.
type CatalogClient interface {
	FetchDocument(ctx context.Context, externalID string) (map[string]any, error)
	CreateDocument(ctx context.Context, payload catalog.CreatePayload) (string, error)
	DeleteDocument(ctx context.Context, externalID string) error
	PublishDocument(ctx context.Context, externalID string, flags catalog.PublishFlags) error
	UnpublishDocument(ctx context.Context, externalID string) error
	UploadImage(ctx context.Context, fileName string, contents []byte) (catalog.ImageRef, error)
	ListDocuments(ctx context.Context, page, limit int) (catalog.DocumentPage, error)
}

// ContentGenerator writes listing copy.
type ContentGenerator interface {
	GenerateDesignPrompt(ctx context.Context) (string, error)
	GenerateDescription(ctx context.Context, brief generator.Brief, designPrompt string) (string, error)
	GenerateTitle(ctx context.Context, brief generator.Brief, description string) (string, error)
	GenerateBulletPoints(ctx context.Context, brief generator.Brief, description string) ([]string, error)
}

// Artist paints a design for a prompt.
type Artist interface {
	GenerateArtwork(ctx context.Context, prompt string) (generator.Artwork, error)
}

// MockupSource resolves the preview image of a remote product.
type MockupSource interface {
	MockupURL(ctx context.Context, externalID string) (string, error)
}

// Service defines the workflows and dashboard queries.
type Service interface {
	ImportTemplate(ctx context.Context, externalID string) (*catalog.Aggregate, error)
	ImportShop(ctx context.Context) (ImportReport, error)
	GenerateProduct(ctx context.Context, req GenerateRequest) (*catalog.Aggregate, error)
	PublishLatestDraft(ctx context.Context) (string, error)
	Publish(ctx context.Context, externalID string) error
	Unpublish(ctx context.Context, externalID string) error
	DeleteProduct(ctx context.Context, externalID string) error
	DeleteAllProducts(ctx context.Context) (DeleteReport, error)

	List(ctx context.Context, kind catalog.Kind, filter catalog.ListFilter) (Listing, error)
	Get(ctx context.Context, kind catalog.Kind, externalID string) (*Document, error)
	Update(ctx context.Context, kind catalog.Kind, externalID string, update catalog.CoreUpdate) (*Document, error)
	Delete(ctx context.Context, kind catalog.Kind, externalID string) error
}

// GenerateRequest describes one product to derive from a stored template.
type GenerateRequest struct {
	TemplateID string `json:"template_id"`
	// DesignPrompt describes the artwork. Empty asks the generator for one.
	DesignPrompt string `json:"design_prompt"`
	// StoreName and ProductType override the configured defaults.
	StoreName   string   `json:"store_name,omitempty"`
	ProductType string   `json:"product_type,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	// Artwork is placed on every print position. Nil paints one from the
	// design prompt when an Artist is configured.
	Artwork *Upload `json:"artwork,omitempty"`
}

// Upload is a design file to place on every print position.
type Upload struct {
	FileName string `json:"file_name"`
	Data     []byte `json:"data"`
}

// ImportReport summarises a shop import.
type ImportReport struct {
	Imported int      `json:"imported"`
	Failures []string `json:"failures,omitempty"`
}

// DeleteReport summarises a bulk delete.
type DeleteReport struct {
	Deleted        int      `json:"deleted"`
	RemoteFailures []string `json:"remote_failures,omitempty"`
	LocalFailures  []string `json:"local_failures,omitempty"`
}

// Listing is one page of documents plus the total matching the filter.
type Listing struct {
	Items []*catalog.Summary `json:"items"`
	Total int                `json:"total"`
}

// Document is a stored aggregate with its ledger state and preview.
type Document struct {
	*catalog.Aggregate
	Status    catalog.Status `json:"status,omitempty"`
	MockupURL string         `json:"mockup_url,omitempty"`
}

// Deps wires a Service. Artist, Artwork and Mockups are optional.
type Deps struct {
	Templates      catalog.Repository
	Products       catalog.Repository
	TemplateLedger catalog.StatusLedger
	ProductLedger  catalog.StatusLedger
	Catalog        CatalogClient
	Content        ContentGenerator
	Artist         Artist
	Artwork        artwork.Store
	Mockups        MockupSource
	Metrics        *observability.Metrics
	Logger         *zap.Logger
	// SKURand generates variant SKUs. Nil uses a crypto-seeded source.
	SKURand *rand.Rand
	Brief   generator.Brief
	// Workers bounds concurrent remote calls in bulk operations.
	Workers int
}
