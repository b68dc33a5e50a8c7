package studio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/georgemunganga/printa-catalog/internal/modules/artwork"
	"github.com/georgemunganga/printa-catalog/internal/modules/catalog"
	"github.com/georgemunganga/printa-catalog/internal/modules/generator"
	"github.com/georgemunganga/printa-catalog/internal/modules/transform"
	"github.com/georgemunganga/printa-catalog/internal/platform/observability"
)

const (
	workflowImport    = "import_template"
	workflowImportAll = "import_shop"
	workflowGenerate  = "generate_product"
	workflowPublish   = "publish"
	workflowUnpublish = "unpublish"
	workflowDelete    = "delete_product"
	workflowDeleteAll = "delete_all_products"
)

type service struct {
	deps   Deps
	logger *zap.Logger

	skuMu sync.Mutex
	sku   *rand.Rand
}

// NewService creates the studio service.
func NewService(deps Deps) Service {
	if deps.Workers <= 0 {
		deps.Workers = 1
	}
	sku := deps.SKURand
	if sku == nil {
		sku = transform.NewCryptoRand()
	}
	return &service{deps: deps, logger: observability.OrNop(deps.Logger), sku: sku}
}

func (s *service) finish(workflow string, err error) {
	outcome := observability.OutcomeOK
	switch {
	case errors.Is(err, catalog.ErrNotFound):
		outcome = observability.OutcomeNotFound
	case err != nil:
		outcome = observability.OutcomeError
	}
	s.deps.Metrics.ObserveWorkflow(workflow, outcome)
}

// ImportTemplate fetches a remote document and stores it as a template.
func (s *service) ImportTemplate(ctx context.Context, externalID string) (_ *catalog.Aggregate, err error) {
	defer func() { s.finish(workflowImport, err) }()

	doc, err := s.deps.Catalog.FetchDocument(ctx, externalID)
	if err != nil {
		return nil, err
	}
	tpl, err := catalog.Parse(doc)
	if err != nil {
		return nil, err
	}
	internalID, err := s.deps.Templates.Upsert(ctx, tpl)
	if err != nil {
		return nil, err
	}
	if err := s.deps.TemplateLedger.SetStatus(ctx, internalID, catalog.StatusTemplate); err != nil {
		return nil, err
	}
	tpl.InternalID = internalID
	s.logger.Info("template imported",
		zap.String("external_id", tpl.ExternalID),
		zap.String("internal_id", internalID),
		zap.Int("variants", len(tpl.Variants)))
	return tpl, nil
}

// shopPageSize is the largest page the catalog API serves.
const shopPageSize = 50

// ImportShop stores every product of the remote shop as a template.
// Documents that cannot be parsed or stored are reported and skipped.
func (s *service) ImportShop(ctx context.Context) (_ ImportReport, err error) {
	defer func() { s.finish(workflowImportAll, err) }()

	var report ImportReport
	for page := 1; ; page++ {
		listing, err := s.deps.Catalog.ListDocuments(ctx, page, shopPageSize)
		if err != nil {
			return report, fmt.Errorf("list page %d: %w", page, err)
		}
		for _, doc := range listing.Data {
			id, err := s.importDocument(ctx, doc)
			if err != nil {
				if ctx.Err() != nil {
					return report, ctx.Err()
				}
				s.logger.Warn("shop document not imported", zap.String("external_id", id), zap.Error(err))
				report.Failures = append(report.Failures, id)
				continue
			}
			report.Imported++
		}
		if len(listing.Data) == 0 || page >= listing.LastPage {
			break
		}
	}
	s.logger.Info("shop imported", zap.Int("imported", report.Imported), zap.Int("failures", len(report.Failures)))
	return report, nil
}

func (s *service) importDocument(ctx context.Context, doc map[string]any) (string, error) {
	id, _ := doc["id"].(string)
	tpl, err := catalog.Parse(doc)
	if err != nil {
		return id, err
	}
	internalID, err := s.deps.Templates.Upsert(ctx, tpl)
	if err != nil {
		return id, err
	}
	return id, s.deps.TemplateLedger.SetStatus(ctx, internalID, catalog.StatusTemplate)
}

// GenerateProduct derives a product from a stored template, writes fresh
// copy for it, creates it remotely and stores it as a draft.
func (s *service) GenerateProduct(ctx context.Context, req GenerateRequest) (_ *catalog.Aggregate, err error) {
	defer func() { s.finish(workflowGenerate, err) }()

	tpl, err := s.deps.Templates.Fetch(ctx, req.TemplateID)
	if err != nil {
		return nil, fmt.Errorf("load template %s: %w", req.TemplateID, err)
	}
	product := transform.MapTemplateToProduct(tpl, "")

	brief := s.brief(req)
	prompt := req.DesignPrompt
	if prompt == "" {
		if prompt, err = s.deps.Content.GenerateDesignPrompt(ctx); err != nil {
			return nil, fmt.Errorf("design prompt: %w", err)
		}
	}
	description, err := s.deps.Content.GenerateDescription(ctx, brief, prompt)
	if err != nil {
		return nil, err
	}
	title, err := s.deps.Content.GenerateTitle(ctx, brief, description)
	if err != nil {
		return nil, err
	}
	bullets, err := s.deps.Content.GenerateBulletPoints(ctx, brief, description)
	if err != nil {
		return nil, err
	}

	product = transform.ReplaceDescription(product, description)
	product = transform.ReplaceTitle(product, title)
	if product, err = transform.ReplaceBulletPoints(product, bullets); err != nil {
		return nil, err
	}
	if len(req.Tags) > 0 {
		product = transform.ReplaceTags(product, req.Tags)
	}
	s.skuMu.Lock()
	product = transform.RegenerateAllSkus(product, s.sku)
	s.skuMu.Unlock()

	upload := req.Artwork
	if upload == nil && s.deps.Artist != nil {
		art, err := s.deps.Artist.GenerateArtwork(ctx, prompt)
		if err != nil {
			return nil, fmt.Errorf("artwork: %w", err)
		}
		upload = &Upload{FileName: art.FileName, Data: art.Data}
	}
	if upload != nil {
		ref, err := s.placeArtwork(ctx, upload)
		if err != nil {
			return nil, err
		}
		product = transform.ReplaceAllImageIDs(product, ref)
	}

	remoteID, err := s.deps.Catalog.CreateDocument(ctx, product.CreatePayload())
	if err != nil {
		return nil, err
	}
	product = transform.ReplaceExternalID(product, remoteID)

	internalID, err := s.deps.Products.Upsert(ctx, product)
	if err != nil {
		s.logger.Error("generated product created remotely but not stored",
			zap.String("external_id", remoteID), zap.Error(err))
		return nil, err
	}
	if err := s.deps.ProductLedger.SetStatus(ctx, internalID, catalog.StatusDraft); err != nil {
		return nil, err
	}
	product.InternalID = internalID
	s.logger.Info("product generated",
		zap.String("template_id", req.TemplateID),
		zap.String("external_id", remoteID),
		zap.String("title", title))
	return product, nil
}

func (s *service) brief(req GenerateRequest) generator.Brief {
	b := s.deps.Brief
	if req.StoreName != "" {
		b.StoreName = req.StoreName
	}
	if req.ProductType != "" {
		b.ProductType = req.ProductType
	}
	return b
}

// placeArtwork archives the design, when an archive is configured, and
// uploads it to the catalog.
func (s *service) placeArtwork(ctx context.Context, up *Upload) (catalog.ImageRef, error) {
	if len(up.Data) == 0 {
		return catalog.ImageRef{}, errors.New("artwork is empty")
	}
	if s.deps.Artwork != nil {
		key := artwork.Key(up.FileName, up.Data)
		obj, err := s.deps.Artwork.Put(ctx, key, bytes.NewReader(up.Data), artwork.ContentType(up.FileName))
		if err != nil {
			return catalog.ImageRef{}, fmt.Errorf("archive artwork: %w", err)
		}
		s.logger.Info("artwork archived", zap.String("key", obj.Key), zap.Int64("size", obj.Size),
			zap.String("backend", string(s.deps.Artwork.Backend())))
	}
	return s.deps.Catalog.UploadImage(ctx, up.FileName, up.Data)
}

// PublishLatestDraft publishes the newest draft product and returns its id.
func (s *service) PublishLatestDraft(ctx context.Context) (_ string, err error) {
	defer func() { s.finish(workflowPublish, err) }()

	id, ok, err := s.deps.ProductLedger.MaxExternalIDWithStatus(ctx, catalog.StatusDraft)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", fmt.Errorf("%w: no draft products", catalog.ErrNotFound)
	}
	if err := s.publish(ctx, id); err != nil {
		return "", err
	}
	return id, nil
}

func (s *service) Publish(ctx context.Context, externalID string) (err error) {
	defer func() { s.finish(workflowPublish, err) }()
	if _, err := s.deps.Products.InternalID(ctx, externalID); err != nil {
		return err
	}
	return s.publish(ctx, externalID)
}

func (s *service) publish(ctx context.Context, externalID string) error {
	if err := s.deps.Catalog.PublishDocument(ctx, externalID, catalog.PublishAll()); err != nil {
		return err
	}
	if err := s.deps.ProductLedger.SetStatusByExternalID(ctx, externalID, catalog.StatusPublished); err != nil {
		return err
	}
	s.logger.Info("product published", zap.String("external_id", externalID))
	return nil
}

func (s *service) Unpublish(ctx context.Context, externalID string) (err error) {
	defer func() { s.finish(workflowUnpublish, err) }()
	if _, err := s.deps.Products.InternalID(ctx, externalID); err != nil {
		return err
	}
	if err := s.deps.Catalog.UnpublishDocument(ctx, externalID); err != nil {
		return err
	}
	if err := s.deps.ProductLedger.SetStatusByExternalID(ctx, externalID, catalog.StatusDraft); err != nil {
		return err
	}
	s.logger.Info("product unpublished", zap.String("external_id", externalID))
	return nil
}

// DeleteProduct removes the remote product and then the local one. The
// local delete happens even when the remote call fails; the remote error
// is still returned.
func (s *service) DeleteProduct(ctx context.Context, externalID string) (err error) {
	defer func() { s.finish(workflowDelete, err) }()

	remoteErr := s.deps.Catalog.DeleteDocument(ctx, externalID)
	if remoteErr != nil && !errors.Is(remoteErr, catalog.ErrNotFound) {
		s.logger.Warn("remote delete failed", zap.String("external_id", externalID), zap.Error(remoteErr))
	} else {
		remoteErr = nil
	}
	deleted, err := s.deps.Products.DeleteByExternalID(ctx, externalID)
	if err != nil {
		return err
	}
	s.mockupsInvalidate(externalID)
	if !deleted {
		return fmt.Errorf("%w: product %s", catalog.ErrNotFound, externalID)
	}
	s.logger.Info("product deleted", zap.String("external_id", externalID))
	return remoteErr
}

// DeleteAllProducts deletes every stored product, running up to
// Deps.Workers deletions at once. Individual failures are collected into
// the report rather than aborting the run.
func (s *service) DeleteAllProducts(ctx context.Context) (_ DeleteReport, err error) {
	defer func() { s.finish(workflowDeleteAll, err) }()

	items, err := s.deps.Products.List(ctx, catalog.ListFilter{})
	if err != nil {
		return DeleteReport{}, err
	}
	s.logger.Info("deleting all products", zap.Int("count", len(items)))

	var (
		mu     sync.Mutex
		report DeleteReport
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.deps.Workers)
	for _, item := range items {
		id := item.ExternalID
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			remoteErr := s.deps.Catalog.DeleteDocument(gctx, id)
			if remoteErr != nil && !errors.Is(remoteErr, catalog.ErrNotFound) {
				s.logger.Warn("remote delete failed", zap.String("external_id", id), zap.Error(remoteErr))
			} else {
				remoteErr = nil
			}
			deleted, localErr := s.deps.Products.DeleteByExternalID(gctx, id)
			s.mockupsInvalidate(id)

			mu.Lock()
			defer mu.Unlock()
			if remoteErr != nil {
				report.RemoteFailures = append(report.RemoteFailures, id)
			}
			switch {
			case localErr != nil:
				s.logger.Error("local delete failed", zap.String("external_id", id), zap.Error(localErr))
				report.LocalFailures = append(report.LocalFailures, id)
			case deleted:
				report.Deleted++
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return report, err
	}
	s.logger.Info("bulk delete finished",
		zap.Int("deleted", report.Deleted),
		zap.Int("remote_failures", len(report.RemoteFailures)),
		zap.Int("local_failures", len(report.LocalFailures)))
	return report, nil
}

func (s *service) mockupsInvalidate(externalID string) {
	if inv, ok := s.deps.Mockups.(interface{ Invalidate(string) }); ok {
		inv.Invalidate(externalID)
	}
}

func (s *service) repo(kind catalog.Kind) (catalog.Repository, catalog.StatusLedger, error) {
	switch kind {
	case catalog.KindTemplate:
		return s.deps.Templates, s.deps.TemplateLedger, nil
	case catalog.KindProduct:
		return s.deps.Products, s.deps.ProductLedger, nil
	}
	return nil, nil, fmt.Errorf("unknown document kind %q", kind)
}

func (s *service) List(ctx context.Context, kind catalog.Kind, filter catalog.ListFilter) (Listing, error) {
	repo, _, err := s.repo(kind)
	if err != nil {
		return Listing{}, err
	}
	if filter.Status != "" && !filter.Status.Valid() {
		return Listing{}, fmt.Errorf("%w: %q", catalog.ErrInvalidStatus, filter.Status)
	}
	items, err := repo.List(ctx, filter)
	if err != nil {
		return Listing{}, err
	}
	total, err := repo.Count(ctx, filter)
	if err != nil {
		return Listing{}, err
	}
	if items == nil {
		items = []*catalog.Summary{}
	}
	return Listing{Items: items, Total: total}, nil
}

// Get returns the stored document. A product's mockup is looked up with
// a short deadline and left empty when unavailable.
func (s *service) Get(ctx context.Context, kind catalog.Kind, externalID string) (*Document, error) {
	repo, ledger, err := s.repo(kind)
	if err != nil {
		return nil, err
	}
	agg, err := repo.Fetch(ctx, externalID)
	if err != nil {
		return nil, err
	}
	doc := &Document{Aggregate: agg}
	if st, err := ledger.Status(ctx, agg.InternalID); err == nil {
		doc.Status = st
	} else if !errors.Is(err, catalog.ErrNotFound) {
		return nil, err
	}
	if kind == catalog.KindProduct && s.deps.Mockups != nil {
		mctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		url, err := s.deps.Mockups.MockupURL(mctx, externalID)
		if err != nil {
			s.logger.Debug("mockup unavailable", zap.String("external_id", externalID), zap.Error(err))
		}
		doc.MockupURL = url
	}
	return doc, nil
}

func (s *service) Update(ctx context.Context, kind catalog.Kind, externalID string, update catalog.CoreUpdate) (*Document, error) {
	repo, _, err := s.repo(kind)
	if err != nil {
		return nil, err
	}
	if err := repo.UpdateCore(ctx, externalID, update); err != nil {
		return nil, err
	}
	return s.Get(ctx, kind, externalID)
}

// Delete removes a document. Products are also deleted remotely;
// templates only exist locally.
func (s *service) Delete(ctx context.Context, kind catalog.Kind, externalID string) error {
	if kind == catalog.KindProduct {
		return s.DeleteProduct(ctx, externalID)
	}
	repo, _, err := s.repo(kind)
	if err != nil {
		return err
	}
	deleted, err := repo.DeleteByExternalID(ctx, externalID)
	if err != nil {
		return err
	}
	if !deleted {
		return fmt.Errorf("%w: %s %s", catalog.ErrNotFound, kind, externalID)
	}
	return nil
}
