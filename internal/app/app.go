// Package app assembles the studio service and its collaborators from
// the loaded configuration. Both binaries start here.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/georgemunganga/printa-catalog/internal/modules/artwork"
	"github.com/georgemunganga/printa-catalog/internal/modules/catalog"
	"github.com/georgemunganga/printa-catalog/internal/modules/generator"
	"github.com/georgemunganga/printa-catalog/internal/modules/ledger"
	"github.com/georgemunganga/printa-catalog/internal/modules/mockup"
	"github.com/georgemunganga/printa-catalog/internal/modules/printify"
	"github.com/georgemunganga/printa-catalog/internal/modules/store"
	"github.com/georgemunganga/printa-catalog/internal/modules/studio"
	"github.com/georgemunganga/printa-catalog/internal/platform/config"
	"github.com/georgemunganga/printa-catalog/internal/platform/database"
	"github.com/georgemunganga/printa-catalog/internal/platform/observability"
)

// initialStatus is the ledger state a document gets on its first upsert.
var initialStatus = map[catalog.Kind]catalog.Status{
	catalog.KindTemplate: catalog.StatusTemplate,
	catalog.KindProduct:  catalog.StatusDraft,
}

// App is the assembled runtime.
type App struct {
	DB        *database.DB
	Registry  *prometheus.Registry
	Metrics   *observability.Metrics
	Templates *store.Repository
	Products  *store.Repository
	Catalog   *printify.Client
	Studio    studio.Service
}

// New opens the database, prepares the schema and wires the studio.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger) (*App, error) {
	logger = observability.OrNop(logger)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := observability.NewMetrics(reg)

	db, err := database.Open(ctx, cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return nil, err
	}
	logger.Info("database connected", zap.String("driver", cfg.Database.Driver))

	repos := make(map[catalog.Kind]*store.Repository, 2)
	for _, kind := range []catalog.Kind{catalog.KindTemplate, catalog.KindProduct} {
		repo, err := store.New(db, kind,
			store.WithLogger(logger),
			store.WithMetrics(metrics),
			store.WithInitialStatus(initialStatus[kind]))
		if err != nil {
			_ = db.Close()
			return nil, err
		}
		if err := repo.EnsureSchema(ctx); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("ensure %s schema: %w", kind, err)
		}
		repos[kind] = repo
	}

	client := printify.New(cfg.Printify.APIKey, cfg.Printify.ShopID,
		printify.WithBaseURL(cfg.Printify.BaseURL),
		printify.WithRateLimit(rate.NewLimiter(rate.Limit(cfg.Printify.RequestsPerSecond), cfg.Printify.RequestsPerSecond)),
		printify.WithLogger(logger.Named("printify")),
	)

	openai := generator.NewOpenAI(generator.OpenAIConfig{
		BaseURL:    cfg.OpenAI.BaseURL,
		APIKey:     cfg.OpenAI.APIKey,
		TextModel:  cfg.OpenAI.Model,
		ImageModel: cfg.OpenAI.ImageModel,
		Logger:     logger.Named("openai"),
	})

	art, err := newArtworkStore(ctx, cfg.Artwork)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	content := generator.NewTextGenerator(openai, openai, logger.Named("generator"))

	svc := studio.NewService(studio.Deps{
		Templates:      repos[catalog.KindTemplate],
		Products:       repos[catalog.KindProduct],
		TemplateLedger: ledger.New(db, catalog.KindTemplate, logger),
		ProductLedger:  ledger.New(db, catalog.KindProduct, logger),
		Catalog:        client,
		Content:        content,
		Artist:         content,
		Artwork:        art,
		Mockups:        mockup.New(client, cfg.Mockup.CacheSize, cfg.Mockup.CacheTTL, logger.Named("mockup")),
		Metrics:        metrics,
		Logger:         logger.Named("studio"),
		Brief:          generator.Brief{StoreName: cfg.Studio.StoreName, ProductType: cfg.Studio.ProductType},
		Workers:        cfg.Studio.Workers,
	})

	return &App{
		DB:        db,
		Registry:  reg,
		Metrics:   metrics,
		Templates: repos[catalog.KindTemplate],
		Products:  repos[catalog.KindProduct],
		Catalog:   client,
		Studio:    svc,
	}, nil
}

func newArtworkStore(ctx context.Context, cfg config.ArtworkConfig) (artwork.Store, error) {
	switch artwork.Backend(cfg.Backend) {
	case artwork.BackendS3:
		ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
		return artwork.NewS3(ctx, artwork.S3Config{
			Bucket:    cfg.S3Bucket,
			Region:    cfg.S3Region,
			Endpoint:  cfg.S3Endpoint,
			PathStyle: cfg.S3PathStyle,
		})
	case artwork.BackendFilesystem, "":
		return artwork.NewFilesystem(cfg.Dir)
	}
	return nil, fmt.Errorf("unknown artwork backend %q", cfg.Backend)
}

// Close releases the database.
func (a *App) Close() error {
	return a.DB.Close()
}
