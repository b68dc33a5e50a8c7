// Command printcore runs the catalog workflows from the command line.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/georgemunganga/printa-catalog/internal/app"
	"github.com/georgemunganga/printa-catalog/internal/modules/catalog"
	"github.com/georgemunganga/printa-catalog/internal/modules/studio"
	"github.com/georgemunganga/printa-catalog/internal/platform/config"
	"github.com/georgemunganga/printa-catalog/internal/platform/observability"
)

const usage = `usage: printcore <command> [flags]

commands:
  import-template      -id ID                 fetch a remote document and store it as a template
  import-shop                                 store every product of the remote shop as a template
  generate-product     -template ID [-prompt TEXT] [-artwork FILE] [-tags a,b]
                                              derive a draft product from a stored template;
                                              artwork is painted when -artwork is omitted
  publish-draft                               publish the newest draft product
  delete-all-products                         delete every product remotely and locally
  show                 -kind KIND -id ID      print a stored document as JSON
`

var errUsage = errors.New("invalid usage")

type command func(ctx context.Context, svc studio.Service, args []string, out io.Writer) error

var commands = map[string]command{
	"import-template":     importTemplate,
	"import-shop":         importShop,
	"generate-product":    generateProduct,
	"publish-draft":       publishDraft,
	"delete-all-products": deleteAllProducts,
	"show":                show,
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, os.Args[1:], os.Stdout)
	stop()
	if errors.Is(err, errUsage) {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "printcore:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, out io.Writer) error {
	if len(args) == 0 {
		return errUsage
	}
	cmd, ok := commands[args[0]]
	if !ok {
		return fmt.Errorf("%w: unknown command %q", errUsage, args[0])
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := observability.NewLogger(cfg.LogLevel)
	defer logger.Sync()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	return cmd(ctx, a.Studio, args[1:], out)
}

func importTemplate(ctx context.Context, svc studio.Service, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("import-template", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	id := fs.String("id", "", "remote document id")
	if err := fs.Parse(args); err != nil || *id == "" {
		return fmt.Errorf("%w: import-template needs -id", errUsage)
	}
	tpl, err := svc.ImportTemplate(ctx, *id)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "imported template %s (%d variants)\n", tpl.ExternalID, len(tpl.Variants))
	return nil
}

func importShop(ctx context.Context, svc studio.Service, _ []string, out io.Writer) error {
	report, err := svc.ImportShop(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "imported %d templates\n", report.Imported)
	for _, id := range report.Failures {
		fmt.Fprintf(out, "  import failed: %s\n", id)
	}
	return nil
}

func generateProduct(ctx context.Context, svc studio.Service, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("generate-product", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	templateID := fs.String("template", "", "stored template id")
	prompt := fs.String("prompt", "", "design prompt; generated when empty")
	artworkPath := fs.String("artwork", "", "design file to place on every print position")
	tags := fs.String("tags", "", "comma separated tags replacing the template's")
	productType := fs.String("type", "", "product type used in the listing copy")
	if err := fs.Parse(args); err != nil || *templateID == "" {
		return fmt.Errorf("%w: generate-product needs -template", errUsage)
	}

	req := studio.GenerateRequest{
		TemplateID:   *templateID,
		DesignPrompt: *prompt,
		ProductType:  *productType,
		Tags:         splitTags(*tags),
	}
	if *artworkPath != "" {
		data, err := os.ReadFile(*artworkPath)
		if err != nil {
			return fmt.Errorf("read artwork: %w", err)
		}
		req.Artwork = &studio.Upload{FileName: filepath.Base(*artworkPath), Data: data}
	}

	product, err := svc.GenerateProduct(ctx, req)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "created draft %s: %s\n", product.ExternalID, product.Title)
	return nil
}

func splitTags(raw string) []string {
	var tags []string
	for _, t := range strings.Split(raw, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

func publishDraft(ctx context.Context, svc studio.Service, _ []string, out io.Writer) error {
	id, err := svc.PublishLatestDraft(ctx)
	if errors.Is(err, catalog.ErrNotFound) {
		fmt.Fprintln(out, "no draft products to publish")
		return nil
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "published %s\n", id)
	return nil
}

func deleteAllProducts(ctx context.Context, svc studio.Service, _ []string, out io.Writer) error {
	report, err := svc.DeleteAllProducts(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "deleted %d products\n", report.Deleted)
	for _, id := range report.RemoteFailures {
		fmt.Fprintf(out, "  remote delete failed: %s\n", id)
	}
	for _, id := range report.LocalFailures {
		fmt.Fprintf(out, "  local delete failed: %s\n", id)
	}
	if len(report.LocalFailures) > 0 {
		return fmt.Errorf("%d products could not be removed locally", len(report.LocalFailures))
	}
	return nil
}

func show(ctx context.Context, svc studio.Service, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("show", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	rawKind := fs.String("kind", "product", "template or product")
	id := fs.String("id", "", "document id")
	if err := fs.Parse(args); err != nil || *id == "" {
		return fmt.Errorf("%w: show needs -id", errUsage)
	}
	kind, err := catalog.ParseKind(*rawKind)
	if err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	doc, err := svc.Get(ctx, kind, *id)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}
