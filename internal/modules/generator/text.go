// Package generator produces marketing copy and artwork for generated
// products.
package generator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/georgemunganga/printa-catalog/internal/platform/observability"
)

// BulletCount is how many bullet points a listing carries.
const BulletCount = 5

// Brief names the sales channel and product the copy is written for.
type Brief struct {
	StoreName   string `json:"store_name"`
	ProductType string `json:"product_type"`
}

// TextGenerator writes listing copy through a Completer and, when a
// Painter is set, artwork.
type TextGenerator struct {
	completer  Completer
	painter    Painter
	downloader *http.Client
	logger     *zap.Logger
}

// TextOption configures a TextGenerator.
type TextOption func(*TextGenerator)

// WithDownloadClient sets the client that fetches painted images.
func WithDownloadClient(c *http.Client) TextOption {
	return func(g *TextGenerator) { g.downloader = c }
}

// NewTextGenerator returns a generator. painter may be nil when images are
// never requested.
func NewTextGenerator(completer Completer, painter Painter, logger *zap.Logger, opts ...TextOption) *TextGenerator {
	g := &TextGenerator{
		completer:  completer,
		painter:    painter,
		downloader: &http.Client{Timeout: 2 * time.Minute},
		logger:     observability.OrNop(logger),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// GenerateDesignPrompt asks for a prompt to feed the image model.
func (g *TextGenerator) GenerateDesignPrompt(ctx context.Context) (string, error) {
	return g.completer.Complete(ctx, Prompt{
		System: "You are an AI that helps generate creative prompts for psychedelic and fractal art.",
		User: "Generate a highly creative and detailed prompt for an AI image generator to create a trippy, vibrant fractal image. " +
			"The prompt should emphasize psychedelic color schemes, intricate geometric patterns, surreal depth, and glowing, otherworldly aesthetics. " +
			"The goal is to create visually stunning and mind-bending fractal compositions that feel immersive and hypnotic.",
		MaxTokens:   150,
		Temperature: 0.9,
	})
}

// GenerateDescription writes an SEO-focused description for the design.
func (g *TextGenerator) GenerateDescription(ctx context.Context, brief Brief, designPrompt string) (string, error) {
	out, err := g.completer.Complete(ctx, Prompt{
		System: fmt.Sprintf("You are an AI that helps generate creative and SEO-focused product descriptions for %ss sold on %s. "+
			"You have a strong focus on %s SEO. Using the description of the products design, generate a unique, engaging, and SEO-heavy product description.",
			brief.ProductType, brief.StoreName, brief.StoreName),
		User:        designPrompt,
		MaxTokens:   700,
		Temperature: 0.7,
	})
	if err != nil {
		return "", fmt.Errorf("generate description: %w", err)
	}
	return strings.TrimSpace(out), nil
}

var titleNoise = regexp.MustCompile(`[\d"|'.\-]`)

// GenerateTitle writes a listing title from a description. The model's
// answer is stripped of digits, quotes, dots and dashes and prefixed with
// the product type.
func (g *TextGenerator) GenerateTitle(ctx context.Context, brief Brief, description string) (string, error) {
	out, err := g.completer.Complete(ctx, Prompt{
		System: fmt.Sprintf("You are an AI that helps generate creative product titles for %ss. "+
			"You have a strong focus on SEO. Using the provided description, generate a single unique title for a %s listing that is under 125 characters.",
			brief.ProductType, brief.StoreName),
		User:        description,
		MaxTokens:   60,
		Temperature: 0.7,
	})
	if err != nil {
		return "", fmt.Errorf("generate title: %w", err)
	}
	clean := strings.Join(strings.Fields(titleNoise.ReplaceAllString(out, "")), " ")
	if clean == "" {
		return "", errors.New("generate title: empty completion")
	}
	return capitalize(brief.ProductType) + " - " + clean, nil
}

// GenerateBulletPoints returns exactly BulletCount bullet points. Short
// answers are padded and unparseable ones replaced with generic copy; only
// cancellation is reported as an error.
func (g *TextGenerator) GenerateBulletPoints(ctx context.Context, brief Brief, description string) ([]string, error) {
	out, err := g.completer.Complete(ctx, Prompt{
		System: fmt.Sprintf("You are an AI that helps generate creative and SEO-focused product bullet points for products sold on %s. "+
			"You have a strong focus on %s SEO. Using the description of the product, generate 5 unique, engaging, and SEO-heavy product bullet points. "+
			"Each bullet point should be under 300 characters and highlight a different aspect of the product while utilizing SEO keywords. "+
			"Format your response as a JSON array with exactly 5 strings, each string being a bullet point.",
			brief.StoreName, brief.StoreName),
		User:        description,
		MaxTokens:   350,
		Temperature: 0.7,
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		g.logger.Warn("bullet point completion failed, using fallback", zap.Error(err))
		return fallbackBullets(brief.ProductType), nil
	}

	bullets, err := parseBullets(out)
	if err != nil {
		g.logger.Warn("unparseable bullet points, using fallback", zap.Error(err), zap.String("raw", out))
		return fallbackBullets(brief.ProductType), nil
	}
	if len(bullets) > BulletCount {
		bullets = bullets[:BulletCount]
	}
	for len(bullets) < BulletCount {
		bullets = append(bullets, fmt.Sprintf("Premium quality %s for everyday use", brief.ProductType))
	}
	return bullets, nil
}

// GenerateImage returns the URL of an image painted for prompt.
func (g *TextGenerator) GenerateImage(ctx context.Context, prompt string) (string, error) {
	if g.painter == nil {
		return "", errors.New("generate image: no image model configured")
	}
	return g.painter.Paint(ctx, prompt)
}

// parseBullets extracts the first JSON array of strings from raw.
func parseBullets(raw string) ([]string, error) {
	text := strings.TrimSpace(raw)
	if !strings.HasPrefix(text, "[") {
		start, end := strings.Index(text, "["), strings.LastIndex(text, "]")
		if start < 0 || end <= start {
			return nil, errors.New("no json array in completion")
		}
		text = text[start : end+1]
	}
	var bullets []string
	if err := json.Unmarshal([]byte(text), &bullets); err != nil {
		return nil, err
	}
	return bullets, nil
}

func fallbackBullets(productType string) []string {
	return []string{
		"Premium quality " + productType,
		"Perfect gift for any occasion",
		"Durable and long-lasting design",
		"Unique and eye-catching appearance",
		"Satisfaction guaranteed",
	}
}

// capitalize upper-cases the first letter and lower-cases the rest.
func capitalize(s string) string {
	if s == "" {
		return s
	}
	r, size := utf8.DecodeRuneInString(s)
	return string(unicode.ToUpper(r)) + strings.ToLower(s[size:])
}
