// Package printify is the HTTP adapter for the print-on-demand catalog API.
package printify

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/georgemunganga/printa-catalog/internal/modules/catalog"
	"github.com/georgemunganga/printa-catalog/internal/platform/observability"
)

// DefaultBaseURL is the public API root.
const DefaultBaseURL = "https://api.printify.com/v1"

var errDecode = errors.New("decode response")

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Method string
	Path   string
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.Path, e.Status, e.Body)
}

// Is maps 404 responses onto catalog.ErrNotFound.
func (e *StatusError) Is(target error) bool {
	return target == catalog.ErrNotFound && e.Status == http.StatusNotFound
}

// retryable reports whether the request may be sent again. A throttled
// request was never processed; a server error on a POST may have been.
func (e *StatusError) retryable() bool {
	if e.Status == http.StatusTooManyRequests {
		return true
	}
	return e.Status >= 500 && idempotent(e.Method)
}

func idempotent(method string) bool {
	return method != http.MethodPost && method != http.MethodPatch
}

// Client talks to one shop of the catalog API.
type Client struct {
	baseURL      string
	token        string
	shopID       string
	http         *http.Client
	limiter      *rate.Limiter
	logger       *zap.Logger
	maxRetries   uint64
	retryInitial time.Duration
}

// Option configures a Client.
type Option func(*Client)

func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

func WithLogger(l *zap.Logger) Option {
	return func(c *Client) { c.logger = observability.OrNop(l) }
}

// WithRateLimit paces outgoing requests. The API allows 600 per minute.
func WithRateLimit(l *rate.Limiter) Option {
	return func(c *Client) { c.limiter = l }
}

// WithRetry sets how often throttled or failed requests are retried and
// the first back-off interval.
func WithRetry(maxRetries uint64, initial time.Duration) Option {
	return func(c *Client) {
		c.maxRetries = maxRetries
		c.retryInitial = initial
	}
}

// New returns a client authenticating with token against shopID.
func New(token, shopID string, opts ...Option) *Client {
	c := &Client{
		baseURL:      DefaultBaseURL,
		token:        token,
		shopID:       shopID,
		http:         &http.Client{Timeout: 60 * time.Second},
		limiter:      rate.NewLimiter(rate.Every(100*time.Millisecond), 5),
		logger:       zap.NewNop(),
		maxRetries:   3,
		retryInitial: 500 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) productPath(externalID string) string {
	return "/shops/" + url.PathEscape(c.shopID) + "/products/" + url.PathEscape(externalID) + ".json"
}

// FetchDocument returns the untyped wire form of a product.
func (c *Client) FetchDocument(ctx context.Context, externalID string) (map[string]any, error) {
	var doc map[string]any
	if err := c.do(ctx, http.MethodGet, c.productPath(externalID), nil, &doc); err != nil {
		return nil, fmt.Errorf("fetch product %s: %w", externalID, err)
	}
	return doc, nil
}

// CreateDocument creates a product and returns the id the API assigned.
func (c *Client) CreateDocument(ctx context.Context, payload catalog.CreatePayload) (string, error) {
	var created struct {
		ID string `json:"id"`
	}
	path := "/shops/" + url.PathEscape(c.shopID) + "/products.json"
	if err := c.do(ctx, http.MethodPost, path, payload, &created); err != nil {
		return "", fmt.Errorf("create product: %w", err)
	}
	if created.ID == "" {
		return "", errors.New("create product: response carried no id")
	}
	c.logger.Info("product created", zap.String("external_id", created.ID))
	return created.ID, nil
}

func (c *Client) DeleteDocument(ctx context.Context, externalID string) error {
	if err := c.do(ctx, http.MethodDelete, c.productPath(externalID), nil, nil); err != nil {
		return fmt.Errorf("delete product %s: %w", externalID, err)
	}
	return nil
}

func (c *Client) PublishDocument(ctx context.Context, externalID string, flags catalog.PublishFlags) error {
	path := "/shops/" + url.PathEscape(c.shopID) + "/products/" + url.PathEscape(externalID) + "/publish.json"
	if err := c.do(ctx, http.MethodPost, path, flags, nil); err != nil {
		return fmt.Errorf("publish product %s: %w", externalID, err)
	}
	return nil
}

// UnpublishDocument takes the product off its sales channel.
func (c *Client) UnpublishDocument(ctx context.Context, externalID string) error {
	path := "/shops/" + url.PathEscape(c.shopID) + "/products/" + url.PathEscape(externalID) + "/unpublish.json"
	if err := c.do(ctx, http.MethodPost, path, nil, nil); err != nil {
		return fmt.Errorf("unpublish product %s: %w", externalID, err)
	}
	return nil
}

// UploadImage sends contents base64-encoded and returns the stored image.
func (c *Client) UploadImage(ctx context.Context, fileName string, contents []byte) (catalog.ImageRef, error) {
	body := map[string]string{
		"file_name": fileName,
		"contents":  base64.StdEncoding.EncodeToString(contents),
	}
	var ref catalog.ImageRef
	if err := c.do(ctx, http.MethodPost, "/uploads/images.json", body, &ref); err != nil {
		return catalog.ImageRef{}, fmt.Errorf("upload image %s: %w", fileName, err)
	}
	if ref.ID == "" {
		return catalog.ImageRef{}, fmt.Errorf("upload image %s: response carried no id", fileName)
	}
	return ref, nil
}

// ListDocuments returns one page of the shop's products. The API caps
// limit at 50.
func (c *Client) ListDocuments(ctx context.Context, page, limit int) (catalog.DocumentPage, error) {
	q := url.Values{}
	q.Set("page", strconv.Itoa(max(page, 1)))
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	path := "/shops/" + url.PathEscape(c.shopID) + "/products.json?" + q.Encode()
	var p catalog.DocumentPage
	if err := c.do(ctx, http.MethodGet, path, nil, &p); err != nil {
		return catalog.DocumentPage{}, fmt.Errorf("list products: %w", err)
	}
	return p, nil
}

// MockupURL returns the src of the first mockup image of a product.
func (c *Client) MockupURL(ctx context.Context, externalID string) (string, error) {
	var doc struct {
		Images []struct {
			Src string `json:"src"`
		} `json:"images"`
	}
	if err := c.do(ctx, http.MethodGet, c.productPath(externalID), nil, &doc); err != nil {
		return "", fmt.Errorf("fetch mockups %s: %w", externalID, err)
	}
	if len(doc.Images) == 0 || doc.Images[0].Src == "" {
		return "", fmt.Errorf("%w: no mockup for %s", catalog.ErrNotFound, externalID)
	}
	return doc.Images[0].Src, nil
}

// do sends one request with exponential back-off. Throttled requests are
// always retried; server and transport failures only for idempotent
// methods, so a create that timed out is not sent twice. out may be nil
// when the body is not needed.
func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var payload []byte
	if in != nil {
		var err error
		if payload, err = json.Marshal(in); err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = c.retryInitial
	retrier := backoff.WithContext(backoff.WithMaxRetries(policy, c.maxRetries), ctx)

	attempt := 0
	return backoff.Retry(func() error {
		attempt++
		if err := c.limiter.Wait(ctx); err != nil {
			return backoff.Permanent(err)
		}
		err := c.roundTrip(ctx, method, path, payload, out)
		var se *StatusError
		switch {
		case err == nil:
			return nil
		case errors.As(err, &se) && se.retryable():
			c.logger.Warn("catalog api retry", zap.String("method", method), zap.String("path", path),
				zap.Int("status", se.Status), zap.Int("attempt", attempt))
			return err
		case errors.As(err, &se), errors.Is(err, errDecode), ctx.Err() != nil:
			return backoff.Permanent(err)
		case !idempotent(method):
			c.logger.Warn("catalog api transport error, not retrying", zap.String("method", method),
				zap.String("path", path), zap.Error(err))
			return backoff.Permanent(err)
		default:
			c.logger.Warn("catalog api transport error", zap.String("path", path), zap.Error(err))
			return err
		}
	}, retrier)
}

func (c *Client) roundTrip(ctx context.Context, method, path string, payload []byte, out any) error {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &StatusError{Method: method, Path: path, Status: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: %v", errDecode, err)
	}
	return nil
}
