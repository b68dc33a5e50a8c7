package generator

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/georgemunganga/printa-catalog/internal/platform/observability"
)

const (
	DefaultOpenAIBaseURL = "https://api.openai.com/v1"
	DefaultTextModel     = "gpt-3.5-turbo"
	DefaultImageModel    = "dall-e-3"
)

// Prompt is one chat completion request.
type Prompt struct {
	System      string
	User        string
	MaxTokens   int
	Temperature float64
}

// Completer produces text for a prompt.
type Completer interface {
	Complete(ctx context.Context, p Prompt) (string, error)
}

// Painter produces an image for a prompt and returns its URL.
type Painter interface {
	Paint(ctx context.Context, prompt string) (string, error)
}

// OpenAI implements Completer and Painter over the OpenAI REST API.
type OpenAI struct {
	baseURL    string
	apiKey     string
	textModel  string
	imageModel string
	http       *http.Client
	logger     *zap.Logger
}

// OpenAIConfig holds the adapter settings. Empty fields take defaults.
type OpenAIConfig struct {
	BaseURL    string
	APIKey     string
	TextModel  string
	ImageModel string
	HTTPClient *http.Client
	Logger     *zap.Logger
}

func NewOpenAI(cfg OpenAIConfig) *OpenAI {
	o := &OpenAI{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		textModel:  cfg.TextModel,
		imageModel: cfg.ImageModel,
		http:       cfg.HTTPClient,
		logger:     observability.OrNop(cfg.Logger),
	}
	if o.baseURL == "" {
		o.baseURL = DefaultOpenAIBaseURL
	}
	if o.textModel == "" {
		o.textModel = DefaultTextModel
	}
	if o.imageModel == "" {
		o.imageModel = DefaultImageModel
	}
	if o.http == nil {
		o.http = &http.Client{Timeout: 90 * time.Second}
	}
	return o
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

func (o *OpenAI) Complete(ctx context.Context, p Prompt) (string, error) {
	req := struct {
		Model       string        `json:"model"`
		Messages    []chatMessage `json:"messages"`
		MaxTokens   int           `json:"max_tokens,omitempty"`
		N           int           `json:"n"`
		Temperature float64       `json:"temperature"`
	}{
		Model: o.textModel,
		Messages: []chatMessage{
			{Role: "system", Content: p.System},
			{Role: "user", Content: p.User},
		},
		MaxTokens:   p.MaxTokens,
		N:           1,
		Temperature: p.Temperature,
	}
	var resp struct {
		Choices []struct {
			Message chatMessage `json:"message"`
		} `json:"choices"`
	}
	if err := o.post(ctx, "/chat/completions", req, &resp); err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("chat completion: no choices returned")
	}
	return resp.Choices[0].Message.Content, nil
}

func (o *OpenAI) Paint(ctx context.Context, prompt string) (string, error) {
	req := map[string]any{
		"prompt":  prompt,
		"model":   o.imageModel,
		"size":    "1792x1024",
		"quality": "hd",
		"n":       1,
	}
	var resp struct {
		Data []struct {
			URL string `json:"url"`
		} `json:"data"`
	}
	if err := o.post(ctx, "/images/generations", req, &resp); err != nil {
		return "", fmt.Errorf("image generation: %w", err)
	}
	if len(resp.Data) == 0 || resp.Data[0].URL == "" {
		return "", errors.New("image generation: no image returned")
	}
	return resp.Data[0].URL, nil
}

func (o *OpenAI) post(ctx context.Context, path string, in, out any) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+o.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		o.logger.Warn("openai request failed", zap.String("path", path), zap.Int("status", resp.StatusCode))
		return fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
