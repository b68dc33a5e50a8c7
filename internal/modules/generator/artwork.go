package generator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"

	"go.uber.org/zap"
)

// MaxArtworkBytes bounds a downloaded image.
const MaxArtworkBytes = 20 << 20

// Artwork is a painted design ready to be uploaded.
type Artwork struct {
	FileName string
	Data     []byte
	// SourceURL is where the image model published the design.
	SourceURL string
}

// GenerateArtwork paints an image for prompt and downloads it.
func (g *TextGenerator) GenerateArtwork(ctx context.Context, prompt string) (Artwork, error) {
	src, err := g.GenerateImage(ctx, prompt)
	if err != nil {
		return Artwork{}, err
	}
	data, err := g.download(ctx, src)
	if err != nil {
		return Artwork{}, fmt.Errorf("download artwork: %w", err)
	}
	art := Artwork{FileName: artworkName(src), Data: data, SourceURL: src}
	g.logger.Info("artwork generated", zap.String("file_name", art.FileName), zap.Int("size", len(data)))
	return art, nil
}

func (g *TextGenerator) download(ctx context.Context, src string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
	if err != nil {
		return nil, err
	}
	resp, err := g.downloader.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxArtworkBytes+1))
	if err != nil {
		return nil, err
	}
	switch {
	case len(data) == 0:
		return nil, errors.New("empty image")
	case len(data) > MaxArtworkBytes:
		return nil, fmt.Errorf("image exceeds %d bytes", MaxArtworkBytes)
	}
	return data, nil
}

// artworkName keeps the image file name from the URL, falling back to a
// generic PNG name.
func artworkName(src string) string {
	u, err := url.Parse(src)
	if err != nil {
		return "generated_image.png"
	}
	name := path.Base(u.Path)
	switch strings.ToLower(path.Ext(name)) {
	case ".png", ".jpg", ".jpeg", ".webp":
		return name
	}
	return "generated_image.png"
}
