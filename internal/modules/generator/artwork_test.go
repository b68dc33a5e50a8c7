package generator

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedPainter struct {
	url    string
	prompt string
}

func (p *fixedPainter) Paint(_ context.Context, prompt string) (string, error) {
	p.prompt = prompt
	return p.url, nil
}

func TestGenerateArtworkDownloadsPaintedImage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/img/fractal-01.png":
			_, _ = w.Write([]byte("PNGDATA"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	painter := &fixedPainter{url: srv.URL + "/img/fractal-01.png?sig=abc"}
	g := NewTextGenerator(&scriptedCompleter{}, painter, nil, WithDownloadClient(srv.Client()))

	art, err := g.GenerateArtwork(context.Background(), "neon spirals")
	require.NoError(t, err)
	assert.Equal(t, "neon spirals", painter.prompt)
	assert.Equal(t, "fractal-01.png", art.FileName)
	assert.Equal(t, []byte("PNGDATA"), art.Data)
	assert.Equal(t, painter.url, art.SourceURL)

	painter.url = srv.URL + "/img/gone.png"
	_, err = g.GenerateArtwork(context.Background(), "p")
	assert.ErrorContains(t, err, "status 404")
}

func TestGenerateArtworkWithoutPainter(t *testing.T) {
	_, err := NewTextGenerator(&scriptedCompleter{}, nil, nil).GenerateArtwork(context.Background(), "p")
	assert.Error(t, err)
}

func TestArtworkName(t *testing.T) {
	assert.Equal(t, "a.jpeg", artworkName("https://cdn.example.com/x/a.jpeg?x=1"))
	assert.Equal(t, "generated_image.png", artworkName("https://cdn.example.com/blob/123"))
	assert.Equal(t, "generated_image.png", artworkName("::"))
}
