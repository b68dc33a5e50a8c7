package artwork

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/georgemunganga/printa-catalog/internal/modules/catalog"
)

// Filesystem keeps artwork under a local directory. Writes go to a temp
// file first and are renamed into place.
type Filesystem struct {
	root string
	now  func() time.Time
}

// NewFilesystem returns a store rooted at dir, creating it if needed.
func NewFilesystem(dir string) (*Filesystem, error) {
	if dir == "" {
		dir = "./artwork"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create artwork dir: %w", err)
	}
	return &Filesystem{root: dir, now: time.Now}, nil
}

func (f *Filesystem) Backend() Backend { return BackendFilesystem }

func (f *Filesystem) pathFor(key string) (string, error) {
	k, err := sanitizeKey(key)
	if err != nil {
		return "", err
	}
	return filepath.Join(f.root, filepath.FromSlash(k)), nil
}

func (f *Filesystem) Put(ctx context.Context, key string, r io.Reader, contentType string) (Object, error) {
	if err := ctx.Err(); err != nil {
		return Object{}, err
	}
	dst, err := f.pathFor(key)
	if err != nil {
		return Object{}, err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return Object{}, err
	}
	tmp, err := os.CreateTemp(filepath.Dir(dst), ".tmp-*")
	if err != nil {
		return Object{}, err
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	h := sha256.New()
	size, err := io.Copy(io.MultiWriter(tmp, h), r)
	if err != nil {
		_ = tmp.Close()
		return Object{}, fmt.Errorf("write artwork %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		return Object{}, err
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		return Object{}, fmt.Errorf("store artwork %s: %w", key, err)
	}
	return Object{
		Key:         key,
		Size:        size,
		ContentType: contentType,
		ETag:        hex.EncodeToString(h.Sum(nil)),
		StoredAt:    f.now().UTC(),
	}, nil
}

func (f *Filesystem) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	src, err := f.pathFor(key)
	if err != nil {
		return nil, err
	}
	file, err := os.Open(src)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("artwork %s: %w", key, catalog.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return file, nil
}
