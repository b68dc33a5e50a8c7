// Package artwork archives uploaded design files before they are sent to the
// catalog API.
package artwork

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"path"
	"path/filepath"
	"strings"
	"time"
)

// Backend names a storage driver.
type Backend string

const (
	BackendFilesystem Backend = "fs"
	BackendS3         Backend = "s3"
)

// Object describes a stored artwork file.
type Object struct {
	Key         string    `json:"key"`
	Size        int64     `json:"size"`
	ContentType string    `json:"content_type,omitempty"`
	ETag        string    `json:"etag,omitempty"`
	StoredAt    time.Time `json:"stored_at"`
}

// Store persists artwork bytes under a key.
type Store interface {
	Backend() Backend
	Put(ctx context.Context, key string, r io.Reader, contentType string) (Object, error)
	// Get returns catalog.ErrNotFound when the key is absent.
	Get(ctx context.Context, key string) (io.ReadCloser, error)
}

// Key derives a content-addressed key from the file name and bytes, so
// archiving the same design twice lands on the same object.
func Key(fileName string, data []byte) string {
	sum := sha256.Sum256(data)
	ext := strings.ToLower(path.Ext(fileName))
	return "designs/" + hex.EncodeToString(sum[:])[:32] + ext
}

// ContentType guesses the media type from a file extension.
func ContentType(fileName string) string {
	switch strings.ToLower(path.Ext(fileName)) {
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".svg":
		return "image/svg+xml"
	case ".webp":
		return "image/webp"
	default:
		return "application/octet-stream"
	}
}

func sanitizeKey(key string) (string, error) {
	if strings.TrimSpace(key) == "" {
		return "", fmt.Errorf("empty key")
	}
	if strings.HasPrefix(key, "/") {
		return "", fmt.Errorf("invalid absolute key %q", key)
	}
	clean := filepath.ToSlash(filepath.Clean(key))
	if clean == ".." || strings.HasPrefix(clean, "../") || strings.Contains(key, "..") {
		return "", fmt.Errorf("invalid key %q", key)
	}
	return clean, nil
}
