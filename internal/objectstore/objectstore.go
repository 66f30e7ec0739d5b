// Package objectstore defines the interface adapters use to read
// uploaded video bytes. The core never provisions object storage
// itself (explicitly out of scope); it only consumes this interface,
// which mirrors how the teacher treats email delivery and other
// external collaborators as injected interfaces rather than owned
// infrastructure.
package objectstore

import (
	"context"
	"io"
)

// Store resolves an object key to readable bytes and issues
// presigned upload URLs for client-side video upload completion.
type Store interface {
	// OpenRead returns a stream of the object's bytes. Callers must
	// close the returned ReadCloser.
	OpenRead(ctx context.Context, objectKey string) (io.ReadCloser, error)

	// PresignedPutURL returns a short-lived URL the client can PUT
	// video bytes to directly, used by the create_video_intent
	// operation's caller-facing flow.
	PresignedPutURL(ctx context.Context, objectKey string, contentType string) (string, error)
}
