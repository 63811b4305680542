// Package blobstore talks to the content-addressed storage that holds meme
// bytes. Rows in the memes table only keep the content id.
package blobstore

import (
	"context"
	"io"
)

// Object is a blob being streamed back to a client. The caller must close
// Body.
type Object struct {
	Body io.ReadCloser
	Size int64
}

// AddedFile is what the store reports after accepting a blob.
type AddedFile struct {
	ContentID string
	Name      string
	Size      int64
}

type Store interface {
	// Fetch opens the blob for reading. A store that cannot report the
	// blob size fails with common.ErrMissingContentLength.
	Fetch(ctx context.Context, contentID string) (*Object, error)
	// Add uploads r without pinning it.
	Add(ctx context.Context, name string, r io.Reader) (*AddedFile, error)
	// Pin asks the store to keep the blob beyond garbage collection.
	Pin(ctx context.Context, contentID string) error
}
