package services

import (
	"context"
	"fmt"
	"io"
	"mime"
	"path"

	"github.com/jensmemes/memeserver/internal/server/blobstore"
)

const defaultContentType = "application/octet-stream"

// CDNFile is a meme being streamed to a browser. Body must be closed.
type CDNFile struct {
	Body        io.ReadCloser
	Size        int64
	ContentType string
}

type CDNService struct {
	memes *MemeService
	store blobstore.Store
}

func NewCDNService(memes *MemeService, store blobstore.Store) *CDNService {
	return &CDNService{memes: memes, store: store}
}

func (s *CDNService) Open(ctx context.Context, userID, filename string) (*CDNFile, error) {
	m, err := s.memes.LatestMeme(ctx, userID, filename)
	if err != nil {
		return nil, err
	}

	obj, err := s.store.Fetch(ctx, m.ContentID)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", m.ContentID, err)
	}

	return &CDNFile{Body: obj.Body, Size: obj.Size, ContentType: ContentType(filename)}, nil
}

// ContentType guesses a MIME type from the filename extension.
func ContentType(filename string) string {
	if t := mime.TypeByExtension(path.Ext(filename)); t != "" {
		return t
	}
	return defaultContentType
}
