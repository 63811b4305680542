// Package notify announces new memes to the chat room bridged to the site.
package notify

import (
	"context"

	"github.com/jensmemes/memeserver/internal/server/models"
)

// Notifier posts a persisted meme somewhere people will see it. Failures are
// reported to the caller but never undo the upload.
type Notifier interface {
	MemeAdded(ctx context.Context, m *models.Meme) error
}

// NopNotifier is used when no chat bridge is configured.
type NopNotifier struct{}

func (NopNotifier) MemeAdded(context.Context, *models.Meme) error { return nil }
