// Package memes owns the SQL for the memes table.
package memes

import (
	"context"

	"github.com/jensmemes/memeserver/internal/server/models"
)

type Repository interface {
	Get(ctx context.Context, id int64) (*models.Meme, error)
	List(ctx context.Context, f models.MemeFilter) ([]models.Meme, error)
	Random(ctx context.Context, f models.MemeFilter) (*models.Meme, error)
	Count(ctx context.Context, f models.MemeFilter) (int64, error)
	// Latest returns the newest meme a user stored under filename.
	Latest(ctx context.Context, userID, filename string) (*models.Meme, error)
	Insert(ctx context.Context, m *models.NewMeme) error
	// LastInsertID reads the id generated by the previous Insert on the
	// same connection, so both calls must share a transaction.
	LastInsertID(ctx context.Context) (int64, error)
}
