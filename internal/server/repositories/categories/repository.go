package categories

import (
	"context"

	"github.com/jensmemes/memeserver/internal/server/models"
)

type Repository interface {
	Get(ctx context.Context, id string) (*models.Category, error)
	// List returns every category in display order.
	List(ctx context.Context) ([]models.Category, error)
}
