package users

import (
	"context"

	"github.com/jensmemes/memeserver/internal/server/models"
)

type Repository interface {
	Get(ctx context.Context, ident models.UserIdentifier) (*models.User, error)
	List(ctx context.Context) ([]models.User, error)
}
