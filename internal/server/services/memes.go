// Package services contains server-side business logic: read access to
// memes, categories and users, the upload pipeline and CDN lookups.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jensmemes/memeserver/internal/common"
	"github.com/jensmemes/memeserver/internal/dbx"
	"github.com/jensmemes/memeserver/internal/server/models"
	"github.com/jensmemes/memeserver/internal/server/repositories/repomanager"
)

const (
	msgMemeNotFound     = "Meme not found"
	msgCategoryNotFound = "Category not found"
	msgUserNotFound     = "User not found"
)

// notFound turns a repository miss into a client-facing 404 error.
func notFound(err error, msg string) error {
	if errors.Is(err, common.ErrorNotFound) {
		return common.NewRequestError(common.ErrorNotFound, msg)
	}
	return err
}

// MemeService is the read side of the site plus the transactional insert
// used by uploads.
type MemeService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
}

func NewMemeService(db *sql.DB, m repomanager.RepositoryManager) *MemeService {
	return &MemeService{db: db, repomanager: m}
}

func (s *MemeService) GetMeme(ctx context.Context, id int64) (*models.Meme, error) {
	m, err := s.repomanager.Memes(s.db).Get(ctx, id)
	if err != nil {
		return nil, notFound(err, msgMemeNotFound)
	}
	return m, nil
}

func (s *MemeService) ListMemes(ctx context.Context, f models.MemeFilter) ([]models.Meme, error) {
	return s.repomanager.Memes(s.db).List(ctx, f)
}

func (s *MemeService) RandomMeme(ctx context.Context, f models.MemeFilter) (*models.Meme, error) {
	m, err := s.repomanager.Memes(s.db).Random(ctx, f)
	if err != nil {
		return nil, notFound(err, msgMemeNotFound)
	}
	return m, nil
}

func (s *MemeService) CountMemes(ctx context.Context, f models.MemeFilter) (int64, error) {
	return s.repomanager.Memes(s.db).Count(ctx, f)
}

// LatestMeme resolves a CDN path; the newest row wins when a user stored
// the same filename more than once.
func (s *MemeService) LatestMeme(ctx context.Context, userID, filename string) (*models.Meme, error) {
	m, err := s.repomanager.Memes(s.db).Latest(ctx, userID, filename)
	if err != nil {
		return nil, notFound(err, msgMemeNotFound)
	}
	return m, nil
}

func (s *MemeService) GetCategory(ctx context.Context, id string) (*models.Category, error) {
	c, err := s.repomanager.Categories(s.db).Get(ctx, id)
	if err != nil {
		return nil, notFound(err, msgCategoryNotFound)
	}
	return c, nil
}

func (s *MemeService) ListCategories(ctx context.Context) ([]models.Category, error) {
	return s.repomanager.Categories(s.db).List(ctx)
}

func (s *MemeService) GetUser(ctx context.Context, ident models.UserIdentifier) (*models.User, error) {
	u, err := s.repomanager.Users(s.db).Get(ctx, ident)
	if err != nil {
		return nil, notFound(err, msgUserNotFound)
	}
	return u, nil
}

func (s *MemeService) ListUsers(ctx context.Context) ([]models.User, error) {
	return s.repomanager.Users(s.db).List(ctx)
}

// InsertMeme stores a row and reads back its id in one transaction, so a
// failure in either step leaves nothing behind.
func (s *MemeService) InsertMeme(ctx context.Context, nm *models.NewMeme) (int64, error) {
	var id int64

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Memes(tx)

		if err := repo.Insert(ctx, nm); err != nil {
			return err
		}

		var err error
		id, err = repo.LastInsertID(ctx)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("insert meme %s/%s: %w", nm.UserID, nm.Filename, err)
	}

	return id, nil
}
