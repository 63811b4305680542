package memes

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jensmemes/memeserver/internal/common"
	"github.com/jensmemes/memeserver/internal/dbx"
	"github.com/jensmemes/memeserver/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const selectMemes = `SELECT memes.id, memes.filename, memes.userid, users.name, memes.category, memes.timestamp, memes.cid
		 FROM memes INNER JOIN users ON users.id = memes.userid
		 `

const filterMemes = `WHERE memes.category LIKE $1 AND users.name LIKE $2 AND memes.filename LIKE $3
		 AND memes.userid LIKE $4 AND memes.id > $5
		 `

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// exact matches s literally, or anything when s is empty.
func exact(s string) string {
	if s == "" {
		return "%"
	}
	return likeEscaper.Replace(s)
}

func contains(s string) string {
	return "%" + likeEscaper.Replace(s) + "%"
}

func filterArgs(f models.MemeFilter) []any {
	return []any{exact(f.Category), contains(f.UserName), contains(f.Search), exact(f.UserID), f.After}
}

// limitArg maps the filter limit to the LIMIT parameter; NULL means no limit.
func limitArg(limit int) any {
	switch {
	case limit == models.Unlimited:
		return nil
	case limit <= 0:
		return models.DefaultLimit
	default:
		return limit
	}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanMeme(s scanner) (*models.Meme, error) {
	m := &models.Meme{}
	if err := s.Scan(&m.ID, &m.Filename, &m.UserID, &m.UserName, &m.CategoryID, &m.Timestamp, &m.ContentID); err != nil {
		return nil, err
	}
	return m, nil
}

func (r *PostgresRepository) queryOne(ctx context.Context, query string, args ...any) (*models.Meme, error) {
	m, err := scanMeme(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return m, nil
}

func (r *PostgresRepository) Get(ctx context.Context, id int64) (*models.Meme, error) {
	query := selectMemes + `WHERE memes.id = $1`
	return r.queryOne(ctx, query, id)
}

func (r *PostgresRepository) Latest(ctx context.Context, userID, filename string) (*models.Meme, error) {
	query := selectMemes +
		`WHERE memes.userid = $1 AND memes.filename = $2
		 ORDER BY memes.id DESC LIMIT 1`
	return r.queryOne(ctx, query, userID, filename)
}

func (r *PostgresRepository) Random(ctx context.Context, f models.MemeFilter) (*models.Meme, error) {
	query := selectMemes + filterMemes + `ORDER BY RANDOM() LIMIT 1`
	return r.queryOne(ctx, query, filterArgs(f)...)
}

func (r *PostgresRepository) List(ctx context.Context, f models.MemeFilter) ([]models.Meme, error) {
	query := selectMemes + filterMemes + `ORDER BY memes.id LIMIT $6`

	rows, err := r.db.QueryContext(ctx, query, append(filterArgs(f), limitArg(f.Limit))...)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	result := []models.Meme{}
	for rows.Next() {
		m, err := scanMeme(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}

// Count applies the same predicate as List without the limit.
func (r *PostgresRepository) Count(ctx context.Context, f models.MemeFilter) (int64, error) {
	query := `SELECT COUNT(*) FROM memes INNER JOIN users ON users.id = memes.userid
		 ` + filterMemes

	var n int64
	if err := r.db.QueryRowContext(ctx, query, filterArgs(f)...).Scan(&n); err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}

func (r *PostgresRepository) Insert(ctx context.Context, m *models.NewMeme) error {
	query :=
		`INSERT INTO memes (filename, userid, category, timestamp, ip, cid)
		 VALUES ($1, $2, $3, NOW(), $4, $5)
		 ON CONFLICT (userid, filename) DO NOTHING`

	res, err := r.db.ExecContext(ctx, query, m.Filename, m.UserID, m.CategoryID, m.ClientIP, m.ContentID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	switch n {
	case 0:
		return common.ErrNoRowsAffected
	case 1:
		return nil
	default:
		return fmt.Errorf("db error: unexpected rows affected: %d", n)
	}
}

func (r *PostgresRepository) LastInsertID(ctx context.Context) (int64, error) {
	var id int64
	if err := r.db.QueryRowContext(ctx, `SELECT LASTVAL()`).Scan(&id); err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return id, nil
}
