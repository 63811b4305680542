package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

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

// noTokenHash is reported for users without a token.
const noTokenHash = "0"

// selectUsers yields one row per user and token; dayuploads only counts
// memes stamped with the current date.
const selectUsers = `SELECT users.id, users.name, COALESCE(MD5(token.token), '0') AS hash,
		 COUNT(memes.id) AS dayuploads
		 FROM users
		 LEFT JOIN token ON token.uid = users.id
		 LEFT JOIN memes ON memes.userid = users.id AND DATE(memes.timestamp) = CURRENT_DATE
		 `

const groupUsers = `
		 GROUP BY users.id, users.name, token.token`

func (r *PostgresRepository) Get(ctx context.Context, ident models.UserIdentifier) (*models.User, error) {
	var where string
	value := ident.Value

	switch ident.Kind {
	case models.UserByID:
		where = `WHERE users.id = $1`
	case models.UserByToken:
		where = `WHERE token.token = $1`
	case models.UserByName:
		where = `WHERE users.name = $1`
	case models.UserByNone:
		where = `WHERE users.id = $1`
		value = common.AnonymousUserID
	default:
		return nil, fmt.Errorf("unknown user lookup %d", ident.Kind)
	}

	u := &models.User{}
	err := r.db.QueryRowContext(ctx, selectUsers+where+groupUsers+` LIMIT 1`, value).
		Scan(&u.ID, &u.Name, &u.TokenHash, &u.DayUploads)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	// The anonymous user never has a token or an upload count.
	if ident.Kind == models.UserByNone {
		u.TokenHash = noTokenHash
		u.DayUploads = 0
	}
	return u, nil
}

func (r *PostgresRepository) List(ctx context.Context) ([]models.User, error) {
	rows, err := r.db.QueryContext(ctx, selectUsers+groupUsers+` ORDER BY users.id`)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	result := []models.User{}
	for rows.Next() {
		var u models.User
		if err := rows.Scan(&u.ID, &u.Name, &u.TokenHash, &u.DayUploads); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}
