package repomanager

import (
	"context"
	"database/sql"

	"github.com/jensmemes/memeserver/internal/dbx"
	"github.com/jensmemes/memeserver/internal/server/repositories/categories"
	"github.com/jensmemes/memeserver/internal/server/repositories/memes"
	"github.com/jensmemes/memeserver/internal/server/repositories/users"
)

// RepositoryManager vends repositories bound to a DBTX, so the same code
// runs against the pool or inside a transaction.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Memes(db dbx.DBTX) memes.Repository
	Categories(db dbx.DBTX) categories.Repository
	Users(db dbx.DBTX) users.Repository
}
