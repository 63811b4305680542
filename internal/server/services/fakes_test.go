package services

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"sync"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jensmemes/memeserver/internal/common"
	"github.com/jensmemes/memeserver/internal/dbx"
	"github.com/jensmemes/memeserver/internal/logging"
	"github.com/jensmemes/memeserver/internal/server/blobstore"
	"github.com/jensmemes/memeserver/internal/server/models"
	"github.com/jensmemes/memeserver/internal/server/repositories/categories"
	"github.com/jensmemes/memeserver/internal/server/repositories/memes"
	"github.com/jensmemes/memeserver/internal/server/repositories/repomanager"
	"github.com/jensmemes/memeserver/internal/server/repositories/users"
)

// -------- test fakes --------

type fakeMemesRepo struct {
	memes.Repository
	rows      []models.Meme
	inserted  []*models.NewMeme
	insertErr error
	lastIDErr error
	getErr    error
}

func (f *fakeMemesRepo) Get(ctx context.Context, id int64) (*models.Meme, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	for i := range f.rows {
		if f.rows[i].ID == id {
			m := f.rows[i]
			return &m, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (f *fakeMemesRepo) List(ctx context.Context, flt models.MemeFilter) ([]models.Meme, error) {
	out := []models.Meme{}
	for _, m := range f.rows {
		if m.ID > flt.After && (flt.UserID == "" || m.UserID == flt.UserID) {
			out = append(out, m)
		}
	}
	return out, nil
}

func (f *fakeMemesRepo) Random(ctx context.Context, flt models.MemeFilter) (*models.Meme, error) {
	list, _ := f.List(ctx, flt)
	if len(list) == 0 {
		return nil, common.ErrorNotFound
	}
	return &list[0], nil
}

func (f *fakeMemesRepo) Count(ctx context.Context, flt models.MemeFilter) (int64, error) {
	list, _ := f.List(ctx, flt)
	return int64(len(list)), nil
}

func (f *fakeMemesRepo) Latest(ctx context.Context, userID, filename string) (*models.Meme, error) {
	var found *models.Meme
	for i := range f.rows {
		m := f.rows[i]
		if m.UserID == userID && m.Filename == filename && (found == nil || m.ID > found.ID) {
			found = &m
		}
	}
	if found == nil {
		return nil, common.ErrorNotFound
	}
	return found, nil
}

func (f *fakeMemesRepo) Insert(ctx context.Context, m *models.NewMeme) error {
	if f.insertErr != nil {
		return f.insertErr
	}
	f.inserted = append(f.inserted, m)
	f.rows = append(f.rows, models.Meme{
		ID: int64(len(f.rows) + 1), Filename: m.Filename, UserID: m.UserID,
		CategoryID: m.CategoryID, ContentID: m.ContentID,
	})
	return nil
}

func (f *fakeMemesRepo) LastInsertID(ctx context.Context) (int64, error) {
	if f.lastIDErr != nil {
		return 0, f.lastIDErr
	}
	return int64(len(f.rows)), nil
}

type fakeCategoriesRepo struct {
	categories.Repository
	cats []models.Category
}

func (f *fakeCategoriesRepo) Get(ctx context.Context, id string) (*models.Category, error) {
	for _, c := range f.cats {
		if c.ID == id {
			return &c, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (f *fakeCategoriesRepo) List(ctx context.Context) ([]models.Category, error) {
	return f.cats, nil
}

type fakeUsersRepo struct {
	users.Repository
	byToken map[string]*models.User
	err     error
}

func (f *fakeUsersRepo) Get(ctx context.Context, ident models.UserIdentifier) (*models.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	switch ident.Kind {
	case models.UserByToken:
		if u, ok := f.byToken[ident.Value]; ok {
			return u, nil
		}
	case models.UserByNone:
		return &models.User{ID: common.AnonymousUserID, Name: "Anonymous", TokenHash: "0"}, nil
	default:
		for _, u := range f.byToken {
			if u.ID == ident.Value || u.Name == ident.Value {
				return u, nil
			}
		}
	}
	return nil, common.ErrorNotFound
}

func (f *fakeUsersRepo) List(ctx context.Context) ([]models.User, error) {
	out := []models.User{}
	for _, u := range f.byToken {
		out = append(out, *u)
	}
	return out, nil
}

type fakeRepoManager struct {
	repomanager.RepositoryManager
	m *fakeMemesRepo
	c *fakeCategoriesRepo
	u *fakeUsersRepo
}

func (m *fakeRepoManager) Memes(dbx.DBTX) memes.Repository           { return m.m }
func (m *fakeRepoManager) Categories(dbx.DBTX) categories.Repository { return m.c }
func (m *fakeRepoManager) Users(dbx.DBTX) users.Repository           { return m.u }

func newFakeRepoManager() *fakeRepoManager {
	return &fakeRepoManager{
		m: &fakeMemesRepo{},
		c: &fakeCategoriesRepo{cats: []models.Category{{ID: "funny", Name: "Funny"}, {ID: "cute", Name: "Cute"}}},
		u: &fakeUsersRepo{byToken: map[string]*models.User{
			"s3cr3t": {ID: "042", Name: "jens", TokenHash: "h", DayUploads: 0},
		}},
	}
}

type fakeStore struct {
	mu      sync.Mutex
	added   map[string]string
	pinned  []string
	addErr  error
	pinErr  error
	objects map[string]string
}

func newFakeStore() *fakeStore {
	return &fakeStore{added: map[string]string{}, objects: map[string]string{}}
}

func (f *fakeStore) Fetch(ctx context.Context, cid string) (*blobstore.Object, error) {
	body, ok := f.objects[cid]
	if !ok {
		return nil, fmt.Errorf("no object %s", cid)
	}
	return &blobstore.Object{Body: io.NopCloser(stringsReader(body)), Size: int64(len(body))}, nil
}

func (f *fakeStore) Add(ctx context.Context, name string, r io.Reader) (*blobstore.AddedFile, error) {
	if f.addErr != nil {
		return nil, f.addErr
	}
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	cid := "Qm" + name
	f.added[cid] = string(b)
	return &blobstore.AddedFile{ContentID: cid, Name: "ignored", Size: int64(len(b))}, nil
}

func (f *fakeStore) Pin(ctx context.Context, cid string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := ctx.Deadline(); !ok {
		return fmt.Errorf("pin without deadline")
	}
	f.pinned = append(f.pinned, cid)
	return f.pinErr
}

type fakeNotifier struct {
	got []*models.Meme
	err error
}

func (f *fakeNotifier) MemeAdded(ctx context.Context, m *models.Meme) error {
	f.got = append(f.got, m)
	return f.err
}

type recordingLogger struct {
	mu    sync.Mutex
	warns []string
}

func (l *recordingLogger) Info(context.Context, string, ...any) {}
func (l *recordingLogger) Warn(_ context.Context, msg string, _ ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.warns = append(l.warns, msg)
}
func (l *recordingLogger) Error(context.Context, string, ...any) {}
func (l *recordingLogger) With(...any) logging.Logger            { return l }

// -------- helpers --------

func newSQLMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}
