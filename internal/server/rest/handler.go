// Package rest exposes the meme API over HTTP with gin.
package rest

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/jensmemes/memeserver/internal/common"
	"github.com/jensmemes/memeserver/internal/logging"
	"github.com/jensmemes/memeserver/internal/server/models"
	"github.com/jensmemes/memeserver/internal/server/services"
)

type MemeReader interface {
	GetMeme(ctx context.Context, id int64) (*models.Meme, error)
	ListMemes(ctx context.Context, f models.MemeFilter) ([]models.Meme, error)
	RandomMeme(ctx context.Context, f models.MemeFilter) (*models.Meme, error)
	CountMemes(ctx context.Context, f models.MemeFilter) (int64, error)
	LatestMeme(ctx context.Context, userID, filename string) (*models.Meme, error)
	GetCategory(ctx context.Context, id string) (*models.Category, error)
	ListCategories(ctx context.Context) ([]models.Category, error)
	GetUser(ctx context.Context, ident models.UserIdentifier) (*models.User, error)
	ListUsers(ctx context.Context) ([]models.User, error)
}

type Uploader interface {
	Upload(ctx context.Context, parts services.PartReader, clientIP string) (*services.UploadResult, error)
}

type FileOpener interface {
	Open(ctx context.Context, userID, filename string) (*services.CDNFile, error)
}

type Handler struct {
	memes         MemeReader
	uploads       Uploader
	files         FileOpener
	logger        logging.Logger
	cdnURL        string
	maxUploadSize int64
}

func NewHandler(m MemeReader, u Uploader, f FileOpener, l logging.Logger, cdnURL string, maxUploadSize int64) *Handler {
	return &Handler{
		memes:         m,
		uploads:       u,
		files:         f,
		logger:        l.With("module", "rest"),
		cdnURL:        cdnURL,
		maxUploadSize: maxUploadSize,
	}
}

// pageQuery is the paging part of a meme listing.
type pageQuery struct {
	Limit *int   `form:"limit"`
	After *int64 `form:"after"`
}

func (q *pageQuery) apply(f *models.MemeFilter) error {
	f.Limit = models.DefaultLimit
	if q.Limit != nil {
		if *q.Limit < 1 {
			return badRequest("limit must be at least 1")
		}
		f.Limit = *q.Limit
	}
	if q.After != nil {
		if *q.After < 0 {
			return badRequest("after must not be negative")
		}
		f.After = *q.After
	}
	return nil
}

type memeQuery struct {
	Category string `form:"category"`
	User     string `form:"user"`
	UserName string `form:"username"`
	Search   string `form:"search"`
	pageQuery
}

func bindFilter(c *gin.Context) (models.MemeFilter, error) {
	var q memeQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		return models.MemeFilter{}, badRequest("Invalid query parameters")
	}
	f := models.MemeFilter{
		Category: q.Category,
		UserID:   q.User,
		UserName: q.UserName,
		Search:   q.Search,
	}
	if err := q.apply(&f); err != nil {
		return models.MemeFilter{}, err
	}
	return f, nil
}

// bindPage reads only limit and after; other filters do not apply.
func bindPage(c *gin.Context) (models.MemeFilter, error) {
	var q pageQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		return models.MemeFilter{}, badRequest("Invalid query parameters")
	}
	var f models.MemeFilter
	if err := q.apply(&f); err != nil {
		return models.MemeFilter{}, err
	}
	return f, nil
}

func (h *Handler) ListMemes(c *gin.Context) {
	f, err := bindFilter(c)
	if err != nil {
		h.fail(c, "memes", err)
		return
	}
	ms, err := h.memes.ListMemes(c.Request.Context(), f)
	if err != nil {
		h.fail(c, "memes", err)
		return
	}
	respond(c, http.StatusOK, "memes", h.memeViews(ms))
}

func (h *Handler) RandomMeme(c *gin.Context) {
	f, err := bindFilter(c)
	if err != nil {
		h.fail(c, "meme", err)
		return
	}
	m, err := h.memes.RandomMeme(c.Request.Context(), f)
	if err != nil {
		h.fail(c, "meme", err)
		return
	}
	respond(c, http.StatusOK, "meme", h.memeView(m))
}

func (h *Handler) CountMemes(c *gin.Context) {
	f, err := bindFilter(c)
	if err != nil {
		h.fail(c, "count", err)
		return
	}
	f.Limit = models.Unlimited
	n, err := h.memes.CountMemes(c.Request.Context(), f)
	if err != nil {
		h.fail(c, "count", err)
		return
	}
	respond(c, http.StatusOK, "count", n)
}

func (h *Handler) GetMeme(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		h.fail(c, "meme", badRequest("Invalid meme id"))
		return
	}
	m, err := h.memes.GetMeme(c.Request.Context(), id)
	if err != nil {
		h.fail(c, "meme", err)
		return
	}
	respond(c, http.StatusOK, "meme", h.memeView(m))
}

func (h *Handler) ListCategories(c *gin.Context) {
	cs, err := h.memes.ListCategories(c.Request.Context())
	if err != nil {
		h.fail(c, "categories", err)
		return
	}
	out := make([]categoryView, 0, len(cs))
	for i := range cs {
		out = append(out, categoryViewOf(&cs[i]))
	}
	respond(c, http.StatusOK, "categories", out)
}

func (h *Handler) GetCategory(c *gin.Context) {
	cat, err := h.memes.GetCategory(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, "category", err)
		return
	}
	respond(c, http.StatusOK, "category", categoryViewOf(cat))
}

func (h *Handler) ListUsers(c *gin.Context) {
	us, err := h.memes.ListUsers(c.Request.Context())
	if err != nil {
		h.fail(c, "users", err)
		return
	}
	out := make([]userView, 0, len(us))
	for i := range us {
		out = append(out, userViewOf(&us[i]))
	}
	respond(c, http.StatusOK, "users", out)
}

// LookupUser resolves ?id=, ?token= or ?name=, first one present wins; with
// none of them it returns the anonymous user.
func (h *Handler) LookupUser(c *gin.Context) {
	ident := models.UserIdentifierFrom(c.Query("id"), c.Query("token"), c.Query("name"))
	h.writeUser(c, ident)
}

func (h *Handler) GetUser(c *gin.Context) {
	h.writeUser(c, models.UserIdentifier{Kind: models.UserByID, Value: c.Param("id")})
}

func (h *Handler) writeUser(c *gin.Context, ident models.UserIdentifier) {
	u, err := h.memes.GetUser(c.Request.Context(), ident)
	if err != nil {
		h.fail(c, "user", err)
		return
	}
	respond(c, http.StatusOK, "user", userViewOf(u))
}

func (h *Handler) UserMemes(c *gin.Context) {
	f, err := bindPage(c)
	if err != nil {
		h.fail(c, "memes", err)
		return
	}
	f.UserID = c.Param("id")
	ms, err := h.memes.ListMemes(c.Request.Context(), f)
	if err != nil {
		h.fail(c, "memes", err)
		return
	}
	respond(c, http.StatusOK, "memes", h.memeViews(ms))
}

func (h *Handler) UserMeme(c *gin.Context) {
	m, err := h.memes.LatestMeme(c.Request.Context(), c.Param("id"), c.Param("filename"))
	if err != nil {
		h.fail(c, "meme", err)
		return
	}
	respond(c, http.StatusOK, "meme", h.memeView(m))
}

func (h *Handler) Upload(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadSize)

	mr, err := c.Request.MultipartReader()
	if err != nil {
		h.fail(c, "files", badRequest("Expected multipart/form-data"))
		return
	}

	res, err := h.uploads.Upload(c.Request.Context(), mr, c.ClientIP())
	if err != nil {
		h.fail(c, "files", err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"status": http.StatusCreated,
		"error":  nil,
		"files":  res.Files,
		"token":  res.Token,
	})
}

// CDN streams a stored meme. Failures are bare status codes since browsers
// are the consumers here.
func (h *Handler) CDN(c *gin.Context) {
	f, err := h.files.Open(c.Request.Context(), c.Param("user"), c.Param("filename"))
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			c.Status(http.StatusNotFound)
			return
		}
		h.logger.Error(c.Request.Context(), "cdn fetch failed", "user", c.Param("user"), "filename", c.Param("filename"), "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}
	defer f.Body.Close()

	c.DataFromReader(http.StatusOK, f.Size, f.ContentType, f.Body, nil)
}
