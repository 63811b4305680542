package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jensmemes/memeserver/internal/common"
	"github.com/jensmemes/memeserver/internal/logging"
	"github.com/jensmemes/memeserver/internal/server/blobstore"
	"github.com/jensmemes/memeserver/internal/server/models"
	"github.com/jensmemes/memeserver/internal/server/notify"
)

// maxFieldSize bounds the token and category form values.
const maxFieldSize = 1 << 10

// PartReader yields multipart parts in arrival order; *multipart.Reader
// implements it.
type PartReader interface {
	NextPart() (*multipart.Part, error)
}

type UploadResult struct {
	Files []string
	Token string
}

type UploadOptions struct {
	CDNURL           string
	DailyUploadLimit int
	PinTimeout       time.Duration
	NotifyTimeout    time.Duration
}

// UploadService runs the upload pipeline: every file is handed to the blob
// store while the body is parsed, then the uploader and category are
// checked, rows are written and finally the blobs are pinned and announced.
type UploadService struct {
	memes    *MemeService
	store    blobstore.Store
	notifier notify.Notifier
	logger   logging.Logger
	opts     UploadOptions
}

func NewUploadService(memes *MemeService, store blobstore.Store, n notify.Notifier, l logging.Logger, opts UploadOptions) *UploadService {
	return &UploadService{
		memes:    memes,
		store:    store,
		notifier: n,
		logger:   l.With("module", "upload"),
		opts:     opts,
	}
}

type uploadForm struct {
	tokens     []string
	categories []string
	files      []*blobstore.AddedFile
}

func badRequest(msg string) error {
	return common.NewRequestError(common.ErrorBadRequest, msg)
}

func tooLarge(err error) bool {
	var mbe *http.MaxBytesError
	return errors.As(err, &mbe)
}

func readField(p *multipart.Part) (string, error) {
	b, err := io.ReadAll(io.LimitReader(p, maxFieldSize+1))
	if err != nil {
		return "", err
	}
	if len(b) > maxFieldSize {
		return "", badRequest(fmt.Sprintf("Field %s too long", p.FormName()))
	}
	return strings.TrimSpace(string(b)), nil
}

// parse consumes the body part by part. Blobs already added are left in the
// store when a later part fails.
func (s *UploadService) parse(ctx context.Context, parts PartReader) (*uploadForm, error) {
	form := &uploadForm{}

	for {
		p, err := parts.NextPart()
		if errors.Is(err, io.EOF) {
			return form, nil
		}
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			if tooLarge(err) {
				return nil, badRequest("Upload too large")
			}
			return nil, badRequest("Invalid multipart body")
		}

		err = s.consumePart(ctx, form, p)
		_ = p.Close()
		if err != nil {
			return nil, err
		}
	}
}

func (s *UploadService) consumePart(ctx context.Context, form *uploadForm, p *multipart.Part) error {
	switch p.FormName() {
	case "":
		return badRequest("Missing field name")
	case "token":
		v, err := readField(p)
		if err != nil {
			return err
		}
		form.tokens = append(form.tokens, v)
	case "category":
		v, err := readField(p)
		if err != nil {
			return err
		}
		form.categories = append(form.categories, v)
	case "file":
		name := p.FileName()
		if name == "" {
			return badRequest("Missing filename")
		}
		added, err := s.store.Add(ctx, name, p)
		if err != nil {
			if tooLarge(err) {
				return badRequest("Upload too large")
			}
			return fmt.Errorf("add %s to blob store: %w", name, err)
		}
		added.Name = name
		form.files = append(form.files, added)
	}
	return nil
}

// Upload handles one multipart upload request end to end.
func (s *UploadService) Upload(ctx context.Context, parts PartReader, clientIP string) (*UploadResult, error) {
	form, err := s.parse(ctx, parts)
	if err != nil {
		return nil, err
	}

	switch {
	case len(form.tokens) == 0 || form.tokens[0] == "":
		return nil, common.NewRequestError(common.ErrorUnauthorized, "Missing token")
	case len(form.tokens) > 1:
		return nil, badRequest("Exactly one token is required")
	case len(form.categories) != 1:
		return nil, badRequest("Exactly one category is required")
	case len(form.files) == 0:
		return nil, badRequest("No files uploaded")
	}
	token := form.tokens[0]

	user, err := s.memes.GetUser(ctx, models.UserIdentifier{Kind: models.UserByToken, Value: token})
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.NewRequestError(common.ErrorForbidden, "Invalid token")
		}
		return nil, err
	}

	// Checked once for the whole batch before anything is written.
	if user.DayUploads+len(form.files) > s.opts.DailyUploadLimit {
		return nil, common.NewRequestError(common.ErrorForbidden, "Upload limit reached")
	}

	category, err := s.memes.GetCategory(ctx, form.categories[0])
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, badRequest(msgCategoryNotFound)
		}
		return nil, err
	}

	persisted := make([]*models.Meme, 0, len(form.files))
	defer func() {
		s.afterCommit(ctx, persisted)
	}()

	result := &UploadResult{Token: token, Files: make([]string, 0, len(form.files))}
	for _, f := range form.files {
		id, err := s.memes.InsertMeme(ctx, &models.NewMeme{
			Filename:   f.Name,
			UserID:     user.ID,
			CategoryID: category.ID,
			ClientIP:   clientIP,
			ContentID:  f.ContentID,
		})
		if err != nil {
			return nil, err
		}

		persisted = append(persisted, &models.Meme{
			ID:         id,
			Filename:   f.Name,
			UserID:     user.ID,
			UserName:   user.Name,
			CategoryID: category.ID,
			ContentID:  f.ContentID,
		})
		result.Files = append(result.Files, s.Link(user.ID, f.Name))
	}

	return result, nil
}

// afterCommit pins and announces stored memes. It runs detached from the
// client so a disconnect does not skip it; failures are only logged.
func (s *UploadService) afterCommit(ctx context.Context, memes []*models.Meme) {
	ctx = context.WithoutCancel(ctx)

	for _, m := range memes {
		pinCtx, cancel := context.WithTimeout(ctx, s.opts.PinTimeout)
		if err := s.store.Pin(pinCtx, m.ContentID); err != nil {
			s.logger.Warn(ctx, "pin failed", "id", m.ID, "cid", m.ContentID, "error", err)
		}
		cancel()

		notifyCtx, cancel := context.WithTimeout(ctx, s.opts.NotifyTimeout)
		if err := s.notifier.MemeAdded(notifyCtx, m); err != nil {
			s.logger.Warn(ctx, "notification failed", "id", m.ID, "cid", m.ContentID, "error", err)
		}
		cancel()
	}
}

// Link is the public URL of a stored meme.
func (s *UploadService) Link(userID, filename string) string {
	return MemeLink(s.opts.CDNURL, userID, filename)
}

// MemeLink joins the CDN base with the uploader directory and filename.
func MemeLink(cdnURL, userID, filename string) string {
	return strings.TrimRight(cdnURL, "/") + "/" + url.PathEscape(userID) + "/" + url.PathEscape(filename)
}
