// Package models defines server-side data models persisted in the database.
package models

import "time"

// Meme is one uploaded file. The bytes live in the blob store under
// ContentID; the row itself is never updated after insert.
type Meme struct {
	ID         int64
	Filename   string
	UserID     string
	UserName   string
	CategoryID string
	Timestamp  time.Time
	ContentID  string
}

// NewMeme describes a row to be inserted by an upload.
type NewMeme struct {
	Filename   string
	UserID     string
	CategoryID string
	ClientIP   string
	ContentID  string
}

const (
	// DefaultLimit applies when a listing does not ask for a page size.
	DefaultLimit = 100
	// Unlimited disables the LIMIT clause of a listing.
	Unlimited = -1
)

// MemeFilter narrows a meme listing. Empty string fields and a zero After
// match everything.
type MemeFilter struct {
	Category string
	UserID   string
	// UserName matches a substring of the uploader's display name.
	UserName string
	// Search matches a substring of the filename.
	Search string
	// After keeps only ids strictly greater than it.
	After int64
	Limit int
}
