package rest

import (
	"github.com/jensmemes/memeserver/internal/server/models"
	"github.com/jensmemes/memeserver/internal/server/services"
)

type memeView struct {
	ID        int64  `json:"id"`
	Filename  string `json:"filename"`
	Link      string `json:"link"`
	Category  string `json:"category"`
	User      string `json:"user"`
	UserName  string `json:"username"`
	Timestamp int64  `json:"timestamp"`
	IPFS      string `json:"ipfs"`
}

type categoryView struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type userView struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	UserDir    string `json:"userdir"`
	TokenHash  string `json:"tokenhash"`
	DayUploads int    `json:"dayuploads"`
}

func (h *Handler) memeView(m *models.Meme) memeView {
	return memeView{
		ID:        m.ID,
		Filename:  m.Filename,
		Link:      services.MemeLink(h.cdnURL, m.UserID, m.Filename),
		Category:  m.CategoryID,
		User:      m.UserID,
		UserName:  m.UserName,
		Timestamp: m.Timestamp.Unix(),
		IPFS:      m.ContentID,
	}
}

func (h *Handler) memeViews(ms []models.Meme) []memeView {
	out := make([]memeView, 0, len(ms))
	for i := range ms {
		out = append(out, h.memeView(&ms[i]))
	}
	return out
}

func categoryViewOf(c *models.Category) categoryView {
	return categoryView{ID: c.ID, Name: c.Name}
}

func userViewOf(u *models.User) userView {
	return userView{ID: u.ID, Name: u.Name, UserDir: u.ID, TokenHash: u.TokenHash, DayUploads: u.DayUploads}
}
