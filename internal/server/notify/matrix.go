package notify

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/jensmemes/memeserver/internal/netx"
	"github.com/jensmemes/memeserver/internal/server/models"
)

const (
	memeEventType  = "es.jensmem.meme"
	indexEventType = "es.jensmem.index"
	userPrefix     = "jm_"
)

// MatrixNotifier posts memes through a Matrix application service: each
// uploader is puppeted as @jm_<user id>:<domain>, joins the room and sends
// an es.jensmem.meme event; the bridge then records the event id in an
// es.jensmem.index state event keyed by meme id.
//
// Bridge users are registered elsewhere; unknown users make MemeAdded fail.
type MatrixNotifier struct {
	baseURL string
	token   string
	domain  string
	room    string
	client  *http.Client
}

func NewMatrixNotifier(baseURL, token, domain, room string, client *http.Client) *MatrixNotifier {
	return &MatrixNotifier{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		domain:  domain,
		room:    room,
		client:  client,
	}
}

type memeEvent struct {
	Category string `json:"category"`
	Filename string `json:"filename"`
	CID      string `json:"cid"`
}

type whoami struct {
	UserID string `json:"user_id"`
}

type joined struct {
	RoomID string `json:"room_id"`
}

type eventID struct {
	EventID string `json:"event_id"`
}

// TxnID is stable for a given upload so a retried send is deduplicated by
// the homeserver.
func TxnID(m *models.Meme) string {
	return url.PathEscape(fmt.Sprintf("%s/%s/%s/%s", m.UserID, m.CategoryID, m.Filename, m.ContentID))
}

func (n *MatrixNotifier) mxid(userID string) string {
	return "@" + userPrefix + userID + ":" + n.domain
}

func (n *MatrixNotifier) url(path string, asUser string) string {
	u := n.baseURL + "/_matrix/client/r0" + path
	if asUser != "" {
		u += "?" + url.Values{"user_id": {asUser}}.Encode()
	}
	return u
}

func (n *MatrixNotifier) MemeAdded(ctx context.Context, m *models.Meme) error {
	var me whoami
	if err := netx.DoJSON(ctx, n.client, http.MethodGet, n.url("/account/whoami", n.mxid(m.UserID)), n.token, nil, &me); err != nil {
		return fmt.Errorf("matrix whoami: %w", err)
	}

	var room joined
	if err := netx.DoJSON(ctx, n.client, http.MethodPost, n.url("/join/"+url.PathEscape(n.room), me.UserID), n.token, struct{}{}, &room); err != nil {
		return fmt.Errorf("matrix join %s: %w", n.room, err)
	}

	ev := memeEvent{Category: m.CategoryID, Filename: m.Filename, CID: m.ContentID}
	sendPath := "/rooms/" + url.PathEscape(room.RoomID) + "/send/" + memeEventType + "/" + TxnID(m)

	var sent eventID
	if err := netx.DoJSON(ctx, n.client, http.MethodPut, n.url(sendPath, me.UserID), n.token, ev, &sent); err != nil {
		return fmt.Errorf("matrix send: %w", err)
	}

	statePath := "/rooms/" + url.PathEscape(room.RoomID) + "/state/" + indexEventType + "/" + strconv.FormatInt(m.ID, 10)
	if err := netx.DoJSON(ctx, n.client, http.MethodPut, n.url(statePath, ""), n.token, sent, nil); err != nil {
		return fmt.Errorf("matrix index: %w", err)
	}
	return nil
}
