package blobstore

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/jensmemes/memeserver/internal/common"
	"github.com/jensmemes/memeserver/internal/netx"
)

// IPFSStore uses the Kubo RPC API (/api/v0).
type IPFSStore struct {
	baseURL string
	client  *http.Client
	// pinClient has no header timeout since Kubo answers pin/add only once
	// the pin is done; pinTimeout bounds the call instead.
	pinClient  *http.Client
	pinTimeout time.Duration
}

func NewIPFSStore(baseURL string, client *http.Client, pinTimeout time.Duration) *IPFSStore {
	return &IPFSStore{
		baseURL:    strings.TrimRight(baseURL, "/"),
		client:     client,
		pinClient:  netx.WithHeaderTimeout(client, 0),
		pinTimeout: pinTimeout,
	}
}

func (s *IPFSStore) endpoint(cmd string, args url.Values) string {
	u := s.baseURL + "/api/v0/" + cmd
	if len(args) > 0 {
		u += "?" + args.Encode()
	}
	return u
}

// post issues a Kubo RPC call; Kubo only accepts POST.
func (s *IPFSStore) post(ctx context.Context, c *http.Client, u, contentType string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", netx.UserAgent)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.Do(req)
	if err != nil {
		return nil, err
	}
	if err := netx.CheckResponse(resp); err != nil {
		return nil, err
	}
	return resp, nil
}

func (s *IPFSStore) Fetch(ctx context.Context, contentID string) (*Object, error) {
	resp, err := s.post(ctx, s.client, s.endpoint("cat", url.Values{"arg": {contentID}}), "", nil)
	if err != nil {
		return nil, fmt.Errorf("ipfs cat %s: %w", contentID, err)
	}

	size, err := strconv.ParseInt(resp.Header.Get("X-Content-Length"), 10, 64)
	if err != nil || size < 0 {
		_ = resp.Body.Close()
		return nil, fmt.Errorf("ipfs cat %s: %w", contentID, common.ErrMissingContentLength)
	}

	return &Object{Body: resp.Body, Size: size}, nil
}

type addResponse struct {
	Name string
	Hash string
	Size string
}

// Add streams r to Kubo as a multipart body without buffering it.
func (s *IPFSStore) Add(ctx context.Context, name string, r io.Reader) (*AddedFile, error) {
	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)

	done := make(chan struct{})
	go func() {
		defer close(done)
		part, err := mw.CreateFormFile("file", name)
		if err == nil {
			_, err = io.Copy(part, r)
		}
		if err == nil {
			err = mw.Close()
		}
		_ = pw.CloseWithError(err)
	}()

	// r must not be read after Add returns.
	defer func() {
		_ = pr.Close()
		<-done
	}()

	resp, err := s.post(ctx, s.client, s.endpoint("add", url.Values{"pin": {"false"}}), mw.FormDataContentType(), pr)
	if err != nil {
		return nil, fmt.Errorf("ipfs add %s: %w", name, err)
	}
	defer resp.Body.Close()

	var out addResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("ipfs add %s: decode response: %w", name, err)
	}
	if out.Hash == "" {
		return nil, fmt.Errorf("ipfs add %s: empty hash in response", name)
	}

	size, err := strconv.ParseInt(out.Size, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("ipfs add %s: bad size %q: %w", name, out.Size, err)
	}
	return &AddedFile{ContentID: out.Hash, Name: out.Name, Size: size}, nil
}

// Pin runs with the store's pin timeout instead of the caller's deadline
// budget; pinning a fresh blob may take minutes.
func (s *IPFSStore) Pin(ctx context.Context, contentID string) error {
	ctx, cancel := context.WithTimeout(ctx, s.pinTimeout)
	defer cancel()

	resp, err := s.post(ctx, s.pinClient, s.endpoint("pin/add", url.Values{"arg": {contentID}}), "", nil)
	if err != nil {
		return fmt.Errorf("ipfs pin %s: %w", contentID, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}
