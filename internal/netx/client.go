// Package netx holds small helpers for outbound HTTP calls made by the
// server's gateway clients.
package netx

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const UserAgent = "memeserver"

// maxErrorBody bounds how much of a failed response is copied into errors.
const maxErrorBody = 4 << 10

// NewClient returns an http.Client whose transport gives up on servers that
// do not start answering within headerTimeout. The overall request lifetime
// is controlled by the caller's context so that large bodies can stream.
func NewClient(headerTimeout time.Duration) *http.Client {
	tr := http.DefaultTransport.(*http.Transport).Clone()
	tr.ResponseHeaderTimeout = headerTimeout
	return &http.Client{Transport: tr}
}

// WithHeaderTimeout returns a copy of c whose transport waits up to d for
// response headers; zero means no limit. Clients without an *http.Transport
// are returned as is.
func WithHeaderTimeout(c *http.Client, d time.Duration) *http.Client {
	var tr *http.Transport
	switch t := c.Transport.(type) {
	case nil:
		tr = http.DefaultTransport.(*http.Transport).Clone()
	case *http.Transport:
		tr = t.Clone()
	default:
		return c
	}
	tr.ResponseHeaderTimeout = d

	out := *c
	out.Transport = tr
	return &out
}

// StatusError is returned for responses outside the 2xx range.
type StatusError struct {
	Code   int
	Status string
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status: %s; body: %s", e.Status, e.Body)
}

// CheckResponse returns a *StatusError when resp is not 2xx. The body is
// drained and closed in that case.
func CheckResponse(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return &StatusError{Code: resp.StatusCode, Status: resp.Status, Body: string(b)}
}

// DoJSON sends in (when non-nil) as a JSON body and decodes a 2xx response
// into out (when non-nil). A non-empty bearer is sent as Authorization.
func DoJSON(ctx context.Context, c *http.Client, method, url, bearer string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", UserAgent)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := c.Do(req)
	if err != nil {
		return err
	}
	if err := CheckResponse(resp); err != nil {
		return err
	}
	defer resp.Body.Close()

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
