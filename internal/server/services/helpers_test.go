package services

import (
	"bytes"
	"io"
	"mime/multipart"
	"net/textproto"
	"strings"
	"testing"
)

func stringsReader(s string) *strings.Reader { return strings.NewReader(s) }

type formField struct {
	name     string
	filename string
	value    string
	noName   bool
}

func tokenField(v string) formField    { return formField{name: "token", value: v} }
func categoryField(v string) formField { return formField{name: "category", value: v} }
func fileField(fn, body string) formField {
	return formField{name: "file", filename: fn, value: body}
}

func multipartBody(t *testing.T, fields ...formField) PartReader {
	t.Helper()
	body, boundary := multipartBytes(t, fields...)
	return multipart.NewReader(bytes.NewReader(body), boundary)
}

// multipartBytes encodes fields and returns the raw body and its boundary.
func multipartBytes(t *testing.T, fields ...formField) ([]byte, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	for _, f := range fields {
		var err error
		var pw io.Writer
		switch {
		case f.noName:
			h := textproto.MIMEHeader{}
			h.Set("Content-Disposition", "form-data")
			pw, err = w.CreatePart(h)
		case f.filename != "":
			pw, err = w.CreateFormFile(f.name, f.filename)
		default:
			pw, err = w.CreateFormField(f.name)
		}
		if err != nil {
			t.Fatalf("create part: %v", err)
		}
		if _, err := pw.Write([]byte(f.value)); err != nil {
			t.Fatalf("write part: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	return buf.Bytes(), w.Boundary()
}
