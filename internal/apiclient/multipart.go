package apiclient

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"sort"

	"github.com/goccy/go-json"

	"github.com/frahmantamala/salon-portal/internal"
)

// FilePart is one file attached to a multipart request.
type FilePart struct {
	Field    string
	FileName string
	Content  io.Reader
}

// Upload sends multipart/form-data, used for gallery images and profile pictures.
// file may be nil for metadata-only updates.
func (c *Client) Upload(ctx context.Context, method, path string, fields map[string]string, file *FilePart, out interface{}) error {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := w.WriteField(k, fields[k]); err != nil {
			return internal.NewInternalError("failed to write form field", err)
		}
	}

	if file != nil && file.Content != nil {
		part, err := w.CreateFormFile(file.Field, file.FileName)
		if err != nil {
			return internal.NewInternalError("failed to create form file", err)
		}
		if _, err := io.Copy(part, file.Content); err != nil {
			return internal.NewInternalError("failed to copy file content", err)
		}
	}
	if err := w.Close(); err != nil {
		return internal.NewInternalError("failed to finalize multipart body", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(path, nil), &buf)
	if err != nil {
		return internal.NewInternalError("failed to create request", err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	raw, err := c.send(req)
	if err != nil {
		return err
	}
	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return internal.NewInternalError("failed to decode API response", err)
	}
	return nil
}
