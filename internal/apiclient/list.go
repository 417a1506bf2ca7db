package apiclient

import (
	"bytes"
	"context"
	"net/url"
	"strconv"

	"github.com/goccy/go-json"
)

// DecodeList accepts either a bare JSON array or a paginated {"results": [...]} envelope.
// Any other shape decodes to an empty list.
func DecodeList[T any](body []byte) ([]T, error) {
	trimmed := bytes.TrimSpace(body)
	items := make([]T, 0)
	if len(trimmed) == 0 {
		return items, nil
	}

	switch trimmed[0] {
	case '[':
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return nil, err
		}
	case '{':
		var page struct {
			Results json.RawMessage `json:"results"`
		}
		if err := json.Unmarshal(trimmed, &page); err != nil {
			return nil, err
		}
		results := bytes.TrimSpace(page.Results)
		if len(results) == 0 || results[0] != '[' {
			return items, nil
		}
		if err := json.Unmarshal(results, &items); err != nil {
			return nil, err
		}
	}
	return items, nil
}

// List fetches a collection endpoint and normalizes its shape.
func List[T any](ctx context.Context, c *Client, path string, query url.Values) ([]T, error) {
	raw, err := c.DoRaw(ctx, "GET", path, query, nil)
	if err != nil {
		return nil, err
	}
	items, err := DecodeList[T](raw)
	if err != nil {
		c.logger.Error("failed to decode list response", "path", path, "error", err)
		return nil, err
	}
	return items, nil
}

// PageSize builds the page_size query used by admin screens to fetch everything at once.
func PageSize(n int) url.Values {
	if n <= 0 {
		return nil
	}
	q := url.Values{}
	q.Set("page_size", strconv.Itoa(n))
	return q
}
