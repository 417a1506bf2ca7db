package apiclient

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// Resource is a typed view over one DRF-style collection such as /appointments/.
type Resource[T any] struct {
	client *Client
	path   string
}

func NewResource[T any](c *Client, path string) *Resource[T] {
	return &Resource[T]{client: c, path: "/" + strings.Trim(path, "/") + "/"}
}

func (r *Resource[T]) Path() string {
	return r.path
}

func (r *Resource[T]) detail(id int64) string {
	return fmt.Sprintf("%s%d/", r.path, id)
}

func (r *Resource[T]) List(ctx context.Context, query url.Values) ([]T, error) {
	return List[T](ctx, r.client, r.path, query)
}

func (r *Resource[T]) Get(ctx context.Context, id int64) (*T, error) {
	var out T
	if err := r.client.Do(ctx, http.MethodGet, r.detail(id), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *Resource[T]) Create(ctx context.Context, body interface{}) (*T, error) {
	var out T
	if err := r.client.Do(ctx, http.MethodPost, r.path, nil, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Update sends a partial update (PATCH).
func (r *Resource[T]) Update(ctx context.Context, id int64, patch interface{}) (*T, error) {
	var out T
	if err := r.client.Do(ctx, http.MethodPatch, r.detail(id), nil, patch, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Replace sends a full update (PUT).
func (r *Resource[T]) Replace(ctx context.Context, id int64, body interface{}) (*T, error) {
	var out T
	if err := r.client.Do(ctx, http.MethodPut, r.detail(id), nil, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *Resource[T]) Delete(ctx context.Context, id int64) error {
	return r.client.Do(ctx, http.MethodDelete, r.detail(id), nil, nil, nil)
}

// Action posts to a detail route, e.g. /contact/{id}/reply/.
func (r *Resource[T]) Action(ctx context.Context, id int64, name string, body, out interface{}) error {
	return r.client.Do(ctx, http.MethodPost, r.detail(id)+strings.Trim(name, "/")+"/", nil, body, out)
}

// CollectionAction calls a list route, e.g. POST /notifications/mark_all_read/.
func (r *Resource[T]) CollectionAction(ctx context.Context, method, name string, body, out interface{}) error {
	return r.client.Do(ctx, method, r.path+strings.Trim(name, "/")+"/", nil, body, out)
}

// ListAction fetches a list route such as /services/featured/ and normalizes its shape.
func (r *Resource[T]) ListAction(ctx context.Context, name string, query url.Values) ([]T, error) {
	return List[T](ctx, r.client, r.path+strings.Trim(name, "/")+"/", query)
}
