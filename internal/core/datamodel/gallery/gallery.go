package gallery

type Item struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Image       string `json:"image"`
	Service     *int64 `json:"service,omitempty"`
	ServiceName string `json:"service_name,omitempty"`
	IsFeatured  bool   `json:"is_featured"`
	CreatedAt   string `json:"created_at,omitempty"`
}

// Metadata is the editable part of a gallery item.
type Metadata struct {
	Title       string `json:"title" validate:"required"`
	Description string `json:"description"`
	Service     *int64 `json:"service,omitempty"`
	IsFeatured  bool   `json:"is_featured"`
}
