package contact

type Message struct {
	ID         int64   `json:"id"`
	Name       string  `json:"name"`
	Email      string  `json:"email"`
	Phone      string  `json:"phone,omitempty"`
	Subject    string  `json:"subject"`
	Message    string  `json:"message"`
	AdminReply string  `json:"admin_reply,omitempty"`
	IsRead     bool    `json:"is_read"`
	RepliedAt  *string `json:"replied_at,omitempty"`
	CreatedAt  string  `json:"created_at,omitempty"`
}

type SendRequest struct {
	Name    string `json:"name" validate:"required"`
	Email   string `json:"email" validate:"required,email"`
	Phone   string `json:"phone,omitempty"`
	Subject string `json:"subject" validate:"required"`
	Message string `json:"message" validate:"required"`
}

type Reply struct {
	AdminReply string `json:"admin_reply" validate:"required"`
}
