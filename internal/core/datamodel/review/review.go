package review

type Review struct {
	ID           int64  `json:"id"`
	CustomerName string `json:"customer_name"`
	Rating       int    `json:"rating"`
	Comment      string `json:"comment"`
	Service      *int64 `json:"service,omitempty"`
	ServiceName  string `json:"service_name,omitempty"`
	Appointment  *int64 `json:"appointment,omitempty"`
	IsApproved   bool   `json:"is_approved"`
	CreatedAt    string `json:"created_at,omitempty"`
}

type CreateRequest struct {
	CustomerName string `json:"customer_name" validate:"required"`
	Rating       int    `json:"rating" validate:"required,min=1,max=5"`
	Comment      string `json:"comment" validate:"required"`
	Service      *int64 `json:"service,omitempty"`
	Appointment  *int64 `json:"appointment,omitempty"`
}
