package notification

type Notification struct {
	ID                    int64  `json:"id"`
	User                  *int64 `json:"user,omitempty"`
	Title                 string `json:"title"`
	Message               string `json:"message"`
	NotificationType      string `json:"notification_type"`
	IsRead                bool   `json:"is_read"`
	RelatedContactMessage *int64 `json:"related_contact_message,omitempty"`
	CreatedAt             string `json:"created_at,omitempty"`
}

func UnreadCount(items []Notification) int {
	n := 0
	for _, item := range items {
		if !item.IsRead {
			n++
		}
	}
	return n
}
