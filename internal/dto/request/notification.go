package request

type ListNotificationsRequest struct {
	PaginatedRequest
	UnreadOnly bool `json:"unread_only"`
}
