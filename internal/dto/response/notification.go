package response

import (
	"time"

	"catering-booking/internal/data/entity"
)

type NotificationResponse struct {
	ID                   string                  `json:"id"`
	Title                string                  `json:"title"`
	Message              string                  `json:"message"`
	Type                 entity.NotificationType `json:"type"`
	IsRead               bool                    `json:"is_read"`
	AppointmentID        *string                 `json:"appointment_id,omitempty"`
	PaymentTransactionID *string                 `json:"payment_transaction_id,omitempty"`
	CreatedAt            time.Time               `json:"created_at"`
}

type NotificationListResponse struct {
	Notifications []NotificationResponse `json:"notifications"`
	UnreadCount   int64                  `json:"unread_count"`
	Pagination    PaginationMeta         `json:"pagination"`
}

func NotificationToResponse(n *entity.Notification) NotificationResponse {
	resp := NotificationResponse{
		ID:        n.ID.String(),
		Title:     n.Title,
		Message:   n.Message,
		Type:      n.Type,
		IsRead:    n.IsRead,
		CreatedAt: n.CreatedAt,
	}
	if n.AppointmentID != nil {
		id := n.AppointmentID.String()
		resp.AppointmentID = &id
	}
	if n.PaymentTransactionID != nil {
		id := n.PaymentTransactionID.String()
		resp.PaymentTransactionID = &id
	}
	return resp
}
