package response

import (
	"time"

	"catering-booking/internal/data/entity"
)

type PaymentResponse struct {
	ID              string                          `json:"id"`
	AppointmentID   string                          `json:"appointment_id"`
	PayerID         string                          `json:"payer_id"`
	Amount          float64                         `json:"amount"`
	PaymentType     entity.PaymentType              `json:"payment_type"`
	PaymentMethod   entity.PaymentMethod            `json:"payment_method"`
	ReferenceNumber string                          `json:"reference_number"`
	ProofURL        *string                         `json:"proof_url,omitempty"`
	Status          entity.PaymentTransactionStatus `json:"status"`
	VerifiedBy      *string                         `json:"verified_by,omitempty"`
	Notes           *string                         `json:"notes,omitempty"`
	CreatedAt       time.Time                       `json:"created_at"`
	UpdatedAt       time.Time                       `json:"updated_at"`
}

// PaymentVerificationResponse reports the payment together with the
// appointment it settled.
type PaymentVerificationResponse struct {
	Payment     PaymentResponse     `json:"payment"`
	Appointment AppointmentResponse `json:"appointment"`
}

func PaymentToResponse(p *entity.PaymentTransaction) PaymentResponse {
	resp := PaymentResponse{
		ID:              p.ID.String(),
		AppointmentID:   p.AppointmentID.String(),
		PayerID:         p.PayerID.String(),
		Amount:          p.Amount,
		PaymentType:     p.PaymentType,
		PaymentMethod:   p.PaymentMethod,
		ReferenceNumber: p.ReferenceNumber,
		ProofURL:        p.ProofURL,
		Status:          p.Status,
		Notes:           p.Notes,
		CreatedAt:       p.CreatedAt,
		UpdatedAt:       p.UpdatedAt,
	}
	if p.VerifiedBy != nil {
		id := p.VerifiedBy.String()
		resp.VerifiedBy = &id
	}
	return resp
}
