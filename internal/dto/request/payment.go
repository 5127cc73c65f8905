package request

type CreatePaymentRequest struct {
	Amount          float64 `json:"amount" validate:"required,gt=0"`
	PaymentType     string  `json:"payment_type" validate:"required,oneof=down_payment balance full"`
	PaymentMethod   string  `json:"payment_method" validate:"required,oneof=gcash bank_transfer cash card"`
	ReferenceNumber string  `json:"reference_number" validate:"required,max=100"`
	ProofURL        *string `json:"proof_url,omitempty" validate:"omitempty,url"`
}

type VerifyPaymentRequest struct {
	Status string  `json:"status" validate:"required,oneof=verified rejected"`
	Notes  *string `json:"notes,omitempty" validate:"omitempty,max=1000"`
}

type ListPaymentsRequest struct {
	PaginatedRequest
	Status string `json:"status" validate:"omitempty,oneof=pending_verification verified rejected"`
}
