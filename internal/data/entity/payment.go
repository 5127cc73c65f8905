package entity

import (
	"github.com/google/uuid"
)

type PaymentTransactionStatus string

const (
	PaymentPendingVerification PaymentTransactionStatus = "pending_verification"
	PaymentVerified            PaymentTransactionStatus = "verified"
	PaymentRejected            PaymentTransactionStatus = "rejected"
)

func (s PaymentTransactionStatus) IsValid() bool {
	switch s {
	case PaymentPendingVerification, PaymentVerified, PaymentRejected:
		return true
	}
	return false
}

type PaymentType string

const (
	PaymentTypeDownPayment PaymentType = "down_payment"
	PaymentTypeBalance     PaymentType = "balance"
	PaymentTypeFull        PaymentType = "full"
)

type PaymentMethod string

const (
	PaymentMethodGCash        PaymentMethod = "gcash"
	PaymentMethodBankTransfer PaymentMethod = "bank_transfer"
	PaymentMethodCash         PaymentMethod = "cash"
	PaymentMethodCard         PaymentMethod = "card"
)

type PaymentTransaction struct {
	Base
	AppointmentID   uuid.UUID                `db:"appointment_id"`
	PayerID         uuid.UUID                `db:"payer_id"`
	Amount          float64                  `db:"amount"`
	PaymentType     PaymentType              `db:"payment_type"`
	PaymentMethod   PaymentMethod            `db:"payment_method"`
	ReferenceNumber string                   `db:"reference_number"`
	ProofURL        *string                  `db:"proof_url"`
	Status          PaymentTransactionStatus `db:"status"`
	VerifiedBy      *uuid.UUID               `db:"verified_by"`
	Notes           *string                  `db:"notes"`
}

// DerivePaymentStatus aggregates verified payments against the package price.
func DerivePaymentStatus(verifiedTotal, totalAmount float64) PaymentStatus {
	switch {
	case verifiedTotal <= 0:
		return PaymentStatusUnpaid
	case verifiedTotal >= totalAmount:
		return PaymentStatusFullyPaid
	default:
		return PaymentStatusPartiallyPaid
	}
}
