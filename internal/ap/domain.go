// Package ap records supplier-side payment and receipt events and feeds them
// to the general ledger.
package ap

import (
	"errors"
	"time"
)

// GoodsReceipt models an inbound receipt of purchased goods.
type GoodsReceipt struct {
	ID         int64
	CompanyID  int64
	Code       string
	SupplierID int64
	Total      float64
	ReceivedAt time.Time
	CreatedBy  int64
	CreatedAt  time.Time
}

// Payment models a payment made against a supplier bill.
type Payment struct {
	ID         int64
	CompanyID  int64
	Code       string
	SupplierID int64
	Amount     float64
	Method     string
	Note       string
	PaidAt     time.Time
	CreatedBy  int64
	CreatedAt  time.Time
}

// RecordReceiptInput describes a goods receipt to record.
type RecordReceiptInput struct {
	CompanyID  int64     `json:"companyId" validate:"required"`
	Code       string    `json:"code" validate:"required"`
	SupplierID int64     `json:"supplierId" validate:"required"`
	Total      float64   `json:"total" validate:"gt=0"`
	ReceivedAt time.Time `json:"receivedAt" validate:"required"`
	ActorID    int64     `json:"-"`
}

// RecordPaymentInput describes a supplier payment to record.
type RecordPaymentInput struct {
	CompanyID  int64     `json:"companyId" validate:"required"`
	Code       string    `json:"code" validate:"required"`
	SupplierID int64     `json:"supplierId" validate:"required"`
	Amount     float64   `json:"amount" validate:"gt=0"`
	Method     string    `json:"method"`
	Note       string    `json:"note"`
	PaidAt     time.Time `json:"paidAt" validate:"required"`
	ActorID    int64     `json:"-"`
}

// ErrInvalidAmount indicates a non-positive amount.
var ErrInvalidAmount = errors.New("ap: amount must be positive")
