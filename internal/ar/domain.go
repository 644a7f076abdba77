// Package ar records customer payment events and feeds them to the
// general ledger.
package ar

import "time"

// Payment models a payment received from a customer.
type Payment struct {
	ID         int64
	CompanyID  int64
	Code       string
	CustomerID int64
	Amount     float64
	Method     string
	Note       string
	ReceivedAt time.Time
	CreatedBy  int64
	CreatedAt  time.Time
}

// RecordPaymentInput describes a customer payment to record.
type RecordPaymentInput struct {
	CompanyID  int64     `json:"companyId" validate:"required"`
	Code       string    `json:"code" validate:"required"`
	CustomerID int64     `json:"customerId" validate:"required"`
	Amount     float64   `json:"amount" validate:"gt=0"`
	Method     string    `json:"method"`
	Note       string    `json:"note"`
	ReceivedAt time.Time `json:"receivedAt" validate:"required"`
	ActorID    int64     `json:"-"`
}
