package ar

import (
	"context"
	"time"

	"github.com/meridian-erp/meridian-erp/internal/accounting/journals"
)

// PaymentRecordedEvent is emitted after a customer payment row is persisted.
type PaymentRecordedEvent struct {
	CompanyID  int64
	PaymentID  int64
	Code       string
	CustomerID int64
	Amount     float64
	ReceivedAt time.Time
	ActorID    int64
}

// IntegrationHandler posts AR events to the general ledger.
type IntegrationHandler interface {
	HandleARPaymentRecorded(ctx context.Context, evt PaymentRecordedEvent) (journals.PostingResult, error)
}
