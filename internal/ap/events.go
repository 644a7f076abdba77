package ap

import (
	"context"
	"time"

	"github.com/meridian-erp/meridian-erp/internal/accounting/journals"
)

// ReceiptRecordedEvent is emitted after a goods receipt row is persisted.
type ReceiptRecordedEvent struct {
	CompanyID  int64
	ReceiptID  int64
	Code       string
	SupplierID int64
	Total      float64
	ReceivedAt time.Time
	ActorID    int64
}

// PaymentRecordedEvent is emitted after a supplier payment row is persisted.
type PaymentRecordedEvent struct {
	CompanyID  int64
	PaymentID  int64
	Code       string
	SupplierID int64
	Amount     float64
	PaidAt     time.Time
	ActorID    int64
}

// IntegrationHandler posts AP events to the general ledger. Implemented by
// the integration package and injected so this package stays decoupled from
// account resolution.
type IntegrationHandler interface {
	HandleReceiptRecorded(ctx context.Context, evt ReceiptRecordedEvent) (journals.PostingResult, error)
	HandleAPPaymentRecorded(ctx context.Context, evt PaymentRecordedEvent) (journals.PostingResult, error)
}
