// Package inventory tracks stock movements and supplies valuation rates for
// cost-of-goods-sold postings.
package inventory

import (
	"context"
	"time"

	"github.com/meridian-erp/meridian-erp/internal/accounting/journals"
)

// Movement directions in the stock ledger.
const (
	MovementIn  = "IN"
	MovementOut = "OUT"
)

// StockMovement is one row of the stock ledger.
type StockMovement struct {
	ID            int64
	CompanyID     int64
	ProductID     int64
	WarehouseID   int64
	Direction     string
	Qty           float64
	ValuationRate *float64
	RefType       string
	RefCode       string
	MovedAt       time.Time
	CreatedAt     time.Time
}

// ShipmentItem is one product line on an outbound shipment.
type ShipmentItem struct {
	ProductID int64   `json:"productId" validate:"required"`
	Qty       float64 `json:"qty" validate:"gt=0"`
}

// ShipmentPostedEvent is emitted after an outbound shipment's stock
// movements are persisted.
type ShipmentPostedEvent struct {
	CompanyID   int64
	ShipmentID  int64
	Code        string
	WarehouseID int64
	ShippedAt   time.Time
	ActorID     int64
	Items       []ShipmentItem
}

// IntegrationHandler posts inventory events to the general ledger.
type IntegrationHandler interface {
	HandleShipmentPosted(ctx context.Context, evt ShipmentPostedEvent) (journals.PostingResult, error)
}
