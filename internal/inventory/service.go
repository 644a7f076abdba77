package inventory

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/meridian-erp/meridian-erp/internal/accounting/shared"
)

// ShipmentInput describes an outbound shipment to post.
type ShipmentInput struct {
	CompanyID   int64          `json:"companyId" validate:"required"`
	Code        string         `json:"code" validate:"required"`
	WarehouseID int64          `json:"warehouseId" validate:"required"`
	ShippedAt   time.Time      `json:"shippedAt" validate:"required"`
	Items       []ShipmentItem `json:"items" validate:"required,min=1,dive"`
	ActorID     int64          `json:"-"`
}

// ShipmentOutcome reports the posted shipment's ledger journal, if any.
// JournalCode is empty when the shipment carried no value to expense.
type ShipmentOutcome struct {
	Code        string `json:"code"`
	JournalCode string `json:"journalCode,omitempty"`
}

// Service posts outbound shipments to the stock ledger and the GL.
type Service struct {
	repo     Repository
	handler  IntegrationHandler
	validate *validator.Validate
	logger   *slog.Logger
}

func NewService(repo Repository, handler IntegrationHandler, logger *slog.Logger) *Service {
	return &Service{
		repo:     repo,
		handler:  handler,
		validate: validator.New(),
		logger:   logger,
	}
}

// PostShipment writes OUT movements for each item and posts cost of goods
// sold. A GL failure is returned to the caller; the stock movements stay.
func (s *Service) PostShipment(ctx context.Context, in ShipmentInput) (ShipmentOutcome, error) {
	if err := s.validate.Struct(in); err != nil {
		return ShipmentOutcome{}, fmt.Errorf("%w: %v", shared.ErrValidationFailed, err)
	}

	moves := make([]StockMovement, 0, len(in.Items))
	for _, it := range in.Items {
		moves = append(moves, StockMovement{
			CompanyID:   in.CompanyID,
			ProductID:   it.ProductID,
			WarehouseID: in.WarehouseID,
			Direction:   MovementOut,
			Qty:         it.Qty,
			RefType:     "SHIPMENT",
			RefCode:     in.Code,
			MovedAt:     in.ShippedAt,
		})
	}
	if err := s.repo.InsertMovements(ctx, moves); err != nil {
		return ShipmentOutcome{}, err
	}

	res, err := s.handler.HandleShipmentPosted(ctx, ShipmentPostedEvent{
		CompanyID:   in.CompanyID,
		Code:        in.Code,
		WarehouseID: in.WarehouseID,
		ShippedAt:   in.ShippedAt,
		ActorID:     in.ActorID,
		Items:       in.Items,
	})
	if err != nil {
		s.logger.Error("shipment cogs posting failed",
			slog.Int64("company_id", in.CompanyID),
			slog.String("shipment", in.Code),
			slog.Any("error", err))
		return ShipmentOutcome{Code: in.Code}, err
	}
	return ShipmentOutcome{Code: in.Code, JournalCode: res.JournalCode}, nil
}
