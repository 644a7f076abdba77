// Package integration translates domain documents into balanced journal
// entries. Each hook builds a posting request against the company's
// well-known accounts and hands it to the posting engine; the engine owns
// atomicity, code allocation and idempotency.
package integration

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/meridian-erp/meridian-erp/internal/accounting/coa"
	"github.com/meridian-erp/meridian-erp/internal/accounting/journals"
	"github.com/meridian-erp/meridian-erp/internal/accounting/shared"
	"github.com/meridian-erp/meridian-erp/internal/ap"
	"github.com/meridian-erp/meridian-erp/internal/ar"
	"github.com/meridian-erp/meridian-erp/internal/inventory"
)

// PostingEngine is the slice of the journals engine the hooks need.
type PostingEngine interface {
	Post(ctx context.Context, input journals.PostingRequest) (journals.PostingResult, error)
}

// AccountDirectory resolves well-known accounts by number.
type AccountDirectory interface {
	GetAccountByNumber(ctx context.Context, companyID int64, number string) (coa.Account, error)
}

// ValuationSource supplies per-item cost rates for COGS postings.
type ValuationSource interface {
	LatestRate(ctx context.Context, companyID, productID, warehouseID int64) (rate float64, ok bool, err error)
	PurchasePrice(ctx context.Context, companyID, productID int64) (float64, error)
}

// Hooks wires domain events into the general ledger. It implements the
// IntegrationHandler interfaces of the ap, ar and inventory packages.
type Hooks struct {
	engine    PostingEngine
	accounts  AccountDirectory
	valuation ValuationSource
	logger    *slog.Logger
}

var (
	_ ap.IntegrationHandler        = (*Hooks)(nil)
	_ ar.IntegrationHandler        = (*Hooks)(nil)
	_ inventory.IntegrationHandler = (*Hooks)(nil)
)

func NewHooks(engine PostingEngine, accounts AccountDirectory, valuation ValuationSource, logger *slog.Logger) *Hooks {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hooks{engine: engine, accounts: accounts, valuation: valuation, logger: logger}
}

// HandleReceiptRecorded posts a goods receipt: inventory up, payable up.
func (h *Hooks) HandleReceiptRecorded(ctx context.Context, evt ap.ReceiptRecordedEvent) (journals.PostingResult, error) {
	inventoryAcc, err := h.resolve(ctx, evt.CompanyID, coa.NumberInventory)
	if err != nil {
		return journals.PostingResult{}, err
	}
	payableAcc, err := h.resolve(ctx, evt.CompanyID, coa.NumberAccountsPayable)
	if err != nil {
		return journals.PostingResult{}, err
	}

	total := round2(evt.Total)
	desc := fmt.Sprintf("Goods receipt %s", evt.Code)
	return h.engine.Post(ctx, journals.PostingRequest{
		CompanyID:     evt.CompanyID,
		Date:          evt.ReceivedAt,
		SourceModule:  journals.SourceAP,
		ReferenceType: "AP_RECEIPT",
		ReferenceID:   sourceRef("ap_receipt", evt.CompanyID, strconv.FormatInt(evt.ReceiptID, 10)),
		ReferenceCode: evt.Code,
		Description:   desc,
		ActorID:       evt.ActorID,
		Lines: []journals.PostingLine{
			{AccountID: inventoryAcc.ID, Debit: total, Description: desc},
			{AccountID: payableAcc.ID, Credit: total, Description: desc},
		},
	})
}

// HandleAPPaymentRecorded posts a supplier payment: payable down, cash down.
func (h *Hooks) HandleAPPaymentRecorded(ctx context.Context, evt ap.PaymentRecordedEvent) (journals.PostingResult, error) {
	payableAcc, err := h.resolve(ctx, evt.CompanyID, coa.NumberAccountsPayable)
	if err != nil {
		return journals.PostingResult{}, err
	}
	cashAcc, err := h.resolve(ctx, evt.CompanyID, coa.NumberCash)
	if err != nil {
		return journals.PostingResult{}, err
	}

	amount := round2(evt.Amount)
	desc := fmt.Sprintf("Supplier payment %s", evt.Code)
	return h.engine.Post(ctx, journals.PostingRequest{
		CompanyID:     evt.CompanyID,
		Date:          evt.PaidAt,
		SourceModule:  journals.SourceAP,
		ReferenceType: "AP_PAYMENT",
		ReferenceID:   sourceRef("ap_payment", evt.CompanyID, strconv.FormatInt(evt.PaymentID, 10)),
		ReferenceCode: evt.Code,
		Description:   desc,
		ActorID:       evt.ActorID,
		Lines: []journals.PostingLine{
			{AccountID: payableAcc.ID, Debit: amount, Description: desc},
			{AccountID: cashAcc.ID, Credit: amount, Description: desc},
		},
	})
}

// HandleARPaymentRecorded posts a customer payment: cash up, receivable down.
func (h *Hooks) HandleARPaymentRecorded(ctx context.Context, evt ar.PaymentRecordedEvent) (journals.PostingResult, error) {
	cashAcc, err := h.resolve(ctx, evt.CompanyID, coa.NumberCash)
	if err != nil {
		return journals.PostingResult{}, err
	}
	receivableAcc, err := h.resolve(ctx, evt.CompanyID, coa.NumberAccountsReceivable)
	if err != nil {
		return journals.PostingResult{}, err
	}

	amount := round2(evt.Amount)
	desc := fmt.Sprintf("Customer payment %s", evt.Code)
	return h.engine.Post(ctx, journals.PostingRequest{
		CompanyID:     evt.CompanyID,
		Date:          evt.ReceivedAt,
		SourceModule:  journals.SourceAR,
		ReferenceType: "AR_PAYMENT",
		ReferenceID:   sourceRef("ar_payment", evt.CompanyID, strconv.FormatInt(evt.PaymentID, 10)),
		ReferenceCode: evt.Code,
		Description:   desc,
		ActorID:       evt.ActorID,
		Lines: []journals.PostingLine{
			{AccountID: cashAcc.ID, Debit: amount, Description: desc},
			{AccountID: receivableAcc.ID, Credit: amount, Description: desc},
		},
	})
}

// HandleShipmentPosted posts cost of goods sold for an outbound shipment.
// Each item is valued at its latest stock-ledger rate, falling back to the
// product's purchase price. A zero-value shipment posts nothing.
func (h *Hooks) HandleShipmentPosted(ctx context.Context, evt inventory.ShipmentPostedEvent) (journals.PostingResult, error) {
	var total float64
	for _, item := range evt.Items {
		rate, ok, err := h.valuation.LatestRate(ctx, evt.CompanyID, item.ProductID, evt.WarehouseID)
		if err != nil {
			return journals.PostingResult{}, err
		}
		if !ok {
			rate, err = h.valuation.PurchasePrice(ctx, evt.CompanyID, item.ProductID)
			if err != nil {
				return journals.PostingResult{}, err
			}
		}
		total += rate * item.Qty
	}
	total = round2(total)
	if total == 0 {
		h.logger.Info("shipment carries no cost, skipping cogs entry",
			slog.Int64("company_id", evt.CompanyID),
			slog.String("shipment", evt.Code))
		return journals.PostingResult{Skipped: true}, nil
	}

	cogsAcc, err := h.resolve(ctx, evt.CompanyID, coa.NumberCOGS)
	if err != nil {
		return journals.PostingResult{}, err
	}
	inventoryAcc, err := h.resolve(ctx, evt.CompanyID, coa.NumberInventory)
	if err != nil {
		return journals.PostingResult{}, err
	}

	desc := fmt.Sprintf("COGS for shipment %s", evt.Code)
	return h.engine.Post(ctx, journals.PostingRequest{
		CompanyID:     evt.CompanyID,
		Date:          evt.ShippedAt,
		SourceModule:  journals.SourceCOGS,
		ReferenceType: "SHIPMENT",
		ReferenceID:   sourceRef("shipment", evt.CompanyID, evt.Code),
		ReferenceCode: evt.Code,
		Description:   desc,
		ActorID:       evt.ActorID,
		Lines: []journals.PostingLine{
			{AccountID: cogsAcc.ID, Debit: total, Description: desc},
			{AccountID: inventoryAcc.ID, Credit: total, Description: desc},
		},
	})
}

func (h *Hooks) resolve(ctx context.Context, companyID int64, number string) (coa.Account, error) {
	acc, err := h.accounts.GetAccountByNumber(ctx, companyID, number)
	if err != nil {
		return coa.Account{}, fmt.Errorf("%w: account %s", shared.ErrAccountNotConfigured, number)
	}
	if !acc.IsActive {
		return coa.Account{}, fmt.Errorf("%w: account %s is inactive", shared.ErrAccountNotConfigured, number)
	}
	return acc, nil
}
