package ap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/go-playground/validator/v10"

	"github.com/meridian-erp/meridian-erp/internal/accounting/shared"
)

// PaymentOutcome reports the persisted payment together with its ledger state.
// GLPosted is false when the journal could not be created; the payment row is
// kept either way so the money movement is never lost.
type PaymentOutcome struct {
	Payment     Payment `json:"payment"`
	GLPosted    bool    `json:"glPosted"`
	GLError     string  `json:"glError,omitempty"`
	JournalCode string  `json:"journalCode,omitempty"`
}

// ReceiptOutcome reports a persisted goods receipt and its journal.
type ReceiptOutcome struct {
	Receipt     GoodsReceipt `json:"receipt"`
	JournalCode string       `json:"journalCode,omitempty"`
}

// Service records AP documents and hands them to the ledger integration.
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

// RecordReceipt persists a goods receipt and posts inventory against accounts
// payable. A posting failure is returned to the caller; the receipt row stays.
func (s *Service) RecordReceipt(ctx context.Context, in RecordReceiptInput) (ReceiptOutcome, error) {
	if err := s.validate.Struct(in); err != nil {
		return ReceiptOutcome{}, fmt.Errorf("%w: %v", shared.ErrValidationFailed, err)
	}

	rec := &GoodsReceipt{
		CompanyID:  in.CompanyID,
		Code:       in.Code,
		SupplierID: in.SupplierID,
		Total:      in.Total,
		ReceivedAt: in.ReceivedAt,
		CreatedBy:  in.ActorID,
	}
	if err := s.repo.InsertReceipt(ctx, rec); err != nil {
		return ReceiptOutcome{}, err
	}

	res, err := s.handler.HandleReceiptRecorded(ctx, ReceiptRecordedEvent{
		CompanyID:  rec.CompanyID,
		ReceiptID:  rec.ID,
		Code:       rec.Code,
		SupplierID: rec.SupplierID,
		Total:      rec.Total,
		ReceivedAt: rec.ReceivedAt,
		ActorID:    in.ActorID,
	})
	if err != nil {
		s.logger.Error("ap receipt posting failed",
			slog.Int64("company_id", rec.CompanyID),
			slog.String("receipt", rec.Code),
			slog.Any("error", err))
		return ReceiptOutcome{Receipt: *rec}, err
	}
	return ReceiptOutcome{Receipt: *rec, JournalCode: res.JournalCode}, nil
}

// RecordPayment persists a supplier payment and posts it to the ledger. The
// journal posting is best-effort: on failure the payment is flagged unposted
// with the error surfaced, not rolled back.
func (s *Service) RecordPayment(ctx context.Context, in RecordPaymentInput) (PaymentOutcome, error) {
	if err := s.validate.Struct(in); err != nil {
		return PaymentOutcome{}, fmt.Errorf("%w: %v", shared.ErrValidationFailed, err)
	}

	p := &Payment{
		CompanyID:  in.CompanyID,
		Code:       in.Code,
		SupplierID: in.SupplierID,
		Amount:     in.Amount,
		Method:     in.Method,
		Note:       in.Note,
		PaidAt:     in.PaidAt,
		CreatedBy:  in.ActorID,
	}
	if err := s.repo.InsertPayment(ctx, p); err != nil {
		return PaymentOutcome{}, err
	}

	out := PaymentOutcome{Payment: *p}
	res, err := s.handler.HandleAPPaymentRecorded(ctx, PaymentRecordedEvent{
		CompanyID:  p.CompanyID,
		PaymentID:  p.ID,
		Code:       p.Code,
		SupplierID: p.SupplierID,
		Amount:     p.Amount,
		PaidAt:     p.PaidAt,
		ActorID:    in.ActorID,
	})
	if err != nil {
		out.GLError = err.Error()
		s.logger.Error("ap payment posting failed",
			slog.Int64("company_id", p.CompanyID),
			slog.String("payment", p.Code),
			slog.Any("error", err))
		if stateErr := s.repo.SetPaymentGLState(ctx, p.CompanyID, p.ID, false, out.GLError); stateErr != nil {
			s.logger.Error("ap payment gl state update failed", slog.Any("error", stateErr))
		}
		return out, nil
	}

	out.GLPosted = true
	out.JournalCode = res.JournalCode
	if stateErr := s.repo.SetPaymentGLState(ctx, p.CompanyID, p.ID, true, ""); stateErr != nil {
		s.logger.Error("ap payment gl state update failed", slog.Any("error", stateErr))
	}
	return out, nil
}
