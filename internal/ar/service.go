package ar

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/go-playground/validator/v10"

	"github.com/meridian-erp/meridian-erp/internal/accounting/shared"
)

// PaymentOutcome reports the persisted payment together with its ledger state.
type PaymentOutcome struct {
	Payment     Payment `json:"payment"`
	GLPosted    bool    `json:"glPosted"`
	GLError     string  `json:"glError,omitempty"`
	JournalCode string  `json:"journalCode,omitempty"`
}

// Service records AR payments and hands them to the ledger integration.
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

// RecordPayment persists a customer payment and posts it to the ledger. The
// journal posting is best-effort: on failure the payment is flagged unposted
// with the error surfaced, not rolled back.
func (s *Service) RecordPayment(ctx context.Context, in RecordPaymentInput) (PaymentOutcome, error) {
	if err := s.validate.Struct(in); err != nil {
		return PaymentOutcome{}, fmt.Errorf("%w: %v", shared.ErrValidationFailed, err)
	}

	p := &Payment{
		CompanyID:  in.CompanyID,
		Code:       in.Code,
		CustomerID: in.CustomerID,
		Amount:     in.Amount,
		Method:     in.Method,
		Note:       in.Note,
		ReceivedAt: in.ReceivedAt,
		CreatedBy:  in.ActorID,
	}
	if err := s.repo.InsertPayment(ctx, p); err != nil {
		return PaymentOutcome{}, err
	}

	out := PaymentOutcome{Payment: *p}
	res, err := s.handler.HandleARPaymentRecorded(ctx, PaymentRecordedEvent{
		CompanyID:  p.CompanyID,
		PaymentID:  p.ID,
		Code:       p.Code,
		CustomerID: p.CustomerID,
		Amount:     p.Amount,
		ReceivedAt: p.ReceivedAt,
		ActorID:    in.ActorID,
	})
	if err != nil {
		out.GLError = err.Error()
		s.logger.Error("ar payment posting failed",
			slog.Int64("company_id", p.CompanyID),
			slog.String("payment", p.Code),
			slog.Any("error", err))
		if stateErr := s.repo.SetPaymentGLState(ctx, p.CompanyID, p.ID, false, out.GLError); stateErr != nil {
			s.logger.Error("ar payment gl state update failed", slog.Any("error", stateErr))
		}
		return out, nil
	}

	out.GLPosted = true
	out.JournalCode = res.JournalCode
	if stateErr := s.repo.SetPaymentGLState(ctx, p.CompanyID, p.ID, true, ""); stateErr != nil {
		s.logger.Error("ar payment gl state update failed", slog.Any("error", stateErr))
	}
	return out, nil
}
