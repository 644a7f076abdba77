package coa

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	internalShared "github.com/meridian-erp/meridian-erp/internal/shared"

	"github.com/meridian-erp/meridian-erp/internal/accounting/shared"
)

// AuditPort records chart mutations for compliance.
type AuditPort interface {
	Record(ctx context.Context, log internalShared.AuditLog) error
}

// Service coordinates chart of accounts operations. Tenant identity is an
// explicit companyID parameter on every call.
type Service struct {
	repo   Repository
	audit  AuditPort
	logger *slog.Logger
	now    func() time.Time
}

// NewService constructs the chart of accounts service.
func NewService(repo Repository, audit AuditPort, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, audit: audit, logger: logger, now: time.Now}
}

// WithNow overrides the clock for testing.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// GetAccount fetches a live account by id.
func (s *Service) GetAccount(ctx context.Context, companyID, id int64) (Account, error) {
	return s.repo.GetAccount(ctx, companyID, id)
}

// GetAccountByNumber resolves an account by its human-assigned number.
func (s *Service) GetAccountByNumber(ctx context.Context, companyID int64, number string) (Account, error) {
	return s.repo.GetAccountByNumber(ctx, companyID, number)
}

// ListAccounts retrieves the chart for a company.
func (s *Service) ListAccounts(ctx context.Context, companyID int64, filter ListFilter) ([]Account, error) {
	return s.repo.ListAccounts(ctx, companyID, filter)
}

// CreateAccount validates and persists a new account. The level is derived
// from the parent (parent.level + 1, or 1 for roots).
func (s *Service) CreateAccount(ctx context.Context, companyID int64, input CreateAccountInput) (Account, error) {
	if err := input.Validate(); err != nil {
		return Account{}, err
	}
	var created Account
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		level := 1
		if input.ParentID != nil {
			parent, err := tx.GetAccount(ctx, companyID, *input.ParentID)
			if err != nil {
				return err
			}
			level = parent.Level + 1
		}
		account := Account{
			CompanyID:   companyID,
			Number:      input.Number,
			Name:        input.Name,
			Type:        input.Type,
			ParentID:    input.ParentID,
			IsSystem:    false,
			IsActive:    true,
			Level:       level,
			SortOrder:   input.SortOrder,
			Description: input.Description,
		}
		var err error
		created, err = tx.InsertAccount(ctx, account)
		return err
	})
	if err != nil {
		return Account{}, err
	}
	s.recordAudit(ctx, input.ActorID, "account.create", created, nil)
	return created, nil
}

// UpdateAccount applies a partial update. Re-parenting validates the full
// ancestor chain and recomputes levels for the moved subtree.
func (s *Service) UpdateAccount(ctx context.Context, companyID, id int64, input UpdateAccountInput) (Account, error) {
	if err := input.Validate(); err != nil {
		return Account{}, err
	}
	var updated Account
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		account, err := tx.GetAccountForUpdate(ctx, companyID, id)
		if err != nil {
			return err
		}
		if input.Number != nil && *input.Number != account.Number {
			if account.IsSystem {
				return fmt.Errorf("%w: system account number cannot change", shared.ErrForbidden)
			}
			account.Number = *input.Number
		}
		if input.Name != nil {
			account.Name = *input.Name
		}
		if input.Type != nil {
			account.Type = *input.Type
		}
		if input.SortOrder != nil {
			account.SortOrder = *input.SortOrder
		}
		if input.Description != nil {
			account.Description = *input.Description
		}
		if input.IsActive != nil {
			account.IsActive = *input.IsActive
		}
		reparented := false
		if input.ClearParent && account.ParentID != nil {
			account.ParentID = nil
			account.Level = 1
			reparented = true
		}
		if input.ParentID != nil {
			if *input.ParentID == id {
				return shared.ErrSelfParent
			}
			parent, err := tx.GetAccount(ctx, companyID, *input.ParentID)
			if err != nil {
				return err
			}
			if err := ensureNoCycle(ctx, tx, companyID, id, parent); err != nil {
				return err
			}
			account.ParentID = input.ParentID
			account.Level = parent.Level + 1
			reparented = true
		}
		updated, err = tx.UpdateAccount(ctx, account)
		if err != nil {
			return err
		}
		if reparented {
			return tx.RecomputeSubtreeLevels(ctx, companyID, id, updated.Level)
		}
		return nil
	})
	if err != nil {
		return Account{}, err
	}
	s.recordAudit(ctx, input.ActorID, "account.update", updated, nil)
	return updated, nil
}

// DeleteAccount soft-deletes an unused, non-system account. The row lock
// taken here serialises against concurrent postings inserting lines for the
// same account.
func (s *Service) DeleteAccount(ctx context.Context, companyID, id, actorID int64) error {
	var deleted Account
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		account, err := tx.GetAccountForUpdate(ctx, companyID, id)
		if err != nil {
			return err
		}
		if account.IsSystem {
			return fmt.Errorf("%w: system account cannot be deleted", shared.ErrForbidden)
		}
		used, err := tx.HasJournalLines(ctx, id)
		if err != nil {
			return err
		}
		if used {
			return fmt.Errorf("%w: account has journal activity", shared.ErrConflict)
		}
		deleted = account
		return tx.SoftDeleteAccount(ctx, companyID, id, s.now())
	})
	if err != nil {
		return err
	}
	s.recordAudit(ctx, actorID, "account.delete", deleted, nil)
	return nil
}

// ensureNoCycle walks the proposed parent's ancestor chain and rejects any
// re-parent that would make the account its own ancestor.
func ensureNoCycle(ctx context.Context, tx TxRepository, companyID, accountID int64, parent Account) error {
	current := parent
	for {
		if current.ID == accountID {
			return shared.ErrHierarchyCycle
		}
		if current.ParentID == nil {
			return nil
		}
		next, err := tx.GetAccount(ctx, companyID, *current.ParentID)
		if err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				return nil
			}
			return err
		}
		current = next
	}
}

func (s *Service) recordAudit(ctx context.Context, actorID int64, action string, account Account, meta map[string]any) {
	if s.audit == nil {
		return
	}
	if meta == nil {
		meta = map[string]any{}
	}
	meta["company_id"] = account.CompanyID
	meta["number"] = account.Number
	if err := s.audit.Record(ctx, internalShared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "account",
		EntityID: fmt.Sprintf("%d", account.ID),
		Meta:     meta,
		At:       s.now(),
	}); err != nil {
		s.logger.Warn("audit record failed", slog.String("action", action), slog.Any("error", err))
	}
}
