package journals

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	internalShared "github.com/meridian-erp/meridian-erp/internal/shared"

	"github.com/meridian-erp/meridian-erp/internal/accounting/shared"
)

// AuditPort records ledger events for compliance.
type AuditPort interface {
	Record(ctx context.Context, log internalShared.AuditLog) error
}

// CacheInvalidator drops derived ledger state after a posting changes the
// visible line set. Satisfied by ledger.Cache.
type CacheInvalidator interface {
	Invalidate(ctx context.Context, companyID int64) error
}

// Service owns the journal entry lifecycle: drafts are created with their
// lines in one write, posted irreversibly, or cancelled. Posted entries are
// immutable.
type Service struct {
	repo       Repository
	audit      AuditPort
	invalidate CacheInvalidator
	logger     *slog.Logger
	now        func() time.Time
}

// NewService constructs the journal service.
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

// WithCacheInvalidator registers a ledger cache to drop after postings.
func (s *Service) WithCacheInvalidator(inv CacheInvalidator) {
	s.invalidate = inv
}

// GetEntry loads an entry with its lines joined to accounts.
func (s *Service) GetEntry(ctx context.Context, companyID, entryID int64) (JournalEntry, error) {
	return s.repo.GetEntryWithLines(ctx, companyID, entryID)
}

// ListEntries retrieves entries for a company.
func (s *Service) ListEntries(ctx context.Context, companyID int64, filter ListFilter) ([]JournalEntry, error) {
	return s.repo.ListEntries(ctx, companyID, filter)
}

// CreateDraft persists a manual entry in DRAFT status together with its
// lines. The journal code is allocated at creation.
func (s *Service) CreateDraft(ctx context.Context, input PostingRequest) (JournalEntry, error) {
	input.Normalize()
	if err := input.Validate(); err != nil {
		return JournalEntry{}, err
	}
	debit, credit := input.Totals()
	var entry JournalEntry
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if err := ensureAccountsUsable(ctx, tx, input); err != nil {
			return err
		}
		code, err := tx.NextJournalCode(ctx, input.CompanyID, input.Date.Year())
		if err != nil {
			return err
		}
		inserted, err := tx.InsertEntry(ctx, JournalEntry{
			CompanyID:     input.CompanyID,
			Code:          code,
			Date:          input.Date,
			Status:        JournalStatusDraft,
			SourceModule:  input.SourceModule,
			ReferenceType: input.ReferenceType,
			ReferenceID:   input.ReferenceID,
			ReferenceCode: input.ReferenceCode,
			Description:   input.Description,
			TotalDebit:    debit,
			TotalCredit:   credit,
			CreatedBy:     input.ActorID,
		})
		if err != nil {
			return err
		}
		if err := tx.InsertLines(ctx, input.CompanyID, inserted.ID, input.Lines); err != nil {
			return err
		}
		entry = inserted
		return nil
	})
	if err != nil {
		return JournalEntry{}, err
	}
	s.recordAudit(ctx, input.ActorID, "journal.draft", entry, nil)
	return s.repo.GetEntryWithLines(ctx, input.CompanyID, entry.ID)
}

// Post transitions a draft entry to POSTED. Posting requires DRAFT status,
// at least two lines, and balanced totals.
func (s *Service) Post(ctx context.Context, companyID, entryID, actorID int64) (JournalEntry, error) {
	var entry JournalEntry
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.GetEntryForUpdate(ctx, companyID, entryID)
		if err != nil {
			return err
		}
		switch current.Status {
		case JournalStatusPosted:
			return shared.ErrAlreadyPosted
		case JournalStatusCancelled:
			return shared.ErrInvalidTransition
		}
		lines, err := tx.GetLines(ctx, companyID, entryID)
		if err != nil {
			return err
		}
		if len(lines) < 2 {
			return shared.ErrTooFewLines
		}
		var debit, credit float64
		for _, line := range lines {
			debit += line.Debit
			credit += line.Credit
		}
		if math.Abs(debit-credit) > BalanceTolerance {
			return shared.ErrUnbalanced
		}
		if err := tx.MarkPosted(ctx, companyID, entryID, s.now(), actorID); err != nil {
			return err
		}
		entry = current
		return nil
	})
	if err != nil {
		return JournalEntry{}, err
	}
	s.recordAudit(ctx, actorID, "journal.post", entry, nil)
	s.invalidateLedger(ctx, companyID)
	return s.repo.GetEntryWithLines(ctx, companyID, entryID)
}

// Cancel transitions a draft entry to CANCELLED. Posted entries are
// immutable; cancelled entries stay cancelled.
func (s *Service) Cancel(ctx context.Context, companyID, entryID, actorID int64) (JournalEntry, error) {
	var entry JournalEntry
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.GetEntryForUpdate(ctx, companyID, entryID)
		if err != nil {
			return err
		}
		switch current.Status {
		case JournalStatusPosted:
			return shared.ErrImmutable
		case JournalStatusCancelled:
			return shared.ErrInvalidTransition
		}
		if err := tx.MarkCancelled(ctx, companyID, entryID); err != nil {
			return err
		}
		entry = current
		entry.Status = JournalStatusCancelled
		return nil
	})
	if err != nil {
		return JournalEntry{}, err
	}
	s.recordAudit(ctx, actorID, "journal.cancel", entry, nil)
	return entry, nil
}

// ReplaceDraftLines swaps the full line set of a draft entry. This is the
// only line mutation path; it rejects posted entries with ErrImmutable.
func (s *Service) ReplaceDraftLines(ctx context.Context, companyID, entryID, actorID int64, lines []PostingLine) (JournalEntry, error) {
	request := PostingRequest{CompanyID: companyID, Date: s.now(), SourceModule: SourceManual, Lines: lines}
	request.Normalize()
	if err := request.Validate(); err != nil {
		return JournalEntry{}, err
	}
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.GetEntryForUpdate(ctx, companyID, entryID)
		if err != nil {
			return err
		}
		switch current.Status {
		case JournalStatusPosted:
			return shared.ErrImmutable
		case JournalStatusCancelled:
			return shared.ErrInvalidTransition
		}
		if err := ensureAccountsUsable(ctx, tx, request); err != nil {
			return err
		}
		if err := tx.DeleteLines(ctx, companyID, entryID); err != nil {
			return err
		}
		if err := tx.InsertLines(ctx, companyID, entryID, request.Lines); err != nil {
			return err
		}
		debit, credit := request.Totals()
		return tx.UpdateTotals(ctx, companyID, entryID, debit, credit)
	})
	if err != nil {
		return JournalEntry{}, err
	}
	return s.repo.GetEntryWithLines(ctx, companyID, entryID)
}

// ensureAccountsUsable verifies every referenced account is a live, active
// account of the same tenant, taking share locks that serialise against
// account deletion.
func ensureAccountsUsable(ctx context.Context, tx TxRepository, input PostingRequest) error {
	ids := make([]int64, 0, len(input.Lines))
	seen := make(map[int64]struct{}, len(input.Lines))
	for _, line := range input.Lines {
		if _, ok := seen[line.AccountID]; ok {
			continue
		}
		seen[line.AccountID] = struct{}{}
		ids = append(ids, line.AccountID)
	}
	found, err := tx.LockAccounts(ctx, input.CompanyID, ids)
	if err != nil {
		return err
	}
	if len(found) != len(ids) {
		usable := make(map[int64]struct{}, len(found))
		for _, id := range found {
			usable[id] = struct{}{}
		}
		for _, id := range ids {
			if _, ok := usable[id]; !ok {
				return fmt.Errorf("%w: account %d is missing or inactive", shared.ErrValidationFailed, id)
			}
		}
	}
	return nil
}

func (s *Service) invalidateLedger(ctx context.Context, companyID int64) {
	if s.invalidate == nil {
		return
	}
	if err := s.invalidate.Invalidate(ctx, companyID); err != nil {
		s.logger.Warn("ledger cache invalidation failed",
			slog.Int64("company_id", companyID), slog.Any("error", err))
	}
}

func (s *Service) recordAudit(ctx context.Context, actorID int64, action string, entry JournalEntry, meta map[string]any) {
	if s.audit == nil {
		return
	}
	if meta == nil {
		meta = map[string]any{}
	}
	meta["company_id"] = entry.CompanyID
	meta["code"] = entry.Code
	meta["source_module"] = entry.SourceModule
	if err := s.audit.Record(ctx, internalShared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "journal_entry",
		EntityID: fmt.Sprintf("%d", entry.ID),
		Meta:     meta,
		At:       s.now(),
	}); err != nil {
		s.logger.Warn("audit record failed", slog.String("action", action), slog.Any("error", err))
	}
}
