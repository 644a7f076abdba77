package journals

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	internalShared "github.com/meridian-erp/meridian-erp/internal/shared"

	"github.com/meridian-erp/meridian-erp/internal/accounting/shared"
)

// PostingResult reports the outcome of an engine posting.
type PostingResult struct {
	JournalEntryID *int64
	JournalCode    string
	// Skipped is set when the request total was zero and no entry was created.
	Skipped bool
	// Replayed is set when the source was already linked and the existing
	// entry was returned instead of double-posting.
	Replayed bool
}

// Engine runs the atomic posting protocol used by every domain adapter:
// validate, allocate a journal code, insert the header already POSTED, insert
// the lines, link the source — all inside one transaction. On stores without
// cross-statement transactions the repository may fall back to compensating
// deletes; the orphan sweep job covers the window that leaves.
type Engine struct {
	repo       Repository
	audit      AuditPort
	invalidate CacheInvalidator
	logger     *slog.Logger
	now        func() time.Time
}

// NewEngine constructs the posting engine.
func NewEngine(repo Repository, audit AuditPort, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{repo: repo, audit: audit, logger: logger, now: time.Now}
}

// WithNow overrides the clock for testing.
func (e *Engine) WithNow(now func() time.Time) {
	if now != nil {
		e.now = now
	}
}

// WithCacheInvalidator registers a ledger cache to drop after postings.
func (e *Engine) WithCacheInvalidator(inv CacheInvalidator) {
	e.invalidate = inv
}

// Post validates and persists an auto-posted journal entry. Validation
// failures abort before any write. A zero-total request is an intentional
// no-op, not an error.
func (e *Engine) Post(ctx context.Context, input PostingRequest) (PostingResult, error) {
	input.Normalize()
	if err := input.Validate(); err != nil {
		return PostingResult{}, err
	}
	debit, credit := input.Totals()
	if debit == 0 && credit == 0 {
		return PostingResult{Skipped: true}, nil
	}

	var entry JournalEntry
	postedAt := e.now()
	err := e.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
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
			Status:        JournalStatusPosted,
			SourceModule:  input.SourceModule,
			ReferenceType: input.ReferenceType,
			ReferenceID:   input.ReferenceID,
			ReferenceCode: input.ReferenceCode,
			Description:   input.Description,
			TotalDebit:    debit,
			TotalCredit:   credit,
			PostedAt:      &postedAt,
			PostedBy:      actorPtr(input.ActorID),
			CreatedBy:     input.ActorID,
		})
		if err != nil {
			return err
		}
		if err := tx.InsertLines(ctx, input.CompanyID, inserted.ID, input.Lines); err != nil {
			// The transaction rollback removes the header; the wrapped error
			// still names the failed step for reconciliation logs.
			return fmt.Errorf("%w: insert lines for %s: %v", shared.ErrPostingFailed, inserted.Code, err)
		}
		if input.ReferenceID != uuid.Nil {
			if err := tx.LinkSource(ctx, input.CompanyID, input.SourceModule, input.ReferenceID, inserted.ID); err != nil {
				return err
			}
		}
		entry = inserted
		return nil
	})
	if err != nil {
		if errors.Is(err, shared.ErrSourceAlreadyLinked) && input.ReferenceID != uuid.Nil {
			return e.replay(ctx, input)
		}
		e.logger.Error("posting failed",
			slog.Int64("company_id", input.CompanyID),
			slog.String("source_module", string(input.SourceModule)),
			slog.String("reference_code", input.ReferenceCode),
			slog.Any("error", err))
		return PostingResult{}, err
	}

	if e.audit != nil {
		e.recordAudit(ctx, input.ActorID, entry)
	}
	if e.invalidate != nil {
		if err := e.invalidate.Invalidate(ctx, entry.CompanyID); err != nil {
			e.logger.Warn("ledger cache invalidation failed",
				slog.Int64("company_id", entry.CompanyID), slog.Any("error", err))
		}
	}
	e.logger.Info("journal posted",
		slog.Int64("company_id", entry.CompanyID),
		slog.String("code", entry.Code),
		slog.String("source_module", string(entry.SourceModule)))
	id := entry.ID
	return PostingResult{JournalEntryID: &id, JournalCode: entry.Code}, nil
}

// replay resolves the entry a previous posting created for the same source.
func (e *Engine) replay(ctx context.Context, input PostingRequest) (PostingResult, error) {
	existing, err := e.repo.FindEntryBySource(ctx, input.CompanyID, input.SourceModule, input.ReferenceID)
	if err != nil {
		return PostingResult{}, fmt.Errorf("%w: source already linked but entry lookup failed", shared.ErrConflict)
	}
	e.logger.Info("posting replayed",
		slog.Int64("company_id", input.CompanyID),
		slog.String("code", existing.Code),
		slog.String("source_module", string(input.SourceModule)))
	id := existing.ID
	return PostingResult{JournalEntryID: &id, JournalCode: existing.Code, Replayed: true}, nil
}

func (e *Engine) recordAudit(ctx context.Context, actorID int64, entry JournalEntry) {
	err := e.audit.Record(ctx, internalShared.AuditLog{
		ActorID:  actorID,
		Action:   "journal.autopost",
		Entity:   "journal_entry",
		EntityID: fmt.Sprintf("%d", entry.ID),
		Meta: map[string]any{
			"company_id":    entry.CompanyID,
			"code":          entry.Code,
			"source_module": entry.SourceModule,
			"reference":     entry.ReferenceCode,
		},
		At: e.now(),
	})
	if err != nil {
		e.logger.Warn("audit record failed", slog.String("code", entry.Code), slog.Any("error", err))
	}
}

func actorPtr(id int64) *int64 {
	if id == 0 {
		return nil
	}
	return &id
}
