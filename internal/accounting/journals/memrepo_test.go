package journals

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/meridian-erp/meridian-erp/internal/accounting/shared"
)

// memJournalRepo is an in-memory Repository and TxRepository double.
// WithTx snapshots state and restores it when the callback fails, matching
// the rollback behaviour of the pgx implementation. A single mutex makes
// every transaction serial, which is the strictest schedule the engine must
// survive.
type memJournalRepo struct {
	mu        sync.Mutex
	nextID    int64
	sequences map[string]int64
	entries   map[int64]JournalEntry
	lines     map[int64][]JournalLine
	links     map[string]int64
	accounts  map[int64]bool

	failInsertLines bool
}

func newMemJournalRepo(accountIDs ...int64) *memJournalRepo {
	accounts := make(map[int64]bool, len(accountIDs))
	for _, id := range accountIDs {
		accounts[id] = true
	}
	return &memJournalRepo{
		nextID:    1,
		sequences: map[string]int64{},
		entries:   map[int64]JournalEntry{},
		lines:     map[int64][]JournalLine{},
		links:     map[string]int64{},
		accounts:  accounts,
	}
}

func (r *memJournalRepo) snapshot() (map[string]int64, map[int64]JournalEntry, map[int64][]JournalLine, map[string]int64, int64) {
	seq := make(map[string]int64, len(r.sequences))
	for k, v := range r.sequences {
		seq[k] = v
	}
	entries := make(map[int64]JournalEntry, len(r.entries))
	for k, v := range r.entries {
		entries[k] = v
	}
	lines := make(map[int64][]JournalLine, len(r.lines))
	for k, v := range r.lines {
		lines[k] = append([]JournalLine(nil), v...)
	}
	links := make(map[string]int64, len(r.links))
	for k, v := range r.links {
		links[k] = v
	}
	return seq, entries, lines, links, r.nextID
}

func (r *memJournalRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	seq, entries, lines, links, nextID := r.snapshot()
	if err := fn(ctx, r); err != nil {
		r.sequences, r.entries, r.lines, r.links, r.nextID = seq, entries, lines, links, nextID
		return err
	}
	return nil
}

func (r *memJournalRepo) GetEntryWithLines(_ context.Context, companyID, entryID int64) (JournalEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[entryID]
	if !ok || e.CompanyID != companyID {
		return JournalEntry{}, shared.ErrNotFound
	}
	e.Lines = append([]JournalLine(nil), r.lines[entryID]...)
	return e, nil
}

func (r *memJournalRepo) ListEntries(_ context.Context, companyID int64, filter ListFilter) ([]JournalEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []JournalEntry
	for _, e := range r.entries {
		if e.CompanyID != companyID {
			continue
		}
		if filter.Status != "" && e.Status != filter.Status {
			continue
		}
		if filter.Source != "" && e.SourceModule != filter.Source {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

func (r *memJournalRepo) FindEntryBySource(_ context.Context, companyID int64, module SourceModule, ref uuid.UUID) (JournalEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.links[linkKey(companyID, module, ref)]
	if !ok {
		return JournalEntry{}, shared.ErrNotFound
	}
	e := r.entries[id]
	e.Lines = append([]JournalLine(nil), r.lines[id]...)
	return e, nil
}

func (r *memJournalRepo) NextJournalCode(_ context.Context, companyID int64, year int) (string, error) {
	key := fmt.Sprintf("%d:%d", companyID, year)
	r.sequences[key]++
	return FormatJournalCode(year, r.sequences[key]), nil
}

func (r *memJournalRepo) LockAccounts(_ context.Context, _ int64, accountIDs []int64) ([]int64, error) {
	var found []int64
	for _, id := range accountIDs {
		if r.accounts[id] {
			found = append(found, id)
		}
	}
	return found, nil
}

func (r *memJournalRepo) InsertEntry(_ context.Context, entry JournalEntry) (JournalEntry, error) {
	entry.ID = r.nextID
	r.nextID++
	entry.Version = 1
	entry.CreatedAt = time.Now()
	entry.UpdatedAt = entry.CreatedAt
	r.entries[entry.ID] = entry
	return entry, nil
}

func (r *memJournalRepo) InsertLines(_ context.Context, companyID, entryID int64, lines []PostingLine) error {
	if r.failInsertLines {
		return fmt.Errorf("simulated line insert failure")
	}
	stored := make([]JournalLine, 0, len(lines))
	for _, l := range lines {
		stored = append(stored, JournalLine{
			ID:           r.nextID,
			JournalID:    entryID,
			CompanyID:    companyID,
			AccountID:    l.AccountID,
			Debit:        l.Debit,
			Credit:       l.Credit,
			Description:  l.Description,
			LineNumber:   l.LineNumber,
			CostCenterID: l.CostCenterID,
		})
		r.nextID++
	}
	r.lines[entryID] = stored
	return nil
}

func (r *memJournalRepo) DeleteLines(_ context.Context, _, entryID int64) error {
	delete(r.lines, entryID)
	return nil
}

func (r *memJournalRepo) DeleteEntry(_ context.Context, _, entryID int64) error {
	delete(r.entries, entryID)
	return nil
}

func (r *memJournalRepo) LinkSource(_ context.Context, companyID int64, module SourceModule, ref uuid.UUID, entryID int64) error {
	key := linkKey(companyID, module, ref)
	if _, exists := r.links[key]; exists {
		return shared.ErrSourceAlreadyLinked
	}
	r.links[key] = entryID
	return nil
}

func (r *memJournalRepo) GetEntryForUpdate(_ context.Context, companyID, entryID int64) (JournalEntry, error) {
	e, ok := r.entries[entryID]
	if !ok || e.CompanyID != companyID {
		return JournalEntry{}, shared.ErrNotFound
	}
	return e, nil
}

func (r *memJournalRepo) GetLines(_ context.Context, _, entryID int64) ([]JournalLine, error) {
	return append([]JournalLine(nil), r.lines[entryID]...), nil
}

func (r *memJournalRepo) UpdateTotals(_ context.Context, companyID, entryID int64, debit, credit float64) error {
	e, ok := r.entries[entryID]
	if !ok || e.CompanyID != companyID {
		return shared.ErrNotFound
	}
	e.TotalDebit = debit
	e.TotalCredit = credit
	r.entries[entryID] = e
	return nil
}

func (r *memJournalRepo) MarkPosted(_ context.Context, companyID, entryID int64, at time.Time, actorID int64) error {
	e, ok := r.entries[entryID]
	if !ok || e.CompanyID != companyID {
		return shared.ErrNotFound
	}
	e.Status = JournalStatusPosted
	e.PostedAt = &at
	if actorID != 0 {
		e.PostedBy = &actorID
	}
	r.entries[entryID] = e
	return nil
}

func (r *memJournalRepo) MarkCancelled(_ context.Context, companyID, entryID int64) error {
	e, ok := r.entries[entryID]
	if !ok || e.CompanyID != companyID {
		return shared.ErrNotFound
	}
	e.Status = JournalStatusCancelled
	r.entries[entryID] = e
	return nil
}

func linkKey(companyID int64, module SourceModule, ref uuid.UUID) string {
	return fmt.Sprintf("%d:%s:%s", companyID, module, ref)
}
