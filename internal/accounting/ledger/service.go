package ledger

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/meridian-erp/meridian-erp/internal/accounting/coa"
	"github.com/meridian-erp/meridian-erp/internal/accounting/shared"
)

// AccountResolver looks up accounts for the queried tenant.
type AccountResolver interface {
	GetAccount(ctx context.Context, companyID, id int64) (coa.Account, error)
}

// Service computes account ledgers: opening balance from all prior posted
// activity, then a chronological running balance inside the range.
type Service struct {
	repo     Repository
	accounts AccountResolver
}

// NewService constructs the ledger query service.
func NewService(repo Repository, accounts AccountResolver) *Service {
	return &Service{repo: repo, accounts: accounts}
}

// Query builds the ledger for one account and date range. The sign
// convention comes from coa.ResolveNormalBalance and is applied identically
// to the opening balance and every running-balance step.
func (s *Service) Query(ctx context.Context, companyID, accountID int64, from, to time.Time) (AccountLedger, error) {
	if to.Before(from) {
		return AccountLedger{}, fmt.Errorf("%w: date range end before start", shared.ErrValidationFailed)
	}
	account, err := s.accounts.GetAccount(ctx, companyID, accountID)
	if err != nil {
		return AccountLedger{}, err
	}
	normal := account.NormalBalance()

	openDebit, openCredit, err := s.repo.OpeningTotals(ctx, companyID, accountID, from)
	if err != nil {
		return AccountLedger{}, err
	}
	opening := signed(normal, openDebit, openCredit)

	lines, err := s.repo.LinesInRange(ctx, companyID, accountID, from, to)
	if err != nil {
		return AccountLedger{}, err
	}
	// The repository already orders lines; re-sorting keeps the tie-break
	// contract independent of the backing store.
	sort.SliceStable(lines, func(i, j int) bool {
		a, b := lines[i], lines[j]
		if !a.Date.Equal(b.Date) {
			return a.Date.Before(b.Date)
		}
		if a.JournalCode != b.JournalCode {
			return a.JournalCode < b.JournalCode
		}
		return a.LineNumber < b.LineNumber
	})

	result := AccountLedger{
		Account:        account,
		AccountID:      account.ID,
		AccountNumber:  account.Number,
		AccountName:    account.Name,
		NormalBalance:  normal,
		DateFrom:       from,
		DateTo:         to,
		OpeningBalance: opening,
		ClosingBalance: opening,
		Entries:        make([]Entry, 0, len(lines)),
	}
	balance := opening
	for _, line := range lines {
		balance += signed(normal, line.Debit, line.Credit)
		result.TotalDebits += line.Debit
		result.TotalCredits += line.Credit
		result.Entries = append(result.Entries, Entry{
			JournalEntryID: line.JournalEntryID,
			JournalCode:    line.JournalCode,
			Date:           line.Date,
			Description:    line.Description,
			ReferenceCode:  line.ReferenceCode,
			LineNumber:     line.LineNumber,
			Debit:          line.Debit,
			Credit:         line.Credit,
			Balance:        balance,
		})
	}
	result.ClosingBalance = balance
	return result, nil
}

// signed applies the normal-balance sign convention to a debit/credit pair.
func signed(normal coa.NormalBalance, debit, credit float64) float64 {
	if normal == coa.NormalBalanceDebit {
		return debit - credit
	}
	return credit - debit
}
