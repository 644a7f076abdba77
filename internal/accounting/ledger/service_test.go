package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/meridian-erp/meridian-erp/internal/accounting/coa"
	"github.com/meridian-erp/meridian-erp/internal/accounting/shared"
)

type memLedgerRepo struct {
	openDebit  float64
	openCredit float64
	lines      []Line
}

func (r *memLedgerRepo) OpeningTotals(context.Context, int64, int64, time.Time) (float64, float64, error) {
	return r.openDebit, r.openCredit, nil
}

func (r *memLedgerRepo) LinesInRange(context.Context, int64, int64, time.Time, time.Time) ([]Line, error) {
	return append([]Line(nil), r.lines...), nil
}

type memAccountResolver struct {
	accounts map[int64]coa.Account
}

func (r *memAccountResolver) GetAccount(_ context.Context, companyID, id int64) (coa.Account, error) {
	a, ok := r.accounts[id]
	if !ok || a.CompanyID != companyID {
		return coa.Account{}, shared.ErrNotFound
	}
	return a, nil
}

func newResolver(accounts ...coa.Account) *memAccountResolver {
	m := make(map[int64]coa.Account, len(accounts))
	for _, a := range accounts {
		m[a.ID] = a
	}
	return &memAccountResolver{accounts: m}
}

func day(d int) time.Time {
	return time.Date(2025, 4, d, 0, 0, 0, 0, time.UTC)
}

func TestQueryDebitNormalRunningBalance(t *testing.T) {
	cash := coa.Account{ID: 1, CompanyID: 1, Number: "A-1000", Name: "Cash", Type: coa.AccountTypeAsset}
	repo := &memLedgerRepo{
		openDebit:  500,
		openCredit: 100,
		lines: []Line{
			{JournalEntryID: 11, JournalCode: "JE-2025-0001", Date: day(2), Description: "sale", LineNumber: 1, Debit: 200},
			{JournalEntryID: 12, JournalCode: "JE-2025-0002", Date: day(3), Description: "rent", LineNumber: 2, Credit: 150},
		},
	}
	svc := NewService(repo, newResolver(cash))

	result, err := svc.Query(context.Background(), 1, 1, day(1), day(30))
	require.NoError(t, err)
	require.Equal(t, coa.NormalBalanceDebit, result.NormalBalance)
	require.Equal(t, 400.0, result.OpeningBalance)
	require.Len(t, result.Entries, 2)
	require.Equal(t, 600.0, result.Entries[0].Balance)
	require.Equal(t, 450.0, result.Entries[1].Balance)
	require.Equal(t, 450.0, result.ClosingBalance)
	require.Equal(t, 200.0, result.TotalDebits)
	require.Equal(t, 150.0, result.TotalCredits)
}

func TestQueryCreditNormalRunningBalance(t *testing.T) {
	revenue := coa.Account{ID: 4, CompanyID: 1, Number: "R-4000", Name: "Sales Revenue", Type: coa.AccountTypeRevenue}
	repo := &memLedgerRepo{
		openCredit: 1000,
		lines: []Line{
			{JournalEntryID: 21, JournalCode: "JE-2025-0005", Date: day(5), Description: "invoice", LineNumber: 2, Credit: 300},
			{JournalEntryID: 22, JournalCode: "JE-2025-0006", Date: day(6), Description: "credit note", LineNumber: 1, Debit: 50},
		},
	}
	svc := NewService(repo, newResolver(revenue))

	result, err := svc.Query(context.Background(), 1, 4, day(1), day(30))
	require.NoError(t, err)
	require.Equal(t, coa.NormalBalanceCredit, result.NormalBalance)
	require.Equal(t, 1000.0, result.OpeningBalance)
	require.Equal(t, 1300.0, result.Entries[0].Balance)
	require.Equal(t, 1250.0, result.Entries[1].Balance)
	require.Equal(t, 1250.0, result.ClosingBalance)
}

func TestQueryTieBreakOrdering(t *testing.T) {
	cash := coa.Account{ID: 1, CompanyID: 1, Number: "A-1000", Name: "Cash", Type: coa.AccountTypeAsset}
	// Same date rows arrive shuffled; order must settle to journal code then
	// line number.
	repo := &memLedgerRepo{
		lines: []Line{
			{JournalEntryID: 32, JournalCode: "JE-2025-0002", Date: day(10), LineNumber: 1, Debit: 30},
			{JournalEntryID: 31, JournalCode: "JE-2025-0001", Date: day(10), LineNumber: 2, Debit: 20},
			{JournalEntryID: 31, JournalCode: "JE-2025-0001", Date: day(10), LineNumber: 1, Debit: 10},
			{JournalEntryID: 30, JournalCode: "JE-2025-0003", Date: day(9), LineNumber: 1, Debit: 5},
		},
	}
	svc := NewService(repo, newResolver(cash))

	result, err := svc.Query(context.Background(), 1, 1, day(1), day(30))
	require.NoError(t, err)
	require.Len(t, result.Entries, 4)
	require.Equal(t, "JE-2025-0003", result.Entries[0].JournalCode)
	require.Equal(t, "JE-2025-0001", result.Entries[1].JournalCode)
	require.Equal(t, 1, result.Entries[1].LineNumber)
	require.Equal(t, "JE-2025-0001", result.Entries[2].JournalCode)
	require.Equal(t, 2, result.Entries[2].LineNumber)
	require.Equal(t, "JE-2025-0002", result.Entries[3].JournalCode)
	require.Equal(t, 65.0, result.ClosingBalance)
}

func TestQueryEmptyRange(t *testing.T) {
	cash := coa.Account{ID: 1, CompanyID: 1, Number: "A-1000", Name: "Cash", Type: coa.AccountTypeAsset}
	repo := &memLedgerRepo{openDebit: 75}
	svc := NewService(repo, newResolver(cash))

	result, err := svc.Query(context.Background(), 1, 1, day(1), day(30))
	require.NoError(t, err)
	require.Empty(t, result.Entries)
	require.Equal(t, 75.0, result.OpeningBalance)
	require.Equal(t, 75.0, result.ClosingBalance)
}

func TestQueryRejectsInvertedRange(t *testing.T) {
	cash := coa.Account{ID: 1, CompanyID: 1, Number: "A-1000", Name: "Cash", Type: coa.AccountTypeAsset}
	svc := NewService(&memLedgerRepo{}, newResolver(cash))

	_, err := svc.Query(context.Background(), 1, 1, day(30), day(1))
	require.ErrorIs(t, err, shared.ErrValidationFailed)
}

func TestQueryUnknownAccount(t *testing.T) {
	svc := NewService(&memLedgerRepo{}, newResolver())

	_, err := svc.Query(context.Background(), 1, 99, day(1), day(30))
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestQueryAccountOfOtherCompanyIsNotFound(t *testing.T) {
	cash := coa.Account{ID: 1, CompanyID: 2, Number: "A-1000", Name: "Cash", Type: coa.AccountTypeAsset}
	svc := NewService(&memLedgerRepo{}, newResolver(cash))

	_, err := svc.Query(context.Background(), 1, 1, day(1), day(30))
	require.ErrorIs(t, err, shared.ErrNotFound)
}
