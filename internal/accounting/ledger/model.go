// Package ledger reconstructs account balances from posted journal lines.
// It is a pure read path over the journal store.
package ledger

import (
	"time"

	"github.com/meridian-erp/meridian-erp/internal/accounting/coa"
)

// Entry is one ledger row with its running balance. Entries are derived, not
// persisted.
type Entry struct {
	JournalEntryID int64     `json:"journalEntryId"`
	JournalCode    string    `json:"journalCode"`
	Date           time.Time `json:"date"`
	Description    string    `json:"description"`
	ReferenceCode  string    `json:"referenceCode,omitempty"`
	LineNumber     int       `json:"lineNumber"`
	Debit          float64   `json:"debit"`
	Credit         float64   `json:"credit"`
	Balance        float64   `json:"balance"`
}

// AccountLedger is the result of a ledger query for one account and range.
type AccountLedger struct {
	Account        coa.Account       `json:"-"`
	AccountID      int64             `json:"accountId"`
	AccountNumber  string            `json:"accountNumber"`
	AccountName    string            `json:"accountName"`
	NormalBalance  coa.NormalBalance `json:"normalBalance"`
	DateFrom       time.Time         `json:"dateFrom"`
	DateTo         time.Time         `json:"dateTo"`
	OpeningBalance float64           `json:"openingBalance"`
	ClosingBalance float64           `json:"closingBalance"`
	TotalDebits    float64           `json:"totalDebits"`
	TotalCredits   float64           `json:"totalCredits"`
	Entries        []Entry           `json:"entries"`
}
