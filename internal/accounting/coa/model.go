package coa

import "time"

// AccountType enumerates chart of accounts categories.
type AccountType string

const (
	AccountTypeAsset     AccountType = "ASSET"
	AccountTypeLiability AccountType = "LIABILITY"
	AccountTypeEquity    AccountType = "EQUITY"
	AccountTypeRevenue   AccountType = "REVENUE"
	AccountTypeExpense   AccountType = "EXPENSE"
	AccountTypeCOGS      AccountType = "COGS"
)

// Valid reports whether the account type is a known category.
func (t AccountType) Valid() bool {
	switch t {
	case AccountTypeAsset, AccountTypeLiability, AccountTypeEquity,
		AccountTypeRevenue, AccountTypeExpense, AccountTypeCOGS:
		return true
	}
	return false
}

// NormalBalance is the sign convention of an account type.
type NormalBalance string

const (
	NormalBalanceDebit  NormalBalance = "DEBIT"
	NormalBalanceCredit NormalBalance = "CREDIT"
)

// ResolveNormalBalance maps an account type to its sign convention. This is
// the single source of truth for ledger sign rules; do not duplicate it.
func ResolveNormalBalance(t AccountType) NormalBalance {
	switch t {
	case AccountTypeAsset, AccountTypeExpense, AccountTypeCOGS:
		return NormalBalanceDebit
	default:
		return NormalBalanceCredit
	}
}

// Account models a chart of accounts node, scoped to a company.
type Account struct {
	ID          int64
	CompanyID   int64
	Number      string
	Name        string
	Type        AccountType
	ParentID    *int64
	IsSystem    bool
	IsActive    bool
	Level       int
	SortOrder   int
	Description string
	Version     int64
	DeletedAt   *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// NormalBalance returns the sign convention for this account.
func (a Account) NormalBalance() NormalBalance {
	return ResolveNormalBalance(a.Type)
}

// ListFilter narrows account listings.
type ListFilter struct {
	Type       AccountType
	ParentID   *int64
	ActiveOnly bool
	Search     string
}
