package coa

import (
	"context"
	"errors"

	"github.com/meridian-erp/meridian-erp/internal/accounting/shared"
)

// Well-known account numbers the posting adapters resolve per tenant.
const (
	NumberCash               = "A-1000"
	NumberAccountsReceivable = "A-1100"
	NumberInventory          = "A-1200"
	NumberAccountsPayable    = "L-2000"
	NumberSalesRevenue       = "R-4000"
	NumberCOGS               = "C-5000"
	NumberOperatingExpense   = "E-6000"
)

type defaultAccount struct {
	Number string
	Name   string
	Type   AccountType
}

var defaultChart = []defaultAccount{
	{NumberCash, "Cash and Bank", AccountTypeAsset},
	{NumberAccountsReceivable, "Accounts Receivable", AccountTypeAsset},
	{NumberInventory, "Inventory", AccountTypeAsset},
	{NumberAccountsPayable, "Accounts Payable", AccountTypeLiability},
	{NumberSalesRevenue, "Sales Revenue", AccountTypeRevenue},
	{NumberCOGS, "Cost of Goods Sold", AccountTypeCOGS},
	{NumberOperatingExpense, "Operating Expenses", AccountTypeExpense},
}

// ProvisionDefaults seeds the well-known system accounts for a company.
// Existing numbers are left untouched.
func (s *Service) ProvisionDefaults(ctx context.Context, companyID int64) error {
	return s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		for i, def := range defaultChart {
			if _, err := tx.GetAccountByNumber(ctx, companyID, def.Number); err == nil {
				continue
			} else if !errors.Is(err, shared.ErrNotFound) {
				return err
			}
			account := Account{
				CompanyID: companyID,
				Number:    def.Number,
				Name:      def.Name,
				Type:      def.Type,
				IsSystem:  true,
				IsActive:  true,
				Level:     1,
				SortOrder: (i + 1) * 10,
			}
			if _, err := tx.InsertAccount(ctx, account); err != nil {
				return err
			}
		}
		return nil
	})
}
