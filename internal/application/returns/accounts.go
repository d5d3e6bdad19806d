package returns

import (
	"github.com/retailcore/backend/internal/domain/ledger"
	"github.com/retailcore/backend/internal/domain/shared"
)

// AccountMap binds the postings of the return pipeline to concrete ledger
// account codes. The codes are configuration data; these defaults follow a
// conventional retail chart of accounts.
type AccountMap struct {
	SalesReturns       ledger.AccountCode `mapstructure:"sales_returns"`
	AccountsReceivable ledger.AccountCode `mapstructure:"accounts_receivable"`
	AccountsPayable    ledger.AccountCode `mapstructure:"accounts_payable"`
	PurchaseReturns    ledger.AccountCode `mapstructure:"purchase_returns"`
	Cash               ledger.AccountCode `mapstructure:"cash"`
	Bank               ledger.AccountCode `mapstructure:"bank"`
	Inventory          ledger.AccountCode `mapstructure:"inventory"`
	COGS               ledger.AccountCode `mapstructure:"cogs"`
}

// DefaultAccountMap returns the standard account code mapping
func DefaultAccountMap() AccountMap {
	return AccountMap{
		SalesReturns:       "4100",
		AccountsReceivable: "1120",
		AccountsPayable:    "2110",
		PurchaseReturns:    "5100",
		Cash:               "1010",
		Bank:               "1020",
		Inventory:          "1140",
		COGS:               "5010",
	}
}

// Validate checks that every account code is set
func (m AccountMap) Validate() error {
	codes := []ledger.AccountCode{
		m.SalesReturns, m.AccountsReceivable, m.AccountsPayable, m.PurchaseReturns,
		m.Cash, m.Bank, m.Inventory, m.COGS,
	}
	for _, c := range codes {
		if c == "" {
			return shared.NewValidationError("INVALID_ACCOUNT_MAP", "Account map has unset account codes")
		}
	}
	return nil
}
