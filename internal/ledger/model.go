package ledger

import "github.com/shopspring/decimal"

// JournalType is the declared kind of a transaction journal.
type JournalType string

const (
	JournalWithdrawal      JournalType = "Withdrawal"
	JournalDeposit         JournalType = "Deposit"
	JournalTransfer        JournalType = "Transfer"
	JournalOpeningBalance  JournalType = "Opening balance"
	JournalReconciliation  JournalType = "Reconciliation"
	JournalLiabilityCredit JournalType = "Liability credit"
	JournalInvalid         JournalType = "Invalid"
)

// AccountType classifies an account.
type AccountType string

const (
	AccountDefault         AccountType = "Default account"
	AccountCash            AccountType = "Cash account"
	AccountAsset           AccountType = "Asset account"
	AccountExpense         AccountType = "Expense account"
	AccountRevenue         AccountType = "Revenue account"
	AccountInitialBalance  AccountType = "Initial balance account"
	AccountBeneficiary     AccountType = "Beneficiary account"
	AccountImport          AccountType = "Import account"
	AccountReconciliation  AccountType = "Reconciliation account"
	AccountLoan            AccountType = "Loan"
	AccountDebt            AccountType = "Debt"
	AccountMortgage        AccountType = "Mortgage"
	AccountLiabilityCredit AccountType = "Liability credit account"
)

// IsLiability reports whether the type is one of the liability variants.
func (t AccountType) IsLiability() bool {
	switch t {
	case AccountLoan, AccountDebt, AccountMortgage:
		return true
	}
	return false
}

// Account is a ledger account together with its type.
type Account struct {
	ID     int64
	UserID int64
	Name   string
	Type   AccountType
}

// Leg is one transaction row of a journal. Negative amounts leave the source
// account, positive amounts arrive at the destination.
type Leg struct {
	TransactionID int64
	Amount        decimal.Decimal
	Account       Account
}

// Journal is one financial event and its legs.
type Journal struct {
	ID     int64
	UserID int64
	Type   JournalType
	Legs   []Leg
}

// Source returns the first outflow leg.
func (j Journal) Source() (Leg, bool) {
	for _, leg := range j.Legs {
		if leg.Amount.IsNegative() {
			return leg, true
		}
	}
	return Leg{}, false
}

// Destination returns the first inflow leg.
func (j Journal) Destination() (Leg, bool) {
	for _, leg := range j.Legs {
		if leg.Amount.IsPositive() {
			return leg, true
		}
	}
	return Leg{}, false
}

// Currency carries the canonical precision for amounts denominated in it.
type Currency struct {
	ID            int64
	Code          string
	Name          string
	DecimalPlaces int
	Enabled       bool
}

// PiggyBankEvent records a piggy bank movement, optionally tied to a journal.
type PiggyBankEvent struct {
	ID          int64
	PiggyBankID int64
	JournalID   *int64
}
