package decimals

import (
	"errors"
	"fmt"
)

// ErrUnknownTable aborts a run when a registry entry has no handler.
var ErrUnknownTable = errors.New("decimals: cannot handle table")

// Linkage says how rows of a table resolve to a currency.
type Linkage int

const (
	linkUnset Linkage = iota
	// LinkAccountMeta joins the row's own account_meta currency_id entry.
	LinkAccountMeta
	// LinkCurrencyColumn filters on the table's transaction_currency_id.
	LinkCurrencyColumn
	// LinkExcluded tables are widened but never corrected.
	LinkExcluded
	// LinkPiggyBank goes through the piggy bank's account.
	LinkPiggyBank
	// LinkPiggyBankChild goes through the parent piggy bank's account.
	LinkPiggyBankChild
	// LinkPerFieldCurrency pairs every amount field with its own currency column.
	LinkPerFieldCurrency
)

// TableKind describes one table holding monetary amounts.
type TableKind struct {
	Name   string
	Fields []string
	Link   Linkage
	// Subject names one row in operator output.
	Subject string
	// Plural names the rows in the "all correct" line.
	Plural string
	// CurrencyColumns maps amount fields to currency columns for
	// LinkPerFieldCurrency.
	CurrencyColumns map[string]string
}

// Registry returns the monetary tables in processing order.
func Registry() []TableKind {
	return []TableKind{
		{Name: "accounts", Fields: []string{"virtual_balance"}, Link: LinkAccountMeta, Subject: "Account", Plural: "accounts"},
		{Name: "auto_budgets", Fields: []string{"amount"}, Link: LinkCurrencyColumn},
		{Name: "available_budgets", Fields: []string{"amount"}, Link: LinkCurrencyColumn},
		{Name: "bills", Fields: []string{"amount_min", "amount_max"}, Link: LinkCurrencyColumn},
		{Name: "budget_limits", Fields: []string{"amount"}, Link: LinkCurrencyColumn},
		{Name: "currency_exchange_rates", Fields: []string{"rate", "user_rate"}, Link: LinkExcluded},
		{Name: "limit_repetitions", Fields: []string{"amount"}, Link: LinkExcluded},
		{Name: "piggy_bank_events", Fields: []string{"amount"}, Link: LinkPiggyBankChild, Subject: "Piggy bank event", Plural: "piggy bank events"},
		{Name: "piggy_bank_repetitions", Fields: []string{"currentamount"}, Link: LinkPiggyBankChild, Subject: "Piggy bank repetition", Plural: "piggy bank repetitions"},
		{Name: "piggy_banks", Fields: []string{"targetamount"}, Link: LinkPiggyBank, Subject: "Piggy bank", Plural: "piggy banks"},
		{Name: "recurrences_transactions", Fields: []string{"amount", "foreign_amount"}, Link: LinkCurrencyColumn},
		{
			Name:    "transactions",
			Fields:  []string{"amount", "foreign_amount"},
			Link:    LinkPerFieldCurrency,
			Subject: "Transaction",
			Plural:  "transactions",
			CurrencyColumns: map[string]string{
				"amount":         "transaction_currency_id",
				"foreign_amount": "foreign_currency_id",
			},
		},
	}
}

func (t TableKind) subject() string {
	if t.Subject == "" {
		return t.Name
	}
	return t.Subject
}

func (t TableKind) plural() string {
	if t.Plural == "" {
		return t.Name
	}
	return t.Plural
}

// source renders the FROM/WHERE part that restricts rows to one currency.
// The amount table is always aliased t.
func (t TableKind) source(currencyID int64, field string) (string, []any, error) {
	metaArgs := []any{"currency_id", fmt.Sprintf(`"%d"`, currencyID)}
	switch t.Link {
	case LinkAccountMeta:
		return fmt.Sprintf(`%s t JOIN account_meta m ON m.account_id = t.id WHERE m.name = ? AND m.data = ?`, t.Name), metaArgs, nil
	case LinkPiggyBank:
		return fmt.Sprintf(`%s t JOIN account_meta m ON m.account_id = t.account_id WHERE m.name = ? AND m.data = ?`, t.Name), metaArgs, nil
	case LinkPiggyBankChild:
		return fmt.Sprintf(`%s t JOIN piggy_banks p ON p.id = t.piggy_bank_id JOIN account_meta m ON m.account_id = p.account_id WHERE m.name = ? AND m.data = ?`, t.Name), metaArgs, nil
	case LinkCurrencyColumn:
		return fmt.Sprintf(`%s t WHERE t.transaction_currency_id = ?`, t.Name), []any{currencyID}, nil
	case LinkPerFieldCurrency:
		column, ok := t.CurrencyColumns[field]
		if !ok {
			return "", nil, fmt.Errorf("%w %q: no currency column for %s", ErrUnknownTable, t.Name, field)
		}
		return fmt.Sprintf(`%s t WHERE t.%s = ?`, t.Name, column), []any{currencyID}, nil
	}
	return "", nil, fmt.Errorf("%w %q", ErrUnknownTable, t.Name)
}
