package ledger

import "errors"

var (
	// ErrJournalNotFound indicates a missing or deleted journal.
	ErrJournalNotFound = errors.New("ledger: journal not found")
	// ErrAccountNotFound indicates no account matched the lookup.
	ErrAccountNotFound = errors.New("ledger: account not found")
	// ErrUnknownJournalType indicates the transaction_types table lacks a type.
	ErrUnknownJournalType = errors.New("ledger: unknown journal type")
	// ErrUnknownAccountType indicates the account_types table lacks a type.
	ErrUnknownAccountType = errors.New("ledger: unknown account type")
)
