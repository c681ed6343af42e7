// Package model defines the core domain models used throughout the application.
package model

import (
	"fmt"
	"time"
)

// TransactionDirection indicates whether money moved in or out.
type TransactionDirection string

// Transaction direction constants.
const (
	DirectionIncome  TransactionDirection = "INCOME"
	DirectionExpense TransactionDirection = "EXPENSE"
)

// Transaction represents a structured transaction extracted from one
// notification. Amount is in won, the smallest currency unit.
type Transaction struct {
	CreatedAt   time.Time
	ID          string
	UserID      string
	GroupID     string
	BankID      string
	Direction   TransactionDirection
	Merchant    string // set for expenses
	Sender      string // extracted personal name, income only; blank when none
	SenderLabel string // display stand-in (canned reason or 입금) when Sender is blank
	Description string // balance remainder or other trailing fragment
	Account     string // account-number fragment, possibly masked
	RawText     string // original notification text, kept for learning and audit
	Amount      int64
}

// DedupKey identifies the duplicate-detection bucket for this transaction.
// Two notifications for the same user and amount share a key.
func (t *Transaction) DedupKey() string {
	return fmt.Sprintf("%s:%d", t.UserID, t.Amount)
}

// Counterparty returns the merchant or sender, whichever is set. Income with
// no extracted name falls back to the display label.
func (t *Transaction) Counterparty() string {
	if t.Direction == DirectionIncome {
		if t.Sender != "" {
			return t.Sender
		}
		return t.SenderLabel
	}
	return t.Merchant
}
