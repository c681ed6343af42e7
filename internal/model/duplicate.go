package model

import "time"

// Resolution describes what to do with a duplicate transaction pair.
type Resolution string

// Resolution constants.
const (
	ResolutionKeepBoth   Resolution = "KEEP_BOTH"
	ResolutionKeepFirst  Resolution = "KEEP_FIRST"
	ResolutionKeepSecond Resolution = "KEEP_SECOND"
	ResolutionDeleteBoth Resolution = "DELETE_BOTH"
	ResolutionPending    Resolution = "PENDING"
)

// DuplicatePreference is a user-level default for resolving card/bank
// duplicate pairs without prompting.
type DuplicatePreference string

// Duplicate preference constants.
const (
	PreferenceAsk  DuplicatePreference = "ask"
	PreferenceCard DuplicatePreference = "prefer-card"
	PreferenceBank DuplicatePreference = "prefer-bank"
)

// DuplicateRule records a user's standing choice for a pair of banks.
// The pair is unordered: a rule for (A, B) also applies to (B, A).
type DuplicateRule struct {
	CreatedAt  time.Time
	UpdatedAt  time.Time
	GroupID    string
	BankA      string
	BankB      string
	Resolution Resolution
	ID         int64
}

// AppliesTo reports whether this rule covers the given bank pair in either order.
func (r *DuplicateRule) AppliesTo(bankA, bankB string) bool {
	return (r.BankA == bankA && r.BankB == bankB) ||
		(r.BankA == bankB && r.BankB == bankA)
}

// PendingDuplicateCase is a duplicate pair awaiting human resolution.
type PendingDuplicateCase struct {
	CreatedAt   time.Time
	ID          string
	UserID      string
	GroupID     string
	FirstTxnID  string
	SecondTxnID string
	FirstBank   string
	SecondBank  string
	Resolution  Resolution
	Amount      int64
	Resolved    bool
}
