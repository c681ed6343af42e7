package model

import "time"

// Goal is a shared savings goal. A goal with AutoDeposit enabled accepts
// matched incoming-transfer notifications as contributions.
type Goal struct {
	CreatedAt     time.Time
	ID            string
	GroupID       string
	Name          string
	AccountNumber string // linked deposit account
	TargetAmount  int64
	SavedAmount   int64
	AutoDeposit   bool
	Completed     bool
}

// Contribution is one deposit credited to a goal on behalf of a member.
type Contribution struct {
	CreatedAt     time.Time
	ID            string
	GoalID        string
	MemberID      string
	TransactionID string
	Note          string
	Amount        int64
}
