package model

import (
	"fmt"
	"time"
)

// LearnedPattern is a regex triple derived from a user's manual correction,
// reused to auto-extract future similar notifications for one goal.
type LearnedPattern struct {
	CreatedAt      time.Time
	UpdatedAt      time.Time
	LastUsedAt     *time.Time
	GoalID         string
	BankName       string
	SampleText     string
	AmountPattern  string
	SenderPattern  string
	AccountPattern string
	ID             int64
	SuccessCount   int
	FailCount      int
	Active         bool
}

// Validate ensures the pattern has valid data.
func (p *LearnedPattern) Validate() error {
	if p.GoalID == "" {
		return fmt.Errorf("goal id is required")
	}
	if p.SampleText == "" {
		return fmt.Errorf("sample text is required")
	}
	if p.SenderPattern == "" {
		return fmt.Errorf("sender pattern is required")
	}
	return nil
}

// Unreliable reports whether the pattern's miss rate warrants deactivation.
// Unreliable patterns are deactivated, never deleted, so the counters survive.
func (p *LearnedPattern) Unreliable() bool {
	return p.FailCount >= 3 && p.FailCount > p.SuccessCount
}
