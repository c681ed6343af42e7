// Package service defines the contracts between the engine and its external
// collaborators. The engine persists nothing itself; everything it needs
// beyond the current process goes through these interfaces.
package service

import (
	"context"
	"time"

	"github.com/moamoa/moa-engine/internal/model"
)

// Storage is the persistence collaborator: a store with create/delete/update
// by id and query-by-field capability.
type Storage interface {
	// Transaction operations
	SaveTransaction(ctx context.Context, txn *model.Transaction) error
	GetTransactionByID(ctx context.Context, id string) (*model.Transaction, error)
	DeleteTransaction(ctx context.Context, id string) error
	GetTransactionsByUser(ctx context.Context, userID string, limit int) ([]model.Transaction, error)

	// Duplicate rule operations. Rule lookup is symmetric in the bank pair.
	GetDuplicateRule(ctx context.Context, groupID, bankA, bankB string) (*model.DuplicateRule, error)
	UpsertDuplicateRule(ctx context.Context, rule *model.DuplicateRule) error

	// Pending duplicate case operations
	CreatePendingCase(ctx context.Context, c *model.PendingDuplicateCase) error
	GetPendingCase(ctx context.Context, id string) (*model.PendingDuplicateCase, error)
	GetOpenCases(ctx context.Context, groupID string) ([]model.PendingDuplicateCase, error)
	ResolvePendingCase(ctx context.Context, id string, resolution model.Resolution) error

	// Per-user duplicate preference
	GetDuplicatePreference(ctx context.Context, userID string) (model.DuplicatePreference, error)
	SetDuplicatePreference(ctx context.Context, userID string, pref model.DuplicatePreference) error

	// Household members
	GetMembers(ctx context.Context, groupID string) ([]model.Member, error)
	SaveMember(ctx context.Context, member *model.Member) error

	// Savings goals and contributions
	GetGoals(ctx context.Context, groupID string) ([]model.Goal, error)
	GetAutoDepositGoals(ctx context.Context, groupID string) ([]model.Goal, error)
	SaveGoal(ctx context.Context, goal *model.Goal) error
	SaveContribution(ctx context.Context, contribution *model.Contribution) error
	// DeleteContributionsByTransaction removes a transaction's contributions
	// and rolls their amounts back out of the affected goals.
	DeleteContributionsByTransaction(ctx context.Context, transactionID string) error

	// Learned pattern operations. Hit/miss counters are atomic
	// read-modify-write in the store; no lost updates under concurrency.
	CreateLearnedPattern(ctx context.Context, pattern *model.LearnedPattern) error
	GetLearnedPattern(ctx context.Context, id int64) (*model.LearnedPattern, error)
	GetActivePatterns(ctx context.Context, goalID string) ([]model.LearnedPattern, error)
	RecordPatternHit(ctx context.Context, id int64) error
	RecordPatternMiss(ctx context.Context, id int64) error
	DeactivatePattern(ctx context.Context, id int64) error

	// Database management
	Migrate(ctx context.Context) error
	Close() error
}

// RetryOptions configures retry behavior for operations against external
// collaborators.
type RetryOptions struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}
