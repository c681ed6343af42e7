package dedup

import "github.com/moamoa/moa-engine/internal/model"

// OutcomeKind tags a duplicate-detection result.
type OutcomeKind string

// Outcome constants.
const (
	// NoDuplicate means this is the first sighting for its key.
	NoDuplicate OutcomeKind = "NO_DUPLICATE"
	// DuplicateDetected means a pending case was opened for human resolution.
	DuplicateDetected OutcomeKind = "DUPLICATE_DETECTED"
	// KeepBoth means both transactions survive.
	KeepBoth OutcomeKind = "KEEP_BOTH"
	// SkipSecond means the first transaction won and the new one was removed.
	SkipSecond OutcomeKind = "SKIP_SECOND"
	// KeepSecond means the new transaction won and the earlier one was removed.
	KeepSecond OutcomeKind = "KEEP_SECOND"
	// DeleteBoth means neither transaction survives.
	DeleteBoth OutcomeKind = "DELETE_BOTH"
)

// Outcome is the duplicate detector's verdict for one incoming transaction.
// PendingCase is set for DuplicateDetected; RemovedIDs lists transactions
// deleted from the store as part of the resolution.
type Outcome struct {
	PendingCase *model.PendingDuplicateCase
	Kind        OutcomeKind
	RemovedIDs  []string
}
