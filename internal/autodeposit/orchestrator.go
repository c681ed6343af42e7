// Package autodeposit routes matched incoming transfers to savings goals.
package autodeposit

import (
	"context"
	"log/slog"
	"regexp"
	"strings"

	"github.com/moamoa/moa-engine/internal/learn"
	"github.com/moamoa/moa-engine/internal/match"
	"github.com/moamoa/moa-engine/internal/model"
	"github.com/moamoa/moa-engine/internal/service"
)

// OutcomeKind tags one per-goal auto-deposit result.
type OutcomeKind string

// Outcome constants.
const (
	// AutoProcessed means a contribution record is ready to persist.
	AutoProcessed OutcomeKind = "AUTO_PROCESSED"
	// NeedsConfirmation means candidates must be surfaced to a human.
	NeedsConfirmation OutcomeKind = "NEEDS_CONFIRMATION"
	// NeedsManualInput means nothing usable was extracted or matched.
	NeedsManualInput OutcomeKind = "NEEDS_MANUAL_INPUT"
	// NotApplicable means no eligible goal matched on account.
	NotApplicable OutcomeKind = "NOT_APPLICABLE"
)

// Manual-input reasons.
const (
	ReasonNoSenderName  = "no sender name could be extracted"
	ReasonMemberUnknown = "sender name matches no household member"
)

// Outcome is one result per eligible goal. The orchestrator never produces a
// single global verdict except the NotApplicable fallback.
type Outcome struct {
	Goal         *model.Goal
	Member       *model.MemberCandidate
	Contribution *model.Contribution
	Kind         OutcomeKind
	DetectedName string
	Reason       string
	Candidates   []model.MemberCandidate
}

// Request carries one inbound-funds notification through goal matching.
type Request struct {
	TransactionID string
	GroupID       string
	Sender        string // may be blank
	Account       string // parsed fragment, possibly masked
	RawText       string
	Amount        int64
	Members       []model.Member
}

// Orchestrator matches inbound transfers against auto-deposit goals, resolving
// the contributor through the member matcher with the learned-pattern store as
// fallback.
type Orchestrator struct {
	storage service.Storage
	matcher *match.Matcher
	applier *learn.Applier
}

// New creates an orchestrator.
func New(storage service.Storage, matcher *match.Matcher, applier *learn.Applier) *Orchestrator {
	return &Orchestrator{storage: storage, matcher: matcher, applier: applier}
}

// Process evaluates every eligible goal in the group against the notification
// and returns one outcome per goal that matched on account. When nothing
// matches it returns a single NotApplicable outcome.
func (o *Orchestrator) Process(ctx context.Context, req Request) ([]Outcome, error) {
	goals, err := o.storage.GetAutoDepositGoals(ctx, req.GroupID)
	if err != nil {
		return nil, err
	}

	var outcomes []Outcome
	for i := range goals {
		goal := &goals[i]
		if !accountMatches(req.Account, goal.AccountNumber, req.RawText) {
			continue
		}
		outcomes = append(outcomes, o.processGoal(ctx, goal, req))
	}

	if len(outcomes) == 0 {
		return []Outcome{{Kind: NotApplicable}}, nil
	}
	return outcomes, nil
}

// processGoal resolves the contributor for one matched goal and branches on
// the matcher outcome.
func (o *Orchestrator) processGoal(ctx context.Context, goal *model.Goal, req Request) Outcome {
	name := req.Sender
	var extraction *learn.Extraction

	if name == "" {
		var err error
		extraction, err = o.applier.ExtractSender(ctx, goal.ID, req.RawText)
		if err != nil {
			slog.Warn("learned pattern cascade failed", "goal_id", goal.ID, "error", err)
		}
		if extraction == nil {
			return Outcome{Kind: NeedsManualInput, Goal: goal, Reason: ReasonNoSenderName}
		}
		name = extraction.Name
	}

	result := o.matcher.Resolve(name, req.Members)

	if extraction != nil {
		o.applier.RecordOutcome(ctx, extraction.Pattern, result.Kind != match.NoMatch)
	}

	switch result.Kind {
	case match.HighConfidence:
		return Outcome{
			Kind:         AutoProcessed,
			Goal:         goal,
			Member:       result.Best,
			DetectedName: result.DetectedName,
			Contribution: &model.Contribution{
				GoalID:        goal.ID,
				MemberID:      result.Best.Member.ID,
				TransactionID: req.TransactionID,
				Amount:        req.Amount,
			},
		}

	case match.LowConfidence:
		return Outcome{
			Kind:         NeedsConfirmation,
			Goal:         goal,
			DetectedName: result.DetectedName,
			Candidates:   result.Candidates,
		}

	default:
		return Outcome{
			Kind:         NeedsManualInput,
			Goal:         goal,
			DetectedName: result.DetectedName,
			Reason:       ReasonMemberUnknown,
		}
	}
}

var nonDigits = regexp.MustCompile(`[^0-9]`)

// accountMatches compares digit-only forms of the parsed fragment and the
// goal's linked account. Exact equality or shared last four digits accepts;
// when the parser found no fragment at all, the goal's last four digits
// appearing anywhere in the raw text also accepts.
func accountMatches(fragment, goalAccount, rawText string) bool {
	goalDigits := nonDigits.ReplaceAllString(goalAccount, "")
	if goalDigits == "" {
		return false
	}

	fragDigits := nonDigits.ReplaceAllString(fragment, "")
	if fragDigits == "" {
		if len(goalDigits) < 4 {
			return false
		}
		return strings.Contains(rawText, goalDigits[len(goalDigits)-4:])
	}

	if fragDigits == goalDigits {
		return true
	}
	if len(fragDigits) >= 4 && len(goalDigits) >= 4 {
		if strings.HasSuffix(fragDigits, goalDigits[len(goalDigits)-4:]) ||
			strings.HasSuffix(goalDigits, fragDigits[len(fragDigits)-4:]) {
			return true
		}
	}
	return false
}
