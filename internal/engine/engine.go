// Package engine wires the extraction pipeline together: parse, persist,
// deduplicate, and hand inbound funds to the auto-deposit orchestrator.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/moamoa/moa-engine/internal/autodeposit"
	"github.com/moamoa/moa-engine/internal/dedup"
	"github.com/moamoa/moa-engine/internal/model"
	"github.com/moamoa/moa-engine/internal/parser"
	"github.com/moamoa/moa-engine/internal/service"
)

// Notification is one inbound unit of work.
type Notification struct {
	SourceID string
	UserID   string
	GroupID  string
	Text     string
}

// Result describes what the pipeline did with one notification. Parsed is
// false for irrelevant notifications, which is the common case and not an
// error.
type Result struct {
	Transaction *model.Transaction
	Dedup       *dedup.Outcome
	AutoDeposit []autodeposit.Outcome
	Parsed      bool
}

// Engine orchestrates the notification pipeline. Each notification is
// processed to completion independently; ordering is only guaranteed within
// one dedup key, by the detector.
type Engine struct {
	storage      service.Storage
	parser       *parser.Parser
	detector     *dedup.Detector
	orchestrator *autodeposit.Orchestrator
	now          func() time.Time
}

// New creates an engine with the given dependencies.
func New(storage service.Storage, p *parser.Parser, d *dedup.Detector, o *autodeposit.Orchestrator) *Engine {
	return &Engine{
		storage:      storage,
		parser:       p,
		detector:     d,
		orchestrator: o,
		now:          time.Now,
	}
}

// Process runs one notification through the full pipeline.
func (e *Engine) Process(ctx context.Context, n Notification) (*Result, error) {
	txn, ok := e.parser.Parse(ctx, n.SourceID, n.Text)
	if !ok {
		return &Result{Parsed: false}, nil
	}

	txn.ID = uuid.NewString()
	txn.UserID = n.UserID
	txn.GroupID = n.GroupID
	txn.CreatedAt = e.now()

	if err := e.storage.SaveTransaction(ctx, txn); err != nil {
		return nil, fmt.Errorf("failed to save transaction: %w", err)
	}

	outcome, err := e.detector.Check(ctx, txn)
	if err != nil {
		return nil, fmt.Errorf("duplicate check failed: %w", err)
	}

	result := &Result{Parsed: true, Transaction: txn, Dedup: &outcome}

	slog.Info("notification processed",
		"bank", txn.BankID,
		"direction", txn.Direction,
		"amount", txn.Amount,
		"dedup", outcome.Kind)

	if !e.shouldAutoDeposit(txn, outcome) {
		return result, nil
	}

	members, err := e.storage.GetMembers(ctx, n.GroupID)
	if err != nil {
		return nil, fmt.Errorf("failed to load members: %w", err)
	}

	outcomes, err := e.orchestrator.Process(ctx, autodeposit.Request{
		TransactionID: txn.ID,
		GroupID:       n.GroupID,
		Sender:        txn.Sender,
		Account:       txn.Account,
		RawText:       txn.RawText,
		Amount:        txn.Amount,
		Members:       members,
	})
	if err != nil {
		return nil, fmt.Errorf("auto-deposit failed: %w", err)
	}
	result.AutoDeposit = outcomes

	for i := range outcomes {
		if outcomes[i].Kind != autodeposit.AutoProcessed {
			continue
		}
		if err := e.saveContribution(ctx, &outcomes[i]); err != nil {
			return nil, err
		}
	}

	return result, nil
}

// shouldAutoDeposit decides whether the transaction reaches the orchestrator:
// only inbound funds, and only when the transaction survived deduplication.
// A pair awaiting human resolution is held back so a contribution is never
// credited twice.
func (e *Engine) shouldAutoDeposit(txn *model.Transaction, outcome dedup.Outcome) bool {
	if txn.Direction != model.DirectionIncome {
		return false
	}
	switch outcome.Kind {
	case dedup.NoDuplicate, dedup.KeepBoth, dedup.KeepSecond:
		return true
	default:
		return false
	}
}

// saveContribution persists an auto-processed contribution and rolls the
// amount into the goal's progress.
func (e *Engine) saveContribution(ctx context.Context, outcome *autodeposit.Outcome) error {
	contribution := outcome.Contribution
	contribution.ID = uuid.NewString()
	contribution.CreatedAt = e.now()

	if err := e.storage.SaveContribution(ctx, contribution); err != nil {
		return fmt.Errorf("failed to save contribution: %w", err)
	}

	goal := outcome.Goal
	goal.SavedAmount += contribution.Amount
	if goal.TargetAmount > 0 && goal.SavedAmount >= goal.TargetAmount {
		goal.Completed = true
	}
	if err := e.storage.SaveGoal(ctx, goal); err != nil {
		return fmt.Errorf("failed to update goal progress: %w", err)
	}

	slog.Info("auto-deposit credited",
		"goal_id", goal.ID,
		"member_id", contribution.MemberID,
		"amount", contribution.Amount,
		"completed", goal.Completed)

	return nil
}
