package storage

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/moamoa/moa-engine/internal/model"
)

const goalColumns = `id, group_id, name, account_number, target_amount,
	saved_amount, auto_deposit, completed, created_at`

// GetGoals returns every goal in a group.
func (s *SQLiteStorage) GetGoals(ctx context.Context, groupID string) ([]model.Goal, error) {
	return s.queryGoals(ctx, groupID, false)
}

// GetAutoDepositGoals returns the group's goals that are eligible for
// auto-deposit: enabled and not yet completed.
func (s *SQLiteStorage) GetAutoDepositGoals(ctx context.Context, groupID string) ([]model.Goal, error) {
	return s.queryGoals(ctx, groupID, true)
}

func (s *SQLiteStorage) queryGoals(ctx context.Context, groupID string, autoDepositOnly bool) ([]model.Goal, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(groupID, "groupID"); err != nil {
		return nil, err
	}

	query := `SELECT ` + goalColumns + ` FROM goals WHERE group_id = ?`
	if autoDepositOnly {
		query += ` AND auto_deposit = 1 AND completed = 0`
	}
	query += ` ORDER BY created_at`

	rows, err := s.db.QueryContext(ctx, query, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to query goals: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			slog.Error("failed to close rows", "error", err)
		}
	}()

	var goals []model.Goal
	for rows.Next() {
		var goal model.Goal
		if err := rows.Scan(
			&goal.ID, &goal.GroupID, &goal.Name, &goal.AccountNumber,
			&goal.TargetAmount, &goal.SavedAmount, &goal.AutoDeposit,
			&goal.Completed, &goal.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan goal: %w", err)
		}
		goals = append(goals, goal)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating goals: %w", err)
	}
	return goals, nil
}

// SaveGoal creates or replaces a goal.
func (s *SQLiteStorage) SaveGoal(ctx context.Context, goal *model.Goal) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if goal == nil {
		return fmt.Errorf("%w: goal", ErrNilParameter)
	}
	if err := validateString(goal.ID, "goal.ID"); err != nil {
		return err
	}

	query := `
		INSERT INTO goals (
			id, group_id, name, account_number, target_amount,
			saved_amount, auto_deposit, completed
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			account_number = excluded.account_number,
			target_amount = excluded.target_amount,
			saved_amount = excluded.saved_amount,
			auto_deposit = excluded.auto_deposit,
			completed = excluded.completed`

	_, err := s.db.ExecContext(ctx, query,
		goal.ID, goal.GroupID, goal.Name, goal.AccountNumber,
		goal.TargetAmount, goal.SavedAmount, goal.AutoDeposit, goal.Completed,
	)
	if err != nil {
		return fmt.Errorf("failed to save goal: %w", err)
	}

	slog.Debug("saved goal", "id", goal.ID, "name", goal.Name)
	return nil
}

// SaveContribution persists one goal contribution.
func (s *SQLiteStorage) SaveContribution(ctx context.Context, contribution *model.Contribution) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if contribution == nil {
		return fmt.Errorf("%w: contribution", ErrNilParameter)
	}
	if err := validateString(contribution.ID, "contribution.ID"); err != nil {
		return err
	}

	query := `
		INSERT INTO contributions (id, goal_id, member_id, transaction_id, amount, note, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`

	_, err := s.db.ExecContext(ctx, query,
		contribution.ID, contribution.GoalID, contribution.MemberID,
		contribution.TransactionID, contribution.Amount, contribution.Note,
		contribution.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save contribution: %w", err)
	}

	slog.Info("saved contribution",
		"goal_id", contribution.GoalID,
		"member_id", contribution.MemberID,
		"amount", contribution.Amount)
	return nil
}

// DeleteContributionsByTransaction removes the contributions credited for a
// transaction and rolls their amounts back out of the affected goals. Called
// when duplicate resolution deletes a transaction that already auto-deposited.
// No contributions for the id is a no-op.
func (s *SQLiteStorage) DeleteContributionsByTransaction(ctx context.Context, transactionID string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(transactionID, "transactionID"); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	rows, err := tx.QueryContext(ctx,
		`SELECT goal_id, amount FROM contributions WHERE transaction_id = ?`, transactionID)
	if err != nil {
		return fmt.Errorf("failed to query contributions: %w", err)
	}

	type credit struct {
		goalID string
		amount int64
	}
	var credits []credit
	for rows.Next() {
		var c credit
		if err := rows.Scan(&c.goalID, &c.amount); err != nil {
			_ = rows.Close()
			return fmt.Errorf("failed to scan contribution: %w", err)
		}
		credits = append(credits, c)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return fmt.Errorf("error iterating contributions: %w", err)
	}
	if err := rows.Close(); err != nil {
		return fmt.Errorf("failed to close rows: %w", err)
	}

	if len(credits) == 0 {
		return nil
	}

	for _, c := range credits {
		// saved_amount on the right-hand side is the pre-update value, so
		// completed is recomputed against the rolled-back total.
		_, err := tx.ExecContext(ctx, `
			UPDATE goals SET
				saved_amount = saved_amount - ?,
				completed = CASE WHEN target_amount > 0 AND saved_amount - ? >= target_amount THEN 1 ELSE 0 END
			WHERE id = ?`,
			c.amount, c.amount, c.goalID)
		if err != nil {
			return fmt.Errorf("failed to roll back goal %s: %w", c.goalID, err)
		}
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM contributions WHERE transaction_id = ?`, transactionID); err != nil {
		return fmt.Errorf("failed to delete contributions: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit rollback: %w", err)
	}

	slog.Info("rolled back contributions",
		"transaction_id", transactionID,
		"count", len(credits))
	return nil
}
