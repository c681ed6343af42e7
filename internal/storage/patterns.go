package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/moamoa/moa-engine/internal/model"
)

// ErrPatternNotFound is returned when a learned pattern is not found.
var ErrPatternNotFound = errors.New("learned pattern not found")

const patternColumns = `id, goal_id, bank_name, sample_text, amount_pattern,
	sender_pattern, account_pattern, active, success_count, fail_count,
	last_used_at, created_at, updated_at`

// CreateLearnedPattern persists a newly derived pattern and fills in its id.
func (s *SQLiteStorage) CreateLearnedPattern(ctx context.Context, pattern *model.LearnedPattern) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if pattern == nil {
		return fmt.Errorf("%w: pattern", ErrNilParameter)
	}
	if err := pattern.Validate(); err != nil {
		return fmt.Errorf("invalid pattern: %w", err)
	}

	query := `
		INSERT INTO learned_patterns (
			goal_id, bank_name, sample_text, amount_pattern,
			sender_pattern, account_pattern, active
		) VALUES (?, ?, ?, ?, ?, ?, 1)`

	result, err := s.db.ExecContext(ctx, query,
		pattern.GoalID, pattern.BankName, pattern.SampleText,
		pattern.AmountPattern, pattern.SenderPattern, pattern.AccountPattern,
	)
	if err != nil {
		return fmt.Errorf("failed to create learned pattern: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get pattern id: %w", err)
	}
	pattern.ID = id
	pattern.Active = true

	slog.Info("created learned pattern",
		"id", pattern.ID, "goal_id", pattern.GoalID, "bank", pattern.BankName)
	return nil
}

// GetLearnedPattern retrieves a pattern by id.
func (s *SQLiteStorage) GetLearnedPattern(ctx context.Context, id int64) (*model.LearnedPattern, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	query := `SELECT ` + patternColumns + ` FROM learned_patterns WHERE id = ?`

	pattern := &model.LearnedPattern{}
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&pattern.ID, &pattern.GoalID, &pattern.BankName, &pattern.SampleText,
		&pattern.AmountPattern, &pattern.SenderPattern, &pattern.AccountPattern,
		&pattern.Active, &pattern.SuccessCount, &pattern.FailCount,
		&pattern.LastUsedAt, &pattern.CreatedAt, &pattern.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPatternNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query learned pattern: %w", err)
	}
	return pattern, nil
}

// GetActivePatterns returns a goal's active patterns, most successful first.
func (s *SQLiteStorage) GetActivePatterns(ctx context.Context, goalID string) ([]model.LearnedPattern, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(goalID, "goalID"); err != nil {
		return nil, err
	}

	query := `SELECT ` + patternColumns + `
		FROM learned_patterns
		WHERE goal_id = ? AND active = 1
		ORDER BY success_count DESC, id`

	rows, err := s.db.QueryContext(ctx, query, goalID)
	if err != nil {
		return nil, fmt.Errorf("failed to query learned patterns: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			slog.Error("failed to close rows", "error", err)
		}
	}()

	var patterns []model.LearnedPattern
	for rows.Next() {
		var pattern model.LearnedPattern
		if err := rows.Scan(
			&pattern.ID, &pattern.GoalID, &pattern.BankName, &pattern.SampleText,
			&pattern.AmountPattern, &pattern.SenderPattern, &pattern.AccountPattern,
			&pattern.Active, &pattern.SuccessCount, &pattern.FailCount,
			&pattern.LastUsedAt, &pattern.CreatedAt, &pattern.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan learned pattern: %w", err)
		}
		patterns = append(patterns, pattern)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating learned patterns: %w", err)
	}
	return patterns, nil
}

// RecordPatternHit bumps a pattern's success counter. The increment happens
// in SQL so concurrent recorders never lose updates.
func (s *SQLiteStorage) RecordPatternHit(ctx context.Context, id int64) error {
	return s.bumpPatternCounter(ctx, id, "success_count")
}

// RecordPatternMiss bumps a pattern's failure counter.
func (s *SQLiteStorage) RecordPatternMiss(ctx context.Context, id int64) error {
	return s.bumpPatternCounter(ctx, id, "fail_count")
}

func (s *SQLiteStorage) bumpPatternCounter(ctx context.Context, id int64, column string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	// column is one of two compile-time constants, never user input.
	query := fmt.Sprintf(`
		UPDATE learned_patterns
		SET %s = %s + 1,
			last_used_at = CURRENT_TIMESTAMP,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`, column, column)

	result, err := s.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to update pattern counter: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return ErrPatternNotFound
	}
	return nil
}

// DeactivatePattern retires a pattern without deleting its history.
func (s *SQLiteStorage) DeactivatePattern(ctx context.Context, id int64) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx,
		`UPDATE learned_patterns
		SET active = 0, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND active = 1`, id)
	if err != nil {
		return fmt.Errorf("failed to deactivate pattern: %w", err)
	}

	if n, err := result.RowsAffected(); err == nil && n > 0 {
		slog.Info("deactivated learned pattern", "id", id)
	}
	return nil
}
