package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/moamoa/moa-engine/internal/model"
)

// ErrCaseNotFound is returned when a pending duplicate case is not found.
var ErrCaseNotFound = errors.New("pending case not found")

// GetDuplicateRule looks up the standing rule for a bank pair, trying both
// orderings. A missing rule is (nil, nil), not an error.
func (s *SQLiteStorage) GetDuplicateRule(ctx context.Context, groupID, bankA, bankB string) (*model.DuplicateRule, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	query := `
		SELECT id, group_id, bank_a, bank_b, resolution, created_at, updated_at
		FROM duplicate_rules
		WHERE group_id = ? AND ((bank_a = ? AND bank_b = ?) OR (bank_a = ? AND bank_b = ?))`

	rule := &model.DuplicateRule{}
	err := s.db.QueryRowContext(ctx, query, groupID, bankA, bankB, bankB, bankA).Scan(
		&rule.ID, &rule.GroupID, &rule.BankA, &rule.BankB,
		&rule.Resolution, &rule.CreatedAt, &rule.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query duplicate rule: %w", err)
	}
	return rule, nil
}

// UpsertDuplicateRule creates or replaces the rule for a bank pair. The pair
// is stored in the order given; lookup handles symmetry.
func (s *SQLiteStorage) UpsertDuplicateRule(ctx context.Context, rule *model.DuplicateRule) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if rule == nil {
		return fmt.Errorf("%w: rule", ErrNilParameter)
	}

	query := `
		INSERT INTO duplicate_rules (group_id, bank_a, bank_b, resolution)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(group_id, bank_a, bank_b)
		DO UPDATE SET resolution = excluded.resolution, updated_at = CURRENT_TIMESTAMP`

	result, err := s.db.ExecContext(ctx, query, rule.GroupID, rule.BankA, rule.BankB, rule.Resolution)
	if err != nil {
		return fmt.Errorf("failed to upsert duplicate rule: %w", err)
	}

	if id, err := result.LastInsertId(); err == nil {
		rule.ID = id
	}
	slog.Info("upserted duplicate rule",
		"group_id", rule.GroupID, "bank_a", rule.BankA, "bank_b", rule.BankB,
		"resolution", rule.Resolution)
	return nil
}

// CreatePendingCase records a duplicate pair awaiting human resolution.
func (s *SQLiteStorage) CreatePendingCase(ctx context.Context, c *model.PendingDuplicateCase) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if c == nil {
		return fmt.Errorf("%w: case", ErrNilParameter)
	}

	query := `
		INSERT INTO pending_cases (
			id, user_id, group_id, first_txn_id, second_txn_id,
			first_bank, second_bank, amount, resolved, resolution, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, 0, ?, ?)`

	_, err := s.db.ExecContext(ctx, query,
		c.ID, c.UserID, c.GroupID, c.FirstTxnID, c.SecondTxnID,
		c.FirstBank, c.SecondBank, c.Amount, c.Resolution, c.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create pending case: %w", err)
	}
	return nil
}

// GetPendingCase retrieves a pending case by id.
func (s *SQLiteStorage) GetPendingCase(ctx context.Context, id string) (*model.PendingDuplicateCase, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}

	query := `
		SELECT id, user_id, group_id, first_txn_id, second_txn_id,
			first_bank, second_bank, amount, resolved, resolution, created_at
		FROM pending_cases
		WHERE id = ?`

	c := &model.PendingDuplicateCase{}
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&c.ID, &c.UserID, &c.GroupID, &c.FirstTxnID, &c.SecondTxnID,
		&c.FirstBank, &c.SecondBank, &c.Amount, &c.Resolved, &c.Resolution, &c.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrCaseNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query pending case: %w", err)
	}
	return c, nil
}

// GetOpenCases returns every unresolved case for a group, oldest first.
func (s *SQLiteStorage) GetOpenCases(ctx context.Context, groupID string) ([]model.PendingDuplicateCase, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	query := `
		SELECT id, user_id, group_id, first_txn_id, second_txn_id,
			first_bank, second_bank, amount, resolved, resolution, created_at
		FROM pending_cases
		WHERE group_id = ? AND resolved = 0
		ORDER BY created_at`

	rows, err := s.db.QueryContext(ctx, query, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to query open cases: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			slog.Error("failed to close rows", "error", err)
		}
	}()

	var cases []model.PendingDuplicateCase
	for rows.Next() {
		var c model.PendingDuplicateCase
		if err := rows.Scan(
			&c.ID, &c.UserID, &c.GroupID, &c.FirstTxnID, &c.SecondTxnID,
			&c.FirstBank, &c.SecondBank, &c.Amount, &c.Resolved, &c.Resolution, &c.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan pending case: %w", err)
		}
		cases = append(cases, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating pending cases: %w", err)
	}
	return cases, nil
}

// ResolvePendingCase marks a case resolved with the given resolution.
func (s *SQLiteStorage) ResolvePendingCase(ctx context.Context, id string, resolution model.Resolution) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(id, "id"); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx,
		`UPDATE pending_cases SET resolved = 1, resolution = ? WHERE id = ? AND resolved = 0`,
		resolution, id,
	)
	if err != nil {
		return fmt.Errorf("failed to resolve pending case: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return ErrCaseNotFound
	}

	slog.Info("resolved pending case", "id", id, "resolution", resolution)
	return nil
}

// GetDuplicatePreference returns the user's global duplicate preference,
// defaulting to ask.
func (s *SQLiteStorage) GetDuplicatePreference(ctx context.Context, userID string) (model.DuplicatePreference, error) {
	if err := validateContext(ctx); err != nil {
		return "", err
	}
	if err := validateString(userID, "userID"); err != nil {
		return "", err
	}

	var pref model.DuplicatePreference
	err := s.db.QueryRowContext(ctx,
		`SELECT preference FROM duplicate_preferences WHERE user_id = ?`, userID,
	).Scan(&pref)
	if errors.Is(err, sql.ErrNoRows) {
		return model.PreferenceAsk, nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to query duplicate preference: %w", err)
	}
	return pref, nil
}

// SetDuplicatePreference stores the user's global duplicate preference.
func (s *SQLiteStorage) SetDuplicatePreference(ctx context.Context, userID string, pref model.DuplicatePreference) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(userID, "userID"); err != nil {
		return err
	}

	query := `
		INSERT INTO duplicate_preferences (user_id, preference)
		VALUES (?, ?)
		ON CONFLICT(user_id)
		DO UPDATE SET preference = excluded.preference, updated_at = CURRENT_TIMESTAMP`

	if _, err := s.db.ExecContext(ctx, query, userID, pref); err != nil {
		return fmt.Errorf("failed to set duplicate preference: %w", err)
	}
	return nil
}
