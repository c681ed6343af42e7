package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/moamoa/moa-engine/internal/model"
)

// ErrTransactionNotFound is returned when a transaction is not found.
var ErrTransactionNotFound = errors.New("transaction not found")

// SaveTransaction persists a transaction.
func (s *SQLiteStorage) SaveTransaction(ctx context.Context, txn *model.Transaction) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateTransaction(txn); err != nil {
		return err
	}

	query := `
		INSERT INTO transactions (
			id, user_id, group_id, bank_id, direction, amount,
			merchant, sender, sender_label, description, account, raw_text, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := s.db.ExecContext(ctx, query,
		txn.ID, txn.UserID, txn.GroupID, txn.BankID, txn.Direction, txn.Amount,
		txn.Merchant, txn.Sender, txn.SenderLabel, txn.Description, txn.Account, txn.RawText, txn.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save transaction: %w", err)
	}

	slog.Debug("saved transaction", "id", txn.ID, "amount", txn.Amount)
	return nil
}

// GetTransactionByID retrieves a transaction by its id.
func (s *SQLiteStorage) GetTransactionByID(ctx context.Context, id string) (*model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}

	query := `
		SELECT id, user_id, group_id, bank_id, direction, amount,
			merchant, sender, sender_label, description, account, raw_text, created_at
		FROM transactions
		WHERE id = ?`

	txn := &model.Transaction{}
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&txn.ID, &txn.UserID, &txn.GroupID, &txn.BankID, &txn.Direction, &txn.Amount,
		&txn.Merchant, &txn.Sender, &txn.SenderLabel, &txn.Description, &txn.Account, &txn.RawText, &txn.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTransactionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query transaction: %w", err)
	}

	return txn, nil
}

// DeleteTransaction removes a transaction by id. Deleting an id that is
// already gone is not an error; duplicate resolution may race the user.
func (s *SQLiteStorage) DeleteTransaction(ctx context.Context, id string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(id, "id"); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, `DELETE FROM transactions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete transaction: %w", err)
	}

	if n, err := result.RowsAffected(); err == nil && n > 0 {
		slog.Debug("deleted transaction", "id", id)
	}
	return nil
}

// GetTransactionsByUser returns the user's most recent transactions.
func (s *SQLiteStorage) GetTransactionsByUser(ctx context.Context, userID string, limit int) ([]model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(userID, "userID"); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, user_id, group_id, bank_id, direction, amount,
			merchant, sender, sender_label, description, account, raw_text, created_at
		FROM transactions
		WHERE user_id = ?
		ORDER BY created_at DESC
		LIMIT ?`

	rows, err := s.db.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			slog.Error("failed to close rows", "error", err)
		}
	}()

	var txns []model.Transaction
	for rows.Next() {
		var txn model.Transaction
		if err := rows.Scan(
			&txn.ID, &txn.UserID, &txn.GroupID, &txn.BankID, &txn.Direction, &txn.Amount,
			&txn.Merchant, &txn.Sender, &txn.SenderLabel, &txn.Description, &txn.Account, &txn.RawText, &txn.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		txns = append(txns, txn)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transactions: %w", err)
	}
	return txns, nil
}
