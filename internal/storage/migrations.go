package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
)

// ExpectedSchemaVersion is the latest schema version that the application expects.
const ExpectedSchemaVersion = 4

// Migration represents a database schema migration.
type Migration struct {
	Up          func(*sql.Tx) error
	Description string
	Version     int
}

var migrations = []Migration{
	{
		Version:     1,
		Description: "Initial schema",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE TABLE IF NOT EXISTS transactions (
					id TEXT PRIMARY KEY,
					user_id TEXT NOT NULL,
					group_id TEXT,
					bank_id TEXT NOT NULL,
					direction TEXT NOT NULL,
					amount INTEGER NOT NULL,
					merchant TEXT,
					sender TEXT,
					description TEXT,
					account TEXT,
					raw_text TEXT NOT NULL,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,
				`CREATE INDEX idx_transactions_user ON transactions(user_id)`,
				`CREATE INDEX idx_transactions_user_amount ON transactions(user_id, amount)`,

				`CREATE TABLE IF NOT EXISTS duplicate_rules (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					group_id TEXT NOT NULL,
					bank_a TEXT NOT NULL,
					bank_b TEXT NOT NULL,
					resolution TEXT NOT NULL,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
					updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
					UNIQUE(group_id, bank_a, bank_b)
				)`,

				`CREATE TABLE IF NOT EXISTS pending_cases (
					id TEXT PRIMARY KEY,
					user_id TEXT NOT NULL,
					group_id TEXT,
					first_txn_id TEXT NOT NULL,
					second_txn_id TEXT NOT NULL,
					first_bank TEXT NOT NULL,
					second_bank TEXT NOT NULL,
					amount INTEGER NOT NULL,
					resolved INTEGER DEFAULT 0,
					resolution TEXT DEFAULT 'PENDING',
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,
				`CREATE INDEX idx_pending_cases_group ON pending_cases(group_id, resolved)`,
			}

			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query: %w", err)
				}
			}
			return nil
		},
	},
	{
		Version:     2,
		Description: "Household members, goals, and contributions",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE TABLE IF NOT EXISTS members (
					id TEXT PRIMARY KEY,
					group_id TEXT NOT NULL,
					name TEXT NOT NULL,
					real_name TEXT,
					aliases TEXT
				)`,
				`CREATE INDEX idx_members_group ON members(group_id)`,

				`CREATE TABLE IF NOT EXISTS goals (
					id TEXT PRIMARY KEY,
					group_id TEXT NOT NULL,
					name TEXT NOT NULL,
					account_number TEXT,
					target_amount INTEGER DEFAULT 0,
					saved_amount INTEGER DEFAULT 0,
					auto_deposit INTEGER DEFAULT 0,
					completed INTEGER DEFAULT 0,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,
				`CREATE INDEX idx_goals_group ON goals(group_id)`,

				`CREATE TABLE IF NOT EXISTS contributions (
					id TEXT PRIMARY KEY,
					goal_id TEXT NOT NULL,
					member_id TEXT NOT NULL,
					transaction_id TEXT,
					amount INTEGER NOT NULL,
					note TEXT,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
					FOREIGN KEY (goal_id) REFERENCES goals(id)
				)`,
				`CREATE INDEX idx_contributions_goal ON contributions(goal_id)`,
			}

			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query: %w", err)
				}
			}
			return nil
		},
	},
	{
		Version:     3,
		Description: "Learned patterns and duplicate preferences",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE TABLE IF NOT EXISTS learned_patterns (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					goal_id TEXT NOT NULL,
					bank_name TEXT,
					sample_text TEXT NOT NULL,
					amount_pattern TEXT,
					sender_pattern TEXT NOT NULL,
					account_pattern TEXT,
					active INTEGER DEFAULT 1,
					success_count INTEGER DEFAULT 0,
					fail_count INTEGER DEFAULT 0,
					last_used_at DATETIME,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
					updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
					FOREIGN KEY (goal_id) REFERENCES goals(id)
				)`,
				`CREATE INDEX idx_learned_patterns_goal ON learned_patterns(goal_id, active)`,

				`CREATE TABLE IF NOT EXISTS duplicate_preferences (
					user_id TEXT PRIMARY KEY,
					preference TEXT NOT NULL DEFAULT 'ask',
					updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,
			}

			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query: %w", err)
				}
			}
			return nil
		},
	},
	{
		Version:     4,
		Description: "Transaction sender labels and contribution lookup by transaction",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`ALTER TABLE transactions ADD COLUMN sender_label TEXT DEFAULT ''`,
				`CREATE INDEX idx_contributions_txn ON contributions(transaction_id)`,
			}

			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query: %w", err)
				}
			}
			return nil
		},
	},
}

// Migrate brings the database schema up to the expected version.
func (s *SQLiteStorage) Migrate(ctx context.Context) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	var currentVersion int
	err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&currentVersion)
	if err != nil {
		return fmt.Errorf("failed to get schema version: %w", err)
	}

	for _, migration := range migrations {
		if migration.Version <= currentVersion {
			continue
		}

		tx, txErr := s.db.BeginTx(ctx, nil)
		if txErr != nil {
			return fmt.Errorf("failed to begin transaction: %w", txErr)
		}

		if upErr := migration.Up(tx); upErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d failed: %w", migration.Version, upErr)
		}

		if _, execErr := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", migration.Version)); execErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to update schema version: %w", execErr)
		}

		if commitErr := tx.Commit(); commitErr != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.Version, commitErr)
		}

		slog.Info("Applied migration",
			"version", migration.Version,
			"description", migration.Description)
	}

	var finalVersion int
	err = s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&finalVersion)
	if err != nil {
		return fmt.Errorf("failed to verify final schema version: %w", err)
	}

	if finalVersion != ExpectedSchemaVersion {
		return fmt.Errorf("database schema version mismatch: expected %d, got %d", ExpectedSchemaVersion, finalVersion)
	}

	return nil
}
