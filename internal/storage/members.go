package storage

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/moamoa/moa-engine/internal/model"
)

// Aliases are stored newline-joined; none of our alias inputs may contain
// newlines, which SaveMember enforces.
const aliasSeparator = "\n"

// GetMembers returns every member of a household group.
func (s *SQLiteStorage) GetMembers(ctx context.Context, groupID string) ([]model.Member, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(groupID, "groupID"); err != nil {
		return nil, err
	}

	query := `
		SELECT id, group_id, name, real_name, aliases
		FROM members
		WHERE group_id = ?
		ORDER BY name`

	rows, err := s.db.QueryContext(ctx, query, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to query members: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			slog.Error("failed to close rows", "error", err)
		}
	}()

	var members []model.Member
	for rows.Next() {
		var member model.Member
		var aliases string
		if err := rows.Scan(&member.ID, &member.GroupID, &member.Name, &member.RealName, &aliases); err != nil {
			return nil, fmt.Errorf("failed to scan member: %w", err)
		}
		if aliases != "" {
			member.Aliases = strings.Split(aliases, aliasSeparator)
		}
		members = append(members, member)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating members: %w", err)
	}
	return members, nil
}

// SaveMember creates or replaces a household member.
func (s *SQLiteStorage) SaveMember(ctx context.Context, member *model.Member) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if member == nil {
		return fmt.Errorf("%w: member", ErrNilParameter)
	}
	if err := validateString(member.ID, "member.ID"); err != nil {
		return err
	}
	if err := validateString(member.Name, "member.Name"); err != nil {
		return err
	}
	for _, alias := range member.Aliases {
		if strings.Contains(alias, aliasSeparator) {
			return fmt.Errorf("alias %q contains a newline", alias)
		}
	}

	query := `
		INSERT INTO members (id, group_id, name, real_name, aliases)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			group_id = excluded.group_id,
			name = excluded.name,
			real_name = excluded.real_name,
			aliases = excluded.aliases`

	_, err := s.db.ExecContext(ctx, query,
		member.ID, member.GroupID, member.Name, member.RealName,
		strings.Join(member.Aliases, aliasSeparator),
	)
	if err != nil {
		return fmt.Errorf("failed to save member: %w", err)
	}

	slog.Debug("saved member", "id", member.ID, "name", member.Name)
	return nil
}
