package repository

import (
	"context"
	"fmt"

	"github.com/AlekseyZapadovnikov/code-review/internal/domain"
	"github.com/AlekseyZapadovnikov/code-review/internal/models"
)

// SaveUser сохраняет или обновляет пользователя.
func (s *Storage) SaveUser(ctx context.Context, user *models.User) error {
	if user == nil {
		return fmt.Errorf("user is nil")
	}
	const q = `
	INSERT INTO users (user_id, username) VALUES ($1, $2)
	ON CONFLICT (user_id) DO UPDATE SET username = EXCLUDED.username
	`
	if _, err := s.db.Exec(ctx, q, user.UserId, user.Username); err != nil {
		return fmt.Errorf("upsert users: %w", err)
	}
	return nil
}

// GetUser возвращает пользователя по идентификатору.
func (s *Storage) GetUser(ctx context.Context, userID string) (*models.User, error) {
	const q = `SELECT user_id, username FROM users WHERE user_id = $1`

	rows, err := s.db.Query(ctx, q, userID)
	if err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("iterate users: %w", err)
		}
		return nil, domain.NewNotFoundError(fmt.Sprintf("user %s", userID))
	}

	var u models.User
	if err := rows.Scan(&u.UserId, &u.Username); err != nil {
		return nil, fmt.Errorf("scan users: %w", err)
	}
	return &u, nil
}

// AssignRole выдаёт пользователю роль в области.
func (s *Storage) AssignRole(ctx context.Context, userID, scope, role string) error {
	const q = `INSERT INTO user_roles (user_id, scope, role) VALUES ($1, $2, $3) ON CONFLICT DO NOTHING`
	if _, err := s.db.Exec(ctx, q, userID, scope, role); err != nil {
		return fmt.Errorf("insert user_roles: %w", err)
	}
	return nil
}

// UsersWithRole возвращает идентификаторы пользователей с ролью в области.
func (s *Storage) UsersWithRole(ctx context.Context, role, scope string) ([]string, error) {
	const q = `SELECT user_id FROM user_roles WHERE role = $1 AND scope = $2 ORDER BY user_id`
	return s.queryStrings(ctx, q, role, scope)
}

// RolesOf возвращает роли пользователя в области.
func (s *Storage) RolesOf(ctx context.Context, userID, scope string) ([]string, error) {
	const q = `SELECT role FROM user_roles WHERE user_id = $1 AND scope = $2 ORDER BY role`
	return s.queryStrings(ctx, q, userID, scope)
}

func (s *Storage) queryStrings(ctx context.Context, q string, args ...any) ([]string, error) {
	rows, err := s.db.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query user_roles: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("scan user_roles: %w", err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate user_roles: %w", err)
	}
	return out, nil
}
