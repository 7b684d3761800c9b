package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/mediflow/scheduling-api/internal/model"
	apperrors "github.com/mediflow/scheduling-api/pkg/errors"
)

func (r *userRepository) Get(ctx context.Context, id uuid.UUID) (*model.User, error) {
	query := `
		SELECT id, first_name, last_name, email, role, active,
			   created_at, updated_at
		FROM users
		WHERE id = $1
	`
	var user model.User
	err := r.db.GetContext(ctx, &user, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFound("user")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &user, nil
}

func (r *userRepository) SearchDoctors(ctx context.Context, name string, p model.Pagination) ([]*model.User, int, error) {
	p.Normalize()

	where := `role = 'DOCTOR' AND active = true`
	args := []interface{}{}
	if name != "" {
		where += ` AND lower(first_name || ' ' || last_name) LIKE $1`
		args = append(args, "%"+strings.ToLower(name)+"%")
	}

	var total int
	countQuery := `SELECT count(*) FROM users WHERE ` + where
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to count doctors: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT id, first_name, last_name, email, role, active,
			   created_at, updated_at
		FROM users
		WHERE %s
		ORDER BY last_name, first_name
		LIMIT $%d OFFSET $%d
	`, where, len(args)+1, len(args)+2)
	args = append(args, p.PageSize, p.Offset())

	var doctors []*model.User
	if err := r.db.SelectContext(ctx, &doctors, query, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to search doctors: %w", err)
	}
	return doctors, total, nil
}
