package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/frahmantamala/civic-report/internal"
	"github.com/frahmantamala/civic-report/internal/core/user"
	userService "github.com/frahmantamala/civic-report/internal/user"
	"github.com/jmoiron/sqlx"
)

const userColumns = `id, email, name, role, department, points, phone, address, is_active, created_at, updated_at`

type userRow struct {
	ID         int64          `db:"id"`
	Email      string         `db:"email"`
	Name       string         `db:"name"`
	Role       string         `db:"role"`
	Department sql.NullString `db:"department"`
	Points     int64          `db:"points"`
	Phone      sql.NullString `db:"phone"`
	Address    sql.NullString `db:"address"`
	IsActive   bool           `db:"is_active"`
	CreatedAt  time.Time      `db:"created_at"`
	UpdatedAt  time.Time      `db:"updated_at"`
}

func (r userRow) toDomain() *user.User {
	return &user.User{
		ID:         r.ID,
		Email:      r.Email,
		Name:       r.Name,
		Role:       user.Role(r.Role),
		Department: r.Department.String,
		Points:     r.Points,
		Phone:      r.Phone.String,
		Address:    r.Address.String,
		IsActive:   r.IsActive,
		CreatedAt:  r.CreatedAt,
		UpdatedAt:  r.UpdatedAt,
	}
}

type pgRepo struct {
	db *sqlx.DB
}

func NewPostgresRepo(db *sqlx.DB) userService.RepositoryAPI {
	return &pgRepo{db: db}
}

func (p *pgRepo) GetByID(ctx context.Context, id int64) (*user.User, error) {
	var row userRow
	query := p.db.Rebind(`SELECT ` + userColumns + ` FROM users WHERE id = ?`)
	if err := p.db.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, internal.ErrUserNotFound
		}
		return nil, fmt.Errorf("get user by id: %w", err)
	}
	return row.toDomain(), nil
}

func (p *pgRepo) ListByRole(ctx context.Context, role user.Role) ([]*user.User, error) {
	var rows []userRow
	query := p.db.Rebind(`SELECT ` + userColumns + ` FROM users
WHERE role = ? AND is_active = ?
ORDER BY department, name, id`)
	if err := p.db.SelectContext(ctx, &rows, query, string(role), true); err != nil {
		return nil, fmt.Errorf("list users by role: %w", err)
	}

	users := make([]*user.User, 0, len(rows))
	for _, row := range rows {
		users = append(users, row.toDomain())
	}
	return users, nil
}
