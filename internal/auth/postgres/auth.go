package postgres

import (
	"context"
	"fmt"

	"github.com/frahmantamala/civic-report/internal"
	"github.com/frahmantamala/civic-report/internal/auth"
	"github.com/frahmantamala/civic-report/internal/core/common/database"
	userDatamodel "github.com/frahmantamala/civic-report/internal/core/datamodel/user"
	"github.com/frahmantamala/civic-report/internal/core/user"
	"gorm.io/gorm"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) auth.RepositoryAPI {
	return &Repository{
		db: db,
	}
}

func (r *Repository) GetUserByEmail(ctx context.Context, email string) (*user.User, error) {
	var row userDatamodel.User
	err := r.db.WithContext(ctx).Where("email = ?", email).First(&row).Error
	if err != nil {
		if database.IsNotFound(err) {
			return nil, internal.ErrUserNotFound
		}
		return nil, fmt.Errorf("get user by email: %w", err)
	}
	return toDomain(&row), nil
}

func (r *Repository) GetUserByID(ctx context.Context, id int64) (*user.User, error) {
	var row userDatamodel.User
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&row).Error
	if err != nil {
		if database.IsNotFound(err) {
			return nil, internal.ErrUserNotFound
		}
		return nil, fmt.Errorf("get user by id: %w", err)
	}
	return toDomain(&row), nil
}

func (r *Repository) CreateUser(ctx context.Context, u *user.User) error {
	row := userDatamodel.User{
		Email:        u.Email,
		Name:         u.Name,
		PasswordHash: u.PasswordHash,
		Role:         string(u.Role),
		Phone:        u.Phone,
		Address:      u.Address,
		IsActive:     u.IsActive,
	}
	if u.Department != "" {
		dept := u.Department
		row.Department = &dept
	}

	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		if database.IsUniqueViolation(err) {
			return internal.ErrEmailExists
		}
		return fmt.Errorf("create user: %w", err)
	}

	u.ID = row.ID
	u.CreatedAt = row.CreatedAt
	u.UpdatedAt = row.UpdatedAt
	return nil
}

func toDomain(row *userDatamodel.User) *user.User {
	u := &user.User{
		ID:           row.ID,
		Email:        row.Email,
		Name:         row.Name,
		PasswordHash: row.PasswordHash,
		Role:         user.Role(row.Role),
		Points:       row.Points,
		Phone:        row.Phone,
		Address:      row.Address,
		IsActive:     row.IsActive,
		CreatedAt:    row.CreatedAt,
		UpdatedAt:    row.UpdatedAt,
	}
	if row.Department != nil {
		u.Department = *row.Department
	}
	return u
}
