package user

import "time"

type Role string

const (
	RoleCitizen    Role = "citizen"
	RoleAdmin      Role = "admin"
	RoleSuperAdmin Role = "superadmin"
)

func (r Role) Valid() bool {
	switch r {
	case RoleCitizen, RoleAdmin, RoleSuperAdmin:
		return true
	}
	return false
}

func (r Role) IsStaff() bool {
	return r == RoleAdmin || r == RoleSuperAdmin
}

type User struct {
	ID           int64
	Email        string
	Name         string
	PasswordHash string
	Role         Role
	Department   string
	Points       int64
	Phone        string
	Address      string
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
