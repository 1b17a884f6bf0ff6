package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// Роли пользователей. Порядок в массиве значим: первая роль считается основной.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User описывает зарегистрированного пользователя площадки.
type User struct {
	ID               uuid.UUID      `db:"id" json:"id"`
	Email            string         `db:"email" json:"email"`
	PasswordHash     string         `db:"password_hash" json:"-"`
	Roles            pq.StringArray `db:"roles" json:"roles"`
	RefreshTokenHash *string        `db:"refresh_token_hash" json:"-"`
	ResetTokenHash   *string        `db:"reset_token_hash" json:"-"`
	ResetTokenExp    *time.Time     `db:"reset_token_expires_at" json:"-"`
	ProfilePicture   *string        `db:"profile_picture" json:"profile_picture,omitempty"`
	DeletedAt        *time.Time     `db:"deleted_at" json:"deleted_at,omitempty"`
	CreatedAt        time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time      `db:"updated_at" json:"updated_at"`
}

// IsAdmin проверяет наличие роли администратора.
func (u *User) IsAdmin() bool {
	for _, role := range u.Roles {
		if role == RoleAdmin {
			return true
		}
	}
	return false
}
