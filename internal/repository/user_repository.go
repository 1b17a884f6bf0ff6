package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/avtoscan/reports-backend/internal/models"
	"github.com/avtoscan/reports-backend/internal/pagination"
	"github.com/avtoscan/reports-backend/internal/repository/common"
)

// Ошибки уровня репозитория пользователей.
var (
	ErrUserNotFound   = errors.New("user not found")
	ErrUserNotDeleted = errors.New("user is not deleted")
)

// Колонки users, выбираемые во всех запросах чтения.
const userColumns = `id, email, password_hash, roles, refresh_token_hash,
	reset_token_hash, reset_token_expires_at, profile_picture,
	deleted_at, created_at, updated_at`

// UserRepository отвечает за работу с таблицей users.
type UserRepository struct {
	db *sqlx.DB
}

// NewUserRepository создаёт экземпляр репозитория.
func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create вставляет нового пользователя. Нарушение уникальности email
// не маскируется: сервис сам решает, как отдать конфликт наружу.
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (email, password_hash, roles)
		VALUES ($1, $2, $3)
		RETURNING id, created_at, updated_at
	`
	if err := r.db.QueryRowxContext(ctx, query, user.Email, user.PasswordHash, user.Roles).
		Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt); err != nil {
		if common.IsUniqueViolation(err) {
			return err
		}
		return fmt.Errorf("user repository: create %w", err)
	}
	return nil
}

// SignupTx атомарно регистрирует пользователя и сохраняет хэш refresh-токена,
// который выдаёт fn. Ошибка выпуска токенов откатывает и саму регистрацию.
func (r *UserRepository) SignupTx(ctx context.Context, user *models.User, fn func(*models.User) (string, error)) error {
	return common.WithTransaction(ctx, r.db, func(tx *sqlx.Tx) error {
		query := `
			INSERT INTO users (email, password_hash, roles)
			VALUES ($1, $2, $3)
			RETURNING id, created_at, updated_at
		`
		if err := tx.QueryRowxContext(ctx, query, user.Email, user.PasswordHash, user.Roles).
			Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt); err != nil {
			if common.IsUniqueViolation(err) {
				return err
			}
			return fmt.Errorf("user repository: signup insert %w", err)
		}

		refreshHash, err := fn(user)
		if err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, `
			UPDATE users SET refresh_token_hash = $1, updated_at = NOW() WHERE id = $2
		`, refreshHash, user.ID); err != nil {
			return fmt.Errorf("user repository: signup refresh hash %w", err)
		}
		user.RefreshTokenHash = &refreshHash
		return nil
	})
}

// GetByEmail возвращает неудалённого пользователя по email.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1 AND deleted_at IS NULL`
	if err := r.db.GetContext(ctx, &user, query, email); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("user repository: get by email %w", err)
	}
	return &user, nil
}

// GetByID возвращает пользователя. includeDeleted открывает мягко удалённых.
func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID, includeDeleted bool) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	if !includeDeleted {
		query += " AND deleted_at IS NULL"
	}

	var user models.User
	if err := r.db.GetContext(ctx, &user, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("user repository: get by id %w", err)
	}
	return &user, nil
}

// GetByResetTokenHash ищет пользователя по хэшу действующего токена сброса.
func (r *UserRepository) GetByResetTokenHash(ctx context.Context, tokenHash string) (*models.User, error) {
	var user models.User
	query := `
		SELECT ` + userColumns + `
		FROM users
		WHERE reset_token_hash = $1
		  AND reset_token_expires_at > NOW()
		  AND deleted_at IS NULL
	`
	if err := r.db.GetContext(ctx, &user, query, tokenHash); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("user repository: get by reset token %w", err)
	}
	return &user, nil
}

// UserListResult содержит страницу пользователей и общее число совпадений.
type UserListResult struct {
	Users []models.User
	Total int
}

// FindAll возвращает страницу пользователей. Поиск — подстрока в email
// или в склеенном списке ролей.
func (r *UserRepository) FindAll(ctx context.Context, p pagination.Params) (*UserListResult, error) {
	conditions := []string{}
	args := []interface{}{}
	argIndex := 1

	if !p.IncludeDeleted {
		conditions = append(conditions, "deleted_at IS NULL")
	}
	if p.Search != "" {
		conditions = append(conditions, fmt.Sprintf(
			"(email ILIKE $%d OR array_to_string(roles, ',') ILIKE $%d)", argIndex, argIndex))
		args = append(args, "%"+p.Search+"%")
		argIndex++
	}

	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM users`+where, args...); err != nil {
		return nil, fmt.Errorf("user repository: count %w", err)
	}

	query := `SELECT ` + userColumns + ` FROM users` + where +
		fmt.Sprintf(" ORDER BY %s %s", p.SortColumn, p.SortOrder)
	if p.SortColumn != "created_at" {
		query += ", created_at DESC"
	}
	query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", argIndex, argIndex+1)
	args = append(args, p.Limit, p.Skip())

	users := []models.User{}
	if err := r.db.SelectContext(ctx, &users, query, args...); err != nil {
		return nil, fmt.Errorf("user repository: find all %w", err)
	}

	return &UserListResult{Users: users, Total: total}, nil
}

// UpdateProfilePicture сохраняет путь к новому аватару.
func (r *UserRepository) UpdateProfilePicture(ctx context.Context, id uuid.UUID, path string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE users SET profile_picture = $1, updated_at = NOW()
		WHERE id = $2 AND deleted_at IS NULL
	`, path, id)
	if err != nil {
		return fmt.Errorf("user repository: update profile picture %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return ErrUserNotFound
	}
	return nil
}

// UpdateRefreshTokenHash перезаписывает хэш refresh-токена.
// nil очищает хэш (logout).
func (r *UserRepository) UpdateRefreshTokenHash(ctx context.Context, id uuid.UUID, hash *string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE users SET refresh_token_hash = $1, updated_at = NOW()
		WHERE id = $2 AND deleted_at IS NULL
	`, hash, id)
	if err != nil {
		return fmt.Errorf("user repository: update refresh token %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return ErrUserNotFound
	}
	return nil
}

// SetResetToken сохраняет хэш токена сброса пароля и срок его действия.
func (r *UserRepository) SetResetToken(ctx context.Context, id uuid.UUID, tokenHash string, expiresAt time.Time) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE users SET reset_token_hash = $1, reset_token_expires_at = $2, updated_at = NOW()
		WHERE id = $3 AND deleted_at IS NULL
	`, tokenHash, expiresAt, id)
	if err != nil {
		return fmt.Errorf("user repository: set reset token %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return ErrUserNotFound
	}
	return nil
}

// ResetPasswordTx атомарно меняет пароль, гасит токен сброса и
// отзывает refresh-сессию.
func (r *UserRepository) ResetPasswordTx(ctx context.Context, id uuid.UUID, passwordHash string) error {
	return common.WithTransaction(ctx, r.db, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE users
			SET password_hash = $1,
			    reset_token_hash = NULL,
			    reset_token_expires_at = NULL,
			    refresh_token_hash = NULL,
			    updated_at = NOW()
			WHERE id = $2 AND deleted_at IS NULL
		`, passwordHash, id)
		if err != nil {
			return fmt.Errorf("user repository: reset password %w", err)
		}
		n, _ := res.RowsAffected()
		if n == 0 {
			return ErrUserNotFound
		}
		return nil
	})
}

// SoftDelete помечает пользователя удалённым. Его отчёты остаются в базе.
func (r *UserRepository) SoftDelete(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE users SET deleted_at = NOW(), refresh_token_hash = NULL, updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL
	`, id)
	if err != nil {
		return fmt.Errorf("user repository: soft delete %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return ErrUserNotFound
	}
	return nil
}

// Restore возвращает мягко удалённого пользователя.
// Отдельно различаем "строки нет" и "строка есть, но не удалена".
func (r *UserRepository) Restore(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	query := `
		UPDATE users SET deleted_at = NULL, updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NOT NULL
		RETURNING ` + userColumns
	err := r.db.GetContext(ctx, &user, query, id)
	if err == nil {
		return &user, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("user repository: restore %w", err)
	}

	var exists bool
	if err := r.db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM users WHERE id = $1)`, id); err != nil {
		return nil, fmt.Errorf("user repository: restore exists %w", err)
	}
	if exists {
		return nil, ErrUserNotDeleted
	}
	return nil, ErrUserNotFound
}

// Purge физически удаляет пользователя. Каскад забирает его отчёты,
// изображения и связи с тегами.
func (r *UserRepository) Purge(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("user repository: purge %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return ErrUserNotFound
	}
	return nil
}

// ListDeleted возвращает только мягко удалённых пользователей.
func (r *UserRepository) ListDeleted(ctx context.Context) ([]models.User, error) {
	users := []models.User{}
	query := `SELECT ` + userColumns + ` FROM users WHERE deleted_at IS NOT NULL ORDER BY deleted_at DESC`
	if err := r.db.SelectContext(ctx, &users, query); err != nil {
		return nil, fmt.Errorf("user repository: list deleted %w", err)
	}
	return users, nil
}
