package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/avtoscan/reports-backend/internal/models"
	"github.com/avtoscan/reports-backend/internal/repository/common"
)

// Ошибки уровня репозитория тегов.
var (
	ErrTagNotFound   = errors.New("tag not found")
	ErrTagNotDeleted = errors.New("tag is not deleted")
)

// TagRepository отвечает за глобальный словарь тегов.
type TagRepository struct {
	db *sqlx.DB
}

// NewTagRepository создаёт экземпляр репозитория.
func NewTagRepository(db *sqlx.DB) *TagRepository {
	return &TagRepository{db: db}
}

// GetByName возвращает неудалённый тег по имени. Сравнение без учёта
// регистра, в точности как unique-индекс по LOWER(name).
func (r *TagRepository) GetByName(ctx context.Context, name string) (*models.Tag, error) {
	var tag models.Tag
	query := `
		SELECT id, name, description, deleted_at, created_at, updated_at
		FROM tags
		WHERE LOWER(name) = LOWER($1) AND deleted_at IS NULL
	`
	if err := r.db.GetContext(ctx, &tag, query, name); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTagNotFound
		}
		return nil, fmt.Errorf("tag repository: get by name %w", err)
	}
	return &tag, nil
}

// GetByID возвращает тег по идентификатору.
func (r *TagRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Tag, error) {
	var tag models.Tag
	query := `
		SELECT id, name, description, deleted_at, created_at, updated_at
		FROM tags
		WHERE id = $1 AND deleted_at IS NULL
	`
	if err := r.db.GetContext(ctx, &tag, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTagNotFound
		}
		return nil, fmt.Errorf("tag repository: get by id %w", err)
	}
	return &tag, nil
}

// Create вставляет новый тег. Нарушение уникальности имени не маскируется:
// вызывающая сторона решает, перечитать или отдать конфликт наружу.
func (r *TagRepository) Create(ctx context.Context, tag *models.Tag) error {
	query := `
		INSERT INTO tags (name, description)
		VALUES ($1, $2)
		RETURNING id, created_at, updated_at
	`
	if err := r.db.QueryRowxContext(ctx, query, tag.Name, tag.Description).
		Scan(&tag.ID, &tag.CreatedAt, &tag.UpdatedAt); err != nil {
		if common.IsUniqueViolation(err) {
			return err
		}
		return fmt.Errorf("tag repository: create %w", err)
	}
	return nil
}

// List возвращает все неудалённые теги.
func (r *TagRepository) List(ctx context.Context) ([]models.Tag, error) {
	var tags []models.Tag
	query := `
		SELECT id, name, description, deleted_at, created_at, updated_at
		FROM tags
		WHERE deleted_at IS NULL
		ORDER BY name
	`
	if err := r.db.SelectContext(ctx, &tags, query); err != nil {
		return nil, fmt.Errorf("tag repository: list %w", err)
	}
	return tags, nil
}

// ListByIDs возвращает теги по списку идентификаторов.
func (r *TagRepository) ListByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Tag, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	var tags []models.Tag
	query := `
		SELECT id, name, description, deleted_at, created_at, updated_at
		FROM tags
		WHERE id = ANY($1) AND deleted_at IS NULL
	`
	if err := r.db.SelectContext(ctx, &tags, query, pq.Array(ids)); err != nil {
		return nil, fmt.Errorf("tag repository: list by ids %w", err)
	}
	return tags, nil
}

// SoftDelete помечает тег удалённым.
func (r *TagRepository) SoftDelete(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE tags SET deleted_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL
	`, id)
	if err != nil {
		return fmt.Errorf("tag repository: soft delete %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return ErrTagNotFound
	}
	return nil
}

// Restore снимает пометку удаления. Активный тег восстановить нельзя.
func (r *TagRepository) Restore(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE tags SET deleted_at = NULL, updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NOT NULL
	`, id)
	if err != nil {
		return fmt.Errorf("tag repository: restore %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		exists, err := r.exists(ctx, id)
		if err != nil {
			return err
		}
		if exists {
			return ErrTagNotDeleted
		}
		return ErrTagNotFound
	}
	return nil
}

// Purge удаляет строку тега навсегда. Связи report_tags снимает каскад.
func (r *TagRepository) Purge(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM tags WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("tag repository: purge %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return ErrTagNotFound
	}
	return nil
}

func (r *TagRepository) exists(ctx context.Context, id uuid.UUID) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM tags WHERE id = $1)`, id)
	if err != nil {
		return false, fmt.Errorf("tag repository: exists %w", err)
	}
	return exists, nil
}
