package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/avtoscan/reports-backend/internal/models"
)

// ErrImageNotFound — изображение отсутствует в базе.
var ErrImageNotFound = errors.New("image not found")

// ImageRepository отвечает за метаданные изображений отчётов.
// Сами файлы живут в локальном хранилище, здесь только записи о них.
type ImageRepository struct {
	db *sqlx.DB
}

// NewImageRepository создаёт экземпляр репозитория.
func NewImageRepository(db *sqlx.DB) *ImageRepository {
	return &ImageRepository{db: db}
}

// Create сохраняет метаданные загруженного изображения.
func (r *ImageRepository) Create(ctx context.Context, image *models.ReportImage) error {
	query := `
		INSERT INTO report_images (report_id, filename, url, original_name, size, mime_type)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`
	if err := r.db.QueryRowxContext(
		ctx, query,
		image.ReportID, image.Filename, image.URL,
		image.OriginalName, image.Size, image.MimeType,
	).Scan(&image.ID, &image.CreatedAt); err != nil {
		return fmt.Errorf("image repository: create %w", err)
	}
	return nil
}

// GetByID возвращает запись об изображении.
func (r *ImageRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.ReportImage, error) {
	var image models.ReportImage
	query := `
		SELECT id, report_id, filename, url, original_name, size, mime_type, created_at
		FROM report_images
		WHERE id = $1
	`
	if err := r.db.GetContext(ctx, &image, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrImageNotFound
		}
		return nil, fmt.Errorf("image repository: get by id %w", err)
	}
	return &image, nil
}

// ListByReport возвращает все изображения отчёта в порядке загрузки.
func (r *ImageRepository) ListByReport(ctx context.Context, reportID uuid.UUID) ([]models.ReportImage, error) {
	images := []models.ReportImage{}
	query := `
		SELECT id, report_id, filename, url, original_name, size, mime_type, created_at
		FROM report_images
		WHERE report_id = $1
		ORDER BY created_at
	`
	if err := r.db.SelectContext(ctx, &images, query, reportID); err != nil {
		return nil, fmt.Errorf("image repository: list by report %w", err)
	}
	return images, nil
}

// ListByOwner возвращает изображения всех отчётов пользователя,
// включая мягко удалённые отчёты.
func (r *ImageRepository) ListByOwner(ctx context.Context, userID uuid.UUID) ([]models.ReportImage, error) {
	images := []models.ReportImage{}
	query := `
		SELECT i.id, i.report_id, i.filename, i.url, i.original_name, i.size, i.mime_type, i.created_at
		FROM report_images i
		JOIN reports r ON r.id = i.report_id
		WHERE r.user_id = $1
	`
	if err := r.db.SelectContext(ctx, &images, query, userID); err != nil {
		return nil, fmt.Errorf("image repository: list by owner %w", err)
	}
	return images, nil
}

// Delete удаляет запись об изображении.
func (r *ImageRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM report_images WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("image repository: delete %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return ErrImageNotFound
	}
	return nil
}
