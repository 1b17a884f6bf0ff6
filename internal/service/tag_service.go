package service

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/avtoscan/reports-backend/internal/models"
	"github.com/avtoscan/reports-backend/internal/pkg/apperror"
	"github.com/avtoscan/reports-backend/internal/repository"
	"github.com/avtoscan/reports-backend/internal/repository/common"
	"github.com/avtoscan/reports-backend/internal/validation"
)

// TagRepositoryIface описывает зависимости TagService от слоя хранилища.
type TagRepositoryIface interface {
	GetByName(ctx context.Context, name string) (*models.Tag, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Tag, error)
	Create(ctx context.Context, tag *models.Tag) error
	List(ctx context.Context) ([]models.Tag, error)
	SoftDelete(ctx context.Context, id uuid.UUID) error
	Restore(ctx context.Context, id uuid.UUID) error
	Purge(ctx context.Context, id uuid.UUID) error
}

// TagService управляет глобальным словарём тегов.
type TagService struct {
	tags TagRepositoryIface
}

// NewTagService создаёт сервис тегов.
func NewTagService(tags TagRepositoryIface) *TagService {
	return &TagService{tags: tags}
}

// Resolve возвращает тег по имени, создавая его при отсутствии.
// Гонка двух одновременных создателей разрешается через unique constraint:
// проигравший перечитывает тег, созданный победителем.
func (s *TagService) Resolve(ctx context.Context, name string) (*models.Tag, error) {
	name = strings.TrimSpace(name)
	if err := validation.ValidateTagName(name); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}

	tag, err := s.tags.GetByName(ctx, name)
	if err == nil {
		return tag, nil
	}
	if !errors.Is(err, repository.ErrTagNotFound) {
		return nil, err
	}

	tag = &models.Tag{Name: name}
	if err := s.tags.Create(ctx, tag); err != nil {
		if common.IsUniqueViolation(err) {
			return s.tags.GetByName(ctx, name)
		}
		return nil, err
	}
	return tag, nil
}

// ResolveAll находит или создаёт теги, сохраняя порядок входного списка.
// Дубликаты имён схлопываются до первого вхождения.
func (s *TagService) ResolveAll(ctx context.Context, names []string) ([]models.Tag, error) {
	seen := make(map[string]struct{}, len(names))
	resolved := make([]models.Tag, 0, len(names))

	for _, name := range names {
		key := strings.ToLower(strings.TrimSpace(name))
		if key == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}

		tag, err := s.Resolve(ctx, name)
		if err != nil {
			return nil, err
		}
		resolved = append(resolved, *tag)
	}

	return resolved, nil
}

// List возвращает все активные теги.
func (s *TagService) List(ctx context.Context) ([]models.Tag, error) {
	return s.tags.List(ctx)
}

// Get возвращает тег по идентификатору.
func (s *TagService) Get(ctx context.Context, id uuid.UUID) (*models.Tag, error) {
	tag, err := s.tags.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrTagNotFound) {
			return nil, apperror.New(apperror.ErrCodeNotFound, "тег не найден")
		}
		return nil, err
	}
	return tag, nil
}

// SoftDelete помечает тег удалённым. Связи с отчётами сохраняются,
// но удалённый тег исчезает из выдачи и поиска.
func (s *TagService) SoftDelete(ctx context.Context, id uuid.UUID) error {
	if err := s.tags.SoftDelete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrTagNotFound) {
			return apperror.New(apperror.ErrCodeNotFound, "тег не найден")
		}
		return err
	}
	return nil
}

// Restore восстанавливает мягко удалённый тег.
func (s *TagService) Restore(ctx context.Context, id uuid.UUID) error {
	if err := s.tags.Restore(ctx, id); err != nil {
		switch {
		case errors.Is(err, repository.ErrTagNotFound):
			return apperror.New(apperror.ErrCodeNotFound, "тег не найден")
		case errors.Is(err, repository.ErrTagNotDeleted):
			return apperror.New(apperror.ErrCodeInvalidState, "тег не удалён")
		}
		return err
	}
	return nil
}

// Purge удаляет тег безвозвратно.
func (s *TagService) Purge(ctx context.Context, id uuid.UUID) error {
	if err := s.tags.Purge(ctx, id); err != nil {
		if errors.Is(err, repository.ErrTagNotFound) {
			return apperror.New(apperror.ErrCodeNotFound, "тег не найден")
		}
		return err
	}
	return nil
}
