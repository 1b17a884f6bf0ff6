package service

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/google/uuid"

	"github.com/avtoscan/reports-backend/internal/logger"
	"github.com/avtoscan/reports-backend/internal/models"
	"github.com/avtoscan/reports-backend/internal/pagination"
	"github.com/avtoscan/reports-backend/internal/pkg/apperror"
	"github.com/avtoscan/reports-backend/internal/repository"
)

// UserRepositoryIface описывает зависимости UserService от слоя хранилища.
type UserRepositoryIface interface {
	GetByID(ctx context.Context, id uuid.UUID, includeDeleted bool) (*models.User, error)
	FindAll(ctx context.Context, p pagination.Params) (*repository.UserListResult, error)
	UpdateProfilePicture(ctx context.Context, id uuid.UUID, path string) error
	SoftDelete(ctx context.Context, id uuid.UUID) error
	Restore(ctx context.Context, id uuid.UUID) (*models.User, error)
	Purge(ctx context.Context, id uuid.UUID) error
	ListDeleted(ctx context.Context) ([]models.User, error)
}

// AvatarStorage описывает файловое хранилище аватаров.
type AvatarStorage interface {
	SaveAvatar(ctx context.Context, userID uuid.UUID, originalName string, r io.Reader) (string, int64, error)
	Delete(ctx context.Context, relativePath string) error
}

// OwnerImagesRepo отдаёт изображения всех отчётов пользователя.
type OwnerImagesRepo interface {
	ListByOwner(ctx context.Context, userID uuid.UUID) ([]models.ReportImage, error)
}

// UserService реализует администрирование пользователей.
type UserService struct {
	users   UserRepositoryIface
	avatars AvatarStorage
	images  OwnerImagesRepo
}

// NewUserService создаёт сервис пользователей.
func NewUserService(users UserRepositoryIface, avatars AvatarStorage, images OwnerImagesRepo) *UserService {
	return &UserService{users: users, avatars: avatars, images: images}
}

// UserListOutput — страница пользователей с общим числом совпадений.
type UserListOutput struct {
	Users []models.User
	Total int
	Page  int
	Limit int
}

// FindAll возвращает страницу пользователей.
func (s *UserService) FindAll(ctx context.Context, q pagination.Query) (*UserListOutput, error) {
	params, err := pagination.Normalize(q, pagination.UserSortColumns)
	if err != nil {
		return nil, err
	}

	result, err := s.users.FindAll(ctx, params)
	if err != nil {
		return nil, err
	}

	return &UserListOutput{
		Users: result.Users,
		Total: result.Total,
		Page:  params.Page,
		Limit: params.Limit,
	}, nil
}

// Get возвращает пользователя по идентификатору.
func (s *UserService) Get(ctx context.Context, id uuid.UUID, includeDeleted bool) (*models.User, error) {
	user, err := s.users.GetByID(ctx, id, includeDeleted)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, apperror.New(apperror.ErrCodeNotFound, "пользователь не найден")
		}
		return nil, err
	}
	return user, nil
}

// UploadProfilePicture сохраняет новый аватар пользователя и убирает
// старый файл, если он был.
func (s *UserService) UploadProfilePicture(ctx context.Context, userID uuid.UUID, originalName string, r io.Reader) (*models.User, error) {
	user, err := s.Get(ctx, userID, false)
	if err != nil {
		return nil, err
	}

	path, _, err := s.avatars.SaveAvatar(ctx, userID, originalName, r)
	if err != nil {
		return nil, fmt.Errorf("user: сохранение аватара: %w", err)
	}

	if err := s.users.UpdateProfilePicture(ctx, userID, path); err != nil {
		_ = s.avatars.Delete(ctx, path)
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, apperror.New(apperror.ErrCodeNotFound, "пользователь не найден")
		}
		return nil, err
	}

	if user.ProfilePicture != nil && *user.ProfilePicture != "" {
		if err := s.avatars.Delete(ctx, *user.ProfilePicture); err != nil {
			logger.Log.WithError(err).Warn("user: не удалось удалить старый аватар")
		}
	}

	user.ProfilePicture = &path
	return user, nil
}

// SoftDelete помечает пользователя удалённым и завершает его сессию.
func (s *UserService) SoftDelete(ctx context.Context, id uuid.UUID) error {
	if err := s.users.SoftDelete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return apperror.New(apperror.ErrCodeNotFound, "пользователь не найден")
		}
		return err
	}
	return nil
}

// Restore восстанавливает мягко удалённого пользователя.
// Восстановление активного пользователя — ошибка состояния.
func (s *UserService) Restore(ctx context.Context, id uuid.UUID) (*models.User, error) {
	user, err := s.users.Restore(ctx, id)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrUserNotFound):
			return nil, apperror.New(apperror.ErrCodeNotFound, "пользователь не найден")
		case errors.Is(err, repository.ErrUserNotDeleted):
			return nil, apperror.New(apperror.ErrCodeInvalidState, "пользователь не удалён")
		}
		return nil, err
	}
	return user, nil
}

// Purge удаляет пользователя безвозвратно вместе с его отчётами.
// Записи об изображениях снимает каскад по отчётам, файлы и аватар
// убираем вручную после удаления строки.
func (s *UserService) Purge(ctx context.Context, id uuid.UUID) error {
	user, err := s.users.GetByID(ctx, id, true)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return apperror.New(apperror.ErrCodeNotFound, "пользователь не найден")
		}
		return err
	}

	images, err := s.images.ListByOwner(ctx, id)
	if err != nil {
		return err
	}

	if err := s.users.Purge(ctx, id); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return apperror.New(apperror.ErrCodeNotFound, "пользователь не найден")
		}
		return err
	}

	for _, image := range images {
		if err := s.avatars.Delete(ctx, image.Filename); err != nil {
			logger.Log.WithError(err).WithField("image_id", image.ID).Warn("не удалось удалить файл изображения")
		}
	}
	if user.ProfilePicture != nil && *user.ProfilePicture != "" {
		if err := s.avatars.Delete(ctx, *user.ProfilePicture); err != nil {
			logger.Log.WithError(err).Warn("не удалось удалить файл аватара")
		}
	}
	return nil
}

// ListDeleted возвращает мягко удалённых пользователей для админки.
func (s *UserService) ListDeleted(ctx context.Context) ([]models.User, error) {
	return s.users.ListDeleted(ctx)
}
