package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"

	"github.com/avtoscan/reports-backend/internal/logger"
	"github.com/avtoscan/reports-backend/internal/models"
	"github.com/avtoscan/reports-backend/internal/pagination"
	"github.com/avtoscan/reports-backend/internal/pkg/apperror"
	"github.com/avtoscan/reports-backend/internal/repository"
	"github.com/avtoscan/reports-backend/internal/validation"
)

// События WebSocket, которые рассылает сервис отчётов.
const (
	EventReportPending  = "report.pending"
	EventReportApproved = "report.approved"
	EventReportRejected = "report.rejected"
)

// Actor — пользователь, от имени которого выполняется операция.
type Actor struct {
	ID    uuid.UUID
	Roles []string
}

// IsAdmin проверяет наличие роли администратора.
func (a Actor) IsAdmin() bool {
	for _, role := range a.Roles {
		if role == models.RoleAdmin {
			return true
		}
	}
	return false
}

// ReportRepositoryIface описывает зависимости ReportService от слоя хранилища.
type ReportRepositoryIface interface {
	Create(ctx context.Context, report *models.Report) error
	Search(ctx context.Context, params repository.SearchParams) (*repository.SearchResult, error)
	GetByID(ctx context.Context, id uuid.UUID, includeDeleted bool) (*models.Report, error)
	GetByIDWithDetails(ctx context.Context, id uuid.UUID) (*models.Report, error)
	SetApproval(ctx context.Context, id uuid.UUID, approved bool) (*models.Report, error)
	SoftDelete(ctx context.Context, id uuid.UUID) error
	Restore(ctx context.Context, id uuid.UUID) (*models.Report, error)
	Purge(ctx context.Context, id uuid.UUID) error
	ListDeleted(ctx context.Context) ([]models.Report, error)
	AttachTags(ctx context.Context, reportID uuid.UUID, tagIDs []uuid.UUID) error
	DetachTagsByName(ctx context.Context, reportID uuid.UUID, names []string) error
	ListTags(ctx context.Context, reportID uuid.UUID) ([]models.Tag, error)
	Estimate(ctx context.Context, p repository.EstimateParams) (*float64, error)
}

// ImageRepositoryIface описывает хранилище метаданных изображений.
type ImageRepositoryIface interface {
	Create(ctx context.Context, image *models.ReportImage) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.ReportImage, error)
	ListByReport(ctx context.Context, reportID uuid.UUID) ([]models.ReportImage, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// TagResolver находит или создаёт теги по именам.
type TagResolver interface {
	ResolveAll(ctx context.Context, names []string) ([]models.Tag, error)
}

// Notifier рассылает события по WebSocket.
type Notifier interface {
	BroadcastToUser(userID uuid.UUID, event string, data any) error
	BroadcastToAdmins(event string, data any) error
}

// FileStorage сохраняет и удаляет файлы изображений.
type FileStorage interface {
	Save(ctx context.Context, reportID uuid.UUID, originalName string, r io.Reader) (string, int64, error)
	Delete(ctx context.Context, relativePath string) error
}

// ReportService реализует бизнес-логику отчётов о машинах: публикацию,
// поиск, модерацию, жизненный цикл удаления и оценку стоимости.
type ReportService struct {
	reports  ReportRepositoryIface
	images   ImageRepositoryIface
	tags     TagResolver
	notifier Notifier
	files    FileStorage
}

// NewReportService создаёт сервис отчётов.
func NewReportService(reports ReportRepositoryIface, images ImageRepositoryIface, tags TagResolver, notifier Notifier, files FileStorage) *ReportService {
	return &ReportService{
		reports:  reports,
		images:   images,
		tags:     tags,
		notifier: notifier,
		files:    files,
	}
}

// CreateReportInput содержит данные нового отчёта.
type CreateReportInput struct {
	Make    string
	Model   string
	Year    int
	Mileage int
	Price   float64
	Lng     float64
	Lat     float64
	Tags    []string
}

// Create публикует новый отчёт. Отчёт всегда создаётся неодобренным и
// ждёт модерации; модераторы получают событие report.pending.
func (s *ReportService) Create(ctx context.Context, actor Actor, in CreateReportInput) (*models.Report, error) {
	if err := validation.ValidateReportInput(validation.ReportInput{
		Make:    in.Make,
		Model:   in.Model,
		Year:    in.Year,
		Mileage: in.Mileage,
		Price:   in.Price,
		Lng:     in.Lng,
		Lat:     in.Lat,
	}); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}

	report := &models.Report{
		UserID:  actor.ID,
		Make:    in.Make,
		Model:   in.Model,
		Year:    in.Year,
		Mileage: in.Mileage,
		Price:   in.Price,
		Lng:     in.Lng,
		Lat:     in.Lat,
	}

	if err := s.reports.Create(ctx, report); err != nil {
		return nil, err
	}

	report.Tags = []models.Tag{}
	if len(in.Tags) > 0 {
		tags, err := s.tags.ResolveAll(ctx, in.Tags)
		if err != nil {
			return nil, err
		}
		ids := make([]uuid.UUID, len(tags))
		for i, tag := range tags {
			ids[i] = tag.ID
		}
		if err := s.reports.AttachTags(ctx, report.ID, ids); err != nil {
			return nil, err
		}
		report.Tags = tags
	}

	if err := s.notifier.BroadcastToAdmins(EventReportPending, report); err != nil {
		logger.Log.WithError(err).Warn("не удалось разослать событие о новом отчёте")
	}

	return report, nil
}

// SearchInput — фильтры поиска из query string.
type SearchInput struct {
	Query    pagination.Query
	Make     string
	Model    string
	MinYear  *int
	MaxYear  *int
	MinPrice *float64
	MaxPrice *float64
	Approved *bool
	Tags     []string
}

// SearchOutput — страница отчётов с общим числом совпадений.
type SearchOutput struct {
	Reports []models.Report
	Total   int
	Page    int
	Limit   int
}

// Search возвращает страницу отчётов по фильтрам. Границы диапазонов
// проверяются до запроса: перевёрнутый диапазон — ошибка валидации.
func (s *ReportService) Search(ctx context.Context, in SearchInput) (*SearchOutput, error) {
	params, err := pagination.Normalize(in.Query, pagination.ReportSortColumns)
	if err != nil {
		return nil, err
	}

	if in.MinYear != nil && in.MaxYear != nil && *in.MinYear > *in.MaxYear {
		return nil, apperror.New(apperror.ErrCodeValidation, "minYear не может быть больше maxYear")
	}
	if in.MinPrice != nil && in.MaxPrice != nil && *in.MinPrice > *in.MaxPrice {
		return nil, apperror.New(apperror.ErrCodeValidation, "minPrice не может быть больше maxPrice")
	}

	result, err := s.reports.Search(ctx, repository.SearchParams{
		Params:   params,
		Make:     in.Make,
		Model:    in.Model,
		MinYear:  in.MinYear,
		MaxYear:  in.MaxYear,
		MinPrice: in.MinPrice,
		MaxPrice: in.MaxPrice,
		Approved: in.Approved,
		Tags:     in.Tags,
	})
	if err != nil {
		return nil, err
	}

	return &SearchOutput{
		Reports: result.Reports,
		Total:   result.Total,
		Page:    params.Page,
		Limit:   params.Limit,
	}, nil
}

// FindAll возвращает страницу отчётов без доменных фильтров.
func (s *ReportService) FindAll(ctx context.Context, q pagination.Query) (*SearchOutput, error) {
	return s.Search(ctx, SearchInput{Query: q})
}

// Get возвращает отчёт с владельцем и тегами.
func (s *ReportService) Get(ctx context.Context, id uuid.UUID) (*models.Report, error) {
	report, err := s.reports.GetByIDWithDetails(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrReportNotFound) {
			return nil, apperror.New(apperror.ErrCodeNotFound, "отчёт не найден")
		}
		return nil, err
	}
	return report, nil
}

// ChangeApproval выставляет решение модерации и уведомляет владельца.
func (s *ReportService) ChangeApproval(ctx context.Context, id uuid.UUID, approved bool) (*models.Report, error) {
	report, err := s.reports.SetApproval(ctx, id, approved)
	if err != nil {
		if errors.Is(err, repository.ErrReportNotFound) {
			return nil, apperror.New(apperror.ErrCodeNotFound, "отчёт не найден")
		}
		return nil, err
	}

	event := EventReportApproved
	if !approved {
		event = EventReportRejected
	}
	if err := s.notifier.BroadcastToUser(report.UserID, event, report); err != nil {
		logger.Log.WithError(err).Warn("не удалось уведомить владельца отчёта")
	}

	return report, nil
}

// AddTags привязывает теги к отчёту, создавая недостающие.
// Менять теги может владелец отчёта или администратор.
func (s *ReportService) AddTags(ctx context.Context, actor Actor, reportID uuid.UUID, names []string) ([]models.Tag, error) {
	if _, err := s.getOwned(ctx, actor, reportID); err != nil {
		return nil, err
	}

	tags, err := s.tags.ResolveAll(ctx, names)
	if err != nil {
		return nil, err
	}

	ids := make([]uuid.UUID, len(tags))
	for i, tag := range tags {
		ids[i] = tag.ID
	}
	if err := s.reports.AttachTags(ctx, reportID, ids); err != nil {
		return nil, err
	}

	return s.reports.ListTags(ctx, reportID)
}

// RemoveTags снимает привязку тегов по именам. Сами теги остаются
// в словаре; неизвестные имена молча игнорируются.
func (s *ReportService) RemoveTags(ctx context.Context, actor Actor, reportID uuid.UUID, names []string) ([]models.Tag, error) {
	if _, err := s.getOwned(ctx, actor, reportID); err != nil {
		return nil, err
	}

	normalized := make([]string, 0, len(names))
	for _, name := range names {
		name = strings.ToLower(strings.TrimSpace(name))
		if name != "" {
			normalized = append(normalized, name)
		}
	}

	if err := s.reports.DetachTagsByName(ctx, reportID, normalized); err != nil {
		return nil, err
	}

	return s.reports.ListTags(ctx, reportID)
}

// SoftDelete скрывает отчёт из выдачи. Доступно владельцу и администратору.
func (s *ReportService) SoftDelete(ctx context.Context, actor Actor, id uuid.UUID) error {
	if _, err := s.getOwned(ctx, actor, id); err != nil {
		return err
	}

	if err := s.reports.SoftDelete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrReportNotFound) {
			return apperror.New(apperror.ErrCodeNotFound, "отчёт не найден")
		}
		return err
	}
	return nil
}

// Restore возвращает мягко удалённый отчёт в выдачу.
// Восстановление активного отчёта — ошибка состояния, не no-op.
func (s *ReportService) Restore(ctx context.Context, id uuid.UUID) (*models.Report, error) {
	report, err := s.reports.Restore(ctx, id)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrReportNotFound):
			return nil, apperror.New(apperror.ErrCodeNotFound, "отчёт не найден")
		case errors.Is(err, repository.ErrReportNotDeleted):
			return nil, apperror.New(apperror.ErrCodeInvalidState, "отчёт не удалён")
		}
		return nil, err
	}
	return report, nil
}

// Purge удаляет отчёт безвозвратно вместе с файлами изображений.
func (s *ReportService) Purge(ctx context.Context, id uuid.UUID) error {
	images, err := s.images.ListByReport(ctx, id)
	if err != nil {
		return err
	}

	if err := s.reports.Purge(ctx, id); err != nil {
		if errors.Is(err, repository.ErrReportNotFound) {
			return apperror.New(apperror.ErrCodeNotFound, "отчёт не найден")
		}
		return err
	}

	// Записи об изображениях снял каскад, файлы убираем вручную.
	for _, image := range images {
		if err := s.files.Delete(ctx, image.Filename); err != nil {
			logger.Log.WithError(err).WithField("image_id", image.ID).Warn("не удалось удалить файл изображения")
		}
	}
	return nil
}

// ListDeleted возвращает мягко удалённые отчёты для админки.
func (s *ReportService) ListDeleted(ctx context.Context) ([]models.Report, error) {
	return s.reports.ListDeleted(ctx)
}

// EstimateInput — параметры запроса оценочной стоимости.
type EstimateInput struct {
	Make    string
	Model   string
	Year    int
	Mileage int
	Lng     float64
	Lat     float64
}

// Estimate возвращает оценочную стоимость по похожим одобренным отчётам.
// Отсутствие похожих отчётов — валидный результат без цены, не ошибка.
func (s *ReportService) Estimate(ctx context.Context, in EstimateInput) (*float64, error) {
	if err := validation.ValidateReportInput(validation.ReportInput{
		Make:    in.Make,
		Model:   in.Model,
		Year:    in.Year,
		Mileage: in.Mileage,
		Lng:     in.Lng,
		Lat:     in.Lat,
	}); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}

	return s.reports.Estimate(ctx, repository.EstimateParams{
		Make:    in.Make,
		Model:   in.Model,
		Year:    in.Year,
		Mileage: in.Mileage,
		Lng:     in.Lng,
		Lat:     in.Lat,
	})
}

// UploadImage сохраняет файл изображения и его метаданные.
// Загружать изображения может владелец отчёта или администратор.
func (s *ReportService) UploadImage(ctx context.Context, actor Actor, reportID uuid.UUID, originalName, mimeType string, r io.Reader) (*models.ReportImage, error) {
	if _, err := s.getOwned(ctx, actor, reportID); err != nil {
		return nil, err
	}

	relative, size, err := s.files.Save(ctx, reportID, originalName, r)
	if err != nil {
		return nil, fmt.Errorf("report service: %w", err)
	}

	image := &models.ReportImage{
		ReportID:     reportID,
		Filename:     relative,
		URL:          "/uploads/" + relative,
		OriginalName: originalName,
		Size:         size,
		MimeType:     mimeType,
	}

	if err := s.images.Create(ctx, image); err != nil {
		// Файл без записи в базе — мусор, подчищаем сразу.
		if rmErr := s.files.Delete(ctx, relative); rmErr != nil {
			logger.Log.WithError(rmErr).Warn("не удалось удалить осиротевший файл")
		}
		return nil, err
	}

	return image, nil
}

// ListImages возвращает изображения отчёта.
func (s *ReportService) ListImages(ctx context.Context, reportID uuid.UUID) ([]models.ReportImage, error) {
	if _, err := s.reports.GetByID(ctx, reportID, false); err != nil {
		if errors.Is(err, repository.ErrReportNotFound) {
			return nil, apperror.New(apperror.ErrCodeNotFound, "отчёт не найден")
		}
		return nil, err
	}
	return s.images.ListByReport(ctx, reportID)
}

// DeleteImage удаляет изображение отчёта вместе с файлом.
func (s *ReportService) DeleteImage(ctx context.Context, actor Actor, reportID, imageID uuid.UUID) error {
	if _, err := s.getOwned(ctx, actor, reportID); err != nil {
		return err
	}

	image, err := s.images.GetByID(ctx, imageID)
	if err != nil {
		if errors.Is(err, repository.ErrImageNotFound) {
			return apperror.New(apperror.ErrCodeNotFound, "изображение не найдено")
		}
		return err
	}
	if image.ReportID != reportID {
		return apperror.New(apperror.ErrCodeNotFound, "изображение не найдено")
	}

	if err := s.images.Delete(ctx, imageID); err != nil {
		return err
	}
	if err := s.files.Delete(ctx, image.Filename); err != nil {
		logger.Log.WithError(err).WithField("image_id", imageID).Warn("не удалось удалить файл изображения")
	}
	return nil
}

// getOwned возвращает отчёт, если actor — его владелец или администратор.
func (s *ReportService) getOwned(ctx context.Context, actor Actor, id uuid.UUID) (*models.Report, error) {
	report, err := s.reports.GetByID(ctx, id, actor.IsAdmin())
	if err != nil {
		if errors.Is(err, repository.ErrReportNotFound) {
			return nil, apperror.New(apperror.ErrCodeNotFound, "отчёт не найден")
		}
		return nil, err
	}

	if report.UserID != actor.ID && !actor.IsAdmin() {
		return nil, apperror.New(apperror.ErrCodeForbidden, "доступ только владельцу отчёта")
	}
	return report, nil
}
