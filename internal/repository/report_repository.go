package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/avtoscan/reports-backend/internal/models"
	"github.com/avtoscan/reports-backend/internal/pagination"
	"github.com/avtoscan/reports-backend/internal/repository/common"
)

// Ошибки уровня репозитория отчётов.
var (
	ErrReportNotFound   = errors.New("report not found")
	ErrReportNotDeleted = errors.New("report is not deleted")
)

// ReportRepository отвечает за работу с таблицами reports и report_tags.
type ReportRepository struct {
	db *sqlx.DB
}

// NewReportRepository создаёт экземпляр репозитория.
func NewReportRepository(db *sqlx.DB) *ReportRepository {
	return &ReportRepository{db: db}
}

// SearchParams — нормализованные фильтры поиска отчётов.
type SearchParams struct {
	pagination.Params
	Make     string
	Model    string
	MinYear  *int
	MaxYear  *int
	MinPrice *float64
	MaxPrice *float64
	Approved *bool
	Tags     []string
}

// SearchResult содержит страницу отчётов и общее число совпадений.
type SearchResult struct {
	Reports []models.Report
	Total   int
}

// buildSearchFilters собирает условия WHERE и аргументы для поиска.
// Один и тот же набор условий используется и для COUNT, и для выборки
// страницы: total всегда отражает фильтры, но не окно пагинации.
func buildSearchFilters(p SearchParams) ([]string, []interface{}) {
	conditions := []string{}
	args := []interface{}{}
	argIndex := 1

	// Мягко удалённые строки исключаются из всех запросов по умолчанию.
	if !p.IncludeDeleted {
		conditions = append(conditions, "r.deleted_at IS NULL")
	}

	// Свободный текст: полнотекстовый матч по make+model ИЛИ подстрока
	// в make/model ИЛИ подстрока в имени любого привязанного тега.
	// Группа OR целиком AND-ится с остальными фильтрами.
	if p.Search != "" {
		conditions = append(conditions, fmt.Sprintf(`(to_tsvector('english', r.make || ' ' || r.model) @@ plainto_tsquery('english', $%d) OR r.make ILIKE $%d OR r.model ILIKE $%d OR EXISTS (SELECT 1 FROM report_tags rt JOIN tags t ON t.id = rt.tag_id WHERE rt.report_id = r.id AND t.name ILIKE $%d))`,
			argIndex, argIndex+1, argIndex+1, argIndex+1))
		args = append(args, p.Search, "%"+p.Search+"%")
		argIndex += 2
	}

	// Точные фильтры: равенство всей строки без учёта регистра.
	if p.Make != "" {
		conditions = append(conditions, fmt.Sprintf("LOWER(r.make) = LOWER($%d)", argIndex))
		args = append(args, p.Make)
		argIndex++
	}
	if p.Model != "" {
		conditions = append(conditions, fmt.Sprintf("LOWER(r.model) = LOWER($%d)", argIndex))
		args = append(args, p.Model)
		argIndex++
	}

	// Диапазоны, каждый независимо опционален.
	if p.MinYear != nil {
		conditions = append(conditions, fmt.Sprintf("r.year >= $%d", argIndex))
		args = append(args, *p.MinYear)
		argIndex++
	}
	if p.MaxYear != nil {
		conditions = append(conditions, fmt.Sprintf("r.year <= $%d", argIndex))
		args = append(args, *p.MaxYear)
		argIndex++
	}
	if p.MinPrice != nil {
		conditions = append(conditions, fmt.Sprintf("r.price >= $%d", argIndex))
		args = append(args, *p.MinPrice)
		argIndex++
	}
	if p.MaxPrice != nil {
		conditions = append(conditions, fmt.Sprintf("r.price <= $%d", argIndex))
		args = append(args, *p.MaxPrice)
		argIndex++
	}

	if p.Approved != nil {
		conditions = append(conditions, fmt.Sprintf("r.approved = $%d", argIndex))
		args = append(args, *p.Approved)
		argIndex++
	}

	// Членство хотя бы в одном теге из списка.
	if len(p.Tags) > 0 {
		names := make([]string, 0, len(p.Tags))
		for _, name := range p.Tags {
			name = strings.ToLower(strings.TrimSpace(name))
			if name != "" {
				names = append(names, name)
			}
		}
		if len(names) > 0 {
			conditions = append(conditions, fmt.Sprintf(`EXISTS (SELECT 1 FROM report_tags rt JOIN tags t ON t.id = rt.tag_id WHERE rt.report_id = r.id AND LOWER(t.name) = ANY($%d))`, argIndex))
			args = append(args, pq.Array(names))
			argIndex++
		}
	}

	return conditions, args
}

// orderClause строит ORDER BY по уже проверенной колонке. Если первичная
// сортировка не по created_at, добавляется created_at DESC — стабильная
// пагинация при равных значениях первичного поля.
func orderClause(p pagination.Params) string {
	clause := fmt.Sprintf(" ORDER BY r.%s %s", p.SortColumn, p.SortOrder)
	if p.SortColumn != "created_at" {
		clause += ", r.created_at DESC"
	}
	return clause
}

// reportRow — строка выборки: отчёт плюс алиасы колонок владельца.
type reportRow struct {
	models.Report
	models.ReportOwner
}

// Search возвращает страницу отчётов с владельцами и тегами и общий счёт.
func (r *ReportRepository) Search(ctx context.Context, params SearchParams) (*SearchResult, error) {
	conditions, args := buildSearchFilters(params)

	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	countQuery := `SELECT COUNT(*) FROM reports r` + where
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, fmt.Errorf("report repository: count %w", err)
	}

	query := `
		SELECT r.id, r.user_id, r.make, r.model, r.year, r.mileage, r.price,
		       r.lng, r.lat, r.approved, r.deleted_at, r.created_at, r.updated_at,
		       u.id AS owner_id, u.email AS owner_email, u.profile_picture AS owner_profile_picture
		FROM reports r
		JOIN users u ON u.id = r.user_id` + where + orderClause(params.Params)

	argIndex := len(args) + 1
	query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", argIndex, argIndex+1)
	args = append(args, params.Limit, params.Skip())

	var rows []reportRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("report repository: search %w", err)
	}

	reports := make([]models.Report, len(rows))
	ids := make([]uuid.UUID, len(rows))
	for i, row := range rows {
		reports[i] = row.Report
		owner := row.ReportOwner
		reports[i].Owner = &owner
		reports[i].Tags = []models.Tag{}
		ids[i] = row.Report.ID
	}

	if err := r.attachTags(ctx, reports, ids); err != nil {
		return nil, err
	}

	return &SearchResult{Reports: reports, Total: total}, nil
}

// attachTags одним запросом подгружает теги для всей страницы отчётов.
func (r *ReportRepository) attachTags(ctx context.Context, reports []models.Report, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}

	type taggedRow struct {
		ReportID uuid.UUID `db:"report_id"`
		models.Tag
	}

	var rows []taggedRow
	query := `
		SELECT rt.report_id, t.id, t.name, t.description, t.deleted_at, t.created_at, t.updated_at
		FROM report_tags rt
		JOIN tags t ON t.id = rt.tag_id
		WHERE rt.report_id = ANY($1) AND t.deleted_at IS NULL
		ORDER BY t.name
	`
	if err := r.db.SelectContext(ctx, &rows, query, pq.Array(ids)); err != nil {
		return fmt.Errorf("report repository: attach tags %w", err)
	}

	byReport := make(map[uuid.UUID][]models.Tag, len(ids))
	for _, row := range rows {
		byReport[row.ReportID] = append(byReport[row.ReportID], row.Tag)
	}
	for i := range reports {
		if tags, ok := byReport[reports[i].ID]; ok {
			reports[i].Tags = tags
		}
	}
	return nil
}

// Create вставляет новый отчёт. approved всегда false при создании.
func (r *ReportRepository) Create(ctx context.Context, report *models.Report) error {
	query := `
		INSERT INTO reports (user_id, make, model, year, mileage, price, lng, lat)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, approved, created_at, updated_at
	`
	if err := r.db.QueryRowxContext(
		ctx, query,
		report.UserID, report.Make, report.Model, report.Year,
		report.Mileage, report.Price, report.Lng, report.Lat,
	).Scan(&report.ID, &report.Approved, &report.CreatedAt, &report.UpdatedAt); err != nil {
		return fmt.Errorf("report repository: create %w", err)
	}
	return nil
}

// GetByID возвращает отчёт. includeDeleted открывает доступ к мягко удалённым.
func (r *ReportRepository) GetByID(ctx context.Context, id uuid.UUID, includeDeleted bool) (*models.Report, error) {
	query := `
		SELECT id, user_id, make, model, year, mileage, price, lng, lat,
		       approved, deleted_at, created_at, updated_at
		FROM reports
		WHERE id = $1
	`
	if !includeDeleted {
		query += " AND deleted_at IS NULL"
	}

	var report models.Report
	if err := r.db.GetContext(ctx, &report, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrReportNotFound
		}
		return nil, fmt.Errorf("report repository: get by id %w", err)
	}
	return &report, nil
}

// GetByIDWithDetails возвращает отчёт вместе с владельцем и тегами.
func (r *ReportRepository) GetByIDWithDetails(ctx context.Context, id uuid.UUID) (*models.Report, error) {
	var row reportRow
	query := `
		SELECT r.id, r.user_id, r.make, r.model, r.year, r.mileage, r.price,
		       r.lng, r.lat, r.approved, r.deleted_at, r.created_at, r.updated_at,
		       u.id AS owner_id, u.email AS owner_email, u.profile_picture AS owner_profile_picture
		FROM reports r
		JOIN users u ON u.id = r.user_id
		WHERE r.id = $1 AND r.deleted_at IS NULL
	`
	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrReportNotFound
		}
		return nil, fmt.Errorf("report repository: get with details %w", err)
	}

	report := row.Report
	owner := row.ReportOwner
	report.Owner = &owner

	tags, err := r.ListTags(ctx, report.ID)
	if err != nil {
		return nil, err
	}
	report.Tags = tags

	return &report, nil
}

// SetApproval выставляет флаг одобрения отчёта.
func (r *ReportRepository) SetApproval(ctx context.Context, id uuid.UUID, approved bool) (*models.Report, error) {
	var report models.Report
	query := `
		UPDATE reports SET approved = $1, updated_at = NOW()
		WHERE id = $2 AND deleted_at IS NULL
		RETURNING id, user_id, make, model, year, mileage, price, lng, lat,
		          approved, deleted_at, created_at, updated_at
	`
	if err := r.db.GetContext(ctx, &report, query, approved, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrReportNotFound
		}
		return nil, fmt.Errorf("report repository: set approval %w", err)
	}
	return &report, nil
}

// SoftDelete помечает отчёт удалённым, строка остаётся в базе.
func (r *ReportRepository) SoftDelete(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE reports SET deleted_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL
	`, id)
	if err != nil {
		return fmt.Errorf("report repository: soft delete %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return ErrReportNotFound
	}
	return nil
}

// Restore возвращает мягко удалённый отчёт в активное состояние.
// Отдельно различаем "строки нет" и "строка есть, но не удалена".
func (r *ReportRepository) Restore(ctx context.Context, id uuid.UUID) (*models.Report, error) {
	var report models.Report
	query := `
		UPDATE reports SET deleted_at = NULL, updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NOT NULL
		RETURNING id, user_id, make, model, year, mileage, price, lng, lat,
		          approved, deleted_at, created_at, updated_at
	`
	err := r.db.GetContext(ctx, &report, query, id)
	if err == nil {
		return &report, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("report repository: restore %w", err)
	}

	var exists bool
	if err := r.db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM reports WHERE id = $1)`, id); err != nil {
		return nil, fmt.Errorf("report repository: restore exists %w", err)
	}
	if exists {
		return nil, ErrReportNotDeleted
	}
	return nil, ErrReportNotFound
}

// Purge физически удаляет отчёт. Изображения и связи с тегами снимает каскад.
func (r *ReportRepository) Purge(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM reports WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("report repository: purge %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return ErrReportNotFound
	}
	return nil
}

// ListDeleted возвращает только мягко удалённые отчёты.
func (r *ReportRepository) ListDeleted(ctx context.Context) ([]models.Report, error) {
	var reports []models.Report
	query := `
		SELECT id, user_id, make, model, year, mileage, price, lng, lat,
		       approved, deleted_at, created_at, updated_at
		FROM reports
		WHERE deleted_at IS NOT NULL
		ORDER BY deleted_at DESC
	`
	if err := r.db.SelectContext(ctx, &reports, query); err != nil {
		return nil, fmt.Errorf("report repository: list deleted %w", err)
	}
	return reports, nil
}

// AttachTags связывает отчёт с тегами одной пакетной вставкой.
// Повторная привязка уже существующей пары молча игнорируется.
func (r *ReportRepository) AttachTags(ctx context.Context, reportID uuid.UUID, tagIDs []uuid.UUID) error {
	if len(tagIDs) == 0 {
		return nil
	}

	return common.WithTransaction(ctx, r.db, func(tx *sqlx.Tx) error {
		inserter := common.NewBatchInserter(tx,
			`INSERT INTO report_tags (report_id, tag_id)`,
			`ON CONFLICT (report_id, tag_id) DO NOTHING`,
			2, 100)
		for _, tagID := range tagIDs {
			if err := inserter.Add(ctx, reportID, tagID); err != nil {
				return err
			}
		}
		return inserter.Flush(ctx)
	})
}

// DetachTagsByName снимает связи отчёта с тегами по их именам.
// Имена сравниваются без учёта регистра; неизвестные имена игнорируются.
func (r *ReportRepository) DetachTagsByName(ctx context.Context, reportID uuid.UUID, names []string) error {
	if len(names) == 0 {
		return nil
	}
	if _, err := r.db.ExecContext(ctx, `
		DELETE FROM report_tags rt
		USING tags t
		WHERE rt.tag_id = t.id AND rt.report_id = $1 AND LOWER(t.name) = ANY($2)
	`, reportID, pq.Array(names)); err != nil {
		return fmt.Errorf("report repository: detach tags %w", err)
	}
	return nil
}

// ListTags возвращает активные теги отчёта.
func (r *ReportRepository) ListTags(ctx context.Context, reportID uuid.UUID) ([]models.Tag, error) {
	tags := []models.Tag{}
	query := `
		SELECT t.id, t.name, t.description, t.deleted_at, t.created_at, t.updated_at
		FROM report_tags rt
		JOIN tags t ON t.id = rt.tag_id
		WHERE rt.report_id = $1 AND t.deleted_at IS NULL
		ORDER BY t.name
	`
	if err := r.db.SelectContext(ctx, &tags, query, reportID); err != nil {
		return nil, fmt.Errorf("report repository: list tags %w", err)
	}
	return tags, nil
}

// EstimateParams — параметры запроса оценочной стоимости.
type EstimateParams struct {
	Make    string
	Model   string
	Year    int
	Mileage int
	Lng     float64
	Lat     float64
}

// Estimate возвращает среднюю цену по похожим одобренным отчётам: точное
// совпадение make/model, год в пределах ±3, координаты в пределах ±5
// градусов. Из кандидатов берутся три с наибольшим отклонением пробега от
// запрошенного — исторически сложившийся порядок, без подтверждения
// продукта менять нельзя. Нет совпадений — nil, не ошибка.
func (r *ReportRepository) Estimate(ctx context.Context, p EstimateParams) (*float64, error) {
	var price sql.NullFloat64
	query := `
		SELECT AVG(candidates.price) FROM (
			SELECT price FROM reports
			WHERE make = $1 AND model = $2
			  AND lng - $3 BETWEEN -5 AND 5
			  AND lat - $4 BETWEEN -5 AND 5
			  AND year - $5 BETWEEN -3 AND 3
			  AND approved IS TRUE
			  AND deleted_at IS NULL
			ORDER BY ABS(mileage - $6) DESC
			LIMIT 3
		) candidates
	`
	if err := r.db.GetContext(ctx, &price, query,
		p.Make, p.Model, p.Lng, p.Lat, p.Year, p.Mileage); err != nil {
		return nil, fmt.Errorf("report repository: estimate %w", err)
	}
	if !price.Valid {
		return nil, nil
	}
	return &price.Float64, nil
}
