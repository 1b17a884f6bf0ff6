package pagination

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/avtoscan/reports-backend/internal/pkg/apperror"
)

// Значения по умолчанию для пагинации.
const (
	DefaultPage   = 1
	DefaultLimit  = 10
	MaxLimit      = 100
	DefaultSortBy = "createdAt"
)

// Направления сортировки.
const (
	OrderAsc  = "ASC"
	OrderDesc = "DESC"
)

// SortColumns сопоставляет разрешённые поля сортировки с колонками таблицы.
// Всё, чего нет в карте, молча откатывается к createdAt: произвольное имя
// колонки от клиента никогда не попадает в SQL.
type SortColumns map[string]string

// ReportSortColumns — разрешённые поля сортировки для отчётов.
var ReportSortColumns = SortColumns{
	"createdAt": "created_at",
	"updatedAt": "updated_at",
	"price":     "price",
	"year":      "year",
	"mileage":   "mileage",
	"make":      "make",
	"model":     "model",
}

// UserSortColumns — разрешённые поля сортировки для пользователей.
var UserSortColumns = SortColumns{
	"createdAt": "created_at",
	"updatedAt": "updated_at",
	"email":     "email",
}

// Params — канонический результат нормализации query-параметров списка.
type Params struct {
	Page           int
	Limit          int
	SortBy         string // имя поля из API, уже проверенное по allow-list
	SortColumn     string // колонка для ORDER BY
	SortOrder      string // ASC | DESC
	Search         string
	IncludeDeleted bool
}

// Skip возвращает смещение для OFFSET.
func (p Params) Skip() int {
	return (p.Page - 1) * p.Limit
}

// Query — сырые строки из query string до нормализации.
type Query struct {
	Page           string
	Limit          string
	SortBy         string
	SortOrder      string
	Search         string
	IncludeDeleted string
}

// Normalize проверяет и приводит параметры к каноническому виду.
// Любое нарушение диапазона — ошибка валидации до выполнения запросов.
func Normalize(q Query, allowed SortColumns) (Params, error) {
	p := Params{
		Page:      DefaultPage,
		Limit:     DefaultLimit,
		SortBy:    DefaultSortBy,
		SortOrder: OrderDesc,
		Search:    strings.TrimSpace(q.Search),
	}

	if q.Page != "" {
		page, err := strconv.Atoi(q.Page)
		if err != nil || page < 1 {
			return Params{}, apperror.New(apperror.ErrCodeValidation, "page должен быть целым числом не меньше 1")
		}
		p.Page = page
	}

	if q.Limit != "" {
		limit, err := strconv.Atoi(q.Limit)
		if err != nil || limit < 1 || limit > MaxLimit {
			return Params{}, apperror.New(apperror.ErrCodeValidation,
				fmt.Sprintf("limit должен быть целым числом от 1 до %d", MaxLimit))
		}
		p.Limit = limit
	}

	if q.SortOrder != "" {
		switch strings.ToUpper(q.SortOrder) {
		case OrderAsc:
			p.SortOrder = OrderAsc
		case OrderDesc:
			p.SortOrder = OrderDesc
		default:
			return Params{}, apperror.New(apperror.ErrCodeValidation, "sortOrder должен быть ASC или DESC")
		}
	}

	if q.SortBy != "" {
		if _, ok := allowed[q.SortBy]; ok {
			p.SortBy = q.SortBy
		}
		// Нераспознанное поле — откат к createdAt, не ошибка.
	}
	p.SortColumn = allowed[p.SortBy]
	if p.SortColumn == "" {
		p.SortColumn = "created_at"
	}

	if q.IncludeDeleted != "" {
		include, err := strconv.ParseBool(q.IncludeDeleted)
		if err != nil {
			return Params{}, apperror.New(apperror.ErrCodeValidation, "includeDeleted должен быть булевым значением")
		}
		p.IncludeDeleted = include
	}

	return p, nil
}
