package pagination

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avtoscan/reports-backend/internal/pkg/apperror"
)

func TestNormalize_Defaults(t *testing.T) {
	p, err := Normalize(Query{}, ReportSortColumns)
	require.NoError(t, err)

	assert.Equal(t, 1, p.Page)
	assert.Equal(t, 10, p.Limit)
	assert.Equal(t, "createdAt", p.SortBy)
	assert.Equal(t, "created_at", p.SortColumn)
	assert.Equal(t, OrderDesc, p.SortOrder)
	assert.False(t, p.IncludeDeleted)
	assert.Equal(t, 0, p.Skip())
}

func TestNormalize_Skip(t *testing.T) {
	p, err := Normalize(Query{Page: "3", Limit: "25"}, ReportSortColumns)
	require.NoError(t, err)

	assert.Equal(t, 50, p.Skip(), "skip = (page-1) * limit")
}

func TestNormalize_ValidationErrors(t *testing.T) {
	cases := []struct {
		name string
		q    Query
	}{
		{"нулевая страница", Query{Page: "0"}},
		{"отрицательная страница", Query{Page: "-1"}},
		{"страница не число", Query{Page: "abc"}},
		{"нулевой limit", Query{Limit: "0"}},
		{"limit выше максимума", Query{Limit: "101"}},
		{"некорректный sortOrder", Query{SortOrder: "SIDEWAYS"}},
		{"некорректный includeDeleted", Query{IncludeDeleted: "maybe"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Normalize(tc.q, ReportSortColumns)
			require.Error(t, err)
			assert.True(t, apperror.IsValidation(err), "ожидалась ошибка валидации, получили %v", err)
		})
	}
}

func TestNormalize_SortByAllowList(t *testing.T) {
	// Известное поле проходит и маппится на колонку.
	p, err := Normalize(Query{SortBy: "price", SortOrder: "asc"}, ReportSortColumns)
	require.NoError(t, err)
	assert.Equal(t, "price", p.SortBy)
	assert.Equal(t, "price", p.SortColumn)
	assert.Equal(t, OrderAsc, p.SortOrder)

	// Неизвестное поле молча откатывается к createdAt, а не падает:
	// имя колонки от клиента никогда не попадает в ORDER BY напрямую.
	p, err = Normalize(Query{SortBy: "password_hash; DROP TABLE users"}, ReportSortColumns)
	require.NoError(t, err)
	assert.Equal(t, "createdAt", p.SortBy)
	assert.Equal(t, "created_at", p.SortColumn)
}

func TestNormalize_IncludeDeleted(t *testing.T) {
	p, err := Normalize(Query{IncludeDeleted: "true"}, UserSortColumns)
	require.NoError(t, err)
	assert.True(t, p.IncludeDeleted)
}
