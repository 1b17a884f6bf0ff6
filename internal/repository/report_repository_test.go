package repository

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avtoscan/reports-backend/internal/pagination"
)

func normalized(t *testing.T, q pagination.Query) pagination.Params {
	t.Helper()
	p, err := pagination.Normalize(q, pagination.ReportSortColumns)
	require.NoError(t, err)
	return p
}

func TestBuildSearchFilters_Default(t *testing.T) {
	params := SearchParams{Params: normalized(t, pagination.Query{})}

	conditions, args := buildSearchFilters(params)

	require.Len(t, conditions, 1, "по умолчанию только фильтр мягкого удаления")
	assert.Equal(t, "r.deleted_at IS NULL", conditions[0])
	assert.Empty(t, args)
}

func TestBuildSearchFilters_IncludeDeleted(t *testing.T) {
	params := SearchParams{Params: normalized(t, pagination.Query{IncludeDeleted: "true"})}

	conditions, _ := buildSearchFilters(params)

	for _, c := range conditions {
		assert.NotContains(t, c, "deleted_at IS NULL")
	}
}

func TestBuildSearchFilters_SearchGroup(t *testing.T) {
	params := SearchParams{Params: normalized(t, pagination.Query{Search: "toyota"})}

	conditions, args := buildSearchFilters(params)

	require.Len(t, conditions, 2)
	group := conditions[1]
	assert.Contains(t, group, "to_tsvector")
	assert.Contains(t, group, "plainto_tsquery")
	assert.Contains(t, group, "r.make ILIKE")
	assert.Contains(t, group, "r.model ILIKE")
	assert.Contains(t, group, "t.name ILIKE")
	// Группа OR целиком в скобках, иначе AND с остальными фильтрами сломается.
	assert.True(t, strings.HasPrefix(group, "("))
	assert.True(t, strings.HasSuffix(group, ")"))

	require.Len(t, args, 2)
	assert.Equal(t, "toyota", args[0])
	assert.Equal(t, "%toyota%", args[1])
}

func TestBuildSearchFilters_ArgIndexesStayAligned(t *testing.T) {
	minYear, maxYear := 2015, 2020
	minPrice := 10000.0
	approved := true

	params := SearchParams{
		Params:   normalized(t, pagination.Query{Search: "suv"}),
		Make:     "Toyota",
		Model:    "RAV4",
		MinYear:  &minYear,
		MaxYear:  &maxYear,
		MinPrice: &minPrice,
		Approved: &approved,
		Tags:     []string{"Family", " clean title "},
	}

	conditions, args := buildSearchFilters(params)

	// deleted_at + поиск + make + model + 2 года + цена + approved + теги.
	require.Len(t, conditions, 9)
	// search занимает $1 и $2, дальше по одному аргументу на условие.
	require.Len(t, args, 9)

	joined := strings.Join(conditions, " AND ")
	// Последний плейсхолдер соответствует числу аргументов: ни дыр, ни сдвигов.
	assert.Contains(t, joined, "$9")
	assert.NotContains(t, joined, "$10")

	assert.Contains(t, joined, "LOWER(r.make) = LOWER($3)")
	assert.Contains(t, joined, "LOWER(r.model) = LOWER($4)")
	assert.Contains(t, joined, "r.year >= $5")
	assert.Contains(t, joined, "r.year <= $6")
	assert.Contains(t, joined, "r.price >= $7")
	assert.Contains(t, joined, "r.approved = $8")
	assert.Contains(t, joined, "LOWER(t.name) = ANY($9)")
}

func TestBuildSearchFilters_TagsNormalized(t *testing.T) {
	params := SearchParams{
		Params: normalized(t, pagination.Query{}),
		Tags:   []string{"  ", ""},
	}

	conditions, args := buildSearchFilters(params)

	// Пустые имена после trim не дают условия по тегам вовсе.
	require.Len(t, conditions, 1)
	assert.Empty(t, args)
}

func TestOrderClause_Tiebreaker(t *testing.T) {
	p := normalized(t, pagination.Query{SortBy: "price", SortOrder: "asc"})
	assert.Equal(t, " ORDER BY r.price ASC, r.created_at DESC", orderClause(p))

	p = normalized(t, pagination.Query{})
	assert.Equal(t, " ORDER BY r.created_at DESC", orderClause(p),
		"при сортировке по created_at дублирующий tiebreaker не нужен")
}
