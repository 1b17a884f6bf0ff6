package dto

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewPaginatedResponse_Meta(t *testing.T) {
	cases := []struct {
		name        string
		total       int
		page        int
		limit       int
		totalPages  int
		hasNext     bool
		hasPrevious bool
	}{
		{"первая страница из многих", 25, 1, 10, 3, true, false},
		{"средняя страница", 25, 2, 10, 3, true, true},
		{"последняя неполная страница", 25, 3, 10, 3, false, true},
		{"пустой результат", 0, 1, 10, 0, false, false},
		{"ровно одна полная страница", 10, 1, 10, 1, false, false},
		{"страница за пределами выдачи", 5, 3, 10, 1, false, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp := NewPaginatedResponse(nil, tc.total, tc.page, tc.limit)

			assert.Equal(t, tc.total, resp.Meta.Total)
			assert.Equal(t, tc.totalPages, resp.Meta.TotalPages, "totalPages = ceil(total/limit)")
			assert.Equal(t, tc.hasNext, resp.Meta.HasNextPage)
			assert.Equal(t, tc.hasPrevious, resp.Meta.HasPreviousPage)
		})
	}
}
