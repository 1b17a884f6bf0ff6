package common

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/avtoscan/reports-backend/internal/http/middleware"
	"github.com/avtoscan/reports-backend/internal/models"
)

func testContext(t *testing.T, rawQuery string) *gin.Context {
	t.Helper()
	gin.SetMode(gin.TestMode)

	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/?"+rawQuery, nil)
	return c
}

func TestPaginationQuery_SearchAlias(t *testing.T) {
	c := testContext(t, "q=camry&page=2")

	q := PaginationQuery(c)

	assert.Equal(t, "camry", q.Search, "q — алиас параметра search")
	assert.Equal(t, "2", q.Page)
}

func TestPaginationQuery_SearchWinsOverAlias(t *testing.T) {
	c := testContext(t, "search=toyota&q=camry")

	q := PaginationQuery(c)

	assert.Equal(t, "toyota", q.Search)
}

func TestPaginationQuery_IncludeDeletedRequiresAdmin(t *testing.T) {
	anonymous := testContext(t, "includeDeleted=true")
	assert.Empty(t, PaginationQuery(anonymous).IncludeDeleted,
		"без роли администратора includeDeleted игнорируется")

	user := testContext(t, "includeDeleted=true")
	user.Set(middleware.ContextRolesKey, []string{models.RoleUser})
	assert.Empty(t, PaginationQuery(user).IncludeDeleted)

	admin := testContext(t, "includeDeleted=true")
	admin.Set(middleware.ContextRolesKey, []string{models.RoleAdmin, models.RoleUser})
	assert.Equal(t, "true", PaginationQuery(admin).IncludeDeleted)
}
