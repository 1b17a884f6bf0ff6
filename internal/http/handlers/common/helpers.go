package common

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/avtoscan/reports-backend/internal/http/middleware"
	"github.com/avtoscan/reports-backend/internal/models"
	"github.com/avtoscan/reports-backend/internal/pagination"
	"github.com/avtoscan/reports-backend/internal/service"
)

var (
	// ErrNoUserInContext — в контексте запроса нет авторизованного пользователя.
	ErrNoUserInContext = errors.New("пользователь не найден в контексте")

	// ErrInvalidUUID — параметр не является валидным UUID.
	ErrInvalidUUID = errors.New("неверный формат UUID")
)

// CurrentUserID извлекает идентификатор пользователя из контекста gin.
func CurrentUserID(c *gin.Context) (uuid.UUID, error) {
	raw, exists := c.Get(middleware.ContextUserIDKey)
	if !exists {
		return uuid.Nil, ErrNoUserInContext
	}

	userID, ok := raw.(uuid.UUID)
	if !ok {
		return uuid.Nil, ErrNoUserInContext
	}

	return userID, nil
}

// CurrentUserRoles извлекает роли пользователя из контекста gin.
func CurrentUserRoles(c *gin.Context) ([]string, error) {
	raw, exists := c.Get(middleware.ContextRolesKey)
	if !exists {
		return nil, ErrNoUserInContext
	}

	roles, ok := raw.([]string)
	if !ok {
		return nil, ErrNoUserInContext
	}

	return roles, nil
}

// CurrentActor собирает Actor из контекста запроса.
func CurrentActor(c *gin.Context) (service.Actor, error) {
	userID, err := CurrentUserID(c)
	if err != nil {
		return service.Actor{}, err
	}
	roles, err := CurrentUserRoles(c)
	if err != nil {
		return service.Actor{}, err
	}
	return service.Actor{ID: userID, Roles: roles}, nil
}

// IsAdmin проверяет наличие роли администратора в контексте.
func IsAdmin(c *gin.Context) bool {
	roles, err := CurrentUserRoles(c)
	if err != nil {
		return false
	}
	for _, role := range roles {
		if role == models.RoleAdmin {
			return true
		}
	}
	return false
}

// ParseUUIDParam парсит UUID из параметра пути.
func ParseUUIDParam(c *gin.Context, paramName string) (uuid.UUID, error) {
	param := c.Param(paramName)
	if param == "" {
		return uuid.Nil, ErrInvalidUUID
	}

	id, err := uuid.Parse(param)
	if err != nil {
		return uuid.Nil, ErrInvalidUUID
	}

	return id, nil
}

// PaginationQuery собирает сырые параметры пагинации из query string.
// Поисковая строка принимается и как search, и как короткий алиас q.
// includeDeleted доступен только администраторам: для остальных
// параметр игнорируется, удалённые записи в выдачу не попадают.
func PaginationQuery(c *gin.Context) pagination.Query {
	search := c.Query("search")
	if search == "" {
		search = c.Query("q")
	}

	includeDeleted := c.Query("includeDeleted")
	if !IsAdmin(c) {
		includeDeleted = ""
	}

	return pagination.Query{
		Page:           c.Query("page"),
		Limit:          c.Query("limit"),
		SortBy:         c.Query("sortBy"),
		SortOrder:      c.Query("sortOrder"),
		Search:         search,
		IncludeDeleted: includeDeleted,
	}
}
