package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/avtoscan/reports-backend/internal/dto"
	"github.com/avtoscan/reports-backend/internal/http/handlers/common"
	"github.com/avtoscan/reports-backend/internal/service"
)

// UserHandler предоставляет HTTP слой администрирования пользователей.
type UserHandler struct {
	users *service.UserService
}

// NewUserHandler создаёт хэндлер.
func NewUserHandler(users *service.UserService) *UserHandler {
	return &UserHandler{users: users}
}

// List обрабатывает GET /api/users.
func (h *UserHandler) List(c *gin.Context) {
	out, err := h.users.FindAll(c.Request.Context(), common.PaginationQuery(c))
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, dto.NewPaginatedResponse(out.Users, out.Total, out.Page, out.Limit))
}

// UploadPicture обрабатывает POST /api/users/me/picture.
func (h *UserHandler) UploadPicture(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	src, file, _, ok := openValidatedImage(c)
	if !ok {
		return
	}
	defer src.Close()

	user, err := h.users.UploadProfilePicture(c.Request.Context(), userID, file.Filename, src)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, user)
}

// Get обрабатывает GET /api/users/:id.
func (h *UserHandler) Get(c *gin.Context) {
	id, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.users.Get(c.Request.Context(), id, common.IsAdmin(c))
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, user)
}

// Delete обрабатывает DELETE /api/users/:id (мягкое удаление).
func (h *UserHandler) Delete(c *gin.Context) {
	id, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.users.SoftDelete(c.Request.Context(), id); err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, dto.MessageResponse{Message: "пользователь деактивирован"})
}

// Restore обрабатывает PATCH /api/users/:id/restore.
func (h *UserHandler) Restore(c *gin.Context) {
	id, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.users.Restore(c.Request.Context(), id)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, user)
}

// Purge обрабатывает DELETE /api/users/:id/permanent.
func (h *UserHandler) Purge(c *gin.Context) {
	id, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.users.Purge(c.Request.Context(), id); err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, dto.MessageResponse{Message: "пользователь удалён безвозвратно"})
}

// ListDeleted обрабатывает GET /api/users/deleted.
func (h *UserHandler) ListDeleted(c *gin.Context) {
	users, err := h.users.ListDeleted(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"users": users})
}
