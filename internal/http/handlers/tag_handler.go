package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/avtoscan/reports-backend/internal/dto"
	"github.com/avtoscan/reports-backend/internal/http/handlers/common"
	"github.com/avtoscan/reports-backend/internal/service"
)

// TagHandler предоставляет HTTP слой для словаря тегов.
type TagHandler struct {
	tags *service.TagService
}

// NewTagHandler создаёт хэндлер.
func NewTagHandler(tags *service.TagService) *TagHandler {
	return &TagHandler{tags: tags}
}

// List обрабатывает GET /api/tags.
func (h *TagHandler) List(c *gin.Context) {
	tags, err := h.tags.List(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"tags": tags})
}

// Get обрабатывает GET /api/tags/:id.
func (h *TagHandler) Get(c *gin.Context) {
	id, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	tag, err := h.tags.Get(c.Request.Context(), id)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, tag)
}

// Delete обрабатывает DELETE /api/tags/:id (мягкое удаление).
func (h *TagHandler) Delete(c *gin.Context) {
	id, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.tags.SoftDelete(c.Request.Context(), id); err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, dto.MessageResponse{Message: "тег скрыт"})
}

// Restore обрабатывает PATCH /api/tags/:id/restore.
func (h *TagHandler) Restore(c *gin.Context) {
	id, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.tags.Restore(c.Request.Context(), id); err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, dto.MessageResponse{Message: "тег восстановлен"})
}

// Purge обрабатывает DELETE /api/tags/:id/permanent.
func (h *TagHandler) Purge(c *gin.Context) {
	id, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.tags.Purge(c.Request.Context(), id); err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, dto.MessageResponse{Message: "тег удалён безвозвратно"})
}
