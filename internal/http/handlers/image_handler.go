package handlers

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/h2non/filetype"

	"github.com/avtoscan/reports-backend/internal/dto"
	"github.com/avtoscan/reports-backend/internal/http/handlers/common"
	"github.com/avtoscan/reports-backend/internal/service"
)

// Разрешённые форматы загружаемых изображений.
var allowedImageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".webp": true,
}

var allowedImageMimeTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
}

// openValidatedImage достаёт файл из multipart поля "file" и проверяет,
// что это изображение допустимого формата. Тип определяется по магическим
// байтам, расширению не доверяем. При ошибке пишет ответ сама и
// возвращает ok=false; иначе файл отмотан в начало и готов к чтению.
func openValidatedImage(c *gin.Context) (multipart.File, *multipart.FileHeader, string, bool) {
	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "поле file обязательно"})
		return nil, nil, "", false
	}
	if file.Size == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "файл не может быть пустым"})
		return nil, nil, "", false
	}

	ext := strings.ToLower(filepath.Ext(file.Filename))
	if !allowedImageExtensions[ext] {
		c.JSON(http.StatusBadRequest, gin.H{"error": "неподдерживаемый формат файла, разрешены: jpg, jpeg, png, webp"})
		return nil, nil, "", false
	}

	src, err := file.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return nil, nil, "", false
	}

	buffer := make([]byte, 512)
	n, err := src.Read(buffer)
	if err != nil && err != io.EOF {
		_ = src.Close()
		c.JSON(http.StatusBadRequest, gin.H{"error": "не удалось прочитать файл"})
		return nil, nil, "", false
	}

	kind, err := filetype.Match(buffer[:n])
	if err != nil || kind == filetype.Unknown {
		_ = src.Close()
		c.JSON(http.StatusBadRequest, gin.H{"error": "не удалось определить тип файла, разрешены только изображения"})
		return nil, nil, "", false
	}

	mimeType := kind.MIME.Value
	if !allowedImageMimeTypes[mimeType] {
		_ = src.Close()
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("неподдерживаемый тип файла (%s)", mimeType)})
		return nil, nil, "", false
	}

	expectedExt := "." + kind.Extension
	jpegAlias := (ext == ".jpg" && expectedExt == ".jpeg") || (ext == ".jpeg" && expectedExt == ".jpg")
	if ext != expectedExt && !jpegAlias {
		_ = src.Close()
		c.JSON(http.StatusBadRequest, gin.H{
			"error": fmt.Sprintf("расширение файла (%s) не соответствует реальному типу (%s)", ext, expectedExt),
		})
		return nil, nil, "", false
	}

	if seeker, ok := src.(io.Seeker); ok {
		if _, err := seeker.Seek(0, io.SeekStart); err != nil {
			_ = src.Close()
			c.JSON(http.StatusInternalServerError, gin.H{"error": "не удалось сбросить позицию файла"})
			return nil, nil, "", false
		}
	}

	return src, file, mimeType, true
}

// ImageHandler предоставляет HTTP слой для изображений отчётов.
type ImageHandler struct {
	reports *service.ReportService
}

// NewImageHandler создаёт хэндлер.
func NewImageHandler(reports *service.ReportService) *ImageHandler {
	return &ImageHandler{reports: reports}
}

// Upload обрабатывает POST /api/reports/:id/images.
func (h *ImageHandler) Upload(c *gin.Context) {
	actor, err := common.CurrentActor(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	reportID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	src, file, mimeType, ok := openValidatedImage(c)
	if !ok {
		return
	}
	defer src.Close()

	image, err := h.reports.UploadImage(c.Request.Context(), actor, reportID, file.Filename, mimeType, src)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, image)
}

// List обрабатывает GET /api/reports/:id/images.
func (h *ImageHandler) List(c *gin.Context) {
	reportID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	images, err := h.reports.ListImages(c.Request.Context(), reportID)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"images": images})
}

// Delete обрабатывает DELETE /api/reports/:id/images/:imageId.
func (h *ImageHandler) Delete(c *gin.Context) {
	actor, err := common.CurrentActor(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	reportID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	imageID, err := common.ParseUUIDParam(c, "imageId")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.reports.DeleteImage(c.Request.Context(), actor, reportID, imageID); err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, dto.MessageResponse{Message: "изображение удалено"})
}
