package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/avtoscan/reports-backend/internal/dto"
	"github.com/avtoscan/reports-backend/internal/http/handlers/common"
	"github.com/avtoscan/reports-backend/internal/pkg/apperror"
	"github.com/avtoscan/reports-backend/internal/service"
)

// ReportHandler предоставляет HTTP слой для отчётов о машинах.
type ReportHandler struct {
	reports *service.ReportService
}

// NewReportHandler создаёт хэндлер.
func NewReportHandler(reports *service.ReportService) *ReportHandler {
	return &ReportHandler{reports: reports}
}

// Create обрабатывает POST /api/reports.
func (h *ReportHandler) Create(c *gin.Context) {
	actor, err := common.CurrentActor(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	var req dto.CreateReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	report, err := h.reports.Create(c.Request.Context(), actor, service.CreateReportInput{
		Make:    req.Make,
		Model:   req.Model,
		Year:    req.Year,
		Mileage: req.Mileage,
		Price:   req.Price,
		Lng:     req.Lng,
		Lat:     req.Lat,
		Tags:    req.Tags,
	})
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, report)
}

// Search обрабатывает GET /api/reports/search.
func (h *ReportHandler) Search(c *gin.Context) {
	in := service.SearchInput{
		Query: common.PaginationQuery(c),
		Make:  c.Query("make"),
		Model: c.Query("model"),
	}

	var err error
	if in.MinYear, err = optionalIntQuery(c, "minYear"); err != nil {
		_ = c.Error(err)
		return
	}
	if in.MaxYear, err = optionalIntQuery(c, "maxYear"); err != nil {
		_ = c.Error(err)
		return
	}
	if in.MinPrice, err = optionalFloatQuery(c, "minPrice"); err != nil {
		_ = c.Error(err)
		return
	}
	if in.MaxPrice, err = optionalFloatQuery(c, "maxPrice"); err != nil {
		_ = c.Error(err)
		return
	}
	if in.Approved, err = optionalBoolQuery(c, "approved"); err != nil {
		_ = c.Error(err)
		return
	}
	if raw := c.Query("tags"); raw != "" {
		in.Tags = strings.Split(raw, ",")
	}

	out, err := h.reports.Search(c.Request.Context(), in)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, dto.NewPaginatedResponse(out.Reports, out.Total, out.Page, out.Limit))
}

// List обрабатывает GET /api/reports.
func (h *ReportHandler) List(c *gin.Context) {
	out, err := h.reports.FindAll(c.Request.Context(), common.PaginationQuery(c))
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, dto.NewPaginatedResponse(out.Reports, out.Total, out.Page, out.Limit))
}

// Get обрабатывает GET /api/reports/:id.
func (h *ReportHandler) Get(c *gin.Context) {
	id, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	report, err := h.reports.Get(c.Request.Context(), id)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, report)
}

// Estimate обрабатывает GET /api/reports/estimate.
func (h *ReportHandler) Estimate(c *gin.Context) {
	year, err := requiredIntQuery(c, "year")
	if err != nil {
		_ = c.Error(err)
		return
	}
	mileage, err := requiredIntQuery(c, "mileage")
	if err != nil {
		_ = c.Error(err)
		return
	}
	lng, err := requiredFloatQuery(c, "lng")
	if err != nil {
		_ = c.Error(err)
		return
	}
	lat, err := requiredFloatQuery(c, "lat")
	if err != nil {
		_ = c.Error(err)
		return
	}

	price, err := h.reports.Estimate(c.Request.Context(), service.EstimateInput{
		Make:    c.Query("make"),
		Model:   c.Query("model"),
		Year:    year,
		Mileage: mileage,
		Lng:     lng,
		Lat:     lat,
	})
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, dto.EstimateResponse{Price: price})
}

// Approve обрабатывает PATCH /api/reports/:id/approve.
func (h *ReportHandler) Approve(c *gin.Context) {
	id, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var req dto.ApproveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	report, err := h.reports.ChangeApproval(c.Request.Context(), id, *req.Approved)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, report)
}

// AddTags обрабатывает POST /api/reports/:id/tags.
func (h *ReportHandler) AddTags(c *gin.Context) {
	actor, err := common.CurrentActor(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	id, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var req dto.AddTagsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	tags, err := h.reports.AddTags(c.Request.Context(), actor, id, req.Tags)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"tags": tags})
}

// RemoveTags обрабатывает DELETE /api/reports/:id/tags.
func (h *ReportHandler) RemoveTags(c *gin.Context) {
	actor, err := common.CurrentActor(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	id, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var req dto.RemoveTagsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	tags, err := h.reports.RemoveTags(c.Request.Context(), actor, id, req.Tags)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"tags": tags})
}

// Delete обрабатывает DELETE /api/reports/:id (мягкое удаление).
func (h *ReportHandler) Delete(c *gin.Context) {
	actor, err := common.CurrentActor(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	id, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.reports.SoftDelete(c.Request.Context(), actor, id); err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, dto.MessageResponse{Message: "отчёт скрыт"})
}

// Restore обрабатывает PATCH /api/reports/:id/restore.
func (h *ReportHandler) Restore(c *gin.Context) {
	id, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	report, err := h.reports.Restore(c.Request.Context(), id)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, report)
}

// Purge обрабатывает DELETE /api/reports/:id/permanent.
func (h *ReportHandler) Purge(c *gin.Context) {
	id, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.reports.Purge(c.Request.Context(), id); err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, dto.MessageResponse{Message: "отчёт удалён безвозвратно"})
}

// ListDeleted обрабатывает GET /api/reports/deleted.
func (h *ReportHandler) ListDeleted(c *gin.Context) {
	reports, err := h.reports.ListDeleted(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"reports": reports})
}

// optionalIntQuery парсит необязательный целочисленный query-параметр.
func optionalIntQuery(c *gin.Context, name string) (*int, error) {
	raw := c.Query(name)
	if raw == "" {
		return nil, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return nil, apperror.New(apperror.ErrCodeValidation, name+" должен быть целым числом")
	}
	return &value, nil
}

// optionalFloatQuery парсит необязательный числовой query-параметр.
func optionalFloatQuery(c *gin.Context, name string) (*float64, error) {
	raw := c.Query(name)
	if raw == "" {
		return nil, nil
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, apperror.New(apperror.ErrCodeValidation, name+" должен быть числом")
	}
	return &value, nil
}

// optionalBoolQuery парсит необязательный булев query-параметр.
func optionalBoolQuery(c *gin.Context, name string) (*bool, error) {
	raw := c.Query(name)
	if raw == "" {
		return nil, nil
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, apperror.New(apperror.ErrCodeValidation, name+" должен быть булевым значением")
	}
	return &value, nil
}

func requiredIntQuery(c *gin.Context, name string) (int, error) {
	value, err := optionalIntQuery(c, name)
	if err != nil {
		return 0, err
	}
	if value == nil {
		return 0, apperror.New(apperror.ErrCodeValidation, "параметр "+name+" обязателен")
	}
	return *value, nil
}

func requiredFloatQuery(c *gin.Context, name string) (float64, error) {
	value, err := optionalFloatQuery(c, name)
	if err != nil {
		return 0, err
	}
	if value == nil {
		return 0, apperror.New(apperror.ErrCodeValidation, "параметр "+name+" обязателен")
	}
	return *value, nil
}
