package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/salary-api/internal/dto"
	"github.com/noah-isme/salary-api/internal/models"
	"github.com/noah-isme/salary-api/pkg/response"
)

type kharchaService interface {
	Create(ctx context.Context, req dto.CreateKharchaRequest) (*models.KharchaDetail, error)
	Get(ctx context.Context, id int64) (*models.KharchaDetail, error)
	Update(ctx context.Context, id int64, req dto.UpdateKharchaRequest) (*models.KharchaDetail, error)
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context, query dto.KharchaQuery) (*dto.KharchaListResponse, error)
	ListByDepartment(ctx context.Context, departmentID int64, query dto.KharchaQuery) (*dto.KharchaListResponse, error)
	ListByPeriod(ctx context.Context, periodID int64, page, limit int) (*dto.KharchaListResponse, error)
	Summary(ctx context.Context, periodID, departmentID *int64) (*models.KharchaSummary, bool, error)
	DepartmentSummary(ctx context.Context, periodID *int64) ([]models.DepartmentKharchaSummary, bool, error)
	PeriodSummary(ctx context.Context) ([]models.PeriodKharchaSummary, bool, error)
	BulkCreate(ctx context.Context, req dto.BulkKharchaRequest) (*models.BulkKharchaResult, error)
	ExportCSV(ctx context.Context, query dto.KharchaQuery) ([]byte, string, error)
}

// KharchaHandler exposes department and individual kharcha (expense) bookkeeping.
type KharchaHandler struct {
	kharcha kharchaService
}

// NewKharchaHandler constructs KharchaHandler.
func NewKharchaHandler(kharcha kharchaService) *KharchaHandler {
	return &KharchaHandler{kharcha: kharcha}
}

// List godoc
// @Summary List kharcha
// @Tags Kharcha
// @Produce json
// @Param department_id query int false "Department"
// @Param employee_id query int false "Employee"
// @Param period_id query int false "Period"
// @Param start_date query string false "From date (YYYY-MM-DD)"
// @Param end_date query string false "To date (YYYY-MM-DD)"
// @Param page query int false "Page"
// @Param limit query int false "Page size (max 200)"
// @Success 200 {object} response.Envelope
// @Router /kharcha [get]
func (h *KharchaHandler) List(c *gin.Context) {
	var query dto.KharchaQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		bindError(c, err)
		return
	}
	page, err := h.kharcha.List(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, page, nil)
}

// Get godoc
// @Summary Get kharcha
// @Tags Kharcha
// @Produce json
// @Param id path int true "Kharcha ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /kharcha/{id} [get]
func (h *KharchaHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	kharcha, err := h.kharcha.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, kharcha, nil)
}

// Create godoc
// @Summary Create kharcha
// @Description Books a department or individual kharcha; one per department (or employee) and period
// @Tags Kharcha
// @Accept json
// @Produce json
// @Param payload body dto.CreateKharchaRequest true "Kharcha payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /kharcha [post]
func (h *KharchaHandler) Create(c *gin.Context) {
	var req dto.CreateKharchaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	kharcha, err := h.kharcha.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, kharcha)
}

// Update godoc
// @Summary Update kharcha
// @Tags Kharcha
// @Accept json
// @Produce json
// @Param id path int true "Kharcha ID"
// @Param payload body dto.UpdateKharchaRequest true "Kharcha changes"
// @Success 200 {object} response.Envelope
// @Router /kharcha/{id} [put]
func (h *KharchaHandler) Update(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req dto.UpdateKharchaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	kharcha, err := h.kharcha.Update(c.Request.Context(), id, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Message(c, http.StatusOK, "Kharcha updated successfully", kharcha)
}

// Delete godoc
// @Summary Delete kharcha
// @Tags Kharcha
// @Param id path int true "Kharcha ID"
// @Success 204
// @Router /kharcha/{id} [delete]
func (h *KharchaHandler) Delete(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.kharcha.Delete(c.Request.Context(), id); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ByDepartment godoc
// @Summary Kharcha of a department
// @Tags Kharcha
// @Produce json
// @Param id path int true "Department ID"
// @Param period_id query int false "Period"
// @Param year query int false "Year"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /kharcha/department/{id} [get]
func (h *KharchaHandler) ByDepartment(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var query dto.KharchaQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		bindError(c, err)
		return
	}
	page, err := h.kharcha.ListByDepartment(c.Request.Context(), id, query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, page, nil)
}

// ByPeriod godoc
// @Summary Kharcha of a payroll period
// @Tags Kharcha
// @Produce json
// @Param id path int true "Period ID"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /kharcha/period/{id} [get]
func (h *KharchaHandler) ByPeriod(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var query dto.KharchaQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		bindError(c, err)
		return
	}
	page, err := h.kharcha.ListByPeriod(c.Request.Context(), id, query.Page, query.Limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, page, nil)
}

// Summary godoc
// @Summary Kharcha totals
// @Tags Kharcha
// @Produce json
// @Param period_id query int false "Period"
// @Param department_id query int false "Department"
// @Success 200 {object} response.Envelope
// @Router /kharcha/stats/summary [get]
func (h *KharchaHandler) Summary(c *gin.Context) {
	periodID, ok := optionalQueryID(c, "period_id")
	if !ok {
		return
	}
	departmentID, ok := optionalQueryID(c, "department_id")
	if !ok {
		return
	}
	summary, hit, err := h.kharcha.Summary(c.Request.Context(), periodID, departmentID)
	if err != nil {
		response.Error(c, err)
		return
	}
	respondWithMeta(c, summary, hit)
}

// DepartmentSummary godoc
// @Summary Kharcha totals per department
// @Tags Kharcha
// @Produce json
// @Param period_id query int false "Period"
// @Success 200 {object} response.Envelope
// @Router /kharcha/stats/department-summary [get]
func (h *KharchaHandler) DepartmentSummary(c *gin.Context) {
	periodID, ok := optionalQueryID(c, "period_id")
	if !ok {
		return
	}
	items, hit, err := h.kharcha.DepartmentSummary(c.Request.Context(), periodID)
	if err != nil {
		response.Error(c, err)
		return
	}
	respondWithMeta(c, items, hit)
}

// PeriodSummary godoc
// @Summary Kharcha totals per payroll period
// @Description Also served at /kharcha/meta/periods for period pickers
// @Tags Kharcha
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /kharcha/stats/period-summary [get]
func (h *KharchaHandler) PeriodSummary(c *gin.Context) {
	items, hit, err := h.kharcha.PeriodSummary(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	respondWithMeta(c, items, hit)
}

// Bulk godoc
// @Summary Bulk create kharcha
// @Description Successful items are committed; failed items are reported with their index
// @Tags Kharcha
// @Accept json
// @Produce json
// @Param payload body dto.BulkKharchaRequest true "Kharcha items"
// @Success 200 {object} response.Envelope
// @Router /kharcha/bulk [post]
func (h *KharchaHandler) Bulk(c *gin.Context) {
	var req dto.BulkKharchaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	result, err := h.kharcha.BulkCreate(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Message(c, http.StatusOK, "Bulk kharcha operation completed", result)
}

// ExportCSV godoc
// @Summary Export kharcha as CSV
// @Tags Kharcha
// @Produce text/csv
// @Param department_id query int false "Department"
// @Param period_id query int false "Period"
// @Success 200 {file} file
// @Router /kharcha/export [get]
func (h *KharchaHandler) ExportCSV(c *gin.Context) {
	var query dto.KharchaQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		bindError(c, err)
		return
	}
	payload, filename, err := h.kharcha.ExportCSV(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, filename, "text/csv", payload)
}
