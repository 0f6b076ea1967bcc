package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/salary-api/internal/dto"
	"github.com/noah-isme/salary-api/internal/models"
	appErrors "github.com/noah-isme/salary-api/pkg/errors"
)

type kharchaServiceMock struct {
	err            error
	lastQuery      dto.KharchaQuery
	lastCreate     dto.CreateKharchaRequest
	lastPeriodID   *int64
	lastDepartment *int64
	summaryHit     bool
	bulkResult     *models.BulkKharchaResult
}

func (m *kharchaServiceMock) Create(ctx context.Context, req dto.CreateKharchaRequest) (*models.KharchaDetail, error) {
	m.lastCreate = req
	return &models.KharchaDetail{}, m.err
}

func (m *kharchaServiceMock) Get(ctx context.Context, id int64) (*models.KharchaDetail, error) {
	return &models.KharchaDetail{}, m.err
}

func (m *kharchaServiceMock) Update(ctx context.Context, id int64, req dto.UpdateKharchaRequest) (*models.KharchaDetail, error) {
	return &models.KharchaDetail{}, m.err
}

func (m *kharchaServiceMock) Delete(ctx context.Context, id int64) error {
	return m.err
}

func (m *kharchaServiceMock) List(ctx context.Context, query dto.KharchaQuery) (*dto.KharchaListResponse, error) {
	m.lastQuery = query
	return &dto.KharchaListResponse{Kharchas: []models.KharchaDetail{}, Pagination: dto.KharchaPagination{Page: 1, Limit: 50}}, m.err
}

func (m *kharchaServiceMock) ListByDepartment(ctx context.Context, departmentID int64, query dto.KharchaQuery) (*dto.KharchaListResponse, error) {
	m.lastQuery = query
	return &dto.KharchaListResponse{}, m.err
}

func (m *kharchaServiceMock) ListByPeriod(ctx context.Context, periodID int64, page, limit int) (*dto.KharchaListResponse, error) {
	m.lastQuery = dto.KharchaQuery{Page: page, Limit: limit}
	return &dto.KharchaListResponse{PeriodID: &periodID}, m.err
}

func (m *kharchaServiceMock) Summary(ctx context.Context, periodID, departmentID *int64) (*models.KharchaSummary, bool, error) {
	m.lastPeriodID = periodID
	m.lastDepartment = departmentID
	return &models.KharchaSummary{}, m.summaryHit, m.err
}

func (m *kharchaServiceMock) DepartmentSummary(ctx context.Context, periodID *int64) ([]models.DepartmentKharchaSummary, bool, error) {
	m.lastPeriodID = periodID
	return []models.DepartmentKharchaSummary{}, m.summaryHit, m.err
}

func (m *kharchaServiceMock) PeriodSummary(ctx context.Context) ([]models.PeriodKharchaSummary, bool, error) {
	return []models.PeriodKharchaSummary{}, m.summaryHit, m.err
}

func (m *kharchaServiceMock) BulkCreate(ctx context.Context, req dto.BulkKharchaRequest) (*models.BulkKharchaResult, error) {
	return m.bulkResult, m.err
}

func (m *kharchaServiceMock) ExportCSV(ctx context.Context, query dto.KharchaQuery) ([]byte, string, error) {
	m.lastQuery = query
	return []byte("id,amount\n1,100\n"), "kharcha.csv", m.err
}

func TestKharchaHandlerListBindsFilters(t *testing.T) {
	svc := &kharchaServiceMock{}
	handler := NewKharchaHandler(svc)

	c, w := newGinContext(http.MethodGet, "/kharcha?department_id=2&period_id=5&start_date=2024-01-01&page=3&limit=20", nil)
	handler.List(c)

	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, svc.lastQuery.DepartmentID)
	assert.Equal(t, int64(2), *svc.lastQuery.DepartmentID)
	require.NotNil(t, svc.lastQuery.PeriodID)
	assert.Equal(t, int64(5), *svc.lastQuery.PeriodID)
	assert.Nil(t, svc.lastQuery.EmployeeID)
	assert.Equal(t, "2024-01-01", svc.lastQuery.StartDate)
	assert.Equal(t, 3, svc.lastQuery.Page)
	assert.Equal(t, 20, svc.lastQuery.Limit)

	c, w = newGinContext(http.MethodGet, "/kharcha?page=abc", nil)
	handler.List(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestKharchaHandlerCreateConflict(t *testing.T) {
	svc := &kharchaServiceMock{err: appErrors.Clone(appErrors.ErrConflict, "kharcha already exists for this department and period")}
	handler := NewKharchaHandler(svc)

	c, w := newGinContext(http.MethodPost, "/kharcha", []byte(`{"kharcha_type":"department","department_id":2,"period_id":5,"amount":"150.50","date":"2024-02-01"}`))
	handler.Create(c)

	assert.Equal(t, http.StatusConflict, w.Code)
	require.NotNil(t, svc.lastCreate.Amount)
	assert.True(t, svc.lastCreate.Amount.Equal(decimal.RequireFromString("150.50")))
}

func TestKharchaHandlerSummaryFilters(t *testing.T) {
	svc := &kharchaServiceMock{summaryHit: true}
	handler := NewKharchaHandler(svc)

	c, w := newGinContext(http.MethodGet, "/kharcha/stats/summary?period_id=5", nil)
	handler.Summary(c)

	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, svc.lastPeriodID)
	assert.Equal(t, int64(5), *svc.lastPeriodID)
	assert.Nil(t, svc.lastDepartment)
	assert.Equal(t, true, decodeEnvelope(t, w).Meta["cache_hit"])

	c, w = newGinContext(http.MethodGet, "/kharcha/stats/summary?department_id=-1", nil)
	handler.Summary(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestKharchaHandlerByPeriodPassesPaging(t *testing.T) {
	svc := &kharchaServiceMock{}
	handler := NewKharchaHandler(svc)

	c, w := newGinContext(http.MethodGet, "/kharcha/period/5?page=2&limit=10", nil)
	c.Params = gin.Params{{Key: "id", Value: "5"}}
	handler.ByPeriod(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 2, svc.lastQuery.Page)
	assert.Equal(t, 10, svc.lastQuery.Limit)
}

func TestKharchaHandlerBulk(t *testing.T) {
	svc := &kharchaServiceMock{bulkResult: &models.BulkKharchaResult{}}
	handler := NewKharchaHandler(svc)

	c, w := newGinContext(http.MethodPost, "/kharcha/bulk", []byte(`{"kharchas":[{"kharcha_type":"department","department_id":1,"period_id":1,"amount":"10","date":"2024-01-01"}]}`))
	handler.Bulk(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Bulk kharcha operation completed", decodeEnvelope(t, w).Message)
}

func TestKharchaHandlerExportCSV(t *testing.T) {
	handler := NewKharchaHandler(&kharchaServiceMock{})

	c, w := newGinContext(http.MethodGet, "/kharcha/export?period_id=5", nil)
	handler.ExportCSV(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/csv", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "kharcha.csv")
	assert.Contains(t, w.Body.String(), "1,100")
}

func TestKharchaHandlerDeleteInvalidID(t *testing.T) {
	handler := NewKharchaHandler(&kharchaServiceMock{})

	c, w := newGinContext(http.MethodDelete, "/kharcha/0", nil)
	c.Params = gin.Params{{Key: "id", Value: "0"}}
	handler.Delete(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
