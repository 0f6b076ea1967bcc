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

type departmentServiceMock struct {
	update     *models.DepartmentUpdateResult
	err        error
	lastUpdate dto.UpdateDepartmentRequest
	deletedID  int64
}

func (m *departmentServiceMock) List(ctx context.Context) ([]models.Department, error) {
	return []models.Department{{ID: 1, Name: "Operations"}}, m.err
}

func (m *departmentServiceMock) Get(ctx context.Context, id int64) (*models.Department, error) {
	return &models.Department{ID: id}, m.err
}

func (m *departmentServiceMock) Create(ctx context.Context, req dto.CreateDepartmentRequest) (*models.Department, error) {
	return &models.Department{ID: 2, Name: req.Name}, m.err
}

func (m *departmentServiceMock) Update(ctx context.Context, id int64, req dto.UpdateDepartmentRequest) (*models.DepartmentUpdateResult, error) {
	m.lastUpdate = req
	return m.update, m.err
}

func (m *departmentServiceMock) Delete(ctx context.Context, id int64) error {
	m.deletedID = id
	return m.err
}

func (m *departmentServiceMock) SalaryHistory(ctx context.Context, id int64) ([]models.DepartmentSalaryHistory, error) {
	return []models.DepartmentSalaryHistory{}, m.err
}

func TestDepartmentHandlerUpdateSalary(t *testing.T) {
	svc := &departmentServiceMock{update: &models.DepartmentUpdateResult{SalaryChanged: true}}
	handler := NewDepartmentHandler(svc)

	c, w := newGinContext(http.MethodPut, "/departments/1", []byte(`{"total_salary":"65000"}`))
	c.Params = gin.Params{{Key: "id", Value: "1"}}
	handler.Update(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Department updated successfully", decodeEnvelope(t, w).Message)
	require.NotNil(t, svc.lastUpdate.TotalSalary)
	assert.True(t, svc.lastUpdate.TotalSalary.Equal(decimal.NewFromInt(65000)))
	assert.Nil(t, svc.lastUpdate.Name)
}

func TestDepartmentHandlerDelete(t *testing.T) {
	svc := &departmentServiceMock{}
	handler := NewDepartmentHandler(svc)

	c, w := newGinContext(http.MethodDelete, "/departments/3", nil)
	c.Params = gin.Params{{Key: "id", Value: "3"}}
	handler.Delete(c)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, int64(3), svc.deletedID)

	svc.err = appErrors.Clone(appErrors.ErrConflict, "department is still referenced")
	c, w = newGinContext(http.MethodDelete, "/departments/3", nil)
	c.Params = gin.Params{{Key: "id", Value: "3"}}
	handler.Delete(c)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestDepartmentHandlerCreateInvalidJSON(t *testing.T) {
	handler := NewDepartmentHandler(&departmentServiceMock{})

	c, w := newGinContext(http.MethodPost, "/departments", []byte(`{"name":`))
	handler.Create(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
