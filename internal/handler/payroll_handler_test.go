package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/salary-api/internal/dto"
	"github.com/noah-isme/salary-api/internal/models"
	appErrors "github.com/noah-isme/salary-api/pkg/errors"
)

type payrollServiceMock struct {
	processed      int
	err            error
	lastDepartment int64
	lastPeriod     int64
	lastRequest    dto.GeneratePayrollRequest
	generateCalled bool
}

func (m *payrollServiceMock) GeneratePayroll(ctx context.Context, departmentID int64, req dto.GeneratePayrollRequest) (int, error) {
	m.generateCalled = true
	m.lastDepartment = departmentID
	m.lastRequest = req
	return m.processed, m.err
}

func (m *payrollServiceMock) ListDepartmentPayroll(ctx context.Context, departmentID, periodID int64) ([]models.PayrollDetail, error) {
	m.lastDepartment = departmentID
	m.lastPeriod = periodID
	return []models.PayrollDetail{}, m.err
}

func (m *payrollServiceMock) GetPayslip(ctx context.Context, payrollID int64) (*models.PayrollDetail, error) {
	return &models.PayrollDetail{}, m.err
}

func (m *payrollServiceMock) GetPayslipPDF(ctx context.Context, payrollID int64) ([]byte, string, error) {
	return []byte("%PDF-1.3"), "payslip-12.pdf", m.err
}

func (m *payrollServiceMock) ListEligibleEmployees(ctx context.Context, departmentID int64) ([]models.EligibleEmployee, error) {
	return []models.EligibleEmployee{}, m.err
}

func (m *payrollServiceMock) CreatePeriod(ctx context.Context, req dto.CreatePeriodRequest) (*models.PayrollPeriod, error) {
	return &models.PayrollPeriod{}, m.err
}

func (m *payrollServiceMock) ListPeriods(ctx context.Context) ([]models.PayrollPeriod, error) {
	return []models.PayrollPeriod{}, m.err
}

func (m *payrollServiceMock) GetEmployeeLeaveSummary(ctx context.Context, employeeID, periodID int64) (*models.LeaveSummary, error) {
	m.lastPeriod = periodID
	return &models.LeaveSummary{}, m.err
}

func TestPayrollHandlerGenerateCreated(t *testing.T) {
	svc := &payrollServiceMock{processed: 2}
	handler := NewPayrollHandler(svc)

	body := []byte(`{"period_id":3,"employees":[{"employee_id":1,"basic_salary":"1000"},{"employee_id":2,"components":[{"component_type":"bonus","component_name":"Eid","amount":"50"}]}]}`)
	c, w := newGinContext(http.MethodPost, "/payroll/department/4/generate", body)
	c.Params = gin.Params{{Key: "departmentId", Value: "4"}}
	handler.Generate(c)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, int64(4), svc.lastDepartment)
	assert.Equal(t, int64(3), svc.lastRequest.PeriodID)
	require.Len(t, svc.lastRequest.Employees, 2)
	require.Len(t, svc.lastRequest.Employees[1].Components, 1)
	assert.JSONEq(t, `{"message":"Payroll generated successfully","employees_processed":2}`, string(decodeEnvelope(t, w).Data))
}

func TestPayrollHandlerGenerateAcceptsTypeNameComponents(t *testing.T) {
	svc := &payrollServiceMock{processed: 1}
	handler := NewPayrollHandler(svc)

	body := []byte(`{"period_id":3,"employees":[{"employee_id":1,"basic_salary":"1000","net_salary":"1050","working_days":26,"components":[{"type":"allowance","name":"Transport","amount":"50"},{"type":"deduction","name":"Loan","amount":12.5}]}]}`)
	c, w := newGinContext(http.MethodPost, "/payroll/department/4/generate", body)
	c.Params = gin.Params{{Key: "departmentId", Value: "4"}}
	handler.Generate(c)

	require.Equal(t, http.StatusCreated, w.Code)
	require.Len(t, svc.lastRequest.Employees, 1)
	entry := svc.lastRequest.Employees[0]
	require.NotNil(t, entry.WorkingDays)
	assert.Equal(t, 26, *entry.WorkingDays)
	require.Len(t, entry.Components, 2)
	assert.Equal(t, "allowance", entry.Components[0].ComponentType)
	assert.Equal(t, "Transport", entry.Components[0].ComponentName)
	require.NotNil(t, entry.Components[0].Amount)
	assert.Equal(t, "50", entry.Components[0].Amount.String())
	assert.Equal(t, "deduction", entry.Components[1].ComponentType)
	assert.Equal(t, "12.5", entry.Components[1].Amount.String())
	assert.NoError(t, validator.New().Struct(svc.lastRequest))
}

func TestPayrollHandlerGenerateEmptyBatch(t *testing.T) {
	handler := NewPayrollHandler(&payrollServiceMock{processed: 0})

	c, w := newGinContext(http.MethodPost, "/payroll/department/4/generate", []byte(`{"period_id":3,"employees":[]}`))
	c.Params = gin.Params{{Key: "departmentId", Value: "4"}}
	handler.Generate(c)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, string(decodeEnvelope(t, w).Data), `"employees_processed":0`)
}

func TestPayrollHandlerGenerateErrors(t *testing.T) {
	svc := &payrollServiceMock{err: appErrors.Clone(appErrors.ErrConflict, "payroll already generated for this period")}
	handler := NewPayrollHandler(svc)

	c, w := newGinContext(http.MethodPost, "/payroll/department/4/generate", []byte(`{"period_id":3,"employees":[{"employee_id":1}]}`))
	c.Params = gin.Params{{Key: "departmentId", Value: "4"}}
	handler.Generate(c)
	assert.Equal(t, http.StatusConflict, w.Code)

	svc.generateCalled = false
	c, w = newGinContext(http.MethodPost, "/payroll/department/0/generate", []byte(`{}`))
	c.Params = gin.Params{{Key: "departmentId", Value: "0"}}
	handler.Generate(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	c, w = newGinContext(http.MethodPost, "/payroll/department/4/generate", []byte(`{"employees":"nope"}`))
	c.Params = gin.Params{{Key: "departmentId", Value: "4"}}
	handler.Generate(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.False(t, svc.generateCalled)
}

func TestPayrollHandlerDepartmentPayrollParsesBothIDs(t *testing.T) {
	svc := &payrollServiceMock{}
	handler := NewPayrollHandler(svc)

	c, w := newGinContext(http.MethodGet, "/payroll/department/4/period/9", nil)
	c.Params = gin.Params{{Key: "departmentId", Value: "4"}, {Key: "periodId", Value: "9"}}
	handler.DepartmentPayroll(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int64(4), svc.lastDepartment)
	assert.Equal(t, int64(9), svc.lastPeriod)

	c, w = newGinContext(http.MethodGet, "/payroll/department/4/period/x", nil)
	c.Params = gin.Params{{Key: "departmentId", Value: "4"}, {Key: "periodId", Value: "x"}}
	handler.DepartmentPayroll(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPayrollHandlerPayslipPDF(t *testing.T) {
	handler := NewPayrollHandler(&payrollServiceMock{})

	c, w := newGinContext(http.MethodGet, "/payroll/payslip/12/pdf", nil)
	c.Params = gin.Params{{Key: "payrollId", Value: "12"}}
	handler.PayslipPDF(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "payslip-12.pdf")
	assert.Equal(t, "%PDF-1.3", w.Body.String())
}

func TestPayrollHandlerPayslipNotFound(t *testing.T) {
	handler := NewPayrollHandler(&payrollServiceMock{err: appErrors.Clone(appErrors.ErrNotFound, "payslip not found")})

	c, w := newGinContext(http.MethodGet, "/payroll/payslip/12", nil)
	c.Params = gin.Params{{Key: "payrollId", Value: "12"}}
	handler.Payslip(c)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
