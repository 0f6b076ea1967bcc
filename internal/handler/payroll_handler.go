package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/salary-api/internal/dto"
	"github.com/noah-isme/salary-api/internal/models"
	"github.com/noah-isme/salary-api/pkg/response"
)

type payrollService interface {
	GeneratePayroll(ctx context.Context, departmentID int64, req dto.GeneratePayrollRequest) (int, error)
	ListDepartmentPayroll(ctx context.Context, departmentID, periodID int64) ([]models.PayrollDetail, error)
	GetPayslip(ctx context.Context, payrollID int64) (*models.PayrollDetail, error)
	GetPayslipPDF(ctx context.Context, payrollID int64) ([]byte, string, error)
	ListEligibleEmployees(ctx context.Context, departmentID int64) ([]models.EligibleEmployee, error)
	CreatePeriod(ctx context.Context, req dto.CreatePeriodRequest) (*models.PayrollPeriod, error)
	ListPeriods(ctx context.Context) ([]models.PayrollPeriod, error)
	GetEmployeeLeaveSummary(ctx context.Context, employeeID, periodID int64) (*models.LeaveSummary, error)
}

// PayrollHandler exposes payroll generation, payslips and periods.
type PayrollHandler struct {
	payroll payrollService
}

// NewPayrollHandler constructs PayrollHandler.
func NewPayrollHandler(payroll payrollService) *PayrollHandler {
	return &PayrollHandler{payroll: payroll}
}

// Generate godoc
// @Summary Generate department payroll
// @Description Inserts every employee's payroll and components for the period in one transaction
// @Tags Payroll
// @Accept json
// @Produce json
// @Param departmentId path int true "Department ID"
// @Param payload body dto.GeneratePayrollRequest true "Payroll batch"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /payroll/department/{departmentId}/generate [post]
func (h *PayrollHandler) Generate(c *gin.Context) {
	departmentID, ok := pathID(c, "departmentId")
	if !ok {
		return
	}
	var req dto.GeneratePayrollRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	processed, err := h.payroll.GeneratePayroll(c.Request.Context(), departmentID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, dto.GeneratePayrollResponse{Message: "Payroll generated successfully", EmployeesProcessed: processed})
}

// DepartmentPayroll godoc
// @Summary Department payroll for a period
// @Tags Payroll
// @Produce json
// @Param departmentId path int true "Department ID"
// @Param periodId path int true "Period ID"
// @Success 200 {object} response.Envelope
// @Router /payroll/department/{departmentId}/period/{periodId} [get]
func (h *PayrollHandler) DepartmentPayroll(c *gin.Context) {
	departmentID, ok := pathID(c, "departmentId")
	if !ok {
		return
	}
	periodID, ok := pathID(c, "periodId")
	if !ok {
		return
	}
	rows, err := h.payroll.ListDepartmentPayroll(c.Request.Context(), departmentID, periodID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rows, nil)
}

// Payslip godoc
// @Summary Get payslip
// @Tags Payroll
// @Produce json
// @Param payrollId path int true "Payroll ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /payroll/payslip/{payrollId} [get]
func (h *PayrollHandler) Payslip(c *gin.Context) {
	payrollID, ok := pathID(c, "payrollId")
	if !ok {
		return
	}
	payslip, err := h.payroll.GetPayslip(c.Request.Context(), payrollID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, payslip, nil)
}

// PayslipPDF godoc
// @Summary Download payslip PDF
// @Tags Payroll
// @Produce application/pdf
// @Param payrollId path int true "Payroll ID"
// @Success 200 {file} file
// @Failure 404 {object} response.Envelope
// @Router /payroll/payslip/{payrollId}/pdf [get]
func (h *PayrollHandler) PayslipPDF(c *gin.Context) {
	payrollID, ok := pathID(c, "payrollId")
	if !ok {
		return
	}
	payload, filename, err := h.payroll.GetPayslipPDF(c.Request.Context(), payrollID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, filename, "application/pdf", payload)
}

// EligibleEmployees godoc
// @Summary Employees eligible for payroll
// @Tags Payroll
// @Produce json
// @Param departmentId path int true "Department ID"
// @Success 200 {object} response.Envelope
// @Router /payroll/department/{departmentId}/employees [get]
func (h *PayrollHandler) EligibleEmployees(c *gin.Context) {
	departmentID, ok := pathID(c, "departmentId")
	if !ok {
		return
	}
	employees, err := h.payroll.ListEligibleEmployees(c.Request.Context(), departmentID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, employees, nil)
}

// CreatePeriod godoc
// @Summary Create payroll period
// @Tags Payroll
// @Accept json
// @Produce json
// @Param payload body dto.CreatePeriodRequest true "Period payload"
// @Success 201 {object} response.Envelope
// @Router /payroll/periods [post]
func (h *PayrollHandler) CreatePeriod(c *gin.Context) {
	var req dto.CreatePeriodRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	period, err := h.payroll.CreatePeriod(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, period)
}

// ListPeriods godoc
// @Summary List payroll periods
// @Tags Payroll
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /payroll/periods [get]
func (h *PayrollHandler) ListPeriods(c *gin.Context) {
	periods, err := h.payroll.ListPeriods(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, periods, nil)
}

// LeaveSummary godoc
// @Summary Employee leave summary for a period
// @Tags Payroll
// @Produce json
// @Param employeeId path int true "Employee ID"
// @Param periodId path int true "Period ID"
// @Success 200 {object} response.Envelope
// @Router /payroll/employee/{employeeId}/leaves/{periodId} [get]
func (h *PayrollHandler) LeaveSummary(c *gin.Context) {
	employeeID, ok := pathID(c, "employeeId")
	if !ok {
		return
	}
	periodID, ok := pathID(c, "periodId")
	if !ok {
		return
	}
	summary, err := h.payroll.GetEmployeeLeaveSummary(c.Request.Context(), employeeID, periodID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, nil)
}
