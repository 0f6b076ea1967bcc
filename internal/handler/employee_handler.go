package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/salary-api/internal/dto"
	"github.com/noah-isme/salary-api/internal/models"
	appErrors "github.com/noah-isme/salary-api/pkg/errors"
	"github.com/noah-isme/salary-api/pkg/response"
)

type employeeService interface {
	Create(ctx context.Context, req dto.EmployeeRequest) (*models.Employee, error)
	List(ctx context.Context, active *bool) ([]models.Employee, error)
	CountActive(ctx context.Context) (int, error)
	Departments(ctx context.Context) ([]string, error)
	Get(ctx context.Context, id int64) (*models.Employee, error)
	Update(ctx context.Context, id int64, req dto.EmployeeRequest) (*models.Employee, error)
	Delete(ctx context.Context, id int64) error
	SetActive(ctx context.Context, id int64, active bool) error
	AddExpense(ctx context.Context, employeeID int64, req dto.EmployeeExpenseRequest) (*models.EmployeeExpense, error)
	ListExpenses(ctx context.Context, employeeID int64) ([]models.EmployeeExpense, error)
	AddLoan(ctx context.Context, employeeID int64, req dto.EmployeeLoanRequest) (*models.EmployeeLoan, error)
	ListLoans(ctx context.Context, employeeID int64) ([]models.EmployeeLoan, error)
}

type replacementService interface {
	ReplaceEmployee(ctx context.Context, oldEmployeeID int64, req dto.ReplaceEmployeeRequest) (*models.ReplacementResult, error)
	GetReplacementHistory(ctx context.Context, employeeID int64) ([]models.ReplacementDetail, error)
	GetReplacementChain(ctx context.Context, employeeID int64) ([]models.ReplacementDetail, bool, error)
	GetLatestReplacement(ctx context.Context, employeeID int64) (*models.ReplacementDetail, error)
	GetAdjacentReplacements(ctx context.Context, replacementID int64) (*models.AdjacentReplacements, error)
	GetReplacementByID(ctx context.Context, replacementID int64) (*models.ReplacementDetail, error)
}

// EmployeeHandler exposes employee records, their sub-resources and the replacement ledger.
type EmployeeHandler struct {
	employees    employeeService
	replacements replacementService
}

// NewEmployeeHandler constructs EmployeeHandler.
func NewEmployeeHandler(employees employeeService, replacements replacementService) *EmployeeHandler {
	return &EmployeeHandler{employees: employees, replacements: replacements}
}

// List godoc
// @Summary List employees
// @Tags Employees
// @Produce json
// @Param active query bool false "Filter by active state"
// @Success 200 {object} response.Envelope
// @Router /employees [get]
func (h *EmployeeHandler) List(c *gin.Context) {
	var active *bool
	if raw := c.Query("active"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "active must be true or false"))
			return
		}
		active = &v
	}
	employees, err := h.employees.List(c.Request.Context(), active)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, employees, nil)
}

// Count godoc
// @Summary Count active employees
// @Tags Employees
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /employees/count [get]
func (h *EmployeeHandler) Count(c *gin.Context) {
	total, err := h.employees.CountActive(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.EmployeeCountResponse{Total: total}, nil)
}

// Departments godoc
// @Summary Distinct employee departments
// @Tags Employees
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /employees/departments [get]
func (h *EmployeeHandler) Departments(c *gin.Context) {
	departments, err := h.employees.Departments(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, departments, nil)
}

// Get godoc
// @Summary Get employee
// @Tags Employees
// @Produce json
// @Param id path int true "Employee ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /employees/{id} [get]
func (h *EmployeeHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	employee, err := h.employees.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, employee, nil)
}

// Create godoc
// @Summary Create employee
// @Tags Employees
// @Accept json
// @Produce json
// @Param payload body dto.EmployeeRequest true "Employee payload"
// @Success 201 {object} response.Envelope
// @Router /employees [post]
func (h *EmployeeHandler) Create(c *gin.Context) {
	var req dto.EmployeeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	employee, err := h.employees.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, employee)
}

// Update godoc
// @Summary Update employee
// @Tags Employees
// @Accept json
// @Produce json
// @Param id path int true "Employee ID"
// @Param payload body dto.EmployeeRequest true "Employee payload"
// @Success 200 {object} response.Envelope
// @Router /employees/{id} [put]
func (h *EmployeeHandler) Update(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req dto.EmployeeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	employee, err := h.employees.Update(c.Request.Context(), id, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, employee, nil)
}

// Delete godoc
// @Summary Delete employee
// @Tags Employees
// @Param id path int true "Employee ID"
// @Success 204
// @Router /employees/{id} [delete]
func (h *EmployeeHandler) Delete(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.employees.Delete(c.Request.Context(), id); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Deactivate godoc
// @Summary Deactivate employee
// @Tags Employees
// @Param id path int true "Employee ID"
// @Success 200 {object} response.Envelope
// @Router /employees/{id}/deactivate [put]
func (h *EmployeeHandler) Deactivate(c *gin.Context) {
	h.setActive(c, false, "employee deactivated")
}

// Activate godoc
// @Summary Activate employee
// @Tags Employees
// @Param id path int true "Employee ID"
// @Success 200 {object} response.Envelope
// @Router /employees/{id}/activate [put]
func (h *EmployeeHandler) Activate(c *gin.Context) {
	h.setActive(c, true, "employee activated")
}

func (h *EmployeeHandler) setActive(c *gin.Context, active bool, message string) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.employees.SetActive(c.Request.Context(), id, active); err != nil {
		response.Error(c, err)
		return
	}
	response.Message(c, http.StatusOK, message, gin.H{"id": id})
}

// AddExpense godoc
// @Summary Record employee expense
// @Tags Employees
// @Accept json
// @Produce json
// @Param id path int true "Employee ID"
// @Param payload body dto.EmployeeExpenseRequest true "Expense payload"
// @Success 201 {object} response.Envelope
// @Router /employees/{id}/expenses [post]
func (h *EmployeeHandler) AddExpense(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req dto.EmployeeExpenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	expense, err := h.employees.AddExpense(c.Request.Context(), id, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, expense)
}

// ListExpenses godoc
// @Summary List employee expenses
// @Tags Employees
// @Produce json
// @Param id path int true "Employee ID"
// @Success 200 {object} response.Envelope
// @Router /employees/{id}/expenses [get]
func (h *EmployeeHandler) ListExpenses(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	expenses, err := h.employees.ListExpenses(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, expenses, nil)
}

// AddLoan godoc
// @Summary Record employee loan
// @Tags Employees
// @Accept json
// @Produce json
// @Param id path int true "Employee ID"
// @Param payload body dto.EmployeeLoanRequest true "Loan payload"
// @Success 201 {object} response.Envelope
// @Router /employees/{id}/loans [post]
func (h *EmployeeHandler) AddLoan(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req dto.EmployeeLoanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	loan, err := h.employees.AddLoan(c.Request.Context(), id, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, loan)
}

// ListLoans godoc
// @Summary List employee loans
// @Tags Employees
// @Produce json
// @Param id path int true "Employee ID"
// @Success 200 {object} response.Envelope
// @Router /employees/{id}/loans [get]
func (h *EmployeeHandler) ListLoans(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	loans, err := h.employees.ListLoans(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, loans, nil)
}

// Replace godoc
// @Summary Replace employee
// @Description Deactivates the employee, creates the successor and links the replacement into the chain in one transaction
// @Tags Replacements
// @Accept json
// @Produce json
// @Param id path int true "Outgoing employee ID"
// @Param payload body dto.ReplaceEmployeeRequest true "Successor payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Router /employees/{id}/replace [post]
func (h *EmployeeHandler) Replace(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req dto.ReplaceEmployeeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	result, err := h.replacements.ReplaceEmployee(c.Request.Context(), id, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, dto.ReplaceEmployeeResponse{
		Message:               "Employee replaced successfully",
		OldEmployeeID:         result.OldEmployeeID,
		NewEmployeeID:         result.NewEmployeeID,
		ReplacementID:         result.ReplacementID,
		PreviousReplacementID: result.PreviousReplacementID,
	})
}

// ReplacementHistory godoc
// @Summary Replacement history
// @Description Replacements where the employee is the outgoing or incoming party, newest first
// @Tags Replacements
// @Produce json
// @Param id path int true "Employee ID"
// @Success 200 {object} response.Envelope
// @Router /employees/{id}/replacements [get]
func (h *EmployeeHandler) ReplacementHistory(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	history, err := h.replacements.GetReplacementHistory(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, history, nil)
}

// ReplacementChain godoc
// @Summary Replacement chain
// @Description Ancestors of the employee, most distant first; falls back to every replacement touching the employee
// @Tags Replacements
// @Produce json
// @Param id path int true "Employee ID"
// @Success 200 {object} response.Envelope
// @Router /employees/{id}/replacement-chain [get]
func (h *EmployeeHandler) ReplacementChain(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	chain, hit, err := h.replacements.GetReplacementChain(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	respondWithMeta(c, chain, hit)
}

// LatestReplacement godoc
// @Summary Latest replacement
// @Tags Replacements
// @Produce json
// @Param id path int true "Employee ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /employees/{id}/latest-replacement [get]
func (h *EmployeeHandler) LatestReplacement(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	latest, err := h.replacements.GetLatestReplacement(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, latest, nil)
}

// AdjacentReplacements godoc
// @Summary Adjacent replacements
// @Description The replacement with its previous and next links in the chain
// @Tags Replacements
// @Produce json
// @Param id path int true "Replacement ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /employees/replacements/{id}/adjacent [get]
func (h *EmployeeHandler) AdjacentReplacements(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	adjacent, err := h.replacements.GetAdjacentReplacements(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, adjacent, nil)
}

// Replacement godoc
// @Summary Get replacement
// @Tags Replacements
// @Produce json
// @Param id path int true "Replacement ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /employees/replacements/{id} [get]
func (h *EmployeeHandler) Replacement(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	replacement, err := h.replacements.GetReplacementByID(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, replacement, nil)
}
