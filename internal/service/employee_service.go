package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/noah-isme/salary-api/internal/dto"
	"github.com/noah-isme/salary-api/internal/models"
	"github.com/noah-isme/salary-api/internal/repository"
	appErrors "github.com/noah-isme/salary-api/pkg/errors"
)

type employeeRepository interface {
	Create(ctx context.Context, employee *models.Employee) error
	FindByID(ctx context.Context, id int64) (*models.Employee, error)
	List(ctx context.Context, filter models.EmployeeFilter) ([]models.Employee, error)
	CountActive(ctx context.Context) (int, error)
	Departments(ctx context.Context) ([]string, error)
	Update(ctx context.Context, employee *models.Employee) error
	SetActive(ctx context.Context, id int64, active bool) error
	Delete(ctx context.Context, id int64) error
	CreateExpense(ctx context.Context, expense *models.EmployeeExpense) error
	ListExpenses(ctx context.Context, employeeID int64) ([]models.EmployeeExpense, error)
	CreateLoan(ctx context.Context, loan *models.EmployeeLoan) error
	ListLoans(ctx context.Context, employeeID int64) ([]models.EmployeeLoan, error)
}

// EmployeeService manages employee records with their expenses and loans.
type EmployeeService struct {
	repo      employeeRepository
	cache     *CacheService
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewEmployeeService constructs the service.
func NewEmployeeService(repo employeeRepository, cache *CacheService, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *EmployeeService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EmployeeService{repo: repo, cache: cache, metrics: metrics, validator: validate, logger: logger, now: time.Now}
}

// Create registers a new active employee.
func (s *EmployeeService) Create(ctx context.Context, req dto.EmployeeRequest) (*models.Employee, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "invalid employee payload")
	}
	employee, err := employeeFromRequest(req)
	if err != nil {
		return nil, err
	}
	start := time.Now()
	err = s.repo.Create(ctx, &employee)
	s.metrics.ObserveDBQuery("employee_create", time.Since(start))
	if err != nil {
		return nil, appErrors.Internal(err, "failed to create employee")
	}
	return s.Get(ctx, employee.ID)
}

// List returns employees, optionally filtered by the active flag.
func (s *EmployeeService) List(ctx context.Context, active *bool) ([]models.Employee, error) {
	start := time.Now()
	items, err := s.repo.List(ctx, models.EmployeeFilter{Active: active})
	s.metrics.ObserveDBQuery("employee_list", time.Since(start))
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list employees")
	}
	return items, nil
}

// CountActive returns the number of active employees.
func (s *EmployeeService) CountActive(ctx context.Context) (int, error) {
	total, err := s.repo.CountActive(ctx)
	if err != nil {
		return 0, appErrors.Internal(err, "failed to count employees")
	}
	return total, nil
}

// Departments lists the distinct department names employees belong to.
func (s *EmployeeService) Departments(ctx context.Context) ([]string, error) {
	names, err := s.repo.Departments(ctx)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list employee departments")
	}
	return names, nil
}

// Get returns one employee.
func (s *EmployeeService) Get(ctx context.Context, id int64) (*models.Employee, error) {
	if id <= 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid employee id")
	}
	employee, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "employee not found")
		}
		return nil, appErrors.Internal(err, "failed to load employee")
	}
	return employee, nil
}

// Update overwrites an employee's details.
func (s *EmployeeService) Update(ctx context.Context, id int64, req dto.EmployeeRequest) (*models.Employee, error) {
	if id <= 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid employee id")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "invalid employee payload")
	}
	employee, err := employeeFromRequest(req)
	if err != nil {
		return nil, err
	}
	employee.ID = id
	if employee.RegisterDate.IsZero() {
		current, err := s.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		employee.RegisterDate = current.RegisterDate
	}
	if err := s.repo.Update(ctx, &employee); err != nil {
		return nil, s.mutationError(err, "failed to update employee")
	}
	s.invalidateReplacements(ctx)
	return s.Get(ctx, id)
}

// Delete removes an employee.
func (s *EmployeeService) Delete(ctx context.Context, id int64) error {
	if id <= 0 {
		return appErrors.Clone(appErrors.ErrValidation, "invalid employee id")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if repository.IsForeignKeyViolation(err) {
			return appErrors.Wrap(err, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, "employee is referenced by payroll, kharcha or replacement records")
		}
		return s.mutationError(err, "failed to delete employee")
	}
	s.invalidateReplacements(ctx)
	return nil
}

// SetActive activates or deactivates an employee.
func (s *EmployeeService) SetActive(ctx context.Context, id int64, active bool) error {
	if id <= 0 {
		return appErrors.Clone(appErrors.ErrValidation, "invalid employee id")
	}
	if err := s.repo.SetActive(ctx, id, active); err != nil {
		return s.mutationError(err, "failed to change employee status")
	}
	return nil
}

// AddExpense records an expense for an existing employee. A missing date means today.
func (s *EmployeeService) AddExpense(ctx context.Context, employeeID int64, req dto.EmployeeExpenseRequest) (*models.EmployeeExpense, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "amount is required")
	}
	if err := requireNonNegative("amount", req.Amount); err != nil {
		return nil, err
	}
	if _, err := s.Get(ctx, employeeID); err != nil {
		return nil, err
	}
	expenseDate := models.NewDate(s.now())
	if req.ExpenseDate != "" {
		parsed, err := models.ParseDate(req.ExpenseDate)
		if err != nil {
			return nil, appErrors.Validation(err, "invalid expenseDate")
		}
		expenseDate = parsed
	}
	expense := &models.EmployeeExpense{
		EmployeeID:  employeeID,
		Description: req.Description,
		Amount:      *req.Amount,
		ExpenseDate: expenseDate,
	}
	if err := s.repo.CreateExpense(ctx, expense); err != nil {
		return nil, appErrors.Internal(err, "failed to add expense")
	}
	return expense, nil
}

// ListExpenses returns an employee's expenses, newest first.
func (s *EmployeeService) ListExpenses(ctx context.Context, employeeID int64) ([]models.EmployeeExpense, error) {
	if employeeID <= 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid employee id")
	}
	items, err := s.repo.ListExpenses(ctx, employeeID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list expenses")
	}
	return items, nil
}

// AddLoan records a loan for an existing employee.
func (s *EmployeeService) AddLoan(ctx context.Context, employeeID int64, req dto.EmployeeLoanRequest) (*models.EmployeeLoan, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "Amount and loanDate are required")
	}
	if err := requireNonNegative("amount", req.Amount); err != nil {
		return nil, err
	}
	loanDate, err := models.ParseDate(req.LoanDate)
	if err != nil {
		return nil, appErrors.Validation(err, "invalid loanDate")
	}
	if _, err := s.Get(ctx, employeeID); err != nil {
		return nil, err
	}
	loan := &models.EmployeeLoan{
		EmployeeID:  employeeID,
		Amount:      *req.Amount,
		LoanDate:    loanDate,
		Description: req.Description,
	}
	if err := s.repo.CreateLoan(ctx, loan); err != nil {
		return nil, appErrors.Internal(err, "failed to add loan")
	}
	return loan, nil
}

// ListLoans returns an employee's loans, newest first.
func (s *EmployeeService) ListLoans(ctx context.Context, employeeID int64) ([]models.EmployeeLoan, error) {
	if employeeID <= 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid employee id")
	}
	items, err := s.repo.ListLoans(ctx, employeeID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list loans")
	}
	return items, nil
}

// invalidateReplacements drops cached replacement chains, which carry employee names.
func (s *EmployeeService) invalidateReplacements(ctx context.Context) {
	if err := s.cache.Invalidate(ctx, replacementCachePrefix+"*"); err != nil {
		s.logger.Warn("invalidate replacement cache", zap.Error(err))
	}
}

func (s *EmployeeService) mutationError(err error, message string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.Clone(appErrors.ErrNotFound, "employee not found")
	}
	return appErrors.Internal(err, message)
}

// employeeFromRequest maps a payload onto an employee row. A blank register date is left zero so the
// store applies CURRENT_DATE.
func employeeFromRequest(req dto.EmployeeRequest) (models.Employee, error) {
	employee := models.Employee{
		Name:         strings.TrimSpace(req.Name),
		FatherName:   req.FatherName,
		Age:          req.Age,
		Education:    req.Education,
		Designation:  req.Designation,
		Department:   trimmedOrNil(req.Department),
		Reference:    req.Reference,
		IDCardNumber: req.IDCardNumber,
		Address:      req.Address,
		PhoneNumber:  req.PhoneNumber,
		Salary:       decimalOrZero(req.Salary),
	}
	if employee.Name == "" {
		return models.Employee{}, appErrors.Clone(appErrors.ErrValidation, "name is required")
	}
	if err := requireNonNegative("salary", req.Salary); err != nil {
		return models.Employee{}, err
	}
	if req.RegisterDate != "" {
		date, err := models.ParseDate(req.RegisterDate)
		if err != nil {
			return models.Employee{}, appErrors.Validation(err, "invalid registerDate")
		}
		employee.RegisterDate = date
	}
	return employee, nil
}

func trimmedOrNil(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func decimalOrZero(value *decimal.Decimal) decimal.Decimal {
	if value == nil {
		return decimal.Zero
	}
	return *value
}

func requireNonNegative(field string, value *decimal.Decimal) error {
	if value != nil && value.IsNegative() {
		return appErrors.Clone(appErrors.ErrValidation, field+" must not be negative")
	}
	return nil
}
