package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/noah-isme/salary-api/internal/dto"
	"github.com/noah-isme/salary-api/internal/models"
	"github.com/noah-isme/salary-api/internal/repository"
	appErrors "github.com/noah-isme/salary-api/pkg/errors"
	"github.com/noah-isme/salary-api/pkg/export"
)

const defaultWorkingDays = 30

type payrollRepository interface {
	Generate(ctx context.Context, batch models.PayrollBatch) (int, error)
	List(ctx context.Context, filter repository.PayrollFilter) ([]models.PayrollDetail, error)
	GetPayslip(ctx context.Context, payrollID int64) (*models.PayrollDetail, error)
	EligibleEmployees(ctx context.Context, departmentID int64) ([]models.EligibleEmployee, error)
	LeaveSummary(ctx context.Context, employeeID, periodID int64) (*models.LeaveSummary, error)
	CreatePeriod(ctx context.Context, period *models.PayrollPeriod) error
	FindPeriod(ctx context.Context, id int64) (*models.PayrollPeriod, error)
	ListPeriods(ctx context.Context) ([]models.PayrollPeriod, error)
}

type departmentReader interface {
	FindByID(ctx context.Context, id int64) (*models.Department, error)
}

type documentRenderer interface {
	RenderDocument(title string, sections []export.Section) ([]byte, error)
}

// PayrollConfig tunes payroll projections.
type PayrollConfig struct {
	DefaultWorkingDays int
}

// PayrollService generates and reads department payroll runs.
type PayrollService struct {
	repo        payrollRepository
	departments departmentReader
	pdf         documentRenderer
	cache       *CacheService
	metrics     *MetricsService
	validator   *validator.Validate
	logger      *zap.Logger
	cfg         PayrollConfig
}

// NewPayrollService constructs the service.
func NewPayrollService(repo payrollRepository, departments departmentReader, pdf documentRenderer, cache *CacheService, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger, cfg PayrollConfig) *PayrollService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	if cfg.DefaultWorkingDays <= 0 {
		cfg.DefaultWorkingDays = defaultWorkingDays
	}
	return &PayrollService{repo: repo, departments: departments, pdf: pdf, cache: cache, metrics: metrics, validator: validate, logger: logger, cfg: cfg}
}

// GeneratePayroll stores a payroll run for every employee in req atomically and returns the number of
// employees processed.
func (s *PayrollService) GeneratePayroll(ctx context.Context, departmentID int64, req dto.GeneratePayrollRequest) (int, error) {
	if departmentID <= 0 {
		return 0, appErrors.Clone(appErrors.ErrValidation, "invalid department id")
	}
	if err := s.validator.Struct(req); err != nil {
		return 0, appErrors.Validation(err, "invalid payroll payload")
	}
	batch, err := payrollBatchFromRequest(departmentID, req)
	if err != nil {
		return 0, err
	}

	if _, err := s.departments.FindByID(ctx, departmentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, appErrors.Clone(appErrors.ErrNotFound, "department not found")
		}
		return 0, appErrors.Internal(err, "failed to load department")
	}
	if _, err := s.findPeriod(ctx, req.PeriodID); err != nil {
		return 0, err
	}

	start := time.Now()
	processed, err := s.repo.Generate(ctx, batch)
	s.metrics.ObserveDBQuery("payroll_generate", time.Since(start))
	s.metrics.ObservePayrollBatch(len(batch.Entries), err == nil)
	if err != nil {
		s.logger.Error("payroll batch rolled back",
			zap.Int64("department_id", departmentID),
			zap.Int64("period_id", req.PeriodID),
			zap.Int("employees", len(batch.Entries)),
			zap.Error(err))
		if repository.IsUniqueViolation(err) {
			return 0, appErrors.Wrap(err, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, "payroll already generated for an employee in this period")
		}
		return 0, appErrors.Internal(err, "failed to generate payroll")
	}

	if err := s.cache.Invalidate(ctx, fmt.Sprintf("%s%d:*", exportCachePrefix, req.PeriodID)); err != nil {
		s.logger.Warn("invalidate export cache", zap.Error(err))
	}
	return processed, nil
}

// ListDepartmentPayroll returns the payroll rows of a department for a period with their components.
func (s *PayrollService) ListDepartmentPayroll(ctx context.Context, departmentID, periodID int64) ([]models.PayrollDetail, error) {
	if departmentID <= 0 || periodID <= 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid department or period id")
	}
	start := time.Now()
	items, err := s.repo.List(ctx, repository.PayrollFilter{PeriodID: periodID, DepartmentID: &departmentID})
	s.metrics.ObserveDBQuery("payroll_list", time.Since(start))
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list payroll")
	}
	return items, nil
}

// GetPayslip returns one payroll row with department, period and components.
func (s *PayrollService) GetPayslip(ctx context.Context, payrollID int64) (*models.PayrollDetail, error) {
	if payrollID <= 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid payroll id")
	}
	payslip, err := s.repo.GetPayslip(ctx, payrollID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "payroll record not found")
		}
		return nil, appErrors.Internal(err, "failed to load payslip")
	}
	return payslip, nil
}

// GetPayslipPDF renders a payslip as a PDF document and returns it with a download filename.
func (s *PayrollService) GetPayslipPDF(ctx context.Context, payrollID int64) ([]byte, string, error) {
	payslip, err := s.GetPayslip(ctx, payrollID)
	if err != nil {
		return nil, "", err
	}
	department := "-"
	if payslip.DepartmentName != nil {
		department = *payslip.DepartmentName
	}
	sections := []export.Section{
		{Heading: "Employee", Lines: [][2]string{
			{"Name", payslip.EmployeeName},
			{"Designation", stringOrDash(payslip.Designation)},
			{"ID card", stringOrDash(payslip.IDCardNumber)},
			{"Department", department},
		}},
		{Heading: "Period", Lines: [][2]string{
			{"Name", payslip.PeriodName},
			{"From", payslip.PeriodStartDate.String()},
			{"To", payslip.PeriodEndDate.String()},
			{"Type", string(payslip.PeriodType)},
		}},
		{Heading: "Attendance", Lines: [][2]string{
			{"Working days", fmt.Sprintf("%d", payslip.WorkingDays)},
			{"Leave days", fmt.Sprintf("%d", payslip.LeaveDays)},
			{"Daily rate", payslip.DailyRate.StringFixed(2)},
		}},
		{Heading: "Earnings", Lines: [][2]string{
			{"Basic salary", payslip.BasicSalary.StringFixed(2)},
			{"Working salary", payslip.WorkingSalary.StringFixed(2)},
			{"Leave salary", payslip.LeaveSalary.StringFixed(2)},
			{"Allowances", payslip.Allowances.StringFixed(2)},
			{"Deductions", payslip.Deductions.StringFixed(2)},
			{"Net salary", payslip.NetSalary.StringFixed(2)},
		}},
	}
	if len(payslip.Components) > 0 {
		lines := make([][2]string, 0, len(payslip.Components))
		for _, component := range payslip.Components {
			lines = append(lines, [2]string{fmt.Sprintf("%s (%s)", component.ComponentName, component.ComponentType), component.Amount.StringFixed(2)})
		}
		sections = append(sections, export.Section{Heading: "Components", Lines: lines})
	}

	payload, err := s.pdf.RenderDocument("Payslip", sections)
	if err != nil {
		return nil, "", appErrors.Internal(err, "failed to render payslip")
	}
	return payload, fmt.Sprintf("payslip-%d.pdf", payslip.ID), nil
}

// ListEligibleEmployees returns the active employees of a department with payroll defaults.
func (s *PayrollService) ListEligibleEmployees(ctx context.Context, departmentID int64) ([]models.EligibleEmployee, error) {
	if departmentID <= 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid department id")
	}
	items, err := s.repo.EligibleEmployees(ctx, departmentID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list department employees")
	}
	for i := range items {
		items[i].DefaultWorkingDays = s.cfg.DefaultWorkingDays
		items[i].DefaultLeaveDays = 0
	}
	return items, nil
}

// CreatePeriod stores a payroll period. A blank period type means full_month.
func (s *PayrollService) CreatePeriod(ctx context.Context, req dto.CreatePeriodRequest) (*models.PayrollPeriod, error) {
	req.PeriodType = strings.TrimSpace(req.PeriodType)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "invalid payroll period payload")
	}
	startDate, err := models.ParseDate(req.StartDate)
	if err != nil {
		return nil, appErrors.Validation(err, "invalid start_date")
	}
	endDate, err := models.ParseDate(req.EndDate)
	if err != nil {
		return nil, appErrors.Validation(err, "invalid end_date")
	}
	if endDate.Before(startDate.Time) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "end_date must not be before start_date")
	}
	periodType := models.PeriodType(req.PeriodType)
	if periodType == "" {
		periodType = models.PeriodTypeFullMonth
	}

	period := &models.PayrollPeriod{
		PeriodName: strings.TrimSpace(req.PeriodName),
		StartDate:  startDate,
		EndDate:    endDate,
		PeriodType: periodType,
	}
	if err := s.repo.CreatePeriod(ctx, period); err != nil {
		return nil, appErrors.Internal(err, "failed to create payroll period")
	}
	return period, nil
}

// ListPeriods returns payroll periods, latest first.
func (s *PayrollService) ListPeriods(ctx context.Context) ([]models.PayrollPeriod, error) {
	items, err := s.repo.ListPeriods(ctx)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list payroll periods")
	}
	return items, nil
}

// GetEmployeeLeaveSummary sums approved leave for an employee in a period.
func (s *PayrollService) GetEmployeeLeaveSummary(ctx context.Context, employeeID, periodID int64) (*models.LeaveSummary, error) {
	if employeeID <= 0 || periodID <= 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid employee or period id")
	}
	summary, err := s.repo.LeaveSummary(ctx, employeeID, periodID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to summarise leaves")
	}
	return summary, nil
}

func (s *PayrollService) findPeriod(ctx context.Context, periodID int64) (*models.PayrollPeriod, error) {
	period, err := s.repo.FindPeriod(ctx, periodID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "payroll period not found")
		}
		return nil, appErrors.Internal(err, "failed to load payroll period")
	}
	return period, nil
}

// payrollBatchFromRequest checks every entry before anything is written.
func payrollBatchFromRequest(departmentID int64, req dto.GeneratePayrollRequest) (models.PayrollBatch, error) {
	batch := models.PayrollBatch{
		DepartmentID: departmentID,
		PeriodID:     req.PeriodID,
		Entries:      make([]models.PayrollEntry, 0, len(req.Employees)),
	}
	seen := make(map[int64]struct{}, len(req.Employees))
	for i, item := range req.Employees {
		if _, dup := seen[item.EmployeeID]; dup {
			return models.PayrollBatch{}, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("employees[%d]: employee %d listed twice", i, item.EmployeeID))
		}
		seen[item.EmployeeID] = struct{}{}

		amounts := []struct {
			name  string
			value *decimal.Decimal
		}{
			{"basic_salary", item.BasicSalary},
			{"allowances", item.Allowances},
			{"deductions", item.Deductions},
			{"net_salary", item.NetSalary},
			{"daily_rate", item.DailyRate},
			{"working_salary", item.WorkingSalary},
			{"leave_salary", item.LeaveSalary},
		}
		for _, amount := range amounts {
			if err := requireNonNegative(fmt.Sprintf("employees[%d].%s", i, amount.name), amount.value); err != nil {
				return models.PayrollBatch{}, err
			}
		}

		entry := models.PayrollEntry{
			EmployeeID:    item.EmployeeID,
			BasicSalary:   decimalOrZero(item.BasicSalary),
			Allowances:    decimalOrZero(item.Allowances),
			Deductions:    decimalOrZero(item.Deductions),
			NetSalary:     decimalOrZero(item.NetSalary),
			WorkingDays:   intOrZero(item.WorkingDays),
			LeaveDays:     intOrZero(item.LeaveDays),
			DailyRate:     decimalOrZero(item.DailyRate),
			WorkingSalary: decimalOrZero(item.WorkingSalary),
			LeaveSalary:   decimalOrZero(item.LeaveSalary),
			Components:    make([]models.PayrollComponentEntry, 0, len(item.Components)),
		}
		for j, component := range item.Components {
			if err := requireNonNegative(fmt.Sprintf("employees[%d].components[%d].amount", i, j), component.Amount); err != nil {
				return models.PayrollBatch{}, err
			}
			entry.Components = append(entry.Components, models.PayrollComponentEntry{
				Type:   models.ComponentType(component.ComponentType),
				Name:   strings.TrimSpace(component.ComponentName),
				Amount: decimalOrZero(component.Amount),
			})
		}
		batch.Entries = append(batch.Entries, entry)
	}
	return batch, nil
}

func intOrZero(value *int) int {
	if value == nil {
		return 0
	}
	return *value
}

func stringOrDash(value *string) string {
	if value == nil || *value == "" {
		return "-"
	}
	return *value
}
