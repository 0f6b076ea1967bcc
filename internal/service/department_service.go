package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/salary-api/internal/dto"
	"github.com/noah-isme/salary-api/internal/models"
	"github.com/noah-isme/salary-api/internal/repository"
	appErrors "github.com/noah-isme/salary-api/pkg/errors"
)

type departmentRepository interface {
	List(ctx context.Context) ([]models.Department, error)
	FindByID(ctx context.Context, id int64) (*models.Department, error)
	Create(ctx context.Context, department *models.Department) error
	Delete(ctx context.Context, id int64) error
	Update(ctx context.Context, id int64, changes models.DepartmentChanges) (*models.DepartmentUpdateResult, error)
	SalaryHistory(ctx context.Context, departmentID int64) ([]models.DepartmentSalaryHistory, error)
}

// DepartmentService manages departments and their salary budget history.
type DepartmentService struct {
	repo      departmentRepository
	cache     *CacheService
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewDepartmentService constructs the service.
func NewDepartmentService(repo departmentRepository, cache *CacheService, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *DepartmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DepartmentService{repo: repo, cache: cache, metrics: metrics, validator: validate, logger: logger}
}

// List returns every department.
func (s *DepartmentService) List(ctx context.Context) ([]models.Department, error) {
	items, err := s.repo.List(ctx)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list departments")
	}
	return items, nil
}

// Get returns one department.
func (s *DepartmentService) Get(ctx context.Context, id int64) (*models.Department, error) {
	if id <= 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid department id")
	}
	department, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "department not found")
		}
		return nil, appErrors.Internal(err, "failed to load department")
	}
	return department, nil
}

// Create stores a department. The salary budget defaults to zero.
func (s *DepartmentService) Create(ctx context.Context, req dto.CreateDepartmentRequest) (*models.Department, error) {
	req.Name = strings.TrimSpace(req.Name)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "department name is required")
	}
	if err := requireNonNegative("total_salary", req.TotalSalary); err != nil {
		return nil, err
	}
	department := &models.Department{
		Name:        req.Name,
		Description: req.Description,
		TotalSalary: decimalOrZero(req.TotalSalary),
	}
	if err := s.repo.Create(ctx, department); err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, appErrors.Wrap(err, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, "department already exists")
		}
		return nil, appErrors.Internal(err, "failed to create department")
	}
	return department, nil
}

// Update applies a partial change and records salary history when the budget moves.
func (s *DepartmentService) Update(ctx context.Context, id int64, req dto.UpdateDepartmentRequest) (*models.DepartmentUpdateResult, error) {
	if id <= 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid department id")
	}
	if req.Name != nil {
		trimmed := strings.TrimSpace(*req.Name)
		req.Name = &trimmed
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "invalid department payload")
	}
	if err := requireNonNegative("total_salary", req.TotalSalary); err != nil {
		return nil, err
	}

	start := time.Now()
	result, err := s.repo.Update(ctx, id, models.DepartmentChanges{
		Name:        req.Name,
		Description: req.Description,
		TotalSalary: req.TotalSalary,
	})
	s.metrics.ObserveDBQuery("department_update", time.Since(start))
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, appErrors.Clone(appErrors.ErrNotFound, "department not found")
		case repository.IsUniqueViolation(err):
			return nil, appErrors.Wrap(err, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, "department name already in use")
		}
		s.logger.Error("department update rolled back", zap.Int64("department_id", id), zap.Error(err))
		return nil, appErrors.Internal(err, "failed to update department")
	}
	if result.SalaryChanged {
		s.invalidateStats(ctx)
	}
	return result, nil
}

// Delete removes a department.
func (s *DepartmentService) Delete(ctx context.Context, id int64) error {
	if id <= 0 {
		return appErrors.Clone(appErrors.ErrValidation, "invalid department id")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return appErrors.Clone(appErrors.ErrNotFound, "department not found")
		case repository.IsForeignKeyViolation(err):
			return appErrors.Wrap(err, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, "department is referenced by payroll or kharcha records")
		}
		return appErrors.Internal(err, "failed to delete department")
	}
	s.invalidateStats(ctx)
	return nil
}

// SalaryHistory lists budget changes of a department, newest first.
func (s *DepartmentService) SalaryHistory(ctx context.Context, id int64) ([]models.DepartmentSalaryHistory, error) {
	if id <= 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid department id")
	}
	items, err := s.repo.SalaryHistory(ctx, id)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load salary history")
	}
	return items, nil
}

// invalidateStats drops kharcha statistics, which report department budgets.
func (s *DepartmentService) invalidateStats(ctx context.Context) {
	if err := s.cache.Invalidate(ctx, kharchaCachePrefix+"*"); err != nil {
		s.logger.Warn("invalidate kharcha stats cache", zap.Error(err))
	}
}
