package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/salary-api/internal/dto"
	"github.com/noah-isme/salary-api/internal/models"
	"github.com/noah-isme/salary-api/internal/repository"
	appErrors "github.com/noah-isme/salary-api/pkg/errors"
)

const replacementCachePrefix = "replacement:"

type replacementRepository interface {
	Replace(ctx context.Context, params repository.ReplaceParams) (*models.ReplacementResult, error)
	FindByID(ctx context.Context, id int64) (*models.Replacement, error)
	GetDetail(ctx context.Context, id int64) (*models.ReplacementDetail, error)
	ListForEmployee(ctx context.Context, employeeID int64, newestFirst bool) ([]models.ReplacementDetail, error)
	Ancestors(ctx context.Context, employeeID int64) ([]models.ReplacementDetail, error)
	Latest(ctx context.Context, employeeID int64) (*models.ReplacementDetail, error)
	Adjacent(ctx context.Context, current models.Replacement) (*models.ReplacementDetail, *models.ReplacementDetail, error)
}

type employeeReader interface {
	FindByID(ctx context.Context, id int64) (*models.Employee, error)
}

// ReplacementService maintains the employee succession ledger.
type ReplacementService struct {
	repo      replacementRepository
	employees employeeReader
	cache     *CacheService
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewReplacementService constructs the service.
func NewReplacementService(repo replacementRepository, employees employeeReader, cache *CacheService, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *ReplacementService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReplacementService{repo: repo, employees: employees, cache: cache, metrics: metrics, validator: validate, logger: logger}
}

// ReplaceEmployee retires oldEmployeeID and records the successor described by req.
func (s *ReplacementService) ReplaceEmployee(ctx context.Context, oldEmployeeID int64, req dto.ReplaceEmployeeRequest) (*models.ReplacementResult, error) {
	if oldEmployeeID <= 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid employee id")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "invalid replacement payload")
	}
	newEmployee, err := employeeFromRequest(req.EmployeeRequest)
	if err != nil {
		return nil, err
	}

	old, err := s.employees.FindByID(ctx, oldEmployeeID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "employee not found")
		}
		return nil, appErrors.Internal(err, "failed to load employee")
	}

	if req.PreviousReplacementID != nil {
		previous, err := s.repo.FindByID(ctx, *req.PreviousReplacementID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrNotFound, "previous replacement not found")
			}
			return nil, appErrors.Internal(err, "failed to load previous replacement")
		}
		if previous.NewEmployeeID != oldEmployeeID {
			return nil, appErrors.Clone(appErrors.ErrValidation, "previous replacement does not end at this employee")
		}
	}

	if !old.IsActive {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "employee is already inactive")
	}

	start := time.Now()
	result, err := s.repo.Replace(ctx, repository.ReplaceParams{
		OldEmployeeID:         oldEmployeeID,
		NewEmployee:           newEmployee,
		Reason:                req.Reason,
		PreviousReplacementID: req.PreviousReplacementID,
	})
	s.metrics.ObserveDBQuery("replacement_replace", time.Since(start))
	s.metrics.RecordReplacement(err == nil)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrReplacementLinked):
			return nil, appErrors.Wrap(err, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, "previous replacement already has a successor")
		case errors.Is(err, sql.ErrNoRows):
			return nil, appErrors.Clone(appErrors.ErrNotFound, "previous replacement not found")
		case repository.IsUniqueViolation(err):
			return nil, appErrors.Wrap(err, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, "replacement chain link already taken")
		}
		s.logger.Error("replace employee rolled back", zap.Int64("old_employee_id", oldEmployeeID), zap.Error(err))
		return nil, appErrors.Internal(err, "failed to replace employee")
	}

	s.invalidateChains(ctx)
	return result, nil
}

// GetReplacementHistory lists every edge touching the employee, newest first.
func (s *ReplacementService) GetReplacementHistory(ctx context.Context, employeeID int64) ([]models.ReplacementDetail, error) {
	if employeeID <= 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid employee id")
	}
	start := time.Now()
	items, err := s.repo.ListForEmployee(ctx, employeeID, true)
	s.metrics.ObserveDBQuery("replacement_history", time.Since(start))
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load replacement history")
	}
	return items, nil
}

// GetReplacementChain returns the ancestors of the employee, most distant first. An employee that was never
// a successor gets every edge touching it, oldest first. The boolean reports a cache hit.
func (s *ReplacementService) GetReplacementChain(ctx context.Context, employeeID int64) ([]models.ReplacementDetail, bool, error) {
	if employeeID <= 0 {
		return nil, false, appErrors.Clone(appErrors.ErrValidation, "invalid employee id")
	}
	cacheKey := fmt.Sprintf("%schain:%d", replacementCachePrefix, employeeID)
	var cached []models.ReplacementDetail
	if hit, err := s.cache.Get(ctx, cacheKey, &cached); err != nil {
		s.logger.Warn("replacement chain cache lookup failed", zap.Int64("employee_id", employeeID), zap.Error(err))
	} else if hit {
		return cached, true, nil
	}

	start := time.Now()
	chain, err := s.repo.Ancestors(ctx, employeeID)
	if err == nil && len(chain) == 0 {
		chain, err = s.repo.ListForEmployee(ctx, employeeID, false)
	}
	s.metrics.ObserveDBQuery("replacement_chain", time.Since(start))
	if err != nil {
		return nil, false, appErrors.Internal(err, "failed to load replacement chain")
	}

	if err := s.cache.Set(ctx, cacheKey, chain, 0); err != nil {
		s.logger.Warn("cache replacement chain", zap.Error(err))
	}
	return chain, false, nil
}

// GetLatestReplacement returns the most recent edge touching the employee.
func (s *ReplacementService) GetLatestReplacement(ctx context.Context, employeeID int64) (*models.ReplacementDetail, error) {
	if employeeID <= 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid employee id")
	}
	latest, err := s.repo.Latest(ctx, employeeID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load latest replacement")
	}
	if latest == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "no replacement history found")
	}
	return latest, nil
}

// GetAdjacentReplacements returns the edge with its predecessor and successor edges.
func (s *ReplacementService) GetAdjacentReplacements(ctx context.Context, replacementID int64) (*models.AdjacentReplacements, error) {
	current, err := s.GetReplacementByID(ctx, replacementID)
	if err != nil {
		return nil, err
	}
	previous, next, err := s.repo.Adjacent(ctx, current.Replacement)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load adjacent replacements")
	}
	return &models.AdjacentReplacements{Current: *current, Previous: previous, Next: next}, nil
}

// GetReplacementByID returns one edge with names and neighbour links.
func (s *ReplacementService) GetReplacementByID(ctx context.Context, replacementID int64) (*models.ReplacementDetail, error) {
	if replacementID <= 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid replacement id")
	}
	detail, err := s.repo.GetDetail(ctx, replacementID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "replacement not found")
		}
		return nil, appErrors.Internal(err, "failed to load replacement")
	}
	return detail, nil
}

func (s *ReplacementService) invalidateChains(ctx context.Context) {
	if err := s.cache.Invalidate(ctx, replacementCachePrefix+"*"); err != nil {
		s.logger.Warn("invalidate replacement cache", zap.Error(err))
	}
}
