package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
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

const (
	kharchaCachePrefix  = "kharcha:"
	defaultKharchaLimit = 50
	maxKharchaLimit     = 200
)

type kharchaRepository interface {
	FindByID(ctx context.Context, id int64) (*models.KharchaDetail, error)
	FindDuplicate(ctx context.Context, k models.Kharcha, excludeID *int64) (*int64, error)
	Create(ctx context.Context, k *models.Kharcha) error
	Update(ctx context.Context, id int64, changes models.KharchaChanges) error
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context, filter models.KharchaFilter, order repository.KharchaOrder) ([]models.KharchaDetail, int, error)
	BulkCreate(ctx context.Context, items []repository.BulkKharchaItem) ([]models.Kharcha, []models.BulkKharchaFailure, error)
	Summary(ctx context.Context, filter models.KharchaFilter) (*models.KharchaSummary, error)
	DepartmentSummary(ctx context.Context, periodID *int64) ([]models.DepartmentKharchaSummary, error)
	PeriodSummary(ctx context.Context) ([]models.PeriodKharchaSummary, error)
}

type periodReader interface {
	FindPeriod(ctx context.Context, id int64) (*models.PayrollPeriod, error)
}

type datasetRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

// KharchaService books department and individual expenses against payroll periods.
type KharchaService struct {
	repo        kharchaRepository
	periods     periodReader
	departments departmentReader
	employees   employeeReader
	csv         datasetRenderer
	cache       *CacheService
	metrics     *MetricsService
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewKharchaService constructs the service.
func NewKharchaService(repo kharchaRepository, periods periodReader, departments departmentReader, employees employeeReader, csv datasetRenderer, cache *CacheService, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *KharchaService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	return &KharchaService{
		repo:        repo,
		periods:     periods,
		departments: departments,
		employees:   employees,
		csv:         csv,
		cache:       cache,
		metrics:     metrics,
		validator:   validate,
		logger:      logger,
	}
}

// Create books a kharcha. Individual kharcha are charged to the employee's current department.
func (s *KharchaService) Create(ctx context.Context, req dto.CreateKharchaRequest) (*models.KharchaDetail, error) {
	kharcha, err := s.prepare(ctx, req)
	if err != nil {
		return nil, err
	}

	existing, err := s.repo.FindDuplicate(ctx, kharcha, nil)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to check duplicate kharcha")
	}
	if existing != nil {
		return nil, duplicateKharchaError(kharcha.Type, *existing)
	}

	start := time.Now()
	err = s.repo.Create(ctx, &kharcha)
	s.metrics.ObserveDBQuery("kharcha_create", time.Since(start))
	if err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, appErrors.Wrap(err, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, duplicateKharchaMessage(kharcha.Type))
		}
		return nil, appErrors.Internal(err, "failed to create kharcha")
	}
	s.invalidate(ctx)
	return s.Get(ctx, kharcha.ID)
}

// Get returns one kharcha with its labels.
func (s *KharchaService) Get(ctx context.Context, id int64) (*models.KharchaDetail, error) {
	if id <= 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid kharcha id")
	}
	detail, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "kharcha record not found")
		}
		return nil, appErrors.Internal(err, "failed to load kharcha")
	}
	return detail, nil
}

// Update applies a partial change. Moving an entry onto a department and period that already has one is a
// conflict.
func (s *KharchaService) Update(ctx context.Context, id int64, req dto.UpdateKharchaRequest) (*models.KharchaDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "invalid kharcha payload")
	}
	changes := models.KharchaChanges{
		DepartmentID: req.DepartmentID,
		Amount:       req.Amount,
		PeriodID:     req.PeriodID,
		Description:  req.Description,
	}
	if req.Date != nil {
		date, err := models.ParseDate(*req.Date)
		if err != nil {
			return nil, appErrors.Validation(err, "invalid date")
		}
		changes.Date = &date
	}
	if changes.Empty() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "no fields to update")
	}
	if changes.Amount != nil && !changes.Amount.IsPositive() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "valid amount is required")
	}

	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if changes.DepartmentID != nil && current.Type == models.KharchaIndividual && *changes.DepartmentID != current.DepartmentID {
		return nil, appErrors.Clone(appErrors.ErrValidation, "department of an individual kharcha follows its employee")
	}
	if changes.PeriodID != nil {
		if err := s.requirePeriod(ctx, *changes.PeriodID); err != nil {
			return nil, err
		}
	}
	if changes.DepartmentID != nil {
		if err := s.requireDepartment(ctx, *changes.DepartmentID); err != nil {
			return nil, err
		}
	}

	if changes.DepartmentID != nil || changes.PeriodID != nil {
		candidate := current.Kharcha
		if changes.DepartmentID != nil {
			candidate.DepartmentID = *changes.DepartmentID
		}
		if changes.PeriodID != nil {
			candidate.PeriodID = *changes.PeriodID
		}
		existing, err := s.repo.FindDuplicate(ctx, candidate, &id)
		if err != nil {
			return nil, appErrors.Internal(err, "failed to check duplicate kharcha")
		}
		if existing != nil {
			return nil, duplicateKharchaError(candidate.Type, *existing)
		}
	}

	if err := s.repo.Update(ctx, id, changes); err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, appErrors.Clone(appErrors.ErrNotFound, "kharcha record not found")
		case repository.IsUniqueViolation(err):
			return nil, appErrors.Wrap(err, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, duplicateKharchaMessage(current.Type))
		}
		return nil, appErrors.Internal(err, "failed to update kharcha")
	}
	s.invalidate(ctx)
	return s.Get(ctx, id)
}

// Delete removes a kharcha.
func (s *KharchaService) Delete(ctx context.Context, id int64) error {
	if id <= 0 {
		return appErrors.Clone(appErrors.ErrValidation, "invalid kharcha id")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "kharcha record not found")
		}
		return appErrors.Internal(err, "failed to delete kharcha")
	}
	s.invalidate(ctx)
	return nil
}

// List returns a filtered page of kharcha, newest first.
func (s *KharchaService) List(ctx context.Context, query dto.KharchaQuery) (*dto.KharchaListResponse, error) {
	filter, err := s.filterFromQuery(query)
	if err != nil {
		return nil, err
	}
	filter.Year = nil
	return s.page(ctx, "kharcha_list", filter, repository.KharchaOrderRecent)
}

// ListByDepartment returns a department's kharcha grouped by period, optionally narrowed by period or year.
func (s *KharchaService) ListByDepartment(ctx context.Context, departmentID int64, query dto.KharchaQuery) (*dto.KharchaListResponse, error) {
	if departmentID <= 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid department id")
	}
	filter, err := s.filterFromQuery(dto.KharchaQuery{PeriodID: query.PeriodID, Year: query.Year, Page: query.Page, Limit: query.Limit})
	if err != nil {
		return nil, err
	}
	filter.DepartmentID = &departmentID
	return s.page(ctx, "kharcha_by_department", filter, repository.KharchaOrderPeriod)
}

// ListByPeriod returns a period's kharcha, largest amounts first.
func (s *KharchaService) ListByPeriod(ctx context.Context, periodID int64, page, limit int) (*dto.KharchaListResponse, error) {
	if periodID <= 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid period id")
	}
	filter, err := s.filterFromQuery(dto.KharchaQuery{Page: page, Limit: limit})
	if err != nil {
		return nil, err
	}
	filter.PeriodID = &periodID
	resp, err := s.page(ctx, "kharcha_by_period", filter, repository.KharchaOrderAmount)
	if err != nil {
		return nil, err
	}
	resp.PeriodID = &periodID
	return resp, nil
}

// Summary aggregates kharcha for an optional period and department. The boolean reports a cache hit.
func (s *KharchaService) Summary(ctx context.Context, periodID, departmentID *int64) (*models.KharchaSummary, bool, error) {
	key := fmt.Sprintf("%ssummary:%s:%s", kharchaCachePrefix, idOrAll(periodID), idOrAll(departmentID))
	var cached models.KharchaSummary
	if s.cachedInto(ctx, key, &cached) {
		return &cached, true, nil
	}
	start := time.Now()
	summary, err := s.repo.Summary(ctx, models.KharchaFilter{PeriodID: periodID, DepartmentID: departmentID})
	s.metrics.ObserveDBQuery("kharcha_summary", time.Since(start))
	if err != nil {
		return nil, false, appErrors.Internal(err, "failed to summarise kharcha")
	}
	s.store(ctx, key, summary)
	return summary, false, nil
}

// DepartmentSummary totals kharcha per department for an optional period.
func (s *KharchaService) DepartmentSummary(ctx context.Context, periodID *int64) ([]models.DepartmentKharchaSummary, bool, error) {
	key := fmt.Sprintf("%sdepartments:%s", kharchaCachePrefix, idOrAll(periodID))
	var cached []models.DepartmentKharchaSummary
	if s.cachedInto(ctx, key, &cached) {
		return cached, true, nil
	}
	start := time.Now()
	items, err := s.repo.DepartmentSummary(ctx, periodID)
	s.metrics.ObserveDBQuery("kharcha_department_summary", time.Since(start))
	if err != nil {
		return nil, false, appErrors.Internal(err, "failed to summarise kharcha by department")
	}
	s.store(ctx, key, items)
	return items, false, nil
}

// PeriodSummary totals kharcha per payroll period.
func (s *KharchaService) PeriodSummary(ctx context.Context) ([]models.PeriodKharchaSummary, bool, error) {
	key := kharchaCachePrefix + "periods"
	var cached []models.PeriodKharchaSummary
	if s.cachedInto(ctx, key, &cached) {
		return cached, true, nil
	}
	start := time.Now()
	items, err := s.repo.PeriodSummary(ctx)
	s.metrics.ObserveDBQuery("kharcha_period_summary", time.Since(start))
	if err != nil {
		return nil, false, appErrors.Internal(err, "failed to summarise kharcha by period")
	}
	s.store(ctx, key, items)
	return items, false, nil
}

// BulkCreate books many kharcha in one transaction. Invalid and duplicate items are reported without
// stopping the rest.
func (s *KharchaService) BulkCreate(ctx context.Context, req dto.BulkKharchaRequest) (*models.BulkKharchaResult, error) {
	if len(req.Kharchas) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "kharchas array is required")
	}

	items := make([]repository.BulkKharchaItem, 0, len(req.Kharchas))
	failed := make([]models.BulkKharchaFailure, 0)
	for i, item := range req.Kharchas {
		kharcha, err := s.prepare(ctx, item)
		if err != nil {
			appErr := appErrors.FromError(err)
			if appErr.Status >= 500 {
				return nil, err
			}
			failed = append(failed, models.BulkKharchaFailure{Index: i, Error: appErr.Message})
			continue
		}
		items = append(items, repository.BulkKharchaItem{Index: i, Kharcha: kharcha})
	}

	successful := make([]models.Kharcha, 0)
	if len(items) > 0 {
		start := time.Now()
		stored, rejected, err := s.repo.BulkCreate(ctx, items)
		s.metrics.ObserveDBQuery("kharcha_bulk_create", time.Since(start))
		if err != nil {
			s.logger.Error("bulk kharcha rolled back", zap.Int("items", len(items)), zap.Error(err))
			return nil, appErrors.Internal(err, "failed to store kharcha batch")
		}
		successful = stored
		failed = append(failed, rejected...)
	}
	sort.SliceStable(failed, func(i, j int) bool { return failed[i].Index < failed[j].Index })

	if len(successful) > 0 {
		s.invalidate(ctx)
	}
	return &models.BulkKharchaResult{
		Successful: successful,
		Failed:     failed,
		Summary: models.BulkKharchaSummary{
			Total:      len(req.Kharchas),
			Successful: len(successful),
			Failed:     len(failed),
		},
	}, nil
}

// ExportCSV renders every kharcha matching the filter as CSV.
func (s *KharchaService) ExportCSV(ctx context.Context, query dto.KharchaQuery) ([]byte, string, error) {
	filter, err := s.filterFromQuery(query)
	if err != nil {
		return nil, "", err
	}
	filter.Page, filter.Limit = 0, 0
	items, _, err := s.repo.List(ctx, filter, repository.KharchaOrderRecent)
	if err != nil {
		return nil, "", appErrors.Internal(err, "failed to load kharcha for export")
	}
	payload, err := s.csv.Render(kharchaDataset(items, ""))
	if err != nil {
		return nil, "", appErrors.Internal(err, "failed to render kharcha export")
	}
	return payload, fmt.Sprintf("kharcha-%s.csv", time.Now().UTC().Format("20060102-150405")), nil
}

// prepare validates a create payload and resolves its department.
func (s *KharchaService) prepare(ctx context.Context, req dto.CreateKharchaRequest) (models.Kharcha, error) {
	if strings.TrimSpace(req.KharchaType) == "" {
		req.KharchaType = string(models.KharchaDepartment)
	}
	if err := s.validator.Struct(req); err != nil {
		return models.Kharcha{}, appErrors.Validation(err, "invalid kharcha payload")
	}
	kharchaType := models.KharchaType(req.KharchaType)
	switch {
	case kharchaType == models.KharchaDepartment && req.DepartmentID == nil:
		return models.Kharcha{}, appErrors.Clone(appErrors.ErrValidation, "department id is required for department kharcha")
	case kharchaType == models.KharchaIndividual && req.EmployeeID == nil:
		return models.Kharcha{}, appErrors.Clone(appErrors.ErrValidation, "employee id is required for individual kharcha")
	case req.PeriodID == nil:
		return models.Kharcha{}, appErrors.Clone(appErrors.ErrValidation, "period id is required")
	case req.Amount == nil || !req.Amount.IsPositive():
		return models.Kharcha{}, appErrors.Clone(appErrors.ErrValidation, "valid amount is required")
	case strings.TrimSpace(req.Date) == "":
		return models.Kharcha{}, appErrors.Clone(appErrors.ErrValidation, "date is required")
	}
	date, err := models.ParseDate(req.Date)
	if err != nil {
		return models.Kharcha{}, appErrors.Validation(err, "invalid date")
	}

	if err := s.requirePeriod(ctx, *req.PeriodID); err != nil {
		return models.Kharcha{}, err
	}

	kharcha := models.Kharcha{
		Type:        kharchaType,
		Amount:      *req.Amount,
		Date:        date,
		PeriodID:    *req.PeriodID,
		Description: req.Description,
	}
	if kharchaType == models.KharchaDepartment {
		if err := s.requireDepartment(ctx, *req.DepartmentID); err != nil {
			return models.Kharcha{}, err
		}
		kharcha.DepartmentID = *req.DepartmentID
		return kharcha, nil
	}

	employee, err := s.employees.FindByID(ctx, *req.EmployeeID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Kharcha{}, appErrors.Clone(appErrors.ErrNotFound, "employee not found")
		}
		return models.Kharcha{}, appErrors.Internal(err, "failed to load employee")
	}
	if employee.DepartmentID == nil {
		return models.Kharcha{}, appErrors.Clone(appErrors.ErrValidation, "employee is not assigned to a department")
	}
	kharcha.EmployeeID = req.EmployeeID
	kharcha.DepartmentID = *employee.DepartmentID
	return kharcha, nil
}

func (s *KharchaService) requirePeriod(ctx context.Context, periodID int64) error {
	if _, err := s.periods.FindPeriod(ctx, periodID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "payroll period not found")
		}
		return appErrors.Internal(err, "failed to load payroll period")
	}
	return nil
}

func (s *KharchaService) requireDepartment(ctx context.Context, departmentID int64) error {
	if _, err := s.departments.FindByID(ctx, departmentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "department not found")
		}
		return appErrors.Internal(err, "failed to load department")
	}
	return nil
}

func (s *KharchaService) filterFromQuery(query dto.KharchaQuery) (models.KharchaFilter, error) {
	if err := s.validator.Struct(query); err != nil {
		return models.KharchaFilter{}, appErrors.Validation(err, "invalid kharcha filters")
	}
	filter := models.KharchaFilter{
		DepartmentID: query.DepartmentID,
		EmployeeID:   query.EmployeeID,
		PeriodID:     query.PeriodID,
		Year:         query.Year,
		Page:         query.Page,
		Limit:        query.Limit,
	}
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit <= 0 {
		filter.Limit = defaultKharchaLimit
	}
	if filter.Limit > maxKharchaLimit {
		filter.Limit = maxKharchaLimit
	}
	if query.StartDate != "" {
		date, err := models.ParseDate(query.StartDate)
		if err != nil {
			return models.KharchaFilter{}, appErrors.Validation(err, "invalid start_date")
		}
		filter.StartDate = &date
	}
	if query.EndDate != "" {
		date, err := models.ParseDate(query.EndDate)
		if err != nil {
			return models.KharchaFilter{}, appErrors.Validation(err, "invalid end_date")
		}
		filter.EndDate = &date
	}
	return filter, nil
}

func (s *KharchaService) page(ctx context.Context, label string, filter models.KharchaFilter, order repository.KharchaOrder) (*dto.KharchaListResponse, error) {
	start := time.Now()
	items, total, err := s.repo.List(ctx, filter, order)
	s.metrics.ObserveDBQuery(label, time.Since(start))
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list kharcha")
	}
	pages := (total + filter.Limit - 1) / filter.Limit
	return &dto.KharchaListResponse{
		Kharchas: items,
		Pagination: dto.KharchaPagination{
			Page:  filter.Page,
			Limit: filter.Limit,
			Total: total,
			Pages: pages,
		},
	}, nil
}

func (s *KharchaService) cachedInto(ctx context.Context, key string, dest interface{}) bool {
	hit, err := s.cache.Get(ctx, key, dest)
	if err != nil {
		s.logger.Warn("kharcha cache lookup failed", zap.String("key", key), zap.Error(err))
		return false
	}
	return hit
}

func (s *KharchaService) store(ctx context.Context, key string, value interface{}) {
	if err := s.cache.Set(ctx, key, value, 0); err != nil {
		s.logger.Warn("cache kharcha stats", zap.String("key", key), zap.Error(err))
	}
}

func (s *KharchaService) invalidate(ctx context.Context) {
	if err := s.cache.Invalidate(ctx, kharchaCachePrefix+"*"); err != nil {
		s.logger.Warn("invalidate kharcha cache", zap.Error(err))
	}
	if err := s.cache.Invalidate(ctx, exportCachePrefix+"*"); err != nil {
		s.logger.Warn("invalidate export cache", zap.Error(err))
	}
}

func duplicateKharchaMessage(kharchaType models.KharchaType) string {
	if kharchaType == models.KharchaIndividual {
		return "kharcha already exists for this employee in the selected period"
	}
	return "kharcha already exists for this department in the selected period"
}

func duplicateKharchaError(kharchaType models.KharchaType, existingID int64) error {
	appErr := appErrors.Clone(appErrors.ErrConflict, duplicateKharchaMessage(kharchaType))
	appErr.Details = fmt.Sprintf("existing_id=%d", existingID)
	return appErr
}

func idOrAll(id *int64) string {
	if id == nil {
		return "all"
	}
	return fmt.Sprintf("%d", *id)
}

// kharchaDataset flattens kharcha rows for the CSV, PDF and XLSX renderers.
func kharchaDataset(items []models.KharchaDetail, groupBy string) export.Dataset {
	headers := []string{"ID", "Type", "Department", "Employee", "Period", "Date", "Amount", "Description"}
	rows := make([]map[string]string, 0, len(items))
	total := decimal.Zero
	for _, item := range items {
		rows = append(rows, map[string]string{
			"ID":          fmt.Sprintf("%d", item.ID),
			"Type":        string(item.Type),
			"Department":  stringOrDash(item.DepartmentName),
			"Employee":    stringOrDash(item.EmployeeName),
			"Period":      stringOrDash(item.PeriodName),
			"Date":        item.Date.String(),
			"Amount":      item.Amount.StringFixed(2),
			"Description": stringOrDash(item.Description),
		})
		total = total.Add(item.Amount)
	}
	return export.Dataset{
		Headers: headers,
		Rows:    rows,
		GroupBy: groupBy,
		Totals:  map[string]string{"ID": "Total", "Amount": total.StringFixed(2)},
	}
}
