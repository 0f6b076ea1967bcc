package service

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/noah-isme/salary-api/internal/models"
	"github.com/noah-isme/salary-api/internal/repository"
	"github.com/noah-isme/salary-api/pkg/export"
	"github.com/noah-isme/salary-api/pkg/storage"
)

const exportCachePrefix = "export:"

type payrollLister interface {
	List(ctx context.Context, filter repository.PayrollFilter) ([]models.PayrollDetail, error)
}

type kharchaLister interface {
	List(ctx context.Context, filter models.KharchaFilter, order repository.KharchaOrder) ([]models.KharchaDetail, int, error)
}

type fileStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
	Delete(filename string) error
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

type titledRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	APIPrefix string
	ResultTTL time.Duration
}

// ExportResult captures successful generation metadata.
type ExportResult struct {
	RelativePath string
	Token        string
	URL          string
	Format       models.ExportFormat
	ExpiresAt    time.Time
}

// ExportService builds register datasets and persists rendered files.
type ExportService struct {
	payroll payrollLister
	kharcha kharchaLister
	storage fileStorage
	csv     datasetRenderer
	pdf     titledRenderer
	xlsx    titledRenderer
	signer  *storage.SignedURLSigner
	cache   *CacheService
	logger  *zap.Logger
	cfg     ExportConfig
}

// NewExportService constructs an ExportService. Nil renderers fall back to the pkg/export implementations.
func NewExportService(payroll payrollLister, kharcha kharchaLister, store fileStorage, signer *storage.SignedURLSigner, cache *CacheService, cfg ExportConfig, logger *zap.Logger, csv datasetRenderer, pdf, xlsx titledRenderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	if xlsx == nil {
		xlsx = export.NewXLSXExporter()
	}
	return &ExportService{
		payroll: payroll,
		kharcha: kharcha,
		storage: store,
		csv:     csv,
		pdf:     pdf,
		xlsx:    xlsx,
		signer:  signer,
		cache:   cache,
		logger:  logger,
		cfg:     cfg,
	}
}

// Generate renders the job's register in its format, stores it and signs a download URL.
func (s *ExportService) Generate(ctx context.Context, job *models.ExportJob) (*ExportResult, error) {
	if job == nil {
		return nil, fmt.Errorf("export job is nil")
	}
	dataset, title, err := s.buildDataset(ctx, job)
	if err != nil {
		return nil, err
	}

	var payload []byte
	switch job.Params.Format {
	case models.ExportFormatCSV:
		payload, err = s.csv.Render(dataset)
	case models.ExportFormatPDF:
		payload, err = s.pdf.Render(dataset, title)
	case models.ExportFormatXLSX:
		payload, err = s.xlsx.Render(dataset, title)
	default:
		err = fmt.Errorf("unsupported format %s", job.Params.Format)
	}
	if err != nil {
		return nil, err
	}

	relPath, err := s.storage.Save(s.buildFilename(job), payload)
	if err != nil {
		return nil, err
	}

	token, expiresAt, err := s.signer.Sign(job.ID, string(job.Type), relPath)
	if err != nil {
		return nil, err
	}
	prefix := strings.TrimRight(s.cfg.APIPrefix, "/")
	if prefix == "" {
		prefix = "/api/v1"
	}

	return &ExportResult{
		RelativePath: relPath,
		Token:        token,
		URL:          fmt.Sprintf("%s/exports/download/%s", prefix, token),
		Format:       job.Params.Format,
		ExpiresAt:    expiresAt,
	}, nil
}

// ParseToken verifies a download token and returns what it grants.
func (s *ExportService) ParseToken(token string, allowExpired bool) (storage.DownloadGrant, error) {
	return s.signer.Verify(token, allowExpired)
}

// Open returns a handle to the stored file.
func (s *ExportService) Open(relPath string) (*os.File, error) {
	return s.storage.Open(relPath)
}

// Delete removes a stored export file.
func (s *ExportService) Delete(relPath string) error {
	return s.storage.Delete(relPath)
}

// Cleanup removes files older than ttl, or the configured result TTL when ttl <= 0.
func (s *ExportService) Cleanup(ttl time.Duration) ([]string, error) {
	if ttl <= 0 {
		ttl = s.cfg.ResultTTL
	}
	return s.storage.CleanupOlderThan(ttl)
}

func (s *ExportService) buildFilename(job *models.ExportJob) string {
	timestamp := time.Now().UTC().Format("20060102_150405")
	scope := fmt.Sprintf("period-%d", job.Params.PeriodID)
	if job.Params.DepartmentID != nil {
		scope += fmt.Sprintf("_department-%d", *job.Params.DepartmentID)
	}
	return fmt.Sprintf("%s_%s_%s.%s", job.Type, sanitizeFilename(scope), timestamp, job.Params.Format)
}

func sanitizeFilename(raw string) string {
	if raw == "" {
		return "na"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "-", "\\", "-", ":", "-", "..", ".", "__", "_")
	result := replacer.Replace(raw)
	if len(result) > 100 {
		return result[:100]
	}
	return result
}

func (s *ExportService) buildDataset(ctx context.Context, job *models.ExportJob) (export.Dataset, string, error) {
	params := job.Params
	switch job.Type {
	case models.ExportPayrollRegister:
		rows, err := s.payrollRows(ctx, params)
		if err != nil {
			return export.Dataset{}, "", err
		}
		return payrollDataset(rows), fmt.Sprintf("Payroll Register - Period %d", params.PeriodID), nil
	case models.ExportKharchaRegister:
		rows, err := s.kharchaRows(ctx, params)
		if err != nil {
			return export.Dataset{}, "", err
		}
		return kharchaDataset(rows, "Department"), fmt.Sprintf("Kharcha Register - Period %d", params.PeriodID), nil
	default:
		return export.Dataset{}, "", fmt.Errorf("unsupported export type %s", job.Type)
	}
}

func (s *ExportService) payrollRows(ctx context.Context, params models.ExportJobParams) ([]models.PayrollDetail, error) {
	key := exportCacheKey(models.ExportPayrollRegister, params)
	var rows []models.PayrollDetail
	if hit, err := s.cache.Get(ctx, key, &rows); err == nil && hit {
		return rows, nil
	}
	rows, err := s.payroll.List(ctx, repository.PayrollFilter{PeriodID: params.PeriodID, DepartmentID: params.DepartmentID})
	if err != nil {
		return nil, fmt.Errorf("load payroll register: %w", err)
	}
	if err := s.cache.Set(ctx, key, rows, 0); err != nil {
		s.logger.Warn("cache payroll register", zap.Error(err))
	}
	return rows, nil
}

func (s *ExportService) kharchaRows(ctx context.Context, params models.ExportJobParams) ([]models.KharchaDetail, error) {
	key := exportCacheKey(models.ExportKharchaRegister, params)
	var rows []models.KharchaDetail
	if hit, err := s.cache.Get(ctx, key, &rows); err == nil && hit {
		return rows, nil
	}
	periodID := params.PeriodID
	rows, _, err := s.kharcha.List(ctx, models.KharchaFilter{PeriodID: &periodID, DepartmentID: params.DepartmentID}, repository.KharchaOrderAmount)
	if err != nil {
		return nil, fmt.Errorf("load kharcha register: %w", err)
	}
	if err := s.cache.Set(ctx, key, rows, 0); err != nil {
		s.logger.Warn("cache kharcha register", zap.Error(err))
	}
	return rows, nil
}

// exportCacheKey starts with the period so a payroll run can drop every register of its period.
func exportCacheKey(exportType models.ExportType, params models.ExportJobParams) string {
	return fmt.Sprintf("%s%d:%s:%s", exportCachePrefix, params.PeriodID, exportType, idOrAll(params.DepartmentID))
}

func payrollDataset(rows []models.PayrollDetail) export.Dataset {
	headers := []string{"Department", "Employee", "ID Card", "Designation", "Working Days", "Leave Days",
		"Basic Salary", "Allowances", "Deductions", "Net Salary"}
	dataRows := make([]map[string]string, 0, len(rows))
	basic, allowances, deductions, net := decimal.Zero, decimal.Zero, decimal.Zero, decimal.Zero
	for _, row := range rows {
		dataRows = append(dataRows, map[string]string{
			"Department":   stringOrDash(row.DepartmentName),
			"Employee":     row.EmployeeName,
			"ID Card":      stringOrDash(row.IDCardNumber),
			"Designation":  stringOrDash(row.Designation),
			"Working Days": fmt.Sprintf("%d", row.WorkingDays),
			"Leave Days":   fmt.Sprintf("%d", row.LeaveDays),
			"Basic Salary": row.BasicSalary.StringFixed(2),
			"Allowances":   row.Allowances.StringFixed(2),
			"Deductions":   row.Deductions.StringFixed(2),
			"Net Salary":   row.NetSalary.StringFixed(2),
		})
		basic = basic.Add(row.BasicSalary)
		allowances = allowances.Add(row.Allowances)
		deductions = deductions.Add(row.Deductions)
		net = net.Add(row.NetSalary)
	}
	return export.Dataset{
		Headers: headers,
		Rows:    dataRows,
		GroupBy: "Department",
		Totals: map[string]string{
			"Department":   "Total",
			"Basic Salary": basic.StringFixed(2),
			"Allowances":   allowances.StringFixed(2),
			"Deductions":   deductions.StringFixed(2),
			"Net Salary":   net.StringFixed(2),
		},
	}
}
