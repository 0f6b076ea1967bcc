package dto

import "github.com/noah-isme/salary-api/internal/models"

// ExportRequest captures the POST /exports payload.
type ExportRequest struct {
	Type         models.ExportType   `json:"type" validate:"required,oneof=payroll_register kharcha_register"`
	PeriodID     int64               `json:"period_id" validate:"required,gt=0"`
	DepartmentID *int64              `json:"department_id" validate:"omitempty,gt=0"`
	Format       models.ExportFormat `json:"format" validate:"required,oneof=csv pdf xlsx"`
}

// ExportJobResponse is returned after enqueueing an export.
type ExportJobResponse struct {
	ID       string              `json:"id"`
	Status   models.ExportStatus `json:"status"`
	Progress int                 `json:"progress"`
}

// ExportStatusResponse exposes job progress metadata.
type ExportStatusResponse struct {
	ID        string              `json:"id"`
	Type      models.ExportType   `json:"type"`
	Status    models.ExportStatus `json:"status"`
	Progress  int                 `json:"progress"`
	ResultURL *string             `json:"result_url,omitempty"`
	Error     *string             `json:"error,omitempty"`
}
