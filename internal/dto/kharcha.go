package dto

import (
	"github.com/shopspring/decimal"

	"github.com/noah-isme/salary-api/internal/models"
)

// CreateKharchaRequest is the POST /kharcha payload.
type CreateKharchaRequest struct {
	KharchaType  string           `json:"kharcha_type" validate:"omitempty,oneof=department individual"`
	DepartmentID *int64           `json:"department_id" validate:"omitempty,gt=0"`
	EmployeeID   *int64           `json:"employee_id" validate:"omitempty,gt=0"`
	Amount       *decimal.Decimal `json:"amount"`
	Date         string           `json:"date" validate:"omitempty,datetime=2006-01-02"`
	PeriodID     *int64           `json:"period_id" validate:"omitempty,gt=0"`
	Description  *string          `json:"description" validate:"omitempty,max=1000"`
}

// UpdateKharchaRequest is a partial update of a kharcha entry.
type UpdateKharchaRequest struct {
	DepartmentID *int64           `json:"department_id" validate:"omitempty,gt=0"`
	Amount       *decimal.Decimal `json:"amount"`
	Date         *string          `json:"date" validate:"omitempty,datetime=2006-01-02"`
	PeriodID     *int64           `json:"period_id" validate:"omitempty,gt=0"`
	Description  *string          `json:"description" validate:"omitempty,max=1000"`
}

// BulkKharchaRequest is the POST /kharcha/bulk payload.
type BulkKharchaRequest struct {
	Kharchas []CreateKharchaRequest `json:"kharchas"`
}

// KharchaQuery carries list filters parsed from the query string.
type KharchaQuery struct {
	DepartmentID *int64 `form:"department_id"`
	EmployeeID   *int64 `form:"employee_id"`
	PeriodID     *int64 `form:"period_id"`
	StartDate    string `form:"start_date" validate:"omitempty,datetime=2006-01-02"`
	EndDate      string `form:"end_date" validate:"omitempty,datetime=2006-01-02"`
	Year         *int   `form:"year" validate:"omitempty,gte=1900,lte=9999"`
	Page         int    `form:"page"`
	Limit        int    `form:"limit"`
}

// KharchaPagination mirrors the page metadata kharcha clients expect.
type KharchaPagination struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
	Pages int `json:"pages"`
}

// KharchaListResponse is a page of kharcha entries.
type KharchaListResponse struct {
	Kharchas   []models.KharchaDetail `json:"kharchas"`
	Pagination KharchaPagination      `json:"pagination"`
	PeriodID   *int64                 `json:"period_id,omitempty"`
}
