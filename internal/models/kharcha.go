package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// KharchaType distinguishes department-wide from individual expenses.
type KharchaType string

const (
	KharchaDepartment KharchaType = "department"
	KharchaIndividual KharchaType = "individual"
)

// Kharcha is an expense booked against a department, optionally for a single employee, in a period.
type Kharcha struct {
	ID           int64           `db:"id" json:"id"`
	Type         KharchaType     `db:"kharcha_type" json:"kharcha_type"`
	DepartmentID int64           `db:"department_id" json:"department_id"`
	EmployeeID   *int64          `db:"employee_id" json:"employee_id,omitempty"`
	Amount       decimal.Decimal `db:"amount" json:"amount"`
	Date         Date            `db:"date" json:"date"`
	PeriodID     int64           `db:"period_id" json:"period_id"`
	Description  *string         `db:"description" json:"description,omitempty"`
	CreatedAt    time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time       `db:"updated_at" json:"updated_at"`
}

// KharchaDetail joins a kharcha with department, employee and period labels.
type KharchaDetail struct {
	Kharcha
	DepartmentName      *string `db:"department_name" json:"department_name,omitempty"`
	EmployeeName        *string `db:"employee_name" json:"employee_name,omitempty"`
	EmployeeDesignation *string `db:"employee_designation" json:"employee_designation,omitempty"`
	PeriodName          *string `db:"period_name" json:"period_name,omitempty"`
	PeriodStartDate     *Date   `db:"period_start_date" json:"period_start_date,omitempty"`
	PeriodEndDate       *Date   `db:"period_end_date" json:"period_end_date,omitempty"`
	PeriodType          *string `db:"period_type" json:"period_type,omitempty"`
}

// KharchaFilter narrows kharcha listings and statistics.
type KharchaFilter struct {
	DepartmentID *int64
	EmployeeID   *int64
	PeriodID     *int64
	StartDate    *Date
	EndDate      *Date
	Year         *int
	Page         int
	Limit        int
}

// KharchaChanges holds a partial kharcha update; nil keeps the stored value.
type KharchaChanges struct {
	DepartmentID *int64
	Amount       *decimal.Decimal
	Date         *Date
	PeriodID     *int64
	Description  *string
}

// Empty reports whether no field is set.
func (c KharchaChanges) Empty() bool {
	return c.DepartmentID == nil && c.Amount == nil && c.Date == nil && c.PeriodID == nil && c.Description == nil
}

// KharchaSummary aggregates kharcha amounts.
type KharchaSummary struct {
	TotalRecords    int64           `db:"total_records" json:"total_records"`
	TotalAmount     decimal.Decimal `db:"total_amount" json:"total_amount"`
	AverageAmount   decimal.Decimal `db:"average_amount" json:"average_amount"`
	MinAmount       decimal.Decimal `db:"min_amount" json:"min_amount"`
	MaxAmount       decimal.Decimal `db:"max_amount" json:"max_amount"`
	DepartmentCount int64           `db:"department_count" json:"department_count"`
}

// DepartmentKharchaSummary totals kharcha per department next to its salary budget.
type DepartmentKharchaSummary struct {
	DepartmentID   int64           `db:"department_id" json:"department_id"`
	DepartmentName string          `db:"department_name" json:"department_name"`
	TotalKharcha   decimal.Decimal `db:"total_kharcha" json:"total_kharcha"`
	KharchaCount   int64           `db:"kharcha_count" json:"kharcha_count"`
	TotalSalary    decimal.Decimal `db:"total_salary" json:"total_salary"`
}

// PeriodKharchaSummary totals kharcha per payroll period.
type PeriodKharchaSummary struct {
	PeriodID        int64           `db:"period_id" json:"period_id"`
	PeriodName      string          `db:"period_name" json:"period_name"`
	StartDate       Date            `db:"start_date" json:"start_date"`
	EndDate         Date            `db:"end_date" json:"end_date"`
	PeriodType      PeriodType      `db:"period_type" json:"period_type"`
	KharchaCount    int64           `db:"kharcha_count" json:"kharcha_count"`
	TotalAmount     decimal.Decimal `db:"total_amount" json:"total_amount"`
	DepartmentCount int64           `db:"department_count" json:"department_count"`
}

// BulkKharchaFailure describes one rejected item of a bulk insert.
type BulkKharchaFailure struct {
	Index      int    `json:"index"`
	Error      string `json:"error"`
	ExistingID *int64 `json:"existing_id,omitempty"`
}

// BulkKharchaSummary counts the outcome of a bulk insert.
type BulkKharchaSummary struct {
	Total      int `json:"total"`
	Successful int `json:"successful"`
	Failed     int `json:"failed"`
}

// BulkKharchaResult is the per-item outcome of a bulk insert.
type BulkKharchaResult struct {
	Successful []Kharcha            `json:"successful"`
	Failed     []BulkKharchaFailure `json:"failed"`
	Summary    BulkKharchaSummary   `json:"summary"`
}
