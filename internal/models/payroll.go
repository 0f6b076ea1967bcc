package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PeriodType enumerates payroll period lengths.
type PeriodType string

const (
	PeriodTypeFullMonth PeriodType = "full_month"
	PeriodTypeHalfMonth PeriodType = "half_month"
	PeriodTypeWeekly    PeriodType = "weekly"
	PeriodTypeCustom    PeriodType = "custom"
)

// Valid reports whether the period type is known.
func (t PeriodType) Valid() bool {
	switch t {
	case PeriodTypeFullMonth, PeriodTypeHalfMonth, PeriodTypeWeekly, PeriodTypeCustom:
		return true
	default:
		return false
	}
}

// PayrollPeriod is the date range a payroll run or kharcha entry belongs to.
type PayrollPeriod struct {
	ID         int64      `db:"id" json:"id"`
	PeriodName string     `db:"period_name" json:"period_name"`
	StartDate  Date       `db:"start_date" json:"start_date"`
	EndDate    Date       `db:"end_date" json:"end_date"`
	PeriodType PeriodType `db:"period_type" json:"period_type"`
	CreatedAt  time.Time  `db:"created_at" json:"created_at"`
}

// ComponentType classifies payroll line items.
type ComponentType string

const (
	ComponentAllowance ComponentType = "allowance"
	ComponentDeduction ComponentType = "deduction"
	ComponentBonus     ComponentType = "bonus"
	ComponentOther     ComponentType = "other"
)

// PayrollRecord is one employee's pay for one period.
type PayrollRecord struct {
	ID            int64           `db:"id" json:"id"`
	EmployeeID    int64           `db:"employee_id" json:"employee_id"`
	PeriodID      int64           `db:"period_id" json:"period_id"`
	DepartmentID  int64           `db:"department_id" json:"department_id"`
	BasicSalary   decimal.Decimal `db:"basic_salary" json:"basic_salary"`
	Allowances    decimal.Decimal `db:"allowances" json:"allowances"`
	Deductions    decimal.Decimal `db:"deductions" json:"deductions"`
	NetSalary     decimal.Decimal `db:"net_salary" json:"net_salary"`
	WorkingDays   int             `db:"working_days" json:"working_days"`
	LeaveDays     int             `db:"leave_days" json:"leave_days"`
	DailyRate     decimal.Decimal `db:"daily_rate" json:"daily_rate"`
	WorkingSalary decimal.Decimal `db:"working_salary" json:"working_salary"`
	LeaveSalary   decimal.Decimal `db:"leave_salary" json:"leave_salary"`
	CreatedAt     time.Time       `db:"created_at" json:"created_at"`
}

// PayrollComponent is an itemised allowance, deduction or bonus of a payroll record.
type PayrollComponent struct {
	ID            int64           `db:"id" json:"id"`
	PayrollID     int64           `db:"payroll_id" json:"payroll_id"`
	ComponentType ComponentType   `db:"component_type" json:"component_type"`
	ComponentName string          `db:"component_name" json:"component_name"`
	Amount        decimal.Decimal `db:"amount" json:"amount"`
}

// PayrollDetail is a payroll record joined with employee, department and period data.
type PayrollDetail struct {
	PayrollRecord
	EmployeeName    string             `db:"employee_name" json:"employee_name"`
	Designation     *string            `db:"designation" json:"designation,omitempty"`
	IDCardNumber    *string            `db:"id_card_number" json:"id_card_number,omitempty"`
	DepartmentName  *string            `db:"department_name" json:"department_name,omitempty"`
	PeriodName      string             `db:"period_name" json:"period_name"`
	PeriodStartDate Date               `db:"start_date" json:"start_date"`
	PeriodEndDate   Date               `db:"end_date" json:"end_date"`
	PeriodType      PeriodType         `db:"period_type" json:"period_type"`
	Components      []PayrollComponent `db:"-" json:"components"`
}

// PayrollEntry is one employee's input to a payroll run.
type PayrollEntry struct {
	EmployeeID    int64
	BasicSalary   decimal.Decimal
	Allowances    decimal.Decimal
	Deductions    decimal.Decimal
	NetSalary     decimal.Decimal
	WorkingDays   int
	LeaveDays     int
	DailyRate     decimal.Decimal
	WorkingSalary decimal.Decimal
	LeaveSalary   decimal.Decimal
	Components    []PayrollComponentEntry
}

// PayrollComponentEntry is a component line submitted with a payroll entry.
type PayrollComponentEntry struct {
	Type   ComponentType
	Name   string
	Amount decimal.Decimal
}

// PayrollBatch is a department+period payroll run.
type PayrollBatch struct {
	DepartmentID int64
	PeriodID     int64
	Entries      []PayrollEntry
}

// EligibleEmployee is an active employee projected with payroll defaults.
type EligibleEmployee struct {
	ID                 int64           `db:"id" json:"id"`
	Name               string          `db:"name" json:"name"`
	Designation        *string         `db:"designation" json:"designation,omitempty"`
	IDCardNumber       *string         `db:"id_card_number" json:"id_card_number,omitempty"`
	Salary             decimal.Decimal `db:"salary" json:"salary"`
	DepartmentID       int64           `db:"department_id" json:"department_id"`
	DepartmentName     string          `db:"department_name" json:"department_name"`
	DefaultWorkingDays int             `db:"-" json:"default_working_days"`
	DefaultLeaveDays   int             `db:"-" json:"default_leave_days"`
}

// LeaveSummary aggregates approved leave for an employee within a period.
type LeaveSummary struct {
	EmployeeID     int64 `db:"employee_id" json:"employee_id"`
	PeriodID       int64 `db:"period_id" json:"period_id"`
	TotalLeaveDays int   `db:"total_leave_days" json:"total_leave_days"`
	LeaveRecords   int   `db:"leave_records" json:"leave_records"`
}
