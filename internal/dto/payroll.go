package dto

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// GeneratePayrollRequest is the body of POST /payroll/department/:departmentId/generate.
type GeneratePayrollRequest struct {
	PeriodID  int64                 `json:"period_id" validate:"required,gt=0"`
	Employees []PayrollEntryRequest `json:"employees" validate:"required,dive"`
}

// PayrollEntryRequest is one employee's payroll input. Absent amounts and days default to zero.
type PayrollEntryRequest struct {
	EmployeeID    int64                     `json:"employee_id" validate:"required,gt=0"`
	BasicSalary   *decimal.Decimal          `json:"basic_salary"`
	Allowances    *decimal.Decimal          `json:"allowances"`
	Deductions    *decimal.Decimal          `json:"deductions"`
	NetSalary     *decimal.Decimal          `json:"net_salary"`
	WorkingDays   *int                      `json:"working_days" validate:"omitempty,gte=0"`
	LeaveDays     *int                      `json:"leave_days" validate:"omitempty,gte=0"`
	DailyRate     *decimal.Decimal          `json:"daily_rate"`
	WorkingSalary *decimal.Decimal          `json:"working_salary"`
	LeaveSalary   *decimal.Decimal          `json:"leave_salary"`
	Components    []PayrollComponentRequest `json:"components" validate:"omitempty,dive"`
}

// PayrollComponentRequest is an itemised allowance, deduction, bonus or other line, posted as
// {"type","name","amount"}. The stored column names component_type and component_name are accepted too.
type PayrollComponentRequest struct {
	ComponentType string           `json:"type" validate:"required,oneof=allowance deduction bonus other"`
	ComponentName string           `json:"name" validate:"required,max=100"`
	Amount        *decimal.Decimal `json:"amount"`
}

// UnmarshalJSON decodes either key spelling; type and name win when both are present.
func (r *PayrollComponentRequest) UnmarshalJSON(data []byte) error {
	var raw struct {
		Type          string           `json:"type"`
		Name          string           `json:"name"`
		ComponentType string           `json:"component_type"`
		ComponentName string           `json:"component_name"`
		Amount        *decimal.Decimal `json:"amount"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	r.ComponentType = raw.Type
	if r.ComponentType == "" {
		r.ComponentType = raw.ComponentType
	}
	r.ComponentName = raw.Name
	if r.ComponentName == "" {
		r.ComponentName = raw.ComponentName
	}
	r.Amount = raw.Amount
	return nil
}

// GeneratePayrollResponse reports the number of committed payroll rows.
type GeneratePayrollResponse struct {
	Message            string `json:"message"`
	EmployeesProcessed int    `json:"employees_processed"`
}

// CreatePeriodRequest is the POST /payroll/periods payload.
type CreatePeriodRequest struct {
	PeriodName string `json:"period_name" validate:"required,max=100"`
	StartDate  string `json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate    string `json:"end_date" validate:"required,datetime=2006-01-02"`
	PeriodType string `json:"period_type" validate:"omitempty,oneof=full_month half_month weekly custom"`
}
