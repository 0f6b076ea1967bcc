package dto

import "github.com/shopspring/decimal"

// CreateDepartmentRequest is the POST /departments payload.
type CreateDepartmentRequest struct {
	Name        string           `json:"name" validate:"required,max=100"`
	Description *string          `json:"description" validate:"omitempty,max=1000"`
	TotalSalary *decimal.Decimal `json:"total_salary"`
}

// UpdateDepartmentRequest is a partial update; absent fields keep their stored value.
type UpdateDepartmentRequest struct {
	Name        *string          `json:"name" validate:"omitempty,min=1,max=100"`
	Description *string          `json:"description" validate:"omitempty,max=1000"`
	TotalSalary *decimal.Decimal `json:"total_salary"`
}
