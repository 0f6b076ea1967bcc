package dto

import "github.com/shopspring/decimal"

// EmployeeRequest is the create/update payload of an employee.
type EmployeeRequest struct {
	RegisterDate string           `json:"registerDate" validate:"omitempty,datetime=2006-01-02"`
	Name         string           `json:"name" validate:"required,max=255"`
	FatherName   *string          `json:"fatherName" validate:"omitempty,max=255"`
	Age          *int             `json:"age" validate:"omitempty,gte=0,lte=150"`
	Education    *string          `json:"education" validate:"omitempty,max=255"`
	Designation  *string          `json:"designation" validate:"omitempty,max=255"`
	Department   *string          `json:"department" validate:"omitempty,max=100"`
	Salary       *decimal.Decimal `json:"salary"`
	Reference    *string          `json:"reference" validate:"omitempty,max=255"`
	IDCardNumber *string          `json:"idCardNumber" validate:"omitempty,max=50"`
	Address      *string          `json:"address"`
	PhoneNumber  *string          `json:"phoneNumber" validate:"omitempty,max=30"`
}

// ReplaceEmployeeRequest carries the successor's details for POST /employees/:id/replace.
type ReplaceEmployeeRequest struct {
	EmployeeRequest
	Reason                *string `json:"reason" validate:"omitempty,max=500"`
	PreviousReplacementID *int64  `json:"previousReplacementId" validate:"omitempty,gt=0"`
}

// EmployeeExpenseRequest records an expense paid by or for an employee.
type EmployeeExpenseRequest struct {
	Description *string          `json:"description" validate:"omitempty,max=500"`
	Amount      *decimal.Decimal `json:"amount" validate:"required"`
	ExpenseDate string           `json:"expenseDate" validate:"omitempty,datetime=2006-01-02"`
}

// EmployeeLoanRequest records a loan given to an employee.
type EmployeeLoanRequest struct {
	Amount      *decimal.Decimal `json:"amount" validate:"required"`
	LoanDate    string           `json:"loanDate" validate:"required,datetime=2006-01-02"`
	Description *string          `json:"description" validate:"omitempty,max=500"`
}

// EmployeeCountResponse is returned by GET /employees/count.
type EmployeeCountResponse struct {
	Total int `json:"total"`
}

// ReplaceEmployeeResponse is returned after a successful replacement.
type ReplaceEmployeeResponse struct {
	Message               string `json:"message"`
	OldEmployeeID         int64  `json:"oldEmployeeId"`
	NewEmployeeID         int64  `json:"newEmployeeId"`
	ReplacementID         int64  `json:"replacementId"`
	PreviousReplacementID *int64 `json:"previousReplacementId"`
}
