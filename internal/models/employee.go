package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Employee is a person on the payroll. Department is the department name; DepartmentID is
// resolved from it on write.
type Employee struct {
	ID           int64           `db:"id" json:"id"`
	RegisterDate Date            `db:"register_date" json:"registerDate"`
	Name         string          `db:"name" json:"name"`
	FatherName   *string         `db:"father_name" json:"fatherName,omitempty"`
	Age          *int            `db:"age" json:"age,omitempty"`
	Education    *string         `db:"education" json:"education,omitempty"`
	Designation  *string         `db:"designation" json:"designation,omitempty"`
	Department   *string         `db:"department" json:"department,omitempty"`
	DepartmentID *int64          `db:"department_id" json:"departmentId,omitempty"`
	Salary       decimal.Decimal `db:"salary" json:"salary"`
	Reference    *string         `db:"reference" json:"reference,omitempty"`
	IDCardNumber *string         `db:"id_card_number" json:"idCardNumber,omitempty"`
	Address      *string         `db:"address" json:"address,omitempty"`
	PhoneNumber  *string         `db:"phone_number" json:"phoneNumber,omitempty"`
	IsActive     bool            `db:"is_active" json:"isActive"`
	CreatedAt    time.Time       `db:"created_at" json:"createdAt"`
	UpdatedAt    time.Time       `db:"updated_at" json:"updatedAt"`
}

// EmployeeFilter narrows employee listings.
type EmployeeFilter struct {
	Active *bool
}

// EmployeeExpense is an out-of-pocket expense recorded against an employee.
type EmployeeExpense struct {
	ID          int64           `db:"id" json:"id"`
	EmployeeID  int64           `db:"employee_id" json:"employeeId"`
	Description *string         `db:"description" json:"description,omitempty"`
	Amount      decimal.Decimal `db:"amount" json:"amount"`
	ExpenseDate Date            `db:"expense_date" json:"expenseDate"`
	CreatedAt   time.Time       `db:"created_at" json:"createdAt"`
}

// EmployeeLoan is an advance paid to an employee.
type EmployeeLoan struct {
	ID          int64           `db:"id" json:"id"`
	EmployeeID  int64           `db:"employee_id" json:"employeeId"`
	Amount      decimal.Decimal `db:"amount" json:"amount"`
	LoanDate    Date            `db:"loan_date" json:"loanDate"`
	Description *string         `db:"description" json:"description,omitempty"`
	CreatedAt   time.Time       `db:"created_at" json:"createdAt"`
}
