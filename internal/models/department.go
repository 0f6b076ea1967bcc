package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Department groups employees and carries a salary budget.
type Department struct {
	ID          int64           `db:"id" json:"id"`
	Name        string          `db:"name" json:"name"`
	Description *string         `db:"description" json:"description,omitempty"`
	TotalSalary decimal.Decimal `db:"total_salary" json:"total_salary"`
	CreatedAt   time.Time       `db:"created_at" json:"created_at"`
}

// DepartmentSalaryHistory records one change of a department's total salary.
type DepartmentSalaryHistory struct {
	ID           int64           `db:"id" json:"id"`
	DepartmentID int64           `db:"department_id" json:"department_id"`
	OldSalary    decimal.Decimal `db:"old_salary" json:"old_salary"`
	NewSalary    decimal.Decimal `db:"new_salary" json:"new_salary"`
	ChangedAt    time.Time       `db:"changed_at" json:"changed_at"`
}

// DepartmentChanges holds the fields of a partial department update; nil keeps the stored value.
type DepartmentChanges struct {
	Name        *string
	Description *string
	TotalSalary *decimal.Decimal
}

// DepartmentUpdateResult reports the stored department and whether a history row was appended.
type DepartmentUpdateResult struct {
	Department    Department               `json:"department"`
	SalaryChanged bool                     `json:"salary_changed"`
	HistoryEntry  *DepartmentSalaryHistory `json:"history_entry,omitempty"`
}
