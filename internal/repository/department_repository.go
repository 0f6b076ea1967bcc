package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/salary-api/internal/models"
)

const departmentColumns = `id, name, description, total_salary, created_at`

// DepartmentRepository persists departments and their salary history.
type DepartmentRepository struct {
	db *sqlx.DB
}

// NewDepartmentRepository constructs the repository.
func NewDepartmentRepository(db *sqlx.DB) *DepartmentRepository {
	return &DepartmentRepository{db: db}
}

// List returns all departments ordered by name.
func (r *DepartmentRepository) List(ctx context.Context) ([]models.Department, error) {
	items := make([]models.Department, 0)
	if err := r.db.SelectContext(ctx, &items, `SELECT `+departmentColumns+` FROM departments ORDER BY name`); err != nil {
		return nil, fmt.Errorf("list departments: %w", err)
	}
	return items, nil
}

// FindByID returns a department by id.
func (r *DepartmentRepository) FindByID(ctx context.Context, id int64) (*models.Department, error) {
	var department models.Department
	if err := r.db.GetContext(ctx, &department, `SELECT `+departmentColumns+` FROM departments WHERE id = $1`, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find department: %w", err)
	}
	return &department, nil
}

// Create inserts a department and links employees already registered under its name.
func (r *DepartmentRepository) Create(ctx context.Context, department *models.Department) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin department create: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const query = `INSERT INTO departments (name, description, total_salary) VALUES ($1, $2, $3) RETURNING id, created_at`
	if err = tx.QueryRowxContext(ctx, query, department.Name, department.Description, department.TotalSalary).
		Scan(&department.ID, &department.CreatedAt); err != nil {
		return fmt.Errorf("create department: %w", err)
	}
	if err = linkEmployees(ctx, tx, department.ID, department.Name); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit department create: %w", err)
	}
	return nil
}

// linkEmployees sets department_id on employees whose department name matches and who have none yet.
func linkEmployees(ctx context.Context, tx *sqlx.Tx, departmentID int64, name string) error {
	const query = `UPDATE employees SET department_id = $1 WHERE department = $2 AND department_id IS NULL`
	if _, err := tx.ExecContext(ctx, query, departmentID, name); err != nil {
		return fmt.Errorf("link employees to department: %w", err)
	}
	return nil
}

// Delete removes a department. It returns sql.ErrNoRows when the row is missing.
func (r *DepartmentRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM departments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete department: %w", err)
	}
	return requireAffected(res, "delete department")
}

// Update applies changes under a row lock and appends a salary history row when total_salary changes.
func (r *DepartmentRepository) Update(ctx context.Context, id int64, changes models.DepartmentChanges) (result *models.DepartmentUpdateResult, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin department update: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var current models.Department
	if err = tx.GetContext(ctx, &current, `SELECT `+departmentColumns+` FROM departments WHERE id = $1 FOR UPDATE`, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("lock department: %w", err)
	}

	updated := current
	if changes.Name != nil {
		updated.Name = *changes.Name
	}
	if changes.Description != nil {
		updated.Description = changes.Description
	}
	if changes.TotalSalary != nil {
		updated.TotalSalary = *changes.TotalSalary
	}

	const updateQuery = `UPDATE departments SET name = $2, description = $3, total_salary = $4 WHERE id = $1`
	if _, err = tx.ExecContext(ctx, updateQuery, id, updated.Name, updated.Description, updated.TotalSalary); err != nil {
		return nil, fmt.Errorf("update department: %w", err)
	}
	if updated.Name != current.Name {
		if err = linkEmployees(ctx, tx, id, updated.Name); err != nil {
			return nil, err
		}
	}

	result = &models.DepartmentUpdateResult{Department: updated}
	if !current.TotalSalary.Equal(updated.TotalSalary) {
		entry := models.DepartmentSalaryHistory{
			DepartmentID: id,
			OldSalary:    current.TotalSalary,
			NewSalary:    updated.TotalSalary,
		}
		const historyQuery = `INSERT INTO department_salary_history (department_id, old_salary, new_salary)
VALUES ($1, $2, $3) RETURNING id, changed_at`
		if err = tx.QueryRowxContext(ctx, historyQuery, id, entry.OldSalary, entry.NewSalary).Scan(&entry.ID, &entry.ChangedAt); err != nil {
			return nil, fmt.Errorf("insert department salary history: %w", err)
		}
		result.SalaryChanged = true
		result.HistoryEntry = &entry
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit department update: %w", err)
	}
	return result, nil
}

// SalaryHistory returns salary changes for a department, newest first.
func (r *DepartmentRepository) SalaryHistory(ctx context.Context, departmentID int64) ([]models.DepartmentSalaryHistory, error) {
	const query = `SELECT id, department_id, old_salary, new_salary, changed_at
FROM department_salary_history WHERE department_id = $1 ORDER BY changed_at DESC, id DESC`
	items := make([]models.DepartmentSalaryHistory, 0)
	if err := r.db.SelectContext(ctx, &items, query, departmentID); err != nil {
		return nil, fmt.Errorf("list department salary history: %w", err)
	}
	return items, nil
}
