package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/salary-api/internal/models"
)

const employeeColumns = `id, register_date, name, father_name, age, education, designation, department, department_id,
salary, reference, id_card_number, address, phone_number, is_active, created_at, updated_at`

// insertEmployeeQuery is shared with the replacement transaction so both paths store identical rows.
const insertEmployeeQuery = `INSERT INTO employees (register_date, name, father_name, age, education, designation, department, department_id,
salary, reference, id_card_number, address, phone_number, is_active)
VALUES (COALESCE($1::date, CURRENT_DATE), $2, $3, $4, $5, $6, $7, (SELECT id FROM departments WHERE name = $7), $8, $9, $10, $11, $12, TRUE)
RETURNING id`

func employeeInsertArgs(e *models.Employee) []interface{} {
	return []interface{}{
		e.RegisterDate, e.Name, e.FatherName, e.Age, e.Education, e.Designation, e.Department,
		e.Salary, e.Reference, e.IDCardNumber, e.Address, e.PhoneNumber,
	}
}

// EmployeeRepository provides database access for employees and their expenses and loans.
type EmployeeRepository struct {
	db *sqlx.DB
}

// NewEmployeeRepository creates a new instance of EmployeeRepository.
func NewEmployeeRepository(db *sqlx.DB) *EmployeeRepository {
	return &EmployeeRepository{db: db}
}

// Create inserts an active employee and sets its generated id.
func (r *EmployeeRepository) Create(ctx context.Context, employee *models.Employee) error {
	if err := r.db.QueryRowxContext(ctx, insertEmployeeQuery, employeeInsertArgs(employee)...).Scan(&employee.ID); err != nil {
		return fmt.Errorf("create employee: %w", err)
	}
	employee.IsActive = true
	return nil
}

// FindByID returns an employee by identifier.
func (r *EmployeeRepository) FindByID(ctx context.Context, id int64) (*models.Employee, error) {
	query := `SELECT ` + employeeColumns + ` FROM employees WHERE id = $1`
	var employee models.Employee
	if err := r.db.GetContext(ctx, &employee, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find employee: %w", err)
	}
	return &employee, nil
}

// List returns employees ordered by registration date, newest first.
func (r *EmployeeRepository) List(ctx context.Context, filter models.EmployeeFilter) ([]models.Employee, error) {
	query := `SELECT ` + employeeColumns + ` FROM employees`
	var args []interface{}
	if filter.Active != nil {
		query += ` WHERE is_active = $1`
		args = append(args, *filter.Active)
	}
	query += ` ORDER BY register_date DESC, id DESC`

	var employees []models.Employee
	if err := r.db.SelectContext(ctx, &employees, query, args...); err != nil {
		return nil, fmt.Errorf("list employees: %w", err)
	}
	return employees, nil
}

// CountActive returns the number of active employees.
func (r *EmployeeRepository) CountActive(ctx context.Context) (int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM employees WHERE is_active = TRUE`); err != nil {
		return 0, fmt.Errorf("count active employees: %w", err)
	}
	return total, nil
}

// Departments lists the distinct department names employees are assigned to.
func (r *EmployeeRepository) Departments(ctx context.Context) ([]string, error) {
	const query = `SELECT DISTINCT department FROM employees WHERE department IS NOT NULL AND department <> '' ORDER BY department`
	var names []string
	if err := r.db.SelectContext(ctx, &names, query); err != nil {
		return nil, fmt.Errorf("list employee departments: %w", err)
	}
	return names, nil
}

// Update overwrites the mutable fields of an employee. It returns sql.ErrNoRows when the row is missing.
func (r *EmployeeRepository) Update(ctx context.Context, employee *models.Employee) error {
	const query = `UPDATE employees SET register_date = $2, name = $3, father_name = $4, age = $5, education = $6, designation = $7,
department = $8, department_id = (SELECT id FROM departments WHERE name = $8), salary = $9, reference = $10,
id_card_number = $11, address = $12, phone_number = $13, updated_at = NOW()
WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, employee.ID, employee.RegisterDate, employee.Name, employee.FatherName, employee.Age,
		employee.Education, employee.Designation, employee.Department, employee.Salary, employee.Reference,
		employee.IDCardNumber, employee.Address, employee.PhoneNumber)
	if err != nil {
		return fmt.Errorf("update employee: %w", err)
	}
	return requireAffected(res, "update employee")
}

// SetActive toggles the active flag. It returns sql.ErrNoRows when the row is missing.
func (r *EmployeeRepository) SetActive(ctx context.Context, id int64, active bool) error {
	res, err := r.db.ExecContext(ctx, `UPDATE employees SET is_active = $2, updated_at = NOW() WHERE id = $1`, id, active)
	if err != nil {
		return fmt.Errorf("set employee active: %w", err)
	}
	return requireAffected(res, "set employee active")
}

// Delete removes an employee. It returns sql.ErrNoRows when the row is missing.
func (r *EmployeeRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM employees WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete employee: %w", err)
	}
	return requireAffected(res, "delete employee")
}

// CreateExpense records an employee expense.
func (r *EmployeeRepository) CreateExpense(ctx context.Context, expense *models.EmployeeExpense) error {
	const query = `INSERT INTO employee_expenses (employee_id, description, amount, expense_date)
VALUES ($1, $2, $3, $4) RETURNING id, created_at`
	if err := r.db.QueryRowxContext(ctx, query, expense.EmployeeID, expense.Description, expense.Amount, expense.ExpenseDate).
		Scan(&expense.ID, &expense.CreatedAt); err != nil {
		return fmt.Errorf("create employee expense: %w", err)
	}
	return nil
}

// ListExpenses returns an employee's expenses, newest first.
func (r *EmployeeRepository) ListExpenses(ctx context.Context, employeeID int64) ([]models.EmployeeExpense, error) {
	const query = `SELECT id, employee_id, description, amount, expense_date, created_at
FROM employee_expenses WHERE employee_id = $1 ORDER BY expense_date DESC, id DESC`
	var expenses []models.EmployeeExpense
	if err := r.db.SelectContext(ctx, &expenses, query, employeeID); err != nil {
		return nil, fmt.Errorf("list employee expenses: %w", err)
	}
	return expenses, nil
}

// CreateLoan records a loan paid to an employee.
func (r *EmployeeRepository) CreateLoan(ctx context.Context, loan *models.EmployeeLoan) error {
	const query = `INSERT INTO employee_loans (employee_id, amount, loan_date, description)
VALUES ($1, $2, $3, $4) RETURNING id, created_at`
	if err := r.db.QueryRowxContext(ctx, query, loan.EmployeeID, loan.Amount, loan.LoanDate, loan.Description).
		Scan(&loan.ID, &loan.CreatedAt); err != nil {
		return fmt.Errorf("create employee loan: %w", err)
	}
	return nil
}

// ListLoans returns an employee's loans, newest first.
func (r *EmployeeRepository) ListLoans(ctx context.Context, employeeID int64) ([]models.EmployeeLoan, error) {
	const query = `SELECT id, employee_id, amount, loan_date, description, created_at
FROM employee_loans WHERE employee_id = $1 ORDER BY loan_date DESC, id DESC`
	var loans []models.EmployeeLoan
	if err := r.db.SelectContext(ctx, &loans, query, employeeID); err != nil {
		return nil, fmt.Errorf("list employee loans: %w", err)
	}
	return loans, nil
}

func requireAffected(res sql.Result, op string) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows affected: %w", op, err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
