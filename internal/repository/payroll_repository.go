package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/salary-api/internal/models"
)

const payrollDetailSelect = `SELECT ep.id, ep.employee_id, ep.period_id, ep.department_id, ep.basic_salary, ep.allowances,
ep.deductions, ep.net_salary, ep.working_days, ep.leave_days, ep.daily_rate, ep.working_salary, ep.leave_salary, ep.created_at,
e.name AS employee_name, e.designation, e.id_card_number, d.name AS department_name,
pp.period_name, pp.start_date, pp.end_date, pp.period_type
FROM employee_payroll ep
JOIN employees e ON e.id = ep.employee_id
JOIN payroll_periods pp ON pp.id = ep.period_id
LEFT JOIN departments d ON d.id = ep.department_id`

const periodColumns = `id, period_name, start_date, end_date, period_type, created_at`

// PayrollRepository persists payroll periods, payroll records and their components.
type PayrollRepository struct {
	db *sqlx.DB
}

// NewPayrollRepository constructs the repository.
func NewPayrollRepository(db *sqlx.DB) *PayrollRepository {
	return &PayrollRepository{db: db}
}

// Generate stores every entry of the batch and its components in a single transaction and returns the
// number of payroll rows written. An empty batch still opens and commits a transaction.
func (r *PayrollRepository) Generate(ctx context.Context, batch models.PayrollBatch) (processed int, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin payroll batch: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const payrollQuery = `INSERT INTO employee_payroll (employee_id, period_id, department_id, basic_salary, allowances, deductions,
net_salary, working_days, leave_days, daily_rate, working_salary, leave_salary)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12) RETURNING id`
	const componentQuery = `INSERT INTO payroll_components (payroll_id, component_type, component_name, amount)
VALUES ($1, $2, $3, $4)`

	for _, entry := range batch.Entries {
		var payrollID int64
		if err = tx.QueryRowxContext(ctx, payrollQuery,
			entry.EmployeeID, batch.PeriodID, batch.DepartmentID, entry.BasicSalary, entry.Allowances, entry.Deductions,
			entry.NetSalary, entry.WorkingDays, entry.LeaveDays, entry.DailyRate, entry.WorkingSalary, entry.LeaveSalary,
		).Scan(&payrollID); err != nil {
			return 0, fmt.Errorf("insert payroll for employee %d: %w", entry.EmployeeID, err)
		}
		for _, component := range entry.Components {
			if _, err = tx.ExecContext(ctx, componentQuery, payrollID, component.Type, component.Name, component.Amount); err != nil {
				return 0, fmt.Errorf("insert payroll component %q for employee %d: %w", component.Name, entry.EmployeeID, err)
			}
		}
	}

	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit payroll batch: %w", err)
	}
	return len(batch.Entries), nil
}

// PayrollFilter narrows payroll listings.
type PayrollFilter struct {
	PeriodID     int64
	DepartmentID *int64
}

// List returns payroll rows for a period, optionally for one department, with components attached.
func (r *PayrollRepository) List(ctx context.Context, filter PayrollFilter) ([]models.PayrollDetail, error) {
	conditions := []string{"ep.period_id = $1"}
	args := []interface{}{filter.PeriodID}
	if filter.DepartmentID != nil {
		conditions = append(conditions, fmt.Sprintf("ep.department_id = $%d", len(args)+1))
		args = append(args, *filter.DepartmentID)
	}
	query := payrollDetailSelect + ` WHERE ` + strings.Join(conditions, " AND ") + ` ORDER BY d.name ASC, e.name ASC, ep.id ASC`

	items := make([]models.PayrollDetail, 0)
	if err := r.db.SelectContext(ctx, &items, query, args...); err != nil {
		return nil, fmt.Errorf("list payroll: %w", err)
	}
	if err := r.attachComponents(ctx, items); err != nil {
		return nil, err
	}
	return items, nil
}

// GetPayslip returns one payroll row with its components.
func (r *PayrollRepository) GetPayslip(ctx context.Context, payrollID int64) (*models.PayrollDetail, error) {
	var detail models.PayrollDetail
	if err := r.db.GetContext(ctx, &detail, payrollDetailSelect+` WHERE ep.id = $1`, payrollID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("get payslip: %w", err)
	}
	items := []models.PayrollDetail{detail}
	if err := r.attachComponents(ctx, items); err != nil {
		return nil, err
	}
	return &items[0], nil
}

func (r *PayrollRepository) attachComponents(ctx context.Context, items []models.PayrollDetail) error {
	if len(items) == 0 {
		return nil
	}
	ids := make([]int64, len(items))
	for i := range items {
		ids[i] = items[i].ID
		items[i].Components = make([]models.PayrollComponent, 0)
	}
	const query = `SELECT id, payroll_id, component_type, component_name, amount
FROM payroll_components WHERE payroll_id = ANY($1) ORDER BY payroll_id, id`
	var components []models.PayrollComponent
	if err := r.db.SelectContext(ctx, &components, query, pq.Array(ids)); err != nil {
		return fmt.Errorf("list payroll components: %w", err)
	}
	index := make(map[int64]int, len(items))
	for i := range items {
		index[items[i].ID] = i
	}
	for _, component := range components {
		if i, ok := index[component.PayrollID]; ok {
			items[i].Components = append(items[i].Components, component)
		}
	}
	return nil
}

// EligibleEmployees lists active employees of a department, matched by department name.
func (r *PayrollRepository) EligibleEmployees(ctx context.Context, departmentID int64) ([]models.EligibleEmployee, error) {
	const query = `SELECT e.id, e.name, e.designation, e.id_card_number, e.salary, d.id AS department_id, d.name AS department_name
FROM employees e
JOIN departments d ON d.name = e.department
WHERE d.id = $1 AND e.is_active = TRUE
ORDER BY e.name ASC, e.id ASC`
	items := make([]models.EligibleEmployee, 0)
	if err := r.db.SelectContext(ctx, &items, query, departmentID); err != nil {
		return nil, fmt.Errorf("list eligible employees: %w", err)
	}
	return items, nil
}

// LeaveSummary sums approved leave days for an employee in a period.
func (r *PayrollRepository) LeaveSummary(ctx context.Context, employeeID, periodID int64) (*models.LeaveSummary, error) {
	const query = `SELECT $1::bigint AS employee_id, $2::bigint AS period_id,
COALESCE(SUM(leave_days) FILTER (WHERE status = 'approved'), 0) AS total_leave_days,
COUNT(*) AS leave_records
FROM employee_leaves WHERE employee_id = $1 AND period_id = $2`
	var summary models.LeaveSummary
	if err := r.db.GetContext(ctx, &summary, query, employeeID, periodID); err != nil {
		return nil, fmt.Errorf("summarise employee leaves: %w", err)
	}
	return &summary, nil
}

// CreatePeriod inserts a payroll period.
func (r *PayrollRepository) CreatePeriod(ctx context.Context, period *models.PayrollPeriod) error {
	const query = `INSERT INTO payroll_periods (period_name, start_date, end_date, period_type)
VALUES ($1, $2, $3, $4) RETURNING id, created_at`
	if err := r.db.QueryRowxContext(ctx, query, period.PeriodName, period.StartDate, period.EndDate, period.PeriodType).
		Scan(&period.ID, &period.CreatedAt); err != nil {
		return fmt.Errorf("create payroll period: %w", err)
	}
	return nil
}

// FindPeriod returns a payroll period by id.
func (r *PayrollRepository) FindPeriod(ctx context.Context, id int64) (*models.PayrollPeriod, error) {
	var period models.PayrollPeriod
	if err := r.db.GetContext(ctx, &period, `SELECT `+periodColumns+` FROM payroll_periods WHERE id = $1`, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find payroll period: %w", err)
	}
	return &period, nil
}

// ListPeriods returns payroll periods, latest first.
func (r *PayrollRepository) ListPeriods(ctx context.Context) ([]models.PayrollPeriod, error) {
	items := make([]models.PayrollPeriod, 0)
	if err := r.db.SelectContext(ctx, &items, `SELECT `+periodColumns+` FROM payroll_periods ORDER BY start_date DESC, id DESC`); err != nil {
		return nil, fmt.Errorf("list payroll periods: %w", err)
	}
	return items, nil
}
