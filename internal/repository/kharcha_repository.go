package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/salary-api/internal/models"
)

const kharchaColumns = `k.id, k.kharcha_type, k.department_id, k.employee_id, k.amount, k.date, k.period_id, k.description,
k.created_at, k.updated_at`

const kharchaDetailSelect = `SELECT ` + kharchaColumns + `,
d.name AS department_name, e.name AS employee_name, e.designation AS employee_designation,
pp.period_name, pp.start_date AS period_start_date, pp.end_date AS period_end_date, pp.period_type
FROM kharcha k
LEFT JOIN departments d ON d.id = k.department_id
LEFT JOIN employees e ON e.id = k.employee_id
LEFT JOIN payroll_periods pp ON pp.id = k.period_id`

// KharchaOrder selects the ordering of a kharcha listing.
type KharchaOrder string

const (
	// KharchaOrderRecent lists newest entries first.
	KharchaOrderRecent KharchaOrder = "k.date DESC, k.created_at DESC, k.id DESC"
	// KharchaOrderPeriod groups by period, latest period first.
	KharchaOrderPeriod KharchaOrder = "pp.start_date DESC, k.date DESC, k.id DESC"
	// KharchaOrderAmount lists the largest amounts first.
	KharchaOrderAmount KharchaOrder = "k.amount DESC, d.name ASC, k.id ASC"
)

// KharchaRepository persists kharcha entries and computes their statistics.
type KharchaRepository struct {
	db *sqlx.DB
}

// NewKharchaRepository constructs the repository.
func NewKharchaRepository(db *sqlx.DB) *KharchaRepository {
	return &KharchaRepository{db: db}
}

// BulkKharchaItem is a prepared bulk insert item with its position in the request.
type BulkKharchaItem struct {
	Index   int
	Kharcha models.Kharcha
}

// FindByID returns a kharcha with its labels.
func (r *KharchaRepository) FindByID(ctx context.Context, id int64) (*models.KharchaDetail, error) {
	var detail models.KharchaDetail
	if err := r.db.GetContext(ctx, &detail, kharchaDetailSelect+` WHERE k.id = $1`, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find kharcha: %w", err)
	}
	return &detail, nil
}

// FindDuplicate returns the id of an existing entry that collides with k, ignoring excludeID.
func (r *KharchaRepository) FindDuplicate(ctx context.Context, k models.Kharcha, excludeID *int64) (*int64, error) {
	return findDuplicateKharcha(ctx, r.db, k, excludeID)
}

func findDuplicateKharcha(ctx context.Context, q sqlx.QueryerContext, k models.Kharcha, excludeID *int64) (*int64, error) {
	var query string
	var args []interface{}
	if k.Type == models.KharchaIndividual {
		query = `SELECT id FROM kharcha WHERE kharcha_type = 'individual' AND employee_id = $1 AND period_id = $2`
		args = []interface{}{k.EmployeeID, k.PeriodID}
	} else {
		query = `SELECT id FROM kharcha WHERE kharcha_type = 'department' AND department_id = $1 AND period_id = $2`
		args = []interface{}{k.DepartmentID, k.PeriodID}
	}
	if excludeID != nil {
		query += ` AND id <> $3`
		args = append(args, *excludeID)
	}
	query += ` LIMIT 1`

	var id int64
	if err := sqlx.GetContext(ctx, q, &id, query, args...); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("check duplicate kharcha: %w", err)
	}
	return &id, nil
}

const insertKharchaQuery = `INSERT INTO kharcha (kharcha_type, department_id, employee_id, amount, date, period_id, description)
VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id, created_at, updated_at`

func insertKharcha(ctx context.Context, q sqlx.QueryerContext, k *models.Kharcha) error {
	return q.QueryRowxContext(ctx, insertKharchaQuery, k.Type, k.DepartmentID, k.EmployeeID, k.Amount, k.Date, k.PeriodID, k.Description).
		Scan(&k.ID, &k.CreatedAt, &k.UpdatedAt)
}

// Create inserts a kharcha entry.
func (r *KharchaRepository) Create(ctx context.Context, k *models.Kharcha) error {
	if err := insertKharcha(ctx, r.db, k); err != nil {
		return fmt.Errorf("create kharcha: %w", err)
	}
	return nil
}

// Update applies the provided changes. It returns sql.ErrNoRows when the row is missing.
func (r *KharchaRepository) Update(ctx context.Context, id int64, changes models.KharchaChanges) error {
	set := make([]string, 0, 6)
	args := make([]interface{}, 0, 6)
	argPos := 1

	if changes.DepartmentID != nil {
		set = append(set, fmt.Sprintf("department_id = $%d", argPos))
		args = append(args, *changes.DepartmentID)
		argPos++
	}
	if changes.Amount != nil {
		set = append(set, fmt.Sprintf("amount = $%d", argPos))
		args = append(args, *changes.Amount)
		argPos++
	}
	if changes.Date != nil {
		set = append(set, fmt.Sprintf("date = $%d", argPos))
		args = append(args, *changes.Date)
		argPos++
	}
	if changes.PeriodID != nil {
		set = append(set, fmt.Sprintf("period_id = $%d", argPos))
		args = append(args, *changes.PeriodID)
		argPos++
	}
	if changes.Description != nil {
		set = append(set, fmt.Sprintf("description = $%d", argPos))
		args = append(args, *changes.Description)
		argPos++
	}
	if len(set) == 0 {
		return nil
	}
	set = append(set, "updated_at = NOW()")

	query := fmt.Sprintf("UPDATE kharcha SET %s WHERE id = $%d", strings.Join(set, ", "), argPos)
	args = append(args, id)

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update kharcha: %w", err)
	}
	return requireAffected(res, "update kharcha")
}

// Delete removes a kharcha entry. It returns sql.ErrNoRows when the row is missing.
func (r *KharchaRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM kharcha WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete kharcha: %w", err)
	}
	return requireAffected(res, "delete kharcha")
}

func kharchaConditions(filter models.KharchaFilter) (string, []interface{}) {
	var conditions []string
	var args []interface{}
	add := func(clause string, value interface{}) {
		args = append(args, value)
		conditions = append(conditions, fmt.Sprintf(clause, len(args)))
	}
	if filter.DepartmentID != nil {
		add("k.department_id = $%d", *filter.DepartmentID)
	}
	if filter.EmployeeID != nil {
		add("k.employee_id = $%d", *filter.EmployeeID)
	}
	if filter.PeriodID != nil {
		add("k.period_id = $%d", *filter.PeriodID)
	}
	if filter.StartDate != nil {
		add("k.date >= $%d", *filter.StartDate)
	}
	if filter.EndDate != nil {
		add("k.date <= $%d", *filter.EndDate)
	}
	if filter.Year != nil {
		add("EXTRACT(YEAR FROM pp.start_date) = $%d", *filter.Year)
	}
	if len(conditions) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}

// List returns a page of kharcha entries and the total count matching the filter. A zero limit returns
// every matching row.
func (r *KharchaRepository) List(ctx context.Context, filter models.KharchaFilter, order KharchaOrder) ([]models.KharchaDetail, int, error) {
	where, args := kharchaConditions(filter)
	if order == "" {
		order = KharchaOrderRecent
	}

	query := kharchaDetailSelect + where + ` ORDER BY ` + string(order)
	if filter.Limit > 0 {
		page := filter.Page
		if page < 1 {
			page = 1
		}
		query += fmt.Sprintf(" LIMIT %d OFFSET %d", filter.Limit, (page-1)*filter.Limit)
	}

	items := make([]models.KharchaDetail, 0)
	if err := r.db.SelectContext(ctx, &items, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list kharcha: %w", err)
	}

	countQuery := `SELECT COUNT(*) FROM kharcha k LEFT JOIN payroll_periods pp ON pp.id = k.period_id` + where
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count kharcha: %w", err)
	}
	return items, total, nil
}

// BulkCreate inserts items inside one transaction. Each insert runs under a savepoint so a failed item
// leaves the others intact; the transaction commits whatever succeeded.
func (r *KharchaRepository) BulkCreate(ctx context.Context, items []BulkKharchaItem) (successful []models.Kharcha, failed []models.BulkKharchaFailure, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("begin bulk kharcha: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	successful = make([]models.Kharcha, 0, len(items))
	failed = make([]models.BulkKharchaFailure, 0)
	for _, item := range items {
		k := item.Kharcha
		existing, dupErr := findDuplicateKharcha(ctx, tx, k, nil)
		if dupErr != nil {
			err = dupErr
			return nil, nil, err
		}
		if existing != nil {
			failed = append(failed, models.BulkKharchaFailure{
				Index:      item.Index,
				Error:      "duplicate kharcha for " + string(k.Type) + " and period",
				ExistingID: existing,
			})
			continue
		}

		if _, err = tx.ExecContext(ctx, `SAVEPOINT bulk_kharcha_item`); err != nil {
			return nil, nil, fmt.Errorf("savepoint bulk kharcha: %w", err)
		}
		if insertErr := insertKharcha(ctx, tx, &k); insertErr != nil {
			if _, err = tx.ExecContext(ctx, `ROLLBACK TO SAVEPOINT bulk_kharcha_item`); err != nil {
				return nil, nil, fmt.Errorf("rollback bulk kharcha item: %w", err)
			}
			failed = append(failed, models.BulkKharchaFailure{Index: item.Index, Error: insertErr.Error()})
			continue
		}
		if _, err = tx.ExecContext(ctx, `RELEASE SAVEPOINT bulk_kharcha_item`); err != nil {
			return nil, nil, fmt.Errorf("release bulk kharcha item: %w", err)
		}
		successful = append(successful, k)
	}

	if err = tx.Commit(); err != nil {
		return nil, nil, fmt.Errorf("commit bulk kharcha: %w", err)
	}
	return successful, failed, nil
}

// Summary aggregates kharcha amounts for an optional period and department.
func (r *KharchaRepository) Summary(ctx context.Context, filter models.KharchaFilter) (*models.KharchaSummary, error) {
	where, args := kharchaConditions(models.KharchaFilter{PeriodID: filter.PeriodID, DepartmentID: filter.DepartmentID})
	query := `SELECT COUNT(*) AS total_records,
COALESCE(SUM(k.amount), 0) AS total_amount,
COALESCE(ROUND(AVG(k.amount), 2), 0) AS average_amount,
COALESCE(MIN(k.amount), 0) AS min_amount,
COALESCE(MAX(k.amount), 0) AS max_amount,
COUNT(DISTINCT k.department_id) AS department_count
FROM kharcha k` + where
	var summary models.KharchaSummary
	if err := r.db.GetContext(ctx, &summary, query, args...); err != nil {
		return nil, fmt.Errorf("summarise kharcha: %w", err)
	}
	return &summary, nil
}

// DepartmentSummary totals kharcha per department, highest first. Departments without entries are included.
func (r *KharchaRepository) DepartmentSummary(ctx context.Context, periodID *int64) ([]models.DepartmentKharchaSummary, error) {
	join := `LEFT JOIN kharcha k ON k.department_id = d.id`
	var args []interface{}
	if periodID != nil {
		join += ` AND k.period_id = $1`
		args = append(args, *periodID)
	}
	query := `SELECT d.id AS department_id, d.name AS department_name, COALESCE(SUM(k.amount), 0) AS total_kharcha,
COUNT(k.id) AS kharcha_count, d.total_salary
FROM departments d ` + join + `
GROUP BY d.id, d.name, d.total_salary
ORDER BY total_kharcha DESC, d.name ASC`
	items := make([]models.DepartmentKharchaSummary, 0)
	if err := r.db.SelectContext(ctx, &items, query, args...); err != nil {
		return nil, fmt.Errorf("summarise kharcha by department: %w", err)
	}
	return items, nil
}

// PeriodSummary totals kharcha per payroll period, latest period first. Periods without entries are included.
func (r *KharchaRepository) PeriodSummary(ctx context.Context) ([]models.PeriodKharchaSummary, error) {
	const query = `SELECT pp.id AS period_id, pp.period_name, pp.start_date, pp.end_date, pp.period_type,
COUNT(k.id) AS kharcha_count, COALESCE(SUM(k.amount), 0) AS total_amount, COUNT(DISTINCT k.department_id) AS department_count
FROM payroll_periods pp
LEFT JOIN kharcha k ON k.period_id = pp.id
GROUP BY pp.id, pp.period_name, pp.start_date, pp.end_date, pp.period_type
ORDER BY pp.start_date DESC, pp.id DESC`
	items := make([]models.PeriodKharchaSummary, 0)
	if err := r.db.SelectContext(ctx, &items, query); err != nil {
		return nil, fmt.Errorf("summarise kharcha by period: %w", err)
	}
	return items, nil
}
