package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/salary-api/internal/models"
)

// ErrReplacementLinked is returned when the previous replacement already points at a successor.
var ErrReplacementLinked = errors.New("previous replacement already has a successor")

const replacementColumns = `er.id, er.old_employee_id, er.new_employee_id, er.reason, er.replacement_date,
er.previous_replacement_id, er.next_replacement_id, er.created_at`

const replacementDetailSelect = `SELECT ` + replacementColumns + `, oe.name AS old_employee_name, ne.name AS new_employee_name
FROM employee_replacements er
JOIN employees oe ON oe.id = er.old_employee_id
JOIN employees ne ON ne.id = er.new_employee_id`

// ReplacementRepository persists the employee replacement ledger.
type ReplacementRepository struct {
	db *sqlx.DB
}

// NewReplacementRepository constructs the repository.
func NewReplacementRepository(db *sqlx.DB) *ReplacementRepository {
	return &ReplacementRepository{db: db}
}

// ReplaceParams describes one succession.
type ReplaceParams struct {
	OldEmployeeID         int64
	NewEmployee           models.Employee
	Reason                *string
	PreviousReplacementID *int64
}

// Replace creates the successor employee, deactivates the old one, appends the replacement edge and links
// it to the previous edge, all inside one transaction.
func (r *ReplacementRepository) Replace(ctx context.Context, params ReplaceParams) (result *models.ReplacementResult, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin replace employee: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if params.PreviousReplacementID != nil {
		var next sql.NullInt64
		const lockQuery = `SELECT next_replacement_id FROM employee_replacements WHERE id = $1 FOR UPDATE`
		if err = tx.GetContext(ctx, &next, lockQuery, *params.PreviousReplacementID); err != nil {
			if err == sql.ErrNoRows {
				return nil, err
			}
			return nil, fmt.Errorf("lock previous replacement: %w", err)
		}
		if next.Valid {
			err = ErrReplacementLinked
			return nil, err
		}
	}

	var newEmployeeID int64
	if err = tx.QueryRowxContext(ctx, insertEmployeeQuery, employeeInsertArgs(&params.NewEmployee)...).Scan(&newEmployeeID); err != nil {
		return nil, fmt.Errorf("insert replacement employee: %w", err)
	}

	const deactivateQuery = `UPDATE employees SET is_active = FALSE, updated_at = NOW() WHERE id = $1`
	if _, err = tx.ExecContext(ctx, deactivateQuery, params.OldEmployeeID); err != nil {
		return nil, fmt.Errorf("deactivate replaced employee: %w", err)
	}

	var replacementID int64
	const insertQuery = `INSERT INTO employee_replacements (old_employee_id, new_employee_id, reason, replacement_date, previous_replacement_id)
VALUES ($1, $2, $3, CURRENT_DATE, $4) RETURNING id`
	if err = tx.QueryRowxContext(ctx, insertQuery, params.OldEmployeeID, newEmployeeID, params.Reason, params.PreviousReplacementID).
		Scan(&replacementID); err != nil {
		return nil, fmt.Errorf("insert replacement: %w", err)
	}

	if params.PreviousReplacementID != nil {
		const linkQuery = `UPDATE employee_replacements SET next_replacement_id = $1 WHERE id = $2`
		if _, err = tx.ExecContext(ctx, linkQuery, replacementID, *params.PreviousReplacementID); err != nil {
			return nil, fmt.Errorf("link previous replacement: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit replace employee: %w", err)
	}

	return &models.ReplacementResult{
		OldEmployeeID:         params.OldEmployeeID,
		NewEmployeeID:         newEmployeeID,
		ReplacementID:         replacementID,
		PreviousReplacementID: params.PreviousReplacementID,
	}, nil
}

// FindByID returns the bare replacement edge.
func (r *ReplacementRepository) FindByID(ctx context.Context, id int64) (*models.Replacement, error) {
	query := `SELECT ` + replacementColumns + ` FROM employee_replacements er WHERE er.id = $1`
	var replacement models.Replacement
	if err := r.db.GetContext(ctx, &replacement, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find replacement: %w", err)
	}
	return &replacement, nil
}

// GetDetail returns an edge with both employee names and the ids of its linked neighbours.
func (r *ReplacementRepository) GetDetail(ctx context.Context, id int64) (*models.ReplacementDetail, error) {
	const query = `SELECT er.id, er.old_employee_id, er.new_employee_id, er.reason, er.replacement_date,
prev.id AS previous_replacement_id, nxt.id AS next_replacement_id, er.created_at,
oe.name AS old_employee_name, ne.name AS new_employee_name
FROM employee_replacements er
JOIN employees oe ON oe.id = er.old_employee_id
JOIN employees ne ON ne.id = er.new_employee_id
LEFT JOIN employee_replacements prev ON prev.id = er.previous_replacement_id
LEFT JOIN employee_replacements nxt ON nxt.id = er.next_replacement_id
WHERE er.id = $1`
	var detail models.ReplacementDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("get replacement detail: %w", err)
	}
	return &detail, nil
}

// ListForEmployee returns every edge where the employee is the old or the new side. newestFirst selects
// history ordering; otherwise edges come oldest first.
func (r *ReplacementRepository) ListForEmployee(ctx context.Context, employeeID int64, newestFirst bool) ([]models.ReplacementDetail, error) {
	order := ` ORDER BY er.replacement_date ASC, er.id ASC`
	if newestFirst {
		order = ` ORDER BY er.replacement_date DESC, er.id DESC`
	}
	query := replacementDetailSelect + ` WHERE er.old_employee_id = $1 OR er.new_employee_id = $1` + order
	items := make([]models.ReplacementDetail, 0)
	if err := r.db.SelectContext(ctx, &items, query, employeeID); err != nil {
		return nil, fmt.Errorf("list employee replacements: %w", err)
	}
	return items, nil
}

// Ancestors walks backwards from the edges that produced the employee, most distant ancestor first.
// Edges already on the walked path are skipped so a malformed cycle terminates.
func (r *ReplacementRepository) Ancestors(ctx context.Context, employeeID int64) ([]models.ReplacementDetail, error) {
	const query = `WITH RECURSIVE replacement_chain AS (
	SELECT er.id, er.old_employee_id, 1 AS depth, ARRAY[er.id] AS path
	FROM employee_replacements er
	WHERE er.new_employee_id = $1
	UNION ALL
	SELECT er.id, er.old_employee_id, rc.depth + 1, rc.path || er.id
	FROM employee_replacements er
	JOIN replacement_chain rc ON er.new_employee_id = rc.old_employee_id
	WHERE NOT er.id = ANY(rc.path)
), ranked AS (
	SELECT id, MIN(depth) AS depth FROM replacement_chain GROUP BY id
)
SELECT er.id, er.old_employee_id, er.new_employee_id, er.reason, er.replacement_date,
er.previous_replacement_id, er.next_replacement_id, er.created_at,
oe.name AS old_employee_name, ne.name AS new_employee_name, ranked.depth
FROM ranked
JOIN employee_replacements er ON er.id = ranked.id
JOIN employees oe ON oe.id = er.old_employee_id
JOIN employees ne ON ne.id = er.new_employee_id
ORDER BY ranked.depth DESC, er.id ASC`
	items := make([]models.ReplacementDetail, 0)
	if err := r.db.SelectContext(ctx, &items, query, employeeID); err != nil {
		return nil, fmt.Errorf("walk replacement chain: %w", err)
	}
	return items, nil
}

// Latest returns the most recent edge touching the employee, or nil when there is none.
func (r *ReplacementRepository) Latest(ctx context.Context, employeeID int64) (*models.ReplacementDetail, error) {
	query := replacementDetailSelect + ` WHERE er.old_employee_id = $1 OR er.new_employee_id = $1
ORDER BY er.replacement_date DESC, er.id DESC LIMIT 1`
	return r.findOne(ctx, "latest replacement", query, employeeID)
}

// Adjacent returns the edge that produced current's old employee and the edge that replaced current's new
// employee. Either may be nil.
func (r *ReplacementRepository) Adjacent(ctx context.Context, current models.Replacement) (previous, next *models.ReplacementDetail, err error) {
	previousQuery := replacementDetailSelect + ` WHERE er.new_employee_id = $1
ORDER BY er.replacement_date DESC, er.id DESC LIMIT 1`
	if previous, err = r.findOne(ctx, "previous replacement", previousQuery, current.OldEmployeeID); err != nil {
		return nil, nil, err
	}
	nextQuery := replacementDetailSelect + ` WHERE er.old_employee_id = $1
ORDER BY er.replacement_date ASC, er.id ASC LIMIT 1`
	if next, err = r.findOne(ctx, "next replacement", nextQuery, current.NewEmployeeID); err != nil {
		return nil, nil, err
	}
	return previous, next, nil
}

func (r *ReplacementRepository) findOne(ctx context.Context, label, query string, arg interface{}) (*models.ReplacementDetail, error) {
	var detail models.ReplacementDetail
	if err := r.db.GetContext(ctx, &detail, query, arg); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("find %s: %w", label, err)
	}
	return &detail, nil
}
