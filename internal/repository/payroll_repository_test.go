package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/salary-api/internal/models"
)

func samplePayrollBatch() models.PayrollBatch {
	return models.PayrollBatch{
		DepartmentID: 3,
		PeriodID:     4,
		Entries: []models.PayrollEntry{
			{
				EmployeeID:  11,
				BasicSalary: decimal.NewFromInt(1000),
				NetSalary:   decimal.NewFromInt(1100),
				WorkingDays: 30,
				Components: []models.PayrollComponentEntry{
					{Type: models.ComponentAllowance, Name: "Transport", Amount: decimal.NewFromInt(100)},
				},
			},
			{EmployeeID: 12, BasicSalary: decimal.NewFromInt(900), NetSalary: decimal.NewFromInt(900)},
		},
	}
}

func TestPayrollRepositoryGenerate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewPayrollRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO employee_payroll")).
		WithArgs(int64(11), int64(4), int64(3), "1000", "0", "0", "1100", 30, 0, "0", "0", "0").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(101)))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO payroll_components")).
		WithArgs(int64(101), "allowance", "Transport", "100").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO employee_payroll")).
		WithArgs(int64(12), int64(4), int64(3), "900", "0", "0", "900", 0, 0, "0", "0", "0").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(102)))
	mock.ExpectCommit()

	processed, err := repo.Generate(context.Background(), samplePayrollBatch())
	require.NoError(t, err)
	assert.Equal(t, 2, processed)
}

func TestPayrollRepositoryGenerateEmptyBatchCommits(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewPayrollRepository(db)

	mock.ExpectBegin()
	mock.ExpectCommit()

	processed, err := repo.Generate(context.Background(), models.PayrollBatch{DepartmentID: 3, PeriodID: 4})
	require.NoError(t, err)
	assert.Zero(t, processed)
}

func TestPayrollRepositoryGenerateRollsBackOnComponentFailure(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewPayrollRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO employee_payroll")).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(101)))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO payroll_components")).
		WillReturnError(errors.New("value too long for type character varying(120)"))
	mock.ExpectRollback()

	processed, err := repo.Generate(context.Background(), samplePayrollBatch())
	require.Error(t, err)
	assert.Zero(t, processed)
	assert.Contains(t, err.Error(), "Transport")
}

func TestPayrollRepositoryGenerateUniqueViolation(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewPayrollRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO employee_payroll")).
		WillReturnError(&pq.Error{Code: "23505", Constraint: "uq_payroll_employee_period"})
	mock.ExpectRollback()

	_, err := repo.Generate(context.Background(), samplePayrollBatch())
	require.Error(t, err)
	assert.True(t, IsUniqueViolation(err))
}

var payrollDetailCols = []string{
	"id", "employee_id", "period_id", "department_id", "basic_salary", "allowances", "deductions", "net_salary",
	"working_days", "leave_days", "daily_rate", "working_salary", "leave_salary", "created_at",
	"employee_name", "designation", "id_card_number", "department_name", "period_name", "start_date", "end_date", "period_type",
}

func TestPayrollRepositoryListAttachesComponents(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewPayrollRepository(db)
	now := time.Now()
	department := int64(3)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE ep.period_id = $1 AND ep.department_id = $2")).
		WithArgs(int64(4), int64(3)).
		WillReturnRows(sqlmock.NewRows(payrollDetailCols).
			AddRow(int64(101), int64(11), int64(4), int64(3), "1000", "100", "0", "1100", 30, 0, "33.33", "1000", "0", now,
				"Asif", "Clerk", nil, "Finance", "Jan 2024", now, now, "full_month").
			AddRow(int64(102), int64(12), int64(4), int64(3), "900", "0", "0", "900", 30, 0, "30", "900", "0", now,
				"Bilal", nil, nil, "Finance", "Jan 2024", now, now, "full_month"))
	mock.ExpectQuery(regexp.QuoteMeta("FROM payroll_components WHERE payroll_id = ANY($1)")).
		WithArgs(pq.Array([]int64{101, 102})).
		WillReturnRows(sqlmock.NewRows([]string{"id", "payroll_id", "component_type", "component_name", "amount"}).
			AddRow(int64(1), int64(101), "allowance", "Transport", "100"))

	items, err := repo.List(context.Background(), PayrollFilter{PeriodID: 4, DepartmentID: &department})
	require.NoError(t, err)
	require.Len(t, items, 2)
	require.Len(t, items[0].Components, 1)
	assert.Equal(t, "Transport", items[0].Components[0].ComponentName)
	assert.Empty(t, items[1].Components)
}

func TestPayrollRepositoryGetPayslipNotFound(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewPayrollRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE ep.id = $1")).WithArgs(int64(5)).WillReturnError(sql.ErrNoRows)
	_, err := repo.GetPayslip(context.Background(), 5)
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestPayrollRepositoryLeaveSummary(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewPayrollRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM employee_leaves WHERE employee_id = $1 AND period_id = $2")).
		WithArgs(int64(11), int64(4)).
		WillReturnRows(sqlmock.NewRows([]string{"employee_id", "period_id", "total_leave_days", "leave_records"}).
			AddRow(int64(11), int64(4), 3, 2))

	summary, err := repo.LeaveSummary(context.Background(), 11, 4)
	require.NoError(t, err)
	assert.Equal(t, 3, summary.TotalLeaveDays)
	assert.Equal(t, 2, summary.LeaveRecords)
}
