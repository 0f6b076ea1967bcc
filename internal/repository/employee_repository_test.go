package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/salary-api/internal/models"
)

var employeeCols = []string{
	"id", "register_date", "name", "father_name", "age", "education", "designation", "department", "department_id",
	"salary", "reference", "id_card_number", "address", "phone_number", "is_active", "created_at", "updated_at",
}

func TestEmployeeRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEmployeeRepository(db)

	department := "Finance"
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO employees")).
		WithArgs(nil, "Asif", nil, nil, nil, nil, "Finance", "1200", nil, nil, nil, nil).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(11)))

	employee := &models.Employee{Name: "Asif", Department: &department, Salary: decimal.RequireFromString("1200")}
	require.NoError(t, repo.Create(context.Background(), employee))
	assert.Equal(t, int64(11), employee.ID)
	assert.True(t, employee.IsActive)
}

func TestEmployeeRepositoryFindByID(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEmployeeRepository(db)
	now := time.Now()

	rows := sqlmock.NewRows(employeeCols).
		AddRow(int64(3), now, "Asif", nil, 31, nil, "Clerk", "Finance", int64(2), "1200.50", nil, "ID-1", nil, nil, true, now, now)
	mock.ExpectQuery(regexp.QuoteMeta("FROM employees WHERE id = $1")).WithArgs(int64(3)).WillReturnRows(rows)

	employee, err := repo.FindByID(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, "Asif", employee.Name)
	assert.True(t, employee.Salary.Equal(decimal.RequireFromString("1200.50")))
	require.NotNil(t, employee.Age)
	assert.Equal(t, 31, *employee.Age)

	mock.ExpectQuery(regexp.QuoteMeta("FROM employees WHERE id = $1")).WithArgs(int64(4)).WillReturnError(sql.ErrNoRows)
	_, err = repo.FindByID(context.Background(), 4)
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestEmployeeRepositoryListActiveFilter(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEmployeeRepository(db)
	active := true

	mock.ExpectQuery(regexp.QuoteMeta("FROM employees WHERE is_active = $1 ORDER BY register_date DESC, id DESC")).
		WithArgs(true).
		WillReturnRows(sqlmock.NewRows(employeeCols))

	items, err := repo.List(context.Background(), models.EmployeeFilter{Active: &active})
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestEmployeeRepositorySetActiveMissing(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEmployeeRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE employees SET is_active = $2")).
		WithArgs(int64(9), false).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.SetActive(context.Background(), 9, false)
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestEmployeeRepositoryLoans(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEmployeeRepository(db)
	now := time.Now()
	loanDate, err := models.ParseDate("2024-05-01")
	require.NoError(t, err)

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO employee_loans")).
		WithArgs(int64(3), "500", "2024-05-01", nil).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(int64(1), now))
	loan := &models.EmployeeLoan{EmployeeID: 3, Amount: decimal.NewFromInt(500), LoanDate: loanDate}
	require.NoError(t, repo.CreateLoan(context.Background(), loan))
	assert.Equal(t, int64(1), loan.ID)

	mock.ExpectQuery(regexp.QuoteMeta("FROM employee_loans WHERE employee_id = $1 ORDER BY loan_date DESC")).
		WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "employee_id", "amount", "loan_date", "description", "created_at"}).
			AddRow(int64(1), int64(3), "500", now, nil, now))
	loans, err := repo.ListLoans(context.Background(), 3)
	require.NoError(t, err)
	require.Len(t, loans, 1)
	assert.True(t, loans[0].Amount.Equal(decimal.NewFromInt(500)))
}
