package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/salary-api/internal/models"
)

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	sqlxDB := sqlx.NewDb(db, "postgres")
	cleanup := func() {
		require.NoError(t, mock.ExpectationsWereMet())
		_ = sqlxDB.Close()
	}
	return sqlxDB, mock, cleanup
}

var replacementDetailCols = []string{
	"id", "old_employee_id", "new_employee_id", "reason", "replacement_date",
	"previous_replacement_id", "next_replacement_id", "created_at", "old_employee_name", "new_employee_name",
}

func replacementDetailRow(rows *sqlmock.Rows, id, oldID, newID int64, oldName, newName string, date time.Time) *sqlmock.Rows {
	return rows.AddRow(id, oldID, newID, nil, date, nil, nil, date, oldName, newName)
}

func newReplacementParams(previous *int64) ReplaceParams {
	reason := "retired"
	department := "Finance"
	return ReplaceParams{
		OldEmployeeID: 10,
		NewEmployee: models.Employee{
			Name:       "Bilal",
			Department: &department,
			Salary:     decimal.RequireFromString("1500"),
		},
		Reason:                &reason,
		PreviousReplacementID: previous,
	}
}

func TestReplacementRepositoryReplaceWithoutPrevious(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewReplacementRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO employees")).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(42)))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE employees SET is_active = FALSE")).
		WithArgs(int64(10)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO employee_replacements")).
		WithArgs(int64(10), int64(42), "retired", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(5)))
	mock.ExpectCommit()

	result, err := repo.Replace(context.Background(), newReplacementParams(nil))
	require.NoError(t, err)
	assert.Equal(t, int64(10), result.OldEmployeeID)
	assert.Equal(t, int64(42), result.NewEmployeeID)
	assert.Equal(t, int64(5), result.ReplacementID)
	assert.Nil(t, result.PreviousReplacementID)
}

func TestReplacementRepositoryReplaceLinksPrevious(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewReplacementRepository(db)
	previous := int64(7)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT next_replacement_id FROM employee_replacements WHERE id = $1 FOR UPDATE")).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"next_replacement_id"}).AddRow(nil))
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO employees")).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(42)))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE employees SET is_active = FALSE")).
		WithArgs(int64(10)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO employee_replacements")).
		WithArgs(int64(10), int64(42), "retired", int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(8)))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE employee_replacements SET next_replacement_id = $1 WHERE id = $2")).
		WithArgs(int64(8), int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	result, err := repo.Replace(context.Background(), newReplacementParams(&previous))
	require.NoError(t, err)
	assert.Equal(t, int64(8), result.ReplacementID)
	require.NotNil(t, result.PreviousReplacementID)
	assert.Equal(t, int64(7), *result.PreviousReplacementID)
}

func TestReplacementRepositoryReplaceRollsBackOnInsertFailure(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewReplacementRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO employees")).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(42)))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE employees SET is_active = FALSE")).
		WithArgs(int64(10)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO employee_replacements")).
		WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	result, err := repo.Replace(context.Background(), newReplacementParams(nil))
	require.Error(t, err)
	assert.Nil(t, result)
	assert.Contains(t, err.Error(), "insert replacement")
}

func TestReplacementRepositoryReplaceRejectsLinkedPrevious(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewReplacementRepository(db)
	previous := int64(7)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT next_replacement_id FROM employee_replacements")).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"next_replacement_id"}).AddRow(int64(9)))
	mock.ExpectRollback()

	_, err := repo.Replace(context.Background(), newReplacementParams(&previous))
	assert.ErrorIs(t, err, ErrReplacementLinked)
}

func TestReplacementRepositoryAncestors(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewReplacementRepository(db)
	date := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)

	rows := sqlmock.NewRows(append(append([]string{}, replacementDetailCols...), "depth")).
		AddRow(int64(1), int64(100), int64(200), nil, date, nil, int64(2), date, "Asif", "Bilal", 2).
		AddRow(int64(2), int64(200), int64(300), nil, date, int64(1), nil, date, "Bilal", "Chand", 1)
	mock.ExpectQuery(regexp.QuoteMeta("WITH RECURSIVE replacement_chain AS")).
		WithArgs(int64(300)).
		WillReturnRows(rows)

	items, err := repo.Ancestors(context.Background(), 300)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, int64(1), items[0].ID)
	require.NotNil(t, items[0].Depth)
	assert.Equal(t, 2, *items[0].Depth)
	assert.Equal(t, "Chand", items[1].NewEmployeeName)
}

func TestReplacementRepositoryListForEmployeeOrdering(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewReplacementRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY er.replacement_date ASC, er.id ASC")).
		WithArgs(int64(100)).
		WillReturnRows(sqlmock.NewRows(replacementDetailCols))
	items, err := repo.ListForEmployee(context.Background(), 100, false)
	require.NoError(t, err)
	assert.Empty(t, items)

	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY er.replacement_date DESC, er.id DESC")).
		WithArgs(int64(100)).
		WillReturnRows(replacementDetailRow(sqlmock.NewRows(replacementDetailCols), 1, 100, 200, "Asif", "Bilal", time.Now()))
	items, err = repo.ListForEmployee(context.Background(), 100, true)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Asif", items[0].OldEmployeeName)
}

func TestReplacementRepositoryAdjacentAtChainEnd(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewReplacementRepository(db)
	date := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE er.new_employee_id = $1")).
		WithArgs(int64(200)).
		WillReturnRows(replacementDetailRow(sqlmock.NewRows(replacementDetailCols), 1, 100, 200, "A", "B", date))
	mock.ExpectQuery(regexp.QuoteMeta("WHERE er.old_employee_id = $1")).
		WithArgs(int64(300)).
		WillReturnError(sql.ErrNoRows)

	previous, next, err := repo.Adjacent(context.Background(), models.Replacement{ID: 2, OldEmployeeID: 200, NewEmployeeID: 300})
	require.NoError(t, err)
	require.NotNil(t, previous)
	assert.Equal(t, int64(1), previous.ID)
	assert.Nil(t, next)
}

func TestReplacementRepositoryGetDetailNotFound(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewReplacementRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("LEFT JOIN employee_replacements prev")).
		WithArgs(int64(77)).
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetDetail(context.Background(), 77)
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestReplacementRepositoryLatestNone(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewReplacementRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY er.replacement_date DESC, er.id DESC LIMIT 1")).
		WithArgs(int64(5)).
		WillReturnError(sql.ErrNoRows)

	latest, err := repo.Latest(context.Background(), 5)
	require.NoError(t, err)
	assert.Nil(t, latest)
}
