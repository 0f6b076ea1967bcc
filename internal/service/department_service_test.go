package service

import (
	"context"
	"database/sql"
	"net/http"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/salary-api/internal/dto"
	"github.com/noah-isme/salary-api/internal/models"
	appErrors "github.com/noah-isme/salary-api/pkg/errors"
)

type departmentRepoStub struct {
	departments map[int64]*models.Department
	history     []models.DepartmentSalaryHistory
	createErr   error
	updateErr   error
	deleteErr   error
	nextID      int64
}

func newDepartmentRepoStub() *departmentRepoStub {
	return &departmentRepoStub{
		departments: map[int64]*models.Department{1: {ID: 1, Name: "Operations", TotalSalary: dec("50000")}},
		nextID:      2,
	}
}

func (r *departmentRepoStub) List(ctx context.Context) ([]models.Department, error) {
	items := make([]models.Department, 0, len(r.departments))
	for _, department := range r.departments {
		items = append(items, *department)
	}
	return items, nil
}

func (r *departmentRepoStub) FindByID(ctx context.Context, id int64) (*models.Department, error) {
	department, ok := r.departments[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return department, nil
}

func (r *departmentRepoStub) Create(ctx context.Context, department *models.Department) error {
	if r.createErr != nil {
		return r.createErr
	}
	department.ID = r.nextID
	r.nextID++
	r.departments[department.ID] = department
	return nil
}

func (r *departmentRepoStub) Delete(ctx context.Context, id int64) error {
	if r.deleteErr != nil {
		return r.deleteErr
	}
	if _, ok := r.departments[id]; !ok {
		return sql.ErrNoRows
	}
	delete(r.departments, id)
	return nil
}

// Update mirrors the repository contract: history is appended only when the budget actually moves.
func (r *departmentRepoStub) Update(ctx context.Context, id int64, changes models.DepartmentChanges) (*models.DepartmentUpdateResult, error) {
	if r.updateErr != nil {
		return nil, r.updateErr
	}
	department, ok := r.departments[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	result := &models.DepartmentUpdateResult{}
	if changes.Name != nil {
		department.Name = *changes.Name
	}
	if changes.TotalSalary != nil && !changes.TotalSalary.Equal(department.TotalSalary) {
		entry := models.DepartmentSalaryHistory{
			ID:           int64(len(r.history) + 1),
			DepartmentID: id,
			OldSalary:    department.TotalSalary,
			NewSalary:    *changes.TotalSalary,
		}
		r.history = append(r.history, entry)
		department.TotalSalary = *changes.TotalSalary
		result.SalaryChanged = true
		result.HistoryEntry = &entry
	}
	result.Department = *department
	return result, nil
}

func (r *departmentRepoStub) SalaryHistory(ctx context.Context, departmentID int64) ([]models.DepartmentSalaryHistory, error) {
	return r.history, nil
}

func TestDepartmentServiceCreate(t *testing.T) {
	repo := newDepartmentRepoStub()
	svc := NewDepartmentService(repo, nil, nil, nil, nil)

	department, err := svc.Create(context.Background(), dto.CreateDepartmentRequest{Name: "  HR  "})
	require.NoError(t, err)
	assert.Equal(t, "HR", department.Name)
	assert.True(t, department.TotalSalary.IsZero())

	_, err = svc.Create(context.Background(), dto.CreateDepartmentRequest{Name: "   "})
	assert.Equal(t, "department name is required", appErrors.FromError(err).Message)

	_, err = svc.Create(context.Background(), dto.CreateDepartmentRequest{Name: "Audit", TotalSalary: decPtr("-10")})
	assert.Equal(t, http.StatusBadRequest, appErrors.FromError(err).Status)

	repo.createErr = &pq.Error{Code: "23505"}
	_, err = svc.Create(context.Background(), dto.CreateDepartmentRequest{Name: "HR"})
	assert.Equal(t, http.StatusConflict, appErrors.FromError(err).Status)
}

func TestDepartmentServiceUpdateSameSalaryKeepsHistory(t *testing.T) {
	repo := newDepartmentRepoStub()
	cacheRepo := newMemoryCache()
	svc := NewDepartmentService(repo, newTestCache(cacheRepo), nil, nil, nil)

	result, err := svc.Update(context.Background(), 1, dto.UpdateDepartmentRequest{TotalSalary: decPtr("50000.00")})
	require.NoError(t, err)
	assert.False(t, result.SalaryChanged)
	assert.Empty(t, repo.history)
	assert.Empty(t, cacheRepo.invalidated)
}

func TestDepartmentServiceUpdateSalaryRecordsHistory(t *testing.T) {
	repo := newDepartmentRepoStub()
	cacheRepo := newMemoryCache()
	svc := NewDepartmentService(repo, newTestCache(cacheRepo), NewMetricsService(), nil, nil)

	result, err := svc.Update(context.Background(), 1, dto.UpdateDepartmentRequest{TotalSalary: decPtr("65000")})
	require.NoError(t, err)
	assert.True(t, result.SalaryChanged)
	require.NotNil(t, result.HistoryEntry)
	assert.True(t, result.HistoryEntry.OldSalary.Equal(dec("50000")))
	assert.True(t, result.HistoryEntry.NewSalary.Equal(dec("65000")))
	assert.Equal(t, []string{"kharcha:*"}, cacheRepo.invalidated)

	history, err := svc.SalaryHistory(context.Background(), 1)
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestDepartmentServiceUpdateErrors(t *testing.T) {
	repo := newDepartmentRepoStub()
	svc := NewDepartmentService(repo, nil, nil, nil, nil)

	_, err := svc.Update(context.Background(), 9, dto.UpdateDepartmentRequest{Name: strPtr("X")})
	assert.Equal(t, http.StatusNotFound, appErrors.FromError(err).Status)

	_, err = svc.Update(context.Background(), 1, dto.UpdateDepartmentRequest{Name: strPtr("  ")})
	assert.Equal(t, http.StatusBadRequest, appErrors.FromError(err).Status)

	repo.updateErr = &pq.Error{Code: "23505"}
	_, err = svc.Update(context.Background(), 1, dto.UpdateDepartmentRequest{Name: strPtr("HR")})
	assert.Equal(t, http.StatusConflict, appErrors.FromError(err).Status)
}

func TestDepartmentServiceDelete(t *testing.T) {
	repo := newDepartmentRepoStub()
	svc := NewDepartmentService(repo, nil, nil, nil, nil)

	repo.deleteErr = &pq.Error{Code: "23503"}
	err := svc.Delete(context.Background(), 1)
	assert.Equal(t, http.StatusConflict, appErrors.FromError(err).Status)

	repo.deleteErr = nil
	require.NoError(t, svc.Delete(context.Background(), 1))
	err = svc.Delete(context.Background(), 1)
	assert.Equal(t, http.StatusNotFound, appErrors.FromError(err).Status)

	_, err = svc.Get(context.Background(), 1)
	assert.Equal(t, "department not found", appErrors.FromError(err).Message)
}
