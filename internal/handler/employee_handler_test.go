package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/salary-api/internal/dto"
	"github.com/noah-isme/salary-api/internal/models"
	appErrors "github.com/noah-isme/salary-api/pkg/errors"
)

type employeeServiceMock struct {
	employee   *models.Employee
	employees  []models.Employee
	err        error
	lastActive *bool
	lastID     int64
	activeSet  *bool
}

func (m *employeeServiceMock) Create(ctx context.Context, req dto.EmployeeRequest) (*models.Employee, error) {
	return m.employee, m.err
}

func (m *employeeServiceMock) List(ctx context.Context, active *bool) ([]models.Employee, error) {
	m.lastActive = active
	return m.employees, m.err
}

func (m *employeeServiceMock) CountActive(ctx context.Context) (int, error) {
	return len(m.employees), m.err
}

func (m *employeeServiceMock) Departments(ctx context.Context) ([]string, error) {
	return []string{"Operations"}, m.err
}

func (m *employeeServiceMock) Get(ctx context.Context, id int64) (*models.Employee, error) {
	m.lastID = id
	return m.employee, m.err
}

func (m *employeeServiceMock) Update(ctx context.Context, id int64, req dto.EmployeeRequest) (*models.Employee, error) {
	m.lastID = id
	return m.employee, m.err
}

func (m *employeeServiceMock) Delete(ctx context.Context, id int64) error {
	m.lastID = id
	return m.err
}

func (m *employeeServiceMock) SetActive(ctx context.Context, id int64, active bool) error {
	m.lastID = id
	m.activeSet = &active
	return m.err
}

func (m *employeeServiceMock) AddExpense(ctx context.Context, employeeID int64, req dto.EmployeeExpenseRequest) (*models.EmployeeExpense, error) {
	return &models.EmployeeExpense{ID: 1, EmployeeID: employeeID}, m.err
}

func (m *employeeServiceMock) ListExpenses(ctx context.Context, employeeID int64) ([]models.EmployeeExpense, error) {
	return nil, m.err
}

func (m *employeeServiceMock) AddLoan(ctx context.Context, employeeID int64, req dto.EmployeeLoanRequest) (*models.EmployeeLoan, error) {
	return &models.EmployeeLoan{ID: 1, EmployeeID: employeeID}, m.err
}

func (m *employeeServiceMock) ListLoans(ctx context.Context, employeeID int64) ([]models.EmployeeLoan, error) {
	return nil, m.err
}

type replacementServiceMock struct {
	result     *models.ReplacementResult
	chain      []models.ReplacementDetail
	chainHit   bool
	detail     *models.ReplacementDetail
	adjacent   *models.AdjacentReplacements
	err        error
	lastOldID  int64
	lastReq    dto.ReplaceEmployeeRequest
	replaceHit bool
}

func (m *replacementServiceMock) ReplaceEmployee(ctx context.Context, oldEmployeeID int64, req dto.ReplaceEmployeeRequest) (*models.ReplacementResult, error) {
	m.replaceHit = true
	m.lastOldID = oldEmployeeID
	m.lastReq = req
	return m.result, m.err
}

func (m *replacementServiceMock) GetReplacementHistory(ctx context.Context, employeeID int64) ([]models.ReplacementDetail, error) {
	return m.chain, m.err
}

func (m *replacementServiceMock) GetReplacementChain(ctx context.Context, employeeID int64) ([]models.ReplacementDetail, bool, error) {
	return m.chain, m.chainHit, m.err
}

func (m *replacementServiceMock) GetLatestReplacement(ctx context.Context, employeeID int64) (*models.ReplacementDetail, error) {
	return m.detail, m.err
}

func (m *replacementServiceMock) GetAdjacentReplacements(ctx context.Context, replacementID int64) (*models.AdjacentReplacements, error) {
	return m.adjacent, m.err
}

func (m *replacementServiceMock) GetReplacementByID(ctx context.Context, replacementID int64) (*models.ReplacementDetail, error) {
	return m.detail, m.err
}

func TestEmployeeHandlerReplaceCreated(t *testing.T) {
	previous := int64(4)
	replacements := &replacementServiceMock{result: &models.ReplacementResult{
		OldEmployeeID:         1,
		NewEmployeeID:         9,
		ReplacementID:         5,
		PreviousReplacementID: &previous,
	}}
	handler := NewEmployeeHandler(&employeeServiceMock{}, replacements)

	body := mustJSON(t, map[string]interface{}{"name": "Sara", "reason": "resigned", "previousReplacementId": 4})
	c, w := newGinContext(http.MethodPost, "/employees/1/replace", body)
	c.Params = gin.Params{{Key: "id", Value: "1"}}

	handler.Replace(c)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, int64(1), replacements.lastOldID)
	assert.Equal(t, "Sara", replacements.lastReq.Name)
	require.NotNil(t, replacements.lastReq.PreviousReplacementID)
	assert.Equal(t, int64(4), *replacements.lastReq.PreviousReplacementID)

	var resp dto.ReplaceEmployeeResponse
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, w).Data, &resp))
	assert.Equal(t, "Employee replaced successfully", resp.Message)
	assert.Equal(t, int64(9), resp.NewEmployeeID)
	assert.Equal(t, int64(5), resp.ReplacementID)
	assert.Equal(t, &previous, resp.PreviousReplacementID)
}

func TestEmployeeHandlerReplaceRejectsBadInput(t *testing.T) {
	replacements := &replacementServiceMock{}
	handler := NewEmployeeHandler(&employeeServiceMock{}, replacements)

	c, w := newGinContext(http.MethodPost, "/employees/abc/replace", []byte(`{"name":"Sara"}`))
	c.Params = gin.Params{{Key: "id", Value: "abc"}}
	handler.Replace(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	c, w = newGinContext(http.MethodPost, "/employees/1/replace", []byte(`{"name":`))
	c.Params = gin.Params{{Key: "id", Value: "1"}}
	handler.Replace(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.False(t, replacements.replaceHit)
}

func TestEmployeeHandlerReplacePropagatesServiceStatus(t *testing.T) {
	replacements := &replacementServiceMock{err: appErrors.Clone(appErrors.ErrPreconditionFailed, "employee is not active")}
	handler := NewEmployeeHandler(&employeeServiceMock{}, replacements)

	c, w := newGinContext(http.MethodPost, "/employees/3/replace", []byte(`{"name":"Sara"}`))
	c.Params = gin.Params{{Key: "id", Value: "3"}}
	handler.Replace(c)

	require.Equal(t, http.StatusPreconditionFailed, w.Code)
	env := decodeEnvelope(t, w)
	require.NotNil(t, env.Error)
	assert.Equal(t, "employee is not active", env.Error.Message)
}

func TestEmployeeHandlerReplacementChainReportsCacheHit(t *testing.T) {
	replacements := &replacementServiceMock{
		chain:    []models.ReplacementDetail{{Replacement: models.Replacement{ID: 1, OldEmployeeID: 1, NewEmployeeID: 2}}},
		chainHit: true,
	}
	handler := NewEmployeeHandler(&employeeServiceMock{}, replacements)

	c, w := newGinContext(http.MethodGet, "/employees/2/replacement-chain", nil)
	c.Params = gin.Params{{Key: "id", Value: "2"}}
	handler.ReplacementChain(c)

	require.Equal(t, http.StatusOK, w.Code)
	env := decodeEnvelope(t, w)
	assert.Equal(t, true, env.Meta["cache_hit"])
	var chain []models.ReplacementDetail
	require.NoError(t, json.Unmarshal(env.Data, &chain))
	assert.Len(t, chain, 1)
}

func TestEmployeeHandlerLatestReplacementNotFound(t *testing.T) {
	replacements := &replacementServiceMock{err: appErrors.Clone(appErrors.ErrNotFound, "no replacement found")}
	handler := NewEmployeeHandler(&employeeServiceMock{}, replacements)

	c, w := newGinContext(http.MethodGet, "/employees/2/latest-replacement", nil)
	c.Params = gin.Params{{Key: "id", Value: "2"}}
	handler.LatestReplacement(c)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestEmployeeHandlerAdjacentReplacements(t *testing.T) {
	adjacent := &models.AdjacentReplacements{
		Current:  models.ReplacementDetail{Replacement: models.Replacement{ID: 2, OldEmployeeID: 2, NewEmployeeID: 3}},
		Previous: &models.ReplacementDetail{Replacement: models.Replacement{ID: 1, OldEmployeeID: 1, NewEmployeeID: 2}},
	}
	handler := NewEmployeeHandler(&employeeServiceMock{}, &replacementServiceMock{adjacent: adjacent})

	c, w := newGinContext(http.MethodGet, "/employees/replacements/2/adjacent", nil)
	c.Params = gin.Params{{Key: "id", Value: "2"}}
	handler.AdjacentReplacements(c)

	require.Equal(t, http.StatusOK, w.Code)
	var got models.AdjacentReplacements
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, w).Data, &got))
	require.NotNil(t, got.Previous)
	assert.Equal(t, int64(1), got.Previous.ID)
	assert.Nil(t, got.Next)
}

func TestEmployeeHandlerListActiveFilter(t *testing.T) {
	employees := &employeeServiceMock{employees: []models.Employee{{ID: 1, Name: "Ali", IsActive: true}}}
	handler := NewEmployeeHandler(employees, &replacementServiceMock{})

	c, w := newGinContext(http.MethodGet, "/employees?active=true", nil)
	handler.List(c)
	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, employees.lastActive)
	assert.True(t, *employees.lastActive)

	c, w = newGinContext(http.MethodGet, "/employees?active=maybe", nil)
	handler.List(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestEmployeeHandlerDeactivate(t *testing.T) {
	employees := &employeeServiceMock{}
	handler := NewEmployeeHandler(employees, &replacementServiceMock{})

	c, w := newGinContext(http.MethodPut, "/employees/7/deactivate", nil)
	c.Params = gin.Params{{Key: "id", Value: "7"}}
	handler.Deactivate(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int64(7), employees.lastID)
	require.NotNil(t, employees.activeSet)
	assert.False(t, *employees.activeSet)
	assert.Equal(t, "employee deactivated", decodeEnvelope(t, w).Message)
}

func TestEmployeeHandlerCount(t *testing.T) {
	employees := &employeeServiceMock{employees: []models.Employee{{ID: 1}, {ID: 2}}}
	handler := NewEmployeeHandler(employees, &replacementServiceMock{})

	c, w := newGinContext(http.MethodGet, "/employees/count", nil)
	handler.Count(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"total":2}`, string(decodeEnvelope(t, w).Data))
}
