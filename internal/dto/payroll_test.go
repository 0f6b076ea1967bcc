package dto

import (
	"encoding/json"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGeneratePayrollRequestComponentKeys(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{name: "type and name", body: `{"period_id":3,"employees":[{"employee_id":1,"components":[{"type":"allowance","name":"Transport","amount":"50"}]}]}`},
		{name: "column names", body: `{"period_id":3,"employees":[{"employee_id":1,"components":[{"component_type":"allowance","component_name":"Transport","amount":"50"}]}]}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var req GeneratePayrollRequest
			require.NoError(t, json.Unmarshal([]byte(tc.body), &req))
			require.NoError(t, validator.New().Struct(req))

			component := req.Employees[0].Components[0]
			assert.Equal(t, "allowance", component.ComponentType)
			assert.Equal(t, "Transport", component.ComponentName)
			require.NotNil(t, component.Amount)
			assert.Equal(t, "50", component.Amount.String())
		})
	}
}

func TestPayrollComponentRequestMissingFieldsFailValidation(t *testing.T) {
	var req GeneratePayrollRequest
	require.NoError(t, json.Unmarshal([]byte(`{"period_id":3,"employees":[{"employee_id":1,"components":[{"amount":"5"}]}]}`), &req))
	assert.Error(t, validator.New().Struct(req))

	var component PayrollComponentRequest
	assert.Error(t, json.Unmarshal([]byte(`{"type":7}`), &component))
}

func TestPayrollComponentRequestEncodesTypeAndName(t *testing.T) {
	raw, err := json.Marshal(PayrollComponentRequest{ComponentType: "bonus", ComponentName: "Eid"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"bonus","name":"Eid","amount":null}`, string(raw))
}
