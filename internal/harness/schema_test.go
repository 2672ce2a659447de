package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchemaSource(t *testing.T) {
	src := SchemaSource()
	assert.Contains(t, src, "#Scenario")
	assert.Contains(t, src, "PROPERTY_ALREADY_RENTED")
}

func TestValidateSchema(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		ok   bool
	}{
		{
			name: "minimal",
			yaml: "name: a\nsteps:\n  - {op: pay-monthly-rent, caller: bob, args: {agreement_id: 1}}\n",
			ok:   true,
		},
		{
			name: "bad name",
			yaml: "name: Has Spaces\nsteps:\n  - {op: pay-monthly-rent, caller: bob, args: {agreement_id: 1}}\n",
		},
		{
			name: "missing args",
			yaml: "name: a\nsteps:\n  - {op: create-agreement, caller: bob, args: {property_id: 1}}\n",
		},
		{
			name: "zero period",
			yaml: "name: a\npolicy: {period_length: 0}\nsteps:\n  - {op: pay-monthly-rent, caller: bob, args: {agreement_id: 1}}\n",
		},
		{
			name: "unknown deposit policy",
			yaml: "name: a\npolicy: {deposit_policy: keep}\nsteps:\n  - {op: pay-monthly-rent, caller: bob, args: {agreement_id: 1}}\n",
		},
		{
			name: "trace_count op",
			yaml: "name: a\nsteps:\n  - {op: pay-monthly-rent, caller: bob, args: {agreement_id: 1}}\nexpect: {trace_count: {evict: 1}}\n",
		},
		{
			name: "bad agreement state",
			yaml: "name: a\nsteps:\n  - {op: pay-monthly-rent, caller: bob, args: {agreement_id: 1}}\nexpect: {agreements: [{id: 1, state: paused}]}\n",
		},
		{
			name: "not yaml",
			yaml: "name: [unclosed\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateSchema(tt.name+".yaml", []byte(tt.yaml))
			if tt.ok {
				require.NoError(t, err)
				return
			}
			assert.Error(t, err)
		})
	}
}
