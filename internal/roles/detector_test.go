package roles

import (
	"testing"

	"biasaudit/domain/core"
	"biasaudit/domain/dataset"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func schemaOf(cols ...string) dataset.Schema {
	s := make(dataset.Schema, 0, len(cols))
	for _, c := range cols {
		kind := dataset.KindNumeric
		if c[0] == '*' {
			kind = dataset.KindCategorical
			c = c[1:]
		}
		s = append(s, dataset.Column{Name: c, Kind: kind})
	}
	return s
}

func TestDetect_PriorityTargetBeatsKeyword(t *testing.T) {
	d := NewDetector(nil)
	schema := schemaOf("*Applicant_Name", "*Gender", "Income", "Decision_Score", "Loan_Approved")

	roles, err := d.Detect(schema, Hints{})
	require.NoError(t, err)
	assert.Equal(t, "Loan_Approved", roles.Target)
	assert.Equal(t, "Gender", roles.Protected)
	assert.Equal(t, []string{"Applicant_Name"}, roles.Identifiers)
}

func TestDetect_PriorityTargetIsCaseInsensitive(t *testing.T) {
	roles, err := NewDetector(nil).Detect(schemaOf("*sex", "Income", "OUTCOME"), Hints{})
	require.NoError(t, err)
	assert.Equal(t, "OUTCOME", roles.Target)
}

func TestDetect_KeywordSkipsStopToken(t *testing.T) {
	schema := schemaOf("Months_Employed_Status", "*Race", "Hiring_Decision")

	roles, err := NewDetector(nil).Detect(schema, Hints{})
	require.NoError(t, err)
	assert.Equal(t, "Hiring_Decision", roles.Target)
	assert.Equal(t, "Race", roles.Protected)
}

func TestDetect_ProtectedFallsBackToFirstCategorical(t *testing.T) {
	schema := schemaOf("*Applicant_Name", "Income", "*Region", "*City", "Approved")

	roles, err := NewDetector(nil).Detect(schema, Hints{})
	require.NoError(t, err)
	assert.Equal(t, "Approved", roles.Target)
	assert.Equal(t, "Region", roles.Protected)
}

func TestDetect_BadHintsFallBackToInference(t *testing.T) {
	schema := schemaOf("*Caste", "Income", "Loan_Status")

	roles, err := NewDetector(nil).Detect(schema, Hints{Target: "Nope", Protected: "Missing"})
	require.NoError(t, err)
	assert.Equal(t, "Loan_Status", roles.Target)
	assert.Equal(t, "Caste", roles.Protected)
}

func TestDetect_ValidHintsWin(t *testing.T) {
	schema := schemaOf("*Gender", "*Religion", "Income", "Loan_Status", "Repaid")

	roles, err := NewDetector(nil).Detect(schema, Hints{Target: "Repaid", Protected: "Religion"})
	require.NoError(t, err)
	assert.Equal(t, "Repaid", roles.Target)
	assert.Equal(t, "Religion", roles.Protected)
}

func TestDetect_ProtectedNeverEqualsTarget(t *testing.T) {
	// "Gender_Status" matches both a target keyword and a protected keyword
	schema := schemaOf("*Gender_Status", "*Ethnicity", "Income")

	roles, err := NewDetector(nil).Detect(schema, Hints{})
	require.NoError(t, err)
	assert.Equal(t, "Gender_Status", roles.Target)
	assert.Equal(t, "Ethnicity", roles.Protected)

	roles, err = NewDetector(nil).Detect(schema, Hints{Target: "Ethnicity", Protected: "Ethnicity"})
	require.NoError(t, err)
	assert.Equal(t, "Ethnicity", roles.Target)
	assert.Equal(t, "Gender_Status", roles.Protected)
}

func TestDetect_ProtectedHintEqualToTargetIsDiscarded(t *testing.T) {
	schema := schemaOf("*Applicant_Name", "*Gender", "*Region", "Income", "Loan_Approved")

	roles, err := NewDetector(nil).Detect(schema, Hints{Target: "Gender", Protected: "Gender"})
	require.NoError(t, err)
	assert.Equal(t, "Gender", roles.Target)
	assert.NotEqual(t, "Gender", roles.Protected)
	assert.Equal(t, "Region", roles.Protected)
}

func TestDetect_FailsWhenUnresolvable(t *testing.T) {
	_, err := NewDetector(nil).Detect(schemaOf("*Gender", "Income"), Hints{})
	assert.ErrorIs(t, err, core.ErrRoleDetection)
	assert.Contains(t, err.Error(), "target")

	_, err = NewDetector(nil).Detect(schemaOf("Income", "Credit", "Loan_Approved"), Hints{})
	assert.ErrorIs(t, err, core.ErrRoleDetection)
	assert.Contains(t, err.Error(), "protected")
}

func TestDetect_Deterministic(t *testing.T) {
	schema := schemaOf("*Applicant_Name", "Age", "*Gender", "*Caste", "Income", "Credit_Score", "Loan_Approved")
	hints := []Hints{{}, {Target: "Loan_Approved"}, {Protected: "Caste"}, {Target: "bogus", Protected: "Gender"}}

	d := NewDetector(nil)
	for _, h := range hints {
		first, err := d.Detect(schema, h)
		require.NoError(t, err)
		for i := 0; i < 20; i++ {
			again, err := d.Detect(schema, h)
			require.NoError(t, err)
			assert.Equal(t, first, again)
		}
	}
}

func TestIsIdentifier(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"Applicant_Name", true},
		{"Email", true},
		{"phone_number", true},
		{"Customer_ID", true},
		{"id", true},
		{"Valid_License", false},
		{"Video_Interview_Score", false},
		{"Fluid_Intake", false},
		{"Income", false},
		{"Gender", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsIdentifier(tt.name))
		})
	}
}

func TestIdentifiers_ExcludesRoles(t *testing.T) {
	schema := schemaOf("Applicant_ID", "*Name_Group", "Income", "Decision_ID")
	ids := Identifiers(schema, "Decision_ID", "Name_Group")
	assert.Equal(t, []string{"Applicant_ID"}, ids)
}
