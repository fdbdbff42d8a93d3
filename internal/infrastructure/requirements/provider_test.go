package requirements

import (
	"context"
	"testing"

	"github.com/schoolops/enrollment/internal/domain/enrollment"
	"github.com/schoolops/enrollment/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRequirements() config.RequirementsConfig {
	return config.RequirementsConfig{
		Default: map[string][]string{
			"*":          {"BIRTH_CERTIFICATE", "REPORT_CARD"},
			"transferee": {"birth_certificate", "REPORT_CARD", "TRANSFER_CREDENTIAL", " "},
		},
		Grades: map[string]map[string][]string{
			"kinder": {
				"*": {"BIRTH_CERTIFICATE"},
			},
			"GRADE_11": {
				"NEW": {"BIRTH_CERTIFICATE", "REPORT_CARD", "GOOD_MORAL", "GOOD_MORAL"},
			},
		},
	}
}

func TestConfigProvider_RequiredDocumentTypes(t *testing.T) {
	p := NewConfigProvider(testRequirements())
	ctx := context.Background()

	tests := []struct {
		name     string
		grade    string
		category enrollment.EnrollmentCategory
		want     []string
	}{
		{"grade and category", "GRADE_11", enrollment.CategoryNew, []string{"BIRTH_CERTIFICATE", "REPORT_CARD", "GOOD_MORAL"}},
		{"grade wildcard", "KINDER", enrollment.CategoryNew, []string{"BIRTH_CERTIFICATE"}},
		{"grade match is case-insensitive", "Kinder", enrollment.EnrollmentCategory("TRANSFEREE"), []string{"BIRTH_CERTIFICATE"}},
		{"grade without category falls back to default", "GRADE_11", enrollment.EnrollmentCategory("TRANSFEREE"), []string{"BIRTH_CERTIFICATE", "REPORT_CARD", "TRANSFER_CREDENTIAL"}},
		{"unknown grade uses default wildcard", "GRADE_4", enrollment.CategoryNew, []string{"BIRTH_CERTIFICATE", "REPORT_CARD"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := p.RequiredDocumentTypes(ctx, tt.grade, tt.category)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestConfigProvider_ReturnsCopies(t *testing.T) {
	p := NewConfigProvider(testRequirements())
	ctx := context.Background()

	first, err := p.RequiredDocumentTypes(ctx, "GRADE_4", enrollment.CategoryNew)
	require.NoError(t, err)
	first[0] = "MUTATED"

	second, err := p.RequiredDocumentTypes(ctx, "GRADE_4", enrollment.CategoryNew)
	require.NoError(t, err)
	assert.Equal(t, "BIRTH_CERTIFICATE", second[0])
}

func TestConfigProvider_NoMatch(t *testing.T) {
	p := NewConfigProvider(config.RequirementsConfig{
		Default: map[string][]string{"NEW": {"BIRTH_CERTIFICATE"}},
	})

	_, err := p.RequiredDocumentTypes(context.Background(), "GRADE_4", enrollment.EnrollmentCategory("TRANSFEREE"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoRequirements)
}
