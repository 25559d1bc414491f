package tool

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/medextract/medextract/api/internal/domain"
	"github.com/medextract/medextract/api/internal/testutil"
)

func TestNoteValidationTool_Execute(t *testing.T) {
	tool := NewNoteValidationTool(zap.NewNop())

	t.Run("accepts a fully coded note", func(t *testing.T) {
		note := testutil.SampleStructuredNote()

		result := tool.Execute(context.Background(), note)
		require.True(t, result.Success, result.Error)

		// The note passes through unmodified.
		assert.Same(t, note, result.Data)
		assert.Empty(t, result.Metadata["warnings"])
		assert.Equal(t, 0, result.Metadata["warning_count"])
		// One condition, one medication, and the patient record.
		assert.Equal(t, 3, result.Metadata["total_entities"])
	})

	t.Run("validating twice gives the same outcome", func(t *testing.T) {
		note := testutil.SampleStructuredNote()

		first := tool.Execute(context.Background(), note)
		second := tool.Execute(context.Background(), note)

		require.True(t, first.Success)
		require.True(t, second.Success)
		assert.Same(t, first.Data, second.Data)
		assert.Equal(t, first.Metadata["warning_count"], second.Metadata["warning_count"])
	})

	t.Run("warns about uncoded entities", func(t *testing.T) {
		note := testutil.SampleStructuredNote()
		note.Conditions[0].Code.Code = ""
		note.Conditions[0].Code.System = ""
		note.Medications[0].Code.Code = ""
		note.Medications[0].Code.System = ""
		note.Medications[0].Dosage = nil

		result := tool.Execute(context.Background(), note)
		require.True(t, result.Success, result.Error)

		warnings, ok := result.Metadata["warnings"].([]string)
		require.True(t, ok)
		assert.Contains(t, warnings, "Condition 'Essential (primary) hypertension' has no ICD-10 code")
		assert.Contains(t, warnings, "Medication 'lisinopril' has no RxNorm code")
		assert.Contains(t, warnings, "Medication 'lisinopril' has no dosage information")
		assert.Equal(t, 3, result.Metadata["warning_count"])
	})

	t.Run("warns about missing patient identification", func(t *testing.T) {
		note := testutil.SampleStructuredNote()
		note.Patient = nil

		result := tool.Execute(context.Background(), note)
		require.True(t, result.Success)

		warnings := result.Metadata["warnings"].([]string)
		assert.Contains(t, warnings, "Patient identification is incomplete")
	})

	t.Run("fails schema validation on a blank display", func(t *testing.T) {
		note := testutil.SampleStructuredNote()
		note.Conditions[0].Code.Display = ""

		result := tool.Execute(context.Background(), note)
		assert.False(t, result.Success)
		assert.Contains(t, result.Error, "schema validation failed")
		assert.NotZero(t, result.Metadata["error_count"])
	})

	t.Run("rejects non-note input", func(t *testing.T) {
		result := tool.Execute(context.Background(), "not a note")
		assert.False(t, result.Success)
	})
}

func TestNoteValidationTool_ValidatePartial(t *testing.T) {
	tool := NewNoteValidationTool(zap.NewNop())

	valid := domain.Condition{
		Code: domain.CodeableConcept{
			Code:    "I10",
			System:  "http://hl7.org/fhir/sid/icd-10-cm",
			Display: "Essential (primary) hypertension",
		},
		ClinicalStatus:     domain.ClinicalStatusActive,
		VerificationStatus: domain.VerificationStatusConfirmed,
	}
	assert.NoError(t, tool.ValidatePartial(valid))

	invalid := valid
	invalid.ClinicalStatus = ""
	assert.Error(t, tool.ValidatePartial(invalid))
}
