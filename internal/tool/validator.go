package tool

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/medextract/medextract/api/internal/domain"
	"github.com/medextract/medextract/api/internal/validator"
)

// NoteValidationTool performs the final schema check on an assembled
// StructuredNote and collects advisory data-quality warnings. Schema
// violations are terminal (a failed result); warnings never fail the note
// and ride in result metadata.
type NoteValidationTool struct {
	logger *zap.Logger
}

// NewNoteValidationTool creates the validation tool.
func NewNoteValidationTool(logger *zap.Logger) *NoteValidationTool {
	return &NoteValidationTool{logger: logger.Named("validator")}
}

// Name implements Tool.
func (t *NoteValidationTool) Name() string { return "note_validator" }

// Description implements Tool.
func (t *NoteValidationTool) Description() string {
	return "Validates an assembled structured clinical note against the output " +
		"schema and reports advisory completeness warnings."
}

// Execute implements Tool. Input must be a *domain.StructuredNote. The note
// is returned unmodified; validating an already-valid note is idempotent.
func (t *NoteValidationTool) Execute(_ context.Context, input any) Result {
	note, ok := input.(*domain.StructuredNote)
	if !ok {
		return Failf("note validator expects *domain.StructuredNote input, got %T", input)
	}

	if err := validator.Validate(note); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, ve := range verrs {
				fields = append(fields, ve.Field+" "+ve.Message)
			}
			t.logger.Warn("structured note failed schema validation",
				zap.Int("error_count", len(fields)))
			return Fail("schema validation failed: "+verrs.Error(),
				"schema_errors", fields,
				"error_count", len(fields))
		}
		return Fail("schema validation failed: " + err.Error())
	}

	warnings := t.collectWarnings(note)
	if len(warnings) > 0 {
		t.logger.Info("structured note validated with warnings",
			zap.Int("warning_count", len(warnings)))
	}

	return OK(note,
		"warnings", warnings,
		"warning_count", len(warnings),
		"entity_counts", note.EntityCount(),
		"total_entities", note.TotalEntities())
}

// ValidatePartial checks a single section of a note (a condition, a
// medication, any schema struct) without requiring the full aggregate.
func (t *NoteValidationTool) ValidatePartial(section any) error {
	return validator.Validate(section)
}

// collectWarnings applies the advisory business rules. None of these are
// schema violations; an uncoded condition is a legitimate degraded outcome
// of a failed vocabulary lookup.
func (t *NoteValidationTool) collectWarnings(note *domain.StructuredNote) []string {
	var warnings []string

	for _, c := range note.Conditions {
		if !c.Code.Coded() {
			warnings = append(warnings,
				fmt.Sprintf("Condition '%s' has no ICD-10 code", c.Code.Display))
		}
	}

	for _, m := range note.Medications {
		if !m.Code.Coded() {
			warnings = append(warnings,
				fmt.Sprintf("Medication '%s' has no RxNorm code", m.Code.Display))
		}
		if m.Dosage == nil || (m.Dosage.Text == "" && m.Dosage.DoseValue == 0) {
			warnings = append(warnings,
				fmt.Sprintf("Medication '%s' has no dosage information", m.Code.Display))
		}
	}

	if note.Patient == nil || (note.Patient.Name == "" && note.Patient.Identifier == "") {
		warnings = append(warnings, "Patient identification is incomplete")
	}

	return warnings
}
