package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/medextract/medextract/api/internal/domain"
	"github.com/medextract/medextract/api/internal/testutil"
	"github.com/medextract/medextract/api/internal/tool"
	"github.com/medextract/medextract/api/internal/trajectory"
)

// stubExtractor returns a fixed extraction result.
type stubExtractor struct {
	result tool.Result
	calls  int
}

func (s *stubExtractor) Name() string { return "entity_extraction" }

func (s *stubExtractor) Execute(_ context.Context, _ any) tool.Result {
	s.calls++
	return s.result
}

// stubLookup serves canned per-term results and tracks Close calls.
type stubLookup struct {
	name    string
	results map[string]tool.Result
	calls   int
	closed  int
}

func (s *stubLookup) Name() string { return s.name }

func (s *stubLookup) Execute(ctx context.Context, input any) tool.Result {
	term, _ := input.(string)
	return s.lookup(term)
}

func (s *stubLookup) ExecuteBatch(_ context.Context, items []string) []tool.Result {
	s.calls++
	out := make([]tool.Result, len(items))
	for i, item := range items {
		out[i] = s.lookup(item)
	}
	return out
}

func (s *stubLookup) Close() { s.closed++ }

func (s *stubLookup) lookup(term string) tool.Result {
	if r, ok := s.results[term]; ok {
		return r
	}
	return tool.Fail("no code found for: " + term)
}

func icd10Result(code, display string) tool.Result {
	return tool.OK(&tool.ICD10Code{
		Code: code, Display: display, System: tool.ICD10System, MatchScore: 1.0,
	})
}

func rxnormResult(rxcui, display string) tool.Result {
	return tool.OK(&tool.RxNormCode{
		RxCUI: rxcui, Display: display, System: tool.RxNormSystem,
		MatchType: "exact", MatchScore: 1.0,
	})
}

func newTestPipeline(extractor *stubExtractor, conditions, medications *stubLookup) *Pipeline {
	return NewPipeline(
		extractor,
		conditions,
		medications,
		tool.NewNoteValidationTool(zap.NewNop()),
		zap.NewNop(),
	)
}

func stepsByName(traj *trajectory.Trajectory) map[string]*trajectory.Step {
	out := make(map[string]*trajectory.Step, len(traj.Steps))
	for _, s := range traj.Steps {
		out[s.Name] = s
	}
	return out
}

func TestPipeline_Run_HappyPath(t *testing.T) {
	extractor := &stubExtractor{result: tool.OK(testutil.SampleRawExtraction())}
	conditions := &stubLookup{name: "icd10_lookup", results: map[string]tool.Result{
		"hypertension": icd10Result("I10", "Essential (primary) hypertension"),
	}}
	medications := &stubLookup{name: "rxnorm_lookup", results: map[string]tool.Result{
		"lisinopril 10mg": rxnormResult("29046", "lisinopril"),
	}}

	p := newTestPipeline(extractor, conditions, medications)
	result := p.Run(context.Background(), testutil.SampleNoteText)

	require.True(t, result.Success, result.Error)
	require.NotNil(t, result.Note)

	require.Len(t, result.Note.Conditions, 1)
	assert.Equal(t, "I10", result.Note.Conditions[0].Code.Code)
	require.Len(t, result.Note.Medications, 1)
	assert.Equal(t, "29046", result.Note.Medications[0].Code.Code)
	require.NotNil(t, result.Note.Medications[0].Dosage)
	assert.Equal(t, 10.0, result.Note.Medications[0].Dosage.DoseValue)
	assert.Equal(t, "mg", result.Note.Medications[0].Dosage.DoseUnit)

	traj := result.Trajectory
	require.NotNil(t, traj)
	require.Len(t, traj.Steps, 5)
	for _, step := range traj.Steps {
		assert.Equal(t, trajectory.StatusSuccess, step.Status, step.Name)
	}
	assert.True(t, traj.Success)

	// Lookup connections are released at the end of the run.
	assert.Equal(t, 1, conditions.closed)
	assert.Equal(t, 1, medications.closed)
}

func TestPipeline_Run_ExtractionFailureIsTerminal(t *testing.T) {
	extractor := &stubExtractor{result: tool.Fail("text generation failed: upstream 500")}
	conditions := &stubLookup{name: "icd10_lookup"}
	medications := &stubLookup{name: "rxnorm_lookup"}

	p := newTestPipeline(extractor, conditions, medications)
	result := p.Run(context.Background(), "some note")

	require.False(t, result.Success)
	assert.Contains(t, result.Error, "text generation failed")
	assert.Nil(t, result.Note)

	// Exactly one step, failed; nothing downstream ran.
	traj := result.Trajectory
	require.Len(t, traj.Steps, 1)
	assert.Equal(t, "Extract Entities", traj.Steps[0].Name)
	assert.Equal(t, trajectory.StatusFailed, traj.Steps[0].Status)
	assert.Equal(t, 0, conditions.calls)
	assert.Equal(t, 0, medications.calls)

	// Connections are still released.
	assert.Equal(t, 1, conditions.closed)
	assert.Equal(t, 1, medications.closed)
}

func TestPipeline_Run_AllLookupsFailStillSucceeds(t *testing.T) {
	extractor := &stubExtractor{result: tool.OK(testutil.SampleRawExtraction())}
	conditions := &stubLookup{name: "icd10_lookup"}  // every term misses
	medications := &stubLookup{name: "rxnorm_lookup"} // every term misses

	p := newTestPipeline(extractor, conditions, medications)
	result := p.Run(context.Background(), testutil.SampleNoteText)

	require.True(t, result.Success, result.Error)
	require.NotNil(t, result.Note)

	require.Len(t, result.Note.Conditions, 1)
	assert.Empty(t, result.Note.Conditions[0].Code.Code)
	assert.Equal(t, "hypertension", result.Note.Conditions[0].Code.Display)

	// Degraded output is reported through advisory warnings, not failure.
	assert.Contains(t, result.Warnings, "Condition 'hypertension' has no ICD-10 code")
	assert.Contains(t, result.Warnings, "Medication 'lisinopril 10mg' has no RxNorm code")

	steps := stepsByName(result.Trajectory)
	assert.Equal(t, trajectory.StatusSuccess, steps["Enrich Conditions"].Status)
	assert.Equal(t, trajectory.StatusSuccess, steps["Enrich Medications"].Status)
}

func TestPipeline_Run_EmptySectionsAreSkipped(t *testing.T) {
	raw := &domain.RawExtraction{
		PatientName: "John Smith",
		Medications: []domain.RawMedication{
			{Name: "lisinopril", Dose: "10 mg"},
		},
	}
	extractor := &stubExtractor{result: tool.OK(raw)}
	conditions := &stubLookup{name: "icd10_lookup"}
	medications := &stubLookup{name: "rxnorm_lookup", results: map[string]tool.Result{
		"lisinopril": rxnormResult("29046", "lisinopril"),
	}}

	p := newTestPipeline(extractor, conditions, medications)
	result := p.Run(context.Background(), "note without diagnoses")

	require.True(t, result.Success, result.Error)

	steps := stepsByName(result.Trajectory)
	require.Contains(t, steps, "Enrich Conditions")
	assert.Equal(t, trajectory.StatusSkipped, steps["Enrich Conditions"].Status)
	assert.Equal(t, "no conditions to enrich", steps["Enrich Conditions"].Metadata["skip_reason"])

	// The skipped stage never reached the lookup tool.
	assert.Equal(t, 0, conditions.calls)
	assert.Equal(t, 1, medications.calls)
}

func TestPipeline_Run_ValidationFailureIsTerminal(t *testing.T) {
	// The extractor normally drops unnamed entries; feed one directly to
	// exercise the validation boundary, since an empty name becomes an empty
	// display and the output schema rejects it.
	raw := &domain.RawExtraction{
		Medications: []domain.RawMedication{{Name: ""}},
	}
	extractor := &stubExtractor{result: tool.OK(raw)}

	p := newTestPipeline(extractor,
		&stubLookup{name: "icd10_lookup"},
		&stubLookup{name: "rxnorm_lookup"})
	result := p.Run(context.Background(), "note")

	require.False(t, result.Success)
	assert.Contains(t, result.Error, "schema validation failed")
	assert.Nil(t, result.Note)

	steps := stepsByName(result.Trajectory)
	assert.Equal(t, trajectory.StatusFailed, steps["Validate Output"].Status)
	assert.Equal(t, trajectory.StatusSuccess, steps["Transform Entities"].Status)
}

func TestPipeline_Run_TransformPanicIsTerminal(t *testing.T) {
	extractor := &stubExtractor{result: tool.OK(testutil.SampleRawExtraction())}
	conditions := &stubLookup{name: "icd10_lookup"}
	medications := &stubLookup{name: "rxnorm_lookup"}

	p := newTestPipeline(extractor, conditions, medications)
	p.transformFn = func(*domain.RawExtraction, []*tool.ICD10Code, []*tool.RxNormCode, string) *domain.StructuredNote {
		panic("nil dereference in mapping")
	}

	var result *PipelineResult
	require.NotPanics(t, func() {
		result = p.Run(context.Background(), testutil.SampleNoteText)
	})

	require.False(t, result.Success)
	assert.Contains(t, result.Error, "entity transformation panicked")
	assert.Contains(t, result.Error, "nil dereference in mapping")
	assert.Nil(t, result.Note)

	// The partial trajectory is still returned, with the transform step
	// failed and typed as a panic.
	require.NotNil(t, result.Trajectory)
	steps := stepsByName(result.Trajectory)
	require.Contains(t, steps, "Transform Entities")
	assert.Equal(t, trajectory.StatusFailed, steps["Transform Entities"].Status)
	assert.Equal(t, "panic", steps["Transform Entities"].ErrorType)
	assert.NotContains(t, steps, "Validate Output")

	// Connections are still released.
	assert.Equal(t, 1, conditions.closed)
	assert.Equal(t, 1, medications.closed)
}

func TestPipeline_Run_UnexpectedExtractorPayload(t *testing.T) {
	extractor := &stubExtractor{result: tool.OK("not a raw extraction")}

	p := newTestPipeline(extractor,
		&stubLookup{name: "icd10_lookup"},
		&stubLookup{name: "rxnorm_lookup"})
	result := p.Run(context.Background(), "note")

	require.False(t, result.Success)
	assert.Contains(t, result.Error, "unexpected payload type")
	require.Len(t, result.Trajectory.Steps, 1)
	assert.Equal(t, trajectory.StatusFailed, result.Trajectory.Steps[0].Status)
}
