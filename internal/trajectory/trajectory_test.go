package trajectory

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorder_StepLifecycle(t *testing.T) {
	t.Run("completed step reaches exactly one terminal state", func(t *testing.T) {
		rec := NewRecorder("TestAgent", "input")

		step := rec.StartStep("Extract Entities", "entity_extraction", "note (10 chars)")
		assert.Equal(t, StatusRunning, step.Status)
		require.NotNil(t, step.StartedAt)
		assert.Nil(t, step.CompletedAt)

		rec.CompleteStep(step, "3 entities")

		assert.Equal(t, StatusSuccess, step.Status)
		assert.True(t, step.Status.Terminal())
		require.NotNil(t, step.CompletedAt)
		assert.Equal(t, "3 entities", step.OutputSummary)
		assert.GreaterOrEqual(t, step.DurationMs, 0.0)
	})

	t.Run("failed step records error and type", func(t *testing.T) {
		rec := NewRecorder("TestAgent", "input")

		step := rec.StartStep("Extract Entities", "entity_extraction", "")
		rec.FailStepTyped(step, "no parseable JSON", "parse_error")

		assert.Equal(t, StatusFailed, step.Status)
		assert.Equal(t, "no parseable JSON", step.Error)
		assert.Equal(t, "parse_error", step.ErrorType)
	})

	t.Run("skipped step is terminal without a running phase", func(t *testing.T) {
		rec := NewRecorder("TestAgent", "input")

		rec.SkipStep("Enrich Conditions", "icd10_lookup", "no conditions extracted")

		steps := rec.Trajectory().Steps
		require.Len(t, steps, 1)
		assert.Equal(t, StatusSkipped, steps[0].Status)
		assert.Nil(t, steps[0].StartedAt)
		assert.Equal(t, "no conditions extracted", steps[0].Metadata["skip_reason"])
	})

	t.Run("steps are appended with increasing indexes", func(t *testing.T) {
		rec := NewRecorder("TestAgent", "input")

		first := rec.StartStep("one", "a", "")
		rec.CompleteStep(first, "")
		second := rec.StartStep("two", "b", "")
		rec.CompleteStep(second, "")
		rec.SkipStep("three", "c", "")

		steps := rec.Trajectory().Steps
		require.Len(t, steps, 3)
		for i, step := range steps {
			assert.Equal(t, i+1, step.Index)
		}
	})
}

func TestTrajectory_Statistics(t *testing.T) {
	rec := NewRecorder("TestAgent", "input")

	s1 := rec.StartStep("Extract Entities", "entity_extraction", "")
	s1.StartedAt = ptrTime(time.Now().Add(-50 * time.Millisecond))
	rec.CompleteStep(s1, "")

	s2 := rec.StartStep("Enrich Conditions", "icd10_lookup", "")
	s2.StartedAt = ptrTime(time.Now().Add(-10 * time.Millisecond))
	rec.CompleteStep(s2, "")

	rec.SkipStep("Enrich Medications", "rxnorm_lookup", "no medications")

	s4 := rec.StartStep("Validate Output", "note_validator", "")
	rec.FailStep(s4, "schema validation failed")

	rec.Complete(false, "schema validation failed", "")

	stats := rec.Trajectory().Statistics()
	assert.Equal(t, 4, stats.TotalSteps)
	assert.Equal(t, 2, stats.SuccessfulSteps)
	assert.Equal(t, 1, stats.FailedSteps)
	assert.Equal(t, 1, stats.SkippedSteps)
	assert.Equal(t, "Extract Entities", stats.SlowestStep)
	assert.Greater(t, stats.AvgStepDurationMs, 0.0)
}

func TestTrajectory_ToMap(t *testing.T) {
	rec := NewRecorder("TestAgent", "clinical note (120 chars)")
	step := rec.StartStepWithData("Extract Entities", "entity_extraction", "note", map[string]any{"chars": 120})
	rec.CompleteStepWithData(step, map[string]any{"conditions": 2}, "2 conditions")
	rec.Complete(true, "", "done")

	m := rec.Trajectory().ToMap(false)

	assert.Equal(t, "TestAgent", m["agent_name"])
	assert.Equal(t, true, m["success"])
	assert.Equal(t, "clinical note (120 chars)", m["input_summary"])

	steps, ok := m["steps"].([]any)
	require.True(t, ok)
	require.Len(t, steps, 1)

	stepMap, ok := steps[0].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Extract Entities", stepMap["name"])
	assert.Equal(t, "success", stepMap["status"])
	assert.NotContains(t, stepMap, "input_data")

	withData := rec.Trajectory().ToMap(true)
	stepsWithData := withData["steps"].([]any)
	stepWithData := stepsWithData[0].(map[string]any)
	assert.Contains(t, stepWithData, "input_data")
	assert.Contains(t, stepWithData, "output_data")

	stats, ok := m["statistics"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, 1, stats["total_steps"])
}

func TestNormalize(t *testing.T) {
	ts := time.Date(2024, 1, 10, 8, 30, 0, 0, time.UTC)

	tests := []struct {
		name  string
		input any
		want  any
	}{
		{"nil", nil, nil},
		{"string", "hello", "hello"},
		{"time", ts, "2024-01-10T08:30:00Z"},
		{"nil time pointer", (*time.Time)(nil), nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.input))
		})
	}

	t.Run("nested map with struct values", func(t *testing.T) {
		type payload struct {
			Name string `json:"name"`
		}
		got := Normalize(map[string]any{
			"when": ts,
			"what": payload{Name: "hypertension"},
		})

		m, ok := got.(map[string]any)
		require.True(t, ok)
		assert.Equal(t, "2024-01-10T08:30:00Z", m["when"])

		inner, ok := m["what"].(map[string]any)
		require.True(t, ok)
		assert.Equal(t, "hypertension", inner["name"])
	})
}

func ptrTime(t time.Time) *time.Time { return &t }
