package trajectory

import (
	"encoding/json"
	"fmt"
	"time"
)

// StepStatus is the lifecycle status of a single trajectory step.
type StepStatus string

const (
	StatusPending StepStatus = "pending"
	StatusRunning StepStatus = "running"
	StatusSuccess StepStatus = "success"
	StatusFailed  StepStatus = "failed"
	StatusSkipped StepStatus = "skipped"
)

// Terminal reports whether the status is a terminal state.
func (s StepStatus) Terminal() bool {
	return s == StatusSuccess || s == StatusFailed || s == StatusSkipped
}

// Step is a single entry in the execution trajectory. A step is created
// pending, transitions once to running, and once more to exactly one terminal
// state. It is never mutated after reaching a terminal state.
type Step struct {
	Index  int        `json:"index"`
	Name   string     `json:"name"`
	Tool   string     `json:"tool"`
	Status StepStatus `json:"status"`

	StartedAt   *time.Time `json:"startedAt,omitempty"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
	DurationMs  float64    `json:"durationMs,omitempty"`

	InputSummary  string `json:"inputSummary,omitempty"`
	OutputSummary string `json:"outputSummary,omitempty"`

	// Full payloads, optional and potentially large.
	InputData  any `json:"-"`
	OutputData any `json:"-"`

	Error     string `json:"error,omitempty"`
	ErrorType string `json:"errorType,omitempty"`

	Metadata map[string]any `json:"metadata,omitempty"`
}

func (s *Step) start() {
	now := time.Now().UTC()
	s.Status = StatusRunning
	s.StartedAt = &now
}

func (s *Step) complete(outputData any, outputSummary string) {
	s.finalize(StatusSuccess)
	s.OutputData = outputData
	s.OutputSummary = outputSummary
}

func (s *Step) fail(errMsg, errType string) {
	s.finalize(StatusFailed)
	s.Error = errMsg
	s.ErrorType = errType
}

func (s *Step) skip(reason string) {
	s.finalize(StatusSkipped)
	if reason != "" {
		if s.Metadata == nil {
			s.Metadata = make(map[string]any)
		}
		s.Metadata["skip_reason"] = reason
	}
}

func (s *Step) finalize(status StepStatus) {
	now := time.Now().UTC()
	s.Status = status
	s.CompletedAt = &now
	if s.StartedAt != nil {
		s.DurationMs = float64(now.Sub(*s.StartedAt)) / float64(time.Millisecond)
	}
}

// ToMap converts the step into a plain nested structure for external
// inspection. Full input/output payloads are included only when requested.
func (s *Step) ToMap(includeData bool) map[string]any {
	m := map[string]any{
		"index":          s.Index,
		"name":           s.Name,
		"tool":           s.Tool,
		"status":         string(s.Status),
		"started_at":     formatTime(s.StartedAt),
		"completed_at":   formatTime(s.CompletedAt),
		"duration_ms":    s.DurationMs,
		"input_summary":  s.InputSummary,
		"output_summary": s.OutputSummary,
	}
	if s.Error != "" {
		m["error"] = s.Error
		if s.ErrorType != "" {
			m["error_type"] = s.ErrorType
		}
	}
	if len(s.Metadata) > 0 {
		m["metadata"] = Normalize(s.Metadata)
	}
	if includeData {
		m["input_data"] = Normalize(s.InputData)
		m["output_data"] = Normalize(s.OutputData)
	}
	return m
}

// Statistics holds aggregate figures derived from a trajectory's steps.
type Statistics struct {
	TotalSteps        int     `json:"totalSteps"`
	SuccessfulSteps   int     `json:"successfulSteps"`
	FailedSteps       int     `json:"failedSteps"`
	SkippedSteps      int     `json:"skippedSteps"`
	TotalDurationMs   float64 `json:"totalDurationMs"`
	AvgStepDurationMs float64 `json:"avgStepDurationMs"`
	SlowestStep       string  `json:"slowestStep,omitempty"`
}

// Trajectory is the ordered, timestamped audit log of one pipeline run.
// It is owned by a single run and must not be shared across concurrent runs.
type Trajectory struct {
	AgentName   string     `json:"agentName"`
	StartedAt   time.Time  `json:"startedAt"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`

	Steps []*Step `json:"steps"`

	Success       bool   `json:"success"`
	FinalError    string `json:"finalError,omitempty"`
	InputSummary  string `json:"inputSummary,omitempty"`
	OutputSummary string `json:"outputSummary,omitempty"`
}

func (t *Trajectory) addStep(name, tool, inputSummary string, inputData any) *Step {
	step := &Step{
		Index:        len(t.Steps) + 1,
		Name:         name,
		Tool:         tool,
		Status:       StatusPending,
		InputSummary: inputSummary,
		InputData:    inputData,
	}
	t.Steps = append(t.Steps, step)
	return step
}

// TotalDurationMs returns the wall-clock duration of the whole run, or zero
// when the run has not completed.
func (t *Trajectory) TotalDurationMs() float64 {
	if t.CompletedAt == nil {
		return 0
	}
	return float64(t.CompletedAt.Sub(t.StartedAt)) / float64(time.Millisecond)
}

// Statistics computes aggregate counts and timings over the step list.
// Computed on demand; the trajectory itself stores no derived state.
func (t *Trajectory) Statistics() Statistics {
	stats := Statistics{
		TotalSteps:      len(t.Steps),
		TotalDurationMs: t.TotalDurationMs(),
	}

	var durations float64
	var timed int
	var slowest float64
	for _, step := range t.Steps {
		switch step.Status {
		case StatusSuccess:
			stats.SuccessfulSteps++
		case StatusFailed:
			stats.FailedSteps++
		case StatusSkipped:
			stats.SkippedSteps++
		}
		if step.DurationMs > 0 {
			durations += step.DurationMs
			timed++
			if step.DurationMs > slowest {
				slowest = step.DurationMs
				stats.SlowestStep = step.Name
			}
		}
	}
	if timed > 0 {
		stats.AvgStepDurationMs = durations / float64(timed)
	}
	return stats
}

// ToMap converts the trajectory into a plain nested structure suitable for
// storage or transport.
func (t *Trajectory) ToMap(includeData bool) map[string]any {
	steps := make([]any, 0, len(t.Steps))
	for _, step := range t.Steps {
		steps = append(steps, step.ToMap(includeData))
	}

	stats := t.Statistics()
	return map[string]any{
		"agent_name":     t.AgentName,
		"started_at":     t.StartedAt.UTC().Format(time.RFC3339Nano),
		"completed_at":   formatTime(t.CompletedAt),
		"success":        t.Success,
		"final_error":    t.FinalError,
		"input_summary":  t.InputSummary,
		"output_summary": t.OutputSummary,
		"statistics": map[string]any{
			"total_steps":          stats.TotalSteps,
			"successful_steps":     stats.SuccessfulSteps,
			"failed_steps":         stats.FailedSteps,
			"skipped_steps":        stats.SkippedSteps,
			"total_duration_ms":    stats.TotalDurationMs,
			"avg_step_duration_ms": stats.AvgStepDurationMs,
			"slowest_step":         stats.SlowestStep,
		},
		"steps": steps,
	}
}

func formatTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339Nano)
}

// Normalize converts an arbitrary value into plain maps, slices, and scalars.
// Timestamps become RFC 3339 strings; structs are flattened through their
// JSON representation. Values that cannot be marshaled degrade to their
// string form rather than failing.
func Normalize(v any) any {
	switch val := v.(type) {
	case nil:
		return nil
	case time.Time:
		return val.UTC().Format(time.RFC3339Nano)
	case *time.Time:
		return formatTime(val)
	case string, bool, int, int32, int64, float32, float64:
		return val
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = Normalize(item)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = Normalize(item)
		}
		return out
	default:
		data, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprintf("%v", val)
		}
		var plain any
		if err := json.Unmarshal(data, &plain); err != nil {
			return fmt.Sprintf("%v", val)
		}
		return Normalize(plain)
	}
}
