package trajectory

import "time"

// Recorder brackets pipeline state transitions into trajectory steps.
//
// Usage:
//
//	rec := trajectory.NewRecorder("ExtractionAgent", "note (240 chars)")
//	step := rec.StartStep("Extract Entities", "entity_extraction", "...")
//	// ... run the tool ...
//	rec.CompleteStep(step, "extracted 3 conditions")
//	rec.Complete(true, "", "12 entities")
//	traj := rec.Trajectory()
//
// A Recorder is owned by exactly one pipeline run and is not safe for
// concurrent use.
type Recorder struct {
	trajectory *Trajectory
}

// NewRecorder creates a recorder for a new pipeline run.
func NewRecorder(agentName, inputSummary string) *Recorder {
	return &Recorder{
		trajectory: &Trajectory{
			AgentName:    agentName,
			StartedAt:    time.Now().UTC(),
			InputSummary: inputSummary,
		},
	}
}

// StartStep appends a new step in running state and returns its handle.
func (r *Recorder) StartStep(name, tool, inputSummary string) *Step {
	step := r.trajectory.addStep(name, tool, inputSummary, nil)
	step.start()
	return step
}

// StartStepWithData is StartStep with the full input payload attached.
func (r *Recorder) StartStepWithData(name, tool, inputSummary string, inputData any) *Step {
	step := r.trajectory.addStep(name, tool, inputSummary, inputData)
	step.start()
	return step
}

// CompleteStep finalizes a running step as successful.
func (r *Recorder) CompleteStep(step *Step, outputSummary string) {
	step.complete(nil, outputSummary)
}

// CompleteStepWithData finalizes a running step as successful, attaching the
// full output payload.
func (r *Recorder) CompleteStepWithData(step *Step, outputData any, outputSummary string) {
	step.complete(outputData, outputSummary)
}

// FailStep finalizes a running step as failed.
func (r *Recorder) FailStep(step *Step, errMsg string) {
	step.fail(errMsg, "")
}

// FailStepTyped is FailStep with an error category attached.
func (r *Recorder) FailStepTyped(step *Step, errMsg, errType string) {
	step.fail(errMsg, errType)
}

// SkipStep appends an already-terminal skipped step, with no running phase.
func (r *Recorder) SkipStep(name, tool, reason string) {
	step := r.trajectory.addStep(name, tool, "", nil)
	step.skip(reason)
}

// Complete marks the whole trajectory finished.
func (r *Recorder) Complete(success bool, errMsg, outputSummary string) {
	now := time.Now().UTC()
	r.trajectory.CompletedAt = &now
	r.trajectory.Success = success
	r.trajectory.FinalError = errMsg
	r.trajectory.OutputSummary = outputSummary
}

// Trajectory returns the trajectory collected so far.
func (r *Recorder) Trajectory() *Trajectory {
	return r.trajectory
}
