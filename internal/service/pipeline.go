package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/medextract/medextract/api/internal/domain"
	"github.com/medextract/medextract/api/internal/pkg/metrics"
	"github.com/medextract/medextract/api/internal/tool"
	"github.com/medextract/medextract/api/internal/trajectory"
)

// Step and tool names recorded in trajectories.
const (
	stepExtract     = "Extract Entities"
	stepConditions  = "Enrich Conditions"
	stepMedications = "Enrich Medications"
	stepTransform   = "Transform Entities"
	stepValidate    = "Validate Output"

	transformToolName = "field_transformation"
)

// Capability is the uniform contract every pipeline tool implements.
type Capability interface {
	Name() string
	Execute(ctx context.Context, input any) tool.Result
}

// BatchCapability extends Capability with concurrent batch execution.
// Batch results are positionally aligned with the input items.
type BatchCapability interface {
	Capability
	ExecuteBatch(ctx context.Context, items []string) []tool.Result
}

// closer is implemented by capabilities holding network connections.
type closer interface {
	Close()
}

// PipelineResult is the terminal outcome of one extraction run. The
// trajectory is always populated, including on failure, so every run is
// diagnosable step by step.
type PipelineResult struct {
	Success    bool
	Note       *domain.StructuredNote
	Warnings   []string
	Error      string
	Trajectory *trajectory.Trajectory
}

// Pipeline drives one clinical note through extraction, code enrichment,
// transformation, and validation. It is pure with respect to storage: raw
// text in, structured note plus trajectory out. Callers wiring persistence
// do so above this type.
type Pipeline struct {
	extractor        Capability
	conditionLookup  BatchCapability
	medicationLookup BatchCapability
	noteValidator    Capability
	logger           *zap.Logger

	// transformFn is swappable in tests.
	transformFn func(*domain.RawExtraction, []*tool.ICD10Code, []*tool.RxNormCode, string) *domain.StructuredNote
}

// NewPipeline assembles a pipeline from its capabilities.
func NewPipeline(
	extractor Capability,
	conditionLookup BatchCapability,
	medicationLookup BatchCapability,
	noteValidator Capability,
	logger *zap.Logger,
) *Pipeline {
	return &Pipeline{
		extractor:        extractor,
		conditionLookup:  conditionLookup,
		medicationLookup: medicationLookup,
		noteValidator:    noteValidator,
		logger:           logger.Named("pipeline"),
		transformFn:      transformExtraction,
	}
}

// Run executes the full extraction pipeline for one note. The two
// enrichment stages run sequentially; each fans out internally across its
// items. Enrichment failures degrade to uncoded concepts and never abort
// the run; extraction, transformation, and validation failures are terminal.
func (p *Pipeline) Run(ctx context.Context, noteText string) *PipelineResult {
	started := time.Now()
	rec := trajectory.NewRecorder("ClinicalExtractionAgent",
		fmt.Sprintf("clinical note (%d chars)", len(noteText)))

	defer p.releaseConnections()

	// Step 1: entity extraction. Terminal on failure.
	raw, result := p.extractEntities(ctx, rec, noteText)
	if raw == nil {
		return p.fail(rec, started, result.Error)
	}

	// Steps 2 and 3: code enrichment. Skipped when empty, never terminal.
	conditionCodes := enrichBatch(ctx, rec, p.conditionLookup, stepConditions,
		"no conditions to enrich", conditionTerms(raw), decodeICD10)
	medicationCodes := enrichBatch(ctx, rec, p.medicationLookup, stepMedications,
		"no medications to enrich", medicationTerms(raw), decodeRxNorm)

	// Step 4: transformation. A panic here is a programming fault; it is
	// recovered at this boundary and converted into a terminal failure.
	note, transformErr := p.transform(rec, raw, conditionCodes, medicationCodes, noteText)
	if transformErr != "" {
		return p.fail(rec, started, transformErr)
	}

	// Step 5: final validation. Schema violations are terminal; advisory
	// warnings are carried on the result.
	warnings, validateErr := p.validate(ctx, rec, note)
	if validateErr != "" {
		return p.fail(rec, started, validateErr)
	}

	rec.Complete(true, "", fmt.Sprintf("%d entities extracted", note.TotalEntities()))
	metrics.RecordPipelineRun("succeeded", time.Since(started))
	p.logger.Info("pipeline run succeeded",
		zap.Int("total_entities", note.TotalEntities()),
		zap.Int("warnings", len(warnings)),
		zap.Duration("duration", time.Since(started)))

	return &PipelineResult{
		Success:    true,
		Note:       note,
		Warnings:   warnings,
		Trajectory: rec.Trajectory(),
	}
}

func (p *Pipeline) fail(rec *trajectory.Recorder, started time.Time, errMsg string) *PipelineResult {
	rec.Complete(false, errMsg, "")
	metrics.RecordPipelineRun("failed", time.Since(started))
	p.logger.Warn("pipeline run failed", zap.String("error", errMsg))
	return &PipelineResult{
		Success:    false,
		Error:      errMsg,
		Trajectory: rec.Trajectory(),
	}
}

// releaseConnections closes any lookup clients holding open connections.
// Runs unconditionally at the end of every run.
func (p *Pipeline) releaseConnections() {
	for _, c := range []Capability{p.conditionLookup, p.medicationLookup} {
		if cl, ok := c.(closer); ok {
			cl.Close()
		}
	}
}

func (p *Pipeline) extractEntities(ctx context.Context, rec *trajectory.Recorder, noteText string) (*domain.RawExtraction, tool.Result) {
	step := rec.StartStep(stepExtract, p.extractor.Name(),
		fmt.Sprintf("note text (%d chars)", len(noteText)))

	result := p.extractor.Execute(ctx, noteText)
	if !result.Success {
		rec.FailStep(step, result.Error)
		metrics.RecordStep(stepExtract, "failed", stepDuration(step))
		return nil, result
	}

	raw, ok := result.Data.(*domain.RawExtraction)
	if !ok {
		errMsg := fmt.Sprintf("extractor returned unexpected payload type %T", result.Data)
		rec.FailStep(step, errMsg)
		metrics.RecordStep(stepExtract, "failed", stepDuration(step))
		return nil, tool.Fail(errMsg)
	}

	rec.CompleteStepWithData(step, result.Metadata,
		fmt.Sprintf("extracted %d conditions, %d medications, %d procedures",
			len(raw.Conditions), len(raw.Medications), len(raw.Procedures)))
	metrics.RecordStep(stepExtract, "success", stepDuration(step))
	return raw, result
}

// enrichBatch runs one enrichment stage: skip when there is nothing to look
// up, otherwise fan out the batch and collect positionally aligned codes.
// Individual failures leave a nil code at that index; the stage itself
// always completes.
func enrichBatch[T any](
	ctx context.Context,
	rec *trajectory.Recorder,
	lookup BatchCapability,
	stepName string,
	skipReason string,
	terms []string,
	decode func(tool.Result) *T,
) []*T {
	if len(terms) == 0 {
		rec.SkipStep(stepName, lookup.Name(), skipReason)
		return nil
	}

	step := rec.StartStep(stepName, lookup.Name(),
		fmt.Sprintf("%d terms", len(terms)))

	results := lookup.ExecuteBatch(ctx, terms)
	codes := make([]*T, len(terms))
	found := 0
	for i, r := range results {
		if code := decode(r); code != nil {
			codes[i] = code
			found++
		}
	}

	rec.CompleteStep(step, fmt.Sprintf("coded %d of %d terms", found, len(terms)))
	metrics.RecordStep(stepName, "success", stepDuration(step))
	return codes
}

func (p *Pipeline) transform(
	rec *trajectory.Recorder,
	raw *domain.RawExtraction,
	conditionCodes []*tool.ICD10Code,
	medicationCodes []*tool.RxNormCode,
	noteText string,
) (note *domain.StructuredNote, errMsg string) {
	step := rec.StartStep(stepTransform, transformToolName,
		fmt.Sprintf("raw extraction: %d conditions, %d medications",
			len(raw.Conditions), len(raw.Medications)))

	defer func() {
		if r := recover(); r != nil {
			note = nil
			errMsg = fmt.Sprintf("entity transformation panicked: %v", r)
			rec.FailStepTyped(step, errMsg, "panic")
			metrics.RecordStep(stepTransform, "failed", stepDuration(step))
		}
	}()

	note = p.transformFn(raw, conditionCodes, medicationCodes, noteText)
	rec.CompleteStep(step, fmt.Sprintf("assembled note with %d entities", note.TotalEntities()))
	metrics.RecordStep(stepTransform, "success", stepDuration(step))
	return note, ""
}

func (p *Pipeline) validate(ctx context.Context, rec *trajectory.Recorder, note *domain.StructuredNote) ([]string, string) {
	step := rec.StartStep(stepValidate, p.noteValidator.Name(),
		fmt.Sprintf("structured note with %d entities", note.TotalEntities()))

	result := p.noteValidator.Execute(ctx, note)
	if !result.Success {
		rec.FailStep(step, result.Error)
		metrics.RecordStep(stepValidate, "failed", stepDuration(step))
		return nil, result.Error
	}

	warnings := metadataWarnings(result)
	rec.CompleteStep(step, fmt.Sprintf("valid note, %d warnings", len(warnings)))
	metrics.RecordStep(stepValidate, "success", stepDuration(step))
	return warnings, ""
}

func conditionTerms(raw *domain.RawExtraction) []string {
	terms := make([]string, 0, len(raw.Conditions))
	for _, c := range raw.Conditions {
		terms = append(terms, c.Name)
	}
	return terms
}

func medicationTerms(raw *domain.RawExtraction) []string {
	terms := make([]string, 0, len(raw.Medications))
	for _, m := range raw.Medications {
		terms = append(terms, m.Name)
	}
	return terms
}

func decodeICD10(r tool.Result) *tool.ICD10Code {
	if !r.Success {
		return nil
	}
	code, _ := r.Data.(*tool.ICD10Code)
	return code
}

func decodeRxNorm(r tool.Result) *tool.RxNormCode {
	if !r.Success {
		return nil
	}
	code, _ := r.Data.(*tool.RxNormCode)
	return code
}

func metadataWarnings(r tool.Result) []string {
	raw, ok := r.Metadata["warnings"]
	if !ok {
		return nil
	}
	warnings, _ := raw.([]string)
	return warnings
}

func stepDuration(step *trajectory.Step) time.Duration {
	return time.Duration(step.DurationMs * float64(time.Millisecond))
}
