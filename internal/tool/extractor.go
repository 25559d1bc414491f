package tool

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/medextract/medextract/api/internal/domain"
	"github.com/medextract/medextract/api/internal/llm"
)

// extractionPrompt is the fixed instruction template for entity extraction.
// The note text is substituted for the %s verb.
const extractionPrompt = `You are a medical data extraction specialist. Extract structured information from the following clinical note.

Clinical Note:
%s

Extract the following entities and return as a JSON object. Be thorough but only extract information explicitly stated in the note.

Required JSON structure:
{
  "patient_id": "patient identifier if present",
  "patient_name": "patient full name if present",
  "patient_dob": "date of birth in YYYY-MM-DD format if present",
  "patient_gender": "male, female, other, or unknown",

  "encounter_date": "encounter date in YYYY-MM-DD format",
  "encounter_type": "type of visit (e.g., 'annual physical', 'follow-up')",
  "encounter_reason": "chief complaint or reason for visit",

  "provider_name": "provider/physician name",
  "provider_specialty": "medical specialty",

  "conditions": [
    {"name": "condition/diagnosis name exactly as clinically stated", "clinical_status": "active, resolved, or inactive", "note": "additional clinical context"}
  ],
  "medications": [
    {"name": "medication name (generic preferred)", "dose": "dose with unit (e.g., '20 mg')", "route": "administration route", "frequency": "how often (daily, BID, TID, PRN)", "quantity": 30, "refills": 2, "as_needed": false, "reason": "indication"}
  ],
  "procedures": [
    {"name": "procedure name", "body_site": "body location", "date": "YYYY-MM-DD", "status": "completed, scheduled, or in-progress", "note": "details"}
  ],
  "vital_signs": [
    {"name": "vital sign type", "value": 120, "unit": "unit of measurement", "value_string": "original string (e.g., '120/80 mmHg')"}
  ],
  "lab_results": [
    {"name": "lab test name", "value": 5.4, "value_string": "string if non-numeric", "unit": "unit", "reference_range": "normal range", "interpretation": "normal, high, low"}
  ],
  "care_plan": [
    {"description": "planned activity or recommendation", "category": "follow-up, therapy, test, lifestyle, referral", "scheduled_string": "when (e.g., 'in 3 months')", "status": "scheduled, not-started, in-progress, completed"}
  ]
}

IMPORTANT EXTRACTION RULES:
1. Only extract information explicitly present in the note
2. Use null for missing fields, not empty strings
3. For dates, convert to YYYY-MM-DD format when possible
4. For blood pressure, extract systolic as the primary value
5. Include ALL conditions mentioned in the assessment
6. Include ALL medications, including PRN
7. Include follow-up appointments, referrals, and lifestyle recommendations in care_plan

Return ONLY the JSON object, no additional text.`

// EntityExtractionTool turns raw note text into a RawExtraction by invoking a
// text-generation provider and parsing its output. LLM output is prose-adjacent
// and unreliable; the parser never panics on malformed text.
type EntityExtractionTool struct {
	provider llm.Provider
	logger   *zap.Logger
}

// NewEntityExtractionTool creates the extraction tool.
func NewEntityExtractionTool(provider llm.Provider, logger *zap.Logger) *EntityExtractionTool {
	return &EntityExtractionTool{
		provider: provider,
		logger:   logger.Named("extractor"),
	}
}

// Name implements Tool.
func (t *EntityExtractionTool) Name() string { return "entity_extraction" }

// Description implements Tool.
func (t *EntityExtractionTool) Description() string {
	return "Extracts structured clinical entities from free-text notes including " +
		"patient info, conditions, medications, vital signs, lab results, " +
		"procedures, and care plan activities."
}

// Execute implements Tool. Input must be the note text as a string.
func (t *EntityExtractionTool) Execute(ctx context.Context, input any) Result {
	noteText, ok := input.(string)
	if !ok {
		return Failf("entity extraction expects string input, got %T", input)
	}
	if strings.TrimSpace(noteText) == "" {
		return Fail("empty or whitespace-only note provided")
	}

	prompt := strings.Replace(extractionPrompt, "%s", noteText, 1)
	response, err := t.provider.Generate(ctx, prompt)
	if err != nil {
		return Fail("text generation failed: "+err.Error(),
			"llm_provider", t.provider.ProviderName(),
			"llm_model", t.provider.ModelName(),
		)
	}

	payload, ok := extractJSONObject(response)
	if !ok {
		t.logger.Warn("no JSON object found in generated text",
			zap.Int("response_length", len(response)))
		return Fail("no parseable JSON object in generated text",
			"raw_response_length", len(response))
	}

	var wire wireExtraction
	if err := json.Unmarshal([]byte(payload), &wire); err != nil {
		return Fail("failed to parse generated JSON: "+err.Error(),
			"raw_response_length", len(response))
	}

	raw := wire.toDomain()
	return OK(raw,
		"llm_provider", t.provider.ProviderName(),
		"llm_model", t.provider.ModelName(),
		"raw_response_length", len(response),
	)
}

// extractJSONObject strips Markdown code fences and returns the first
// balanced {...} span in s, tracking string literals so braces inside quoted
// values do not unbalance the scan.
func extractJSONObject(s string) (string, bool) {
	s = stripCodeFences(s)

	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		switch {
		case escaped:
			escaped = false
		case c == '\\' && inString:
			escaped = true
		case c == '"':
			inString = !inString
		case inString:
		case c == '{':
			depth++
		case c == '}':
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}

// stripCodeFences removes a wrapping ``` or ```json block if present.
func stripCodeFences(s string) string {
	trimmed := strings.TrimSpace(s)
	if !strings.HasPrefix(trimmed, "```") {
		return s
	}
	var inner []string
	inBlock := false
	for _, line := range strings.Split(trimmed, "\n") {
		switch {
		case strings.HasPrefix(line, "```") && !inBlock:
			inBlock = true
		case strings.HasPrefix(line, "```") && inBlock:
			return strings.Join(inner, "\n")
		case inBlock:
			inner = append(inner, line)
		}
	}
	return strings.Join(inner, "\n")
}

// Wire types mirror the prompt's JSON contract with loosely typed fields:
// the model is free to return "30" where 30 was requested, so numeric and
// boolean fields are coerced rather than decoded strictly.
type wireExtraction struct {
	PatientID     string `json:"patient_id"`
	PatientName   string `json:"patient_name"`
	PatientDOB    string `json:"patient_dob"`
	PatientGender string `json:"patient_gender"`

	EncounterDate   string `json:"encounter_date"`
	EncounterType   string `json:"encounter_type"`
	EncounterReason string `json:"encounter_reason"`

	ProviderName      string `json:"provider_name"`
	ProviderSpecialty string `json:"provider_specialty"`

	Conditions  []map[string]any `json:"conditions"`
	Medications []map[string]any `json:"medications"`
	Procedures  []map[string]any `json:"procedures"`
	VitalSigns  []map[string]any `json:"vital_signs"`
	LabResults  []map[string]any `json:"lab_results"`
	CarePlan    []map[string]any `json:"care_plan"`
}

func (w *wireExtraction) toDomain() *domain.RawExtraction {
	raw := &domain.RawExtraction{
		PatientID:         w.PatientID,
		PatientName:       w.PatientName,
		PatientDOB:        w.PatientDOB,
		PatientGender:     w.PatientGender,
		EncounterDate:     w.EncounterDate,
		EncounterType:     w.EncounterType,
		EncounterReason:   w.EncounterReason,
		ProviderName:      w.ProviderName,
		ProviderSpecialty: w.ProviderSpecialty,
	}

	for _, m := range w.Conditions {
		name := asString(m["name"])
		if name == "" {
			continue // entries without a name are dropped
		}
		raw.Conditions = append(raw.Conditions, domain.RawCondition{
			Name:           name,
			ClinicalStatus: asString(m["clinical_status"]),
			Note:           asString(m["note"]),
		})
	}

	for _, m := range w.Medications {
		name := asString(m["name"])
		if name == "" {
			continue
		}
		raw.Medications = append(raw.Medications, domain.RawMedication{
			Name:      name,
			Dose:      asString(m["dose"]),
			Route:     asString(m["route"]),
			Frequency: asString(m["frequency"]),
			Quantity:  asInt(m["quantity"]),
			Refills:   asInt(m["refills"]),
			AsNeeded:  asBool(m["as_needed"]),
			Reason:    asString(m["reason"]),
		})
	}

	for _, m := range w.Procedures {
		name := asString(m["name"])
		if name == "" {
			continue
		}
		raw.Procedures = append(raw.Procedures, domain.RawProcedure{
			Name:     name,
			BodySite: asString(m["body_site"]),
			Date:     asString(m["date"]),
			Status:   asString(m["status"]),
			Note:     asString(m["note"]),
		})
	}

	for _, m := range w.VitalSigns {
		name := asString(m["name"])
		if name == "" {
			continue
		}
		raw.VitalSigns = append(raw.VitalSigns, domain.RawVitalSign{
			Name:           name,
			Value:          asFloatPtr(m["value"]),
			Unit:           asString(m["unit"]),
			ValueString:    asString(m["value_string"]),
			Interpretation: asString(m["interpretation"]),
		})
	}

	for _, m := range w.LabResults {
		name := asString(m["name"])
		if name == "" {
			continue
		}
		raw.LabResults = append(raw.LabResults, domain.RawLabResult{
			Name:           name,
			Value:          asFloatPtr(m["value"]),
			ValueString:    asString(m["value_string"]),
			Unit:           asString(m["unit"]),
			ReferenceRange: asString(m["reference_range"]),
			Interpretation: asString(m["interpretation"]),
		})
	}

	for _, m := range w.CarePlan {
		desc := asString(m["description"])
		if desc == "" {
			continue
		}
		raw.CarePlan = append(raw.CarePlan, domain.RawCarePlanItem{
			Description:     desc,
			Category:        asString(m["category"]),
			ScheduledString: asString(m["scheduled_string"]),
			Status:          asString(m["status"]),
			Note:            asString(m["note"]),
		})
	}

	return raw
}

func asString(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	default:
		return ""
	}
}

func asInt(v any) int {
	switch val := v.(type) {
	case float64:
		return int(val)
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(val))
		if err != nil {
			return 0
		}
		return n
	default:
		return 0
	}
}

func asBool(v any) bool {
	switch val := v.(type) {
	case bool:
		return val
	case string:
		return strings.EqualFold(strings.TrimSpace(val), "true")
	default:
		return false
	}
}

func asFloatPtr(v any) *float64 {
	switch val := v.(type) {
	case float64:
		return &val
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		if err != nil {
			return nil
		}
		return &f
	default:
		return nil
	}
}
