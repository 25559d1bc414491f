package service

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/medextract/medextract/api/internal/domain"
	"github.com/medextract/medextract/api/internal/tool"
)

// dateFormats are tried in priority order; the first successful parse wins.
// DD/MM/YYYY only applies when the day exceeds 12, otherwise MM/DD wins.
var dateFormats = []string{
	"2006-01-02",
	"01/02/2006",
	"02/01/2006",
	"2006/01/02",
}

// dosePattern splits a dose phrase like "10 mg" into value and unit.
var dosePattern = regexp.MustCompile(`(\d+\.?\d*)\s*([a-zA-Z]+)`)

// parseDate parses a free-text date against the supported formats,
// returning nil when no format matches.
func parseDate(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range dateFormats {
		if ts, err := time.Parse(layout, s); err == nil {
			ts = ts.UTC()
			return &ts
		}
	}
	return nil
}

// parseDose extracts the numeric dose value and its unit from a dose phrase.
// Returns zero value and empty unit when no numeric dose is present.
func parseDose(s string) (float64, string) {
	match := dosePattern.FindStringSubmatch(s)
	if match == nil {
		return 0, ""
	}
	value, err := strconv.ParseFloat(match[1], 64)
	if err != nil {
		return 0, ""
	}
	return value, match[2]
}

// transformExtraction assembles the final StructuredNote from the raw
// extraction and the positionally aligned lookup outcomes. conditionCodes[i]
// corresponds to raw.Conditions[i] and is nil when that lookup failed;
// likewise medicationCodes. The function is pure and never performs I/O.
func transformExtraction(
	raw *domain.RawExtraction,
	conditionCodes []*tool.ICD10Code,
	medicationCodes []*tool.RxNormCode,
	sourceText string,
) *domain.StructuredNote {
	note := &domain.StructuredNote{
		SourceText:  sourceText,
		ExtractedAt: time.Now().UTC(),
		Conditions:  make([]domain.Condition, 0, len(raw.Conditions)),
		Medications: make([]domain.Medication, 0, len(raw.Medications)),
		VitalSigns:  make([]domain.VitalSign, 0, len(raw.VitalSigns)),
		LabResults:  make([]domain.LabResult, 0, len(raw.LabResults)),
		Procedures:  make([]domain.Procedure, 0, len(raw.Procedures)),
		CarePlan:    make([]domain.CarePlanActivity, 0, len(raw.CarePlan)),
	}

	if raw.PatientID != "" || raw.PatientName != "" || raw.PatientDOB != "" || raw.PatientGender != "" {
		note.Patient = &domain.PatientInfo{
			Identifier: raw.PatientID,
			Name:       raw.PatientName,
			BirthDate:  parseDate(raw.PatientDOB),
			Gender:     domain.ParseGender(raw.PatientGender),
		}
	}

	if raw.EncounterDate != "" || raw.EncounterType != "" || raw.EncounterReason != "" {
		note.Encounter = &domain.Encounter{
			Date:   parseDate(raw.EncounterDate),
			Type:   raw.EncounterType,
			Reason: raw.EncounterReason,
		}
	}

	if raw.ProviderName != "" || raw.ProviderSpecialty != "" {
		note.Provider = &domain.Provider{
			Name:      raw.ProviderName,
			Specialty: raw.ProviderSpecialty,
		}
	}

	for i, rc := range raw.Conditions {
		concept := domain.CodeableConcept{Display: rc.Name}
		if i < len(conditionCodes) && conditionCodes[i] != nil {
			concept.Code = conditionCodes[i].Code
			concept.System = conditionCodes[i].System
			concept.Display = conditionCodes[i].Display
		}
		note.Conditions = append(note.Conditions, domain.Condition{
			Code:               concept,
			ClinicalStatus:     domain.ParseClinicalStatus(rc.ClinicalStatus),
			VerificationStatus: domain.VerificationStatusConfirmed,
			Note:               rc.Note,
		})
	}

	for i, rm := range raw.Medications {
		concept := domain.CodeableConcept{Display: rm.Name}
		if i < len(medicationCodes) && medicationCodes[i] != nil {
			concept.Code = medicationCodes[i].RxCUI
			concept.System = medicationCodes[i].System
		}
		note.Medications = append(note.Medications, domain.Medication{
			Code:             concept,
			Status:           domain.MedicationStatusActive,
			Dosage:           buildDosage(rm),
			DispenseQuantity: rm.Quantity,
			Refills:          rm.Refills,
			AsNeeded:         rm.AsNeeded,
			Reason:           rm.Reason,
		})
	}

	for _, rv := range raw.VitalSigns {
		vital := domain.VitalSign{
			Code:           domain.CodeableConcept{Display: rv.Name},
			Unit:           rv.Unit,
			ValueString:    rv.ValueString,
			Interpretation: rv.Interpretation,
		}
		if rv.Value != nil {
			vital.Value = *rv.Value
		}
		note.VitalSigns = append(note.VitalSigns, vital)
	}

	for _, rl := range raw.LabResults {
		note.LabResults = append(note.LabResults, domain.LabResult{
			Code:           domain.CodeableConcept{Display: rl.Name},
			Value:          rl.Value,
			ValueString:    rl.ValueString,
			Unit:           rl.Unit,
			ReferenceRange: rl.ReferenceRange,
			Interpretation: rl.Interpretation,
		})
	}

	for _, rp := range raw.Procedures {
		note.Procedures = append(note.Procedures, domain.Procedure{
			Code:     domain.CodeableConcept{Display: rp.Name},
			Status:   domain.ParseProcedureStatus(rp.Status),
			BodySite: rp.BodySite,
			Note:     rp.Note,
		})
	}

	for _, rcp := range raw.CarePlan {
		note.CarePlan = append(note.CarePlan, domain.CarePlanActivity{
			Description:     rcp.Description,
			Status:          domain.ParseCarePlanStatus(rcp.Status),
			Category:        rcp.Category,
			ScheduledString: rcp.ScheduledString,
			Note:            rcp.Note,
		})
	}

	return note
}

func buildDosage(rm domain.RawMedication) *domain.Dosage {
	if rm.Dose == "" && rm.Route == "" && rm.Frequency == "" {
		return nil
	}
	value, unit := parseDose(rm.Dose)
	return &domain.Dosage{
		Text:      strings.TrimSpace(strings.Join(nonEmpty(rm.Dose, rm.Route, rm.Frequency), " ")),
		DoseValue: value,
		DoseUnit:  unit,
		Route:     rm.Route,
		Frequency: rm.Frequency,
	}
}

func nonEmpty(values ...string) []string {
	out := values[:0]
	for _, v := range values {
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}
