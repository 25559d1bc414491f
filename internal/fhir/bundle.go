// Package fhir converts structured clinical notes into FHIR R4 transaction
// bundles. The conversion is pure and stateless; resources are represented
// as plain maps so the output serializes directly as FHIR JSON without a
// full resource model dependency.
package fhir

import (
	"time"

	"github.com/google/uuid"

	"github.com/medextract/medextract/api/internal/domain"
)

const (
	vitalSignsSystem   = "http://terminology.hl7.org/CodeSystem/observation-category"
	conditionSystem    = "http://terminology.hl7.org/CodeSystem/condition-clinical"
	verificationSystem = "http://terminology.hl7.org/CodeSystem/condition-ver-status"
)

// ToBundle converts a structured note into a FHIR R4 transaction bundle.
// Every entry carries a urn:uuid fullUrl; patient-scoped resources reference
// the generated Patient entry.
func ToBundle(note *domain.StructuredNote) map[string]any {
	b := &builder{patientRef: newURN()}

	patient := b.patient(note.Patient)
	b.add(b.patientRef, patient)

	var practitionerRef string
	if note.Provider != nil {
		practitionerRef = newURN()
		b.add(practitionerRef, b.practitioner(note.Provider))
	}

	if note.Encounter != nil {
		b.add(newURN(), b.encounter(note.Encounter, practitionerRef))
	}

	for _, c := range note.Conditions {
		b.add(newURN(), b.condition(c))
	}
	for _, m := range note.Medications {
		b.add(newURN(), b.medicationRequest(m))
	}
	for _, v := range note.VitalSigns {
		b.add(newURN(), b.observation(v.Code, "vital-signs", v.Value, v.Unit, v.ValueString, v.Interpretation))
	}
	for _, l := range note.LabResults {
		value := 0.0
		hasValue := l.Value != nil
		if hasValue {
			value = *l.Value
		}
		obs := b.observation(l.Code, "laboratory", value, l.Unit, l.ValueString, l.Interpretation)
		if !hasValue && l.ValueString == "" {
			delete(obs, "valueQuantity")
		}
		if l.ReferenceRange != "" {
			obs["referenceRange"] = []any{map[string]any{"text": l.ReferenceRange}}
		}
		b.add(newURN(), obs)
	}
	for _, p := range note.Procedures {
		b.add(newURN(), b.procedure(p))
	}
	if len(note.CarePlan) > 0 {
		b.add(newURN(), b.carePlan(note.CarePlan))
	}

	return map[string]any{
		"resourceType": "Bundle",
		"type":         "transaction",
		"timestamp":    note.ExtractedAt.UTC().Format(time.RFC3339),
		"entry":        b.entries,
	}
}

type builder struct {
	entries    []any
	patientRef string
}

func newURN() string {
	return "urn:uuid:" + uuid.New().String()
}

func (b *builder) add(fullURL string, resource map[string]any) {
	b.entries = append(b.entries, map[string]any{
		"fullUrl":  fullURL,
		"resource": resource,
		"request": map[string]any{
			"method": "POST",
			"url":    resource["resourceType"],
		},
	})
}

func (b *builder) subject() map[string]any {
	return map[string]any{"reference": b.patientRef}
}

func (b *builder) patient(p *domain.PatientInfo) map[string]any {
	res := map[string]any{"resourceType": "Patient"}
	if p == nil {
		return res
	}
	if p.Identifier != "" {
		res["identifier"] = []any{map[string]any{"value": p.Identifier}}
	}
	if p.Name != "" {
		res["name"] = []any{map[string]any{"text": p.Name}}
	}
	if p.Gender != "" {
		res["gender"] = string(p.Gender)
	}
	if p.BirthDate != nil {
		res["birthDate"] = p.BirthDate.Format("2006-01-02")
	}
	return res
}

func (b *builder) practitioner(p *domain.Provider) map[string]any {
	res := map[string]any{"resourceType": "Practitioner"}
	if p.Name != "" {
		res["name"] = []any{map[string]any{"text": p.Name}}
	}
	if p.Specialty != "" {
		res["qualification"] = []any{map[string]any{
			"code": map[string]any{"text": p.Specialty},
		}}
	}
	return res
}

func (b *builder) encounter(e *domain.Encounter, practitionerRef string) map[string]any {
	res := map[string]any{
		"resourceType": "Encounter",
		"status":       "finished",
		"subject":      b.subject(),
	}
	if e.Type != "" {
		res["type"] = []any{map[string]any{"text": e.Type}}
	}
	if e.Reason != "" {
		res["reasonCode"] = []any{map[string]any{"text": e.Reason}}
	}
	if e.Date != nil {
		res["period"] = map[string]any{"start": e.Date.Format("2006-01-02")}
	}
	if practitionerRef != "" {
		res["participant"] = []any{map[string]any{
			"individual": map[string]any{"reference": practitionerRef},
		}}
	}
	return res
}

func (b *builder) condition(c domain.Condition) map[string]any {
	res := map[string]any{
		"resourceType": "Condition",
		"subject":      b.subject(),
		"code":         codeableConcept(c.Code),
		"clinicalStatus": map[string]any{
			"coding": []any{map[string]any{
				"system": conditionSystem,
				"code":   string(c.ClinicalStatus),
			}},
		},
		"verificationStatus": map[string]any{
			"coding": []any{map[string]any{
				"system": verificationSystem,
				"code":   string(c.VerificationStatus),
			}},
		},
	}
	if c.OnsetDate != nil {
		res["onsetDateTime"] = c.OnsetDate.Format("2006-01-02")
	}
	if c.Note != "" {
		res["note"] = []any{map[string]any{"text": c.Note}}
	}
	return res
}

func (b *builder) medicationRequest(m domain.Medication) map[string]any {
	res := map[string]any{
		"resourceType":              "MedicationRequest",
		"status":                    string(m.Status),
		"intent":                    "order",
		"subject":                   b.subject(),
		"medicationCodeableConcept": codeableConcept(m.Code),
	}
	if m.Reason != "" {
		res["reasonCode"] = []any{map[string]any{"text": m.Reason}}
	}
	if m.Dosage != nil {
		dosage := map[string]any{}
		if m.Dosage.Text != "" {
			dosage["text"] = m.Dosage.Text
		}
		if m.Dosage.Route != "" {
			dosage["route"] = map[string]any{"text": m.Dosage.Route}
		}
		if m.Dosage.Frequency != "" {
			dosage["timing"] = map[string]any{"code": map[string]any{"text": m.Dosage.Frequency}}
		}
		if m.Dosage.DoseValue > 0 {
			dosage["doseAndRate"] = []any{map[string]any{
				"doseQuantity": map[string]any{
					"value": m.Dosage.DoseValue,
					"unit":  m.Dosage.DoseUnit,
				},
			}}
		}
		dosage["asNeededBoolean"] = m.AsNeeded
		res["dosageInstruction"] = []any{dosage}
	}
	if m.DispenseQuantity > 0 || m.Refills > 0 {
		res["dispenseRequest"] = map[string]any{
			"quantity":               map[string]any{"value": m.DispenseQuantity},
			"numberOfRepeatsAllowed": m.Refills,
		}
	}
	return res
}

func (b *builder) observation(code domain.CodeableConcept, category string, value float64, unit, valueString, interpretation string) map[string]any {
	res := map[string]any{
		"resourceType": "Observation",
		"status":       "final",
		"subject":      b.subject(),
		"code":         codeableConcept(code),
		"category": []any{map[string]any{
			"coding": []any{map[string]any{
				"system": vitalSignsSystem,
				"code":   category,
			}},
		}},
	}
	switch {
	case value != 0 || valueString == "":
		res["valueQuantity"] = map[string]any{"value": value, "unit": unit}
	default:
		res["valueString"] = valueString
	}
	if interpretation != "" {
		res["interpretation"] = []any{map[string]any{"text": interpretation}}
	}
	return res
}

func (b *builder) procedure(p domain.Procedure) map[string]any {
	res := map[string]any{
		"resourceType": "Procedure",
		"status":       string(p.Status),
		"subject":      b.subject(),
		"code":         codeableConcept(p.Code),
	}
	if p.BodySite != "" {
		res["bodySite"] = []any{map[string]any{"text": p.BodySite}}
	}
	if p.Note != "" {
		res["note"] = []any{map[string]any{"text": p.Note}}
	}
	return res
}

func (b *builder) carePlan(activities []domain.CarePlanActivity) map[string]any {
	items := make([]any, 0, len(activities))
	for _, a := range activities {
		detail := map[string]any{
			"status":      carePlanDetailStatus(a.Status),
			"description": a.Description,
		}
		if a.Category != "" {
			detail["code"] = map[string]any{"text": a.Category}
		}
		if a.ScheduledString != "" {
			detail["scheduledString"] = a.ScheduledString
		}
		items = append(items, map[string]any{"detail": detail})
	}
	return map[string]any{
		"resourceType": "CarePlan",
		"status":       "active",
		"intent":       "plan",
		"subject":      b.subject(),
		"activity":     items,
	}
}

// carePlanDetailStatus maps activity statuses onto the FHIR
// care-plan-activity-status value set.
func carePlanDetailStatus(s domain.CarePlanStatus) string {
	switch s {
	case domain.CarePlanStatusNotStarted, domain.CarePlanStatusScheduled:
		return string(s)
	case domain.CarePlanStatusInProgress, domain.CarePlanStatusOnHold,
		domain.CarePlanStatusCompleted, domain.CarePlanStatusCancelled:
		return string(s)
	default:
		return "scheduled"
	}
}

func codeableConcept(c domain.CodeableConcept) map[string]any {
	concept := map[string]any{"text": c.Display}
	if c.Coded() {
		concept["coding"] = []any{map[string]any{
			"system":  c.System,
			"code":    c.Code,
			"display": c.Display,
		}}
	}
	return concept
}

// ResourceCount returns how many resources a note would produce, useful for
// summaries without building the bundle.
func ResourceCount(note *domain.StructuredNote) int {
	count := 1 // Patient is always emitted
	if note.Provider != nil {
		count++
	}
	if note.Encounter != nil {
		count++
	}
	count += len(note.Conditions) + len(note.Medications) +
		len(note.VitalSigns) + len(note.LabResults) + len(note.Procedures)
	if len(note.CarePlan) > 0 {
		count++
	}
	return count
}
