package domain

import "time"

// CodeableConcept is a coded clinical concept, mapping to FHIR CodeableConcept.
// Display is always present; Code and System are either both set (a successful
// vocabulary lookup) or both empty (display-only, uncoded concept).
type CodeableConcept struct {
	Code    string `json:"code,omitempty"`
	System  string `json:"system,omitempty"`
	Display string `json:"display" validate:"required"`
}

// Coded reports whether the concept carries a vocabulary code.
func (c CodeableConcept) Coded() bool {
	return c.Code != ""
}

// PatientInfo holds patient demographics, mapping to FHIR Patient.
type PatientInfo struct {
	Identifier string     `json:"identifier,omitempty"`
	Name       string     `json:"name,omitempty"`
	BirthDate  *time.Time `json:"birthDate,omitempty"`
	Gender     Gender     `json:"gender,omitempty" validate:"omitempty,oneof=male female other unknown"`
}

// Condition is a diagnosis or problem, mapping to FHIR Condition.
type Condition struct {
	Code               CodeableConcept    `json:"code" validate:"required"`
	ClinicalStatus     ClinicalStatus     `json:"clinicalStatus" validate:"required"`
	VerificationStatus VerificationStatus `json:"verificationStatus" validate:"required"`
	OnsetDate          *time.Time         `json:"onsetDate,omitempty"`
	Note               string             `json:"note,omitempty"`
}

// Dosage holds medication dosage instructions, mapping to FHIR Dosage.
type Dosage struct {
	Text      string  `json:"text,omitempty"`
	DoseValue float64 `json:"doseValue,omitempty"`
	DoseUnit  string  `json:"doseUnit,omitempty"`
	Route     string  `json:"route,omitempty"`
	Frequency string  `json:"frequency,omitempty"`
}

// Medication is a prescribed medication, mapping to FHIR MedicationRequest.
type Medication struct {
	Code             CodeableConcept  `json:"code" validate:"required"`
	Status           MedicationStatus `json:"status" validate:"required"`
	Dosage           *Dosage          `json:"dosage,omitempty"`
	DispenseQuantity int              `json:"dispenseQuantity,omitempty"`
	Refills          int              `json:"refills,omitempty"`
	AsNeeded         bool             `json:"asNeeded"`
	Reason           string           `json:"reason,omitempty"`
}

// VitalSign is a vital sign measurement, mapping to FHIR Observation (vital-signs).
type VitalSign struct {
	Code           CodeableConcept `json:"code" validate:"required"`
	Value          float64         `json:"value"`
	Unit           string          `json:"unit,omitempty"`
	ValueString    string          `json:"valueString,omitempty"`
	Interpretation string          `json:"interpretation,omitempty"`
}

// LabResult is a laboratory result, mapping to FHIR Observation (laboratory).
type LabResult struct {
	Code           CodeableConcept `json:"code" validate:"required"`
	Value          *float64        `json:"value,omitempty"`
	ValueString    string          `json:"valueString,omitempty"`
	Unit           string          `json:"unit,omitempty"`
	ReferenceRange string          `json:"referenceRange,omitempty"`
	Interpretation string          `json:"interpretation,omitempty"`
}

// Procedure is a performed or planned procedure, mapping to FHIR Procedure.
type Procedure struct {
	Code     CodeableConcept `json:"code" validate:"required"`
	Status   ProcedureStatus `json:"status" validate:"required"`
	BodySite string          `json:"bodySite,omitempty"`
	Note     string          `json:"note,omitempty"`
}

// CarePlanActivity is a planned activity or recommendation, mapping to FHIR CarePlan.
type CarePlanActivity struct {
	Description     string         `json:"description" validate:"required"`
	Status          CarePlanStatus `json:"status" validate:"required"`
	Category        string         `json:"category,omitempty"`
	ScheduledString string         `json:"scheduledString,omitempty"`
	Note            string         `json:"note,omitempty"`
}

// Provider is the attending healthcare provider, mapping to FHIR Practitioner.
type Provider struct {
	Name      string `json:"name,omitempty"`
	Specialty string `json:"specialty,omitempty"`
}

// Encounter is the clinical encounter context, mapping to FHIR Encounter.
type Encounter struct {
	Date   *time.Time `json:"date,omitempty"`
	Type   string     `json:"type,omitempty"`
	Reason string     `json:"reason,omitempty"`
}

// StructuredNote is the terminal output of the extraction pipeline: every
// clinical entity found in a note, enriched with vocabulary codes where
// lookups succeeded. Created once per run by the validation tool and
// immutable thereafter.
type StructuredNote struct {
	Patient   *PatientInfo `json:"patient,omitempty"`
	Encounter *Encounter   `json:"encounter,omitempty"`
	Provider  *Provider    `json:"provider,omitempty"`

	Conditions  []Condition        `json:"conditions" validate:"dive"`
	Medications []Medication       `json:"medications" validate:"dive"`
	VitalSigns  []VitalSign        `json:"vitalSigns" validate:"dive"`
	LabResults  []LabResult        `json:"labResults" validate:"dive"`
	Procedures  []Procedure        `json:"procedures" validate:"dive"`
	CarePlan    []CarePlanActivity `json:"carePlan" validate:"dive"`

	SourceText  string    `json:"sourceText,omitempty"`
	ExtractedAt time.Time `json:"extractedAt"`
}

// EntityCount returns the number of extracted entities per type.
func (n *StructuredNote) EntityCount() map[string]int {
	counts := map[string]int{
		"conditions":  len(n.Conditions),
		"medications": len(n.Medications),
		"vitalSigns":  len(n.VitalSigns),
		"labResults":  len(n.LabResults),
		"procedures":  len(n.Procedures),
		"carePlan":    len(n.CarePlan),
	}
	if n.Patient != nil {
		counts["patient"] = 1
	}
	if n.Encounter != nil {
		counts["encounter"] = 1
	}
	if n.Provider != nil {
		counts["provider"] = 1
	}
	return counts
}

// TotalEntities returns the total number of extracted entities.
func (n *StructuredNote) TotalEntities() int {
	total := 0
	for _, c := range n.EntityCount() {
		total += c
	}
	return total
}
