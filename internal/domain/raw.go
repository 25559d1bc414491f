package domain

// RawCondition is a condition mention before ICD-10 enrichment.
type RawCondition struct {
	Name           string `json:"name"`
	ClinicalStatus string `json:"clinical_status,omitempty"`
	Note           string `json:"note,omitempty"`
}

// RawMedication is a medication mention before RxNorm enrichment.
type RawMedication struct {
	Name      string `json:"name"`
	Dose      string `json:"dose,omitempty"`
	Route     string `json:"route,omitempty"`
	Frequency string `json:"frequency,omitempty"`
	Quantity  int    `json:"quantity,omitempty"`
	Refills   int    `json:"refills,omitempty"`
	AsNeeded  bool   `json:"as_needed,omitempty"`
	Reason    string `json:"reason,omitempty"`
}

// RawProcedure is a procedure mention before transformation.
type RawProcedure struct {
	Name     string `json:"name"`
	BodySite string `json:"body_site,omitempty"`
	Date     string `json:"date,omitempty"`
	Status   string `json:"status,omitempty"`
	Note     string `json:"note,omitempty"`
}

// RawVitalSign is a vital sign as extracted, prior to numeric coercion.
type RawVitalSign struct {
	Name           string   `json:"name"`
	Value          *float64 `json:"value,omitempty"`
	Unit           string   `json:"unit,omitempty"`
	ValueString    string   `json:"value_string,omitempty"`
	Interpretation string   `json:"interpretation,omitempty"`
}

// RawLabResult is a lab result as extracted.
type RawLabResult struct {
	Name           string   `json:"name"`
	Value          *float64 `json:"value,omitempty"`
	ValueString    string   `json:"value_string,omitempty"`
	Unit           string   `json:"unit,omitempty"`
	ReferenceRange string   `json:"reference_range,omitempty"`
	Interpretation string   `json:"interpretation,omitempty"`
}

// RawCarePlanItem is a care plan activity as extracted.
type RawCarePlanItem struct {
	Description     string `json:"description"`
	Category        string `json:"category,omitempty"`
	ScheduledString string `json:"scheduled_string,omitempty"`
	Status          string `json:"status,omitempty"`
	Note            string `json:"note,omitempty"`
}

// RawExtraction is the intermediate output of LLM entity extraction, before
// code enrichment and transformation. It is owned exclusively by one pipeline
// run and discarded after the transform step.
type RawExtraction struct {
	PatientID     string `json:"patient_id,omitempty"`
	PatientName   string `json:"patient_name,omitempty"`
	PatientDOB    string `json:"patient_dob,omitempty"`
	PatientGender string `json:"patient_gender,omitempty"`

	EncounterDate   string `json:"encounter_date,omitempty"`
	EncounterType   string `json:"encounter_type,omitempty"`
	EncounterReason string `json:"encounter_reason,omitempty"`

	ProviderName      string `json:"provider_name,omitempty"`
	ProviderSpecialty string `json:"provider_specialty,omitempty"`

	Conditions  []RawCondition    `json:"conditions"`
	Medications []RawMedication   `json:"medications"`
	Procedures  []RawProcedure    `json:"procedures"`
	VitalSigns  []RawVitalSign    `json:"vital_signs"`
	LabResults  []RawLabResult    `json:"lab_results"`
	CarePlan    []RawCarePlanItem `json:"care_plan"`
}
