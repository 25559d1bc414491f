// Package testutil provides shared fixtures for package tests.
package testutil

import (
	"time"

	"github.com/medextract/medextract/api/internal/domain"
)

// SampleNoteText is a small but complete clinical note used across tests.
const SampleNoteText = `Patient: John Smith (MRN-12345), DOB 1962-03-15, male.
Seen 2024-01-10 for follow-up of hypertension. BP 142/88 mmHg.
Assessment: hypertension, poorly controlled.
Plan: start lisinopril 10mg daily. Recheck blood pressure in 3 months.`

// SampleRawExtraction returns a raw extraction matching SampleNoteText.
func SampleRawExtraction() *domain.RawExtraction {
	v := 142.0
	return &domain.RawExtraction{
		PatientID:     "MRN-12345",
		PatientName:   "John Smith",
		PatientDOB:    "1962-03-15",
		PatientGender: "male",

		EncounterDate:   "2024-01-10",
		EncounterType:   "follow-up",
		EncounterReason: "hypertension follow-up",

		Conditions: []domain.RawCondition{
			{Name: "hypertension", ClinicalStatus: "active"},
		},
		Medications: []domain.RawMedication{
			{Name: "lisinopril 10mg", Dose: "10 mg", Frequency: "daily"},
		},
		VitalSigns: []domain.RawVitalSign{
			{Name: "blood pressure", Value: &v, Unit: "mmHg", ValueString: "142/88 mmHg"},
		},
		CarePlan: []domain.RawCarePlanItem{
			{Description: "Recheck blood pressure", Category: "follow-up", ScheduledString: "in 3 months"},
		},
	}
}

// SampleStructuredNote returns a valid structured note with coded entities.
func SampleStructuredNote() *domain.StructuredNote {
	return &domain.StructuredNote{
		Patient: &domain.PatientInfo{
			Identifier: "MRN-12345",
			Name:       "John Smith",
			Gender:     domain.GenderMale,
		},
		Conditions: []domain.Condition{
			{
				Code: domain.CodeableConcept{
					Code:    "I10",
					System:  "http://hl7.org/fhir/sid/icd-10-cm",
					Display: "Essential (primary) hypertension",
				},
				ClinicalStatus:     domain.ClinicalStatusActive,
				VerificationStatus: domain.VerificationStatusConfirmed,
			},
		},
		Medications: []domain.Medication{
			{
				Code: domain.CodeableConcept{
					Code:    "29046",
					System:  "http://www.nlm.nih.gov/research/umls/rxnorm",
					Display: "lisinopril",
				},
				Status: domain.MedicationStatusActive,
				Dosage: &domain.Dosage{Text: "10 mg daily", DoseValue: 10, DoseUnit: "mg", Frequency: "daily"},
			},
		},
		ExtractedAt: time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC),
	}
}
