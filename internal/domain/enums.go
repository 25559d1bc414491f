package domain

import "strings"

// Gender is the patient administrative gender, aligned with FHIR administrative-gender.
type Gender string

const (
	GenderMale    Gender = "male"
	GenderFemale  Gender = "female"
	GenderOther   Gender = "other"
	GenderUnknown Gender = "unknown"
)

// ClinicalStatus is a condition's clinical status, aligned with FHIR condition-clinical.
type ClinicalStatus string

const (
	ClinicalStatusActive     ClinicalStatus = "active"
	ClinicalStatusRecurrence ClinicalStatus = "recurrence"
	ClinicalStatusRelapse    ClinicalStatus = "relapse"
	ClinicalStatusInactive   ClinicalStatus = "inactive"
	ClinicalStatusRemission  ClinicalStatus = "remission"
	ClinicalStatusResolved   ClinicalStatus = "resolved"
)

// VerificationStatus is a condition's verification status, aligned with FHIR condition-ver-status.
type VerificationStatus string

const (
	VerificationStatusUnconfirmed  VerificationStatus = "unconfirmed"
	VerificationStatusProvisional  VerificationStatus = "provisional"
	VerificationStatusDifferential VerificationStatus = "differential"
	VerificationStatusConfirmed    VerificationStatus = "confirmed"
	VerificationStatusRefuted      VerificationStatus = "refuted"
)

// MedicationStatus is a medication request status, aligned with FHIR medicationrequest-status.
type MedicationStatus string

const (
	MedicationStatusActive    MedicationStatus = "active"
	MedicationStatusOnHold    MedicationStatus = "on-hold"
	MedicationStatusCancelled MedicationStatus = "cancelled"
	MedicationStatusCompleted MedicationStatus = "completed"
	MedicationStatusStopped   MedicationStatus = "stopped"
	MedicationStatusUnknown   MedicationStatus = "unknown"
)

// CarePlanStatus is a care plan activity status, aligned with FHIR care-plan-activity-status.
type CarePlanStatus string

const (
	CarePlanStatusNotStarted CarePlanStatus = "not-started"
	CarePlanStatusScheduled  CarePlanStatus = "scheduled"
	CarePlanStatusInProgress CarePlanStatus = "in-progress"
	CarePlanStatusOnHold     CarePlanStatus = "on-hold"
	CarePlanStatusCompleted  CarePlanStatus = "completed"
	CarePlanStatusCancelled  CarePlanStatus = "cancelled"
)

// ProcedureStatus is a procedure status, aligned with FHIR event-status.
type ProcedureStatus string

const (
	ProcedureStatusPreparation ProcedureStatus = "preparation"
	ProcedureStatusInProgress  ProcedureStatus = "in-progress"
	ProcedureStatusNotDone     ProcedureStatus = "not-done"
	ProcedureStatusOnHold      ProcedureStatus = "on-hold"
	ProcedureStatusStopped     ProcedureStatus = "stopped"
	ProcedureStatusCompleted   ProcedureStatus = "completed"
)

// ParseGender maps free text to a Gender, defaulting to unknown for
// unrecognized (but non-empty) input. Empty input maps to the empty value.
func ParseGender(s string) Gender {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return ""
	case "male", "m":
		return GenderMale
	case "female", "f":
		return GenderFemale
	case "other":
		return GenderOther
	default:
		return GenderUnknown
	}
}

// ParseClinicalStatus maps free text to a ClinicalStatus, defaulting to active.
func ParseClinicalStatus(s string) ClinicalStatus {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "resolved":
		return ClinicalStatusResolved
	case "inactive":
		return ClinicalStatusInactive
	case "remission":
		return ClinicalStatusRemission
	case "recurrence":
		return ClinicalStatusRecurrence
	case "relapse":
		return ClinicalStatusRelapse
	default:
		return ClinicalStatusActive
	}
}

// ParseCarePlanStatus maps free text to a CarePlanStatus, defaulting to scheduled.
func ParseCarePlanStatus(s string) CarePlanStatus {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "not-started", "not started":
		return CarePlanStatusNotStarted
	case "in-progress", "in progress":
		return CarePlanStatusInProgress
	case "completed":
		return CarePlanStatusCompleted
	case "cancelled", "canceled":
		return CarePlanStatusCancelled
	case "on-hold", "on hold":
		return CarePlanStatusOnHold
	default:
		return CarePlanStatusScheduled
	}
}

// ParseProcedureStatus maps free text to a ProcedureStatus, defaulting to completed.
func ParseProcedureStatus(s string) ProcedureStatus {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "in-progress", "in progress":
		return ProcedureStatusInProgress
	case "scheduled", "preparation":
		return ProcedureStatusPreparation
	case "not-done", "not done":
		return ProcedureStatusNotDone
	case "stopped":
		return ProcedureStatusStopped
	default:
		return ProcedureStatusCompleted
	}
}
