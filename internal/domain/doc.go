// Package domain contains the core business entities and types for MedExtract.
//
// This package defines:
//   - FHIR-aligned clinical entities (StructuredNote, Condition, Medication, etc.)
//   - Raw pre-enrichment types produced by entity extraction
//   - Value objects and enums for clinical vocabularies
//   - The ExtractionRun record persisted per pipeline execution
//
// # Design Philosophy
//
// Domain types are persistence-agnostic and represent the core business
// concepts independent of how they are stored or transmitted.
//
// # Naming Conventions
//
// Types prefixed with "Raw" are intermediate extraction output, owned by a
// single pipeline run and discarded after transformation. Everything else is
// part of the terminal structured record.
package domain
