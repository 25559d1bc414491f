// Package service contains the extraction pipeline orchestrator and the
// run-lifecycle service layered above it. The orchestrator is pure: note
// text in, structured note plus trajectory out. ExtractionService adds
// persistence and background-job scheduling on top.
package service
