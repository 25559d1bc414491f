// Package id provides identifier generation for MedExtract.
//
// Run IDs identify one extraction pipeline execution; document IDs identify
// source notes. All functions are safe for concurrent use.
package id

import (
	"github.com/google/uuid"
)

// NewRunID generates an identifier for an extraction run.
func NewRunID() uuid.UUID {
	return uuid.New()
}

// NewDocumentID generates an identifier for a source document.
func NewDocumentID() uuid.UUID {
	return uuid.New()
}

// ParseUUID parses and validates a UUID string.
func ParseUUID(s string) (uuid.UUID, error) {
	return uuid.Parse(s)
}

// ParseUUIDOrNil parses a UUID string, returning uuid.Nil on error.
// This is a safe alternative for user input that doesn't require error handling.
func ParseUUIDOrNil(s string) uuid.UUID {
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil
	}
	return u
}
