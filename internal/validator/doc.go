// Package validator provides struct validation for MedExtract.
//
// This package wraps go-playground/validator to provide:
//   - Schema validation of structured notes and request DTOs
//   - Human-readable error messages with full field paths
//   - Structured validation error responses
//
// # Usage
//
// Use validator.Validate() directly:
//
//	if err := validator.Validate(note); err != nil {
//	    // err is a validator.ValidationErrors
//	}
//
// # Custom Validations
//
// Custom validations can be registered in the init() function.
// The validator instance is package-level and thread-safe.
package validator
