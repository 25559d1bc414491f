// Package dto defines request and response shapes for the HTTP API, along
// with shared parsing and validation helpers.
package dto
