// Package handler contains the fiber HTTP handlers for the extraction API.
package handler
