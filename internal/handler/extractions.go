package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/medextract/medextract/api/internal/domain"
	"github.com/medextract/medextract/api/internal/dto"
	"github.com/medextract/medextract/api/internal/fhir"
	apperrors "github.com/medextract/medextract/api/internal/pkg/errors"
	"github.com/medextract/medextract/api/internal/service"
)

// ExtractionsHandler handles extraction endpoints
type ExtractionsHandler struct {
	extractionService *service.ExtractionService
	logger            *zap.Logger
}

// NewExtractionsHandler creates a new extractions handler
func NewExtractionsHandler(extractionService *service.ExtractionService, logger *zap.Logger) *ExtractionsHandler {
	return &ExtractionsHandler{
		extractionService: extractionService,
		logger:            logger,
	}
}

// Extract handles POST /v1/extractions. The pipeline runs synchronously;
// the response is the terminal run record, trajectory included. A run that
// failed inside the pipeline is still a 200 with status "failed" so clients
// always get the trajectory for diagnosis.
func (h *ExtractionsHandler) Extract(c *fiber.Ctx) error {
	var req dto.ExtractRequest
	if err := dto.ParseAndValidate(c, &req); err != nil {
		return h.serviceError(c, err, "invalid extraction request")
	}

	run, err := h.extractionService.Extract(c.Context(), req.NoteText)
	if err != nil {
		return h.serviceError(c, err, "failed to run extraction")
	}

	return c.JSON(dto.ToExtractionRunResponse(run))
}

// ExtractAsync handles POST /v1/extractions/async
func (h *ExtractionsHandler) ExtractAsync(c *fiber.Ctx) error {
	var req dto.ExtractRequest
	if err := dto.ParseAndValidate(c, &req); err != nil {
		return h.serviceError(c, err, "invalid extraction request")
	}

	run, err := h.extractionService.ExtractAsync(c.Context(), req.NoteText)
	if err != nil {
		return h.serviceError(c, err, "failed to enqueue extraction")
	}

	return c.Status(fiber.StatusAccepted).JSON(dto.ToExtractionRunResponse(run))
}

// GetExtraction handles GET /v1/extractions/:id
func (h *ExtractionsHandler) GetExtraction(c *fiber.Ctx) error {
	runID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   "Bad Request",
			"message": "Invalid extraction run ID",
		})
	}

	run, err := h.extractionService.GetRun(c.Context(), runID)
	if err != nil {
		return h.serviceError(c, err, "failed to get extraction run")
	}

	return c.JSON(dto.ToExtractionRunResponse(run))
}

// ListExtractions handles GET /v1/extractions
func (h *ExtractionsHandler) ListExtractions(c *fiber.Ctx) error {
	p := ParsePagination(c, 100)

	runs, err := h.extractionService.ListRuns(c.Context(), p.Limit, p.Offset)
	if err != nil {
		return h.serviceError(c, err, "failed to list extraction runs")
	}

	items := make([]dto.ExtractionRunResponse, 0, len(runs))
	for _, run := range runs {
		items = append(items, dto.ToExtractionRunSummary(run))
	}

	return c.JSON(fiber.Map{
		"data": items,
	})
}

// GetExtractionFHIR handles GET /v1/extractions/:id/fhir
func (h *ExtractionsHandler) GetExtractionFHIR(c *fiber.Ctx) error {
	runID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   "Bad Request",
			"message": "Invalid extraction run ID",
		})
	}

	run, err := h.extractionService.GetRun(c.Context(), runID)
	if err != nil {
		return h.serviceError(c, err, "failed to get extraction run")
	}

	if run.Status != domain.RunStatusSucceeded || run.Note == nil {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error":   "Conflict",
			"message": "Extraction run has no structured note to convert",
			"status":  run.Status,
		})
	}

	return c.JSON(fhir.ToBundle(run.Note))
}

func (h *ExtractionsHandler) serviceError(c *fiber.Ctx, err error, logMsg string) error {
	if apperrors.IsNotFound(err) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error":   "Not Found",
			"message": "Extraction run not found",
		})
	}
	if appErr := apperrors.GetAppError(err); appErr != nil && appErr.StatusCode < fiber.StatusInternalServerError {
		resp := fiber.Map{
			"error":   appErr.Code,
			"message": appErr.Message,
		}
		if len(appErr.Details) > 0 {
			resp["details"] = appErr.Details
		}
		return c.Status(appErr.StatusCode).JSON(resp)
	}

	h.logger.Error(logMsg, zap.Error(err))
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"error":   "Internal Server Error",
		"message": logMsg,
	})
}
