package service

import (
	"go.uber.org/zap"

	"github.com/medextract/medextract/api/internal/config"
	"github.com/medextract/medextract/api/internal/llm"
	"github.com/medextract/medextract/api/internal/tool"
)

// BuildPipeline assembles a production pipeline from configuration: the
// configured text-generation provider, the NIH lookup clients with an
// optional shared cache, and the note validator.
func BuildPipeline(cfg *config.Config, cache tool.LookupCache, logger *zap.Logger) (*Pipeline, error) {
	provider, err := llm.New(cfg.LLM)
	if err != nil {
		return nil, err
	}

	if !cfg.Cache.Enabled {
		cache = nil
	}

	return NewPipeline(
		tool.NewEntityExtractionTool(provider, logger),
		tool.NewICD10LookupTool(cfg.Lookup, cache, logger),
		tool.NewRxNormLookupTool(cfg.Lookup, cache, logger),
		tool.NewNoteValidationTool(logger),
		logger,
	), nil
}
