package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/medextract/medextract/api/internal/config"
	"github.com/medextract/medextract/api/internal/pkg/circuitbreaker"
	"github.com/medextract/medextract/api/internal/pkg/metrics"
)

// ICD10System is the FHIR code system URI for ICD-10-CM.
const ICD10System = "http://hl7.org/fhir/sid/icd-10-cm"

// ICD10Code is a resolved ICD-10-CM diagnosis code.
type ICD10Code struct {
	Code       string  `json:"code"`
	Display    string  `json:"display"`
	System     string  `json:"system"`
	MatchScore float64 `json:"matchScore"`
}

// ICD10LookupTool resolves diagnosis text to ICD-10-CM codes via the NIH
// ClinicalTables terminology service. Diagnosis terms need no normalization;
// the service's term search already performs approximate matching, so a
// single search requesting the top N candidates covers both the exact and
// fuzzy strategies.
//
// The tool owns its HTTP client; Close must be called once per pipeline run.
type ICD10LookupTool struct {
	client        *http.Client
	breaker       *circuitbreaker.CircuitBreaker
	cache         LookupCache
	logger        *zap.Logger
	baseURL       string
	timeout       time.Duration
	maxCandidates int
}

// NewICD10LookupTool creates a diagnosis lookup tool. cache may be nil.
func NewICD10LookupTool(cfg config.LookupConfig, cache LookupCache, logger *zap.Logger) *ICD10LookupTool {
	return &ICD10LookupTool{
		client:        &http.Client{},
		breaker:       circuitbreaker.New(circuitbreaker.DefaultConfig("icd10_lookup")),
		cache:         cache,
		logger:        logger.Named("icd10"),
		baseURL:       strings.TrimRight(cfg.ICD10BaseURL, "/"),
		timeout:       cfg.Timeout,
		maxCandidates: cfg.MaxCandidates,
	}
}

// Name implements Tool.
func (t *ICD10LookupTool) Name() string { return "icd10_lookup" }

// Description implements Tool.
func (t *ICD10LookupTool) Description() string {
	return "Looks up ICD-10-CM diagnosis codes from the NIH ClinicalTables API. " +
		"Input a condition/diagnosis name and receive the corresponding code."
}

// Close releases the underlying HTTP connections. Idempotent.
func (t *ICD10LookupTool) Close() {
	t.client.CloseIdleConnections()
}

// Execute implements Tool. Input must be a condition name string.
func (t *ICD10LookupTool) Execute(ctx context.Context, input any) Result {
	term, ok := input.(string)
	if !ok {
		return Failf("icd10 lookup expects string input, got %T", input)
	}
	return t.lookup(ctx, term)
}

// ExecuteBatch implements BatchTool: all terms are looked up concurrently
// and results are returned in input order.
func (t *ICD10LookupTool) ExecuteBatch(ctx context.Context, items []string) []Result {
	if len(items) == 0 {
		return nil
	}
	return runBatch(ctx, items, t.lookup)
}

// LookupFirst is a convenience wrapper returning the resolved code or nil.
func (t *ICD10LookupTool) LookupFirst(ctx context.Context, term string) *ICD10Code {
	result := t.lookup(ctx, term)
	if !result.Success {
		return nil
	}
	code, _ := result.Data.(*ICD10Code)
	return code
}

func (t *ICD10LookupTool) lookup(ctx context.Context, term string) Result {
	term = strings.TrimSpace(term)
	if term == "" {
		return Fail("empty condition name provided")
	}

	if cached := t.fromCache(ctx, term); cached != nil {
		return OK(cached, "search_term", term, "cache", "hit")
	}

	callCtx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	code, err := circuitbreaker.ExecuteWithResult(t.breaker, callCtx, func() (*ICD10Code, error) {
		return t.search(callCtx, term)
	})
	if err != nil {
		if isTimeout(err) {
			metrics.RecordLookup("icd10", "timeout")
			return Fail("timeout looking up: "+term, "search_term", term, "reason", "timeout")
		}
		metrics.RecordLookup("icd10", "error")
		return Fail("ICD-10 lookup failed: "+err.Error(), "search_term", term)
	}
	if code == nil {
		metrics.RecordLookup("icd10", "not_found")
		return Fail("no ICD-10 code found for: "+term, "search_term", term)
	}

	metrics.RecordLookup("icd10", "found")
	t.toCache(ctx, term, code)
	return OK(code, "search_term", term)
}

// search queries the ClinicalTables ICD-10-CM search endpoint. The API
// responds with a positional array: [count, [codes], null, [[code, name]...]].
func (t *ICD10LookupTool) search(ctx context.Context, term string) (*ICD10Code, error) {
	params := url.Values{
		"terms":   {term},
		"maxList": {strconv.Itoa(t.maxCandidates)},
		"sf":      {"code,name"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.baseURL+"/search?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	var payload []json.RawMessage
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("malformed response: %w", err)
	}
	if len(payload) < 4 {
		return nil, nil // no results section
	}

	var count int
	var codes []string
	var displays [][]string
	if err := json.Unmarshal(payload[0], &count); err != nil {
		return nil, fmt.Errorf("malformed count: %w", err)
	}
	if err := json.Unmarshal(payload[1], &codes); err != nil {
		return nil, fmt.Errorf("malformed code list: %w", err)
	}
	_ = json.Unmarshal(payload[3], &displays)

	if count == 0 || len(codes) == 0 {
		return nil, nil
	}

	display := term
	if len(displays) > 0 && len(displays[0]) > 1 {
		display = displays[0][1]
	}

	// Lower confidence when the term was ambiguous.
	score := 1.0
	if count > 1 {
		score = 0.9
	}

	return &ICD10Code{
		Code:       codes[0],
		Display:    display,
		System:     ICD10System,
		MatchScore: score,
	}, nil
}

func (t *ICD10LookupTool) fromCache(ctx context.Context, term string) *ICD10Code {
	if t.cache == nil {
		return nil
	}
	cached, err := t.cache.GetCode(ctx, "icd10", strings.ToLower(term))
	if err != nil {
		t.logger.Debug("lookup cache read failed", zap.Error(err))
		return nil
	}
	if cached == nil {
		metrics.RecordCache("icd10", "miss")
		return nil
	}
	metrics.RecordCache("icd10", "hit")
	score := 1.0
	if cached.Match == "ambiguous" {
		score = 0.9
	}
	return &ICD10Code{
		Code:       cached.Code,
		Display:    cached.Display,
		System:     cached.System,
		MatchScore: score,
	}
}

func (t *ICD10LookupTool) toCache(ctx context.Context, term string, code *ICD10Code) {
	if t.cache == nil || code == nil {
		return
	}
	match := "exact"
	if code.MatchScore < 1.0 {
		match = "ambiguous"
	}
	err := t.cache.PutCode(ctx, "icd10", strings.ToLower(term), &CachedCode{
		Code:    code.Code,
		System:  code.System,
		Display: code.Display,
		Match:   match,
	})
	if err != nil {
		t.logger.Debug("lookup cache write failed", zap.Error(err))
	}
}
