package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/medextract/medextract/api/internal/config"
	"github.com/medextract/medextract/api/internal/pkg/circuitbreaker"
	"github.com/medextract/medextract/api/internal/pkg/metrics"
)

// RxNormSystem is the FHIR code system URI for RxNorm.
const RxNormSystem = "http://www.nlm.nih.gov/research/umls/rxnorm"

// RxNormCode is a resolved RxNorm concept.
type RxNormCode struct {
	RxCUI      string  `json:"rxcui"`
	Display    string  `json:"display"`
	System     string  `json:"system"`
	MatchType  string  `json:"matchType"`
	MatchScore float64 `json:"matchScore"`
}

// dosagePattern strips dose strengths from medication names so that
// "lisinopril 10mg" resolves the same concept as "lisinopril".
var dosagePattern = regexp.MustCompile(`(?i)\d+\.?\d*\s*(mg|mcg|g|ml|meq|units?|iu)\b(\s*/\s*\d+\.?\d*\s*(mg|mcg|g|ml|meq|units?|iu)\b)?`)

// formWords are dose-form and route tokens removed before lookup.
var formWords = map[string]struct{}{
	"tablet": {}, "tab": {}, "capsule": {}, "cap": {}, "solution": {},
	"suspension": {}, "injection": {}, "inj": {}, "cream": {}, "ointment": {},
	"patch": {}, "spray": {}, "oral": {}, "iv": {}, "im": {}, "po": {},
	"nasal": {}, "topical": {}, "ophthalmic": {},
}

// normalizeMedicationName reduces a prescribed-drug phrase to the bare
// ingredient or brand name the RxNorm exact-match endpoint expects.
func normalizeMedicationName(name string) string {
	cleaned := dosagePattern.ReplaceAllString(name, " ")

	fields := strings.Fields(cleaned)
	kept := fields[:0]
	for _, f := range fields {
		if _, drop := formWords[strings.ToLower(strings.Trim(f, ",.;:"))]; drop {
			continue
		}
		kept = append(kept, f)
	}
	return strings.TrimSpace(strings.Join(kept, " "))
}

// RxNormLookupTool resolves medication names to RxNorm concepts via the NIH
// RxNav API. Resolution tries three strategies in order: an exact match on
// the normalized name, an approximate match on the normalized name, and an
// approximate match on the original text when normalization changed it.
type RxNormLookupTool struct {
	client        *http.Client
	breaker       *circuitbreaker.CircuitBreaker
	cache         LookupCache
	logger        *zap.Logger
	baseURL       string
	timeout       time.Duration
	maxCandidates int
}

// NewRxNormLookupTool creates a medication lookup tool. cache may be nil.
func NewRxNormLookupTool(cfg config.LookupConfig, cache LookupCache, logger *zap.Logger) *RxNormLookupTool {
	return &RxNormLookupTool{
		client:        &http.Client{},
		breaker:       circuitbreaker.New(circuitbreaker.DefaultConfig("rxnorm_lookup")),
		cache:         cache,
		logger:        logger.Named("rxnorm"),
		baseURL:       strings.TrimRight(cfg.RxNormBaseURL, "/"),
		timeout:       cfg.Timeout,
		maxCandidates: cfg.MaxCandidates,
	}
}

// Name implements Tool.
func (t *RxNormLookupTool) Name() string { return "rxnorm_lookup" }

// Description implements Tool.
func (t *RxNormLookupTool) Description() string {
	return "Looks up RxNorm concept identifiers from the NIH RxNav API. " +
		"Input a medication name and receive the corresponding RxCUI code."
}

// Close releases the underlying HTTP connections. Idempotent.
func (t *RxNormLookupTool) Close() {
	t.client.CloseIdleConnections()
}

// Execute implements Tool. Input must be a medication name string.
func (t *RxNormLookupTool) Execute(ctx context.Context, input any) Result {
	name, ok := input.(string)
	if !ok {
		return Failf("rxnorm lookup expects string input, got %T", input)
	}
	return t.lookup(ctx, name)
}

// ExecuteBatch implements BatchTool: all names are looked up concurrently
// and results are returned in input order.
func (t *RxNormLookupTool) ExecuteBatch(ctx context.Context, items []string) []Result {
	if len(items) == 0 {
		return nil
	}
	return runBatch(ctx, items, t.lookup)
}

// LookupFirst is a convenience wrapper returning the resolved code or nil.
func (t *RxNormLookupTool) LookupFirst(ctx context.Context, name string) *RxNormCode {
	result := t.lookup(ctx, name)
	if !result.Success {
		return nil
	}
	code, _ := result.Data.(*RxNormCode)
	return code
}

func (t *RxNormLookupTool) lookup(ctx context.Context, name string) Result {
	name = strings.TrimSpace(name)
	if name == "" {
		return Fail("empty medication name provided")
	}

	normalized := normalizeMedicationName(name)
	if normalized == "" {
		normalized = name
	}

	if cached := t.fromCache(ctx, normalized); cached != nil {
		return OK(cached, "search_term", name, "normalized_term", normalized, "cache", "hit")
	}

	code, err := circuitbreaker.ExecuteWithResult(t.breaker, ctx, func() (*RxNormCode, error) {
		return t.resolve(ctx, name, normalized)
	})
	if err != nil {
		if isTimeout(err) {
			metrics.RecordLookup("rxnorm", "timeout")
			return Fail("timeout looking up: "+name, "search_term", name, "reason", "timeout")
		}
		metrics.RecordLookup("rxnorm", "error")
		return Fail("RxNorm lookup failed: "+err.Error(), "search_term", name)
	}
	if code == nil {
		metrics.RecordLookup("rxnorm", "not_found")
		return Fail("no RxNorm code found for: "+name, "search_term", name, "normalized_term", normalized)
	}

	metrics.RecordLookup("rxnorm", "found")
	t.toCache(ctx, normalized, code)
	return OK(code, "search_term", name, "normalized_term", normalized, "match_type", code.MatchType)
}

// resolve walks the three lookup strategies, stopping at the first hit.
func (t *RxNormLookupTool) resolve(ctx context.Context, original, normalized string) (*RxNormCode, error) {
	code, err := t.exactMatch(ctx, normalized)
	if err != nil || code != nil {
		return code, err
	}

	code, err = t.approximateMatch(ctx, normalized)
	if err != nil || code != nil {
		return code, err
	}

	if !strings.EqualFold(original, normalized) {
		return t.approximateMatch(ctx, original)
	}
	return nil, nil
}

type rxcuiResponse struct {
	IDGroup struct {
		Name     string   `json:"name"`
		RxNormID []string `json:"rxnormId"`
	} `json:"idGroup"`
}

func (t *RxNormLookupTool) exactMatch(ctx context.Context, name string) (*RxNormCode, error) {
	params := url.Values{"name": {name}}

	body, err := t.get(ctx, "/rxcui.json?"+params.Encode())
	if err != nil {
		return nil, err
	}

	var payload rxcuiResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("malformed rxcui response: %w", err)
	}
	if len(payload.IDGroup.RxNormID) == 0 {
		return nil, nil
	}

	return &RxNormCode{
		RxCUI:      payload.IDGroup.RxNormID[0],
		Display:    name,
		System:     RxNormSystem,
		MatchType:  "exact",
		MatchScore: 1.0,
	}, nil
}

type approximateResponse struct {
	ApproximateGroup struct {
		Candidate []struct {
			RxCUI string `json:"rxcui"`
			Name  string `json:"name"`
			Score string `json:"score"`
		} `json:"candidate"`
	} `json:"approximateGroup"`
}

func (t *RxNormLookupTool) approximateMatch(ctx context.Context, term string) (*RxNormCode, error) {
	params := url.Values{
		"term":       {term},
		"maxEntries": {strconv.Itoa(t.maxCandidates)},
	}

	body, err := t.get(ctx, "/approximateTerm.json?"+params.Encode())
	if err != nil {
		return nil, err
	}

	var payload approximateResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("malformed approximateTerm response: %w", err)
	}

	candidates := payload.ApproximateGroup.Candidate
	if len(candidates) == 0 {
		return nil, nil
	}

	best := candidates[0]
	if best.RxCUI == "" {
		return nil, nil
	}

	// RxNav reports scores on a 0-100 scale.
	score := 0.0
	if parsed, err := strconv.ParseFloat(best.Score, 64); err == nil {
		score = parsed / 100.0
	}

	display := best.Name
	if display == "" {
		display = term
	}

	return &RxNormCode{
		RxCUI:      best.RxCUI,
		Display:    display,
		System:     RxNormSystem,
		MatchType:  "approximate",
		MatchScore: score,
	}, nil
}

// get issues one request with its own timeout, so a slow strategy call does
// not consume the budget of the strategies after it.
func (t *RxNormLookupTool) get(ctx context.Context, path string) ([]byte, error) {
	callCtx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(callCtx, http.MethodGet, t.baseURL+path, nil)
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
	return io.ReadAll(resp.Body)
}

func (t *RxNormLookupTool) fromCache(ctx context.Context, term string) *RxNormCode {
	if t.cache == nil {
		return nil
	}
	cached, err := t.cache.GetCode(ctx, "rxnorm", strings.ToLower(term))
	if err != nil {
		t.logger.Debug("lookup cache read failed", zap.Error(err))
		return nil
	}
	if cached == nil {
		metrics.RecordCache("rxnorm", "miss")
		return nil
	}
	metrics.RecordCache("rxnorm", "hit")
	score := 1.0
	if cached.Match == "approximate" {
		score = 0.8
	}
	return &RxNormCode{
		RxCUI:      cached.Code,
		Display:    cached.Display,
		System:     cached.System,
		MatchType:  cached.Match,
		MatchScore: score,
	}
}

func (t *RxNormLookupTool) toCache(ctx context.Context, term string, code *RxNormCode) {
	if t.cache == nil || code == nil {
		return
	}
	err := t.cache.PutCode(ctx, "rxnorm", strings.ToLower(term), &CachedCode{
		Code:    code.RxCUI,
		System:  code.System,
		Display: code.Display,
		Match:   code.MatchType,
	})
	if err != nil {
		t.logger.Debug("lookup cache write failed", zap.Error(err))
	}
}
