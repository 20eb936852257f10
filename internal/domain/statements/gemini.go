package statements

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"
)

const (
	defaultGeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	defaultGeminiModel   = "gemini-1.5-flash"
	defaultGeminiTimeout = 45 * time.Second

	// maxPromptChars bounds the statement text sent upstream to respect the
	// model's context limits.
	maxPromptChars = 120000
)

// fencedArrayRe extracts a JSON array out of a markdown code fence the model
// was told not to emit but often does anyway.
var fencedArrayRe = regexp.MustCompile("(?s)```(?:json)?\\s*(\\[.*\\])\\s*```")

// GeminiExtractor extracts transaction rows from statement text with a
// single deterministic generateContent call.
type GeminiExtractor struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
}

// NewGeminiExtractor builds the extractor. An empty API key produces a
// disabled extractor; callers must skip the strategy, not treat it as an error.
func NewGeminiExtractor(apiKey, model string, timeout time.Duration) *GeminiExtractor {
	if model == "" {
		model = defaultGeminiModel
	}
	if timeout <= 0 {
		timeout = defaultGeminiTimeout
	}
	return &GeminiExtractor{
		apiKey:     apiKey,
		model:      model,
		baseURL:    defaultGeminiBaseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Enabled reports whether an API key is configured.
func (g *GeminiExtractor) Enabled() bool {
	return g != nil && g.apiKey != ""
}

// ExtractRows sends the statement text to the model and parses the returned
// JSON array. A response with no candidates yields an empty row list, which
// callers treat as "nothing usable, fall back".
func (g *GeminiExtractor) ExtractRows(ctx context.Context, text string) ([]RawRow, error) {
	if !g.Enabled() {
		return nil, fmt.Errorf("gemini api key is not configured")
	}

	prompt := "You are FinMind's data-extraction persona: " +
		"a meticulous bank statement analyst. " +
		"Extract transactions and return ONLY JSON array. " +
		"Each item: date(YYYY-MM-DD), amount(number), " +
		"description(string), category_id(null), currency('USD'). " +
		"Ignore balances, totals, and non-transaction rows. " +
		"Do not include markdown.\n\n" +
		"STATEMENT_TEXT:\n" + truncate(text, maxPromptChars)

	requestBody := map[string]any{
		"generationConfig": map[string]any{"temperature": 0},
		"contents": []map[string]any{
			{"parts": []map[string]any{{"text": prompt}}},
		},
	}
	jsonBody, err := json.Marshal(requestBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", g.baseURL, g.model, g.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gemini request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("gemini api error (HTTP %d): %s", resp.StatusCode, string(body))
	}

	var geminiResp struct {
		Candidates []struct {
			Content struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"content"`
		} `json:"candidates"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&geminiResp); err != nil {
		return nil, fmt.Errorf("failed to decode gemini response: %w", err)
	}

	if len(geminiResp.Candidates) == 0 {
		return []RawRow{}, nil
	}

	var blob strings.Builder
	for i, part := range geminiResp.Candidates[0].Content.Parts {
		if i > 0 {
			blob.WriteString("\n")
		}
		blob.WriteString(part.Text)
	}

	return parseTransactionsJSON(blob.String())
}

// parseTransactionsJSON locates the transaction array inside possibly
// fenced or prose-wrapped model output and decodes it.
func parseTransactionsJSON(text string) ([]RawRow, error) {
	candidate := strings.TrimSpace(text)
	if m := fencedArrayRe.FindStringSubmatch(candidate); m != nil {
		candidate = m[1]
	}
	if start, end := strings.Index(candidate, "["), strings.LastIndex(candidate, "]"); start >= 0 && end > start {
		candidate = candidate[start : end+1]
	}

	var probe any
	if err := json.Unmarshal([]byte(candidate), &probe); err != nil {
		return nil, fmt.Errorf("failed to parse model output: %w", err)
	}
	if _, ok := probe.([]any); !ok {
		return nil, ErrMalformedModelOutput
	}

	var rows []RawRow
	if err := json.Unmarshal([]byte(candidate), &rows); err != nil {
		return nil, fmt.Errorf("failed to parse model output: %w", err)
	}
	return rows, nil
}
