package insights

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
)

// fencedObjectRe extracts a JSON object out of a markdown code fence.
var fencedObjectRe = regexp.MustCompile("(?s)```(?:json)?\\s*(\\{.*\\})\\s*```")

// Breakdown splits a budget across the 50/30/20 buckets
type Breakdown struct {
	Needs   float64 `json:"needs"`
	Wants   float64 `json:"wants"`
	Savings float64 `json:"savings"`
}

// Suggestion is a monthly budget recommendation
type Suggestion struct {
	Month          string    `json:"month"`
	SuggestedTotal float64   `json:"suggested_total"`
	Breakdown      Breakdown `json:"breakdown"`
	Tips           []string  `json:"tips,omitempty"`
	Method         string    `json:"method"`
}

// BudgetModel produces a budget suggestion from per-category spend.
type BudgetModel interface {
	Enabled() bool
	SuggestBudget(ctx context.Context, categories map[string]float64) (*Suggestion, error)
}

// GeminiSuggester asks Gemini for next month's budget over the current
// month's per-category spend.
type GeminiSuggester struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
}

// NewGeminiSuggester builds the suggester. An empty API key produces a
// disabled suggester; callers fall back to the rule-based budget.
func NewGeminiSuggester(apiKey, model string, timeout time.Duration) *GeminiSuggester {
	if model == "" {
		model = defaultGeminiModel
	}
	if timeout <= 0 {
		timeout = defaultGeminiTimeout
	}
	return &GeminiSuggester{
		apiKey:     apiKey,
		model:      model,
		baseURL:    defaultGeminiBaseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Enabled reports whether an API key is configured.
func (g *GeminiSuggester) Enabled() bool {
	return g != nil && g.apiKey != ""
}

// SuggestBudget sends the spend profile to the model and decodes the
// suggested budget.
func (g *GeminiSuggester) SuggestBudget(ctx context.Context, categories map[string]float64) (*Suggestion, error) {
	if !g.Enabled() {
		return nil, fmt.Errorf("gemini api key is not configured")
	}

	data, err := json.Marshal(categories)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal spend profile: %w", err)
	}

	prompt := "Given the following monthly spend by category, suggest a " +
		"reasonable budget for next month using the 50/30/20 rule as a " +
		"baseline and add 2 actionable tips.\n" +
		"Data: " + string(data) + "\n" +
		"Return JSON with fields: suggested_total, " +
		"breakdown(needs,wants,savings), tips(list)."

	requestBody := map[string]any{
		"generationConfig": map[string]any{"temperature": 0.2},
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
		return nil, fmt.Errorf("gemini returned no candidates")
	}

	var blob strings.Builder
	for i, part := range geminiResp.Candidates[0].Content.Parts {
		if i > 0 {
			blob.WriteString("\n")
		}
		blob.WriteString(part.Text)
	}

	return parseSuggestionJSON(blob.String())
}

// parseSuggestionJSON locates the suggestion object inside possibly fenced
// or prose-wrapped model output and decodes it.
func parseSuggestionJSON(text string) (*Suggestion, error) {
	candidate := strings.TrimSpace(text)
	if m := fencedObjectRe.FindStringSubmatch(candidate); m != nil {
		candidate = m[1]
	}
	if start, end := strings.Index(candidate, "{"), strings.LastIndex(candidate, "}"); start >= 0 && end > start {
		candidate = candidate[start : end+1]
	}

	suggestion := &Suggestion{}
	if err := json.Unmarshal([]byte(candidate), suggestion); err != nil {
		return nil, fmt.Errorf("failed to parse model output: %w", err)
	}
	if suggestion.SuggestedTotal <= 0 {
		return nil, fmt.Errorf("model output has no usable suggested_total")
	}
	return suggestion, nil
}
