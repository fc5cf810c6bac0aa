package openai

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"dreamdoc-backend/internal/analyzer"
)

type rawAnalysis struct {
	Summary           string          `json:"summary"`
	CharacterAnalysis *string         `json:"character_analysis"`
	PlotAnalysis      *string         `json:"plot_analysis"`
	ThemeAnalysis     *string         `json:"theme_analysis"`
	ReadabilityScore  json.RawMessage `json:"readability_score"`
	SentimentScore    json.RawMessage `json:"sentiment_score"`
	StyleConsistency  *string         `json:"style_consistency"`
}

// parseResponse decodes the model output. Code fences are tolerated, a
// missing summary is an error, and scores arrive as either numbers or
// quoted strings.
func parseResponse(content string) (analyzer.Result, error) {
	cleaned := strings.TrimSpace(content)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	cleaned = strings.TrimSpace(cleaned)

	var raw rawAnalysis
	if err := json.Unmarshal([]byte(cleaned), &raw); err != nil {
		return analyzer.Result{}, fmt.Errorf("invalid JSON response: %w", err)
	}
	if strings.TrimSpace(raw.Summary) == "" {
		return analyzer.Result{}, fmt.Errorf("response missing summary")
	}

	return analyzer.Result{
		Summary:           raw.Summary,
		CharacterAnalysis: raw.CharacterAnalysis,
		PlotAnalysis:      raw.PlotAnalysis,
		ThemeAnalysis:     raw.ThemeAnalysis,
		ReadabilityScore:  parseScore(raw.ReadabilityScore),
		SentimentScore:    parseScore(raw.SentimentScore),
		StyleConsistency:  raw.StyleConsistency,
	}, nil
}

// parseScore accepts a JSON number or a numeric string on the 0-100
// scale; anything else drops the score rather than failing the whole
// analysis.
func parseScore(raw json.RawMessage) *float64 {
	if len(raw) == 0 {
		return nil
	}
	var num float64
	if err := json.Unmarshal(raw, &num); err != nil {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil
		}
		num, err = strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return nil
		}
	}
	if num < 0 {
		num = 0
	}
	if num > 100 {
		num = 100
	}
	return &num
}
