package analyzer

import "context"

// Options selects which sections the model is asked to produce.
// Summary is always requested.
type Options struct {
	CharacterAnalysis     bool `json:"character_analysis"`
	PlotAnalysis          bool `json:"plot_analysis"`
	ThemeAnalysis         bool `json:"theme_analysis"`
	ReadabilityAssessment bool `json:"readability_assessment"`
	SentimentAnalysis     bool `json:"sentiment_analysis"`
	StyleConsistency      bool `json:"style_consistency"`
}

// DefaultOptions enables every section.
func DefaultOptions() Options {
	return Options{
		CharacterAnalysis:     true,
		PlotAnalysis:          true,
		ThemeAnalysis:         true,
		ReadabilityAssessment: true,
		SentimentAnalysis:     true,
		StyleConsistency:      true,
	}
}

// Result is the parsed model output. Only Summary is guaranteed.
type Result struct {
	Summary           string
	CharacterAnalysis *string
	PlotAnalysis      *string
	ThemeAnalysis     *string
	ReadabilityScore  *float64
	SentimentScore    *float64
	StyleConsistency  *string
}

// Client produces an analysis for extracted document text.
type Client interface {
	Analyze(ctx context.Context, text string, opts Options) (Result, error)
}
