package results

import "time"

// Result is the structured output of the AI analysis for one document.
// Summary is always present; the other sections only when requested and
// returned by the model.
type Result struct {
	ID                string
	DocumentID        string
	Summary           string
	CharacterAnalysis *string
	PlotAnalysis      *string
	ThemeAnalysis     *string
	ReadabilityScore  *float64
	SentimentScore    *float64
	StyleConsistency  *string
	CreatedAt         time.Time
}
