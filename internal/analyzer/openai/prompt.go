package openai

import (
	"strings"

	"dreamdoc-backend/internal/analyzer"
)

// systemPrompt asks for a single JSON object whose keys depend on the
// requested sections. The analysis is delivered in Chinese.
func systemPrompt(opts analyzer.Options) string {
	var b strings.Builder
	b.WriteString("你是一位专业的文档分析专家。请用中文分析这篇文档，按照以下格式提供JSON输出：\n\n{\n")
	b.WriteString(`    "summary": "3-5句话总结文档要点",` + "\n")

	sections := []struct {
		key     string
		enabled bool
		score   bool
	}{
		{"character_analysis", opts.CharacterAnalysis, false},
		{"plot_analysis", opts.PlotAnalysis, false},
		{"theme_analysis", opts.ThemeAnalysis, false},
		{"readability_score", opts.ReadabilityAssessment, true},
		{"sentiment_score", opts.SentimentAnalysis, true},
		{"style_consistency", opts.StyleConsistency, false},
	}
	for _, s := range sections {
		if !s.enabled {
			continue
		}
		if s.score {
			b.WriteString(`    "` + s.key + `": "0-100的评分",` + "\n")
		} else {
			b.WriteString(`    "` + s.key + `": "详细分析",` + "\n")
		}
	}
	b.WriteString("}\n\n请确保:\n1. 输出为有效的JSON格式\n2. 分析深入且具体\n3. 使用恰当的专业术语\n4. 避免笼统的描述\n5. 保持客观中立的语气")
	return b.String()
}
