package triage

import (
	"strings"

	"github.com/c360studio/nbtriage/config"
)

// BuildPrompt assembles the analysis prompt: the session template followed
// by the diagnostic text, with the answer-language instruction appended
// when a language is configured.
func BuildPrompt(settings config.Settings, errorText string) string {
	var b strings.Builder
	b.WriteString(settings.PromptTemplate)
	b.WriteString(errorText)

	if lang := strings.TrimSpace(settings.Language); lang != "" {
		b.WriteString("\n\nAnswer in ")
		b.WriteString(lang)
		b.WriteString(".")
	}
	return b.String()
}
