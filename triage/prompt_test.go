package triage_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/c360studio/nbtriage/config"
	"github.com/c360studio/nbtriage/triage"
)

func TestBuildPrompt(t *testing.T) {
	settings := config.Settings{
		Language:       "Korean",
		PromptTemplate: "Explain this notebook error:\n\n",
	}

	got := triage.BuildPrompt(settings, "KeyError: 'id'")
	assert.Equal(t, "Explain this notebook error:\n\nKeyError: 'id'\n\nAnswer in Korean.", got)
}

func TestBuildPrompt_NoLanguage(t *testing.T) {
	settings := config.Settings{PromptTemplate: "P: "}

	got := triage.BuildPrompt(settings, "boom")
	assert.Equal(t, "P: boom", got)
}

func TestBuildPrompt_Defaults(t *testing.T) {
	got := triage.BuildPrompt(config.DefaultSettings(), "NameError: x")
	assert.Contains(t, got, config.DefaultPromptTemplate)
	assert.Contains(t, got, "NameError: x")
	assert.Contains(t, got, "Answer in English.")
}
