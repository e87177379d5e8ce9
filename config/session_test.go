package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSession_Defaults(t *testing.T) {
	s := NewSession()
	got := s.Snapshot()

	assert.Empty(t, got.Credential)
	assert.Equal(t, DefaultLanguage, got.Language)
	assert.Equal(t, DefaultPromptTemplate, got.PromptTemplate)
}

func TestSession_ApplyRoundTrip(t *testing.T) {
	s := NewSession()

	s.Apply(Settings{Credential: "k1", Language: "EN", PromptTemplate: "P"})

	got := s.Snapshot()
	assert.Equal(t, Settings{Credential: "k1", Language: "EN", PromptTemplate: "P"}, got)
}

func TestSession_SnapshotIsCopy(t *testing.T) {
	s := NewSession()
	snap := s.Snapshot()
	snap.Credential = "mutated"

	assert.Empty(t, s.Snapshot().Credential, "mutating a snapshot must not affect the session")
}
