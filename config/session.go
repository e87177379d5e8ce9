package config

import "sync"

// DefaultPromptTemplate is the preset analysis prompt. The diagnostic text
// is appended to it when a request is built.
const DefaultPromptTemplate = "The following error occurred while running a notebook cell. " +
	"Explain the cause of the error and suggest a fix:\n\n"

// DefaultLanguage is the preset answer language.
const DefaultLanguage = "English"

// Settings is the session-scoped triage configuration. All three fields are
// always populated with some string; only Credential may be empty, which
// disables requests until the user supplies one.
type Settings struct {
	// Credential is the bearer token sent to the completion endpoint.
	Credential string
	// Language is the language the explanation should be written in.
	Language string
	// PromptTemplate is prepended to the diagnostic text.
	PromptTemplate string
}

// DefaultSettings returns the process-start settings: empty credential,
// preset language and prompt.
func DefaultSettings() Settings {
	return Settings{
		Language:       DefaultLanguage,
		PromptTemplate: DefaultPromptTemplate,
	}
}

// Session holds the mutable session settings. One Session is created at
// startup and handed to every component that needs it; there is no global
// instance. A dialog submission overwrites the settings wholesale and the
// change is immediately visible to all subsequent reads.
//
// Settings live for the process lifetime only; nothing is persisted.
type Session struct {
	mu       sync.RWMutex
	settings Settings
}

// NewSession creates a session with default settings.
func NewSession() *Session {
	return &Session{settings: DefaultSettings()}
}

// Snapshot returns the current settings by value.
func (s *Session) Snapshot() Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings
}

// Apply overwrites the settings. Callers must only apply values the user
// confirmed; a cancelled dialog never reaches this method.
func (s *Session) Apply(settings Settings) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings = settings
}
