// Package main implements a mock completion server for trying nbtriage
// without a real LLM. It serves OpenAI-compatible /v1/chat/completions
// responses from text fixture files, picking the fixture whose name appears
// in the error text of the request. This keeps demos and manual testing
// fast, deterministic, and offline-capable.
//
// Usage:
//
//	mock-llm -fixtures /path/to/fixtures -port 8089
//
// Fixture files are named by exception (e.g., "ZeroDivisionError.md" is
// served when the prompt mentions ZeroDivisionError). A "default.md" file,
// if present, answers prompts that match no other fixture.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// --- OpenAI-compatible types ---

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature *float64      `json:"temperature,omitempty"`
	MaxTokens   *int          `json:"max_tokens,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	ID      string       `json:"id"`
	Object  string       `json:"object"`
	Created int64        `json:"created"`
	Model   string       `json:"model"`
	Choices []chatChoice `json:"choices"`
	Usage   chatUsage    `json:"usage"`
}

type chatChoice struct {
	Index        int         `json:"index"`
	Message      chatMessage `json:"message"`
	FinishReason string      `json:"finish_reason"`
}

type chatUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// --- Server ---

// capturedRequest stores the key fields of an incoming request so a test
// or demo script can verify what prompt nbtriage actually sent.
type capturedRequest struct {
	Model     string        `json:"model"`
	Messages  []chatMessage `json:"messages"`
	Fixture   string        `json:"fixture"`
	Timestamp int64         `json:"timestamp"`
}

type server struct {
	fixtures map[string]string // fixture name → explanation text
	token    string            // required bearer token ("" disables the check)
	calls    atomic.Int64

	requestsMu sync.Mutex
	requests   []capturedRequest
}

func newServer(fixtures map[string]string, token string) *server {
	return &server{fixtures: fixtures, token: token}
}

func main() {
	fixtureDir := flag.String("fixtures", "", "directory containing fixture explanation files")
	port := flag.Int("port", 8089, "port to listen on")
	token := flag.String("token", "", "require this bearer token (empty disables auth)")
	flag.Parse()

	// Allow env var override
	if envDir := os.Getenv("MOCK_LLM_FIXTURES"); envDir != "" && *fixtureDir == "" {
		*fixtureDir = envDir
	}
	if *fixtureDir == "" {
		*fixtureDir = "./fixtures"
	}

	fixtures, err := loadFixtures(*fixtureDir)
	if err != nil {
		log.Fatalf("Failed to load fixtures from %s: %v", *fixtureDir, err)
	}
	log.Printf("Loaded %d fixture(s) from %s", len(fixtures), *fixtureDir)
	for name := range fixtures {
		log.Printf("  fixture: %s", name)
	}

	s := newServer(fixtures, *token)

	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/v1/chat/completions", s.handleChatCompletions)
	mux.HandleFunc("/stats", s.handleStats)
	mux.HandleFunc("/requests", s.handleRequests)

	addr := fmt.Sprintf(":%d", *port)
	log.Printf("Mock LLM server listening on %s", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}

func (s *server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *server) handleChatCompletions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if s.token != "" {
		if r.Header.Get("Authorization") != "Bearer "+s.token {
			http.Error(w, `{"error": {"message": "invalid api key"}}`, http.StatusUnauthorized)
			return
		}
	}

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("invalid request body: %v", err), http.StatusBadRequest)
		return
	}
	if len(req.Messages) == 0 {
		http.Error(w, "messages is required", http.StatusBadRequest)
		return
	}

	callNum := s.calls.Add(1)
	prompt := lastUserMessage(req.Messages)
	name, content := s.resolveFixture(prompt)
	if content == "" {
		log.Printf("[call %d] WARNING: no fixture matches prompt, returning error", callNum)
		http.Error(w, "no fixture matches the prompt", http.StatusNotFound)
		return
	}
	log.Printf("[call %d] model=%s fixture=%s prompt_bytes=%d", callNum, req.Model, name, len(prompt))

	s.requestsMu.Lock()
	s.requests = append(s.requests, capturedRequest{
		Model:     req.Model,
		Messages:  req.Messages,
		Fixture:   name,
		Timestamp: time.Now().UnixMilli(),
	})
	s.requestsMu.Unlock()

	resp := chatResponse{
		ID:      fmt.Sprintf("mock-%d", time.Now().UnixNano()),
		Object:  "chat.completion",
		Created: time.Now().Unix(),
		Model:   req.Model,
		Choices: []chatChoice{
			{
				Index: 0,
				Message: chatMessage{
					Role:    "assistant",
					Content: content,
				},
				FinishReason: "stop",
			},
		},
		Usage: chatUsage{
			PromptTokens:     len(prompt) / 4, // rough estimate
			CompletionTokens: len(content) / 4,
			TotalTokens:      (len(prompt) + len(content)) / 4,
		},
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

// resolveFixture picks the fixture whose name appears in the prompt,
// preferring longer names so "FileNotFoundError" beats "Error". Falls back
// to the "default" fixture when nothing matches.
func (s *server) resolveFixture(prompt string) (string, string) {
	best := ""
	for name := range s.fixtures {
		if name == "default" {
			continue
		}
		if strings.Contains(prompt, name) && len(name) > len(best) {
			best = name
		}
	}
	if best != "" {
		return best, s.fixtures[best]
	}
	if content, ok := s.fixtures["default"]; ok {
		return "default", content
	}
	return "", ""
}

// lastUserMessage returns the content of the final user-role message, which
// is where nbtriage puts the rendered prompt and error text.
func lastUserMessage(messages []chatMessage) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == "user" {
			return messages[i].Content
		}
	}
	return messages[len(messages)-1].Content
}

// handleStats returns call counts for test assertions.
func (s *server) handleStats(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"total_calls": s.calls.Load(),
	})
}

// handleRequests returns captured request bodies for test assertions.
func (s *server) handleRequests(w http.ResponseWriter, _ *http.Request) {
	s.requestsMu.Lock()
	requests := make([]capturedRequest, len(s.requests))
	copy(requests, s.requests)
	s.requestsMu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"requests": requests,
	})
}

// loadFixtures reads .md and .txt files from dir and returns a map of
// fixture name → explanation text. The name is the file name without its
// extension.
func loadFixtures(dir string) (map[string]string, error) {
	fixtures := make(map[string]string)

	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		ext := filepath.Ext(info.Name())
		if ext != ".md" && ext != ".txt" {
			return nil
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}

		name := strings.TrimSuffix(info.Name(), ext)
		fixtures[name] = string(data)
		return nil
	})
	if err != nil {
		return nil, err
	}

	if len(fixtures) == 0 {
		return nil, fmt.Errorf("no fixture files found in %s", dir)
	}

	return fixtures, nil
}
