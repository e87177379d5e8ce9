// Package testutil provides test doubles for the llm package.
package testutil

import (
	"context"
	"sync"

	"github.com/c360studio/nbtriage/llm"
)

// MockClient is a thread-safe mock completion client. It records every
// request and returns configured responses in sequence.
//
// Usage:
//
//	mock := &testutil.MockClient{
//	    Responses: []*llm.Response{{Content: "Fix: check denominator"}},
//	}
//
//	mock := &testutil.MockClient{
//	    Err: errors.New("request failed with status code 401"),
//	}
type MockClient struct {
	mu            sync.Mutex
	requests      []llm.Request
	Responses     []*llm.Response // Responses to return in sequence
	Err           error           // Error to return (takes precedence over Responses)
	Delay         chan struct{}   // If non-nil, Complete blocks until it receives or closes
	responseIndex int
}

// Complete implements the triage.Completer interface.
func (m *MockClient) Complete(ctx context.Context, req llm.Request) (*llm.Response, error) {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	delay := m.Delay
	m.mu.Unlock()

	if delay != nil {
		select {
		case <-delay:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.Err != nil {
		return nil, m.Err
	}

	if m.responseIndex < len(m.Responses) {
		resp := m.Responses[m.responseIndex]
		m.responseIndex++
		return resp, nil
	}

	return &llm.Response{Content: "", Model: "test-model"}, nil
}

// Requests returns a copy of all captured requests.
func (m *MockClient) Requests() []llm.Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]llm.Request, len(m.requests))
	copy(out, m.requests)
	return out
}

// CallCount returns the number of Complete invocations.
func (m *MockClient) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

// Reset clears captured requests and the response cursor.
func (m *MockClient) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = nil
	m.responseIndex = 0
}
