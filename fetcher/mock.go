package fetcher

import (
	"context"
	"sync"
)

// MockFetcher is a test double serving canned responses per URL
type MockFetcher struct {
	mu sync.Mutex

	// Responses maps URL to the content to return
	Responses map[string][]byte
	// Errors maps URL to the error to return instead
	Errors map[string]error

	// FetchCalls records every URL fetched, in order
	FetchCalls []string
}

// NewMockFetcher creates an empty mock fetcher
func NewMockFetcher() *MockFetcher {
	return &MockFetcher{
		Responses: make(map[string][]byte),
		Errors:    make(map[string]error),
	}
}

// Fetch returns the canned response or error for the URL
func (m *MockFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.FetchCalls = append(m.FetchCalls, url)
	if err, ok := m.Errors[url]; ok {
		return nil, err
	}
	if content, ok := m.Responses[url]; ok {
		return content, nil
	}
	return nil, &NetworkError{URL: url, Err: context.DeadlineExceeded}
}

// FetchWithCache behaves like Fetch; the mock never reports cached content
func (m *MockFetcher) FetchWithCache(ctx context.Context, url string) ([]byte, bool, bool, error) {
	content, err := m.Fetch(ctx, url)
	return content, false, false, err
}

// Calls returns a copy of the recorded fetch URLs
func (m *MockFetcher) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.FetchCalls...)
}
