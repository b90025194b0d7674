package crawler

import (
	"context"
	"sync"

	"github.com/dealmungchi/pharmacrawler/internal/browser"
	"github.com/dealmungchi/pharmacrawler/services/publisher"
)

// mockPublisher records published messages
type mockPublisher struct {
	mu       sync.Mutex
	messages map[string][][]byte
}

var _ publisher.Publisher = (*mockPublisher)(nil)

func newMockPublisher() *mockPublisher {
	return &mockPublisher{messages: make(map[string][][]byte)}
}

func (m *mockPublisher) Publish(key string, message []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages[key] = append(m.messages[key], append([]byte(nil), message...))
	return nil
}

func (m *mockPublisher) TrimStreams() error {
	return nil
}

func (m *mockPublisher) Close() error {
	return nil
}

// sessionCounter wraps a session factory and counts opened sessions
type sessionCounter struct {
	mu      sync.Mutex
	opened  int
	factory browser.SessionFactory
}

func (s *sessionCounter) open(ctx context.Context) (browser.Session, error) {
	s.mu.Lock()
	s.opened++
	s.mu.Unlock()
	return s.factory(ctx)
}

func (s *sessionCounter) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.opened
}
