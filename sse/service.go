package sse

import (
	"context"
	"fmt"
	"sync"

	"github.com/kbukum/constellation/observability"
)

// Service wraps an SSE Hub with lifecycle management and health reporting.
// A host process starts it once, hands its Hub (or the Service itself, via
// the Broadcaster interface) to whatever publishes events, and stops it on
// shutdown.
type Service struct {
	hub  *Hub
	wg   sync.WaitGroup
	mu   sync.Mutex
	path string
}

// ensure Service satisfies Broadcaster and observability.HealthChecker.
var (
	_ Broadcaster                 = (*Service)(nil)
	_ observability.HealthChecker = (*Service)(nil)
)

// NewService creates a new SSE service with a fresh Hub. path is the HTTP
// path clients connect on, recorded for diagnostics only.
func NewService(path string) *Service {
	return &Service{
		hub:  NewHub(),
		path: path,
	}
}

// Hub returns the underlying Hub for event broadcasting and client management.
func (s *Service) Hub() *Hub { return s.hub }

// Path returns the HTTP path the service was configured with.
func (s *Service) Path() string { return s.path }

// Start launches the Hub's event loop in a background goroutine.
func (s *Service) Start(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.hub.Run()
	}()

	return nil
}

// Stop signals the Hub to shut down and waits for Run to return.
func (s *Service) Stop(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.hub.Stop()
	s.wg.Wait()
	return nil
}

// BroadcastToPattern forwards to the underlying Hub.
func (s *Service) BroadcastToPattern(pattern string, data []byte) {
	s.hub.BroadcastToPattern(pattern, data)
}

// CheckHealth reports the health of the SSE hub.
func (s *Service) CheckHealth(_ context.Context) observability.Health {
	return observability.Health{
		Name:    "sse",
		Status:  observability.HealthStatusUp,
		Message: fmt.Sprintf("%d clients connected", s.hub.GetClientCount()),
	}
}
