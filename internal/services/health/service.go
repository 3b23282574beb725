package health

import (
	"context"
	"errors"

	"cv-optimizer/internal/shared/storage/kv"
)

const probeKey = "__health__"

// Service reports whether the state backend answers.
type Service struct {
	Backend  kv.Store
	Store    string
	Provider string
}

// NewService constructs a new health service.
func NewService(backend kv.Store, store, provider string) *Service {
	return &Service{Backend: backend, Store: store, Provider: provider}
}

// Status returns the health payload and whether the service is healthy.
func (s *Service) Status(ctx context.Context) (map[string]any, bool) {
	payload := map[string]any{
		"ok":       true,
		"store":    s.Store,
		"provider": s.Provider,
	}
	if s.Backend == nil {
		return payload, true
	}
	if _, err := s.Backend.Get(ctx, probeKey); err != nil && !errors.Is(err, kv.ErrNotFound) {
		payload["ok"] = false
		payload["error"] = "state store unavailable"
		return payload, false
	}
	return payload, true
}
