package service

import (
	"context"
	"sort"
	"time"

	"ai-platform-be/internal/dto"
)

const (
	StatusHealthy  = "healthy"
	StatusDegraded = "degraded"

	healthCheckTimeout = 3 * time.Second
)

// HealthCheck returns nil when the dependency is reachable.
type HealthCheck func(ctx context.Context) error

type IHealthService interface {
	Check(ctx context.Context) dto.HealthResponse
}

type healthService struct {
	version     string
	environment string
	checks      map[string]HealthCheck
}

func NewHealthService(version, environment string, checks map[string]HealthCheck) IHealthService {
	return &healthService{
		version:     version,
		environment: environment,
		checks:      checks,
	}
}

func (s *healthService) Check(ctx context.Context) dto.HealthResponse {
	names := make([]string, 0, len(s.checks))
	for name := range s.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	status := StatusHealthy
	services := make(map[string]string, len(names))
	for _, name := range names {
		checkCtx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
		err := s.checks[name](checkCtx)
		cancel()

		if err != nil {
			services[name] = "unhealthy: " + err.Error()
			status = StatusDegraded
			continue
		}
		services[name] = StatusHealthy
	}

	return dto.HealthResponse{
		Status:      status,
		Version:     s.version,
		Environment: s.environment,
		Services:    services,
	}
}
