package atelier

import (
	"context"
	"errors"
	"net/http"

	"gocloud.dev/server/health"
)

var ErrHealthCheckFailed = errors.New("health check failed")

// Checker reports whether a resource the site depends on is usable.
// CheckHealth must be safe to call from multiple goroutines.
type Checker = health.Checker

// CheckerFunc adapts an ordinary function to a Checker.
type CheckerFunc func() error

func (f CheckerFunc) CheckHealth() error {
	return f()
}

// loggedChecker logs the failures of the checker it wraps.
type loggedChecker struct {
	svc     *Service
	checker Checker
}

func (c loggedChecker) CheckHealth() error {
	err := c.checker.CheckHealth()
	if err != nil {
		c.svc.Log(context.Background()).WithError(errors.Join(ErrHealthCheckFailed, err)).Warn("service unhealthy")
	}
	return err
}

// AddHealthCheck adds a checker consulted by the health endpoint.
func (s *Service) AddHealthCheck(checker Checker) {
	s.healthCheckers = append(s.healthCheckers, checker)
	s.health.Add(loggedChecker{svc: s, checker: checker})
}

func (s *Service) HealthCheckers() []Checker {
	return s.healthCheckers
}

// HandleHealth answers 200 "ok" if every checker passes and 500
// "unhealthy" otherwise.
func (s *Service) HandleHealth(w http.ResponseWriter, r *http.Request) {
	s.health.ServeHTTP(w, r)
}

// WithHealthCheckPath serves the health endpoint at path instead of /healthz.
func WithHealthCheckPath(path string) Option {
	return func(_ context.Context, s *Service) {
		s.healthCheckPath = path
	}
}
