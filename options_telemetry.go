package atelier

import (
	"context"
	"fmt"

	"github.com/renovo-atelier/atelier/config"
	"github.com/renovo-atelier/atelier/telemetry"
)

// WithTelemetry installs OpenTelemetry tracing and metrics tagged with the
// service name, version and environment. Providers are flushed on stop.
func WithTelemetry(opts ...telemetry.Option) Option {
	return func(ctx context.Context, s *Service) {
		cfg, ok := s.Config().(config.ConfigurationTelemetry)
		if !ok {
			s.Log(ctx).Error("configuration object not of type : ConfigurationTelemetry")
			return
		}

		extOpts := []telemetry.Option{
			telemetry.WithServiceName(s.Name()),
			telemetry.WithServiceVersion(s.Version()),
			telemetry.WithServiceEnvironment(s.Environment())}
		extOpts = append(extOpts, opts...)

		manager := telemetry.NewManager(ctx, cfg, extOpts...)
		if err := manager.Init(ctx); err != nil {
			s.addStartupError(fmt.Errorf("init telemetry: %w", err))
			s.Log(ctx).WithError(err).Error("failed to initialize telemetry")
			return
		}
		s.telemetryManager = manager

		s.AddCleanupMethod(func(ctx context.Context) {
			if shutdownErr := manager.Shutdown(ctx); shutdownErr != nil {
				s.Log(ctx).WithError(shutdownErr).Warn("telemetry shutdown failed")
			}
		})
	}
}

func (s *Service) Telemetry() telemetry.Manager {
	return s.telemetryManager
}
