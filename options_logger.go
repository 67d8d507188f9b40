package atelier

import (
	"context"
	"log/slog"

	"github.com/pitabwire/util"

	"github.com/renovo-atelier/atelier/config"
)

// WithLogger builds the service logger from the logging configuration,
// then applies opts.
func WithLogger(opts ...util.Option) Option {
	return func(ctx context.Context, s *Service) {
		var cfgOpts []util.Option
		if cfg, ok := s.Config().(config.ConfigurationLogLevel); ok {
			logLevel, err := util.ParseLevel(cfg.LoggingLevel())
			if err == nil {
				cfgOpts = append(cfgOpts, util.WithLogLevel(logLevel))
			}
			cfgOpts = append(cfgOpts,
				util.WithLogTimeFormat(cfg.LoggingTimeFormat()),
				util.WithLogNoColor(!cfg.LoggingColored()))
			if cfg.LoggingShowStackTrace() {
				cfgOpts = append(cfgOpts, util.WithLogStackTrace())
			}
		}

		log := util.NewLogger(ctx, append(cfgOpts, opts...)...)
		s.logger = log.WithField("service", s.Name())
	}
}

func (s *Service) Log(ctx context.Context) *util.LogEntry {
	return s.logger.WithContext(ctx)
}

func (s *Service) SLog(ctx context.Context) *slog.Logger {
	return s.Log(ctx).SLog()
}
