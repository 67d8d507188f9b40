package atelier

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/pitabwire/util"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"gocloud.dev/server/health"

	"github.com/renovo-atelier/atelier/cache"
	"github.com/renovo-atelier/atelier/config"
	"github.com/renovo-atelier/atelier/localization"
	"github.com/renovo-atelier/atelier/middleware"
	"github.com/renovo-atelier/atelier/telemetry"
)

type contextKey string

func (c contextKey) String() string {
	return "atelier/" + string(c)
}

const (
	ctxKeyService = contextKey("serviceKey")

	defaultHTTPReadTimeoutSeconds  = 15
	defaultHTTPWriteTimeoutSeconds = 15
	defaultHTTPIdleTimeoutSeconds  = 60
	defaultShutdownTimeoutSeconds  = 10
)

// Service holds together the components of the site for the lifetime of
// the process. It is pushed and pulled from contexts to make it easy to
// pass around.
type Service struct {
	name                string
	version             string
	environment         string
	logger              *util.LogEntry
	configuration       any
	handler             http.Handler
	driver              Driver
	cancelFunc          context.CancelFunc
	errorChannelMutex   sync.Mutex
	errorChannel        chan error
	cacheManager        cache.Manager
	localizationManager localization.Manager
	telemetryManager    telemetry.Manager
	healthCheckers      []Checker
	health              *health.Handler
	healthCheckPath     string
	startup             func(ctx context.Context, s *Service)
	cleanup             func(ctx context.Context)
	startupErrs         []error
	startOnce           sync.Once
	stopMutex           sync.Mutex
}

type Option func(ctx context.Context, service *Service)

// NewService creates a Service from a background context.
func NewService(opts ...Option) (context.Context, *Service) {
	return NewServiceWithContext(context.Background(), opts...)
}

// NewServiceWithContext creates a Service whose context is cancelled on
// interrupt or termination signals. Configuration is read from the
// environment unless WithConfig supplies one.
func NewServiceWithContext(ctx context.Context, opts ...Option) (context.Context, *Service) {
	ctx, signalCancelFunc := signal.NotifyContext(ctx,
		syscall.SIGHUP,
		syscall.SIGINT,
		syscall.SIGTERM,
		syscall.SIGQUIT)

	defaultLogger := util.Log(ctx)
	ctx = util.ContextWithLogger(ctx, defaultLogger)

	service := &Service{
		name:         "atelier",
		cancelFunc:   signalCancelFunc,
		errorChannel: make(chan error, 1),
		logger:       defaultLogger,
		health:       new(health.Handler),
	}

	defaultCfg, err := config.FromEnv[config.ConfigurationDefault]()
	if err != nil {
		defaultLogger.WithError(err).Warn("could not read configuration from environment")
	}
	opts = append([]Option{WithConfig(&defaultCfg)}, opts...)

	service.Init(ctx, opts...)

	ctx = SvcToContext(ctx, service)
	ctx = config.ToContext(ctx, service.Config())
	ctx = util.ContextWithLogger(ctx, service.logger)
	return ctx, service
}

// SvcToContext pushes a service instance into the supplied context for easier propagation.
func SvcToContext(ctx context.Context, service *Service) context.Context {
	return context.WithValue(ctx, ctxKeyService, service)
}

// Svc obtains a service instance being propagated through the context.
func Svc(ctx context.Context) *Service {
	service, ok := ctx.Value(ctxKeyService).(*Service)
	if !ok {
		return nil
	}
	return service
}

func (s *Service) Name() string {
	return s.name
}

// WithName specifies the name the service will utilize.
func WithName(name string) Option {
	return func(_ context.Context, s *Service) {
		s.name = name
	}
}

func (s *Service) Version() string {
	return s.version
}

// WithVersion specifies the version the service will utilize.
func WithVersion(version string) Option {
	return func(_ context.Context, s *Service) {
		s.version = version
	}
}

func (s *Service) Environment() string {
	return s.environment
}

// WithEnvironment specifies the environment the service will utilize.
func WithEnvironment(environment string) Option {
	return func(_ context.Context, s *Service) {
		s.environment = environment
	}
}

// H is the handler requests are served with once the service runs.
func (s *Service) H() http.Handler {
	return s.handler
}

// Init evaluates the options provided as arguments and supplies them to the service object.
func (s *Service) Init(ctx context.Context, opts ...Option) {
	for _, opt := range opts {
		opt(ctx, s)
	}
}

// AddPreStartMethod adds a function run once the service is fully
// initialized, just before it starts receiving requests.
func (s *Service) AddPreStartMethod(f func(ctx context.Context, s *Service)) {
	s.stopMutex.Lock()
	defer s.stopMutex.Unlock()
	if s.startup == nil {
		s.startup = f
		return
	}

	old := s.startup
	s.startup = func(ctx context.Context, st *Service) { old(ctx, st); f(ctx, st) }
}

// AddCleanupMethod adds a function run while the service stops. Cleanups
// run in reverse order of registration.
func (s *Service) AddCleanupMethod(f func(ctx context.Context)) {
	s.stopMutex.Lock()
	defer s.stopMutex.Unlock()

	if s.cleanup == nil {
		s.cleanup = f
		return
	}

	old := s.cleanup
	s.cleanup = func(ctx context.Context) { f(ctx); old(ctx) }
}

func (s *Service) addStartupError(err error) {
	s.startupErrs = append(s.startupErrs, err)
}

// Run serves requests on address until ctx is cancelled or the server
// fails. An empty address uses the configured HTTP port.
func (s *Service) Run(ctx context.Context, address string) error {
	if err := errors.Join(s.startupErrs...); err != nil {
		return err
	}

	go func(ctx context.Context) {
		srvErr := s.initServer(ctx, address)
		s.sendStopError(ctx, srvErr)
	}(ctx)

	select {
	case <-ctx.Done():
		s.Stop(context.WithoutCancel(ctx))
		return ctx.Err()
	case err0 := <-s.errorChannel:
		if err0 != nil && !errors.Is(err0, http.ErrServerClosed) {
			s.Log(ctx).WithError(err0).Error("system exit in error")
			s.Stop(context.WithoutCancel(ctx))
			return err0
		}
		s.Log(ctx).Debug("system exit")
		return nil
	}
}

func (s *Service) determineHTTPPort(currentPort string) string {
	if currentPort != "" {
		return currentPort
	}

	cfg, ok := s.Config().(config.ConfigurationPorts)
	if !ok {
		return ":8080"
	}
	return cfg.HTTPPort()
}

func (s *Service) createAndConfigureMux(ctx context.Context) http.Handler {
	mux := http.NewServeMux()

	applicationHandler := s.handler
	if applicationHandler == nil {
		applicationHandler = http.NotFoundHandler()
	}

	mux.HandleFunc("GET "+s.healthCheckPath, s.HandleHealth)
	mux.Handle("/", applicationHandler)

	var handler http.Handler = middleware.Recover(mux)
	handler = middleware.Logging(handler)
	if s.tracesRequests() {
		handler = otelhttp.NewHandler(handler, s.Name())
	}
	return middleware.ContextLogging(ctx, handler)
}

// tracesRequests reports whether requests get server spans: when telemetry
// is installed or request tracing is configured.
func (s *Service) tracesRequests() bool {
	if s.telemetryManager != nil && !s.telemetryManager.Disabled() {
		return true
	}
	cfg, ok := s.Config().(config.ConfigurationTraceRequests)
	return ok && cfg.TraceReq()
}

func (s *Service) initializeServerDriver(ctx context.Context) {
	if s.driver != nil {
		return
	}
	s.driver = &defaultDriver{
		log: s.Log(ctx),
		httpServer: &http.Server{
			BaseContext: func(_ net.Listener) context.Context {
				return ctx
			},
			ReadTimeout:  defaultHTTPReadTimeoutSeconds * time.Second,
			WriteTimeout: defaultHTTPWriteTimeoutSeconds * time.Second,
			IdleTimeout:  defaultHTTPIdleTimeoutSeconds * time.Second,
		},
	}
}

func (s *Service) initServer(ctx context.Context, httpPort string) error {
	if s.healthCheckPath == "" || s.healthCheckPath == "/" {
		s.healthCheckPath = "/healthz"
	}

	httpPort = s.determineHTTPPort(httpPort)

	s.startOnce.Do(func() {
		s.handler = s.createAndConfigureMux(ctx)
		s.initializeServerDriver(ctx)
	})

	if s.startup != nil {
		s.startup(ctx, s)
	}

	s.Log(ctx).WithField("address", httpPort).Info("service starting")
	return s.driver.ListenAndServe(httpPort, s.handler)
}

// Stop shuts the server down gracefully, then runs the cleanup methods.
func (s *Service) Stop(ctx context.Context) {
	if !s.stopMutex.TryLock() {
		return
	}
	defer s.stopMutex.Unlock()

	s.Log(ctx).Info("service stopping")

	if s.driver != nil {
		shutdownCtx, cancel := context.WithTimeout(ctx, defaultShutdownTimeoutSeconds*time.Second)
		if err := s.driver.Shutdown(shutdownCtx); err != nil {
			s.Log(ctx).WithError(err).Warn("server did not shut down cleanly")
		}
		cancel()
	}

	if s.cancelFunc != nil {
		s.cancelFunc()
	}

	if s.cleanup != nil {
		s.cleanup(ctx)
	}
}

func (s *Service) sendStopError(ctx context.Context, err error) {
	s.errorChannelMutex.Lock()
	defer s.errorChannelMutex.Unlock()

	select {
	case <-ctx.Done():
		return
	case s.errorChannel <- err:
	default:
	}
}
