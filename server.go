package atelier

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"sync"

	"github.com/pitabwire/util"
)

// Driver runs the HTTP server of a service.
type Driver interface {
	ListenAndServe(addr string, h http.Handler) error
	Shutdown(ctx context.Context) error
}

type defaultDriver struct {
	log        *util.LogEntry
	httpServer *http.Server
}

// ListenAndServe sets the address and handler on the driver's http.Server,
// then calls ListenAndServe on it.
func (dd *defaultDriver) ListenAndServe(addr string, h http.Handler) error {
	dd.httpServer.Addr = addr
	dd.httpServer.Handler = h

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	dd.log.WithField("address", ln.Addr().String()).Info("http server listening")
	return dd.httpServer.Serve(ln)
}

func (dd *defaultDriver) Shutdown(ctx context.Context) error {
	return dd.httpServer.Shutdown(ctx)
}

// TestDriver serves through an httptest.Server on a loopback port chosen by
// the system.
type TestDriver struct {
	mu      sync.Mutex
	server  *httptest.Server
	started chan struct{}
	stopped chan struct{}
}

func NewTestDriver() *TestDriver {
	return &TestDriver{started: make(chan struct{}), stopped: make(chan struct{})}
}

func (td *TestDriver) ListenAndServe(_ string, h http.Handler) error {
	td.mu.Lock()
	if td.server != nil {
		td.mu.Unlock()
		return errors.New("test driver already serving")
	}
	td.server = httptest.NewServer(h)
	td.mu.Unlock()

	close(td.started)
	<-td.stopped
	return http.ErrServerClosed
}

func (td *TestDriver) Shutdown(_ context.Context) error {
	td.mu.Lock()
	defer td.mu.Unlock()
	if td.server == nil {
		return nil
	}
	td.server.Close()
	td.server = nil
	close(td.stopped)
	return nil
}

// URL waits until the driver serves and returns its base URL.
func (td *TestDriver) URL(ctx context.Context) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case <-td.started:
	}
	td.mu.Lock()
	defer td.mu.Unlock()
	if td.server == nil {
		return "", http.ErrServerClosed
	}
	return td.server.URL, nil
}

// WithDriver replaces the HTTP server driver.
func WithDriver(driver Driver) Option {
	return func(_ context.Context, s *Service) {
		s.driver = driver
	}
}

// WithHTTPHandler sets the handler serving every route other than the health check.
func WithHTTPHandler(h http.Handler) Option {
	return func(_ context.Context, s *Service) {
		s.handler = h
	}
}
