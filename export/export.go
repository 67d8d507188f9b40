// Package export pre-renders every locale page and the site assets into a
// blob bucket for static hosting.
package export

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"mime"
	"net/http"
	"net/http/httptest"
	"path"
	"slices"
	"strings"
	"sync"

	"github.com/pitabwire/util"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gocloud.dev/blob"
	_ "gocloud.dev/blob/fileblob" // file:// buckets
	_ "gocloud.dev/blob/memblob"  // mem:// buckets

	"github.com/renovo-atelier/atelier/routing"
	"github.com/renovo-atelier/atelier/telemetry"
	"github.com/renovo-atelier/atelier/workerpool"
)

const notFoundKey = "404.html"

// ErrPageStatus is returned for a page answering with an unexpected status.
var ErrPageStatus = errors.New("unexpected page status")

// DefaultPages are the locale-relative pages exported for every locale.
var DefaultPages = []string{"/", "/basket"}

var tracer = telemetry.NewTracer("github.com/renovo-atelier/atelier/export")

// OpenBucket opens the bucket at a gocloud URL such as
// "file:///var/www/atelier" or "mem://".
func OpenBucket(ctx context.Context, url string) (*blob.Bucket, error) {
	bucket, err := blob.OpenBucket(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("open export bucket %q: %w", url, err)
	}
	return bucket, nil
}

type Options struct {
	Handler http.Handler
	Routing routing.Routing
	Assets  fs.FS
	Pages   []string
	// Concurrency bounds the files rendered and written at once.
	Concurrency int
}

// Exporter renders pages through the site handler.
type Exporter struct {
	opts Options
}

func New(opts Options) *Exporter {
	if len(opts.Pages) == 0 {
		opts.Pages = DefaultPages
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}
	return &Exporter{opts: opts}
}

// Key is the bucket key a localized page path is written to:
// "/en/" becomes "en/index.html" and "/en/basket" "en/basket/index.html".
func Key(pagePath string) string {
	trimmed := strings.Trim(pagePath, "/")
	if trimmed == "" {
		return "index.html"
	}
	return trimmed + "/index.html"
}

type task struct {
	key    string
	render func(ctx context.Context) ([]byte, string, error)
}

// Export writes one file per locale page, a not-found page and every
// asset. It returns the written keys in order.
func (e *Exporter) Export(ctx context.Context, bucket *blob.Bucket) ([]string, error) {
	pool, err := workerpool.New(ctx, workerpool.WithSinglePoolCapacity(e.opts.Concurrency))
	if err != nil {
		return nil, err
	}
	defer pool.Shutdown()

	tasks, err := e.tasks()
	if err != nil {
		return nil, err
	}

	var (
		mu      sync.Mutex
		written []string
	)
	group := workerpool.NewGroup(pool)
	for _, t := range tasks {
		group.Go(ctx, func(ctx context.Context) (err error) {
			ctx, span := tracer.Start(ctx, "export.file", trace.WithAttributes(attribute.String("export.key", t.key)))
			defer func() { tracer.End(ctx, span, err) }()

			body, contentType, err := t.render(ctx)
			if err != nil {
				return fmt.Errorf("export %s: %w", t.key, err)
			}
			if err = bucket.WriteAll(ctx, t.key, body, &blob.WriterOptions{ContentType: contentType}); err != nil {
				return fmt.Errorf("write %s: %w", t.key, err)
			}
			mu.Lock()
			written = append(written, t.key)
			mu.Unlock()
			return nil
		})
	}

	err = group.Wait()
	slices.Sort(written)
	util.Log(ctx).WithFields(map[string]any{
		"files":  len(written),
		"failed": err != nil,
	}).Info("static export finished")
	return written, err
}

func (e *Exporter) tasks() ([]task, error) {
	rt := e.opts.Routing
	var tasks []task
	for _, params := range rt.StaticParams() {
		for _, page := range e.opts.Pages {
			pagePath := rt.Localize(params.Locale, page)
			tasks = append(tasks, task{key: Key(pagePath), render: e.page(pagePath, http.StatusOK)})
		}
	}
	tasks = append(tasks, task{
		key:    notFoundKey,
		render: e.page(rt.Localize(rt.DefaultLocale, "/"+notFoundKey), http.StatusNotFound),
	})

	if e.opts.Assets == nil {
		return tasks, nil
	}
	err := fs.WalkDir(e.opts.Assets, ".", func(name string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		tasks = append(tasks, task{key: name, render: e.asset(name)})
		return nil
	})
	return tasks, err
}

func (e *Exporter) page(pagePath string, status int) func(ctx context.Context) ([]byte, string, error) {
	return func(ctx context.Context) ([]byte, string, error) {
		req := httptest.NewRequestWithContext(ctx, http.MethodGet, pagePath, nil)
		rec := httptest.NewRecorder()
		e.opts.Handler.ServeHTTP(rec, req)
		if rec.Code != status {
			return nil, "", fmt.Errorf("%w: %s answered %d", ErrPageStatus, pagePath, rec.Code)
		}
		return rec.Body.Bytes(), rec.Header().Get("Content-Type"), nil
	}
}

func (e *Exporter) asset(name string) func(ctx context.Context) ([]byte, string, error) {
	return func(_ context.Context) ([]byte, string, error) {
		body, err := fs.ReadFile(e.opts.Assets, name)
		if err != nil {
			return nil, "", err
		}
		return body, mime.TypeByExtension(path.Ext(name)), nil
	}
}
