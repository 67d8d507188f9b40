// Package layout renders the locale shell every page is served in: the
// html element, SEO head, structured data, third-party scripts, the
// pending confirmation toast and the page content.
package layout

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io"
	"net/http"
	"strings"

	"github.com/a-h/templ"
	"github.com/pitabwire/util"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/renovo-atelier/atelier/flash"
	"github.com/renovo-atelier/atelier/localization"
	"github.com/renovo-atelier/atelier/routing"
	"github.com/renovo-atelier/atelier/seo"
)

const tracerName = "github.com/renovo-atelier/atelier/layout"

// ErrNotFound is returned for a path segment that is not a configured locale.
// Nothing has been written when it is returned.
var ErrNotFound = errors.New("page not found")

//go:embed templates/*.html
var templateFiles embed.FS

var templates = template.Must(template.ParseFS(templateFiles, "templates/*.html"))

// Options configures a Layout.
type Options struct {
	Routing           routing.Routing
	Manager           localization.Manager
	SiteURL           string
	EmailWidgetScript string
	HtmxScript        string
}

// Layout wraps page content in the locale shell.
type Layout struct {
	opts   Options
	tracer trace.Tracer
}

func New(opts Options) *Layout {
	opts.SiteURL = strings.TrimRight(opts.SiteURL, "/")
	return &Layout{opts: opts, tracer: otel.Tracer(tracerName)}
}

// Routing is the locale configuration the layout validates against.
func (l *Layout) Routing() routing.Routing {
	return l.opts.Routing
}

type alternate struct {
	Lang string
	Href string
}

type noticeView struct {
	Kind       flash.Kind
	Text       string
	ActionText string
	ActionHref string
}

type shellData struct {
	Lang              string
	Meta              seo.Metadata
	Keywords          string
	Robots            string
	GoogleBot         string
	Alternates        []alternate
	JSONLD            template.JS
	EmailWidgetScript string
	HtmxScript        string
	Notice            *noticeView
	Body              template.HTML
}

// Render writes the shell for the raw locale segment with children as the
// page content. children render with the locale's translation scope on
// their context. An unknown locale yields ErrNotFound; a failed message
// lookup is returned as is and nothing usable is written.
func (l *Layout) Render(ctx context.Context, w io.Writer, rawLocale string, notice *flash.Notice, children templ.Component) error {
	ctx, span := l.tracer.Start(ctx, "layout.render", trace.WithAttributes(attribute.String("atelier.locale", rawLocale)))
	defer span.End()

	err := l.render(ctx, w, rawLocale, notice, children)
	if err != nil && !errors.Is(err, ErrNotFound) {
		span.RecordError(err)
		span.SetStatus(codes.Error, "layout render failed")
	}
	return err
}

func (l *Layout) render(ctx context.Context, w io.Writer, rawLocale string, notice *flash.Notice, children templ.Component) error {
	locale, ok := l.opts.Routing.HasLocale(rawLocale)
	if !ok {
		return fmt.Errorf("%w: locale %q", ErrNotFound, rawLocale)
	}

	translator, err := l.opts.Manager.Translator(ctx, locale, "Metadata")
	if err != nil {
		return fmt.Errorf("load %s messages: %w", locale, err)
	}

	meta, err := seo.GenerateMetadata(translator, l.opts.Routing, locale, l.opts.SiteURL)
	if err != nil {
		return err
	}

	structured, err := seo.MarshalJSONLD(seo.JSONLD(locale.String(), l.opts.SiteURL))
	if err != nil {
		return fmt.Errorf("encode structured data: %w", err)
	}

	ctx = localization.ToContext(ctx, localization.Scope{Manager: l.opts.Manager, Locale: locale})

	data := shellData{
		Lang:              locale.String(),
		Meta:              meta,
		Keywords:          strings.Join(meta.Keywords, ", "),
		Robots:            meta.Robots.Content(),
		GoogleBot:         meta.Robots.GoogleBot.Content(),
		Alternates:        l.alternates(meta),
		JSONLD:            template.JS(structured), //nolint:gosec // encoder output of a fixed record
		EmailWidgetScript: l.opts.EmailWidgetScript,
		HtmxScript:        l.opts.HtmxScript,
	}

	if notice != nil {
		view, noticeErr := noticeText(translator, *notice)
		if noticeErr != nil {
			return noticeErr
		}
		data.Notice = view
	}

	if children != nil {
		body, childErr := templ.ToGoHTML(ctx, children)
		if childErr != nil {
			return childErr
		}
		data.Body = body
	}

	return templates.ExecuteTemplate(w, "layout", data)
}

func (l *Layout) alternates(meta seo.Metadata) []alternate {
	out := make([]alternate, 0, len(meta.Alternates.Languages))
	for _, locale := range l.opts.Routing.Locales {
		if href, ok := meta.Alternates.Languages[locale.String()]; ok {
			out = append(out, alternate{Lang: locale.String(), Href: href})
		}
	}
	if href, ok := meta.Alternates.Languages[seo.XDefault]; ok {
		out = append(out, alternate{Lang: seo.XDefault, Href: href})
	}
	return out
}

func noticeText(translator *localization.Translator, notice flash.Notice) (*noticeView, error) {
	messages := translator.Namespace("")
	text, err := messages.T(notice.Key)
	if err != nil {
		return nil, err
	}
	view := &noticeView{Kind: notice.Kind, Text: text}
	if notice.HasAction() {
		if view.ActionText, err = messages.T(notice.ActionKey); err != nil {
			return nil, err
		}
		view.ActionHref = notice.ActionHref
	}
	return view, nil
}

// ContentFunc builds the content of a page for a request. It runs before
// the layout renders; the returned component renders inside it.
type ContentFunc func(r *http.Request) (templ.Component, error)

// Handler serves content inside the layout, taking the locale from the
// "locale" path value. Pages are buffered so a failure never leaves a
// half written document: an unknown locale is a plain 404 and any other
// error a 500.
func (l *Layout) Handler(content ContentFunc) http.Handler {
	return l.handler(http.StatusOK, content)
}

func (l *Layout) handler(status int, content ContentFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		rawLocale := r.PathValue(localeParam)
		if _, ok := l.opts.Routing.HasLocale(rawLocale); !ok {
			http.NotFound(w, r)
			return
		}

		children, err := content(r)
		if err != nil {
			l.fail(ctx, w, err)
			return
		}

		var notice *flash.Notice
		if n, ok := flash.Read(r); ok {
			notice = &n
		}

		var buf bytes.Buffer
		if err = l.Render(ctx, &buf, rawLocale, notice, children); err != nil {
			if errors.Is(err, ErrNotFound) {
				http.NotFound(w, r)
				return
			}
			l.fail(ctx, w, err)
			return
		}

		flash.Clear(w, r)
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(status)
		_, _ = buf.WriteTo(w)
	})
}

func (l *Layout) fail(ctx context.Context, w http.ResponseWriter, err error) {
	util.Log(ctx).WithError(err).Error("page render failed")
	http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
}

const localeParam = "locale"

// NotFound serves the localized not-found page for paths under a valid
// locale and a plain 404 otherwise.
func (l *Layout) NotFound() http.Handler {
	return l.handler(http.StatusNotFound, func(r *http.Request) (templ.Component, error) {
		return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
			t, err := localization.FromContext(ctx, "NotFound")
			if err != nil {
				return err
			}
			title, err := t.T("title")
			if err != nil {
				return err
			}
			description, err := t.T("description")
			if err != nil {
				return err
			}
			return templates.ExecuteTemplate(w, "not_found", map[string]string{
				"Title":       title,
				"Description": description,
				"Home":        l.opts.Routing.Localize(t.Locale(), "/"),
				"Site":        seo.BusinessName,
			})
		}), nil
	})
}
