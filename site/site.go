// Package site composes the pages, widgets and assets of the atelier into
// one route table.
package site

import (
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"path"

	"github.com/renovo-atelier/atelier"
	"github.com/renovo-atelier/atelier/basket"
	"github.com/renovo-atelier/atelier/catalog"
	"github.com/renovo-atelier/atelier/layout"
	"github.com/renovo-atelier/atelier/localization"
	lhttp "github.com/renovo-atelier/atelier/localization/interceptors/http"
	"github.com/renovo-atelier/atelier/ratelimiter"
	"github.com/renovo-atelier/atelier/routing"
	"github.com/renovo-atelier/atelier/widgets/langswitch"
	"github.com/renovo-atelier/atelier/widgets/productcard"
)

const assetCacheControl = "public, max-age=86400"

var (
	// ErrMissingManager is returned by New without a localization manager.
	ErrMissingManager = errors.New("site needs a localization manager")
	// ErrMissingSessions is returned by New without basket sessions.
	ErrMissingSessions = errors.New("site needs basket sessions")
)

//go:embed all:assets
var assetFiles embed.FS

//go:embed templates/*.html
var templateFiles embed.FS

var templates = template.Must(template.ParseFS(templateFiles, "templates/*.html"))

// Assets is the embedded asset tree. Paths mirror the URL space: the file
// "static/site.css" is served at "/static/site.css".
func Assets() fs.FS {
	assets, err := fs.Sub(assetFiles, "assets")
	if err != nil {
		panic(err)
	}
	return assets
}

type Options struct {
	Routing  routing.Routing
	Manager  localization.Manager
	Catalog  *catalog.Catalog
	Sessions *basket.Sessions
	// Limiter throttles basket mutations per client. Nil disables limiting.
	Limiter           ratelimiter.Limiter
	SiteURL           string
	EmailWidgetScript string
	HtmxScript        string
}

// Site serves every page of the atelier.
type Site struct {
	opts     Options
	layout   *layout.Layout
	cards    *productcard.Cards
	switcher *langswitch.Widget
	routes   *atelier.RouteRegistry
}

// New builds the route table. A nil catalog uses the compiled-in one and a
// zero routing the default locales.
func New(opts Options) (*Site, error) {
	if opts.Manager == nil {
		return nil, ErrMissingManager
	}
	if opts.Sessions == nil {
		return nil, ErrMissingSessions
	}
	if len(opts.Routing.Locales) == 0 {
		opts.Routing = routing.Default()
	}
	if opts.Catalog == nil {
		products, err := catalog.Default()
		if err != nil {
			return nil, err
		}
		opts.Catalog = products
	}

	s := &Site{
		opts: opts,
		layout: layout.New(layout.Options{
			Routing:           opts.Routing,
			Manager:           opts.Manager,
			SiteURL:           opts.SiteURL,
			EmailWidgetScript: opts.EmailWidgetScript,
			HtmxScript:        opts.HtmxScript,
		}),
		cards: productcard.New(productcard.Options{
			Routing:  opts.Routing,
			Catalog:  opts.Catalog,
			Sessions: opts.Sessions,
		}),
		switcher: langswitch.New(opts.Routing),
		routes:   atelier.NewRouteRegistry(),
	}

	if err := s.register(); err != nil {
		return nil, err
	}
	return s, nil
}

// Handler serves the route table.
func (s *Site) Handler() http.Handler {
	return s.routes
}

// Routes lists the registered routes.
func (s *Site) Routes() []atelier.RouteInfo {
	return s.routes.Routes()
}

// Routing is the locale configuration the site serves.
func (s *Site) Routing() routing.Routing {
	return s.opts.Routing
}

func (s *Site) register() error {
	rt := s.opts.Routing
	r := s.routes
	scoped := lhttp.LanguageHTTPMiddleware(rt, s.opts.Manager)
	limited := ratelimiter.Middleware(s.opts.Limiter)

	// Assets get literal routes; a "/static/" prefix pattern would conflict
	// with the "/{locale}/..." pages.
	if err := s.registerAssets(); err != nil {
		return err
	}

	r.Handle("GET /{$}", "locale redirect", rt.RedirectHandler())
	r.Handle("GET /basket", "locale redirect", rt.RedirectHandler())
	r.Handle("GET /{locale}", "locale root", s.localeRoot())

	r.Handle("GET /{locale}/{$}", "home", s.layout.Handler(s.home))
	r.Handle("GET /{locale}/basket", "basket", s.layout.Handler(s.basketPage))
	r.Handle("GET /{locale}/basket/card", "product card", scoped(s.cards.Fragment()))
	r.Handle("POST /{locale}/basket/toggle", "basket toggle", limited(scoped(s.cards.Toggle())))
	r.Handle("POST /{locale}/basket/remove", "basket remove", limited(scoped(s.remove())))
	r.Handle("POST /{locale}/basket/clear", "basket clear", limited(scoped(s.clear())))
	r.Handle("POST /{locale}/language", "language switch", s.switcher.Select())
	r.Handle("GET /{locale}/", "not found", s.layout.NotFound())
	return nil
}

func (s *Site) registerAssets() error {
	assets := Assets()
	return fs.WalkDir(assets, ".", func(name string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		s.routes.Handle(fmt.Sprintf("GET /%s", name), "asset", assetHandler(assets, name))
		return nil
	})
}

func assetHandler(assets fs.FS, name string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", assetCacheControl)
		http.ServeFileFS(w, r, assets, path.Clean(name))
	})
}

// localeRoot sends "/en" to "/en/". Anything else is not a page.
func (s *Site) localeRoot() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		locale, ok := s.opts.Routing.HasLocale(r.PathValue(lhttp.LocaleParam))
		if !ok {
			http.NotFound(w, r)
			return
		}
		http.Redirect(w, r, s.opts.Routing.Localize(locale, "/"), http.StatusTemporaryRedirect)
	})
}
