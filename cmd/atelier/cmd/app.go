package cmd

import (
	"context"
	"errors"
	"math"
	"strings"

	"github.com/pitabwire/util"

	"github.com/renovo-atelier/atelier"
	"github.com/renovo-atelier/atelier/basket"
	"github.com/renovo-atelier/atelier/cache"
	"github.com/renovo-atelier/atelier/config"
	"github.com/renovo-atelier/atelier/ratelimiter"
	"github.com/renovo-atelier/atelier/routing"
	"github.com/renovo-atelier/atelier/site"
	"github.com/renovo-atelier/atelier/version"
)

const basketCache = "basket"

var errNoTranslations = errors.New("translations could not be loaded")

// app is the service with the site mounted on it.
type app struct {
	svc     *atelier.Service
	site    *site.Site
	cfg     *config.ConfigurationDefault
	limiter ratelimiter.Limiter
}

func newApp(ctx context.Context) (context.Context, *app, error) {
	cfg, err := config.FromEnv[config.ConfigurationDefault]()
	if err != nil {
		return ctx, nil, err
	}
	if translationsDir != "" {
		cfg.TranslationsPath = translationsDir
	}
	if cfg.ServiceVersion == "" {
		cfg.ServiceVersion = version.Version
	}

	ctx, svc := atelier.NewServiceWithContext(ctx,
		atelier.WithConfig(&cfg),
		atelier.WithTelemetry(),
		atelier.WithTranslations(cfg.TranslationsDir()),
		atelier.WithCacheFromDSN(basketCache, cache.DSN(cfg.GetBasketCacheURI())),
	)

	raw, _ := svc.GetRawCache(basketCache)
	ttl := cfg.GetBasketSessionTTL()
	sessions := basket.NewSessions(basket.NewStore(raw, ttl), ttl, strings.HasPrefix(cfg.SiteURL(), "https://"))

	limiter := newLimiter(ctx, svc, &cfg, raw)

	manager := svc.Localization()
	if manager == nil {
		svc.Stop(ctx)
		return ctx, nil, errNoTranslations
	}

	st, err := mountSite(ctx, svc, site.Options{
		Routing:           routing.Default(),
		Manager:           manager,
		Sessions:          sessions,
		Limiter:           limiter,
		SiteURL:           cfg.SiteURL(),
		EmailWidgetScript: cfg.EmailWidgetScript(),
		HtmxScript:        cfg.HtmxScript(),
	})
	if err != nil {
		return ctx, nil, err
	}
	return ctx, &app{svc: svc, site: st, cfg: &cfg, limiter: limiter}, nil
}

// mountSite serves the site on svc. The service is stopped when the site
// cannot be built, releasing its caches and telemetry.
func mountSite(ctx context.Context, svc *atelier.Service, opts site.Options) (*site.Site, error) {
	st, err := site.New(opts)
	if err != nil {
		svc.Stop(ctx)
		return nil, err
	}
	svc.Init(ctx, atelier.WithHTTPHandler(st.Handler()))
	return st, nil
}

// newLimiter counts basket mutations in the basket cache when that cache
// is shared between replicas, and in process token buckets otherwise.
func newLimiter(
	ctx context.Context,
	svc *atelier.Service,
	cfg *config.ConfigurationDefault,
	raw cache.RawCache,
) ratelimiter.Limiter {
	rps, burst := cfg.GetRateLimit()

	if rps > 0 && !cache.DSN(cfg.GetBasketCacheURI()).IsMem() {
		window := ratelimiter.DefaultWindowConfig()
		window.MaxPerWindow = max(int(math.Ceil(rps*window.Window.Seconds())), burst)
		window.FailOpen = true
		limiter, err := ratelimiter.NewWindowLimiter(raw, window)
		if err == nil {
			return limiter
		}
		util.Log(ctx).WithError(err).Warn("basket cache keeps no counters, limiting per process")
	}

	keyed := ratelimiter.NewKeyedLimiter(&ratelimiter.Config{RequestsPerSecond: rps, BurstSize: burst})
	svc.AddCleanupMethod(func(context.Context) { _ = keyed.Close() })
	return keyed
}
