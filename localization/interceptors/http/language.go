package http

import (
	"net/http"

	"github.com/pitabwire/util"

	"github.com/renovo-atelier/atelier/localization"
	"github.com/renovo-atelier/atelier/routing"
)

// LocaleParam is the path wildcard carrying the route locale.
const LocaleParam = "locale"

// LanguageHTTPMiddleware mounts the translation scope of the route locale
// on the request context. Requests whose locale is not configured are
// answered with 404 and never reach next.
func LanguageHTTPMiddleware(rt routing.Routing, manager localization.Manager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			locale, ok := rt.HasLocale(r.PathValue(LocaleParam))
			if !ok {
				util.Log(r.Context()).WithField("path", r.URL.Path).Debug("request for unsupported locale")
				http.NotFound(w, r)
				return
			}

			ctx := localization.ToContext(r.Context(), localization.Scope{Manager: manager, Locale: locale})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
