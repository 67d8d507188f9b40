package routing

import (
	"net/http"
	"strings"
	"time"

	"golang.org/x/text/language"
)

const (
	// CookieName stores the visitor's locale choice as a detection hint.
	CookieName = "NEXT_LOCALE"
	// CookieMaxAge keeps the hint for one year.
	CookieMaxAge = 365 * 24 * time.Hour
)

// LocaleCookie builds the preference cookie written when a visitor picks a locale.
func LocaleCookie(locale Locale) *http.Cookie {
	return &http.Cookie{
		Name:     CookieName,
		Value:    locale.String(),
		Path:     "/",
		MaxAge:   int(CookieMaxAge.Seconds()),
		SameSite: http.SameSiteLaxMode,
	}
}

// Detect picks the locale for a request that carries none in its path:
// the preference cookie first, then Accept-Language, then the default.
func (r Routing) Detect(req *http.Request) Locale {
	if req == nil || !r.LocaleDetection {
		return r.DefaultLocale
	}

	if cookie, err := req.Cookie(CookieName); err == nil {
		if locale, ok := r.HasLocale(strings.TrimSpace(cookie.Value)); ok {
			return locale
		}
	}

	accept := strings.TrimSpace(req.Header.Get("Accept-Language"))
	if accept == "" {
		return r.DefaultLocale
	}
	tags, _, err := language.ParseAcceptLanguage(accept)
	if err != nil || len(tags) == 0 {
		return r.DefaultLocale
	}
	return r.matchTags(tags)
}

func (r Routing) matchTags(tags []language.Tag) Locale {
	supported := r.Tags()
	_, index, confidence := language.NewMatcher(supported).Match(tags...)
	if confidence == language.No {
		return r.DefaultLocale
	}
	matched := supported[index]
	for _, locale := range r.Locales {
		if locale.Tag() == matched {
			return locale
		}
	}
	return r.DefaultLocale
}

// RedirectHandler sends locale-less page requests to the same page under
// the detected locale.
func (r Routing) RedirectHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		target := r.Localize(r.Detect(req), req.URL.Path)
		if req.URL.RawQuery != "" {
			target += "?" + req.URL.RawQuery
		}
		http.Redirect(w, req, target, http.StatusTemporaryRedirect)
	})
}
