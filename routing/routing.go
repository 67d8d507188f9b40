// Package routing declares the locales the site is served in and how a
// request path maps onto them.
package routing

import (
	"slices"
	"strings"

	"golang.org/x/text/language"
)

// Locale is a supported route locale code.
type Locale string

const (
	En Locale = "en"
	Ru Locale = "ru"
	Pl Locale = "pl"
	Ua Locale = "ua"
)

// String returns the route code of the locale.
func (l Locale) String() string {
	return string(l)
}

// Tag returns the BCP 47 language tag used for translations and
// Accept-Language matching. The route code "ua" is Ukrainian ("uk").
func (l Locale) Tag() language.Tag {
	switch l {
	case Ru:
		return language.Russian
	case Pl:
		return language.Polish
	case Ua:
		return language.Ukrainian
	default:
		return language.English
	}
}

// PrefixPolicy controls whether page paths carry the locale segment.
type PrefixPolicy string

const (
	// PrefixAlways keeps the locale segment on every path, default locale included.
	PrefixAlways PrefixPolicy = "always"
	// PrefixAsNeeded omits the segment for the default locale.
	PrefixAsNeeded PrefixPolicy = "as-needed"
)

// Routing is the locale configuration consumed by the path rewriting layer.
type Routing struct {
	Locales         []Locale
	DefaultLocale   Locale
	LocaleDetection bool
	LocalePrefix    PrefixPolicy
}

// Default returns the site routing: four locales in display order,
// English as default, browser detection on and an explicit prefix on every path.
func Default() Routing {
	return Routing{
		Locales:         []Locale{En, Ru, Pl, Ua},
		DefaultLocale:   En,
		LocaleDetection: true,
		LocalePrefix:    PrefixAlways,
	}
}

// HasLocale reports whether value is one of the configured locales.
// Matching is exact: "EN" or " en" are not locales.
func (r Routing) HasLocale(value string) (Locale, bool) {
	candidate := Locale(value)
	if slices.Contains(r.Locales, candidate) {
		return candidate, true
	}
	return "", false
}

// Params is the route parameter set used to pre-render one locale.
type Params struct {
	Locale Locale
}

// StaticParams lists one parameter set per locale for static generation.
func (r Routing) StaticParams() []Params {
	params := make([]Params, 0, len(r.Locales))
	for _, locale := range r.Locales {
		params = append(params, Params{Locale: locale})
	}
	return params
}

// Tags returns the language tags of the configured locales, default first.
func (r Routing) Tags() []language.Tag {
	tags := make([]language.Tag, 0, len(r.Locales))
	tags = append(tags, r.DefaultLocale.Tag())
	for _, locale := range r.Locales {
		if locale == r.DefaultLocale {
			continue
		}
		tags = append(tags, locale.Tag())
	}
	return tags
}

// StripLocale splits a leading locale segment off path. The returned rest
// always starts with "/". ok is false when the first segment is not a
// configured locale, in which case rest is the cleaned input path.
func (r Routing) StripLocale(path string) (Locale, string, bool) {
	path = "/" + strings.TrimLeft(path, "/")
	segment, rest, _ := strings.Cut(strings.TrimPrefix(path, "/"), "/")
	locale, ok := r.HasLocale(segment)
	if !ok {
		return "", path, false
	}
	return locale, "/" + rest, true
}

// Localize rewrites a locale-less path under locale. Paths that already
// carry a locale have it replaced.
func (r Routing) Localize(locale Locale, path string) string {
	_, rest, _ := r.StripLocale(path)
	if r.LocalePrefix == PrefixAsNeeded && locale == r.DefaultLocale {
		return rest
	}
	if rest == "/" {
		return "/" + locale.String() + "/"
	}
	return "/" + locale.String() + rest
}
