package langswitch_test

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/renovo-atelier/atelier/localization"
	"github.com/renovo-atelier/atelier/routing"
	"github.com/renovo-atelier/atelier/widgets/langswitch"
)

func TestLanguagesAreFixed(t *testing.T) {
	want := []langswitch.Language{
		{Code: routing.En, Name: "English", Flag: "En"},
		{Code: routing.Ru, Name: "Русский", Flag: "Ru"},
		{Code: routing.Pl, Name: "Polski", Flag: "Pl"},
		{Code: routing.Ua, Name: "Українська", Flag: "Ua"},
	}
	assert.Equal(t, want, langswitch.Languages())

	langs := langswitch.Languages()
	langs[0].Name = "changed"
	assert.Equal(t, "English", langswitch.Languages()[0].Name)
}

func TestSwitcherTransitions(t *testing.T) {
	closed := langswitch.Switcher{Active: routing.Pl}
	assert.False(t, closed.Open)

	open := closed.Toggle()
	assert.True(t, open.Open)
	assert.False(t, open.Toggle().Open)
	assert.False(t, open.Dismiss().Open)
	assert.False(t, closed.Dismiss().Open)

	next, changed := open.Select(routing.Ru)
	assert.True(t, changed)
	assert.Equal(t, langswitch.Switcher{Active: routing.Ru}, next)

	same, changed := open.Select(routing.Pl)
	assert.False(t, changed)
	assert.Equal(t, langswitch.Switcher{Active: routing.Pl}, same)
}

func render(t *testing.T, locale routing.Locale, props langswitch.Props) *goquery.Selection {
	t.Helper()
	manager, err := localization.NewManager(nil)
	require.NoError(t, err)
	ctx := localization.ToContext(context.Background(), localization.Scope{Manager: manager, Locale: locale})

	var buf bytes.Buffer
	require.NoError(t, langswitch.New(routing.Default()).Switcher(props).Render(ctx, &buf))
	doc, err := goquery.NewDocumentFromReader(&buf)
	require.NoError(t, err)
	return doc.Find(".language-switcher")
}

func TestClosedSwitcher(t *testing.T) {
	sw := render(t, routing.Ru, langswitch.Props{Path: "/ru/basket", Color: langswitch.Black})

	toggle := sw.Find("a.language-switcher-toggle")
	href, _ := toggle.Attr("href")
	assert.Equal(t, "/ru/basket?menu=open", href)
	label, _ := toggle.Attr("aria-label")
	assert.Equal(t, "Язык", label)
	assert.Equal(t, "Ru", sw.Find(".language-switcher-flag").Text())

	var icons []string
	sw.Find("img").Each(func(_ int, img *goquery.Selection) {
		src, _ := img.Attr("src")
		icons = append(icons, src)
	})
	assert.Equal(t, []string{"/header/global-black.svg", "/arrow-down-black.svg"}, icons)

	assert.Zero(t, sw.Find("form").Length())
	assert.Zero(t, sw.Find(".language-switcher-overlay").Length())
}

func TestOpenSwitcher(t *testing.T) {
	sw := render(t, routing.Pl, langswitch.Props{Path: "/pl/", Open: true, Color: "purple"})

	toggle, _ := sw.Find("a.language-switcher-toggle").Attr("href")
	assert.Equal(t, "/pl/", toggle)
	assert.True(t, sw.Find(".language-switcher-arrow").HasClass("is-open"))
	icon, _ := sw.Find("img").First().Attr("src")
	assert.Equal(t, "/header/global-white.svg", icon)

	form := sw.Find("form.language-switcher-menu")
	action, _ := form.Attr("action")
	assert.Equal(t, "/pl/language", action)
	path, _ := form.Find(`input[name="path"]`).Attr("value")
	assert.Equal(t, "/pl/", path)

	buttons := form.Find("button")
	require.Equal(t, 4, buttons.Length())

	var choices []string
	form.Find(`button[name="locale"]`).Each(func(_ int, b *goquery.Selection) {
		value, _ := b.Attr("value")
		choices = append(choices, value)
	})
	assert.Equal(t, []string{"en", "ru", "ua"}, choices)

	active := form.Find("button.is-active")
	assert.Equal(t, "Polski", strings.TrimSpace(active.Find("span").Text()))
	_, disabled := active.Attr("disabled")
	assert.True(t, disabled)
	assert.Equal(t, 1, active.Find("svg").Length())

	overlay := sw.Find("a.language-switcher-overlay")
	closeHref, _ := overlay.Attr("href")
	assert.Equal(t, "/pl/", closeHref)
	closeLabel, _ := overlay.Attr("aria-label")
	assert.Equal(t, "Zamknij menu języków", closeLabel)
}

func TestForeignPathRendersHome(t *testing.T) {
	sw := render(t, routing.En, langswitch.Props{Path: "//evil.example/x"})
	href, _ := sw.Find("a.language-switcher-toggle").Attr("href")
	assert.Equal(t, "/en/?menu=open", href)
}

func TestSwitcherNeedsAScope(t *testing.T) {
	var buf bytes.Buffer
	err := langswitch.New(routing.Default()).Switcher(langswitch.Props{}).Render(context.Background(), &buf)
	require.ErrorIs(t, err, localization.ErrNoScope)
}

func TestMenuOpen(t *testing.T) {
	assert.True(t, langswitch.MenuOpen(httptest.NewRequest(http.MethodGet, "/en/?menu=open", nil)))
	assert.False(t, langswitch.MenuOpen(httptest.NewRequest(http.MethodGet, "/en/?menu=1", nil)))
	assert.False(t, langswitch.MenuOpen(httptest.NewRequest(http.MethodGet, "/en/", nil)))
}

func TestSelect(t *testing.T) {
	mux := http.NewServeMux()
	mux.Handle("POST /{locale}/language", langswitch.New(routing.Default()).Select())

	testCases := []struct {
		name     string
		path     string
		form     url.Values
		status   int
		location string
		cookie   string
	}{
		{
			name:     "switch keeps the page",
			path:     "/en/language",
			form:     url.Values{"locale": {"ua"}, "path": {"/en/basket"}},
			status:   http.StatusSeeOther,
			location: "/ua/basket",
			cookie:   "ua",
		},
		{
			name:     "active language is a no-op",
			path:     "/pl/language",
			form:     url.Values{"locale": {"pl"}, "path": {"/pl/basket"}},
			status:   http.StatusSeeOther,
			location: "/pl/basket",
		},
		{
			name:     "foreign path goes home",
			path:     "/ru/language",
			form:     url.Values{"locale": {"en"}, "path": {"//evil.example/"}},
			status:   http.StatusSeeOther,
			location: "/en/",
			cookie:   "en",
		},
		{
			name:   "unknown language",
			path:   "/en/language",
			form:   url.Values{"locale": {"de"}, "path": {"/en/"}},
			status: http.StatusBadRequest,
		},
		{
			name:   "unknown route locale",
			path:   "/de/language",
			form:   url.Values{"locale": {"en"}, "path": {"/"}},
			status: http.StatusNotFound,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, tc.path, strings.NewReader(tc.form.Encode()))
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, req)

			assert.Equal(t, tc.status, rec.Code)
			if tc.location != "" {
				assert.Equal(t, tc.location, rec.Header().Get("Location"))
			}

			cookies := rec.Result().Cookies()
			if tc.cookie == "" {
				assert.Empty(t, cookies)
				return
			}
			require.Len(t, cookies, 1)
			assert.Equal(t, routing.CookieName, cookies[0].Name)
			assert.Equal(t, tc.cookie, cookies[0].Value)
			assert.Equal(t, "/", cookies[0].Path)
			assert.Equal(t, 31536000, cookies[0].MaxAge)
			assert.Equal(t, http.SameSiteLaxMode, cookies[0].SameSite)
		})
	}
}
