// Package langswitch renders the header language menu and applies a
// visitor's language choice.
package langswitch

import (
	"context"
	"embed"
	"html/template"
	"io"
	"net/http"
	"slices"

	"github.com/a-h/templ"
	"github.com/pitabwire/util"

	"github.com/renovo-atelier/atelier/flash"
	"github.com/renovo-atelier/atelier/localization"
	"github.com/renovo-atelier/atelier/routing"
)

const (
	// MenuParam is the query parameter that renders the menu open.
	MenuParam = "menu"
	menuOpen  = "open"
)

//go:embed templates/*.html
var templateFiles embed.FS

var templates = template.Must(template.ParseFS(templateFiles, "templates/*.html"))

// Language is one entry of the menu.
type Language struct {
	Code routing.Locale
	Name string
	Flag string
}

var languages = []Language{
	{Code: routing.En, Name: "English", Flag: "En"},
	{Code: routing.Ru, Name: "Русский", Flag: "Ru"},
	{Code: routing.Pl, Name: "Polski", Flag: "Pl"},
	{Code: routing.Ua, Name: "Українська", Flag: "Ua"},
}

// Languages lists the menu entries in display order.
func Languages() []Language {
	return slices.Clone(languages)
}

// Color is the icon and text variant matching the header background.
type Color string

const (
	White Color = "white"
	Black Color = "black"
)

func (c Color) normalize() Color {
	if c == Black {
		return Black
	}
	return White
}

// Switcher is the menu state of one render.
type Switcher struct {
	Active routing.Locale
	Open   bool
}

// Toggle opens a closed menu and closes an open one.
func (s Switcher) Toggle() Switcher {
	s.Open = !s.Open
	return s
}

// Dismiss closes the menu, as a click outside of it does.
func (s Switcher) Dismiss() Switcher {
	s.Open = false
	return s
}

// Select closes the menu and reports whether code switches the language.
// Choosing the active language changes nothing else.
func (s Switcher) Select(code routing.Locale) (Switcher, bool) {
	s.Open = false
	if code == s.Active {
		return s, false
	}
	s.Active = code
	return s, true
}

// MenuOpen reports whether r asks for the menu rendered open.
func MenuOpen(r *http.Request) bool {
	return r.URL.Query().Get(MenuParam) == menuOpen
}

// Props configure one rendered switcher.
type Props struct {
	// Path is the current page path, locale included.
	Path  string
	Open  bool
	Color Color
	Class string
}

type optionView struct {
	Code   string
	Name   string
	Active bool
}

type switcherView struct {
	Class      string
	Color      Color
	Label      string
	CloseLabel string
	Flag       string
	Open       bool
	ToggleHref string
	CloseHref  string
	Action     string
	Path       string
	Options    []optionView
}

// Widget renders switchers and serves language selection.
type Widget struct {
	rt routing.Routing
}

func New(rt routing.Routing) *Widget {
	return &Widget{rt: rt}
}

// Switcher renders the menu for the locale of the translation scope on
// the render context.
func (wd *Widget) Switcher(props Props) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		t, err := localization.FromContext(ctx, "LanguageSwitcher")
		if err != nil {
			return err
		}
		view, err := wd.view(t, props)
		if err != nil {
			return err
		}
		return templates.ExecuteTemplate(w, "switcher", view)
	})
}

func (wd *Widget) view(t *localization.Translator, props Props) (switcherView, error) {
	state := Switcher{Active: t.Locale(), Open: props.Open}

	label, err := t.T("language")
	if err != nil {
		return switcherView{}, err
	}
	closeLabel, err := t.T("close")
	if err != nil {
		return switcherView{}, err
	}

	path := localPath(props.Path)
	view := switcherView{
		Class:      props.Class,
		Color:      props.Color.normalize(),
		Label:      label,
		CloseLabel: closeLabel,
		Open:       state.Open,
		ToggleHref: wd.href(path, state.Toggle()),
		CloseHref:  wd.href(path, state.Dismiss()),
		Action:     wd.rt.Localize(state.Active, "/language"),
		Path:       path,
	}
	for _, lang := range languages {
		active := lang.Code == state.Active
		if active {
			view.Flag = lang.Flag
		}
		view.Options = append(view.Options, optionView{Code: lang.Code.String(), Name: lang.Name, Active: active})
	}
	return view, nil
}

func (wd *Widget) href(path string, state Switcher) string {
	href := wd.rt.Localize(state.Active, path)
	if state.Open {
		return href + "?" + MenuParam + "=" + menuOpen
	}
	return href
}

// Select applies the posted "locale" choice and sends the visitor back to
// the posted "path". A new language is stored in the locale cookie and the
// path rewritten under it; the active language leaves both untouched.
func (wd *Widget) Select() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		active, ok := wd.rt.HasLocale(r.PathValue("locale"))
		if !ok {
			http.NotFound(w, r)
			return
		}
		if err := r.ParseForm(); err != nil {
			http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
			return
		}
		code, ok := wd.rt.HasLocale(r.PostFormValue("locale"))
		if !ok {
			http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
			return
		}

		state, changed := Switcher{Active: active, Open: true}.Select(code)
		path := localPath(r.PostFormValue("path"))
		if changed {
			http.SetCookie(w, routing.LocaleCookie(state.Active))
			util.Log(r.Context()).WithFields(map[string]any{
				"from": active.String(),
				"to":   state.Active.String(),
			}).Debug("language switched")
		}
		http.Redirect(w, r, wd.rt.Localize(state.Active, path), http.StatusSeeOther)
	})
}

func localPath(path string) string {
	if !flash.IsLocalPath(path) {
		return "/"
	}
	return path
}
