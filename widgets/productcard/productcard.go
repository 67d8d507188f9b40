// Package productcard renders a service card whose button puts the service
// in the visitor's basket or takes it out again.
package productcard

import (
	"bytes"
	"context"
	"embed"
	"html/template"
	"io"
	"net/http"
	"net/url"
	"strings"
	"unicode"

	"github.com/a-h/templ"
	"github.com/pitabwire/util"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/renovo-atelier/atelier/basket"
	"github.com/renovo-atelier/atelier/catalog"
	"github.com/renovo-atelier/atelier/flash"
	"github.com/renovo-atelier/atelier/localization"
	"github.com/renovo-atelier/atelier/routing"
	"github.com/renovo-atelier/atelier/telemetry"
)

const (
	namespace = "OurServices"

	// AddedKey is the message shown on the card and the toast once a
	// service is in the basket.
	AddedKey = namespace + ".addedToBasket"
	// GoToBasketKey labels the toast action leading to the basket page.
	GoToBasketKey = namespace + ".goToBasket"
)

//go:embed templates/*.html
var templateFiles embed.FS

var templates = template.Must(template.ParseFS(templateFiles, "templates/*.html"))

var toggles = telemetry.DimensionlessMeasure(
	"github.com/renovo-atelier/atelier/widgets/productcard", "/toggles", "Basket toggles by service and outcome")

// Phase is the render phase of a card.
type Phase int

const (
	// PhaseUninitialized is the first render, before basket contents are
	// known. The card always offers to add the service.
	PhaseUninitialized Phase = iota
	// PhaseReady renders the card against the basket contents.
	PhaseReady
)

func (p Phase) String() string {
	if p == PhaseReady {
		return "ready"
	}
	return "uninitialized"
}

// InBasket reports whether a card in phase p shows the in-basket state for
// a basket that does or does not contain its service.
func (p Phase) InBasket(contains bool) bool {
	return p == PhaseReady && contains
}

// Props are the inputs of one card. Title is both the OurServices message
// key and the basket identity.
type Props struct {
	Image string
	Title string
	Price string
}

// FromProduct builds card props for a catalog product.
func FromProduct(p catalog.Product) Props {
	return Props{Image: p.Image, Title: p.Title, Price: p.Price}
}

// Item is the basket entry the card adds.
func (p Props) Item() basket.Item {
	return basket.Item{ID: p.Title, Title: p.Title, Price: p.Price, Image: p.Image}
}

type Options struct {
	Routing  routing.Routing
	Catalog  *catalog.Catalog
	Sessions *basket.Sessions
}

// Cards renders product cards and serves their basket interactions.
type Cards struct {
	opts Options
}

func New(opts Options) *Cards {
	return &Cards{opts: opts}
}

type cardView struct {
	ID          string
	Image       string
	Title       string
	Name        string
	Label       string
	InBasket    bool
	Pending     bool
	FragmentURL string
	ToggleURL   string
	Back        string
}

type toastView struct {
	Kind       flash.Kind
	Text       string
	ActionText string
	ActionHref string
}

// Card renders one card. The render context must carry a translation scope.
// contains is ignored in PhaseUninitialized; the card then asks for its
// ready render as soon as it is loaded.
func (c *Cards) Card(props Props, phase Phase, contains bool) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		t, err := localization.FromContext(ctx, namespace)
		if err != nil {
			return err
		}
		view, err := c.view(t, props, phase, contains)
		if err != nil {
			return err
		}
		return templates.ExecuteTemplate(w, "card", view)
	})
}

func (c *Cards) view(t *localization.Translator, props Props, phase Phase, contains bool) (cardView, error) {
	locale := t.Locale()
	inBasket := phase.InBasket(contains)

	name, err := t.T(props.Title)
	if err != nil {
		return cardView{}, err
	}

	var label string
	if inBasket {
		label, err = t.T("addedToBasket")
	} else {
		label, err = t.TWith("fromPrice", map[string]any{"Price": props.Price})
	}
	if err != nil {
		return cardView{}, err
	}

	return cardView{
		ID:          ElementID(props.Title),
		Image:       props.Image,
		Title:       props.Title,
		Name:        name,
		Label:       label,
		InBasket:    inBasket,
		Pending:     phase == PhaseUninitialized,
		FragmentURL: c.opts.Routing.Localize(locale, "/basket/card") + "?title=" + url.QueryEscape(props.Title),
		ToggleURL:   c.opts.Routing.Localize(locale, "/basket/toggle"),
		Back:        c.opts.Routing.Localize(locale, "/"),
	}, nil
}

// ElementID is the DOM id of the card for title.
func ElementID(title string) string {
	var b strings.Builder
	b.WriteString("card-")
	for _, r := range strings.ToLower(title) {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			b.WriteRune(r)
		} else {
			b.WriteByte('-')
		}
	}
	return b.String()
}

// Notice is the confirmation raised when a service is added.
func (c *Cards) Notice(locale routing.Locale) flash.Notice {
	return flash.Success(AddedKey).WithAction(GoToBasketKey, c.opts.Routing.Localize(locale, "/basket"))
}

// Fragment serves the ready card of the "title" query parameter. It never
// starts a basket session.
func (c *Cards) Fragment() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		product, ok := c.opts.Catalog.Find(r.URL.Query().Get("title"))
		if !ok {
			http.NotFound(w, r)
			return
		}

		b, _ := c.opts.Sessions.Lookup(r)
		contains, err := b.Contains(ctx, product.Title)
		if err != nil {
			fail(ctx, w, err)
			return
		}

		c.write(ctx, w, FromProduct(product), contains, nil)
	})
}

// Toggle flips the basket membership of the posted "title". Adding raises
// the confirmation notice. htmx requests get the ready card back with the
// notice swapped in out of band; plain form posts are redirected to the
// posted "back" path and see the notice on the next page.
func (c *Cards) Toggle() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		scope, ok := localization.ScopeFromContext(ctx)
		if !ok {
			http.NotFound(w, r)
			return
		}
		if err := r.ParseForm(); err != nil {
			http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
			return
		}
		title := r.PostFormValue("title")
		if title == "" {
			http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
			return
		}
		product, ok := c.opts.Catalog.Find(title)
		if !ok {
			http.NotFound(w, r)
			return
		}

		props := FromProduct(product)
		b := c.opts.Sessions.Open(w, r)
		inBasket, err := b.Toggle(ctx, props.Item())
		if err != nil {
			fail(ctx, w, err)
			return
		}
		util.Log(ctx).WithFields(map[string]any{
			"session":   b.ID(),
			"item":      props.Title,
			"in_basket": inBasket,
		}).Debug("basket toggled")
		toggles.Add(ctx, 1, metric.WithAttributes(
			attribute.String("atelier.item", props.Title),
			attribute.Bool("atelier.in_basket", inBasket),
		))

		var notice *flash.Notice
		if inBasket {
			n := c.Notice(scope.Locale)
			notice = &n
		}

		if IsHTMX(r) {
			c.write(ctx, w, props, inBasket, notice)
			return
		}

		if notice != nil {
			flash.Write(w, r, *notice)
		}
		back := r.PostFormValue("back")
		if !flash.IsLocalPath(back) {
			back = "/"
		}
		http.Redirect(w, r, c.opts.Routing.Localize(scope.Locale, back), http.StatusSeeOther)
	})
}

func (c *Cards) write(ctx context.Context, w http.ResponseWriter, props Props, contains bool, notice *flash.Notice) {
	var buf bytes.Buffer
	if err := c.Card(props, PhaseReady, contains).Render(ctx, &buf); err != nil {
		fail(ctx, w, err)
		return
	}
	if notice != nil {
		if err := renderToast(ctx, &buf, *notice); err != nil {
			fail(ctx, w, err)
			return
		}
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

func renderToast(ctx context.Context, w io.Writer, notice flash.Notice) error {
	t, err := localization.FromContext(ctx, "")
	if err != nil {
		return err
	}
	view := toastView{Kind: notice.Kind}
	if view.Text, err = t.T(notice.Key); err != nil {
		return err
	}
	if notice.HasAction() {
		if view.ActionText, err = t.T(notice.ActionKey); err != nil {
			return err
		}
		view.ActionHref = notice.ActionHref
	}
	return templates.ExecuteTemplate(w, "toast", view)
}

// IsHTMX reports whether r was issued by htmx.
func IsHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}

func fail(ctx context.Context, w http.ResponseWriter, err error) {
	util.Log(ctx).WithError(err).Error("product card request failed")
	http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
}
