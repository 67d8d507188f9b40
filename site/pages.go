package site

import (
	"context"
	"errors"
	"html/template"
	"io"
	"net/http"

	"github.com/a-h/templ"

	"github.com/renovo-atelier/atelier/basket"
	"github.com/renovo-atelier/atelier/localization"
	"github.com/renovo-atelier/atelier/seo"
	"github.com/renovo-atelier/atelier/widgets/langswitch"
	"github.com/renovo-atelier/atelier/widgets/productcard"
)

type headerView struct {
	Color       langswitch.Color
	Brand       string
	Home        string
	BasketHref  string
	BasketLabel string
	Count       int
	Switcher    template.HTML
}

type homeView struct {
	Header          headerView
	Title           string
	Subtitle        string
	ServicesHeading string
	Cards           []template.HTML
}

type basketItemView struct {
	ID    string
	Key   string
	Name  string
	Price string
	Image string
}

type basketView struct {
	Header        headerView
	Title         string
	Items         []basketItemView
	EmptyLabel    string
	RemoveLabel   string
	RemoveURL     string
	ClearLabel    string
	ClearURL      string
	ContinueLabel string
	ContinueHref  string
}

// pageRequest is what a page reads from the request before it renders.
type pageRequest struct {
	path  string
	open  bool
	items []basket.Item
}

func (s *Site) readPage(r *http.Request) (pageRequest, error) {
	page := pageRequest{path: r.URL.Path, open: langswitch.MenuOpen(r)}
	b, ok := s.opts.Sessions.Lookup(r)
	if !ok {
		return page, nil
	}
	items, err := b.Items(r.Context())
	if err != nil {
		return page, err
	}
	page.items = items
	return page, nil
}

func (s *Site) header(ctx context.Context, t *localization.Translator, page pageRequest, color langswitch.Color) (headerView, error) {
	locale := t.Locale()
	label, err := t.Namespace("Basket").T("title")
	if err != nil {
		return headerView{}, err
	}
	switcher, err := templ.ToGoHTML(ctx, s.switcher.Switcher(langswitch.Props{
		Path:  page.path,
		Open:  page.open,
		Color: color,
	}))
	if err != nil {
		return headerView{}, err
	}
	return headerView{
		Color:       color,
		Brand:       seo.BusinessName,
		Home:        s.opts.Routing.Localize(locale, "/"),
		BasketHref:  s.opts.Routing.Localize(locale, "/basket"),
		BasketLabel: label,
		Count:       len(page.items),
		Switcher:    switcher,
	}, nil
}

// home renders the hero and one card per catalog product. Cards render
// uninitialized and load their basket state once mounted.
func (s *Site) home(r *http.Request) (templ.Component, error) {
	page, err := s.readPage(r)
	if err != nil {
		return nil, err
	}

	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		t, err := localization.FromContext(ctx, "HomePage")
		if err != nil {
			return err
		}
		view := homeView{}
		if view.Header, err = s.header(ctx, t, page, langswitch.White); err != nil {
			return err
		}
		if view.Title, err = t.T("title"); err != nil {
			return err
		}
		if view.Subtitle, err = t.T("subtitle"); err != nil {
			return err
		}
		if view.ServicesHeading, err = t.T("servicesHeading"); err != nil {
			return err
		}

		for _, product := range s.opts.Catalog.Products() {
			card, cardErr := templ.ToGoHTML(ctx, s.cards.Card(productcard.FromProduct(product), productcard.PhaseUninitialized, false))
			if cardErr != nil {
				return cardErr
			}
			view.Cards = append(view.Cards, card)
		}
		return templates.ExecuteTemplate(w, "home", view)
	}), nil
}

func (s *Site) basketPage(r *http.Request) (templ.Component, error) {
	page, err := s.readPage(r)
	if err != nil {
		return nil, err
	}

	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		t, err := localization.FromContext(ctx, "Basket")
		if err != nil {
			return err
		}
		locale := t.Locale()
		view := basketView{
			RemoveURL:    s.opts.Routing.Localize(locale, "/basket/remove"),
			ClearURL:     s.opts.Routing.Localize(locale, "/basket/clear"),
			ContinueHref: s.opts.Routing.Localize(locale, "/"),
		}
		if view.Header, err = s.header(ctx, t, page, langswitch.Black); err != nil {
			return err
		}
		for key, target := range map[string]*string{
			"title":    &view.Title,
			"empty":    &view.EmptyLabel,
			"remove":   &view.RemoveLabel,
			"clear":    &view.ClearLabel,
			"continue": &view.ContinueLabel,
		} {
			if *target, err = t.T(key); err != nil {
				return err
			}
		}

		services := t.Namespace("OurServices")
		for _, item := range page.items {
			name, nameErr := services.T(item.Title)
			if errors.Is(nameErr, localization.ErrMessageNotFound) {
				// Items outlive catalog changes.
				name, nameErr = item.Title, nil
			}
			if nameErr != nil {
				return nameErr
			}
			view.Items = append(view.Items, basketItemView{
				ID:    "basket-" + productcard.ElementID(item.ID),
				Key:   item.ID,
				Name:  name,
				Price: item.Price,
				Image: item.Image,
			})
		}
		return templates.ExecuteTemplate(w, "basket", view)
	}), nil
}
