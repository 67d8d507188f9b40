package productcard_test

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/suite"

	"github.com/renovo-atelier/atelier/basket"
	"github.com/renovo-atelier/atelier/cache"
	"github.com/renovo-atelier/atelier/catalog"
	"github.com/renovo-atelier/atelier/flash"
	"github.com/renovo-atelier/atelier/localization"
	lhttp "github.com/renovo-atelier/atelier/localization/interceptors/http"
	"github.com/renovo-atelier/atelier/routing"
	"github.com/renovo-atelier/atelier/widgets/productcard"
)

type ProductCardSuite struct {
	suite.Suite
	manager  localization.Manager
	raw      cache.RawCache
	sessions *basket.Sessions
	cards    *productcard.Cards
	mux      *http.ServeMux
}

func TestProductCardSuite(t *testing.T) {
	suite.Run(t, new(ProductCardSuite))
}

func (s *ProductCardSuite) SetupSuite() {
	manager, err := localization.NewManager(nil)
	s.Require().NoError(err)
	s.manager = manager
}

func (s *ProductCardSuite) SetupTest() {
	products, err := catalog.Default()
	s.Require().NoError(err)

	s.raw = cache.NewInMemoryCache()
	s.sessions = basket.NewSessions(basket.NewStore(s.raw, time.Hour), time.Hour, false)
	s.cards = productcard.New(productcard.Options{
		Routing:  routing.Default(),
		Catalog:  products,
		Sessions: s.sessions,
	})

	scoped := lhttp.LanguageHTTPMiddleware(routing.Default(), s.manager)
	s.mux = http.NewServeMux()
	s.mux.Handle("GET /{locale}/basket/card", scoped(s.cards.Fragment()))
	s.mux.Handle("POST /{locale}/basket/toggle", scoped(s.cards.Toggle()))
}

func (s *ProductCardSuite) TearDownTest() {
	_ = s.raw.Close()
}

func (s *ProductCardSuite) scope(locale routing.Locale) context.Context {
	return localization.ToContext(context.Background(), localization.Scope{Manager: s.manager, Locale: locale})
}

func (s *ProductCardSuite) renderCard(locale routing.Locale, phase productcard.Phase, contains bool) *goquery.Selection {
	var buf bytes.Buffer
	props := productcard.Props{Image: "/services/repair.svg", Title: "Repair", Price: "30 zł"}
	s.Require().NoError(s.cards.Card(props, phase, contains).Render(s.scope(locale), &buf))
	doc, err := goquery.NewDocumentFromReader(&buf)
	s.Require().NoError(err)
	return doc.Find("article.product-card")
}

func (s *ProductCardSuite) TestPhaseDecidesTheAffordance() {
	testCases := []struct {
		name     string
		phase    productcard.Phase
		contains bool
		want     bool
	}{
		{name: "uninitialized empty", phase: productcard.PhaseUninitialized, contains: false, want: false},
		{name: "uninitialized in basket", phase: productcard.PhaseUninitialized, contains: true, want: false},
		{name: "ready empty", phase: productcard.PhaseReady, contains: false, want: false},
		{name: "ready in basket", phase: productcard.PhaseReady, contains: true, want: true},
	}

	for _, tc := range testCases {
		s.Run(tc.name, func() {
			s.Equal(tc.want, tc.phase.InBasket(tc.contains))
		})
	}
}

func (s *ProductCardSuite) TestUninitializedCardIgnoresTheBasket() {
	card := s.renderCard(routing.Pl, productcard.PhaseUninitialized, true)

	s.Equal(1, card.Length())
	s.Equal("Naprawa odzieży", card.Find(".product-card-title").Text())
	s.Equal("od 30 zł", strings.TrimSpace(card.Find("button span").Text()))

	pressed, _ := card.Find("button").Attr("aria-pressed")
	s.Equal("false", pressed)

	load, _ := card.Attr("hx-get")
	s.Equal("/pl/basket/card?title=Repair", load)
	trigger, _ := card.Attr("hx-trigger")
	s.Equal("load", trigger)
}

func (s *ProductCardSuite) TestReadyCardShowsBasketState() {
	card := s.renderCard(routing.Ru, productcard.PhaseReady, true)

	s.Equal("Добавлено в корзину", strings.TrimSpace(card.Find("button span").Text()))
	s.True(card.Find("button").HasClass("button-secondary"))
	_, pending := card.Attr("hx-get")
	s.False(pending)

	action, _ := card.Find("form").Attr("action")
	s.Equal("/ru/basket/toggle", action)
	img, _ := card.Find("img").First().Attr("src")
	s.Equal("/services/repair.svg", img)
}

func (s *ProductCardSuite) TestCardNeedsAScope() {
	var buf bytes.Buffer
	err := s.cards.Card(productcard.Props{Title: "Repair"}, productcard.PhaseReady, false).Render(context.Background(), &buf)
	s.Require().ErrorIs(err, localization.ErrNoScope)
}

func (s *ProductCardSuite) TestUnknownServiceKeyFails() {
	var buf bytes.Buffer
	err := s.cards.Card(productcard.Props{Title: "Dyeing", Price: "1 zł"}, productcard.PhaseReady, false).Render(s.scope(routing.En), &buf)
	s.Require().ErrorIs(err, localization.ErrMessageNotFound)
}

func (s *ProductCardSuite) TestElementID() {
	s.Equal("card-repair", productcard.ElementID("Repair"))
	s.Equal("card-two-words", productcard.ElementID("Two Words"))
	s.Equal("card--", productcard.ElementID("ł"))
}

func (s *ProductCardSuite) post(path string, form url.Values, htmx bool, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if htmx {
		req.Header.Set("HX-Request", "true")
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	s.mux.ServeHTTP(rec, req)
	return rec
}

func cookieNamed(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func (s *ProductCardSuite) TestToggleAddsThenRemoves() {
	ctx := context.Background()
	form := url.Values{"title": {"Tailoring"}, "back": {"/en/"}}

	rec := s.post("/en/basket/toggle", form, false)
	s.Equal(http.StatusSeeOther, rec.Code)
	s.Equal("/en/", rec.Header().Get("Location"))

	session := cookieNamed(rec, basket.CookieName)
	s.Require().NotNil(session)
	notice := cookieNamed(rec, flash.CookieName)
	s.Require().NotNil(notice)

	req := httptest.NewRequest(http.MethodGet, "/en/", nil)
	req.AddCookie(session)
	req.AddCookie(notice)
	b, ok := s.sessions.Lookup(req)
	s.Require().True(ok)
	items, err := b.Items(ctx)
	s.Require().NoError(err)
	s.Equal([]basket.Item{{ID: "Tailoring", Title: "Tailoring", Price: "250 zł", Image: "/services/tailoring.svg"}}, items)

	pending, ok := flash.ReadAndClear(nil, req)
	s.Require().True(ok)
	s.Equal(productcard.AddedKey, pending.Key)
	s.Equal(productcard.GoToBasketKey, pending.ActionKey)
	s.Equal("/en/basket", pending.ActionHref)

	rec = s.post("/en/basket/toggle", form, false, session)
	s.Equal(http.StatusSeeOther, rec.Code)
	s.Nil(cookieNamed(rec, flash.CookieName))

	items, err = b.Items(ctx)
	s.Require().NoError(err)
	s.Empty(items)
}

func (s *ProductCardSuite) TestToggleOverHTMXReturnsTheReadyCard() {
	rec := s.post("/pl/basket/toggle", url.Values{"title": {"Embroidery"}}, true)
	s.Equal(http.StatusOK, rec.Code)
	s.Nil(cookieNamed(rec, flash.CookieName))

	doc, err := goquery.NewDocumentFromReader(rec.Body)
	s.Require().NoError(err)
	s.Equal("Dodano do koszyka", strings.TrimSpace(doc.Find("article button span").Text()))

	toast := doc.Find("#toast")
	s.Equal(1, toast.Length())
	oob, _ := toast.Attr("hx-swap-oob")
	s.Equal("true", oob)
	href, _ := toast.Find("a").Attr("href")
	s.Equal("/pl/basket", href)
	s.Equal("Przejdź do koszyka", toast.Find("a").Text())
}

func (s *ProductCardSuite) TestForeignBackFallsBackToHome() {
	testCases := []string{
		"//evil.example/",
		"/\t/evil.example",
		"/\\evil.example",
		"/\n/evil.example",
		"https://evil.example/",
		"",
	}
	for _, back := range testCases {
		s.Run(fmt.Sprintf("%q", back), func() {
			rec := s.post("/ua/basket/toggle", url.Values{"title": {"Repair"}, "back": {back}}, false)
			s.Equal(http.StatusSeeOther, rec.Code)
			s.Equal("/ua/", rec.Header().Get("Location"))
		})
	}
}

func (s *ProductCardSuite) TestBackStaysInTheCardLocale() {
	rec := s.post("/pl/basket/toggle", url.Values{"title": {"Repair"}, "back": {"/en/basket"}}, false)
	s.Equal(http.StatusSeeOther, rec.Code)
	s.Equal("/pl/basket", rec.Header().Get("Location"))
}

func (s *ProductCardSuite) TestToggleRejectsBadInput() {
	s.Equal(http.StatusBadRequest, s.post("/en/basket/toggle", url.Values{}, false).Code)
	s.Equal(http.StatusNotFound, s.post("/en/basket/toggle", url.Values{"title": {"Dyeing"}}, false).Code)
	s.Equal(http.StatusNotFound, s.post("/de/basket/toggle", url.Values{"title": {"Repair"}}, false).Code)
}

func (s *ProductCardSuite) TestFragmentReadsWithoutStartingASession() {
	rec := httptest.NewRecorder()
	s.mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/en/basket/card?title=Alteration", nil))
	s.Equal(http.StatusOK, rec.Code)
	s.Nil(cookieNamed(rec, basket.CookieName))
	s.Contains(rec.Body.String(), "from 60 zł")

	added := s.post("/en/basket/toggle", url.Values{"title": {"Alteration"}}, true)
	session := cookieNamed(added, basket.CookieName)
	s.Require().NotNil(session)

	req := httptest.NewRequest(http.MethodGet, "/en/basket/card?title=Alteration", nil)
	req.AddCookie(session)
	rec = httptest.NewRecorder()
	s.mux.ServeHTTP(rec, req)
	s.Equal(http.StatusOK, rec.Code)
	s.Contains(rec.Body.String(), "Added to basket")

	rec = httptest.NewRecorder()
	s.mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/en/basket/card?title=Dyeing", nil))
	s.Equal(http.StatusNotFound, rec.Code)
}
