package seo

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/renovo-atelier/atelier/routing"
)

// businessDescriptions holds the one locale-dependent field of the business
// record. Every configured locale has an entry; English is the fallback.
var businessDescriptions = map[routing.Locale]string{
	routing.En: "Professional tailoring atelier in Poland. Clothing repair, custom tailoring, alterations and embroidery.",
	routing.Ru: "Профессиональное швейное ателье в Польше. Ремонт одежды, индивидуальный пошив, перешив и вышивка.",
	routing.Pl: "Profesjonalny zakład krawiecki w Polsce. Naprawa odzieży, szycie na miarę, przeróbki i haft.",
	routing.Ua: "Професійне швейне ательє в Польщі. Ремонт одягу, індивідуальне пошиття, перешиття та вишивка.",
}

// BusinessDescription returns the description for locale. Any value that
// is not a configured locale gets the English text.
func BusinessDescription(locale string) string {
	if description, ok := businessDescriptions[routing.Locale(locale)]; ok {
		return description
	}
	return businessDescriptions[routing.En]
}

type PostalAddress struct {
	Type           string `json:"@type"`
	AddressCountry string `json:"addressCountry"`
}

type GeoCoordinates struct {
	Type      string   `json:"@type"`
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
}

// OpeningHours is one schema.org OpeningHoursSpecification. DayOfWeek is
// either a single day name or a list of them.
type OpeningHours struct {
	Type      string `json:"@type"`
	DayOfWeek any    `json:"dayOfWeek"`
	Opens     string `json:"opens"`
	Closes    string `json:"closes"`
}

type AggregateRating struct {
	Type        string `json:"@type"`
	RatingValue string `json:"ratingValue"`
	ReviewCount string `json:"reviewCount"`
	BestRating  string `json:"bestRating"`
	WorstRating string `json:"worstRating"`
}

type Service struct {
	Type string `json:"@type"`
	Name string `json:"name"`
}

type Offer struct {
	Type        string  `json:"@type"`
	ItemOffered Service `json:"itemOffered"`
}

type OfferCatalog struct {
	Type            string  `json:"@type"`
	Name            string  `json:"name"`
	ItemListElement []Offer `json:"itemListElement"`
}

// LocalBusiness is the schema.org record embedded in every page.
type LocalBusiness struct {
	Context                   string          `json:"@context"`
	Type                      string          `json:"@type"`
	ID                        string          `json:"@id"`
	Name                      string          `json:"name"`
	Description               string          `json:"description"`
	URL                       string          `json:"url"`
	Telephone                 string          `json:"telephone"`
	Email                     string          `json:"email"`
	Image                     string          `json:"image"`
	PriceRange                string          `json:"priceRange"`
	CurrenciesAccepted        string          `json:"currenciesAccepted"`
	PaymentAccepted           string          `json:"paymentAccepted"`
	Address                   PostalAddress   `json:"address"`
	Geo                       GeoCoordinates  `json:"geo"`
	OpeningHoursSpecification []OpeningHours  `json:"openingHoursSpecification"`
	SameAs                    []string        `json:"sameAs"`
	AggregateRating           AggregateRating `json:"aggregateRating"`
	HasOfferCatalog           OfferCatalog    `json:"hasOfferCatalog"`
}

var offeredServices = []string{
	"Clothing Repair",
	"Custom Tailoring",
	"Alteration & Restoration",
	"Embroidery & Decor",
}

// JSONLD builds the structured business record for locale. It has no side
// effects; only Description and URL depend on the locale.
func JSONLD(locale string, siteURL string) LocalBusiness {
	siteURL = strings.TrimRight(siteURL, "/")

	offers := make([]Offer, 0, len(offeredServices))
	for _, name := range offeredServices {
		offers = append(offers, Offer{Type: "Offer", ItemOffered: Service{Type: "Service", Name: name}})
	}

	return LocalBusiness{
		Context:            "https://schema.org",
		Type:               "LocalBusiness",
		ID:                 siteURL + "/#business",
		Name:               BusinessName,
		Description:        BusinessDescription(locale),
		URL:                LocaleURL(siteURL, locale),
		Telephone:          "+48 796 271 708",
		Email:              "renovoateliermail@gmail.com",
		Image:              siteURL + previewImagePath,
		PriceRange:         "$$",
		CurrenciesAccepted: "PLN",
		PaymentAccepted:    "Cash, Card",
		Address:            PostalAddress{Type: "PostalAddress", AddressCountry: "PL"},
		Geo:                GeoCoordinates{Type: "GeoCoordinates"},
		OpeningHoursSpecification: []OpeningHours{
			{
				Type:      "OpeningHoursSpecification",
				DayOfWeek: []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday"},
				Opens:     "09:00",
				Closes:    "18:00",
			},
			{
				Type:      "OpeningHoursSpecification",
				DayOfWeek: "Saturday",
				Opens:     "10:00",
				Closes:    "14:00",
			},
		},
		SameAs: []string{},
		AggregateRating: AggregateRating{
			Type:        "AggregateRating",
			RatingValue: "5",
			ReviewCount: "4",
			BestRating:  "5",
			WorstRating: "1",
		},
		HasOfferCatalog: OfferCatalog{
			Type:            "OfferCatalog",
			Name:            "Tailoring Services",
			ItemListElement: offers,
		},
	}
}

// MarshalJSONLD serializes a record for an inline ld+json script. Only
// standard JSON escaping is applied; HTML characters are kept as is.
func MarshalJSONLD(v any) (string, error) {
	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	encoder.SetEscapeHTML(false)
	if err := encoder.Encode(v); err != nil {
		return "", err
	}
	return strings.TrimSuffix(buf.String(), "\n"), nil
}
