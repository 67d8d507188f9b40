package seo_test

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/renovo-atelier/atelier/routing"
	"github.com/renovo-atelier/atelier/seo"
)

func TestJSONLDDescriptionPerLocale(t *testing.T) {
	testCases := []struct {
		locale string
		prefix string
	}{
		{locale: "en", prefix: "Professional tailoring atelier in Poland."},
		{locale: "pl", prefix: "Profesjonalny zakład krawiecki w Polsce."},
		{locale: "ru", prefix: "Профессиональное швейное ателье в Польше."},
		{locale: "ua", prefix: "Професійне швейне ательє в Польщі."},
		{locale: "de", prefix: "Professional tailoring atelier in Poland."},
		{locale: "", prefix: "Professional tailoring atelier in Poland."},
	}

	for _, tc := range testCases {
		t.Run(tc.locale, func(t *testing.T) {
			record := seo.JSONLD(tc.locale, siteURL)
			assert.True(t, strings.HasPrefix(record.Description, tc.prefix), record.Description)
		})
	}
}

func TestJSONLDOnlyDescriptionAndURLVary(t *testing.T) {
	english := seo.JSONLD("en", siteURL)

	for _, locale := range routing.Default().Locales {
		record := seo.JSONLD(locale.String(), siteURL)
		require.Equal(t, siteURL+"/"+locale.String(), record.URL)

		record.Description = english.Description
		record.URL = english.URL
		require.Equal(t, english, record)
	}
}

func TestEveryLocaleHasADescription(t *testing.T) {
	english := seo.BusinessDescription("en")
	for _, locale := range routing.Default().Locales {
		if locale == routing.En {
			continue
		}
		require.NotEqual(t, english, seo.BusinessDescription(locale.String()), "locale %s falls back", locale)
	}
}

func TestJSONLDFixedFields(t *testing.T) {
	record := seo.JSONLD("pl", siteURL)

	require.Equal(t, "https://schema.org", record.Context)
	require.Equal(t, "LocalBusiness", record.Type)
	require.Equal(t, siteURL+"/#business", record.ID)
	require.Equal(t, "Renovo Atelier", record.Name)
	require.Equal(t, siteURL+"/og-image.jpg", record.Image)
	require.Equal(t, "PL", record.Address.AddressCountry)
	require.Len(t, record.OpeningHoursSpecification, 2)
	require.Equal(t, "Saturday", record.OpeningHoursSpecification[1].DayOfWeek)
	require.Equal(t, "4", record.AggregateRating.ReviewCount)
	require.Len(t, record.HasOfferCatalog.ItemListElement, 4)
	require.NotNil(t, record.SameAs)
}

func TestMarshalJSONLDKeepsHTMLCharacters(t *testing.T) {
	out, err := seo.MarshalJSONLD(seo.JSONLD("en", siteURL))
	require.NoError(t, err)

	require.Contains(t, out, `"Alteration & Restoration"`)
	require.NotContains(t, out, `\u0026`)
	require.Contains(t, out, `"sameAs":[]`)
	require.False(t, strings.HasSuffix(out, "\n"))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &decoded))
	require.Equal(t, "LocalBusiness", decoded["@type"])
	hours := decoded["openingHoursSpecification"].([]any)
	require.Len(t, hours[0].(map[string]any)["dayOfWeek"], 5)
}
