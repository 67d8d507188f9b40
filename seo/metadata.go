// Package seo builds the search-engine facing description of a page:
// head metadata and the schema.org structured data of the business.
package seo

import (
	"fmt"
	"strings"

	"github.com/renovo-atelier/atelier/routing"
)

const (
	// BusinessName is the public name of the atelier.
	BusinessName = "Renovo Atelier"

	// XDefault is the pseudo-locale search engines use for unmatched languages.
	XDefault = "x-default"

	previewImagePath   = "/og-image.jpg"
	previewImageWidth  = 1200
	previewImageHeight = 630
)

// Translator resolves message keys of the Metadata namespace.
type Translator interface {
	T(key string) (string, error)
}

// Author names a page author.
type Author struct {
	Name string
}

// Alternates holds the canonical link and one alternate link per language.
type Alternates struct {
	Canonical string
	// Languages maps locale codes, plus XDefault, to absolute URLs.
	Languages map[string]string
}

// Image describes a social preview image.
type Image struct {
	URL    string
	Width  int
	Height int
	Alt    string
}

type OpenGraph struct {
	Title       string
	Description string
	URL         string
	SiteName    string
	Locale      string
	Type        string
	Images      []Image
}

type Twitter struct {
	Card        string
	Title       string
	Description string
	Images      []string
}

// GoogleBot carries crawler specific directives. A value of -1 means no limit.
type GoogleBot struct {
	Index           bool
	Follow          bool
	MaxVideoPreview int
	MaxImagePreview string
	MaxSnippet      int
}

type Robots struct {
	Index     bool
	Follow    bool
	GoogleBot GoogleBot
}

// Metadata is everything the page head declares about one locale of the site.
type Metadata struct {
	Title        string
	Description  string
	Keywords     []string
	Authors      []Author
	Creator      string
	Publisher    string
	MetadataBase string
	Alternates   Alternates
	OpenGraph    OpenGraph
	Twitter      Twitter
	Robots       Robots
}

// GenerateMetadata builds the metadata of the locale home page. Title,
// description and keywords come from the translator; the rest is derived
// from the routing table and siteURL. A failed lookup is returned as is.
func GenerateMetadata(t Translator, rt routing.Routing, locale routing.Locale, siteURL string) (Metadata, error) {
	siteURL = strings.TrimRight(siteURL, "/")

	title, err := t.T("title")
	if err != nil {
		return Metadata{}, fmt.Errorf("metadata title: %w", err)
	}
	description, err := t.T("description")
	if err != nil {
		return Metadata{}, fmt.Errorf("metadata description: %w", err)
	}
	keywords, err := t.T("keywords")
	if err != nil {
		return Metadata{}, fmt.Errorf("metadata keywords: %w", err)
	}

	canonicalURL := LocaleURL(siteURL, locale.String())
	previewImage := siteURL + previewImagePath

	return Metadata{
		Title:        title,
		Description:  description,
		Keywords:     splitKeywords(keywords),
		Authors:      []Author{{Name: BusinessName}},
		Creator:      BusinessName,
		Publisher:    BusinessName,
		MetadataBase: siteURL,
		Alternates: Alternates{
			Canonical: canonicalURL,
			Languages: LanguageAlternates(rt, siteURL),
		},
		OpenGraph: OpenGraph{
			Title:       title,
			Description: description,
			URL:         canonicalURL,
			SiteName:    BusinessName,
			Locale:      locale.String(),
			Type:        "website",
			Images: []Image{{
				URL:    previewImage,
				Width:  previewImageWidth,
				Height: previewImageHeight,
				Alt:    title,
			}},
		},
		Twitter: Twitter{
			Card:        "summary_large_image",
			Title:       title,
			Description: description,
			Images:      []string{previewImage},
		},
		Robots: Robots{
			Index:  true,
			Follow: true,
			GoogleBot: GoogleBot{
				Index:           true,
				Follow:          true,
				MaxVideoPreview: -1,
				MaxImagePreview: "large",
				MaxSnippet:      -1,
			},
		},
	}, nil
}

// LocaleURL is the absolute home URL of a locale.
func LocaleURL(siteURL, locale string) string {
	return strings.TrimRight(siteURL, "/") + "/" + locale
}

// LanguageAlternates maps every configured locale, and XDefault, to its home URL.
func LanguageAlternates(rt routing.Routing, siteURL string) map[string]string {
	languages := make(map[string]string, len(rt.Locales)+1)
	for _, locale := range rt.Locales {
		languages[locale.String()] = LocaleURL(siteURL, locale.String())
	}
	languages[XDefault] = LocaleURL(siteURL, rt.DefaultLocale.String())
	return languages
}

// Content renders the robots meta directive.
func (r Robots) Content() string {
	return strings.Join([]string{indexDirective(r.Index), followDirective(r.Follow)}, ", ")
}

// Content renders the googlebot meta directive.
func (g GoogleBot) Content() string {
	return strings.Join([]string{
		indexDirective(g.Index),
		followDirective(g.Follow),
		fmt.Sprintf("max-video-preview:%d", g.MaxVideoPreview),
		"max-image-preview:" + g.MaxImagePreview,
		fmt.Sprintf("max-snippet:%d", g.MaxSnippet),
	}, ", ")
}

func indexDirective(index bool) string {
	if index {
		return "index"
	}
	return "noindex"
}

func followDirective(follow bool) string {
	if follow {
		return "follow"
	}
	return "nofollow"
}

func splitKeywords(raw string) []string {
	parts := strings.Split(raw, ",")
	keywords := make([]string, 0, len(parts))
	for _, part := range parts {
		if keyword := strings.TrimSpace(part); keyword != "" {
			keywords = append(keywords, keyword)
		}
	}
	return keywords
}
