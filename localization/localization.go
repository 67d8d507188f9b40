package localization

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"sort"

	"github.com/BurntSushi/toml"
	"github.com/nicksnyder/go-i18n/v2/i18n"
	"github.com/pitabwire/util"

	"github.com/renovo-atelier/atelier/routing"
)

type contextKey string

func (c contextKey) String() string {
	return "atelier/localization/" + string(c)
}

const ctxKeyScope = contextKey("scopeKey")

var (
	// ErrMessageNotFound is returned when a locale has no message for an id.
	ErrMessageNotFound = errors.New("translation message not found")
	// ErrNoScope is returned when a context carries no translation scope.
	ErrNoScope = errors.New("no translation scope in context")
)

//go:embed locales/*.toml
var embeddedLocales embed.FS

// Manager serves translated messages per locale.
type Manager interface {
	Bundle() *i18n.Bundle
	Translator(ctx context.Context, locale routing.Locale, namespace string) (*Translator, error)
	Messages(ctx context.Context, locale routing.Locale) (map[string]string, error)
}

type managerImpl struct {
	bundle   *i18n.Bundle
	messages map[routing.Locale]map[string]string
}

// NewManager loads one catalog per locale from catalogs, a filesystem
// holding "<code>.toml" files at its root. A nil filesystem selects the
// catalogs compiled into the binary.
func NewManager(catalogs fs.FS, locales ...routing.Locale) (Manager, error) {
	if catalogs == nil {
		sub, err := fs.Sub(embeddedLocales, "locales")
		if err != nil {
			return nil, err
		}
		catalogs = sub
	}
	if len(locales) == 0 {
		locales = routing.Default().Locales
	}

	bundle := i18n.NewBundle(routing.En.Tag())
	loaded := make(map[routing.Locale]map[string]string, len(locales))
	for _, locale := range locales {
		messages, err := loadCatalog(catalogs, locale)
		if err != nil {
			return nil, err
		}

		if err = bundle.AddMessages(locale.Tag(), toMessages(messages)...); err != nil {
			return nil, fmt.Errorf("register catalog %s: %w", locale, err)
		}
		loaded[locale] = messages
	}

	return &managerImpl{bundle: bundle, messages: loaded}, nil
}

func loadCatalog(catalogs fs.FS, locale routing.Locale) (map[string]string, error) {
	path := locale.String() + ".toml"
	data, err := fs.ReadFile(catalogs, path)
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", path, err)
	}

	messages := map[string]string{}
	if err = toml.Unmarshal(data, &messages); err != nil {
		return nil, fmt.Errorf("parse catalog %s: %w", path, err)
	}
	return messages, nil
}

func toMessages(catalog map[string]string) []*i18n.Message {
	ids := make([]string, 0, len(catalog))
	for id := range catalog {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	messages := make([]*i18n.Message, 0, len(ids))
	for _, id := range ids {
		messages = append(messages, &i18n.Message{ID: id, Other: catalog[id]})
	}
	return messages
}

// Bundle exposes the underlying message bundle.
func (m *managerImpl) Bundle() *i18n.Bundle {
	return m.bundle
}

// Translator returns a translator for one locale, scoped to a message namespace.
func (m *managerImpl) Translator(ctx context.Context, locale routing.Locale, namespace string) (*Translator, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if _, ok := m.messages[locale]; !ok {
		return nil, fmt.Errorf("%w: no catalog for locale %q", ErrMessageNotFound, locale)
	}

	return &Translator{
		locale:    locale,
		namespace: namespace,
		localizer: i18n.NewLocalizer(m.bundle, locale.Tag().String()),
	}, nil
}

// Messages returns a copy of every message of a locale.
func (m *managerImpl) Messages(ctx context.Context, locale routing.Locale) (map[string]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	catalog, ok := m.messages[locale]
	if !ok {
		return nil, fmt.Errorf("%w: no catalog for locale %q", ErrMessageNotFound, locale)
	}

	out := make(map[string]string, len(catalog))
	for id, message := range catalog {
		out[id] = message
	}
	return out, nil
}

// Translator resolves namespaced message ids for a single locale.
type Translator struct {
	locale    routing.Locale
	namespace string
	localizer *i18n.Localizer
}

// Locale is the locale the translator serves.
func (t *Translator) Locale() routing.Locale {
	return t.locale
}

// Namespace returns a translator for another namespace of the same locale.
func (t *Translator) Namespace(namespace string) *Translator {
	return &Translator{locale: t.locale, namespace: namespace, localizer: t.localizer}
}

// T translates key within the translator namespace.
func (t *Translator) T(key string) (string, error) {
	return t.TWith(key, nil)
}

// TWith translates key, filling message placeholders from data.
func (t *Translator) TWith(key string, data map[string]any) (string, error) {
	id := key
	if t.namespace != "" {
		id = t.namespace + "." + key
	}

	message, err := t.localizer.Localize(&i18n.LocalizeConfig{
		MessageID:    id,
		TemplateData: data,
	})
	if err != nil {
		return "", fmt.Errorf("%w: %s/%s: %w", ErrMessageNotFound, t.locale, id, err)
	}
	return message, nil
}

// Scope is the translation context mounted for the children of a page.
type Scope struct {
	Manager Manager
	Locale  routing.Locale
}

// ToContext mounts a translation scope on ctx.
func ToContext(ctx context.Context, scope Scope) context.Context {
	return context.WithValue(ctx, ctxKeyScope, scope)
}

// ScopeFromContext extracts the mounted translation scope, if any.
func ScopeFromContext(ctx context.Context) (Scope, bool) {
	scope, ok := ctx.Value(ctxKeyScope).(Scope)
	if !ok || scope.Manager == nil {
		return Scope{}, false
	}
	return scope, true
}

// FromContext returns a translator for namespace from the scope mounted on ctx.
func FromContext(ctx context.Context, namespace string) (*Translator, error) {
	scope, ok := ScopeFromContext(ctx)
	if !ok {
		util.Log(ctx).WithField("namespace", namespace).Warn("translation requested outside of a locale scope")
		return nil, ErrNoScope
	}
	return scope.Manager.Translator(ctx, scope.Locale, namespace)
}
