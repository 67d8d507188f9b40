// Package flash carries a one-time confirmation toast across a redirect.
package flash

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"unicode"
)

// CookieName holds the pending notice until the next page render.
const CookieName = "atelier_flash"

// Kind classifies how a notice is presented.
type Kind string

const (
	KindSuccess Kind = "success"
	KindInfo    Kind = "info"
	KindError   Kind = "error"
)

// Notice references its texts by message id so it renders in whatever
// locale the next page uses. The optional action is a link shown on the
// toast; following it dismisses the toast.
type Notice struct {
	Kind       Kind   `json:"kind"`
	Key        string `json:"key"`
	ActionKey  string `json:"action_key,omitempty"`
	ActionHref string `json:"action_href,omitempty"`
}

// Success creates a success notice for a message id.
func Success(key string) Notice {
	return Notice{Kind: KindSuccess, Key: key}
}

// WithAction attaches a link to a same-site path.
func (n Notice) WithAction(key, href string) Notice {
	n.ActionKey = key
	n.ActionHref = href
	return n
}

// HasAction reports whether the notice links somewhere.
func (n Notice) HasAction() bool {
	return n.ActionKey != "" && n.ActionHref != ""
}

// Write stores a notice for the next page render. Invalid notices are dropped.
func Write(w http.ResponseWriter, r *http.Request, notice Notice) {
	if w == nil {
		return
	}
	normalized, ok := normalizeNotice(notice)
	if !ok {
		return
	}
	payload, err := json.Marshal(normalized)
	if err != nil {
		return
	}
	http.SetCookie(w, cookie(r, base64.RawURLEncoding.EncodeToString(payload), 0))
}

// Read returns the pending notice, if any, leaving it in place. Callers
// that show it clear it once the page is on its way.
func Read(r *http.Request) (Notice, bool) {
	if r == nil {
		return Notice{}, false
	}
	c, err := r.Cookie(CookieName)
	if err != nil {
		return Notice{}, false
	}
	return decodeNotice(c.Value)
}

// ReadAndClear returns the pending notice, if any, and expires it.
func ReadAndClear(w http.ResponseWriter, r *http.Request) (Notice, bool) {
	notice, ok := Read(r)
	Clear(w, r)
	return notice, ok
}

// Clear expires the notice r carries, valid or not. A request without
// one gets no cookie.
func Clear(w http.ResponseWriter, r *http.Request) {
	if w == nil || r == nil {
		return
	}
	if _, err := r.Cookie(CookieName); err != nil {
		return
	}
	http.SetCookie(w, cookie(r, "", -1))
}

func cookie(r *http.Request, value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     CookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   r != nil && r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	}
}

func decodeNotice(raw string) (Notice, bool) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return Notice{}, false
	}
	decoded, err := base64.RawURLEncoding.DecodeString(value)
	if err != nil {
		return Notice{}, false
	}
	var notice Notice
	if err = json.Unmarshal(decoded, &notice); err != nil {
		return Notice{}, false
	}
	return normalizeNotice(notice)
}

func normalizeNotice(notice Notice) (Notice, bool) {
	notice.Key = strings.TrimSpace(notice.Key)
	if notice.Key == "" {
		return Notice{}, false
	}
	notice.Kind = Kind(strings.ToLower(strings.TrimSpace(string(notice.Kind))))
	switch notice.Kind {
	case KindSuccess, KindInfo, KindError:
	default:
		return Notice{}, false
	}
	if !IsLocalPath(notice.ActionHref) {
		notice.ActionKey, notice.ActionHref = "", ""
	}
	return notice, true
}

// IsLocalPath reports whether href is an absolute path on this site.
// Browsers drop tabs and newlines and read backslashes as slashes, so
// "/\t/host" and "/\\host" would leave the site.
func IsLocalPath(href string) bool {
	if !strings.HasPrefix(href, "/") || strings.HasPrefix(href, "//") {
		return false
	}
	if strings.ContainsRune(href, '\\') || strings.ContainsFunc(href, unicode.IsControl) {
		return false
	}
	u, err := url.Parse(href)
	return err == nil && u.Scheme == "" && u.Host == "" && u.User == nil
}
