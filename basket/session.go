package basket

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/xid"
)

// CookieName carries the basket session id.
const CookieName = "atelier_basket"

// Sessions binds baskets to visitors through a session cookie.
type Sessions struct {
	store  *Store
	maxAge time.Duration
	secure bool
}

// NewSessions issues session cookies valid for maxAge. secure marks them
// HTTPS only.
func NewSessions(store *Store, maxAge time.Duration, secure bool) *Sessions {
	return &Sessions{store: store, maxAge: maxAge, secure: secure}
}

// Store is the backing basket store.
func (s *Sessions) Store() *Store {
	return s.store
}

// Lookup returns the basket of the request's session. It never starts a
// session; a visitor without one gets an empty basket and false.
func (s *Sessions) Lookup(r *http.Request) (Basket, bool) {
	cookie, err := r.Cookie(CookieName)
	if err != nil {
		return Basket{store: s.store}, false
	}
	id, err := xid.FromString(cookie.Value)
	if err != nil {
		return Basket{store: s.store}, false
	}
	return Basket{id: id.String(), store: s.store}, true
}

// Open returns the basket of the request's session, starting a new
// session when there is none. The cookie is refreshed either way.
func (s *Sessions) Open(w http.ResponseWriter, r *http.Request) Basket {
	b, ok := s.Lookup(r)
	if !ok {
		b.id = xid.New().String()
	}
	http.SetCookie(w, s.cookie(b.id, int(s.maxAge.Seconds())))
	return b
}

// End clears the basket and expires the session cookie.
func (s *Sessions) End(ctx context.Context, w http.ResponseWriter, b Basket) error {
	if b.id != "" {
		if err := s.store.Clear(ctx, b.id); err != nil {
			return err
		}
	}
	http.SetCookie(w, s.cookie("", -1))
	return nil
}

func (s *Sessions) cookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     CookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	}
}

// Basket is the basket of one session. The zero session is always empty
// and cannot be changed.
type Basket struct {
	id    string
	store *Store
}

// ID is the session id, empty when there is no session.
func (b Basket) ID() string {
	return b.id
}

func (b Basket) Items(ctx context.Context) ([]Item, error) {
	if b.id == "" {
		return nil, nil
	}
	return b.store.Items(ctx, b.id)
}

func (b Basket) Contains(ctx context.Context, id string) (bool, error) {
	if b.id == "" {
		return false, nil
	}
	return b.store.Contains(ctx, b.id, id)
}

func (b Basket) Add(ctx context.Context, item Item) (bool, error) {
	if b.id == "" {
		return false, ErrNoSession
	}
	return b.store.Add(ctx, b.id, item)
}

func (b Basket) Remove(ctx context.Context, id string) (bool, error) {
	if b.id == "" {
		return false, nil
	}
	return b.store.Remove(ctx, b.id, id)
}

func (b Basket) Toggle(ctx context.Context, item Item) (bool, error) {
	if b.id == "" {
		return false, ErrNoSession
	}
	return b.store.Toggle(ctx, b.id, item)
}
