package site

import (
	"net/http"

	"github.com/pitabwire/util"

	"github.com/renovo-atelier/atelier/localization"
)

// remove takes the posted "id" out of the visitor's basket and returns to
// the basket page. Visitors without a session have nothing to remove.
func (s *Site) remove() http.Handler {
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
		id := r.PostFormValue("id")
		if id == "" {
			http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
			return
		}

		if b, found := s.opts.Sessions.Lookup(r); found {
			removed, err := b.Remove(ctx, id)
			if err != nil {
				s.fail(w, r, err)
				return
			}
			util.Log(ctx).WithFields(map[string]any{
				"session": b.ID(),
				"item":    id,
				"removed": removed,
			}).Debug("basket item removed")
		}
		http.Redirect(w, r, s.opts.Routing.Localize(scope.Locale, "/basket"), http.StatusSeeOther)
	})
}

// clear empties the basket and ends the session.
func (s *Site) clear() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		scope, ok := localization.ScopeFromContext(ctx)
		if !ok {
			http.NotFound(w, r)
			return
		}

		if b, found := s.opts.Sessions.Lookup(r); found {
			if err := s.opts.Sessions.End(ctx, w, b); err != nil {
				s.fail(w, r, err)
				return
			}
			util.Log(ctx).WithField("session", b.ID()).Debug("basket cleared")
		}
		http.Redirect(w, r, s.opts.Routing.Localize(scope.Locale, "/basket"), http.StatusSeeOther)
	})
}

func (s *Site) fail(w http.ResponseWriter, r *http.Request, err error) {
	util.Log(r.Context()).WithError(err).WithField("path", r.URL.Path).Error("basket request failed")
	http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
}
