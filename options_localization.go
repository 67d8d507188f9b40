package atelier

import (
	"context"
	"fmt"
	"io/fs"
	"os"

	"github.com/renovo-atelier/atelier/localization"
	"github.com/renovo-atelier/atelier/routing"
)

// WithTranslations loads the message catalogs of locales from dir, or the
// compiled-in catalogs when dir is empty. A catalog that fails to load
// keeps the service from running.
func WithTranslations(dir string, locales ...routing.Locale) Option {
	return func(ctx context.Context, s *Service) {
		var catalogs fs.FS
		if dir != "" {
			catalogs = os.DirFS(dir)
		}

		manager, err := localization.NewManager(catalogs, locales...)
		if err != nil {
			s.addStartupError(fmt.Errorf("load translations: %w", err))
			s.Log(ctx).WithError(err).WithField("dir", dir).Error("could not load translations")
			return
		}
		s.localizationManager = manager
	}
}

func (s *Service) Localization() localization.Manager {
	return s.localizationManager
}
