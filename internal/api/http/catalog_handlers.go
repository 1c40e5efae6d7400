package http

import (
	"net/http"

	"github.com/fideprep/fideprep-api/internal/apierr"
	"github.com/fideprep/fideprep-api/internal/catalog"
)

// GET /catalog/sections?level=A2&mode=Speaking&language=FR
func ListSectionsHandler(cat *catalog.Catalog, defaultLang catalog.Language) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		level, err := catalog.ParseLevel(q.Get("level"))
		if err != nil {
			apierr.Write(w, apierr.InvalidInput("%v", err))
			return
		}
		mode := catalog.ModeSpeaking
		if v := q.Get("mode"); v != "" {
			if mode, err = catalog.ParseMode(v); err != nil {
				apierr.Write(w, apierr.InvalidInput("%v", err))
				return
			}
		}
		lang := defaultLang
		if v := q.Get("language"); v != "" {
			if lang, err = catalog.ParseLanguage(v); err != nil {
				apierr.Write(w, apierr.InvalidInput("%v", err))
				return
			}
		}
		secs, err := cat.Repo().ListSections(r.Context(), level, mode, lang)
		if err != nil {
			apierr.Write(w, apierr.Internal(err))
			return
		}
		if secs == nil {
			secs = []catalog.Section{}
		}
		writeJSON(w, http.StatusOK, map[string]any{"sections": secs})
	}
}
