package web

import (
	"bytes"
	"encoding/json"
	"net/http"

	"github.com/gnemet/DeckForge/internal/apperr"
	"github.com/gnemet/DeckForge/internal/generator"
	"github.com/gnemet/DeckForge/internal/i18n"
	"github.com/gnemet/DeckForge/internal/logger"
)

// getBaseData is the data every page template starts from.
func (s *Server) getBaseData(r *http.Request, title string) map[string]any {
	lang := i18n.GetLang(r)
	data := map[string]any{
		"Lang":      lang,
		"Langs":     i18n.GetAvailableLangs(),
		"Title":     title,
		"MinSlides": generator.MinSlides,
		"MaxSlides": generator.MaxSlides,
		"Form": formValues{
			SlideCount: generator.DefaultSlides,
		},
	}
	if s.cfg != nil {
		data["AppName"] = s.cfg.Application.Name
		data["Version"] = s.cfg.Application.Version
	}
	return data
}

// renderTemplate buffers the output so a template error never sends a half page.
func (s *Server) renderTemplate(w http.ResponseWriter, r *http.Request, status int, name string, data map[string]any) {
	var buf bytes.Buffer
	if err := s.tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		logger.Error(r.Context(), "error executing template", err, "template", name)
		http.Error(w, "Template error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	w.Write(buf.Bytes())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	appErr := apperr.As(err)
	writeJSON(w, appErr.HTTPStatus, map[string]any{"error": appErr})
}
