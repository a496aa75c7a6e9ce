package web

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gnemet/DeckForge/internal/apperr"
	"github.com/gnemet/DeckForge/internal/generator"
	"github.com/gnemet/DeckForge/internal/i18n"
	"github.com/gnemet/DeckForge/internal/pptx"
)

// formValues repopulates the form after a rejected submission. The credential
// is never echoed back.
type formValues struct {
	Topic      string
	SlideCount int
	KeyPoints  string
}

// notice is the toast shown above the form.
type notice struct {
	Kind    string // warning | error
	Title   string
	Message string
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	data := s.getBaseData(r, "DeckForge")
	s.renderTemplate(w, r, http.StatusOK, "index.html", data)
}

// handleGenerate is the plain form post: the deck comes back as the response body.
func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	data := s.getBaseData(r, "DeckForge")
	lang := data["Lang"].(string)
	form := formValues{
		Topic:     r.PostFormValue("topic"),
		KeyPoints: r.PostFormValue("key_points"),
	}

	count, err := generator.ParseSlideCount(r.PostFormValue("slide_count"))
	if err != nil {
		form.SlideCount = generator.DefaultSlides
		s.renderFailure(w, r, data, form, lang, err)
		return
	}
	form.SlideCount = count

	res, err := s.orch.Run(r.Context(), generator.Input{
		Topic:      form.Topic,
		SlideCount: count,
		KeyPoints:  form.KeyPoints,
		Credential: r.PostFormValue("api_key"),
	}, nil)
	if err != nil {
		s.renderFailure(w, r, data, form, lang, err)
		return
	}

	serveDeck(w, res)
}

func (s *Server) renderFailure(w http.ResponseWriter, r *http.Request, data map[string]any, form formValues, lang string, err error) {
	appErr := apperr.As(err)
	n := notice{Kind: "error", Title: i18n.T(lang, "toast.error"), Message: appErr.Message}
	if appErr.Code == apperr.CodeValidation {
		n = notice{Kind: "warning", Title: appErr.Message, Message: appErr.Detail}
	}
	data["Form"] = form
	data["Notice"] = n
	s.renderTemplate(w, r, appErr.HTTPStatus, "index.html", data)
}

func serveDeck(w http.ResponseWriter, res *generator.Result) {
	w.Header().Set("Content-Type", pptx.MIMEType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", res.Filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(res.Deck)))
	w.WriteHeader(http.StatusOK)
	w.Write(res.Deck)
}

func (s *Server) handleLang(w http.ResponseWriter, r *http.Request) {
	lang := r.URL.Query().Get("lang")
	if lang == "" {
		lang = r.PostFormValue("lang")
	}
	if !i18n.IsSupported(lang) {
		http.Error(w, "Unsupported language", http.StatusBadRequest)
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     "lang",
		Value:    lang,
		Path:     "/",
		MaxAge:   365 * 24 * 60 * 60,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, "/", http.StatusSeeOther)
}
