// internal/api/handler/web/check.go
package web

import (
	"net/http"
	"time"

	"github.com/newthinker/folio/internal/render"
	"github.com/newthinker/folio/internal/session"
	"go.uber.org/zap"
)

// SessionCookie carries the browser's session id.
const SessionCookie = "folio_session"

// ScoreRow is one line of the individual scores list.
type ScoreRow struct {
	Symbol string
	Score  string
}

// PanelData holds data for the session panel template
type PanelData struct {
	Input       string
	Busy        bool
	BusyMessage string
	Error       string
	HasAverage  bool
	Average     string
	Scores      []ScoreRow
}

// PageData holds data for the index template
type PageData struct {
	Title string
	Panel PanelData
}

// NewPanelData converts a snapshot for the panel template.
// The scores list is only shown alongside an average.
func NewPanelData(s session.State) PanelData {
	p := PanelData{
		Input:       s.Input,
		Busy:        s.Busy,
		BusyMessage: render.BusyMessage,
		Error:       s.Err,
	}
	if s.HasResults() {
		p.HasAverage = true
		p.Average = s.Average.String()
		p.Scores = make([]ScoreRow, 0, len(s.Results))
		for _, sc := range s.Results {
			p.Scores = append(p.Scores, ScoreRow{Symbol: sc.Symbol, Score: sc.Value.String()})
		}
	}
	return p
}

// Index renders the full page.
func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	wf := h.session(w, r)
	h.render(w, h.page, "layout.html", PageData{
		Title: render.Title,
		Panel: NewPanelData(wf.Snapshot()),
	})
}

// Check starts a check for the submitted holdings. The text is used exactly
// as typed. htmx requests get the busy panel back; plain form posts are
// redirected to the page.
func (h *Handler) Check(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	wf := h.session(w, r)
	wf.Start(h.baseCtx, r.PostForm.Get("holdings"))

	if r.Header.Get("HX-Request") != "true" {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	h.render(w, h.panel, "panel.html", NewPanelData(wf.Snapshot()))
}

// Panel renders the session panel fragment.
func (h *Handler) Panel(w http.ResponseWriter, r *http.Request) {
	wf := h.session(w, r)
	h.render(w, h.panel, "panel.html", NewPanelData(wf.Snapshot()))
}

// session returns the caller's session, starting a new one and setting the
// cookie when the browser has none or it expired.
func (h *Handler) session(w http.ResponseWriter, r *http.Request) *session.Workflow {
	var id string
	if c, err := r.Cookie(SessionCookie); err == nil {
		id = c.Value
	}

	wf, created := h.registry.GetOrCreate(id)
	if created {
		h.logger.Debug("new web session", zap.String("session", wf.ID()))
		http.SetCookie(w, &http.Cookie{
			Name:     SessionCookie,
			Value:    wf.ID(),
			Path:     "/",
			HttpOnly: true,
			Secure:   h.secure,
			SameSite: http.SameSiteLaxMode,
			MaxAge:   int((24 * time.Hour).Seconds()),
		})
	}
	return wf
}
