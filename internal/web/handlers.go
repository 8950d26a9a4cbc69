package web

import (
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/google/uuid"
	"github.com/pterm/pterm"

	"github.com/hpungsan/emolens/internal/bridge"
	"github.com/hpungsan/emolens/internal/coordinator"
	"github.com/hpungsan/emolens/internal/docstore"
	"github.com/hpungsan/emolens/internal/errors"
	"github.com/hpungsan/emolens/internal/overlay"
	"github.com/hpungsan/emolens/internal/relay"
	"github.com/hpungsan/emolens/internal/sentiment"
	"github.com/hpungsan/emolens/internal/viewer"
)

// Handlers contains HTTP route handlers for the relay API and web UI.
type Handlers struct {
	coord    *coordinator.Coordinator
	host     *bridge.Host
	surfaces *overlay.Registry
	docs     docstore.Store
	relay    *relay.Client
	logger   *pterm.Logger
	renderer *Renderer
}

type saveRequest struct {
	Text     string            `json:"text"`
	Emotions *sentiment.Scores `json:"emotions"`
}

// HandleSaveSentiment handles POST /save-sentiment.
func (h *Handlers) HandleSaveSentiment(w http.ResponseWriter, r *http.Request) {
	var req saveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Text == "" || req.Emotions == nil {
		renderJSON(w, http.StatusBadRequest, map[string]string{"error": "Missing text or emotions"})
		return
	}

	id, err := h.docs.Add(r.Context(), req.Text, *req.Emotions)
	if errors.Is(err, errors.ErrValidation) {
		renderJSON(w, http.StatusBadRequest, map[string]string{"error": "Missing text or emotions"})
		return
	}
	if err != nil {
		h.logger.Error("error saving sentiment", h.logger.Args("error", err.Error()))
		renderJSON(w, http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
		return
	}

	renderJSON(w, http.StatusOK, relay.SaveResponse{
		Success: true,
		ID:      id,
		Message: "Sentiment saved successfully!",
	})
}

// HandleGetSentiments handles GET /get-sentiments.
func (h *Handlers) HandleGetSentiments(w http.ResponseWriter, r *http.Request) {
	docs, err := h.docs.List(r.Context())
	if err != nil {
		h.logger.Error("error fetching sentiments", h.logger.Args("error", err.Error()))
		renderJSON(w, http.StatusInternalServerError, map[string]string{"error": "Failed to fetch sentiments"})
		return
	}
	if docs == nil {
		docs = []docstore.Document{}
	}
	renderJSON(w, http.StatusOK, docs)
}

// HandlePopup handles GET /popup: the latest record and, with ?saved=1, the full history.
func (h *Handlers) HandlePopup(w http.ResponseWriter, r *http.Request) {
	v := viewer.New(h.host)

	if wantsJSON(r) {
		log, err := v.Query(r.Context())
		if err != nil {
			h.logger.Error("history query failed", h.logger.Args("error", err.Error()))
			renderJSON(w, http.StatusInternalServerError, map[string]string{"error": viewer.MsgLoadFailed})
			return
		}
		renderJSON(w, http.StatusOK, map[string]any{"data": log})
		return
	}

	if parseBoolParam(r, "saved") {
		v.Toggle()
	}
	view := v.Load(r.Context())

	toggle := "/popup?saved=1"
	if view.ShowAll {
		toggle = "/popup"
	}

	status := r.URL.Query().Get("status")
	h.renderer.renderPage(w, r, "popup", PopupPageData{
		PageData: PageData{
			Title:   "Sentiment History",
			Version: h.renderer.version,
			Nav:     "popup",
		},
		View:      view,
		ToggleURL: toggle,
		Status:    status,
		StatusOK:  status == viewer.MsgSaved,
	})
}

// HandlePopupSave handles POST /popup/save: relay the latest record.
func (h *Handlers) HandlePopupSave(w http.ResponseWriter, r *http.Request) {
	v := viewer.New(h.host)
	log, err := v.Query(r.Context())
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	msg := viewer.MsgSaved
	var id string
	rec, ok := log.Latest()
	if !ok || !rec.Valid() {
		msg = viewer.MsgNothing
	} else if id, err = h.relay.SaveRecord(r.Context(), rec); err != nil {
		h.logger.Error("error saving sentiment", h.logger.Args("error", err.Error()))
		msg = viewer.MsgSaveFailed
		if errors.Is(err, errors.ErrValidation) {
			msg = viewer.MsgNothing
		}
	}

	if wantsJSON(r) {
		status := http.StatusOK
		if msg != viewer.MsgSaved {
			status = http.StatusBadGateway
			if msg == viewer.MsgNothing {
				status = http.StatusBadRequest
			}
		}
		renderJSON(w, status, map[string]any{"id": id, "message": msg})
		return
	}

	http.Redirect(w, r, "/popup?status="+url.QueryEscape(msg), http.StatusSeeOther)
}

// SavedPageData is the template data for the saved documents page.
type SavedPageData struct {
	PageData
	Docs  []docstore.Document
	Error string
}

// HandleSaved handles GET /saved: documents held by the relay backend.
func (h *Handlers) HandleSaved(w http.ResponseWriter, r *http.Request) {
	data := SavedPageData{
		PageData: PageData{Title: "Saved Sentiments", Version: h.renderer.version, Nav: "saved"},
	}
	docs, err := h.docs.List(r.Context())
	if err != nil {
		h.logger.Error("error fetching sentiments", h.logger.Args("error", err.Error()))
		data.Error = viewer.MsgLoadFailed
	}
	data.Docs = docs
	h.renderer.renderPage(w, r, "saved", data)
}

// HandleHelp handles GET /help.
func (h *Handlers) HandleHelp(w http.ResponseWriter, r *http.Request) {
	h.renderer.renderPage(w, r, "help", HelpPageData{
		PageData: PageData{Title: "Help", Version: h.renderer.version, Nav: "help"},
		Body:     h.renderer.help,
	})
}

// HandleNewTab handles GET /tabs/new: open a fresh tab.
func (h *Handlers) HandleNewTab(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/tabs/"+uuid.NewString(), http.StatusFound)
}

// HandleTab handles GET /tabs/{tab}: the page the overlay is drawn on.
func (h *Handlers) HandleTab(w http.ResponseWriter, r *http.Request) {
	tab, ok := h.tabParam(w, r)
	if !ok {
		return
	}
	h.renderer.renderPage(w, r, "tab", h.tabData(tab))
}

// HandleAnalyze handles POST /tabs/{tab}/analyze: one trigger.
func (h *Handlers) HandleAnalyze(w http.ResponseWriter, r *http.Request) {
	tab, ok := h.tabParam(w, r)
	if !ok {
		return
	}

	var text string
	if wantsJSONBody(r) {
		var body struct {
			Text string `json:"text"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			h.renderer.renderError(w, r, errors.NewInvalidRequest("invalid JSON body"))
			return
		}
		text = body.Text
	} else {
		if err := r.ParseForm(); err != nil {
			h.renderer.renderError(w, r, errors.NewInvalidRequest("invalid form data"))
			return
		}
		text = r.FormValue("text")
	}

	out := h.coord.Trigger(r.Context(), tab, text)
	if out.Delivered {
		if err := h.host.Sync(r.Context(), tab); err != nil {
			h.logger.Warn("overlay sync failed", h.logger.Args("tab", tab, "error", err.Error()))
		}
	}

	if wantsJSON(r) {
		if errors.Is(out.Err, errors.ErrBlankInput) {
			h.renderer.renderError(w, r, out.Err)
			return
		}
		resp := map[string]any{
			"state":     string(out.State),
			"record":    out.Record,
			"persisted": out.Persisted,
			"delivered": out.Delivered,
		}
		renderJSON(w, http.StatusOK, resp)
		return
	}

	if isFragment(r) {
		h.renderer.renderBlock(w, http.StatusOK, "tab", "panels", h.tabData(tab))
		return
	}
	http.Redirect(w, r, "/tabs/"+tab, http.StatusSeeOther)
}

// HandleOverlay handles GET /tabs/{tab}/overlay: the current panels as a fragment.
func (h *Handlers) HandleOverlay(w http.ResponseWriter, r *http.Request) {
	tab, ok := h.tabParam(w, r)
	if !ok {
		return
	}
	data := h.tabData(tab)
	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, map[string]any{"panels": data.Panels})
		return
	}
	h.renderer.renderBlock(w, http.StatusOK, "tab", "panels", data)
}

// HandleDismiss handles POST /tabs/{tab}/overlay/{kind}/dismiss.
func (h *Handlers) HandleDismiss(w http.ResponseWriter, r *http.Request) {
	tab, ok := h.tabParam(w, r)
	if !ok {
		return
	}

	kind := overlay.Kind(r.PathValue("kind"))
	if kind != overlay.KindResult && kind != overlay.KindBanner {
		h.renderer.renderError(w, r, errors.NewInvalidRequest("unknown panel kind"))
		return
	}
	if s, found := h.surfaces.Lookup(tab); found {
		s.Dismiss(kind)
	}

	if isFragment(r) {
		h.renderer.renderBlock(w, http.StatusOK, "tab", "panels", h.tabData(tab))
		return
	}
	http.Redirect(w, r, "/tabs/"+tab, http.StatusSeeOther)
}

func (h *Handlers) tabParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	tab := r.PathValue("tab")
	if _, err := uuid.Parse(tab); err != nil {
		h.renderer.renderError(w, r, errors.NewInvalidRequest("tab must be a UUID"))
		return "", false
	}
	return tab, true
}

func (h *Handlers) tabData(tab string) TabPageData {
	data := TabPageData{
		PageData: PageData{Title: "Tab", Version: h.renderer.version, Nav: "tab"},
		Tab:      tab,
	}
	if s, ok := h.surfaces.Lookup(tab); ok {
		data.Panels = s.Panels()
	}
	return data
}

// parseBoolParam parses a boolean query parameter.
func parseBoolParam(r *http.Request, name string) bool {
	s := r.URL.Query().Get(name)
	return s == "true" || s == "1"
}

func wantsJSONBody(r *http.Request) bool {
	return r.Header.Get("Content-Type") == "application/json"
}
