package httpserver

import (
	"net/http"

	appai "github.com/bryanwahyu/balancesheet-gpt/internal/application/ai"
	"github.com/bryanwahyu/balancesheet-gpt/internal/domain/company"
	"github.com/bryanwahyu/balancesheet-gpt/internal/middleware"
)

// GET /v1/ai/session
func (r *Router) handleAISession(w http.ResponseWriter, req *http.Request) error {
	p, err := principal(req)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": r.Chat.Session(p.UserID)})
}

// POST /v1/ai/query
// Body: {"query": "...", "company_id": "..."}
func (r *Router) handleAIQuery(w http.ResponseWriter, req *http.Request) error {
	p, err := principal(req)
	if err != nil {
		return err
	}
	var body struct {
		Query     string `json:"query"`
		CompanyID string `json:"company_id"`
	}
	if err := decode(req, &body); err != nil {
		return err
	}
	if body.CompanyID != "" {
		if err := middleware.ValidateID(body.CompanyID); err != nil {
			return errBadRequest(err.Error())
		}
	}

	msg, err := r.Chat.Submit(req.Context(), p.UserID, company.ID(body.CompanyID), middleware.SanitizeString(body.Query))
	if err != nil {
		return err
	}
	answered := msg.Confidence != nil && *msg.Confidence > 0
	r.Metrics.AIQueriesTotal.WithLabelValues(middleware.Outcome(answered)).Inc()
	return writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": msg})
}

// DELETE /v1/ai/history
func (r *Router) handleAIClearHistory(w http.ResponseWriter, req *http.Request) error {
	p, err := principal(req)
	if err != nil {
		return err
	}
	r.Chat.ClearHistory(p.UserID)
	return writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

// DELETE /v1/ai/chat
func (r *Router) handleAIClearChat(w http.ResponseWriter, req *http.Request) error {
	p, err := principal(req)
	if err != nil {
		return err
	}
	r.Chat.ClearChat(p.UserID)
	return writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

// GET /v1/ai/templates
func (r *Router) handleAITemplates(w http.ResponseWriter, req *http.Request) error {
	return writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": appai.Templates()})
}

// GET /v1/ai/suggestions?q=
func (r *Router) handleAISuggestions(w http.ResponseWriter, req *http.Request) error {
	q := middleware.SanitizeString(req.URL.Query().Get("q"))
	return writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": appai.Suggest(q)})
}
