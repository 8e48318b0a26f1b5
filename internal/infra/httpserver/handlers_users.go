package httpserver

import (
	"net/http"

	appusers "github.com/bryanwahyu/balancesheet-gpt/internal/application/users"
	"github.com/bryanwahyu/balancesheet-gpt/internal/domain/identity"
	"github.com/bryanwahyu/balancesheet-gpt/internal/domain/users"
	"github.com/bryanwahyu/balancesheet-gpt/internal/middleware"
)

// GET /v1/users?search=&role=&status=&company=&sort=&direction=
func (r *Router) handleListUsers(w http.ResponseWriter, req *http.Request) error {
	q := req.URL.Query()
	f := users.Filter{
		Search:  middleware.SanitizeString(q.Get("search")),
		Role:    identity.Role(q.Get("role")),
		Status:  users.Status(q.Get("status")),
		Company: middleware.SanitizeString(q.Get("company")),
	}
	s := users.Sort{Key: users.SortKey(q.Get("sort")), Direction: users.Asc}
	if q.Get("direction") == string(users.Desc) {
		s.Direction = users.Desc
	}

	list, err := r.Users.List(req.Context(), f, s)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": list})
}

// GET /v1/users/stats
func (r *Router) handleUserStats(w http.ResponseWriter, req *http.Request) error {
	st, err := r.Users.Stats(req.Context())
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": st})
}

// GET /v1/users/{id}
func (r *Router) handleGetUser(w http.ResponseWriter, req *http.Request) error {
	id, err := pathID(req, "id")
	if err != nil {
		return err
	}
	u, err := r.Users.Get(req.Context(), id)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": u})
}

// POST /v1/users
func (r *Router) handleCreateUser(w http.ResponseWriter, req *http.Request) error {
	var form appusers.Form
	if err := decode(req, &form); err != nil {
		return err
	}
	u, err := r.Users.Create(req.Context(), form)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusCreated, map[string]any{"success": true, "data": u})
}

// PUT /v1/users/{id}
// A blank password keeps the current one.
func (r *Router) handleUpdateUser(w http.ResponseWriter, req *http.Request) error {
	id, err := pathID(req, "id")
	if err != nil {
		return err
	}
	var form appusers.Form
	if err := decode(req, &form); err != nil {
		return err
	}
	u, err := r.Users.Update(req.Context(), id, form)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": u})
}

// DELETE /v1/users/{id}
func (r *Router) handleDeleteUser(w http.ResponseWriter, req *http.Request) error {
	id, err := pathID(req, "id")
	if err != nil {
		return err
	}
	if p, _ := principal(req); p != nil && p.UserID == id {
		return errBadRequest("you cannot delete your own account")
	}
	if err := r.Users.Delete(req.Context(), id); err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

// POST /v1/users/{id}/toggle-status
func (r *Router) handleToggleUser(w http.ResponseWriter, req *http.Request) error {
	id, err := pathID(req, "id")
	if err != nil {
		return err
	}
	u, err := r.Users.ToggleStatus(req.Context(), id)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": u})
}

// POST /v1/users/{id}/reset-password
func (r *Router) handleResetPassword(w http.ResponseWriter, req *http.Request) error {
	id, err := pathID(req, "id")
	if err != nil {
		return err
	}
	if err := r.Users.ResetPassword(req.Context(), id); err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

// POST /v1/users/bulk-status
// Body: {"status": "active"|"inactive", "ids": ["..."]}
func (r *Router) handleBulkStatus(w http.ResponseWriter, req *http.Request) error {
	var body struct {
		Status users.Status `json:"status"`
		IDs    []string     `json:"ids"`
	}
	if err := decode(req, &body); err != nil {
		return err
	}
	if len(body.IDs) == 0 {
		return errBadRequest("ids is required")
	}
	for _, id := range body.IDs {
		if err := middleware.ValidateID(id); err != nil {
			return errBadRequest(err.Error())
		}
	}

	n, err := r.Users.BulkSetStatus(req.Context(), body.Status, body.IDs...)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": map[string]int64{"updated": n}})
}
