package httpserver

import (
	"net/http"

	"github.com/bryanwahyu/balancesheet-gpt/internal/domain/identity"
	"github.com/bryanwahyu/balancesheet-gpt/internal/middleware"
)

// POST /v1/auth/signin
// Body: {"email": "...", "password": "..."}
func (r *Router) handleSignIn(w http.ResponseWriter, req *http.Request) error {
	var body struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decode(req, &body); err != nil {
		return err
	}

	sess, err := r.Auth.SignIn(req.Context(), body.Email, body.Password)
	r.Metrics.AuthAttemptsTotal.WithLabelValues("signin", middleware.Outcome(err == nil)).Inc()
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": sess})
}

// POST /v1/auth/signup
func (r *Router) handleSignUp(w http.ResponseWriter, req *http.Request) error {
	var body identity.SignUpInput
	if err := decode(req, &body); err != nil {
		return err
	}

	sess, err := r.Auth.SignUp(req.Context(), body)
	r.Metrics.AuthAttemptsTotal.WithLabelValues("signup", middleware.Outcome(err == nil)).Inc()
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusCreated, map[string]any{"success": true, "data": sess})
}

// POST /v1/auth/signout
func (r *Router) handleSignOut(w http.ResponseWriter, req *http.Request) error {
	p, err := principal(req)
	if err != nil {
		return err
	}
	if err := r.Auth.SignOut(req.Context(), p); err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

// GET /v1/auth/me
func (r *Router) handleMe(w http.ResponseWriter, req *http.Request) error {
	p, err := principal(req)
	if err != nil {
		return err
	}
	prof, err := r.Auth.Me(req.Context(), p)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": prof})
}

// GET /v1/dashboard
func (r *Router) handleDashboard(w http.ResponseWriter, req *http.Request) error {
	p, err := principal(req)
	if err != nil {
		return err
	}
	prof, err := r.Auth.Me(req.Context(), p)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": r.Dashboard.View(prof)})
}
