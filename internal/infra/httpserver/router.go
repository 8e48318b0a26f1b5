package httpserver

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	appai "github.com/bryanwahyu/balancesheet-gpt/internal/application/ai"
	"github.com/bryanwahyu/balancesheet-gpt/internal/application/analysis"
	"github.com/bryanwahyu/balancesheet-gpt/internal/application/auth"
	"github.com/bryanwahyu/balancesheet-gpt/internal/application/dashboard"
	"github.com/bryanwahyu/balancesheet-gpt/internal/application/financial"
	"github.com/bryanwahyu/balancesheet-gpt/internal/application/uploads"
	appusers "github.com/bryanwahyu/balancesheet-gpt/internal/application/users"
	domai "github.com/bryanwahyu/balancesheet-gpt/internal/domain/ai"
	"github.com/bryanwahyu/balancesheet-gpt/internal/domain/balancesheets"
	"github.com/bryanwahyu/balancesheet-gpt/internal/domain/company"
	"github.com/bryanwahyu/balancesheet-gpt/internal/domain/documents"
	"github.com/bryanwahyu/balancesheet-gpt/internal/domain/identity"
	"github.com/bryanwahyu/balancesheet-gpt/internal/domain/queries"
	"github.com/bryanwahyu/balancesheet-gpt/internal/domain/realtime"
	"github.com/bryanwahyu/balancesheet-gpt/internal/domain/users"
	"github.com/bryanwahyu/balancesheet-gpt/internal/logger"
	"github.com/bryanwahyu/balancesheet-gpt/internal/middleware"
)

// DataService is the data-service façade the API serves.
type DataService interface {
	GetCompanies(ctx context.Context) financial.Result[[]*company.Company]
	GetBalanceSheets(ctx context.Context, companyID company.ID, f balancesheets.Filter) financial.Result[[]*balancesheets.BalanceSheet]
	GetDocuments(ctx context.Context, companyID company.ID) financial.Result[[]*documents.Document]
	GetDocument(ctx context.Context, id documents.ID) financial.Result[*documents.Document]
	SaveQuery(ctx context.Context, userID string, companyID company.ID, queryText, responseText string, chartData []byte) financial.Result[*queries.Entry]
	GetQueryHistory(ctx context.Context, userID string, limit int) financial.Result[[]*queries.Entry]
	GetFinancialMetrics(ctx context.Context, companyIDs []company.ID, years int) financial.Result[[]*balancesheets.BalanceSheet]
	DeleteDocuments(ctx context.Context, ids ...documents.ID) financial.Result[int64]
	SubscribeToDocuments(companyID company.ID, cb realtime.Handler) realtime.Unsubscribe
	SubscribeToBalanceSheets(companyID company.ID, cb realtime.Handler) realtime.Unsubscribe
}

// UserAdmin is the user-management surface.
type UserAdmin interface {
	List(ctx context.Context, f users.Filter, sort users.Sort) ([]*users.ManagedUser, error)
	Stats(ctx context.Context) (users.Stats, error)
	Get(ctx context.Context, id string) (*users.ManagedUser, error)
	Create(ctx context.Context, f appusers.Form) (*users.ManagedUser, error)
	Update(ctx context.Context, id string, f appusers.Form) (*users.ManagedUser, error)
	Delete(ctx context.Context, id string) error
	ToggleStatus(ctx context.Context, id string) (*users.ManagedUser, error)
	BulkSetStatus(ctx context.Context, status users.Status, ids ...string) (int64, error)
	ResetPassword(ctx context.Context, id string) error
}

// Presigner hands out short-lived download links.
type Presigner interface {
	PresignedURL(ctx context.Context, key, downloadName string, ttl time.Duration) (string, error)
}

// Deps are the services the router serves. Presigner, Limiter, WebRoot and
// the health maps are optional.
type Deps struct {
	Auth      *auth.Service
	Data      DataService
	Uploads   *uploads.Tracker
	Chat      *appai.Service
	Users     UserAdmin
	Dashboard *dashboard.Service
	Analysis  *analysis.Service
	Presigner Presigner
	Metrics   *middleware.Metrics
	Limiter   *middleware.RateLimiter
	Health    map[string]middleware.HealthChecker
	Ready     map[string]middleware.HealthChecker
	Logger    *zap.Logger

	WebRoot        string
	AllowedOrigins []string
	// Heartbeat is the idle interval between SSE comment frames.
	Heartbeat time.Duration
}

type Router struct {
	Deps
}

func NewRouter(d Deps) http.Handler {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.Metrics == nil {
		d.Metrics = middleware.NewMetrics("balancesheet")
	}
	if d.Heartbeat <= 0 {
		d.Heartbeat = 25 * time.Second
	}
	r := &Router{Deps: d}

	mux := chi.NewRouter()
	mux.Use(middleware.Recoverer)
	mux.Use(middleware.RequestLogger(d.Logger))
	mux.Use(d.Metrics.Middleware)
	if len(d.AllowedOrigins) > 0 {
		mux.Use(cors.Handler(cors.Options{
			AllowedOrigins:   d.AllowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Authorization", "Content-Type", middleware.RequestIDHeader},
			ExposedHeaders:   []string{middleware.RequestIDHeader},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	mux.Get("/health", middleware.HealthHandler(d.Health))
	mux.Get("/ready", middleware.ReadinessHandler(d.Ready))
	mux.Get("/live", middleware.LivenessHandler)
	mux.Method(http.MethodGet, "/metrics", d.Metrics.Handler())

	mux.Route("/v1", func(rt chi.Router) {
		rt.Group(func(pub chi.Router) {
			if d.Limiter != nil {
				pub.Use(middleware.RateLimitMiddleware(d.Limiter))
			}
			pub.Post("/auth/signin", r.wrap(r.handleSignIn))
			pub.Post("/auth/signup", r.wrap(r.handleSignUp))
		})

		rt.Group(func(pr chi.Router) {
			pr.Use(middleware.BearerAuth(d.Auth))
			if d.Limiter != nil {
				pr.Use(middleware.RateLimitMiddleware(d.Limiter))
			}

			pr.Post("/auth/signout", r.wrap(r.handleSignOut))
			pr.Get("/auth/me", r.wrap(r.handleMe))
			pr.Get("/dashboard", r.wrap(r.handleDashboard))

			pr.Get("/companies", r.wrap(r.handleCompanies))
			pr.Get("/companies/{companyID}/balance-sheets", r.wrap(r.handleBalanceSheets))
			pr.Get("/companies/{companyID}/balance-sheets/stream", r.handleStream(realtime.TableBalanceSheets))
			pr.Get("/companies/{companyID}/documents", r.wrap(r.handleDocuments))
			pr.Get("/companies/{companyID}/documents/stream", r.handleStream(realtime.TableDocuments))
			pr.Post("/companies/{companyID}/documents", r.wrap(r.handleStartUpload))

			pr.Get("/documents/{id}/download", r.wrap(r.handleDownload))
			pr.Delete("/documents/{id}", r.wrap(r.handleDeleteDocument))
			pr.Post("/documents/bulk-delete", r.wrap(r.handleBulkDelete))

			pr.Get("/uploads", r.wrap(r.handleListUploads))
			pr.Get("/uploads/{id}", r.wrap(r.handleGetUpload))
			pr.Post("/uploads/{id}/retry", r.wrap(r.handleRetryUpload))
			pr.Delete("/uploads/{id}", r.wrap(r.handleCancelUpload))

			pr.Get("/financial-metrics", r.wrap(r.handleFinancialMetrics))
			pr.Get("/analysis", r.wrap(r.handleAnalysis))
			pr.Get("/query-history", r.wrap(r.handleQueryHistory))
			pr.Post("/query-history", r.wrap(r.handleSaveQuery))

			pr.Get("/ai/session", r.wrap(r.handleAISession))
			pr.Post("/ai/query", r.wrap(r.handleAIQuery))
			pr.Delete("/ai/history", r.wrap(r.handleAIClearHistory))
			pr.Delete("/ai/chat", r.wrap(r.handleAIClearChat))
			pr.Get("/ai/templates", r.wrap(r.handleAITemplates))
			pr.Get("/ai/suggestions", r.wrap(r.handleAISuggestions))

			pr.Route("/users", func(ur chi.Router) {
				ur.Use(middleware.RequireRole(identity.RoleGroupAdmin))
				ur.Get("/", r.wrap(r.handleListUsers))
				ur.Post("/", r.wrap(r.handleCreateUser))
				ur.Get("/stats", r.wrap(r.handleUserStats))
				ur.Post("/bulk-status", r.wrap(r.handleBulkStatus))
				ur.Get("/{id}", r.wrap(r.handleGetUser))
				ur.Put("/{id}", r.wrap(r.handleUpdateUser))
				ur.Delete("/{id}", r.wrap(r.handleDeleteUser))
				ur.Post("/{id}/toggle-status", r.wrap(r.handleToggleUser))
				ur.Post("/{id}/reset-password", r.wrap(r.handleResetPassword))
			})
		})
	})

	if d.WebRoot != "" {
		spa := newSPA(d.WebRoot)
		for _, p := range clientRoutes {
			mux.Get(p, spa.ServeHTTP)
		}
		mux.Get("/assets/*", spa.ServeHTTP)
	}
	mux.NotFound(func(w http.ResponseWriter, req *http.Request) {
		middleware.WriteError(w, http.StatusNotFound, "not found")
	})

	return mux
}

type handlerFunc func(http.ResponseWriter, *http.Request) error

// badRequest marks client input errors that have no sentinel of their own.
type badRequest struct{ msg string }

func (e badRequest) Error() string { return e.msg }

func errBadRequest(msg string) error { return badRequest{msg: msg} }

func (r *Router) wrap(h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		err := h(w, req)
		if err == nil {
			return
		}

		var verr *appusers.ValidationError
		if errors.As(err, &verr) {
			writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
				"success": false, "error": "validation failed", "errors": verr.Fields,
			})
			return
		}
		var ierr *auth.InputError
		if errors.As(err, &ierr) {
			writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
				"success": false, "error": ierr.Message, "errors": map[string]string{ierr.Field: ierr.Message},
			})
			return
		}

		status := statusFor(err)
		if status == http.StatusInternalServerError {
			logger.FromContext(req.Context()).Error("handler failed", zap.Error(err))
			middleware.WriteError(w, status, "internal server error")
			return
		}
		middleware.WriteError(w, status, err.Error())
	}
}

func statusFor(err error) int {
	var br badRequest
	switch {
	case errors.Is(err, identity.ErrInvalidCredentials),
		errors.Is(err, identity.ErrUnauthenticated),
		errors.Is(err, identity.ErrTokenRevoked):
		return http.StatusUnauthorized
	case errors.Is(err, identity.ErrEmailTaken),
		errors.Is(err, uploads.ErrNotRetried):
		return http.StatusConflict
	case errors.Is(err, sql.ErrNoRows),
		errors.Is(err, documents.ErrNotFound),
		errors.Is(err, users.ErrNotFound),
		errors.Is(err, uploads.ErrNotFound),
		errors.Is(err, identity.ErrProfileNotFound):
		return http.StatusNotFound
	case errors.Is(err, domai.ErrQuotaExceeded):
		return http.StatusTooManyRequests
	case errors.Is(err, documents.ErrTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, domai.ErrEmptyQuery),
		errors.Is(err, documents.ErrNotPDF),
		errors.Is(err, documents.ErrEmptyUpload),
		errors.Is(err, auth.ErrMissingCredentials),
		errors.Is(err, appusers.ErrInvalidStatus),
		errors.As(err, &br):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, v any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(v)
}

// writeResult sends a façade envelope as is. Failed envelopes stay 200: the
// client shows them as a banner rather than treating them as transport errors.
func writeResult[T any](w http.ResponseWriter, res financial.Result[T]) error {
	return writeJSON(w, http.StatusOK, res)
}

func decode(req *http.Request, v any) error {
	if err := json.NewDecoder(req.Body).Decode(v); err != nil {
		return errBadRequest("invalid JSON body")
	}
	return nil
}

// principal returns the caller. BearerAuth guarantees one on every /v1
// route except sign-in and sign-up.
func principal(req *http.Request) (*identity.Principal, error) {
	p := middleware.PrincipalFrom(req.Context())
	if p == nil {
		return nil, identity.ErrUnauthenticated
	}
	return p, nil
}

func pathID(req *http.Request, name string) (string, error) {
	id := chi.URLParam(req, name)
	if err := middleware.ValidateID(id); err != nil {
		return "", errBadRequest(err.Error())
	}
	return id, nil
}
