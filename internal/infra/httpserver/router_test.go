package httpserver

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"golang.org/x/crypto/bcrypt"

	"github.com/bryanwahyu/balancesheet-gpt/internal/application"
	appai "github.com/bryanwahyu/balancesheet-gpt/internal/application/ai"
	"github.com/bryanwahyu/balancesheet-gpt/internal/application/analysis"
	"github.com/bryanwahyu/balancesheet-gpt/internal/application/auth"
	"github.com/bryanwahyu/balancesheet-gpt/internal/application/dashboard"
	"github.com/bryanwahyu/balancesheet-gpt/internal/application/financial"
	"github.com/bryanwahyu/balancesheet-gpt/internal/application/uploads"
	appusers "github.com/bryanwahyu/balancesheet-gpt/internal/application/users"
	"github.com/bryanwahyu/balancesheet-gpt/internal/domain/balancesheets"
	"github.com/bryanwahyu/balancesheet-gpt/internal/domain/company"
	"github.com/bryanwahyu/balancesheet-gpt/internal/domain/documents"
	"github.com/bryanwahyu/balancesheet-gpt/internal/domain/identity"
	"github.com/bryanwahyu/balancesheet-gpt/internal/domain/queries"
	"github.com/bryanwahyu/balancesheet-gpt/internal/domain/realtime"
	"github.com/bryanwahyu/balancesheet-gpt/internal/domain/users"
	"github.com/bryanwahyu/balancesheet-gpt/internal/infra/ai/mock"
	"github.com/bryanwahyu/balancesheet-gpt/internal/middleware"
)

var now = time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)

// ==== fakes ====

type fakeProvider struct{}

var principals = map[string]*identity.Principal{
	"analyst-token": {UserID: "u-analyst", Email: "ana@example.com", Role: identity.RoleAnalyst, TokenID: "j1"},
	"admin-token":   {UserID: "u-admin", Email: "adm@example.com", Role: identity.RoleGroupAdmin, TokenID: "j2"},
	"revoked-token": nil,
}

func (fakeProvider) SignIn(ctx context.Context, email, password string) (*identity.Session, error) {
	if email == "ana@example.com" && password == "secret123" {
		return &identity.Session{AccessToken: "analyst-token", TokenType: "bearer", User: &identity.UserProfile{ID: "u-analyst", Email: email}}, nil
	}
	return nil, identity.ErrInvalidCredentials
}

func (fakeProvider) SignUp(ctx context.Context, in identity.SignUpInput) (*identity.Session, error) {
	if in.Email == "taken@example.com" {
		return nil, identity.ErrEmailTaken
	}
	return &identity.Session{AccessToken: "new-token", TokenType: "bearer", User: &identity.UserProfile{ID: "u-new", Email: in.Email, FullName: in.FullName, Role: in.Role}}, nil
}

func (fakeProvider) SignOut(ctx context.Context, p *identity.Principal) error { return nil }

func (fakeProvider) Verify(ctx context.Context, token string) (*identity.Principal, error) {
	p, ok := principals[token]
	if !ok {
		return nil, identity.ErrUnauthenticated
	}
	if p == nil {
		return nil, identity.ErrTokenRevoked
	}
	return p, nil
}

func (fakeProvider) Profile(ctx context.Context, userID string) (*identity.UserProfile, error) {
	switch userID {
	case "u-analyst":
		return &identity.UserProfile{ID: userID, Email: "ana@example.com", FullName: "Ana Lyst"}, nil
	case "u-admin":
		return &identity.UserProfile{ID: userID, Email: "adm@example.com", FullName: "Ad Min", Role: identity.RoleGroupAdmin}, nil
	}
	return nil, identity.ErrProfileNotFound
}

type fakeData struct {
	mu        sync.Mutex
	companies financial.Result[[]*company.Company]
	docs      []*documents.Document
	sheets    []*balancesheets.BalanceSheet
	lastSheet balancesheets.Filter
	deleted   []documents.ID
	saved     []string
	handlers  map[realtime.Table]realtime.Handler
	subs      chan realtime.Table
}

func (f *fakeData) GetCompanies(ctx context.Context) financial.Result[[]*company.Company] {
	return f.companies
}

func (f *fakeData) GetBalanceSheets(ctx context.Context, id company.ID, filter balancesheets.Filter) financial.Result[[]*balancesheets.BalanceSheet] {
	f.lastSheet = filter
	return financial.Result[[]*balancesheets.BalanceSheet]{Success: true, Data: f.sheets}
}

func (f *fakeData) GetDocuments(ctx context.Context, id company.ID) financial.Result[[]*documents.Document] {
	return financial.Result[[]*documents.Document]{Success: true, Data: f.docs}
}

func (f *fakeData) GetDocument(ctx context.Context, id documents.ID) financial.Result[*documents.Document] {
	for _, d := range f.docs {
		if d.ID == id {
			return financial.Result[*documents.Document]{Success: true, Data: d}
		}
	}
	return financial.Result[*documents.Document]{Error: documents.ErrNotFound.Error()}
}

func (f *fakeData) SaveQuery(ctx context.Context, userID string, companyID company.ID, q, resp string, chart []byte) financial.Result[*queries.Entry] {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saved = append(f.saved, q)
	return financial.Result[*queries.Entry]{Success: true, Data: &queries.Entry{ID: "q1", UserID: userID, CompanyID: companyID, QueryText: q}}
}

func (f *fakeData) GetQueryHistory(ctx context.Context, userID string, limit int) financial.Result[[]*queries.Entry] {
	return financial.Result[[]*queries.Entry]{Success: true, Data: []*queries.Entry{}}
}

func (f *fakeData) GetFinancialMetrics(ctx context.Context, ids []company.ID, years int) financial.Result[[]*balancesheets.BalanceSheet] {
	return financial.Result[[]*balancesheets.BalanceSheet]{Success: true, Data: f.sheets}
}

func (f *fakeData) DeleteDocuments(ctx context.Context, ids ...documents.ID) financial.Result[int64] {
	f.deleted = append(f.deleted, ids...)
	return financial.Result[int64]{Success: true, Data: int64(len(ids))}
}

func (f *fakeData) subscribe(t realtime.Table, cb realtime.Handler) realtime.Unsubscribe {
	f.mu.Lock()
	if f.handlers == nil {
		f.handlers = map[realtime.Table]realtime.Handler{}
	}
	f.handlers[t] = cb
	f.mu.Unlock()
	if f.subs != nil {
		f.subs <- t
	}
	return func() {
		f.mu.Lock()
		delete(f.handlers, t)
		f.mu.Unlock()
	}
}

func (f *fakeData) SubscribeToDocuments(id company.ID, cb realtime.Handler) realtime.Unsubscribe {
	return f.subscribe(realtime.TableDocuments, cb)
}

func (f *fakeData) SubscribeToBalanceSheets(id company.ID, cb realtime.Handler) realtime.Unsubscribe {
	return f.subscribe(realtime.TableBalanceSheets, cb)
}

func (f *fakeData) emit(t realtime.Table, c realtime.Change) {
	f.mu.Lock()
	h := f.handlers[t]
	f.mu.Unlock()
	if h != nil {
		h(c)
	}
}

type memUsers struct {
	mu   sync.Mutex
	list []*users.ManagedUser
}

func (m *memUsers) List(ctx context.Context) ([]*users.ManagedUser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*users.ManagedUser(nil), m.list...), nil
}

func (m *memUsers) Get(ctx context.Context, id string) (*users.ManagedUser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.list {
		if u.ID == id {
			cp := *u
			return &cp, nil
		}
	}
	return nil, users.ErrNotFound
}

func (m *memUsers) Create(ctx context.Context, u *users.ManagedUser, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.list = append(m.list, u)
	return nil
}

func (m *memUsers) Update(ctx context.Context, u *users.ManagedUser, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, x := range m.list {
		if x.ID == u.ID {
			m.list[i] = u
			return nil
		}
	}
	return users.ErrNotFound
}

func (m *memUsers) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, x := range m.list {
		if x.ID == id {
			m.list = append(m.list[:i], m.list[i+1:]...)
			return nil
		}
	}
	return users.ErrNotFound
}

func (m *memUsers) SetStatus(ctx context.Context, st users.Status, ids ...string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, x := range m.list {
		for _, id := range ids {
			if x.ID == id {
				x.Status = st
				n++
			}
		}
	}
	return n, nil
}

type stubFacade struct{}

func (stubFacade) UploadDocument(ctx context.Context, f documents.File, body []byte, companyID company.ID, userID string) financial.Result[*documents.Document] {
	return financial.Result[*documents.Document]{Success: true, Data: &documents.Document{ID: "d-new", CompanyID: companyID}}
}

func (stubFacade) SetDocumentStatus(ctx context.Context, id documents.ID, st documents.Status, extracted int) financial.Result[*documents.Document] {
	return financial.Result[*documents.Document]{Success: true, Data: &documents.Document{ID: id, Status: st}}
}

type stubProcessor struct{}

func (stubProcessor) Process(ctx context.Context, d *documents.Document) (documents.ExtractionResult, error) {
	return documents.ExtractionResult{ExtractedMetrics: 12}, nil
}

type stubPresigner struct{}

func (stubPresigner) PresignedURL(ctx context.Context, key, name string, ttl time.Duration) (string, error) {
	return "https://objects.example.com/documents/" + key + "?sig=abc", nil
}

// ==== harness ====

type harness struct {
	data    *fakeData
	users   *memUsers
	tracker *uploads.Tracker
	handler http.Handler
}

func newHarness(t *testing.T, mutate ...func(*Deps)) *harness {
	t.Helper()
	log := zaptest.NewLogger(t)
	clock := application.FixedClock(now)

	data := &fakeData{
		companies: financial.Result[[]*company.Company]{Success: true, Data: []*company.Company{{ID: "c1", Name: "Acme"}}},
		docs: []*documents.Document{
			{ID: "d1", OriginalFilename: "beta.pdf", Status: documents.StatusProcessed, CreatedAt: now.Add(-2 * time.Hour), Filename: "1-beta.pdf"},
			{ID: "d2", OriginalFilename: "alpha.pdf", Status: documents.StatusPending, CreatedAt: now.Add(-time.Hour), Filename: "2-alpha.pdf"},
		},
	}
	repo := &memUsers{list: []*users.ManagedUser{
		{ID: "u-analyst", Name: "Ana Lyst", Email: "ana@example.com", Role: identity.RoleAnalyst, Companies: []string{"Acme"}, Status: users.StatusActive},
	}}
	userSvc := appusers.NewService(repo, clock, log)
	userSvc.HashCost = bcrypt.MinCost

	tracker := uploads.NewTracker(stubFacade{}, stubProcessor{}, clock, log)
	tracker.Step = time.Millisecond
	tracker.Increment = 50
	t.Cleanup(tracker.Close)

	d := Deps{
		Auth:      auth.NewService(fakeProvider{}, log),
		Data:      data,
		Uploads:   tracker,
		Chat:      appai.NewService(mock.NewResponderWithSeed(7), data, clock, log),
		Users:     userSvc,
		Dashboard: dashboard.NewService(clock, time.UTC),
		Analysis:  analysis.NewService(data),
		Presigner: stubPresigner{},
		Metrics:   middleware.NewMetrics("test"),
		Logger:    log,
		Heartbeat: time.Hour,
	}
	for _, m := range mutate {
		m(&d)
	}
	return &harness{data: data, users: repo, tracker: tracker, handler: NewRouter(d)}
}

func (h *harness) do(t *testing.T, method, target, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)
	return rec
}

type envelope struct {
	Success bool              `json:"success"`
	Data    json.RawMessage   `json:"data"`
	Error   string            `json:"error"`
	Errors  map[string]string `json:"errors"`
}

func decodeEnv(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return env
}

// ==== tests ====

func TestProbes(t *testing.T) {
	h := newHarness(t)

	rec := h.do(t, http.MethodGet, "/live", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = h.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = h.do(t, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "test_http_requests_total")
}

func TestAuthRequired(t *testing.T) {
	h := newHarness(t)

	rec := h.do(t, http.MethodGet, "/v1/companies", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = h.do(t, http.MethodGet, "/v1/companies", "bogus", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = h.do(t, http.MethodGet, "/v1/companies", "revoked-token", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, identity.ErrTokenRevoked.Error(), decodeEnv(t, rec).Error)
}

func TestSignIn(t *testing.T) {
	h := newHarness(t)

	rec := h.do(t, http.MethodPost, "/v1/auth/signin", "", map[string]string{"email": "ana@example.com", "password": "secret123"})
	require.Equal(t, http.StatusOK, rec.Code)
	var sess identity.Session
	require.NoError(t, json.Unmarshal(decodeEnv(t, rec).Data, &sess))
	assert.Equal(t, "analyst-token", sess.AccessToken)

	rec = h.do(t, http.MethodPost, "/v1/auth/signin", "", map[string]string{"email": "ana@example.com", "password": "nope"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, identity.ErrInvalidCredentials.Error(), decodeEnv(t, rec).Error)

	rec = h.do(t, http.MethodPost, "/v1/auth/signin", "", map[string]string{"email": ""})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/v1/auth/signin", strings.NewReader("{"))
	raw := httptest.NewRecorder()
	h.handler.ServeHTTP(raw, req)
	assert.Equal(t, http.StatusBadRequest, raw.Code)
}

func TestSignUp(t *testing.T) {
	h := newHarness(t)

	rec := h.do(t, http.MethodPost, "/v1/auth/signup", "", map[string]string{"email": "new@example.com", "password": "abc", "full_name": "N"})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	env := decodeEnv(t, rec)
	assert.Equal(t, "Password must be at least 6 characters", env.Error)
	assert.Len(t, env.Errors, 1)

	rec = h.do(t, http.MethodPost, "/v1/auth/signup", "", map[string]string{"email": "taken@example.com", "password": "abcdef", "full_name": "T"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = h.do(t, http.MethodPost, "/v1/auth/signup", "", map[string]string{"email": "boss@example.com", "password": "abcdef", "full_name": "Boss", "role": "group_admin"})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, map[string]string{"role": "Please select a valid role"}, decodeEnv(t, rec).Errors)

	rec = h.do(t, http.MethodPost, "/v1/auth/signup", "", map[string]string{"email": "new@example.com", "password": "abcdef", "full_name": "New", "role": "ceo"})
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestMeAndDashboard(t *testing.T) {
	h := newHarness(t)

	rec := h.do(t, http.MethodGet, "/v1/auth/me", "analyst-token", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var prof identity.UserProfile
	require.NoError(t, json.Unmarshal(decodeEnv(t, rec).Data, &prof))
	assert.Equal(t, identity.RoleAnalyst, prof.Role)

	rec = h.do(t, http.MethodGet, "/v1/dashboard", "admin-token", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var view dashboard.View
	require.NoError(t, json.Unmarshal(decodeEnv(t, rec).Data, &view))
	assert.Equal(t, "Good morning, Ad Min - Group Administrator", view.Greeting)
	assert.Empty(t, view.Navigation)

	rec = h.do(t, http.MethodPost, "/v1/auth/signout", "analyst-token", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestEnvelopeFailureStaysOK(t *testing.T) {
	h := newHarness(t)
	h.data.companies = financial.Result[[]*company.Company]{Error: financial.MsgDatabaseUnreachable}

	rec := h.do(t, http.MethodGet, "/v1/companies", "analyst-token", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	env := decodeEnv(t, rec)
	assert.False(t, env.Success)
	assert.Equal(t, financial.MsgDatabaseUnreachable, env.Error)
}

func TestEmptyDataIsWritten(t *testing.T) {
	h := newHarness(t)
	h.data.companies = financial.Result[[]*company.Company]{Success: true, Data: []*company.Company{}}

	rec := h.do(t, http.MethodGet, "/v1/companies", "analyst-token", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true,"data":[]}`, rec.Body.String())

	rec = h.do(t, http.MethodGet, "/v1/query-history", "analyst-token", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true,"data":[]}`, rec.Body.String())

	h.data.companies = financial.Result[[]*company.Company]{Error: financial.MsgDatabaseUnreachable}
	rec = h.do(t, http.MethodGet, "/v1/companies", "analyst-token", nil)
	assert.JSONEq(t, `{"success":false,"error":"`+financial.MsgDatabaseUnreachable+`"}`, rec.Body.String())
}

func TestBalanceSheetFilters(t *testing.T) {
	h := newHarness(t)

	rec := h.do(t, http.MethodGet, "/v1/companies/c1/balance-sheets?startYear=2021&endYear=2023&status=processed", "analyst-token", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, balancesheets.Filter{StartYear: 2021, EndYear: 2023, Status: documents.StatusProcessed}, h.data.lastSheet)

	for _, q := range []string{"startYear=abc", "startYear=2024&endYear=2020", "status=weird"} {
		rec = h.do(t, http.MethodGet, "/v1/companies/c1/balance-sheets?"+q, "analyst-token", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code, q)
	}

	rec = h.do(t, http.MethodGet, "/v1/companies/c1;drop/balance-sheets", "analyst-token", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDocumentTable(t *testing.T) {
	h := newHarness(t)

	ids := func(rec *httptest.ResponseRecorder) []documents.ID {
		var list []*documents.Document
		require.NoError(t, json.Unmarshal(decodeEnv(t, rec).Data, &list))
		out := make([]documents.ID, len(list))
		for i, d := range list {
			out[i] = d.ID
		}
		return out
	}

	rec := h.do(t, http.MethodGet, "/v1/companies/c1/documents", "analyst-token", nil)
	assert.Equal(t, []documents.ID{"d2", "d1"}, ids(rec))

	rec = h.do(t, http.MethodGet, "/v1/companies/c1/documents?sort=fileName", "analyst-token", nil)
	assert.Equal(t, []documents.ID{"d2", "d1"}, ids(rec))

	rec = h.do(t, http.MethodGet, "/v1/companies/c1/documents?sort=fileName&desc=true", "analyst-token", nil)
	assert.Equal(t, []documents.ID{"d1", "d2"}, ids(rec))

	rec = h.do(t, http.MethodGet, "/v1/companies/c1/documents?status=processed", "analyst-token", nil)
	assert.Equal(t, []documents.ID{"d1"}, ids(rec))

	rec = h.do(t, http.MethodGet, "/v1/companies/c1/documents?search=ALPHA", "analyst-token", nil)
	assert.Equal(t, []documents.ID{"d2"}, ids(rec))
}

func TestDocumentDownloadAndDelete(t *testing.T) {
	h := newHarness(t)

	rec := h.do(t, http.MethodGet, "/v1/documents/d1/download", "analyst-token", nil)
	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "https://objects.example.com/documents/1-beta.pdf?sig=abc", rec.Header().Get("Location"))

	rec = h.do(t, http.MethodGet, "/v1/documents/missing/download", "analyst-token", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = h.do(t, http.MethodDelete, "/v1/documents/d1", "analyst-token", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = h.do(t, http.MethodPost, "/v1/documents/bulk-delete", "analyst-token", map[string]any{"ids": []string{"d2", "d3"}})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []documents.ID{"d1", "d2", "d3"}, h.data.deleted)

	rec = h.do(t, http.MethodPost, "/v1/documents/bulk-delete", "analyst-token", map[string]any{"ids": []string{}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func multipartUpload(t *testing.T, name, contentType string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	hdr := make(textproto.MIMEHeader)
	hdr.Set("Content-Disposition", `form-data; name="file"; filename="`+name+`"`)
	hdr.Set("Content-Type", contentType)
	part, err := mw.CreatePart(hdr)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestUploadLifecycle(t *testing.T) {
	h := newHarness(t)

	send := func(name, ct string, content []byte) *httptest.ResponseRecorder {
		body, formType := multipartUpload(t, name, ct, content)
		req := httptest.NewRequest(http.MethodPost, "/v1/companies/c1/documents", body)
		req.Header.Set("Content-Type", formType)
		req.Header.Set("Authorization", "Bearer analyst-token")
		rec := httptest.NewRecorder()
		h.handler.ServeHTTP(rec, req)
		return rec
	}

	rec := send("notes.txt", "text/plain", []byte("hello"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, documents.ErrNotPDF.Error(), decodeEnv(t, rec).Error)

	rec = send("empty.pdf", "application/pdf", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = send("report.pdf", "application/pdf", []byte("%PDF-1.4"))
	require.Equal(t, http.StatusAccepted, rec.Code)
	var up uploads.Upload
	require.NoError(t, json.Unmarshal(decodeEnv(t, rec).Data, &up))
	assert.Equal(t, "report.pdf", up.FileName)

	require.Eventually(t, func() bool {
		got, err := h.tracker.Get("u-analyst", up.ID)
		return err == nil && got.Stage == uploads.StageCompleted
	}, 2*time.Second, 5*time.Millisecond)

	rec = h.do(t, http.MethodGet, "/v1/uploads/"+up.ID, "analyst-token", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = h.do(t, http.MethodGet, "/v1/uploads/"+up.ID, "admin-token", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = h.do(t, http.MethodPost, "/v1/uploads/"+up.ID+"/retry", "analyst-token", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = h.do(t, http.MethodDelete, "/v1/uploads/"+up.ID, "analyst-token", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = h.do(t, http.MethodGet, "/v1/uploads", "analyst-token", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, string(decodeEnv(t, rec).Data))
}

func TestAIChat(t *testing.T) {
	h := newHarness(t)

	rec := h.do(t, http.MethodGet, "/v1/ai/session", "analyst-token", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var sess appai.SessionView
	require.NoError(t, json.Unmarshal(decodeEnv(t, rec).Data, &sess))
	require.Len(t, sess.Messages, 1)
	assert.Equal(t, "welcome", sess.Messages[0].ID)

	rec = h.do(t, http.MethodPost, "/v1/ai/query", "analyst-token", map[string]string{"query": "Show me revenue trends", "company_id": "c1"})
	require.Equal(t, http.StatusOK, rec.Code)
	var msg appai.Message
	require.NoError(t, json.Unmarshal(decodeEnv(t, rec).Data, &msg))
	assert.Equal(t, appai.MessageAI, msg.Type)
	assert.Equal(t, []string{"Show me revenue trends"}, h.data.saved)

	rec = h.do(t, http.MethodPost, "/v1/ai/query", "analyst-token", map[string]string{"query": "   "})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = h.do(t, http.MethodDelete, "/v1/ai/chat", "analyst-token", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = h.do(t, http.MethodGet, "/v1/ai/suggestions?q=calculate", "analyst-token", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var sugg []string
	require.NoError(t, json.Unmarshal(decodeEnv(t, rec).Data, &sugg))
	assert.Len(t, sugg, 2)

	rec = h.do(t, http.MethodGet, "/v1/ai/templates", "analyst-token", nil)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestUserManagement(t *testing.T) {
	h := newHarness(t)

	rec := h.do(t, http.MethodGet, "/v1/users", "analyst-token", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = h.do(t, http.MethodPost, "/v1/users", "admin-token", map[string]any{"email": "bad"})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	env := decodeEnv(t, rec)
	assert.Equal(t, "Name is required", env.Errors["name"])
	assert.Equal(t, "Please enter a valid email address", env.Errors["email"])
	assert.Equal(t, "Password is required", env.Errors["password"])

	rec = h.do(t, http.MethodPost, "/v1/users", "admin-token", map[string]any{
		"name": "Cee Oh", "email": "CEO@Example.com", "role": "ceo", "companies": []string{"Acme"},
		"password": "longenough", "confirmPassword": "longenough",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	var created users.ManagedUser
	require.NoError(t, json.Unmarshal(decodeEnv(t, rec).Data, &created))
	assert.Equal(t, "ceo@example.com", created.Email)

	rec = h.do(t, http.MethodGet, "/v1/users?role=ceo", "admin-token", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list []users.ManagedUser
	require.NoError(t, json.Unmarshal(decodeEnv(t, rec).Data, &list))
	require.Len(t, list, 1)

	rec = h.do(t, http.MethodPost, "/v1/users/u-analyst/toggle-status", "admin-token", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = h.do(t, http.MethodPost, "/v1/users/bulk-status", "admin-token", map[string]any{"status": "pending", "ids": []string{"u-analyst"}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = h.do(t, http.MethodGet, "/v1/users/stats", "admin-token", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var st users.Stats
	require.NoError(t, json.Unmarshal(decodeEnv(t, rec).Data, &st))
	assert.Equal(t, 2, st.Total)
	assert.Equal(t, 1, st.Inactive)

	rec = h.do(t, http.MethodDelete, "/v1/users/nobody", "admin-token", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = h.do(t, http.MethodDelete, "/v1/users/u-admin", "admin-token", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStatusFor(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{identity.ErrUnauthenticated, http.StatusUnauthorized},
		{identity.ErrEmailTaken, http.StatusConflict},
		{uploads.ErrNotFound, http.StatusNotFound},
		{documents.ErrTooLarge, http.StatusRequestEntityTooLarge},
		{errBadRequest("nope"), http.StatusBadRequest},
		{errors.New("boom"), http.StatusInternalServerError},
		{errors.Join(users.ErrNotFound), http.StatusNotFound},
		{appusers.ErrInvalidStatus, http.StatusBadRequest},
		{auth.ErrMissingCredentials, http.StatusBadRequest},
		{identity.ErrInvalidCredentials, http.StatusUnauthorized},
		{identity.ErrTokenRevoked, http.StatusUnauthorized},
		{uploads.ErrNotRetried, http.StatusConflict},
		{documents.ErrNotPDF, http.StatusBadRequest},
		{identity.ErrProfileNotFound, http.StatusNotFound},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, statusFor(c.err), c.err.Error())
	}
}

func TestInternalErrorsAreHidden(t *testing.T) {
	r := &Router{}
	rec := httptest.NewRecorder()
	r.wrap(func(w http.ResponseWriter, req *http.Request) error {
		return errors.New("pq: password authentication failed")
	})(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "pq:")
}

func TestStream(t *testing.T) {
	subs := make(chan realtime.Table, 1)
	h := newHarness(t)
	h.data.subs = subs

	srv := httptest.NewServer(h.handler)
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/v1/companies/c1/documents/stream?access_token=analyst-token", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	select {
	case tbl := <-subs:
		assert.Equal(t, realtime.TableDocuments, tbl)
	case <-time.After(2 * time.Second):
		t.Fatal("stream never subscribed")
	}

	rd := bufio.NewReader(resp.Body)
	readEvent := func() (string, string) {
		var event, data string
		for {
			line, err := rd.ReadString('\n')
			require.NoError(t, err)
			line = strings.TrimRight(line, "\n")
			switch {
			case line == "":
				return event, data
			case strings.HasPrefix(line, "event: "):
				event = strings.TrimPrefix(line, "event: ")
			case strings.HasPrefix(line, "data: "):
				data = strings.TrimPrefix(line, "data: ")
			}
		}
	}

	event, data := readEvent()
	assert.Equal(t, "connected", event)
	assert.Contains(t, data, "documents:company_id=eq.c1")

	h.data.emit(realtime.TableDocuments, realtime.Change{Table: realtime.TableDocuments, Type: realtime.EventInsert, CompanyID: "c1", New: json.RawMessage(`{"id":"d9"}`)})
	event, data = readEvent()
	assert.Equal(t, "change", event)
	var c realtime.Change
	require.NoError(t, json.Unmarshal([]byte(data), &c))
	assert.Equal(t, realtime.EventInsert, c.Type)
	assert.JSONEq(t, `{"id":"d9"}`, string(c.New))

	cancel()
	require.Eventually(t, func() bool {
		h.data.mu.Lock()
		defer h.data.mu.Unlock()
		return len(h.data.handlers) == 0
	}, 2*time.Second, 10*time.Millisecond)
}

func TestSPA(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "index.html"), []byte("<html>app</html>"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "assets"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "assets", "app.js"), []byte("console.log(1)"), 0o644))

	h := newHarness(t, func(d *Deps) { d.WebRoot = root })

	for _, p := range []string{"/", "/login", "/user-management", "/financial-data-analysis"} {
		rec := h.do(t, http.MethodGet, p, "", nil)
		assert.Equal(t, http.StatusOK, rec.Code, p)
		assert.Contains(t, rec.Body.String(), "app", p)
	}

	rec := h.do(t, http.MethodGet, "/assets/app.js", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = h.do(t, http.MethodGet, "/no-such-page", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRateLimit(t *testing.T) {
	limiter := middleware.NewRateLimiter(2, 1)
	t.Cleanup(limiter.Stop)
	h := newHarness(t, func(d *Deps) { d.Limiter = limiter })

	for i := 0; i < 2; i++ {
		rec := h.do(t, http.MethodGet, "/v1/companies", "analyst-token", nil)
		require.Equal(t, http.StatusOK, rec.Code)
	}
	rec := h.do(t, http.MethodGet, "/v1/companies", "analyst-token", nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	rec = h.do(t, http.MethodGet, "/v1/companies", "admin-token", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}
