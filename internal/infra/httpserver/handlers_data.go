package httpserver

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/bryanwahyu/balancesheet-gpt/internal/domain/balancesheets"
	"github.com/bryanwahyu/balancesheet-gpt/internal/domain/company"
	"github.com/bryanwahyu/balancesheet-gpt/internal/domain/documents"
	"github.com/bryanwahyu/balancesheet-gpt/internal/middleware"
)

const downloadTTL = 15 * time.Minute

// GET /v1/companies
func (r *Router) handleCompanies(w http.ResponseWriter, req *http.Request) error {
	return writeResult(w, r.Data.GetCompanies(req.Context()))
}

// GET /v1/companies/{companyID}/balance-sheets?startYear=&endYear=&status=
func (r *Router) handleBalanceSheets(w http.ResponseWriter, req *http.Request) error {
	companyID, err := pathID(req, "companyID")
	if err != nil {
		return err
	}

	q := req.URL.Query()
	start, err := middleware.ParseYear(q.Get("startYear"))
	if err != nil {
		return errBadRequest(err.Error())
	}
	end, err := middleware.ParseYear(q.Get("endYear"))
	if err != nil {
		return errBadRequest(err.Error())
	}
	if err := middleware.ValidateYearRange(start, end); err != nil {
		return errBadRequest(err.Error())
	}
	status := balancesheets.Status(q.Get("status"))
	if status != "" && !status.Valid() {
		return errBadRequest("invalid status: " + string(status))
	}

	f := balancesheets.Filter{StartYear: start, EndYear: end, Status: status}
	return writeResult(w, r.Data.GetBalanceSheets(req.Context(), company.ID(companyID), f))
}

// GET /v1/companies/{companyID}/documents?search=&status=&sort=&desc=
func (r *Router) handleDocuments(w http.ResponseWriter, req *http.Request) error {
	companyID, err := pathID(req, "companyID")
	if err != nil {
		return err
	}

	res := r.Data.GetDocuments(req.Context(), company.ID(companyID))
	if !res.Success {
		return writeResult(w, res)
	}

	q := req.URL.Query()
	filter := documents.TableFilter{
		Search: middleware.SanitizeString(q.Get("search")),
		Status: q.Get("status"),
	}
	sort := documents.DefaultTableSort
	if f := q.Get("sort"); f != "" {
		sort = documents.TableSort{Field: documents.SortField(f)}
		sort.Desc, _ = strconv.ParseBool(q.Get("desc"))
	}
	res.Data = documents.ApplyTable(res.Data, filter, sort)
	return writeResult(w, res)
}

// GET /v1/documents/{id}/download
// Redirects to a presigned object URL.
func (r *Router) handleDownload(w http.ResponseWriter, req *http.Request) error {
	id, err := pathID(req, "id")
	if err != nil {
		return err
	}

	res := r.Data.GetDocument(req.Context(), documents.ID(id))
	if !res.Success {
		if res.Error == documents.ErrNotFound.Error() {
			return documents.ErrNotFound
		}
		return writeResult(w, res)
	}

	if r.Presigner == nil {
		http.Redirect(w, req, res.Data.FileURL, http.StatusFound)
		return nil
	}
	url, err := r.Presigner.PresignedURL(req.Context(), res.Data.Filename, res.Data.OriginalFilename, downloadTTL)
	if err != nil {
		return err
	}
	http.Redirect(w, req, url, http.StatusFound)
	return nil
}

// DELETE /v1/documents/{id}
func (r *Router) handleDeleteDocument(w http.ResponseWriter, req *http.Request) error {
	id, err := pathID(req, "id")
	if err != nil {
		return err
	}
	return writeResult(w, r.Data.DeleteDocuments(req.Context(), documents.ID(id)))
}

// POST /v1/documents/bulk-delete
// Body: {"ids": ["..."]}
func (r *Router) handleBulkDelete(w http.ResponseWriter, req *http.Request) error {
	var body struct {
		IDs []string `json:"ids"`
	}
	if err := decode(req, &body); err != nil {
		return err
	}
	if len(body.IDs) == 0 {
		return errBadRequest("ids is required")
	}

	ids := make([]documents.ID, 0, len(body.IDs))
	for _, id := range body.IDs {
		if err := middleware.ValidateID(id); err != nil {
			return errBadRequest(err.Error())
		}
		ids = append(ids, documents.ID(id))
	}
	return writeResult(w, r.Data.DeleteDocuments(req.Context(), ids...))
}

// companyIDs reads ?companyIds=a,b or repeated ?companyId= values.
func companyIDs(req *http.Request) ([]company.ID, error) {
	q := req.URL.Query()
	raw := q["companyId"]
	if v := q.Get("companyIds"); v != "" {
		raw = append(raw, strings.Split(v, ",")...)
	}

	out := make([]company.ID, 0, len(raw))
	for _, id := range raw {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if err := middleware.ValidateID(id); err != nil {
			return nil, errBadRequest(err.Error())
		}
		out = append(out, company.ID(id))
	}
	return out, nil
}

func years(req *http.Request) int {
	n, _ := strconv.Atoi(req.URL.Query().Get("years"))
	return middleware.ValidateYears(n)
}

// GET /v1/financial-metrics?companyIds=a,b&years=3
func (r *Router) handleFinancialMetrics(w http.ResponseWriter, req *http.Request) error {
	ids, err := companyIDs(req)
	if err != nil {
		return err
	}
	return writeResult(w, r.Data.GetFinancialMetrics(req.Context(), ids, years(req)))
}

// GET /v1/analysis?companyIds=a,b&years=3
func (r *Router) handleAnalysis(w http.ResponseWriter, req *http.Request) error {
	ids, err := companyIDs(req)
	if err != nil {
		return err
	}
	return writeResult(w, r.Analysis.Report(req.Context(), ids, years(req)))
}

// GET /v1/query-history?limit=20
func (r *Router) handleQueryHistory(w http.ResponseWriter, req *http.Request) error {
	p, err := principal(req)
	if err != nil {
		return err
	}
	limit, _ := strconv.Atoi(req.URL.Query().Get("limit"))
	return writeResult(w, r.Data.GetQueryHistory(req.Context(), p.UserID, middleware.ValidateLimit(limit)))
}

// POST /v1/query-history
// Body: {"company_id": "...", "query_text": "...", "response_text": "...", "chart_data": {...}}
func (r *Router) handleSaveQuery(w http.ResponseWriter, req *http.Request) error {
	p, err := principal(req)
	if err != nil {
		return err
	}
	var body struct {
		CompanyID    string          `json:"company_id"`
		QueryText    string          `json:"query_text"`
		ResponseText string          `json:"response_text"`
		ChartData    json.RawMessage `json:"chart_data"`
	}
	if err := decode(req, &body); err != nil {
		return err
	}
	if strings.TrimSpace(body.QueryText) == "" {
		return errBadRequest("query_text is required")
	}

	var chart []byte
	if len(body.ChartData) > 0 && string(body.ChartData) != "null" {
		chart = body.ChartData
	}
	return writeResult(w, r.Data.SaveQuery(req.Context(), p.UserID, company.ID(body.CompanyID), body.QueryText, body.ResponseText, chart))
}
