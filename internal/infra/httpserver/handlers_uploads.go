package httpserver

import (
	"errors"
	"io"
	"net/http"

	"github.com/bryanwahyu/balancesheet-gpt/internal/domain/company"
	"github.com/bryanwahyu/balancesheet-gpt/internal/domain/documents"
	"github.com/bryanwahyu/balancesheet-gpt/internal/middleware"
)

// multipart overhead allowed on top of the file itself
const formSlack = 1 << 20

// POST /v1/companies/{companyID}/documents
// multipart/form-data, field "file". Returns 202 with the tracked upload;
// progress is polled on /v1/uploads/{id}.
func (r *Router) handleStartUpload(w http.ResponseWriter, req *http.Request) error {
	p, err := principal(req)
	if err != nil {
		return err
	}
	companyID, err := pathID(req, "companyID")
	if err != nil {
		return err
	}

	req.Body = http.MaxBytesReader(w, req.Body, documents.MaxFileSize+formSlack)
	file, hdr, err := req.FormFile("file")
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			return documents.ErrTooLarge
		}
		return errBadRequest("file is required")
	}
	defer file.Close()

	if err := middleware.ValidateFileName(hdr.Filename); err != nil {
		return errBadRequest(err.Error())
	}
	f := documents.File{
		Name:        hdr.Filename,
		ContentType: hdr.Header.Get("Content-Type"),
		Size:        hdr.Size,
	}

	body, err := io.ReadAll(file)
	if err != nil {
		return err
	}
	up, err := r.Uploads.Start(p.UserID, company.ID(companyID), f, body)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusAccepted, map[string]any{"success": true, "data": up})
}

// GET /v1/uploads
func (r *Router) handleListUploads(w http.ResponseWriter, req *http.Request) error {
	p, err := principal(req)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": r.Uploads.List(p.UserID)})
}

// GET /v1/uploads/{id}
func (r *Router) handleGetUpload(w http.ResponseWriter, req *http.Request) error {
	p, err := principal(req)
	if err != nil {
		return err
	}
	id, err := pathID(req, "id")
	if err != nil {
		return err
	}
	up, err := r.Uploads.Get(p.UserID, id)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": up})
}

// POST /v1/uploads/{id}/retry
func (r *Router) handleRetryUpload(w http.ResponseWriter, req *http.Request) error {
	p, err := principal(req)
	if err != nil {
		return err
	}
	id, err := pathID(req, "id")
	if err != nil {
		return err
	}
	up, err := r.Uploads.Retry(p.UserID, id)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusAccepted, map[string]any{"success": true, "data": up})
}

// DELETE /v1/uploads/{id}
func (r *Router) handleCancelUpload(w http.ResponseWriter, req *http.Request) error {
	p, err := principal(req)
	if err != nil {
		return err
	}
	id, err := pathID(req, "id")
	if err != nil {
		return err
	}
	if err := r.Uploads.Cancel(p.UserID, id); err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, map[string]any{"success": true})
}
