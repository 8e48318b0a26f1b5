package documents

import (
	"errors"
	"time"

	"github.com/bryanwahyu/balancesheet-gpt/internal/domain/company"
)

type ID string

// Status enum
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusProcessed  Status = "processed"
	StatusFailed     Status = "failed"
)

// Valid reports whether s is one of the known document statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusProcessed, StatusFailed:
		return true
	}
	return false
}

// MaxFileSize is the largest upload accepted (50 MB).
const MaxFileSize int64 = 50 * 1024 * 1024

// Bucket is the object-store bucket documents live in.
const Bucket = "documents"

var (
	ErrNotFound    = errors.New("document not found")
	ErrNotPDF      = errors.New("only PDF files are allowed")
	ErrTooLarge    = errors.New("file size must be less than 50MB")
	ErrEmptyUpload = errors.New("file is empty")
)

// Uploader is the profile subset joined onto a document.
type Uploader struct {
	FullName string `json:"full_name"`
	Email    string `json:"email"`
}

// Aggregate Root: Document
type Document struct {
	ID               ID         `json:"id"`
	Filename         string     `json:"filename"`
	OriginalFilename string     `json:"original_filename"`
	FileSize         int64      `json:"file_size"`
	FileURL          string     `json:"file_url"`
	CompanyID        company.ID `json:"company_id"`
	UploadedBy       string     `json:"uploaded_by"`
	Status           Status     `json:"status"`
	ExtractedMetrics int        `json:"extracted_metrics"`
	CreatedAt        time.Time  `json:"created_at"`

	Company  *company.Company `json:"companies,omitempty"`
	Uploader *Uploader        `json:"user_profiles,omitempty"`
}

// File is an incoming upload.
type File struct {
	Name        string
	ContentType string
	Size        int64
}

// ExtractionResult is what a Processor reports back for one document.
type ExtractionResult struct {
	ExtractedMetrics int `json:"extracted_metrics"`
}
