package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/bryanwahyu/balancesheet-gpt/internal/domain/company"
	"github.com/bryanwahyu/balancesheet-gpt/internal/domain/documents"
)

type DocumentRepository struct {
	db *sql.DB
}

func NewDocumentRepository(db *sql.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

const documentColumns = `
d.id, d.filename, d.original_filename, d.file_size, d.file_url, d.company_id,
d.uploaded_by, d.status, d.extracted_metrics, d.created_at,
c.id, c.name, COALESCE(c.parent_group, ''),
COALESCE(p.full_name, ''), COALESCE(p.email, '')
FROM documents d
JOIN companies c ON c.id = d.company_id
LEFT JOIN user_profiles p ON p.id = d.uploaded_by`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(s rowScanner) (*documents.Document, error) {
	var d documents.Document
	var c company.Company
	var u documents.Uploader
	if err := s.Scan(
		&d.ID, &d.Filename, &d.OriginalFilename, &d.FileSize, &d.FileURL, &d.CompanyID,
		&d.UploadedBy, &d.Status, &d.ExtractedMetrics, &d.CreatedAt,
		&c.ID, &c.Name, &c.ParentGroup,
		&u.FullName, &u.Email,
	); err != nil {
		return nil, err
	}
	d.Company = &c
	if u.FullName != "" || u.Email != "" {
		d.Uploader = &u
	}
	return &d, nil
}

// Insert stores a new document row and returns it as written
func (r *DocumentRepository) Insert(ctx context.Context, d *documents.Document) (*documents.Document, error) {
	const q = `
INSERT INTO documents
  (id, filename, original_filename, file_size, file_url, company_id, uploaded_by, status, extracted_metrics, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
RETURNING created_at;`

	out := *d
	if out.ID == "" {
		out.ID = documents.ID(uuid.NewString())
	}
	if out.Status == "" {
		out.Status = documents.StatusPending
	}
	createdAt := out.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	err := r.db.QueryRowContext(ctx, q,
		out.ID, out.Filename, out.OriginalFilename, out.FileSize, out.FileURL,
		out.CompanyID, out.UploadedBy, out.Status, out.ExtractedMetrics, createdAt,
	).Scan(&out.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// ListByCompany returns a company's documents, newest first
func (r *DocumentRepository) ListByCompany(ctx context.Context, companyID company.ID) ([]*documents.Document, error) {
	q := `SELECT ` + documentColumns + `
WHERE d.company_id = $1
ORDER BY d.created_at DESC, d.id DESC;`
	rows, err := r.db.QueryContext(ctx, q, companyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*documents.Document
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (r *DocumentRepository) Get(ctx context.Context, id documents.ID) (*documents.Document, error) {
	q := `SELECT ` + documentColumns + `
WHERE d.id = $1;`
	d, err := scanDocument(r.db.QueryRowContext(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, documents.ErrNotFound
	}
	return d, err
}

func (r *DocumentRepository) UpdateStatus(ctx context.Context, id documents.ID, status documents.Status, extractedMetrics int) error {
	const q = `UPDATE documents SET status = $2, extracted_metrics = $3 WHERE id = $1;`
	res, err := r.db.ExecContext(ctx, q, id, status, extractedMetrics)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return documents.ErrNotFound
	}
	return nil
}

// Delete removes the given documents and reports how many rows went away
func (r *DocumentRepository) Delete(ctx context.Context, ids ...documents.ID) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	const q = `DELETE FROM documents WHERE id = ANY($1);`
	res, err := r.db.ExecContext(ctx, q, pq.Array(toStrings(ids)))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
