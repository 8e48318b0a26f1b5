package postgres

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryanwahyu/balancesheet-gpt/internal/domain/balancesheets"
	"github.com/bryanwahyu/balancesheet-gpt/internal/domain/company"
	"github.com/bryanwahyu/balancesheet-gpt/internal/domain/documents"
	"github.com/bryanwahyu/balancesheet-gpt/internal/domain/identity"
	"github.com/bryanwahyu/balancesheet-gpt/internal/domain/queries"
	"github.com/bryanwahyu/balancesheet-gpt/internal/domain/users"
)

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		db.Close()
	})
	return db, mock
}

var ts = time.Date(2024, 3, 31, 9, 0, 0, 0, time.UTC)

func TestCompanyRepository_List(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery(`FROM companies\s+ORDER BY name`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "parent_group"}).
			AddRow("c1", "Reliance Jio", "Reliance Group").
			AddRow("c2", "Tata Steel", ""))

	list, err := NewCompanyRepository(db).List(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, company.ID("c1"), list[0].ID)
	assert.Equal(t, "Reliance Group", list[0].ParentGroup)
	assert.Empty(t, list[1].ParentGroup)
}

var documentCols = []string{
	"id", "filename", "original_filename", "file_size", "file_url", "company_id",
	"uploaded_by", "status", "extracted_metrics", "created_at",
	"c_id", "c_name", "c_parent", "full_name", "email",
}

func TestDocumentRepository_Insert(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery(`INSERT INTO documents`).
		WithArgs(sqlmock.AnyArg(), "1711875600000-q1.pdf", "q1.pdf", int64(2048), "http://minio/documents/1711875600000-q1.pdf",
			"c1", "u1", "pending", 0, sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(ts))

	d, err := NewDocumentRepository(db).Insert(context.Background(), &documents.Document{
		Filename:         "1711875600000-q1.pdf",
		OriginalFilename: "q1.pdf",
		FileSize:         2048,
		FileURL:          "http://minio/documents/1711875600000-q1.pdf",
		CompanyID:        "c1",
		UploadedBy:       "u1",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, d.ID)
	assert.Equal(t, documents.StatusPending, d.Status)
	assert.Equal(t, ts, d.CreatedAt)
}

func TestDocumentRepository_ListByCompany(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery(`WHERE d.company_id = \$1\s+ORDER BY d.created_at DESC`).
		WithArgs("c1").
		WillReturnRows(sqlmock.NewRows(documentCols).
			AddRow("d2", "2-b.pdf", "b.pdf", 10, "u2", "c1", "u1", "processed", 42, ts, "c1", "Jio", "", "Asha Rao", "asha@example.com").
			AddRow("d1", "1-a.pdf", "a.pdf", 10, "u1", "c1", "u9", "pending", 0, ts.Add(-time.Hour), "c1", "Jio", "", "", ""))

	list, err := NewDocumentRepository(db).ListByCompany(context.Background(), "c1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, documents.StatusProcessed, list[0].Status)
	assert.Equal(t, 42, list[0].ExtractedMetrics)
	require.NotNil(t, list[0].Uploader)
	assert.Equal(t, "Asha Rao", list[0].Uploader.FullName)
	assert.Equal(t, "Jio", list[0].Company.Name)
	assert.Nil(t, list[1].Uploader)
}

func TestDocumentRepository_GetNotFound(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery(`WHERE d.id = \$1`).WithArgs("nope").WillReturnError(sql.ErrNoRows)

	_, err := NewDocumentRepository(db).Get(context.Background(), "nope")
	assert.ErrorIs(t, err, documents.ErrNotFound)
}

func TestDocumentRepository_UpdateStatus(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectExec(`UPDATE documents SET status`).WithArgs("d1", "processed", 33).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE documents SET status`).WithArgs("d9", "failed", 0).
		WillReturnResult(sqlmock.NewResult(0, 0))

	repo := NewDocumentRepository(db)
	require.NoError(t, repo.UpdateStatus(context.Background(), "d1", documents.StatusProcessed, 33))
	assert.ErrorIs(t, repo.UpdateStatus(context.Background(), "d9", documents.StatusFailed, 0), documents.ErrNotFound)
}

func TestDocumentRepository_Delete(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectExec(`DELETE FROM documents WHERE id = ANY\(\$1\)`).
		WithArgs(`{"d1","d2"}`).
		WillReturnResult(sqlmock.NewResult(0, 2))

	repo := NewDocumentRepository(db)
	n, err := repo.Delete(context.Background(), "d1", "d2")
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	n, err = repo.Delete(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

var sheetCols = []string{
	"id", "company_id", "document_id", "fiscal_year", "status",
	"total_assets", "total_liabilities", "total_equity",
	"current_assets", "current_liabilities", "revenue", "net_profit", "created_at",
	"c_id", "c_name", "c_parent", "filename", "original_filename", "file_url",
}

func TestBalanceSheetRepository_ListByCompany_Filters(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery(`WHERE b.company_id = \$1 AND b.fiscal_year >= \$2 AND b.fiscal_year <= \$3 AND b.status = \$4\s+ORDER BY b.fiscal_year DESC`).
		WithArgs("c1", 2022, 2024, "processed").
		WillReturnRows(sqlmock.NewRows(sheetCols).
			AddRow("b1", "c1", "d1", 2024, "processed", "1328000.50", "600000", "728000.50",
				"400000", "163265.31", "925000", "312000", ts, "c1", "Jio", "Reliance", "1-a.pdf", "a.pdf", "http://x/a").
			AddRow("b0", "c1", "", 2023, "processed", "1000", "500", "500",
				"300", "100", "800", "100", ts, "c1", "Jio", "Reliance", nil, nil, nil))

	list, err := NewBalanceSheetRepository(db).ListByCompany(context.Background(), "c1",
		balancesheets.Filter{StartYear: 2022, EndYear: 2024, Status: documents.StatusProcessed})
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.True(t, decimal.RequireFromString("1328000.50").Equal(list[0].TotalAssets))
	require.NotNil(t, list[0].Document)
	assert.Equal(t, "a.pdf", list[0].Document.OriginalFilename)
	assert.Nil(t, list[1].Document)
	assert.Equal(t, "Reliance", list[1].Company.ParentGroup)
}

func TestBalanceSheetRepository_ListByCompany_NoFilters(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery(`WHERE b.company_id = \$1\s+ORDER BY`).
		WithArgs("c1").
		WillReturnRows(sqlmock.NewRows(sheetCols))

	list, err := NewBalanceSheetRepository(db).ListByCompany(context.Background(), "c1", balancesheets.Filter{})
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestBalanceSheetRepository_ProcessedSince(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery(`b.company_id = ANY\(\$1\) AND b.fiscal_year >= \$2 AND b.status = \$3\s+ORDER BY b.fiscal_year ASC`).
		WithArgs(`{"c1","c2"}`, 2022, "processed").
		WillReturnRows(sqlmock.NewRows(sheetCols))

	_, err := NewBalanceSheetRepository(db).ProcessedSince(context.Background(), []company.ID{"c1", "c2"}, 2022)
	require.NoError(t, err)
}

func TestQueryHistoryRepository_Insert(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery(`INSERT INTO query_history`).
		WithArgs(sqlmock.AnyArg(), "u1", "c1", "Show revenue", "Revenue is up", `{"type":"bar"}`, sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(ts))
	mock.ExpectQuery(`INSERT INTO query_history`).
		WithArgs(sqlmock.AnyArg(), "u1", nil, "hi", "hello", nil, sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(ts))

	repo := NewQueryHistoryRepository(db)
	e, err := repo.Insert(context.Background(), &queries.Entry{
		UserID: "u1", CompanyID: "c1", QueryText: "Show revenue", ResponseText: "Revenue is up",
		ChartData: []byte(`{"type":"bar"}`),
	})
	require.NoError(t, err)
	assert.NotEmpty(t, e.ID)

	_, err = repo.Insert(context.Background(), &queries.Entry{UserID: "u1", QueryText: "hi", ResponseText: "hello"})
	require.NoError(t, err)
}

func TestQueryHistoryRepository_History(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery(`FROM query_history h`).
		WithArgs("u1", 20).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "company_id", "query_text", "response_text", "chart_data", "created_at", "name"}).
			AddRow("q2", "u1", "c1", "growth?", "up", []byte(`{"type":"line"}`), ts, "Jio").
			AddRow("q1", "u1", "", "hi", "hello", nil, ts.Add(-time.Minute), nil))

	list, err := NewQueryHistoryRepository(db).History(context.Background(), "u1", 0)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Jio", list[0].Company.Name)
	assert.JSONEq(t, `{"type":"line"}`, string(list[0].ChartData))
	assert.Nil(t, list[1].Company)
	assert.Nil(t, list[1].ChartData)
}

func TestProfileRepository(t *testing.T) {
	db, mock := newMock(t)
	repo := NewProfileRepository(db)
	ctx := context.Background()

	mock.ExpectQuery(`WHERE lower\(email\) = lower\(\$1\)`).WithArgs("ceo@reliancejio.com").
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "full_name", "role", "password_hash"}).
			AddRow("u1", "ceo@reliancejio.com", "Mukesh", "ceo", "$2a$10$hash"))
	c, err := repo.FindByEmail(ctx, " ceo@reliancejio.com ")
	require.NoError(t, err)
	assert.Equal(t, identity.RoleCEO, c.Profile.Role)
	assert.Equal(t, "$2a$10$hash", c.PasswordHash)

	mock.ExpectQuery(`WHERE lower\(email\)`).WithArgs("ghost@example.com").WillReturnError(sql.ErrNoRows)
	_, err = repo.FindByEmail(ctx, "ghost@example.com")
	assert.ErrorIs(t, err, identity.ErrProfileNotFound)

	mock.ExpectExec(`INSERT INTO user_profiles`).WillReturnError(&pq.Error{Code: "23505"})
	err = repo.Create(ctx, &identity.Credentials{Profile: identity.UserProfile{ID: "u2", Email: "dup@example.com"}})
	assert.ErrorIs(t, err, identity.ErrEmailTaken)

	mock.ExpectExec(`SET last_login = now\(\), login_count = login_count \+ 1`).WithArgs("u1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.TouchLogin(ctx, "u1"))
}

var userCols = []string{"id", "full_name", "email", "role", "companies", "status", "last_login", "created_at", "login_count", "queries_count"}

func TestUserRepository_List(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery(`FROM user_profiles u\s+ORDER BY u.created_at DESC`).
		WillReturnRows(sqlmock.NewRows(userCols).
			AddRow("u1", "Asha Rao", "asha@example.com", "analyst", `{"Tech Corp","Finance Ltd"}`, "active", ts, ts, 12, 4).
			AddRow("u2", "Dev Patel", "dev@example.com", "ceo", `{}`, "pending", nil, ts, 0, 0))

	list, err := NewUserRepository(db).List(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, []string{"Tech Corp", "Finance Ltd"}, list[0].Companies)
	require.NotNil(t, list[0].LastLogin)
	assert.Equal(t, 4, list[0].QueriesCount)
	assert.Equal(t, []string{}, list[1].Companies)
	assert.Nil(t, list[1].LastLogin)
}

func TestUserRepository_Mutations(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	mock.ExpectQuery(`INSERT INTO user_profiles`).
		WithArgs(sqlmock.AnyArg(), "Asha", "asha@example.com", "analyst", `{"Tech Corp"}`, "active", "hash").
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(ts))
	u := &users.ManagedUser{Name: "Asha", Email: "asha@example.com", Role: identity.RoleAnalyst, Companies: []string{"Tech Corp"}, Status: users.StatusActive}
	require.NoError(t, repo.Create(ctx, u, "hash"))
	assert.NotEmpty(t, u.ID)
	assert.Equal(t, ts, u.CreatedAt)

	mock.ExpectExec(`UPDATE user_profiles\s+SET full_name`).
		WithArgs(u.ID, "Asha R", "asha@example.com", "analyst", `{"Tech Corp"}`, "active", "").
		WillReturnResult(sqlmock.NewResult(0, 1))
	u.Name = "Asha R"
	require.NoError(t, repo.Update(ctx, u, ""))

	mock.ExpectExec(`DELETE FROM user_profiles`).WithArgs("missing").WillReturnResult(sqlmock.NewResult(0, 0))
	assert.ErrorIs(t, repo.Delete(ctx, "missing"), users.ErrNotFound)

	mock.ExpectExec(`UPDATE user_profiles SET status = \$1 WHERE id = ANY\(\$2\)`).
		WithArgs("inactive", `{"u1","u2"}`).
		WillReturnResult(sqlmock.NewResult(0, 2))
	n, err := repo.SetStatus(ctx, users.StatusInactive, "u1", "u2")
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)
}
