package financial

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/bryanwahyu/balancesheet-gpt/internal/application"
	"github.com/bryanwahyu/balancesheet-gpt/internal/domain/balancesheets"
	"github.com/bryanwahyu/balancesheet-gpt/internal/domain/company"
	"github.com/bryanwahyu/balancesheet-gpt/internal/domain/documents"
	"github.com/bryanwahyu/balancesheet-gpt/internal/domain/queries"
	"github.com/bryanwahyu/balancesheet-gpt/internal/domain/realtime"
)

// DefaultMetricYears is the look-back window of GetFinancialMetrics.
const DefaultMetricYears = 3

// Service is the data-service façade. No method returns an error: every
// failure comes back as a Result with Success=false.
// Service is safe for concurrent use.
type Service struct {
	Companies     company.Repository
	BalanceSheets balancesheets.Repository
	Documents     documents.Repository
	Objects       documents.ObjectStore
	Queries       queries.Repository
	Realtime      realtime.Subscriber
	// Changes receives row changes made through the façade. Leave nil when the
	// database publishes its own changes.
	Changes realtime.Publisher
	Clock   application.Clock
	Log     *zap.Logger
}

func (s *Service) log() *zap.Logger {
	if s.Log == nil {
		return zap.NewNop()
	}
	return s.Log
}

func (s *Service) now() application.Clock {
	if s.Clock == nil {
		return application.SystemClock{}
	}
	return s.Clock
}

// classify collapses err into the user-facing message for op.
func (s *Service) classify(op, fallback, unreachable string, err error) string {
	if IsConnectivity(err) {
		s.log().Warn("backend unreachable", zap.String("op", op), zap.Error(err))
		return unreachable
	}
	s.log().Error("backend request failed", zap.String("op", op), zap.Error(err))
	return fallback
}

func (s *Service) GetCompanies(ctx context.Context) Result[[]*company.Company] {
	list, err := s.Companies.List(ctx)
	if err != nil {
		return fail[[]*company.Company](s.classify("getCompanies", MsgLoadCompanies, MsgDatabaseUnreachable, err))
	}
	return ok(nonNil(list))
}

// GetBalanceSheets returns one company's balance sheets, newest fiscal year first.
func (s *Service) GetBalanceSheets(ctx context.Context, companyID company.ID, f balancesheets.Filter) Result[[]*balancesheets.BalanceSheet] {
	list, err := s.BalanceSheets.ListByCompany(ctx, companyID, f)
	if err != nil {
		return fail[[]*balancesheets.BalanceSheet](s.classify("getBalanceSheets", MsgLoadBalanceSheets, MsgDatabaseUnreachable, err))
	}
	// the repository filters in SQL; this keeps the year bounds honest for any adapter
	out := make([]*balancesheets.BalanceSheet, 0, len(list))
	for _, b := range list {
		if f.Includes(b) {
			out = append(out, b)
		}
	}
	return ok(out)
}

func (s *Service) GetDocuments(ctx context.Context, companyID company.ID) Result[[]*documents.Document] {
	list, err := s.Documents.ListByCompany(ctx, companyID)
	if err != nil {
		return fail[[]*documents.Document](s.classify("getDocuments", MsgLoadDocuments, MsgDatabaseUnreachable, err))
	}
	return ok(nonNil(list))
}

// GetDocument returns one document; a missing row fails with ErrNotFound's text.
func (s *Service) GetDocument(ctx context.Context, id documents.ID) Result[*documents.Document] {
	d, err := s.Documents.Get(ctx, id)
	if errors.Is(err, documents.ErrNotFound) {
		return fail[*documents.Document](documents.ErrNotFound.Error())
	}
	if err != nil {
		return fail[*documents.Document](s.classify("getDocument", MsgLoadDocument, MsgDatabaseUnreachable, err))
	}
	return ok(d)
}

// ObjectKey is the storage key for an upload: "<unix-millis>-<original name>".
func ObjectKey(c application.Clock, name string) string {
	return fmt.Sprintf("%d-%s", c.Now().UnixMilli(), name)
}

// UploadDocument stores the bytes, then records a pending document row. A
// failed insert leaves the stored object in place.
func (s *Service) UploadDocument(ctx context.Context, f documents.File, body io.Reader, companyID company.ID, userID string) Result[*documents.Document] {
	key := ObjectKey(s.now(), f.Name)
	contentType := f.ContentType
	if contentType == "" {
		contentType = "application/pdf"
	}

	url, err := s.Objects.Put(ctx, key, body, f.Size, contentType)
	if err != nil {
		return fail[*documents.Document](s.classify("uploadDocument", MsgUploadDocument, MsgStorageUnreachable, err))
	}

	doc, err := s.Documents.Insert(ctx, &documents.Document{
		Filename:         key,
		OriginalFilename: f.Name,
		FileSize:         f.Size,
		FileURL:          url,
		CompanyID:        companyID,
		UploadedBy:       userID,
		Status:           documents.StatusPending,
	})
	if err != nil {
		return fail[*documents.Document](s.classify("uploadDocument", MsgUploadDocument, MsgStorageUnreachable, err))
	}
	s.notify(ctx, realtime.EventInsert, doc.CompanyID, doc, nil)
	return ok(doc)
}

// SaveQuery appends one exchange to the user's query history.
func (s *Service) SaveQuery(ctx context.Context, userID string, companyID company.ID, queryText, responseText string, chartData []byte) Result[*queries.Entry] {
	e, err := s.Queries.Insert(ctx, &queries.Entry{
		UserID:       userID,
		CompanyID:    companyID,
		QueryText:    queryText,
		ResponseText: responseText,
		ChartData:    chartData,
	})
	if err != nil {
		return fail[*queries.Entry](s.classify("saveQuery", MsgSaveQuery, MsgDatabaseUnreachable, err))
	}
	return ok(e)
}

// GetQueryHistory returns at most limit entries, newest first. limit <= 0 means 20.
func (s *Service) GetQueryHistory(ctx context.Context, userID string, limit int) Result[[]*queries.Entry] {
	if limit <= 0 {
		limit = queries.DefaultHistoryLimit
	}
	list, err := s.Queries.History(ctx, userID, limit)
	if err != nil {
		return fail[[]*queries.Entry](s.classify("getQueryHistory", MsgLoadQueryHistory, MsgDatabaseUnreachable, err))
	}
	if len(list) > limit {
		list = list[:limit]
	}
	return ok(nonNil(list))
}

// GetFinancialMetrics returns processed balance sheets of the given companies
// from (current year - years) onward, oldest first. years <= 0 means 3.
func (s *Service) GetFinancialMetrics(ctx context.Context, companyIDs []company.ID, years int) Result[[]*balancesheets.BalanceSheet] {
	if years <= 0 {
		years = DefaultMetricYears
	}
	if len(companyIDs) == 0 {
		return ok([]*balancesheets.BalanceSheet{})
	}
	from := s.now().Now().Year() - years
	list, err := s.BalanceSheets.ProcessedSince(ctx, companyIDs, from)
	if err != nil {
		return fail[[]*balancesheets.BalanceSheet](s.classify("getFinancialMetrics", MsgLoadMetrics, MsgDatabaseUnreachable, err))
	}
	return ok(nonNil(list))
}

// DeleteDocuments removes document rows and their stored objects. Object
// removal failures are logged and do not fail the call.
func (s *Service) DeleteDocuments(ctx context.Context, ids ...documents.ID) Result[int64] {
	docs := make([]*documents.Document, 0, len(ids))
	for _, id := range ids {
		d, err := s.Documents.Get(ctx, id)
		if err != nil {
			return fail[int64](s.classify("deleteDocuments", MsgDeleteDocument, MsgDatabaseUnreachable, err))
		}
		docs = append(docs, d)
	}
	n, err := s.Documents.Delete(ctx, ids...)
	if err != nil {
		return fail[int64](s.classify("deleteDocuments", MsgDeleteDocument, MsgDatabaseUnreachable, err))
	}
	for _, d := range docs {
		if err := s.Objects.Remove(ctx, d.Filename); err != nil {
			s.log().Warn("failed to remove stored object", zap.String("key", d.Filename), zap.Error(err))
		}
		s.notify(ctx, realtime.EventDelete, d.CompanyID, nil, d)
	}
	return ok(n)
}

// SetDocumentStatus records the processing outcome of a document.
func (s *Service) SetDocumentStatus(ctx context.Context, id documents.ID, st documents.Status, extracted int) Result[*documents.Document] {
	d, err := s.Documents.Get(ctx, id)
	if err != nil {
		return fail[*documents.Document](s.classify("setDocumentStatus", MsgUpdateDocument, MsgDatabaseUnreachable, err))
	}
	if err := s.Documents.UpdateStatus(ctx, id, st, extracted); err != nil {
		return fail[*documents.Document](s.classify("setDocumentStatus", MsgUpdateDocument, MsgDatabaseUnreachable, err))
	}
	updated := *d
	updated.Status = st
	updated.ExtractedMetrics = extracted
	s.notify(ctx, realtime.EventUpdate, d.CompanyID, &updated, d)
	return ok(&updated)
}

func (s *Service) notify(ctx context.Context, typ realtime.EventType, companyID company.ID, newRow, oldRow *documents.Document) {
	if s.Changes == nil {
		return
	}
	c := realtime.Change{Table: realtime.TableDocuments, Type: typ, CompanyID: companyID}
	if newRow != nil {
		c.New, _ = json.Marshal(newRow)
	}
	if oldRow != nil {
		c.Old, _ = json.Marshal(oldRow)
	}
	if err := s.Changes.Publish(ctx, c); err != nil {
		s.log().Warn("failed to publish change", zap.String("topic", c.Topic().String()), zap.Error(err))
	}
}

// SubscribeToDocuments delivers every change to the company's documents until
// the returned func is called.
func (s *Service) SubscribeToDocuments(companyID company.ID, cb realtime.Handler) realtime.Unsubscribe {
	return s.subscribe(realtime.TableDocuments, companyID, cb)
}

// SubscribeToBalanceSheets delivers every change to the company's balance sheets.
func (s *Service) SubscribeToBalanceSheets(companyID company.ID, cb realtime.Handler) realtime.Unsubscribe {
	return s.subscribe(realtime.TableBalanceSheets, companyID, cb)
}

func (s *Service) subscribe(t realtime.Table, companyID company.ID, cb realtime.Handler) realtime.Unsubscribe {
	topic := realtime.Topic{Table: t, CompanyID: companyID}
	s.log().Debug("subscribe", zap.String("topic", topic.String()))
	return s.Realtime.Subscribe(topic, cb)
}

func nonNil[T any](list []T) []T {
	if list == nil {
		return []T{}
	}
	return list
}
