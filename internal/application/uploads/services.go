package uploads

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bryanwahyu/balancesheet-gpt/internal/application"
	"github.com/bryanwahyu/balancesheet-gpt/internal/application/financial"
	"github.com/bryanwahyu/balancesheet-gpt/internal/domain/company"
	"github.com/bryanwahyu/balancesheet-gpt/internal/domain/documents"
)

// Stage enum
type Stage string

const (
	StageUploading  Stage = "uploading"
	StageProcessing Stage = "processing"
	StageCompleted  Stage = "completed"
	StageError      Stage = "error"
)

var (
	ErrNotFound   = errors.New("upload not found")
	ErrNotRetried = errors.New("only failed uploads can be retried")
)

// MsgProcessingFailed is shown when extraction fails after a successful upload.
const MsgProcessingFailed = "Failed to process document"

// Upload is the externally visible state of one tracked file.
type Upload struct {
	ID               string     `json:"id"`
	FileName         string     `json:"fileName"`
	FileSize         int64      `json:"fileSize"`
	CompanyID        company.ID `json:"companyId"`
	Stage            Stage      `json:"status"`
	Progress         int        `json:"progress"`
	Error            string     `json:"error,omitempty"`
	DocumentID       string     `json:"documentId,omitempty"`
	ExtractedMetrics int        `json:"extractedMetrics,omitempty"`
	StartedAt        time.Time  `json:"startedAt"`
	Attempts         int        `json:"attempts"`
}

// Facade is the part of the data service the tracker drives.
type Facade interface {
	UploadDocument(ctx context.Context, f documents.File, body []byte, companyID company.ID, userID string) financial.Result[*documents.Document]
	SetDocumentStatus(ctx context.Context, id documents.ID, st documents.Status, extracted int) financial.Result[*documents.Document]
}

// Validate checks type and size of an incoming file.
func Validate(f documents.File) error {
	isPDF := f.ContentType == "application/pdf" || strings.EqualFold(filepath.Ext(f.Name), ".pdf")
	if !isPDF {
		return documents.ErrNotPDF
	}
	if f.Size <= 0 {
		return documents.ErrEmptyUpload
	}
	if f.Size > documents.MaxFileSize {
		return documents.ErrTooLarge
	}
	return nil
}

type entry struct {
	Upload
	userID string
	file   documents.File
	body   []byte
	// doc is the stored document once the upload step succeeded. Retries
	// resume at processing with it.
	doc    *documents.Document
	cancel context.CancelFunc
	prune  *time.Timer
}

// Tracker runs uploads through uploading → processing → completed|error in
// the background and keeps their state for polling.
// Tracker is safe for concurrent use.
type Tracker struct {
	Facade    Facade
	Processor documents.Processor
	Clock     application.Clock
	Log       *zap.Logger

	// Step is the pause between progress increments of Increment percent.
	Step       time.Duration
	Increment  int
	PruneAfter time.Duration
	// OnFinish, when set, is called once per attempt with the final stage.
	OnFinish func(Stage)

	mu      sync.Mutex
	entries map[string]*entry
	wg      sync.WaitGroup
	closed  bool
}

func NewTracker(facade Facade, processor documents.Processor, clock application.Clock, logger *zap.Logger) *Tracker {
	if clock == nil {
		clock = application.SystemClock{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Tracker{
		Facade:     facade,
		Processor:  processor,
		Clock:      clock,
		Log:        logger,
		Step:       200 * time.Millisecond,
		Increment:  10,
		PruneAfter: 3 * time.Second,
		entries:    make(map[string]*entry),
	}
}

// Start validates the file and begins tracking it.
func (t *Tracker) Start(userID string, companyID company.ID, f documents.File, body []byte) (Upload, error) {
	if err := Validate(f); err != nil {
		return Upload{}, err
	}
	if companyID == "" {
		return Upload{}, fmt.Errorf("company is required")
	}

	e := &entry{
		Upload: Upload{
			ID:        uuid.NewString(),
			FileName:  f.Name,
			FileSize:  f.Size,
			CompanyID: companyID,
			StartedAt: t.Clock.Now(),
		},
		userID: userID,
		file:   f,
		body:   body,
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return Upload{}, context.Canceled
	}
	t.entries[e.ID] = e
	t.launch(e)
	return e.Upload, nil
}

// launch resets e to uploading and runs one attempt. Caller holds t.mu.
func (t *Tracker) launch(e *entry) {
	ctx, cancel := context.WithCancel(context.Background())
	e.cancel = cancel
	e.Stage = StageUploading
	e.Progress = 0
	e.Error = ""
	e.Attempts++
	attempt := e.Attempts

	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		defer cancel()
		t.run(ctx, e.ID, attempt)
	}()
}

func (t *Tracker) run(ctx context.Context, id string, attempt int) {
	inc := t.Increment
	if inc <= 0 {
		inc = 100
	}
	if t.Step > 0 {
		ticker := time.NewTicker(t.Step)
		defer ticker.Stop()
		for t.progress(id) < 100 {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
			if !t.update(id, attempt, func(e *entry) { e.Progress = min(e.Progress+inc, 100) }) {
				return
			}
		}
	}

	e, ok := t.snapshot(id, attempt)
	if !ok {
		return
	}
	t.update(id, attempt, func(e *entry) { e.Progress = 100 })

	doc := e.doc
	if doc == nil {
		res := t.Facade.UploadDocument(ctx, e.file, e.body, e.CompanyID, e.userID)
		if !res.Success {
			if ctx.Err() != nil {
				return
			}
			t.finish(id, attempt, StageError, res.Error, nil, 0)
			return
		}
		doc = res.Data
	}
	if !t.update(id, attempt, func(e *entry) {
		e.doc = doc
		e.DocumentID = string(doc.ID)
		e.Stage = StageProcessing
	}) {
		return
	}

	if r := t.Facade.SetDocumentStatus(ctx, doc.ID, documents.StatusProcessing, 0); !r.Success {
		t.Log.Warn("document status not updated", zap.String("document_id", string(doc.ID)), zap.String("error", r.Error))
	}

	out, err := t.Processor.Process(ctx, doc)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		t.Log.Error("document processing failed", zap.String("document_id", string(doc.ID)), zap.Error(err))
		if r := t.Facade.SetDocumentStatus(context.Background(), doc.ID, documents.StatusFailed, 0); !r.Success {
			t.Log.Warn("document status not updated", zap.String("document_id", string(doc.ID)), zap.String("error", r.Error))
		}
		t.finish(id, attempt, StageError, MsgProcessingFailed, doc, 0)
		return
	}
	if r := t.Facade.SetDocumentStatus(ctx, doc.ID, documents.StatusProcessed, out.ExtractedMetrics); !r.Success {
		t.finish(id, attempt, StageError, r.Error, doc, 0)
		return
	}
	t.finish(id, attempt, StageCompleted, "", doc, out.ExtractedMetrics)
}

func (t *Tracker) finish(id string, attempt int, st Stage, msg string, doc *documents.Document, extracted int) {
	applied := t.update(id, attempt, func(e *entry) {
		e.Stage = st
		e.Error = msg
		e.ExtractedMetrics = extracted
		if st == StageCompleted && t.PruneAfter >= 0 {
			e.prune = time.AfterFunc(t.PruneAfter, func() { t.pruneCompleted(id, attempt) })
		}
	})
	if !applied {
		return
	}
	fields := []zap.Field{zap.String("upload_id", id), zap.String("stage", string(st))}
	if doc != nil {
		fields = append(fields, zap.String("document_id", string(doc.ID)))
	}
	t.Log.Info("upload finished", fields...)
	if t.OnFinish != nil {
		t.OnFinish(st)
	}
}

func (t *Tracker) pruneCompleted(id string, attempt int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if e, ok := t.entries[id]; ok && e.Attempts == attempt && e.Stage == StageCompleted {
		delete(t.entries, id)
	}
}

// update applies fn to the entry if it still exists and belongs to attempt.
func (t *Tracker) update(id string, attempt int, fn func(*entry)) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.entries[id]
	if !ok || e.Attempts != attempt {
		return false
	}
	fn(e)
	return true
}

func (t *Tracker) progress(id string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	if e, ok := t.entries[id]; ok {
		return e.Progress
	}
	return 0
}

func (t *Tracker) snapshot(id string, attempt int) (entry, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.entries[id]
	if !ok || e.Attempts != attempt {
		return entry{}, false
	}
	return *e, true
}

// List returns the user's tracked uploads, oldest first.
func (t *Tracker) List(userID string) []Upload {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := []Upload{}
	for _, e := range t.entries {
		if e.userID == userID {
			out = append(out, e.Upload)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].StartedAt.Equal(out[j].StartedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].StartedAt.Before(out[j].StartedAt)
	})
	return out
}

// Get returns one of the user's uploads.
func (t *Tracker) Get(userID, id string) (Upload, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.entries[id]
	if !ok || e.userID != userID {
		return Upload{}, ErrNotFound
	}
	return e.Upload, nil
}

// Retry re-runs a failed upload from zero progress. A file that was already
// stored is not uploaded again; only processing is repeated.
func (t *Tracker) Retry(userID, id string) (Upload, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.entries[id]
	if !ok || e.userID != userID {
		return Upload{}, ErrNotFound
	}
	if e.Stage != StageError {
		return Upload{}, ErrNotRetried
	}
	if t.closed {
		return Upload{}, context.Canceled
	}
	t.launch(e)
	return e.Upload, nil
}

// Cancel stops and forgets an upload in any stage.
func (t *Tracker) Cancel(userID, id string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.entries[id]
	if !ok || e.userID != userID {
		return ErrNotFound
	}
	if e.cancel != nil {
		e.cancel()
	}
	if e.prune != nil {
		e.prune.Stop()
	}
	delete(t.entries, id)
	return nil
}

// Close cancels running uploads and waits for their goroutines.
func (t *Tracker) Close() {
	t.mu.Lock()
	t.closed = true
	for _, e := range t.entries {
		if e.cancel != nil {
			e.cancel()
		}
		if e.prune != nil {
			e.prune.Stop()
		}
	}
	t.mu.Unlock()
	t.wg.Wait()
}

// BytesFacade adapts the reader-based data service to the tracker.
type BytesFacade struct {
	*financial.Service
}

func (f BytesFacade) UploadDocument(ctx context.Context, file documents.File, body []byte, companyID company.ID, userID string) financial.Result[*documents.Document] {
	return f.Service.UploadDocument(ctx, file, bytes.NewReader(body), companyID, userID)
}
