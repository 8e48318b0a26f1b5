package httpserver

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/bryanwahyu/balancesheet-gpt/internal/domain/company"
	"github.com/bryanwahyu/balancesheet-gpt/internal/domain/realtime"
	"github.com/bryanwahyu/balancesheet-gpt/internal/logger"
	"github.com/bryanwahyu/balancesheet-gpt/internal/middleware"
)

// buffered changes per stream before new ones are dropped
const streamBuffer = 64

// GET /v1/companies/{companyID}/documents/stream
// GET /v1/companies/{companyID}/balance-sheets/stream
// Server-Sent Events, one "change" event per row change of the company.
func (r *Router) handleStream(table realtime.Table) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		companyID, err := pathID(req, "companyID")
		if err != nil {
			middleware.WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
		log := logger.FromContext(req.Context()).With(zap.String("table", string(table)), zap.String("company_id", companyID))

		rc := http.NewResponseController(w)
		// streams outlive the server write timeout
		_ = rc.SetWriteDeadline(time.Time{})

		ch := make(chan realtime.Change, streamBuffer)
		handler := func(c realtime.Change) {
			select {
			case ch <- c:
			default:
				log.Warn("stream buffer full, dropping change", zap.String("event", string(c.Type)))
			}
		}

		var unsubscribe realtime.Unsubscribe
		switch table {
		case realtime.TableDocuments:
			unsubscribe = r.Data.SubscribeToDocuments(company.ID(companyID), handler)
		default:
			unsubscribe = r.Data.SubscribeToBalanceSheets(company.ID(companyID), handler)
		}
		defer unsubscribe()

		gauge := r.Metrics.RealtimeStreams.WithLabelValues(string(table))
		gauge.Inc()
		defer gauge.Dec()

		h := w.Header()
		h.Set("Content-Type", "text/event-stream")
		h.Set("Cache-Control", "no-cache")
		h.Set("Connection", "keep-alive")
		h.Set("X-Accel-Buffering", "no")
		w.WriteHeader(http.StatusOK)

		topic := realtime.Topic{Table: table, CompanyID: company.ID(companyID)}
		fmt.Fprintf(w, "event: connected\ndata: {\"topic\":%q}\n\n", topic.String())
		if err := rc.Flush(); err != nil {
			log.Warn("stream flush unsupported", zap.Error(err))
			return
		}
		log.Info("stream opened")

		ticker := time.NewTicker(r.Heartbeat)
		defer ticker.Stop()

		for {
			select {
			case <-req.Context().Done():
				log.Info("stream closed")
				return
			case <-ticker.C:
				if _, err := fmt.Fprint(w, ": heartbeat\n\n"); err != nil {
					return
				}
			case c := <-ch:
				data, err := json.Marshal(c)
				if err != nil {
					log.Error("encode change", zap.Error(err))
					continue
				}
				if _, err := fmt.Fprintf(w, "event: change\ndata: %s\n\n", data); err != nil {
					return
				}
			}
			if err := rc.Flush(); err != nil {
				return
			}
		}
	}
}
