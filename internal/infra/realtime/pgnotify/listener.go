package pgnotify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/bryanwahyu/balancesheet-gpt/internal/domain/company"
	"github.com/bryanwahyu/balancesheet-gpt/internal/domain/realtime"
)

const (
	minReconnect = 10 * time.Second
	maxReconnect = time.Minute
	pingInterval = 90 * time.Second
)

// Listener turns Postgres NOTIFY payloads from the table_changes triggers
// into realtime changes and hands them to a Publisher.
type Listener struct {
	dsn     string
	channel string
	sink    realtime.Publisher
	logger  *zap.Logger
}

func NewListener(dsn, channel string, sink realtime.Publisher, logger *zap.Logger) *Listener {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Listener{dsn: dsn, channel: channel, sink: sink, logger: logger}
}

// payload is the JSON body the notify trigger emits.
type payload struct {
	Table     string          `json:"table"`
	Type      string          `json:"type"`
	CompanyID string          `json:"company_id"`
	New       json.RawMessage `json:"new"`
	Old       json.RawMessage `json:"old"`
}

// Decode parses one notification payload.
func Decode(raw string) (realtime.Change, error) {
	var p payload
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return realtime.Change{}, fmt.Errorf("decode notify payload: %w", err)
	}
	c := realtime.Change{
		Table:     realtime.Table(p.Table),
		Type:      realtime.EventType(p.Type),
		CompanyID: company.ID(p.CompanyID),
		New:       nullToNil(p.New),
		Old:       nullToNil(p.Old),
	}
	switch c.Table {
	case realtime.TableDocuments, realtime.TableBalanceSheets:
	default:
		return realtime.Change{}, fmt.Errorf("unexpected table %q", p.Table)
	}
	switch c.Type {
	case realtime.EventInsert, realtime.EventUpdate, realtime.EventDelete:
	default:
		return realtime.Change{}, fmt.Errorf("unexpected event type %q", p.Type)
	}
	return c, nil
}

func nullToNil(m json.RawMessage) json.RawMessage {
	if len(m) == 0 || string(m) == "null" {
		return nil
	}
	return m
}

// Run listens until ctx is cancelled. Notifications lost while the
// connection is down are not replayed.
func (l *Listener) Run(ctx context.Context) error {
	listener := pq.NewListener(l.dsn, minReconnect, maxReconnect, func(ev pq.ListenerEventType, err error) {
		if err != nil {
			l.logger.Warn("postgres listener event", zap.Int("event", int(ev)), zap.Error(err))
		}
	})
	defer listener.Close()

	if err := listener.Listen(l.channel); err != nil {
		return fmt.Errorf("listen %s: %w", l.channel, err)
	}
	l.logger.Info("listening for table changes", zap.String("channel", l.channel))

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case n := <-listener.Notify:
			l.handle(ctx, n)
		case <-ticker.C:
			go func() {
				if err := listener.Ping(); err != nil {
					l.logger.Warn("postgres listener ping failed", zap.Error(err))
				}
			}()
		}
	}
}

// handle forwards one notification. A nil notification marks a reconnect.
func (l *Listener) handle(ctx context.Context, n *pq.Notification) {
	if n == nil {
		l.logger.Info("postgres listener reconnected")
		return
	}
	c, err := Decode(n.Extra)
	if err != nil {
		l.logger.Warn("dropping notification", zap.String("channel", n.Channel), zap.Error(err))
		return
	}
	if err := l.sink.Publish(ctx, c); err != nil {
		l.logger.Error("failed to publish change", zap.String("topic", c.Topic().String()), zap.Error(err))
	}
}
