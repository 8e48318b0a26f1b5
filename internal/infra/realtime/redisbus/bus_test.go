package redisbus

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/bryanwahyu/balancesheet-gpt/internal/domain/realtime"
	"github.com/bryanwahyu/balancesheet-gpt/internal/infra/realtime/memory"
)

func TestDeliver(t *testing.T) {
	hub := memory.NewHub(zaptest.NewLogger(t))
	b := New(redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"}), "table_changes", zaptest.NewLogger(t))

	var got []realtime.Change
	defer hub.Subscribe(realtime.Topic{Table: realtime.TableDocuments, CompanyID: "c1"}, func(c realtime.Change) {
		got = append(got, c)
	})()

	in := realtime.Change{Table: realtime.TableDocuments, Type: realtime.EventDelete, CompanyID: "c1", Old: json.RawMessage(`{"id":"d1"}`)}
	data, err := json.Marshal(in)
	require.NoError(t, err)

	b.deliver(context.Background(), "{broken", hub)
	b.deliver(context.Background(), string(data), hub)

	require.Len(t, got, 1)
	assert.Equal(t, realtime.EventDelete, got[0].Type)
	assert.JSONEq(t, `{"id":"d1"}`, string(got[0].Old))
}

func TestDeliver_RecoversFromPanickingSink(t *testing.T) {
	b := New(redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"}), "table_changes", zaptest.NewLogger(t))
	assert.NotPanics(t, func() {
		b.deliver(context.Background(), `{"table":"documents","eventType":"INSERT","company_id":"c1"}`, panicSink{})
	})
}

type panicSink struct{}

func (panicSink) Publish(context.Context, realtime.Change) error { panic("sink down") }
