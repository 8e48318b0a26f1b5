package ai

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bryanwahyu/balancesheet-gpt/internal/application"
	"github.com/bryanwahyu/balancesheet-gpt/internal/application/financial"
	"github.com/bryanwahyu/balancesheet-gpt/internal/domain/ai"
	"github.com/bryanwahyu/balancesheet-gpt/internal/domain/company"
	"github.com/bryanwahyu/balancesheet-gpt/internal/domain/queries"
)

// HistorySize is how many recent questions a chat session remembers.
const HistorySize = queries.DefaultHistoryLimit

const (
	WelcomeContent = "Welcome to BalanceSheet GPT! I'm your AI financial analyst assistant.\n\n" +
		"I can help you analyze your financial data, create visualizations, and provide insights. Here are some things you can ask me:\n\n" +
		"• Revenue and growth analysis\n" +
		"• Financial ratio calculations\n" +
		"• Comparative analysis across periods\n" +
		"• Asset and liability breakdowns\n" +
		"• Profitability trends\n\n" +
		"Feel free to ask me anything about your financial data in natural language!"

	ApologyContent = "I apologize, but I encountered an error while processing your query. Please try again or rephrase your question."
)

var welcomeSuggestions = []string{
	"Show me revenue trends",
	"Calculate key ratios",
	"Compare this year vs last year",
}

// MessageType enum
type MessageType string

const (
	MessageUser MessageType = "user"
	MessageAI   MessageType = "ai"
)

type Message struct {
	ID          string      `json:"id"`
	Type        MessageType `json:"type"`
	Content     string      `json:"content"`
	Timestamp   time.Time   `json:"timestamp"`
	Confidence  *float64    `json:"confidence,omitempty"`
	Charts      []ai.Chart  `json:"charts,omitempty"`
	Tables      []ai.Table  `json:"tables,omitempty"`
	Suggestions []string    `json:"suggestions,omitempty"`
}

type HistoryItem struct {
	ID        string    `json:"id"`
	Query     string    `json:"query"`
	Timestamp time.Time `json:"timestamp"`
}

// SessionView is a snapshot of one user's chat.
type SessionView struct {
	Messages       []Message     `json:"messages"`
	History        []HistoryItem `json:"history"`
	CurrentContext string        `json:"currentContext"`
}

type session struct {
	mu       sync.Mutex
	messages []Message
	history  []HistoryItem
	context  string
}

// QuerySaver persists exchanges; financial.Service satisfies it.
type QuerySaver interface {
	SaveQuery(ctx context.Context, userID string, companyID company.ID, queryText, responseText string, chartData []byte) financial.Result[*queries.Entry]
}

// Service keeps per-user chat sessions in memory and routes questions to the
// responder. It is safe for concurrent use.
type Service struct {
	responder ai.Responder
	saver     QuerySaver
	clock     application.Clock
	logger    *zap.Logger

	mu       sync.Mutex
	sessions map[string]*session
}

func NewService(responder ai.Responder, saver QuerySaver, clock application.Clock, logger *zap.Logger) *Service {
	if clock == nil {
		clock = application.SystemClock{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		responder: responder,
		saver:     saver,
		clock:     clock,
		logger:    logger,
		sessions:  make(map[string]*session),
	}
}

func (s *Service) session(userID string) *session {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[userID]
	if !ok {
		one := 1.0
		sess = &session{messages: []Message{{
			ID:          "welcome",
			Type:        MessageAI,
			Content:     WelcomeContent,
			Timestamp:   s.clock.Now(),
			Confidence:  &one,
			Suggestions: append([]string(nil), welcomeSuggestions...),
		}}}
		s.sessions[userID] = sess
	}
	return sess
}

// Session returns a copy of the user's chat state, creating it on first use.
func (s *Service) Session(userID string) SessionView {
	sess := s.session(userID)
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return SessionView{
		Messages:       append([]Message{}, sess.messages...),
		History:        append([]HistoryItem{}, sess.history...),
		CurrentContext: sess.context,
	}
}

// Submit asks the responder and appends both sides of the exchange. A
// responder failure becomes an apology message with zero confidence; the
// only error returned is for a blank query.
func (s *Service) Submit(ctx context.Context, userID string, companyID company.ID, query string) (Message, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return Message{}, ai.ErrEmptyQuery
	}

	sess := s.session(userID)
	now := s.clock.Now()

	sess.mu.Lock()
	sess.messages = append(sess.messages, Message{ID: uuid.NewString(), Type: MessageUser, Content: query, Timestamp: now})
	sess.history = pushHistory(sess.history, HistoryItem{ID: uuid.NewString(), Query: query, Timestamp: now})
	sess.context = query
	sess.mu.Unlock()

	reply := s.ask(ctx, query)

	sess.mu.Lock()
	sess.messages = append(sess.messages, reply)
	sess.mu.Unlock()

	if companyID != "" && s.saver != nil && reply.Confidence != nil && *reply.Confidence > 0 {
		var chart []byte
		if len(reply.Charts) > 0 {
			chart, _ = json.Marshal(reply.Charts[0])
		}
		if res := s.saver.SaveQuery(ctx, userID, companyID, query, reply.Content, chart); !res.Success {
			s.logger.Warn("query not saved", zap.String("user_id", userID), zap.String("error", res.Error))
		}
	}
	return reply, nil
}

func (s *Service) ask(ctx context.Context, query string) Message {
	res, err := s.responder.SubmitQuery(ctx, query)
	if err != nil {
		s.logger.Error("responder failed", zap.Error(err))
		zero := 0.0
		return Message{ID: uuid.NewString(), Type: MessageAI, Content: ApologyContent, Timestamp: s.clock.Now(), Confidence: &zero}
	}
	conf := res.Confidence
	return Message{
		ID:          uuid.NewString(),
		Type:        MessageAI,
		Content:     res.Content,
		Timestamp:   s.clock.Now(),
		Confidence:  &conf,
		Charts:      res.Charts,
		Tables:      res.Tables,
		Suggestions: res.Suggestions,
	}
}

// pushHistory prepends item and keeps the newest HistorySize entries.
func pushHistory(h []HistoryItem, item HistoryItem) []HistoryItem {
	out := make([]HistoryItem, 0, HistorySize)
	out = append(out, item)
	if len(h) > HistorySize-1 {
		h = h[:HistorySize-1]
	}
	return append(out, h...)
}

func (s *Service) ClearHistory(userID string) {
	sess := s.session(userID)
	sess.mu.Lock()
	sess.history = nil
	sess.mu.Unlock()
}

// ClearChat empties the message list, welcome message included.
func (s *Service) ClearChat(userID string) {
	sess := s.session(userID)
	sess.mu.Lock()
	sess.messages = nil
	sess.context = ""
	sess.mu.Unlock()
}
