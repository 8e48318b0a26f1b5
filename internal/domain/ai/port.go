package ai

import "context"

// Responder answers a natural-language financial question.
type Responder interface {
	SubmitQuery(ctx context.Context, text string) (QueryResult, error)
}
