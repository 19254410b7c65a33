package models

import (
	"fmt"
	"strings"
)

// TimestampLayout is the interaction log timestamp format (YYYY-MM-DD HH:MM:SS).
const TimestampLayout = "2006-01-02 15:04:05"

// InteractionLogEntry is one completed query/answer cycle.
type InteractionLogEntry struct {
	Timestamp        string `json:"timestamp"`
	Query            string `json:"query"`
	RetrievedContext string `json:"retrieved_context"`
	GeneratedAnswer  string `json:"generated_answer"`
}

// HistoryItem is the chat-history projection of a log entry.
type HistoryItem struct {
	Query  string `json:"query"`
	Answer string `json:"answer"`
}

// AskRequest is the input for one question/answer cycle.
type AskRequest struct {
	Question string `json:"question"`
	K        int    `json:"k,omitempty"`
}

// MaxTopK bounds the number of chunks one request may retrieve.
const MaxTopK = 100

// Validate trims the question and rejects blank input and k outside [0, MaxTopK].
func (r *AskRequest) Validate() error {
	r.Question = strings.TrimSpace(r.Question)
	if r.Question == "" {
		return ErrEmptyQuery
	}
	if r.K < 0 {
		return fmt.Errorf("k must not be negative: %d", r.K)
	}
	if r.K > MaxTopK {
		return fmt.Errorf("k must be at most %d: %d", MaxTopK, r.K)
	}
	return nil
}
