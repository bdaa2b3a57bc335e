package model

import "time"

// Sentiment is the counselor's read of a student during a call.
type Sentiment string

const (
	SentimentPositive Sentiment = "Positive"
	SentimentNeutral  Sentiment = "Neutral"
	SentimentStressed Sentiment = "Stressed"
)

// Valid reports whether s is a known sentiment.
func (s Sentiment) Valid() bool {
	switch s {
	case SentimentPositive, SentimentNeutral, SentimentStressed:
		return true
	}
	return false
}

// CallSummary is posted by the call agent once a call finishes.
type CallSummary struct {
	StudentID  string    `json:"student_id"`
	CallID     string    `json:"call_id,omitempty"`
	Transcript string    `json:"transcript"`
	Sentiment  Sentiment `json:"sentiment"`
	ActionItem string    `json:"action_item"`
}

// CallLog is a stored call summary.
type CallLog struct {
	ID         string    `json:"id"`
	StudentID  string    `json:"student_id"`
	CallID     string    `json:"call_id,omitempty"`
	Transcript string    `json:"transcript"`
	Sentiment  Sentiment `json:"sentiment"`
	ActionItem string    `json:"action_item"`
	CreatedAt  time.Time `json:"created_at"`
}

// CallStatus is the response to a call trigger.
type CallStatus struct {
	Status  string `json:"status"`
	CallID  string `json:"call_id"`
	Message string `json:"message"`
}
