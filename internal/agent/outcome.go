// Package agent simulates counselor calls to at-risk students and delivers
// the call summaries to the backend.
package agent

import (
	"hash/fnv"

	"github.com/edupulse/edupulse/internal/model"
)

// Outcome is the scripted result of a simulated call.
type Outcome struct {
	Sentiment  model.Sentiment
	ActionItem string
	Transcript string
}

var outcomes = []Outcome{
	{
		Sentiment:  model.SentimentStressed,
		ActionItem: "Schedule Counselor",
		Transcript: "Student is overwhelmed with a part-time job. Requesting an extension on assignments.",
	},
	{
		Sentiment:  model.SentimentNeutral,
		ActionItem: "None",
		Transcript: "Student was sick last week. Will submit a medical certificate tomorrow.",
	},
	{
		Sentiment:  model.SentimentPositive,
		ActionItem: "Scholarship Info",
		Transcript: "Student is focused but worried about fees. Asked for scholarship details.",
	},
}

// OutcomeFor picks the call outcome for a student. The same id always gets
// the same outcome.
func OutcomeFor(studentID string) Outcome {
	h := fnv.New32a()
	_, _ = h.Write([]byte(studentID))
	return outcomes[h.Sum32()%uint32(len(outcomes))]
}

// Summary builds the summary posted after a call.
func (o Outcome) Summary(studentID, callID string) model.CallSummary {
	return model.CallSummary{
		StudentID:  studentID,
		CallID:     callID,
		Transcript: o.Transcript,
		Sentiment:  o.Sentiment,
		ActionItem: o.ActionItem,
	}
}
