package domain

import "strings"

// Turn roles recognized by transcript aggregation. Anything else
// (system notices, tool output) is dropped from the combined transcript.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// DialogueTurn is a single utterance of a transcribed emergency call.
type DialogueTurn struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

// CombineTranscript collapses an ordered sequence of turns into one text blob
// for classification: user and assistant turns only, order preserved, joined
// by newlines. An empty or fully filtered input yields "".
func CombineTranscript(turns []DialogueTurn) string {
	parts := make([]string, 0, len(turns))
	for _, t := range turns {
		if t.Role != RoleUser && t.Role != RoleAssistant {
			continue
		}
		parts = append(parts, t.Text)
	}
	return strings.Join(parts, "\n")
}
