package usecase

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"triage-agent/internal/domain"
)

// judgmentEnvelope is the wire shape the generative service is instructed to
// return: a single JSON object wrapping the judgment under "response".
type judgmentEnvelope struct {
	Response *domain.RiskJudgment `json:"response"`
}

// buildInstructionProfile assembles the system instruction for the generative
// call. The safety-consideration paragraphs are a policy contract, not
// decoration: over-flagging is tolerable, under-flagging is not, and the
// fallback heuristics are tuned to the same asymmetry.
func buildInstructionProfile(pinnedContext string) string {
	profile := strings.Join([]string{
		"You are an expert emergency call analysis assistant. Your task is to analyze 911 call transcripts and extract critical information from the conversation. Focus on identifying potential life-threatening situations, possible false alarms, and any location details shared by the caller. Summarize the incident concisely. Give response to the location in two to three words.",
		"",
		"Important Safety Considerations:",
		"",
		"It is acceptable if a potential false alarm is treated as a real incident. However, it is not acceptable to classify a genuine emergency as a false alarm.",
		"",
		"Similarly, it is acceptable if a potential death is flagged but later turns out not to be fatal. However, never classify a potential fatal situation as \"no death risk\" unless it is explicitly clear.",
	}, "\n")

	pinned := strings.TrimSpace(pinnedContext)
	if pinned == "" {
		return profile
	}
	return profile + "\n\nDeployment Context:\n" + pinned
}

// parseJudgmentResponse decodes the concatenated stream output as the single
// response-wrapped judgment object. Anything the decoder rejects, a missing
// wrapper, or an empty description is unusable output and sends the caller to
// the fallback classifier.
func parseJudgmentResponse(raw string) (domain.RiskJudgment, error) {
	var env judgmentEnvelope
	dec := json.NewDecoder(bytes.NewBufferString(strings.TrimSpace(raw)))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&env); err != nil {
		return domain.RiskJudgment{}, fmt.Errorf("usecase: decode judgment: %w", err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		if err == nil {
			return domain.RiskJudgment{}, errors.New("usecase: decode judgment: multiple JSON values")
		}
		return domain.RiskJudgment{}, fmt.Errorf("usecase: decode judgment trailing data: %w", err)
	}
	if env.Response == nil {
		return domain.RiskJudgment{}, errors.New("usecase: judgment response missing")
	}
	if strings.TrimSpace(env.Response.Description) == "" {
		return domain.RiskJudgment{}, errors.New("usecase: judgment missing description")
	}
	return env.Response.Normalize(), nil
}
