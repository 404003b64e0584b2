package usecase

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuildInstructionProfile_StatesSafetyBias(t *testing.T) {
	profile := buildInstructionProfile("")
	require.Contains(t, profile, "emergency call analysis assistant")
	require.Contains(t, profile, "Important Safety Considerations:")
	require.Contains(t, profile, "it is not acceptable to classify a genuine emergency as a false alarm")
	require.Contains(t, profile, "never classify a potential fatal situation as \"no death risk\"")
	require.Contains(t, profile, "location in two to three words")
	require.NotContains(t, profile, "Deployment Context:")
}

func TestBuildInstructionProfile_AppendsPinnedContext(t *testing.T) {
	profile := buildInstructionProfile("  County dispatch, coastal region.  ")
	require.Contains(t, profile, "Deployment Context:\nCounty dispatch, coastal region.")
}

func TestParseJudgmentResponse_HappyPath(t *testing.T) {
	j, err := parseJudgmentResponse(`{"response":{"possible_death":90,"false_alarm":20,"location":"Spruce Apartment","description":"Armed caller. Shots heard."}}`)
	require.NoError(t, err)
	require.Equal(t, 90.0, j.PossibleDeath)
	require.Equal(t, 20.0, j.FalseAlarm)
	require.Equal(t, "Spruce Apartment", j.Location)
	require.Equal(t, "Armed caller. Shots heard.", j.Description)
}

func TestParseJudgmentResponse_ClampsScores(t *testing.T) {
	j, err := parseJudgmentResponse(`{"response":{"possible_death":150,"false_alarm":-10,"location":"","description":"Something."}}`)
	require.NoError(t, err)
	require.Equal(t, 100.0, j.PossibleDeath)
	require.Equal(t, 0.0, j.FalseAlarm)
	require.Equal(t, "Unknown location", j.Location)
}

func TestParseJudgmentResponse_Rejects(t *testing.T) {
	cases := []struct {
		name string
		raw  string
	}{
		{name: "not json", raw: `not-json`},
		{name: "missing wrapper", raw: `{"possible_death":90,"false_alarm":20,"location":"x","description":"y"}`},
		{name: "null response", raw: `{"response":null}`},
		{name: "empty description", raw: `{"response":{"possible_death":90,"false_alarm":20,"location":"x","description":"  "}}`},
		{name: "trailing data", raw: `{"response":{"possible_death":1,"false_alarm":2,"location":"x","description":"y"}}{"again":true}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := parseJudgmentResponse(tc.raw)
			require.Error(t, err)
		})
	}
}
