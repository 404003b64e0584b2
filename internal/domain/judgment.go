package domain

// RiskJudgment is the structured assessment produced for one transcript.
// PossibleDeath and FalseAlarm are independent confidence scores in [0,100];
// they are not required to sum to 100.
type RiskJudgment struct {
	PossibleDeath float64 `json:"possible_death"`
	FalseAlarm    float64 `json:"false_alarm"`
	Location      string  `json:"location"`
	Description   string  `json:"description"`
}

// Defaults substituted once at the create boundary when a payload omits a
// field. A missing death score must never silently become zero, so it assumes
// risk at the midpoint, which still resolves to high severity.
const (
	DefaultPossibleDeath = 50
	DefaultFalseAlarm    = 50
	DefaultLocation      = "Unknown location"
)

// ClampScore bounds a confidence score to [0,100].
func ClampScore(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

// Normalize clamps both scores and fills an empty location.
func (j RiskJudgment) Normalize() RiskJudgment {
	j.PossibleDeath = ClampScore(j.PossibleDeath)
	j.FalseAlarm = ClampScore(j.FalseAlarm)
	if j.Location == "" {
		j.Location = DefaultLocation
	}
	return j
}
