package usecase

import (
	"strings"

	"triage-agent/internal/domain"
)

// Keyword sets for the deterministic fallback classifier. These are crude
// demonstration heuristics, not derived from incident data; their one hard
// requirement is the same asymmetric bias as the generative path: a false
// alarm treated as real is acceptable, a real emergency dismissed is not.
var (
	deathKeywords   = []string{"dying", "death", "kill", "blood", "bleeding", "gun", "shot", "weapon"}
	weaponKeywords  = []string{"gun", "shot", "weapon"}
	fireKeywords    = []string{"fire"}
	injuryKeywords  = []string{"hurt", "injured", "injury", "pain", "broken"}
	illnessKeywords = []string{"sick", "ill", "vomit", "fever", "unconscious"}
	jokeKeywords    = []string{"joke", "kidding", "prank", "false"}
)

const (
	descWeapon  = "Possible violent situation involving a weapon. Immediate response recommended."
	descFire    = "Possible fire emergency reported. Fire services may be required."
	descInjury  = "Possible injury reported by the caller. Medical attention may be required."
	descIllness = "Possible illness reported by the caller. Medical attention may be required."
	descGeneric = "Emergency call received. Unable to determine incident details automatically."
)

// classifyFallback derives a judgment from fixed keyword sets when the
// generative service is unavailable or returns unusable output. First
// matching branch wins for the description; death scores accumulate
// independently: death-indicating language sets an 80 floor that a branch
// may only raise, and joke language forces false_alarm to 90. Location is
// never inferred here.
func classifyFallback(text string) domain.RiskJudgment {
	lower := strings.ToLower(text)

	j := domain.RiskJudgment{
		PossibleDeath: 0,
		FalseAlarm:    50,
		Location:      domain.DefaultLocation,
		Description:   descGeneric,
	}

	switch {
	case containsAny(lower, weaponKeywords):
		j.PossibleDeath, j.FalseAlarm, j.Description = 90, 20, descWeapon
	case containsAny(lower, fireKeywords):
		j.PossibleDeath, j.FalseAlarm, j.Description = 70, 30, descFire
	case containsAny(lower, injuryKeywords):
		j.PossibleDeath, j.FalseAlarm, j.Description = 50, 40, descInjury
	case containsAny(lower, illnessKeywords):
		j.PossibleDeath, j.FalseAlarm, j.Description = 40, 50, descIllness
	}

	if containsAny(lower, deathKeywords) && j.PossibleDeath < 80 {
		j.PossibleDeath = 80
	}
	if containsAny(lower, jokeKeywords) {
		j.FalseAlarm = 90
	}
	return j
}

func containsAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}
