package domain

import (
	"fmt"
	"strings"
	"time"
)

// Severity is the coarse triage tier assigned to an alert.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// SeverityFor maps a judgment to a tier. Any nonzero death signal dominates
// regardless of false-alarm confidence; that ordering is deliberate.
func SeverityFor(j RiskJudgment) Severity {
	switch {
	case j.PossibleDeath > 0:
		return SeverityHigh
	case j.FalseAlarm < 30:
		return SeverityMedium
	default:
		return SeverityLow
	}
}

// Recipient identifies the party an alert is addressed to. Routing is not
// performed here; every alert goes to the fixed response-team identity.
type Recipient struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	IsOnline bool   `json:"isOnline"`
}

// AlertRecord is one entry of the alert feed.
type AlertRecord struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	Message       string    `json:"message"`
	Severity      Severity  `json:"severity"`
	Timestamp     string    `json:"timestamp"`
	Recipient     Recipient `json:"recipient"`
	IsRead        bool      `json:"isRead"`
	PossibleDeath float64   `json:"possible_death"`
	FalseAlarm    float64   `json:"false_alarm"`
	Location      string    `json:"location"`
	Description   string    `json:"description"`
}

const (
	defaultTitle      = "New Alert"
	defaultMessage    = "New alert received"
	recipientTeamName = "Emergency Response Team"
	timestampLayout   = "2006-01-02T15:04:05Z"
)

// NewAlert builds a complete alert record from a judgment at the given
// instant. IDs are derived from the millisecond clock; uniqueness under
// single-process use is sufficient and identical-millisecond collisions are
// accepted. Insertion into the ledger is the caller's responsibility.
func NewAlert(j RiskJudgment, now time.Time) AlertRecord {
	ms := now.UnixMilli()
	desc := strings.TrimSpace(j.Description)

	title := defaultTitle
	message := defaultMessage
	if desc != "" {
		title, _, _ = strings.Cut(desc, ".")
		message = desc
	}

	return AlertRecord{
		ID:        fmt.Sprintf("alert-%d", ms),
		Title:     title,
		Message:   message,
		Severity:  SeverityFor(j),
		Timestamp: now.UTC().Format(timestampLayout),
		Recipient: Recipient{
			ID:       fmt.Sprintf("recipient-%d", ms),
			Name:     recipientTeamName,
			IsOnline: true,
		},
		IsRead:        false,
		PossibleDeath: j.PossibleDeath,
		FalseAlarm:    j.FalseAlarm,
		Location:      j.Location,
		Description:   message,
	}
}
