package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"triage-agent/internal/domain"
)

const defaultMaxTranscript = 20000

type ParamGetter interface {
	GetParameter(ctx context.Context, name string) (string, error)
}

// TextGenerator is the generative-text collaborator consumed by the
// classifier. Any error it returns is recoverable: classification falls back
// to the keyword heuristic and still produces a judgment.
type TextGenerator interface {
	Generate(ctx context.Context, model, systemInstruction, input string) (string, error)
}

// AlertStore is the ordered alert feed. Implementations must serialize
// mutations; readers must never observe a partially inserted record.
type AlertStore interface {
	InsertFront(a domain.AlertRecord)
	List() []domain.AlertRecord
	DeleteByID(id string) bool
}

// AlertArchiver persists alerts for later review outside the live feed.
type AlertArchiver interface {
	ArchiveAlert(ctx context.Context, a domain.AlertRecord) error
}

type TriageService struct {
	params           ParamGetter
	llm              TextGenerator
	store            AlertStore
	archive          AlertArchiver
	paramPrefix      string
	maxTranscriptLen int

	cacheMu       sync.RWMutex
	cacheLoaded   bool
	model         string
	pinnedContext string

	wg  sync.WaitGroup
	now func() time.Time
}

// NewTriageService wires the classification pipeline. archive may be nil;
// everything else is required.
func NewTriageService(p ParamGetter, llm TextGenerator, store AlertStore, archive AlertArchiver, paramPrefix string, maxTranscriptLen int) (*TriageService, error) {
	if p == nil {
		return nil, errors.New("usecase: param getter must not be nil")
	}
	if llm == nil {
		return nil, errors.New("usecase: text generator must not be nil")
	}
	if store == nil {
		return nil, errors.New("usecase: alert store must not be nil")
	}
	paramPrefix = strings.TrimRight(strings.TrimSpace(paramPrefix), "/")
	if paramPrefix == "" {
		return nil, errors.New("usecase: parameter prefix must not be empty")
	}
	if maxTranscriptLen <= 0 {
		maxTranscriptLen = defaultMaxTranscript
	}
	return &TriageService{
		params:           p,
		llm:              llm,
		store:            store,
		archive:          archive,
		paramPrefix:      paramPrefix,
		maxTranscriptLen: maxTranscriptLen,
		now:              time.Now,
	}, nil
}

// Classify maps transcript text to a risk judgment. It never fails: config,
// transport, and parse errors all degrade to the deterministic fallback, so
// the caller is never left without a judgment.
func (s *TriageService) Classify(ctx context.Context, text string) domain.RiskJudgment {
	if err := s.ensureConfig(ctx); err != nil {
		slog.Warn("classifier config unavailable, using fallback", "err", err)
		return classifyFallback(text)
	}

	raw, err := s.llm.Generate(ctx, s.model, buildInstructionProfile(s.pinnedContext), text)
	if err != nil {
		slog.Warn("generative classification failed, using fallback", "err", err)
		return classifyFallback(text)
	}

	j, err := parseJudgmentResponse(raw)
	if err != nil {
		slog.Warn("unusable classifier output, using fallback", "err", err)
		return classifyFallback(text)
	}
	return j
}

// AnalyzeTranscript runs one classification unit end to end: aggregate the
// turns, classify, build the alert, insert it at the front of the feed, and
// archive it best-effort. Exactly one alert is produced per call.
func (s *TriageService) AnalyzeTranscript(ctx context.Context, turns []domain.DialogueTurn) domain.AlertRecord {
	text := domain.CombineTranscript(turns)
	if len(text) > s.maxTranscriptLen {
		text = text[:s.maxTranscriptLen]
	}

	alert := domain.NewAlert(s.Classify(ctx, text), s.now())
	s.store.InsertFront(alert)
	s.archiveBestEffort(ctx, alert)
	return alert
}

// AnalyzeAsync spawns an independent classification unit so the triggering
// request returns immediately. The unit runs to completion and receives no
// cancellation from the caller; its outcome is observable only in the feed
// and the log.
func (s *TriageService) AnalyzeAsync(turns []domain.DialogueTurn) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		alert := s.AnalyzeTranscript(context.Background(), turns)
		slog.Info("classification unit complete",
			"alertId", alert.ID,
			"severity", alert.Severity,
			"possibleDeath", alert.PossibleDeath,
			"falseAlarm", alert.FalseAlarm,
		)
	}()
}

// Wait blocks until all spawned classification units have completed. Used to
// drain in-flight units before shutdown and in tests.
func (s *TriageService) Wait() {
	s.wg.Wait()
}

// JudgmentInput is the create-boundary payload with explicit optional fields.
// Default substitution happens exactly once, in judgment().
type JudgmentInput struct {
	PossibleDeath *float64
	FalseAlarm    *float64
	Location      string
	Description   string
}

func (in JudgmentInput) judgment() domain.RiskJudgment {
	j := domain.RiskJudgment{
		PossibleDeath: domain.DefaultPossibleDeath,
		FalseAlarm:    domain.DefaultFalseAlarm,
		Location:      in.Location,
		Description:   in.Description,
	}
	if in.PossibleDeath != nil {
		j.PossibleDeath = *in.PossibleDeath
	}
	if in.FalseAlarm != nil {
		j.FalseAlarm = *in.FalseAlarm
	}
	return j.Normalize()
}

// CreateAlert performs severity resolution and alert construction
// synchronously for an externally supplied judgment payload.
func (s *TriageService) CreateAlert(ctx context.Context, in JudgmentInput) domain.AlertRecord {
	alert := domain.NewAlert(in.judgment(), s.now())
	s.store.InsertFront(alert)
	s.archiveBestEffort(ctx, alert)
	return alert
}

// ListAlerts returns the feed in current order, newest first.
func (s *TriageService) ListAlerts() []domain.AlertRecord {
	return s.store.List()
}

// DeleteAlert removes one alert by id.
func (s *TriageService) DeleteAlert(id string) error {
	if !s.store.DeleteByID(id) {
		return newError(ErrorNotFound, "alert_not_found", nil)
	}
	return nil
}

// archiveBestEffort writes the alert to the durable archive when one is
// configured. Archive failures never fail the unit of work.
func (s *TriageService) archiveBestEffort(ctx context.Context, a domain.AlertRecord) {
	if s.archive == nil {
		return
	}
	if err := s.archive.ArchiveAlert(ctx, a); err != nil {
		slog.Warn("alert archive write failed", "alertId", a.ID, "err", err)
	}
}

func (s *TriageService) ensureConfig(ctx context.Context) error {
	s.cacheMu.RLock()
	if s.cacheLoaded {
		s.cacheMu.RUnlock()
		return nil
	}
	s.cacheMu.RUnlock()

	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	if s.cacheLoaded {
		return nil
	}

	model, pinnedContext, err := s.loadSSMParams(ctx)
	if err != nil {
		return err
	}

	s.model = model
	s.pinnedContext = pinnedContext
	s.cacheLoaded = true
	return nil
}

func (s *TriageService) loadSSMParams(ctx context.Context) (model, pinnedContext string, err error) {
	prefix := strings.TrimRight(s.paramPrefix, "/")

	model, err = s.params.GetParameter(ctx, prefix+"/config/genai_model")
	if err != nil {
		return "", "", fmt.Errorf("usecase: load genai model: %w", err)
	}
	pinnedContext, err = s.params.GetParameter(ctx, prefix+"/pinned_context")
	if err != nil {
		return "", "", fmt.Errorf("usecase: load pinned context: %w", err)
	}
	return model, pinnedContext, nil
}
