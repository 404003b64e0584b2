package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/google/uuid"

	"triage-agent/internal/domain"
	"triage-agent/internal/usecase"
)

// TriageService is the boundary surface the handler consumes.
type TriageService interface {
	AnalyzeAsync(turns []domain.DialogueTurn)
	CreateAlert(ctx context.Context, in usecase.JudgmentInput) domain.AlertRecord
	ListAlerts() []domain.AlertRecord
	DeleteAlert(id string) error
}

type Handler struct {
	svc TriageService
}

func NewHandler(svc TriageService) (*Handler, error) {
	if svc == nil {
		return nil, errors.New("handler: triage service must not be nil")
	}
	return &Handler{svc: svc}, nil
}

type transcriptRequest struct {
	Turns []domain.DialogueTurn `json:"turns"`
}

// judgmentPayload is the create-alert body. Scores are pointers so a missing
// field is distinguishable from an explicit zero; defaults are substituted in
// the usecase, not here.
type judgmentPayload struct {
	PossibleDeath *float64 `json:"possible_death"`
	FalseAlarm    *float64 `json:"false_alarm"`
	Location      string   `json:"location"`
	Description   string   `json:"description"`
}

type statusResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type createResponse struct {
	Success bool               `json:"success"`
	Message string             `json:"message"`
	Alert   domain.AlertRecord `json:"alert"`
}

type acceptedResponse struct {
	Accepted bool   `json:"accepted"`
	Message  string `json:"message"`
}

type healthResponse struct {
	Status    string `json:"status"`
	Timestamp int64  `json:"timestamp"`
}

// Handle routes one API Gateway proxy event. The transcript route returns as
// soon as the classification unit is spawned; the resulting alert becomes
// visible through the list route only.
func (h *Handler) Handle(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	corrID := correlationID(req.Headers)
	path := strings.TrimRight(req.Path, "/")

	switch {
	case req.HTTPMethod == http.MethodGet && path == "/health":
		return jsonResponse(http.StatusOK, healthResponse{Status: "healthy", Timestamp: time.Now().Unix()}, corrID)

	case req.HTTPMethod == http.MethodGet && path == "/alerts":
		return jsonResponse(http.StatusOK, h.svc.ListAlerts(), corrID)

	case req.HTTPMethod == http.MethodPost && path == "/alerts":
		return h.handleCreate(ctx, req.Body, corrID)

	case req.HTTPMethod == http.MethodDelete && strings.HasPrefix(path, "/alerts/"):
		return h.handleDelete(strings.TrimPrefix(path, "/alerts/"), corrID)

	case req.HTTPMethod == http.MethodPost && path == "/transcripts":
		return h.handleAnalyze(req.Body, corrID)
	}

	return jsonResponse(http.StatusNotFound, statusResponse{Success: false, Message: "Not found"}, corrID)
}

func (h *Handler) handleCreate(ctx context.Context, body, corrID string) (events.APIGatewayProxyResponse, error) {
	payload, err := parseJudgmentPayload(body)
	if err != nil {
		return jsonResponse(http.StatusBadRequest, statusResponse{Success: false, Message: "Failed to create alert: invalid payload"}, corrID)
	}

	alert := h.svc.CreateAlert(ctx, usecase.JudgmentInput{
		PossibleDeath: payload.PossibleDeath,
		FalseAlarm:    payload.FalseAlarm,
		Location:      payload.Location,
		Description:   payload.Description,
	})
	return jsonResponse(http.StatusCreated, createResponse{
		Success: true,
		Message: "Alert created successfully",
		Alert:   alert,
	}, corrID)
}

func (h *Handler) handleDelete(id, corrID string) (events.APIGatewayProxyResponse, error) {
	if err := h.svc.DeleteAlert(id); err != nil {
		return jsonResponse(statusForError(err), statusResponse{Success: false, Message: "Alert not found"}, corrID)
	}
	return jsonResponse(http.StatusOK, statusResponse{Success: true, Message: "Alert deleted successfully"}, corrID)
}

func (h *Handler) handleAnalyze(body, corrID string) (events.APIGatewayProxyResponse, error) {
	var req transcriptRequest
	if err := json.Unmarshal([]byte(body), &req); err != nil {
		return jsonResponse(http.StatusBadRequest, statusResponse{Success: false, Message: "Invalid transcript payload"}, corrID)
	}

	h.svc.AnalyzeAsync(req.Turns)
	return jsonResponse(http.StatusAccepted, acceptedResponse{Accepted: true, Message: "Transcript queued for analysis"}, corrID)
}

// parseJudgmentPayload accepts either the response-wrapped shape the
// generative service emits or a bare judgment object.
func parseJudgmentPayload(body string) (judgmentPayload, error) {
	var envelope struct {
		Response json.RawMessage `json:"response"`
	}
	raw := []byte(body)
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return judgmentPayload{}, err
	}
	if len(envelope.Response) > 0 && string(envelope.Response) != "null" {
		raw = envelope.Response
	}

	var payload judgmentPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return judgmentPayload{}, err
	}
	return payload, nil
}

func statusForError(err error) int {
	var usecaseErr *usecase.Error
	if errors.As(err, &usecaseErr) {
		switch usecaseErr.Code {
		case usecase.ErrorInvalidInput:
			return http.StatusBadRequest
		case usecase.ErrorNotFound:
			return http.StatusNotFound
		}
	}
	return http.StatusInternalServerError
}

func correlationID(headers map[string]string) string {
	for k, v := range headers {
		if strings.EqualFold(k, "x-correlation-id") && v != "" {
			return v
		}
	}
	return uuid.NewString()
}

func jsonResponse(status int, body any, corrID string) (events.APIGatewayProxyResponse, error) {
	raw, err := json.Marshal(body)
	if err != nil {
		return events.APIGatewayProxyResponse{
			StatusCode: http.StatusInternalServerError,
			Headers:    responseHeaders(corrID),
			Body:       `{"success":false,"message":"encoding failure"}`,
		}, nil
	}
	return events.APIGatewayProxyResponse{
		StatusCode: status,
		Headers:    responseHeaders(corrID),
		Body:       string(raw),
	}, nil
}

func responseHeaders(corrID string) map[string]string {
	return map[string]string{
		"Content-Type":     "application/json",
		"X-Correlation-Id": corrID,
	}
}
