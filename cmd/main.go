package main

import (
	"context"
	"log/slog"
	"os"
	"strconv"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/config"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awsssm "github.com/aws/aws-sdk-go-v2/service/ssm"

	"triage-agent/handler"
	"triage-agent/internal/integrations/genai"
	"triage-agent/internal/integrations/paramstore"
	"triage-agent/internal/ledger"
	"triage-agent/internal/repository"
	"triage-agent/internal/usecase"
)

func main() {
	ctx := context.Background()

	// ---- Configuration (read only here) ----
	paramPrefix := mustEnv("PARAM_PREFIX")
	alertsTable := os.Getenv("ALERTS_TABLE") // optional archive
	maxTranscriptLen := envInt("MAX_TRANSCRIPT_LENGTH", 20000)
	seedLimit := envInt("ARCHIVE_SEED_LIMIT", 25)

	// ---- AWS SDK config ----
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		slog.Error("failed to load AWS config", "err", err)
		os.Exit(1)
	}

	// ---- Clients ----
	ssmClient, err := paramstore.New(awsssm.NewFromConfig(cfg))
	if err != nil {
		slog.Error("failed to create SSM client", "err", err)
		os.Exit(1)
	}

	genaiClient, err := genai.NewClient(ssmClient, paramPrefix)
	if err != nil {
		slog.Error("failed to create genai client", "err", err)
		os.Exit(1)
	}

	feed := ledger.New()

	var archive usecase.AlertArchiver
	if alertsTable != "" {
		archiveClient, err := repository.New(awsdynamodb.NewFromConfig(cfg), alertsTable)
		if err != nil {
			slog.Error("failed to create alert archive", "err", err)
			os.Exit(1)
		}
		archive = archiveClient
		seedFeed(ctx, feed, archiveClient, seedLimit)
	}

	// ---- Handler ----
	triageService, err := usecase.NewTriageService(ssmClient, genaiClient, feed, archive, paramPrefix, maxTranscriptLen)
	if err != nil {
		slog.Error("failed to create triage service", "err", err)
		os.Exit(1)
	}

	h, err := handler.NewHandler(triageService)
	if err != nil {
		slog.Error("failed to create handler", "err", err)
		os.Exit(1)
	}

	lambda.Start(h.Handle)
}

// seedFeed reloads recently archived alerts into the in-memory feed on cold
// start so the list route does not come up empty after process recycling.
// Best effort: a cold archive read failure only costs continuity.
func seedFeed(ctx context.Context, feed *ledger.Ledger, archive *repository.Client, limit int) {
	alerts, err := archive.RecentAlerts(ctx, limit)
	if err != nil {
		slog.Warn("failed to seed feed from archive", "err", err)
		return
	}
	// RecentAlerts is newest first; insert oldest first so the feed order holds.
	for i := len(alerts) - 1; i >= 0; i-- {
		feed.InsertFront(alerts[i])
	}
}

func mustEnv(key string) string {
	v := os.Getenv(key)
	if v == "" {
		slog.Error("required environment variable is not set", "key", key)
		os.Exit(1)
	}
	return v
}

func envInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
