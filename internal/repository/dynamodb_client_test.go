package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/require"

	"triage-agent/internal/domain"
)

type fakeDynamo struct {
	putErr       error
	queryOut     *dynamodb.QueryOutput
	queryErr     error
	lastPutInput *dynamodb.PutItemInput
	lastQueryIn  *dynamodb.QueryInput
}

func (f *fakeDynamo) PutItem(_ context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.lastPutInput = in
	return &dynamodb.PutItemOutput{}, f.putErr
}

func (f *fakeDynamo) Query(_ context.Context, in *dynamodb.QueryInput, _ ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	f.lastQueryIn = in
	return f.queryOut, f.queryErr
}

func sampleAlert() domain.AlertRecord {
	return domain.AlertRecord{
		ID:        "alert-1709296200000",
		Title:     "Armed suspect reported",
		Message:   "Armed suspect reported. Caller heard gunshots.",
		Severity:  domain.SeverityHigh,
		Timestamp: "2024-03-01T12:30:00Z",
		Recipient: domain.Recipient{
			ID:       "recipient-1709296200000",
			Name:     "Emergency Response Team",
			IsOnline: true,
		},
		PossibleDeath: 90,
		FalseAlarm:    20,
		Location:      "Spruce Apartment",
		Description:   "Armed suspect reported. Caller heard gunshots.",
	}
}

func makeAlertItem(a domain.AlertRecord) map[string]types.AttributeValue {
	return alertItem(a)
}

func mustNewClient(t *testing.T, db *fakeDynamo) *Client {
	t.Helper()
	c, err := New(db, "test-table")
	require.NoError(t, err)
	return c
}

func TestNew_Validates(t *testing.T) {
	_, err := New(nil, "t")
	require.Error(t, err)

	_, err = New(&fakeDynamo{}, "  ")
	require.Error(t, err)
}

func TestArchiveAlert_HappyPath(t *testing.T) {
	db := &fakeDynamo{}
	c := mustNewClient(t, db)

	require.NoError(t, c.ArchiveAlert(context.Background(), sampleAlert()))
	require.NotNil(t, db.lastPutInput)
	require.Equal(t, "test-table", *db.lastPutInput.TableName)

	item := db.lastPutInput.Item
	pk := item["PK"].(*types.AttributeValueMemberS)
	require.Equal(t, "FEED", pk.Value)
	sk := item["SK"].(*types.AttributeValueMemberS)
	require.Contains(t, sk.Value, "ALERT#2024-03-01T12:30:00Z#alert-1709296200000")
	pd := item["possibleDeath"].(*types.AttributeValueMemberN)
	require.Equal(t, "90", pd.Value)
}

func TestArchiveAlert_MissingID(t *testing.T) {
	c := mustNewClient(t, &fakeDynamo{})
	err := c.ArchiveAlert(context.Background(), domain.AlertRecord{})
	require.Error(t, err)
	require.Contains(t, err.Error(), "alert id is required")
}

func TestArchiveAlert_PutError(t *testing.T) {
	c := mustNewClient(t, &fakeDynamo{putErr: errors.New("boom")})
	err := c.ArchiveAlert(context.Background(), sampleAlert())
	require.Error(t, err)
	require.Contains(t, err.Error(), "ArchiveAlert")
}

func TestRecentAlerts_HappyPath(t *testing.T) {
	db := &fakeDynamo{
		queryOut: &dynamodb.QueryOutput{
			Items: []map[string]types.AttributeValue{
				makeAlertItem(sampleAlert()),
			},
		},
	}
	c := mustNewClient(t, db)

	alerts, err := c.RecentAlerts(context.Background(), 25)
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	require.Equal(t, sampleAlert(), alerts[0])

	require.NotNil(t, db.lastQueryIn)
	require.NotNil(t, db.lastQueryIn.ScanIndexForward)
	require.False(t, *db.lastQueryIn.ScanIndexForward, "archive must read newest first")
	require.Equal(t, int32(25), *db.lastQueryIn.Limit)
}

func TestRecentAlerts_QueryError(t *testing.T) {
	c := mustNewClient(t, &fakeDynamo{queryErr: errors.New("boom")})
	_, err := c.RecentAlerts(context.Background(), 25)
	require.Error(t, err)
	require.Contains(t, err.Error(), "RecentAlerts")
}

func TestRecentAlerts_MalformedItem(t *testing.T) {
	db := &fakeDynamo{
		queryOut: &dynamodb.QueryOutput{
			Items: []map[string]types.AttributeValue{
				{"PK": &types.AttributeValueMemberS{Value: "FEED"}},
			},
		},
	}
	c := mustNewClient(t, db)
	_, err := c.RecentAlerts(context.Background(), 25)
	require.Error(t, err)
	require.Contains(t, err.Error(), "unmarshal")
}

func TestAlertSK_OrdersByTime(t *testing.T) {
	earlier := alertSK(time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC), "alert-1")
	later := alertSK(time.Date(2024, 3, 1, 13, 0, 0, 0, time.UTC), "alert-2")
	require.Less(t, earlier, later)
}
