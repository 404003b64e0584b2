package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"triage-agent/internal/domain"
)

const (
	pkFeed        = "FEED"
	skPrefixAlert = "ALERT#"
	ttlDuration   = 30 * 24 * time.Hour // 30-day TTL
)

// dynamodbAPI is the minimal DynamoDB interface required by Client.
// Defined here for testability.
type dynamodbAPI interface {
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	Query(ctx context.Context, in *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

// Client wraps a DynamoDB table as an append-only alert archive. The live
// feed stays in memory; the archive exists so alerts survive process
// recycling for later review. Deletions from the feed deliberately do not
// touch it.
type Client struct {
	api       dynamodbAPI
	tableName string
}

// New creates a new archive Client.
func New(api dynamodbAPI, tableName string) (*Client, error) {
	if api == nil {
		return nil, errors.New("repository: api must not be nil")
	}
	if strings.TrimSpace(tableName) == "" {
		return nil, errors.New("repository: table name must not be empty")
	}
	return &Client{api: api, tableName: tableName}, nil
}

// alertSK returns the sort key for an alert. The timestamp prefix keeps the
// partition chronologically sorted; the id suffix disambiguates
// identical-second alerts.
func alertSK(ts time.Time, id string) string {
	return skPrefixAlert + ts.UTC().Format(time.RFC3339Nano) + "#" + id
}

// ttlValue returns a Unix timestamp 30 days in the future.
func ttlValue() int64 {
	return time.Now().Add(ttlDuration).Unix()
}

// ArchiveAlert persists one alert record. All alerts share one feed
// partition; write volume is a handful of items per incident, nowhere near a
// hot key.
func (c *Client) ArchiveAlert(ctx context.Context, a domain.AlertRecord) error {
	if a.ID == "" {
		return errors.New("repository: ArchiveAlert: alert id is required")
	}

	_, err := c.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(c.tableName),
		Item:      alertItem(a),
	})
	if err != nil {
		return fmt.Errorf("repository: ArchiveAlert: %w", err)
	}
	return nil
}

// RecentAlerts returns up to limit archived alerts, newest first. Used to
// reseed the in-memory feed on cold start.
func (c *Client) RecentAlerts(ctx context.Context, limit int) ([]domain.AlertRecord, error) {
	in := &dynamodb.QueryInput{
		TableName:              aws.String(c.tableName),
		KeyConditionExpression: aws.String("PK = :pk AND begins_with(SK, :prefix)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk":     &types.AttributeValueMemberS{Value: pkFeed},
			":prefix": &types.AttributeValueMemberS{Value: skPrefixAlert},
		},
		ScanIndexForward: aws.Bool(false),
		Limit:            aws.Int32(int32(limit)),
	}

	out, err := c.api.Query(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("repository: RecentAlerts query: %w", err)
	}

	alerts := make([]domain.AlertRecord, 0, len(out.Items))
	for _, item := range out.Items {
		a, err := itemToAlert(item)
		if err != nil {
			return nil, fmt.Errorf("repository: RecentAlerts unmarshal: %w", err)
		}
		alerts = append(alerts, a)
	}
	return alerts, nil
}

func alertItem(a domain.AlertRecord) map[string]types.AttributeValue {
	ts, err := time.Parse("2006-01-02T15:04:05Z", a.Timestamp)
	if err != nil {
		ts = time.Now().UTC()
	}
	return map[string]types.AttributeValue{
		"PK":            &types.AttributeValueMemberS{Value: pkFeed},
		"SK":            &types.AttributeValueMemberS{Value: alertSK(ts, a.ID)},
		"alertId":       &types.AttributeValueMemberS{Value: a.ID},
		"title":         &types.AttributeValueMemberS{Value: a.Title},
		"message":       &types.AttributeValueMemberS{Value: a.Message},
		"severity":      &types.AttributeValueMemberS{Value: string(a.Severity)},
		"timestamp":     &types.AttributeValueMemberS{Value: a.Timestamp},
		"recipientId":   &types.AttributeValueMemberS{Value: a.Recipient.ID},
		"recipientName": &types.AttributeValueMemberS{Value: a.Recipient.Name},
		"possibleDeath": &types.AttributeValueMemberN{Value: strconv.FormatFloat(a.PossibleDeath, 'f', -1, 64)},
		"falseAlarm":    &types.AttributeValueMemberN{Value: strconv.FormatFloat(a.FalseAlarm, 'f', -1, 64)},
		"location":      &types.AttributeValueMemberS{Value: a.Location},
		"description":   &types.AttributeValueMemberS{Value: a.Description},
		"ttl":           &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", ttlValue())},
	}
}

// itemToAlert converts a DynamoDB attribute map back to an AlertRecord.
// Reseeded alerts are addressed to the fixed response team like fresh ones.
func itemToAlert(item map[string]types.AttributeValue) (domain.AlertRecord, error) {
	id, err := strAttr(item, "alertId")
	if err != nil {
		return domain.AlertRecord{}, err
	}
	title, err := strAttr(item, "title")
	if err != nil {
		return domain.AlertRecord{}, err
	}
	message, err := strAttr(item, "message")
	if err != nil {
		return domain.AlertRecord{}, err
	}
	severity, err := strAttr(item, "severity")
	if err != nil {
		return domain.AlertRecord{}, err
	}
	timestamp, err := strAttr(item, "timestamp")
	if err != nil {
		return domain.AlertRecord{}, err
	}
	possibleDeath, err := numAttr(item, "possibleDeath")
	if err != nil {
		return domain.AlertRecord{}, err
	}
	falseAlarm, err := numAttr(item, "falseAlarm")
	if err != nil {
		return domain.AlertRecord{}, err
	}
	location, _ := strAttr(item, "location")       // allow empty
	description, _ := strAttr(item, "description") // allow empty
	recipientID, _ := strAttr(item, "recipientId")
	recipientName, _ := strAttr(item, "recipientName")

	return domain.AlertRecord{
		ID:        id,
		Title:     title,
		Message:   message,
		Severity:  domain.Severity(severity),
		Timestamp: timestamp,
		Recipient: domain.Recipient{
			ID:       recipientID,
			Name:     recipientName,
			IsOnline: true,
		},
		IsRead:        false,
		PossibleDeath: possibleDeath,
		FalseAlarm:    falseAlarm,
		Location:      location,
		Description:   description,
	}, nil
}

func strAttr(item map[string]types.AttributeValue, key string) (string, error) {
	v, ok := item[key]
	if !ok {
		return "", fmt.Errorf("repository: missing attribute %q", key)
	}
	s, ok := v.(*types.AttributeValueMemberS)
	if !ok {
		return "", fmt.Errorf("repository: attribute %q is not a string", key)
	}
	return s.Value, nil
}

func numAttr(item map[string]types.AttributeValue, key string) (float64, error) {
	v, ok := item[key]
	if !ok {
		return 0, fmt.Errorf("repository: missing attribute %q", key)
	}
	n, ok := v.(*types.AttributeValueMemberN)
	if !ok {
		return 0, fmt.Errorf("repository: attribute %q is not a number", key)
	}
	parsed, err := strconv.ParseFloat(n.Value, 64)
	if err != nil {
		return 0, fmt.Errorf("repository: parse attribute %q: %w", key, err)
	}
	return parsed, nil
}
