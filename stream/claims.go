// Package stream provides the DynamoDB Streams handler that releases stale email claims.
package stream

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aws/aws-lambda-go/events"
)

// ClaimReleaser deletes an email claim if it is still owned by userID and
// that user no longer holds the email.
// *store.Store implements it.
type ClaimReleaser interface {
	ReleaseClaim(ctx context.Context, email, userID string) error
}

// Handler processes users table stream events.
type Handler struct {
	claims ClaimReleaser
	logger *slog.Logger
}

// NewHandler creates a new stream handler.
func NewHandler(claims ClaimReleaser, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		claims: claims,
		logger: logger,
	}
}

// HandleClaimRelease processes users table stream events and releases the
// email claim a record no longer uses. Claims are normally swapped in the same
// transaction as the record; this is the cleanup path for anything that slips
// through, such as items deleted directly in the console.
// The stream must carry NEW_AND_OLD_IMAGES.
func (h *Handler) HandleClaimRelease(ctx context.Context, event events.DynamoDBEvent) error {
	for _, record := range event.Records {
		if err := h.processRecord(ctx, record); err != nil {
			h.logger.Error("failed to process record",
				"eventID", record.EventID,
				"error", err,
			)
			return err // Will retry, eventually DLQ
		}
	}
	return nil
}

// processRecord processes a single DynamoDB stream record.
func (h *Handler) processRecord(ctx context.Context, record events.DynamoDBEventRecord) error {
	id := getStringAttr(record.Change.OldImage, "id")
	oldEmail := getStringAttr(record.Change.OldImage, "email")

	switch record.EventName {
	case "REMOVE":
	case "MODIFY":
		// Only an email change leaves a stale claim behind
		if oldEmail == getStringAttr(record.Change.NewImage, "email") {
			return nil
		}
	default:
		return nil
	}

	if id == "" || oldEmail == "" {
		return nil
	}

	h.logger.Info("releasing email claim",
		"id", id,
		"event", record.EventName,
	)

	if err := h.claims.ReleaseClaim(ctx, oldEmail, id); err != nil {
		return fmt.Errorf("release claim for %s: %w", id, err)
	}
	return nil
}

// getStringAttr extracts a string attribute from a DynamoDB stream image.
func getStringAttr(image map[string]events.DynamoDBAttributeValue, key string) string {
	if v, ok := image[key]; ok && v.DataType() == events.DataTypeString {
		return v.String()
	}
	return ""
}
