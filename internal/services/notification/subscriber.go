// Package notification prints committed floor events for back-of-house staff.
package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"restaurant-floor/internal/logger"
	"restaurant-floor/internal/messaging"
	"restaurant-floor/internal/models"
)

// Subscriber handles floor event messages
type Subscriber struct {
	consumer *messaging.Consumer
	logger   *logger.Logger
	out      io.Writer
}

// NewSubscriber creates a new notification subscriber writing to out
func NewSubscriber(consumer *messaging.Consumer, log *logger.Logger, out io.Writer) *Subscriber {
	return &Subscriber{
		consumer: consumer,
		logger:   log,
		out:      out,
	}
}

// Start consumes floor events until ctx is cancelled
func (s *Subscriber) Start(ctx context.Context) error {
	requestID := logger.GenerateRequestID()
	s.logger.Info("service_started", "Floor events subscriber started", requestID, nil)

	err := s.consumer.StartConsuming(ctx, s.HandleMessage)

	s.logger.Info("graceful_shutdown", "Closing consumer", requestID, nil)
	if closeErr := s.consumer.Close(); closeErr != nil {
		s.logger.Error("consumer_close_failed", "Failed to close consumer", requestID, closeErr, nil)
	}
	return err
}

// HandleMessage decodes and displays one floor event
func (s *Subscriber) HandleMessage(ctx context.Context, body []byte) error {
	requestID := logger.GenerateRequestID()

	var event models.FloorEvent
	if err := json.Unmarshal(body, &event); err != nil {
		s.logger.Error("message_parsing_failed", "Failed to parse floor event", requestID, err, nil)
		return fmt.Errorf("failed to parse floor event: %w", err)
	}

	fmt.Fprintln(s.out, FormatEvent(&event))

	s.logger.Info("notification_displayed", "Floor event displayed", requestID, map[string]interface{}{
		"event_id":   event.ID,
		"event_type": event.Type,
		"table_id":   event.TableID,
		"new_status": event.NewStatus,
		"changed_by": event.ChangedBy,
	})
	return nil
}

// FormatEvent renders a human-readable line for event
func FormatEvent(event *models.FloorEvent) string {
	timestamp := event.Timestamp.Format("2006-01-02 15:04:05")

	switch event.Type {
	case models.EventOrderOpened:
		return fmt.Sprintf("[%s] Order %d opened on table %d by %s.",
			timestamp, derefID(event.OrderID), event.TableID, event.ChangedBy)
	case models.EventOrderClosed:
		total := "0.00"
		if event.Total != nil {
			total = event.Total.StringFixed(2)
		}
		return fmt.Sprintf("[%s] Order %d on table %d closed by %s. Total: %s",
			timestamp, derefID(event.OrderID), event.TableID, event.ChangedBy, total)
	case models.EventTableStatusChanged:
		return fmt.Sprintf("[%s] Table %d marked %s by %s (was %s).",
			timestamp, event.TableID, event.NewStatus, event.ChangedBy, event.OldStatus)
	default:
		return fmt.Sprintf("[%s] %s on table %d: '%s' -> '%s' by %s.",
			timestamp, event.Type, event.TableID, event.OldStatus, event.NewStatus, event.ChangedBy)
	}
}

func derefID(id *int64) int64 {
	if id == nil {
		return 0
	}
	return *id
}
