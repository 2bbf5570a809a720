package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/arklim/homescout-onboarding/internal/core/domain"
	"github.com/arklim/homescout-onboarding/internal/core/port"
	"github.com/arklim/homescout-onboarding/internal/infra/config"
)

const (
	schemaVersion = "1.0"

	EventPreferencesSaved   = "onboarding.preferences.saved"
	EventOnboardingComplete = "onboarding.completed"
)

// EventPublisher implements port.EventPublisher on top of Kafka.
type EventPublisher struct {
	producer *Producer
	logger   *zap.Logger
	appCfg   config.AppSettings
}

// NewEventPublisher constructs a Kafka-backed event publisher.
func NewEventPublisher(producer *Producer, appCfg config.AppSettings, logger *zap.Logger) *EventPublisher {
	return &EventPublisher{producer: producer, appCfg: appCfg, logger: logger}
}

type eventEnvelope struct {
	EventID   string            `json:"event_id"`
	EventType string            `json:"event_type"`
	UserID    string            `json:"user_id,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
	Version   string            `json:"version"`
	Payload   any               `json:"payload"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// publish keys every message by user id so one user's events stay ordered.
func (p *EventPublisher) publish(ctx context.Context, eventID, eventType, userID string, ts time.Time, payload any) error {
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	if eventID == "" {
		eventID = uuid.NewString()
	}

	metadata := map[string]string{
		"service":     p.appCfg.Name,
		"environment": p.appCfg.Env,
	}
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		metadata["trace_id"] = sc.TraceID().String()
	}

	body, err := json.Marshal(eventEnvelope{
		EventID:   eventID,
		EventType: eventType,
		UserID:    userID,
		Timestamp: ts.UTC(),
		Version:   schemaVersion,
		Payload:   payload,
		Metadata:  metadata,
	})
	if err != nil {
		return fmt.Errorf("marshal event envelope: %w", err)
	}

	message := &sarama.ProducerMessage{
		Topic: p.producer.TopicName(eventType),
		Key:   sarama.StringEncoder(userID),
		Value: sarama.ByteEncoder(body),
	}

	select {
	case p.producer.Input() <- message:
		p.logger.Debug("event enqueued",
			zap.String("event_type", eventType),
			zap.String("event_id", eventID),
		)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// PublishPreferencesSaved publishes onboarding.preferences.saved events.
func (p *EventPublisher) PublishPreferencesSaved(ctx context.Context, event domain.PreferencesSavedEvent) error {
	payload := struct {
		UserID            string         `json:"user_id"`
		PreferencesID     string         `json:"preferences_id"`
		PreferredLocation string         `json:"preferred_location"`
		Created           bool           `json:"created"`
		SavedAt           time.Time      `json:"saved_at"`
		Metadata          map[string]any `json:"metadata,omitempty"`
	}{
		UserID:            event.UserID,
		PreferencesID:     event.PreferencesID,
		PreferredLocation: event.PreferredLocation,
		Created:           event.Created,
		SavedAt:           event.SavedAt.UTC(),
		Metadata:          event.Metadata,
	}

	return p.publish(ctx, event.EventID, EventPreferencesSaved, event.UserID, event.SavedAt, payload)
}

// PublishOnboardingCompleted publishes onboarding.completed events.
func (p *EventPublisher) PublishOnboardingCompleted(ctx context.Context, event domain.OnboardingCompletedEvent) error {
	payload := struct {
		UserID         string         `json:"user_id"`
		InstallationID string         `json:"installation_id,omitempty"`
		Skipped        bool           `json:"skipped"`
		CompletedAt    time.Time      `json:"completed_at"`
		Metadata       map[string]any `json:"metadata,omitempty"`
	}{
		UserID:         event.UserID,
		InstallationID: event.InstallationID,
		Skipped:        event.Skipped,
		CompletedAt:    event.CompletedAt.UTC(),
		Metadata:       event.Metadata,
	}

	return p.publish(ctx, event.EventID, EventOnboardingComplete, event.UserID, event.CompletedAt, payload)
}

var _ port.EventPublisher = (*EventPublisher)(nil)
