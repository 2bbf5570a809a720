package kafka

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap/zaptest"

	"github.com/arklim/homescout-onboarding/internal/core/domain"
	"github.com/arklim/homescout-onboarding/internal/infra/config"
)

type fakeAsyncProducer struct {
	input  chan *sarama.ProducerMessage
	errors chan *sarama.ProducerError
	closed bool
}

func newFakeAsyncProducer() *fakeAsyncProducer {
	return &fakeAsyncProducer{
		input:  make(chan *sarama.ProducerMessage, 1),
		errors: make(chan *sarama.ProducerError, 1),
	}
}

func (f *fakeAsyncProducer) AsyncClose() {}

func (f *fakeAsyncProducer) Close() error {
	f.closed = true
	return nil
}

func (f *fakeAsyncProducer) Input() chan<- *sarama.ProducerMessage { return f.input }

func (f *fakeAsyncProducer) Successes() <-chan *sarama.ProducerMessage { return nil }

func (f *fakeAsyncProducer) Errors() <-chan *sarama.ProducerError { return f.errors }

func (f *fakeAsyncProducer) IsTransactional() bool { return false }

func (f *fakeAsyncProducer) BeginTxn() error { return nil }

func (f *fakeAsyncProducer) CommitTxn() error { return nil }

func (f *fakeAsyncProducer) AbortTxn() error { return nil }

func (f *fakeAsyncProducer) AddOffsetsToTxn(offsets map[string][]*sarama.PartitionOffsetMetadata, groupID string) error {
	return nil
}

func (f *fakeAsyncProducer) AddMessageToTxn(msg *sarama.ConsumerMessage, groupID string, metadata *string) error {
	return nil
}

func (f *fakeAsyncProducer) TxnStatus() sarama.ProducerTxnStatusFlag {
	return sarama.ProducerTxnStatusFlag(0)
}

func newTestPublisher(t *testing.T) (*EventPublisher, *fakeAsyncProducer) {
	t.Helper()
	asyncProducer := newFakeAsyncProducer()
	producer := newProducer(asyncProducer, "homescout", zaptest.NewLogger(t))
	t.Cleanup(func() { _ = producer.Close() })

	publisher := NewEventPublisher(producer, config.AppSettings{
		Name: "homescout-onboarding",
		Env:  "test",
	}, zaptest.NewLogger(t))
	return publisher, asyncProducer
}

func decodeEnvelope(t *testing.T, msg *sarama.ProducerMessage) map[string]any {
	t.Helper()
	bytes, err := msg.Value.Encode()
	if err != nil {
		t.Fatalf("Value.Encode returned error: %v", err)
	}
	var envelope map[string]any
	if err := json.Unmarshal(bytes, &envelope); err != nil {
		t.Fatalf("failed to unmarshal envelope: %v", err)
	}
	return envelope
}

func TestPublishPreferencesSaved(t *testing.T) {
	publisher, asyncProducer := newTestPublisher(t)

	traceID := trace.TraceID{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08, 0x09, 0x0a, 0x0b, 0x0c, 0x0d, 0x0e, 0x0f, 0x10}
	spanCtx := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     trace.SpanID{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08},
		TraceFlags: trace.FlagsSampled,
	})
	ctx := trace.ContextWithSpanContext(context.Background(), spanCtx)

	savedAt := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	event := domain.PreferencesSavedEvent{
		EventID:           "event-123",
		UserID:            "user-789",
		PreferencesID:     "prefs-456",
		PreferredLocation: "Austin, TX",
		Created:           true,
		SavedAt:           savedAt,
	}

	if err := publisher.PublishPreferencesSaved(ctx, event); err != nil {
		t.Fatalf("PublishPreferencesSaved returned error: %v", err)
	}

	select {
	case msg := <-asyncProducer.input:
		if msg.Topic != "homescout.onboarding.preferences.saved" {
			t.Fatalf("unexpected topic: %s", msg.Topic)
		}
		key, err := msg.Key.Encode()
		if err != nil || string(key) != "user-789" {
			t.Fatalf("expected message keyed by user id, got %q err=%v", key, err)
		}

		envelope := decodeEnvelope(t, msg)
		if got := envelope["event_id"]; got != "event-123" {
			t.Fatalf("unexpected event_id: %v", got)
		}
		if got := envelope["event_type"]; got != EventPreferencesSaved {
			t.Fatalf("unexpected event_type: %v", got)
		}
		if got := envelope["timestamp"]; got != savedAt.Format(time.RFC3339Nano) {
			t.Fatalf("unexpected timestamp: %v", got)
		}

		payload, ok := envelope["payload"].(map[string]any)
		if !ok {
			t.Fatalf("payload has unexpected type %T", envelope["payload"])
		}
		if payload["preferences_id"] != "prefs-456" || payload["created"] != true {
			t.Fatalf("unexpected payload: %v", payload)
		}

		metadata, ok := envelope["metadata"].(map[string]any)
		if !ok {
			t.Fatalf("metadata has unexpected type %T", envelope["metadata"])
		}
		if metadata["service"] != "homescout-onboarding" || metadata["environment"] != "test" {
			t.Fatalf("unexpected metadata: %v", metadata)
		}
		if metadata["trace_id"] != traceID.String() {
			t.Fatalf("expected trace id %s, got %v", traceID, metadata["trace_id"])
		}
	default:
		t.Fatalf("expected message to be enqueued")
	}
}

func TestPublishOnboardingCompleted(t *testing.T) {
	publisher, asyncProducer := newTestPublisher(t)

	event := domain.OnboardingCompletedEvent{
		UserID:         "user-1",
		InstallationID: "device-1",
		Skipped:        true,
		CompletedAt:    time.Date(2024, 6, 2, 8, 30, 0, 0, time.UTC),
	}
	if err := publisher.PublishOnboardingCompleted(context.Background(), event); err != nil {
		t.Fatalf("PublishOnboardingCompleted returned error: %v", err)
	}

	msg := <-asyncProducer.input
	if msg.Topic != "homescout.onboarding.completed" {
		t.Fatalf("unexpected topic: %s", msg.Topic)
	}
	envelope := decodeEnvelope(t, msg)
	if id, _ := envelope["event_id"].(string); id == "" {
		t.Fatalf("expected generated event id")
	}
	payload := envelope["payload"].(map[string]any)
	if payload["installation_id"] != "device-1" || payload["skipped"] != true {
		t.Fatalf("unexpected payload: %v", payload)
	}
	metadata := envelope["metadata"].(map[string]any)
	if _, ok := metadata["trace_id"]; ok {
		t.Fatalf("expected no trace id without a span")
	}
}

func TestPublishHonoursContextCancellation(t *testing.T) {
	publisher, asyncProducer := newTestPublisher(t)
	asyncProducer.input <- &sarama.ProducerMessage{}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := publisher.PublishOnboardingCompleted(ctx, domain.OnboardingCompletedEvent{UserID: "user-1"})
	if err != context.Canceled {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestTopicName(t *testing.T) {
	producer := &Producer{topicPrefix: "homescout"}
	if got := producer.TopicName("onboarding.completed"); got != "homescout.onboarding.completed" {
		t.Fatalf("unexpected topic %q", got)
	}
	if got := producer.TopicName("homescout.onboarding.completed"); got != "homescout.onboarding.completed" {
		t.Fatalf("expected prefix not to be doubled, got %q", got)
	}
	if got := (&Producer{}).TopicName("onboarding.completed"); got != "onboarding.completed" {
		t.Fatalf("unexpected unprefixed topic %q", got)
	}
}
