package queue

import (
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
)

func TestNewKafkaQueue(t *testing.T) {
	cfg := KafkaConfig{
		Brokers: []string{"localhost:9092"},
		GroupID: "test-group",
	}

	q, err := NewKafkaQueue(cfg)
	if err != nil {
		t.Fatalf("Failed to create Kafka queue: %v", err)
	}
	defer func() { _ = q.Close() }()

	if q.writers == nil || q.readers == nil || q.subscriptions == nil {
		t.Error("Expected internal maps to be initialized")
	}
}

func TestNewKafkaQueue_NoBrokers(t *testing.T) {
	if _, err := NewKafkaQueue(KafkaConfig{Brokers: []string{}}); err == nil {
		t.Fatal("Expected error when no brokers configured")
	}
	if _, err := NewKafkaQueue(KafkaConfig{Brokers: nil}); err == nil {
		t.Fatal("Expected error when brokers is nil")
	}
}

func TestNewKafkaQueue_Defaults(t *testing.T) {
	q, err := NewKafkaQueue(KafkaConfig{
		Brokers: []string{"localhost:9092"},
	})
	if err != nil {
		t.Fatalf("Failed to create Kafka queue: %v", err)
	}
	defer func() { _ = q.Close() }()

	if q.config.GroupID != "driftwatch-detectors" {
		t.Errorf("Expected default group 'driftwatch-detectors', got %q", q.config.GroupID)
	}
	if q.config.BatchSize != 100 {
		t.Errorf("Expected default batch size 100, got %d", q.config.BatchSize)
	}
	if q.config.BatchTimeout != 10*time.Millisecond {
		t.Errorf("Expected default batch timeout 10ms, got %v", q.config.BatchTimeout)
	}
	if q.config.RequiredAcks != int(kafka.RequireOne) {
		t.Errorf("Expected default required acks 1, got %d", q.config.RequiredAcks)
	}
	if q.config.MaxRetries != 3 {
		t.Errorf("Expected default max retries 3, got %d", q.config.MaxRetries)
	}
}

func TestKafkaQueue_GetOrCreateWriter(t *testing.T) {
	q, err := NewKafkaQueue(KafkaConfig{
		Brokers: []string{"localhost:9092"},
	})
	if err != nil {
		t.Fatalf("Failed to create Kafka queue: %v", err)
	}
	defer func() { _ = q.Close() }()

	w1 := q.getOrCreateWriter(SubjectChanges)
	if w1 == nil {
		t.Fatal("Writer should not be nil")
	}

	w2 := q.getOrCreateWriter(SubjectChanges)
	if w1 != w2 {
		t.Error("Should return same writer for same topic")
	}

	w3 := q.getOrCreateWriter(ObservationSubject("metrics"))
	if w1 == w3 {
		t.Error("Different topics should have different writers")
	}
}

func TestKafkaQueue_UnsubscribeNotSubscribed(t *testing.T) {
	q, err := NewKafkaQueue(KafkaConfig{
		Brokers: []string{"localhost:9092"},
	})
	if err != nil {
		t.Fatalf("Failed to create Kafka queue: %v", err)
	}
	defer func() { _ = q.Close() }()

	if err := q.Unsubscribe("not.subscribed"); err == nil {
		t.Fatal("Expected error when unsubscribing from non-existent topic")
	}
}

func TestKafkaQueue_Stats_UnknownTopic(t *testing.T) {
	q, err := NewKafkaQueue(KafkaConfig{
		Brokers: []string{"localhost:9092"},
	})
	if err != nil {
		t.Fatalf("Failed to create Kafka queue: %v", err)
	}
	defer func() { _ = q.Close() }()

	stats := q.Stats("unknown")
	if stats.Writes != 0 {
		t.Errorf("Expected zero stats for unknown topic, got %+v", stats)
	}
}
