package main

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/IBM/sarama"

	"github.com/vladislavdragonenkov/delivery-tracker/internal/messaging/kafka"
)

func envelopeMessage(t *testing.T, event *kafka.OrderEvent) *sarama.ConsumerMessage {
	t.Helper()

	payload, err := json.Marshal(event)
	if err != nil {
		t.Fatalf("marshal event: %v", err)
	}
	envelope := kafka.OutboxEnvelope{
		ID:            "msg-1",
		AggregateType: "order",
		AggregateID:   event.OrderID,
		EventType:     string(event.EventType),
		Payload:       payload,
		PublishedAt:   time.Now().UTC(),
	}
	value, err := json.Marshal(envelope)
	if err != nil {
		t.Fatalf("marshal envelope: %v", err)
	}

	return &sarama.ConsumerMessage{Topic: kafka.TopicOrderEvents, Value: value}
}

func TestRenderNotification_StatusChanged(t *testing.T) {
	event := kafka.NewOrderEvent(kafka.EventTypeStatusChanged, "100155", "customer_1", "delivered", "system", nil)

	text, ok := renderNotification(event)
	if !ok {
		t.Fatal("expected notification for delivered status")
	}
	if !strings.Contains(text, "100155") {
		t.Errorf("notification should mention order id, got %q", text)
	}
	if !strings.Contains(text, "доставлен") {
		t.Errorf("unexpected delivered notification text: %q", text)
	}
}

func TestRenderNotification_EveryStatusHasText(t *testing.T) {
	statuses := []string{"pending", "confirmed", "cooking", "ready_for_delivery", "out_for_delivery", "delivered", "cancelled"}

	for _, status := range statuses {
		event := kafka.NewOrderEvent(kafka.EventTypeStatusChanged, "100155", "customer_1", status, "system", nil)
		if _, ok := renderNotification(event); !ok {
			t.Errorf("expected notification for status %s", status)
		}
	}
}

func TestRenderNotification_LocationUpdatesAreSilent(t *testing.T) {
	event := kafka.NewOrderEvent(kafka.EventTypeLocationUpdated, "100157", "customer_3", "out_for_delivery", "simulator", nil)

	if _, ok := renderNotification(event); ok {
		t.Error("location updates should not produce notifications")
	}
}

func TestRenderNotification_UnknownEventType(t *testing.T) {
	event := kafka.NewOrderEvent(kafka.EventType("order.refunded"), "100155", "customer_1", "delivered", "system", nil)

	if _, ok := renderNotification(event); ok {
		t.Error("unknown event types should not produce notifications")
	}
}

func TestRenderNotification_NilEvent(t *testing.T) {
	if _, ok := renderNotification(nil); ok {
		t.Error("nil event should not produce a notification")
	}
}

func TestHandleMessage_ValidEnvelope(t *testing.T) {
	event := kafka.NewOrderEvent(kafka.EventTypeOrderCreated, "100155", "customer_1", "pending", "system", nil)
	msg := envelopeMessage(t, event)

	if err := handleMessage(context.Background(), msg); err != nil {
		t.Fatalf("handleMessage: %v", err)
	}
}

func TestHandleMessage_SilentEventIsAcked(t *testing.T) {
	event := kafka.NewOrderEvent(kafka.EventTypeLocationUpdated, "100157", "customer_3", "out_for_delivery", "simulator", nil)
	msg := envelopeMessage(t, event)

	if err := handleMessage(context.Background(), msg); err != nil {
		t.Fatalf("silent events should be acked without error, got %v", err)
	}
}

func TestHandleMessage_BrokenPayload(t *testing.T) {
	envelope := kafka.OutboxEnvelope{
		ID:          "msg-2",
		AggregateID: "100155",
		EventType:   string(kafka.EventTypeOrderCreated),
		Payload:     json.RawMessage(`"not an object"`),
	}
	value, err := json.Marshal(envelope)
	if err != nil {
		t.Fatalf("marshal envelope: %v", err)
	}
	msg := &sarama.ConsumerMessage{Topic: kafka.TopicOrderEvents, Value: value}

	if err := handleMessage(context.Background(), msg); err == nil {
		t.Fatal("expected error for broken payload")
	}
}

func TestHandleMessage_NotJSON(t *testing.T) {
	msg := &sarama.ConsumerMessage{Topic: kafka.TopicOrderEvents, Value: []byte("garbage")}

	if err := handleMessage(context.Background(), msg); err == nil {
		t.Fatal("expected error for non-json message")
	}
}

func TestParseBrokers(t *testing.T) {
	brokers := parseBrokers(" kafka-1:9092, ,kafka-2:9092 ")

	if len(brokers) != 2 {
		t.Fatalf("expected 2 brokers, got %d", len(brokers))
	}
	if brokers[0] != "kafka-1:9092" || brokers[1] != "kafka-2:9092" {
		t.Errorf("unexpected brokers: %v", brokers)
	}
}
