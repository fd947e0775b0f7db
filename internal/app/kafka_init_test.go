package app

import (
	"testing"

	log "github.com/sirupsen/logrus"
)

func TestSplitBrokers(t *testing.T) {
	cases := []struct {
		raw  string
		want int
	}{
		{"", 0},
		{" , ,", 0},
		{"kafka-1:9092", 1},
		{" kafka-1:9092 , kafka-2:9092 ", 2},
	}

	for _, tc := range cases {
		got := splitBrokers(tc.raw)
		if len(got) != tc.want {
			t.Errorf("splitBrokers(%q): expected %d brokers, got %v", tc.raw, tc.want, got)
		}
	}
}

func TestInitKafkaProducer_NoBrokers(t *testing.T) {
	logger := log.WithField("test", "kafka")

	producer, err := initKafkaProducer(" , ", logger)
	if err != nil {
		t.Errorf("expected no error for empty broker list, got %v", err)
	}
	if producer != nil {
		t.Error("expected nil producer for empty broker list")
	}
}

func TestInitKafkaProducer_UnreachableBroker(t *testing.T) {
	logger := log.WithField("test", "kafka")

	producer, err := initKafkaProducer("invalid-broker:9999", logger)
	if err == nil {
		t.Error("expected error for unreachable broker")
	}
	if producer != nil {
		t.Error("expected nil producer on error")
	}
}

func TestCloseKafka_NilProducer(t *testing.T) {
	// Не должно паниковать
	closeKafka(nil, log.WithField("test", "kafka"))
}
