package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/IBM/sarama"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/delivery-tracker/internal/messaging/kafka"
)

const defaultGroupID = "delivery-notifier"

// statusMessages — тексты уведомлений для клиента по статусам заказа.
var statusMessages = map[string]string{
	"pending":            "Заказ %s принят и ожидает подтверждения",
	"confirmed":          "Заказ %s подтверждён рестораном",
	"cooking":            "Заказ %s готовится",
	"ready_for_delivery": "Заказ %s готов и ждёт курьера",
	"out_for_delivery":   "Заказ %s передан курьеру",
	"delivered":          "Заказ %s доставлен, приятного аппетита!",
	"cancelled":          "Заказ %s отменён",
}

// renderNotification формирует текст уведомления для события заказа.
// Возвращает false для событий, по которым клиента уведомлять не нужно.
func renderNotification(event *kafka.OrderEvent) (string, bool) {
	if event == nil {
		return "", false
	}

	switch event.EventType {
	case kafka.EventTypeOrderCreated:
		return fmt.Sprintf("Заказ %s создан", event.OrderID), true
	case kafka.EventTypeCheckoutCompleted:
		return fmt.Sprintf("Заказ %s оформлен, скоро начнём готовить", event.OrderID), true
	case kafka.EventTypeStatusChanged:
		template, ok := statusMessages[event.Status]
		if !ok {
			return "", false
		}
		return fmt.Sprintf(template, event.OrderID), true
	case kafka.EventTypeCourierAssigned:
		return fmt.Sprintf("К заказу %s назначен курьер", event.OrderID), true
	case kafka.EventTypeLocationUpdated:
		// Координаты курьера клиент видит в приложении, push не шлём.
		return "", false
	default:
		return "", false
	}
}

// handleMessage разбирает outbox-конверт и логирует уведомление.
// Возвращает ошибку только для нечитаемых сообщений, чтобы consumer
// отправил их в DLQ.
func handleMessage(_ context.Context, message *sarama.ConsumerMessage) error {
	envelope, err := kafka.ParseOutboxEnvelope(message)
	if err != nil {
		return err
	}

	var event kafka.OrderEvent
	if err := json.Unmarshal(envelope.Payload, &event); err != nil {
		return fmt.Errorf("decode order event from envelope %s: %w", envelope.ID, err)
	}

	text, ok := renderNotification(&event)
	if !ok {
		return nil
	}

	log.WithFields(log.Fields{
		"order_id":    event.OrderID,
		"customer_id": event.CustomerID,
		"event_type":  event.EventType,
	}).Infof("уведомление: %s", text)

	return nil
}

func main() {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	log.SetLevel(log.InfoLevel)

	var (
		brokersRaw string
		groupID    string
		maxRetries int
	)

	flag.StringVar(&brokersRaw, "brokers", "", "Kafka brokers as comma-separated list (fallback: DELIVERY_KAFKA_BROKERS)")
	flag.StringVar(&groupID, "group", defaultGroupID, "consumer group id")
	flag.IntVar(&maxRetries, "max-retries", 3, "retries before a message goes to DLQ")
	flag.Parse()

	if strings.TrimSpace(brokersRaw) == "" {
		brokersRaw = os.Getenv("DELIVERY_KAFKA_BROKERS")
	}

	brokers := parseBrokers(brokersRaw)
	if len(brokers) == 0 {
		fail("kafka brokers are required (-brokers or DELIVERY_KAFKA_BROKERS)")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dlqProducer, err := kafka.NewProducer(brokers)
	if err != nil {
		log.WithError(err).Warn("failed to create dlq producer, continuing without dlq")
		dlqProducer = nil
	}

	consumer, err := kafka.NewConsumerWithDLQ(
		brokers,
		groupID,
		[]string{kafka.TopicOrderEvents},
		handleMessage,
		dlqProducer,
		maxRetries,
	)
	if err != nil {
		fail("create kafka consumer: %v", err)
	}

	log.WithFields(log.Fields{
		"brokers": brokers,
		"group":   groupID,
		"topic":   kafka.TopicOrderEvents,
	}).Info("notifier запущен")

	if err := consumer.Start(ctx); err != nil {
		fail("consumer failed: %v", err)
	}

	<-ctx.Done()

	if err := consumer.Stop(); err != nil {
		log.WithError(err).Warn("consumer stopped with error")
	}
	if dlqProducer != nil {
		if err := dlqProducer.Close(); err != nil {
			log.WithError(err).Warn("failed to close dlq producer")
		}
	}

	log.Info("notifier остановлен")
}

func parseBrokers(raw string) []string {
	chunks := strings.Split(raw, ",")
	brokers := make([]string, 0, len(chunks))
	for _, chunk := range chunks {
		broker := strings.TrimSpace(chunk)
		if broker == "" {
			continue
		}
		brokers = append(brokers, broker)
	}
	return brokers
}

func fail(format string, args ...any) {
	_, _ = fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
