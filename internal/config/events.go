package config

import (
	"log/slog"

	"github.com/SAP-F-2025/lms-service/internal/events"
)

// EventConfig selects where attempt, grading and review events go.
type EventConfig struct {
	Enabled           bool   // EVENTS_ENABLED
	Publisher         string // EVENTS_PUBLISHER: kafka or mock
	KafkaBrokers      string // KAFKA_BROKERS, comma separated
	NotificationTopic string // NOTIFICATION_TOPIC
}

// GetKafkaBrokers returns Kafka brokers as a slice, skipping blanks
func (c *EventConfig) GetKafkaBrokers() []string {
	return splitList(c.KafkaBrokers)
}

// CreateEventPublisher creates an event publisher based on configuration
func (c *EventConfig) CreateEventPublisher(logger *slog.Logger) (events.EventPublisher, error) {
	if !c.Enabled {
		logger.Info("Event publishing disabled, using mock publisher")
		return events.NewMockEventPublisher(logger), nil
	}

	switch c.Publisher {
	case "kafka":
		logger.Info("Creating Kafka event publisher",
			"brokers", c.KafkaBrokers,
			"topic", c.NotificationTopic)

		return events.NewKafkaEventPublisher(events.PublisherConfig{
			KafkaBrokers: c.GetKafkaBrokers(),
			TopicName:    c.NotificationTopic,
			Logger:       logger,
		})
	case "mock":
		logger.Info("Using mock event publisher")
		return events.NewMockEventPublisher(logger), nil
	default:
		logger.Warn("Unknown event publisher type, falling back to mock", "publisher", c.Publisher)
		return events.NewMockEventPublisher(logger), nil
	}
}
