package cmd

import (
	"fmt"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/dukex/autoflow/pkg/channels/gochannel"
	"github.com/dukex/autoflow/pkg/channels/kafka"
	"github.com/dukex/autoflow/pkg/eventbus"
)

// NewEventBus connects the event bus for serviceName. The gochannel provider
// only links components inside one process.
func NewEventBus(logger *slog.Logger, provider string, brokers []string, serviceName string) eventbus.EventBus {
	watermillLogger := watermill.NewSlogLogger(logger)

	switch provider {
	case "kafka":
		pub, sub, err := kafka.CreateChannel(watermillLogger, brokers, serviceName)
		if err != nil {
			panic(fmt.Errorf("failed to create Kafka pub/sub: %w", err))
		}

		return eventbus.NewWatermillEventBus(logger, pub, sub)
	case "gochannel", "":
		pub, sub, err := gochannel.CreateChannel(watermillLogger)
		if err != nil {
			panic(fmt.Errorf("failed to create gochannel pub/sub: %w", err))
		}

		return eventbus.NewWatermillEventBus(logger, pub, sub)
	default:
		panic("Unsupported event bus provider: " + provider)
	}
}
