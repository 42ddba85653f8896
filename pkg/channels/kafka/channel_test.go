package kafka_test

import (
	"testing"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/dukex/autoflow/pkg/channels/kafka"
	"github.com/stretchr/testify/require"
)

func TestCreateChannel_NoBrokers(t *testing.T) {
	_, _, err := kafka.CreateChannel(watermill.NopLogger{}, nil, "autoflow")
	require.Error(t, err)

	_, _, err = kafka.CreateChannel(watermill.NopLogger{}, []string{""}, "autoflow")
	require.Error(t, err)
}
