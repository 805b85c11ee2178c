package kafka_test

import (
	"testing"

	"orders/internal/pkg/kafka"

	"github.com/stretchr/testify/assert"
)

func TestNewClient(t *testing.T) {
	c := kafka.NewClient(" broker-1:9092, ,broker-2:9092 ")
	assert.Equal(t, []string{"broker-1:9092", "broker-2:9092"}, c.Brokers)
	assert.True(t, c.Enabled())

	assert.False(t, kafka.NewClient("").Enabled())
}

func TestNewWriter(t *testing.T) {
	w := kafka.NewClient("broker-1:9092").NewWriter()
	assert.Empty(t, w.Topic)
	assert.Equal(t, "broker-1:9092", w.Addr.String())
}
