// Package kafka builds segmentio/kafka-go writers and readers from a broker list.
package kafka

import (
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
)

// Client holds the broker addresses shared by every writer and reader.
type Client struct {
	Brokers []string
}

// NewClient parses a comma separated broker list. Blank entries are ignored.
func NewClient(brokersCSV string) *Client {
	brokers := []string{}
	for _, b := range strings.Split(brokersCSV, ",") {
		b = strings.TrimSpace(b)
		if b != "" {
			brokers = append(brokers, b)
		}
	}
	return &Client{Brokers: brokers}
}

func (c *Client) Enabled() bool {
	return len(c.Brokers) > 0
}

// NewWriter returns a writer without a default topic; every message names its own.
// Messages with the same key land on the same partition.
func (c *Client) NewWriter() *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(c.Brokers...),
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
		BatchTimeout:           10 * time.Millisecond,
	}
}

// NewReader returns a consumer-group reader for one topic.
func (c *Client) NewReader(topic, groupID string) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:  c.Brokers,
		Topic:    topic,
		GroupID:  groupID,
		MinBytes: 1,
		MaxBytes: 10e6,
		MaxWait:  500 * time.Millisecond,
	})
}
