package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/twmb/franz-go/pkg/kgo"

	"beefirst/internal/platform/config"
	"beefirst/pkg/requestcontext"
)

// Kafka publishes verification codes to a topic keyed by email, for an
// external mailer to consume.
type Kafka struct {
	client *kgo.Client
	topic  string
}

// NewKafka connects a producer for cfg.Topic.
func NewKafka(cfg config.KafkaConfig) (*Kafka, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.DefaultProduceTopic(cfg.Topic),
		kgo.AllowAutoTopicCreation(),
		kgo.RequiredAcks(kgo.AllISRAcks()),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}
	return &Kafka{client: client, topic: cfg.Topic}, nil
}

func (k *Kafka) Send(ctx context.Context, email, code string) error {
	payload, err := json.Marshal(Message{
		Email:     email,
		Code:      code,
		RequestID: requestcontext.RequestID(ctx),
		IssuedAt:  requestcontext.Now(ctx),
	})
	if err != nil {
		return fmt.Errorf("encode verification message: %w", err)
	}

	record := &kgo.Record{Topic: k.topic, Key: []byte(email), Value: payload}
	if err := k.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("publish verification message: %w", err)
	}
	return nil
}

// Ping checks broker connectivity.
func (k *Kafka) Ping(ctx context.Context) error {
	return k.client.Ping(ctx)
}

func (k *Kafka) Close() {
	k.client.Close()
}
