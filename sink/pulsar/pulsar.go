package pulsar

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"videogen/sink"

	"github.com/apache/pulsar-client-go/pulsar"
	"go.uber.org/zap"
)

const DefaultNamespace = "public/default"

type PulsarConfig struct {
	Brokers string
	// Tenant and namespace the entity topics live in, as "tenant/namespace".
	Namespace string
}

// PulsarSink keeps one producer per entity topic. Producers batch by key
// so records of one customer or title stay in order on a partition.
type PulsarSink struct {
	client    pulsar.Client
	namespace string
	producers map[string]pulsar.Producer

	sent   atomic.Int64
	failed atomic.Int64
}

func OpenPulsarSink(ctx context.Context, cfg PulsarConfig) (*PulsarSink, error) {
	client, err := pulsar.NewClient(pulsar.ClientOptions{
		URL: fmt.Sprintf("pulsar://%s", cfg.Brokers),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create pulsar client: %w", err)
	}
	return newPulsarSink(client, cfg), nil
}

func newPulsarSink(client pulsar.Client, cfg PulsarConfig) *PulsarSink {
	if cfg.Namespace == "" {
		cfg.Namespace = DefaultNamespace
	}
	return &PulsarSink{
		client:    client,
		namespace: strings.Trim(cfg.Namespace, "/"),
		producers: make(map[string]pulsar.Producer),
	}
}

// TopicName maps an entity topic such as "customers" to its fully
// qualified persistent topic.
func (p *PulsarSink) TopicName(topic string) string {
	return fmt.Sprintf("persistent://%s/%s", p.namespace, topic)
}

// Prepare opens a producer for every entity topic so a bad namespace fails
// before any record is generated.
func (p *PulsarSink) Prepare(topics []string) error {
	for _, t := range topics {
		if _, err := p.producer(t); err != nil {
			return err
		}
	}
	return nil
}

func (p *PulsarSink) producer(topic string) (pulsar.Producer, error) {
	if producer, ok := p.producers[topic]; ok {
		return producer, nil
	}
	producer, err := p.client.CreateProducer(pulsar.ProducerOptions{
		Topic:              p.TopicName(topic),
		Name:               "datagen-" + topic,
		BatcherBuilderType: pulsar.KeyBasedBatchBuilder,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create pulsar producer for %s: %w", topic, err)
	}
	p.producers[topic] = producer
	return producer, nil
}

func (p *PulsarSink) Close() error {
	for topic, producer := range p.producers {
		if err := producer.Flush(); err != nil {
			zap.S().Warnf("failed to flush pulsar producer for %s: %s", topic, err)
		}
		producer.Close()
	}
	p.client.Close()
	zap.S().Infof("Pulsar: %d records sent, %d failed", p.sent.Load(), p.failed.Load())
	return nil
}

func (p *PulsarSink) WriteRecord(ctx context.Context, format string, record sink.SinkRecord) error {
	topic, key, data := sink.RecordToKafka(record, format)
	producer, err := p.producer(topic)
	if err != nil {
		return err
	}
	producer.SendAsync(ctx, &pulsar.ProducerMessage{
		Payload: data,
		Key:     key,
	}, func(_ pulsar.MessageID, _ *pulsar.ProducerMessage, err error) {
		if err != nil {
			p.failed.Add(1)
			zap.S().Warnf("failed to send pulsar message to %s: %s", topic, err)
			return
		}
		p.sent.Add(1)
	})
	return nil
}
