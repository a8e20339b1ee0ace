package kafka

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"
	"videogen/sink"

	"github.com/Shopify/sarama"
	"github.com/hashicorp/go-multierror"
	"go.uber.org/zap"
)

type KafkaConfig struct {
	Brokers string

	// Do not recreate the Kafka topic when it exists. The default value is false.
	// It can be enabled if datagen is not authorized to create topic.
	NoRecreateIfExists bool

	// Partitions of a newly created topic.
	NumPartitions int
	// Replication factor of a newly created topic.
	ReplicationFactor int
}

type KafkaSink struct {
	admin  sarama.ClusterAdmin
	cfg    KafkaConfig
	client sarama.AsyncProducer

	failed atomic.Int64
}

func newKafkaConfig() *sarama.Config {
	version, err := sarama.ParseKafkaVersion("2.8.1")
	if err != nil {
		panic(fmt.Sprintf("failed to parse Kafka version: %v", err))
	}
	config := sarama.NewConfig()
	config.Version = version
	config.Net.DialTimeout = 3 * time.Second
	config.Admin.Timeout = 5 * time.Second
	config.Producer.Timeout = 5 * time.Second
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Compression = sarama.CompressionGZIP
	return config
}

func OpenKafkaSink(ctx context.Context, cfg KafkaConfig) (*KafkaSink, error) {
	brokers := strings.Split(cfg.Brokers, ",")
	admin, err := sarama.NewClusterAdmin(brokers, newKafkaConfig())
	if err != nil {
		return nil, err
	}
	topics, err := admin.ListTopics()
	if err != nil {
		return nil, err
	}
	var topicNames []string
	for k := range topics {
		topicNames = append(topicNames, k)
	}
	zap.S().Infof("Existing topics: %s", topicNames)
	client, err := sarama.NewAsyncProducer(brokers, newKafkaConfig())
	if err != nil {
		return nil, fmt.Errorf("NewAsyncProducer failed: %w", err)
	}
	p := &KafkaSink{
		admin:  admin,
		cfg:    cfg,
		client: client,
	}
	go func() {
		p.consumeErrors(ctx)
	}()
	return p, nil
}

func (p *KafkaSink) consumeErrors(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case err, ok := <-p.client.Errors():
			if !ok {
				return
			}
			p.failed.Add(1)
			zap.S().Warnf("failed to produce message: %s", err)
		}
	}
}

func (p *KafkaSink) createRequiredTopics(admin sarama.ClusterAdmin, keys []string) error {
	topics, err := admin.ListTopics()
	if err != nil {
		return err
	}
	for _, t := range keys {
		if err := p.createTopic(admin, t, topics); err != nil {
			return err
		}
	}
	return nil
}

func (p *KafkaSink) createTopic(admin sarama.ClusterAdmin, key string, topics map[string]sarama.TopicDetail) error {
	_, exists := topics[key]
	if p.cfg.NoRecreateIfExists {
		if exists {
			// The topic already exists, and we don't want to recreate it.
			return nil
		} else {
			return fmt.Errorf("topic \"%s\" does not exist", key)
		}
	}
	if exists {
		// Recreate the topic if it exists.
		if err := admin.DeleteTopic(key); err != nil {
			return err
		}
		zap.S().Infof("Deleted an existing topic: %s", key)
	}
	zap.S().Infof("Creating topic: %s", key)
	return admin.CreateTopic(key, &sarama.TopicDetail{
		NumPartitions:     int32(p.cfg.NumPartitions),
		ReplicationFactor: int16(p.cfg.ReplicationFactor),
	}, false)
}

func (p *KafkaSink) Prepare(topics []string) error {
	return p.createRequiredTopics(p.admin, topics)
}

// Close blocks until buffered and in-flight messages are delivered or
// have failed.
func (p *KafkaSink) Close() error {
	var result error
	if err := p.client.Close(); err != nil {
		var perrs sarama.ProducerErrors
		if errors.As(err, &perrs) {
			p.failed.Add(int64(len(perrs)))
		}
		result = multierror.Append(result, fmt.Errorf("failed to flush kafka producer: %w", err))
	}
	if n := p.failed.Load(); n > 0 {
		zap.S().Warnf("%d messages failed to produce", n)
	}
	if err := p.admin.Close(); err != nil {
		result = multierror.Append(result, err)
	}
	return result
}

func (p *KafkaSink) WriteRecord(ctx context.Context, format string, record sink.SinkRecord) error {
	topic, key, data := sink.RecordToKafka(record, format)
	msg := &sarama.ProducerMessage{}
	msg.Topic = topic
	msg.Key = sarama.StringEncoder(key)
	msg.Value = sarama.ByteEncoder(data)
	select {
	case <-ctx.Done():
	case p.client.Input() <- msg:
	}
	return nil
}
