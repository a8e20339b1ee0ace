package nats

import (
	"context"
	"fmt"
	"strings"
	"time"
	"videogen/sink"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"go.uber.org/zap"
)

const DefaultSubjectPrefix = "acme"

type NatsConfig struct {
	Url       string
	JetStream bool
	Stream    string
	// Records are published to <prefix>.<entity>.<key>.
	SubjectPrefix string
}

// publishFunc sends one message, through core NATS or JetStream.
type publishFunc func(ctx context.Context, subject string, data []byte) error

type NatsSink struct {
	nc      *nats.Conn
	js      jetstream.JetStream
	config  NatsConfig
	publish publishFunc

	sent map[string]int64
}

func OpenNatsSink(config NatsConfig) (*NatsSink, error) {
	nc, err := nats.Connect(config.Url, nats.Name("datagen"))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS server: %w", err)
	}
	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to create JetStream instance: %w", err)
	}
	p := newNatsSink(config, func(ctx context.Context, subject string, data []byte) error {
		if config.JetStream {
			_, err := js.Publish(ctx, subject, data)
			return err
		}
		return nc.Publish(subject, data)
	})
	p.nc, p.js = nc, js
	return p, nil
}

func newNatsSink(config NatsConfig, publish publishFunc) *NatsSink {
	if config.SubjectPrefix == "" {
		config.SubjectPrefix = DefaultSubjectPrefix
	}
	return &NatsSink{
		config:  config,
		publish: publish,
		sent:    make(map[string]int64),
	}
}

// token makes s usable as a single subject token. Separators and
// wildcards are not allowed inside a token.
func token(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '.', '*', '>', ' ', '\t', '\n', '\r':
			return '_'
		}
		return r
	}, s)
}

// Subject is the subject a record of entity topic with key is published
// to. Keyless records go to the entity subject itself.
func (p *NatsSink) Subject(topic, key string) string {
	subject := p.config.SubjectPrefix + "." + token(topic)
	if key != "" {
		subject += "." + token(key)
	}
	return subject
}

// StreamSubjects lists the subjects a JetStream stream needs to capture
// every entity in topics.
func (p *NatsSink) StreamSubjects(topics []string) []string {
	subjects := make([]string, 0, 2*len(topics))
	for _, t := range topics {
		entity := p.Subject(t, "")
		subjects = append(subjects, entity, entity+".>")
	}
	return subjects
}

func (p *NatsSink) Prepare(topics []string) error {
	if !p.config.JetStream {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, err := p.js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:     p.config.Stream,
		Subjects: p.StreamSubjects(topics),
	})
	if err != nil {
		return fmt.Errorf("failed to create JetStream stream: %w", err)
	}
	return nil
}

func (p *NatsSink) Close() error {
	for topic, n := range p.sent {
		zap.S().Infof("NATS: %d %s records published", n, topic)
	}
	if p.nc == nil {
		return nil
	}
	if err := p.nc.Flush(); err != nil {
		return err
	}
	p.nc.Close()
	return nil
}

func (p *NatsSink) WriteRecord(ctx context.Context, format string, record sink.SinkRecord) error {
	topic, key, data := sink.RecordToKafka(record, format)
	subject := p.Subject(topic, key)
	if err := p.publish(ctx, subject, data); err != nil {
		return fmt.Errorf("failed to publish record to %s: %w", subject, err)
	}
	p.sent[topic]++
	return nil
}
