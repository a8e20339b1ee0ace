package gen

import (
	"context"
	"videogen/sink"
	"videogen/sink/firehose"
	"videogen/sink/kafka"
	"videogen/sink/kinesis"
	"videogen/sink/mysql"
	"videogen/sink/nats"
	"videogen/sink/postgres"
	"videogen/sink/pulsar"
	"videogen/sink/s3"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
)

type GeneratorConfig struct {
	Postgres postgres.PostgresConfig
	Mysql    mysql.MysqlConfig
	Kafka    kafka.KafkaConfig
	Pulsar   pulsar.PulsarConfig
	Kinesis  kinesis.KinesisConfig
	Firehose firehose.FirehoseConfig
	Nats     nats.NatsConfig
	S3       s3.S3Config

	// Secrets Manager secret holding the SQL sink password, and its region.
	PasswordSecret string
	SecretRegion   string

	// Whether to print the content of every event.
	PrintInsert bool
	// The datagen mode, "telemetry" or "reference".
	Mode string
	// The sink type.
	Sink string
	// The throttled requests-per-second.
	Qps int
	// Stop after this many records. Zero means unbounded.
	Total int64

	// Whether the tail probability is high.
	// If true, We will use uniform distribution for randomizing values.
	HeavyTail bool

	// The record format, used when the sink is a message queue.
	Format string

	// Seed and sizes of the in-memory reference set the stream draws from.
	Seed         int64
	NumCustomers int
	NumTitles    int
	NumCampaigns int
}

type LoadGenerator interface {
	KafkaTopics() []string

	// Load blocks until the generator is exhausted or ctx is cancelled.
	Load(ctx context.Context, outCh chan<- sink.SinkRecord)
}

const (
	// Query engines downstream read timestamps as naive strings.
	DateTimeLayout = "2006-01-02 15:04:05"
	DateLayout     = "2006-01-02"
)

type RandDist interface {
	// Rand returns a random number ranging from [0, max].
	Rand(max float64) float64
}

func NewRandDist(heavyTail bool, src rand.Source) RandDist {
	if heavyTail {
		return UniformDist{src: src}
	} else {
		return PoissonDist{src: src}
	}
}

type UniformDist struct {
	src rand.Source
}

func (ud UniformDist) Rand(max float64) float64 {
	if max <= 0 {
		return 0
	}
	return distuv.Uniform{Min: 0, Max: max, Src: ud.src}.Rand()
}

// A more real-world distribution. The tail will have lower probability..
type PoissonDist struct {
	src rand.Source
}

func (pd PoissonDist) Rand(max float64) float64 {
	if max <= 0 {
		return 0
	}
	return distuv.Poisson{Lambda: max / 2, Src: pd.src}.Rand()
}
