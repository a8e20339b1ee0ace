package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	protobuf "google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

type SinkRecord interface {
	// Convert the event to an INSERT INTO command.
	ToPostgresSql() string

	// Convert the event to a Kafka message in JSON format.
	// This interface will also be used for Pulsar, NATS, Kinesis, Firehose and S3.
	ToJson() (topic string, key string, data []byte)

	// Convert the event to a Kafka message in Protobuf format.
	ToProtobuf() (topic string, key string, data []byte)

	// Convert the event to a Kafka message in Avro format.
	ToAvro() (topic string, key string, data []byte)
}

// Timestamped is implemented by records that carry their own event time.
// Sinks that partition by time use it instead of the wall clock.
type Timestamped interface {
	EventTime() time.Time
}

// MysqlRecord is implemented by records whose INSERT statement needs
// MySQL-specific quoting.
type MysqlRecord interface {
	ToMySql() string
}

type BaseSinkRecord struct {
}

func (r BaseSinkRecord) ToPostgresSql() string {
	panic("not implemented")
}

func (r BaseSinkRecord) ToJson() (topic string, key string, data []byte) {
	panic("not implemented")
}

func (r BaseSinkRecord) ToProtobuf() (topic string, key string, data []byte) {
	panic("not implemented")
}

func (r BaseSinkRecord) ToAvro() (topic string, key string, data []byte) {
	panic("not implemented")
}

// Convert the event to a Kafka message in the given format.
// This interface will also be used for Pulsar and Kinesis.
func RecordToKafka(r SinkRecord, format string) (topic string, key string, data []byte) {
	if format == "json" {
		return r.ToJson()
	} else if format == "protobuf" {
		return r.ToProtobuf()
	} else if format == "avro" {
		return r.ToAvro()
	} else {
		panic(fmt.Sprintf("unsupported format: %s", format))
	}
}

// JsonToProtobuf re-encodes a JSON object as a google.protobuf.Struct.
func JsonToProtobuf(data []byte) []byte {
	var fields map[string]interface{}
	if err := json.Unmarshal(data, &fields); err != nil {
		panic(err)
	}
	m, err := structpb.NewStruct(fields)
	if err != nil {
		panic(err)
	}
	out, err := protobuf.Marshal(m)
	if err != nil {
		panic(err)
	}
	return out
}

// Quote renders s as a single-quoted SQL literal.
func Quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// NullableQuote renders nil as NULL.
func NullableQuote(s *string) string {
	if s == nil {
		return "NULL"
	}
	return Quote(*s)
}

type Sink interface {
	Prepare(topics []string) error

	WriteRecord(ctx context.Context, format string, record SinkRecord) error

	Close() error
}
