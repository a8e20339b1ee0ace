package kinesis

import (
	"context"
	"fmt"
	"videogen/sink"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/kinesis"
	"github.com/aws/aws-sdk-go/service/kinesis/kinesisiface"
	"go.uber.org/zap"
)

// PutRecords accepts at most 500 entries per call.
const maxBatchSize = 500

type KinesisConfig struct {
	StreamName string
	Region     string
	BatchSize  int
}

type KinesisSink struct {
	client kinesisiface.KinesisAPI
	cfg    KinesisConfig

	pending []*kinesis.PutRecordsRequestEntry
	sent    int64
	failed  int64
}

func OpenKinesisSink(cfg KinesisConfig) (*KinesisSink, error) {
	ss := session.Must(session.NewSession())
	client := kinesis.New(ss, aws.NewConfig().WithRegion(cfg.Region))
	return newKinesisSink(client, cfg), nil
}

func newKinesisSink(client kinesisiface.KinesisAPI, cfg KinesisConfig) *KinesisSink {
	if cfg.BatchSize <= 0 || cfg.BatchSize > maxBatchSize {
		cfg.BatchSize = maxBatchSize
	}
	return &KinesisSink{
		client: client,
		cfg:    cfg,
	}
}

func (p *KinesisSink) Prepare(topics []string) error {
	return nil
}

func (p *KinesisSink) Close() error {
	err := p.Flush(context.Background())
	zap.S().Infof("Kinesis stream %s: %d records sent, %d failed", p.cfg.StreamName, p.sent, p.failed)
	return err
}

func (p *KinesisSink) WriteRecord(ctx context.Context, format string, record sink.SinkRecord) error {
	_, key, data := sink.RecordToKafka(record, format)
	p.pending = append(p.pending, &kinesis.PutRecordsRequestEntry{
		Data:         data,
		PartitionKey: aws.String(key),
	})
	if len(p.pending) >= p.cfg.BatchSize {
		return p.Flush(ctx)
	}
	return nil
}

// Flush sends buffered records. Records the service rejects are counted
// and dropped.
func (p *KinesisSink) Flush(ctx context.Context) error {
	if len(p.pending) == 0 {
		return nil
	}
	batch := p.pending
	p.pending = nil
	out, err := p.client.PutRecordsWithContext(ctx, &kinesis.PutRecordsInput{
		Records:    batch,
		StreamName: aws.String(p.cfg.StreamName),
	})
	if err != nil {
		return fmt.Errorf("failed to write records to kinesis: %w", err)
	}
	failed := aws.Int64Value(out.FailedRecordCount)
	p.failed += failed
	p.sent += int64(len(batch)) - failed
	return nil
}
