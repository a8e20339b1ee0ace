package firehose

import (
	"context"
	"fmt"
	"videogen/sink"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/firehose"
	"github.com/aws/aws-sdk-go/service/firehose/firehoseiface"
	"go.uber.org/zap"
)

// PutRecordBatch accepts at most 500 records per call.
const maxBatchSize = 500

type FirehoseConfig struct {
	DeliveryStream string
	Region         string
}

type FirehoseSink struct {
	client firehoseiface.FirehoseAPI
	cfg    FirehoseConfig

	pending []*firehose.Record
	sent    int64
	failed  int64
}

func OpenFirehoseSink(cfg FirehoseConfig) (*FirehoseSink, error) {
	ss := session.Must(session.NewSession())
	client := firehose.New(ss, aws.NewConfig().WithRegion(cfg.Region))
	return newFirehoseSink(client, cfg), nil
}

func newFirehoseSink(client firehoseiface.FirehoseAPI, cfg FirehoseConfig) *FirehoseSink {
	return &FirehoseSink{client: client, cfg: cfg}
}

func (p *FirehoseSink) Prepare(topics []string) error {
	return nil
}

func (p *FirehoseSink) Close() error {
	err := p.flush(context.Background())
	zap.S().Infof("Firehose stream %s: %d records sent, %d failed", p.cfg.DeliveryStream, p.sent, p.failed)
	return err
}

func (p *FirehoseSink) WriteRecord(ctx context.Context, format string, record sink.SinkRecord) error {
	_, _, data := sink.RecordToKafka(record, format)
	// Firehose concatenates records; the newline keeps S3 objects line-delimited.
	p.pending = append(p.pending, &firehose.Record{Data: append(data, '\n')})
	if len(p.pending) >= maxBatchSize {
		return p.flush(ctx)
	}
	return nil
}

func (p *FirehoseSink) flush(ctx context.Context) error {
	if len(p.pending) == 0 {
		return nil
	}
	batch := p.pending
	p.pending = nil
	out, err := p.client.PutRecordBatchWithContext(ctx, &firehose.PutRecordBatchInput{
		DeliveryStreamName: aws.String(p.cfg.DeliveryStream),
		Records:            batch,
	})
	if err != nil {
		return fmt.Errorf("failed to put record batch to firehose: %w", err)
	}
	failed := aws.Int64Value(out.FailedPutCount)
	p.failed += failed
	p.sent += int64(len(batch)) - failed
	return nil
}
