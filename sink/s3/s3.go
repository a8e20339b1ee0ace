package s3

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"time"
	"videogen/sink"
	"videogen/sink/parquetfile"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"go.uber.org/zap"
)

type S3Config struct {
	Bucket string
	Region string
	Prefix string
	// Records buffered before an object is written.
	FlushEvery int
}

// S3Sink writes newline-delimited records under Hive-style hour
// partitions, one object per partition per flush.
type S3Sink struct {
	client s3iface.S3API
	cfg    S3Config

	buffers map[parquetfile.PartitionKey]*bytes.Buffer
	count   int
	seq     int
	now     func() time.Time
}

func OpenS3Sink(cfg S3Config) (*S3Sink, error) {
	ss := session.Must(session.NewSession())
	client := s3.New(ss, aws.NewConfig().WithRegion(cfg.Region))
	return newS3Sink(client, cfg), nil
}

func newS3Sink(client s3iface.S3API, cfg S3Config) *S3Sink {
	if cfg.FlushEvery <= 0 {
		cfg.FlushEvery = 10000
	}
	return &S3Sink{
		client:  client,
		cfg:     cfg,
		buffers: make(map[parquetfile.PartitionKey]*bytes.Buffer),
		now:     time.Now,
	}
}

func (p *S3Sink) Prepare(topics []string) error {
	return nil
}

func (p *S3Sink) Close() error {
	return p.Flush(context.Background())
}

func (p *S3Sink) WriteRecord(ctx context.Context, format string, record sink.SinkRecord) error {
	_, _, data := sink.RecordToKafka(record, format)

	ts := p.now()
	if t, ok := record.(sink.Timestamped); ok {
		ts = t.EventTime()
	}
	key := parquetfile.HourKey(ts)
	buf, ok := p.buffers[key]
	if !ok {
		buf = &bytes.Buffer{}
		p.buffers[key] = buf
	}
	buf.Write(data)
	buf.WriteByte('\n')
	p.count++
	if p.count >= p.cfg.FlushEvery {
		return p.Flush(ctx)
	}
	return nil
}

func (p *S3Sink) objectKey(key parquetfile.PartitionKey) string {
	name := fmt.Sprintf("data-%d-%04d.ndjson", p.now().UnixMilli(), p.seq)
	return path.Join(p.cfg.Prefix, key.Path(), name)
}

func (p *S3Sink) Flush(ctx context.Context) error {
	keys := make([]parquetfile.PartitionKey, 0, len(p.buffers))
	for k := range p.buffers {
		keys = append(keys, k)
	}
	parquetfile.SortKeys(keys)
	for _, k := range keys {
		buf := p.buffers[k]
		objectKey := p.objectKey(k)
		_, err := p.client.PutObjectWithContext(ctx, &s3.PutObjectInput{
			Bucket: aws.String(p.cfg.Bucket),
			Key:    aws.String(objectKey),
			Body:   bytes.NewReader(buf.Bytes()),
		})
		if err != nil {
			return fmt.Errorf("failed to put object %s to s3: %w", objectKey, err)
		}
		zap.S().Debugf("Wrote s3://%s/%s (%d bytes)", p.cfg.Bucket, objectKey, buf.Len())
		delete(p.buffers, k)
	}
	p.seq++
	p.count = 0
	return nil
}
