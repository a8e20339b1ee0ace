package s3

import (
	"context"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"
	"videogen/sink"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeS3 struct {
	s3iface.S3API

	objects map[string]string
	order   []string
}

func (f *fakeS3) PutObjectWithContext(ctx aws.Context, in *s3.PutObjectInput, opts ...request.Option) (*s3.PutObjectOutput, error) {
	body, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	if f.objects == nil {
		f.objects = make(map[string]string)
	}
	key := aws.StringValue(in.Key)
	f.objects[key] = string(body)
	f.order = append(f.order, key)
	return &s3.PutObjectOutput{}, nil
}

type timedRecord struct {
	sink.BaseSinkRecord
	id int
	at time.Time
}

func (r timedRecord) ToJson() (string, string, []byte) {
	return "test", "", []byte(fmt.Sprintf(`{"id":%d}`, r.id))
}

func (r timedRecord) EventTime() time.Time {
	return r.at
}

type untimedRecord struct {
	sink.BaseSinkRecord
}

func (r untimedRecord) ToJson() (string, string, []byte) {
	return "test", "", []byte(`{}`)
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestPartitionsByEventHour(t *testing.T) {
	client := &fakeS3{}
	s := newS3Sink(client, S3Config{Bucket: "b", Prefix: "stream", FlushEvery: 100})
	s.now = fixedClock(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC))
	ctx := context.Background()

	h1 := time.Date(2024, 2, 29, 23, 10, 0, 0, time.UTC)
	h2 := time.Date(2024, 3, 1, 7, 59, 59, 0, time.UTC)
	require.NoError(t, s.WriteRecord(ctx, "json", timedRecord{id: 1, at: h2}))
	require.NoError(t, s.WriteRecord(ctx, "json", timedRecord{id: 2, at: h1}))
	require.NoError(t, s.WriteRecord(ctx, "json", timedRecord{id: 3, at: h2}))
	assert.Empty(t, client.objects)

	require.NoError(t, s.Close())
	require.Len(t, client.order, 2)

	first, second := client.order[0], client.order[1]
	assert.True(t, strings.HasPrefix(first, "stream/year=2024/month=02/day=29/hour=23/"), first)
	assert.True(t, strings.HasPrefix(second, "stream/year=2024/month=03/day=01/hour=07/"), second)
	assert.True(t, strings.HasSuffix(first, ".ndjson"))
	assert.Equal(t, "{\"id\":2}\n", client.objects[first])
	assert.Equal(t, "{\"id\":1}\n{\"id\":3}\n", client.objects[second])
}

func TestFlushEvery(t *testing.T) {
	client := &fakeS3{}
	s := newS3Sink(client, S3Config{Bucket: "b", FlushEvery: 2})
	s.now = fixedClock(time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC))

	for i := 0; i < 5; i++ {
		require.NoError(t, s.WriteRecord(context.Background(), "json", untimedRecord{}))
	}
	assert.Len(t, client.order, 2)
	require.NoError(t, s.Close())
	assert.Len(t, client.order, 3)

	// Untimed records fall into the wall-clock hour and each flush gets its own object.
	for _, k := range client.order {
		assert.True(t, strings.HasPrefix(k, "year=2024/month=03/day=01/hour=12/"), k)
	}
	assert.Len(t, client.objects, 3)
}

func TestCloseWithoutRecords(t *testing.T) {
	client := &fakeS3{}
	s := newS3Sink(client, S3Config{Bucket: "b"})
	require.NoError(t, s.Close())
	assert.Empty(t, client.order)
}
