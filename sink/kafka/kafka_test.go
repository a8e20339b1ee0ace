package kafka

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"videogen/sink"

	"github.com/Shopify/sarama"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeProducer buffers input until Close, which delivers everything and
// reports the configured failures.
type fakeProducer struct {
	sarama.AsyncProducer

	input     chan *sarama.ProducerMessage
	delivered []*sarama.ProducerMessage
	fail      sarama.ProducerErrors
}

func newFakeProducer(fail sarama.ProducerErrors) *fakeProducer {
	return &fakeProducer{input: make(chan *sarama.ProducerMessage, 100), fail: fail}
}

func (f *fakeProducer) Input() chan<- *sarama.ProducerMessage {
	return f.input
}

func (f *fakeProducer) Close() error {
	close(f.input)
	for msg := range f.input {
		f.delivered = append(f.delivered, msg)
	}
	if len(f.fail) > 0 {
		return f.fail
	}
	return nil
}

type fakeAdmin struct {
	sarama.ClusterAdmin
	closed bool
}

func (f *fakeAdmin) Close() error {
	f.closed = true
	return nil
}

type testRecord struct {
	sink.BaseSinkRecord
	id int
}

func (r testRecord) ToJson() (string, string, []byte) {
	return "customers", fmt.Sprintf("CUST_%d", r.id), []byte(fmt.Sprintf(`{"id":%d}`, r.id))
}

func TestCloseDeliversBufferedMessages(t *testing.T) {
	producer, admin := newFakeProducer(nil), &fakeAdmin{}
	s := &KafkaSink{admin: admin, client: producer}

	for i := 0; i < 3; i++ {
		require.NoError(t, s.WriteRecord(context.Background(), "json", testRecord{id: i}))
	}
	assert.Empty(t, producer.delivered)

	require.NoError(t, s.Close())
	require.Len(t, producer.delivered, 3)
	assert.Equal(t, "customers", producer.delivered[0].Topic)
	assert.Equal(t, sarama.StringEncoder("CUST_2"), producer.delivered[2].Key)
	assert.True(t, admin.closed)
	assert.Zero(t, s.failed.Load())
}

func TestCloseCountsFailedMessages(t *testing.T) {
	fail := sarama.ProducerErrors{
		{Msg: &sarama.ProducerMessage{Topic: "customers"}, Err: errors.New("leader not available")},
		{Msg: &sarama.ProducerMessage{Topic: "customers"}, Err: errors.New("leader not available")},
	}
	admin := &fakeAdmin{}
	s := &KafkaSink{admin: admin, client: newFakeProducer(fail)}

	err := s.Close()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to flush kafka producer")
	var perrs sarama.ProducerErrors
	assert.True(t, errors.As(err, &perrs))
	assert.Len(t, perrs, 2)
	assert.EqualValues(t, 2, s.failed.Load())
	assert.True(t, admin.closed)
}
