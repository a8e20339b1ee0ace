package nats

import (
	"context"
	"errors"
	"testing"
	"videogen/sink"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type published struct {
	subject string
	data    string
}

type testRecord struct {
	sink.BaseSinkRecord
	topic string
	key   string
}

func (r testRecord) ToJson() (string, string, []byte) {
	return r.topic, r.key, []byte(`{"key":"` + r.key + `"}`)
}

func recorder(out *[]published, err error) publishFunc {
	return func(ctx context.Context, subject string, data []byte) error {
		if err != nil {
			return err
		}
		*out = append(*out, published{subject, string(data)})
		return nil
	}
}

func TestSubject(t *testing.T) {
	s := newNatsSink(NatsConfig{}, nil)
	assert.Equal(t, "acme.customers.CUST_1a2b3c4d_000001", s.Subject("customers", "CUST_1a2b3c4d_000001"))
	assert.Equal(t, "acme.acme-telemetry.CUST_1", s.Subject("acme-telemetry", "CUST_1"))
	assert.Equal(t, "acme.titles", s.Subject("titles", ""))
	assert.Equal(t, "acme.titles.a_b_c_d", s.Subject("titles", "a.b*c>d"))

	s = newNatsSink(NatsConfig{SubjectPrefix: "stage"}, nil)
	assert.Equal(t, "stage.campaigns.CAMP_1", s.Subject("campaigns", "CAMP_1"))
}

func TestStreamSubjects(t *testing.T) {
	s := newNatsSink(NatsConfig{}, nil)
	assert.Equal(t,
		[]string{"acme.customers", "acme.customers.>", "acme.titles", "acme.titles.>"},
		s.StreamSubjects([]string{"customers", "titles"}))
}

func TestWriteRecordPublishesPerKey(t *testing.T) {
	var out []published
	s := newNatsSink(NatsConfig{}, recorder(&out, nil))
	ctx := context.Background()

	require.NoError(t, s.WriteRecord(ctx, "json", testRecord{topic: "customers", key: "CUST_1"}))
	require.NoError(t, s.WriteRecord(ctx, "json", testRecord{topic: "titles", key: "TITLE_9"}))

	require.Len(t, out, 2)
	assert.Equal(t, published{"acme.customers.CUST_1", `{"key":"CUST_1"}`}, out[0])
	assert.Equal(t, "acme.titles.TITLE_9", out[1].subject)
	assert.EqualValues(t, 1, s.sent["customers"])
	require.NoError(t, s.Close())
}

func TestWriteRecordError(t *testing.T) {
	var out []published
	s := newNatsSink(NatsConfig{}, recorder(&out, errors.New("no responders")))
	err := s.WriteRecord(context.Background(), "json", testRecord{topic: "customers", key: "CUST_1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "acme.customers.CUST_1")
	assert.Zero(t, s.sent["customers"])
}
