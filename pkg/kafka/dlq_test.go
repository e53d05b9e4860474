package kafka

import (
	"context"
	"errors"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDLQProducer_Publish_AddsProvenanceHeaders(t *testing.T) {
	w := &fakeWriter{}
	d := NewDLQProducerWithWriter(w, discardLogger())

	orig := kafka.Message{
		Topic:     "storefront.payment.result",
		Partition: 2,
		Offset:    41,
		Key:       []byte("pay-1"),
		Value:     []byte(`{}`),
		Headers:   []kafka.Header{{Key: "event_type", Value: []byte("payment.result")}},
	}
	require.NoError(t, d.Publish(context.Background(), orig, errors.New("unknown status"), "storefront-payments"))

	msgs := w.messages()
	require.Len(t, msgs, 1)
	got := msgs[0]
	assert.Equal(t, "storefront.dlq.storefront.payment.result", got.Topic)
	assert.Equal(t, orig.Key, got.Key)
	assert.Equal(t, "payment.result", header(got, "event_type"))
	assert.Equal(t, "2", header(got, "dlq.original_partition"))
	assert.Equal(t, "41", header(got, "dlq.original_offset"))
	assert.Equal(t, "storefront-payments", header(got, "dlq.consumer_group"))
	assert.Equal(t, "unknown status", header(got, "dlq.error"))
}

func TestDLQProducer_Publish_WriteError(t *testing.T) {
	d := NewDLQProducerWithWriter(&fakeWriter{err: errBroker}, discardLogger())
	err := d.Publish(context.Background(), kafka.Message{Topic: "t"}, nil, "g")
	assert.ErrorIs(t, err, errBroker)
}
