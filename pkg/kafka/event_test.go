package kafka

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type orderCreated struct {
	OrderID     string `json:"order_id"`
	TotalAmount int64  `json:"total_amount"`
}

func TestNewEvent_Fields(t *testing.T) {
	event, err := NewEvent("order.created", "o-1", "order", "storefront", orderCreated{OrderID: "o-1", TotalAmount: 2000})
	require.NoError(t, err)

	assert.NotEmpty(t, event.EventID)
	assert.Equal(t, "order.created", event.EventType)
	assert.Equal(t, "o-1", event.AggregateID)
	assert.Equal(t, 1, event.Version)
	assert.WithinDuration(t, time.Now().UTC(), event.Timestamp, 2*time.Second)

	var data orderCreated
	require.NoError(t, event.UnmarshalData(&data))
	assert.Equal(t, int64(2000), data.TotalAmount)
}

func TestNewEvent_InvalidData(t *testing.T) {
	_, err := NewEvent("order.created", "o-1", "order", "storefront", make(chan int))
	assert.ErrorContains(t, err, "marshal order.created payload")
}

func TestEvent_MarshalPreservesEnvelope(t *testing.T) {
	event, err := NewEvent("order.paid", "o-2", "order", "storefront", nil)
	require.NoError(t, err)
	event.WithCorrelationID("pay-9").WithMetadata("status", "approved")

	b, err := event.Marshal()
	require.NoError(t, err)
	restored, err := UnmarshalEvent(b)
	require.NoError(t, err)

	assert.Equal(t, event.EventID, restored.EventID)
	assert.Equal(t, "pay-9", restored.CorrelationID)
	assert.Equal(t, "approved", restored.Metadata["status"])
}

func TestWithMetadata_NilMap(t *testing.T) {
	e := &Event{}
	e.WithMetadata("k", "v")
	assert.Equal(t, "v", e.Metadata["k"])
}

func TestTopicNames(t *testing.T) {
	assert.Equal(t, "storefront.order.created", Topic("order", "created"))
	assert.Equal(t, "storefront.dlq.storefront.payment.result", DLQTopic(Topic("payment", "result")))
}
