package kafka

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds the producer and consumer collectors.
type Metrics struct {
	MessagesPublished  *prometheus.CounterVec
	PublishErrors      *prometheus.CounterVec
	PublishDuration    *prometheus.HistogramVec
	MessagesReceived   *prometheus.CounterVec
	MessagesProcessed  *prometheus.CounterVec
	MessagesFailed     *prometheus.CounterVec
	ProcessingDuration *prometheus.HistogramVec
	DLQPublished       *prometheus.CounterVec
}

// NewMetrics creates the kafka collectors and registers them on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		MessagesPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "kafka_producer_messages_published_total",
			Help: "Total number of Kafka messages published",
		}, []string{"topic"}),
		PublishErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "kafka_producer_publish_errors_total",
			Help: "Total number of Kafka publish errors",
		}, []string{"topic"}),
		PublishDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "kafka_producer_publish_duration_seconds",
			Help:    "Duration of Kafka publish operations in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"topic"}),
		MessagesReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "kafka_consumer_messages_received_total",
			Help: "Total number of Kafka messages fetched from the broker",
		}, []string{"topic", "consumer_group"}),
		MessagesProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "kafka_consumer_messages_processed_total",
			Help: "Total number of successfully processed Kafka messages",
		}, []string{"topic", "consumer_group"}),
		MessagesFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "kafka_consumer_messages_failed_total",
			Help: "Total number of Kafka messages that failed all retries",
		}, []string{"topic", "consumer_group"}),
		ProcessingDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "kafka_consumer_processing_duration_seconds",
			Help:    "Duration of Kafka message processing in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"topic", "consumer_group"}),
		DLQPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "kafka_consumer_dlq_published_total",
			Help: "Total number of messages published to a dead-letter topic",
		}, []string{"topic", "consumer_group"}),
	}
	reg.MustRegister(
		m.MessagesPublished, m.PublishErrors, m.PublishDuration,
		m.MessagesReceived, m.MessagesProcessed, m.MessagesFailed,
		m.ProcessingDuration, m.DLQPublished,
	)
	return m
}
