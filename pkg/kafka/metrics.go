package kafka

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricsOnce       sync.Once
	metricsRegisterer prometheus.Registerer = prometheus.DefaultRegisterer

	consumerQueueDepth    *prometheus.GaugeVec
	consumerHandleLatency *prometheus.HistogramVec
	consumerOutcomes      *prometheus.CounterVec

	producerMsgsTotal   *prometheus.CounterVec
	producerBytesTotal  *prometheus.CounterVec
	producerLatencyHist *prometheus.HistogramVec
)

// SetMetricsRegisterer sets the registerer used for Kafka metrics. It must be
// called before the first consumer or producer is built.
func SetMetricsRegisterer(reg prometheus.Registerer) {
	if reg != nil {
		metricsRegisterer = reg
	}
}

func initMetrics() {
	metricsOnce.Do(func() {
		f := promauto.With(metricsRegisterer)
		consumerQueueDepth = f.NewGaugeVec(
			prometheus.GaugeOpts{Name: "moatline_kafka_consumer_queue_depth", Help: "Number of messages waiting in consumer queue"},
			[]string{"topic"},
		)
		consumerHandleLatency = f.NewHistogramVec(
			prometheus.HistogramOpts{Name: "moatline_kafka_consumer_handle_seconds", Help: "Handling time per message"},
			[]string{"topic"},
		)
		consumerOutcomes = f.NewCounterVec(
			prometheus.CounterOpts{Name: "moatline_kafka_consumer_messages_total", Help: "Consumed messages by outcome"},
			[]string{"topic", "result"},
		)
		producerMsgsTotal = f.NewCounterVec(
			prometheus.CounterOpts{Name: "moatline_kafka_producer_messages_total", Help: "Total messages published to Kafka"},
			[]string{"topic", "result"},
		)
		producerBytesTotal = f.NewCounterVec(
			prometheus.CounterOpts{Name: "moatline_kafka_producer_bytes_total", Help: "Total payload bytes published"},
			[]string{"topic"},
		)
		producerLatencyHist = f.NewHistogramVec(
			prometheus.HistogramOpts{Name: "moatline_kafka_producer_publish_seconds", Help: "Publish latency", Buckets: prometheus.DefBuckets},
			[]string{"topic"},
		)
	})
}

func observeProducer(topic string, bytes int64, count int, dur time.Duration, err error) {
	if producerMsgsTotal == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	producerMsgsTotal.WithLabelValues(topic, result).Add(float64(count))
	producerBytesTotal.WithLabelValues(topic).Add(float64(bytes))
	producerLatencyHist.WithLabelValues(topic).Observe(dur.Seconds())
}

func observeConsumed(topic, result string, dur time.Duration) {
	if consumerOutcomes == nil {
		return
	}
	consumerOutcomes.WithLabelValues(topic, result).Inc()
	consumerHandleLatency.WithLabelValues(topic).Observe(dur.Seconds())
}
