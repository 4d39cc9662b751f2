package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Sync Metrics
var (
	InstancesProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: MetricNameInstancesProcessed,
			Help: HelpTextInstancesProcessed,
		},
		[]string{LabelResult},
	)

	RecordsWritten = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: MetricNameRecordsWritten,
			Help: HelpTextRecordsWritten,
		},
		[]string{LabelTable, LabelOp},
	)

	RunDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    MetricNameRunDuration,
			Help:    HelpTextRunDuration,
			Buckets: prometheus.ExponentialBuckets(1, 2, 12),
		},
	)
)

// Remote Call Metrics
var (
	RemoteCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: MetricNameRemoteCalls,
			Help: HelpTextRemoteCalls,
		},
		[]string{LabelTarget, LabelOperation, LabelOutcome},
	)

	RemoteCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    MetricNameRemoteCallDuration,
			Help:    HelpTextRemoteCallDuration,
			Buckets: RemoteCallLatencyBuckets,
		},
		[]string{LabelTarget, LabelOperation},
	)
)
