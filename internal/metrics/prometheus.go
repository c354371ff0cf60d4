package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all Prometheus metrics for the audio delivery tools
type Metrics struct {
	// Streaming metrics
	FramesSent      prometheus.Counter
	FrameBytes      prometheus.Counter
	SendErrors      prometheus.Counter
	CaptureOverruns prometheus.Counter
	LoopRestarts    prometheus.Counter

	// Transfer metrics
	TransfersStarted   prometheus.Counter
	TransfersCompleted prometheus.Counter
	TransfersAborted   *prometheus.CounterVec
	ChunksSent         prometheus.Counter
	ChunkBytes         prometheus.Counter
	AckWaitTime        prometheus.Histogram
	TransferDuration   prometheus.Histogram
	CapacityReplies    prometheus.Counter
	MalformedMessages  prometheus.Counter
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics() *Metrics {
	return &Metrics{
		FramesSent: promauto.NewCounter(prometheus.CounterOpts{
			Name: "smartalarm_frames_sent_total",
			Help: "Total number of streaming packets sent",
		}),
		FrameBytes: promauto.NewCounter(prometheus.CounterOpts{
			Name: "smartalarm_frame_bytes_total",
			Help: "Total streaming payload bytes sent",
		}),
		SendErrors: promauto.NewCounter(prometheus.CounterOpts{
			Name: "smartalarm_send_errors_total",
			Help: "Total number of non-fatal datagram send failures",
		}),
		CaptureOverruns: promauto.NewCounter(prometheus.CounterOpts{
			Name: "smartalarm_capture_overruns_total",
			Help: "Total number of tolerated capture device overruns",
		}),
		LoopRestarts: promauto.NewCounter(prometheus.CounterOpts{
			Name: "smartalarm_loop_restarts_total",
			Help: "Total number of file playback loop restarts",
		}),

		TransfersStarted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "smartalarm_transfers_started_total",
			Help: "Total number of chunked transfers started",
		}),
		TransfersCompleted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "smartalarm_transfers_completed_total",
			Help: "Total number of chunked transfers completed successfully",
		}),
		TransfersAborted: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "smartalarm_transfers_aborted_total",
			Help: "Total number of aborted transfers by reason",
		}, []string{"reason"}),
		ChunksSent: promauto.NewCounter(prometheus.CounterOpts{
			Name: "smartalarm_chunks_sent_total",
			Help: "Total number of file chunks published",
		}),
		ChunkBytes: promauto.NewCounter(prometheus.CounterOpts{
			Name: "smartalarm_chunk_bytes_total",
			Help: "Total chunk payload bytes published",
		}),
		AckWaitTime: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "smartalarm_ack_wait_seconds",
			Help:    "Time spent waiting for per-chunk acknowledgments",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),
		TransferDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "smartalarm_transfer_duration_seconds",
			Help:    "End-to-end duration of chunked transfers",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
		}),
		CapacityReplies: promauto.NewCounter(prometheus.CounterOpts{
			Name: "smartalarm_capacity_replies_total",
			Help: "Total number of capacity replies received",
		}),
		MalformedMessages: promauto.NewCounter(prometheus.CounterOpts{
			Name: "smartalarm_malformed_messages_total",
			Help: "Total number of malformed inbound messages ignored",
		}),
	}
}
