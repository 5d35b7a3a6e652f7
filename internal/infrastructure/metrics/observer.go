package metrics

import (
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Observer captures telemetry for the avatar pipeline and display resolution.
type Observer interface {
	RecordUpload(duration time.Duration, err error)
	RecordStageFailure(stage string, kind string)
	RecordUploadedBytes(bytes int64)
	RecordReconcile(err error)
	RecordDisplay(outcome string)
}

// Nop discards everything.
type Nop struct{}

func (Nop) RecordUpload(time.Duration, error) {}
func (Nop) RecordStageFailure(string, string) {}
func (Nop) RecordUploadedBytes(int64) {}
func (Nop) RecordReconcile(error) {}
func (Nop) RecordDisplay(string) {}

// PrometheusObserver exports pipeline metrics to Prometheus.
type PrometheusObserver struct {
	uploadDuration *prometheus.HistogramVec
	stageFailures  *prometheus.CounterVec
	uploadedBytes  prometheus.Counter
	reconciles     *prometheus.CounterVec
	displays       *prometheus.CounterVec
}

func NewPrometheusObserver(namespace string, reg prometheus.Registerer) (*PrometheusObserver, error) {
	if namespace == "" {
		namespace = "avatar"
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	o := &PrometheusObserver{
		uploadDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "upload_duration_seconds",
			Help:      "Latency of avatar upload pipeline runs.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"result"}),
		stageFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stage_failures_total",
			Help:      "Failures per pipeline stage and error kind, fatal or not.",
		}, []string{"stage", "kind"}),
		uploadedBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "uploaded_bytes_total",
			Help:      "Bytes written to object storage.",
		}),
		reconciles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reconcile_total",
			Help:      "Profile reconciliation attempts by result.",
		}, []string{"result"}),
		displays: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "display_resolutions_total",
			Help:      "Display resolutions by rendered kind.",
		}, []string{"kind"}),
	}

	collectors := []prometheus.Collector{o.uploadDuration, o.stageFailures, o.uploadedBytes, o.reconciles, o.displays}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				continue
			}
			return nil, fmt.Errorf("register avatar metric: %w", err)
		}
	}
	return o, nil
}

func (o *PrometheusObserver) RecordUpload(duration time.Duration, err error) {
	o.uploadDuration.WithLabelValues(resultLabel(err)).Observe(duration.Seconds())
}

func (o *PrometheusObserver) RecordStageFailure(stage, kind string) {
	o.stageFailures.WithLabelValues(stage, kind).Inc()
}

func (o *PrometheusObserver) RecordUploadedBytes(bytes int64) {
	if bytes > 0 {
		o.uploadedBytes.Add(float64(bytes))
	}
}

func (o *PrometheusObserver) RecordReconcile(err error) {
	o.reconciles.WithLabelValues(resultLabel(err)).Inc()
}

func (o *PrometheusObserver) RecordDisplay(outcome string) {
	o.displays.WithLabelValues(outcome).Inc()
}

func resultLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
