package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrometheusObserver_Records(t *testing.T) {
	reg := prometheus.NewRegistry()
	o, err := NewPrometheusObserver("test", reg)
	require.NoError(t, err)

	o.RecordUpload(120*time.Millisecond, nil)
	o.RecordUpload(time.Second, errors.New("boom"))
	o.RecordStageFailure("uploading", "storage")
	o.RecordUploadedBytes(2048)
	o.RecordUploadedBytes(-1)
	o.RecordReconcile(nil)
	o.RecordDisplay("placeholder")

	assert.Equal(t, 1.0, testutil.ToFloat64(o.stageFailures.WithLabelValues("uploading", "storage")))
	assert.Equal(t, 2048.0, testutil.ToFloat64(o.uploadedBytes))
	assert.Equal(t, 1.0, testutil.ToFloat64(o.reconciles.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(o.displays.WithLabelValues("placeholder")))
	assert.Equal(t, 2, testutil.CollectAndCount(o.uploadDuration))
}

func TestPrometheusObserver_ReRegister(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := NewPrometheusObserver("test", reg)
	require.NoError(t, err)

	_, err = NewPrometheusObserver("test", reg)
	assert.NoError(t, err)
}
