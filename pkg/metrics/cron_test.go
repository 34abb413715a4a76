package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCronJobMetricsPerJob(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewCronJobMetrics(reg)

	m.ObserveDuration("payment-sweep", 250*time.Millisecond)
	m.IncSuccess("payment-sweep")
	m.IncSuccess("payment-sweep")
	m.IncFailure("outbox-retention")
	m.IncSkipped("backup-retention")

	mfs, err := reg.Gather()
	require.NoError(t, err)

	cases := []struct {
		metric string
		job    string
		want   float64
	}{
		{"pixcheckout_cron_job_success_total", "payment-sweep", 2},
		{"pixcheckout_cron_job_failure_total", "outbox-retention", 1},
		{"pixcheckout_cron_job_skipped_total", "backup-retention", 1},
	}
	for _, tc := range cases {
		got, err := fetchCounterValue(mfs, tc.metric, "job", tc.job)
		require.NoError(t, err, tc.metric)
		assert.Equal(t, tc.want, got, tc.metric)
	}

	_, err = fetchCounterValue(mfs, "pixcheckout_cron_job_failure_total", "job", "payment-sweep")
	assert.Error(t, err, "jobs without failures have no series")

	sum, err := fetchHistogramSum(mfs, "pixcheckout_cron_job_duration_seconds", "job", "payment-sweep")
	require.NoError(t, err)
	assert.InDelta(t, 0.25, sum, 0.001)
}

func TestCronJobMetricsNilRegistererIsNoop(t *testing.T) {
	m := NewCronJobMetrics(nil)
	m.IncSuccess("x")
	m.ObserveDuration("x", time.Second)
	var nilMetrics *CronJobMetrics
	nilMetrics.IncFailure("x")
}
