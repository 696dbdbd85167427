package metrics

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	feedomain "github.com/smallbiznis/shelfwise/internal/fee/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestClassifySchedulerJobReason(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want string
	}{
		{"deadline", context.DeadlineExceeded, SchedulerJobReasonDeadlineExceeded},
		{"configuration", fmt.Errorf("%w: overdue.per_day is required", feedomain.ErrInvalidSettings), SchedulerJobReasonConfiguration},
		{"db_lock_timeout", &pgconn.PgError{Code: "55P03"}, SchedulerJobReasonDBLockTimeout},
		{"serialization_failure", &pgconn.PgError{Code: "40001"}, SchedulerJobReasonSerializationFailure},
		{"unique_violation", gorm.ErrDuplicatedKey, SchedulerJobReasonUniqueViolation},
		{"unknown", errors.New("boom"), SchedulerJobReasonUnknown},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ClassifySchedulerJobReason(tc.err))
		})
	}
}

func TestSchedulerErrorRetryable(t *testing.T) {
	assert.True(t, IsSchedulerErrorRetryable(context.DeadlineExceeded))
	assert.True(t, IsSchedulerErrorRetryable(&pgconn.PgError{Code: "40001"}))
	assert.False(t, IsSchedulerErrorRetryable(feedomain.ErrInvalidSettings))
	assert.False(t, IsSchedulerErrorRetryable(gorm.ErrRecordNotFound))
	assert.Equal(t, SchedulerErrorTypeConfiguration, ClassifySchedulerErrorType(feedomain.ErrInvalidSettings))
}

func TestSchedulerCounters(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := NewSchedulerMetrics(registry, Config{ServiceName: "shelfwise", Environment: "test"})

	m.AddBatchProcessed("overdue_notices", "members", 3)
	m.AddBatchProcessed("overdue_notices", "members", 0)
	m.IncJobSkipped("overdue_notices", SchedulerSkipReasonLockHeld)
	m.IncJobError("mark_delayed", context.DeadlineExceeded)
	m.ObserveRunLoopLag(-time.Second)

	assert.Equal(t, 3.0, testutil.ToFloat64(m.batchProcessed.WithLabelValues("overdue_notices", "members")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.jobSkipped.WithLabelValues("overdue_notices", SchedulerSkipReasonLockHeld)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.jobErrors.WithLabelValues("mark_delayed", SchedulerJobReasonDeadlineExceeded)))

	families, err := registry.Gather()
	require.NoError(t, err)
	var found bool
	for _, mf := range families {
		if mf.GetName() == "shelfwise_scheduler_runloop_lag_seconds" {
			found = true
			require.Len(t, mf.GetMetric(), 1)
			assert.Equal(t, uint64(1), mf.GetMetric()[0].GetHistogram().GetSampleCount())
			assert.Equal(t, 0.0, mf.GetMetric()[0].GetHistogram().GetSampleSum())
		}
	}
	assert.True(t, found)
}
