package monitoring

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/charlesng35/weatherbot/pkg/metrics"
)

// JobSummary describes the recorded run history of one scheduled job.
type JobSummary struct {
	Job                 string        `json:"job"`
	LastStatus          string        `json:"last_status"`
	LastRunAt           time.Time     `json:"last_run_at"`
	LastDuration        time.Duration `json:"last_duration"`
	LastError           string        `json:"last_error,omitempty"`
	ConsecutiveFailures uint64        `json:"consecutive_failures"`
	ConsecutiveSuccess  uint64        `json:"consecutive_success"`
	LastSuccessAt       time.Time     `json:"last_success_at"`
	TotalRuns           uint64        `json:"total_runs"`
}

type jobStats struct {
	lastStatus           atomic.Value // string
	lastError            atomic.Value // string
	lastRun              atomic.Int64 // unix nano
	lastDuration         atomic.Int64 // nanoseconds
	consecutiveFailures  atomic.Uint64
	consecutiveSuccesses atomic.Uint64
	lastSuccessfulRun    atomic.Int64
	totalRuns            atomic.Uint64
}

var jobRegistry sync.Map // string -> *jobStats

// RecordJobRun notes the completion of one scheduled job run and feeds the
// corresponding Prometheus series.
func RecordJobRun(job string, runErr error, duration time.Duration) {
	if job == "" {
		job = "unknown"
	}
	if duration < 0 {
		duration = 0
	}

	result := "success"
	message := ""
	if runErr != nil {
		result = "failure"
		message = runErr.Error()
	}

	metrics.BackgroundJobRuns.WithLabelValues(job, result).Inc()
	metrics.BackgroundJobDuration.WithLabelValues(job).Observe(duration.Seconds())

	jobEntry(job).record(result, message, duration)
}

// JobSnapshot returns the recorded history for a single job. The second
// return reports whether the job has ever been recorded.
func JobSnapshot(job string) (JobSummary, bool) {
	value, ok := jobRegistry.Load(job)
	if !ok {
		return JobSummary{Job: job}, false
	}
	return value.(*jobStats).snapshot(job), true
}

func jobEntry(job string) *jobStats {
	if value, ok := jobRegistry.Load(job); ok {
		return value.(*jobStats)
	}
	actual, _ := jobRegistry.LoadOrStore(job, &jobStats{})
	return actual.(*jobStats)
}

func (j *jobStats) record(result, message string, duration time.Duration) {
	if duration < 0 {
		duration = 0
	}
	now := time.Now()
	j.lastStatus.Store(result)
	j.lastError.Store(message)
	j.lastRun.Store(now.UnixNano())
	j.lastDuration.Store(int64(duration))
	j.totalRuns.Add(1)

	switch result {
	case "success":
		j.consecutiveFailures.Store(0)
		j.consecutiveSuccesses.Add(1)
		j.lastSuccessfulRun.Store(now.UnixNano())
	default:
		j.consecutiveFailures.Add(1)
		j.consecutiveSuccesses.Store(0)
	}
}

func (j *jobStats) snapshot(job string) JobSummary {
	status, _ := j.lastStatus.Load().(string)
	errMsg, _ := j.lastError.Load().(string)

	return JobSummary{
		Job:                 job,
		LastStatus:          status,
		LastRunAt:           nanoTime(j.lastRun.Load()),
		LastDuration:        time.Duration(j.lastDuration.Load()),
		LastError:           errMsg,
		ConsecutiveFailures: j.consecutiveFailures.Load(),
		ConsecutiveSuccess:  j.consecutiveSuccesses.Load(),
		LastSuccessAt:       nanoTime(j.lastSuccessfulRun.Load()),
		TotalRuns:           j.totalRuns.Load(),
	}
}

// nanoTime keeps the zero value meaningful for jobs that never ran.
func nanoTime(n int64) time.Time {
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n)
}
