package scheduler

import (
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubJob struct {
	name string
	runs int
	err  error
}

func (j *stubJob) Run() error   { j.runs++; return j.err }
func (j *stubJob) Name() string { return j.name }

func newTestScheduler() *Scheduler {
	return New(zerolog.New(nil).Level(zerolog.Disabled))
}

func TestRunNow_RunsOutsideSchedule(t *testing.T) {
	s := newTestScheduler()
	job := &stubJob{name: "mark_sweep"}

	require.NoError(t, s.RunNow(job))
	assert.Equal(t, 1, job.runs)

	// The job's own error propagates to the caller
	job.err = errors.New("sweep failed")
	assert.Error(t, s.RunNow(job))
	assert.Equal(t, 2, job.runs)
}

func TestAddJob_RejectsBadSchedule(t *testing.T) {
	s := newTestScheduler()

	assert.Error(t, s.AddJob("not a schedule", &stubJob{name: "mark_sweep"}))
	assert.NoError(t, s.AddJob("@every 5m", &stubJob{name: "mark_sweep"}))
}
