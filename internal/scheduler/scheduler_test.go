package scheduler

import (
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeJob struct {
	name string
	runs int
	err  error
}

func (j *fakeJob) Name() string { return j.name }
func (j *fakeJob) Run() error {
	j.runs++
	return j.err
}

func TestAddJobAndRunNow(t *testing.T) {
	s := New(zerolog.New(nil).Level(zerolog.Disabled))

	job := &fakeJob{name: "test_job"}
	require.NoError(t, s.AddJob("0 0 2 * * *", job))

	require.NoError(t, s.RunNow("test_job"))
	assert.Equal(t, 1, job.runs)

	status := s.Status()
	require.Len(t, status, 1)
	assert.Equal(t, "test_job", status[0].Name)
	assert.Equal(t, 1, status[0].RunCount)
	assert.NotNil(t, status[0].LastRun)
	assert.Empty(t, status[0].LastError)
}

func TestRunNow_UnknownJob(t *testing.T) {
	s := New(zerolog.New(nil).Level(zerolog.Disabled))
	assert.Error(t, s.RunNow("missing"))
}

func TestRunNow_RecordsFailure(t *testing.T) {
	s := New(zerolog.New(nil).Level(zerolog.Disabled))

	job := &fakeJob{name: "failing", err: errors.New("boom")}
	require.NoError(t, s.AddJob("@hourly", job))

	err := s.RunNow("failing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")

	status := s.Status()
	require.Len(t, status, 1)
	assert.Equal(t, "boom", status[0].LastError)

	// A subsequent success clears the recorded error.
	job.err = nil
	require.NoError(t, s.RunNow("failing"))
	assert.Empty(t, s.Status()[0].LastError)
}

func TestAddJob_BadSpec(t *testing.T) {
	s := New(zerolog.New(nil).Level(zerolog.Disabled))
	assert.Error(t, s.AddJob("not a cron spec", &fakeJob{name: "bad"}))
}
