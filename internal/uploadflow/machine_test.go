package uploadflow

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"casa-backend/internal/analyses"
	"casa-backend/internal/pipeline"
)

func TestSelectMediaRejectsUnsupportedTypes(t *testing.T) {
	m, _ := newMachine(t, Config{Store: &fakeStore{}, Orchestrator: okReport(), Clock: clockwork.NewFakeClock()})
	require.NoError(t, m.SelectMedia(fileOf("clip.mp4", "video/mp4", 1024)))
	before := m.Snapshot()

	for _, mimeType := range []string{"application/pdf", "text/plain", "audio/mpeg", ""} {
		err := m.SelectMedia(fileOf("notes", mimeType, 10))
		assert.ErrorIs(t, err, ErrUnsupportedType, mimeType)
		assert.Equal(t, before, m.Snapshot(), mimeType)
	}
}

func TestSelectMediaEnforcesSizeCeilings(t *testing.T) {
	m, _ := newMachine(t, Config{Store: &fakeStore{}, Orchestrator: okReport(), Clock: clockwork.NewFakeClock()})

	assert.ErrorIs(t, m.SelectMedia(fileOf("big.mp4", "video/mp4", 2<<30+1)), ErrFileTooLarge)
	assert.ErrorIs(t, m.SelectMedia(fileOf("big.jpg", "image/jpeg", 100<<20+1)), ErrFileTooLarge)
	assert.False(t, m.Snapshot().Staged)

	require.NoError(t, m.SelectMedia(fileOf("max.mp4", "video/mp4", 2<<30)))
	require.NoError(t, m.SelectMedia(fileOf("max.jpg", "image/jpeg", 100<<20)))
	snap := m.Snapshot()
	assert.True(t, snap.ReadyToStart())
	assert.Equal(t, pipeline.MediaPhoto, snap.MediaType)
	assert.Equal(t, "max.jpg", snap.FileName)
}

func TestStartWithoutFileIsNotReady(t *testing.T) {
	m, _ := newMachine(t, Config{Store: &fakeStore{}, Orchestrator: okReport(), Clock: clockwork.NewFakeClock()})

	_, err := m.StartAnalysis(context.Background())
	assert.ErrorIs(t, err, ErrNotReady)
	requireStatus(t, m, StatusIdle)
}

func TestProgressRampIsMonotonicAndCapped(t *testing.T) {
	clock := clockwork.NewFakeClock()
	store := &fakeStore{gate: make(chan struct{})}
	m, rec := newMachine(t, Config{Store: store, Orchestrator: okReport(), Clock: clock, Rand: pipeline.NewRand(3)})
	require.NoError(t, m.SelectMedia(fileOf("clip.mp4", "video/mp4", 1024)))

	done := make(chan error, 1)
	go func() {
		_, err := m.StartAnalysis(context.Background())
		done <- err
	}()
	rec.waitFor(t, func(s Snapshot) bool { return s.Status == StatusUploading })

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, clock.BlockUntilContext(ctx, 1))

	last := 0
	for ticks := 0; last < rampCeiling; ticks++ {
		require.Less(t, ticks, 12, "ramp should reach its ceiling within 12 ticks")
		clock.Advance(400 * time.Millisecond)
		s := rec.next(t)
		require.Equal(t, StatusUploading, s.Status)
		step := s.UploadProgress - last
		if s.UploadProgress < rampCeiling {
			assert.GreaterOrEqual(t, step, 8)
			assert.Less(t, step, 20)
		}
		require.GreaterOrEqual(t, s.UploadProgress, last)
		require.LessOrEqual(t, s.UploadProgress, rampCeiling)
		last = s.UploadProgress
	}

	close(store.gate)
	require.NoError(t, <-done)
	snap := m.Snapshot()
	assert.Equal(t, StatusCompleted, snap.Status)
	assert.Equal(t, 100, snap.UploadProgress)
}

func TestUploadFailureIsTerminal(t *testing.T) {
	store := &fakeStore{err: errors.New("bucket denied")}
	called := false
	orch := OrchestratorFunc(func(context.Context, analyses.Request) (analyses.Report, error) {
		called = true
		return analyses.Report{}, nil
	})
	m, _ := newMachine(t, Config{Store: store, Orchestrator: orch, Clock: clockwork.NewFakeClock()})
	require.NoError(t, m.SelectMedia(fileOf("clip.mp4", "video/mp4", 1024)))

	_, err := m.StartAnalysis(context.Background())
	assert.ErrorIs(t, err, ErrUploadFailed)
	assert.False(t, called)

	snap := m.Snapshot()
	assert.Equal(t, StatusError, snap.Status)
	assert.Empty(t, snap.ExternalJobID)
	assert.ErrorIs(t, snap.Err, ErrUploadFailed)

	_, err = m.StartAnalysis(context.Background())
	assert.ErrorIs(t, err, ErrBusy, "no retry without reset")
}

func TestOrchestratorFailureIsTerminal(t *testing.T) {
	orch := OrchestratorFunc(func(context.Context, analyses.Request) (analyses.Report, error) {
		return analyses.Report{}, errors.New("500 analysis failed")
	})
	m, rec := newMachine(t, Config{Store: &fakeStore{}, Orchestrator: orch, Clock: clockwork.NewFakeClock()})
	require.NoError(t, m.SelectMedia(fileOf("clip.mp4", "video/mp4", 1024)))

	_, err := m.StartAnalysis(context.Background())
	assert.ErrorIs(t, err, ErrAnalysisFailed)
	assert.Equal(t, []Status{StatusIdle, StatusUploading, StatusProcessing, StatusError}, rec.statuses())

	m.Reset()
	snap := m.Snapshot()
	assert.Equal(t, Snapshot{Status: StatusIdle}, snap)
}

func TestRequestCarriesUploadedLocation(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.UnixMilli(1700000000123))
	var got analyses.Request
	orch := OrchestratorFunc(func(_ context.Context, req analyses.Request) (analyses.Report, error) {
		got = req
		return analyses.Report{ID: "r1", KoyebJobID: "koyeb_enhanced_real_1_abc"}, nil
	})
	store := &fakeStore{}
	var completed analyses.Report
	m, _ := newMachine(t, Config{
		Store:        store,
		Orchestrator: orch,
		Clock:        clock,
		UserID:       "guest:g1",
		OnComplete:   func(r analyses.Report) { completed = r },
	})
	require.NoError(t, m.SelectMedia(fileOf("sample.jpg", "image/jpeg", 2048)))

	_, err := m.StartAnalysis(context.Background())
	require.NoError(t, err)

	require.Equal(t, []string{"guest:g1/1700000000123_sample.jpg"}, store.paths)
	assert.Equal(t, "https://media.example.com/guest:g1/1700000000123_sample.jpg", got.MediaURL)
	assert.Equal(t, "sample.jpg", got.FileName)
	assert.Equal(t, "sample.jpg", got.OriginalFilename)
	assert.Equal(t, "guest:g1", got.UserID)
	assert.Equal(t, "photo", got.MediaType)

	snap := m.Snapshot()
	assert.Equal(t, "r1", snap.ReportID)
	assert.Equal(t, "koyeb_enhanced_real_1_abc", snap.ExternalJobID)
	assert.Equal(t, "r1", completed.ID)
}

func TestResetWhileProcessingStopsStageCycling(t *testing.T) {
	clock := clockwork.NewFakeClock()
	entered := make(chan struct{})
	release := make(chan struct{})
	orch := OrchestratorFunc(func(ctx context.Context, _ analyses.Request) (analyses.Report, error) {
		close(entered)
		<-release
		return analyses.Report{ID: "late", KoyebJobID: "koyeb_real_late"}, nil
	})
	completions := 0
	m, rec := newMachine(t, Config{
		Store:        &fakeStore{},
		Orchestrator: orch,
		Clock:        clock,
		OnComplete:   func(analyses.Report) { completions++ },
	})
	require.NoError(t, m.SelectMedia(fileOf("clip.mp4", "video/mp4", 1024)))

	done := make(chan error, 1)
	go func() {
		_, err := m.StartAnalysis(context.Background())
		done <- err
	}()

	first := rec.waitFor(t, func(s Snapshot) bool { return s.Status == StatusProcessing })
	assert.Equal(t, DefaultStages[0], first.StageLabel)
	<-entered

	clock.Advance(4 * time.Second)
	second := rec.next(t)
	assert.Equal(t, DefaultStages[1], second.StageLabel)

	m.Reset()
	idle := rec.next(t)
	assert.Equal(t, Snapshot{Status: StatusIdle}, idle)
	seen := rec.count()

	for i := 0; i < 5; i++ {
		clock.Advance(4 * time.Second)
	}
	close(release)
	assert.ErrorIs(t, <-done, ErrDiscarded)

	assert.Equal(t, seen, rec.count(), "no updates after reset")
	assert.Equal(t, Snapshot{Status: StatusIdle}, m.Snapshot())
	assert.Zero(t, completions)
}

func TestStageLabelsStopAfterLast(t *testing.T) {
	clock := clockwork.NewFakeClock()
	release := make(chan struct{})
	entered := make(chan struct{})
	orch := OrchestratorFunc(func(context.Context, analyses.Request) (analyses.Report, error) {
		close(entered)
		<-release
		return analyses.Report{ID: "r"}, nil
	})
	labels := []string{"one", "two", "three"}
	m, rec := newMachine(t, Config{Store: &fakeStore{}, Orchestrator: orch, Clock: clock, Stages: labels})
	require.NoError(t, m.SelectMedia(fileOf("clip.mp4", "video/mp4", 1024)))

	done := make(chan error, 1)
	go func() {
		_, err := m.StartAnalysis(context.Background())
		done <- err
	}()
	rec.waitFor(t, func(s Snapshot) bool { return s.StageLabel == "one" })
	<-entered

	clock.Advance(4 * time.Second)
	assert.Equal(t, "two", rec.next(t).StageLabel)
	clock.Advance(4 * time.Second)
	assert.Equal(t, "three", rec.next(t).StageLabel)

	// The cycler has exited, so the clock has no remaining waiters.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, clock.BlockUntilContext(ctx, 0))

	close(release)
	require.NoError(t, <-done)
	assert.Equal(t, StatusCompleted, m.Snapshot().Status)
}

func TestFinishedTimersAreForgotten(t *testing.T) {
	m, _ := newMachine(t, Config{Store: &fakeStore{}, Orchestrator: okReport(), Clock: clockwork.NewFakeClock()})

	for i := 0; i < 5; i++ {
		require.NoError(t, m.SelectMedia(fileOf("clip.mp4", "video/mp4", 1024)))
		_, err := m.StartAnalysis(context.Background())
		require.NoError(t, err)
		require.Eventually(t, func() bool { return m.activeTimers() == 0 }, 5*time.Second, 5*time.Millisecond)
		m.Reset()
	}
}

func TestCloseRacingStartLeavesMachineIdle(t *testing.T) {
	for i := 0; i < 50; i++ {
		m := New(Config{Store: &fakeStore{}, Orchestrator: okReport(), UserID: "user-1", Clock: clockwork.NewFakeClock()})
		require.NoError(t, m.SelectMedia(fileOf("clip.mp4", "video/mp4", 1024)))

		done := make(chan struct{})
		go func() {
			defer close(done)
			_, _ = m.StartAnalysis(context.Background())
		}()
		m.Close()
		<-done
		m.Reset()

		requireStatus(t, m, StatusIdle)
		require.Zero(t, m.activeTimers())
	}
}
