package uploadflow

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"casa-backend/internal/analyses"
	"casa-backend/internal/media"
	"casa-backend/internal/pipeline"
)

const rampCeiling = 90

// Config wires a Machine to its collaborators.
type Config struct {
	Store        MediaStore
	Orchestrator Orchestrator
	UserID       string

	Clock            clockwork.Clock
	Rand             *pipeline.Rand
	ProgressInterval time.Duration
	StageInterval    time.Duration
	Stages           []string

	// OnChange receives every state transition in order. It must not call
	// Machine methods other than Snapshot.
	OnChange   func(Snapshot)
	OnComplete func(analyses.Report)
}

// Machine drives one upload and analysis at a time.
type Machine struct {
	cfg Config

	// notifyMu serializes transitions together with their OnChange call.
	notifyMu sync.Mutex

	mu        sync.Mutex
	state     Snapshot
	file      *MediaFile
	epoch     uint64
	cancelRun context.CancelFunc
	stops     map[uint64]context.CancelFunc
	nextStop  uint64

	// timers tracks the tick goroutines of the current epoch. Reset swaps in
	// a fresh group before waiting so a new run never adds to the one being
	// waited on.
	timers *sync.WaitGroup
}

// New returns an idle Machine.
func New(cfg Config) *Machine {
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	if cfg.Rand == nil {
		cfg.Rand = pipeline.NewTimeRand()
	}
	if cfg.ProgressInterval <= 0 {
		cfg.ProgressInterval = 400 * time.Millisecond
	}
	if cfg.StageInterval <= 0 {
		cfg.StageInterval = 4 * time.Second
	}
	if cfg.Stages == nil {
		cfg.Stages = DefaultStages
	}
	return &Machine{
		cfg:    cfg,
		state:  Snapshot{Status: StatusIdle},
		stops:  map[uint64]context.CancelFunc{},
		timers: &sync.WaitGroup{},
	}
}

// Snapshot returns a copy of the current state.
func (m *Machine) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// SelectMedia stages f. Rejected files leave the staged file untouched.
func (m *Machine) SelectMedia(f MediaFile) error {
	m.notifyMu.Lock()
	defer m.notifyMu.Unlock()

	m.mu.Lock()
	if m.state.Status != StatusIdle {
		m.mu.Unlock()
		return ErrBusy
	}
	category, err := media.Classify(f.MimeType, f.Size)
	if err != nil {
		m.mu.Unlock()
		return err
	}
	m.file = &f
	m.state.Staged = true
	m.state.FileName = f.Name
	m.state.MediaType = pipeline.MediaType(category)
	snap := m.state
	m.mu.Unlock()

	m.publish(snap)
	return nil
}

// StartAnalysis uploads the staged file, invokes the orchestrator and
// blocks until the run reaches a terminal state. There is no retry; the
// caller must Reset before starting again.
func (m *Machine) StartAnalysis(ctx context.Context) (analyses.Report, error) {
	m.notifyMu.Lock()
	m.mu.Lock()
	if m.state.Status != StatusIdle {
		m.mu.Unlock()
		m.notifyMu.Unlock()
		return analyses.Report{}, ErrBusy
	}
	if m.file == nil {
		m.mu.Unlock()
		m.notifyMu.Unlock()
		return analyses.Report{}, ErrNotReady
	}
	m.epoch++
	epoch := m.epoch
	file := *m.file
	mediaType := m.state.MediaType
	runCtx, cancelRun := context.WithCancel(ctx)
	m.cancelRun = cancelRun
	m.state.Status = StatusUploading
	m.state.UploadProgress = 0
	m.state.Err = nil
	snap := m.state
	m.mu.Unlock()
	m.publish(snap)
	m.notifyMu.Unlock()
	defer cancelRun()

	stopRamp := m.every(epoch, m.cfg.ProgressInterval, m.rampTick(epoch))

	path, err := media.ObjectPath(m.cfg.UserID, m.cfg.Clock.Now(), file.Name)
	if err == nil {
		err = m.cfg.Store.Upload(runCtx, path, file)
	}
	stopRamp()
	if err != nil {
		return analyses.Report{}, m.fail(epoch, fmt.Errorf("%w: %w", ErrUploadFailed, err))
	}

	labels := m.cfg.Stages
	entered := m.transition(epoch, func(s *Snapshot) bool {
		s.Status = StatusProcessing
		s.UploadProgress = 100
		if len(labels) > 0 {
			s.StageLabel = labels[0]
		}
		return true
	})
	if !entered {
		return analyses.Report{}, ErrDiscarded
	}
	stopStages := m.every(epoch, m.cfg.StageInterval, m.stageTick(epoch, labels))

	report, err := m.cfg.Orchestrator.Analyze(runCtx, analyses.Request{
		MediaURL:         m.cfg.Store.PublicURL(path),
		FileName:         file.Name,
		OriginalFilename: file.Name,
		UserID:           m.cfg.UserID,
		MediaType:        string(mediaType),
	})
	stopStages()
	if err != nil {
		return analyses.Report{}, m.fail(epoch, fmt.Errorf("%w: %w", ErrAnalysisFailed, err))
	}

	completed := m.transition(epoch, func(s *Snapshot) bool {
		s.Status = StatusCompleted
		s.ReportID = report.ID
		s.ExternalJobID = report.KoyebJobID
		return true
	})
	if !completed {
		return analyses.Report{}, ErrDiscarded
	}
	if m.cfg.OnComplete != nil {
		m.cfg.OnComplete(report)
	}
	return report, nil
}

// Reset returns the machine to idle from any state. Timers are stopped and
// waited for; an in-flight call keeps running but its result is discarded.
func (m *Machine) Reset() {
	m.notifyMu.Lock()
	m.mu.Lock()
	m.epoch++
	stops := m.stops
	m.stops = map[uint64]context.CancelFunc{}
	timers := m.timers
	m.timers = &sync.WaitGroup{}
	m.file = nil
	m.state = Snapshot{Status: StatusIdle}
	snap := m.state
	m.mu.Unlock()
	for _, stop := range stops {
		stop()
	}
	m.publish(snap)
	m.notifyMu.Unlock()

	timers.Wait()
}

// Close cancels any in-flight call and resets the machine.
func (m *Machine) Close() {
	m.mu.Lock()
	cancel := m.cancelRun
	m.cancelRun = nil
	m.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	m.Reset()
}

func (m *Machine) rampTick(epoch uint64) func() bool {
	return func() bool {
		more := true
		current := m.transition(epoch, func(s *Snapshot) bool {
			if s.Status != StatusUploading || s.UploadProgress >= rampCeiling {
				more = false
				return false
			}
			next := s.UploadProgress + int(m.cfg.Rand.Uniform(8, 20))
			if next >= rampCeiling {
				next = rampCeiling
				more = false
			}
			s.UploadProgress = next
			return true
		})
		return current && more
	}
}

func (m *Machine) stageTick(epoch uint64, labels []string) func() bool {
	next := 1
	return func() bool {
		if next >= len(labels) {
			return false
		}
		label := labels[next]
		next++
		current := m.transition(epoch, func(s *Snapshot) bool {
			if s.Status != StatusProcessing {
				return false
			}
			s.StageLabel = label
			return true
		})
		return current && next < len(labels)
	}
}

func (m *Machine) fail(epoch uint64, err error) error {
	applied := m.transition(epoch, func(s *Snapshot) bool {
		s.Status = StatusError
		s.Err = err
		return true
	})
	if !applied {
		return ErrDiscarded
	}
	return err
}

// transition applies fn if epoch is still current and publishes the new
// state when fn reports a change. It returns false for a stale epoch.
func (m *Machine) transition(epoch uint64, fn func(*Snapshot) bool) bool {
	m.notifyMu.Lock()
	defer m.notifyMu.Unlock()

	m.mu.Lock()
	if epoch != m.epoch {
		m.mu.Unlock()
		return false
	}
	changed := fn(&m.state)
	snap := m.state
	m.mu.Unlock()

	if changed {
		m.publish(snap)
	}
	return true
}

// every calls onTick each interval until it returns false, the returned
// stop func is called, or the machine is reset. Nothing starts when epoch
// is no longer current.
func (m *Machine) every(epoch uint64, interval time.Duration, onTick func() bool) context.CancelFunc {
	m.mu.Lock()
	if epoch != m.epoch {
		m.mu.Unlock()
		return func() {}
	}
	ctx, cancel := context.WithCancel(context.Background())
	id := m.nextStop
	m.nextStop++
	m.stops[id] = cancel
	timers := m.timers
	timers.Add(1)
	m.mu.Unlock()

	ticker := m.cfg.Clock.NewTicker(interval)
	go func() {
		defer timers.Done()
		defer m.dropStop(id)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.Chan():
				if !onTick() {
					return
				}
			}
		}
	}()
	return cancel
}

// dropStop forgets a finished timer and releases its context.
func (m *Machine) dropStop(id uint64) {
	m.mu.Lock()
	cancel, ok := m.stops[id]
	delete(m.stops, id)
	m.mu.Unlock()
	if ok {
		cancel()
	}
}

func (m *Machine) publish(s Snapshot) {
	if m.cfg.OnChange != nil {
		m.cfg.OnChange(s)
	}
}
