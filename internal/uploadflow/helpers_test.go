package uploadflow

import (
	"context"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"casa-backend/internal/analyses"
)

type recorder struct {
	mu  sync.Mutex
	all []Snapshot
	ch  chan Snapshot
}

func newRecorder() *recorder {
	return &recorder{ch: make(chan Snapshot, 1024)}
}

func (r *recorder) record(s Snapshot) {
	r.mu.Lock()
	r.all = append(r.all, s)
	r.mu.Unlock()
	r.ch <- s
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.all)
}

// statuses returns the observed statuses with consecutive repeats removed.
func (r *recorder) statuses() []Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Status
	for _, s := range r.all {
		if len(out) == 0 || out[len(out)-1] != s.Status {
			out = append(out, s.Status)
		}
	}
	return out
}

// next waits for the next published snapshot.
func (r *recorder) next(t *testing.T) Snapshot {
	t.Helper()
	select {
	case s := <-r.ch:
		return s
	case <-time.After(5 * time.Second):
		t.Fatalf("timed out waiting for a state change")
		return Snapshot{}
	}
}

// waitFor drains snapshots until match reports true.
func (r *recorder) waitFor(t *testing.T, match func(Snapshot) bool) Snapshot {
	t.Helper()
	for {
		if s := r.next(t); match(s) {
			return s
		}
	}
}

type fakeStore struct {
	mu    sync.Mutex
	paths []string
	err   error
	gate  chan struct{}
}

func (s *fakeStore) Upload(ctx context.Context, path string, f MediaFile) error {
	if s.gate != nil {
		select {
		case <-s.gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if s.err != nil {
		return s.err
	}
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()
	if _, err := io.Copy(io.Discard, rc); err != nil {
		return err
	}
	s.mu.Lock()
	s.paths = append(s.paths, path)
	s.mu.Unlock()
	return nil
}

func (s *fakeStore) PublicURL(path string) string {
	return "https://media.example.com/" + path
}

func fileOf(name, mimeType string, size int64) MediaFile {
	return MediaFile{
		Name:     name,
		MimeType: mimeType,
		Size:     size,
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(strings.NewReader("sample-bytes")), nil
		},
	}
}

func okReport() OrchestratorFunc {
	return func(_ context.Context, req analyses.Request) (analyses.Report, error) {
		return analyses.Report{ID: "report-1", KoyebJobID: "koyeb_real_app_1", MediaType: "video"}, nil
	}
}

func newMachine(t *testing.T, cfg Config) (*Machine, *recorder) {
	t.Helper()
	rec := newRecorder()
	cfg.OnChange = rec.record
	if cfg.UserID == "" {
		cfg.UserID = "user-1"
	}
	m := New(cfg)
	t.Cleanup(m.Close)
	return m, rec
}

func requireStatus(t *testing.T, m *Machine, want Status) {
	t.Helper()
	require.Equal(t, want, m.Snapshot().Status)
}

// activeTimers reports how many tick goroutines are registered.
func (m *Machine) activeTimers() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.stops)
}
