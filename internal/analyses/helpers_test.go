package analyses

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	"casa-backend/internal/koyeb"
	"casa-backend/internal/pipeline"
	"casa-backend/internal/queue"
)

var errDown = errors.New("platform unavailable")

type stubPlatform struct {
	deployErr  error
	analyze    koyeb.AnalyzeResponse
	analyzeErr error
	morphology koyeb.MorphologyResponse
	morphErr   error
}

func (p *stubPlatform) Deploy(context.Context, koyeb.AppSpec) (string, error) {
	if p.deployErr != nil {
		return "", p.deployErr
	}
	return "app-1", nil
}

func (p *stubPlatform) WaitHealthy(context.Context, string) error { return nil }

func (p *stubPlatform) Analyze(context.Context, koyeb.AnalyzeRequest) (koyeb.AnalyzeResponse, error) {
	return p.analyze, p.analyzeErr
}

func (p *stubPlatform) Morphology(context.Context, koyeb.MorphologyRequest) (koyeb.MorphologyResponse, error) {
	return p.morphology, p.morphErr
}

// downPlatform fails every remote call.
func downPlatform() *stubPlatform {
	return &stubPlatform{deployErr: errDown, analyzeErr: errDown, morphErr: errDown}
}

type failingRepo struct {
	*MemoryRepo
	err error
}

func (r failingRepo) Create(context.Context, Report) error { return r.err }

func newMediaServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", "12000000")
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestService(t *testing.T, platform pipeline.Platform, repo Repo) (*Service, *queue.MemoryClient) {
	t.Helper()
	events := &queue.MemoryClient{}
	media := newMediaServer(t)
	stages := pipeline.NewStages(pipeline.StagesConfig{
		Platform:    platform,
		ProbeClient: media.Client(),
		Clock:       clockwork.NewFakeClockAt(time.UnixMilli(1700000000000)),
		Rand:        pipeline.NewRand(42),
	})
	return &Service{
		Repo:   repo,
		Stages: stages,
		Events: events,
		Now:    func() time.Time { return time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC) },
	}, events
}

func requestFor(t *testing.T, mediaType string) Request {
	t.Helper()
	return Request{
		MediaURL:  newMediaServer(t).URL + "/user-1/1_sample",
		FileName:  "1_sample",
		UserID:    "user-1",
		MediaType: mediaType,
	}
}
