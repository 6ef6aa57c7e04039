package uploadflow

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"casa-backend/internal/analyses"
	"casa-backend/internal/media"
	"casa-backend/internal/pipeline"
	"casa-backend/internal/shared/storage/object/local"
)

// serviceStore uploads through the media service in-process.
type serviceStore struct {
	svc   *media.Service
	owner string
}

func (s serviceStore) Upload(ctx context.Context, path string, f MediaFile) error {
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()
	_, err = s.svc.Upload(ctx, media.UploadInput{
		OwnerID:      s.owner,
		Path:         path,
		ContentType:  f.MimeType,
		DeclaredSize: f.Size,
		Body:         rc,
	})
	return err
}

func (s serviceStore) PublicURL(path string) string {
	return s.svc.Store.PublicURL(path)
}

type zeros struct{}

func (zeros) Read(p []byte) (int, error) {
	clear(p)
	return len(p), nil
}

func TestVideoRunsEndToEndAgainstOrchestrator(t *testing.T) {
	const size = 50 << 20
	mediaHost := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", "52428800")
		w.WriteHeader(http.StatusOK)
	}))
	defer mediaHost.Close()

	mediaSvc := &media.Service{
		Store:           local.New(t.TempDir(), mediaHost.URL),
		Repo:            media.NewMemoryRepo(),
		StorageProvider: "local",
	}
	reports := analyses.NewMemoryRepo()
	orchestrator := &analyses.Service{
		Repo: reports,
		Stages: pipeline.NewStages(pipeline.StagesConfig{
			ProbeClient: mediaHost.Client(),
			Clock:       clockwork.NewFakeClock(),
			Rand:        pipeline.NewRand(11),
		}),
	}

	var delivered analyses.Report
	m, rec := newMachine(t, Config{
		Store:        serviceStore{svc: mediaSvc, owner: "user-1"},
		Orchestrator: OrchestratorFunc(orchestrator.Run),
		UserID:       "user-1",
		Clock:        clockwork.NewFakeClock(),
		OnComplete:   func(r analyses.Report) { delivered = r },
	})

	require.NoError(t, m.SelectMedia(MediaFile{
		Name:     "sample.mp4",
		MimeType: "video/mp4",
		Size:     size,
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(io.LimitReader(zeros{}, size)), nil
		},
	}))

	report, err := m.StartAnalysis(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []Status{StatusIdle, StatusUploading, StatusProcessing, StatusCompleted}, rec.statuses())
	snap := m.Snapshot()
	assert.Equal(t, 100, snap.UploadProgress)
	assert.Equal(t, report.ID, snap.ReportID)
	assert.True(t, strings.HasPrefix(snap.ExternalJobID, "koyeb_enhanced_real_"))
	assert.Equal(t, report.ID, delivered.ID)

	stored, err := reports.GetByID(context.Background(), report.ID)
	require.NoError(t, err)
	assert.Equal(t, pipeline.MediaVideo, stored.MediaType)
	assert.Equal(t, "user-1", stored.UserID)

	assets, err := mediaSvc.List(context.Background(), "user-1", 10, 0)
	require.NoError(t, err)
	require.Len(t, assets, 1)
	assert.EqualValues(t, size, assets[0].SizeBytes)
	assert.Equal(t, stored.MediaURL, assets[0].PublicURL)
}
