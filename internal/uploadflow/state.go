package uploadflow

import (
	"context"
	"errors"
	"io"

	"casa-backend/internal/analyses"
	"casa-backend/internal/media"
	"casa-backend/internal/pipeline"
)

// Status is the observable phase of a Machine.
type Status string

const (
	StatusIdle       Status = "idle"
	StatusUploading  Status = "uploading"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusError      Status = "error"
)

var (
	ErrBusy           = errors.New("an analysis is already in progress")
	ErrNotReady       = errors.New("no media file selected")
	ErrUploadFailed   = errors.New("upload failed")
	ErrAnalysisFailed = errors.New("analysis failed")
	// ErrDiscarded is returned by StartAnalysis when the machine was reset
	// while the run was in flight.
	ErrDiscarded = errors.New("analysis discarded after reset")

	ErrUnsupportedType = media.ErrUnsupportedType
	ErrFileTooLarge    = media.ErrFileTooLarge
)

// DefaultStages are the labels cycled while the orchestrator runs.
var DefaultStages = []string{
	"Deploying analysis to Koyeb GPU cloud",
	"Processing media with OpenCV + FFmpeg",
	"Running YOLOv8 sperm detection",
	"Multi-object tracking with DeepSort",
	"CASA analysis per WHO 2010",
	"Morphology classification with ResNet50 + CNN",
	"Motion and kinematics analysis",
	"GPU processing on NVIDIA RTX 4000",
	"Generating the medical report",
	"Final quality and medical validation",
}

// MediaFile is a sample chosen for analysis. Open is called once, when the
// upload starts.
type MediaFile struct {
	Name     string
	MimeType string
	Size     int64
	Open     func() (io.ReadCloser, error)
}

// MediaStore uploads samples and resolves their public URLs.
type MediaStore interface {
	Upload(ctx context.Context, path string, file MediaFile) error
	PublicURL(path string) string
}

// Orchestrator runs the server-side analysis.
type Orchestrator interface {
	Analyze(ctx context.Context, req analyses.Request) (analyses.Report, error)
}

// OrchestratorFunc adapts a function to Orchestrator.
type OrchestratorFunc func(ctx context.Context, req analyses.Request) (analyses.Report, error)

func (f OrchestratorFunc) Analyze(ctx context.Context, req analyses.Request) (analyses.Report, error) {
	return f(ctx, req)
}

// Snapshot is a copy of the job state observed by the UI.
type Snapshot struct {
	Status         Status
	Staged         bool
	FileName       string
	MediaType      pipeline.MediaType
	UploadProgress int
	StageLabel     string
	ExternalJobID  string
	ReportID       string
	Err            error
}

// ReadyToStart reports whether a file is staged and nothing is running.
func (s Snapshot) ReadyToStart() bool {
	return s.Status == StatusIdle && s.Staged
}
