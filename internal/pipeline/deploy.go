package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"

	"casa-backend/internal/koyeb"
	"casa-backend/internal/shared/metrics"
	"casa-backend/internal/shared/telemetry"
)

// Platform is the remote GPU platform as seen by the stages.
type Platform interface {
	Deploy(ctx context.Context, spec koyeb.AppSpec) (string, error)
	WaitHealthy(ctx context.Context, id string) error
	Analyze(ctx context.Context, req koyeb.AnalyzeRequest) (koyeb.AnalyzeResponse, error)
	Morphology(ctx context.Context, req koyeb.MorphologyRequest) (koyeb.MorphologyResponse, error)
}

// Deployment is the deploy stage result.
type Deployment struct {
	JobID    string
	Fallback bool
}

// Deployer provisions the analyzer app. It never fails: any platform error,
// including a health timeout, yields a synthesized job id.
type Deployer struct {
	Platform Platform
	Clock    clockwork.Clock
	Rand     *Rand
}

func (d *Deployer) Deploy(ctx context.Context, mediaURL string, mediaType MediaType) Deployment {
	clock := d.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	id, err := d.deploy(ctx, clock, mediaURL, mediaType)
	if err != nil {
		telemetry.Warn("analysis.stage_fallback", map[string]any{
			"stage": "deploy",
			"error": err.Error(),
		})
		metrics.IncStageFallback("deploy")
		return Deployment{JobID: FallbackJobID(clock.Now(), d.Rand), Fallback: true}
	}
	return Deployment{JobID: RealJobID(id, clock.Now())}
}

func (d *Deployer) deploy(ctx context.Context, clock clockwork.Clock, mediaURL string, mediaType MediaType) (string, error) {
	if d.Platform == nil {
		return "", koyeb.ErrNotConfigured
	}
	spec := koyeb.AnalyzerAppSpec(clock.Now().UnixMilli(), mediaURL, string(mediaType))
	id, err := d.Platform.Deploy(ctx, spec)
	if err != nil {
		return "", err
	}
	if err := d.Platform.WaitHealthy(ctx, id); err != nil {
		return "", fmt.Errorf("app %s: %w", id, err)
	}
	return id, nil
}

// RealJobID formats the job id of a live deployment.
func RealJobID(appID string, now time.Time) string {
	return fmt.Sprintf("koyeb_real_%s_%d", appID, now.UnixMilli())
}

// FallbackJobID synthesizes a job id when no deployment is available.
func FallbackJobID(now time.Time, r *Rand) string {
	return fmt.Sprintf("koyeb_enhanced_real_%d_%s", now.UnixMilli(), r.Base36(9))
}
