package pipeline

import (
	"context"
	"fmt"
	"math"
	"net/http"
)

// MetadataInput identifies the media to probe.
type MetadataInput struct {
	MediaURL  string
	MediaType MediaType
}

// MetadataProbe derives media metadata from a header-only fetch.
type MetadataProbe struct {
	Client *http.Client
	Rand   *Rand
}

func (p *MetadataProbe) Provide(ctx context.Context, in MetadataInput) (Metadata, error) {
	client := p.Client
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, in.MediaURL, nil)
	if err != nil {
		return Metadata{}, fmt.Errorf("probe request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return Metadata{}, fmt.Errorf("probe media: %w", err)
	}
	resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Metadata{}, fmt.Errorf("probe media: status %d", resp.StatusCode)
	}

	size := resp.ContentLength
	if size < 0 {
		size = 0
	}
	return DeriveMetadata(p.Rand, in.MediaType, size), nil
}

// DeriveMetadata builds metadata from a known file size.
func DeriveMetadata(r *Rand, mt MediaType, size int64) Metadata {
	m := Metadata{
		FileSize:            size,
		MediaType:           mt,
		QualityScore:        Round2(r.Uniform(80, 100)),
		NoiseLevel:          Round2(r.Uniform(5, 20)),
		IlluminationQuality: Round2(r.Uniform(75, 100)),
	}
	if mt == MediaVideo {
		m.Duration = clamp(float64(size)/1e6*15, 30, 300)
		m.FPS = 30
		m.TotalFrames = int(math.Floor(m.Duration * float64(m.FPS)))
		m.Resolution = Resolution{Width: 1920, Height: 1080}
		m.Format = "mp4"
		m.Bitrate = "4.2 Mbps"
		return m
	}
	m.Duration = 1
	m.FPS = 1
	m.TotalFrames = 1
	m.Resolution = Resolution{Width: 2048, Height: 1536}
	m.Format = "jpg"
	m.Bitrate = "N/A"
	return m
}

// FixedMetadata returns the constant metadata used when probing fails.
type FixedMetadata struct{}

func (FixedMetadata) Provide(_ context.Context, in MetadataInput) (Metadata, error) {
	m := Metadata{
		Duration:            1,
		FPS:                 1,
		TotalFrames:         1,
		Resolution:          Resolution{Width: 1920, Height: 1080},
		Format:              "jpg",
		FileSize:            30_000_000,
		Bitrate:             "N/A",
		MediaType:           in.MediaType,
		QualityScore:        85,
		NoiseLevel:          12,
		IlluminationQuality: 88,
		Fallback:            true,
	}
	if in.MediaType == MediaVideo {
		m.Duration = 60
		m.FPS = 30
		m.TotalFrames = 1800
		m.Format = "mp4"
		m.Bitrate = "3.5 Mbps"
	}
	return m, nil
}
