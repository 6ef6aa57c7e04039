package pipeline

import (
	"context"

	"casa-backend/internal/shared/metrics"
	"casa-backend/internal/shared/telemetry"
)

// Provider produces one stage result.
type Provider[In, Out any] interface {
	Provide(ctx context.Context, in In) (Out, error)
}

// ProviderFunc adapts a function to Provider.
type ProviderFunc[In, Out any] func(ctx context.Context, in In) (Out, error)

func (f ProviderFunc[In, Out]) Provide(ctx context.Context, in In) (Out, error) {
	return f(ctx, in)
}

// Fallback runs Primary and, on any error, substitutes Secondary's result.
// A fallback is an expected path and is logged at warn level only.
type Fallback[In, Out any] struct {
	Stage     string
	Primary   Provider[In, Out]
	Secondary Provider[In, Out]
}

func (f Fallback[In, Out]) Provide(ctx context.Context, in In) (Out, error) {
	if f.Primary != nil {
		out, err := f.Primary.Provide(ctx, in)
		if err == nil {
			return out, nil
		}
		telemetry.Warn("analysis.stage_fallback", map[string]any{
			"stage": f.Stage,
			"error": err.Error(),
		})
	}
	metrics.IncStageFallback(f.Stage)
	return f.Secondary.Provide(ctx, in)
}
