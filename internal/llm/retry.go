package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/jonboulle/clockwork"

	"casa-backend/internal/shared/telemetry"
)

// ProviderError is a non-2xx answer from a completion provider.
type ProviderError struct {
	Provider string
	Status   int
	Message  string
}

func (e *ProviderError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s status %d", e.Provider, e.Status)
	}
	return fmt.Sprintf("%s status %d: %s", e.Provider, e.Status, e.Message)
}

// Temporary reports whether the same request may succeed later.
func (e *ProviderError) Temporary() bool {
	return e.Status == 429 || e.Status >= 500
}

// Retryable reports whether err is worth one more attempt: provider
// throttling or 5xx, and network timeouts.
func Retryable(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, ErrNotConfigured) {
		return false
	}
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Temporary()
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// Retrying wraps a Client with bounded retries on Retryable errors,
// doubling the delay between attempts.
type Retrying struct {
	Base     Client
	Attempts int
	Delay    time.Duration
	Clock    clockwork.Clock
}

// Chat calls Base until it succeeds, fails permanently, or runs out of attempts.
func (r Retrying) Chat(ctx context.Context, req ChatRequest) (string, error) {
	attempts := max(1, r.Attempts)
	delay := r.Delay
	clock := r.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	var err error
	for attempt := 1; ; attempt++ {
		var out string
		out, err = r.Base.Chat(ctx, req)
		if err == nil || attempt >= attempts || !Retryable(err) {
			return out, err
		}
		telemetry.Warn("llm.retry", map[string]any{"attempt": attempt, "delay_ms": delay.Milliseconds(), "error": err.Error()})
		select {
		case <-clock.After(delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
		delay *= 2
	}
}

var _ Client = Retrying{}
