package metrics

import (
	"strings"
	"testing"
)

func TestRenderIncludesStageFallbacks(t *testing.T) {
	IncStageFallback("deploy")
	IncStageFallback("deploy")
	IncStageFallback("detection")
	ObserveAnalysisDurationMs(1500)

	out := Render()
	if !strings.Contains(out, `analysis_stage_fallback_total{stage="deploy"}`) {
		t.Fatalf("expected deploy fallback series, got:\n%s", out)
	}
	if StageFallbacks("deploy") < 2 {
		t.Fatalf("expected at least 2 deploy fallbacks, got %d", StageFallbacks("deploy"))
	}
	if !strings.Contains(out, "analysis_duration_ms_count") {
		t.Fatalf("expected histogram output")
	}
}
