package metrics

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrometheusRecorderExposesSeries(t *testing.T) {
	reg := prom.NewRegistry()
	rec := NewPrometheusRecorder(reg)
	rec.ObserveBuild("success", 2*time.Second)
	rec.SetBuildsInFlight(1)
	rec.IncLint("chktex", LintRan)
	rec.IncLint("chktex", LintThrottled)
	rec.ObserveLintDuration("chktex", 100*time.Millisecond)

	srv := httptest.NewServer(Handler(reg))
	defer srv.Close()
	resp, err := srv.Client().Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	text := string(body)
	assert.Contains(t, text, `texlsp_build_outcomes_total{status="success"} 1`)
	assert.Contains(t, text, `texlsp_builds_in_flight 1`)
	assert.Contains(t, text, `texlsp_lint_attempts_total{outcome="throttled",tool="chktex"} 1`)
	assert.Contains(t, text, `texlsp_lint_duration_seconds_count{tool="chktex"} 1`)
}

func TestNilRecorderIsSafe(t *testing.T) {
	var rec *PrometheusRecorder
	assert.NotPanics(t, func() {
		rec.ObserveBuild("error", time.Second)
		rec.IncLint("hunspell", LintFailed)
	})
	assert.IsType(t, NoopRecorder{}, OrNoop(nil))
}
