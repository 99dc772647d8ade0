package metrics

import (
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/julianstephens/keeprun/internal/constants"
)

func TestRecorderCounters(t *testing.T) {
	p := NewPrometheusRecorder()

	p.HabitCreated(constants.CategoryExercise)
	p.HabitCreated(constants.CategoryExercise)
	p.HabitTerminated(constants.HabitStatusAbandoned)
	p.RecordWritten(true)
	p.RecordWritten(false)
	p.RecordWritten(true)
	p.ObservePurge("todos", 3)
	p.ObserveCleanupRun(nil)
	p.ObserveCleanupRun(errors.New("boom"))

	checks := []struct {
		name string
		got  float64
		want float64
	}{
		{"created exercise", testutil.ToFloat64(p.habitsCreated.WithLabelValues("exercise")), 2},
		{"abandoned", testutil.ToFloat64(p.habitsEnded.WithLabelValues("abandoned")), 1},
		{"records completed", testutil.ToFloat64(p.recordsWritten.WithLabelValues("true")), 2},
		{"records cleared", testutil.ToFloat64(p.recordsWritten.WithLabelValues("false")), 1},
		{"purged todos", testutil.ToFloat64(p.cleanupPurged.WithLabelValues("todos")), 3},
		{"cleanup errors", testutil.ToFloat64(p.cleanupRuns.WithLabelValues("error")), 1},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s = %v, want %v", c.name, c.got, c.want)
		}
	}
}

func TestHandlerExposesMetrics(t *testing.T) {
	p := NewPrometheusRecorder()
	p.ObserveRequest("GET", "/api/habits/current", 200, 15*time.Millisecond)
	p.HabitCreated(constants.CategoryHealth)

	rec := httptest.NewRecorder()
	p.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body := rec.Body.String()
	for _, want := range []string{
		"keeprun_http_request_duration_seconds_count",
		`keeprun_habits_created_total{category="health"} 1`,
		"go_goroutines",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}

func TestRecordersAreIndependent(t *testing.T) {
	a := NewPrometheusRecorder()
	b := NewPrometheusRecorder()
	a.HabitCreated(constants.CategoryOther)
	if got := testutil.ToFloat64(b.habitsCreated.WithLabelValues("other")); got != 0 {
		t.Errorf("second registry saw %v creations", got)
	}
}
