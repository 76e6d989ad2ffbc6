package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.CommandStarted()
	m.CommandFinished(OutcomeOK)
	m.HistoryOp("undo")
	m.ObserveLoad(time.Millisecond)
	m.ObserveUpload(time.Millisecond)
	m.SetOpenImages(3)
}

func TestMetrics_Record(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.CommandStarted()
	m.CommandStarted()
	m.CommandFinished(OutcomeOK)
	m.CommandFinished(OutcomeFailed)
	m.HistoryOp("undo")
	m.SetOpenImages(4)

	if got := testutil.ToFloat64(m.commandsStarted); got != 2 {
		t.Errorf("commands started: got %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.commandsFinished.WithLabelValues(OutcomeFailed)); got != 1 {
		t.Errorf("failed commands: got %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.historyOps.WithLabelValues("undo")); got != 1 {
		t.Errorf("undo ops: got %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.openImages); got != 4 {
		t.Errorf("open images: got %v, want 4", got)
	}

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather failed: %v", err)
	}
	if len(families) == 0 {
		t.Error("no metric families registered")
	}
}
