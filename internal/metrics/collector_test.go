package metrics

import (
	"testing"
	"time"
)

func TestRecordTiming(t *testing.T) {
	c := NewCollector()
	c.RecordTiming(OpGate, 10*time.Millisecond)
	c.RecordTiming(OpGate, 30*time.Millisecond)

	snap := c.Snapshot()
	if snap.Gate == nil {
		t.Fatal("expected gate snapshot")
	}
	if snap.Gate.Count != 2 {
		t.Errorf("count = %d, want 2", snap.Gate.Count)
	}
	if snap.Gate.MinTimeMs != 10 || snap.Gate.MaxTimeMs != 30 {
		t.Errorf("min/max = %d/%d, want 10/30", snap.Gate.MinTimeMs, snap.Gate.MaxTimeMs)
	}
	if snap.Gate.AvgTimeMs != 20 {
		t.Errorf("avg = %f, want 20", snap.Gate.AvgTimeMs)
	}
}

func TestSnapshotNilWithoutData(t *testing.T) {
	snap := NewCollector().Snapshot()
	if snap.Completion != nil {
		t.Error("expected nil completion snapshot with no data")
	}
}

func TestRecordOutcome(t *testing.T) {
	c := NewCollector()
	c.RecordOutcome(OutcomeResponded)
	c.RecordOutcome(OutcomeResponded)
	c.RecordOutcome(OutcomeSuppressed)

	snap := c.Snapshot()
	if snap.Responded != 2 || snap.Suppressed != 1 || snap.Declined != 0 {
		t.Errorf("unexpected outcome counts: %+v", snap)
	}
}
