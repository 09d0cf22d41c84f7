package aggregate_test

import (
	"testing"

	"gavel/internal/sandbox/aggregate"
	"gavel/internal/sandbox/result"
)

func verdictOf(id int, status result.Status, timeMs, memKB int64) result.TestVerdict {
	return result.TestVerdict{TestID: id, Status: status, TimeMs: timeMs, MemoryKB: memKB}
}

func TestFinalizeAllAccepted(t *testing.T) {
	agg := aggregate.New("sub-1", "prob-1", 40)
	agg.Add(verdictOf(0, result.StatusAccepted, 10, 100))
	agg.Add(verdictOf(1, result.StatusAccepted, 30, 300))

	res := agg.Finalize()
	if res.Status != result.StatusAccepted {
		t.Fatalf("got %s, want accepted", res.Status)
	}
	if res.TestsPassed != 2 || res.TestsTotal != 2 {
		t.Fatalf("counts wrong: %d/%d", res.TestsPassed, res.TestsTotal)
	}
	if res.TotalExecutionTimeMs != 40 {
		t.Fatalf("total time %d, want 40", res.TotalExecutionTimeMs)
	}
	if res.PeakMemoryKB != 300 {
		t.Fatalf("peak memory %d, want 300", res.PeakMemoryKB)
	}
	if res.CompilationTimeMs != 40 {
		t.Fatalf("compile time %d, want 40", res.CompilationTimeMs)
	}
}

func TestFinalizeFirstFailureWins(t *testing.T) {
	agg := aggregate.New("sub-1", "", 0)
	agg.Add(verdictOf(0, result.StatusAccepted, 10, 100))
	agg.Add(verdictOf(1, result.StatusWrongAnswer, 10, 100))
	agg.Add(verdictOf(2, result.StatusTimeout, 2000, 100))

	res := agg.Finalize()
	if res.Status != result.StatusWrongAnswer {
		t.Fatalf("overall status must come from the first failing test, got %s", res.Status)
	}
	if res.TestsPassed != 1 || res.TestsTotal != 3 {
		t.Fatalf("counts wrong: %d/%d", res.TestsPassed, res.TestsTotal)
	}
}

func TestFinalizeNoTests(t *testing.T) {
	res := aggregate.New("sub-1", "", 5).Finalize()
	if res.Status != result.StatusAccepted {
		t.Fatalf("an empty run is accepted, got %s", res.Status)
	}
	if res.TestsTotal != 0 || res.TestsPassed != 0 {
		t.Fatalf("counts wrong: %d/%d", res.TestsPassed, res.TestsTotal)
	}
	if res.PeakMemoryKB != 0 || res.TotalExecutionTimeMs != 0 {
		t.Fatalf("metrics must be zero: %+v", res)
	}
}

func TestAddAfterFinalizeIgnored(t *testing.T) {
	agg := aggregate.New("sub-1", "", 0)
	agg.Add(verdictOf(0, result.StatusAccepted, 10, 100))
	agg.Finalize()
	agg.Add(verdictOf(1, result.StatusWrongAnswer, 10, 100))

	res := agg.Finalize()
	if res.TestsTotal != 1 {
		t.Fatalf("verdicts added after finalize must be dropped, total %d", res.TestsTotal)
	}
}

func TestFinalizeKeepsVerdictOrder(t *testing.T) {
	agg := aggregate.New("sub-1", "", 0)
	for i := 0; i < 4; i++ {
		agg.Add(verdictOf(i, result.StatusAccepted, 1, 1))
	}
	res := agg.Finalize()
	for i, v := range res.Tests {
		if v.TestID != i {
			t.Fatalf("test %d out of order: %+v", i, res.Tests)
		}
	}
}
