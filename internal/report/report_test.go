package report_test

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"gavel/internal/report"
	"gavel/internal/sandbox/result"
)

func sampleResult() result.SubmissionResult {
	return result.SubmissionResult{
		SubmissionID:         "sub-1",
		ProblemID:            "prob-1",
		Status:               result.StatusWrongAnswer,
		CompilationTimeMs:    25,
		TotalExecutionTimeMs: 30,
		PeakMemoryKB:         2048,
		TestsPassed:          1,
		TestsTotal:           2,
		Tests: []result.TestVerdict{
			{TestID: 0, Status: result.StatusAccepted, TimeMs: 10, MemoryKB: 1024},
			{TestID: 1, Status: result.StatusWrongAnswer, TimeMs: 20, MemoryKB: 2048},
		},
	}
}

func TestFromResult(t *testing.T) {
	rec := report.FromResult(sampleResult())
	if rec.Status != "wrong_answer" {
		t.Fatalf("status %q", rec.Status)
	}
	if rec.ExecutionTimeMs != 15 {
		t.Fatalf("execution_time_ms must be the per-test average, got %d", rec.ExecutionTimeMs)
	}
	if rec.TotalExecutionTimeMs != 30 || rec.MemoryUsedKB != 2048 {
		t.Fatalf("metrics wrong: %+v", rec)
	}
	if len(rec.TestResults) != 2 || rec.TestResults[1].Status != "wrong_answer" {
		t.Fatalf("test results wrong: %+v", rec.TestResults)
	}
}

func TestFromResultNoTests(t *testing.T) {
	rec := report.FromResult(result.SubmissionResult{
		Status: result.StatusCompilationError,
		Tests:  []result.TestVerdict{},
	})
	if rec.ExecutionTimeMs != 0 {
		t.Fatalf("average over zero tests must be zero, got %d", rec.ExecutionTimeMs)
	}
	if rec.TestResults == nil {
		t.Fatal("test_results must serialize as [], not null")
	}
}

func TestRecordWireFormat(t *testing.T) {
	data, err := json.Marshal(report.FromResult(sampleResult()))
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	for _, key := range []string{
		`"status"`, `"compilation_time_ms"`, `"execution_time_ms"`,
		`"total_execution_time_ms"`, `"memory_used_kb"`,
		`"tests_passed"`, `"tests_total"`, `"test_results"`,
	} {
		if !bytes.Contains(data, []byte(key)) {
			t.Errorf("wire record missing %s: %s", key, data)
		}
	}
	if bytes.Contains(data, []byte(`"error_message"`)) {
		t.Errorf("empty error_message must be omitted: %s", data)
	}
}

func TestInternalErrorRecord(t *testing.T) {
	rec := report.InternalErrorRecord("sub-1", "disk full")
	if rec.Status != "runtime_error" {
		t.Fatalf("status %q", rec.Status)
	}
	if !strings.Contains(rec.ErrorMessage, "internal judge error") || !strings.Contains(rec.ErrorMessage, "disk full") {
		t.Fatalf("unexpected message %q", rec.ErrorMessage)
	}
}

func TestReporterWritesOneLine(t *testing.T) {
	var buf bytes.Buffer
	r := report.NewReporter(&buf)

	if err := r.Write(report.FromResult(sampleResult())); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	if err := r.Write(report.InternalErrorRecord("sub-1", "late fault")); err != nil {
		t.Fatalf("second write failed: %v", err)
	}
	if !r.Written() {
		t.Fatal("reporter must track the write")
	}

	out := buf.String()
	if strings.Count(out, "\n") != 1 || !strings.HasSuffix(out, "\n") {
		t.Fatalf("expected exactly one JSON line, got %q", out)
	}
	var rec map[string]interface{}
	if err := json.Unmarshal([]byte(out), &rec); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if rec["status"] != "wrong_answer" {
		t.Fatalf("the second write must be dropped: %v", rec)
	}
}
