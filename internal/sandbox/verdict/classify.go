// Package verdict classifies execution outcomes into test verdicts.
package verdict

import (
	"bytes"

	"gavel/internal/sandbox/result"
)

// CompareMode selects the output normalization rule for a judging profile.
type CompareMode string

const (
	// CompareTrailingWS strips trailing whitespace per line and trailing
	// blank lines before a byte-exact comparison.
	CompareTrailingWS CompareMode = "trailing-ws"
	// CompareExact compares raw bytes.
	CompareExact CompareMode = "exact"
)

// Classifier turns raw outcomes into verdicts under one compare rule.
type Classifier struct {
	mode CompareMode
}

// NewClassifier creates a classifier. An empty mode means CompareTrailingWS.
func NewClassifier(mode CompareMode) *Classifier {
	if mode == "" {
		mode = CompareTrailingWS
	}
	return &Classifier{mode: mode}
}

// Classify maps one execution outcome to a test verdict.
// Resource and crash failures pre-empt the content comparison: output from
// a killed process is not a meaningful wrong answer.
func (c *Classifier) Classify(testID int, outcome result.ExecutionOutcome, expected []byte) result.TestVerdict {
	verdict := result.TestVerdict{
		TestID:   testID,
		TimeMs:   outcome.WallTimeMs,
		MemoryKB: outcome.PeakMemoryKB,
	}
	switch {
	case outcome.TerminatedBy == result.TerminatedByTimeout:
		verdict.Status = result.StatusTimeout
	case outcome.TerminatedBy == result.TerminatedByMemoryLimit:
		verdict.Status = result.StatusMemoryLimitExceeded
	case outcome.TerminatedBy == result.TerminatedBySignal || outcome.ExitCode != 0:
		verdict.Status = result.StatusRuntimeError
	case c.outputsEqual(outcome.Stdout, expected):
		verdict.Status = result.StatusAccepted
	default:
		verdict.Status = result.StatusWrongAnswer
	}
	return verdict
}

func (c *Classifier) outputsEqual(actual, expected []byte) bool {
	if c.mode == CompareExact {
		return bytes.Equal(actual, expected)
	}
	return bytes.Equal(Normalize(actual), Normalize(expected))
}

// Normalize strips trailing whitespace from every line and drops trailing
// blank lines, leaving the output otherwise byte-exact.
func Normalize(b []byte) []byte {
	lines := bytes.Split(b, []byte("\n"))
	for i, line := range lines {
		lines[i] = bytes.TrimRight(line, " \t\r")
	}
	for len(lines) > 0 && len(lines[len(lines)-1]) == 0 {
		lines = lines[:len(lines)-1]
	}
	return bytes.Join(lines, []byte("\n"))
}
