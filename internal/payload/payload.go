// Package payload decodes the transport-encoded submission and test cases.
package payload

import (
	"encoding/base64"
	"encoding/json"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/mitchellh/mapstructure"

	appErr "gavel/pkg/errors"
)

// Submission is one unit of user-supplied source code to be judged.
// Immutable once decoded.
type Submission struct {
	SubmissionID string
	ProblemID    string
	Language     string
	Source       []byte
}

// TestCase is one (input, expected output) pair with per-case limits.
// The sequence order is execution order and report order.
type TestCase struct {
	ID             int
	Input          []byte
	ExpectedOutput []byte
	TimeLimitMs    int64
	MemoryLimitKB  int64
}

// Defaults supplies per-test limits when the payload omits them.
type Defaults struct {
	TimeLimitMs   int64
	MemoryLimitKB int64
}

type testCasePayload struct {
	Input          string `mapstructure:"input"`
	ExpectedOutput string `mapstructure:"expected_output"`
	TimeLimitMs    int64  `mapstructure:"time_limit_ms" validate:"gte=0"`
	MemoryLimitKB  int64  `mapstructure:"memory_limit_kb" validate:"gte=0"`
}

// Decoder turns the raw channel values into in-memory structures.
// It has no side effects and never touches the filesystem.
type Decoder struct {
	validate *validator.Validate
	defaults Defaults
}

// NewDecoder creates a decoder with the given per-test defaults.
func NewDecoder(defaults Defaults) *Decoder {
	return &Decoder{
		validate: validator.New(),
		defaults: defaults,
	}
}

// DecodeSubmission decodes the base64 source payload. A missing, empty or
// undecodable payload is a DecodeFailed-class error; the caller maps it to
// a compilation_error outcome with zero timings.
func (d *Decoder) DecodeSubmission(rawCode, language, submissionID, problemID string) (Submission, error) {
	if rawCode == "" {
		return Submission{}, appErr.New(appErr.CodeMissing)
	}
	source, err := base64.StdEncoding.DecodeString(rawCode)
	if err != nil {
		return Submission{}, appErr.Wrap(err, appErr.CodeNotBase64)
	}
	if len(source) == 0 {
		return Submission{}, appErr.New(appErr.CodeMissing)
	}
	if submissionID == "" {
		submissionID = uuid.NewString()
	}
	return Submission{
		SubmissionID: submissionID,
		ProblemID:    problemID,
		Language:     language,
		Source:       source,
	}, nil
}

// DecodeTestCases parses the structured test-case payload. A single object
// is accepted as a one-element list. Absent per-test limits fall back to
// the decoder defaults.
func (d *Decoder) DecodeTestCases(rawTests string) ([]TestCase, error) {
	if rawTests == "" {
		rawTests = "[]"
	}

	var items []map[string]interface{}
	if err := json.Unmarshal([]byte(rawTests), &items); err != nil {
		var single map[string]interface{}
		if singleErr := json.Unmarshal([]byte(rawTests), &single); singleErr != nil {
			return nil, appErr.Wrap(err, appErr.TestCasesInvalid)
		}
		items = []map[string]interface{}{single}
	}

	tests := make([]TestCase, 0, len(items))
	for i, item := range items {
		var tc testCasePayload
		if err := mapstructure.Decode(item, &tc); err != nil {
			return nil, appErr.Wrapf(err, appErr.TestCasesInvalid, "test case %d is malformed", i)
		}
		if err := d.validate.Struct(tc); err != nil {
			return nil, appErr.Wrapf(err, appErr.TestCasesInvalid, "test case %d is invalid", i)
		}
		if tc.TimeLimitMs == 0 {
			tc.TimeLimitMs = d.defaults.TimeLimitMs
		}
		if tc.MemoryLimitKB == 0 {
			tc.MemoryLimitKB = d.defaults.MemoryLimitKB
		}
		tests = append(tests, TestCase{
			ID:             i,
			Input:          []byte(tc.Input),
			ExpectedOutput: []byte(tc.ExpectedOutput),
			TimeLimitMs:    tc.TimeLimitMs,
			MemoryLimitKB:  tc.MemoryLimitKB,
		})
	}
	return tests, nil
}
