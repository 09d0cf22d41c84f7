package errors

// ErrorCode represents a unique error identifier
type ErrorCode int

// Error code ranges allocation:
// 10000-10999: System & Common errors
// 11000-11999: Payload decoding errors
// 12000-12999: Compilation errors
// 13000-13999: Execution & Verdict errors

const (
	// ========== System & Common Errors (10000-10999) ==========

	// Success
	Success ErrorCode = 10000

	// Generic errors (10000-10099)
	InternalError ErrorCode = 10001
	InvalidParams ErrorCode = 10002
	NotFound      ErrorCode = 10003

	// Validation errors (10300-10399)
	ValidationFailed   ErrorCode = 10300
	InvalidFormat      ErrorCode = 10301
	RequiredFieldEmpty ErrorCode = 10303

	// ========== Payload Decoding Errors (11000-11999) ==========

	DecodeFailed     ErrorCode = 11000
	CodeMissing      ErrorCode = 11001
	CodeNotBase64    ErrorCode = 11002
	TestCasesInvalid ErrorCode = 11003

	// ========== Compilation Errors (12000-12999) ==========

	CompileFailed       ErrorCode = 12000
	CompilerUnavailable ErrorCode = 12001

	// ========== Execution & Verdict Errors (13000-13999) ==========

	LanguageNotSupported ErrorCode = 13000
	ExecutorFault        ErrorCode = 13001
	RuntimeFailed        ErrorCode = 13002
	TimeLimitExceeded    ErrorCode = 13003
	MemoryLimitExceeded  ErrorCode = 13004
	OutputLimitExceeded  ErrorCode = 13005
	WorkspaceFailed      ErrorCode = 13100
	SandboxUnsupported   ErrorCode = 13101
)

// errorMessages maps error codes to default messages
var errorMessages = map[ErrorCode]string{
	Success: "Success",

	InternalError: "Internal error",
	InvalidParams: "Invalid parameters",
	NotFound:      "Resource not found",

	ValidationFailed:   "Validation failed",
	InvalidFormat:      "Invalid format",
	RequiredFieldEmpty: "Required field is empty",

	DecodeFailed:     "Failed to decode payload",
	CodeMissing:      "No code provided",
	CodeNotBase64:    "Code payload is not valid base64",
	TestCasesInvalid: "Test case payload is malformed",

	CompileFailed:       "Compilation failed",
	CompilerUnavailable: "Compiler could not be invoked",

	LanguageNotSupported: "Programming language not supported",
	ExecutorFault:        "Sandbox executor fault",
	RuntimeFailed:        "Program exited abnormally",
	TimeLimitExceeded:    "Time limit exceeded",
	MemoryLimitExceeded:  "Memory limit exceeded",
	OutputLimitExceeded:  "Output limit exceeded",
	WorkspaceFailed:      "Workspace setup failed",
	SandboxUnsupported:   "Sandbox is not supported on this platform",
}

// Message returns the default message for an error code
func (c ErrorCode) Message() string {
	if msg, ok := errorMessages[c]; ok {
		return msg
	}
	return "Unknown error"
}
