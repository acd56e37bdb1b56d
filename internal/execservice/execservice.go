// Package execservice is the client for the remote execution service —
// the external system that actually compiles/interprets submitted source
// code inside a sandbox and reports output, timing, and memory metrics.
//
// This package owns two things:
//
//  1. The wire contract: RunRequest and RunResponse mirror the service's
//     JSON shapes exactly. Field names here are the service's field names.
//  2. The Runner interface + the HTTP Client implementing it. The run
//     lifecycle controller depends on Runner, never on Client, so tests
//     (and future transports) can substitute their own dispatcher.
//
// The sandbox itself is out of scope for this codebase — we only speak
// its protocol.
package execservice

import "context"

// MessageSuccess is the status message the execution service returns when
// the submitted program ran to completion with exit code 0. Any other
// message ("Runtime error", "Time limit exceeded", "Server error", ...)
// describes a failure or partial failure of the user's program.
const MessageSuccess = "Success"

// RunRequest is the payload for POST {base}/run.
//
// The service performs its own validation (or lack thereof) — an empty
// SourceCode is a legitimate request and produces an empty-output run.
type RunRequest struct {
	SourceCode string `json:"source_code"`
	InputData  string `json:"input_data"`
	// Language is a short code from the language package ("py", "js"),
	// not a human-readable label.
	Language string `json:"language"`
}

// RunResponse is the service's reply to a run request.
//
// ElapsedTime, MemoryUsage, and ReturnCode are pointers because the
// service omits them when the sandbox never got far enough to measure
// anything (e.g. an internal error before the process started).
type RunResponse struct {
	Stdout string `json:"stdout"`
	Stderr string `json:"stderr"`
	// ReturnCode is the process exit code, absent on sandbox failure.
	ReturnCode *int `json:"return_code"`
	// ElapsedTime is wall-clock seconds, absent when not measured.
	ElapsedTime *float64 `json:"elapsed_time"`
	// MemoryUsage is peak resident memory in MB, absent when not measured.
	MemoryUsage *float64 `json:"memory_usage"`
	// Timeout reports whether the sandbox killed the process for
	// exceeding its time limit.
	Timeout bool `json:"timeout"`
	// TestPassed is used by the service's judging mode; the playground
	// decodes it but does not act on it.
	TestPassed bool   `json:"test_passed"`
	Message    string `json:"message"`
}

// Runner dispatches a run request and returns the decoded response.
//
// A non-nil error means the dispatch itself failed (network error,
// non-2xx status, malformed body). A run that executed but failed — a
// syntax error in the user's code, say — is NOT an error: it comes back
// as a well-formed RunResponse with Message != MessageSuccess.
type Runner interface {
	Run(ctx context.Context, req RunRequest) (*RunResponse, error)
}
