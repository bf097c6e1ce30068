// Package pipelineerror defines the typed error taxonomy of the extraction
// pipeline. Callers branch on these types to decide whether a failure is
// contained at batch granularity or aborts the whole run.
package pipelineerror

import "fmt"

// InputError reports an invalid input file before any inference call is made.
// These always propagate to the caller.
type InputError struct {
	FilePath string
	Reason   string
}

func (e *InputError) Error() string {
	return fmt.Sprintf("invalid input %s: %s", e.FilePath, e.Reason)
}

// TransportError reports a failed round trip to the inference service.
type TransportError struct {
	Operation string
	Err       error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("inference transport failure during %s: %v", e.Operation, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// ParseError reports an inference response that could not be decoded as JSON
// even after all recovery attempts.
type ParseError struct {
	Operation string
	Snippet   string
	Err       error
}

func (e *ParseError) Error() string {
	if e.Snippet != "" {
		return fmt.Sprintf("%s: response is not valid JSON: %v (snippet: %q)", e.Operation, e.Err, e.Snippet)
	}
	return fmt.Sprintf("%s: response is not valid JSON: %v", e.Operation, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// SchemaError reports a decoded response whose shape does not match the
// documented schema for the call site.
type SchemaError struct {
	Operation string
	Expected  string
	Got       string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("%s: response schema mismatch: expected %s, got %s", e.Operation, e.Expected, e.Got)
}

// Snippet returns at most n leading bytes of s for error context.
func Snippet(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
