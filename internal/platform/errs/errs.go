package errs

import "fmt"

// Kind categorizes application errors for HTTP status mapping and
// report error codes.
type Kind int

const (
	// Unknown represents an unclassified error.
	Unknown Kind = iota
	// InvalidInput indicates the request or URL was malformed (HTTP 400).
	InvalidInput
	// Unreachable indicates a probed host could not be reached (HTTP 502).
	Unreachable
	// Timeout indicates a record or batch deadline elapsed (HTTP 504).
	Timeout
	// ParsingFailed indicates a probe response could not be parsed (HTTP 500).
	ParsingFailed
	// ContractMismatch indicates the model artifact does not match the
	// feature vector contract. Fatal at startup, never recovered per record.
	ContractMismatch
	// InferenceFailed indicates the classifier rejected an otherwise valid vector.
	InferenceFailed
)

// AppError carries a category, user message, and original cause.
type AppError struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}
