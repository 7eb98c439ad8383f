package llm

import "fmt"

// ErrorKind classifies an LLM client failure, per spec §4.5/§7: "Fails with
// ApiConnection, RateLimited, Internal, or InvalidRequest error kinds."
type ErrorKind string

const (
	ErrorAPIConnection ErrorKind = "api_connection"
	ErrorRateLimited   ErrorKind = "rate_limited"
	ErrorInternal      ErrorKind = "internal"
	ErrorInvalidRequest ErrorKind = "invalid_request"
)

// Retryable reports whether the error-kind table in spec §7 marks this kind
// for retry. InvalidRequest is deliberately excluded — "Retry on
// InvalidRequest is inconsistent across LLM adapters; this spec forbids
// retrying it" (spec §9, open questions).
func (k ErrorKind) Retryable() bool {
	switch k {
	case ErrorAPIConnection, ErrorRateLimited, ErrorInternal:
		return true
	default:
		return false
	}
}

// Error is the structured error every Provider.Generate implementation
// returns on failure.
type Error struct {
	Kind     ErrorKind
	Provider string
	Message  string
	Cause    error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("[%s:%s] %s", e.Provider, e.Kind, e.Message)
	}
	if e.Cause != nil {
		return fmt.Sprintf("[%s:%s] %s", e.Provider, e.Kind, e.Cause.Error())
	}
	return fmt.Sprintf("[%s:%s]", e.Provider, e.Kind)
}

func (e *Error) Unwrap() error { return e.Cause }

// Retryable reports whether this error's kind is eligible for the client's
// retry loop.
func (e *Error) Retryable() bool { return e.Kind.Retryable() }

// IsError reports whether err is an *Error of the given kind.
func IsError(err error, kind ErrorKind) bool {
	var e *Error
	if !asError(err, &e) {
		return false
	}
	return e.Kind == kind
}

func asError(err error, target **Error) bool {
	for err != nil {
		if e, ok := err.(*Error); ok {
			*target = e
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
