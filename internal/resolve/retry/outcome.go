package retry

// Kind is the state of one attempt.
type Kind int

const (
	KindUnknown    Kind = iota // zero Outcome, treated as an unexpected error
	KindSuccess                // stop, nothing to report
	KindTerminal               // expected negative result, stop without tripping
	KindUnexpected             // retryable, trips the blacklist once retries are exhausted
	KindRetryable              // retryable reported failure, never trips the blacklist
)

func (k Kind) String() string {
	switch k {
	case KindSuccess:
		return "success"
	case KindTerminal:
		return "terminal"
	case KindUnexpected:
		return "unexpected"
	case KindRetryable:
		return "retryable"
	default:
		return "unknown"
	}
}

// Outcome is the tagged result of one attempt.
type Outcome[E error] struct {
	kind    Kind
	failure E
	cause   error
}

// Success ends the call without writing a failure.
func Success[E error]() Outcome[E] {
	return Outcome[E]{kind: KindSuccess}
}

// Terminal ends the call with failure, e.g. "artifact not found".
func Terminal[E error](failure E) Outcome[E] {
	return Outcome[E]{kind: KindTerminal, failure: failure}
}

// Unexpected reports a failure worth retrying.
func Unexpected[E error](cause error) Outcome[E] {
	return Outcome[E]{kind: KindUnexpected, cause: cause}
}

// Retryable reports a failure the delegate wrote itself. It is retried, but
// written unchanged instead of blacklisting once retries are exhausted.
func Retryable[E error](failure E) Outcome[E] {
	return Outcome[E]{kind: KindRetryable, failure: failure}
}

func (o Outcome[E]) Kind() Kind { return o.kind }

// Failure returns the failure of a terminal or retryable outcome.
func (o Outcome[E]) Failure() E { return o.failure }

// Cause returns the error of an unexpected outcome.
func (o Outcome[E]) Cause() error { return o.cause }
