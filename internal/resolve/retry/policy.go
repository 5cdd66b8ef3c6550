package retry

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/cenkalti/backoff/v4"
)

const (
	DefaultMaxRetries     = 3
	DefaultInitialBackoff = 125 * time.Millisecond
)

// ErrInvalidPolicy is returned by Policy.Validate.
var ErrInvalidPolicy = errors.New("invalid retry policy")

// Policy bounds how often a resolution call is attempted. It is fixed at
// construction; the applied backoff doubles after every retry within one call
// and starts over for the next call.
type Policy struct {
	MaxRetries     int           // attempts per call, including the first
	InitialBackoff time.Duration // delay before the first retry
}

// DefaultPolicy returns 3 attempts starting with a 125ms backoff.
func DefaultPolicy() Policy {
	return Policy{MaxRetries: DefaultMaxRetries, InitialBackoff: DefaultInitialBackoff}
}

// Validate checks MaxRetries > 0 and InitialBackoff >= 0.
func (p Policy) Validate() error {
	if p.MaxRetries <= 0 {
		return fmt.Errorf("%w: max retries must be > 0, got %d", ErrInvalidPolicy, p.MaxRetries)
	}
	if p.InitialBackoff < 0 {
		return fmt.Errorf("%w: initial backoff must be >= 0, got %v", ErrInvalidPolicy, p.InitialBackoff)
	}
	return nil
}

// Delays returns the MaxRetries-1 backoff delays of one call.
func (p Policy) Delays() []time.Duration {
	if p.MaxRetries <= 1 {
		return nil
	}
	b := p.newBackOff()
	delays := make([]time.Duration, 0, p.MaxRetries-1)
	for i := 1; i < p.MaxRetries; i++ {
		delays = append(delays, b.NextBackOff())
	}
	return delays
}

// newBackOff returns a doubling schedule without jitter, cap or deadline.
func (p Policy) newBackOff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.InitialBackoff
	b.RandomizationFactor = 0
	b.Multiplier = 2
	b.MaxInterval = time.Duration(math.MaxInt64)
	b.MaxElapsedTime = 0
	b.Reset()
	return b
}
