// Package retry runs repository operations under a retry policy and trips the
// repository blacklist when an unexpected failure survives every attempt.
package retry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/vietddude/repoguard/internal/core/domain"
	"github.com/vietddude/repoguard/internal/metrics"
	"github.com/vietddude/repoguard/internal/resolve/blacklist"
)

// Sink receives the single failure of a call.
type Sink[E error] interface {
	Failed(failure E) bool
}

// Call describes one resolution operation.
type Call[E error] struct {
	// Operation names the call in logs and metrics
	Operation string

	// Attempt performs one try against the delegate. A panic counts as an
	// unexpected error.
	Attempt func(ctx context.Context) Outcome[E]

	// Classify builds the failure written to the sink. It receives the last
	// unexpected error, or domain.ErrRepositoryBlacklisted when the call is
	// skipped.
	Classify func(cause error) E
}

// SleepFunc blocks for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Executor applies one retry policy and one blacklister for one repository view.
type Executor struct {
	repository  domain.RepositoryID
	access      domain.AccessKind
	blacklister blacklist.Blacklister
	policy      Policy
	sleep       SleepFunc
	log         *slog.Logger
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// WithSleep replaces the backoff sleep.
func WithSleep(fn SleepFunc) ExecutorOption {
	return func(e *Executor) { e.sleep = fn }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) ExecutorOption {
	return func(e *Executor) { e.log = l }
}

// NewExecutor validates policy and creates an executor.
func NewExecutor(
	repository domain.RepositoryID,
	access domain.AccessKind,
	bl blacklist.Blacklister,
	policy Policy,
	opts ...ExecutorOption,
) (*Executor, error) {
	if err := policy.Validate(); err != nil {
		return nil, err
	}
	if bl == nil {
		return nil, errors.New("blacklister is required")
	}

	e := &Executor{
		repository:  repository,
		access:      access,
		blacklister: bl,
		policy:      policy,
		sleep:       sleepContext,
		log:         slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Policy returns the executor's retry policy.
func (e *Executor) Policy() Policy {
	return e.policy
}

// Run executes call and writes at most one failure to sink.
//
// A blacklisted repository is not contacted at all. Otherwise the call is
// attempted up to MaxRetries times with doubling backoff; success and terminal
// outcomes stop immediately. When the last attempt fails unexpectedly the
// repository is blacklisted; a retryable failure the delegate reported is
// written as is instead. If ctx is done while backing off, the call stops with
// the last failure and the repository is left alone.
func Run[E error](ctx context.Context, e *Executor, sink Sink[E], call Call[E]) {
	repo, access := string(e.repository), e.access.String()

	if e.blacklister.IsBlacklisted(ctx, e.repository) {
		metrics.ResolveFailuresTotal.WithLabelValues(repo, access, call.Operation, "skipped").Inc()
		sink.Failed(call.Classify(domain.ErrRepositoryBlacklisted))
		return
	}

	schedule := e.policy.newBackOff()
	for attempt := 1; ; attempt++ {
		metrics.ResolveAttemptsTotal.WithLabelValues(repo, access, call.Operation).Inc()

		out := attemptOnce(ctx, call)
		switch out.Kind() {
		case KindSuccess:
			if attempt > 1 {
				e.log.Debug("Successfully fetched external resource after retries",
					"repository", repo, "operation", call.Operation, "retries", attempt-1)
			}
			return
		case KindTerminal:
			metrics.ResolveFailuresTotal.WithLabelValues(repo, access, call.Operation, "terminal").Inc()
			sink.Failed(out.Failure())
			return
		}

		reported := out.Kind() == KindRetryable
		var cause error
		if reported {
			cause = out.Failure()
		} else {
			cause = out.Cause()
		}
		if cause == nil {
			cause = fmt.Errorf("%s returned an invalid outcome", call.Operation)
		}

		if attempt >= e.policy.MaxRetries && reported {
			metrics.ResolveFailuresTotal.WithLabelValues(repo, access, call.Operation, "reported").Inc()
			sink.Failed(out.Failure())
			return
		}
		if attempt >= e.policy.MaxRetries {
			e.blacklister.BlacklistRepository(ctx, e.repository, cause)
			metrics.ResolveFailuresTotal.WithLabelValues(repo, access, call.Operation, "exhausted").Inc()
			sink.Failed(call.Classify(cause))
			return
		}

		delay := schedule.NextBackOff()
		e.log.Debug("Error while accessing repository, waiting before next retry",
			"repository", repo,
			"access", access,
			"operation", call.Operation,
			"backoff", delay,
			"retries_left", e.policy.MaxRetries-attempt,
			"error", cause)
		metrics.ResolveRetriesTotal.WithLabelValues(repo, access, call.Operation).Inc()
		metrics.BackoffSeconds.WithLabelValues(repo, access).Observe(delay.Seconds())

		if err := e.sleep(ctx, delay); err != nil {
			// Interrupted: not evidence that the repository is broken.
			metrics.ResolveFailuresTotal.WithLabelValues(repo, access, call.Operation, "aborted").Inc()
			if reported {
				sink.Failed(out.Failure())
			} else {
				sink.Failed(call.Classify(fmt.Errorf("%w (retry aborted: %w)", cause, err)))
			}
			return
		}
	}
}

func attemptOnce[E error](ctx context.Context, call Call[E]) (out Outcome[E]) {
	defer func() {
		if p := recover(); p != nil {
			out = Unexpected[E](fmt.Errorf("panic in %s: %v", call.Operation, p))
		}
	}()
	return call.Attempt(ctx)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// String describes the executor for logs.
func (e *Executor) String() string {
	return fmt.Sprintf("%s/%s (max retries %d)", e.repository, e.access, e.policy.MaxRetries)
}
