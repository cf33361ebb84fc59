package scenario

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"homeharness/internal/client"
	"homeharness/internal/clock"
	"homeharness/internal/report"
)

// Status is the outcome of one step.
type Status string

const (
	StatusPassed  Status = "passed"
	StatusFailed  Status = "failed"
	StatusSkipped Status = "skipped"
	// StatusNotRun marks steps left over after a fail-fast stop or cancellation.
	StatusNotRun Status = "not_run"
)

// Outcome records what happened to one step.
type Outcome struct {
	Step     string
	Stage    Stage
	Status   Status
	Message  string
	Failure  *report.Failure
	Duration time.Duration
}

// Result is the outcome of a whole run.
type Result struct {
	Outcomes []Outcome
	Passed   int
	Failed   int
	Skipped  int
}

// Outcome returns the outcome recorded for step.
func (r *Result) Outcome(step string) (Outcome, bool) {
	for _, o := range r.Outcomes {
		if o.Step == step {
			return o, true
		}
	}
	return Outcome{}, false
}

// Options tune a Runner.
type Options struct {
	// FailFast stops the run at the first failed step.
	FailFast bool
	// Clock times steps. Defaults to the real clock.
	Clock clock.Clock
}

// Runner executes steps against one API session.
type Runner struct {
	session  *client.Client
	reporter *report.Reporter
	logger   *zap.Logger
	opts     Options
	creds    Credentials
	fakeID   string
}

// NewRunner creates a runner. session is the unauthenticated client; the login
// step derives the authenticated one from it.
func NewRunner(session *client.Client, creds Credentials, fakeID string, reporter *report.Reporter, logger *zap.Logger, opts Options) *Runner {
	if opts.Clock == nil {
		opts.Clock = clock.NewRealClock()
	}
	return &Runner{
		session:  session,
		reporter: reporter,
		logger:   logger,
		opts:     opts,
		creds:    creds,
		fakeID:   fakeID,
	}
}

// Preflight checks that the server accepts connections. On failure it prints
// the unreachable diagnostic and returns an error wrapping client.ErrUnreachable.
func (r *Runner) Preflight(ctx context.Context) error {
	if err := r.session.Ping(ctx); err != nil {
		r.logger.Debug("Preflight failed", zap.Error(err))
		r.reporter.Unreachable(r.session.BaseURL())
		return err
	}
	return nil
}

// Run executes steps in order and returns every outcome. The returned error
// combines all step failures and is nil only when every step passed.
func (r *Runner) Run(ctx context.Context, steps []Step) (*Result, error) {
	if err := ValidateSteps(steps); err != nil {
		return nil, err
	}

	state := &State{
		Session:     r.session,
		Credentials: r.creds,
		FakeID:      r.fakeID,
	}
	result := &Result{Outcomes: make([]Outcome, 0, len(steps))}
	statuses := make(map[string]Status, len(steps))

	var errs error
	var stage Stage
	stopped := false

	r.reporter.Start()
	for _, step := range steps {
		if stopped {
			statuses[step.Name] = StatusNotRun
			result.Outcomes = append(result.Outcomes, Outcome{Step: step.Name, Stage: step.Stage, Status: StatusNotRun})
			result.Skipped++
			continue
		}

		if step.Stage != stage {
			stage = step.Stage
			r.reporter.Stage(string(stage))
		}

		if missing := unmet(step.Needs, statuses); len(missing) > 0 {
			statuses[step.Name] = StatusSkipped
			result.Outcomes = append(result.Outcomes, Outcome{Step: step.Name, Stage: step.Stage, Status: StatusSkipped})
			result.Skipped++
			r.reporter.Skip(fmt.Sprintf("%s (needs %s)", step.Name, strings.Join(missing, ", ")))
			r.logger.Debug("Step skipped", zap.String("step", step.Name), zap.Strings("missing", missing))
			continue
		}

		start := r.opts.Clock.Now()
		msg, err := step.Run(ctx, state)
		duration := r.opts.Clock.Since(start)

		if err != nil {
			failure := report.AsFailure(err)
			statuses[step.Name] = StatusFailed
			result.Outcomes = append(result.Outcomes, Outcome{
				Step:     step.Name,
				Stage:    step.Stage,
				Status:   StatusFailed,
				Message:  failure.Message,
				Failure:  failure,
				Duration: duration,
			})
			result.Failed++
			r.reporter.FailRun(failure.Message, failure.Response)
			r.logger.Debug("Step failed",
				zap.String("step", step.Name),
				zap.Duration("duration", duration),
				zap.Error(err))
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", step.Name, err))

			if r.opts.FailFast || ctx.Err() != nil {
				stopped = true
			}
			continue
		}

		statuses[step.Name] = StatusPassed
		result.Outcomes = append(result.Outcomes, Outcome{
			Step:     step.Name,
			Stage:    step.Stage,
			Status:   StatusPassed,
			Message:  msg,
			Duration: duration,
		})
		result.Passed++
		r.reporter.LogOutcome(msg, true)
		r.logger.Debug("Step passed",
			zap.String("step", step.Name),
			zap.Duration("duration", duration))
	}

	r.reporter.Summary(result.Passed, result.Failed, result.Skipped)
	return result, errs
}

// ValidateSteps requires unique step names and Needs that refer to earlier steps,
// so every dependency is settled before its dependents run.
func ValidateSteps(steps []Step) error {
	seen := make(map[string]bool, len(steps))
	for _, step := range steps {
		if step.Name == "" {
			return errors.New("step without a name")
		}
		if step.Run == nil {
			return fmt.Errorf("step %q has no Run function", step.Name)
		}
		if seen[step.Name] {
			return fmt.Errorf("duplicate step %q", step.Name)
		}
		for _, need := range step.Needs {
			if !seen[need] {
				return fmt.Errorf("step %q needs %q, which does not run before it", step.Name, need)
			}
		}
		seen[step.Name] = true
	}
	return nil
}

func unmet(needs []string, statuses map[string]Status) []string {
	var missing []string
	for _, need := range needs {
		if statuses[need] != StatusPassed {
			missing = append(missing, need)
		}
	}
	return missing
}
