package pipeline

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"github.com/timmy/jobscout/internal/domain"
	"github.com/timmy/jobscout/internal/logger"
)

// ErrRunInProgress is returned when another run holds the lock.
var ErrRunInProgress = errors.New("a pipeline run is already in progress")

// RunStore persists run log rows.
type RunStore interface {
	Create(ctx context.Context, run *domain.RunLog) error
}

// Orchestrator executes the stages of a run in order.
type Orchestrator struct {
	stages []Stage
	runs   RunStore
	lock   *flock.Flock
	now    func() time.Time

	mu sync.Mutex
}

// NewOrchestrator creates an orchestrator.
// Parameters:
//   - runs: run log store; nil skips the run log.
//   - lockPath: lock file shared by every process using the same store; empty disables it.
// Returns:
//   - *Orchestrator: orchestrator running Stages().
func NewOrchestrator(runs RunStore, lockPath string) *Orchestrator {
	o := &Orchestrator{
		stages: Stages(),
		runs:   runs,
		now:    time.Now,
	}
	if lockPath != "" {
		o.lock = flock.New(lockPath)
	}
	return o
}

// Running reports whether a run is in progress in this process.
func (o *Orchestrator) Running() bool {
	if !o.mu.TryLock() {
		return true
	}
	o.mu.Unlock()
	return false
}

// Run executes every stage and writes one run log row. Stage failures are
// recorded in the state; an error is returned only when the run could not
// start or a stage panicked.
func (o *Orchestrator) Run(ctx context.Context, in *Inputs) (*RunState, error) {
	if !o.mu.TryLock() {
		return nil, ErrRunInProgress
	}
	defer o.mu.Unlock()

	if o.lock != nil {
		locked, err := o.lock.TryLock()
		if err != nil {
			return nil, fmt.Errorf("failed to acquire run lock: %w", err)
		}
		if !locked {
			return nil, ErrRunInProgress
		}
		defer o.lock.Unlock()
	}

	mode := in.Mode
	if !mode.Valid() {
		mode = domain.RunModeDaily
	}
	start := o.now()
	st := &RunState{
		RunID:   uuid.NewString(),
		RunDate: start.Format("2006-01-02"),
		Mode:    mode,
	}
	ctx = logger.SetRunID(ctx, st.RunID)
	logger.CtxInfo(ctx, "Starting %s run for %s", st.Mode, st.RunDate)

	err := o.runStages(ctx, in, st)

	duration := o.now().Sub(start)
	if err != nil {
		logger.FromContext(ctx).WithError(err).Error("Pipeline run failed")
		st.Errors = append(st.Errors, err.Error())
	}
	o.writeRunLog(ctx, st, duration)

	logger.With(logger.Fields{
		"fetched":  st.TotalFetched,
		"filtered": st.TotalFiltered,
		"matched":  st.TotalMatched,
		"new":      st.TotalNew,
		"errors":   len(st.Errors),
	}).WithDuration(duration).Info(ctx, "Run complete")
	return st, err
}

func (o *Orchestrator) runStages(ctx context.Context, in *Inputs, st *RunState) (err error) {
	current := ""
	defer func() {
		if r := recover(); r != nil {
			logger.FromContext(ctx).WithField(logger.FieldStage, current).
				WithField("stack", string(debug.Stack())).
				Errorf("Stage panicked: %v", r)
			err = fmt.Errorf("stage %s panicked: %v", current, r)
		}
	}()

	for _, stage := range o.stages {
		current = stage.Name
		sctx := logger.SetStage(ctx, stage.Name)
		begin := time.Now()
		d := stage.Run(sctx, in, *st)
		st.Merge(d)
		logger.With(logger.Fields{"errors": len(d.Errors)}).
			WithDuration(time.Since(begin)).Debug(sctx, "Stage %s done", stage.Name)
	}
	return nil
}

// writeRunLog is best effort; the run already happened.
func (o *Orchestrator) writeRunLog(ctx context.Context, st *RunState, duration time.Duration) {
	if o.runs == nil {
		return
	}
	entry := st.RunLog(duration.Seconds())
	if err := o.runs.Create(context.WithoutCancel(ctx), entry); err != nil {
		logger.FromContext(ctx).WithError(err).Error("Failed to write run log")
	}
}
