// Package cleanup purges soft-deleted planner rows once they age past the
// retention window.
package cleanup

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/julianstephens/keeprun/internal/constants"
	"github.com/julianstephens/keeprun/internal/logger"
	"github.com/julianstephens/keeprun/internal/storage"
	"github.com/julianstephens/keeprun/internal/utils"
)

// ErrAlreadyRunning is returned when Run is called while another run is in flight.
var ErrAlreadyRunning = errors.New("cleanup already running")

type Recorder interface {
	ObservePurge(entity string, n int64)
	ObserveCleanupRun(err error)
}

type Result struct {
	Cutoff     time.Time `json:"cutoff"`
	Todos      int64     `json:"todos"`
	TimeBlocks int64     `json:"time_blocks"`
}

type Runner struct {
	store     storage.MaintenanceQueries
	retention time.Duration
	clock     utils.Clock
	recorder  Recorder
	running   atomic.Bool
}

// NewRunner builds a runner. A non-positive retentionDays falls back to the default.
func NewRunner(store storage.MaintenanceQueries, retentionDays int, clock utils.Clock, recorder Recorder) *Runner {
	if retentionDays <= 0 {
		retentionDays = constants.DefaultRetentionDays
	}
	if clock == nil {
		clock = utils.SystemClock{}
	}
	return &Runner{
		store:     store,
		retention: time.Duration(retentionDays) * 24 * time.Hour,
		clock:     clock,
		recorder:  recorder,
	}
}

// Run performs one purge pass.
func (r *Runner) Run(ctx context.Context) (Result, error) {
	if !r.running.CompareAndSwap(false, true) {
		return Result{}, ErrAlreadyRunning
	}
	defer r.running.Store(false)

	res, err := r.run(ctx)
	if r.recorder != nil {
		r.recorder.ObserveCleanupRun(err)
	}
	return res, err
}

func (r *Runner) run(ctx context.Context) (Result, error) {
	res := Result{Cutoff: r.clock.Now().Add(-r.retention)}

	n, err := r.store.PurgeDeletedTodos(ctx, res.Cutoff)
	if err != nil {
		return res, err
	}
	res.Todos = n
	r.observe("todos", n)

	n, err = r.store.PurgeDeletedTimeBlocks(ctx, res.Cutoff)
	if err != nil {
		return res, err
	}
	res.TimeBlocks = n
	r.observe("time_blocks", n)

	logger.Info("Cleanup finished", "cutoff", res.Cutoff.Format(time.RFC3339), "todos", res.Todos, "time_blocks", res.TimeBlocks)
	return res, nil
}

func (r *Runner) observe(entity string, n int64) {
	if r.recorder != nil {
		r.recorder.ObservePurge(entity, n)
	}
}

// Start runs a pass immediately and then on every tick until ctx is done.
// Errors are logged and the loop keeps going.
func (r *Runner) Start(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = constants.DefaultCleanupInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if _, err := r.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Cleanup run failed", "error", err)
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}
