package sideeffects

import (
    "context"
    "fmt"
    "sync"
    "time"

    log "github.com/sirupsen/logrus"

    "kitcheck/internal/ports"
)

// TaskError reports a background task that failed. It never reaches the
// request that queued the task.
type TaskError struct {
    Task string
    Err  error
}

func (e TaskError) Error() string { return fmt.Sprintf("%s: %v", e.Task, e.Err) }
func (e TaskError) Unwrap() error { return e.Err }

// Runner is a bounded queue drained by a fixed set of workers. Submit never
// blocks the caller: a full queue drops the task.
type Runner struct {
    tasks       chan ports.Task
    errs        chan TaskError
    taskTimeout time.Duration
    log         log.FieldLogger

    mu      sync.RWMutex
    closed  bool
    wg      sync.WaitGroup
    started bool
}

var _ ports.TaskQueue = (*Runner)(nil)

// New sizes the queue; queueSize < 1 is treated as 1.
func New(queueSize int, taskTimeout time.Duration, logger log.FieldLogger) *Runner {
    if queueSize < 1 { queueSize = 1 }
    if logger == nil { logger = log.StandardLogger() }
    return &Runner{
        tasks:       make(chan ports.Task, queueSize),
        errs:        make(chan TaskError, queueSize),
        taskTimeout: taskTimeout,
        log:         logger,
    }
}

// Errors delivers task failures. Reading it is optional; failures that find
// the channel full are only logged.
func (r *Runner) Errors() <-chan TaskError { return r.errs }

// Start launches concurrency workers. Workers exit once Close has drained
// the queue; ctx is the parent of every task's context.
func (r *Runner) Start(ctx context.Context, concurrency int) {
    if concurrency < 1 { concurrency = 1 }
    r.mu.Lock()
    defer r.mu.Unlock()
    if r.started || r.closed { return }
    r.started = true
    for i := 0; i < concurrency; i++ {
        r.wg.Add(1)
        go func(idx int) {
            defer r.wg.Done()
            for task := range r.tasks {
                r.run(ctx, idx, task)
            }
        }(i)
    }
}

func (r *Runner) run(ctx context.Context, idx int, task ports.Task) {
    if r.taskTimeout > 0 {
        var cancel context.CancelFunc
        ctx, cancel = context.WithTimeout(ctx, r.taskTimeout)
        defer cancel()
    }
    err := func() (err error) {
        defer func() {
            if p := recover(); p != nil {
                err = fmt.Errorf("panic: %v", p)
            }
        }()
        return task.Run(ctx)
    }()
    if err == nil { return }

    r.log.WithField("task", task.Name).Warnf("worker %d: background task failed: %v", idx, err)
    select {
    case r.errs <- TaskError{Task: task.Name, Err: err}:
    default:
    }
}

// Submit queues task. It returns false when the runner is closed or full.
func (r *Runner) Submit(task ports.Task) bool {
    r.mu.RLock()
    defer r.mu.RUnlock()
    if r.closed { return false }
    select {
    case r.tasks <- task:
        return true
    default:
        r.log.WithField("task", task.Name).Warn("background queue full, task dropped")
        return false
    }
}

// Close stops accepting tasks, waits for queued ones to finish and closes the
// error channel.
func (r *Runner) Close() {
    r.mu.Lock()
    if r.closed {
        r.mu.Unlock()
        return
    }
    r.closed = true
    close(r.tasks)
    started := r.started
    r.mu.Unlock()

    if started {
        r.wg.Wait()
    }
    close(r.errs)
}
