package ports

import "context"

// Task is a unit of fire-and-forget work run off the request path.
type Task struct {
    Name string
    Run  func(ctx context.Context) error
}

// TaskQueue accepts background tasks. Submit never blocks; it reports false
// when the task was dropped.
type TaskQueue interface {
    Submit(task Task) bool
}
