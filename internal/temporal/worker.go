package temporal

import (
	"context"
	"fmt"
	"sync"

	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
)

// WorkerConfig contains configuration for a Temporal worker.
type WorkerConfig struct {
	// TaskQueue is the task queue this worker polls.
	TaskQueue string

	// MaxConcurrentActivities limits concurrent activity executions.
	MaxConcurrentActivities int

	// MaxConcurrentWorkflows limits concurrent workflow task executions.
	MaxConcurrentWorkflows int

	// MaxConcurrentActivityPollers is the number of activity task pollers.
	MaxConcurrentActivityPollers int

	// MaxConcurrentWorkflowPollers is the number of workflow task pollers.
	MaxConcurrentWorkflowPollers int
}

// DefaultWorkerConfig returns a WorkerConfig with sensible defaults.
func DefaultWorkerConfig(taskQueue string) WorkerConfig {
	return WorkerConfig{
		TaskQueue:                    taskQueue,
		MaxConcurrentActivities:      100,
		MaxConcurrentWorkflows:       50,
		MaxConcurrentActivityPollers: 4,
		MaxConcurrentWorkflowPollers: 2,
	}
}

// workerOptionsFromConfig converts WorkerConfig to worker.Options,
// filling in defaults for any zero values.
func workerOptionsFromConfig(cfg WorkerConfig) worker.Options {
	opts := worker.Options{}

	if cfg.MaxConcurrentActivities > 0 {
		opts.MaxConcurrentActivityExecutionSize = cfg.MaxConcurrentActivities
	}
	if cfg.MaxConcurrentWorkflows > 0 {
		opts.MaxConcurrentWorkflowTaskExecutionSize = cfg.MaxConcurrentWorkflows
	}
	if cfg.MaxConcurrentActivityPollers > 0 {
		opts.MaxConcurrentActivityTaskPollers = cfg.MaxConcurrentActivityPollers
	}
	if cfg.MaxConcurrentWorkflowPollers > 0 {
		opts.MaxConcurrentWorkflowTaskPollers = cfg.MaxConcurrentWorkflowPollers
	}

	return opts
}

// Registration binds workflow and activity implementations to a worker.
// Workflows are registered by function, activities by struct pointer
// (all exported methods become activities).
type Registration struct {
	// Workflows are workflow functions to register.
	Workflows []interface{}

	// Activities are activity structs (or functions) to register.
	Activities []interface{}
}

// WorkerManager wraps a Temporal worker with lifecycle management.
type WorkerManager struct {
	worker    worker.Worker
	taskQueue string

	mu      sync.Mutex
	started bool
	stopped bool
}

// NewWorker creates a worker polling the configured task queue and registers
// the given workflows and activities on it. The worker is not started.
func NewWorker(c client.Client, cfg WorkerConfig, reg Registration) (*WorkerManager, error) {
	if c == nil {
		return nil, fmt.Errorf("temporal client is required")
	}
	if cfg.TaskQueue == "" {
		return nil, fmt.Errorf("task queue is required")
	}

	w := worker.New(c, cfg.TaskQueue, workerOptionsFromConfig(cfg))

	for _, wf := range reg.Workflows {
		w.RegisterWorkflow(wf)
	}
	for _, act := range reg.Activities {
		w.RegisterActivity(act)
	}

	return &WorkerManager{
		worker:    w,
		taskQueue: cfg.TaskQueue,
	}, nil
}

// TaskQueue returns the task queue this worker polls.
func (m *WorkerManager) TaskQueue() string {
	return m.taskQueue
}

// Run starts the worker and blocks until the context is cancelled or the
// worker fails. It returns nil on graceful shutdown.
func (m *WorkerManager) Run(ctx context.Context) error {
	m.mu.Lock()
	if m.started {
		m.mu.Unlock()
		return fmt.Errorf("worker already started")
	}
	if m.stopped {
		m.mu.Unlock()
		return fmt.Errorf("worker already stopped")
	}
	m.started = true
	m.mu.Unlock()

	errCh := make(chan error, 1)
	go func() {
		errCh <- m.worker.Run(worker.InterruptCh())
	}()

	select {
	case <-ctx.Done():
		m.Stop()
		return nil
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("worker run: %w", err)
		}
		return nil
	}
}

// Start starts the worker without blocking. Use Stop to shut it down.
func (m *WorkerManager) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.started {
		return fmt.Errorf("worker already started")
	}
	if m.stopped {
		return fmt.Errorf("worker already stopped")
	}

	if err := m.worker.Start(); err != nil {
		return fmt.Errorf("start worker: %w", err)
	}
	m.started = true
	return nil
}

// Stop shuts down the worker. It is safe to call multiple times.
func (m *WorkerManager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.stopped {
		return
	}
	m.worker.Stop()
	m.stopped = true
}
