package temporal

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultWorkerConfig(t *testing.T) {
	cfg := DefaultWorkerConfig("petition-tasks")

	assert.Equal(t, "petition-tasks", cfg.TaskQueue)
	assert.Equal(t, 100, cfg.MaxConcurrentActivities)
	assert.Equal(t, 50, cfg.MaxConcurrentWorkflows)
	assert.Equal(t, 4, cfg.MaxConcurrentActivityPollers)
	assert.Equal(t, 2, cfg.MaxConcurrentWorkflowPollers)
}

func TestWorkerOptionsFromConfig(t *testing.T) {
	t.Run("all set", func(t *testing.T) {
		cfg := WorkerConfig{
			TaskQueue:                    "q",
			MaxConcurrentActivities:      10,
			MaxConcurrentWorkflows:       5,
			MaxConcurrentActivityPollers: 3,
			MaxConcurrentWorkflowPollers: 1,
		}

		opts := workerOptionsFromConfig(cfg)

		assert.Equal(t, 10, opts.MaxConcurrentActivityExecutionSize)
		assert.Equal(t, 5, opts.MaxConcurrentWorkflowTaskExecutionSize)
		assert.Equal(t, 3, opts.MaxConcurrentActivityTaskPollers)
		assert.Equal(t, 1, opts.MaxConcurrentWorkflowTaskPollers)
	})

	t.Run("zero values left to SDK defaults", func(t *testing.T) {
		opts := workerOptionsFromConfig(WorkerConfig{TaskQueue: "q"})

		assert.Zero(t, opts.MaxConcurrentActivityExecutionSize)
		assert.Zero(t, opts.MaxConcurrentWorkflowTaskExecutionSize)
		assert.Zero(t, opts.MaxConcurrentActivityTaskPollers)
		assert.Zero(t, opts.MaxConcurrentWorkflowTaskPollers)
	})
}

func TestNewWorker_Validation(t *testing.T) {
	t.Run("nil client", func(t *testing.T) {
		_, err := NewWorker(nil, DefaultWorkerConfig("q"), Registration{})
		assert.ErrorContains(t, err, "client is required")
	})

	t.Run("empty task queue", func(t *testing.T) {
		_, err := NewWorker(nil, DefaultWorkerConfig(""), Registration{})
		assert.Error(t, err)
	})
}
