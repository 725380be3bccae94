package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

var (
	_ TaskSchedulerInterface = (*Scheduler)(nil)
	_ RunTrigger             = (*Scheduler)(nil)
)

const taskQueueSize = 10

// Scheduler runs a cycle at start and then once per interval. A single
// worker executes queued tasks, so cycles never overlap.
type Scheduler struct {
	orchestrator *Orchestrator
	interval     time.Duration
	logger       *slog.Logger
	ctx          context.Context
	cancel       context.CancelFunc
	wg           sync.WaitGroup
	taskQueue    chan TaskInterface

	// queued or running tasks
	pending atomic.Int32
}

func NewScheduler(orchestrator *Orchestrator, interval time.Duration, logger *slog.Logger) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	if logger == nil {
		logger = slog.Default()
	}

	return &Scheduler{
		orchestrator: orchestrator,
		interval:     interval,
		logger:       logger,
		ctx:          ctx,
		cancel:       cancel,
		taskQueue:    make(chan TaskInterface, taskQueueSize),
	}
}

func (s *Scheduler) Start() {
	s.wg.Add(1)
	go s.worker()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.enqueueRun("startup")

		for {
			select {
			case <-s.ctx.Done():
				return
			case <-ticker.C:
				if n := s.pending.Load(); n > 0 {
					s.logger.Info("Previous cycle still pending, skipping interval run", "pending", n)
					continue
				}
				s.enqueueRun("interval")
			}
		}
	}()

	s.logger.Info("Scheduler started", "interval", s.interval.String())
}

// Stop cancels the running cycle, if any, and waits for the worker.
func (s *Scheduler) Stop() {
	s.cancel()
	s.wg.Wait()
	close(s.taskQueue)
}

func (s *Scheduler) EnqueueTask(task TaskInterface) error {
	select {
	case <-s.ctx.Done():
		return s.ctx.Err()
	default:
	}

	s.pending.Add(1)
	select {
	case s.taskQueue <- task:
		return nil
	default:
		s.pending.Add(-1)
		return fmt.Errorf("task queue is full")
	}
}

// EnqueueRun queues an extra cycle and returns its run ID.
func (s *Scheduler) EnqueueRun() (string, error) {
	task := NewRunCycleTask(s.orchestrator)
	if err := s.EnqueueTask(task); err != nil {
		return "", err
	}
	return task.GetID(), nil
}

func (s *Scheduler) LastSummary() *CycleSummary {
	return s.orchestrator.LastSummary()
}

func (s *Scheduler) enqueueRun(trigger string) {
	id, err := s.EnqueueRun()
	if err != nil {
		s.logger.Warn("Failed to enqueue RunCycleTask", "trigger", trigger, "error", err)
		return
	}
	s.logger.Debug("RunCycleTask enqueued", "trigger", trigger, "run_id", id)
}

func (s *Scheduler) worker() {
	defer s.wg.Done()

	for {
		select {
		case <-s.ctx.Done():
			return
		case task, ok := <-s.taskQueue:
			if !ok {
				return
			}
			s.executeTask(task)
		}
	}
}

// executeTask logs a failed cycle and moves on; the next interval retries
// naturally.
func (s *Scheduler) executeTask(task TaskInterface) {
	defer s.pending.Add(-1)
	task.Start()

	if err := task.Execute(s.ctx); err != nil {
		s.logger.Error("Task execution failed",
			"type", string(task.GetType()),
			"id", task.GetID(),
			"duration", task.GetDuration(),
			"error", err)
	}
}
