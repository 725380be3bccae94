package tasks

// TaskSchedulerInterface defines the interface for task scheduling operations.
// Used by the main application to run collection cycles in the background.
// Example usage:
//
//	scheduler := NewScheduler(orchestrator, 72*time.Hour, logger)
//	scheduler.Start()
//	defer scheduler.Stop()
//	scheduler.EnqueueTask(NewRunCycleTask(orchestrator))
type TaskSchedulerInterface interface {
	Start()
	Stop()
	EnqueueTask(task TaskInterface) error
}

// RunTrigger queues an extra collection cycle on demand and reports the
// latest finished one.
type RunTrigger interface {
	EnqueueRun() (string, error)
	LastSummary() *CycleSummary
}
