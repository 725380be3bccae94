package tasks

import (
	"context"
	"fmt"
)

type RunCycleTask struct {
	Task
	orchestrator *Orchestrator
	Summary      *CycleSummary
}

func NewRunCycleTask(orchestrator *Orchestrator) *RunCycleTask {
	return &RunCycleTask{
		Task:         NewTask(TaskTypeRunCycle),
		orchestrator: orchestrator,
	}
}

func (t *RunCycleTask) Execute(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	summary, err := t.orchestrator.Run(ctx, t.ID)
	t.Summary = summary
	if err != nil {
		return fmt.Errorf("cycle %s failed: %w", t.ID, err)
	}

	failed := 0
	for _, a := range summary.Adapters {
		if !a.OK {
			failed++
		}
	}

	t.orchestrator.logger.Info("Task completed",
		"type", "RunCycle",
		"run_id", t.ID,
		"duration", t.GetDuration(),
		"sources", len(summary.Adapters),
		"failed_sources", failed,
		"fetched", summary.Fetched,
		"inserted", summary.Inserted,
		"skipped", summary.Skipped)

	return nil
}
