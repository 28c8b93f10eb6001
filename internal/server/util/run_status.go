package util

import "github.com/OFFIS-RIT/castnet/pkg/pipeline"

// RunStatus is the lifecycle state of a run as reported by the API.
type RunStatus string

const (
	RunStatusQueued    RunStatus = "queued"
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusCancelled RunStatus = "cancelled"
	RunStatusFailed    RunStatus = "failed"
)

// Finished reports whether no further updates will follow.
func (s RunStatus) Finished() bool {
	return s == RunStatusCompleted || s == RunStatusCancelled || s == RunStatusFailed
}

// RunStatusFromStage maps the last reported pipeline stage to a run status.
func RunStatusFromStage(stage pipeline.Stage, hasStage bool) RunStatus {
	if !hasStage {
		return RunStatusQueued
	}

	switch stage {
	case pipeline.StageComplete:
		return RunStatusCompleted
	case pipeline.StageCancelled:
		return RunStatusCancelled
	case pipeline.StageFailed:
		return RunStatusFailed
	default:
		return RunStatusRunning
	}
}
