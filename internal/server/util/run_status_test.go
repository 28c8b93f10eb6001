package util

import (
	"testing"

	"github.com/OFFIS-RIT/castnet/pkg/pipeline"
)

func TestRunStatusFromStage(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		stage    pipeline.Stage
		hasStage bool
		want     RunStatus
	}{
		{
			name:     "no_stage_returns_queued",
			stage:    "",
			hasStage: false,
			want:     RunStatusQueued,
		},
		{
			name:     "complete_maps_to_completed",
			stage:    pipeline.StageComplete,
			hasStage: true,
			want:     RunStatusCompleted,
		},
		{
			name:     "cancelled_maps_to_cancelled",
			stage:    pipeline.StageCancelled,
			hasStage: true,
			want:     RunStatusCancelled,
		},
		{
			name:     "failed_maps_to_failed",
			stage:    pipeline.StageFailed,
			hasStage: true,
			want:     RunStatusFailed,
		},
		{
			name:     "segmenting_maps_to_running",
			stage:    pipeline.StageSegmenting,
			hasStage: true,
			want:     RunStatusRunning,
		},
		{
			name:     "computing_metrics_maps_to_running",
			stage:    pipeline.StageComputingMetrics,
			hasStage: true,
			want:     RunStatusRunning,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := RunStatusFromStage(tt.stage, tt.hasStage)
			if got != tt.want {
				t.Fatalf("RunStatusFromStage(%q, %v) = %q, want %q", tt.stage, tt.hasStage, got, tt.want)
			}
		})
	}
}

func TestRunStatusFinished(t *testing.T) {
	t.Parallel()

	for status, want := range map[RunStatus]bool{
		RunStatusQueued:    false,
		RunStatusRunning:   false,
		RunStatusCompleted: true,
		RunStatusCancelled: true,
		RunStatusFailed:    true,
	} {
		if got := status.Finished(); got != want {
			t.Fatalf("%q.Finished() = %v, want %v", status, got, want)
		}
	}
}
