// Package pipeline defines the build pipeline's stage machine and the
// persisted state record that flows through it.
package pipeline

// Stage is one step of the build pipeline. Stages form a fixed total order;
// comparisons always go through the order table, never through string values.
type Stage string

const (
	StageIdle            Stage = "IDLE"
	StageAnalyzing       Stage = "ANALYZING"
	StageUIGeneration    Stage = "UI_GENERATION"
	StageUIReview        Stage = "UI_REVIEW"
	StageCodeGeneration  Stage = "CODE_GENERATION"
	StageBackendSetup    Stage = "BACKEND_SETUP"
	StageSecuritySetup   Stage = "SECURITY_SETUP"
	StageMonitoringSetup Stage = "MONITORING_SETUP"
	StageComplete        Stage = "COMPLETE"
	StageFailed          Stage = "FAILED"
)

// StageOrder is the canonical progression used for index and progress
// computation. FAILED is reachable from any non-terminal stage and is
// deliberately absent; resuming from it restarts the pipeline.
var StageOrder = []Stage{
	StageIdle,
	StageAnalyzing,
	StageUIGeneration,
	StageUIReview,
	StageCodeGeneration,
	StageBackendSetup,
	StageSecuritySetup,
	StageMonitoringSetup,
	StageComplete,
}

// RunOrder lists the stages driven automatically by the orchestrator.
// UI_REVIEW sits in StageOrder for progress computation but is a
// human-approval gate, so it never appears here.
var RunOrder = []Stage{
	StageAnalyzing,
	StageUIGeneration,
	StageCodeGeneration,
	StageBackendSetup,
	StageSecuritySetup,
	StageMonitoringSetup,
}

// StageIndex returns the position of a stage in the canonical order,
// or -1 for FAILED and unrecognized values.
func StageIndex(s Stage) int {
	for i, st := range StageOrder {
		if st == s {
			return i
		}
	}
	return -1
}

// StageProgress maps a stage to a display percentage (0-100). The value is
// monotonic along the canonical order; unknown stages yield 0.
func StageProgress(s Stage) int {
	idx := StageIndex(s)
	if idx < 0 {
		return 0
	}
	return int(float64(idx)/float64(len(StageOrder)-1)*100 + 0.5)
}

// IsTerminal reports whether no further automatic progression happens from s
func IsTerminal(s Stage) bool {
	return s == StageComplete || s == StageFailed
}
