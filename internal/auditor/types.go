package auditor

import (
	"github.com/temirov/repoaudit/internal/checklist"
	"github.com/temirov/repoaudit/internal/prmetrics"
	"github.com/temirov/repoaudit/internal/scoring"
)

// AuditRecord is the consolidated result for one repository in one run. It is
// assembled once by the orchestrator and never mutated afterwards.
type AuditRecord struct {
	Repository   string
	Checks       checklist.Result
	Metrics      prmetrics.Metrics
	Score        int
	MaximumScore int
	Threshold    int
	Verdict      scoring.Verdict

	// Failed marks records for repositories whose foundational provider
	// calls did not succeed; FailureMessage carries the cause.
	Failed         bool
	FailureMessage string
}
