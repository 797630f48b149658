// Package report renders audit results as a colored summary table, CSV, or
// JSON. The renderable row type is deliberately independent of the
// orchestrator so callers convert into it at the boundary.
package report
