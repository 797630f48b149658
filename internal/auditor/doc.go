// Package auditor orchestrates compliance evaluation, scoring, and pull
// request metrics across a batch of repositories, isolating per-repository
// failures so one broken repository never aborts the run. It also exposes the
// audit cobra command.
package auditor
