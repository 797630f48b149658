// Package compliance maps raw repository facts onto the checklist: workflow
// content detection, repository settings, branch ruleset derivation,
// dependency-alert posture, and required-file probing.
package compliance
