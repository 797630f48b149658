// Package checklist defines the closed set of compliance checks together with
// their human-readable descriptions, failure messages, and candidate file
// names. The registry is pure data; evaluation lives in internal/compliance.
package checklist
