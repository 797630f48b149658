// Package scoring converts checklist results into a weighted compliance score
// and a pass/fail verdict against a configured threshold.
package scoring
