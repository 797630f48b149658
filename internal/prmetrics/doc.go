// Package prmetrics fetches merged pull requests with their reviews and
// comments, then derives process statistics: duration, lead time, review
// cycle, reviewer load balance, first-response latency, and size indicators.
// The fetch boundary (Collector) and the pure computations are kept separate
// so each statistic is independently testable.
package prmetrics
