package prmetrics

import (
	"time"

	"github.com/temirov/repoaudit/internal/githubapi"
)

// PullRequestData bundles one merged pull request with its fetched reviews,
// comments, and size detail. Reviews are fetched once and shared by every
// statistic that needs them. HasReviews distinguishes a successful fetch that
// returned no reviews from a fetch that failed.
type PullRequestData struct {
	Number        int
	Author        string
	CreatedAt     *time.Time
	ClosedAt      *time.Time
	MergedAt      *time.Time
	Additions     int
	Deletions     int
	ChangedFiles  int
	HasSizeDetail bool
	HasReviews    bool
	Reviews       []githubapi.Review
	Comments      []githubapi.Comment
}

// DurationMetrics reports the average open-to-close duration of merged pull
// requests. The average is nil when no pull request carries both timestamps.
type DurationMetrics struct {
	AverageDurationDays    *float64 `json:"average_duration_days"`
	MergedPullRequestCount int      `json:"merged_pull_request_count"`
}

// LeadTimeMetrics reports the average creation-to-merge lead time.
type LeadTimeMetrics struct {
	AverageLeadTimeDays    *float64 `json:"average_lead_time_days"`
	MergedPullRequestCount int      `json:"merged_pull_request_count"`
}

// ReviewCycleMetrics reports review volume and first-approval latency.
type ReviewCycleMetrics struct {
	AverageTimeToFirstApprovalHours *float64 `json:"average_time_to_first_approval_hours"`
	AverageReviewsPerPullRequest    *float64 `json:"average_reviews_per_pull_request"`
	AverageApprovalsPerPullRequest  *float64 `json:"average_approvals_per_pull_request"`
	MergedPullRequestCount          int      `json:"merged_pull_request_count"`
}

// ReviewerLoadBalanceMetrics reports how concentrated review work is.
type ReviewerLoadBalanceMetrics struct {
	TopReviewerSharePercent       *float64 `json:"top_reviewer_share_percent"`
	TopThreeReviewersSharePercent *float64 `json:"top_three_reviewers_share_percent"`
	TotalReviews                  int      `json:"total_reviews"`
	UniqueReviewers               int      `json:"unique_reviewers"`
}

// FirstResponseMetrics reports the average latency until a non-author review
// or comment.
type FirstResponseMetrics struct {
	AverageTimeToFirstResponseHours *float64 `json:"average_time_to_first_response_hours"`
	MergedPullRequestCount          int      `json:"merged_pull_request_count"`
}

// SizeIndicatorMetrics reports medians and means of pull request size fields.
type SizeIndicatorMetrics struct {
	MedianAdditions        *float64 `json:"median_additions"`
	MedianDeletions        *float64 `json:"median_deletions"`
	MedianChangedFiles     *float64 `json:"median_changed_files"`
	AverageAdditions       *float64 `json:"average_additions"`
	AverageDeletions       *float64 `json:"average_deletions"`
	AverageChangedFiles    *float64 `json:"average_changed_files"`
	MergedPullRequestCount int      `json:"merged_pull_request_count"`
}

// Metrics aggregates every pull request statistic computed for a repository.
type Metrics struct {
	Duration      DurationMetrics            `json:"duration"`
	LeadTime      LeadTimeMetrics            `json:"lead_time"`
	ReviewCycle   ReviewCycleMetrics         `json:"review_cycle"`
	LoadBalance   ReviewerLoadBalanceMetrics `json:"reviewer_load_balance"`
	FirstResponse FirstResponseMetrics       `json:"first_response"`
	Size          SizeIndicatorMetrics       `json:"size_indicators"`

	MergedPullRequestCount int `json:"merged_pull_request_count"`
}
