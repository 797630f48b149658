package prmetrics

import (
	"math"
	"sort"
	"time"

	"github.com/temirov/repoaudit/internal/githubapi"
)

const (
	secondsPerDayConstant    = 86400.0
	secondsPerHourConstant   = 3600.0
	topReviewerGroupConstant = 3
	percentFactorConstant    = 100.0
)

// ComputeMetrics derives every statistical view from already-collected pull
// request data. All computations are pure and order-independent.
func ComputeMetrics(pullRequests []PullRequestData) Metrics {
	return Metrics{
		Duration:               ComputeDurationMetrics(pullRequests),
		LeadTime:               ComputeLeadTimeMetrics(pullRequests),
		ReviewCycle:            ComputeReviewCycleMetrics(pullRequests),
		LoadBalance:            ComputeReviewerLoadBalance(pullRequests),
		FirstResponse:          ComputeFirstResponseMetrics(pullRequests),
		Size:                   ComputeSizeIndicators(pullRequests),
		MergedPullRequestCount: len(pullRequests),
	}
}

// ComputeDurationMetrics averages (closed - created) in days over merged pull
// requests carrying both timestamps. Pull requests missing either timestamp
// still count toward the merged total.
func ComputeDurationMetrics(pullRequests []PullRequestData) DurationMetrics {
	var durations []float64
	for _, pullRequest := range pullRequests {
		if pullRequest.CreatedAt == nil || pullRequest.ClosedAt == nil {
			continue
		}
		durations = append(durations, pullRequest.ClosedAt.Sub(*pullRequest.CreatedAt).Seconds()/secondsPerDayConstant)
	}
	return DurationMetrics{
		AverageDurationDays:    roundedAverage(durations),
		MergedPullRequestCount: len(pullRequests),
	}
}

// ComputeLeadTimeMetrics averages (merged - created) in days over merged pull
// requests carrying both timestamps.
func ComputeLeadTimeMetrics(pullRequests []PullRequestData) LeadTimeMetrics {
	var leadTimes []float64
	for _, pullRequest := range pullRequests {
		if pullRequest.CreatedAt == nil || pullRequest.MergedAt == nil {
			continue
		}
		leadTimes = append(leadTimes, pullRequest.MergedAt.Sub(*pullRequest.CreatedAt).Seconds()/secondsPerDayConstant)
	}
	return LeadTimeMetrics{
		AverageLeadTimeDays:    roundedAverage(leadTimes),
		MergedPullRequestCount: len(pullRequests),
	}
}

// resolveReviewTime returns a review's submission time, falling back to the
// parent pull request's creation time when the review lacks its own
// timestamp. The fallback is a best-effort approximation, not a drop.
func resolveReviewTime(review githubapi.Review, pullRequest PullRequestData) *time.Time {
	if review.SubmittedAt != nil {
		return review.SubmittedAt
	}
	return pullRequest.CreatedAt
}

// ComputeReviewCycleMetrics averages review and approval counts over merged
// pull requests whose review fetch succeeded (a zero count is a data point;
// a failed fetch excludes the pull request), and first-approval latency over
// pull requests with at least one approval resolvable to a time no earlier
// than creation.
func ComputeReviewCycleMetrics(pullRequests []PullRequestData) ReviewCycleMetrics {
	var reviewCounts []float64
	var approvalCounts []float64
	var firstApprovalHours []float64

	for _, pullRequest := range pullRequests {
		if !pullRequest.HasReviews {
			continue
		}
		reviewCounts = append(reviewCounts, float64(len(pullRequest.Reviews)))

		approvalCount := 0
		var earliestApproval *time.Time
		for _, review := range pullRequest.Reviews {
			if review.State != githubapi.ReviewStateApproved {
				continue
			}
			approvalCount++
			approvalTime := resolveReviewTime(review, pullRequest)
			if approvalTime == nil || pullRequest.CreatedAt == nil {
				continue
			}
			// Approvals timestamped before creation indicate clock skew
			// or backfilled data and do not qualify as first approval.
			if approvalTime.Before(*pullRequest.CreatedAt) {
				continue
			}
			if earliestApproval == nil || approvalTime.Before(*earliestApproval) {
				earliestApproval = approvalTime
			}
		}
		approvalCounts = append(approvalCounts, float64(approvalCount))

		if earliestApproval != nil {
			firstApprovalHours = append(firstApprovalHours, earliestApproval.Sub(*pullRequest.CreatedAt).Seconds()/secondsPerHourConstant)
		}
	}

	return ReviewCycleMetrics{
		AverageTimeToFirstApprovalHours: roundedAverage(firstApprovalHours),
		AverageReviewsPerPullRequest:    roundedAverage(reviewCounts),
		AverageApprovalsPerPullRequest:  roundedAverage(approvalCounts),
		MergedPullRequestCount:          len(pullRequests),
	}
}

// ComputeReviewerLoadBalance reports the share of total reviews held by the
// top reviewer and the top three reviewers combined.
func ComputeReviewerLoadBalance(pullRequests []PullRequestData) ReviewerLoadBalanceMetrics {
	reviewerCounts := map[string]int{}
	for _, pullRequest := range pullRequests {
		for _, review := range pullRequest.Reviews {
			if len(review.Author) == 0 {
				continue
			}
			reviewerCounts[review.Author]++
		}
	}

	totalReviews := 0
	for _, count := range reviewerCounts {
		totalReviews += count
	}
	if totalReviews == 0 {
		return ReviewerLoadBalanceMetrics{}
	}

	sortedCounts := make([]int, 0, len(reviewerCounts))
	for _, count := range reviewerCounts {
		sortedCounts = append(sortedCounts, count)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(sortedCounts)))

	topShare := roundTwo(float64(sortedCounts[0]) / float64(totalReviews) * percentFactorConstant)

	topGroupTotal := 0
	for index := 0; index < len(sortedCounts) && index < topReviewerGroupConstant; index++ {
		topGroupTotal += sortedCounts[index]
	}
	topGroupShare := roundTwo(float64(topGroupTotal) / float64(totalReviews) * percentFactorConstant)

	return ReviewerLoadBalanceMetrics{
		TopReviewerSharePercent:       &topShare,
		TopThreeReviewersSharePercent: &topGroupShare,
		TotalReviews:                  totalReviews,
		UniqueReviewers:               len(reviewerCounts),
	}
}

// ComputeFirstResponseMetrics averages, in hours, the latency until the
// earliest review or comment from someone other than the pull request author
// that falls after creation. A pull request whose only activity comes from
// its own author contributes nothing.
func ComputeFirstResponseMetrics(pullRequests []PullRequestData) FirstResponseMetrics {
	var responseHours []float64

	for _, pullRequest := range pullRequests {
		if pullRequest.CreatedAt == nil {
			continue
		}

		var firstResponse *time.Time
		consider := func(author string, moment *time.Time) {
			if moment == nil || author == pullRequest.Author {
				return
			}
			if !moment.After(*pullRequest.CreatedAt) {
				return
			}
			if firstResponse == nil || moment.Before(*firstResponse) {
				firstResponse = moment
			}
		}

		for _, review := range pullRequest.Reviews {
			consider(review.Author, resolveReviewTime(review, pullRequest))
		}
		for _, comment := range pullRequest.Comments {
			consider(comment.Author, comment.CreatedAt)
		}

		if firstResponse != nil {
			responseHours = append(responseHours, firstResponse.Sub(*pullRequest.CreatedAt).Seconds()/secondsPerHourConstant)
		}
	}

	return FirstResponseMetrics{
		AverageTimeToFirstResponseHours: roundedAverage(responseHours),
		MergedPullRequestCount:          len(pullRequests),
	}
}

// ComputeSizeIndicators reports interpolated medians and means of additions,
// deletions, and changed files over pull requests whose detail was fetched.
func ComputeSizeIndicators(pullRequests []PullRequestData) SizeIndicatorMetrics {
	var additions []float64
	var deletions []float64
	var changedFiles []float64

	for _, pullRequest := range pullRequests {
		if !pullRequest.HasSizeDetail {
			continue
		}
		additions = append(additions, float64(pullRequest.Additions))
		deletions = append(deletions, float64(pullRequest.Deletions))
		changedFiles = append(changedFiles, float64(pullRequest.ChangedFiles))
	}

	return SizeIndicatorMetrics{
		MedianAdditions:        roundedMedian(additions),
		MedianDeletions:        roundedMedian(deletions),
		MedianChangedFiles:     roundedMedian(changedFiles),
		AverageAdditions:       roundedAverage(additions),
		AverageDeletions:       roundedAverage(deletions),
		AverageChangedFiles:    roundedAverage(changedFiles),
		MergedPullRequestCount: len(pullRequests),
	}
}

// roundTwo rounds to two decimals only at the reporting boundary; upstream
// aggregation keeps full precision.
func roundTwo(value float64) float64 {
	return math.Round(value*100) / 100
}

func roundedAverage(values []float64) *float64 {
	if len(values) == 0 {
		return nil
	}
	total := 0.0
	for _, value := range values {
		total += value
	}
	average := roundTwo(total / float64(len(values)))
	return &average
}

func roundedMedian(values []float64) *float64 {
	if len(values) == 0 {
		return nil
	}
	sortedValues := append([]float64{}, values...)
	sort.Float64s(sortedValues)

	middle := len(sortedValues) / 2
	var median float64
	if len(sortedValues)%2 == 0 {
		median = (sortedValues[middle-1] + sortedValues[middle]) / 2
	} else {
		median = sortedValues[middle]
	}
	median = roundTwo(median)
	return &median
}
