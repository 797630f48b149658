package prmetrics

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/temirov/repoaudit/internal/githubapi"
)

const (
	detailFetchFailedMessageConstant   = "pull request detail unavailable, size fields skipped"
	reviewsFetchFailedMessageConstant  = "pull request reviews unavailable"
	commentsFetchFailedMessageConstant = "pull request comments unavailable"
	logFieldRepositoryConstant         = "repository"
	logFieldPullRequestNumberConstant  = "pull_request_number"
	hoursPerDayCollectorConstant       = 24
)

// PullRequestProvider supplies the paginated pull request data consumed by
// the aggregator.
type PullRequestProvider interface {
	ListClosedPullRequests(executionContext context.Context, organization string, repository string) ([]githubapi.PullRequest, error)
	GetPullRequestDetail(executionContext context.Context, organization string, repository string, number int) (githubapi.PullRequestDetail, error)
	ListReviews(executionContext context.Context, organization string, repository string, number int) ([]githubapi.Review, error)
	ListComments(executionContext context.Context, organization string, repository string, number int) ([]githubapi.Comment, error)
}

// Collector fetches merged pull requests and their nested data, keeping the
// fetch boundary separate from the pure statistic computations.
type Collector struct {
	provider PullRequestProvider
	logger   *zap.Logger
}

// NewCollector constructs a collector around the provider.
func NewCollector(provider PullRequestProvider, logger *zap.Logger) *Collector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Collector{provider: provider, logger: logger}
}

// Collect retrieves closed pull requests, retains merged ones inside the
// recency window, and attaches per-PR detail, reviews, and comments. The
// window boundary is evaluated once from referenceTime, not per pull request.
// A failing pull request listing is foundational and aborts collection;
// nested fetch failures degrade to the affected pull request only.
func (collector *Collector) Collect(executionContext context.Context, organization string, repository string, recencyWindowDays int, referenceTime time.Time) ([]PullRequestData, error) {
	closedPullRequests, listingError := collector.provider.ListClosedPullRequests(executionContext, organization, repository)
	if listingError != nil {
		return nil, listingError
	}

	var windowStart *time.Time
	if recencyWindowDays > 0 {
		boundary := referenceTime.Add(-time.Duration(recencyWindowDays) * hoursPerDayCollectorConstant * time.Hour)
		windowStart = &boundary
	}

	var collected []PullRequestData
	for _, pullRequest := range closedPullRequests {
		if pullRequest.MergedAt == nil {
			continue
		}
		if windowStart != nil && pullRequest.MergedAt.Before(*windowStart) {
			continue
		}

		data := PullRequestData{
			Number:    pullRequest.Number,
			Author:    pullRequest.Author,
			CreatedAt: pullRequest.CreatedAt,
			ClosedAt:  pullRequest.ClosedAt,
			MergedAt:  pullRequest.MergedAt,
		}

		detail, detailError := collector.provider.GetPullRequestDetail(executionContext, organization, repository, pullRequest.Number)
		if detailError != nil {
			collector.logger.Warn(
				detailFetchFailedMessageConstant,
				zap.String(logFieldRepositoryConstant, repository),
				zap.Int(logFieldPullRequestNumberConstant, pullRequest.Number),
				zap.Error(detailError),
			)
		} else {
			data.Additions = detail.Additions
			data.Deletions = detail.Deletions
			data.ChangedFiles = detail.ChangedFiles
			data.HasSizeDetail = true
		}

		reviews, reviewsError := collector.provider.ListReviews(executionContext, organization, repository, pullRequest.Number)
		if reviewsError != nil {
			collector.logger.Warn(
				reviewsFetchFailedMessageConstant,
				zap.String(logFieldRepositoryConstant, repository),
				zap.Int(logFieldPullRequestNumberConstant, pullRequest.Number),
				zap.Error(reviewsError),
			)
		} else {
			data.Reviews = reviews
			data.HasReviews = true
		}

		comments, commentsError := collector.provider.ListComments(executionContext, organization, repository, pullRequest.Number)
		if commentsError != nil {
			collector.logger.Warn(
				commentsFetchFailedMessageConstant,
				zap.String(logFieldRepositoryConstant, repository),
				zap.Int(logFieldPullRequestNumberConstant, pullRequest.Number),
				zap.Error(commentsError),
			)
		} else {
			data.Comments = comments
		}

		collected = append(collected, data)
	}

	return collected, nil
}

// Aggregator drives collection and computes every statistic for a repository.
type Aggregator struct {
	collector *Collector
}

// NewAggregator constructs an aggregator around the provider.
func NewAggregator(provider PullRequestProvider, logger *zap.Logger) *Aggregator {
	return &Aggregator{collector: NewCollector(provider, logger)}
}

// Audit collects merged pull request data and computes all seven statistical
// views over it.
func (aggregator *Aggregator) Audit(executionContext context.Context, organization string, repository string, recencyWindowDays int, referenceTime time.Time) (Metrics, error) {
	pullRequests, collectionError := aggregator.collector.Collect(executionContext, organization, repository, recencyWindowDays, referenceTime)
	if collectionError != nil {
		return Metrics{}, collectionError
	}
	return ComputeMetrics(pullRequests), nil
}
