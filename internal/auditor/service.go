package auditor

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/temirov/repoaudit/internal/compliance"
	"github.com/temirov/repoaudit/internal/prmetrics"
	"github.com/temirov/repoaudit/internal/scoring"
)

const (
	organizationRequiredMessageConstant   = "organization cannot be blank"
	auditStartedMessageConstant           = "auditing repository"
	auditCompletedMessageConstant         = "audit complete"
	repositoryAuditFailedMessageConstant  = "repository audit failed, continuing batch"
	repositoriesResolvedMessageConstant   = "resolved repositories for audit"
	logFieldOrganizationConstant          = "organization"
	logFieldRepositoryConstant            = "repository"
	logFieldRepositoryCountConstant       = "repository_count"
	logFieldScoreConstant                 = "score"
	logFieldMaximumScoreConstant          = "maximum_score"
	logFieldVerdictConstant               = "verdict"
	logFieldMergedPullRequestsConstant    = "merged_pull_requests"
	repositoryAllowlistEntrySkippedDebugC = "blank repository allowlist entry skipped"
)

// ErrOrganizationRequired rejects runs configured without an organization.
var ErrOrganizationRequired = errors.New(organizationRequiredMessageConstant)

// ServiceConfig captures the policies applied to a whole audit run.
type ServiceConfig struct {
	Evaluator         compliance.EvaluatorConfig
	Weights           scoring.RuleWeights
	RecencyWindowDays int
}

// Service drives one audit pass across a set of repositories.
type Service struct {
	provider          RepositoryDataProvider
	evaluator         *compliance.Evaluator
	aggregator        *prmetrics.Aggregator
	weights           scoring.RuleWeights
	recencyWindowDays int
	logger            *zap.Logger
	clock             compliance.Clock
}

// NewService constructs a Service from the provider and run policies.
func NewService(provider RepositoryDataProvider, configuration ServiceConfig, logger *zap.Logger, clock compliance.Clock) (*Service, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if clock == nil {
		clock = compliance.SystemClock{}
	}

	evaluator, evaluatorError := compliance.NewEvaluator(provider, configuration.Evaluator, logger, clock)
	if evaluatorError != nil {
		return nil, evaluatorError
	}

	return &Service{
		provider:          provider,
		evaluator:         evaluator,
		aggregator:        prmetrics.NewAggregator(provider, logger),
		weights:           configuration.Weights.Sanitize(),
		recencyWindowDays: configuration.RecencyWindowDays,
		logger:            logger,
		clock:             clock,
	}, nil
}

// Run audits every resolved repository and returns one record per repository
// in resolution order. A failure auditing one repository is recorded and the
// batch continues; only repository resolution itself is fatal.
func (service *Service) Run(executionContext context.Context, organization string, repositories []string) ([]AuditRecord, error) {
	if len(strings.TrimSpace(organization)) == 0 {
		return nil, ErrOrganizationRequired
	}

	resolvedRepositories, resolutionError := service.resolveRepositories(executionContext, organization, repositories)
	if resolutionError != nil {
		return nil, resolutionError
	}

	service.logger.Info(
		repositoriesResolvedMessageConstant,
		zap.String(logFieldOrganizationConstant, organization),
		zap.Int(logFieldRepositoryCountConstant, len(resolvedRepositories)),
	)

	// The recency boundary is fixed once per run so every repository is
	// filtered against the same instant.
	referenceTime := service.clock.Now()

	records := make([]AuditRecord, 0, len(resolvedRepositories))
	for _, repository := range resolvedRepositories {
		service.logger.Info(
			auditStartedMessageConstant,
			zap.String(logFieldOrganizationConstant, organization),
			zap.String(logFieldRepositoryConstant, repository),
		)

		record := service.auditRepository(executionContext, organization, repository, referenceTime)
		records = append(records, record)

		if record.Failed {
			service.logger.Warn(
				repositoryAuditFailedMessageConstant,
				zap.String(logFieldRepositoryConstant, repository),
				zap.String(logFieldVerdictConstant, string(record.Verdict)),
			)
			continue
		}

		service.logger.Info(
			auditCompletedMessageConstant,
			zap.String(logFieldRepositoryConstant, repository),
			zap.Int(logFieldScoreConstant, record.Score),
			zap.Int(logFieldMaximumScoreConstant, record.MaximumScore),
			zap.String(logFieldVerdictConstant, string(record.Verdict)),
			zap.Int(logFieldMergedPullRequestsConstant, record.Metrics.MergedPullRequestCount),
		)
	}

	return records, nil
}

func (service *Service) resolveRepositories(executionContext context.Context, organization string, repositories []string) ([]string, error) {
	var sanitized []string
	for _, repository := range repositories {
		trimmed := strings.TrimSpace(repository)
		if len(trimmed) == 0 {
			service.logger.Debug(repositoryAllowlistEntrySkippedDebugC)
			continue
		}
		sanitized = append(sanitized, trimmed)
	}
	if len(sanitized) > 0 {
		return sanitized, nil
	}
	return service.provider.ListOrganizationRepositories(executionContext, organization)
}

func (service *Service) auditRepository(executionContext context.Context, organization string, repository string, referenceTime time.Time) AuditRecord {
	record := AuditRecord{
		Repository:   repository,
		MaximumScore: service.weights.MaximumScore(),
		Threshold:    service.weights.Threshold,
		Verdict:      scoring.VerdictFail,
	}

	checkResults, evaluationError := service.evaluator.Evaluate(executionContext, organization, repository)
	if evaluationError != nil {
		record.Failed = true
		record.FailureMessage = evaluationError.Error()
		return record
	}
	record.Checks = checkResults
	record.Score = scoring.CalculateScore(checkResults, service.weights, service.logger)
	record.Verdict = scoring.DetermineVerdict(record.Score, service.weights.Threshold)

	metrics, metricsError := service.aggregator.Audit(executionContext, organization, repository, service.recencyWindowDays, referenceTime)
	if metricsError != nil {
		record.Failed = true
		record.FailureMessage = metricsError.Error()
		return record
	}
	record.Metrics = metrics

	return record
}
