package compliance

import (
	"context"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/temirov/repoaudit/internal/checklist"
	"github.com/temirov/repoaudit/internal/githubapi"
)

const (
	defaultApprovedWorkflowPatternConstant = `(?i)uses:\s*ed-fi-alliance-oss/ed-fi-actions/\.github/workflows/repository-scanner\.yml`
	unitTestPatternConstant                = `(?i)unit.{0,2}test(s)?`
	defaultAlertMaxAgeDaysConstant         = 21
	hoursPerDayConstant                    = 24
	workflowListingSkippedMessageConstant  = "workflow listing unavailable, skipping actions checks"
	workflowContentSkippedMessageConstant  = "workflow content unavailable, skipping file"
	dependabotProbeFailedMessageConstant   = "dependabot probe failed, treating as disabled"
	fileProbeFailedMessageConstant         = "file probe failed, treating candidate as absent"
	logFieldRepositoryConstant             = "repository"
	logFieldPathConstant                   = "path"
	logFieldErrorConstant                  = "error"
	rulesetEnforcementActiveConstant       = "ACTIVE"
	ruleTypeRequiredSignaturesConstant     = "REQUIRED_SIGNATURES"
	ruleTypePullRequestConstant            = "PULL_REQUEST"
	defaultBranchPatternConstant           = "~DEFAULT_BRANCH"
	allBranchesPatternConstant             = "~ALL"
	branchReferencePrefixConstant          = "refs/heads/"
)

var defaultAlertSeverities = []string{"CRITICAL", "HIGH"}

var testReporterMarkers = []string{
	"uses: dorny/test-reporter",
	"uses: EnricoMi/publish-unit-test-result-action",
}

// FactProvider supplies the raw repository facts consumed by the evaluator.
type FactProvider interface {
	ListWorkflows(executionContext context.Context, organization string, repository string) (githubapi.WorkflowInventory, error)
	GetFileContent(executionContext context.Context, organization string, repository string, path string) (string, bool, error)
	GetRepositoryMetadata(executionContext context.Context, organization string, repository string) (githubapi.RepositoryMetadata, error)
	IsDependabotEnabled(executionContext context.Context, organization string, repository string) (bool, error)
}

// Clock abstracts time-dependent functionality for deterministic testing.
type Clock interface {
	Now() time.Time
}

// SystemClock implements Clock using the standard library.
type SystemClock struct{}

// Now returns the current system time.
func (SystemClock) Now() time.Time {
	return time.Now()
}

// AlertPolicy configures which open vulnerability alerts count against a
// repository.
type AlertPolicy struct {
	MaxAgeDays         int
	IncludedSeverities []string
}

// DefaultAlertPolicy returns the baseline alert evaluation policy.
func DefaultAlertPolicy() AlertPolicy {
	return AlertPolicy{
		MaxAgeDays:         defaultAlertMaxAgeDaysConstant,
		IncludedSeverities: append([]string{}, defaultAlertSeverities...),
	}
}

// EvaluatorConfig captures the configurable evaluation policies.
type EvaluatorConfig struct {
	ApprovedWorkflowPattern  string
	Alerts                   AlertPolicy
	IssuesEnabledIsCompliant bool
}

// DefaultEvaluatorConfig returns baseline evaluator policies.
func DefaultEvaluatorConfig() EvaluatorConfig {
	return EvaluatorConfig{
		ApprovedWorkflowPattern:  defaultApprovedWorkflowPatternConstant,
		Alerts:                   DefaultAlertPolicy(),
		IssuesEnabledIsCompliant: true,
	}
}

// Evaluator turns provider facts about one repository into a checklist result.
type Evaluator struct {
	provider                 FactProvider
	logger                   *zap.Logger
	clock                    Clock
	approvedWorkflowPattern  *regexp.Regexp
	unitTestPattern          *regexp.Regexp
	alerts                   AlertPolicy
	issuesEnabledIsCompliant bool
}

// NewEvaluator constructs an evaluator from the provider and policies.
func NewEvaluator(provider FactProvider, configuration EvaluatorConfig, logger *zap.Logger, clock Clock) (*Evaluator, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if clock == nil {
		clock = SystemClock{}
	}

	approvedPatternSource := strings.TrimSpace(configuration.ApprovedWorkflowPattern)
	if len(approvedPatternSource) == 0 {
		approvedPatternSource = defaultApprovedWorkflowPatternConstant
	}
	approvedPattern, approvedPatternError := regexp.Compile(approvedPatternSource)
	if approvedPatternError != nil {
		return nil, approvedPatternError
	}

	alerts := configuration.Alerts
	if alerts.MaxAgeDays <= 0 {
		alerts.MaxAgeDays = defaultAlertMaxAgeDaysConstant
	}
	if len(alerts.IncludedSeverities) == 0 {
		alerts.IncludedSeverities = append([]string{}, defaultAlertSeverities...)
	}

	return &Evaluator{
		provider:                 provider,
		logger:                   logger,
		clock:                    clock,
		approvedWorkflowPattern:  approvedPattern,
		unitTestPattern:          regexp.MustCompile(unitTestPatternConstant),
		alerts:                   alerts,
		issuesEnabledIsCompliant: configuration.IssuesEnabledIsCompliant,
	}, nil
}

// Evaluate runs every compliance check against one repository. A metadata
// fetch failure aborts the evaluation; every other provider failure degrades
// to the affected checks only.
func (evaluator *Evaluator) Evaluate(executionContext context.Context, organization string, repository string) (checklist.Result, error) {
	metadata, metadataError := evaluator.provider.GetRepositoryMetadata(executionContext, organization, repository)
	if metadataError != nil {
		return nil, metadataError
	}

	results := checklist.Result{}
	evaluator.evaluateWorkflows(executionContext, organization, repository, results)
	evaluator.evaluateRepositorySettings(metadata, results)
	evaluator.evaluateBranchProtections(metadata, results)
	evaluator.evaluateAlerts(executionContext, organization, repository, metadata.VulnerabilityAlerts, results)
	evaluator.evaluateRequiredFiles(executionContext, organization, repository, results)
	return results, nil
}

// workflowDetectionState accumulates sticky-OR detector outcomes across
// workflow files: a detection never downgrades on later files.
type workflowDetectionState struct {
	examinedAnyFile bool
	approvedActions bool
	testReporter    bool
	unitTests       bool
}

func (state *workflowDetectionState) observe(evaluator *Evaluator, fileContent string) {
	state.examinedAnyFile = true
	if evaluator.approvedWorkflowPattern.MatchString(fileContent) {
		state.approvedActions = true
	}
	loweredContent := strings.ToLower(fileContent)
	for _, marker := range testReporterMarkers {
		if strings.Contains(loweredContent, strings.ToLower(marker)) {
			state.testReporter = true
		}
	}
	if evaluator.unitTestPattern.MatchString(fileContent) {
		state.unitTests = true
	}
}

func (evaluator *Evaluator) evaluateWorkflows(executionContext context.Context, organization string, repository string, results checklist.Result) {
	inventory, listingError := evaluator.provider.ListWorkflows(executionContext, organization, repository)
	if listingError != nil {
		evaluator.logger.Warn(
			workflowListingSkippedMessageConstant,
			zap.String(logFieldRepositoryConstant, repository),
			zap.Error(listingError),
		)
		return
	}

	results[checklist.CheckHasActions] = checklist.Message(checklist.CheckHasActions, inventory.TotalCount > 0)

	state := workflowDetectionState{}
	for _, workflow := range inventory.Workflows {
		fileContent, found, contentError := evaluator.provider.GetFileContent(executionContext, organization, repository, workflow.Path)
		if contentError != nil || !found {
			evaluator.logger.Debug(
				workflowContentSkippedMessageConstant,
				zap.String(logFieldRepositoryConstant, repository),
				zap.String(logFieldPathConstant, workflow.Path),
			)
			continue
		}
		state.observe(evaluator, fileContent)
	}

	// With zero readable workflow files the content-derived checks stay
	// absent from the result set rather than recording explicit failures.
	if !state.examinedAnyFile {
		return
	}
	results[checklist.CheckApprovedActions] = checklist.Message(checklist.CheckApprovedActions, state.approvedActions)
	results[checklist.CheckTestReporter] = checklist.Message(checklist.CheckTestReporter, state.testReporter)
	results[checklist.CheckUnitTests] = checklist.Message(checklist.CheckUnitTests, state.unitTests)
}

func (evaluator *Evaluator) evaluateRepositorySettings(metadata githubapi.RepositoryMetadata, results checklist.Result) {
	results[checklist.CheckWikiDisabled] = checklist.Message(checklist.CheckWikiDisabled, !metadata.HasWikiEnabled)
	results[checklist.CheckIssuesPolicy] = checklist.Message(checklist.CheckIssuesPolicy, metadata.HasIssuesEnabled == evaluator.issuesEnabledIsCompliant)
	results[checklist.CheckProjectsDisabled] = checklist.Message(checklist.CheckProjectsDisabled, !metadata.HasProjectsEnabled)
	results[checklist.CheckDiscussionsDisabled] = checklist.Message(checklist.CheckDiscussionsDisabled, metadata.DiscussionsCount == 0)
	results[checklist.CheckDeletesHeadBranch] = checklist.Message(checklist.CheckDeletesHeadBranch, metadata.DeleteBranchOnMerge)
	results[checklist.CheckUsesSquashMerge] = checklist.Message(checklist.CheckUsesSquashMerge, metadata.SquashMergeAllowed)
	results[checklist.CheckLicenseInformation] = checklist.Message(checklist.CheckLicenseInformation, metadata.HasLicense)
}

func rulesetAppliesToBranch(ruleset githubapi.Ruleset, defaultBranch string) bool {
	if !strings.EqualFold(ruleset.Enforcement, rulesetEnforcementActiveConstant) {
		return false
	}
	for _, pattern := range ruleset.IncludedReferencePatterns {
		switch {
		case pattern == defaultBranchPatternConstant, pattern == allBranchesPatternConstant:
			return true
		case pattern == branchReferencePrefixConstant+defaultBranch:
			return true
		case pattern == defaultBranch:
			return true
		}
	}
	return false
}

func (evaluator *Evaluator) evaluateBranchProtections(metadata githubapi.RepositoryMetadata, results checklist.Result) {
	requiresSignatures := false
	requiresPullRequest := false
	requiresCodeReview := false
	adminCanBypass := false
	anyApplicableRuleset := false

	for _, ruleset := range metadata.Rulesets {
		if !rulesetAppliesToBranch(ruleset, metadata.DefaultBranch) {
			continue
		}
		anyApplicableRuleset = true
		if ruleset.HasOrganizationAdminBypass {
			adminCanBypass = true
		}
		for _, ruleType := range ruleset.RuleTypes {
			switch ruleType {
			case ruleTypeRequiredSignaturesConstant:
				requiresSignatures = true
			case ruleTypePullRequestConstant:
				requiresPullRequest = true
				if ruleset.RequiredApprovingReviews > 0 {
					requiresCodeReview = true
				}
			}
		}
	}

	results[checklist.CheckSignedCommits] = checklist.Message(checklist.CheckSignedCommits, requiresSignatures)
	results[checklist.CheckPullRequestRequired] = checklist.Message(checklist.CheckPullRequestRequired, requiresPullRequest)
	results[checklist.CheckCodeReviewRequired] = checklist.Message(checklist.CheckCodeReviewRequired, requiresCodeReview)
	results[checklist.CheckAdminBypassRestricted] = checklist.Message(checklist.CheckAdminBypassRestricted, anyApplicableRuleset && !adminCanBypass)
}

func (evaluator *Evaluator) evaluateAlerts(executionContext context.Context, organization string, repository string, alerts []githubapi.VulnerabilityAlert, results checklist.Result) {
	dependabotEnabled, probeError := evaluator.provider.IsDependabotEnabled(executionContext, organization, repository)
	if probeError != nil {
		evaluator.logger.Warn(
			dependabotProbeFailedMessageConstant,
			zap.String(logFieldRepositoryConstant, repository),
			zap.Error(probeError),
		)
		dependabotEnabled = false
	}
	results[checklist.CheckDependabotEnabled] = checklist.Message(checklist.CheckDependabotEnabled, dependabotEnabled)

	results[checklist.CheckDependabotAlerts] = checklist.Message(
		checklist.CheckDependabotAlerts,
		evaluator.countStaleAlerts(alerts) == 0,
	)
}

// countStaleAlerts counts open alerts strictly older than the age threshold
// with an included severity. An alert exactly at the boundary is not counted.
func (evaluator *Evaluator) countStaleAlerts(alerts []githubapi.VulnerabilityAlert) int {
	ageBoundary := evaluator.clock.Now().Add(-time.Duration(evaluator.alerts.MaxAgeDays) * hoursPerDayConstant * time.Hour)

	staleCount := 0
	for _, alert := range alerts {
		if !alert.CreatedAt.Before(ageBoundary) {
			continue
		}
		for _, severity := range evaluator.alerts.IncludedSeverities {
			if strings.EqualFold(alert.Severity, severity) {
				staleCount++
				break
			}
		}
	}
	return staleCount
}

func (evaluator *Evaluator) evaluateRequiredFiles(executionContext context.Context, organization string, repository string, results checklist.Result) {
	for _, fileCheck := range checklist.RequiredFileChecks {
		definition := checklist.DefinitionFor(fileCheck)

		fileFound := false
		for _, candidateName := range definition.FileCandidates {
			_, found, probeError := evaluator.provider.GetFileContent(executionContext, organization, repository, candidateName)
			if probeError != nil {
				evaluator.logger.Debug(
					fileProbeFailedMessageConstant,
					zap.String(logFieldRepositoryConstant, repository),
					zap.String(logFieldPathConstant, candidateName),
					zap.Error(probeError),
				)
				continue
			}
			if found {
				fileFound = true
				break
			}
		}

		results[fileCheck] = checklist.Message(fileCheck, fileFound)
	}
}
