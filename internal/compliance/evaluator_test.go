package compliance_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/temirov/repoaudit/internal/checklist"
	"github.com/temirov/repoaudit/internal/compliance"
	"github.com/temirov/repoaudit/internal/githubapi"
)

const (
	testOrganizationConstant  = "example-org"
	testRepositoryConstant    = "example-repo"
	testDefaultBranchConstant = "main"

	workflowWithUnitTestsConstant = "jobs:\n  unit-tests:\n    steps:\n      - run: make test\n"
	workflowWithReporterConstant  = "steps:\n  - uses: dorny/test-reporter@v1\n"
	workflowPlainConstant         = "jobs:\n  build:\n    steps:\n      - run: make build\n"
)

type fixedClock struct {
	instant time.Time
}

func (clock fixedClock) Now() time.Time {
	return clock.instant
}

type stubFactProvider struct {
	metadata          githubapi.RepositoryMetadata
	metadataError     error
	inventory         githubapi.WorkflowInventory
	inventoryError    error
	fileContents      map[string]string
	fileErrors        map[string]error
	dependabotEnabled bool
	dependabotError   error
	fileProbeSequence []string
}

func (provider *stubFactProvider) ListWorkflows(executionContext context.Context, organization string, repository string) (githubapi.WorkflowInventory, error) {
	return provider.inventory, provider.inventoryError
}

func (provider *stubFactProvider) GetFileContent(executionContext context.Context, organization string, repository string, path string) (string, bool, error) {
	provider.fileProbeSequence = append(provider.fileProbeSequence, path)
	if probeError, failing := provider.fileErrors[path]; failing {
		return "", false, probeError
	}
	content, found := provider.fileContents[path]
	return content, found, nil
}

func (provider *stubFactProvider) GetRepositoryMetadata(executionContext context.Context, organization string, repository string) (githubapi.RepositoryMetadata, error) {
	return provider.metadata, provider.metadataError
}

func (provider *stubFactProvider) IsDependabotEnabled(executionContext context.Context, organization string, repository string) (bool, error) {
	return provider.dependabotEnabled, provider.dependabotError
}

func newEvaluatorForTest(testInstance *testing.T, provider compliance.FactProvider, configuration compliance.EvaluatorConfig, clock compliance.Clock) *compliance.Evaluator {
	testInstance.Helper()
	evaluator, evaluatorError := compliance.NewEvaluator(provider, configuration, nil, clock)
	require.NoError(testInstance, evaluatorError)
	return evaluator
}

func TestEvaluateFailsWhenMetadataUnavailable(testInstance *testing.T) {
	provider := &stubFactProvider{metadataError: errors.New("metadata unavailable")}
	evaluator := newEvaluatorForTest(testInstance, provider, compliance.DefaultEvaluatorConfig(), fixedClock{instant: time.Now()})

	results, evaluationError := evaluator.Evaluate(context.Background(), testOrganizationConstant, testRepositoryConstant)
	require.Error(testInstance, evaluationError)
	require.Nil(testInstance, results)
}

func TestEvaluateWorkflowChecks(testInstance *testing.T) {
	testCases := []struct {
		name            string
		inventory       githubapi.WorkflowInventory
		fileContents    map[string]string
		expectedPresent map[checklist.Check]bool
		expectedPassing map[checklist.Check]bool
	}{
		{
			name:      "no_workflows_leaves_content_checks_absent",
			inventory: githubapi.WorkflowInventory{},
			expectedPresent: map[checklist.Check]bool{
				checklist.CheckHasActions:      true,
				checklist.CheckApprovedActions: false,
				checklist.CheckTestReporter:    false,
				checklist.CheckUnitTests:       false,
			},
			expectedPassing: map[checklist.Check]bool{
				checklist.CheckHasActions: false,
			},
		},
		{
			name: "unreadable_workflow_files_leave_content_checks_absent",
			inventory: githubapi.WorkflowInventory{
				TotalCount: 1,
				Workflows:  []githubapi.Workflow{{Path: ".github/workflows/ci.yml"}},
			},
			fileContents: map[string]string{},
			expectedPresent: map[checklist.Check]bool{
				checklist.CheckHasActions:      true,
				checklist.CheckApprovedActions: false,
				checklist.CheckTestReporter:    false,
				checklist.CheckUnitTests:       false,
			},
			expectedPassing: map[checklist.Check]bool{
				checklist.CheckHasActions: true,
			},
		},
		{
			name: "detection_in_one_file_survives_later_files",
			inventory: githubapi.WorkflowInventory{
				TotalCount: 3,
				Workflows: []githubapi.Workflow{
					{Path: ".github/workflows/tests.yml"},
					{Path: ".github/workflows/reporter.yml"},
					{Path: ".github/workflows/build.yml"},
				},
			},
			fileContents: map[string]string{
				".github/workflows/tests.yml":    workflowWithUnitTestsConstant,
				".github/workflows/reporter.yml": workflowWithReporterConstant,
				".github/workflows/build.yml":    workflowPlainConstant,
			},
			expectedPresent: map[checklist.Check]bool{
				checklist.CheckHasActions:      true,
				checklist.CheckApprovedActions: true,
				checklist.CheckTestReporter:    true,
				checklist.CheckUnitTests:       true,
			},
			expectedPassing: map[checklist.Check]bool{
				checklist.CheckHasActions:      true,
				checklist.CheckApprovedActions: false,
				checklist.CheckTestReporter:    true,
				checklist.CheckUnitTests:       true,
			},
		},
	}

	for testCaseIndex, testCase := range testCases {
		testInstance.Run(fmt.Sprintf("%d_%s", testCaseIndex, testCase.name), func(subtestInstance *testing.T) {
			provider := &stubFactProvider{
				metadata:     githubapi.RepositoryMetadata{DefaultBranch: testDefaultBranchConstant},
				inventory:    testCase.inventory,
				fileContents: testCase.fileContents,
			}
			evaluator := newEvaluatorForTest(subtestInstance, provider, compliance.DefaultEvaluatorConfig(), fixedClock{instant: time.Now()})

			results, evaluationError := evaluator.Evaluate(context.Background(), testOrganizationConstant, testRepositoryConstant)
			require.NoError(subtestInstance, evaluationError)

			for check, expectedPresent := range testCase.expectedPresent {
				_, present := results[check]
				require.Equal(subtestInstance, expectedPresent, present, string(check))
			}
			for check, expectedPassing := range testCase.expectedPassing {
				passing := results[check] == checklist.DefaultSuccessMessage
				require.Equal(subtestInstance, expectedPassing, passing, string(check))
			}
		})
	}
}

func TestEvaluateBranchProtections(testInstance *testing.T) {
	testCases := []struct {
		name            string
		rulesets        []githubapi.Ruleset
		expectedPassing map[checklist.Check]bool
	}{
		{
			name:     "no_rulesets_fail_every_protection_check",
			rulesets: nil,
			expectedPassing: map[checklist.Check]bool{
				checklist.CheckSignedCommits:         false,
				checklist.CheckPullRequestRequired:   false,
				checklist.CheckCodeReviewRequired:    false,
				checklist.CheckAdminBypassRestricted: false,
			},
		},
		{
			name: "active_default_branch_ruleset_grants_protections",
			rulesets: []githubapi.Ruleset{
				{
					Enforcement:               "ACTIVE",
					IncludedReferencePatterns: []string{"~DEFAULT_BRANCH"},
					RuleTypes:                 []string{"REQUIRED_SIGNATURES", "PULL_REQUEST"},
					RequiredApprovingReviews:  2,
				},
			},
			expectedPassing: map[checklist.Check]bool{
				checklist.CheckSignedCommits:         true,
				checklist.CheckPullRequestRequired:   true,
				checklist.CheckCodeReviewRequired:    true,
				checklist.CheckAdminBypassRestricted: true,
			},
		},
		{
			name: "pull_request_rule_without_reviews_is_not_code_review",
			rulesets: []githubapi.Ruleset{
				{
					Enforcement:               "ACTIVE",
					IncludedReferencePatterns: []string{"refs/heads/" + testDefaultBranchConstant},
					RuleTypes:                 []string{"PULL_REQUEST"},
				},
			},
			expectedPassing: map[checklist.Check]bool{
				checklist.CheckPullRequestRequired:   true,
				checklist.CheckCodeReviewRequired:    false,
				checklist.CheckAdminBypassRestricted: true,
			},
		},
		{
			name: "admin_bypass_on_applicable_ruleset_fails_restriction",
			rulesets: []githubapi.Ruleset{
				{
					Enforcement:                "ACTIVE",
					IncludedReferencePatterns:  []string{"~ALL"},
					RuleTypes:                  []string{"PULL_REQUEST"},
					HasOrganizationAdminBypass: true,
				},
			},
			expectedPassing: map[checklist.Check]bool{
				checklist.CheckPullRequestRequired:   true,
				checklist.CheckAdminBypassRestricted: false,
			},
		},
		{
			name: "disabled_ruleset_is_ignored",
			rulesets: []githubapi.Ruleset{
				{
					Enforcement:               "DISABLED",
					IncludedReferencePatterns: []string{"~DEFAULT_BRANCH"},
					RuleTypes:                 []string{"REQUIRED_SIGNATURES"},
				},
			},
			expectedPassing: map[checklist.Check]bool{
				checklist.CheckSignedCommits:         false,
				checklist.CheckAdminBypassRestricted: false,
			},
		},
	}

	for testCaseIndex, testCase := range testCases {
		testInstance.Run(fmt.Sprintf("%d_%s", testCaseIndex, testCase.name), func(subtestInstance *testing.T) {
			provider := &stubFactProvider{
				metadata: githubapi.RepositoryMetadata{
					DefaultBranch: testDefaultBranchConstant,
					Rulesets:      testCase.rulesets,
				},
			}
			evaluator := newEvaluatorForTest(subtestInstance, provider, compliance.DefaultEvaluatorConfig(), fixedClock{instant: time.Now()})

			results, evaluationError := evaluator.Evaluate(context.Background(), testOrganizationConstant, testRepositoryConstant)
			require.NoError(subtestInstance, evaluationError)

			for check, expectedPassing := range testCase.expectedPassing {
				passing := results[check] == checklist.DefaultSuccessMessage
				require.Equal(subtestInstance, expectedPassing, passing, string(check))
			}
		})
	}
}

func TestEvaluateAlertChecks(testInstance *testing.T) {
	referenceInstant := time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC)
	boundaryInstant := referenceInstant.Add(-21 * 24 * time.Hour)

	testCases := []struct {
		name              string
		alerts            []githubapi.VulnerabilityAlert
		dependabotEnabled bool
		dependabotError   error
		expectedEnabled   bool
		expectedAlertsOK  bool
	}{
		{
			name:              "no_alerts_pass",
			dependabotEnabled: true,
			expectedEnabled:   true,
			expectedAlertsOK:  true,
		},
		{
			name: "alert_exactly_at_boundary_passes",
			alerts: []githubapi.VulnerabilityAlert{
				{CreatedAt: boundaryInstant, Severity: "CRITICAL"},
			},
			dependabotEnabled: true,
			expectedEnabled:   true,
			expectedAlertsOK:  true,
		},
		{
			name: "alert_older_than_boundary_fails",
			alerts: []githubapi.VulnerabilityAlert{
				{CreatedAt: boundaryInstant.Add(-time.Second), Severity: "HIGH"},
			},
			dependabotEnabled: true,
			expectedEnabled:   true,
			expectedAlertsOK:  false,
		},
		{
			name: "stale_alert_with_excluded_severity_passes",
			alerts: []githubapi.VulnerabilityAlert{
				{CreatedAt: boundaryInstant.Add(-48 * time.Hour), Severity: "LOW"},
			},
			dependabotEnabled: true,
			expectedEnabled:   true,
			expectedAlertsOK:  true,
		},
		{
			name:             "dependabot_probe_failure_degrades_to_disabled",
			dependabotError:  errors.New("probe failed"),
			expectedEnabled:  false,
			expectedAlertsOK: true,
		},
	}

	for testCaseIndex, testCase := range testCases {
		testInstance.Run(fmt.Sprintf("%d_%s", testCaseIndex, testCase.name), func(subtestInstance *testing.T) {
			provider := &stubFactProvider{
				metadata: githubapi.RepositoryMetadata{
					DefaultBranch:       testDefaultBranchConstant,
					VulnerabilityAlerts: testCase.alerts,
				},
				dependabotEnabled: testCase.dependabotEnabled,
				dependabotError:   testCase.dependabotError,
			}
			evaluator := newEvaluatorForTest(subtestInstance, provider, compliance.DefaultEvaluatorConfig(), fixedClock{instant: referenceInstant})

			results, evaluationError := evaluator.Evaluate(context.Background(), testOrganizationConstant, testRepositoryConstant)
			require.NoError(subtestInstance, evaluationError)

			require.Equal(subtestInstance, testCase.expectedEnabled, results[checklist.CheckDependabotEnabled] == checklist.DefaultSuccessMessage)
			require.Equal(subtestInstance, testCase.expectedAlertsOK, results[checklist.CheckDependabotAlerts] == checklist.DefaultSuccessMessage)
		})
	}
}

func TestEvaluateIssuesPolicyPolarity(testInstance *testing.T) {
	testCases := []struct {
		name            string
		issuesEnabled   bool
		compliantWhenOn bool
		expectedPassing bool
	}{
		{name: "enabled_issues_match_default_policy", issuesEnabled: true, compliantWhenOn: true, expectedPassing: true},
		{name: "disabled_issues_fail_default_policy", issuesEnabled: false, compliantWhenOn: true, expectedPassing: false},
		{name: "disabled_issues_match_inverted_policy", issuesEnabled: false, compliantWhenOn: false, expectedPassing: true},
		{name: "enabled_issues_fail_inverted_policy", issuesEnabled: true, compliantWhenOn: false, expectedPassing: false},
	}

	for testCaseIndex, testCase := range testCases {
		testInstance.Run(fmt.Sprintf("%d_%s", testCaseIndex, testCase.name), func(subtestInstance *testing.T) {
			provider := &stubFactProvider{
				metadata: githubapi.RepositoryMetadata{
					DefaultBranch:    testDefaultBranchConstant,
					HasIssuesEnabled: testCase.issuesEnabled,
				},
			}
			configuration := compliance.DefaultEvaluatorConfig()
			configuration.IssuesEnabledIsCompliant = testCase.compliantWhenOn
			evaluator := newEvaluatorForTest(subtestInstance, provider, configuration, fixedClock{instant: time.Now()})

			results, evaluationError := evaluator.Evaluate(context.Background(), testOrganizationConstant, testRepositoryConstant)
			require.NoError(subtestInstance, evaluationError)
			require.Equal(subtestInstance, testCase.expectedPassing, results[checklist.CheckIssuesPolicy] == checklist.DefaultSuccessMessage)
		})
	}
}

func TestEvaluateRequiredFilesShortCircuitsOnFirstCandidate(testInstance *testing.T) {
	provider := &stubFactProvider{
		metadata: githubapi.RepositoryMetadata{DefaultBranch: testDefaultBranchConstant},
		fileContents: map[string]string{
			"README.md": "# project",
		},
	}
	evaluator := newEvaluatorForTest(testInstance, provider, compliance.DefaultEvaluatorConfig(), fixedClock{instant: time.Now()})

	results, evaluationError := evaluator.Evaluate(context.Background(), testOrganizationConstant, testRepositoryConstant)
	require.NoError(testInstance, evaluationError)

	require.Equal(testInstance, checklist.DefaultSuccessMessage, results[checklist.CheckReadmeFile])
	require.NotEqual(testInstance, checklist.DefaultSuccessMessage, results[checklist.CheckLicenseFile])

	require.Contains(testInstance, provider.fileProbeSequence, "README.md")
	require.NotContains(testInstance, provider.fileProbeSequence, "README.rst")
	require.NotContains(testInstance, provider.fileProbeSequence, "README.txt")
	require.NotContains(testInstance, provider.fileProbeSequence, "README")
}

func TestEvaluateRequiredFilesTreatsProbeErrorAsAbsent(testInstance *testing.T) {
	provider := &stubFactProvider{
		metadata: githubapi.RepositoryMetadata{DefaultBranch: testDefaultBranchConstant},
		fileErrors: map[string]error{
			"LICENSE": errors.New("probe failed"),
		},
		fileContents: map[string]string{
			"LICENSE.md": "MIT",
		},
	}
	evaluator := newEvaluatorForTest(testInstance, provider, compliance.DefaultEvaluatorConfig(), fixedClock{instant: time.Now()})

	results, evaluationError := evaluator.Evaluate(context.Background(), testOrganizationConstant, testRepositoryConstant)
	require.NoError(testInstance, evaluationError)
	require.Equal(testInstance, checklist.DefaultSuccessMessage, results[checklist.CheckLicenseFile])
}
