package auditor_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/temirov/repoaudit/internal/auditor"
	"github.com/temirov/repoaudit/internal/checklist"
	"github.com/temirov/repoaudit/internal/compliance"
	"github.com/temirov/repoaudit/internal/githubapi"
	"github.com/temirov/repoaudit/internal/scoring"
)

const (
	serviceOrganizationConstant  = "example-org"
	healthyRepositoryConstant    = "healthy-repo"
	brokenRepositoryConstant     = "broken-repo"
	serviceDefaultBranchConstant = "main"
	serviceRecencyWindowConstant = 30
	serviceThresholdConstant     = 10
)

type repositoryFixture struct {
	metadata      githubapi.RepositoryMetadata
	metadataError error
	pullRequests  []githubapi.PullRequest
	listError     error
}

type stubDataProvider struct {
	repositories        []string
	listRepositoriesErr error
	fixtures            map[string]repositoryFixture
	listedOrganizations []string
}

func (provider *stubDataProvider) ListWorkflows(executionContext context.Context, organization string, repository string) (githubapi.WorkflowInventory, error) {
	return githubapi.WorkflowInventory{}, nil
}

func (provider *stubDataProvider) GetFileContent(executionContext context.Context, organization string, repository string, path string) (string, bool, error) {
	return "", false, nil
}

func (provider *stubDataProvider) GetRepositoryMetadata(executionContext context.Context, organization string, repository string) (githubapi.RepositoryMetadata, error) {
	fixture := provider.fixtures[repository]
	return fixture.metadata, fixture.metadataError
}

func (provider *stubDataProvider) IsDependabotEnabled(executionContext context.Context, organization string, repository string) (bool, error) {
	return true, nil
}

func (provider *stubDataProvider) ListClosedPullRequests(executionContext context.Context, organization string, repository string) ([]githubapi.PullRequest, error) {
	fixture := provider.fixtures[repository]
	return fixture.pullRequests, fixture.listError
}

func (provider *stubDataProvider) GetPullRequestDetail(executionContext context.Context, organization string, repository string, number int) (githubapi.PullRequestDetail, error) {
	return githubapi.PullRequestDetail{}, nil
}

func (provider *stubDataProvider) ListReviews(executionContext context.Context, organization string, repository string, number int) ([]githubapi.Review, error) {
	return nil, nil
}

func (provider *stubDataProvider) ListComments(executionContext context.Context, organization string, repository string, number int) ([]githubapi.Comment, error) {
	return nil, nil
}

func (provider *stubDataProvider) ListOrganizationRepositories(executionContext context.Context, organization string) ([]string, error) {
	provider.listedOrganizations = append(provider.listedOrganizations, organization)
	return provider.repositories, provider.listRepositoriesErr
}

type serviceFixedClock struct {
	instant time.Time
}

func (clock serviceFixedClock) Now() time.Time {
	return clock.instant
}

func healthyMetadata() githubapi.RepositoryMetadata {
	return githubapi.RepositoryMetadata{
		DefaultBranch:       serviceDefaultBranchConstant,
		HasIssuesEnabled:    true,
		DeleteBranchOnMerge: true,
		SquashMergeAllowed:  true,
		HasLicense:          true,
	}
}

func serviceConfigurationForTest() auditor.ServiceConfig {
	return auditor.ServiceConfig{
		Evaluator: compliance.DefaultEvaluatorConfig(),
		Weights: scoring.RuleWeights{
			Weights: map[string]int{
				string(checklist.CheckDeletesHeadBranch):  8,
				string(checklist.CheckUsesSquashMerge):    8,
				string(checklist.CheckLicenseInformation): 8,
			},
			Threshold: serviceThresholdConstant,
		},
		RecencyWindowDays: serviceRecencyWindowConstant,
	}
}

func newServiceForTest(testInstance *testing.T, provider auditor.RepositoryDataProvider, clock compliance.Clock) *auditor.Service {
	testInstance.Helper()
	service, serviceError := auditor.NewService(provider, serviceConfigurationForTest(), nil, clock)
	require.NoError(testInstance, serviceError)
	return service
}

func TestRunRejectsBlankOrganization(testInstance *testing.T) {
	provider := &stubDataProvider{}
	service := newServiceForTest(testInstance, provider, serviceFixedClock{instant: time.Now()})

	records, runError := service.Run(context.Background(), "   ", nil)
	require.ErrorIs(testInstance, runError, auditor.ErrOrganizationRequired)
	require.Nil(testInstance, records)
}

func TestRunUsesAllowlistWithoutListingOrganization(testInstance *testing.T) {
	provider := &stubDataProvider{
		fixtures: map[string]repositoryFixture{
			healthyRepositoryConstant: {metadata: healthyMetadata()},
		},
	}
	service := newServiceForTest(testInstance, provider, serviceFixedClock{instant: time.Now()})

	records, runError := service.Run(context.Background(), serviceOrganizationConstant, []string{"  " + healthyRepositoryConstant + "  ", "   "})
	require.NoError(testInstance, runError)
	require.Len(testInstance, records, 1)
	require.Equal(testInstance, healthyRepositoryConstant, records[0].Repository)
	require.Empty(testInstance, provider.listedOrganizations)
}

func TestRunResolvesRepositoriesFromOrganization(testInstance *testing.T) {
	provider := &stubDataProvider{
		repositories: []string{healthyRepositoryConstant},
		fixtures: map[string]repositoryFixture{
			healthyRepositoryConstant: {metadata: healthyMetadata()},
		},
	}
	service := newServiceForTest(testInstance, provider, serviceFixedClock{instant: time.Now()})

	records, runError := service.Run(context.Background(), serviceOrganizationConstant, nil)
	require.NoError(testInstance, runError)
	require.Len(testInstance, records, 1)
	require.Equal(testInstance, []string{serviceOrganizationConstant}, provider.listedOrganizations)
}

func TestRunFailsWhenRepositoryResolutionFails(testInstance *testing.T) {
	provider := &stubDataProvider{listRepositoriesErr: errors.New("organization unavailable")}
	service := newServiceForTest(testInstance, provider, serviceFixedClock{instant: time.Now()})

	records, runError := service.Run(context.Background(), serviceOrganizationConstant, nil)
	require.Error(testInstance, runError)
	require.Nil(testInstance, records)
}

func TestRunIsolatesPerRepositoryFailures(testInstance *testing.T) {
	provider := &stubDataProvider{
		fixtures: map[string]repositoryFixture{
			brokenRepositoryConstant:  {metadataError: errors.New("metadata unavailable")},
			healthyRepositoryConstant: {metadata: healthyMetadata()},
		},
	}
	service := newServiceForTest(testInstance, provider, serviceFixedClock{instant: time.Now()})

	records, runError := service.Run(context.Background(), serviceOrganizationConstant, []string{brokenRepositoryConstant, healthyRepositoryConstant})
	require.NoError(testInstance, runError)
	require.Len(testInstance, records, 2)

	require.True(testInstance, records[0].Failed)
	require.Equal(testInstance, brokenRepositoryConstant, records[0].Repository)
	require.Contains(testInstance, records[0].FailureMessage, "metadata unavailable")
	require.Equal(testInstance, scoring.VerdictFail, records[0].Verdict)

	require.False(testInstance, records[1].Failed)
	require.Equal(testInstance, healthyRepositoryConstant, records[1].Repository)
}

func TestRunMarksPullRequestListingFailures(testInstance *testing.T) {
	provider := &stubDataProvider{
		fixtures: map[string]repositoryFixture{
			healthyRepositoryConstant: {
				metadata:  healthyMetadata(),
				listError: errors.New("pull request listing unavailable"),
			},
		},
	}
	service := newServiceForTest(testInstance, provider, serviceFixedClock{instant: time.Now()})

	records, runError := service.Run(context.Background(), serviceOrganizationConstant, []string{healthyRepositoryConstant})
	require.NoError(testInstance, runError)
	require.Len(testInstance, records, 1)
	require.True(testInstance, records[0].Failed)
	require.Contains(testInstance, records[0].FailureMessage, "pull request listing unavailable")
	require.NotNil(testInstance, records[0].Checks)
}

func TestRunScoresAndJudgesRepositories(testInstance *testing.T) {
	provider := &stubDataProvider{
		fixtures: map[string]repositoryFixture{
			healthyRepositoryConstant: {metadata: healthyMetadata()},
		},
	}
	service := newServiceForTest(testInstance, provider, serviceFixedClock{instant: time.Now()})

	records, runError := service.Run(context.Background(), serviceOrganizationConstant, []string{healthyRepositoryConstant})
	require.NoError(testInstance, runError)
	require.Len(testInstance, records, 1)

	record := records[0]
	require.Equal(testInstance, 24, record.Score)
	require.Equal(testInstance, 24, record.MaximumScore)
	require.Equal(testInstance, serviceThresholdConstant, record.Threshold)
	require.Equal(testInstance, scoring.VerdictPass, record.Verdict)
	require.Equal(testInstance, 0, record.Metrics.MergedPullRequestCount)
}

func TestRunIsDeterministicAcrossInvocations(testInstance *testing.T) {
	provider := &stubDataProvider{
		fixtures: map[string]repositoryFixture{
			healthyRepositoryConstant: {metadata: healthyMetadata()},
			brokenRepositoryConstant:  {metadataError: errors.New("metadata unavailable")},
		},
	}
	clock := serviceFixedClock{instant: time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC)}
	service := newServiceForTest(testInstance, provider, clock)

	repositories := []string{healthyRepositoryConstant, brokenRepositoryConstant}
	firstRun, firstError := service.Run(context.Background(), serviceOrganizationConstant, repositories)
	require.NoError(testInstance, firstError)
	secondRun, secondError := service.Run(context.Background(), serviceOrganizationConstant, repositories)
	require.NoError(testInstance, secondError)

	require.Equal(testInstance, firstRun, secondRun)
}
