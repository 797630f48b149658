package auditor

import (
	"context"

	"github.com/temirov/repoaudit/internal/compliance"
	"github.com/temirov/repoaudit/internal/prmetrics"
)

// RepositoryDataProvider combines every provider capability the audit run
// needs: compliance facts, pull request data, and repository resolution.
type RepositoryDataProvider interface {
	compliance.FactProvider
	prmetrics.PullRequestProvider
	ListOrganizationRepositories(executionContext context.Context, organization string) ([]string, error)
}
