package githubapi

import "time"

// Workflow describes a single workflow definition registered on a repository.
type Workflow struct {
	Path string
	Name string
}

// WorkflowInventory lists the workflow definitions reported by the Actions API.
type WorkflowInventory struct {
	TotalCount int
	Workflows  []Workflow
}

// VulnerabilityAlert captures an open dependency alert on a repository.
type VulnerabilityAlert struct {
	CreatedAt   time.Time
	PackageName string
	Severity    string
}

// Ruleset summarizes a branch ruleset applicable to repository references.
type Ruleset struct {
	Name                       string
	Enforcement                string
	Target                     string
	IncludedReferencePatterns  []string
	RuleTypes                  []string
	RequiredApprovingReviews   int
	HasOrganizationAdminBypass bool
}

// RepositoryMetadata aggregates repository settings resolved in one query.
type RepositoryMetadata struct {
	HasWikiEnabled      bool
	HasIssuesEnabled    bool
	HasProjectsEnabled  bool
	DiscussionsCount    int
	DeleteBranchOnMerge bool
	SquashMergeAllowed  bool
	HasLicense          bool
	LicenseKey          string
	DefaultBranch       string
	VulnerabilityAlerts []VulnerabilityAlert
	Rulesets            []Ruleset
}

// PullRequest represents a closed pull request returned by the list endpoint.
// Timestamp pointers are nil when the corresponding field was absent.
type PullRequest struct {
	Number    int
	Author    string
	CreatedAt *time.Time
	ClosedAt  *time.Time
	MergedAt  *time.Time
}

// PullRequestDetail carries size fields only available on the detail endpoint.
type PullRequestDetail struct {
	Additions    int
	Deletions    int
	ChangedFiles int
}

// Review represents a single pull request review submission.
type Review struct {
	Author      string
	State       string
	SubmittedAt *time.Time
}

// ReviewStateApproved is the state recorded for approving reviews.
const ReviewStateApproved = "APPROVED"

// Comment represents an issue comment left on a pull request.
type Comment struct {
	Author    string
	CreatedAt *time.Time
}
