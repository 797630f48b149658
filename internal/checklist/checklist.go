package checklist

// DefaultSuccessMessage is the shared sentinel recorded for every passing check.
const DefaultSuccessMessage = "OK"

// Check identifies a single compliance rule evaluated against a repository.
type Check string

// Checks evaluated by the compliance evaluator.
const (
	CheckHasActions            Check = "has_actions"
	CheckApprovedActions       Check = "approved_actions"
	CheckTestReporter          Check = "test_reporter"
	CheckUnitTests             Check = "unit_tests"
	CheckSignedCommits         Check = "signed_commits"
	CheckCodeReviewRequired    Check = "code_review_required"
	CheckPullRequestRequired   Check = "pull_request_required"
	CheckAdminBypassRestricted Check = "admin_bypass_restricted"
	CheckWikiDisabled          Check = "wiki_disabled"
	CheckIssuesPolicy          Check = "issues_policy"
	CheckProjectsDisabled      Check = "projects_disabled"
	CheckDiscussionsDisabled   Check = "discussions_disabled"
	CheckDeletesHeadBranch     Check = "deletes_head_branch"
	CheckUsesSquashMerge       Check = "uses_squash_merge"
	CheckLicenseInformation    Check = "license_information"
	CheckDependabotEnabled     Check = "dependabot_enabled"
	CheckDependabotAlerts      Check = "dependabot_alerts"
	CheckReadmeFile            Check = "readme_file"
	CheckLicenseFile           Check = "license_file"
	CheckNoticesFile           Check = "notices_file"
	CheckCodeOfConductFile     Check = "code_of_conduct_file"
	CheckContributorsFile      Check = "contributors_file"
)

// Definition carries the immutable presentation data associated with a check.
type Definition struct {
	Description    string
	FailureMessage string
	FileCandidates []string
}

// Result maps evaluated checks to the success sentinel or a failure message.
type Result map[Check]string

var definitions = map[Check]Definition{
	CheckHasActions:            {Description: "Has Actions", FailureMessage: "Repo is not using GH Actions"},
	CheckApprovedActions:       {Description: "Uses only approved GitHub Actions", FailureMessage: "No. Consider using only approved GH Actions"},
	CheckTestReporter:          {Description: "Uses Test Reporter", FailureMessage: "Not found"},
	CheckUnitTests:             {Description: "Has Unit Tests", FailureMessage: "Not found"},
	CheckSignedCommits:         {Description: "Requires Signed commits", FailureMessage: "No. Commits should be signed"},
	CheckCodeReviewRequired:    {Description: "Requires Code Review", FailureMessage: "No. Reviews should be required before merging"},
	CheckPullRequestRequired:   {Description: "Requires Pull Requests", FailureMessage: "No. Changes should flow through pull requests"},
	CheckAdminBypassRestricted: {Description: "Admins cannot bypass rules", FailureMessage: "No. Organization admins can bypass branch rules"},
	CheckWikiDisabled:          {Description: "Wiki Disabled", FailureMessage: "WARNING: Wiki is enabled"},
	CheckIssuesPolicy:          {Description: "Issues Configuration", FailureMessage: "WARNING: Issues setting does not match policy"},
	CheckProjectsDisabled:      {Description: "Projects Disabled", FailureMessage: "WARNING: Projects are enabled"},
	CheckDiscussionsDisabled:   {Description: "Discussions Disabled", FailureMessage: "WARNING: Discussions are enabled"},
	CheckDeletesHeadBranch:     {Description: "Deletes head branch", FailureMessage: "No. Branch should be deleted on merge"},
	CheckUsesSquashMerge:       {Description: "Uses Squash Merge", FailureMessage: "No. Should use squash merges"},
	CheckLicenseInformation:    {Description: "License Information", FailureMessage: "License not found"},
	CheckDependabotEnabled:     {Description: "Dependabot Enabled", FailureMessage: "Dependabot is not enabled"},
	CheckDependabotAlerts:      {Description: "Dependabot Alerts", FailureMessage: "WARNING: Review existing alerts and dependabot status"},
	CheckReadmeFile:            {Description: "Has README", FailureMessage: "File not found", FileCandidates: []string{"README.md", "README.rst", "README.txt", "README"}},
	CheckLicenseFile:           {Description: "Has LICENSE", FailureMessage: "File not found", FileCandidates: []string{"LICENSE", "LICENSE.md", "LICENSE.txt"}},
	CheckNoticesFile:           {Description: "Has NOTICES", FailureMessage: "File not found", FileCandidates: []string{"NOTICES.md"}},
	CheckCodeOfConductFile:     {Description: "Has CODE_OF_CONDUCT", FailureMessage: "File not found", FileCandidates: []string{"CODE_OF_CONDUCT.md"}},
	CheckContributorsFile:      {Description: "Has CONTRIBUTORS", FailureMessage: "File not found", FileCandidates: []string{"CONTRIBUTORS.md"}},
}

// RequiredFileChecks enumerates checks resolved by probing candidate file paths.
var RequiredFileChecks = []Check{
	CheckReadmeFile,
	CheckLicenseFile,
	CheckNoticesFile,
	CheckCodeOfConductFile,
	CheckContributorsFile,
}

// Lookup resolves a check identifier from its configuration key.
func Lookup(key string) (Check, bool) {
	candidate := Check(key)
	_, known := definitions[candidate]
	return candidate, known
}

// DefinitionFor returns the immutable definition associated with a check.
func DefinitionFor(check Check) Definition {
	return definitions[check]
}

// Message returns the success sentinel when passing is true and the check's
// failure message otherwise.
func Message(check Check, passing bool) string {
	if passing {
		return DefaultSuccessMessage
	}
	return definitions[check].FailureMessage
}

// AllChecks returns every known check identifier.
func AllChecks() []Check {
	checks := make([]Check, 0, len(definitions))
	for check := range definitions {
		checks = append(checks, check)
	}
	return checks
}
