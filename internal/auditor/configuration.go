package auditor

import (
	"strings"

	"github.com/temirov/repoaudit/internal/checklist"
)

const (
	defaultThresholdConstant         = 130
	defaultRecencyWindowDaysConstant = 30
	defaultAlertMaxAgeDaysConstant   = 21
	defaultOutputFormatConstant      = "table"

	organizationConfigurationSuffixConstant  = ".organization"
	repositoriesConfigurationSuffixConstant  = ".repositories"
	thresholdConfigurationSuffixConstant     = ".scoring.threshold"
	recencyWindowConfigurationSuffixConstant = ".metrics.recency_window_days"
	alertMaxAgeConfigurationSuffixConstant   = ".alerts.max_age_days"
	alertSeveritiesConfigurationSuffixC      = ".alerts.included_severities"
	issuesPolicyConfigurationSuffixConstant  = ".policies.issues_enabled_is_compliant"
	outputFormatConfigurationSuffixConstant  = ".output.format"
)

var defaultAlertSeverities = []string{"CRITICAL", "HIGH"}

// CommandConfiguration captures persistent settings for the audit command.
type CommandConfiguration struct {
	Organization            string                 `mapstructure:"organization"`
	Repositories            []string               `mapstructure:"repositories"`
	Token                   string                 `mapstructure:"token"`
	ApprovedWorkflowPattern string                 `mapstructure:"approved_workflow_pattern"`
	Scoring                 ScoringConfiguration   `mapstructure:"scoring"`
	Alerts                  AlertsConfiguration    `mapstructure:"alerts"`
	Policies                PoliciesConfiguration  `mapstructure:"policies"`
	Metrics                 PRMetricsConfiguration `mapstructure:"metrics"`
	Output                  ReportingConfiguration `mapstructure:"output"`
}

// ScoringConfiguration holds the rule-weight table and passing threshold.
type ScoringConfiguration struct {
	Threshold      int            `mapstructure:"threshold"`
	SuccessMessage string         `mapstructure:"success_message"`
	Weights        map[string]int `mapstructure:"weights"`
}

// AlertsConfiguration bounds which open vulnerability alerts count.
type AlertsConfiguration struct {
	MaxAgeDays         int      `mapstructure:"max_age_days"`
	IncludedSeverities []string `mapstructure:"included_severities"`
}

// PoliciesConfiguration resolves checks whose desired polarity is ambiguous.
type PoliciesConfiguration struct {
	IssuesEnabledIsCompliant bool `mapstructure:"issues_enabled_is_compliant"`
}

// PRMetricsConfiguration bounds which merged pull requests feed the metrics.
type PRMetricsConfiguration struct {
	RecencyWindowDays int `mapstructure:"recency_window_days"`
}

// ReportingConfiguration selects the rendered output format and destination.
type ReportingConfiguration struct {
	Format string `mapstructure:"format"`
	File   string `mapstructure:"file"`
}

// DefaultRuleWeights returns the baseline weight table covering every check.
func DefaultRuleWeights() map[string]int {
	return map[string]int{
		string(checklist.CheckHasActions):            20,
		string(checklist.CheckUnitTests):             20,
		string(checklist.CheckTestReporter):          10,
		string(checklist.CheckApprovedActions):       10,
		string(checklist.CheckCodeReviewRequired):    15,
		string(checklist.CheckPullRequestRequired):   15,
		string(checklist.CheckSignedCommits):         5,
		string(checklist.CheckAdminBypassRestricted): 5,
		string(checklist.CheckWikiDisabled):          5,
		string(checklist.CheckIssuesPolicy):          5,
		string(checklist.CheckProjectsDisabled):      5,
		string(checklist.CheckDiscussionsDisabled):   5,
		string(checklist.CheckDeletesHeadBranch):     10,
		string(checklist.CheckUsesSquashMerge):       10,
		string(checklist.CheckLicenseInformation):    10,
		string(checklist.CheckDependabotEnabled):     15,
		string(checklist.CheckDependabotAlerts):      15,
		string(checklist.CheckReadmeFile):            5,
		string(checklist.CheckLicenseFile):           5,
		string(checklist.CheckNoticesFile):           5,
		string(checklist.CheckCodeOfConductFile):     3,
		string(checklist.CheckContributorsFile):      2,
	}
}

// DefaultCommandConfiguration returns baseline configuration values for the
// audit command.
func DefaultCommandConfiguration() CommandConfiguration {
	return CommandConfiguration{
		Scoring: ScoringConfiguration{
			Threshold:      defaultThresholdConstant,
			SuccessMessage: checklist.DefaultSuccessMessage,
			Weights:        DefaultRuleWeights(),
		},
		Alerts: AlertsConfiguration{
			MaxAgeDays:         defaultAlertMaxAgeDaysConstant,
			IncludedSeverities: append([]string{}, defaultAlertSeverities...),
		},
		Policies: PoliciesConfiguration{IssuesEnabledIsCompliant: true},
		Metrics:  PRMetricsConfiguration{RecencyWindowDays: defaultRecencyWindowDaysConstant},
		Output:   ReportingConfiguration{Format: defaultOutputFormatConstant},
	}
}

// DefaultConfigurationValues exposes defaults for viper registration under
// the provided configuration key prefix.
func DefaultConfigurationValues(configurationKeyPrefix string) map[string]any {
	return map[string]any{
		configurationKeyPrefix + organizationConfigurationSuffixConstant:  "",
		configurationKeyPrefix + repositoriesConfigurationSuffixConstant:  []string{},
		configurationKeyPrefix + thresholdConfigurationSuffixConstant:     defaultThresholdConstant,
		configurationKeyPrefix + recencyWindowConfigurationSuffixConstant: defaultRecencyWindowDaysConstant,
		configurationKeyPrefix + alertMaxAgeConfigurationSuffixConstant:   defaultAlertMaxAgeDaysConstant,
		configurationKeyPrefix + alertSeveritiesConfigurationSuffixC:      append([]string{}, defaultAlertSeverities...),
		configurationKeyPrefix + issuesPolicyConfigurationSuffixConstant:  true,
		configurationKeyPrefix + outputFormatConfigurationSuffixConstant:  defaultOutputFormatConstant,
	}
}

// sanitize trims whitespace and applies defaults to unset values.
func (configuration CommandConfiguration) sanitize() CommandConfiguration {
	sanitized := configuration
	sanitized.Organization = strings.TrimSpace(configuration.Organization)
	sanitized.Token = strings.TrimSpace(configuration.Token)

	sanitized.Repositories = make([]string, 0, len(configuration.Repositories))
	for _, repository := range configuration.Repositories {
		trimmed := strings.TrimSpace(repository)
		if len(trimmed) == 0 {
			continue
		}
		sanitized.Repositories = append(sanitized.Repositories, trimmed)
	}

	if len(sanitized.Scoring.Weights) == 0 {
		sanitized.Scoring.Weights = DefaultRuleWeights()
	}
	if len(strings.TrimSpace(sanitized.Scoring.SuccessMessage)) == 0 {
		sanitized.Scoring.SuccessMessage = checklist.DefaultSuccessMessage
	}
	if sanitized.Alerts.MaxAgeDays <= 0 {
		sanitized.Alerts.MaxAgeDays = defaultAlertMaxAgeDaysConstant
	}
	if len(sanitized.Alerts.IncludedSeverities) == 0 {
		sanitized.Alerts.IncludedSeverities = append([]string{}, defaultAlertSeverities...)
	}
	if sanitized.Metrics.RecencyWindowDays < 0 {
		sanitized.Metrics.RecencyWindowDays = defaultRecencyWindowDaysConstant
	}
	if len(strings.TrimSpace(sanitized.Output.Format)) == 0 {
		sanitized.Output.Format = defaultOutputFormatConstant
	}
	return sanitized
}
