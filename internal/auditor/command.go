package auditor

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/temirov/repoaudit/internal/checklist"
	"github.com/temirov/repoaudit/internal/compliance"
	"github.com/temirov/repoaudit/internal/githubapi"
	"github.com/temirov/repoaudit/internal/report"
	"github.com/temirov/repoaudit/internal/scoring"
	"github.com/temirov/repoaudit/internal/utils"
)

const (
	commandUseConstant                 = "audit"
	commandShortDescriptionConstant    = "Audit GitHub repositories for compliance and pull request health"
	commandLongDescriptionConstant     = "audit evaluates each repository against a weighted compliance checklist and aggregates merged pull request statistics into a single report."
	unexpectedArgumentsMessageConstant = "audit does not accept positional arguments"
	clientConstructionErrorTemplateC   = "unable to construct GitHub client: %w"
	reportRenderingErrorTemplateC      = "unable to render audit report: %w"
	configurationFileInUseMessageC     = "auditing with configuration file"
	logFieldConfigurationFileConstant  = "configuration_file"

	flagOrganizationNameConstant        = "organization"
	flagOrganizationDescriptionConstant = "GitHub organization whose repositories are audited"
	flagRepositoryNameConstant          = "repo"
	flagRepositoryDescriptionConstant   = "Repository to audit (repeatable); defaults to every repository in the organization"
	flagTokenNameConstant               = "token"
	flagTokenDescriptionConstant        = "GitHub access token"
	flagOutputFormatNameConstant        = "output-format"
	flagOutputFormatDescriptionC        = "Report format: table, csv, or json"
	flagOutputFileNameConstant          = "output-file"
	flagOutputFileDescriptionConstant   = "File receiving the rendered report; defaults to standard output"
)

var errUnexpectedArguments = errors.New(unexpectedArgumentsMessageConstant)

// LoggerProvider supplies a zap logger for command execution.
type LoggerProvider func() *zap.Logger

// CommandBuilder assembles the audit cobra command with configurable
// dependencies.
type CommandBuilder struct {
	LoggerProvider        LoggerProvider
	ConfigurationProvider func() CommandConfiguration
	Provider              RepositoryDataProvider
	Clock                 compliance.Clock
}

// Build constructs the cobra command for repository audits.
func (builder *CommandBuilder) Build() (*cobra.Command, error) {
	command := &cobra.Command{
		Use:   commandUseConstant,
		Short: commandShortDescriptionConstant,
		Long:  commandLongDescriptionConstant,
		RunE:  builder.run,
	}

	command.Flags().String(flagOrganizationNameConstant, "", flagOrganizationDescriptionConstant)
	command.Flags().StringSlice(flagRepositoryNameConstant, nil, flagRepositoryDescriptionConstant)
	command.Flags().String(flagTokenNameConstant, "", flagTokenDescriptionConstant)
	command.Flags().String(flagOutputFormatNameConstant, "", flagOutputFormatDescriptionC)
	command.Flags().String(flagOutputFileNameConstant, "", flagOutputFileDescriptionConstant)

	return command, nil
}

func (builder *CommandBuilder) run(command *cobra.Command, arguments []string) error {
	if len(arguments) > 0 {
		return errUnexpectedArguments
	}

	configuration := builder.resolveConfiguration()
	configuration = applyFlagOverrides(command, configuration).sanitize()

	outputFormat, formatError := report.ParseFormat(configuration.Output.Format)
	if formatError != nil {
		return formatError
	}

	logger := builder.resolveLogger()

	contextAccessor := utils.NewCommandContextAccessor()
	if configurationFilePath, configurationFilePathAvailable := contextAccessor.ConfigurationFilePath(command.Context()); configurationFilePathAvailable && len(configurationFilePath) > 0 {
		logger.Debug(
			configurationFileInUseMessageC,
			zap.String(logFieldConfigurationFileConstant, configurationFilePath),
		)
	}

	provider, providerError := builder.resolveProvider(configuration, logger)
	if providerError != nil {
		return providerError
	}

	service, serviceError := NewService(provider, serviceConfiguration(configuration), logger, builder.Clock)
	if serviceError != nil {
		return serviceError
	}

	records, runError := service.Run(command.Context(), configuration.Organization, configuration.Repositories)
	if runError != nil {
		return runError
	}

	reports := buildRepositoryReports(records, configuration.Scoring.SuccessMessage)
	if renderError := report.WriteToFile(configuration.Output.File, reports, outputFormat); renderError != nil {
		return fmt.Errorf(reportRenderingErrorTemplateC, renderError)
	}
	return nil
}

func (builder *CommandBuilder) resolveConfiguration() CommandConfiguration {
	if builder.ConfigurationProvider == nil {
		return DefaultCommandConfiguration()
	}
	return builder.ConfigurationProvider()
}

func (builder *CommandBuilder) resolveLogger() *zap.Logger {
	if builder.LoggerProvider == nil {
		return zap.NewNop()
	}
	logger := builder.LoggerProvider()
	if logger == nil {
		return zap.NewNop()
	}
	return logger
}

func (builder *CommandBuilder) resolveProvider(configuration CommandConfiguration, logger *zap.Logger) (RepositoryDataProvider, error) {
	if builder.Provider != nil {
		return builder.Provider, nil
	}
	client, clientError := githubapi.NewClient(configuration.Token, nil, logger)
	if clientError != nil {
		return nil, fmt.Errorf(clientConstructionErrorTemplateC, clientError)
	}
	return client, nil
}

func applyFlagOverrides(command *cobra.Command, configuration CommandConfiguration) CommandConfiguration {
	if command == nil {
		return configuration
	}
	if command.Flags().Changed(flagOrganizationNameConstant) {
		configuration.Organization, _ = command.Flags().GetString(flagOrganizationNameConstant)
	}
	if command.Flags().Changed(flagRepositoryNameConstant) {
		configuration.Repositories, _ = command.Flags().GetStringSlice(flagRepositoryNameConstant)
	}
	if command.Flags().Changed(flagTokenNameConstant) {
		configuration.Token, _ = command.Flags().GetString(flagTokenNameConstant)
	}
	if command.Flags().Changed(flagOutputFormatNameConstant) {
		configuration.Output.Format, _ = command.Flags().GetString(flagOutputFormatNameConstant)
	}
	if command.Flags().Changed(flagOutputFileNameConstant) {
		configuration.Output.File, _ = command.Flags().GetString(flagOutputFileNameConstant)
	}
	return configuration
}

func serviceConfiguration(configuration CommandConfiguration) ServiceConfig {
	evaluatorConfiguration := compliance.DefaultEvaluatorConfig()
	if len(strings.TrimSpace(configuration.ApprovedWorkflowPattern)) > 0 {
		evaluatorConfiguration.ApprovedWorkflowPattern = configuration.ApprovedWorkflowPattern
	}
	evaluatorConfiguration.Alerts = compliance.AlertPolicy{
		MaxAgeDays:         configuration.Alerts.MaxAgeDays,
		IncludedSeverities: configuration.Alerts.IncludedSeverities,
	}
	evaluatorConfiguration.IssuesEnabledIsCompliant = configuration.Policies.IssuesEnabledIsCompliant

	return ServiceConfig{
		Evaluator: evaluatorConfiguration,
		Weights: scoring.RuleWeights{
			Weights:   configuration.Scoring.Weights,
			Threshold: configuration.Scoring.Threshold,
		},
		RecencyWindowDays: configuration.Metrics.RecencyWindowDays,
	}
}

// buildRepositoryReports converts audit records into renderable rows. Passing
// entries are translated from the internal sentinel to the configured success
// message so reports read the way operators configured them.
func buildRepositoryReports(records []AuditRecord, successMessage string) []report.RepositoryReport {
	reports := make([]report.RepositoryReport, 0, len(records))
	for _, record := range records {
		repositoryReport := report.RepositoryReport{
			Repository:     record.Repository,
			Metrics:        record.Metrics,
			Score:          record.Score,
			MaximumScore:   record.MaximumScore,
			Threshold:      record.Threshold,
			Verdict:        string(record.Verdict),
			Failed:         record.Failed,
			FailureMessage: record.FailureMessage,
			SuccessMessage: successMessage,
		}
		if record.Checks != nil {
			translatedChecks := make(checklist.Result, len(record.Checks))
			for checkKey, message := range record.Checks {
				if message == checklist.DefaultSuccessMessage {
					message = successMessage
				}
				translatedChecks[checkKey] = message
			}
			repositoryReport.Checks = translatedChecks
		}
		reports = append(reports, repositoryReport)
	}
	return reports
}
