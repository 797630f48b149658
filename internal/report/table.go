package report

import (
	"fmt"
	"io"
	"strconv"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
)

const (
	verdictPassLabelConstant  = "PASS"
	verdictErrorLabelConstant = "ERROR"
	missingValueCellConstant  = "-"

	failingChecksHeadingTemplateConstant = "\nFailing checks for %s:\n"
	failingCheckLineTemplateConstant     = "  %s: %s\n"
	failureLineTemplateConstant          = "\n%s could not be audited: %s\n"
)

var (
	passColor  = color.New(color.FgGreen, color.Bold)
	failColor  = color.New(color.FgRed, color.Bold)
	errorColor = color.New(color.FgRed)
)

var summaryTableHeaders = []string{
	"Repository", "Score", "Max", "Threshold", "Verdict",
	"Merged PRs", "Lead Time (d)", "Top Reviewer %",
}

// writeTable renders a colored summary table followed by the failing checks of
// every non-passing repository.
func writeTable(destination io.Writer, reports []RepositoryReport) error {
	summaryTable := tablewriter.NewWriter(destination)
	defer func() { _ = summaryTable.Close() }()

	summaryTable.Header(summaryTableHeaders)
	summaryTable.Configure(func(configuration *tablewriter.Config) {
		configuration.Row.Alignment.Global = tw.AlignRight
	})

	rows := make([][]string, 0, len(reports))
	for _, repositoryReport := range reports {
		rows = append(rows, summaryRow(repositoryReport))
	}
	if bulkError := summaryTable.Bulk(rows); bulkError != nil {
		return bulkError
	}
	if renderError := summaryTable.Render(); renderError != nil {
		return renderError
	}

	for _, repositoryReport := range reports {
		if writeError := writeRepositoryDetail(destination, repositoryReport); writeError != nil {
			return writeError
		}
	}
	return nil
}

func summaryRow(repositoryReport RepositoryReport) []string {
	return []string{
		repositoryReport.Repository,
		strconv.Itoa(repositoryReport.Score),
		strconv.Itoa(repositoryReport.MaximumScore),
		strconv.Itoa(repositoryReport.Threshold),
		verdictCell(repositoryReport),
		strconv.Itoa(repositoryReport.Metrics.MergedPullRequestCount),
		formatOptionalFloat(repositoryReport.Metrics.LeadTime.AverageLeadTimeDays),
		formatOptionalFloat(repositoryReport.Metrics.LoadBalance.TopReviewerSharePercent),
	}
}

func verdictCell(repositoryReport RepositoryReport) string {
	if repositoryReport.Failed {
		return errorColor.Sprint(verdictErrorLabelConstant)
	}
	if repositoryReport.Verdict == verdictPassLabelConstant {
		return passColor.Sprint(repositoryReport.Verdict)
	}
	return failColor.Sprint(repositoryReport.Verdict)
}

func writeRepositoryDetail(destination io.Writer, repositoryReport RepositoryReport) error {
	if repositoryReport.Failed {
		_, writeError := fmt.Fprintf(
			destination,
			failureLineTemplateConstant,
			repositoryReport.Repository,
			repositoryReport.FailureMessage,
		)
		return writeError
	}

	failingChecks := sortedFailingChecks(repositoryReport)
	if len(failingChecks) == 0 {
		return nil
	}

	if _, writeError := fmt.Fprintf(destination, failingChecksHeadingTemplateConstant, repositoryReport.Repository); writeError != nil {
		return writeError
	}
	for _, failingCheck := range failingChecks {
		message := repositoryReport.Checks[failingCheck]
		if _, writeError := fmt.Fprintf(destination, failingCheckLineTemplateConstant, string(failingCheck), message); writeError != nil {
			return writeError
		}
	}
	return nil
}
