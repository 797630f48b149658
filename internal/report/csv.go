package report

import (
	"encoding/csv"
	"io"
	"strconv"
)

var csvHeader = []string{
	"repository",
	"score",
	"maximum_score",
	"threshold",
	"verdict",
	"failed",
	"failure_message",
	"merged_pull_request_count",
	"average_duration_days",
	"average_lead_time_days",
	"average_time_to_first_approval_hours",
	"average_reviews_per_pull_request",
	"top_reviewer_share_percent",
	"average_time_to_first_response_hours",
	"median_changed_files",
}

// writeCSV renders one summary row per repository.
func writeCSV(destination io.Writer, reports []RepositoryReport) error {
	csvWriter := csv.NewWriter(destination)
	defer csvWriter.Flush()

	if headerError := csvWriter.Write(csvHeader); headerError != nil {
		return headerError
	}
	for _, repositoryReport := range reports {
		if rowError := csvWriter.Write(csvRecord(repositoryReport)); rowError != nil {
			return rowError
		}
	}
	csvWriter.Flush()
	return csvWriter.Error()
}

func csvRecord(repositoryReport RepositoryReport) []string {
	return []string{
		repositoryReport.Repository,
		strconv.Itoa(repositoryReport.Score),
		strconv.Itoa(repositoryReport.MaximumScore),
		strconv.Itoa(repositoryReport.Threshold),
		repositoryReport.Verdict,
		strconv.FormatBool(repositoryReport.Failed),
		repositoryReport.FailureMessage,
		strconv.Itoa(repositoryReport.Metrics.MergedPullRequestCount),
		csvOptionalFloat(repositoryReport.Metrics.Duration.AverageDurationDays),
		csvOptionalFloat(repositoryReport.Metrics.LeadTime.AverageLeadTimeDays),
		csvOptionalFloat(repositoryReport.Metrics.ReviewCycle.AverageTimeToFirstApprovalHours),
		csvOptionalFloat(repositoryReport.Metrics.ReviewCycle.AverageReviewsPerPullRequest),
		csvOptionalFloat(repositoryReport.Metrics.LoadBalance.TopReviewerSharePercent),
		csvOptionalFloat(repositoryReport.Metrics.FirstResponse.AverageTimeToFirstResponseHours),
		csvOptionalFloat(repositoryReport.Metrics.Size.MedianChangedFiles),
	}
}

func csvOptionalFloat(value *float64) string {
	if value == nil {
		return ""
	}
	return strconv.FormatFloat(*value, 'f', optionalFloatFormatPrecisionConstant, 64)
}
