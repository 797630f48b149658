package report

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/temirov/repoaudit/internal/checklist"
	"github.com/temirov/repoaudit/internal/prmetrics"
)

const (
	// FormatTable renders a colored human-readable summary table.
	FormatTable Format = "table"
	// FormatCSV renders one summary row per repository.
	FormatCSV Format = "csv"
	// FormatJSON renders the full report including every check and metric.
	FormatJSON Format = "json"

	unsupportedFormatTemplateConstant = "unsupported report format: %q"
	reportFileModeConstant            = 0o644
)

// Format identifies a supported report rendering.
type Format string

// ParseFormat maps a configuration value onto a Format.
func ParseFormat(value string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(value))) {
	case FormatTable, "":
		return FormatTable, nil
	case FormatCSV:
		return FormatCSV, nil
	case FormatJSON:
		return FormatJSON, nil
	default:
		return "", fmt.Errorf(unsupportedFormatTemplateConstant, value)
	}
}

// RepositoryReport is the renderable result for one audited repository.
type RepositoryReport struct {
	Repository     string            `json:"repository"`
	Checks         checklist.Result  `json:"checks,omitempty"`
	Metrics        prmetrics.Metrics `json:"pull_request_metrics"`
	Score          int               `json:"score"`
	MaximumScore   int               `json:"maximum_score"`
	Threshold      int               `json:"threshold"`
	Verdict        string            `json:"verdict"`
	Failed         bool              `json:"failed"`
	FailureMessage string            `json:"failure_message,omitempty"`

	// SuccessMessage is the sentinel marking passing checks; the table
	// rendering uses it to isolate failing checks.
	SuccessMessage string `json:"-"`
}

// Write renders the reports in the requested format to the writer.
func Write(destination io.Writer, reports []RepositoryReport, format Format) error {
	switch format {
	case FormatCSV:
		return writeCSV(destination, reports)
	case FormatJSON:
		return writeJSON(destination, reports)
	default:
		return writeTable(destination, reports)
	}
}

// WriteToFile renders the reports into the named file, creating or truncating
// it. A blank path falls back to standard output.
func WriteToFile(filePath string, reports []RepositoryReport, format Format) error {
	trimmedPath := strings.TrimSpace(filePath)
	if len(trimmedPath) == 0 {
		return Write(os.Stdout, reports, format)
	}

	outputFile, openError := os.OpenFile(trimmedPath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, reportFileModeConstant)
	if openError != nil {
		return openError
	}
	defer func() {
		_ = outputFile.Close()
	}()

	return Write(outputFile, reports, format)
}
