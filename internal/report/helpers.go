package report

import (
	"sort"
	"strconv"

	"github.com/temirov/repoaudit/internal/checklist"
)

const optionalFloatFormatPrecisionConstant = 2

func formatOptionalFloat(value *float64) string {
	if value == nil {
		return missingValueCellConstant
	}
	return strconv.FormatFloat(*value, 'f', optionalFloatFormatPrecisionConstant, 64)
}

// sortedFailingChecks returns the keys of every non-passing check in
// deterministic order.
func sortedFailingChecks(repositoryReport RepositoryReport) []checklist.Check {
	failingChecks := make([]checklist.Check, 0, len(repositoryReport.Checks))
	for checkKey, message := range repositoryReport.Checks {
		if message == repositoryReport.successSentinel() {
			continue
		}
		failingChecks = append(failingChecks, checkKey)
	}
	sort.Slice(failingChecks, func(firstIndex int, secondIndex int) bool {
		return failingChecks[firstIndex] < failingChecks[secondIndex]
	})
	return failingChecks
}

func (repositoryReport RepositoryReport) successSentinel() string {
	if len(repositoryReport.SuccessMessage) > 0 {
		return repositoryReport.SuccessMessage
	}
	return checklist.DefaultSuccessMessage
}
