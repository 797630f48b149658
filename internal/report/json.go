package report

import (
	"encoding/json"
	"io"
)

const jsonIndentConstant = "  "

// writeJSON renders the full report including every check and metric.
func writeJSON(destination io.Writer, reports []RepositoryReport) error {
	encoder := json.NewEncoder(destination)
	encoder.SetIndent("", jsonIndentConstant)
	return encoder.Encode(reports)
}
