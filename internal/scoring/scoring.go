package scoring

import (
	"strings"

	"go.uber.org/zap"

	"github.com/temirov/repoaudit/internal/checklist"
)

const (
	unknownCheckKeyMessageConstant = "rule weight references unknown check key"
	missingResultMessageConstant   = "weighted check absent from results"
	logFieldCheckKeyConstant       = "check_key"
	verdictPassValueConstant       = "PASS"
	verdictFailValueConstant       = "FAIL"
)

// Verdict reports whether a repository's score cleared the threshold.
type Verdict string

// Verdict values.
const (
	VerdictPass Verdict = Verdict(verdictPassValueConstant)
	VerdictFail Verdict = Verdict(verdictFailValueConstant)
)

// RuleWeights maps check keys to non-negative weights and carries the passing
// threshold.
type RuleWeights struct {
	Weights        map[string]int
	Threshold      int
	SuccessMessage string
}

// Sanitize applies the default success sentinel and drops negative weights.
func (weights RuleWeights) Sanitize() RuleWeights {
	sanitized := RuleWeights{
		Weights:        make(map[string]int, len(weights.Weights)),
		Threshold:      weights.Threshold,
		SuccessMessage: strings.TrimSpace(weights.SuccessMessage),
	}
	if len(sanitized.SuccessMessage) == 0 {
		sanitized.SuccessMessage = checklist.DefaultSuccessMessage
	}
	for checkKey, weight := range weights.Weights {
		if weight < 0 {
			continue
		}
		sanitized.Weights[checkKey] = weight
	}
	return sanitized
}

// MaximumScore returns the sum of all configured weights.
func (weights RuleWeights) MaximumScore() int {
	total := 0
	for _, weight := range weights.Weights {
		total += weight
	}
	return total
}

// CalculateScore sums the weights of every passing check. Weight keys that do
// not name a known check, or that are absent from the result set, contribute
// zero and are logged rather than treated as errors.
func CalculateScore(results checklist.Result, weights RuleWeights, logger *zap.Logger) int {
	if logger == nil {
		logger = zap.NewNop()
	}
	sanitized := weights.Sanitize()

	score := 0
	for checkKey, weight := range sanitized.Weights {
		check, known := checklist.Lookup(checkKey)
		if !known {
			logger.Info(unknownCheckKeyMessageConstant, zap.String(logFieldCheckKeyConstant, checkKey))
			continue
		}
		resultMessage, present := results[check]
		if !present {
			logger.Info(missingResultMessageConstant, zap.String(logFieldCheckKeyConstant, checkKey))
			continue
		}
		if resultMessage == sanitized.SuccessMessage {
			score += weight
		}
	}
	return score
}

// DetermineVerdict passes only scores strictly greater than the threshold.
func DetermineVerdict(score int, threshold int) Verdict {
	if score > threshold {
		return VerdictPass
	}
	return VerdictFail
}
