package scoring

import (
	"context"
	"errors"
)

// ErrUnavailable is the single failure a scorer reports to callers. Process
// crashes, empty output, malformed output and timeouts are logged with their
// cause but are deliberately indistinguishable through the API.
var ErrUnavailable = errors.New("risk scoring unavailable")

// Result is one scoring outcome. RiskLevel is always one of Low/Medium/High
// and Suggestion is always non-empty on success.
type Result struct {
	RiskLevel  string `json:"riskLevel"`
	Suggestion string `json:"suggestion"`
}

// Scorer classifies a student's academic risk from three numeric features.
// Implementations hold no shared mutable state; calls may run concurrently.
type Scorer interface {
	Score(ctx context.Context, attendance, internalMarks, cgpa float64) (*Result, error)
}
