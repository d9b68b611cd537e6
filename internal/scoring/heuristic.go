package scoring

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/girijasivakumar242/IARS/internal/storage/models"
)

// Weak-feature thresholds used by the builtin scorer's advisory rules.
const (
	lowAttendance    = 60.0
	lowInternalMarks = 50.0
	lowCGPA          = 6.0
)

// HeuristicScorer is an in-process scorer for deployments without the
// external model. The risk level follows the number of weak features: none is
// Low, one is Medium, two or more is High.
type HeuristicScorer struct{}

func NewHeuristicScorer() *HeuristicScorer {
	return &HeuristicScorer{}
}

func (h *HeuristicScorer) Score(_ context.Context, attendance, internalMarks, cgpa float64) (*Result, error) {
	for _, v := range []float64{attendance, internalMarks, cgpa} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("scorer features must be finite numbers")
		}
	}

	var suggestions []string

	if attendance < lowAttendance {
		suggestions = append(suggestions, "Attend classes regularly to improve understanding.")
	}
	if internalMarks < lowInternalMarks {
		suggestions = append(suggestions, "Focus more on internal assessments, assignments, and tests.")
	}
	if cgpa < lowCGPA {
		suggestions = append(suggestions, "Concentrate on core subjects and improve overall academic performance.")
	}

	level := models.RiskLow
	switch len(suggestions) {
	case 0:
		suggestions = append(suggestions, "Maintain consistency and continue current academic efforts.")
	case 1:
		level = models.RiskMedium
	default:
		level = models.RiskHigh
	}

	return &Result{
		RiskLevel:  level,
		Suggestion: strings.Join(suggestions, " "),
	}, nil
}
