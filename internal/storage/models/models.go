package models

import "time"

// Risk classification levels assigned by the scorer.
const (
	RiskLow    = "Low"
	RiskMedium = "Medium"
	RiskHigh   = "High"
)

// Student is a single tracked student, owned by the teacher that created it.
// RiskLevel and Suggestion are always written together with the feature
// values; a row never carries one without the other.
type Student struct {
	ID            string  `json:"id"`
	TeacherID     string  `json:"teacher"`
	Name          string  `json:"name"`
	RollNo        string  `json:"rollNo"`
	Attendance    float64 `json:"attendance"`
	InternalMarks float64 `json:"internalMarks"`
	CGPA          float64 `json:"cgpa"`
	RiskLevel     string  `json:"riskLevel"`
	Suggestion    string  `json:"suggestion"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type Teacher struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}

// RiskSummary is the per-teacher aggregate over current records.
type RiskSummary struct {
	Total  int `json:"totalStudents"`
	High   int `json:"highRisk"`
	Medium int `json:"mediumRisk"`
	Low    int `json:"lowRisk"`
}

// ImportSummary reports per-row outcomes of one bulk import.
type ImportSummary struct {
	Imported       int `json:"imported"`
	SkippedInvalid int `json:"skippedInvalid"`
	SkippedScoring int `json:"skippedScoring"`
}

func ValidRiskLevel(level string) bool {
	return level == RiskLow || level == RiskMedium || level == RiskHigh
}
