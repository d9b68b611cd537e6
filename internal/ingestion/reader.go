package ingestion

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"

	"github.com/girijasivakumar242/IARS/pkg/logger"
)

// ErrSourceUnreadable means the batch input could not be parsed into rows at
// all. Row-level defects never raise it; they surface as skipped rows during
// import.
var ErrSourceUnreadable = errors.New("bulk input unreadable")

// RawRow is one unvalidated candidate student from a bulk sheet. Values stay
// raw strings here; type checks happen in the import loop so a bad cell costs
// one row, not the batch.
type RawRow struct {
	Name          string
	RollNo        string
	Attendance    string
	InternalMarks string
	CGPA          string
}

var requiredColumns = []string{"name", "rollno", "attendance", "internalmarks", "cgpa"}

// ParseCSV reads a student sheet: a header row naming at least the required
// columns (case-insensitive), then one row per student. Extra columns are
// ignored. A missing required column or a CSV-level parse failure is
// ErrSourceUnreadable.
func ParseCSV(r io.Reader) ([]RawRow, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("%w: no header row: %v", ErrSourceUnreadable, err)
	}

	index := make(map[string]int, len(header))
	for i, col := range header {
		index[normalizeColumn(col)] = i
	}
	for _, col := range requiredColumns {
		if _, ok := index[col]; !ok {
			return nil, fmt.Errorf("%w: missing column %q", ErrSourceUnreadable, col)
		}
	}

	var rows []RawRow
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrSourceUnreadable, err)
		}

		rows = append(rows, RawRow{
			Name:          field(record, index["name"]),
			RollNo:        field(record, index["rollno"]),
			Attendance:    field(record, index["attendance"]),
			InternalMarks: field(record, index["internalmarks"]),
			CGPA:          field(record, index["cgpa"]),
		})
	}

	logger.Debug("Student sheet parsed", zap.Int("rows", len(rows)))
	return rows, nil
}

func normalizeColumn(col string) string {
	return strings.ToLower(strings.TrimSpace(col))
}

// field tolerates short records; a missing cell reads as empty and the row is
// skipped later as invalid.
func field(record []string, i int) string {
	if i >= len(record) {
		return ""
	}
	return record[i]
}
