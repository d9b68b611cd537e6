package ingestion

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCSV(t *testing.T) {
	input := `name,rollNo,attendance,internalMarks,cgpa
Asha,21CS042,45,30,5.2
Bilal,21CS043,90,80,9.1
`

	rows, err := ParseCSV(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, RawRow{
		Name:          "Asha",
		RollNo:        "21CS042",
		Attendance:    "45",
		InternalMarks: "30",
		CGPA:          "5.2",
	}, rows[0])
	assert.Equal(t, "Bilal", rows[1].Name)
}

func TestParseCSVIgnoresExtraColumnsAndHeaderCase(t *testing.T) {
	input := `Section,Name,RollNo,Attendance,InternalMarks,CGPA,Notes
A,Asha,21CS042,45,30,5.2,promising
`

	rows, err := ParseCSV(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, rows, 1)

	assert.Equal(t, "Asha", rows[0].Name)
	assert.Equal(t, "45", rows[0].Attendance)
}

func TestParseCSVShortRowReadsAsEmptyFields(t *testing.T) {
	input := `name,rollNo,attendance,internalMarks,cgpa
Asha,21CS042
`

	rows, err := ParseCSV(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, rows, 1)

	// The truncated cells come back empty; the import loop skips the row.
	assert.Equal(t, "Asha", rows[0].Name)
	assert.Empty(t, rows[0].Attendance)
	assert.Empty(t, rows[0].CGPA)
}

func TestParseCSVUnreadableSources(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{name: "empty input", input: ""},
		{name: "missing required column", input: "name,rollNo,attendance\nAsha,21CS042,45\n"},
		{name: "broken quoting", input: "name,rollNo,attendance,internalMarks,cgpa\n\"Asha,21CS042,45,30,5.2\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows, err := ParseCSV(strings.NewReader(tt.input))
			assert.ErrorIs(t, err, ErrSourceUnreadable)
			assert.Nil(t, rows)
		})
	}
}

func TestParseCSVHeaderOnly(t *testing.T) {
	rows, err := ParseCSV(strings.NewReader("name,rollNo,attendance,internalMarks,cgpa\n"))
	require.NoError(t, err)
	assert.Empty(t, rows)
}
