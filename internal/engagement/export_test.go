package engagement

import (
	"bytes"
	"encoding/csv"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/moodle-engagement-api/pkg/export"
)

func TestSummaryCSVRoundTrip(t *testing.T) {
	result := runFixture(t)

	out, err := export.NewCSVExporter().Render(SummaryDataset(result.Summaries, time.UTC))
	require.NoError(t, err)

	records, err := csv.NewReader(bytes.NewReader(out)).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, len(result.Summaries)+1)
	assert.Equal(t, SummaryHeaders, records[0])

	atoi := func(raw string) int {
		n, err := strconv.Atoi(raw)
		require.NoError(t, err)
		return n
	}
	for i, record := range records[1:] {
		want := result.Summaries[i]
		lastAccess, err := time.ParseInLocation(LastAccessLayout, record[1], time.UTC)
		require.NoError(t, err)
		status, err := ParseStatus(record[8])
		require.NoError(t, err)

		got := StudentSummary{
			UserFullName: record[0],
			LastAccess:   lastAccess,
			TotalEvents:  atoi(record[2]),
			ActiveDays:   atoi(record[3]),
			ContentViews: atoi(record[4]),
			CourseViews:  atoi(record[5]),
			Submissions:  atoi(record[6]),
			InactiveDays: atoi(record[7]),
			Status:       status,
		}
		assert.Equal(t, want, got)
	}
}
