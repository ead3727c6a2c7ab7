package report

import (
	"encoding/csv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/refbundle/refbundle/internal/refs"
)

func TestCSV(t *testing.T) {
	t.Parallel()

	rep := refs.BatchReport{
		BatchID: "batch-1",
		Rows: []refs.ReportRow{
			{
				ID:         1,
				Title:      "Attention Is All You Need",
				SourceURL:  "https://example.org/paper.pdf",
				Status:     refs.StatusDownloaded,
				OutputName: "attention.pdf",
			},
			{
				ID:        2,
				Title:     "Blocked, with \"quotes\"",
				SourceURL: "https://example.org/articles/2",
				Status:    refs.StatusFailed,
				Error:     "blocked by source: access denied",
			},
		},
		Succeeded: 1,
		Failed:    1,
		Duration:  time.Second,
	}

	payload, err := CSV(rep)
	require.NoError(t, err)

	records, err := csv.NewReader(strings.NewReader(string(payload))).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)

	require.Equal(t, []string{"id", "title", "source_url", "status", "output_name", "error"}, records[0])
	require.Equal(t, []string{"1", "Attention Is All You Need", "https://example.org/paper.pdf", "downloaded", "attention.pdf", ""}, records[1])
	require.Equal(t, "Blocked, with \"quotes\"", records[2][1])
	require.Equal(t, "failed", records[2][3])
}

func TestCSVEmptyReport(t *testing.T) {
	t.Parallel()

	payload, err := CSV(refs.BatchReport{BatchID: "batch-2"})
	require.NoError(t, err)

	records, err := csv.NewReader(strings.NewReader(string(payload))).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 1)
}
