// internal/export/export_test.go
package export

import (
	"encoding/csv"
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/rovshanmuradov/token-launcher/internal/storage/models"
)

func generateTestLaunches() []*models.Launch {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	mk := func(i int, status, source string, fee uint64, vanity bool) *models.Launch {
		l := &models.Launch{
			LaunchID:       "launch-" + string(rune('a'+i)),
			Cluster:        "devnet",
			Payer:          "payer",
			Mint:           "Mint" + string(rune('A'+i)) + "1111111111111111111111111111",
			Name:           "Token",
			Symbol:         "TKN",
			Decimals:       6,
			Supply:         "1000",
			FeeLamports:    fee,
			MetadataSource: source,
			VanityMatched:  vanity,
			Status:         status,
		}
		l.CreatedAt = base.Add(time.Duration(i) * time.Hour)
		return l
	}
	return []*models.Launch{
		mk(2, models.LaunchFailed, "inline", 5000, false),
		mk(0, models.LaunchConfirmed, "upload", 10_000, true),
		mk(1, models.LaunchConfirmed, "inline", 20_000, false),
	}
}

func TestLaunchExportCSV(t *testing.T) {
	exporter := NewLaunchExporter(zaptest.NewLogger(t))

	path, err := exporter.ExportLaunches(generateTestLaunches(), ExportOptions{
		Format:    FormatCSV,
		OutputDir: t.TempDir(),
	})
	require.NoError(t, err)

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)

	require.Len(t, rows, 4)
	assert.Equal(t, CSVHeaders(), rows[0])
	// отсортировано по времени
	assert.Equal(t, "launch-a", rows[1][1])
	assert.Equal(t, "launch-c", rows[3][1])
	assert.Equal(t, models.LaunchFailed, rows[3][2])
}

func TestLaunchExportJSONOnlyConfirmed(t *testing.T) {
	exporter := NewLaunchExporter(zaptest.NewLogger(t))

	path, err := exporter.ExportLaunches(generateTestLaunches(), ExportOptions{
		Format:        FormatJSON,
		OnlyConfirmed: true,
		OutputDir:     t.TempDir(),
	})
	require.NoError(t, err)
	assert.Contains(t, path, "launches_confirmed_")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var out struct {
		LaunchCount int           `json:"launch_count"`
		Summary     ExportSummary `json:"summary"`
	}
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, 2, out.LaunchCount)
	assert.Equal(t, uint64(30_000), out.Summary.TotalFeeLamports)
	assert.Equal(t, 1, out.Summary.VanityMatched)
	assert.Equal(t, map[string]int{"upload": 1, "inline": 1}, out.Summary.MetadataSources)
}

func TestLaunchExportFilters(t *testing.T) {
	exporter := NewLaunchExporter(zaptest.NewLogger(t))
	launches := generateTestLaunches()

	_, err := exporter.ExportLaunches(launches, ExportOptions{
		Format:     FormatCSV,
		MintFilter: "unknown",
		OutputDir:  t.TempDir(),
	})
	assert.Error(t, err)

	_, err = exporter.ExportLaunches(launches, ExportOptions{Format: "xml", OutputDir: t.TempDir()})
	assert.Error(t, err)

	filtered := exporter.filterLaunches(launches, ExportOptions{
		StartTime: time.Date(2026, 3, 1, 12, 30, 0, 0, time.UTC),
	})
	assert.Len(t, filtered, 2)
}

func TestSummarizeIgnoresFailedFees(t *testing.T) {
	s := Summarize(generateTestLaunches())
	assert.Equal(t, 3, s.TotalLaunches)
	assert.Equal(t, 2, s.Confirmed)
	assert.Equal(t, 1, s.Failed)
	assert.Equal(t, uint64(30_000), s.TotalFeeLamports)
}
