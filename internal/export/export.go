// internal/export/export.go
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/rovshanmuradov/token-launcher/internal/storage/models"
)

// ExportFormat represents the export file format
type ExportFormat string

const (
	FormatCSV  ExportFormat = "csv"
	FormatJSON ExportFormat = "json"
)

// ExportOptions configures the export behavior
type ExportOptions struct {
	Format        ExportFormat
	StartTime     time.Time
	EndTime       time.Time
	MintFilter    string
	OnlyConfirmed bool
	OutputDir     string
}

// LaunchExporter выгружает историю запусков в файл.
type LaunchExporter struct {
	logger *zap.Logger
}

func NewLaunchExporter(logger *zap.Logger) *LaunchExporter {
	return &LaunchExporter{logger: logger.Named("export")}
}

// ExportLaunches writes the launches matching options to a new file in
// options.OutputDir and returns its path.
func (le *LaunchExporter) ExportLaunches(launches []*models.Launch, options ExportOptions) (string, error) {
	filtered := le.filterLaunches(launches, options)
	if len(filtered) == 0 {
		return "", fmt.Errorf("no launches match the export criteria")
	}

	sort.Slice(filtered, func(i, j int) bool {
		return filtered[i].CreatedAt.Before(filtered[j].CreatedAt)
	})

	if err := os.MkdirAll(options.OutputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}
	outputPath := filepath.Join(options.OutputDir, le.generateFilename(options))

	var err error
	switch options.Format {
	case FormatCSV:
		err = le.exportToCSV(filtered, outputPath)
	case FormatJSON:
		err = le.exportToJSON(filtered, outputPath)
	default:
		err = fmt.Errorf("unsupported format: %s", options.Format)
	}
	if err != nil {
		return "", err
	}

	le.logger.Info("Launches exported",
		zap.String("file", outputPath),
		zap.Int("count", len(filtered)),
		zap.String("format", string(options.Format)))
	return outputPath, nil
}

func (le *LaunchExporter) filterLaunches(launches []*models.Launch, options ExportOptions) []*models.Launch {
	var filtered []*models.Launch
	for _, l := range launches {
		if !options.StartTime.IsZero() && l.CreatedAt.Before(options.StartTime) {
			continue
		}
		if !options.EndTime.IsZero() && l.CreatedAt.After(options.EndTime) {
			continue
		}
		if options.MintFilter != "" && l.Mint != options.MintFilter {
			continue
		}
		if options.OnlyConfirmed && l.Status != models.LaunchConfirmed {
			continue
		}
		filtered = append(filtered, l)
	}
	return filtered
}

func (le *LaunchExporter) generateFilename(options ExportOptions) string {
	timestamp := time.Now().Format("20060102_150405")
	prefix := "launches_all"
	if options.OnlyConfirmed {
		prefix = "launches_confirmed"
	}
	if len(options.MintFilter) >= 8 {
		prefix += "_" + options.MintFilter[:8]
	}
	return fmt.Sprintf("%s_%s.%s", prefix, timestamp, options.Format)
}

// CSVHeaders колонки CSV-выгрузки, в порядке toCSV.
func CSVHeaders() []string {
	return []string{
		"created_at", "launch_id", "status", "cluster", "payer", "mint", "ata", "signature",
		"name", "symbol", "decimals", "supply", "fee_lamports", "metadata_source",
		"revoke_mint", "revoke_freeze", "immutable", "vanity_matched", "attempts", "error",
	}
}

func toCSV(l *models.Launch) []string {
	return []string{
		l.CreatedAt.UTC().Format(time.RFC3339),
		l.LaunchID,
		l.Status,
		l.Cluster,
		l.Payer,
		l.Mint,
		l.ATA,
		l.Signature,
		l.Name,
		l.Symbol,
		strconv.Itoa(int(l.Decimals)),
		l.Supply,
		strconv.FormatUint(l.FeeLamports, 10),
		l.MetadataSource,
		strconv.FormatBool(l.RevokeMint),
		strconv.FormatBool(l.RevokeFreeze),
		strconv.FormatBool(l.Immutable),
		strconv.FormatBool(l.VanityMatched),
		strconv.Itoa(l.Attempts),
		l.ErrorMessage,
	}
}

func (le *LaunchExporter) exportToCSV(launches []*models.Launch, outputPath string) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write(CSVHeaders()); err != nil {
		return fmt.Errorf("failed to write CSV headers: %w", err)
	}
	for _, l := range launches {
		if err := writer.Write(toCSV(l)); err != nil {
			return fmt.Errorf("failed to write launch: %w", err)
		}
	}
	writer.Flush()
	return writer.Error()
}

func (le *LaunchExporter) exportToJSON(launches []*models.Launch, outputPath string) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create JSON file: %w", err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")

	exportData := struct {
		ExportTime  time.Time        `json:"export_time"`
		LaunchCount int              `json:"launch_count"`
		Launches    []*models.Launch `json:"launches"`
		Summary     ExportSummary    `json:"summary"`
	}{
		ExportTime:  time.Now().UTC(),
		LaunchCount: len(launches),
		Launches:    launches,
		Summary:     Summarize(launches),
	}
	if err := encoder.Encode(exportData); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}

// ExportSummary contains summary statistics for exported launches
type ExportSummary struct {
	TotalLaunches    int            `json:"total_launches"`
	Confirmed        int            `json:"confirmed"`
	Failed           int            `json:"failed"`
	TotalFeeLamports uint64         `json:"total_fee_lamports"`
	VanityMatched    int            `json:"vanity_matched"`
	MetadataSources  map[string]int `json:"metadata_sources"`
	StartDate        time.Time      `json:"start_date"`
	EndDate          time.Time      `json:"end_date"`
}

// Summarize считает статистику по запускам, отсортированным по времени.
func Summarize(launches []*models.Launch) ExportSummary {
	summary := ExportSummary{
		TotalLaunches:   len(launches),
		MetadataSources: make(map[string]int),
	}
	if len(launches) == 0 {
		return summary
	}
	summary.StartDate = launches[0].CreatedAt
	summary.EndDate = launches[len(launches)-1].CreatedAt

	for _, l := range launches {
		switch l.Status {
		case models.LaunchConfirmed:
			summary.Confirmed++
			// комиссия списывается только подтверждённой транзакцией
			summary.TotalFeeLamports += l.FeeLamports
		case models.LaunchFailed:
			summary.Failed++
		}
		if l.VanityMatched {
			summary.VanityMatched++
		}
		if l.MetadataSource != "" {
			summary.MetadataSources[l.MetadataSource]++
		}
	}
	return summary
}
