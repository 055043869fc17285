package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/lunarbtc/moon-analyzer/internal/config"
	"github.com/lunarbtc/moon-analyzer/internal/domain"
	"github.com/lunarbtc/moon-analyzer/internal/ingestion"
	"github.com/lunarbtc/moon-analyzer/internal/service"
	"github.com/lunarbtc/moon-analyzer/internal/storage/memstore"
	pkglogger "github.com/lunarbtc/moon-analyzer/pkg/logger"
)

func main() {
	// Services log through the shared zap logger; keep the CLI quiet
	// unless something goes wrong.
	if err := pkglogger.Init("warn", true); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	defer pkglogger.Close()

	var rootCmd = &cobra.Command{
		Use:   "moon-analyzer",
		Short: "Lunar phase / Bitcoin volatility analyzer CLI",
		Long: `CLI for the lunar phase / Bitcoin volatility analyzer.
Loads the two CSV snapshots and answers aggregation queries locally.`,
	}

	var aggregateCmd = &cobra.Command{
		Use:   "aggregate",
		Short: "Aggregate price-range volatility by moon phase",
		Long: `Aggregates daily Bitcoin price-range volatility by moon phase over
the last N lunar cycles, anchored on recorded New Moon dates.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cycles, _ := cmd.Flags().GetInt("cycles")
			dataDir, _ := cmd.Flags().GetString("data")
			return runAggregate(cycles, dataDir)
		},
	}

	aggregateCmd.Flags().IntP("cycles", "c", 12, "Lookback window in lunar cycles")
	aggregateCmd.Flags().StringP("data", "d", "", "Data directory (default from DATA_DIR)")

	var cyclesCmd = &cobra.Command{
		Use:   "cycles",
		Short: "List recorded New-Moon-to-New-Moon cycles",
		RunE: func(cmd *cobra.Command, args []string) error {
			dataDir, _ := cmd.Flags().GetString("data")
			return runCycles(dataDir)
		},
	}

	cyclesCmd.Flags().StringP("data", "d", "", "Data directory (default from DATA_DIR)")

	var validateCmd = &cobra.Command{
		Use:   "validate",
		Short: "Validate both CSV files and report bad rows",
		RunE: func(cmd *cobra.Command, args []string) error {
			dataDir, _ := cmd.Flags().GetString("data")
			return runValidate(dataDir)
		},
	}

	validateCmd.Flags().StringP("data", "d", "", "Data directory (default from DATA_DIR)")

	var listCmd = &cobra.Command{
		Use:   "list",
		Short: "List CSV files in the data directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			dataDir, _ := cmd.Flags().GetString("dir")
			return listFiles(dataDir)
		},
	}

	listCmd.Flags().StringP("dir", "d", "./data", "Data directory")

	rootCmd.AddCommand(aggregateCmd, cyclesCmd, validateCmd, listCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

// loadConfig applies an optional --data override on top of the
// environment configuration.
func loadConfig(dataDir string) *config.Config {
	cfg := config.Load()
	if dataDir != "" {
		cfg.DataDir = dataDir
	}
	return cfg
}

// loadStore ingests both CSV files into a fresh in-memory store.
func loadStore(cfg *config.Config) (*memstore.Store, error) {
	store := memstore.New()
	parser := ingestion.NewParser(cfg.BatchSize, cfg.Workers)
	ingestionService := service.NewIngestionService(parser, store, cfg.MoonPath(), cfg.PricePath())

	result, err := ingestionService.LoadAll(context.Background())
	if err != nil {
		return nil, err
	}

	fmt.Printf("📥 Loaded %d moon rows and %d price rows", result.MoonRows, result.PriceRows)
	if result.RejectedRows > 0 {
		fmt.Printf(" (%d rows rejected)", result.RejectedRows)
	}
	fmt.Println()

	return store, nil
}

func runAggregate(cycles int, dataDir string) error {
	if cycles < 1 {
		return fmt.Errorf("cycles must be at least 1, got %d", cycles)
	}

	cfg := loadConfig(dataDir)
	store, err := loadStore(cfg)
	if err != nil {
		return err
	}

	aggregationService := service.NewAggregationService(store)
	result, err := aggregationService.GetPhaseAggregation(context.Background(), cycles)
	if err != nil {
		return fmt.Errorf("aggregation failed: %w", err)
	}

	fmt.Printf("\n🌑 Volatility by moon phase, last %s", domain.PeriodLabel(result.Cycles))
	if result.WindowStart != nil {
		fmt.Printf(" (window start %s)", result.WindowStart.Format("2006-01-02"))
	}
	fmt.Println()
	fmt.Println()

	fmt.Printf("%-15s %8s %8s %8s %9s\n", "Phase", "Avg", "Max", "Min", "Samples")
	for _, summary := range result.Summaries {
		fmt.Printf("%-15s %8s %8s %8s %9d\n",
			summary.Phase,
			summary.AvgRange.StringFixed(2),
			summary.MaxRange.StringFixed(2),
			summary.MinRange.StringFixed(2),
			summary.Count)
	}

	fmt.Printf("\n├─ Period average: %s%%\n", result.PeriodAverage.StringFixed(2))
	fmt.Printf("└─ Rows in window: %d moon / %d price\n", result.MoonRowCount, result.PriceRowCount)

	return nil
}

func runCycles(dataDir string) error {
	cfg := loadConfig(dataDir)
	store, err := loadStore(cfg)
	if err != nil {
		return err
	}

	cycles, err := service.NewDatasetService(store).ListCycles(context.Background())
	if err != nil {
		return err
	}

	if len(cycles) == 0 {
		fmt.Println("❌ No complete lunar cycles recorded")
		return nil
	}

	fmt.Printf("\n🌒 %d recorded lunar cycles:\n\n", len(cycles))

	totalDays := 0
	for _, cycle := range cycles {
		fmt.Printf("  %s → %s  (%d days)\n",
			cycle.Start.Format("2006-01-02"),
			cycle.End.Format("2006-01-02"),
			cycle.Days)
		totalDays += cycle.Days
	}

	fmt.Printf("\n└─ Average cycle length: %.1f days\n", float64(totalDays)/float64(len(cycles)))

	return nil
}

func runValidate(dataDir string) error {
	cfg := loadConfig(dataDir)
	parser := ingestion.NewParser(cfg.BatchSize, cfg.Workers)
	ctx := context.Background()

	failed := false

	fmt.Printf("🔍 Validating %s\n", cfg.MoonPath())
	moonFile, err := os.Open(cfg.MoonPath())
	if err != nil {
		fmt.Printf("❌ %v\n", err)
		failed = true
	} else {
		result, err := parser.ParseMoonFile(ctx, moonFile)
		moonFile.Close()
		if err != nil {
			fmt.Printf("❌ %v\n", err)
			failed = true
		} else {
			reportParse(len(result.Rows), result.Missing, result.Errors)
		}
	}

	fmt.Printf("\n🔍 Validating %s\n", cfg.PricePath())
	priceFile, err := os.Open(cfg.PricePath())
	if err != nil {
		fmt.Printf("❌ %v\n", err)
		failed = true
	} else {
		result, err := parser.ParsePriceFile(ctx, priceFile)
		priceFile.Close()
		if err != nil {
			fmt.Printf("❌ %v\n", err)
			failed = true
		} else {
			reportParse(len(result.Rows), result.Missing, result.Errors)
		}
	}

	if failed {
		return fmt.Errorf("validation failed")
	}

	fmt.Println("\n✅ Validation complete")
	return nil
}

func reportParse(rows, missing int, rowErrors []error) {
	fmt.Printf("✅ %d rows parsed, %d missing range values, %d rejected\n", rows, missing, len(rowErrors))
	for i, rowErr := range rowErrors {
		if i >= 10 {
			fmt.Printf("   ... and %d more\n", len(rowErrors)-10)
			break
		}
		fmt.Printf("   - %v\n", rowErr)
	}
}

func listFiles(dataDir string) error {
	fmt.Printf("📂 Listing files in %s\n\n", dataDir)

	csvFiles, err := filepath.Glob(filepath.Join(dataDir, "*.csv"))
	if err != nil {
		return err
	}

	if len(csvFiles) == 0 {
		fmt.Println("❌ No CSV files found")
		return nil
	}

	fmt.Printf("📊 %d CSV files:\n", len(csvFiles))
	totalSize := int64(0)
	for _, file := range csvFiles {
		info, err := os.Stat(file)
		if err != nil {
			fmt.Printf("  - %-30s (unreadable: %v)\n", filepath.Base(file), err)
			continue
		}
		size := info.Size()
		totalSize += size

		fmt.Printf("  - %-30s %10s\n",
			filepath.Base(file),
			formatBytes(size))
	}
	fmt.Printf("\n💾 Total size: %s\n", formatBytes(totalSize))

	return nil
}

func formatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
