package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/goodtune/pqoptimizer/internal/analytics"
	"github.com/goodtune/pqoptimizer/internal/config"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var (
	statsJSON bool
	statsCSV  bool
)

// nowFunc is replaced in tests.
var nowFunc = time.Now

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show usage analytics",
	Long:  `Read the usage store from the configured backend and print the summary and trend analytics.`,
	RunE:  runStats,
}

func init() {
	statsCmd.Flags().BoolVar(&statsJSON, "json", false, "Print analytics as JSON")
	statsCmd.Flags().BoolVar(&statsCSV, "csv", false, "Print the CSV analytics export")
	statsCmd.MarkFlagsMutuallyExclusive("json", "csv")
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	store, err := openStorage(cfg.Storage)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer store.Close()

	logger := zerolog.New(os.Stderr).Level(zerolog.WarnLevel)
	usageStore, err := newRecorder(cfg, store, logger).Load(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to load usage: %w", err)
	}

	now := nowFunc().In(cfg.Analytics.Location())
	summary := analytics.Summarize(usageStore, now)
	adv := analytics.Advanced(usageStore.Sessions, now)

	out := cmd.OutOrStdout()
	switch {
	case statsJSON:
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(struct {
			analytics.Summary
			Advanced analytics.AdvancedAnalytics `json:"advanced"`
		}{summary, adv})
	case statsCSV:
		return analytics.WriteCSV(out, now, summary, adv, usageStore.Patterns)
	default:
		renderStats(out, summary, adv)
		return nil
	}
}
