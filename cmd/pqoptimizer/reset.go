package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/goodtune/pqoptimizer/internal/config"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var resetYes bool

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Delete all recorded usage",
	Long:  `Remove the usage store from the configured backend. Totals, sessions and pattern counts are lost.`,
	RunE:  runReset,
}

func init() {
	resetCmd.Flags().BoolVarP(&resetYes, "yes", "y", false, "Do not prompt for confirmation")
	rootCmd.AddCommand(resetCmd)
}

func runReset(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	if !resetYes {
		fmt.Fprint(out, "This permanently deletes all usage analytics. Continue? [y/N] ")
		answer, _ := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
		answer = strings.ToLower(strings.TrimSpace(answer))
		if answer != "y" && answer != "yes" {
			fmt.Fprintln(out, "Aborted.")
			return nil
		}
	}

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
	if err := newRecorder(cfg, store, logger).Reset(cmd.Context()); err != nil {
		return fmt.Errorf("failed to reset usage: %w", err)
	}

	_, _ = color.New(color.FgGreen).Fprintf(out, "✅ Usage analytics cleared (%s storage)\n", cfg.Storage.Type)
	return nil
}
