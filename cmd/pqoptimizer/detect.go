package main

import (
	"fmt"
	"io"
	"os"

	"github.com/goodtune/pqoptimizer/internal/source"
	"github.com/spf13/cobra"
)

var detectCmd = &cobra.Command{
	Use:   "detect [FILE|-]",
	Short: "Guess the data source of a Power Query M script",
	Long:  `Read Power Query M code from FILE, or standard input when FILE is omitted or "-", and print the detected data source label.`,
	Args:  cobra.MaximumNArgs(1),
	RunE:  runDetect,
}

func init() {
	rootCmd.AddCommand(detectCmd)
}

func runDetect(cmd *cobra.Command, args []string) error {
	var r io.Reader = cmd.InOrStdin()
	if len(args) == 1 && args[0] != "-" {
		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("failed to open %s: %w", args[0], err)
		}
		defer f.Close()
		r = f
	}

	code, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("failed to read code: %w", err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), source.Detect(string(code)))
	return nil
}
