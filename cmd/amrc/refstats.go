package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/meshops/retrain-controller/internal/refstats"
)

var (
	refstatsCSV     string
	refstatsOut     string
	refstatsMaxRows int
)

var refstatsCmd = &cobra.Command{
	Use:   "refstats",
	Short: "Manage the reference statistics baseline",
}

var refstatsBuildCmd = &cobra.Command{
	Use:   "build",
	Short: "Build per-column baseline stats from a snapshot CSV",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := refstats.Build(refstatsCSV, refstatsMaxRows)
		if err != nil {
			return err
		}
		if err := refstats.Save(refstatsOut, st); err != nil {
			return err
		}
		fmt.Printf("wrote %s: %d columns\n", refstatsOut, len(st.Columns))
		return nil
	},
}

func init() {
	refstatsBuildCmd.Flags().StringVar(&refstatsCSV, "csv", "", "snapshot CSV with header row (required)")
	refstatsBuildCmd.Flags().StringVar(&refstatsOut, "out", "", "output JSON path (required)")
	refstatsBuildCmd.Flags().IntVar(&refstatsMaxRows, "max-rows", refstats.MaxBuildRows, "cap on rows per column")
	refstatsBuildCmd.MarkFlagRequired("csv")
	refstatsBuildCmd.MarkFlagRequired("out")
	refstatsCmd.AddCommand(refstatsBuildCmd)
	rootCmd.AddCommand(refstatsCmd)
}
