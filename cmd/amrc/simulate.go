package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/meshops/retrain-controller/internal/replay"
	"github.com/meshops/retrain-controller/internal/state"
)

var (
	simulateCycles  string
	simulateVerbose bool
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Replay recorded cycles in memory to study parameter drift",
	Long: `simulate runs a JSON file of recorded cycles (normalized signals plus
outcome feedback) through the scoring and adaptation rules against an
in-memory copy of the current state. The live state file is never
written.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		store, err := state.NewStore(statePath)
		if err != nil {
			return err
		}
		start, err := store.Get()
		if err != nil {
			return err
		}

		raw, err := os.ReadFile(simulateCycles)
		if err != nil {
			return fmt.Errorf("read cycles: %w", err)
		}
		var cycles []replay.Cycle
		if err := json.Unmarshal(raw, &cycles); err != nil {
			return fmt.Errorf("parse cycles: %w", err)
		}

		results, sum := replay.Run(start, cycles, cfg)
		if simulateVerbose {
			for _, r := range results {
				fmt.Printf("cycle %3d: score=%.4f retrain=%v theta=%.4f w=%v\n",
					r.Index, r.Score, r.Retrain, r.State.Theta, r.State.W)
			}
		}
		out, err := json.MarshalIndent(sum, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	},
}

func init() {
	simulateCmd.Flags().StringVar(&simulateCycles, "cycles", "", "JSON file of recorded cycles (required)")
	simulateCmd.Flags().BoolVar(&simulateVerbose, "verbose", false, "print per-cycle results")
	simulateCmd.MarkFlagRequired("cycles")
	rootCmd.AddCommand(simulateCmd)
}
