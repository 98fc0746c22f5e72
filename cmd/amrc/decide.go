package main

import (
	"encoding/json"
	"fmt"
	"log"

	"github.com/spf13/cobra"
)

var (
	decideRef   string
	decideData  string
	decideProbs string
	decideJSON  bool
)

var decideCmd = &cobra.Command{
	Use:   "decide",
	Short: "Score the latest batch and decide whether to retrain",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		c := buildController(cfg)

		rec, err := c.Decide(decideRef, decideData, decideProbs)
		if err != nil {
			return err
		}

		if auditLog, err := openAudit(); err != nil {
			log.Printf("[AMRC] audit disabled: %v", err)
		} else if auditLog != nil {
			defer auditLog.Close()
			if err := auditLog.LogDecision(rec); err != nil {
				log.Printf("[AMRC] audit write failed: %v", err)
			}
		}

		if decideJSON {
			out, err := json.MarshalIndent(rec, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(out))
			return nil
		}

		fmt.Printf("decision %s\n", rec.ID)
		fmt.Printf("  signals  drift=%.4f entropy=%.4f cost=%.4f fatigue=%.4f\n",
			rec.Signals.Drift, rec.Signals.Entropy, rec.Signals.Cost, rec.Signals.Fatigue)
		fmt.Printf("  raw      wasserstein=%.4f data_mb=%.2f cost_min=%.2f\n",
			rec.Raw.DriftWasserstein, rec.Raw.DataMB, rec.Raw.CostMin)
		fmt.Printf("  params   w=%v theta=%.4f\n", rec.Weights, rec.Theta)
		fmt.Printf("  score=%.4f retrain=%v fallback=%v\n", rec.Score, rec.Retrain, rec.Fallback)
		return nil
	},
}

func init() {
	decideCmd.Flags().StringVar(&decideRef, "ref", "", "reference statistics JSON file (required)")
	decideCmd.Flags().StringVar(&decideData, "data", "", "new observations CSV with header row (required)")
	decideCmd.Flags().StringVar(&decideProbs, "probs", "", "optional per-row class probability CSV")
	decideCmd.Flags().BoolVar(&decideJSON, "json", false, "print the full decision record as JSON")
	decideCmd.MarkFlagRequired("ref")
	decideCmd.MarkFlagRequired("data")
	rootCmd.AddCommand(decideCmd)
}
