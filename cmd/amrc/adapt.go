package main

import (
	"fmt"
	"log"

	"github.com/spf13/cobra"
)

var (
	adaptError      float64
	adaptCostMin    float64
	adaptDecisionID string
)

var adaptCmd = &cobra.Command{
	Use:   "adapt",
	Short: "Feed an observed training outcome back into the controller",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		c := buildController(cfg)

		if err := c.Adapt(adaptError, adaptCostMin); err != nil {
			return err
		}

		if auditLog, err := openAudit(); err != nil {
			log.Printf("[AMRC] audit disabled: %v", err)
		} else if auditLog != nil {
			defer auditLog.Close()
			if err := auditLog.LogOutcome(adaptDecisionID, adaptError, adaptCostMin); err != nil {
				log.Printf("[AMRC] audit write failed: %v", err)
			}
		}

		fmt.Printf("adapted: error=%.4f cost_minutes=%.2f\n", adaptError, adaptCostMin)
		return nil
	},
}

func init() {
	adaptCmd.Flags().Float64Var(&adaptError, "error", 0, "observed outcome error in [0,1] (required)")
	adaptCmd.Flags().Float64Var(&adaptCostMin, "cost-minutes", 0, "observed training cost in minutes (required)")
	adaptCmd.Flags().StringVar(&adaptDecisionID, "decision-id", "", "decision this outcome answers, for the audit log")
	adaptCmd.MarkFlagRequired("error")
	adaptCmd.MarkFlagRequired("cost-minutes")
	rootCmd.AddCommand(adaptCmd)
}
