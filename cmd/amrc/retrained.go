package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var retrainedCmd = &cobra.Command{
	Use:   "retrained",
	Short: "Stamp the cooldown clock after an actual retrain",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		c := buildController(cfg)

		if err := c.MarkRetrained(); err != nil {
			return err
		}
		fmt.Println("marked retrained")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(retrainedCmd)
}
