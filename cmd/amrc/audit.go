package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/meshops/retrain-controller/internal/audit"
)

var (
	auditLast int
	auditJSON bool
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Show recent decisions from the audit log",
	RunE: func(cmd *cobra.Command, args []string) error {
		if auditDB == "" {
			return fmt.Errorf("audit requires --audit-db (or AMRC_AUDIT_DB)")
		}
		l, err := audit.Open(auditDB)
		if err != nil {
			return err
		}
		defer l.Close()

		rows, err := l.Recent(auditLast)
		if err != nil {
			return err
		}

		if auditJSON {
			out, err := json.MarshalIndent(rows, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(out))
			return nil
		}

		for _, r := range rows {
			flag := " "
			if r.Retrain {
				flag = "R"
			}
			if r.Fallback {
				flag = "F"
			}
			fmt.Printf("%s  %s  score=%.4f theta=%.4f  %s\n",
				flag, r.DecisionID, r.Score, r.Theta, r.CreatedAt)
		}
		return nil
	},
}

func init() {
	auditCmd.Flags().IntVar(&auditLast, "last", 20, "show N most recent decisions")
	auditCmd.Flags().BoolVar(&auditJSON, "json", false, "output as JSON instead of a table")
	rootCmd.AddCommand(auditCmd)
}
