package main

import (
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/meshops/retrain-controller/internal/audit"
	"github.com/meshops/retrain-controller/internal/config"
	"github.com/meshops/retrain-controller/internal/controller"
)

// #region root

var (
	// Global flags
	statePath string
	cfgFile   string
	auditDB   string
)

// rootCmd is the base command when called without subcommands.
var rootCmd = &cobra.Command{
	Use:   "amrc",
	Short: "Adaptive multi-signal retrain controller",
	Long: `amrc decides whether a model should retrain now by combining
normalized drift, entropy, cost, and fatigue signals into a score
compared against a learned threshold, then adapts its own weights and
threshold from observed outcomes.

Typical cycle:
  amrc refstats build   build the reference baseline from a snapshot
  amrc decide           score the latest batch against the baseline
  amrc retrained        stamp the cooldown clock after retraining
  amrc adapt            feed the observed outcome back in`,
	SilenceUsage: true,
}

// Execute runs the CLI.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&statePath, "state", envOr("AMRC_STATE", "amrc_state.json"), "path to the persisted engine state file")
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", os.Getenv("AMRC_CONFIG"), "optional YAML config file")
	rootCmd.PersistentFlags().StringVar(&auditDB, "audit-db", os.Getenv("AMRC_AUDIT_DB"), "optional SQLite audit log path")
}

// #endregion root

// #region helpers

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// loadConfig resolves defaults, then the optional config file, then
// AMRC_* environment overrides.
func loadConfig() (config.Config, error) {
	cfg := config.DefaultConfig()
	if cfgFile != "" {
		loaded, err := config.Load(cfgFile)
		if err != nil {
			return config.Config{}, err
		}
		cfg = loaded
	}
	return config.ApplyEnv(cfg), nil
}

// buildController wires a live controller, degrading to fallback mode
// when the store cannot be constructed at all.
func buildController(cfg config.Config) *controller.Controller {
	c, err := controller.New(statePath, cfg)
	if err != nil {
		log.Printf("[AMRC] state store unavailable at %s, entering fallback mode: %v", statePath, err)
		return controller.NewFallback(cfg)
	}
	return c
}

// openAudit opens the audit log when --audit-db is set; nil otherwise.
func openAudit() (*audit.Log, error) {
	if auditDB == "" {
		return nil, nil
	}
	l, err := audit.Open(auditDB)
	if err != nil {
		return nil, fmt.Errorf("open audit log: %w", err)
	}
	return l, nil
}

// #endregion helpers
