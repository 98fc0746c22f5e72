// Package config holds the controller's tunable scalers. Values come
// from defaults, then an optional YAML file, then AMRC_* environment
// overrides, in that order.
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// #region config

// Config scales and paces the decision rule. Weight sensitivities
// (alpha..delta) multiply the normalized signals before the dot
// product; lr is the online-adaptation step size.
type Config struct {
	Alpha         float64 `yaml:"alpha"`           // drift sensitivity
	Beta          float64 `yaml:"beta"`            // entropy sensitivity
	Gamma         float64 `yaml:"gamma"`           // cost penalty
	Delta         float64 `yaml:"delta"`           // fatigue penalty
	LR            float64 `yaml:"lr"`              // adaptation step size
	MinGapMinutes float64 `yaml:"min_gap_minutes"` // retrain cooldown window
	CostPerMin    float64 `yaml:"cost_per_min"`    // >0 converts minutes to a currency proxy
}

// DefaultConfig returns the documented defaults.
func DefaultConfig() Config {
	return Config{
		Alpha:         1.0,
		Beta:          1.0,
		Gamma:         1.0,
		Delta:         1.0,
		LR:            0.05,
		MinGapMinutes: 30.0,
		CostPerMin:    0,
	}
}

// #endregion config

// #region load

// Load reads a YAML config file over the defaults. Unknown keys are
// rejected so a typoed scaler name fails loudly instead of silently
// keeping its default.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	var node yaml.Node
	if err := yaml.Unmarshal(raw, &node); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	if node.Kind != 0 {
		if err := strictDecode(&node, &cfg); err != nil {
			return Config{}, fmt.Errorf("decode config: %w", err)
		}
	}
	return cfg, nil
}

func strictDecode(node *yaml.Node, out *Config) error {
	type plain Config
	known := map[string]bool{
		"alpha": true, "beta": true, "gamma": true, "delta": true,
		"lr": true, "min_gap_minutes": true, "cost_per_min": true,
	}
	if node.Kind == yaml.DocumentNode && len(node.Content) > 0 {
		node = node.Content[0]
	}
	if node.Kind == yaml.MappingNode {
		for i := 0; i < len(node.Content); i += 2 {
			if !known[node.Content[i].Value] {
				return fmt.Errorf("unrecognized option %q", node.Content[i].Value)
			}
		}
	}
	return node.Decode((*plain)(out))
}

// #endregion load

// #region env

// ApplyEnv overrides cfg fields from AMRC_* environment variables.
// Unset or unparsable variables leave the field untouched.
func ApplyEnv(cfg Config) Config {
	cfg.Alpha = envFloat("AMRC_ALPHA", cfg.Alpha)
	cfg.Beta = envFloat("AMRC_BETA", cfg.Beta)
	cfg.Gamma = envFloat("AMRC_GAMMA", cfg.Gamma)
	cfg.Delta = envFloat("AMRC_DELTA", cfg.Delta)
	cfg.LR = envFloat("AMRC_LR", cfg.LR)
	cfg.MinGapMinutes = envFloat("AMRC_MIN_GAP_MINUTES", cfg.MinGapMinutes)
	cfg.CostPerMin = envFloat("AMRC_COST_PER_MIN", cfg.CostPerMin)
	return cfg
}

func envFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}

// #endregion env
