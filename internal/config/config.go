// Package config loads a crowd-sensing scenario's tunable parameters from a
// TOML document, layered over spec defaults the way the teacher's CLI
// layers flags over a config file.
package config

import (
	"fmt"

	"github.com/BurntSushi/toml"
)

// Scenario bundles every tunable parameter enumerated for the allocator,
// sense-map, and controller.
type Scenario struct {
	GridGranularity float64 `toml:"grid_granularity"`
	TimeGranularity float64 `toml:"time_granularity"`
	TimeCycleLength float64 `toml:"time_cycle_length"`

	RepairK    float64 `toml:"repair_k"`
	SelfRepair bool    `toml:"self_repair"`

	Gamma int `toml:"gamma"`

	Kappa    float64 `toml:"kappa"`
	MapKappa float64 `toml:"map_kappa"`

	Rho          float64 `toml:"rho"`
	SigmaNoise   float64 `toml:"sigma_noise"`
	HistoryLen   int     `toml:"history_len"`
	// RatioTrigger is loaded but not passed on by scenario.Build; the
	// controller always uses its fixed controller.UpdateRatioThreshold.
	RatioTrigger float64 `toml:"update_ratio_threshold"`

	Thetas  [3]float64 `toml:"thetas"`
	Lambdas [3]float64 `toml:"lambdas"`

	Allocator string  `toml:"allocator"`
	Horizon   float64 `toml:"horizon"`
	Seed      int64   `toml:"seed"`
}

// Default returns the spec's default scenario parameters.
func Default() Scenario {
	return Scenario{
		GridGranularity: 10,
		TimeGranularity: 100,
		TimeCycleLength: 1000,

		RepairK:    1.0,
		SelfRepair: true,

		Gamma: 1,

		Kappa:    0.03,
		MapKappa: 0.3,

		Rho:          0.05,
		SigmaNoise:   0.03,
		HistoryLen:   10,
		RatioTrigger: 0.8,

		Thetas:  [3]float64{1.0 / 3, 1.0 / 3, 1},
		Lambdas: [3]float64{1, 0, 1}, // Lambdas[1] (distance normalizer) is filled in from the grid diagonal at scenario build time.

		Allocator: "robot-oriented",
		Horizon:   1000,
		Seed:      1,
	}
}

// Load reads a TOML document at path over the default scenario; fields the
// document omits keep their default value.
func Load(path string) (Scenario, error) {
	s := Default()
	if _, err := toml.DecodeFile(path, &s); err != nil {
		return Scenario{}, fmt.Errorf("config: loading %s: %w", path, err)
	}
	return s, nil
}
