// Command crowdsense runs a crowd-sensing deployment end to end, or
// validates a scenario file without running it.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/elektrokombinacija/crowdsense/internal/config"
	"github.com/elektrokombinacija/crowdsense/internal/scenario"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string
	var verbose bool

	root := &cobra.Command{
		Use:   "crowdsense",
		Short: "Discrete-event simulator for heterogeneous crowd-sensing deployments",
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to a scenario TOML file (defaults built in if omitted)")
	root.PersistentFlags().BoolVar(&verbose, "verbose", false, "enable debug-level logging")

	loadCfg := func() (config.Scenario, error) {
		if configPath == "" {
			return config.Default(), nil
		}
		return config.Load(configPath)
	}

	newLogger := func() *zap.SugaredLogger {
		var zcfg zap.Config
		if verbose {
			zcfg = zap.NewDevelopmentConfig()
		} else {
			zcfg = zap.NewProductionConfig()
		}
		l, err := zcfg.Build()
		if err != nil {
			return zap.NewNop().Sugar()
		}
		return l.Sugar()
	}

	root.AddCommand(newRunCmd(loadCfg, newLogger))
	root.AddCommand(newValidateCmd(loadCfg))
	return root
}

func newRunCmd(loadCfg func() (config.Scenario, error), newLogger func() *zap.SugaredLogger) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Build a scenario and run it to completion",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadCfg()
			if err != nil {
				return err
			}
			log := newLogger()
			defer log.Sync() //nolint:errcheck

			dep, err := scenario.Build(cfg, log)
			if err != nil {
				return fmt.Errorf("crowdsense: building scenario: %w", err)
			}
			if err := dep.Sim.Run(cmd.Context()); err != nil {
				return fmt.Errorf("crowdsense: run: %w", err)
			}

			finished := 0
			for _, t := range dep.Tasks {
				if t.Finished {
					finished++
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "simulated time: %.2f\ntasks finished: %d/%d\n", dep.Sim.Now(), finished, len(dep.Tasks))
			return nil
		},
	}
}

func newValidateCmd(loadCfg func() (config.Scenario, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Load a scenario file and report whether it builds cleanly, without running it",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadCfg()
			if err != nil {
				return err
			}
			if _, err := scenario.Build(cfg, nil); err != nil {
				return fmt.Errorf("crowdsense: invalid scenario: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "scenario OK")
			return nil
		},
	}
}
