package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vibeoracle/bridge-node/bridge"
	"github.com/vibeoracle/bridge-node/config"
	"github.com/vibeoracle/bridge-node/core"
	"github.com/vibeoracle/bridge-node/keys"
	"github.com/vibeoracle/bridge-node/logger"
)

const (
	flagHome   = "home"
	flagCycles = "cycles"
	flagDryRun = "dry-run"
	flagForce  = "force"
)

// Overridden at build time via -ldflags.
var (
	Version = "dev"
	Commit  = ""
)

func InitRootCmd(rootCmd *cobra.Command) {
	rootCmd.AddCommand(initCmd())
	rootCmd.AddCommand(startCmd())
	rootCmd.AddCommand(diagnoseCmd())
	rootCmd.AddCommand(versionCmd())
}

func initCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default config file to the bridge home",
		RunE: func(cmd *cobra.Command, args []string) error {
			home, err := cmd.Flags().GetString(flagHome)
			if err != nil {
				return err
			}
			force, err := cmd.Flags().GetBool(flagForce)
			if err != nil {
				return err
			}

			path := config.FilePath(home)
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("config already exists at %s (use --force to overwrite)", path)
			}

			cfg, err := config.LoadDefaultConfig()
			if err != nil {
				return err
			}
			if err := config.Save(cfg, home); err != nil {
				return err
			}
			if err := keys.EnsureKeyDirectory(filepath.Join(home, "keys")); err != nil {
				return err
			}

			cmd.Printf("Wrote %s\n", path)
			return nil
		},
	}
	cmd.Flags().Bool(flagForce, false, "overwrite an existing config file")
	return cmd
}

func startCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start the sentiment bridge daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			mode, err := runMode(cmd)
			if err != nil {
				return err
			}

			log := logger.New(cfg.LogLevel, cfg.LogFormat, cfg.LogSampler)

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			client, err := core.NewBridgeClient(cfg, mode, nil, log)
			if err != nil {
				return err
			}
			return client.Start(ctx)
		},
	}
	cmd.Flags().Bool(flagDryRun, false, "run against an in-process oracle instead of the configured chain")
	return cmd
}

func diagnoseCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "diagnose",
		Short: "Run a bounded number of cycles and print the outcome",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfigOrDefault(cmd)
			if err != nil {
				return err
			}
			mode, err := runMode(cmd)
			if err != nil {
				return err
			}
			cycles, err := cmd.Flags().GetInt(flagCycles)
			if err != nil {
				return err
			}

			log := logger.New(cfg.LogLevel, cfg.LogFormat, cfg.LogSampler)

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			client, err := core.NewBridgeClient(cfg, mode, nil, log)
			if err != nil {
				return err
			}
			defer client.Close()

			summary, err := client.RunCycles(ctx, cycles)
			if err != nil {
				return err
			}
			printSummary(cmd, summary)

			if summary.Failed > 0 {
				return fmt.Errorf("%d of %d cycles failed", summary.Failed, summary.Cycles)
			}
			return nil
		},
	}
	cmd.Flags().Int(flagCycles, 0, "number of cycles to run (0 uses diagnostic_cycles from config)")
	cmd.Flags().Bool(flagDryRun, false, "run against an in-process oracle instead of the configured chain")
	return cmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print vibebridged version info",
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Printf("Name:    vibebridged\n")
			cmd.Printf("Version: %s\n", Version)
			cmd.Printf("Commit:  %s\n", Commit)
		},
	}
}

// loadConfig reads the config under --home. Missing files are an error;
// `init` creates them.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	home, err := cmd.Flags().GetString(flagHome)
	if err != nil {
		return nil, err
	}

	cfg, err := config.Load(home)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("no config found at %s; run `vibebridged init` first", config.FilePath(home))
		}
		return nil, err
	}
	if cfg.BridgeHome == "" {
		cfg.BridgeHome = home
	}
	return &cfg, nil
}

// loadConfigOrDefault behaves like loadConfig but falls back to the embedded
// defaults when no config file exists, so diagnostics work on a bare host.
func loadConfigOrDefault(cmd *cobra.Command) (*config.Config, error) {
	home, err := cmd.Flags().GetString(flagHome)
	if err != nil {
		return nil, err
	}

	if _, statErr := os.Stat(config.FilePath(home)); statErr == nil {
		return loadConfig(cmd)
	}

	cfg, err := config.LoadDefaultConfig()
	if err != nil {
		return nil, err
	}
	cfg.BridgeHome = home
	return cfg, nil
}

func printSummary(cmd *cobra.Command, summary *bridge.RunSummary) {
	cmd.Printf("Cycles:  %d\n", summary.Cycles)
	cmd.Printf("Pushed:  %d\n", summary.Pushed)
	cmd.Printf("Skipped: %d\n", summary.Skipped)
	cmd.Printf("Failed:  %d\n", summary.Failed)

	if len(summary.Reasons) > 0 {
		reasons := make([]string, 0, len(summary.Reasons))
		for reason := range summary.Reasons {
			reasons = append(reasons, reason)
		}
		sort.Strings(reasons)

		cmd.Printf("Reasons:\n")
		for _, reason := range reasons {
			cmd.Printf("  %s: %d\n", reason, summary.Reasons[reason])
		}
	}
}

func runMode(cmd *cobra.Command) (core.Mode, error) {
	dryRun, err := cmd.Flags().GetBool(flagDryRun)
	if err != nil {
		return "", err
	}
	if dryRun {
		return core.ModeDryRun, nil
	}
	return core.ModeLive, nil
}
