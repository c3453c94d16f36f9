/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/ssargent/blinkdb/pkg/config"
	"github.com/ssargent/blinkdb/pkg/store"

	"github.com/spf13/cobra"
)

// dataDir is bound by several subcommands' own --data-dir flag when they
// open a store directly instead of reusing the one PersistentPreRunE stashes
// in the command context.
var dataDir string

// cfgPath points at an optional YAML config file (pkg/config.Config) that
// supplies the tree order and any other settings the --data-dir flag alone
// can't express. Absent a file, DefaultConfig's settings apply.
var cfgPath string

// loadRootConfig resolves the configuration for this invocation: the
// explicit --config file if one was given, otherwise pkg/config's defaults
// with DataDir overridden by --data-dir.
func loadRootConfig(cliDataDir string) (*config.Config, error) {
	if cfgPath != "" {
		cfg, err := config.LoadConfig(cfgPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config %s: %w", cfgPath, err)
		}
		if cliDataDir != "" && cliDataDir != "./data" {
			cfg.DataDir = cliDataDir
		}
		return cfg, nil
	}

	cfg := config.DefaultConfig()
	cfg.DataDir = cliDataDir
	return cfg, nil
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "blinkdb",
	Short: "BlinkDB - Embeddable KV Store",
	Long: `BlinkDB is a Bitcask-style embeddable key-value store with
optional partitioning and sort keys.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		flagDataDir, _ := cmd.Flags().GetString("data-dir")
		cfg, err := loadRootConfig(flagDataDir)
		if err != nil {
			return err
		}

		if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
			return fmt.Errorf("failed to create data dir: %w", err)
		}
		kvStore, err := store.NewKVStore(store.KVStoreConfig{
			DataDir:   cfg.DataDir,
			TreeOrder: cfg.Tree.Order,
		})
		if err != nil {
			return fmt.Errorf("failed to create store: %w", err)
		}
		recovery, err := kvStore.Open()
		if err != nil {
			return fmt.Errorf("failed to open store: %w", err)
		}
		if recovery.RecordsTruncated > 0 {
			fmt.Printf("Recovered from corruption: %d records truncated\n", recovery.RecordsTruncated)
		}
		// Store in command context
		cmd.SetContext(context.WithValue(cmd.Context(), "store", kvStore))
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	// Global data directory flag
	rootCmd.PersistentFlags().StringP("data-dir", "d", "./data", "Data directory for the store")
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "Path to a YAML config file (overrides --data-dir's default)")
}
