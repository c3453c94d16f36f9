package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/ssargent/blinkdb/pkg/store"
)

var (
	scanLower string
	scanUpper string
)

// scanCmd represents the scan command
var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "List key-value pairs in key order within a range",
	Long: `Scan the BlinkDB store's range index, printing every key-value pair
in ascending key order within [--lower, --upper). Omit one bound to
leave that side open; with both omitted the scan returns no pairs.

Example:
  blinkdb scan --lower=user: --upper=user;`,
	Run: func(cmd *cobra.Command, args []string) {
		config := store.KVStoreConfig{
			DataDir:       dataDir,
			FsyncInterval: 0,
		}

		kv, err := store.NewKVStore(config)
		if err != nil {
			fmt.Printf("Error creating store: %v\n", err)
			return
		}

		if _, err := kv.Open(); err != nil {
			fmt.Printf("Error opening store: %v\n", err)
			return
		}
		defer kv.Close()

		var lower, upper []byte
		if scanLower != "" {
			lower = []byte(scanLower)
		}
		if scanUpper != "" {
			upper = []byte(scanUpper)
		}

		results, err := kv.Scan(lower, true, upper, false)
		if err != nil {
			fmt.Printf("Error scanning store: %v\n", err)
			return
		}

		count := 0
		for kvPair := range results {
			fmt.Printf("%s = %s\n", string(kvPair.Key), string(kvPair.Value))
			count++
		}
		fmt.Printf("%d entries\n", count)
	},
}

func init() {
	rootCmd.AddCommand(scanCmd)
	scanCmd.Flags().StringVar(&dataDir, "data-dir", "./data", "Data directory for the store")
	scanCmd.Flags().StringVar(&scanLower, "lower", "", "Inclusive lower bound key (empty = unbounded)")
	scanCmd.Flags().StringVar(&scanUpper, "upper", "", "Exclusive upper bound key (empty = unbounded)")
}
