package cmd

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/ssargent/blinkdb/pkg/store"
)

var (
	explainPK          string
	explainWithSamples int
	explainWithMetrics bool
)

// explainCmd represents the explain command
var explainCmd = &cobra.Command{
	Use:   "explain",
	Short: "Print diagnostic information about the store",
	Long: `Explain reports segment layout, key counts, and tombstone stats for
the BlinkDB store, in the same shape the REST /explain endpoint returns.

Example:
  blinkdb explain --with-metrics`,
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

		result, err := kv.Explain(context.Background(), store.ExplainOptions{
			PK:          explainPK,
			WithSamples: explainWithSamples,
			WithMetrics: explainWithMetrics,
		})
		if err != nil {
			fmt.Printf("Error explaining store: %v\n", err)
			return
		}

		out, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			fmt.Printf("Error formatting explain output: %v\n", err)
			return
		}
		fmt.Println(string(out))
	},
}

func init() {
	rootCmd.AddCommand(explainCmd)
	explainCmd.Flags().StringVar(&dataDir, "data-dir", "./data", "Data directory for the store")
	explainCmd.Flags().StringVar(&explainPK, "pk", "", "Filter diagnostics to a single partition key")
	explainCmd.Flags().IntVar(&explainWithSamples, "with-samples", 0, "Include up to N sampled records")
	explainCmd.Flags().BoolVar(&explainWithMetrics, "with-metrics", false, "Include latency/IO metrics")
}
