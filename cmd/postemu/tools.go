package postemu

import (
	"fmt"
	"slices"

	"github.com/edgeflare/postemu/pkg/pipeline"
	"github.com/edgeflare/postemu/pkg/source"
	"github.com/spf13/cobra"
)

var offsetsCmd = &cobra.Command{
	Use:   "offsets",
	Short: "Print the offset sequence the emulation samples",
	Long: `Prints the row offsets a run with the configured (or given) seed visits,
one per line. The sequence only depends on the seed, maxOffset and maxSleep.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		n, _ := cmd.Flags().GetInt("count")
		if n < 0 {
			return fmt.Errorf("invalid count %d", n)
		}
		opts := cfg.Sampler
		if cmd.Flags().Changed("seed") {
			opts.Seed, _ = cmd.Flags().GetInt64("seed")
		}
		for _, off := range source.Offsets(opts, n) {
			fmt.Fprintln(cmd.OutOrStdout(), off)
		}
		return nil
	},
}

var dsnCmd = &cobra.Command{
	Use:   "dsn",
	Short: "Print the source connection string with the password masked",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		dsn, err := cfg.Source.RedactedDSN()
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), dsn)
		return nil
	},
}

var connectorsCmd = &cobra.Command{
	Use:   "connectors",
	Short: "List the registered sink connectors",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		names := pipeline.Connectors()
		slices.Sort(names)
		for _, name := range names {
			fmt.Fprintln(cmd.OutOrStdout(), name)
		}
	},
}

func init() {
	offsetsCmd.Flags().IntP("count", "n", 10, "Number of offsets to print")
	offsetsCmd.Flags().Int64("seed", 0, "Seed of the sequence (default from config)")
}
