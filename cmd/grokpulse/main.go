package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var cfgFile string

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "grokpulse",
		Short: "Track product mentions and turn them into interest-over-time trends",
	}

	root.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./config.yaml)")

	root.AddCommand(collectCmd())
	root.AddCommand(extractCmd())
	root.AddCommand(aggregateCmd())
	root.AddCommand(trendsCmd())
	root.AddCommand(interestCmd())
	root.AddCommand(serveCmd())
	root.AddCommand(runCmd())

	return root
}

func collectCmd() *cobra.Command {
	var block bool

	cmd := &cobra.Command{
		Use:   "collect",
		Short: "Run one rate-gated collection pass",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCollect(block)
		},
	}

	cmd.Flags().BoolVar(&block, "block", false, "wait out the rate gate instead of skipping")
	return cmd
}

func extractCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "extract",
		Short: "Extract topics from unprocessed posts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExtract()
		},
	}
}

func aggregateCmd() *cobra.Command {
	var backfillHours int

	cmd := &cobra.Command{
		Use:   "aggregate",
		Short: "Roll mentions into daily and hourly trend buckets",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAggregate(backfillHours)
		},
	}

	cmd.Flags().IntVar(&backfillHours, "backfill", 0, "also rebuild the last N hours with the log-clamped weighting")
	return cmd
}

func trendsCmd() *cobra.Command {
	var (
		jsonOutput bool
		days       int
		category   string
		limit      int
	)

	cmd := &cobra.Command{
		Use:   "trends",
		Short: "Show current trending topics",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrends(jsonOutput, days, category, limit)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	cmd.Flags().IntVar(&days, "days", 7, "trailing window in days")
	cmd.Flags().StringVar(&category, "category", "", "filter by category")
	cmd.Flags().IntVar(&limit, "limit", 20, "max trends to show")
	return cmd
}

func interestCmd() *cobra.Command {
	var (
		topics    []string
		hours     int
		metric    string
		normalize string
	)

	cmd := &cobra.Command{
		Use:   "interest",
		Short: "Print the 0-100 interest index for topics",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInterest(topics, hours, metric, normalize)
		},
	}

	cmd.Flags().StringSliceVar(&topics, "topic", nil, "topic to chart (repeatable)")
	cmd.Flags().IntVar(&hours, "hours", 48, "trailing window in hours")
	cmd.Flags().StringVar(&metric, "metric", "weighted", "weighted or mentions")
	cmd.Flags().StringVar(&normalize, "normalize", "per_topic", "per_topic, global, or none")
	return cmd
}

func serveCmd() *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(port)
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "server port (default: from config)")
	return cmd
}

func runCmd() *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start the daemon: pipeline scheduler plus HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDaemon(port)
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "server port (default: from config)")
	return cmd
}
