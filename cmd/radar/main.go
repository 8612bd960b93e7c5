package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pluginradar/radar/internal/config"
)

var version = "dev"

var (
	verbose  bool
	jsonOut  bool
	noColor  bool
	maxTurns int
)

var rootCmd = &cobra.Command{
	Use:   "radar [query]",
	Short: "Research, enrich, and compare DSP audio plugins",
	Long: `radar is a research agent for audio plugins (VST, AU, AAX).

It drives an Anthropic tool-use loop over web search, page fetching,
catalog queries, and local record stores.

Examples:
  radar "Research FabFilter Pro-Q 4"
  radar compare "Pro-Q 4" "Kirchhoff-EQ"
  radar enrich fabfilter-pro-q-4
  radar trending`,
	Args:          cobra.ArbitraryArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			return cmd.Help()
		}
		return runTask("research", strings.Join(args, " "))
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the radar version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("radar version %s\n", version)
	},
}

func setupLogging(cfg config.Config) {
	level := slog.LevelInfo
	if verbose || strings.EqualFold(cfg.Log.Level, "debug") {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

func main() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log every tool call")
	rootCmd.PersistentFlags().BoolVar(&jsonOut, "json", false, "emit the result as JSON")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
	rootCmd.PersistentFlags().IntVar(&maxTurns, "max-turns", 0, "override the agent turn limit")

	rootCmd.AddCommand(
		versionCmd,
		compareCmd,
		enrichCmd,
		trendingCmd,
		recordsCmd,
		runsCmd,
		toolsCmd,
		configCmd,
		serveCmd,
	)

	if err := rootCmd.Execute(); err != nil {
		printError("%v", err)
		os.Exit(1)
	}
}
