package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/pluginradar/radar/internal/agent"
	"github.com/pluginradar/radar/internal/brave"
	"github.com/pluginradar/radar/internal/config"
	"github.com/pluginradar/radar/internal/convex"
	"github.com/pluginradar/radar/internal/records"
	"github.com/pluginradar/radar/internal/registry"
	"github.com/pluginradar/radar/internal/storage"
	"github.com/pluginradar/radar/internal/tools"
)

// --- agent tasks ---

var compareCmd = &cobra.Command{
	Use:   "compare PLUGIN_A PLUGIN_B",
	Short: "Compare two audio plugins",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTask("comparison", compareQuery(args[0], args[1]))
	},
}

var enrichCmd = &cobra.Command{
	Use:   "enrich SLUG|NAME",
	Short: "Research and enrich a plugin by slug or name",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		slug, err := normalizeSlug(args[0])
		if err != nil {
			return err
		}
		return runTask("research", enrichQuery(slug))
	},
}

// normalizeSlug accepts either a ready slug or a free-text plugin name,
// which it slugifies ("FabFilter Pro-Q 4" -> "fabfilter-pro-q-4").
func normalizeSlug(arg string) (string, error) {
	if err := records.ValidateSlug(arg); err == nil {
		return arg, nil
	}
	slug := records.Slugify(arg)
	if err := records.ValidateSlug(slug); err != nil {
		return "", fmt.Errorf("cannot derive a slug from %q", arg)
	}
	return slug, nil
}

var trendingCmd = &cobra.Command{
	Use:   "trending",
	Short: "Find trending plugins from the last 30 days",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTask("trending", trendingQuery())
	},
}

func compareQuery(a, b string) string {
	return fmt.Sprintf("Compare %s vs %s as audio plugins", a, b)
}

func enrichQuery(slug string) string {
	return fmt.Sprintf("Research and enrich the plugin: %s. Save the enrichment data.", slug)
}

func trendingQuery() string {
	return "Find trending DSP plugins from the last 30 days. Focus on new releases, updates, and plugins generating buzz."
}

func splitDenyExtra(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

// buildRegistry wires the full tool set plus hooks. The returned LoggingHook
// feeds the post-run summary and the persisted call log.
func buildRegistry(cfg config.Config, rec *records.Store) (*registry.Registry, *registry.LoggingHook, error) {
	reg := registry.New()
	deps := tools.Deps{
		ProjectRoot: cfg.Storage.ProjectRoot,
		Records:     rec,
		Search:      brave.NewClient(cfg.Search.BraveAPIKey),
		Convex:      convex.NewClient(cfg.Convex.DeploymentURL),
	}
	if err := tools.RegisterAll(reg, deps); err != nil {
		return nil, nil, err
	}

	logHook := registry.NewLoggingHook(verbose)
	reg.Use(registry.NewSafetyHook(splitDenyExtra(cfg.Safety.DenyExtra)...), logHook)
	return reg, logHook, nil
}

type jsonEnvelope struct {
	Query    string `json:"query"`
	TaskType string `json:"task_type"`
	Response string `json:"response"`
	Turns    int    `json:"turns"`
}

func runTask(taskType, query string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	setupLogging(cfg)

	rec, err := records.Open(cfg.Storage.DataDir)
	if err != nil {
		return fmt.Errorf("opening record store: %w", err)
	}
	store, err := storage.Open(cfg.Storage.DataDir)
	if err != nil {
		return fmt.Errorf("opening run history: %w", err)
	}
	defer store.Close()

	reg, logHook, err := buildRegistry(cfg, rec)
	if err != nil {
		return err
	}

	turns := cfg.Anthropic.MaxTurns
	if maxTurns > 0 {
		turns = maxTurns
	}
	runner := agent.New(cfg.Anthropic.APIKey, cfg.Anthropic.Model, turns, reg, slog.Default())

	printStep("radar agent (%s)", taskType)
	printStatus("Query", "%s", query)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	start := time.Now()
	res, runErr := runner.Run(ctx, taskType, query)
	elapsed := time.Since(start)

	if !jsonOut {
		fmt.Fprintln(os.Stderr, logHook.Summary())
	}

	status := "completed"
	response := ""
	turnsDone := 0
	if res != nil {
		response = res.Response
		turnsDone = res.Turns
	}
	if runErr != nil {
		status = "failed"
	}
	persistRun(store, logHook, taskType, query, cfg.Anthropic.Model, response, status, turnsDone, elapsed)

	if runErr != nil {
		return fmt.Errorf("agent error: %w", runErr)
	}

	if jsonOut {
		out := jsonEnvelope{Query: query, TaskType: taskType, Response: res.Response, Turns: res.Turns}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	fmt.Println()
	fmt.Println(res.Response)
	return nil
}

// persistRun saves the run and its tool call log. History is best effort:
// failures are logged, never fatal.
func persistRun(store *storage.Store, logHook *registry.LoggingHook, taskType, query, model, response, status string, turns int, elapsed time.Duration) {
	run := storage.Run{
		ID:         uuid.NewString(),
		CreatedAt:  time.Now().UTC(),
		TaskType:   taskType,
		Query:      query,
		Model:      model,
		Response:   response,
		Status:     status,
		Turns:      turns,
		DurationMs: elapsed.Milliseconds(),
	}
	if err := store.SaveRun(run); err != nil {
		slog.Warn("could not save run", "error", err)
		return
	}

	recs := logHook.Records()
	calls := make([]storage.ToolCall, len(recs))
	for i, r := range recs {
		calls[i] = storage.ToolCall{
			ID:        uuid.NewString(),
			RunID:     run.ID,
			Seq:       i + 1,
			Tool:      r.Tool,
			Success:   r.Success,
			Kind:      r.Kind,
			ElapsedMs: r.Elapsed.Milliseconds(),
		}
	}
	if err := store.SaveToolCalls(calls); err != nil {
		slog.Warn("could not save tool calls", "error", err)
	}
}

// --- records ---

var recordsCmd = &cobra.Command{
	Use:   "records",
	Short: "Browse saved enrichment and comparison records",
}

var recordsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved record slugs",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		rec, err := openRecords()
		if err != nil {
			return err
		}
		enrichment, err := rec.ListEnrichment()
		if err != nil {
			return err
		}
		comparisons, err := rec.ListComparisons()
		if err != nil {
			return err
		}
		if jsonOut {
			return printJSON(map[string]any{"enrichment": enrichment, "comparisons": comparisons})
		}
		printStatus("Enrichment", "%d records", len(enrichment))
		for _, s := range enrichment {
			fmt.Println("  " + s)
		}
		printStatus("Comparisons", "%d records", len(comparisons))
		for _, s := range comparisons {
			fmt.Println("  " + s)
		}
		return nil
	},
}

var recordsShowCmd = &cobra.Command{
	Use:   "show SLUG",
	Short: "Show a saved record",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rec, err := openRecords()
		if err != nil {
			return err
		}
		doc, err := rec.GetEnrichment(args[0])
		if err != nil {
			doc, err = rec.GetComparison(args[0])
		}
		if err != nil {
			return err
		}
		return printJSON(doc)
	},
}

func openRecords() (*records.Store, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	return records.Open(cfg.Storage.DataDir)
}

// --- runs ---

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Show recent agent runs",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		store, err := storage.Open(cfg.Storage.DataDir)
		if err != nil {
			return err
		}
		defer store.Close()

		if len(args) == 1 {
			run, err := store.GetRun(args[0])
			if err != nil {
				return err
			}
			calls, err := store.GetToolCalls(run.ID)
			if err != nil {
				return err
			}
			return printJSON(map[string]any{"run": run, "calls": calls})
		}

		runs, err := store.GetRecentRuns(20)
		if err != nil {
			return err
		}
		if jsonOut {
			return printJSON(map[string]any{"runs": runs})
		}
		for _, r := range runs {
			fmt.Printf("%s  %-10s  %-9s  %2d turns  %s\n",
				r.CreatedAt.Format("2006-01-02 15:04"), r.TaskType, r.Status, r.Turns, r.Query)
		}
		return nil
	},
}

// --- tools ---

var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "List available agent tools",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		reg := registry.New()
		if err := tools.RegisterAll(reg, tools.Deps{}); err != nil {
			return err
		}
		for _, t := range reg.List() {
			fmt.Printf("%-18s %s\n", t.Spec.Name, t.Spec.Description)
		}
		return nil
	},
}

// --- config ---

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or change configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		for _, ki := range config.ShowAll(cfg) {
			fmt.Printf("%-24s %-28s %s\n", ki.Key, "("+ki.EnvVar+")", ki.Value)
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set KEY VALUE",
	Short: "Set a configuration key",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.SetKey(args[0], args[1]); err != nil {
			return fmt.Errorf("%w (valid keys: %s)", err, strings.Join(config.ValidKeys(), ", "))
		}
		printSuccess("%s updated", args[0])
		return nil
	},
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func init() {
	recordsCmd.AddCommand(recordsListCmd, recordsShowCmd)
	configCmd.AddCommand(configShowCmd, configSetCmd)
}
