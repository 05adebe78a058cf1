package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/TobiSchelling/PaperDigest/internal/config"
	"github.com/TobiSchelling/PaperDigest/internal/database"
	"github.com/TobiSchelling/PaperDigest/internal/llm"
	"github.com/TobiSchelling/PaperDigest/internal/logging"
	"github.com/TobiSchelling/PaperDigest/internal/pipeline"
	"github.com/TobiSchelling/PaperDigest/internal/server"
)

var version = "dev"

var (
	verbose    bool
	configPath string
	cfg        *config.Config
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "paperdigest",
	Short:   "Daily arXiv paper digests",
	Long:    "PaperDigest fetches recent arXiv papers for your topics, ranks them, reads their introductions and conclusions, and writes a summarized digest.",
	Version: version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logging.Setup(os.Stderr, "info", verbose)

		// Skip config loading for init and version
		if cmd.Name() == "init" || cmd.Name() == "version" {
			return nil
		}

		path, err := config.ResolveConfigPath(configPath)
		if err != nil {
			if configPath != "" {
				return err
			}
			log.Debug().Msg("no config file found, using defaults")
			cfg = config.Default()
		} else {
			cfg, err = config.Load(path)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
		}
		logging.Setup(os.Stderr, cfg.Logging.Level, verbose)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(rankCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(runsCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("paperdigest", version)
	},
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration in ~/.config/paperdigest/",
	RunE: func(cmd *cobra.Command, args []string) error {
		target := filepath.Join(config.ConfigDir(), "config.yaml")
		if _, err := os.Stat(target); err == nil {
			fmt.Printf("Config already exists: %s\n", target)
			return nil
		}

		if err := os.MkdirAll(config.ConfigDir(), 0o755); err != nil {
			return fmt.Errorf("creating config directory: %w", err)
		}

		if err := os.WriteFile(target, config.DefaultConfigYAML, 0o644); err != nil {
			return fmt.Errorf("writing config: %w", err)
		}

		fmt.Printf("Created config: %s\n", target)
		fmt.Println("Edit it to set your topics and LLM provider.")
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show configuration and run history",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		counts, err := db.CountRunsByStatus()
		if err != nil {
			return fmt.Errorf("counting runs: %w", err)
		}

		fmt.Println("Configuration:")
		fmt.Printf("  Topics: %s\n", strings.Join(cfg.Topics, ", "))
		fmt.Printf("  Ranking: %s\n", cfg.Ranking.Strategy)
		fmt.Printf("  Provider: %s\n", cfg.Summarization.Provider)
		fmt.Printf("  Digests: %s\n", cfg.Output.DigestDir)
		fmt.Printf("  Database: %s\n", db.Path())

		fmt.Println("\nRuns:")
		statuses := make([]string, 0, len(counts))
		for s := range counts {
			statuses = append(statuses, string(s))
		}
		sort.Strings(statuses)
		if len(statuses) == 0 {
			fmt.Println("  none yet")
		}
		for _, s := range statuses {
			fmt.Printf("  %s: %d\n", s, counts[database.RunStatus(s)])
		}
		return nil
	},
}

// --- rank command ---

var (
	rankTopics     []string
	rankMaxResults int
)

var rankCmd = &cobra.Command{
	Use:   "rank",
	Short: "Fetch and rank papers without downloading or summarizing",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		pipe, err := pipeline.New(cfg, pipeline.Deps{})
		if err != nil {
			return err
		}
		req := pipeline.Request{MaxResults: rankMaxResults, DryRun: true}
		if cmd.Flags().Changed("topic") {
			req.Topics = rankTopics
		}

		res := pipe.Run(ctx, req)
		for _, e := range res.Errors {
			fmt.Printf("Error: %s\n", e)
		}
		for i, p := range res.Ranked.Papers {
			fmt.Printf("%3d. %.4f  %s\n", i+1, res.Ranked.Scores[i], p.Title)
			fmt.Printf("     %s\n", p.URL)
		}
		if res.Ranked.Len() == 0 {
			fmt.Println("No papers found.")
		}
		return nil
	},
}

func init() {
	rankCmd.Flags().StringArrayVarP(&rankTopics, "topic", "t", nil, "Topic to rank by (repeatable)")
	rankCmd.Flags().IntVar(&rankMaxResults, "max-results", 0, "Number of papers to fetch")
}

// --- run command ---

var (
	runTopics     []string
	runTopK       int
	runMaxResults int
	runLLMModel   string
	runOutDir     string
	dryRun        bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the full pipeline: fetch -> rank -> full text -> summarize -> digest",
	RunE: func(cmd *cobra.Command, args []string) error {
		if runTopK < 0 || runMaxResults < 0 {
			return errors.New("--top-k and --max-results must not be negative")
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		req := pipeline.Request{
			TopK:       runTopK,
			MaxResults: runMaxResults,
			LLMModel:   runLLMModel,
			OutDir:     runOutDir,
			DryRun:     dryRun,
		}
		if cmd.Flags().Changed("topic") {
			req.Topics = runTopics
		}

		var result *pipeline.Result
		if dryRun {
			pipe, err := newPipeline(req)
			if err != nil {
				return err
			}
			result = pipe.Run(ctx, req)
		} else {
			db, err := openDB()
			if err != nil {
				return err
			}
			defer db.Close()

			runner := pipeline.NewRunner(ctx, db, newPipeline)
			id, res, err := runner.Execute(ctx, req)
			if res == nil {
				return err
			}
			result = res
			if err != nil {
				log.Error().Err(err).Str("run", id).Msg("run failed")
			}
			fmt.Printf("Run %s\n", id)
		}

		for i, step := range result.Steps {
			fmt.Printf("\nStep %d/%d: %s\n", i+1, len(result.Steps), step.Name)
			if step.Err != nil {
				fmt.Printf("  Error: %v\n", step.Err)
			} else {
				fmt.Printf("  %s\n", step.Summary)
			}
		}

		if !dryRun && result.Files != nil {
			fmt.Printf("\nDigest written to %s\n", result.Files.Markdown)
			if result.Files.HTML != "" {
				fmt.Printf("HTML version: %s\n", result.Files.HTML)
			}
		}
		return nil
	},
}

func init() {
	runCmd.Flags().StringArrayVarP(&runTopics, "topic", "t", nil, "Topic to search for (repeatable)")
	runCmd.Flags().IntVar(&runTopK, "top-k", 0, "Number of papers to summarize")
	runCmd.Flags().IntVar(&runMaxResults, "max-results", 0, "Number of papers to fetch")
	runCmd.Flags().StringVar(&runLLMModel, "llm-model", "", "Override the summarization model")
	runCmd.Flags().StringVarP(&runOutDir, "out-dir", "o", "", "Directory for digest files")
	runCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Fetch and rank only, show what would be done")
}

// --- serve command ---

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the JSON API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		port := cfg.Server.Port
		if cmd.Flags().Changed("port") {
			port = servePort
		}

		runner := pipeline.NewRunner(ctx, db, newPipeline)
		srv := server.New(db, runner)

		fmt.Printf("Starting server at http://localhost:%d\n", port)
		fmt.Println("Press Ctrl+C to stop")
		err = server.Serve(ctx, srv.Handler(), port)
		runner.Wait()
		return err
	},
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 8000, "Port to run server on")
}

// newPipeline builds the pipeline for one request, honouring a per-request
// model override.
func newPipeline(req pipeline.Request) (*pipeline.Pipeline, error) {
	s := llm.Settings{
		Provider:      cfg.Summarization.Provider,
		Model:         cfg.Summarization.Model,
		OllamaURL:     cfg.Summarization.OllamaURL,
		OpenAIModel:   cfg.Summarization.OpenAIModel,
		OpenAIBaseURL: cfg.Summarization.OpenAIBaseURL,
		APIKeyEnv:     cfg.Summarization.APIKeyEnv,
	}
	if req.LLMModel != "" {
		s.Model = req.LLMModel
		s.OpenAIModel = req.LLMModel
	}

	deps := pipeline.Deps{}
	if !req.DryRun {
		if p := llm.CreateProvider(s); p != nil {
			deps.Provider = p
		}
	}
	return pipeline.New(cfg, deps)
}

func openDB() (*database.DB, error) {
	if err := os.MkdirAll(cfg.GetDataDir(), 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	return database.Open(cfg.DBPath())
}
