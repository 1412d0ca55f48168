package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/augurhq/augur/internal/ai"
	"github.com/augurhq/augur/internal/analyzer"
	"github.com/augurhq/augur/internal/config"
	"github.com/augurhq/augur/internal/event"
	"github.com/augurhq/augur/internal/handler"
	"github.com/augurhq/augur/internal/logging"
	"github.com/augurhq/augur/internal/pipeline"
	"github.com/augurhq/augur/internal/registry"
	"github.com/augurhq/augur/internal/report"
	"github.com/augurhq/augur/internal/server"
	"github.com/augurhq/augur/internal/workspace"
	"github.com/joho/godotenv"
)

var version = "0.1.0"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "serve":
		runServe(os.Args[2:])
	case "review":
		runReview(os.Args[2:])
	case "analyze":
		runAnalyze(os.Args[2:])
	case "version":
		fmt.Printf("augur v%s\n", version)
	default:
		fmt.Printf("Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Usage: augur <command> [options]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  serve    Start the review server")
	fmt.Println("  review   Review a pull/merge request by URL")
	fmt.Println("  analyze  Analyze test coverage of a repository (URL or local path)")
	fmt.Println("  version  Print version information")
}

func loadEnv(envFile string) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			log.Printf("Warning: could not load env file %s: %v", envFile, err)
		}
		return
	}
	// Try default locations
	godotenv.Load(".env")
	godotenv.Load("/etc/augur/augur.env")
}

// loadConfig reads the config file, or falls back to defaults when the
// default path does not exist.
func loadConfig(path string) (*config.Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) && path == "config.yaml" {
		return config.DefaultConfig(), nil
	}
	return config.Load(path)
}

func runServe(args []string) {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	configPath := fs.String("config", "config.yaml", "Path to config file")
	envFile := fs.String("env-file", "", "Path to .env file (optional)")
	fs.Parse(args)

	loadEnv(*envFile)

	cfg, err := loadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	svc := buildService(cfg)

	reviewHandler := handler.NewReviewHandler(svc)
	router := event.NewRouter(cfg, reviewHandler.Handle)

	srv := server.NewWithRouter(cfg, svc, router)

	// Periodic cleanup of old run logs
	if cfg.Logging.Dir != "" && cfg.Logging.RetentionDays > 0 {
		cleaner := logging.NewCleaner(cfg.Logging.Dir, cfg.Logging.RetentionDays)
		scheduler := logging.NewCleanupScheduler(cleaner, 24*time.Hour)
		scheduler.Start()
		defer scheduler.Stop()
	}

	log.Printf("Starting Augur server on %s:%d", cfg.Server.Host, cfg.Server.Port)
	if err := srv.ListenAndServeWithShutdown(); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}

func runReview(args []string) {
	fs := flag.NewFlagSet("review", flag.ExitOnError)
	configPath := fs.String("config", "config.yaml", "Path to config file")
	envFile := fs.String("env-file", "", "Path to .env file (optional)")
	repoURL := fs.String("repo", "", "Clone URL override (optional)")
	generate := fs.Bool("generate", false, "Also generate tests for uncovered files")
	fs.Parse(args)

	if fs.NArg() != 1 {
		fmt.Println("Usage: augur review [options] <change-url>")
		fs.PrintDefaults()
		os.Exit(1)
	}
	changeURL := fs.Arg(0)

	loadEnv(*envFile)

	cfg, err := loadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	orch := buildOrchestrator(cfg)

	id := fmt.Sprintf("cli-%d", time.Now().UnixNano())
	req := pipeline.Request{
		ChangeURL:         changeURL,
		RepoURL:           *repoURL,
		IncludeGeneration: *generate,
		Sink: pipeline.ProgressFunc(func(percent int, step string) {
			fmt.Printf("[%3d%%] %s\n", percent, step)
		}),
	}

	run, err := orch.Run(context.Background(), id, req)
	if err != nil {
		log.Fatalf("Review failed: %v", err)
	}

	rendered := report.Render(run)
	fmt.Println()
	fmt.Print(rendered)

	if cfg.Logging.Dir != "" && run.Change != nil {
		writer := logging.NewWriter(cfg.Logging.Dir)
		entry := logging.LogEntry{
			RunID:        run.ID,
			RepoOwner:    run.Change.Owner,
			RepoName:     run.Change.Repo,
			ChangeNumber: run.Change.Number,
			Timestamp:    run.StartedAt,
		}
		if path, err := writer.Write(entry, []byte(rendered)); err != nil {
			log.Printf("Warning: could not write run log: %v", err)
		} else {
			fmt.Printf("Run log written to %s\n", path)
		}
	}

	if run.Status == report.StatusFailed {
		os.Exit(1)
	}
}

func runAnalyze(args []string) {
	fs := flag.NewFlagSet("analyze", flag.ExitOnError)
	configPath := fs.String("config", "config.yaml", "Path to config file")
	envFile := fs.String("env-file", "", "Path to .env file (optional)")
	branch := fs.String("branch", "", "Branch to analyze (remote repositories)")
	generate := fs.Bool("generate", false, "Generate tests for uncovered files")
	fs.Parse(args)

	target := "."
	if fs.NArg() > 0 {
		target = fs.Arg(0)
	}

	loadEnv(*envFile)

	cfg, err := loadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	an := buildAnalyzer(cfg)
	ctx := context.Background()

	// Remote URLs are cloned into a workspace snapshot first; local
	// paths are analyzed in place.
	dir := target
	if strings.Contains(target, "://") {
		ws := buildWorkspaces(cfg)
		snap, err := ws.Acquire(ctx, target, *branch)
		if err != nil {
			log.Fatalf("Clone failed: %v", err)
		}
		defer ws.Release(snap, cfg.Workspace.KeepOnSuccess)
		dir = snap.Path
	}

	before, err := an.Analyze(ctx, dir)
	if err != nil {
		log.Fatalf("Analysis failed: %v", err)
	}

	printAnalysis(before)

	if !*generate {
		return
	}

	generated, err := an.GenerateTests(ctx, dir, before.Uncovered, cfg.Analysis.GenerateLimit)
	if err != nil {
		log.Fatalf("Test generation failed: %v", err)
	}
	for _, g := range generated {
		fmt.Printf("Generated %s for %s\n", g.Test, g.Source)
	}

	after, err := an.Analyze(ctx, dir)
	if err != nil {
		log.Fatalf("Re-analysis failed: %v", err)
	}

	cmp := analyzer.Compare(before, after)
	fmt.Println()
	fmt.Printf("Tests added:     %d\n", cmp.TestsAdded)
	fmt.Printf("Coverage before: %.2f\n", cmp.CoverageBefore)
	fmt.Printf("Coverage after:  %.2f\n", cmp.CoverageAfter)
	fmt.Printf("Coverage delta:  %+.2f\n", cmp.CoverageDelta)
	fmt.Printf("Files now covered: %d\n", cmp.FilesNowCovered)
}

func buildClient(cfg *config.Config) ai.Client {
	if cfg.AI.APIKey == "" {
		return nil
	}
	return ai.NewOpenAI(cfg.AI.APIKey, cfg.AI.Model,
		ai.WithBaseURL(cfg.AI.BaseURL),
		ai.WithTemperature(cfg.AI.Temperature),
		ai.WithMaxTokens(cfg.AI.MaxTokens),
	)
}

func buildAnalyzer(cfg *config.Config) *analyzer.Analyzer {
	return analyzer.New(buildClient(cfg),
		analyzer.WithMaxAIFiles(cfg.Analysis.MaxAIFiles),
		analyzer.WithCoverageThresholds(cfg.Analysis.LowCoverage, cfg.Analysis.MediumCoverage),
	)
}

func buildWorkspaces(cfg *config.Config) *workspace.Manager {
	opts := []workspace.Option{
		workspace.WithTimeout(time.Duration(cfg.Workspace.CloneTimeoutMinutes) * time.Minute),
	}
	if token := cloneToken(cfg); token != "" {
		opts = append(opts, workspace.WithToken(token))
	}
	return workspace.NewManager(cfg.Workspace.Dir, opts...)
}

func buildOrchestrator(cfg *config.Config) *pipeline.Orchestrator {
	reg := registry.New(cfg)
	ws := buildWorkspaces(cfg)

	opts := []pipeline.Option{
		pipeline.WithAnalyzer(buildAnalyzer(cfg), cfg.Analysis.GenerateLimit),
		pipeline.WithKeepOnSuccess(cfg.Workspace.KeepOnSuccess),
	}
	if cfg.Review.PostComment {
		opts = append(opts, pipeline.WithCommenter(reg))
	}

	assembler := report.NewAssembler(report.DefaultConfig())

	return pipeline.New(reg, ws, buildClient(cfg), assembler, opts...)
}

func buildService(cfg *config.Config) *pipeline.Service {
	var opts []pipeline.ServiceOption
	if cfg.Logging.Dir != "" {
		opts = append(opts, pipeline.WithRunLog(logging.NewWriter(cfg.Logging.Dir)))
	}
	return pipeline.NewService(buildOrchestrator(cfg), pipeline.NewMemoryStore(), opts...)
}

// cloneToken picks the token used for authenticated clones.
func cloneToken(cfg *config.Config) string {
	if cfg.Providers.GitHub.Token != "" {
		return cfg.Providers.GitHub.Token
	}
	return cfg.Providers.GitLab.Token
}

func printAnalysis(a *analyzer.Analysis) {
	fmt.Printf("Total files:     %d\n", a.TotalFiles)
	fmt.Printf("Code files:      %d\n", a.CodeFiles)
	fmt.Printf("Test files:      %d\n", a.TestFiles)
	fmt.Printf("Coverage ratio:  %.2f\n", a.CoverageRatio)
	if len(a.Issues) > 0 {
		fmt.Println()
		fmt.Println("Issues:")
		for _, issue := range a.Issues {
			fmt.Printf("  [%s] %s\n", issue.Severity, issue.Description)
		}
	}
	if len(a.Uncovered) > 0 {
		fmt.Println()
		fmt.Println("Uncovered files:")
		for _, f := range a.Uncovered {
			fmt.Printf("  %s\n", f)
		}
	}
}
