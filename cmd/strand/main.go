package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/deepnoodle-ai/strand"
	"github.com/deepnoodle-ai/strand/config"
	"github.com/deepnoodle-ai/strand/sandbox"
	"github.com/deepnoodle-ai/strand/slogger"
	"github.com/deepnoodle-ai/strand/toolkit"
	"github.com/deepnoodle-ai/strand/vault"
	"github.com/fatih/color"
)

var (
	errorStyle   = color.New(color.FgRed)
	successStyle = color.New(color.FgGreen)
	boldStyle    = color.New(color.Bold)
)

func fatal(msg string, args ...interface{}) {
	fmt.Printf(errorStyle.Sprint(msg)+"\n", args...)
	os.Exit(1)
}

func main() {
	var configPath, providerName, modelName, logLevel string
	var maxIterations int
	var timeoutFlag time.Duration
	var verbose bool
	flag.StringVar(&configPath, "config", "", "Path to a YAML or JSON configuration file")
	flag.StringVar(&providerName, "provider", "", "LLM provider (openai, openai-completions, groq)")
	flag.StringVar(&modelName, "model", "", "Model name override")
	flag.StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	flag.IntVar(&maxIterations, "max-iterations", 0, "Maximum reasoning iterations per session")
	flag.DurationVar(&timeoutFlag, "timeout", 0, "Overall session timeout (e.g. 5m)")
	flag.BoolVar(&verbose, "verbose", false, "Print per-iteration details")
	flag.Parse()

	if flag.NArg() == 0 {
		fatal("Error: a prompt is required")
	}
	input := strings.Join(flag.Args(), " ")

	cfg := &config.Config{}
	if configPath != "" {
		var err error
		cfg, err = config.ParseFile(configPath)
		if err != nil {
			fatal(err.Error())
		}
	}
	if providerName != "" {
		cfg.Provider = providerName
	}
	if modelName != "" {
		cfg.Model = modelName
	}
	if maxIterations > 0 {
		cfg.MaxIterations = maxIterations
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		fatal(err.Error())
	}

	logger := slogger.New(slogger.LevelFromString(cfg.LogLevel))

	model, err := config.GetModel(cfg.Provider, cfg.Model)
	if err != nil {
		fatal(err.Error())
	}

	vaultOpts := []vault.StoreOption{vault.WithLogger(logger)}
	if cfg.Vault.Dir != "" {
		backend, err := vault.NewFileBackend(cfg.Vault.Dir)
		if err != nil {
			fatal(err.Error())
		}
		vaultOpts = append(vaultOpts, vault.WithBackend(backend))
	}
	if cfg.Vault.PreviewLimit > 0 {
		vaultOpts = append(vaultOpts, vault.WithPreviewLimit(cfg.Vault.PreviewLimit))
	}
	if cfg.Vault.StoreThreshold > 0 {
		vaultOpts = append(vaultOpts, vault.WithStoreThreshold(cfg.Vault.StoreThreshold))
	}
	store := vault.NewStore(vaultOpts...)

	var sessions strand.SessionRepository
	if cfg.Sessions.Dir != "" {
		sessions, err = strand.NewFileSessionRepository(cfg.Sessions.Dir)
		if err != nil {
			fatal(err.Error())
		}
	}

	tools := toolkit.NewRegistry(
		toolkit.NewDuckDuckGoTool(toolkit.DuckDuckGoToolOptions{}),
		toolkit.NewWikipediaTool(toolkit.WikipediaToolOptions{}),
	)

	orchestrator, err := strand.NewOrchestrator(strand.OrchestratorOptions{
		Model:            model,
		Engine:           sandbox.New(sandbox.WithLogger(logger)),
		Vault:            store,
		Tools:            tools,
		Sessions:         sessions,
		SystemPrompt:     cfg.SystemPrompt,
		MaxIterations:    cfg.MaxIterations,
		MaxConcurrency:   cfg.MaxConcurrency,
		ExecutionTimeout: cfg.ExecutionTimeout,
		Logger:           logger,
	})
	if err != nil {
		fatal(err.Error())
	}

	ctx := context.Background()
	if timeoutFlag > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeoutFlag)
		defer cancel()
	}

	session, err := orchestrator.Run(ctx, input)
	if err != nil {
		if session != nil && verbose {
			printIterations(session)
		}
		fatal(err.Error())
	}

	if verbose {
		printIterations(session)
		fmt.Printf("%s %s (%d input tokens, %d output tokens)\n\n",
			boldStyle.Sprint("session"), session.ID,
			session.Usage.InputTokens, session.Usage.OutputTokens)
	}
	fmt.Println(session.FinalOutput)
}

func printIterations(session *strand.Session) {
	for _, iteration := range session.Iterations {
		fmt.Printf("%s %d\n", boldStyle.Sprint("iteration"), iteration.Number)
		for _, op := range iteration.Operations {
			fmt.Printf("  %s\n", op)
		}
		for _, record := range iteration.ExecutionResults {
			if record.Result == nil {
				continue
			}
			if record.Result.Success {
				fmt.Printf("  %s in %s\n",
					successStyle.Sprint("execution succeeded"),
					record.Result.Duration)
			} else {
				fmt.Printf("  %s: %s\n",
					errorStyle.Sprint("execution failed"),
					record.Result.Error.Message)
			}
		}
		for _, diagnostic := range iteration.Diagnostics {
			fmt.Printf("  %s %s\n", errorStyle.Sprint("parse:"), diagnostic)
		}
	}
	fmt.Println()
}
