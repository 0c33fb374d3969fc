// Command reqverify runs one verification from the terminal and prints the
// report.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/bryanwahyu/reqverify/internal/application"
	appanalysis "github.com/bryanwahyu/reqverify/internal/application/analysis"
	"github.com/bryanwahyu/reqverify/internal/config"
	"github.com/bryanwahyu/reqverify/internal/infra/db/memory"
	"github.com/bryanwahyu/reqverify/internal/logging"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("reqverify", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var (
		docPath    = fs.String("requirements", "", "path to the .docx requirements document")
		sourceDir  = fs.String("src", "", "source code directory")
		model      = fs.String("model", "mock", "model name (gpt-4o, claude 3.5 sonnet, gemini 2.5 flash, local llama 3, mock)")
		apiKey     = fs.String("api-key", "", "credential for hosted models (falls back to the provider env var)")
		configPath = fs.String("config", os.Getenv("CONFIG_PATH"), "path to config.yaml")
		outDir     = fs.String("out", "", "output directory (overrides config)")
		asJSON     = fs.Bool("json", false, "print the analysis as JSON instead of the text report")
		listModels = fs.Bool("models", false, "list known models and exit")
	)
	if err := fs.Parse(args); err != nil {
		return 2
	}

	if *listModels {
		for _, m := range appanalysis.Models() {
			if m.RequiresCredential() {
				fmt.Fprintf(stdout, "%-20s %-10s %s\n", m.Name, m.Provider, m.CredentialEnv)
			} else {
				fmt.Fprintf(stdout, "%-20s %s\n", m.Name, m.Provider)
			}
		}
		return 0
	}
	if *docPath == "" || *sourceDir == "" {
		fmt.Fprintln(stderr, "reqverify: -requirements and -src are required")
		fs.Usage()
		return 2
	}

	if err := config.LoadDotEnv(); err != nil {
		fmt.Fprintln(stderr, "reqverify:", err)
		return 1
	}
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(stderr, "reqverify:", err)
		return 1
	}
	if *outDir != "" {
		cfg.Output.Dir = *outDir
	}

	logger, closer, err := logging.New(cfg.Log, stderr)
	if err != nil {
		fmt.Fprintln(stderr, "reqverify:", err)
		return 1
	}
	defer closer.Close()

	doc, err := os.ReadFile(*docPath)
	if err != nil {
		fmt.Fprintln(stderr, "reqverify:", err)
		return 1
	}

	repo, err := memory.NewAnalysisRepository(1)
	if err != nil {
		fmt.Fprintln(stderr, "reqverify:", err)
		return 1
	}
	svc := &appanalysis.Service{
		Selector:  appanalysis.NewSelector(cfg.Providers, logger),
		Repo:      repo,
		Clock:     application.SystemClock{},
		Log:       logger.With("component", "analysis"),
		OutputDir: cfg.Output.Dir,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	a, err := svc.Run(ctx, appanalysis.RunCommand{
		Requirements: doc,
		SourceDir:    *sourceDir,
		Model:        *model,
		APIKey:       *apiKey,
	})
	if err != nil {
		fmt.Fprintln(stderr, "reqverify:", err)
		return 1
	}

	if *asJSON {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(a); err != nil {
			fmt.Fprintln(stderr, "reqverify:", err)
			return 1
		}
		return 0
	}
	fmt.Fprint(stdout, a.Report)
	if a.Fallback {
		fmt.Fprintf(stderr, "note: %s unavailable (%s), mock analysis shown\n", a.Model, a.FallbackReason)
	}
	return 0
}
