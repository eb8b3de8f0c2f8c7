// Command jobfitd runs the job-fit analysis service: an HTTP API over the
// multi-stage LLM task pipelines for resume checks, job posting analysis,
// policy question answering, and resume tailoring.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/nefro313/jobfit-ai-backend/api"
	"github.com/nefro313/jobfit-ai-backend/config"
	"github.com/nefro313/jobfit-ai-backend/extract"
	"github.com/nefro313/jobfit-ai-backend/llm"
	"github.com/nefro313/jobfit-ai-backend/logging"
	"github.com/nefro313/jobfit-ai-backend/pipeline"
	"github.com/nefro313/jobfit-ai-backend/prompt"
	"github.com/nefro313/jobfit-ai-backend/rag"
	"github.com/nefro313/jobfit-ai-backend/ratelimit"
	"github.com/nefro313/jobfit-ai-backend/service"
	"github.com/nefro313/jobfit-ai-backend/shutdown"
)

func main() {
	configPath := flag.String("config", "config.toml", "path to configuration file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "jobfitd: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	log := logging.New()
	log.SetLevel(logging.ParseLevel(cfg.Logging.Level))
	log.Info("starting jobfitd", map[string]interface{}{
		"provider": cfg.LLM.Provider,
		"model":    cfg.LLM.Model,
	})

	// Model provider
	provider, err := llm.NewProvider(llm.ProviderConfig{
		Provider:  cfg.LLM.Provider,
		Model:     cfg.LLM.Model,
		APIKey:    cfg.LLM.APIKey,
		MaxTokens: cfg.LLM.MaxTokens,
		BaseURL:   cfg.LLM.BaseURL,
		Retry: llm.RetryConfig{
			MaxRetries:  cfg.LLM.MaxRetries,
			InitBackoff: cfg.LLM.InitBackoff.Std(),
			MaxBackoff:  cfg.LLM.MaxBackoff.Std(),
		},
	})
	if err != nil {
		return err
	}

	// Pipeline definitions
	store := prompt.NewStore()
	if err := store.LoadDir(cfg.Pipelines.Dir); err != nil {
		return err
	}

	exec := pipeline.NewExecutor(store, provider,
		pipeline.WithTimeout(cfg.Pipelines.TaskTimeout.Std()),
		pipeline.WithLogger(log))
	orch := pipeline.NewOrchestrator(store, exec, log)

	// Document index for policy answers
	index, err := rag.NewIndex(rag.IndexConfig{
		Path:         cfg.RAG.IndexPath,
		ChunkSize:    cfg.RAG.ChunkSize,
		ChunkOverlap: cfg.RAG.ChunkOverlap,
		Logger:       log,
	})
	if err != nil {
		return err
	}
	for _, doc := range cfg.RAG.Documents {
		if _, err := index.IngestPDF(doc); err != nil {
			log.Warn("document ingest failed", map[string]interface{}{
				"document": doc,
				"error":    err.Error(),
			})
		}
	}

	// Services
	fetcher := extract.NewFetcher()
	server := api.NewServer(
		api.Config{
			Addr:         cfg.Server.Addr,
			ReadTimeout:  cfg.Server.ReadTimeout.Std(),
			WriteTimeout: cfg.Server.WriteTimeout.Std(),
		},
		service.NewATSChecker(orch, log),
		service.NewJobAnalyser(orch, fetcher, log),
		service.NewHRQA(orch, index, log),
		service.NewResumeBuilder(orch, fetcher, log),
		ratelimit.NewLimiter(cfg.RateLimit.RequestsPerMinute, cfg.RateLimit.Burst),
		log,
	)

	coord := shutdown.NewCoordinator(cfg.Server.ShutdownTimeout.Std(), log)
	coord.Register("http", shutdown.PhaseServer, server.Shutdown)
	coord.Register("index", shutdown.PhaseStorage, func(ctx context.Context) error {
		return index.Close()
	})
	if closer, ok := provider.(interface{ Close() error }); ok {
		coord.Register("provider", shutdown.PhaseStorage, func(ctx context.Context) error {
			return closer.Close()
		})
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	go func() {
		_ = coord.Notify()
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
	case <-coord.Done():
	}
	log.Info("jobfitd stopped", nil)
	return nil
}
