package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rahul/taskpilot/internal/agent"
	"github.com/rahul/taskpilot/internal/attach"
	"github.com/rahul/taskpilot/internal/gateway"
	"github.com/rahul/taskpilot/internal/governance"
	"github.com/rahul/taskpilot/internal/observability"
	"github.com/rahul/taskpilot/internal/store"
	"github.com/rahul/taskpilot/internal/tools"
	"github.com/rahul/taskpilot/pkg/config"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

func main() {
	observability.PrintBanner()
	observability.InitializeTerminal()

	// Route all log output through the terminal mutex so it never
	// interrupts the dashboard's cursor save/restore sequence.
	log.SetOutput(observability.NewTermWriter())

	cfg := config.LoadConfig("config.json")

	tgCfg, ok := cfg.GetTelegramConfig()
	if !ok {
		log.Fatal("Telegram gateway is not enabled or token is missing")
	}

	db, err := store.NewStore(cfg.Memory.Path)
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()

	// Initialize Tools
	registry := tools.NewRegistry()
	registry.Register(tools.NewSearchTool(cfg.Search.TopK, cfg.Search.FetchContent))
	registry.Register(tools.NewCalendarTool(db))

	if cfg.SMTP.Host != "" {
		emailTool, err := tools.NewEmailTool(cfg.SMTP)
		if err != nil {
			log.Printf("Warning: Failed to initialize email tool: %v", err)
		} else {
			registry.Register(emailTool)
		}
	}

	gov, err := governance.NewPolicyEngineFromRules(cfg.Governance.DeniedTools, cfg.Governance.DeniedPatterns)
	if err != nil {
		log.Printf("Warning: some governance patterns were skipped: %v", err)
	}

	logger := observability.NewLogger()
	prompts := agent.NewPromptManager("./prompts")

	// Initialize LLM (using default enabled provider)
	pName, pCfg := cfg.GetDefaultProvider()
	if pName == "" {
		log.Fatal("No enabled provider found in config")
	}

	var llm llms.Model
	switch pName {
	case "openai", "openrouter":
		opts := []openai.Option{
			openai.WithToken(pCfg.APIKey),
			openai.WithModel(pCfg.Model),
		}
		if pCfg.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(pCfg.BaseURL))
		}
		llm, err = openai.New(opts...)
	default:
		log.Fatalf("Provider %s not yet implemented in main", pName)
	}

	if err != nil {
		log.Fatal(err)
	}

	builder := attach.NewBuilder(cfg.Attachments.Dir)

	planner := agent.NewPlanner(llm, db.Cache(), prompts, logger)
	executor := agent.NewExecutor(registry, db, llm, gov, builder, prompts, logger)
	engine := agent.NewEngine(planner, executor, db, logger)

	tg, err := gateway.NewTelegramGateway(tgCfg.Token, engine, db)
	if err != nil {
		log.Fatal(err)
	}
	var messenger gateway.Messenger = tg

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Start Live Resource Dashboard (1-second updates)
	go func() {
		ticker := time.NewTicker(1 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				observability.PrintLiveStatus()
			}
		}
	}()

	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				observability.Heartbeat()
				logger.LogHeartbeat()
			}
		}
	}()

	// Start Gateway in a goroutine so we can wait for context in the main loop
	go func() {
		if err := messenger.Start(); err != nil {
			log.Printf("\033[91m[ FAIL ] GATEWAY CRITICAL ERROR: %v\033[0m", err)
			stop() // stop caller if gateway dies
		}
	}()

	// Wait for shutdown signal
	<-ctx.Done()

	if err := messenger.Stop(); err != nil {
		log.Printf("Warning: gateway shutdown failed: %v", err)
	}
	observability.CleanupTerminal()

	// Give a short time for final logs/syncs
	time.Sleep(500 * time.Millisecond)
	log.Println("\033[95m[ EXIT ] ENGINE DE-INITIALIZED. GOODBYE.\033[0m")
}
