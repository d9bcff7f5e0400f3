package bootstrap

import (
	"context"
	"log"

	"startup-hunter-be/internal/config"
	"startup-hunter-be/internal/controller"
	"startup-hunter-be/internal/handler"
	"startup-hunter-be/internal/model"
	"startup-hunter-be/internal/pkg/logger"
	"startup-hunter-be/internal/repository/contract"
	"startup-hunter-be/internal/repository/implementation"
	"startup-hunter-be/internal/repository/memory"
	"startup-hunter-be/internal/service"
	"startup-hunter-be/internal/websocket"
	"startup-hunter-be/pkg/ai/generator"
	"startup-hunter-be/pkg/browser/actionbook"
	"startup-hunter-be/pkg/database"
	"startup-hunter-be/pkg/events"
	"startup-hunter-be/pkg/llm/factory"
	"startup-hunter-be/pkg/memory/acontext"
	"startup-hunter-be/pkg/scraper/brightdata"
	"startup-hunter-be/pkg/workflow"
	"startup-hunter-be/pkg/workflow/process"

	pktNats "startup-hunter-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
)

type Container struct {
	// Controllers
	HealthController   *controller.HealthController
	PipelineController controller.IPipelineController

	// Background Services (Exposed for main.go to run)
	ConsumerService service.IConsumerService

	// WebSockets
	ProgressHandler *handler.ProgressHandler
	WebSocketHub    *websocket.Hub

	// Owned processes and connections, released by Close
	ProcessManager *process.Manager
	Logger         logger.ILogger

	closers []func()
}

// NewContainer wires every dependency. Optional infrastructure (postgres,
// redis, nats, the LLM and the external adapters) degrades with a warning
// when unreachable or unconfigured.
func NewContainer(ctx context.Context, cfg *config.Config) *Container {
	c := &Container{}

	// 1. Core Facades
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")
	c.Logger = sysLogger

	// 2. LLM Provider
	llmProvider, err := factory.NewLLMProvider(ctx, llmConfig(cfg))
	if err != nil {
		log.Fatalf("[FATAL] Failed to initialize LLM Provider: %v", err)
	}
	if llmProvider == nil {
		log.Printf("[WARN] LLM Provider %q not configured, generation uses fallback content", cfg.Ai.LLMProvider)
	} else {
		log.Printf("[INFO] Using LLM Provider: %s (%s)", cfg.Ai.LLMProvider, cfg.Ai.LLMModel)
	}

	// 3. External Adapters
	scraper := brightdata.NewClient(brightdata.Config{
		Token:   cfg.Keys.BrightDataToken,
		Zone:    cfg.Keys.BrightDataZone,
		Timeout: cfg.Ai.ScraperTimeout,
	}, sysLogger)
	if !scraper.Configured() {
		log.Printf("[WARN] BRIGHT_DATA_API_TOKEN not set, trends use sample data")
	}

	memoryClient := acontext.NewClient(acontext.Config{
		APIKey:    cfg.Keys.AcontextAPIKey,
		BaseURL:   cfg.Keys.AcontextBaseURL,
		ProjectID: cfg.Keys.AcontextProjectID,
	}, sysLogger)
	if !memoryClient.Configured() {
		log.Printf("[WARN] ACONTEXT_API_KEY not set, session memory disabled")
	}

	tester := actionbook.NewClient(
		actionbook.NewExecRunner(cfg.MVP.ActionbookBinary),
		actionbook.Config{
			ScreenshotDir:    cfg.MVP.ScreenshotDir,
			ScreenshotPrefix: cfg.MVP.ScreenshotPrefix,
		},
		sysLogger,
	)
	if !tester.Configured() {
		log.Printf("[WARN] ActionBook CLI %q not found, MVP tests report unavailable", cfg.MVP.ActionbookBinary)
	}

	// 4. Preview Server Processes
	processLogger := logger.NewIsolatedLogger("logs/mvp.log")
	servers := process.NewManager(process.Config{
		TemplateDir:    cfg.MVP.TemplateDir,
		InstallCommand: cfg.MVP.InstallCommand,
		DevCommand:     cfg.MVP.DevCommand,
		Host:           cfg.MVP.Host,
		PortStart:      cfg.MVP.PortStart,
		PortEnd:        cfg.MVP.PortEnd,
		StartGrace:     cfg.MVP.StartGrace,
		StopTimeout:    cfg.MVP.StopTimeout,
	}, process.NewMemoryRegistry(), processLogger)
	c.ProcessManager = servers

	// 5. Pipeline Engine
	engine := workflow.NewEngine(workflow.Dependencies{
		Scraper:   scraper,
		Generator: generator.New(llmProvider, sysLogger),
		Memory:    memoryClient,
		Servers:   servers,
		Tester:    tester,
		Logger:    sysLogger,
	})

	// 6. Redis
	var rdb *redis.Client
	if cfg.App.RedisURL != "" {
		opt, err := redis.ParseURL(cfg.App.RedisURL)
		if err != nil {
			log.Printf("[WARN] Failed to parse Redis URL: %v. Using direct Addr", err)
			opt = &redis.Options{
				Addr: cfg.App.RedisURL,
			}
		}
		rdb = redis.NewClient(opt)
		if _, err := rdb.Ping(ctx).Result(); err != nil {
			log.Printf("[WARN] Failed to connect to Redis: %v", err)
			_ = rdb.Close()
			rdb = nil
		} else {
			c.closers = append(c.closers, func() { _ = rdb.Close() })
		}
	}

	// 7. Repositories
	var sessionRepo contract.SessionRepository
	if cfg.Session.Store == "redis" && rdb != nil {
		sessionRepo = implementation.NewRedisSessionRepository(rdb, cfg.Session.TTL)
		log.Printf("[INFO] Using Session Store: REDIS")
	} else {
		if cfg.Session.Store == "redis" {
			log.Printf("[WARN] Redis unavailable, falling back to in-memory sessions")
		}
		sessionRepo = memory.NewSessionRepository(cfg.Session.TTL)
		log.Printf("[INFO] Using Session Store: MEMORY")
	}

	var runRepo contract.StageRunRepository = memory.NewStageRunRepository()
	if cfg.Database.Connection != "" {
		db, err := database.NewGormDBFromDSN(cfg.Database.Connection, cfg.App.Environment != "production")
		if err != nil {
			log.Printf("[WARN] Unable to connect to GORM DB: %v. Stage history kept in memory", err)
		} else if err := database.Migrate(db, &model.StageRun{}); err != nil {
			log.Printf("[WARN] Stage run migration failed: %v. Stage history kept in memory", err)
		} else {
			runRepo = implementation.NewStageRunRepository(db)
			if sqlDB, err := db.DB(); err == nil {
				c.closers = append(c.closers, func() { _ = sqlDB.Close() })
			}
		}
	}

	// 8. Event Bus
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{},
		watermillLogger,
	)
	c.closers = append(c.closers, func() { _ = pubSub.Close() })

	publishers := events.MultiPublisher{
		service.NewEventBusPublisher(pubSub, service.PipelineEventsTopic),
	}
	if cfg.App.NatsURL != "" {
		natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL)
		if err != nil {
			log.Printf("[WARN] Failed to connect to NATS Publisher: %v", err)
		} else {
			publishers = append(publishers, natsPub)
			c.closers = append(c.closers, natsPub.Close)
		}
	}

	// 9. WebSocket Hub
	wsLogger := logger.NewIsolatedLogger("logs/progress.log")
	wsHub := websocket.NewHub(rdb, wsLogger)
	go wsHub.Run(ctx)
	c.WebSocketHub = wsHub

	c.ConsumerService = service.NewConsumerService(pubSub, service.PipelineEventsTopic, wsHub, wsLogger)

	// 10. Services
	pipelineService := service.NewPipelineService(
		engine,
		sessionRepo,
		runRepo,
		servers,
		memoryClient,
		publishers,
		sysLogger,
	)

	// 11. Controllers
	c.HealthController = controller.NewHealthController(cfg.App.Version)
	c.PipelineController = controller.NewPipelineController(pipelineService, cfg.App.JWTSecret)
	c.ProgressHandler = handler.NewProgressHandler(pipelineService, wsHub, wsLogger)

	return c
}

// Close stops every preview server and releases connections in reverse
// order of creation.
func (c *Container) Close() {
	if _, n := c.ProcessManager.StopAll(); n > 0 {
		log.Printf("[INFO] Stopped %d MVP server(s)", n)
	}
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
	_ = c.Logger.Sync()
}

func llmConfig(cfg *config.Config) factory.Config {
	out := factory.Config{
		Provider: cfg.Ai.LLMProvider,
		Model:    cfg.Ai.LLMModel,
		Timeout:  cfg.Ai.Timeout,
	}
	switch cfg.Ai.LLMProvider {
	case "openai":
		out.APIKey = cfg.Keys.OpenAI
		out.BaseURL = cfg.Ai.OpenAIBaseURL
	case "gemini":
		out.APIKey = cfg.Keys.GoogleGemini
	case "ollama":
		out.BaseURL = cfg.Ai.OllamaBaseURL
	}
	return out
}
