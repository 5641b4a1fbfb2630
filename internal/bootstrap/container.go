package bootstrap

import (
	"context"
	"log"
	"strings"

	"contract-review-be/internal/config"
	"contract-review-be/internal/controller"
	"contract-review-be/internal/pkg/logger"
	"contract-review-be/internal/pkg/mailer"
	"contract-review-be/internal/repository/memory"
	"contract-review-be/internal/repository/unitofwork"
	"contract-review-be/internal/service"
	"contract-review-be/pkg/analysis"
	"contract-review-be/pkg/clock"
	"contract-review-be/pkg/llm/factory"
	"contract-review-be/pkg/lock"

	pktNats "contract-review-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const (
	analysisTopic     = "analysis"
	notificationTopic = "notifications"
)

type Container struct {
	// Controllers
	ContractController       controller.IContractController
	RecommendationController controller.IRecommendationController
	SignatureController      controller.ISignatureController
	SigningController        controller.ISigningController

	// Background Services (Exposed for main.go to run)
	AnalysisConsumer     service.IConsumerService
	NotificationConsumer service.INotificationConsumer
	MailDispatcher       *service.MailDispatcher
	Sweeper              service.ISweeperService

	Logger logger.ILogger
}

// NewContainer wires the application. db may be nil when the memory
// storage driver is configured.
func NewContainer(db *gorm.DB, cfg *config.Config) *Container {
	// 1. Core Facades
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")
	clk := clock.System()

	var uowFactory unitofwork.RepositoryFactory
	if db != nil {
		uowFactory = unitofwork.NewRepositoryFactory(db)
	} else {
		log.Println("[INFO] Using in-memory storage")
		uowFactory = memory.NewRepositoryFactory(memory.NewStore())
	}

	locker := newLocker(cfg)

	emailService := mailer.NewEmailService(
		cfg.SMTP.Host,
		cfg.SMTP.Port,
		cfg.SMTP.Email,
		cfg.SMTP.Password,
		cfg.SMTP.SenderName,
	)

	// 2. Event Bus
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{OutputChannelBuffer: 64},
		watermillLogger,
	)

	var (
		natsPub *pktNats.Publisher
		natsSub *pktNats.Subscriber
		events  service.EventPublisher
	)
	if cfg.App.NatsEnabled {
		var err error
		natsPub, err = pktNats.NewPublisher(cfg.App.NatsURL)
		if err != nil {
			log.Printf("[WARN] Failed to connect to NATS Publisher: %v", err)
		}
		natsSub, err = pktNats.NewSubscriber(cfg.App.NatsURL)
		if err != nil {
			log.Printf("[WARN] Failed to connect to NATS Subscriber: %v", err)
		}
	}
	// A nil *Publisher must not end up inside the interface.
	if natsPub != nil {
		events = natsPub
	}

	// 3. Analysis engine
	llmProvider, err := factory.NewLLMProvider(
		cfg.Ai.LLMProvider,
		cfg.Ai.LLMModel,
		cfg.Ai.LLMBaseURL,
		cfg.Ai.LLMAPIKey,
	)
	if err != nil {
		log.Fatalf("[FATAL] Failed to initialize LLM Provider: %v", err)
	}
	log.Printf("[INFO] Using LLM Provider: %s (%s)", cfg.Ai.LLMProvider, cfg.Ai.LLMModel)
	analyzer := analysis.NewLLMAnalyzer(llmProvider, cfg.Ai.MaxContentChars)

	// 4. Services
	auditService := service.NewAuditService(uowFactory, locker, clk, sysLogger)
	sessionService := service.NewSessionService(
		uowFactory,
		locker,
		clk,
		auditService,
		memory.NewSessionTokenIndex(cfg.Lifecycle.SessionTTL),
	)
	notifier := service.NewQueueNotifier(pubSub, notificationTopic, sysLogger)

	contractService := service.NewContractService(uowFactory, locker, clk, auditService)
	analysisService := service.NewAnalysisService(
		uowFactory,
		locker,
		clk,
		auditService,
		analyzer,
		sysLogger,
		service.AnalysisOptions{
			Timeout:    cfg.Lifecycle.AnalysisTimeout,
			StaleAfter: cfg.Lifecycle.AnalysisStaleAfter,
		},
	)
	recommendationService := service.NewRecommendationService(
		uowFactory,
		locker,
		clk,
		auditService,
		sysLogger,
		cfg.Lifecycle.ApplyTimeout,
	)
	lifecycleService := service.NewLifecycleService(
		uowFactory,
		locker,
		clk,
		auditService,
		sessionService,
		notifier,
		sysLogger,
		service.LifecycleOptions{
			SessionTTL:     cfg.Lifecycle.SessionTTL,
			DocumentTTL:    cfg.Lifecycle.DocumentTTL,
			AccessLinkBase: strings.TrimRight(cfg.App.ClientURL, "/"),
			SweepBatchSize: cfg.Lifecycle.SweepBatchSize,
		},
	)

	analysisJobs := service.NewAnalysisJobPublisher(pubSub, analysisTopic)
	analysisConsumer := service.NewAnalysisConsumer(pubSub, analysisTopic, analysisService, events, sysLogger)
	notificationConsumer := service.NewNotificationConsumer(pubSub, notificationTopic, events, emailService, sysLogger)
	sweeper := service.NewSweeperService(lifecycleService, analysisService, cfg.Lifecycle.SweepInterval, sysLogger)

	var mailDispatcher *service.MailDispatcher
	if natsSub != nil {
		mailDispatcher = service.NewMailDispatcher(natsSub, emailService, logger.NewIsolatedLogger("logs/mailer.log"))
	}

	// 5. Controllers
	return &Container{
		ContractController:       controller.NewContractController(contractService, analysisJobs, cfg.Auth.JWTSecret),
		RecommendationController: controller.NewRecommendationController(recommendationService, cfg.Auth.JWTSecret),
		SignatureController:      controller.NewSignatureController(lifecycleService, cfg.Auth.JWTSecret),
		SigningController:        controller.NewSigningController(lifecycleService),

		AnalysisConsumer:     analysisConsumer,
		NotificationConsumer: notificationConsumer,
		MailDispatcher:       mailDispatcher,
		Sweeper:              sweeper,

		Logger: sysLogger,
	}
}

// newLocker returns the per-entity lock. Redis is only needed when several
// API instances share one database.
func newLocker(cfg *config.Config) lock.Locker {
	if cfg.Lifecycle.LockDriver != "redis" {
		return lock.NewMemoryLocker()
	}

	opt, err := redis.ParseURL(cfg.App.RedisURL)
	if err != nil {
		log.Printf("[WARN] Failed to parse Redis URL: %v. Using direct Addr", err)
		opt = &redis.Options{
			Addr: cfg.App.RedisURL,
		}
	}
	rdb := redis.NewClient(opt)
	if _, err := rdb.Ping(context.Background()).Result(); err != nil {
		log.Printf("[WARN] Failed to connect to Redis: %v", err)
	}
	return lock.NewRedisLocker(rdb, 0)
}
