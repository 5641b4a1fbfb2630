package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"contract-review-be/internal/bootstrap"
	"contract-review-be/internal/config"
	"contract-review-be/internal/server"
	"contract-review-be/internal/tracer"
	"contract-review-be/pkg/database"

	"gorm.io/gorm"
)

func main() {
	// 0. Load Configuration
	cfg := config.Load()

	// 1. Initialize Tracer (no-op unless OTEL_ENABLED=true)
	shutdownTracer := tracer.InitTracer(cfg.App.OtelEnabled, cfg.App.OtelEndpoint)
	defer shutdownTracer(context.Background())

	// 2. Initialize Database
	var gormDB *gorm.DB
	if cfg.Database.Driver != "memory" {
		db, err := database.NewGormDBFromDSN(cfg.Database.Connection, cfg.App.Environment != "production")
		if err != nil {
			log.Panicf("Unable to connect to GORM DB: %v", err)
		}
		gormDB = db
	}

	// 3. Bootstrap Dependencies (Container)
	container := bootstrap.NewContainer(gormDB, cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 4. Start Background Services
	if err := container.AnalysisConsumer.Consume(ctx); err != nil {
		log.Fatalf("Background: analysis consumer failed to start: %v", err)
	}
	if err := container.NotificationConsumer.Consume(ctx); err != nil {
		log.Fatalf("Background: notification consumer failed to start: %v", err)
	}
	if container.MailDispatcher != nil {
		if err := container.MailDispatcher.Start(); err != nil {
			log.Printf("Background: mail dispatcher not started: %v", err)
		}
	}
	go container.Sweeper.Run(ctx)

	// 5. Initialize Server
	srv := server.New(cfg, container)

	go func() {
		<-ctx.Done()
		log.Println("Shutting down...")
		if err := srv.Shutdown(); err != nil {
			log.Printf("Shutdown error: %v", err)
		}
	}()

	// 6. Run Server
	if err := srv.Run(); err != nil {
		log.Fatal(err)
	}
}
