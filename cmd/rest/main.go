package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"startup-hunter-be/internal/bootstrap"
	"startup-hunter-be/internal/config"
	"startup-hunter-be/internal/server"
	"startup-hunter-be/internal/tracer"
)

func main() {
	// 1. Load Configuration
	cfg := config.Load()

	// 2. Initialize Tracer (no-op unless OTEL_ENABLED=true)
	shutdownTracer := tracer.InitTracer(cfg.App.Version)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Bootstrap Dependencies (Container)
	container := bootstrap.NewContainer(ctx, cfg)

	// 4. Start Background Services
	go func() {
		log.Println("Background: Starting Consumer Service...")
		if err := container.ConsumerService.Consume(ctx); err != nil {
			log.Printf("Background Consumer Error: %v", err)
		}
	}()

	// 5. Initialize Server
	srv := server.New(cfg, container)

	// 6. Run Server
	go func() {
		if err := srv.Run(); err != nil {
			log.Printf("Server stopped: %v", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down...")

	// 7. Graceful Shutdown: HTTP first, then preview servers and connections
	if err := srv.Shutdown(); err != nil {
		log.Printf("HTTP shutdown error: %v", err)
	}
	container.Close()

	tctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := shutdownTracer(tctx); err != nil {
		log.Printf("Tracer shutdown error: %v", err)
	}
}
