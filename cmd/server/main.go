package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/influencerconnect/chat-server/internal/api"
	"github.com/influencerconnect/chat-server/internal/auth"
	"github.com/influencerconnect/chat-server/internal/config"
	"github.com/influencerconnect/chat-server/internal/core"
	"github.com/influencerconnect/chat-server/internal/media"
	"github.com/influencerconnect/chat-server/internal/notify"
	"github.com/influencerconnect/chat-server/internal/store"
)

func openStore(cfg config.Config) (store.Store, error) {
	switch cfg.DatabaseDriver {
	case "postgres":
		return store.NewPostgresStore(cfg.DatabaseURL)
	default:
		return store.NewSQLiteStore(cfg.DatabaseURL)
	}
}

func openBroker(ctx context.Context, cfg config.Config) (notify.Broker, error) {
	if cfg.RedisURL == "" {
		log.Println("REDIS_URL not set, using in-process message notifications")
		return notify.NewMemoryBroker(), nil
	}
	return notify.NewRedisBroker(ctx, cfg.RedisURL)
}

func main() {
	// Load configuration
	config.LoadConfig()
	cfg := config.AppConfig

	// Setup logging
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	if cfg.LogLevel == "DEBUG" {
		log.Println("Service starting in DEBUG mode")
	}

	seedFile := flag.String("seed", "", "Seed demo users from a Markdown table file and exit")
	seedPassword := flag.String("seed-password", "password123", "Password given to seeded users")
	flag.Parse()

	dbStore, err := openStore(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer dbStore.Close()

	directory := core.NewDirectoryService(dbStore)

	if *seedFile != "" {
		log.Printf("Seeding users from %s...", *seedFile)
		users, err := store.ParseSeedFile(*seedFile)
		if err != nil {
			log.Fatalf("Seeding failed: %v", err)
		}
		created, err := directory.SeedUsers(context.Background(), users, *seedPassword)
		if err != nil {
			log.Fatalf("Seeding failed after %d users: %v", created, err)
		}
		log.Printf("Seeding complete. Created %d of %d users. Exiting.", created, len(users))
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	broker, err := openBroker(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize message notifications: %v", err)
	}
	defer broker.Close()

	var avatars *media.AvatarStore
	if cfg.R2.Enabled() {
		if avatars, err = media.NewAvatarStore(cfg.R2); err != nil {
			log.Fatalf("Failed to initialize avatar storage: %v", err)
		}
	} else {
		log.Println("R2 not configured, avatar uploads disabled")
	}

	apiHandler := api.NewAPIHandler(
		directory,
		core.NewSearchService(dbStore, cfg.SearchFallbackAllUsers),
		core.NewChatService(dbStore),
		core.NewMessageService(dbStore, broker),
		auth.NewJWTManager(cfg.JWTSecret, time.Duration(cfg.JWTTTLHours)*time.Hour),
		avatars,
		cfg.CORSAllowedOrigins,
	)
	router := api.NewRouter(apiHandler, config.CorsOptions(cfg.CORSAllowedOrigins))

	serverAddr := fmt.Sprintf(":%s", cfg.HTTPPort)
	srv := &http.Server{
		Addr:        serverAddr,
		Handler:     router,
		ReadTimeout: 15 * time.Second,
		// No WriteTimeout: WebSocket connections stay open indefinitely.
		IdleTimeout: 120 * time.Second,
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Printf("Starting server on %s. Press Ctrl+C to quit.", serverAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("could not listen on %s: %w", serverAddr, err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Println("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server forced to shutdown: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		log.Printf("Server error: %v", err)
		os.Exit(1)
	}
	log.Println("Server exiting gracefully")
}
