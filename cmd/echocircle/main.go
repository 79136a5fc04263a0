// Command main is the entry point for the EchoCircle client core: it builds
// the state container, hydrates it from the configured snapshot backend, and
// serves the devtools surface until shutdown.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"echocircle/internal/api"
	"echocircle/internal/config"
	"echocircle/internal/devtools"
	"echocircle/internal/featureflags"
	"echocircle/internal/observability"
	"echocircle/internal/seed"
	"echocircle/internal/snapshot"
	"echocircle/internal/state"

	"github.com/gofiber/fiber/v2"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize tracing
	shutdownTracing, err := observability.InitTracing(observability.TracingConfig{
		ServiceName:    "echocircle-core",
		ServiceVersion: "1.0.0",
		Environment:    cfg.Env,
		Enabled:        cfg.TracingEnabled,
		Exporter:       cfg.TracingExport,
		OTLPEndpoint:   cfg.OTLPEndpoint,
		SamplerRatio:   cfg.SamplerRatio,
	})
	if err != nil {
		log.Fatalf("Failed to initialize tracing: %v", err)
	}

	// Select the snapshot backend
	snapStore, err := buildSnapshotStore(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize snapshot backend %q: %v", cfg.SnapshotBackend, err)
	}

	// Build the store and hydrate it before anything reads state
	store := state.NewStore()
	gate := snapshot.NewGate(snapStore, store, cfg.SnapshotVersion,
		time.Duration(cfg.HydrateTimeout)*time.Second)
	if err := gate.Run(context.Background()); err != nil {
		log.Fatalf("Hydration gate failed: %v", err)
	}

	// Optional demo data on a cold start
	if cfg.DemoSeed && !store.GetState().LoggedIn() {
		factory := seed.NewFactory()
		user := factory.BuildUser(5)
		store.Dispatch(state.Login(user, "demo-token"))
		store.Dispatch(state.SetPosts(factory.BuildFeed(12)))
	}

	// Persist every change from here on
	writer := snapshot.NewWriter(snapStore, store, cfg.SnapshotVersion,
		time.Duration(cfg.SnapshotDebounce)*time.Millisecond, cfg.SnapshotBackend)
	writer.Start()

	client := api.NewClient(cfg.BackendURL, store)
	flags := featureflags.NewManager(cfg.FeatureFlags)
	srv := devtools.NewServer(store, gate, writer, client, flags)

	app := fiber.New(fiber.Config{
		AppName: "EchoCircle Devtools",
	})
	srv.SetupMiddleware(app)
	srv.SetupRoutes(app)

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Println("Shutting down...")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := app.ShutdownWithContext(ctx); err != nil {
			log.Printf("Devtools shutdown error: %v", err)
		}
		if err := writer.Stop(ctx); err != nil {
			log.Printf("Final snapshot write error: %v", err)
		}
		if err := snapStore.Close(); err != nil {
			log.Printf("Snapshot store close error: %v", err)
		}
		if err := shutdownTracing(ctx); err != nil {
			log.Printf("Tracing shutdown error: %v", err)
		}
	}()

	log.Printf("Devtools listening on port %s...", cfg.DevtoolsPort)
	log.Fatal(app.Listen(":" + cfg.DevtoolsPort))
}

// buildSnapshotStore selects and connects the configured snapshot backend.
func buildSnapshotStore(cfg *config.Config) (snapshot.Store, error) {
	switch cfg.SnapshotBackend {
	case "memory":
		return snapshot.NewMemoryStore(), nil
	case "file":
		return snapshot.NewFileStore(cfg.SnapshotFilePath), nil
	case "redis":
		client, err := snapshot.DialRedis(cfg.RedisURL)
		if err != nil {
			return nil, err
		}
		return snapshot.NewRedisStore(client, cfg.SnapshotKey), nil
	case "database":
		return snapshot.ConnectDatabase(cfg)
	default:
		return nil, fmt.Errorf("unknown snapshot backend %q", cfg.SnapshotBackend)
	}
}
