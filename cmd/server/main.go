package main

import (
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/willieinfo/winchat/internal/directory"
	"github.com/willieinfo/winchat/internal/server"
)

const shutdownTimeout = 10 * time.Second

func main() {
	fmt.Println("Starting WinChat server...")

	_ = godotenv.Load()
	cfg := server.NewConfigFromEnv()

	hub := server.NewHub(cfg, buildDirectoryFetcher(cfg))
	go hub.Run()

	handler := server.NewHandler(hub)
	mux := server.SetupRoutes(handler, cfg.StaticDir)
	httpServer := server.CreateServer(cfg.Port, mux)

	errCh := make(chan error, 1)
	go func() {
		if err := server.StartServer(httpServer); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		log.Fatalf("Server failed: %v", err)
	case sig := <-stop:
		log.Printf("Received %s, shutting down", sig)
	}

	if err := server.ShutdownServer(httpServer, shutdownTimeout); err != nil {
		log.Printf("HTTP shutdown: %v", err)
	}
	if err := hub.Shutdown(shutdownTimeout); err != nil {
		log.Printf("Hub shutdown: %v", err)
	}
}

// buildDirectoryFetcher wires the optional external user directory: a
// MySQL USERSLOG store, fronted by a Redis cache when one is configured.
// Returns nil when no directory DSN is set.
func buildDirectoryFetcher(cfg *server.Config) directory.Fetcher {
	if cfg.DirectoryDSN == "" {
		return nil
	}

	store, err := directory.Open(cfg.DirectoryDSN)
	if err != nil {
		log.Printf("User directory unavailable, presence will show live connections only: %v", err)
		return nil
	}
	log.Println("User directory connected")

	if cfg.RedisAddr == "" {
		return store
	}

	client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	log.Printf("Directory lookups cached via Redis at %s", cfg.RedisAddr)
	return directory.NewCached(store, client, cfg.DirectoryRefresh)
}
