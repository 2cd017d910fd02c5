package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/datasmith/datasmith/internal/backend"
	"github.com/datasmith/datasmith/internal/catalog"
	"github.com/datasmith/datasmith/internal/eventbus"
	"github.com/datasmith/datasmith/internal/history"
	"github.com/datasmith/datasmith/internal/server"
	"github.com/datasmith/datasmith/internal/session"
)

func main() {
	// Missing .env is fine; real deployments set the environment directly.
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if p := os.Getenv("DEFAULT_PROVIDER"); p != "" {
		session.DefaultProvider = p
	}

	backendURL := os.Getenv("BACKEND_URL")
	if backendURL == "" {
		backendURL = "http://localhost:8000"
	}
	client := backend.New(backendURL)

	cat := catalog.Default()
	if path := os.Getenv("CATALOG_FILE"); path != "" {
		loaded, err := catalog.LoadFile(path)
		if err != nil {
			log.Fatalf("loading catalog %s: %v", path, err)
		}
		cat = loaded
		log.Printf("loaded %d rich types from %s", len(cat.Entries()), path)
	}

	bus := eventbus.New(256)
	bus.Subscribe("log", eventbus.NewLogConsumer())
	hist := history.NewStore(history.DefaultCapacity)
	bus.Subscribe("history", hist)
	bus.Start(ctx)

	port := 8080
	if p := os.Getenv("PORT"); p != "" {
		if v, err := strconv.Atoi(p); err == nil {
			port = v
		}
	}

	if err := server.Run(ctx, server.Config{
		Port:    port,
		Client:  client,
		Catalog: cat,
		Bus:     bus,
		History: hist,
	}); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
