package main

import (
	"context"
	"flag"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"coursedrive/internal/config"
	"coursedrive/internal/sidebar"
	"coursedrive/internal/sidebar/tui"

	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	serverURL := flag.String("server", envOr("COURSEDRIVE_URL", "http://localhost:8080"), "Base URL of the drive API")
	token := flag.String("token", os.Getenv("COURSEDRIVE_TOKEN"), "Session token sent as a bearer token")
	mobile := flag.Bool("mobile", false, "Close the sidebar after opening a content")
	maxDepth := flag.Int("max-depth", config.DefaultMaxTreeDepth, "Maximum number of expanded levels")
	logPath := flag.String("log", "", "Write debug logs to this file")
	flag.Parse()

	if *token == "" {
		log.Fatal("A session token is required (-token or COURSEDRIVE_TOKEN)")
	}

	// The terminal belongs to the UI, so logs go to a file or nowhere
	var logOutput io.Writer = io.Discard
	if *logPath != "" {
		f, err := os.OpenFile(*logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			log.Fatalf("Cannot open log file: %v", err)
		}
		defer f.Close()
		logOutput = f
	}
	logger := config.NewLogger("dev", logOutput)

	client := sidebar.NewClient(*serverURL, *token)
	sb := sidebar.New(client, sidebar.Options{
		MaxDepth: *maxDepth,
		Mobile:   *mobile,
		OnNavigate: func(path string) {
			logger.Info("navigate", "path", path)
		},
		Logger: logger,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := tui.NewApp(sb, client, logger).Run(ctx); err != nil {
		log.Fatal(err)
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
