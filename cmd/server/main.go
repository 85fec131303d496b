package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/PierreExeter/gmail-agent/internal/config"
	"github.com/PierreExeter/gmail-agent/internal/di"
	"github.com/PierreExeter/gmail-agent/internal/handler/api"
	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Warn("no .env file found")
	}

	ctx, cancel := signal.NotifyContext(context.Background(),
		syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer cancel()

	if err := run(ctx); err != nil {
		slog.Error("application error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	container, err := di.NewContainer(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize container: %w", err)
	}
	defer container.Close()

	triageHandler := api.NewTriageHandler(container.TriageService)
	draftHandler := api.NewDraftHandler(container.TriageService)
	calendarHandler := api.NewCalendarHandler(container.TriageService)

	mux := http.NewServeMux()
	mux.HandleFunc("/triage", triageHandler.HandleTriage)
	mux.HandleFunc("/model", triageHandler.HandleModel)
	mux.HandleFunc("/trusted-senders", triageHandler.HandleTrustedSenders)
	mux.HandleFunc("/drafts", draftHandler.HandleList)
	mux.HandleFunc("/drafts/approve", draftHandler.HandleAction)
	mux.HandleFunc("/drafts/reject", draftHandler.HandleAction)
	mux.HandleFunc("/drafts/edit", draftHandler.HandleAction)
	mux.HandleFunc("/drafts/send", draftHandler.HandleAction)
	mux.HandleFunc("/slots", calendarHandler.HandleSlots)
	mux.HandleFunc("/meetings", calendarHandler.HandleMeetings)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, "OK")
	})

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		slog.Info("starting server", "address", server.Addr, "model", cfg.ModelID)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case <-ctx.Done():
		slog.Info("shutting down...")
	case err := <-serverErr:
		return fmt.Errorf("server error: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown error: %w", err)
	}

	slog.Info("shutdown completed")
	return nil
}
