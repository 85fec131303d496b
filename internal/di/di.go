package di

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/PierreExeter/gmail-agent/internal/agent/classifier"
	"github.com/PierreExeter/gmail-agent/internal/agent/drafter"
	"github.com/PierreExeter/gmail-agent/internal/agent/scheduler"
	"github.com/PierreExeter/gmail-agent/internal/config"
	calendardomain "github.com/PierreExeter/gmail-agent/internal/domain/calendar"
	messagedomain "github.com/PierreExeter/gmail-agent/internal/domain/message"
	notifydomain "github.com/PierreExeter/gmail-agent/internal/domain/notify"
	calendarrepo "github.com/PierreExeter/gmail-agent/internal/infrastructure/repository/calendar"
	gmailrepo "github.com/PierreExeter/gmail-agent/internal/infrastructure/repository/gmail"
	linerepo "github.com/PierreExeter/gmail-agent/internal/infrastructure/repository/line"
	"github.com/PierreExeter/gmail-agent/internal/infrastructure/repository/inference"
	"github.com/PierreExeter/gmail-agent/internal/service/triage"
	"github.com/PierreExeter/gmail-agent/internal/store"
)

type Container struct {
	Store         *store.Store
	MessageRepo   messagedomain.MessageRepo
	CalendarRepo  calendardomain.CalendarRepo
	Notifier      notifydomain.Notifier
	TriageService *triage.Service
}

func NewContainer(ctx context.Context, cfg *config.Config) (*Container, error) {
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("failed to load timezone %q: %w", cfg.Timezone, err)
	}

	dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=true&loc=Local",
		cfg.DBUser, cfg.DBPassword, cfg.DBHost, cfg.DBPort, cfg.DBName)

	st, err := store.Open(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}

	messageRepo, err := gmailrepo.NewMessageRepo(ctx, cfg.GmailCredentialsPath, cfg.GmailTokenPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Gmail repository: %w", err)
	}

	calendarRepo, err := calendarrepo.NewCalendarRepo(ctx, cfg.GmailCredentialsPath, cfg.GmailTokenPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Calendar repository: %w", err)
	}

	var notifier notifydomain.Notifier = notifydomain.Noop{}
	if cfg.LineChannelToken != "" && cfg.LineUserID != "" {
		notifier, err = linerepo.NewNotifier(cfg.LineChannelToken, cfg.LineUserID)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize LINE notifier: %w", err)
		}
	} else {
		slog.Warn("LINE notifier not configured, review notifications disabled")
	}

	factory := inference.NewFactory(cfg.HuggingFaceAPIKey, cfg.InferenceTimeout)

	triageService := triage.NewService(
		messageRepo,
		calendarRepo,
		st,
		notifier,
		classifier.New(cfg.ModelID, factory),
		drafter.New(cfg.ModelID, factory),
		scheduler.New(cfg.ModelID, factory, loc),
		cfg.Policy,
		loc,
	)

	return &Container{
		Store:         st,
		MessageRepo:   messageRepo,
		CalendarRepo:  calendarRepo,
		Notifier:      notifier,
		TriageService: triageService,
	}, nil
}

func (c *Container) Close() error {
	if c.Store != nil {
		return c.Store.Close()
	}
	return nil
}
