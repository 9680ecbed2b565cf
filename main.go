package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"storyarchive/config"
	"storyarchive/config/database"
	handler "storyarchive/internal/story"
	"storyarchive/internal/story/dispatcher"
	"storyarchive/internal/story/repository"
	"storyarchive/internal/story/service"
	"storyarchive/pkg/logger"
	"storyarchive/pkg/messages"
	"storyarchive/pkg/metrics"
	"storyarchive/router"
	"storyarchive/socket"
	"storyarchive/store"
	"storyarchive/telegram"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/sync/errgroup"
)

const (
	shutdownTimeout = 10 * time.Second
	pollTimeout     = 60 // seconds, getUpdates long poll
	// telegramTimeout bounds every Bot API request, above the long poll.
	telegramTimeout = (pollTimeout + 30) * time.Second
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Init("info")
		logger.Sugar.Fatalf("Invalid configuration: %v", err)
	}
	logger.Init(cfg.LogLevel)
	defer logger.Sync()

	texts, err := messages.Load(cfg.MessagesFile)
	if err != nil {
		logger.Sugar.Fatalf("Failed to load messages: %v", err)
	}

	bot, err := tgbotapi.NewBotAPIWithClient(cfg.BotToken, tgbotapi.APIEndpoint, &http.Client{Timeout: telegramTimeout})
	if err != nil {
		logger.Sugar.Fatalf("Telegram rejected the bot token: %v", err)
	}
	logger.Sugar.Infof("Authorized as @%s", bot.Self.UserName)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()
	drafts := store.NewDraftStore()
	m.TrackLiveDrafts(drafts.Len)

	hub := socket.NewHub()
	gateway := telegram.NewGateway(bot, texts)
	archive := telegram.NewArchive(bot, cfg.ArchiveChatID)
	svc := service.NewStoryService(drafts, gateway, dispatcher.New(archive, texts, cfg.DispatchTimeout), texts, m)
	svc.Events = hub

	deps := router.Deps{Registry: m.Registry, Hub: hub, Secret: []byte(cfg.OperatorJWTSecret)}
	if cfg.DatabaseURL != "" {
		db, err := database.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Sugar.Fatalf("Could not connect to the journal database: %v", err)
		}
		defer db.Close()

		journal := repository.NewJournalRepository(db)
		if err := journal.EnsureSchema(ctx); err != nil {
			logger.Sugar.Fatalf("Could not prepare the journal: %v", err)
		}
		svc.Journal = journal
		deps.Journal = journal
	} else {
		logger.Sugar.Warn("DATABASE_URL not set, dispatches will not be journaled")
	}

	h := handler.NewStoryHandler(svc, gateway, texts)
	h.BotUsername = bot.Self.UserName
	h.PublicGroupID = cfg.PublicGroupID

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           router.Setup(deps),
		ReadHeaderTimeout: 10 * time.Second,
	}

	u := tgbotapi.NewUpdate(0)
	u.Timeout = pollTimeout
	updates := bot.GetUpdatesChan(u)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		hub.Run(gctx)
		return nil
	})
	g.Go(func() error {
		logger.Sugar.Infof("HTTP server listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		bot.StopReceivingUpdates()
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(sctx)
	})
	g.Go(func() error {
		logger.Sugar.Info("Listening for Telegram updates")
		return h.Listen(gctx, updates)
	})

	if err := g.Wait(); err != nil {
		logger.Sugar.Errorf("Shutting down with error: %v", err)
		return
	}
	logger.Sugar.Info("Shut down cleanly")
}
