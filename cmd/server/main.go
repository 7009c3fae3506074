package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	router "github.com/echolink/echolink/internal/adapters/http"
	wssignal "github.com/echolink/echolink/internal/adapters/signal"
	"github.com/echolink/echolink/internal/adapters/stt"
	"github.com/echolink/echolink/internal/adapters/translate"
	"github.com/echolink/echolink/internal/app"
	"github.com/echolink/echolink/internal/config"
	"github.com/echolink/echolink/internal/repo"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Initialize zerolog global logger early so config.Load can use it.
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	// Human-friendly output for terminal; in production you may want JSON only.
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	store := app.NewRoomStore()
	reg := app.NewRegistry()
	translator := translate.NewClient(cfg.TranslatorURL)
	coord := app.NewCoordinator(reg, store, translator)

	recognizer := stt.NewClient(stt.Config{URL: cfg.RecognizerURL, APIKey: cfg.RecognizerKey})
	ctl := wssignal.NewSignalWSController(coord, recognizer, wssignal.Options{
		ReadLimit:  cfg.ReadLimit,
		PingPeriod: cfg.PingPeriod,
		QueueCap:   cfg.AudioQueueCap,
		KeepAlive:  cfg.KeepAliveInterval,
	})

	// Meeting records REST is enabled only when a document store is
	// configured; the live engine runs without it.
	var meetings *router.MeetingsHandler
	if cfg.MongoURI != "" {
		db, err := repo.Connect(ctx, cfg.MongoURI, cfg.MongoDB)
		if err != nil {
			log.Error().Err(err).Msg("mongo unavailable, meetings API disabled")
		} else {
			meetingRepo, err := repo.NewMeetingRepo(ctx, db)
			if err != nil {
				log.Error().Err(err).Msg("meeting repo init, meetings API disabled")
			} else {
				meetings = router.NewMeetingsHandler(repo.NewUserRepo(db), meetingRepo)
			}
		}
	}

	r := router.SetupRouter(ctx, cfg, ctl, store, meetings)
	addr := fmt.Sprintf(":%d", cfg.Port)

	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("EchoLink server started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("server error")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	log.Info().Msg("Server exited gracefully")
}
