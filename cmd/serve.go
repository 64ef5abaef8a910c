package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/abhisek/docquiz/internal/analysis"
	"github.com/abhisek/docquiz/internal/config"
	"github.com/abhisek/docquiz/internal/logger"
	"github.com/abhisek/docquiz/internal/server"
	"github.com/abhisek/docquiz/internal/session"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Load()
		if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
			cfg.ServerAddr = addr
		}
		log := logger.Setup(cfg.LogLevel, cfg.LogFormat, nil)

		ctx := context.Background()

		st, err := openStore(ctx, cmd, cfg)
		if err != nil {
			return err
		}
		defer st.Close()

		kv, closeKV, err := sessionKV(ctx, cfg, st, log)
		if err != nil {
			return fmt.Errorf("session storage: %w", err)
		}
		defer closeKV()
		persist := session.NewPersistence(kv)

		blobs, err := blobStore(ctx, cfg)
		if err != nil {
			return fmt.Errorf("document archive: %w", err)
		}

		pub, err := publisher(cfg)
		if err != nil {
			return fmt.Errorf("event publisher: %w", err)
		}
		defer pub.Close()

		gen := buildGenerator(ctx, st.EventRepo(), log)

		srv := server.New(server.Deps{
			Generator:   gen,
			Pipeline:    analysis.New(gen, persist, log),
			Persistence: persist,
			Blobs:       blobs,
			Publisher:   pub,
			Log:         log,
		}, server.Options{
			GinMode:        cfg.GinMode,
			MaxUploadBytes: cfg.MaxUploadBytes,
			RateLimit:      cfg.RateLimit,
			RateInterval:   cfg.RateInterval,
			AllowedOrigins: cfg.AllowedOrigins,
		})
		defer srv.Close()

		if err := srv.Resume(ctx); err != nil {
			if !errors.Is(err, session.ErrMissingSessionData) {
				log.Warn().Err(err).Msg("stored session could not be resumed")
			}
		} else {
			log.Info().Msg("resumed stored session")
		}

		httpSrv := &http.Server{
			Addr:    cfg.ServerAddr,
			Handler: srv.Router(),
		}

		go func() {
			log.Info().Str("addr", cfg.ServerAddr).Msg("server starting")
			if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Fatal().Err(err).Msg("server failed")
			}
		}()

		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit

		log.Info().Msg("shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("server forced to shutdown")
			return err
		}

		log.Info().Msg("server exited")
		return nil
	},
}

func init() {
	serveCmd.Flags().String("addr", "", "Listen address (overrides DOCQUIZ_ADDR)")
}
