package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/BlackMission/tencentauth/internal/auth"
	"github.com/BlackMission/tencentauth/internal/exchange"
	"github.com/BlackMission/tencentauth/internal/logger"
	"github.com/BlackMission/tencentauth/internal/metrics"
	"github.com/BlackMission/tencentauth/internal/server"
)

func newServeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP sign-in server",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, a)
		},
	}
}

func serve(ctx context.Context, a *app) error {
	cfg := a.cfg
	log := logger.Named("serve")

	clients, err := buildClients(cfg)
	if err != nil {
		return err
	}

	codec, err := exchange.NewCodec([]byte(cfg.Secrets.ExchangeEncryptionKey))
	if err != nil {
		return err
	}

	rec, err := metrics.New(nil)
	if err != nil {
		return err
	}

	replay, closeReplay, err := buildReplayGuard(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeReplay()

	hs, err := buildHandshake(cfg, replay, rec)
	if err != nil {
		return err
	}

	schemes := auth.NewRegistry()
	if err := schemes.Register(hs); err != nil {
		return err
	}
	log.Info("registered sign-in scheme",
		zap.String("scheme", hs.Name()),
		zap.String("callback_path", hs.CallbackPath()),
		zap.String("state_format", cfg.State.Format),
		zap.String("replay_driver", cfg.Replay.Driver),
	)

	srv := server.New(server.Config{
		Host:    cfg.Server.Host,
		Port:    cfg.Server.Port,
		BaseURL: cfg.Server.BaseURL,
	}, server.Deps{
		Clients:  clients,
		Schemes:  schemes,
		Exchange: codec,
		Metrics:  rec,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("server stopped with error", logger.Err(err))
		return err
	}
	log.Info("server stopped")
	return nil
}
