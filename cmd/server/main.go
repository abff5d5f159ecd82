package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/flipside-gg/arena-backend/internal/broadcast"
	"github.com/flipside-gg/arena-backend/internal/config"
	"github.com/flipside-gg/arena-backend/internal/httpapi"
	"github.com/flipside-gg/arena-backend/internal/registry"
	"github.com/flipside-gg/arena-backend/internal/store"
)

func main() {
	log, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	cfg := config.Load()

	var gw store.Gateway = store.Nop{}
	if cfg.DatabaseURL != "" {
		pg, err := store.Open(cfg.DatabaseURL)
		if err != nil {
			log.Fatal("open database", zap.Error(err))
		}
		gw = pg
	} else {
		log.Warn("DATABASE_URL not set, rounds will not be persisted")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	hub := broadcast.NewHub(log)
	reg := registry.New(ctx, registry.Deps{
		Rooms:      hub,
		Store:      gw,
		Log:        log,
		EvictAfter: cfg.EvictAfter,
	})

	srv := &http.Server{
		Addr:    ":" + cfg.AppPort,
		Handler: httpapi.SetupRoutes(reg, hub, cfg, log),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		reg.Inbox() <- registry.Shutdown{}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Fatal("server exited", zap.Error(err))
	}
}
