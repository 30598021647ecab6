package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/youruser/moodmap/internal/api"
	"github.com/youruser/moodmap/internal/board"
	"github.com/youruser/moodmap/internal/config"
	"github.com/youruser/moodmap/internal/logging"
	"github.com/youruser/moodmap/internal/metrics"
)

func main() {
	cfgPath := flag.String("config", os.Getenv("MOODMAP_CONFIG"), "path to a YAML config file")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	log, closer := logging.New(cfg.Logging)
	defer closer.Close()

	gin.SetMode(cfg.Server.Mode)

	m := metrics.New()
	comp := cfg.Compositor()
	comp.Logger = log
	comp.Observer = m

	store := board.NewStore(cfg.Board.TTL)
	h := &api.Handlers{
		Store:      store,
		Compositor: comp,
		Log:        log,
		MaxUpload:  cfg.Upload.MaxBytes,
	}
	srv := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: api.NewEngine(h, m.Handler()),
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Board.TTL > 0 {
		go sweep(ctx, store, cfg.Board.TTL)
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	log.Info("starting server", "addr", cfg.Server.Addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error("server stopped", "error", err)
		closer.Close()
		os.Exit(1)
	}
	log.Info("server stopped")
}

func sweep(ctx context.Context, store *board.Store, ttl time.Duration) {
	t := time.NewTicker(max(ttl/2, time.Second))
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			store.Sweep()
		}
	}
}
