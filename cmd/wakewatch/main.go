package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"wakewatch/internal/config"
	"wakewatch/internal/logging"
	"wakewatch/internal/monitor"
	"wakewatch/internal/notify"
	"wakewatch/internal/server"
	"wakewatch/internal/storage"
)

func main() {
	log.SetFlags(0)

	var (
		configPath = flag.String("config", "config.yaml", "path to configuration file (YAML)")
		addr       = flag.String("addr", ":8080", "address for the web server")
	)
	flag.Parse()

	// .env is optional; real environment variables win.
	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logging.Fatal("load config", err, logging.Fields{"path": *configPath})
	}
	logging.Info("configuration loaded", logging.Fields{
		"path":        *configPath,
		"backend_url": cfg.BackendURL,
		"interval_ms": cfg.StatusCheckIntervalMS,
	})

	store := storage.NewProbeHistory(cfg.HistorySize)

	var notifier monitor.Notifier = notify.LogNotifier{}
	if cfg.Notify.AMQPURL != "" {
		amqpNotifier, err := notify.NewAMQPNotifier(cfg.Notify)
		if err != nil {
			logging.Error("amqp notifier unavailable, logging transitions instead", err, logging.Fields{
				"exchange": cfg.Notify.Exchange,
			})
		} else {
			defer amqpNotifier.Close()
			notifier = amqpNotifier
		}
	}

	mon := monitor.New(monitor.NewClient(cfg.BackendURL), monitor.SettingsFromConfig(cfg), nil, store, notifier)
	mon.Start()
	defer mon.Stop()

	srv := server.New(*addr, mon, store)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logging.Error("server shutdown", err, nil)
		}
	}()

	logging.Info("wakewatch listening", logging.Fields{"addr": *addr, "backend_url": cfg.BackendURL})
	if err := srv.Run(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logging.Fatal("server error", err, nil)
	}
}
