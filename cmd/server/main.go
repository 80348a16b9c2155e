package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fennwright/rtc-rendezvous/internal/config"
	"github.com/fennwright/rtc-rendezvous/internal/health"
	"github.com/fennwright/rtc-rendezvous/internal/logs"
	"github.com/fennwright/rtc-rendezvous/internal/metrics"
	"github.com/fennwright/rtc-rendezvous/internal/pairing"
	"github.com/fennwright/rtc-rendezvous/internal/room"
	"github.com/fennwright/rtc-rendezvous/internal/ws"
	"go.uber.org/zap"
)

func main() {
	cfg := config.FromEnv()
	if err := cfg.Validate(); err != nil {
		panic(err) // fails fast, before a logger even exists
	}

	logger := logs.New(cfg.LogLevel)
	defer logger.Sync()

	metrics.Init()

	mgr := room.New()
	mgr.OnChange(metrics.SetRoomCounts)

	pairingStore := pairing.NewStore(cfg.PairingTTL)
	janitorCtx, stopJanitor := context.WithCancel(context.Background())
	defer stopJanitor()
	pairingStore.StartJanitor(janitorCtx)

	mux := http.NewServeMux()
	mux.Handle("/healthz", health.Healthz())
	mux.Handle("/readyz", health.Readyz(mgr))
	mux.Handle(cfg.MetricsRoute, metrics.Handler())

	mux.HandleFunc("/", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"name":"rtc-rendezvous","ok":true}`))
	})

	mux.Handle("/rendezvous/", http.StripPrefix("/rendezvous", pairingStore.Routes()))

	// WS: room is derived from the caller's address unless overridden with
	// ?room=<code> minted via POST /rendezvous/code + /rendezvous/redeem.
	mux.Handle("/ws", ws.NewHandler(cfg, logger, mgr))

	srv := &http.Server{
		Addr:              cfg.BindAddr(),
		Handler:           logs.RequestLogger(logger, mux),
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
	}

	go func() {
		logger.Info("listening", logs.F("addr", cfg.BindAddr()))
		var err error
		if cfg.TLSCertFile != "" {
			err = srv.ListenAndServeTLS(cfg.TLSCertFile, cfg.TLSKeyFile)
		} else {
			err = srv.ListenAndServe()
		}
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	<-ctx.Done()
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
	logger.Info("bye")
}
