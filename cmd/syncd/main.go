package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"example.com/liftsync/internal/api"
	"example.com/liftsync/internal/config"
	"example.com/liftsync/internal/domain"
	"example.com/liftsync/internal/engine"
	"example.com/liftsync/internal/gateway"
	"example.com/liftsync/internal/netmon"
	"example.com/liftsync/internal/store"
	httptransport "example.com/liftsync/internal/transport/http"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	localStore, err := store.Open(ctx, cfg.StorePath)
	if err != nil {
		// Remote-only mode: reads always hit the backend, offline writes
		// are not durable.
		log.Printf("local store unavailable, degrading to remote-only: %v", err)
		localStore = nil
	} else {
		defer localStore.Close()
	}

	gw := gateway.New(cfg.RemoteBaseURL, cfg.RemoteTimeout)

	var engineStore engine.Store
	if localStore != nil {
		engineStore = localStore
	}
	eng := engine.New(engineStore, gw, engine.Policy{
		SnapshotTTL:        cfg.SnapshotTTL,
		MaxReplayAttempts:  cfg.MaxReplayAttempts,
		QueueOnFailedWrite: cfg.QueueOnFailedWrite,
	})

	unsubscribe := gw.OnAuthStateChange(func(event gateway.AuthEvent, user *domain.AuthUser) {
		switch event {
		case gateway.AuthSignedIn:
			if err := eng.SignIn(ctx, user); err != nil {
				log.Printf("sign-in load failed: %v", err)
			}
		case gateway.AuthSignedOut:
			if err := eng.SignOut(ctx); err != nil {
				log.Printf("sign-out cleanup failed: %v", err)
			}
		}
	})
	defer unsubscribe()

	monitor := netmon.New(eng, cfg.SnapshotTTL, cfg.RefreshDebounce)
	defer monitor.Close()

	probe := netmon.NewProbeLoop(monitor, gw, cfg.ProbeInterval)
	go probe.Start(ctx)

	if token := os.Getenv("ACCESS_TOKEN"); token != "" {
		gw.SetSession(token)
	}

	handler := api.NewHandler(eng)
	mux := http.NewServeMux()
	handler.RegisterRoutes(mux)
	mux.Handle("/metrics", promhttp.Handler())

	// Basic request logger
	logger := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			log.Printf("%s %s", r.Method, r.URL.Path)
			next.ServeHTTP(w, r)
		})
	}

	server := httptransport.NewServer(httptransport.ServerConfig{
		Address:      cfg.HTTPAddress,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}, logger(mux))

	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Printf("liftsync daemon listening on %s", cfg.HTTPAddress)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	<-shutdownCh
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}

	probe.Wait()
}
