package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"huntnav/internal/api"
	"huntnav/internal/config"
	"huntnav/internal/metrics"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	srv, err := api.NewServerWithConfig(cfg)
	if err != nil {
		log.Fatalf("failed to init server: %v", err)
	}

	mux := http.NewServeMux()

	// Auth
	mux.HandleFunc("/v1/auth/anon", srv.AnonAuthHandler)

	// Hunts
	mux.HandleFunc("/v1/hunts", srv.HuntsHandler)
	mux.HandleFunc("/v1/hunts/", srv.HuntByIDHandler) // includes /waypoints, /optimize, /join, /claims, /stats, /runs, /members, /events/stream

	// Optimization & catalog
	mux.HandleFunc("/v1/optimize", srv.OptimizeHandler)
	mux.HandleFunc("/v1/regions", srv.RegionsHandler)

	// Webhook admin
	mux.HandleFunc("/v1/webhooks", srv.WebhooksHandler)
	mux.HandleFunc("/v1/webhooks/", srv.WebhookByIDHandler) // includes /deliveries

	// Realtime sync
	mux.HandleFunc("/ws/hunts/", srv.SyncWSHandler)

	// Health & ops
	mux.HandleFunc("/healthz", srv.HealthHandler)
	mux.HandleFunc("/readyz", srv.ReadyHandler)
	mux.HandleFunc("/version", srv.VersionHandler)
	mux.HandleFunc("/debug/config", srv.DebugJSON)
	mux.Handle("/metrics", metrics.Handler())

	// API docs
	mux.HandleFunc("/openapi.yaml", srv.OpenAPIHandler)
	mux.HandleFunc("/docs", srv.DocsHandler)
	mux.HandleFunc("/swagger", srv.SwaggerHandler)

	handler := logMiddleware(api.WithMetrics(api.RateLimit(cfg.RateRPS, cfg.RateBurst, mux)))

	httpSrv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	worker := srv.NewWebhookWorker()
	worker.Start()

	go func() {
		log.Printf("API listening on %s", httpSrv.Addr)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	log.Printf("shutting down")
	close(worker.Stop)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown: %v", err)
	}
}

func logMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Printf("%s %s %s %v", r.RemoteAddr, r.Method, r.URL.Path, time.Since(start))
	})
}
