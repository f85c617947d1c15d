package api

import (
	"context"
	"os"
	"strings"

	"huntnav/internal/auth"
	"huntnav/internal/config"
	"huntnav/internal/route"
	"huntnav/internal/store"
	"huntnav/internal/webhooks"
)

type Server struct {
	Store  store.Store
	Pub    *webhooks.Publisher
	Auth   *auth.Verifier
	Broker EventBroker
	Engine *route.Optimizer
	Cfg    config.Config
	Recent *EventCache
}

// NewServer loads config and wires the server. If DATABASE_URL is unset,
// uses the in-memory store.
func NewServer() (*Server, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	return NewServerWithConfig(cfg)
}

func NewServerWithConfig(cfg config.Config) (*Server, error) {
	var s store.Store
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		s = store.NewMemory()
	} else {
		sp, err := store.NewPostgres(cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		// Run migrations (dev helper)
		if os.Getenv("DB_MIGRATE") != "false" {
			_ = sp.MigrateDir("migrations")
		}
		s = sp
	}
	var broker EventBroker
	if cfg.RedisURL != "" {
		if rb, err := NewRedisBroker(cfg.RedisURL); err == nil {
			broker = rb
		} else {
			broker = NewBroker()
		}
	} else {
		broker = NewBroker()
	}
	return &Server{
		Store:  s,
		Pub:    webhooks.NewPublisher(s),
		Auth:   auth.NewVerifierFromEnv(),
		Broker: broker,
		Engine: route.New(route.NewCatalog(cfg.Regions)),
		Cfg:    cfg,
		Recent: NewEventCache(16),
	}, nil
}

// publish fans one hunt event out to live subscribers, the replay cache,
// and the webhook queue.
func (s *Server) publish(ctx context.Context, huntID, eventType string, data map[string]any) {
	evt := Event{Type: eventType, Data: data}
	s.Recent.Add(huntID, evt)
	s.Broker.Publish(huntID, evt)
	if s.Pub != nil {
		s.Pub.Emit(ctx, huntID, eventType, data)
	}
}

// NewWebhookWorker creates a background worker for webhook deliveries.
func (s *Server) NewWebhookWorker() *webhooks.Worker {
	return webhooks.NewWorker(s.Store)
}
