package store

import (
	"context"
	"errors"
	"time"

	"huntnav/internal/model"
)

// Store is the persistence interface used by the API server.
type Store interface {
	// Hunts
	CreateHunt(ctx context.Context, in model.HuntIn) (model.Hunt, error)
	GetHunt(ctx context.Context, id string) (model.Hunt, error)
	ListHunts(ctx context.Context, cursor string, limit int) (items []model.Hunt, nextCursor string, err error)

	// Waypoints
	AddWaypoints(ctx context.Context, huntID string, wps []model.WaypointIn) (model.Hunt, error)
	RemoveWaypoint(ctx context.Context, huntID, waypointID string) (model.Hunt, error)

	// Routes & claims
	SaveRoute(ctx context.Context, huntID string, order []string, summary model.RouteSummary) (model.Hunt, error)
	ClaimWaypoint(ctx context.Context, huntID, waypointID, memberID string) (model.ClaimResult, error)

	// Members
	JoinHunt(ctx context.Context, huntID string, member model.Member) (model.Member, error)
	ListMembers(ctx context.Context, huntID string) ([]model.Member, error)

	// Optimize runs
	SaveOptimizeRun(ctx context.Context, run model.OptimizeRun) error
	ListOptimizeRuns(ctx context.Context, huntID string, limit int) ([]model.OptimizeRun, error)

	// Subscriptions
	CreateSubscription(ctx context.Context, req model.SubscriptionRequest) (model.Subscription, error)
	GetSubscriptionsForEvent(ctx context.Context, eventType, huntID string) ([]model.Subscription, error)
	ListSubscriptions(ctx context.Context, cursor string, limit int) ([]model.Subscription, string, error)
	DeleteSubscription(ctx context.Context, id string) error

	// Webhook deliveries
	EnqueueWebhook(ctx context.Context, huntID, subscriptionID, eventType, url, secret string, payload []byte) (string, error)
	FetchDueWebhookDeliveries(ctx context.Context, limit int) ([]WebhookDelivery, error)
	MarkWebhookDelivery(ctx context.Context, id string, success bool, nextAttemptAt *time.Time, lastError string, responseCode int, latencyMs int) error
	FailWebhookDelivery(ctx context.Context, id string, lastError string, responseCode int, latencyMs int) error
	ListWebhookDeliveries(ctx context.Context, status, cursor string, limit int) ([]map[string]any, string, error)
}

var ErrNotFound = errors.New("not found")
