package store

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"huntnav/internal/model"
)

// Memory is a simple in-memory store used when no DATABASE_URL is set.
// Everything returned to callers is a copy, so nothing they do to the
// result can reach back into the store.
type Memory struct {
	mu      sync.Mutex
	hunts   map[string]model.Hunt
	huntIDs []string // insertion order, for stable listing
	members map[string][]model.Member
	runs    map[string][]model.OptimizeRun
	subs    map[string]model.Subscription
	subIDs  []string
	// Webhook queue state
	deliveries    map[string]*memDelivery
	deliveryOrder []string
}

func NewMemory() *Memory {
	return &Memory{
		hunts:      map[string]model.Hunt{},
		members:    map[string][]model.Member{},
		runs:       map[string][]model.OptimizeRun{},
		subs:       map[string]model.Subscription{},
		deliveries: map[string]*memDelivery{},
	}
}

// memDelivery augments WebhookDelivery with scheduling/metrics state.
type memDelivery struct {
	WebhookDelivery
	NextAttemptAt time.Time
	LastError     string
	ResponseCode  int
	LatencyMs     int
	DeliveredAt   *time.Time
}

func nowRFC3339() string { return time.Now().UTC().Format(time.RFC3339) }

func cloneHunt(h model.Hunt) model.Hunt {
	out := h
	out.Waypoints = append([]model.Waypoint(nil), h.Waypoints...)
	out.Route = append([]string(nil), h.Route...)
	if h.Summary != nil {
		s := *h.Summary
		out.Summary = &s
	}
	return out
}

// routeCursor returns the index of the first unfound stop along the route,
// or -1 when there is no route or nothing is left to find.
func routeCursor(h model.Hunt) int {
	if len(h.Route) == 0 {
		return -1
	}
	byID := make(map[string]model.Waypoint, len(h.Waypoints))
	for _, w := range h.Waypoints {
		byID[w.ID] = w
	}
	for i, id := range h.Route {
		if w, ok := byID[id]; ok && !w.Found {
			return i
		}
	}
	return -1
}

func allFound(h model.Hunt) bool {
	if len(h.Waypoints) == 0 {
		return false
	}
	for _, w := range h.Waypoints {
		if !w.Found {
			return false
		}
	}
	return true
}

func (m *Memory) CreateHunt(ctx context.Context, in model.HuntIn) (model.Hunt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := nowRFC3339()
	h := model.Hunt{
		ID:        uuid.New().String(),
		Name:      in.Name,
		Status:    "planning",
		Cursor:    -1,
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}
	for _, w := range in.Waypoints {
		h.Waypoints = append(h.Waypoints, model.Waypoint{
			ID: uuid.New().String(), MapID: w.MapID, X: w.X, Y: w.Y, Label: w.Label,
		})
	}
	m.hunts[h.ID] = h
	m.huntIDs = append(m.huntIDs, h.ID)
	return cloneHunt(h), nil
}

func (m *Memory) GetHunt(ctx context.Context, id string) (model.Hunt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	h, ok := m.hunts[id]
	if !ok {
		return model.Hunt{}, ErrNotFound
	}
	return cloneHunt(h), nil
}

func (m *Memory) ListHunts(ctx context.Context, cursor string, limit int) ([]model.Hunt, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	start := 0
	if cursor != "" {
		for i, id := range m.huntIDs {
			if id == cursor {
				start = i + 1
				break
			}
		}
	}
	out := []model.Hunt{}
	var next string
	for i := start; i < len(m.huntIDs) && len(out) < limit; i++ {
		out = append(out, cloneHunt(m.hunts[m.huntIDs[i]]))
		next = m.huntIDs[i]
	}
	if start+len(out) >= len(m.huntIDs) {
		next = ""
	}
	return out, next, nil
}

func (m *Memory) AddWaypoints(ctx context.Context, huntID string, wps []model.WaypointIn) (model.Hunt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	h, ok := m.hunts[huntID]
	if !ok {
		return model.Hunt{}, ErrNotFound
	}
	for _, w := range wps {
		h.Waypoints = append(h.Waypoints, model.Waypoint{
			ID: uuid.New().String(), MapID: w.MapID, X: w.X, Y: w.Y, Label: w.Label,
		})
	}
	// The stored route no longer covers the waypoint set; drop it until the
	// next optimize.
	h.Route = nil
	h.Summary = nil
	h.Cursor = -1
	h.Version++
	h.UpdatedAt = nowRFC3339()
	m.hunts[huntID] = h
	return cloneHunt(h), nil
}

func (m *Memory) RemoveWaypoint(ctx context.Context, huntID, waypointID string) (model.Hunt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	h, ok := m.hunts[huntID]
	if !ok {
		return model.Hunt{}, ErrNotFound
	}
	idx := -1
	for i, w := range h.Waypoints {
		if w.ID == waypointID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return model.Hunt{}, ErrNotFound
	}
	h.Waypoints = append(append([]model.Waypoint(nil), h.Waypoints[:idx]...), h.Waypoints[idx+1:]...)
	h.Route = nil
	h.Summary = nil
	h.Cursor = -1
	h.Version++
	h.UpdatedAt = nowRFC3339()
	m.hunts[huntID] = h
	return cloneHunt(h), nil
}

func (m *Memory) SaveRoute(ctx context.Context, huntID string, order []string, summary model.RouteSummary) (model.Hunt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	h, ok := m.hunts[huntID]
	if !ok {
		return model.Hunt{}, ErrNotFound
	}
	h.Route = append([]string(nil), order...)
	s := summary
	h.Summary = &s
	if h.Status == "planning" {
		h.Status = "active"
	}
	h.Cursor = routeCursor(h)
	h.Version++
	h.UpdatedAt = nowRFC3339()
	m.hunts[huntID] = h
	return cloneHunt(h), nil
}

func (m *Memory) ClaimWaypoint(ctx context.Context, huntID, waypointID, memberID string) (model.ClaimResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	h, ok := m.hunts[huntID]
	if !ok {
		return model.ClaimResult{}, ErrNotFound
	}
	idx := -1
	for i, w := range h.Waypoints {
		if w.ID == waypointID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return model.ClaimResult{}, ErrNotFound
	}
	if h.Waypoints[idx].Found {
		return model.ClaimResult{Hunt: cloneHunt(h), Waypoint: h.Waypoints[idx], AlreadyFound: true}, nil
	}
	h.Waypoints[idx].Found = true
	h.Waypoints[idx].FoundBy = memberID
	h.Waypoints[idx].FoundAt = nowRFC3339()
	h.Cursor = routeCursor(h)
	completed := allFound(h)
	if completed {
		h.Status = "completed"
		h.Cursor = -1
	}
	h.Version++
	h.UpdatedAt = nowRFC3339()
	m.hunts[huntID] = h
	return model.ClaimResult{Hunt: cloneHunt(h), Waypoint: h.Waypoints[idx], Completed: completed}, nil
}

func (m *Memory) JoinHunt(ctx context.Context, huntID string, member model.Member) (model.Member, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.hunts[huntID]; !ok {
		return model.Member{}, ErrNotFound
	}
	for _, mb := range m.members[huntID] {
		if mb.ID == member.ID {
			return mb, nil
		}
	}
	member.JoinedAt = nowRFC3339()
	m.members[huntID] = append(m.members[huntID], member)
	return member, nil
}

func (m *Memory) ListMembers(ctx context.Context, huntID string) ([]model.Member, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.hunts[huntID]; !ok {
		return nil, ErrNotFound
	}
	return append([]model.Member(nil), m.members[huntID]...), nil
}

func (m *Memory) SaveOptimizeRun(ctx context.Context, run model.OptimizeRun) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if run.ID == "" {
		run.ID = uuid.New().String()
	}
	m.runs[run.HuntID] = append(m.runs[run.HuntID], run)
	return nil
}

func (m *Memory) ListOptimizeRuns(ctx context.Context, huntID string, limit int) ([]model.OptimizeRun, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	runs := m.runs[huntID]
	if limit <= 0 || limit > len(runs) {
		limit = len(runs)
	}
	// newest first
	out := make([]model.OptimizeRun, 0, limit)
	for i := len(runs) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, runs[i])
	}
	return out, nil
}

func (m *Memory) CreateSubscription(ctx context.Context, req model.SubscriptionRequest) (model.Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sub := model.Subscription{
		ID:        uuid.New().String(),
		URL:       req.URL,
		EventType: req.EventType,
		HuntID:    req.HuntID,
		Secret:    req.Secret,
		CreatedAt: nowRFC3339(),
	}
	m.subs[sub.ID] = sub
	m.subIDs = append(m.subIDs, sub.ID)
	return sub, nil
}

func (m *Memory) GetSubscriptionsForEvent(ctx context.Context, eventType, huntID string) ([]model.Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []model.Subscription{}
	for _, id := range m.subIDs {
		s, ok := m.subs[id]
		if !ok {
			continue
		}
		if s.EventType != eventType && s.EventType != "*" {
			continue
		}
		if s.HuntID != "" && s.HuntID != huntID {
			continue
		}
		out = append(out, s)
	}
	return out, nil
}

func (m *Memory) ListSubscriptions(ctx context.Context, cursor string, limit int) ([]model.Subscription, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	start := 0
	if cursor != "" {
		for i, id := range m.subIDs {
			if id == cursor {
				start = i + 1
				break
			}
		}
	}
	out := []model.Subscription{}
	var next string
	for i := start; i < len(m.subIDs) && len(out) < limit; i++ {
		out = append(out, m.subs[m.subIDs[i]])
		next = m.subIDs[i]
	}
	if start+len(out) >= len(m.subIDs) {
		next = ""
	}
	return out, next, nil
}

func (m *Memory) DeleteSubscription(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.subs[id]; !ok {
		return ErrNotFound
	}
	delete(m.subs, id)
	for i, sid := range m.subIDs {
		if sid == id {
			m.subIDs = append(m.subIDs[:i], m.subIDs[i+1:]...)
			break
		}
	}
	return nil
}

func (m *Memory) EnqueueWebhook(ctx context.Context, huntID, subscriptionID, eventType, url, secret string, payload []byte) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := uuid.New().String()
	d := &memDelivery{WebhookDelivery: WebhookDelivery{
		ID: id, SubscriptionID: subscriptionID, EventType: eventType, HuntID: huntID,
		URL: url, Secret: secret, Payload: payload, Status: "pending",
	}, NextAttemptAt: time.Now()}
	m.deliveries[id] = d
	m.deliveryOrder = append(m.deliveryOrder, id)
	return id, nil
}

func (m *Memory) FetchDueWebhookDeliveries(ctx context.Context, limit int) ([]WebhookDelivery, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	out := []WebhookDelivery{}
	for _, id := range m.deliveryOrder {
		d := m.deliveries[id]
		if d == nil {
			continue
		}
		if (d.Status == "pending" || d.Status == "retry") && !d.NextAttemptAt.After(now) {
			out = append(out, d.WebhookDelivery)
			if limit > 0 && len(out) >= limit {
				break
			}
		}
	}
	return out, nil
}

func (m *Memory) MarkWebhookDelivery(ctx context.Context, id string, success bool, nextAttemptAt *time.Time, lastError string, responseCode int, latencyMs int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d := m.deliveries[id]
	if d == nil {
		return nil
	}
	d.Attempts++
	d.ResponseCode = responseCode
	d.LatencyMs = latencyMs
	if success {
		d.Status = "delivered"
		now := time.Now()
		d.DeliveredAt = &now
		return nil
	}
	d.Status = "retry"
	d.LastError = lastError
	if nextAttemptAt != nil {
		d.NextAttemptAt = *nextAttemptAt
	} else {
		d.NextAttemptAt = time.Now().Add(1 * time.Minute)
	}
	return nil
}

func (m *Memory) FailWebhookDelivery(ctx context.Context, id string, lastError string, responseCode int, latencyMs int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d := m.deliveries[id]
	if d == nil {
		return nil
	}
	d.Attempts++
	d.Status = "failed"
	d.LastError = lastError
	d.ResponseCode = responseCode
	d.LatencyMs = latencyMs
	return nil
}

func (m *Memory) ListWebhookDeliveries(ctx context.Context, status, cursor string, limit int) ([]map[string]any, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	start := 0
	if cursor != "" {
		for i, id := range m.deliveryOrder {
			if id == cursor {
				start = i + 1
				break
			}
		}
	}
	out := []map[string]any{}
	var next string
	for i := start; i < len(m.deliveryOrder) && len(out) < limit; i++ {
		d := m.deliveries[m.deliveryOrder[i]]
		if d == nil {
			continue
		}
		if status != "" && d.Status != status {
			continue
		}
		out = append(out, map[string]any{
			"id": d.ID, "subscriptionId": d.SubscriptionID, "eventType": d.EventType,
			"huntId": d.HuntID, "url": d.URL, "status": d.Status, "attempts": d.Attempts,
			"lastError": d.LastError, "responseCode": d.ResponseCode, "latencyMs": d.LatencyMs,
		})
		next = d.ID
	}
	if start+len(out) >= len(m.deliveryOrder) {
		next = ""
	}
	return out, next, nil
}
