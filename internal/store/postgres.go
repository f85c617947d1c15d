package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"

	"huntnav/internal/model"
)

// Postgres backs the store with a SQL database reached through the pgx
// stdlib driver. Schema lives in migrations/0001_init.sql.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(dsn string) (*Postgres, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		return nil, err
	}
	return &Postgres{db: db}, nil
}

// Ping reports database reachability; the readiness handler checks for it.
func (p *Postgres) Ping(ctx context.Context) error {
	return p.db.PingContext(ctx)
}

func (p *Postgres) Close() error { return p.db.Close() }

func (p *Postgres) CreateHunt(ctx context.Context, in model.HuntIn) (model.Hunt, error) {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return model.Hunt{}, err
	}
	defer func() { _ = tx.Rollback() }()

	id := uuid.New().String()
	_, err = tx.ExecContext(ctx,
		`INSERT INTO hunts (id, name, status, cursor, version) VALUES ($1,$2,'planning',-1,1)`,
		id, in.Name)
	if err != nil {
		return model.Hunt{}, err
	}
	for seq, w := range in.Waypoints {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO waypoints (id, hunt_id, seq, map_id, x, y, label) VALUES ($1,$2,$3,$4,$5,$6,$7)`,
			uuid.New().String(), id, seq, w.MapID, w.X, w.Y, w.Label)
		if err != nil {
			return model.Hunt{}, err
		}
	}
	if err := tx.Commit(); err != nil {
		return model.Hunt{}, err
	}
	return p.GetHunt(ctx, id)
}

func (p *Postgres) GetHunt(ctx context.Context, id string) (model.Hunt, error) {
	return p.getHunt(ctx, p.db, id)
}

// querier lets getHunt run inside or outside a transaction.
type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (p *Postgres) getHunt(ctx context.Context, q querier, id string) (model.Hunt, error) {
	var h model.Hunt
	var routeJSON, summaryJSON []byte
	var created, updated time.Time
	row := q.QueryRowContext(ctx,
		`SELECT id::text, name, status, route, summary, cursor, version, created_at, updated_at FROM hunts WHERE id=$1`, id)
	if err := row.Scan(&h.ID, &h.Name, &h.Status, &routeJSON, &summaryJSON, &h.Cursor, &h.Version, &created, &updated); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return h, ErrNotFound
		}
		return h, err
	}
	h.CreatedAt = created.UTC().Format(time.RFC3339)
	h.UpdatedAt = updated.UTC().Format(time.RFC3339)
	if len(routeJSON) > 0 {
		_ = json.Unmarshal(routeJSON, &h.Route)
	}
	if len(summaryJSON) > 0 {
		var s model.RouteSummary
		if json.Unmarshal(summaryJSON, &s) == nil {
			h.Summary = &s
		}
	}

	rows, err := q.QueryContext(ctx,
		`SELECT id::text, map_id, x, y, label, found, found_by, found_at FROM waypoints WHERE hunt_id=$1 ORDER BY seq`, id)
	if err != nil {
		return h, err
	}
	defer rows.Close()
	for rows.Next() {
		var w model.Waypoint
		var label, foundBy sql.NullString
		var foundAt sql.NullTime
		if err := rows.Scan(&w.ID, &w.MapID, &w.X, &w.Y, &label, &w.Found, &foundBy, &foundAt); err != nil {
			return h, err
		}
		w.Label = label.String
		w.FoundBy = foundBy.String
		if foundAt.Valid {
			w.FoundAt = foundAt.Time.UTC().Format(time.RFC3339)
		}
		h.Waypoints = append(h.Waypoints, w)
	}
	return h, rows.Err()
}

func (p *Postgres) ListHunts(ctx context.Context, cursor string, limit int) ([]model.Hunt, string, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	var rows *sql.Rows
	var err error
	if cursor != "" {
		rows, err = p.db.QueryContext(ctx,
			`SELECT id::text FROM hunts WHERE id::text > $1 ORDER BY id LIMIT $2`, cursor, limit)
	} else {
		rows, err = p.db.QueryContext(ctx, `SELECT id::text FROM hunts ORDER BY id LIMIT $1`, limit)
	}
	if err != nil {
		return nil, "", err
	}
	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, "", err
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, "", err
	}

	out := make([]model.Hunt, 0, len(ids))
	for _, id := range ids {
		h, err := p.GetHunt(ctx, id)
		if err != nil {
			return nil, "", err
		}
		out = append(out, h)
	}
	var next string
	if len(out) == limit && len(out) > 0 {
		next = out[len(out)-1].ID
	}
	return out, next, nil
}

func (p *Postgres) AddWaypoints(ctx context.Context, huntID string, wps []model.WaypointIn) (model.Hunt, error) {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return model.Hunt{}, err
	}
	defer func() { _ = tx.Rollback() }()

	var maxSeq sql.NullInt64
	err = tx.QueryRowContext(ctx, `SELECT MAX(seq) FROM waypoints WHERE hunt_id=$1`, huntID).Scan(&maxSeq)
	if err != nil {
		return model.Hunt{}, err
	}
	seq := int(maxSeq.Int64) + 1
	for _, w := range wps {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO waypoints (id, hunt_id, seq, map_id, x, y, label) VALUES ($1,$2,$3,$4,$5,$6,$7)`,
			uuid.New().String(), huntID, seq, w.MapID, w.X, w.Y, w.Label)
		if err != nil {
			return model.Hunt{}, err
		}
		seq++
	}
	// The stored route no longer covers the waypoint set.
	res, err := tx.ExecContext(ctx,
		`UPDATE hunts SET route=NULL, summary=NULL, cursor=-1, version=version+1, updated_at=now() WHERE id=$1`, huntID)
	if err != nil {
		return model.Hunt{}, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return model.Hunt{}, ErrNotFound
	}
	if err := tx.Commit(); err != nil {
		return model.Hunt{}, err
	}
	return p.GetHunt(ctx, huntID)
}

func (p *Postgres) RemoveWaypoint(ctx context.Context, huntID, waypointID string) (model.Hunt, error) {
	res, err := p.db.ExecContext(ctx,
		`DELETE FROM waypoints WHERE id=$1 AND hunt_id=$2`, waypointID, huntID)
	if err != nil {
		return model.Hunt{}, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return model.Hunt{}, ErrNotFound
	}
	_, err = p.db.ExecContext(ctx,
		`UPDATE hunts SET route=NULL, summary=NULL, cursor=-1, version=version+1, updated_at=now() WHERE id=$1`, huntID)
	if err != nil {
		return model.Hunt{}, err
	}
	return p.GetHunt(ctx, huntID)
}

func (p *Postgres) SaveRoute(ctx context.Context, huntID string, order []string, summary model.RouteSummary) (model.Hunt, error) {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return model.Hunt{}, err
	}
	defer func() { _ = tx.Rollback() }()

	routeJSON, err := json.Marshal(order)
	if err != nil {
		return model.Hunt{}, err
	}
	summaryJSON, err := json.Marshal(summary)
	if err != nil {
		return model.Hunt{}, err
	}
	res, err := tx.ExecContext(ctx,
		`UPDATE hunts SET route=$1, summary=$2,
		        status=CASE WHEN status='planning' THEN 'active' ELSE status END,
		        version=version+1, updated_at=now()
		 WHERE id=$3`, routeJSON, summaryJSON, huntID)
	if err != nil {
		return model.Hunt{}, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return model.Hunt{}, ErrNotFound
	}
	h, err := p.getHunt(ctx, tx, huntID)
	if err != nil {
		return model.Hunt{}, err
	}
	if _, err := tx.ExecContext(ctx, `UPDATE hunts SET cursor=$1 WHERE id=$2`, routeCursor(h), huntID); err != nil {
		return model.Hunt{}, err
	}
	if err := tx.Commit(); err != nil {
		return model.Hunt{}, err
	}
	return p.GetHunt(ctx, huntID)
}

func (p *Postgres) ClaimWaypoint(ctx context.Context, huntID, waypointID, memberID string) (model.ClaimResult, error) {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return model.ClaimResult{}, err
	}
	defer func() { _ = tx.Rollback() }()

	var found bool
	err = tx.QueryRowContext(ctx,
		`SELECT found FROM waypoints WHERE id=$1 AND hunt_id=$2 FOR UPDATE`, waypointID, huntID).Scan(&found)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.ClaimResult{}, ErrNotFound
		}
		return model.ClaimResult{}, err
	}
	if found {
		h, err := p.getHunt(ctx, tx, huntID)
		if err != nil {
			return model.ClaimResult{}, err
		}
		return model.ClaimResult{Hunt: h, Waypoint: waypointByID(h, waypointID), AlreadyFound: true}, nil
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE waypoints SET found=true, found_by=$1, found_at=now() WHERE id=$2`, memberID, waypointID)
	if err != nil {
		return model.ClaimResult{}, err
	}
	h, err := p.getHunt(ctx, tx, huntID)
	if err != nil {
		return model.ClaimResult{}, err
	}
	completed := allFound(h)
	cursor := routeCursor(h)
	status := h.Status
	if completed {
		status = "completed"
		cursor = -1
	}
	_, err = tx.ExecContext(ctx,
		`UPDATE hunts SET cursor=$1, status=$2, version=version+1, updated_at=now() WHERE id=$3`,
		cursor, status, huntID)
	if err != nil {
		return model.ClaimResult{}, err
	}
	h, err = p.getHunt(ctx, tx, huntID)
	if err != nil {
		return model.ClaimResult{}, err
	}
	if err := tx.Commit(); err != nil {
		return model.ClaimResult{}, err
	}
	return model.ClaimResult{Hunt: h, Waypoint: waypointByID(h, waypointID), Completed: completed}, nil
}

func waypointByID(h model.Hunt, id string) model.Waypoint {
	for _, w := range h.Waypoints {
		if w.ID == id {
			return w
		}
	}
	return model.Waypoint{ID: id}
}

func (p *Postgres) JoinHunt(ctx context.Context, huntID string, member model.Member) (model.Member, error) {
	var exists bool
	if err := p.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM hunts WHERE id=$1)`, huntID).Scan(&exists); err != nil {
		return model.Member{}, err
	}
	if !exists {
		return model.Member{}, ErrNotFound
	}
	_, err := p.db.ExecContext(ctx,
		`INSERT INTO members (hunt_id, id, name) VALUES ($1,$2,$3) ON CONFLICT (hunt_id, id) DO NOTHING`,
		huntID, member.ID, member.Name)
	if err != nil {
		return model.Member{}, err
	}
	var joined time.Time
	var name string
	err = p.db.QueryRowContext(ctx,
		`SELECT name, joined_at FROM members WHERE hunt_id=$1 AND id=$2`, huntID, member.ID).Scan(&name, &joined)
	if err != nil {
		return model.Member{}, err
	}
	return model.Member{ID: member.ID, Name: name, JoinedAt: joined.UTC().Format(time.RFC3339)}, nil
}

func (p *Postgres) ListMembers(ctx context.Context, huntID string) ([]model.Member, error) {
	rows, err := p.db.QueryContext(ctx,
		`SELECT id, name, joined_at FROM members WHERE hunt_id=$1 ORDER BY joined_at`, huntID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Member{}
	for rows.Next() {
		var m model.Member
		var joined time.Time
		if err := rows.Scan(&m.ID, &m.Name, &joined); err != nil {
			return nil, err
		}
		m.JoinedAt = joined.UTC().Format(time.RFC3339)
		out = append(out, m)
	}
	return out, rows.Err()
}

func (p *Postgres) SaveOptimizeRun(ctx context.Context, run model.OptimizeRun) error {
	if run.ID == "" {
		run.ID = uuid.New().String()
	}
	_, err := p.db.ExecContext(ctx,
		`INSERT INTO optimize_runs (id, hunt_id, policy, two_opt, waypoints, total_distance, map_jumps, duration_ms)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		run.ID, run.HuntID, run.Policy, run.TwoOpt, run.Waypoints, run.TotalDistance, run.MapJumps, run.DurationMs)
	return err
}

func (p *Postgres) ListOptimizeRuns(ctx context.Context, huntID string, limit int) ([]model.OptimizeRun, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	rows, err := p.db.QueryContext(ctx,
		`SELECT id::text, hunt_id::text, policy, two_opt, waypoints, total_distance, map_jumps, duration_ms, ts
		 FROM optimize_runs WHERE hunt_id=$1 ORDER BY ts DESC LIMIT $2`, huntID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.OptimizeRun{}
	for rows.Next() {
		var r model.OptimizeRun
		var ts time.Time
		if err := rows.Scan(&r.ID, &r.HuntID, &r.Policy, &r.TwoOpt, &r.Waypoints, &r.TotalDistance, &r.MapJumps, &r.DurationMs, &ts); err != nil {
			return nil, err
		}
		r.TS = ts.UTC().Format(time.RFC3339)
		out = append(out, r)
	}
	return out, rows.Err()
}

func (p *Postgres) CreateSubscription(ctx context.Context, req model.SubscriptionRequest) (model.Subscription, error) {
	sub := model.Subscription{
		ID:        uuid.New().String(),
		URL:       req.URL,
		EventType: req.EventType,
		HuntID:    req.HuntID,
		Secret:    req.Secret,
	}
	var created time.Time
	err := p.db.QueryRowContext(ctx,
		`INSERT INTO subscriptions (id, url, event_type, hunt_id, secret) VALUES ($1,$2,$3,$4,$5) RETURNING created_at`,
		sub.ID, sub.URL, sub.EventType, nullIfEmpty(sub.HuntID), sub.Secret).Scan(&created)
	if err != nil {
		return model.Subscription{}, err
	}
	sub.CreatedAt = created.UTC().Format(time.RFC3339)
	return sub, nil
}

func (p *Postgres) GetSubscriptionsForEvent(ctx context.Context, eventType, huntID string) ([]model.Subscription, error) {
	rows, err := p.db.QueryContext(ctx,
		`SELECT id::text, url, event_type, COALESCE(hunt_id::text,''), secret FROM subscriptions
		 WHERE (event_type=$1 OR event_type='*') AND (hunt_id IS NULL OR hunt_id::text=$2)`,
		eventType, huntID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Subscription{}
	for rows.Next() {
		var s model.Subscription
		if err := rows.Scan(&s.ID, &s.URL, &s.EventType, &s.HuntID, &s.Secret); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (p *Postgres) ListSubscriptions(ctx context.Context, cursor string, limit int) ([]model.Subscription, string, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	var rows *sql.Rows
	var err error
	if cursor != "" {
		rows, err = p.db.QueryContext(ctx,
			`SELECT id::text, url, event_type, COALESCE(hunt_id::text,''), created_at FROM subscriptions
			 WHERE id::text > $1 ORDER BY id LIMIT $2`, cursor, limit)
	} else {
		rows, err = p.db.QueryContext(ctx,
			`SELECT id::text, url, event_type, COALESCE(hunt_id::text,''), created_at FROM subscriptions
			 ORDER BY id LIMIT $1`, limit)
	}
	if err != nil {
		return nil, "", err
	}
	defer rows.Close()
	out := []model.Subscription{}
	for rows.Next() {
		var s model.Subscription
		var created time.Time
		if err := rows.Scan(&s.ID, &s.URL, &s.EventType, &s.HuntID, &created); err != nil {
			return nil, "", err
		}
		s.CreatedAt = created.UTC().Format(time.RFC3339)
		out = append(out, s)
	}
	var next string
	if len(out) == limit && len(out) > 0 {
		next = out[len(out)-1].ID
	}
	return out, next, rows.Err()
}

func (p *Postgres) DeleteSubscription(ctx context.Context, id string) error {
	res, err := p.db.ExecContext(ctx, `DELETE FROM subscriptions WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *Postgres) EnqueueWebhook(ctx context.Context, huntID, subscriptionID, eventType, url, secret string, payload []byte) (string, error) {
	id := uuid.New().String()
	_, err := p.db.ExecContext(ctx,
		`INSERT INTO webhook_deliveries (id, subscription_id, event_type, hunt_id, url, secret, payload, status, attempts, next_attempt_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,'pending',0,now())`,
		id, subscriptionID, eventType, nullIfEmpty(huntID), url, secret, payload)
	if err != nil {
		return "", err
	}
	return id, nil
}

func (p *Postgres) FetchDueWebhookDeliveries(ctx context.Context, limit int) ([]WebhookDelivery, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := p.db.QueryContext(ctx,
		`SELECT id::text, subscription_id::text, event_type, url, secret, payload, status, attempts
		 FROM webhook_deliveries
		 WHERE status IN ('pending','retry') AND next_attempt_at <= now()
		 ORDER BY next_attempt_at LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []WebhookDelivery{}
	for rows.Next() {
		var d WebhookDelivery
		if err := rows.Scan(&d.ID, &d.SubscriptionID, &d.EventType, &d.URL, &d.Secret, &d.Payload, &d.Status, &d.Attempts); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (p *Postgres) MarkWebhookDelivery(ctx context.Context, id string, success bool, nextAttemptAt *time.Time, lastError string, responseCode int, latencyMs int) error {
	if success {
		_, err := p.db.ExecContext(ctx,
			`UPDATE webhook_deliveries SET status='delivered', attempts=attempts+1, response_code=$1, latency_ms=$2, delivered_at=now() WHERE id=$3`,
			responseCode, latencyMs, id)
		return err
	}
	next := time.Now().Add(1 * time.Minute)
	if nextAttemptAt != nil {
		next = *nextAttemptAt
	}
	_, err := p.db.ExecContext(ctx,
		`UPDATE webhook_deliveries SET status='retry', attempts=attempts+1, last_error=$1, response_code=$2, latency_ms=$3, next_attempt_at=$4 WHERE id=$5`,
		lastError, responseCode, latencyMs, next, id)
	return err
}

func (p *Postgres) FailWebhookDelivery(ctx context.Context, id string, lastError string, responseCode int, latencyMs int) error {
	_, err := p.db.ExecContext(ctx,
		`UPDATE webhook_deliveries SET status='failed', attempts=attempts+1, last_error=$1, response_code=$2, latency_ms=$3 WHERE id=$4`,
		lastError, responseCode, latencyMs, id)
	return err
}

func (p *Postgres) ListWebhookDeliveries(ctx context.Context, status, cursor string, limit int) ([]map[string]any, string, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	q := `SELECT id::text, subscription_id::text, event_type, COALESCE(hunt_id::text,''), url, status, attempts, COALESCE(last_error,''), COALESCE(response_code,0), COALESCE(latency_ms,0)
	      FROM webhook_deliveries`
	args := []any{}
	where := ""
	if status != "" {
		where = ` WHERE status=$1`
		args = append(args, status)
	}
	if cursor != "" {
		if where == "" {
			where = fmt.Sprintf(` WHERE id::text > $%d`, len(args)+1)
		} else {
			where += fmt.Sprintf(` AND id::text > $%d`, len(args)+1)
		}
		args = append(args, cursor)
	}
	args = append(args, limit)
	rows, err := p.db.QueryContext(ctx, q+where+fmt.Sprintf(` ORDER BY id LIMIT $%d`, len(args)), args...)
	if err != nil {
		return nil, "", err
	}
	defer rows.Close()
	out := []map[string]any{}
	var last string
	for rows.Next() {
		var id, subID, eventType, huntID, url, st, lastErr string
		var attempts, code, latency int
		if err := rows.Scan(&id, &subID, &eventType, &huntID, &url, &st, &attempts, &lastErr, &code, &latency); err != nil {
			return nil, "", err
		}
		out = append(out, map[string]any{
			"id": id, "subscriptionId": subID, "eventType": eventType,
			"huntId": huntID, "url": url, "status": st, "attempts": attempts,
			"lastError": lastErr, "responseCode": code, "latencyMs": latency,
		})
		last = id
	}
	var next string
	if len(out) == limit {
		next = last
	}
	return out, next, rows.Err()
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// MigrateDir applies every .sql file in dir in lexical order. Files are
// expected to be idempotent (CREATE TABLE IF NOT EXISTS style).
func (p *Postgres) MigrateDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	names := []string{}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".sql") {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	for _, name := range names {
		b, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return err
		}
		if _, err := p.db.Exec(string(b)); err != nil {
			return fmt.Errorf("migrate %s: %w", name, err)
		}
	}
	return nil
}
