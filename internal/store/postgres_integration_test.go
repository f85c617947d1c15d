//go:build postgres_integration

package store

import (
	"context"
	"os"
	"testing"

	"huntnav/internal/model"
)

func TestPostgresConnectivityAndMigrate(t *testing.T) {
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set; skipping integration test")
	}
	p, err := NewPostgres(dsn)
	if err != nil {
		t.Fatalf("NewPostgres: %v", err)
	}
	ctx := context.Background()
	if err := p.Ping(ctx); err != nil {
		t.Fatalf("Ping: %v", err)
	}
	if err := p.MigrateDir("../../migrations"); err != nil {
		t.Fatalf("MigrateDir: %v", err)
	}

	h, err := p.CreateHunt(ctx, model.HuntIn{Name: "it hunt", Waypoints: []model.WaypointIn{
		{MapID: 1, X: 0, Y: 0}, {MapID: 1, X: 5, Y: 0},
	}})
	if err != nil {
		t.Fatalf("CreateHunt: %v", err)
	}
	order := []string{h.Waypoints[0].ID, h.Waypoints[1].ID}
	h, err = p.SaveRoute(ctx, h.ID, order, model.RouteSummary{TotalDistance: 5, MapCount: 1})
	if err != nil {
		t.Fatalf("SaveRoute: %v", err)
	}
	if h.Cursor != 0 || h.Status != "active" {
		t.Fatalf("after SaveRoute: %+v", h)
	}
	res, err := p.ClaimWaypoint(ctx, h.ID, order[0], "it-member")
	if err != nil {
		t.Fatalf("ClaimWaypoint: %v", err)
	}
	if res.Hunt.Cursor != 1 {
		t.Fatalf("cursor = %d, want 1", res.Hunt.Cursor)
	}
	if _, _, err := p.ListHunts(ctx, "", 1); err != nil {
		t.Fatalf("ListHunts: %v", err)
	}
}
